package tabular

import (
	"math"
	"time"

	"claimlab/domain/abtest"
	"claimlab/domain/dataset"
	"claimlab/internal/logging"
	"claimlab/ports"

	"github.com/montanaflynn/stats"
)

// transaction month layouts seen in the raw exports
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"2006-01",
}

// Cleaner imputes missing values and drops rows that would poison the
// statistical or modeling stages.
type Cleaner struct {
	log logging.Logger
}

var _ ports.Cleaner = (*Cleaner)(nil)

// NewCleaner creates a cleaner.
func NewCleaner(log logging.Logger) *Cleaner {
	return &Cleaner{log: log}
}

// Clean returns a new table with missing numeric values imputed with the
// column median and missing categorical values with the column mode.
func (c *Cleaner) Clean(t *dataset.Table) *dataset.Table {
	out := t
	imputed := 0

	for _, name := range t.Columns() {
		vals, ok := t.Numeric(name)
		if !ok {
			continue
		}
		filled, n := imputeMedian(vals)
		if n > 0 {
			out, _ = out.WithNumeric(name, filled)
			imputed += n
		}
	}

	out = imputeCategoricalModes(out, &imputed)

	if imputed > 0 {
		c.log.Info("clean: imputed %d missing values", imputed)
	}
	return out
}

// DropInvalidRows removes rows unusable for KPI computation or modeling:
// non-positive premium and, when a TransactionMonth column exists,
// unparsable dates.
func (c *Cleaner) DropInvalidRows(t *dataset.Table) *dataset.Table {
	premium, hasPremium := t.Numeric(abtest.ColPremium)
	dates, hasDates := t.Categorical("TransactionMonth")

	before := t.NumRows()
	out := t.Filter(func(row int) bool {
		if hasPremium && (math.IsNaN(premium[row]) || premium[row] <= 0) {
			return false
		}
		if hasDates && dates[row] != "" && !parseable(dates[row]) {
			return false
		}
		return true
	})

	if dropped := before - out.NumRows(); dropped > 0 {
		c.log.Info("clean: dropped %d invalid rows (non-positive premium or bad dates)", dropped)
	}
	return out
}

func imputeMedian(vals []float64) ([]float64, int) {
	defined := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			defined = append(defined, v)
		}
	}
	missing := len(vals) - len(defined)
	if missing == 0 || len(defined) == 0 {
		return vals, 0
	}

	median, err := stats.Median(defined)
	if err != nil {
		return vals, 0
	}

	out := make([]float64, len(vals))
	for i, v := range vals {
		if math.IsNaN(v) {
			out[i] = median
		} else {
			out[i] = v
		}
	}
	return out, missing
}

func imputeCategoricalModes(t *dataset.Table, imputed *int) *dataset.Table {
	out := t
	for _, name := range t.Columns() {
		vals, ok := out.Categorical(name)
		if !ok {
			continue
		}

		missing := 0
		counts := make(map[string]int)
		for _, v := range vals {
			if v == "" {
				missing++
			} else {
				counts[v]++
			}
		}
		if missing == 0 || len(counts) == 0 {
			continue
		}

		mode := ""
		for v, n := range counts {
			if n > counts[mode] || (n == counts[mode] && (mode == "" || v < mode)) {
				mode = v
			}
		}

		filled := make([]string, len(vals))
		for i, v := range vals {
			if v == "" {
				filled[i] = mode
			} else {
				filled[i] = v
			}
		}
		out, _ = out.WithCategorical(name, filled)
		*imputed += missing
	}
	return out
}

func parseable(s string) bool {
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}
