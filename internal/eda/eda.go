// Package eda computes the descriptive portfolio summaries of the
// exploratory stage: per-column statistics, loss ratios by grouping, and
// numeric correlations.
package eda

import (
	"math"
	"sort"

	"claimlab/domain/abtest"
	"claimlab/domain/dataset"

	"github.com/montanaflynn/stats"
)

// ColumnSummary holds descriptive statistics for one numeric column.
type ColumnSummary struct {
	Column  string  `json:"column"`
	Count   int     `json:"count"`
	Missing int     `json:"missing"`
	Mean    float64 `json:"mean"`
	StdDev  float64 `json:"std_dev"`
	Min     float64 `json:"min"`
	Q25     float64 `json:"q25"`
	Median  float64 `json:"median"`
	Q75     float64 `json:"q75"`
	Max     float64 `json:"max"`
}

// GroupLossRatio is the aggregated loss ratio of one categorical value.
type GroupLossRatio struct {
	Group        string  `json:"group"`
	Rows         int     `json:"rows"`
	TotalPremium float64 `json:"total_premium"`
	TotalClaims  float64 `json:"total_claims"`
	LossRatio    float64 `json:"loss_ratio"`
}

// Summarize computes descriptive statistics for every numeric column.
func Summarize(t *dataset.Table) []ColumnSummary {
	var out []ColumnSummary
	for _, name := range t.Columns() {
		if !t.IsNumeric(name) {
			continue
		}
		vals, _ := t.Numeric(name)
		clean, _ := t.NumericClean(name)

		s := ColumnSummary{
			Column:  name,
			Count:   len(clean),
			Missing: len(vals) - len(clean),
		}
		if len(clean) > 0 {
			s.Mean, _ = stats.Mean(clean)
			s.StdDev, _ = stats.StandardDeviationSample(clean)
			s.Min, _ = stats.Min(clean)
			s.Q25, _ = stats.Percentile(clean, 25)
			s.Median, _ = stats.Median(clean)
			s.Q75, _ = stats.Percentile(clean, 75)
			s.Max, _ = stats.Max(clean)
		}
		out = append(out, s)
	}
	return out
}

// PortfolioLossRatio returns total claims over total premium for the
// whole table, NaN when no premium was collected.
func PortfolioLossRatio(t *dataset.Table) float64 {
	premium, okP := t.Numeric(abtest.ColPremium)
	claims, okC := t.Numeric(abtest.ColClaims)
	if !okP || !okC {
		return math.NaN()
	}

	var sumP, sumC float64
	for i := range premium {
		if !math.IsNaN(premium[i]) && !math.IsNaN(claims[i]) {
			sumP += premium[i]
			sumC += claims[i]
		}
	}
	if sumP <= 0 {
		return math.NaN()
	}
	return sumC / sumP
}

// LossRatioByGroup aggregates premium and claims per value of a
// categorical column and computes each group's loss ratio. Groups are
// returned in descending loss-ratio order; groups with zero premium get
// a NaN ratio and sort last.
func LossRatioByGroup(t *dataset.Table, by string) []GroupLossRatio {
	groups, ok := t.Categorical(by)
	if !ok {
		return nil
	}
	premium, okP := t.Numeric(abtest.ColPremium)
	claims, okC := t.Numeric(abtest.ColClaims)
	if !okP || !okC {
		return nil
	}

	agg := make(map[string]*GroupLossRatio)
	for i, g := range groups {
		if g == "" || math.IsNaN(premium[i]) || math.IsNaN(claims[i]) {
			continue
		}
		row, exists := agg[g]
		if !exists {
			row = &GroupLossRatio{Group: g}
			agg[g] = row
		}
		row.Rows++
		row.TotalPremium += premium[i]
		row.TotalClaims += claims[i]
	}

	out := make([]GroupLossRatio, 0, len(agg))
	for _, row := range agg {
		if row.TotalPremium > 0 {
			row.LossRatio = row.TotalClaims / row.TotalPremium
		} else {
			row.LossRatio = math.NaN()
		}
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].LossRatio, out[j].LossRatio
		if math.IsNaN(a) {
			return false
		}
		if math.IsNaN(b) {
			return true
		}
		if a != b {
			return a > b
		}
		return out[i].Group < out[j].Group
	})
	return out
}

// CorrelationMatrix computes pairwise Pearson correlations between the
// named numeric columns, row-wise complete cases per pair. The matrix is
// symmetric with a unit diagonal; undefined pairs (constant columns,
// fewer than three shared observations) are NaN.
func CorrelationMatrix(t *dataset.Table, columns []string) [][]float64 {
	matrix := make([][]float64, len(columns))
	for i := range matrix {
		matrix[i] = make([]float64, len(columns))
		matrix[i][i] = 1
	}

	for i := 0; i < len(columns); i++ {
		for j := i + 1; j < len(columns); j++ {
			r := pairCorrelation(t, columns[i], columns[j])
			matrix[i][j] = r
			matrix[j][i] = r
		}
	}
	return matrix
}

func pairCorrelation(t *dataset.Table, colA, colB string) float64 {
	a, okA := t.Numeric(colA)
	b, okB := t.Numeric(colB)
	if !okA || !okB {
		return math.NaN()
	}

	var xs, ys []float64
	for i := range a {
		if !math.IsNaN(a[i]) && !math.IsNaN(b[i]) {
			xs = append(xs, a[i])
			ys = append(ys, b[i])
		}
	}
	if len(xs) < 3 {
		return math.NaN()
	}
	if varX, _ := stats.PopulationVariance(xs); varX == 0 {
		return math.NaN()
	}
	if varY, _ := stats.PopulationVariance(ys); varY == 0 {
		return math.NaN()
	}

	r, err := stats.Pearson(xs, ys)
	if err != nil {
		return math.NaN()
	}
	return r
}
