package balance

import (
	"math"
	"sort"
	"strconv"

	"claimlab/domain/abtest"
	"claimlab/domain/dataset"
	"claimlab/internal/logging"
	"claimlab/internal/stattest"

	"github.com/montanaflynn/stats"
)

// Checker verifies that two segments are statistically comparable on a set
// of covariates before a hypothesis test is trusted.
type Checker struct {
	log logging.Logger
}

// NewChecker creates a balance checker.
func NewChecker(log logging.Logger) *Checker {
	return &Checker{log: log}
}

// Check assesses each covariate's distribution across the two groups.
// Numeric covariates are compared with Welch's t-test on means,
// categorical covariates with a chi-square test of independence over a
// value-count contingency table. A covariate missing from either group,
// or with fewer than two observed categories across the union, is skipped
// with a logged reason rather than failing the check.
func (c *Checker) Check(groupA, groupB *dataset.Table, covariates []string) abtest.BalanceReport {
	report := abtest.BalanceReport{}

	for _, cov := range covariates {
		if !groupA.HasColumn(cov) || !groupB.HasColumn(cov) {
			c.log.Warn("balance: covariate %q missing in one of the groups, skipping", cov)
			report.Skipped = append(report.Skipped, cov)
			continue
		}

		var row abtest.BalanceRow
		var ok bool
		if groupA.IsNumeric(cov) && groupB.IsNumeric(cov) {
			row, ok = c.checkNumeric(groupA, groupB, cov)
		} else {
			row, ok = c.checkCategorical(groupA, groupB, cov)
		}
		if !ok {
			report.Skipped = append(report.Skipped, cov)
			continue
		}
		report.Rows = append(report.Rows, row)
	}

	return report
}

// FlagImbalances returns the covariates whose between-group p-value falls
// below the threshold, meaning their distributions differ significantly
// and the groups may not be exchangeable.
func FlagImbalances(report abtest.BalanceReport, threshold float64) []abtest.BalanceRow {
	var flagged []abtest.BalanceRow
	for _, row := range report.Rows {
		if row.PValue < threshold {
			flagged = append(flagged, row)
		}
	}
	return flagged
}

func (c *Checker) checkNumeric(groupA, groupB *dataset.Table, cov string) (abtest.BalanceRow, bool) {
	a, _ := groupA.NumericClean(cov)
	b, _ := groupB.NumericClean(cov)

	tStat, pValue, err := stattest.WelchT(a, b)
	if err != nil {
		c.log.Warn("balance: covariate %q: %v, skipping", cov, err)
		return abtest.BalanceRow{}, false
	}

	meanA, _ := stats.Mean(a)
	meanB, _ := stats.Mean(b)
	stdA, _ := stats.StandardDeviationSample(a)
	stdB, _ := stats.StandardDeviationSample(b)

	return abtest.BalanceRow{
		Covariate: cov,
		Kind:      abtest.BalanceWelchT,
		Statistic: tStat,
		PValue:    pValue,
		MeanA:     meanA,
		MeanB:     meanB,
		StdA:      stdA,
		StdB:      stdB,
	}, true
}

func (c *Checker) checkCategorical(groupA, groupB *dataset.Table, cov string) (abtest.BalanceRow, bool) {
	countsA := categoryCounts(groupA, cov)
	countsB := categoryCounts(groupB, cov)

	seen := make(map[string]struct{})
	var categories []string
	for cat := range countsA {
		seen[cat] = struct{}{}
	}
	for cat := range countsB {
		seen[cat] = struct{}{}
	}
	for cat := range seen {
		categories = append(categories, cat)
	}
	sort.Strings(categories)

	if len(categories) < 2 {
		c.log.Warn("balance: covariate %q has fewer than two observed categories, skipping", cov)
		return abtest.BalanceRow{}, false
	}

	observed := make([][]float64, 0, len(categories))
	for _, cat := range categories {
		observed = append(observed, []float64{float64(countsA[cat]), float64(countsB[cat])})
	}

	chiSq, pValue, _, err := stattest.ChiSquareIndependence(observed)
	if err != nil {
		c.log.Warn("balance: covariate %q: %v, skipping", cov, err)
		return abtest.BalanceRow{}, false
	}

	return abtest.BalanceRow{
		Covariate: cov,
		Kind:      abtest.BalanceChiSquare,
		Statistic: chiSq,
		PValue:    pValue,
	}, true
}

// categoryCounts tallies a covariate's values in one group. Numeric
// covariates routed here (mixed-type column pairs) are counted by their
// float rendering; missing entries are excluded.
func categoryCounts(t *dataset.Table, cov string) map[string]int {
	counts := make(map[string]int)
	if cats, ok := t.Categorical(cov); ok {
		for _, v := range cats {
			if v != "" {
				counts[v]++
			}
		}
		return counts
	}
	nums, _ := t.Numeric(cov)
	for _, v := range nums {
		if !math.IsNaN(v) {
			counts[formatFloat(v)]++
		}
	}
	return counts
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
