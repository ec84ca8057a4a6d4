// Package stattest holds the two-sample test primitives the dispatcher and
// balance checker are built on. P-values come from exact gonum
// distributions rather than normal approximations wherever a closed-form
// CDF exists.
package stattest

import (
	"math"
	"sort"

	"claimlab/internal/errors"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"
)

// WelchT runs Welch's two-sample t-test (two-sided, unequal variances).
// Samples must already be NaN-free; each needs at least two observations.
func WelchT(a, b []float64) (tStat, pValue float64, err error) {
	n1, n2 := float64(len(a)), float64(len(b))
	if len(a) < 2 || len(b) < 2 {
		return 0, 0, errors.New(errors.CodeInsufficientSample,
			"welch t-test needs at least two observations per group")
	}

	mean1, _ := stats.Mean(a)
	mean2, _ := stats.Mean(b)
	var1, _ := stats.SampleVariance(a)
	var2, _ := stats.SampleVariance(b)

	se := math.Sqrt(var1/n1 + var2/n2)
	if se == 0 {
		// Degenerate constant samples: identical means are a perfect
		// failure to reject, distinct means a perfect rejection.
		if mean1 == mean2 {
			return 0, 1, nil
		}
		return math.Inf(sign(mean1 - mean2)), 0, nil
	}

	tStat = (mean1 - mean2) / se

	// Welch-Satterthwaite degrees of freedom.
	df := math.Pow(var1/n1+var2/n2, 2) /
		(math.Pow(var1/n1, 2)/(n1-1) + math.Pow(var2/n2, 2)/(n2-1))

	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	pValue = 2 * (1 - tDist.CDF(math.Abs(tStat)))
	return tStat, clampP(pValue), nil
}

// MannWhitneyU runs the two-sided Mann-Whitney U test using the normal
// approximation with tie correction. The returned statistic is U for the
// first sample.
func MannWhitneyU(a, b []float64) (uStat, pValue float64, err error) {
	n1, n2 := float64(len(a)), float64(len(b))
	if len(a) == 0 || len(b) == 0 {
		return 0, 0, errors.New(errors.CodeInsufficientSample,
			"mann-whitney u needs observations in both groups")
	}

	ranks, tieTerm := rankCombined(a, b)

	var rankSumA float64
	for i := range a {
		rankSumA += ranks[i]
	}
	uStat = rankSumA - n1*(n1+1)/2

	n := n1 + n2
	mu := n1 * n2 / 2
	variance := n1 * n2 / 12 * ((n + 1) - tieTerm/(n*(n-1)))
	if variance <= 0 {
		// Every observation tied: no evidence of a location shift.
		return uStat, 1, nil
	}

	z := (uStat - mu) / math.Sqrt(variance)
	pValue = 2 * (1 - distuv.UnitNormal.CDF(math.Abs(z)))
	return uStat, clampP(pValue), nil
}

// ChiSquareCounts runs a chi-square test of independence on the 2x2 table
// of (claim occurred, claim absent) x (group A, group B), without Yates'
// continuity correction so it matches the two-proportion z-test's
// sensitivity. Fails when any marginal total is zero.
func ChiSquareCounts(countA, nA, countB, nB int) (chiSq, pValue float64, err error) {
	obs := [2][2]float64{
		{float64(countA), float64(nA - countA)},
		{float64(countB), float64(nB - countB)},
	}

	rowTotals := [2]float64{obs[0][0] + obs[0][1], obs[1][0] + obs[1][1]}
	colTotals := [2]float64{obs[0][0] + obs[1][0], obs[0][1] + obs[1][1]}
	total := rowTotals[0] + rowTotals[1]

	for _, m := range []float64{rowTotals[0], rowTotals[1], colTotals[0], colTotals[1]} {
		if m == 0 {
			return 0, 0, errors.New(errors.CodeInsufficientSample,
				"chi-square contingency table has a zero marginal total")
		}
	}

	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			expected := rowTotals[i] * colTotals[j] / total
			diff := obs[i][j] - expected
			chiSq += diff * diff / expected
		}
	}

	chiDist := distuv.ChiSquared{K: 1}
	pValue = 1 - chiDist.CDF(chiSq)
	return chiSq, clampP(pValue), nil
}

// ChiSquareIndependence runs a chi-square test of independence on a
// general r x c contingency table of observed counts. Rows or columns
// with a zero total are dropped before testing.
func ChiSquareIndependence(observed [][]float64) (chiSq, pValue float64, df int, err error) {
	observed = dropEmptyMargins(observed)
	rows := len(observed)
	if rows < 2 || len(observed[0]) < 2 {
		return 0, 0, 0, errors.New(errors.CodeInsufficientSample,
			"contingency table needs at least two non-empty rows and columns")
	}
	cols := len(observed[0])

	rowTotals := make([]float64, rows)
	colTotals := make([]float64, cols)
	var total float64
	for i := range observed {
		for j, v := range observed[i] {
			rowTotals[i] += v
			colTotals[j] += v
			total += v
		}
	}

	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			expected := rowTotals[i] * colTotals[j] / total
			diff := observed[i][j] - expected
			chiSq += diff * diff / expected
		}
	}

	df = (rows - 1) * (cols - 1)
	chiDist := distuv.ChiSquared{K: float64(df)}
	pValue = 1 - chiDist.CDF(chiSq)
	return chiSq, clampP(pValue), df, nil
}

// TwoProportionZ runs the pooled two-proportion z-test comparing two
// independent binomial proportions, two-sided.
func TwoProportionZ(countA, nA, countB, nB int) (zStat, pValue float64, err error) {
	if nA == 0 || nB == 0 {
		return 0, 0, errors.New(errors.CodeInsufficientSample,
			"two-proportion z-test needs observations in both groups")
	}

	pA := float64(countA) / float64(nA)
	pB := float64(countB) / float64(nB)
	pooled := float64(countA+countB) / float64(nA+nB)

	se := math.Sqrt(pooled * (1 - pooled) * (1/float64(nA) + 1/float64(nB)))
	if se == 0 {
		// All successes or all failures in both groups: proportions equal.
		return 0, 1, nil
	}

	zStat = (pA - pB) / se
	pValue = 2 * (1 - distuv.UnitNormal.CDF(math.Abs(zStat)))
	return zStat, clampP(pValue), nil
}

// rankCombined assigns average ranks to the concatenation of a and b and
// returns the ranks (a's first) plus the tie-correction term sum(t^3 - t).
func rankCombined(a, b []float64) (ranks []float64, tieTerm float64) {
	n := len(a) + len(b)
	combined := make([]float64, 0, n)
	combined = append(combined, a...)
	combined = append(combined, b...)

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return combined[order[i]] < combined[order[j]]
	})

	ranks = make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j < n && combined[order[j]] == combined[order[i]] {
			j++
		}
		// Average rank for the tied block [i, j).
		avg := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			ranks[order[k]] = avg
		}
		if t := float64(j - i); t > 1 {
			tieTerm += t*t*t - t
		}
		i = j
	}
	return ranks, tieTerm
}

// dropEmptyMargins removes all-zero rows and columns from a table.
func dropEmptyMargins(observed [][]float64) [][]float64 {
	var keptRows [][]float64
	for _, row := range observed {
		var sum float64
		for _, v := range row {
			sum += v
		}
		if sum > 0 {
			keptRows = append(keptRows, row)
		}
	}
	if len(keptRows) == 0 {
		return nil
	}

	cols := len(keptRows[0])
	keepCol := make([]bool, cols)
	for j := 0; j < cols; j++ {
		for _, row := range keptRows {
			if row[j] > 0 {
				keepCol[j] = true
				break
			}
		}
	}

	out := make([][]float64, len(keptRows))
	for i, row := range keptRows {
		for j, v := range row {
			if keepCol[j] {
				out[i] = append(out[i], v)
			}
		}
	}
	return out
}

func clampP(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

func sign(x float64) int {
	if x < 0 {
		return -1
	}
	return 1
}
