package dispatch

import (
	"claimlab/domain/abtest"
	"claimlab/domain/dataset"
	"claimlab/internal/errors"
	"claimlab/internal/logging"
	"claimlab/internal/stattest"
)

// DefaultMinSampleSize is the per-group floor below which a test is
// refused rather than run on an unreliable sample.
const DefaultMinSampleSize = 30

// Dispatcher selects and runs the statistically appropriate test for a
// KPI/test-kind pairing. It holds no state across calls beyond its
// configuration.
type Dispatcher struct {
	log           logging.Logger
	minSampleSize int
}

// NewDispatcher creates a dispatcher with the default minimum sample size.
func NewDispatcher(log logging.Logger) *Dispatcher {
	return &Dispatcher{log: log, minSampleSize: DefaultMinSampleSize}
}

// WithMinSampleSize overrides the per-group sample floor. Zero disables
// the gate entirely.
func (d *Dispatcher) WithMinSampleSize(n int) *Dispatcher {
	d.minSampleSize = n
	return d
}

// Run executes the test identified by (kpi, kind) between the two groups
// and returns the test statistic and two-sided p-value.
//
// Binary KPIs accept chi-square and two-proportion z over 0/1 counts.
// Continuous KPIs accept Welch's t and Mann-Whitney U over the raw column
// with NaNs dropped per group. Severity additionally restricts each group
// to rows with a claim before testing. Any other pairing is an
// UNSUPPORTED_TEST configuration error, surfaced loudly.
func (d *Dispatcher) Run(groupA, groupB *dataset.Table, kpi abtest.KPI, kind abtest.TestKind) (float64, float64, error) {
	switch kpi.Category() {
	case abtest.CategoryBinary:
		return d.runBinary(groupA, groupB, kpi, kind)
	case abtest.CategoryContinuous:
		return d.runContinuous(groupA, groupB, kpi, kind)
	case abtest.CategoryContinuousRestricted:
		return d.runContinuous(restrictToClaims(groupA), restrictToClaims(groupB), kpi, kind)
	}
	return 0, 0, errors.UnsupportedTest(kpi.String(), kind.String())
}

func (d *Dispatcher) runBinary(groupA, groupB *dataset.Table, kpi abtest.KPI, kind abtest.TestKind) (float64, float64, error) {
	switch kind {
	case abtest.TestChiSquare, abtest.TestTwoProportionZ:
	default:
		return 0, 0, errors.UnsupportedTest(kpi.String(), kind.String())
	}

	countA, nA, err := binaryCounts(groupA, kpi.Column())
	if err != nil {
		return 0, 0, err
	}
	countB, nB, err := binaryCounts(groupB, kpi.Column())
	if err != nil {
		return 0, 0, err
	}
	if err := d.gate(nA, nB); err != nil {
		return 0, 0, err
	}

	d.log.Info("dispatch: %s on %s counts: A %d/%d, B %d/%d",
		kind, kpi, countA, nA, countB, nB)

	if kind == abtest.TestChiSquare {
		return stattest.ChiSquareCounts(countA, nA, countB, nB)
	}
	return stattest.TwoProportionZ(countA, nA, countB, nB)
}

func (d *Dispatcher) runContinuous(groupA, groupB *dataset.Table, kpi abtest.KPI, kind abtest.TestKind) (float64, float64, error) {
	switch kind {
	case abtest.TestWelchT, abtest.TestMannWhitneyU:
	default:
		return 0, 0, errors.UnsupportedTest(kpi.String(), kind.String())
	}

	a, err := numericSample(groupA, kpi.Column())
	if err != nil {
		return 0, 0, err
	}
	b, err := numericSample(groupB, kpi.Column())
	if err != nil {
		return 0, 0, err
	}
	if err := d.gate(len(a), len(b)); err != nil {
		return 0, 0, err
	}

	d.log.Info("dispatch: %s on %s: A n=%d, B n=%d", kind, kpi, len(a), len(b))

	if kind == abtest.TestWelchT {
		return stattest.WelchT(a, b)
	}
	return stattest.MannWhitneyU(a, b)
}

// gate enforces the minimum per-group sample size on the data actually
// entering the test (after NaN drops and severity restriction).
func (d *Dispatcher) gate(nA, nB int) error {
	if d.minSampleSize <= 0 {
		return nil
	}
	if nA < d.minSampleSize {
		return errors.InsufficientSample("A", nA, d.minSampleSize)
	}
	if nB < d.minSampleSize {
		return errors.InsufficientSample("B", nB, d.minSampleSize)
	}
	return nil
}

func binaryCounts(t *dataset.Table, column string) (ones, total int, err error) {
	vals, ok := t.NumericClean(column)
	if !ok {
		return 0, 0, errors.FeatureNotFound(column)
	}
	for _, v := range vals {
		if v > 0 {
			ones++
		}
	}
	return ones, len(vals), nil
}

func numericSample(t *dataset.Table, column string) ([]float64, error) {
	vals, ok := t.NumericClean(column)
	if !ok {
		return nil, errors.FeatureNotFound(column)
	}
	return vals, nil
}

func restrictToClaims(t *dataset.Table) *dataset.Table {
	hasClaim, ok := t.Numeric(abtest.ColHasClaim)
	if !ok {
		return t
	}
	return t.Filter(func(row int) bool {
		return hasClaim[row] == 1
	})
}
