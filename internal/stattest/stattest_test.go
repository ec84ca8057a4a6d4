package stattest

import (
	"math"
	"math/rand"
	"testing"

	"claimlab/internal/errors"
)

func TestWelchT_ClearSeparationRejects(t *testing.T) {
	// Margins for three policies at premium 200: claims 100 vs claims 10.
	a := []float64{100, 100, 100}
	b := []float64{190, 190, 190}

	tStat, p, err := WelchT(a, b)
	if err != nil {
		t.Fatalf("WelchT failed: %v", err)
	}
	if tStat >= 0 {
		t.Errorf("group A mean is lower, expected negative t, got %v", tStat)
	}
	if p >= 0.05 {
		t.Errorf("expected rejection at alpha=0.05, got p=%v", p)
	}
}

func TestWelchT_IdenticalConstantSamples(t *testing.T) {
	tStat, p, err := WelchT([]float64{5, 5, 5}, []float64{5, 5, 5})
	if err != nil {
		t.Fatalf("WelchT failed: %v", err)
	}
	if tStat != 0 || p != 1 {
		t.Errorf("identical constant samples should give t=0, p=1; got t=%v p=%v", tStat, p)
	}
}

func TestWelchT_SeparatedNormalsReject(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	a := make([]float64, 100)
	b := make([]float64, 100)
	for i := range a {
		a[i] = 10 + rng.NormFloat64()
		b[i] = 11 + rng.NormFloat64()
	}

	// One standard deviation of separation at n=100 is overwhelming.
	_, p, err := WelchT(a, b)
	if err != nil {
		t.Fatalf("WelchT failed: %v", err)
	}
	if p >= 0.05 {
		t.Errorf("expected rejection, got p=%v", p)
	}
}

func TestWelchTAndMannWhitney_SameDistributionRetainsNull(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	a := make([]float64, 100)
	for i := range a {
		a[i] = 10 + 2*rng.NormFloat64()
	}
	// Group B is a permutation of the same sample: identical mean and
	// variance, so both tests must fail to reject H0.
	b := make([]float64, len(a))
	copy(b, a)
	rng.Shuffle(len(b), func(i, j int) { b[i], b[j] = b[j], b[i] })

	_, pT, err := WelchT(a, b)
	if err != nil {
		t.Fatalf("WelchT failed: %v", err)
	}
	if pT <= 0.05 {
		t.Errorf("welch t rejected H0 on identical distributions: p=%v", pT)
	}

	_, pU, err := MannWhitneyU(a, b)
	if err != nil {
		t.Fatalf("MannWhitneyU failed: %v", err)
	}
	if pU <= 0.05 {
		t.Errorf("mann-whitney rejected H0 on identical distributions: p=%v", pU)
	}
}

func TestMannWhitneyU_AllTied(t *testing.T) {
	u, p, err := MannWhitneyU([]float64{3, 3, 3}, []float64{3, 3, 3, 3})
	if err != nil {
		t.Fatalf("MannWhitneyU failed: %v", err)
	}
	if p != 1 {
		t.Errorf("fully tied samples should give p=1, got %v", p)
	}
	// With every value tied, U sits at its null expectation n1*n2/2.
	if u != 6 {
		t.Errorf("expected U=6, got %v", u)
	}
}

func TestMannWhitneyU_StatisticIsFirstSampleU(t *testing.T) {
	low := []float64{1, 2, 3}
	high := []float64{4, 5, 6}

	// Every low value ranks below every high value: U1 = 0 from the low
	// side, and the full n1*n2 = 9 from the high side.
	u, _, err := MannWhitneyU(low, high)
	if err != nil {
		t.Fatalf("MannWhitneyU failed: %v", err)
	}
	if u != 0 {
		t.Errorf("U for the lower first sample should be 0, got %v", u)
	}

	u, _, err = MannWhitneyU(high, low)
	if err != nil {
		t.Fatalf("MannWhitneyU failed: %v", err)
	}
	if u != 9 {
		t.Errorf("U for the higher first sample should be 9, got %v", u)
	}
}

func TestMannWhitneyU_ShiftedSamplesReject(t *testing.T) {
	a := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}
	b := []float64{101, 102, 103, 104, 105, 106, 107, 108, 109, 110, 111, 112, 113, 114, 115}

	_, p, err := MannWhitneyU(a, b)
	if err != nil {
		t.Fatalf("MannWhitneyU failed: %v", err)
	}
	if p >= 0.05 {
		t.Errorf("fully separated samples should reject H0, got p=%v", p)
	}
}

func TestChiSquareAndZTest_AgreeOnSeparatedProportions(t *testing.T) {
	// Group A claim rate 10%, group B claim rate 40%, n=200 each.
	chiSq, pChi, err := ChiSquareCounts(20, 200, 80, 200)
	if err != nil {
		t.Fatalf("ChiSquareCounts failed: %v", err)
	}
	z, pZ, err := TwoProportionZ(20, 200, 80, 200)
	if err != nil {
		t.Fatalf("TwoProportionZ failed: %v", err)
	}

	if pChi >= 0.05 {
		t.Errorf("chi-square should reject at alpha=0.05, got p=%v", pChi)
	}
	if pZ >= 0.05 {
		t.Errorf("z-test should reject at alpha=0.05, got p=%v", pZ)
	}

	// Without Yates correction the 2x2 chi-square is exactly z squared.
	if math.Abs(chiSq-z*z) > 1e-9 {
		t.Errorf("chi2=%v but z^2=%v; tests should be equivalent", chiSq, z*z)
	}
	if math.Abs(pChi-pZ) > 1e-9 {
		t.Errorf("p-values diverge: chi=%v z=%v", pChi, pZ)
	}
}

func TestChiSquareCounts_ZeroMarginalFails(t *testing.T) {
	// No claims anywhere: the claim column total is zero.
	_, _, err := ChiSquareCounts(0, 100, 0, 100)
	if err == nil {
		t.Fatal("expected failure on zero marginal total")
	}
	if errors.CodeOf(err) != errors.CodeInsufficientSample {
		t.Errorf("expected INSUFFICIENT_SAMPLE, got %s", errors.CodeOf(err))
	}
}

func TestTwoProportionZ_EqualProportions(t *testing.T) {
	z, p, err := TwoProportionZ(30, 100, 30, 100)
	if err != nil {
		t.Fatalf("TwoProportionZ failed: %v", err)
	}
	if z != 0 {
		t.Errorf("equal proportions should give z=0, got %v", z)
	}
	if p < 0.99 {
		t.Errorf("equal proportions should give p~1, got %v", p)
	}
}

func TestChiSquareIndependence_DropsEmptyMargins(t *testing.T) {
	observed := [][]float64{
		{30, 10},
		{0, 0}, // empty category row, dropped
		{10, 30},
	}
	chiSq, p, df, err := ChiSquareIndependence(observed)
	if err != nil {
		t.Fatalf("ChiSquareIndependence failed: %v", err)
	}
	if df != 1 {
		t.Errorf("expected df=1 after dropping empty row, got %d", df)
	}
	if chiSq <= 0 || p >= 0.05 {
		t.Errorf("strong association expected: chi2=%v p=%v", chiSq, p)
	}
}

func TestChiSquareIndependence_TooFewCategories(t *testing.T) {
	_, _, _, err := ChiSquareIndependence([][]float64{{10, 20}})
	if err == nil {
		t.Fatal("expected failure with a single category")
	}
}

func TestRankCombined_AverageRanksForTies(t *testing.T) {
	ranks, tieTerm := rankCombined([]float64{1, 2}, []float64{2, 3})
	// Sorted: 1, 2, 2, 3 -> ranks 1, 2.5, 2.5, 4.
	want := []float64{1, 2.5, 2.5, 4}
	for i, r := range ranks {
		if r != want[i] {
			t.Errorf("rank[%d]=%v, want %v", i, r, want[i])
		}
	}
	if tieTerm != 6 { // one tie of size 2: 2^3-2
		t.Errorf("tieTerm=%v, want 6", tieTerm)
	}
}
