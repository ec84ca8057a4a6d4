package balance

import (
	"math/rand"
	"testing"

	"claimlab/domain/abtest"
	"claimlab/domain/dataset"
	"claimlab/internal/logging"
)

func groupWith(t *testing.T, numeric map[string][]float64, categorical map[string][]string, rows int) *dataset.Table {
	t.Helper()
	tbl := dataset.New(rows)
	for name, vals := range numeric {
		if err := tbl.SetNumeric(name, vals); err != nil {
			t.Fatal(err)
		}
	}
	for name, vals := range categorical {
		if err := tbl.SetCategorical(name, vals); err != nil {
			t.Fatal(err)
		}
	}
	return tbl
}

func TestCheck_IdenticalCovariatesNotFlagged(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	age := make([]float64, 80)
	gender := make([]string, 80)
	for i := range age {
		age[i] = 30 + 10*rng.NormFloat64()
		if i%2 == 0 {
			gender[i] = "Male"
		} else {
			gender[i] = "Female"
		}
	}

	// Both groups carry the exact same covariate sample: perfectly balanced.
	groupA := groupWith(t, map[string][]float64{"Age": age}, map[string][]string{"Gender": gender}, 80)
	groupB := groupWith(t, map[string][]float64{"Age": age}, map[string][]string{"Gender": gender}, 80)

	checker := NewChecker(logging.Nop{})
	report := checker.Check(groupA, groupB, []string{"Age", "Gender"})

	if len(report.Rows) != 2 {
		t.Fatalf("expected 2 assessed covariates, got %d", len(report.Rows))
	}
	if flagged := FlagImbalances(report, 0.05); len(flagged) != 0 {
		t.Errorf("identical covariates flagged as imbalanced: %+v", flagged)
	}
}

func TestCheck_ShiftedNumericCovariateFlagged(t *testing.T) {
	rng := rand.New(rand.NewSource(23))
	ageA := make([]float64, 60)
	ageB := make([]float64, 60)
	for i := range ageA {
		ageA[i] = 30 + 2*rng.NormFloat64()
		ageB[i] = 45 + 2*rng.NormFloat64()
	}

	groupA := groupWith(t, map[string][]float64{"Age": ageA}, nil, 60)
	groupB := groupWith(t, map[string][]float64{"Age": ageB}, nil, 60)

	checker := NewChecker(logging.Nop{})
	report := checker.Check(groupA, groupB, []string{"Age"})

	flagged := FlagImbalances(report, 0.05)
	if len(flagged) != 1 {
		t.Fatalf("expected the shifted covariate to be flagged, got %+v", report.Rows)
	}
	if flagged[0].Kind != abtest.BalanceWelchT {
		t.Errorf("numeric covariate should use welch t, got %s", flagged[0].Kind)
	}
	if flagged[0].MeanA >= flagged[0].MeanB {
		t.Errorf("expected mean A < mean B, got %v vs %v", flagged[0].MeanA, flagged[0].MeanB)
	}
}

func TestCheck_SkewedCategoricalCovariateFlagged(t *testing.T) {
	catA := make([]string, 100)
	catB := make([]string, 100)
	for i := range catA {
		if i < 80 {
			catA[i] = "Sedan"
		} else {
			catA[i] = "Truck"
		}
		if i < 20 {
			catB[i] = "Sedan"
		} else {
			catB[i] = "Truck"
		}
	}

	groupA := groupWith(t, nil, map[string][]string{"VehicleType": catA}, 100)
	groupB := groupWith(t, nil, map[string][]string{"VehicleType": catB}, 100)

	checker := NewChecker(logging.Nop{})
	report := checker.Check(groupA, groupB, []string{"VehicleType"})

	flagged := FlagImbalances(report, 0.05)
	if len(flagged) != 1 {
		t.Fatalf("expected the skewed covariate to be flagged, got %+v", report.Rows)
	}
	if flagged[0].Kind != abtest.BalanceChiSquare {
		t.Errorf("categorical covariate should use chi-square, got %s", flagged[0].Kind)
	}
}

func TestCheck_MissingCovariateSkipped(t *testing.T) {
	groupA := groupWith(t, map[string][]float64{"Age": {30, 40, 50}}, nil, 3)
	groupB := groupWith(t, nil, map[string][]string{"Other": {"a", "b", "c"}}, 3)

	checker := NewChecker(logging.Nop{})
	report := checker.Check(groupA, groupB, []string{"Age"})

	if len(report.Rows) != 0 {
		t.Errorf("covariate missing in group B should not be assessed: %+v", report.Rows)
	}
	if len(report.Skipped) != 1 || report.Skipped[0] != "Age" {
		t.Errorf("expected Age in skipped list, got %v", report.Skipped)
	}
}

func TestCheck_SingleCategorySkipped(t *testing.T) {
	same := []string{"Gauteng", "Gauteng", "Gauteng", "Gauteng"}
	groupA := groupWith(t, nil, map[string][]string{"Province": same}, 4)
	groupB := groupWith(t, nil, map[string][]string{"Province": same}, 4)

	checker := NewChecker(logging.Nop{})
	report := checker.Check(groupA, groupB, []string{"Province"})

	if len(report.Rows) != 0 {
		t.Errorf("single-category covariate should be skipped, got %+v", report.Rows)
	}
	if len(report.Skipped) != 1 {
		t.Errorf("expected skip reason recorded, got %v", report.Skipped)
	}
}

func TestCheck_NumericSummaryStatistics(t *testing.T) {
	age := []float64{10, 20, 30}
	groupA := groupWith(t, map[string][]float64{"Age": age}, nil, 3)
	groupB := groupWith(t, map[string][]float64{"Age": age}, nil, 3)

	checker := NewChecker(logging.Nop{})
	report := checker.Check(groupA, groupB, []string{"Age"})

	if len(report.Rows) != 1 {
		t.Fatalf("expected one assessed covariate, got %+v", report)
	}
	row := report.Rows[0]
	if row.MeanA != 20 || row.MeanB != 20 {
		t.Errorf("means = %v / %v, want 20 / 20", row.MeanA, row.MeanB)
	}
	// Sample standard deviation of {10,20,30} is 10.
	if row.StdA != 10 || row.StdB != 10 {
		t.Errorf("stds = %v / %v, want 10 / 10", row.StdA, row.StdB)
	}
}
