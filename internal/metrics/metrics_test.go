package metrics

import (
	"math"
	"testing"

	"claimlab/domain/abtest"
	"claimlab/domain/dataset"
	"claimlab/internal/logging"
)

func buildTable(t *testing.T, premium, claims []float64) *dataset.Table {
	t.Helper()
	tbl := dataset.New(len(premium))
	if err := tbl.SetNumeric(abtest.ColPremium, premium); err != nil {
		t.Fatal(err)
	}
	if err := tbl.SetNumeric(abtest.ColClaims, claims); err != nil {
		t.Fatal(err)
	}
	return tbl
}

func TestAugment_MarginIdentity(t *testing.T) {
	engine := NewEngine(logging.Nop{})
	tbl := buildTable(t, []float64{200, 150, 0}, []float64{50, 0, 30})

	out := engine.Augment(tbl)

	premium, _ := out.Numeric(abtest.ColPremium)
	claims, _ := out.Numeric(abtest.ColClaims)
	margin, _ := out.Numeric(abtest.ColMargin)
	for i := range premium {
		if margin[i]+claims[i] != premium[i] {
			t.Errorf("row %d: margin+claims=%v, premium=%v", i, margin[i]+claims[i], premium[i])
		}
	}
}

func TestAugment_LossRatioNeverDividesByZero(t *testing.T) {
	engine := NewEngine(logging.Nop{})
	tbl := buildTable(t, []float64{200, 0, -10}, []float64{50, 25, 25})

	out := engine.Augment(tbl)
	lossRatio, _ := out.Numeric(abtest.ColLossRatio)

	if lossRatio[0] != 0.25 {
		t.Errorf("expected loss ratio 0.25, got %v", lossRatio[0])
	}
	if !math.IsNaN(lossRatio[1]) {
		t.Errorf("zero premium should yield NaN, got %v", lossRatio[1])
	}
	if !math.IsNaN(lossRatio[2]) {
		t.Errorf("negative premium should yield NaN, got %v", lossRatio[2])
	}
}

func TestAugment_HasClaimBoundary(t *testing.T) {
	engine := NewEngine(logging.Nop{})
	tbl := buildTable(t, []float64{100, 100, 100}, []float64{0, 0.01, 500})

	out := engine.Augment(tbl)
	hasClaim, _ := out.Numeric(abtest.ColHasClaim)

	want := []float64{0, 1, 1}
	for i := range want {
		if hasClaim[i] != want[i] {
			t.Errorf("row %d: has_claim=%v, want %v", i, hasClaim[i], want[i])
		}
	}
}

func TestAugment_CappedLossRatio(t *testing.T) {
	engine := NewEngine(logging.Nop{})
	tbl := buildTable(t, []float64{10, 100}, []float64{100, 50})

	out := engine.Augment(tbl)
	capped, _ := out.Numeric(abtest.ColLossRatioCap)

	if capped[0] != abtest.LossRatioCapValue {
		t.Errorf("expected cap at %v, got %v", abtest.LossRatioCapValue, capped[0])
	}
	if capped[1] != 0.5 {
		t.Errorf("expected 0.5, got %v", capped[1])
	}
}

func TestAugment_MissingColumnsIsNoOp(t *testing.T) {
	engine := NewEngine(logging.Nop{})
	tbl := dataset.New(2)
	_ = tbl.SetNumeric("SomethingElse", []float64{1, 2})

	out := engine.Augment(tbl)
	if out != tbl {
		t.Error("expected input returned unchanged when KPI inputs are missing")
	}
	if out.HasColumn(abtest.ColMargin) {
		t.Error("no KPI columns should be derived")
	}
}

func TestAugment_DoesNotMutateInput(t *testing.T) {
	engine := NewEngine(logging.Nop{})
	tbl := buildTable(t, []float64{200}, []float64{50})

	_ = engine.Augment(tbl)

	if tbl.HasColumn(abtest.ColMargin) || tbl.HasColumn(abtest.ColHasClaim) {
		t.Error("input table gained derived columns")
	}
}
