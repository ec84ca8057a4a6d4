package abtest

import (
	"fmt"

	"github.com/google/uuid"
)

// Column names the metrics engine derives and the dispatcher consumes.
const (
	ColPremium        = "TotalPremium"
	ColClaims         = "TotalClaims"
	ColMargin         = "margin"
	ColLossRatio      = "loss_ratio"
	ColHasClaim       = "has_claim"
	ColLossRatioCap   = "loss_ratio_capped"
	LossRatioCapValue = 5.0
)

// KPI identifies a derived metric that can be compared between two groups.
type KPI int

const (
	KPIClaimFrequency KPI = iota // binary has_claim indicator
	KPIMargin                    // premium minus claims
	KPILossRatio                 // claims over premium
	KPISeverity                  // claims amount, claim rows only
)

// KPICategory partitions KPIs by the shape of data a test consumes.
type KPICategory int

const (
	CategoryBinary               KPICategory = iota // 0/1 counts per group
	CategoryContinuous                              // raw numeric column per group
	CategoryContinuousRestricted                    // numeric column, claim rows only
)

// Category returns the data category a KPI belongs to.
func (k KPI) Category() KPICategory {
	switch k {
	case KPIClaimFrequency:
		return CategoryBinary
	case KPISeverity:
		return CategoryContinuousRestricted
	default:
		return CategoryContinuous
	}
}

// Column returns the table column holding the KPI's per-row values.
func (k KPI) Column() string {
	switch k {
	case KPIClaimFrequency:
		return ColHasClaim
	case KPIMargin:
		return ColMargin
	case KPILossRatio:
		return ColLossRatio
	case KPISeverity:
		return ColClaims
	}
	return ""
}

// String returns the config-facing KPI name.
func (k KPI) String() string {
	switch k {
	case KPIClaimFrequency:
		return "claim_frequency"
	case KPIMargin:
		return "margin"
	case KPILossRatio:
		return "loss_ratio"
	case KPISeverity:
		return "severity"
	}
	return fmt.Sprintf("kpi(%d)", int(k))
}

// ParseKPI maps a config name to a KPI.
func ParseKPI(s string) (KPI, error) {
	switch s {
	case "claim_frequency":
		return KPIClaimFrequency, nil
	case "margin":
		return KPIMargin, nil
	case "loss_ratio":
		return KPILossRatio, nil
	case "severity":
		return KPISeverity, nil
	}
	return 0, fmt.Errorf("unknown kpi %q", s)
}

// TestKind identifies a statistical test the dispatcher can run.
type TestKind int

const (
	TestChiSquare TestKind = iota
	TestTwoProportionZ
	TestWelchT
	TestMannWhitneyU
)

// String returns the config-facing test name.
func (tk TestKind) String() string {
	switch tk {
	case TestChiSquare:
		return "chi2"
	case TestTwoProportionZ:
		return "ztest"
	case TestWelchT:
		return "ttest"
	case TestMannWhitneyU:
		return "mw_u"
	}
	return fmt.Sprintf("test(%d)", int(tk))
}

// ParseTestKind maps a config name to a TestKind.
func ParseTestKind(s string) (TestKind, error) {
	switch s {
	case "chi2":
		return TestChiSquare, nil
	case "ztest":
		return TestTwoProportionZ, nil
	case "ttest":
		return TestWelchT, nil
	case "mw_u":
		return TestMannWhitneyU, nil
	}
	return 0, fmt.Errorf("unknown test kind %q", s)
}

// TestSpec is a single configured A/B comparison. Specs are owned by the
// config loader and consumed read-only by the engine.
type TestSpec struct {
	Name       string
	Feature    string
	GroupA     string
	GroupB     string
	KPI        KPI
	Test       TestKind
	Covariates []string
}

// TestResult is the immutable outcome of one executed spec. Results are
// created once, appended to the run's ordered list, and never mutated.
type TestResult struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Feature      string    `json:"feature" db:"feature"`
	GroupA       string    `json:"group_a" db:"group_a"`
	GroupB       string    `json:"group_b" db:"group_b"`
	KPI          string    `json:"kpi" db:"kpi"`
	Test         string    `json:"test" db:"test_kind"`
	Statistic    float64   `json:"statistic" db:"statistic"`
	PValue       float64   `json:"p_value" db:"p_value"`
	Decision     string    `json:"decision" db:"decision"`
	GroupASize   int       `json:"group_a_size" db:"group_a_size"`
	GroupBSize   int       `json:"group_b_size" db:"group_b_size"`
	BalanceFlags []string  `json:"balance_flags,omitempty" db:"-"`
}

// Decision strings applied against the configured alpha.
const (
	DecisionReject       = "Reject H0"
	DecisionFailToReject = "Fail to reject H0"
)

// Decide applies the caller-side decision rule: reject H0 iff p < alpha.
func Decide(pValue, alpha float64) string {
	if pValue < alpha {
		return DecisionReject
	}
	return DecisionFailToReject
}

// BalanceKind marks which test assessed a covariate in a balance report.
type BalanceKind string

const (
	BalanceWelchT    BalanceKind = "welch_t"
	BalanceChiSquare BalanceKind = "chi_square"
)

// BalanceRow is the per-covariate outcome of a balance check.
type BalanceRow struct {
	Covariate string      `json:"covariate"`
	Kind      BalanceKind `json:"kind"`
	Statistic float64     `json:"statistic"`
	PValue    float64     `json:"p_value"`
	MeanA     float64     `json:"mean_a,omitempty"`
	MeanB     float64     `json:"mean_b,omitempty"`
	StdA      float64     `json:"std_a,omitempty"`
	StdB      float64     `json:"std_b,omitempty"`
}

// BalanceReport collects per-covariate comparability assessments for one
// segment pair, plus the covariates that could not be tested.
type BalanceReport struct {
	Rows    []BalanceRow `json:"rows"`
	Skipped []string     `json:"skipped,omitempty"`
}

// Run identifies one full pipeline execution over a spec list.
type Run struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Alpha        float64   `json:"alpha" db:"alpha"`
	SpecCount    int       `json:"spec_count" db:"spec_count"`
	ResultCount  int       `json:"result_count" db:"result_count"`
	ConfigDigest string    `json:"config_digest" db:"config_digest"`
}
