package modeling

import (
	"math"

	"claimlab/domain/abtest"
	"claimlab/domain/dataset"
	"claimlab/internal/errors"
	"claimlab/internal/logging"
)

// derived KPI columns never feed the models as features
var derivedColumns = []string{
	abtest.ColMargin,
	abtest.ColLossRatio,
	abtest.ColLossRatioCap,
	abtest.ColHasClaim,
	abtest.ColPremium,
	abtest.ColClaims,
}

// Report bundles held-out metrics for the three modeling tasks.
type Report struct {
	ClaimClassifier   *ClassificationMetrics `json:"claim_classifier,omitempty"`
	PremiumRegressor  *RegressionMetrics     `json:"premium_regressor,omitempty"`
	SeverityRegressor *RegressionMetrics     `json:"severity_regressor,omitempty"`
}

// Pipeline runs the predictive-modeling stage on a cleaned,
// KPI-augmented table.
type Pipeline struct {
	log          logging.Logger
	TestFraction float64
	Seed         int64
}

// NewPipeline creates a modeling pipeline with a 20% held-out split.
func NewPipeline(log logging.Logger) *Pipeline {
	return &Pipeline{log: log, TestFraction: 0.2, Seed: 42}
}

// Run trains and evaluates the claim-occurrence classifier, the premium
// regressor, and the severity regressor. Tasks are independent: a failure
// in one is logged and leaves its report slot empty.
func (p *Pipeline) Run(t *dataset.Table) Report {
	report := Report{}

	if metrics, err := p.classifyClaims(t); err != nil {
		p.log.Warn("modeling: claim classifier skipped: %v", err)
	} else {
		report.ClaimClassifier = metrics
	}

	if metrics, err := p.regress(t, abtest.ColPremium); err != nil {
		p.log.Warn("modeling: premium regressor skipped: %v", err)
	} else {
		report.PremiumRegressor = metrics
	}

	severityTable := t
	if hasClaim, ok := t.Numeric(abtest.ColHasClaim); ok {
		severityTable = t.Filter(func(row int) bool { return hasClaim[row] == 1 })
	}
	if metrics, err := p.regress(severityTable, abtest.ColClaims); err != nil {
		p.log.Warn("modeling: severity regressor skipped: %v", err)
	} else {
		report.SeverityRegressor = metrics
	}

	return report
}

func (p *Pipeline) classifyClaims(t *dataset.Table) (*ClassificationMetrics, error) {
	if !t.HasColumn(abtest.ColHasClaim) {
		return nil, errors.FeatureNotFound(abtest.ColHasClaim)
	}
	m, err := Encode(t, abtest.ColHasClaim, derivedColumns)
	if err != nil {
		return nil, err
	}

	train, test := Split(m, p.TestFraction, p.Seed)
	Standardize(train, test)

	model := NewLogisticModel()
	if err := model.Fit(train); err != nil {
		return nil, err
	}

	metrics := EvaluateClassifier(model.PredictProba(test.X), test.Y)
	if math.IsNaN(metrics.ROCAUC) {
		return nil, errors.New(errors.CodeInsufficientSample,
			"held-out fold contains a single class, classifier cannot be assessed")
	}
	p.log.Info("modeling: claim classifier: accuracy %.3f, roc_auc %.3f, n_test %d",
		metrics.Accuracy, metrics.ROCAUC, len(test.Y))
	return &metrics, nil
}

func (p *Pipeline) regress(t *dataset.Table, target string) (*RegressionMetrics, error) {
	if !t.HasColumn(target) {
		return nil, errors.FeatureNotFound(target)
	}
	m, err := Encode(t, target, derivedColumns)
	if err != nil {
		return nil, err
	}

	train, test := Split(m, p.TestFraction, p.Seed)

	model, err := FitLinear(train)
	if err != nil {
		return nil, err
	}

	metrics := EvaluateRegressor(model.Predict(test.X), test.Y)
	p.log.Info("modeling: %s regressor: rmse %.2f, r2 %.3f, n_test %d",
		target, metrics.RMSE, metrics.R2, len(test.Y))
	return &metrics, nil
}
