package metrics

import (
	"math"

	"claimlab/domain/abtest"
	"claimlab/domain/dataset"
	"claimlab/internal/logging"

	"github.com/montanaflynn/stats"
)

// Engine derives the portfolio KPI columns from raw premium/claims fields.
type Engine struct {
	log logging.Logger
}

// NewEngine creates a metrics engine.
func NewEngine(log logging.Logger) *Engine {
	return &Engine{log: log}
}

// Augment returns a new table with the derived KPI columns added:
//
//	margin            = TotalPremium - TotalClaims
//	loss_ratio        = TotalClaims / TotalPremium, NaN when premium <= 0
//	has_claim         = 1 iff TotalClaims > 0
//	loss_ratio_capped = loss_ratio clipped at 5.0 (descriptive use only)
//
// The input table is never mutated. If the premium or claims column is
// missing the input is returned unchanged and a warning is logged.
func (e *Engine) Augment(t *dataset.Table) *dataset.Table {
	premium, okP := t.Numeric(abtest.ColPremium)
	claims, okC := t.Numeric(abtest.ColClaims)
	if !okP || !okC {
		e.log.Warn("metrics: missing %q or %q column, skipping KPI derivation",
			abtest.ColPremium, abtest.ColClaims)
		return t
	}

	n := t.NumRows()
	margin := make([]float64, n)
	lossRatio := make([]float64, n)
	lossRatioCapped := make([]float64, n)
	hasClaim := make([]float64, n)

	for i := 0; i < n; i++ {
		margin[i] = premium[i] - claims[i]

		if premium[i] > 0 {
			lossRatio[i] = claims[i] / premium[i]
		} else {
			lossRatio[i] = math.NaN()
		}
		lossRatioCapped[i] = math.Min(lossRatio[i], abtest.LossRatioCapValue)

		if claims[i] > 0 {
			hasClaim[i] = 1
		}
	}

	out, _ := t.WithNumeric(abtest.ColMargin, margin)
	out, _ = out.WithNumeric(abtest.ColLossRatio, lossRatio)
	out, _ = out.WithNumeric(abtest.ColHasClaim, hasClaim)
	out, _ = out.WithNumeric(abtest.ColLossRatioCap, lossRatioCapped)

	e.logAverages(margin, lossRatio, hasClaim)
	return out
}

func (e *Engine) logAverages(margin, lossRatio, hasClaim []float64) {
	avgMargin, _ := stats.Mean(margin)
	avgFreq, _ := stats.Mean(hasClaim)

	defined := make([]float64, 0, len(lossRatio))
	for _, v := range lossRatio {
		if !math.IsNaN(v) {
			defined = append(defined, v)
		}
	}
	avgLoss, _ := stats.Mean(defined)

	e.log.Info("metrics: avg margin %.2f, avg loss ratio %.4f, claim frequency %.4f",
		avgMargin, avgLoss, avgFreq)
}
