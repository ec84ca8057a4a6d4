package modeling

import (
	"math"

	"claimlab/internal/errors"

	"gonum.org/v1/gonum/mat"
)

// LinearModel is an ordinary-least-squares regressor with intercept.
type LinearModel struct {
	Intercept    float64
	Coefficients []float64
}

// FitLinear solves the least-squares problem over the design matrix via
// QR decomposition.
func FitLinear(m *Matrix) (*LinearModel, error) {
	rows, cols := len(m.X), len(m.Features)
	if rows <= cols+1 {
		return nil, errors.New(errors.CodeInsufficientSample,
			"not enough rows to fit a linear model")
	}

	design := mat.NewDense(rows, cols+1, nil)
	for i, row := range m.X {
		design.Set(i, 0, 1)
		for j, v := range row {
			design.Set(i, j+1, v)
		}
	}
	target := mat.NewVecDense(rows, m.Y)

	var qr mat.QR
	qr.Factorize(design)
	var beta mat.VecDense
	if err := qr.SolveVecTo(&beta, false, target); err != nil {
		return nil, errors.Wrap(err, "least-squares solve failed")
	}

	model := &LinearModel{
		Intercept:    beta.AtVec(0),
		Coefficients: make([]float64, cols),
	}
	for j := 0; j < cols; j++ {
		model.Coefficients[j] = beta.AtVec(j + 1)
	}
	return model, nil
}

// Predict returns the fitted values for a feature matrix.
func (m *LinearModel) Predict(x [][]float64) []float64 {
	out := make([]float64, len(x))
	for i, row := range x {
		v := m.Intercept
		for j, coeff := range m.Coefficients {
			v += coeff * row[j]
		}
		out[i] = v
	}
	return out
}

// LogisticModel is a binary classifier fit by batch gradient descent.
// Features should be standardized first for stable convergence.
type LogisticModel struct {
	Intercept    float64
	Coefficients []float64

	LearningRate float64
	Iterations   int
}

// NewLogisticModel creates a classifier with default training settings.
func NewLogisticModel() *LogisticModel {
	return &LogisticModel{LearningRate: 0.1, Iterations: 500}
}

// Fit trains the classifier on 0/1 targets.
func (m *LogisticModel) Fit(train *Matrix) error {
	rows, cols := len(train.X), len(train.Features)
	if rows < 2 {
		return errors.New(errors.CodeInsufficientSample,
			"not enough rows to fit a classifier")
	}

	m.Coefficients = make([]float64, cols)
	m.Intercept = 0

	for iter := 0; iter < m.Iterations; iter++ {
		gradIntercept := 0.0
		grad := make([]float64, cols)

		for i, row := range train.X {
			p := m.proba(row)
			residual := p - train.Y[i]
			gradIntercept += residual
			for j, v := range row {
				grad[j] += residual * v
			}
		}

		scale := m.LearningRate / float64(rows)
		m.Intercept -= scale * gradIntercept
		for j := range m.Coefficients {
			m.Coefficients[j] -= scale * grad[j]
		}
	}
	return nil
}

// PredictProba returns claim probabilities for a feature matrix.
func (m *LogisticModel) PredictProba(x [][]float64) []float64 {
	out := make([]float64, len(x))
	for i, row := range x {
		out[i] = m.proba(row)
	}
	return out
}

func (m *LogisticModel) proba(row []float64) float64 {
	z := m.Intercept
	for j, coeff := range m.Coefficients {
		z += coeff * row[j]
	}
	return 1 / (1 + math.Exp(-z))
}
