// Package modeling implements the predictive stage: feature encoding, a
// claim-occurrence classifier, and premium/severity regressors.
package modeling

import (
	"math"
	"math/rand"
	"sort"

	"claimlab/domain/dataset"
	"claimlab/internal/errors"
)

// maxCardinality bounds one-hot expansion of categorical columns.
const maxCardinality = 12

// Matrix is a design matrix with named feature columns, one row per
// retained observation.
type Matrix struct {
	Features []string
	X        [][]float64
	Y        []float64
}

// Encode builds a design matrix for the given target column. Numeric
// columns become features directly; categorical columns with at most
// maxCardinality observed values are one-hot encoded (first category
// dropped as the reference level). Rows with a missing target or feature
// value are excluded.
func Encode(t *dataset.Table, target string, exclude []string) (*Matrix, error) {
	targetVals, ok := t.Numeric(target)
	if !ok {
		return nil, errors.FeatureNotFound(target)
	}

	skip := map[string]bool{target: true}
	for _, name := range exclude {
		skip[name] = true
	}

	type column struct {
		name   string
		values []float64
	}
	var encoded []column

	for _, name := range t.Columns() {
		if skip[name] {
			continue
		}
		if vals, ok := t.Numeric(name); ok {
			encoded = append(encoded, column{name: name, values: vals})
			continue
		}

		cats, _ := t.Categorical(name)
		levels := observedLevels(cats)
		if len(levels) < 2 || len(levels) > maxCardinality {
			continue
		}
		// First level is the reference; remaining levels become indicators.
		for _, level := range levels[1:] {
			indicator := make([]float64, len(cats))
			for i, v := range cats {
				if v == "" {
					indicator[i] = math.NaN()
				} else if v == level {
					indicator[i] = 1
				}
			}
			encoded = append(encoded, column{name: name + "=" + level, values: indicator})
		}
	}

	if len(encoded) == 0 {
		return nil, errors.DataFormat("no usable feature columns for target " + target)
	}

	m := &Matrix{}
	for _, c := range encoded {
		m.Features = append(m.Features, c.name)
	}

	for row := 0; row < t.NumRows(); row++ {
		if math.IsNaN(targetVals[row]) {
			continue
		}
		features := make([]float64, len(encoded))
		complete := true
		for j, c := range encoded {
			if math.IsNaN(c.values[row]) {
				complete = false
				break
			}
			features[j] = c.values[row]
		}
		if !complete {
			continue
		}
		m.X = append(m.X, features)
		m.Y = append(m.Y, targetVals[row])
	}

	if len(m.X) == 0 {
		return nil, errors.DataFormat("no complete rows to model for target " + target)
	}
	return m, nil
}

// Split partitions the matrix into train and test sets with a seeded
// shuffle, so repeated runs produce identical folds.
func Split(m *Matrix, testFraction float64, seed int64) (train, test *Matrix) {
	n := len(m.X)
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(n, func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})

	cut := n - int(float64(n)*testFraction)
	if cut <= 0 {
		cut = 1
	}
	if cut >= n {
		cut = n - 1
	}

	train = &Matrix{Features: m.Features}
	test = &Matrix{Features: m.Features}
	for i, idx := range indices {
		if i < cut {
			train.X = append(train.X, m.X[idx])
			train.Y = append(train.Y, m.Y[idx])
		} else {
			test.X = append(test.X, m.X[idx])
			test.Y = append(test.Y, m.Y[idx])
		}
	}
	return train, test
}

// Standardize scales each feature to zero mean and unit variance using
// the training set's statistics, applying the same transform to the test
// set. Constant features are left untouched.
func Standardize(train, test *Matrix) {
	cols := len(train.Features)
	for j := 0; j < cols; j++ {
		var sum, sumSq float64
		for _, row := range train.X {
			sum += row[j]
			sumSq += row[j] * row[j]
		}
		n := float64(len(train.X))
		mean := sum / n
		variance := sumSq/n - mean*mean
		if variance <= 1e-12 {
			continue
		}
		std := math.Sqrt(variance)

		for _, row := range train.X {
			row[j] = (row[j] - mean) / std
		}
		for _, row := range test.X {
			row[j] = (row[j] - mean) / std
		}
	}
}

func observedLevels(cats []string) []string {
	seen := make(map[string]struct{})
	for _, v := range cats {
		if v != "" {
			seen[v] = struct{}{}
		}
	}
	levels := make([]string, 0, len(seen))
	for v := range seen {
		levels = append(levels, v)
	}
	sort.Strings(levels)
	return levels
}
