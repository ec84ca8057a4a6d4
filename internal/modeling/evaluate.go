package modeling

import (
	"math"
	"sort"
)

// ClassificationMetrics summarizes a binary classifier at threshold 0.5,
// plus threshold-free ROC AUC.
type ClassificationMetrics struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	ROCAUC    float64 `json:"roc_auc"`
}

// RegressionMetrics summarizes a regressor's fit on held-out data.
type RegressionMetrics struct {
	RMSE float64 `json:"rmse"`
	MAE  float64 `json:"mae"`
	R2   float64 `json:"r2"`
}

// EvaluateClassifier scores predicted probabilities against 0/1 truth.
func EvaluateClassifier(probs, truth []float64) ClassificationMetrics {
	var tp, fp, tn, fn float64
	for i, p := range probs {
		predicted := p > 0.5
		actual := truth[i] > 0
		switch {
		case predicted && actual:
			tp++
		case predicted && !actual:
			fp++
		case !predicted && !actual:
			tn++
		default:
			fn++
		}
	}

	metrics := ClassificationMetrics{ROCAUC: rocAUC(probs, truth)}
	if total := tp + fp + tn + fn; total > 0 {
		metrics.Accuracy = (tp + tn) / total
	}
	if tp+fp > 0 {
		metrics.Precision = tp / (tp + fp)
	}
	if tp+fn > 0 {
		metrics.Recall = tp / (tp + fn)
	}
	if metrics.Precision+metrics.Recall > 0 {
		metrics.F1 = 2 * metrics.Precision * metrics.Recall / (metrics.Precision + metrics.Recall)
	}
	return metrics
}

// EvaluateRegressor scores predictions against continuous truth.
func EvaluateRegressor(predicted, truth []float64) RegressionMetrics {
	n := float64(len(truth))
	if n == 0 {
		return RegressionMetrics{}
	}

	var sumSq, sumAbs, sumTruth float64
	for i, p := range predicted {
		diff := p - truth[i]
		sumSq += diff * diff
		sumAbs += math.Abs(diff)
		sumTruth += truth[i]
	}
	mean := sumTruth / n

	var totalSq float64
	for _, t := range truth {
		d := t - mean
		totalSq += d * d
	}

	metrics := RegressionMetrics{
		RMSE: math.Sqrt(sumSq / n),
		MAE:  sumAbs / n,
	}
	if totalSq > 0 {
		metrics.R2 = 1 - sumSq/totalSq
	}
	return metrics
}

// rocAUC computes the area under the ROC curve via the rank formulation,
// with average ranks for tied scores.
func rocAUC(probs, truth []float64) float64 {
	order := make([]int, len(probs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return probs[order[i]] < probs[order[j]]
	})

	ranks := make([]float64, len(probs))
	for i := 0; i < len(order); {
		j := i
		for j < len(order) && probs[order[j]] == probs[order[i]] {
			j++
		}
		avg := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			ranks[order[k]] = avg
		}
		i = j
	}

	var positives, rankSum float64
	for i, t := range truth {
		if t > 0 {
			positives++
			rankSum += ranks[i]
		}
	}
	negatives := float64(len(truth)) - positives
	if positives == 0 || negatives == 0 {
		return math.NaN()
	}
	return (rankSum - positives*(positives+1)/2) / (positives * negatives)
}
