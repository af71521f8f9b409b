package metrics

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	cpErrors "github.com/ezoic/churnpulse/pkg/errors"
)

func checkBinaryPair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	if yTrue == nil || yPred == nil {
		return 0, cpErrors.NewValueError(op, "input vectors cannot be nil")
	}
	n := yTrue.Len()
	if n == 0 {
		return 0, cpErrors.NewValueError(op, "input vectors cannot be empty")
	}
	if n != yPred.Len() {
		return 0, cpErrors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	for i := 0; i < n; i++ {
		if val := yTrue.AtVec(i); val != 0.0 && val != 1.0 {
			return 0, cpErrors.NewValidationError(
				"yTrue",
				fmt.Sprintf("must contain only binary values (0 or 1), found %f at index %d", val, i),
				val,
			)
		}
	}
	return n, nil
}

// ROCCurve computes the receiver operating characteristic of scores against
// binary labels.
//
// The returned slices start at (0, 0) with an infinite threshold and add one
// point per distinct score in descending order, ending at (1, 1).
//
// Returns:
//   - fpr, tpr: false and true positive rates
//   - thresholds: the score at which each point is reached
//
// When yTrue holds a single class the curve is undefined and the error is a
// ValueError.
func ROCCurve(yTrue, yScore *mat.VecDense) (fpr, tpr, thresholds []float64, err error) {
	n, err := checkBinaryPair("ROCCurve", yTrue, yScore)
	if err != nil {
		return nil, nil, nil, err
	}

	type pair struct {
		score float64
		label float64
	}
	pairs := make([]pair, n)
	totalPos := 0.0
	for i := 0; i < n; i++ {
		pairs[i] = pair{score: yScore.AtVec(i), label: yTrue.AtVec(i)}
		totalPos += pairs[i].label
	}
	totalNeg := float64(n) - totalPos
	if totalPos == 0 || totalNeg == 0 {
		return nil, nil, nil, cpErrors.NewValueError("ROCCurve",
			"only one class present in yTrue; ROC curve is not defined")
	}

	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].score > pairs[j].score })

	fpr = append(fpr, 0)
	tpr = append(tpr, 0)
	thresholds = append(thresholds, math.Inf(1))

	tp, fp := 0.0, 0.0
	for i, p := range pairs {
		if p.label == 1.0 {
			tp++
		} else {
			fp++
		}
		// emit once all samples sharing this score are counted
		if i == n-1 || pairs[i+1].score != p.score {
			fpr = append(fpr, fp/totalNeg)
			tpr = append(tpr, tp/totalPos)
			thresholds = append(thresholds, p.score)
		}
	}
	return fpr, tpr, thresholds, nil
}

// AUC calculates the Area Under the ROC Curve for binary classification.
//
// The AUC represents the probability that a classifier will rank a randomly
// chosen positive instance higher than a randomly chosen negative instance.
// Tied scores count one half. If all samples belong to one class AUC is
// undefined and 0.5 is returned.
//
// Example:
//
//	yTrue := mat.NewVecDense(4, []float64{0, 0, 1, 1})
//	yPred := mat.NewVecDense(4, []float64{0.1, 0.4, 0.35, 0.8})
//	auc, err := metrics.AUC(yTrue, yPred) // 0.75
func AUC(yTrue, yPred *mat.VecDense) (float64, error) {
	if _, err := checkBinaryPair("AUC", yTrue, yPred); err != nil {
		return 0, err
	}

	fpr, tpr, _, err := ROCCurve(yTrue, yPred)
	if err != nil {
		return 0.5, nil
	}

	// trapezoidal rule
	auc := 0.0
	for i := 1; i < len(fpr); i++ {
		auc += (fpr[i] - fpr[i-1]) * (tpr[i] + tpr[i-1]) / 2
	}
	return auc, nil
}

// Threshold turns probabilities into 0/1 predictions: p >= threshold is positive.
func Threshold(proba *mat.VecDense, threshold float64) *mat.VecDense {
	out := mat.NewVecDense(proba.Len(), nil)
	for i := 0; i < proba.Len(); i++ {
		if proba.AtVec(i) >= threshold {
			out.SetVec(i, 1)
		}
	}
	return out
}

// ConfusionMatrix counts binary outcomes as [[tn, fp], [fn, tp]].
func ConfusionMatrix(yTrue, yPred *mat.VecDense) ([2][2]int, error) {
	var cm [2][2]int
	n, err := checkBinaryPair("ConfusionMatrix", yTrue, yPred)
	if err != nil {
		return cm, err
	}
	for i := 0; i < n; i++ {
		t := int(yTrue.AtVec(i))
		p := 0
		if yPred.AtVec(i) == 1.0 {
			p = 1
		}
		cm[t][p]++
	}
	return cm, nil
}

// Precision is tp / (tp + fp), or 0 when nothing was predicted positive.
func Precision(yTrue, yPred *mat.VecDense) (float64, error) {
	cm, err := ConfusionMatrix(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return safeDiv(cm[1][1], cm[1][1]+cm[0][1]), nil
}

// Recall is tp / (tp + fn), or 0 when there are no positives.
func Recall(yTrue, yPred *mat.VecDense) (float64, error) {
	cm, err := ConfusionMatrix(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return safeDiv(cm[1][1], cm[1][1]+cm[1][0]), nil
}

// F1 is the harmonic mean of precision and recall, 2tp / (2tp + fp + fn), or 0
// when undefined.
func F1(yTrue, yPred *mat.VecDense) (float64, error) {
	cm, err := ConfusionMatrix(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	tp := cm[1][1]
	return safeDiv(2*tp, 2*tp+cm[0][1]+cm[1][0]), nil
}

// Accuracy is the fraction of matching predictions.
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	cm, err := ConfusionMatrix(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return safeDiv(cm[0][0]+cm[1][1], yTrue.Len()), nil
}

func safeDiv(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
