// Package linear_model provides the logistic regression classifier used by the
// churn pipeline.
package linear_model

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/ezoic/churnpulse/core/model"
	cpErrors "github.com/ezoic/churnpulse/pkg/errors"
)

const (
	penaltyL2          = "l2"
	penaltyNone        = "none"
	classWeightNone    = "none"
	binaryClassCount   = 2
	epsilonSmall       = 1e-15
	regularizationHalf = 0.5
)

// ClassWeightBalanced weights each class by n_samples / (n_classes * count(class)).
const ClassWeightBalanced = "balanced"

// LogisticRegression is a binary L2-regularized logistic regression fitted with
// L-BFGS from a zero start, so fitting is deterministic.
//
// All fields are exported so a fitted model round-trips through encoding/gob.
type LogisticRegression struct {
	State *model.StateManager

	// Hyperparameters
	Penalty      string  // "l2" or "none"
	C            float64 // Inverse regularization strength
	FitIntercept bool
	ClassWeight  string // "balanced" or "none"
	MaxIter      int
	Tol          float64 // Gradient threshold

	// Fitted parameters
	Coef      []float64
	Intercept float64
	ClassList []int
	NFeatures int
	NIter     int
}

// LogisticRegressionOption is a functional option for LogisticRegression
type LogisticRegressionOption func(*LogisticRegression)

// NewLogisticRegression creates a classifier with C=1, l2 penalty, intercept,
// no class weighting, 100 iterations and tol=1e-4.
//
// Example:
//
//	lr := linear_model.NewLogisticRegression(
//		linear_model.WithLRMaxIter(2000),
//		linear_model.WithLRClassWeight(linear_model.ClassWeightBalanced),
//	)
func NewLogisticRegression(opts ...LogisticRegressionOption) *LogisticRegression {
	lr := &LogisticRegression{
		State:        model.NewStateManager(),
		Penalty:      penaltyL2,
		C:            1.0,
		FitIntercept: true,
		ClassWeight:  classWeightNone,
		MaxIter:      100,
		Tol:          1e-4,
	}
	for _, opt := range opts {
		opt(lr)
	}
	return lr
}

// WithLRPenalty sets the regularization type
func WithLRPenalty(penalty string) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.Penalty = penalty }
}

// WithLRC sets the inverse regularization strength
func WithLRC(c float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.C = c }
}

// WithLogisticFitIntercept sets whether to fit intercept
func WithLogisticFitIntercept(fit bool) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.FitIntercept = fit }
}

// WithLRClassWeight sets the class weighting, "balanced" or "none".
func WithLRClassWeight(weight string) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.ClassWeight = weight }
}

// WithLRMaxIter sets the maximum number of L-BFGS iterations
func WithLRMaxIter(maxIter int) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.MaxIter = maxIter }
}

// WithLRTol sets the gradient tolerance
func WithLRTol(tol float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.Tol = tol }
}

// stableSigmoid computes sigmoid(z) in a numerically stable way.
func stableSigmoid(z float64) float64 {
	if z >= 0 {
		return 1.0 / (1.0 + math.Exp(-z))
	}
	ez := math.Exp(z)
	return ez / (1.0 + ez)
}

// clampProbability clamps probability to avoid log(0).
func clampProbability(p float64) float64 {
	return math.Min(math.Max(p, epsilonSmall), 1-epsilonSmall)
}

func (lr *LogisticRegression) validate() error {
	if lr.Penalty != penaltyL2 && lr.Penalty != penaltyNone {
		return cpErrors.NewValidationError("penalty", "lbfgs supports only l2 or none penalty", lr.Penalty)
	}
	if lr.Penalty == penaltyL2 && !(lr.C > 0) {
		return cpErrors.NewValidationError("C", "must be > 0 for l2 penalty", lr.C)
	}
	if lr.ClassWeight != ClassWeightBalanced && lr.ClassWeight != classWeightNone {
		return cpErrors.NewValidationError("class_weight", "must be balanced or none", lr.ClassWeight)
	}
	if lr.MaxIter <= 0 {
		return cpErrors.NewValidationError("max_iter", "must be positive", lr.MaxIter)
	}
	return nil
}

// IsFitted reports whether Fit has completed.
func (lr *LogisticRegression) IsFitted() bool {
	return lr.State != nil && lr.State.IsFitted()
}

// Classes returns the two class labels seen during Fit, ascending.
func (lr *LogisticRegression) Classes() []int {
	return append([]int(nil), lr.ClassList...)
}

// Fit trains the model on X (n_samples × n_features) and the column vector y.
// y must hold exactly two distinct integer labels; the larger is the positive
// class.
func (lr *LogisticRegression) Fit(X, y mat.Matrix) (err error) {
	defer cpErrors.Recover(&err, "LogisticRegression.Fit")
	if err := lr.validate(); err != nil {
		return err
	}

	nSamples, nFeatures := X.Dims()
	yRows, yCols := y.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return cpErrors.NewModelError("LogisticRegression.Fit", "empty data", cpErrors.ErrEmptyData)
	}
	if nSamples != yRows {
		return cpErrors.NewDimensionError("LogisticRegression.Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return cpErrors.NewDimensionError("LogisticRegression.Fit", 1, yCols, 1)
	}

	counts := make(map[int]int)
	for i := 0; i < nSamples; i++ {
		counts[int(y.At(i, 0))]++
	}
	if len(counts) != binaryClassCount {
		return cpErrors.NewValueError("LogisticRegression.Fit",
			fmt.Sprintf("expected exactly 2 classes in y, got %d", len(counts)))
	}
	classes := make([]int, 0, binaryClassCount)
	for c := range counts {
		classes = append(classes, c)
	}
	sort.Ints(classes)

	yBinary := make([]float64, nSamples)
	weights := make([]float64, nSamples)
	for i := 0; i < nSamples; i++ {
		label := int(y.At(i, 0))
		if label == classes[1] {
			yBinary[i] = 1
		}
		weights[i] = 1
		if lr.ClassWeight == ClassWeightBalanced {
			weights[i] = float64(nSamples) / float64(binaryClassCount*counts[label])
		}
	}

	theta, nIter, err := lr.minimize(mat.DenseCopyOf(X), yBinary, weights)
	if err != nil {
		return err
	}

	lr.ClassList = classes
	lr.NFeatures = nFeatures
	lr.Coef = append([]float64(nil), theta[:nFeatures]...)
	lr.Intercept = 0
	if lr.FitIntercept {
		lr.Intercept = theta[nFeatures]
	}
	lr.NIter = nIter

	if lr.State == nil {
		lr.State = model.NewStateManager()
	}
	lr.State.SetDimensions(nFeatures, nSamples)
	lr.State.SetFitted()
	return nil
}

// minimize runs L-BFGS on the weighted negative log-likelihood
//
//	L(w, b) = sum_i s_i * nll_i / n + 0.5 / (C * n) * ||w||^2
//
// which has the same minimizer as C * sum_i s_i * nll_i + 0.5 * ||w||^2.
func (lr *LogisticRegression) minimize(X *mat.Dense, y, sw []float64) ([]float64, int, error) {
	nSamples, nFeatures := X.Dims()
	pDim := nFeatures
	if lr.FitIntercept {
		pDim++
	}
	invN := 1.0 / float64(nSamples)
	lambda := 0.0
	if lr.Penalty == penaltyL2 {
		lambda = invN / lr.C
	}

	z := mat.NewVecDense(nSamples, nil)
	linear := func(theta []float64) {
		z.MulVec(X, mat.NewVecDense(nFeatures, theta[:nFeatures]))
		if lr.FitIntercept {
			b := theta[nFeatures]
			for i := 0; i < nSamples; i++ {
				z.SetVec(i, z.AtVec(i)+b)
			}
		}
	}

	residual := make([]float64, nSamples)
	prob := optimize.Problem{
		Func: func(theta []float64) float64 {
			linear(theta)
			loss := 0.0
			for i := 0; i < nSamples; i++ {
				p := clampProbability(stableSigmoid(z.AtVec(i)))
				loss += sw[i] * (-y[i]*math.Log(p) - (1.0-y[i])*math.Log(1.0-p))
			}
			loss *= invN
			if lambda > 0 {
				w := theta[:nFeatures]
				loss += regularizationHalf * lambda * floats.Dot(w, w)
			}
			return loss
		},
		Grad: func(grad, theta []float64) {
			linear(theta)
			for i := 0; i < nSamples; i++ {
				residual[i] = sw[i] * (stableSigmoid(z.AtVec(i)) - y[i]) * invN
			}
			gw := mat.NewVecDense(nFeatures, grad[:nFeatures])
			gw.MulVec(X.T(), mat.NewVecDense(nSamples, residual))
			if lambda > 0 {
				floats.AddScaled(grad[:nFeatures], lambda, theta[:nFeatures])
			}
			if lr.FitIntercept {
				grad[nFeatures] = floats.Sum(residual)
			}
		},
	}

	settings := optimize.Settings{
		GradientThreshold: lr.Tol,
		MajorIterations:   lr.MaxIter,
	}
	result, err := optimize.Minimize(prob, make([]float64, pDim), &settings, &optimize.LBFGS{})
	if err != nil {
		if result == nil {
			return nil, 0, cpErrors.NewModelError("LogisticRegression.Fit", "lbfgs optimization failed", err)
		}
		cpErrors.Warn(cpErrors.NewConvergenceWarning("lbfgs", result.Stats.MajorIterations, err.Error()))
	} else if result.Status == optimize.IterationLimit {
		cpErrors.Warn(cpErrors.NewConvergenceWarning("lbfgs", result.Stats.MajorIterations,
			"increase the number of iterations"))
	}
	for _, v := range result.X {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, 0, cpErrors.NewModelError("LogisticRegression.Fit", "non-finite coefficients",
				cpErrors.ErrSingularMatrix)
		}
	}
	return result.X, result.Stats.MajorIterations, nil
}

// DecisionFunction returns w·x + b for every row of X.
func (lr *LogisticRegression) DecisionFunction(X mat.Matrix) (_ []float64, err error) {
	defer cpErrors.Recover(&err, "LogisticRegression.DecisionFunction")
	if !lr.IsFitted() {
		return nil, cpErrors.NewNotFittedError("LogisticRegression", "DecisionFunction")
	}
	nSamples, nFeatures := X.Dims()
	if nFeatures != lr.NFeatures {
		return nil, cpErrors.NewDimensionError("LogisticRegression.DecisionFunction", lr.NFeatures, nFeatures, 1)
	}

	scores := make([]float64, nSamples)
	row := make([]float64, nFeatures)
	for i := 0; i < nSamples; i++ {
		mat.Row(row, i, X)
		scores[i] = floats.Dot(row, lr.Coef) + lr.Intercept
	}
	return scores, nil
}

// PredictProba returns an n × 2 matrix of class probabilities, columns in the
// order of Classes.
func (lr *LogisticRegression) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	scores, err := lr.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	probas := mat.NewDense(len(scores), binaryClassCount, nil)
	for i, s := range scores {
		p := stableSigmoid(s)
		probas.Set(i, 0, 1.0-p)
		probas.Set(i, 1, p)
	}
	return probas, nil
}

// Predict returns the positive class where its probability is at least 0.5.
func (lr *LogisticRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	scores, err := lr.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	predictions := mat.NewDense(len(scores), 1, nil)
	for i, s := range scores {
		label := lr.ClassList[0]
		if stableSigmoid(s) >= 0.5 {
			label = lr.ClassList[1]
		}
		predictions.Set(i, 0, float64(label))
	}
	return predictions, nil
}

// Score returns the mean accuracy on the given test data and labels
func (lr *LogisticRegression) Score(X, y mat.Matrix) (float64, error) {
	predictions, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}
	nSamples, _ := X.Dims()
	correct := 0
	for i := 0; i < nSamples; i++ {
		if predictions.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(nSamples), nil
}

// GetParams returns the hyperparameters.
func (lr *LogisticRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"penalty":       lr.Penalty,
		"C":             lr.C,
		"fit_intercept": lr.FitIntercept,
		"class_weight":  lr.ClassWeight,
		"max_iter":      lr.MaxIter,
		"tol":           lr.Tol,
	}
}
