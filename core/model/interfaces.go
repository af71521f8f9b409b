package model

import "gonum.org/v1/gonum/mat"

// Transformer is an interface for data transformation
type Transformer interface {
	// Fit learns parameters necessary for transformation
	Fit(X mat.Matrix) error

	// Transform transforms data
	Transform(X mat.Matrix) (mat.Matrix, error)

	// FitTransform executes Fit and Transform simultaneously
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}

// Estimator is a supervised model trained on a feature matrix and a target column.
type Estimator interface {
	Fit(X, y mat.Matrix) error
	Predict(X mat.Matrix) (mat.Matrix, error)
	IsFitted() bool
}

// Classifier is an Estimator that also produces class probabilities.
type Classifier interface {
	Estimator

	// PredictProba returns one column per class, in the order of Classes.
	PredictProba(X mat.Matrix) (mat.Matrix, error)

	// Classes returns the unique classes seen during fitting.
	Classes() []int
}
