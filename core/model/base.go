// Package model provides core abstractions shared by the churnpulse estimators.
//
// This package defines the building blocks every transformer and estimator uses:
//
//   - BaseEstimator: fitted-state tracking embedded by the preprocessing transformers
//   - StateManager: fitted-state plus training dimensions, held by composition in models
//   - Transformer, Estimator, Classifier: the interfaces the pipeline composes
//   - Model persistence: save and load fitted values with encoding/gob
//
// Example usage:
//
//	type MyTransformer struct {
//		model.BaseEstimator
//		// transformer-specific fields
//	}
//
//	func (m *MyTransformer) Fit(X mat.Matrix) error {
//		// learn statistics
//		m.SetFitted() // mark as trained
//		return nil
//	}
//
// Every exported field of an estimator is part of its persisted form, so fitted
// parameters are kept in exported fields and runtime-only values (loggers) in
// unexported ones.
package model

// EstimatorState represents the learning state of a model
type EstimatorState int

const (
	// NotFitted indicates the model is not yet trained
	NotFitted EstimatorState = iota
	// Fitted indicates the model has been trained
	Fitted
)

// String returns the state name.
func (s EstimatorState) String() string {
	if s == Fitted {
		return "fitted"
	}
	return "not_fitted"
}

// BaseEstimator is the base structure embedded by transformers.
type BaseEstimator struct {
	// State holds the model's learning state. Public for gob encoding.
	State EstimatorState

	// ModelType identifies the type of model
	ModelType string
}

// IsFitted returns whether the model has been fitted with training data.
//
// All transformers must be fitted before Transform is called; implementations
// return a NotFittedError otherwise.
func (e *BaseEstimator) IsFitted() bool {
	return e.State == Fitted
}

// SetFitted marks the estimator as fitted (trained).
//
// Called by implementations at the end of a successful Fit, never by users.
func (e *BaseEstimator) SetFitted() {
	e.State = Fitted
}

// Reset returns the estimator to its initial untrained state.
func (e *BaseEstimator) Reset() {
	e.State = NotFitted
}
