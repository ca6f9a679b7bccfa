// Package model provides the estimator interfaces shared across the library.
package model

import (
	"gonum.org/v1/gonum/mat"
)

// Fitter is the interface for estimators that learn from labeled data.
type Fitter interface {
	// Fit trains the estimator on the given data.
	Fit(X, y mat.Matrix) error
}

// Predictor is the interface for estimators that produce point predictions.
type Predictor interface {
	// Predict returns predictions for the input data.
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Scorer is the interface for estimators that can compute a score.
type Scorer interface {
	// Score returns the mean accuracy on the given test data and labels.
	Score(X mat.Matrix, y mat.Matrix) (float64, error)
}

// Classifier combines the capabilities of a probabilistic classifier.
// This is the contract a base estimator must satisfy to be wrapped by a
// conformal calibration layer: PredictProba must be deterministic and
// return one probability distribution per input row.
type Classifier interface {
	Fitter
	Predictor
	Scorer

	// PredictProba returns probability estimates for each class.
	// The output has one row per sample and one column per class;
	// rows are non-negative and sum to 1.
	PredictProba(X mat.Matrix) (mat.Matrix, error)

	// Classes returns the unique classes seen during fitting.
	Classes() []int
}

// ParameterGetter is the interface for estimators that expose their parameters.
type ParameterGetter interface {
	// GetParams returns the estimator's hyperparameters.
	GetParams() map[string]interface{}
}

// ParameterSetter is the interface for estimators that allow parameter modification.
type ParameterSetter interface {
	// SetParams sets the estimator's hyperparameters.
	SetParams(params map[string]interface{}) error
}

// Persistable is the interface for estimators that can be saved and loaded.
type Persistable interface {
	// Save saves the estimator to a file.
	Save(path string) error

	// Load loads the estimator from a file.
	Load(path string) error
}
