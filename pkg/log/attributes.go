// Package log defines standard attribute keys for conformal prediction operations.
//
// This file contains predefined attribute keys that provide consistency across
// all logging operations in the library. Using these standard keys enables better
// log analysis, monitoring, and debugging of calibration and prediction workflows.
//
// The attributes are organized into categories:
//   - Model and Operation Context
//   - Data Shape and Characteristics
//   - Conformal Prediction Context
//   - Performance Metrics
//   - Error Context
//
// These keys follow a hierarchical naming convention (e.g., "model.name",
// "data.samples") to enable structured log analysis and filtering.
package log

// Model and Operation Context
// These attributes identify the model type, instance, and operation being performed.
const (
	// ModelNameKey identifies the type of estimator.
	// Examples: "SplitConformalClassifier", "GaussianNB"
	ModelNameKey = "model.name"

	// EstimatorIDKey provides a unique identifier for a specific model instance.
	// Examples: "scc-001", UUID strings
	EstimatorIDKey = "estimator.id"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "predict_sets", "score"
	OperationKey = "ml.operation"

	// ComponentKey identifies which component or package is performing the operation.
	// Examples: "conformal", "naive_bayes", "metrics"
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of model lifecycle.
	// Examples: "calibration", "inference", "evaluation"
	PhaseKey = "ml.phase"
)

// Data Shape and Characteristics
// These attributes describe the structure and properties of data being processed.
const (
	// SamplesKey indicates the number of samples (rows) being processed.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns) in the dataset.
	FeaturesKey = "data.features"

	// ClassesKey indicates the number of classes in the label space.
	ClassesKey = "data.classes"
)

// Conformal Prediction Context
// These attributes describe calibration state and prediction-set results.
const (
	// AlphaKey records a miscoverage level in (0, 1).
	// The target coverage for a prediction set is 1 - alpha.
	AlphaKey = "conformal.alpha"

	// AlphasKey records the full sequence of requested miscoverage levels.
	AlphasKey = "conformal.alphas"

	// ThresholdKey records the calibrated quantile threshold for an alpha level.
	ThresholdKey = "conformal.threshold"

	// CalibrationSizeKey records the number of calibration samples backing
	// the fitted thresholds.
	CalibrationSizeKey = "conformal.calibration_size"

	// CoverageKey records empirical coverage of prediction sets on labeled data.
	// Range [0.0, 1.0]; should be at least 1 - alpha under exchangeability.
	CoverageKey = "conformal.coverage"

	// MeanSetSizeKey records the average number of classes per prediction set.
	MeanSetSizeKey = "conformal.mean_set_size"

	// EmptySetRateKey records the fraction of samples with an empty prediction set.
	EmptySetRateKey = "conformal.empty_set_rate"

	// ScorerKey identifies the nonconformity scoring rule in use.
	// Examples: "lac", "aps"
	ScorerKey = "conformal.scorer"
)

// Performance Metrics
// These attributes capture timing and accuracy information.
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// AccuracyKey records point-prediction accuracy for evaluation operations.
	// Range typically [0.0, 1.0].
	AccuracyKey = "metrics.accuracy"
)

// Error and Warning Context
// These attributes provide additional context for error and warning messages.
const (
	// ErrorCodeKey provides a structured error code for programmatic handling.
	// Examples: "DIMENSION_MISMATCH", "NOT_FITTED", "INVALID_ALPHA"
	ErrorCodeKey = "error.code"

	// ErrorTypeKey categorizes the type of error encountered.
	// Examples: "ValidationError", "NotFittedError"
	ErrorTypeKey = "error.type"

	// StacktraceKey contains stack trace information for debugging.
	// Automatically populated by the error logging functions.
	StacktraceKey = "error.stacktrace"
)

// Standard attribute value constants for common operations.
// Using these constants ensures consistency across the codebase.
const (
	// Standard operations
	OperationFit         = "fit"
	OperationPredict     = "predict"
	OperationPredictSets = "predict_sets"
	OperationScore       = "score"

	// Standard phases
	PhaseCalibration = "calibration"
	PhaseInference   = "inference"
	PhaseEvaluation  = "evaluation"

	// Standard error codes
	ErrorNotFitted            = "NOT_FITTED"
	ErrorDimensionMismatch    = "DIMENSION_MISMATCH"
	ErrorEmptyData            = "EMPTY_DATA"
	ErrorInvalidAlpha         = "INVALID_ALPHA"
	ErrorNotEnoughCalibration = "NOT_ENOUGH_CALIBRATION"
)
