package metrics

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/conformal/conformal"
	"github.com/YuminosukeSato/conformal/pkg/errors"
)

// EmpiricalCoverage returns the fraction of samples whose true label is
// contained in the prediction set at the alphaIdx-th alpha level.
// Under exchangeability this should be at least 1 - alpha.
func EmpiricalCoverage(sets *conformal.PredictionSets, yTrue mat.Matrix, alphaIdx int) (float64, error) {
	if err := validateSets(sets, alphaIdx); err != nil {
		return 0, err
	}

	rows, _ := yTrue.Dims()
	if rows != sets.NumSamples() {
		return 0, errors.NewDimensionError("EmpiricalCoverage", sets.NumSamples(), rows, 0)
	}

	covered := 0
	for i := 0; i < rows; i++ {
		raw := yTrue.At(i, 0)
		label := int(raw)
		if float64(label) != raw || label < 0 || label >= sets.NumClasses() {
			return 0, errors.NewValidationError("y_true",
				"labels must be integers in [0, n_classes)", raw)
		}
		if sets.Contains(i, label, alphaIdx) {
			covered++
		}
	}
	return float64(covered) / float64(rows), nil
}

// CoverageByAlpha computes the empirical coverage at every requested
// alpha level. A CoverageWarning is emitted through the errors package
// for each level whose coverage falls below the 1 - alpha target.
func CoverageByAlpha(sets *conformal.PredictionSets, yTrue mat.Matrix) ([]float64, error) {
	alphas := sets.Alphas()
	coverages := make([]float64, len(alphas))
	for a := range alphas {
		coverage, err := EmpiricalCoverage(sets, yTrue, a)
		if err != nil {
			return nil, err
		}
		coverages[a] = coverage

		target := 1 - alphas[a]
		if coverage < target {
			errors.Warn(errors.NewCoverageWarning(alphas[a], target, coverage))
		}
	}
	return coverages, nil
}

// MeanSetSize returns the average number of classes per prediction set at
// the alphaIdx-th alpha level.
func MeanSetSize(sets *conformal.PredictionSets, alphaIdx int) (float64, error) {
	if err := validateSets(sets, alphaIdx); err != nil {
		return 0, err
	}

	total := 0
	for i := 0; i < sets.NumSamples(); i++ {
		total += sets.Size(i, alphaIdx)
	}
	return float64(total) / float64(sets.NumSamples()), nil
}

// EmptySetRate returns the fraction of samples with an empty prediction
// set at the alphaIdx-th alpha level. Empty sets appear where the
// classifier is uncertain at the border between classes and the
// miscoverage budget is tight.
func EmptySetRate(sets *conformal.PredictionSets, alphaIdx int) (float64, error) {
	if err := validateSets(sets, alphaIdx); err != nil {
		return 0, err
	}

	empty := 0
	for i := 0; i < sets.NumSamples(); i++ {
		if sets.Size(i, alphaIdx) == 0 {
			empty++
		}
	}
	return float64(empty) / float64(sets.NumSamples()), nil
}

func validateSets(sets *conformal.PredictionSets, alphaIdx int) error {
	if sets == nil || sets.NumSamples() == 0 {
		return errors.NewValueError("metrics", "prediction sets are empty")
	}
	if alphaIdx < 0 || alphaIdx >= len(sets.Alphas()) {
		return errors.NewValidationError("alpha_idx", "out of range", alphaIdx)
	}
	return nil
}
