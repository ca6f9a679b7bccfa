// Package naive_bayes implements naive Bayes classifiers.
package naive_bayes

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/conformal/core/model"
	"github.com/YuminosukeSato/conformal/metrics"
	"github.com/YuminosukeSato/conformal/pkg/errors"
	"github.com/YuminosukeSato/conformal/pkg/log"
)

// GaussianNB implements Gaussian Naive Bayes classification.
// Compatible with scikit-learn's GaussianNB: each feature is modeled by a
// per-class normal distribution, and the portion of the largest feature
// variance is added to all variances for numerical stability.
type GaussianNB struct {
	state *model.StateManager

	// Hyperparameters
	priors       []float64 // Fixed class priors; nil means estimate from data
	varSmoothing float64   // Portion of the largest variance added to all variances

	// Model parameters
	classes_    []int       // Unique class labels, ascending
	classPrior_ []float64   // Probability of each class
	theta_      [][]float64 // Per-class feature means (n_classes x n_features)
	var_        [][]float64 // Per-class feature variances (n_classes x n_features)
	nFeatures_  int
}

// GaussianNBOption is a functional option for GaussianNB.
type GaussianNBOption func(*GaussianNB)

// WithGNBPriors fixes the class prior probabilities instead of estimating
// them from the training data. Must sum to 1.
func WithGNBPriors(priors []float64) GaussianNBOption {
	return func(nb *GaussianNB) {
		nb.priors = priors
	}
}

// WithGNBVarSmoothing sets the variance smoothing portion.
func WithGNBVarSmoothing(smoothing float64) GaussianNBOption {
	return func(nb *GaussianNB) {
		nb.varSmoothing = smoothing
	}
}

// NewGaussianNB creates a new GaussianNB classifier.
func NewGaussianNB(opts ...GaussianNBOption) *GaussianNB {
	nb := &GaussianNB{
		state:        model.NewStateManager(),
		varSmoothing: 1e-9,
	}
	for _, opt := range opts {
		opt(nb)
	}
	return nb
}

// Fit estimates per-class feature means, variances, and class priors.
func (nb *GaussianNB) Fit(X, y mat.Matrix) error {
	start := time.Now()

	nSamples, nFeatures := X.Dims()
	yRows, yCols := y.Dims()

	if nSamples == 0 || nFeatures == 0 {
		return errors.NewModelError("GaussianNB.Fit", "empty data", errors.ErrEmptyData)
	}
	if yRows != nSamples {
		return errors.NewDimensionError("GaussianNB.Fit", nSamples, yRows, 0)
	}
	if yCols < 1 {
		return errors.NewDimensionError("GaussianNB.Fit", 1, yCols, 1)
	}
	if err := errors.CheckMatrix("GaussianNB.Fit", X, nSamples, nFeatures); err != nil {
		return err
	}

	labels := make([]int, nSamples)
	classSet := make(map[int]struct{})
	for i := 0; i < nSamples; i++ {
		raw := y.At(i, 0)
		label := int(raw)
		if float64(label) != raw {
			return errors.NewValidationError("y", "labels must be integers", raw)
		}
		labels[i] = label
		classSet[label] = struct{}{}
	}

	classes := make([]int, 0, len(classSet))
	for c := range classSet {
		classes = append(classes, c)
	}
	sort.Ints(classes)

	classIndex := make(map[int]int, len(classes))
	for idx, c := range classes {
		classIndex[c] = idx
	}

	if nb.priors != nil {
		if len(nb.priors) != len(classes) {
			return errors.NewDimensionError("GaussianNB.Fit", len(classes), len(nb.priors), 1)
		}
		sum := 0.0
		for _, p := range nb.priors {
			sum += p
		}
		if math.Abs(sum-1) > 1e-6 {
			return errors.NewValidationError("priors", "must sum to 1", sum)
		}
	}

	nClasses := len(classes)
	counts := make([]int, nClasses)
	theta := make([][]float64, nClasses)
	variance := make([][]float64, nClasses)
	for c := 0; c < nClasses; c++ {
		theta[c] = make([]float64, nFeatures)
		variance[c] = make([]float64, nFeatures)
	}

	// Per-class means
	for i := 0; i < nSamples; i++ {
		c := classIndex[labels[i]]
		counts[c]++
		for j := 0; j < nFeatures; j++ {
			theta[c][j] += X.At(i, j)
		}
	}
	for c := 0; c < nClasses; c++ {
		for j := 0; j < nFeatures; j++ {
			theta[c][j] /= float64(counts[c])
		}
	}

	// Per-class variances (maximum likelihood, biased)
	for i := 0; i < nSamples; i++ {
		c := classIndex[labels[i]]
		for j := 0; j < nFeatures; j++ {
			diff := X.At(i, j) - theta[c][j]
			variance[c][j] += diff * diff
		}
	}
	for c := 0; c < nClasses; c++ {
		for j := 0; j < nFeatures; j++ {
			variance[c][j] /= float64(counts[c])
		}
	}

	// Variance smoothing keeps likelihoods finite for constant features
	maxVar := 0.0
	for c := 0; c < nClasses; c++ {
		for j := 0; j < nFeatures; j++ {
			if variance[c][j] > maxVar {
				maxVar = variance[c][j]
			}
		}
	}
	epsilon := nb.varSmoothing * maxVar
	if epsilon == 0 {
		epsilon = nb.varSmoothing
	}
	for c := 0; c < nClasses; c++ {
		for j := 0; j < nFeatures; j++ {
			variance[c][j] += epsilon
		}
	}

	classPrior := make([]float64, nClasses)
	if nb.priors != nil {
		copy(classPrior, nb.priors)
	} else {
		for c := 0; c < nClasses; c++ {
			classPrior[c] = float64(counts[c]) / float64(nSamples)
		}
	}

	nb.classes_ = classes
	nb.classPrior_ = classPrior
	nb.theta_ = theta
	nb.var_ = variance
	nb.nFeatures_ = nFeatures
	nb.state.SetDimensions(nClasses, nSamples)
	nb.state.SetFitted()

	logger := log.GetLoggerWithName("naive_bayes.gaussian")
	logger.Debug("Training completed",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
		log.ClassesKey, nClasses,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// jointLogLikelihood computes log P(c) + sum_j log N(x_j; theta, var) for
// every class, writing the result into dst.
func (nb *GaussianNB) jointLogLikelihood(x []float64, dst []float64) {
	for c := range nb.classes_ {
		ll := errors.StabilizeLog(nb.classPrior_[c])
		for j := 0; j < nb.nFeatures_; j++ {
			v := nb.var_[c][j]
			diff := x[j] - nb.theta_[c][j]
			ll += -0.5*math.Log(2*math.Pi*v) - diff*diff/(2*v)
		}
		dst[c] = ll
	}
}

// Predict returns the most probable class for each sample as an n x 1 matrix.
func (nb *GaussianNB) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !nb.state.IsFitted() {
		return nil, errors.NewNotFittedError("GaussianNB", "Predict")
	}

	nSamples, nFeatures := X.Dims()
	if nFeatures != nb.nFeatures_ {
		return nil, errors.NewDimensionError("GaussianNB.Predict", nb.nFeatures_, nFeatures, 1)
	}

	predictions := mat.NewDense(nSamples, 1, nil)
	row := make([]float64, nFeatures)
	ll := make([]float64, len(nb.classes_))
	for i := 0; i < nSamples; i++ {
		mat.Row(row, i, X)
		nb.jointLogLikelihood(row, ll)

		best := 0
		for c := 1; c < len(ll); c++ {
			if ll[c] > ll[best] {
				best = c
			}
		}
		predictions.Set(i, 0, float64(nb.classes_[best]))
	}
	return predictions, nil
}

// PredictProba returns probability estimates for each class. Rows are
// normalized with log-sum-exp so they sum to 1 even for extreme
// likelihood magnitudes.
func (nb *GaussianNB) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	logProba, err := nb.PredictLogProba(X)
	if err != nil {
		return nil, err
	}

	nSamples, nClasses := logProba.Dims()
	proba := mat.NewDense(nSamples, nClasses, nil)
	for i := 0; i < nSamples; i++ {
		for c := 0; c < nClasses; c++ {
			proba.Set(i, c, math.Exp(logProba.At(i, c)))
		}
	}
	return proba, nil
}

// PredictLogProba returns log probability estimates for each class.
func (nb *GaussianNB) PredictLogProba(X mat.Matrix) (mat.Matrix, error) {
	if !nb.state.IsFitted() {
		return nil, errors.NewNotFittedError("GaussianNB", "PredictLogProba")
	}

	nSamples, nFeatures := X.Dims()
	if nFeatures != nb.nFeatures_ {
		return nil, errors.NewDimensionError("GaussianNB.PredictLogProba", nb.nFeatures_, nFeatures, 1)
	}

	out := mat.NewDense(nSamples, len(nb.classes_), nil)
	row := make([]float64, nFeatures)
	ll := make([]float64, len(nb.classes_))
	for i := 0; i < nSamples; i++ {
		mat.Row(row, i, X)
		nb.jointLogLikelihood(row, ll)

		norm := errors.LogSumExp(ll)
		for c := range ll {
			out.Set(i, c, ll[c]-norm)
		}
	}
	return out, nil
}

// Score returns the mean accuracy on the given test data and labels.
func (nb *GaussianNB) Score(X, y mat.Matrix) (float64, error) {
	predictions, err := nb.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.Accuracy(y, predictions)
}

// Classes returns the unique class labels seen during fitting, ascending.
func (nb *GaussianNB) Classes() []int {
	out := make([]int, len(nb.classes_))
	copy(out, nb.classes_)
	return out
}

// IsFitted returns whether the model has been fitted.
func (nb *GaussianNB) IsFitted() bool {
	return nb.state.IsFitted()
}

// GetParams returns the model's hyperparameters.
func (nb *GaussianNB) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"priors":        nb.priors,
		"var_smoothing": nb.varSmoothing,
	}
}
