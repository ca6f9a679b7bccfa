package conformal

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/conformal/core/model"
	"github.com/YuminosukeSato/conformal/core/parallel"
	"github.com/YuminosukeSato/conformal/pkg/errors"
	"github.com/YuminosukeSato/conformal/pkg/log"
)

// probaSumTol is the tolerance when validating that probability rows sum to 1.
const probaSumTol = 1e-6

// parallelThreshold is the minimum number of test rows before PredictSets
// splits work across CPU cores.
const parallelThreshold = 256

// ProbabilisticClassifier is the capability a base estimator must provide
// to be wrapped: a deterministic mapping from feature rows to class
// probability rows. The full model.Classifier interface satisfies it.
type ProbabilisticClassifier interface {
	PredictProba(X mat.Matrix) (mat.Matrix, error)
}

// SplitConformalClassifier calibrates nonconformity score thresholds on a
// held-out calibration set and builds per-alpha prediction sets for new
// samples.
//
// The zero value is not usable; create instances with
// NewSplitConformalClassifier. Fit and PredictSets are safe to call from
// separate goroutines as long as Fit is not concurrent with reads on the
// same instance. Calling Fit again replaces the calibration state.
type SplitConformalClassifier struct {
	state  *model.StateManager
	scorer NonconformityScorer

	// Fitted state. Exported for gob encoding via Save/Load.
	CalScores []float64 // sorted ascending
	NClasses  int
}

// SplitConformalOption is a functional option for SplitConformalClassifier.
type SplitConformalOption func(*SplitConformalClassifier)

// WithScorer sets the nonconformity scoring rule. The default is the LAC
// score 1 - p(true label).
func WithScorer(scorer NonconformityScorer) SplitConformalOption {
	return func(c *SplitConformalClassifier) {
		c.scorer = scorer
	}
}

// NewSplitConformalClassifier creates a new SplitConformalClassifier.
func NewSplitConformalClassifier(opts ...SplitConformalOption) *SplitConformalClassifier {
	c := &SplitConformalClassifier{
		state:  model.NewStateManager(),
		scorer: NewLACScorer(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fit calibrates the classifier from probability estimates and true
// labels on a held-out calibration set.
//
// calProba is N x K with one probability distribution per row; calLabels
// is N x 1 with integer class indices in [0, K). Fit stores the sorted
// nonconformity scores of the calibration samples; the raw probabilities
// and labels are not retained. Refitting replaces the previous state.
func (c *SplitConformalClassifier) Fit(calProba, calLabels mat.Matrix) error {
	start := time.Now()

	n, k := calProba.Dims()
	if n == 0 {
		return errors.NewNotEnoughCalibrationError("Fit", 1, 0)
	}
	labelRows, labelCols := calLabels.Dims()
	if labelRows != n {
		return errors.NewDimensionError("SplitConformalClassifier.Fit", n, labelRows, 0)
	}
	if labelCols < 1 {
		return errors.NewDimensionError("SplitConformalClassifier.Fit", 1, labelCols, 1)
	}
	if err := validateProbaMatrix("SplitConformalClassifier.Fit", calProba, n, k); err != nil {
		return err
	}

	scores := make([]float64, n)
	row := make([]float64, k)
	for i := 0; i < n; i++ {
		mat.Row(row, i, calProba)

		raw := calLabels.At(i, 0)
		label := int(raw)
		if float64(label) != raw || label < 0 || label >= k {
			return errors.NewValidationError("calibration_labels",
				"labels must be integers in [0, n_classes)", raw)
		}

		scores[i] = c.scorer.Score(row, label)
	}
	sort.Float64s(scores)

	c.CalScores = scores
	c.NClasses = k
	c.state.SetDimensions(k, n)
	c.state.SetFitted()

	logger := log.GetLoggerWithName("conformal.classifier")
	logger.Info("Calibration completed",
		log.OperationKey, log.OperationFit,
		log.CalibrationSizeKey, n,
		log.ClassesKey, k,
		log.ScorerKey, c.scorer.Name(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// FitClassifier calibrates against a prefit probabilistic classifier: it
// obtains PredictProba(X) from the estimator and delegates to Fit. This
// mirrors the prefit calibration mode of MAPIE, where the base model was
// trained elsewhere and only the conformal layer is fitted here.
func (c *SplitConformalClassifier) FitClassifier(estimator ProbabilisticClassifier, X, y mat.Matrix) error {
	var proba mat.Matrix
	err := errors.SafeExecute("estimator.PredictProba", func() error {
		var predErr error
		proba, predErr = estimator.PredictProba(X)
		return predErr
	})
	if err != nil {
		return errors.Wrap(err, "conformal: FitClassifier: base estimator failed")
	}
	return c.Fit(proba, y)
}

// PredictSets builds prediction sets for each test sample at each of the
// requested miscoverage levels.
//
// testProba is M x K probability estimates; K must match the class count
// seen at fit time. alphas must be distinct values in the open interval
// (0, 1). For alpha1 < alpha2 the returned set at alpha1 always contains
// the set at alpha2 (nested sets). The receiver is not mutated.
func (c *SplitConformalClassifier) PredictSets(testProba mat.Matrix, alphas []float64) (*PredictionSets, error) {
	if !c.state.IsFitted() {
		return nil, errors.NewNotFittedError("SplitConformalClassifier", "PredictSets")
	}
	if err := validateAlphas(alphas); err != nil {
		return nil, err
	}

	m, k := testProba.Dims()
	if k != c.NClasses {
		return nil, errors.NewDimensionError("SplitConformalClassifier.PredictSets", c.NClasses, k, 1)
	}
	if err := validateProbaMatrix("SplitConformalClassifier.PredictSets", testProba, m, k); err != nil {
		return nil, err
	}

	nAlphas := len(alphas)
	thresholds := make([]float64, nAlphas)
	for a, alpha := range alphas {
		thresholds[a] = conformalQuantile(c.CalScores, alpha)
	}

	ps := &PredictionSets{
		nSamples:   m,
		nClasses:   k,
		alphas:     append([]float64(nil), alphas...),
		thresholds: thresholds,
		membership: make([]bool, m*k*nAlphas),
		pointPreds: make([]int, m),
	}

	// Workers own disjoint row ranges of the output buffers.
	parallel.ParallelizeWithThreshold(m, parallelThreshold, func(startRow, endRow int) {
		row := make([]float64, k)
		candidates := make([]float64, k)
		for i := startRow; i < endRow; i++ {
			mat.Row(row, i, testProba)
			candidates = c.scorer.CandidateScores(row, candidates)

			argmax := 0
			for cIdx := 1; cIdx < k; cIdx++ {
				if row[cIdx] > row[argmax] {
					argmax = cIdx
				}
			}
			ps.pointPreds[i] = argmax

			base := i * k * nAlphas
			for cIdx := 0; cIdx < k; cIdx++ {
				for a := 0; a < nAlphas; a++ {
					ps.membership[base+cIdx*nAlphas+a] = candidates[cIdx] <= thresholds[a]
				}
			}
		}
	})

	return ps, nil
}

// Predict returns the argmax-probability class for each test sample as an
// M x 1 matrix. The result does not depend on alpha, matching the point
// prediction embedded in PredictSets output.
func (c *SplitConformalClassifier) Predict(testProba mat.Matrix) (mat.Matrix, error) {
	if !c.state.IsFitted() {
		return nil, errors.NewNotFittedError("SplitConformalClassifier", "Predict")
	}

	m, k := testProba.Dims()
	if k != c.NClasses {
		return nil, errors.NewDimensionError("SplitConformalClassifier.Predict", c.NClasses, k, 1)
	}

	out := mat.NewDense(m, 1, nil)
	row := make([]float64, k)
	for i := 0; i < m; i++ {
		mat.Row(row, i, testProba)
		argmax := 0
		for cIdx := 1; cIdx < k; cIdx++ {
			if row[cIdx] > row[argmax] {
				argmax = cIdx
			}
		}
		out.Set(i, 0, float64(argmax))
	}
	return out, nil
}

// IsFitted returns whether Fit has completed on this instance.
func (c *SplitConformalClassifier) IsFitted() bool {
	return c.state.IsFitted()
}

// CalibrationSize returns the number of calibration samples backing the
// fitted thresholds, or 0 before Fit.
func (c *SplitConformalClassifier) CalibrationSize() int {
	return len(c.CalScores)
}

// GetParams returns the classifier's hyperparameters.
func (c *SplitConformalClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"scorer": c.scorer.Name(),
	}
}

// SetParams sets the classifier's hyperparameters.
func (c *SplitConformalClassifier) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		switch key {
		case "scorer":
			name, ok := value.(string)
			if !ok {
				return errors.NewValidationError("scorer", "must be a string", value)
			}
			scorer := scorerByName(name)
			if scorer == nil {
				return errors.NewValidationError("scorer", "unknown scoring rule", name)
			}
			c.scorer = scorer
		default:
			return errors.NewValidationError(key, "unknown parameter", value)
		}
	}
	return nil
}

// calibrationSnapshot is the minimal persistent state of a fitted
// classifier: the sorted calibration scores, the class count, and the
// name of the scoring rule.
type calibrationSnapshot struct {
	Scores   []float64
	NClasses int
	Scorer   string
}

// Save writes the fitted calibration state to a file.
func (c *SplitConformalClassifier) Save(path string) error {
	if !c.state.IsFitted() {
		return errors.NewNotFittedError("SplitConformalClassifier", "Save")
	}
	snapshot := calibrationSnapshot{
		Scores:   c.CalScores,
		NClasses: c.NClasses,
		Scorer:   c.scorer.Name(),
	}
	return model.SaveModel(&snapshot, path)
}

// Load restores the calibration state from a file written by Save. The
// instance transitions to the fitted state.
func (c *SplitConformalClassifier) Load(path string) error {
	var snapshot calibrationSnapshot
	if err := model.LoadModel(&snapshot, path); err != nil {
		return err
	}
	scorer := scorerByName(snapshot.Scorer)
	if scorer == nil {
		return errors.NewValidationError("scorer", "unknown scoring rule in snapshot", snapshot.Scorer)
	}
	c.CalScores = snapshot.Scores
	c.NClasses = snapshot.NClasses
	c.scorer = scorer
	c.state.SetDimensions(snapshot.NClasses, len(snapshot.Scores))
	c.state.SetFitted()
	return nil
}

// validateAlphas checks that every alpha lies in the open interval (0, 1)
// and that no alpha repeats.
func validateAlphas(alphas []float64) error {
	if len(alphas) == 0 {
		return errors.NewValidationError("alphas", "at least one alpha level is required", alphas)
	}
	seen := make(map[float64]struct{}, len(alphas))
	for _, alpha := range alphas {
		if math.IsNaN(alpha) || alpha <= 0 || alpha >= 1 {
			return errors.NewValidationError("alpha", "must be in the open interval (0, 1)", alpha)
		}
		if _, dup := seen[alpha]; dup {
			return errors.NewValidationError("alpha", "levels must be distinct", alpha)
		}
		seen[alpha] = struct{}{}
	}
	return nil
}

// validateProbaMatrix checks that every row of P is a probability
// distribution: finite entries in [0, 1] summing to 1 within tolerance.
func validateProbaMatrix(op string, P mat.Matrix, rows, cols int) error {
	if cols == 0 {
		return errors.NewValueError(op, "probability matrix has no columns")
	}
	if err := errors.CheckMatrix(op, P, rows, cols); err != nil {
		return err
	}
	for i := 0; i < rows; i++ {
		sum := 0.0
		for j := 0; j < cols; j++ {
			p := P.At(i, j)
			if p < -probaSumTol || p > 1+probaSumTol {
				return errors.NewValidationError("probabilities",
					"entries must lie in [0, 1]", p)
			}
			sum += p
		}
		if math.Abs(sum-1) > probaSumTol {
			return errors.NewValidationError("probabilities",
				"each row must sum to 1", sum)
		}
	}
	return nil
}
