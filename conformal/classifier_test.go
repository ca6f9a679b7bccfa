package conformal

import (
	"math"
	"math/rand"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/conformal/pkg/errors"
)

// randomProba builds an n x k matrix whose rows are random probability
// distributions, using the provided source for reproducibility.
func randomProba(rng *rand.Rand, n, k int) *mat.Dense {
	data := make([]float64, n*k)
	for i := 0; i < n; i++ {
		sum := 0.0
		for j := 0; j < k; j++ {
			v := rng.Float64() + 1e-3
			data[i*k+j] = v
			sum += v
		}
		for j := 0; j < k; j++ {
			data[i*k+j] /= sum
		}
	}
	return mat.NewDense(n, k, data)
}

// sampleLabels draws one label per row from the row's distribution, so
// calibration and test data are exchangeable by construction.
func sampleLabels(rng *rand.Rand, proba *mat.Dense) *mat.Dense {
	n, k := proba.Dims()
	labels := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		u := rng.Float64()
		cum := 0.0
		label := k - 1
		for j := 0; j < k; j++ {
			cum += proba.At(i, j)
			if u < cum {
				label = j
				break
			}
		}
		labels.Set(i, 0, float64(label))
	}
	return labels
}

func TestPredictSetsBeforeFit(t *testing.T) {
	clf := NewSplitConformalClassifier()
	proba := mat.NewDense(1, 2, []float64{0.5, 0.5})

	_, err := clf.PredictSets(proba, []float64{0.1})
	if err == nil {
		t.Fatal("PredictSets before Fit should fail")
	}

	var notFitted *errors.NotFittedError
	if !errors.As(err, &notFitted) {
		t.Errorf("expected NotFittedError, got %v", err)
	}
}

func TestFitEmptyCalibration(t *testing.T) {
	clf := NewSplitConformalClassifier()
	proba := mat.NewDense(0, 2, nil)
	labels := mat.NewDense(0, 1, nil)

	err := clf.Fit(proba, labels)
	if err == nil {
		t.Fatal("Fit with zero calibration samples should fail")
	}

	var calErr *errors.NotEnoughCalibrationError
	if !errors.As(err, &calErr) {
		t.Errorf("expected NotEnoughCalibrationError, got %v", err)
	}
}

func TestFitLabelValidation(t *testing.T) {
	tests := []struct {
		name   string
		labels []float64
	}{
		{name: "non-integer label", labels: []float64{0.5, 1}},
		{name: "negative label", labels: []float64{-1, 1}},
		{name: "label out of range", labels: []float64{0, 2}},
	}

	proba := mat.NewDense(2, 2, []float64{
		0.9, 0.1,
		0.2, 0.8,
	})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clf := NewSplitConformalClassifier()
			err := clf.Fit(proba, mat.NewDense(2, 1, tt.labels))
			if err == nil {
				t.Fatal("Fit should reject invalid labels")
			}
			var valErr *errors.ValidationError
			if !errors.As(err, &valErr) {
				t.Errorf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestFitLabelRowMismatch(t *testing.T) {
	clf := NewSplitConformalClassifier()
	proba := mat.NewDense(3, 2, []float64{
		0.9, 0.1,
		0.2, 0.8,
		0.5, 0.5,
	})
	labels := mat.NewDense(2, 1, []float64{0, 1})

	err := clf.Fit(proba, labels)
	if err == nil {
		t.Fatal("Fit should reject mismatched label rows")
	}
	var dimErr *errors.DimensionError
	if !errors.As(err, &dimErr) {
		t.Errorf("expected DimensionError, got %v", err)
	}
	if dimErr.Axis != 0 {
		t.Errorf("Axis = %d, want 0", dimErr.Axis)
	}
}

func TestFitRejectsInvalidProbabilities(t *testing.T) {
	tests := []struct {
		name string
		rows []float64
	}{
		{name: "row does not sum to one", rows: []float64{0.5, 0.3}},
		{name: "negative entry", rows: []float64{-0.2, 1.2}},
		{name: "NaN entry", rows: []float64{math.NaN(), 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clf := NewSplitConformalClassifier()
			err := clf.Fit(mat.NewDense(1, 2, tt.rows), mat.NewDense(1, 1, []float64{0}))
			if err == nil {
				t.Fatal("Fit should reject invalid probability rows")
			}
		})
	}
}

func TestPredictSetsInvalidAlpha(t *testing.T) {
	clf := fittedClassifier(t)
	proba := mat.NewDense(1, 2, []float64{0.5, 0.5})

	tests := []struct {
		name   string
		alphas []float64
	}{
		{name: "zero", alphas: []float64{0}},
		{name: "one", alphas: []float64{1}},
		{name: "negative", alphas: []float64{-0.1}},
		{name: "above one", alphas: []float64{1.5}},
		{name: "NaN", alphas: []float64{math.NaN()}},
		{name: "duplicate", alphas: []float64{0.1, 0.1}},
		{name: "empty", alphas: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := clf.PredictSets(proba, tt.alphas)
			if err == nil {
				t.Fatal("PredictSets should reject invalid alphas")
			}
			var valErr *errors.ValidationError
			if !errors.As(err, &valErr) {
				t.Errorf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestPredictSetsDimensionMismatch(t *testing.T) {
	clf := fittedClassifier(t) // fitted with K=2
	proba := mat.NewDense(1, 3, []float64{0.5, 0.3, 0.2})

	_, err := clf.PredictSets(proba, []float64{0.1})
	if err == nil {
		t.Fatal("PredictSets should reject mismatched class counts")
	}
	var dimErr *errors.DimensionError
	if !errors.As(err, &dimErr) {
		t.Errorf("expected DimensionError, got %v", err)
	}
	if dimErr.Axis != 1 {
		t.Errorf("Axis = %d, want 1", dimErr.Axis)
	}
}

func TestPredictSetsNestedAcrossAlphas(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	calProba := randomProba(rng, 60, 3)
	calLabels := sampleLabels(rng, calProba)
	testProba := randomProba(rng, 40, 3)

	alphas := []float64{0.05, 0.1, 0.2, 0.3, 0.5, 0.8}

	for _, scorer := range []NonconformityScorer{NewLACScorer(), NewAPSScorer()} {
		clf := NewSplitConformalClassifier(WithScorer(scorer))
		if err := clf.Fit(calProba, calLabels); err != nil {
			t.Fatalf("Fit failed for scorer %s: %v", scorer.Name(), err)
		}

		sets, err := clf.PredictSets(testProba, alphas)
		if err != nil {
			t.Fatalf("PredictSets failed for scorer %s: %v", scorer.Name(), err)
		}

		for i := 0; i < sets.NumSamples(); i++ {
			for a := 1; a < len(alphas); a++ {
				// The set at the smaller alpha must contain the set at the larger
				for c := 0; c < sets.NumClasses(); c++ {
					if sets.Contains(i, c, a) && !sets.Contains(i, c, a-1) {
						t.Fatalf("scorer %s: sets not nested at sample %d class %d: alpha %v includes but alpha %v does not",
							scorer.Name(), i, c, alphas[a], alphas[a-1])
					}
				}
			}
		}
	}
}

func TestPredictSetsAlphaExtremes(t *testing.T) {
	// Calibration scores strictly inside (0, 1)
	calProba := mat.NewDense(4, 2, []float64{
		0.9, 0.1,
		0.8, 0.2,
		0.7, 0.3,
		0.6, 0.4,
	})
	calLabels := mat.NewDense(4, 1, []float64{0, 0, 0, 0})

	clf := NewSplitConformalClassifier()
	if err := clf.Fit(calProba, calLabels); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	testProba := mat.NewDense(1, 2, []float64{0.55, 0.45})

	// alpha below 1/(n+1) = 0.2: threshold is +Inf, full label set
	sets, err := clf.PredictSets(testProba, []float64{0.1})
	if err != nil {
		t.Fatalf("PredictSets failed: %v", err)
	}
	if sets.Size(0, 0) != 2 {
		t.Errorf("tiny alpha should include every class, got set %v", sets.Set(0, 0))
	}

	// alpha close to 1: threshold is the smallest score 0.1, and both
	// candidate scores (0.45, 0.55) exceed it, so the set is empty
	sets, err = clf.PredictSets(testProba, []float64{0.99})
	if err != nil {
		t.Fatalf("PredictSets failed: %v", err)
	}
	if sets.Size(0, 0) != 0 {
		t.Errorf("alpha near 1 should empty the set, got %v", sets.Set(0, 0))
	}
}

func TestPredictSetsPerfectCalibration(t *testing.T) {
	// Classifier perfectly confident and correct on calibration data:
	// every nonconformity score is exactly 0.
	calProba := mat.NewDense(4, 2, []float64{
		1, 0,
		1, 0,
		0, 1,
		0, 1,
	})
	calLabels := mat.NewDense(4, 1, []float64{0, 0, 1, 1})

	clf := NewSplitConformalClassifier()
	if err := clf.Fit(calProba, calLabels); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	sets, err := clf.PredictSets(mat.NewDense(2, 2, []float64{
		1, 0,
		0.6, 0.4,
	}), []float64{0.5})
	if err != nil {
		t.Fatalf("PredictSets failed: %v", err)
	}

	if q := sets.Thresholds()[0]; q != 0 {
		t.Errorf("threshold = %v, want 0", q)
	}
	// Only classes with probability exactly 1 reach score 0
	if got := sets.Set(0, 0); len(got) != 1 || got[0] != 0 {
		t.Errorf("confident sample should yield {0}, got %v", got)
	}
	if got := sets.Set(1, 0); len(got) != 0 {
		t.Errorf("uncertain sample should yield the empty set, got %v", got)
	}
}

func TestPredictSetsHandComputedThreshold(t *testing.T) {
	// Calibration scores 0.1, 0.2, 0.3, 0.9; alpha = 0.25 gives rank
	// ceil(5 * 0.75) = 4, so the threshold is 0.9.
	calProba := mat.NewDense(4, 2, []float64{
		0.9, 0.1,
		0.8, 0.2,
		0.7, 0.3,
		0.1, 0.9,
	})
	calLabels := mat.NewDense(4, 1, []float64{0, 0, 0, 0})

	clf := NewSplitConformalClassifier()
	if err := clf.Fit(calProba, calLabels); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	sets, err := clf.PredictSets(mat.NewDense(1, 2, []float64{0.5, 0.5}), []float64{0.25})
	if err != nil {
		t.Fatalf("PredictSets failed: %v", err)
	}

	if q := sets.Thresholds()[0]; math.Abs(q-0.9) > 1e-12 {
		t.Errorf("threshold = %v, want 0.9", q)
	}
	// Both candidate scores are 0.5 <= 0.9
	if got := sets.Size(0, 0); got != 2 {
		t.Errorf("set size = %d, want 2", got)
	}
}

func TestPredictSetsUniformScores(t *testing.T) {
	// 100 calibration scores evenly spread over (0, 1). For alpha=0.1 the
	// threshold is the 91st smallest score.
	n := 100
	calData := make([]float64, n*2)
	labels := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		score := float64(i)/100 + 0.005
		calData[i*2] = 1 - score
		calData[i*2+1] = score
	}
	calProba := mat.NewDense(n, 2, calData)

	clf := NewSplitConformalClassifier()
	if err := clf.Fit(calProba, labels); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	sets, err := clf.PredictSets(mat.NewDense(1, 2, []float64{0.5, 0.5}), []float64{0.1})
	if err != nil {
		t.Fatalf("PredictSets failed: %v", err)
	}

	want := float64(90)/100 + 0.005
	if q := sets.Thresholds()[0]; math.Abs(q-want) > 1e-12 {
		t.Errorf("threshold = %v, want %v", q, want)
	}
}

func TestRefitReplacesCalibration(t *testing.T) {
	clf := NewSplitConformalClassifier()

	first := mat.NewDense(2, 2, []float64{
		0.9, 0.1,
		0.8, 0.2,
	})
	if err := clf.Fit(first, mat.NewDense(2, 1, []float64{0, 0})); err != nil {
		t.Fatalf("first Fit failed: %v", err)
	}
	if clf.CalibrationSize() != 2 {
		t.Fatalf("CalibrationSize = %d, want 2", clf.CalibrationSize())
	}

	second := mat.NewDense(3, 2, []float64{
		0.6, 0.4,
		0.5, 0.5,
		0.4, 0.6,
	})
	if err := clf.Fit(second, mat.NewDense(3, 1, []float64{0, 0, 1})); err != nil {
		t.Fatalf("refit failed: %v", err)
	}
	if clf.CalibrationSize() != 3 {
		t.Errorf("CalibrationSize after refit = %d, want 3", clf.CalibrationSize())
	}
}

func TestPointPredictions(t *testing.T) {
	clf := fittedClassifier(t)

	testProba := mat.NewDense(3, 2, []float64{
		0.9, 0.1,
		0.2, 0.8,
		0.5, 0.5,
	})

	sets, err := clf.PredictSets(testProba, []float64{0.1, 0.5})
	if err != nil {
		t.Fatalf("PredictSets failed: %v", err)
	}

	want := []int{0, 1, 0} // ties resolve to the lowest class index
	got := sets.PointPredictions()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("PointPredictions[%d] = %d, want %d", i, got[i], want[i])
		}
	}

	pred, err := clf.Predict(testProba)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	for i := range want {
		if int(pred.At(i, 0)) != want[i] {
			t.Errorf("Predict row %d = %v, want %d", i, pred.At(i, 0), want[i])
		}
	}
}

func TestPredictSetsLargeBatch(t *testing.T) {
	// Exercises the parallel path (row count above the threshold) and the
	// marginal coverage property on exchangeable data.
	rng := rand.New(rand.NewSource(42))
	calProba := randomProba(rng, 200, 3)
	calLabels := sampleLabels(rng, calProba)
	testProba := randomProba(rng, 1000, 3)
	testLabels := sampleLabels(rng, testProba)

	const alpha = 0.2
	clf := NewSplitConformalClassifier()
	if err := clf.Fit(calProba, calLabels); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	sets, err := clf.PredictSets(testProba, []float64{alpha})
	if err != nil {
		t.Fatalf("PredictSets failed: %v", err)
	}

	covered := 0
	for i := 0; i < sets.NumSamples(); i++ {
		if sets.Contains(i, int(testLabels.At(i, 0)), 0) {
			covered++
		}
	}
	coverage := float64(covered) / float64(sets.NumSamples())

	// The guarantee is coverage >= 1-alpha in expectation; allow sampling
	// slack for this fixed seed.
	if coverage < 1-alpha-0.08 {
		t.Errorf("empirical coverage %v is far below target %v", coverage, 1-alpha)
	}
}

func TestFitClassifierPrefit(t *testing.T) {
	stub := &stubClassifier{
		proba: mat.NewDense(3, 2, []float64{
			0.9, 0.1,
			0.3, 0.7,
			0.6, 0.4,
		}),
	}
	y := mat.NewDense(3, 1, []float64{0, 1, 0})

	clf := NewSplitConformalClassifier()
	if err := clf.FitClassifier(stub, mat.NewDense(3, 2, nil), y); err != nil {
		t.Fatalf("FitClassifier failed: %v", err)
	}
	if !clf.IsFitted() {
		t.Error("classifier should be fitted after FitClassifier")
	}
	if clf.CalibrationSize() != 3 {
		t.Errorf("CalibrationSize = %d, want 3", clf.CalibrationSize())
	}
}

func TestFitClassifierRecoversPanic(t *testing.T) {
	clf := NewSplitConformalClassifier()
	err := clf.FitClassifier(&panickyClassifier{}, mat.NewDense(1, 2, nil), mat.NewDense(1, 1, nil))
	if err == nil {
		t.Fatal("a panicking estimator should surface as an error")
	}
	if clf.IsFitted() {
		t.Error("classifier must stay unfitted after estimator failure")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	clf := NewSplitConformalClassifier(WithScorer(NewAPSScorer()))
	calProba := mat.NewDense(4, 3, []float64{
		0.7, 0.2, 0.1,
		0.1, 0.8, 0.1,
		0.2, 0.3, 0.5,
		0.4, 0.4, 0.2,
	})
	calLabels := mat.NewDense(4, 1, []float64{0, 1, 2, 0})
	if err := clf.Fit(calProba, calLabels); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "calibration.gob")
	if err := clf.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	restored := NewSplitConformalClassifier()
	if err := restored.Load(path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !restored.IsFitted() {
		t.Fatal("restored classifier should be fitted")
	}
	if restored.GetParams()["scorer"] != "aps" {
		t.Errorf("restored scorer = %v, want aps", restored.GetParams()["scorer"])
	}

	testProba := mat.NewDense(2, 3, []float64{
		0.6, 0.3, 0.1,
		0.2, 0.2, 0.6,
	})
	alphas := []float64{0.2, 0.1}

	origSets, err := clf.PredictSets(testProba, alphas)
	if err != nil {
		t.Fatalf("PredictSets on original failed: %v", err)
	}
	restSets, err := restored.PredictSets(testProba, alphas)
	if err != nil {
		t.Fatalf("PredictSets on restored failed: %v", err)
	}

	for i := 0; i < origSets.NumSamples(); i++ {
		for c := 0; c < origSets.NumClasses(); c++ {
			for a := range alphas {
				if origSets.Contains(i, c, a) != restSets.Contains(i, c, a) {
					t.Fatalf("membership diverges after round trip at (%d, %d, %d)", i, c, a)
				}
			}
		}
	}
}

func TestSaveUnfitted(t *testing.T) {
	clf := NewSplitConformalClassifier()
	err := clf.Save(filepath.Join(t.TempDir(), "calibration.gob"))
	if err == nil {
		t.Fatal("Save before Fit should fail")
	}
	var notFitted *errors.NotFittedError
	if !errors.As(err, &notFitted) {
		t.Errorf("expected NotFittedError, got %v", err)
	}
}

func TestGetSetParams(t *testing.T) {
	clf := NewSplitConformalClassifier()
	if clf.GetParams()["scorer"] != "lac" {
		t.Errorf("default scorer = %v, want lac", clf.GetParams()["scorer"])
	}

	if err := clf.SetParams(map[string]interface{}{"scorer": "aps"}); err != nil {
		t.Fatalf("SetParams failed: %v", err)
	}
	if clf.GetParams()["scorer"] != "aps" {
		t.Errorf("scorer after SetParams = %v, want aps", clf.GetParams()["scorer"])
	}

	if err := clf.SetParams(map[string]interface{}{"scorer": "bogus"}); err == nil {
		t.Error("SetParams should reject unknown scoring rules")
	}
	if err := clf.SetParams(map[string]interface{}{"unknown": 1}); err == nil {
		t.Error("SetParams should reject unknown parameters")
	}
}

// fittedClassifier returns a classifier fitted on a small two-class
// calibration set.
func fittedClassifier(t *testing.T) *SplitConformalClassifier {
	t.Helper()
	clf := NewSplitConformalClassifier()
	calProba := mat.NewDense(4, 2, []float64{
		0.9, 0.1,
		0.8, 0.2,
		0.3, 0.7,
		0.2, 0.8,
	})
	calLabels := mat.NewDense(4, 1, []float64{0, 0, 1, 1})
	if err := clf.Fit(calProba, calLabels); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	return clf
}

type stubClassifier struct {
	proba *mat.Dense
}

func (s *stubClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	return s.proba, nil
}

type panickyClassifier struct{}

func (p *panickyClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	panic("estimator blew up")
}
