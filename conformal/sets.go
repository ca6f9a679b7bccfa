package conformal

import (
	"gonum.org/v1/gonum/mat"
)

// PredictionSets holds the per-alpha prediction sets for a batch of test
// samples: for each sample, each class, and each requested alpha, whether
// the class is included in the set. It also carries the alpha-independent
// point predictions (argmax probability) and the calibrated thresholds
// that produced the sets.
//
// The structure is read-only after construction.
type PredictionSets struct {
	nSamples   int
	nClasses   int
	alphas     []float64
	thresholds []float64
	membership []bool // indexed [(i*nClasses + c)*len(alphas) + a]
	pointPreds []int
}

// NumSamples returns the number of test samples M.
func (ps *PredictionSets) NumSamples() int { return ps.nSamples }

// NumClasses returns the number of classes K.
func (ps *PredictionSets) NumClasses() int { return ps.nClasses }

// Alphas returns the requested miscoverage levels, in input order.
func (ps *PredictionSets) Alphas() []float64 {
	out := make([]float64, len(ps.alphas))
	copy(out, ps.alphas)
	return out
}

// Thresholds returns the calibrated quantile threshold for each alpha,
// aligned with Alphas.
func (ps *PredictionSets) Thresholds() []float64 {
	out := make([]float64, len(ps.thresholds))
	copy(out, ps.thresholds)
	return out
}

// Contains reports whether class c is included in the prediction set of
// sample i at the alphaIdx-th requested alpha level.
func (ps *PredictionSets) Contains(i, c, alphaIdx int) bool {
	return ps.membership[(i*ps.nClasses+c)*len(ps.alphas)+alphaIdx]
}

// Set returns the classes included in the prediction set of sample i at
// the alphaIdx-th alpha level, in ascending class order. The set may be
// empty when no class is conforming enough.
func (ps *PredictionSets) Set(i, alphaIdx int) []int {
	var classes []int
	for c := 0; c < ps.nClasses; c++ {
		if ps.Contains(i, c, alphaIdx) {
			classes = append(classes, c)
		}
	}
	return classes
}

// Size returns the number of classes in the prediction set of sample i at
// the alphaIdx-th alpha level.
func (ps *PredictionSets) Size(i, alphaIdx int) int {
	count := 0
	for c := 0; c < ps.nClasses; c++ {
		if ps.Contains(i, c, alphaIdx) {
			count++
		}
	}
	return count
}

// PointPredictions returns the argmax-probability class for each sample.
// Point predictions do not depend on alpha.
func (ps *PredictionSets) PointPredictions() []int {
	out := make([]int, len(ps.pointPreds))
	copy(out, ps.pointPreds)
	return out
}

// PointPredictionMatrix returns the point predictions as an M x 1 matrix,
// matching the output convention of Predict on classifiers.
func (ps *PredictionSets) PointPredictionMatrix() mat.Matrix {
	out := mat.NewDense(ps.nSamples, 1, nil)
	for i, c := range ps.pointPreds {
		out.Set(i, 0, float64(c))
	}
	return out
}
