// Package datasets provides small synthetic data generators for
// exercising classifiers and conformal calibration.
package datasets

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/conformal/pkg/errors"
)

// Blob describes one Gaussian component of a mixture: a center and a
// per-axis variance (axis-aligned covariance). Center and Variance must
// have the same length.
type Blob struct {
	Center   []float64
	Variance []float64
}

// MakeBlobs samples samplesPerClass points from each blob and labels
// them with the blob index. The returned X is (len(blobs)*samplesPerClass
// x dim) and y is a column vector of class labels. Sampling is
// deterministic for a given seed.
func MakeBlobs(blobs []Blob, samplesPerClass int, seed uint64) (*mat.Dense, *mat.Dense, error) {
	if len(blobs) == 0 {
		return nil, nil, errors.NewValidationError("blobs", "must not be empty", len(blobs))
	}
	if samplesPerClass <= 0 {
		return nil, nil, errors.NewValidationError("samplesPerClass", "must be positive", samplesPerClass)
	}
	dim := len(blobs[0].Center)
	if dim == 0 {
		return nil, nil, errors.NewValidationError("blobs", "center must not be empty", dim)
	}
	for k, b := range blobs {
		if len(b.Center) != dim || len(b.Variance) != dim {
			return nil, nil, errors.NewValidationError("blobs",
				"center and variance dimensions must agree across blobs", k)
		}
		for j, v := range b.Variance {
			if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, nil, errors.NewValidationError("blobs",
					"variance must be positive and finite", b.Variance[j])
			}
		}
	}

	src := rand.NewPCG(seed, seed)
	n := len(blobs) * samplesPerClass
	X := mat.NewDense(n, dim, nil)
	y := mat.NewDense(n, 1, nil)

	row := 0
	for k, b := range blobs {
		dists := make([]distuv.Normal, dim)
		for j := 0; j < dim; j++ {
			dists[j] = distuv.Normal{Mu: b.Center[j], Sigma: math.Sqrt(b.Variance[j]), Src: src}
		}
		for i := 0; i < samplesPerClass; i++ {
			for j := 0; j < dim; j++ {
				X.Set(row, j, dists[j].Rand())
			}
			y.Set(row, 0, float64(k))
			row++
		}
	}
	return X, y, nil
}

// MakeGrid builds a dense 2-D evaluation grid: every point (x, y) with
// x in [xMin, xMax) and y in [yMin, yMax) at the given step, one point
// per row in row-major order (y varies fastest).
func MakeGrid(xMin, xMax, yMin, yMax, step float64) (*mat.Dense, error) {
	if step <= 0 || math.IsNaN(step) {
		return nil, errors.NewValidationError("step", "must be positive", step)
	}
	if xMax <= xMin || yMax <= yMin {
		return nil, errors.NewValidationError("bounds", "max must exceed min", nil)
	}

	nx := int(math.Ceil((xMax - xMin) / step))
	ny := int(math.Ceil((yMax - yMin) / step))
	grid := mat.NewDense(nx*ny, 2, nil)
	row := 0
	for i := 0; i < nx; i++ {
		x := xMin + float64(i)*step
		for j := 0; j < ny; j++ {
			grid.Set(row, 0, x)
			grid.Set(row, 1, yMin+float64(j)*step)
			row++
		}
	}
	return grid, nil
}
