package conformal

import (
	"math"
)

// conformalQuantile returns the split-conformal quantile threshold for a
// miscoverage level alpha over sorted (ascending) calibration scores.
//
// The threshold is the ceil((n+1)*(1-alpha))-th smallest score, the
// standard finite-sample correction that guarantees marginal coverage of
// at least 1-alpha under exchangeability. When the rank exceeds n, which
// happens for alpha < 1/(n+1), no finite score is conservative enough and
// the threshold is +Inf so every class is included.
//
// The same convention is applied for every alpha, so thresholds are
// non-increasing as alpha increases and prediction sets are nested.
func conformalQuantile(sortedScores []float64, alpha float64) float64 {
	n := len(sortedScores)
	rank := int(math.Ceil(float64(n+1) * (1 - alpha)))
	if rank > n {
		return math.Inf(1)
	}
	if rank < 1 {
		rank = 1
	}
	return sortedScores[rank-1]
}
