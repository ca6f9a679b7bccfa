package conformal

import (
	"sort"
)

// NonconformityScorer converts a class-probability vector into
// nonconformity scores. Lower score means more conforming.
//
// Score is used during calibration, where the true label is known.
// CandidateScores is used at prediction time and returns, for every
// class c, the score the sample would receive if c were its true label.
// Both views must agree: Score(p, y) == CandidateScores(p, nil)[y].
type NonconformityScorer interface {
	// Name identifies the scoring rule, e.g. "lac" or "aps".
	Name() string

	// Score returns the nonconformity score of a calibration sample
	// with probability vector proba and true label label.
	Score(proba []float64, label int) float64

	// CandidateScores fills dst with the per-class candidate scores for
	// a test sample. If dst is nil or too short a new slice is allocated.
	CandidateScores(proba []float64, dst []float64) []float64
}

// LACScorer implements the Least Ambiguous set-valued Classifier score
// from Sadinle et al. (2019): score = 1 - p(label). This is the default
// scoring rule; it produces the smallest prediction sets among rules with
// marginal coverage, at the cost of unequal per-class coverage.
type LACScorer struct{}

// NewLACScorer creates a new LACScorer.
func NewLACScorer() *LACScorer {
	return &LACScorer{}
}

// Name implements NonconformityScorer.
func (s *LACScorer) Name() string { return "lac" }

// Score implements NonconformityScorer.
func (s *LACScorer) Score(proba []float64, label int) float64 {
	return 1 - proba[label]
}

// CandidateScores implements NonconformityScorer.
func (s *LACScorer) CandidateScores(proba []float64, dst []float64) []float64 {
	if cap(dst) < len(proba) {
		dst = make([]float64, len(proba))
	}
	dst = dst[:len(proba)]
	for c, p := range proba {
		dst[c] = 1 - p
	}
	return dst
}

// APSScorer implements the Adaptive Prediction Sets score: the cumulated
// probability mass of all classes at least as likely as the candidate
// class, the candidate included. Sets built from this rule adapt their
// size to the local ambiguity of the classifier, trading larger sets for
// more balanced conditional coverage.
type APSScorer struct{}

// NewAPSScorer creates a new APSScorer.
func NewAPSScorer() *APSScorer {
	return &APSScorer{}
}

// Name implements NonconformityScorer.
func (s *APSScorer) Name() string { return "aps" }

// Score implements NonconformityScorer.
func (s *APSScorer) Score(proba []float64, label int) float64 {
	var cum float64
	for _, p := range proba {
		if p >= proba[label] {
			cum += p
		}
	}
	return cum
}

// CandidateScores implements NonconformityScorer.
//
// Classes are ranked by descending probability once, then each candidate
// score is the running mass down to that class. Ties share the mass of
// the whole tied block, matching Score.
func (s *APSScorer) CandidateScores(proba []float64, dst []float64) []float64 {
	k := len(proba)
	if cap(dst) < k {
		dst = make([]float64, k)
	}
	dst = dst[:k]

	order := make([]int, k)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return proba[order[a]] > proba[order[b]]
	})

	cum := 0.0
	for i := 0; i < k; {
		// Advance over the whole block of tied probabilities
		j := i
		blockMass := 0.0
		for j < k && proba[order[j]] == proba[order[i]] {
			blockMass += proba[order[j]]
			j++
		}
		cum += blockMass
		for m := i; m < j; m++ {
			dst[order[m]] = cum
		}
		i = j
	}
	return dst
}

// scorerByName restores a scorer from its persisted name.
func scorerByName(name string) NonconformityScorer {
	switch name {
	case "lac":
		return NewLACScorer()
	case "aps":
		return NewAPSScorer()
	default:
		return nil
	}
}
