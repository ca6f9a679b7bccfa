// Package conformal provides distribution-free prediction sets for
// multi-class classification in Go, built for backend services that need
// calibrated uncertainty alongside point predictions.
//
// The library wraps any probabilistic classifier with a split-conformal
// calibration layer: given a held-out calibration set, it computes
// nonconformity scores and finite-sample quantile thresholds so that
// prediction sets contain the true label with probability at least
// 1 - alpha, under exchangeability.
//
// # Features
//
// - Split-conformal calibration with pluggable nonconformity scores (LAC, APS)
// - Works with any estimator exposing PredictProba over gonum matrices
// - Gaussian naive Bayes base classifier included
// - Coverage and set-size diagnostics with structured warnings
// - CPU-parallel set construction for large batches
//
// # Quick Start
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "gonum.org/v1/gonum/mat"
//
//	    "github.com/YuminosukeSato/conformal/conformal"
//	)
//
//	func main() {
//	    // Probabilities from an already-fitted classifier, one row per
//	    // calibration sample, one column per class.
//	    calProba := mat.NewDense(4, 2, []float64{
//	        0.9, 0.1,
//	        0.8, 0.2,
//	        0.7, 0.3,
//	        0.1, 0.9,
//	    })
//	    calLabels := mat.NewDense(4, 1, []float64{0, 0, 0, 0})
//
//	    clf := conformal.NewSplitConformalClassifier()
//	    if err := clf.Fit(calProba, calLabels); err != nil {
//	        log.Fatal(err)
//	    }
//
//	    testProba := mat.NewDense(1, 2, []float64{0.6, 0.4})
//	    sets, err := clf.PredictSets(testProba, []float64{0.1})
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(sets.Set(0, 0))
//	}
//
// # Packages
//
// - conformal: split-conformal calibration, scorers, prediction sets
// - naive_bayes: Gaussian naive Bayes base classifier
// - metrics: accuracy, empirical coverage, set-size diagnostics
// - datasets: synthetic Gaussian mixtures and evaluation grids
// - pkg/errors: structured errors, warnings, numerical-stability checks
// - pkg/log: slog-compatible structured logging
//
// For a complete worked example, including figure rendering, see
// examples/sadinle2019.
package conformal
