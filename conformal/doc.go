// Package conformal implements split-conformal prediction sets for
// multi-class classification.
//
// A SplitConformalClassifier consumes per-sample class-probability
// estimates from any probabilistic classifier, calibrates nonconformity
// score thresholds on held-out labeled data, and emits prediction sets
// with finite-sample marginal coverage at least 1-alpha under
// exchangeability of calibration and test data.
//
// The base classifier is an external collaborator: it is never trained,
// persisted, or introspected here. Anything exposing PredictProba can be
// wrapped, mirroring MapieClassifier(estimator=clf, cv="prefit") from the
// Python MAPIE library.
//
// Basic usage:
//
//	clf := naive_bayes.NewGaussianNB()
//	_ = clf.Fit(XTrain, yTrain)
//
//	scc := conformal.NewSplitConformalClassifier()
//	if err := scc.FitClassifier(clf, XCal, yCal); err != nil {
//	    log.Fatal(err)
//	}
//
//	proba, _ := clf.PredictProba(XTest)
//	sets, err := scc.PredictSets(proba, []float64{0.2, 0.1, 0.05})
package conformal
