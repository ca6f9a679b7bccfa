// Package metrics provides evaluation metrics for classification and
// conformal prediction sets.
package metrics

import (
	"github.com/YuminosukeSato/conformal/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Accuracy は正解率（正しく分類されたサンプルの割合）を計算する
// yTrueとyPredは最初の列がラベルとして解釈される
func Accuracy(yTrue, yPred mat.Matrix) (float64, error) {
	// 入力検証
	rTrue, cTrue := yTrue.Dims()
	rPred, _ := yPred.Dims()

	if rTrue == 0 || cTrue == 0 {
		return 0, errors.NewValueError("Accuracy", "empty matrix")
	}

	if rTrue != rPred {
		return 0, errors.NewDimensionError("Accuracy", rTrue, rPred, 0)
	}

	correct := 0
	for i := 0; i < rTrue; i++ {
		if yTrue.At(i, 0) == yPred.At(i, 0) {
			correct++
		}
	}

	return float64(correct) / float64(rTrue), nil
}

// AccuracyLabels は整数スライス形式のラベルに対して正解率を計算する
func AccuracyLabels(yTrue []int, yPred []int) (float64, error) {
	if len(yTrue) == 0 {
		return 0, errors.NewValueError("AccuracyLabels", "empty labels")
	}
	if len(yTrue) != len(yPred) {
		return 0, errors.NewDimensionError("AccuracyLabels", len(yTrue), len(yPred), 0)
	}

	correct := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(yTrue)), nil
}
