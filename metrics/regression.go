// Package metrics implements the regression metrics used to score trained
// candidates: MSE, RMSE, MAE and R2.
package metrics

import (
	"math"

	"autotab/pkg/errors"
)

func validate(op string, yTrue, yPred []float64) error {
	if len(yTrue) == 0 {
		return errors.NewValueError(op, "empty vector")
	}
	if len(yPred) != len(yTrue) {
		return errors.NewDimensionError(op, len(yTrue), len(yPred), 0)
	}
	return nil
}

// MSE computes the mean squared error.
func MSE(yTrue, yPred []float64) (float64, error) {
	if err := validate("MSE", yTrue, yPred); err != nil {
		return 0, err
	}
	var sum float64
	for i := range yTrue {
		diff := yTrue[i] - yPred[i]
		sum += diff * diff
	}
	return sum / float64(len(yTrue)), nil
}

// RMSE computes the root mean squared error.
func RMSE(yTrue, yPred []float64) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE computes the mean absolute error.
func MAE(yTrue, yPred []float64) (float64, error) {
	if err := validate("MAE", yTrue, yPred); err != nil {
		return 0, err
	}
	var sum float64
	for i := range yTrue {
		sum += math.Abs(yTrue[i] - yPred[i])
	}
	return sum / float64(len(yTrue)), nil
}

// R2 computes the coefficient of determination. A constant target yields an
// undefined score; 0 is returned in that case, matching common practice.
func R2(yTrue, yPred []float64) (float64, error) {
	if err := validate("R2", yTrue, yPred); err != nil {
		return 0, err
	}
	var mean float64
	for _, v := range yTrue {
		mean += v
	}
	mean /= float64(len(yTrue))

	var ssRes, ssTot float64
	for i := range yTrue {
		res := yTrue[i] - yPred[i]
		tot := yTrue[i] - mean
		ssRes += res * res
		ssTot += tot * tot
	}
	if ssTot == 0 {
		return 0, nil
	}
	return 1 - ssRes/ssTot, nil
}
