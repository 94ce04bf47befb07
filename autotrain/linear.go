package autotrain

import (
	"encoding/json"

	"gonum.org/v1/gonum/mat"

	"autotab/pkg/errors"
)

// linearRegressor fits ordinary least squares through the normal equations
// w = (X^T X)^-1 X^T y, with an intercept column prepended.
type linearRegressor struct {
	Weights   []float64 `json:"weights"`
	Intercept float64   `json:"intercept"`
	NFeatures int       `json:"n_features"`
}

func (lr *linearRegressor) fit(X *mat.Dense, y []float64) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("linear.fit", "empty data", errors.ErrEmptyData)
	}
	if len(y) != r {
		return errors.NewDimensionError("linear.fit", r, len(y), 0)
	}
	lr.NFeatures = c

	// Intercept column: X' = [1, X]
	Xi := mat.NewDense(r, c+1, nil)
	for i := 0; i < r; i++ {
		Xi.Set(i, 0, 1.0)
		for j := 0; j < c; j++ {
			Xi.Set(i, j+1, X.At(i, j))
		}
	}

	var XT mat.Dense
	XT.CloneFrom(Xi.T())

	var XTX mat.Dense
	XTX.Mul(&XT, Xi)

	var XTXInv mat.Dense
	if err := XTXInv.Inverse(&XTX); err != nil {
		return errors.NewModelError("linear.fit", "singular matrix", errors.ErrSingularMatrix)
	}

	yVec := mat.NewVecDense(r, append([]float64(nil), y...))
	var XTy mat.VecDense
	XTy.MulVec(&XT, yVec)

	weights := mat.NewVecDense(c+1, nil)
	weights.MulVec(&XTXInv, &XTy)

	lr.Intercept = weights.AtVec(0)
	lr.Weights = make([]float64, c)
	for j := 0; j < c; j++ {
		lr.Weights[j] = weights.AtVec(j + 1)
	}
	return nil
}

func (lr *linearRegressor) predict(X *mat.Dense) []float64 {
	r, c := X.Dims()
	preds := make([]float64, r)
	for i := 0; i < r; i++ {
		p := lr.Intercept
		for j := 0; j < c && j < len(lr.Weights); j++ {
			p += lr.Weights[j] * X.At(i, j)
		}
		preds[i] = p
	}
	return preds
}

func (lr *linearRegressor) marshal() ([]byte, error) {
	return json.Marshal(lr)
}
