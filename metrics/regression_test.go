package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMSE(t *testing.T) {
	got, err := MSE([]float64{1, 2, 3}, []float64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)

	got, err = MSE([]float64{1, 2, 3}, []float64{2, 3, 4})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 1e-12)
}

func TestRMSE(t *testing.T) {
	got, err := RMSE([]float64{0, 0}, []float64{3, -3})
	require.NoError(t, err)
	assert.InDelta(t, 3.0, got, 1e-12)
}

func TestMAE(t *testing.T) {
	got, err := MAE([]float64{1, -1}, []float64{2, 1})
	require.NoError(t, err)
	assert.InDelta(t, 1.5, got, 1e-12)
}

func TestR2(t *testing.T) {
	yTrue := []float64{1, 2, 3, 4}

	got, err := R2(yTrue, yTrue)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 1e-12)

	// Predicting the mean scores zero.
	got, err = R2(yTrue, []float64{2.5, 2.5, 2.5, 2.5})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, got, 1e-12)
}

func TestValidation(t *testing.T) {
	_, err := MSE(nil, nil)
	assert.Error(t, err)

	_, err = MSE([]float64{1}, []float64{1, 2})
	assert.Error(t, err)

	_, err = MAE([]float64{1, 2}, []float64{1})
	assert.Error(t, err)
}

func TestR2ConstantTarget(t *testing.T) {
	got, err := R2([]float64{2, 2, 2}, []float64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
}
