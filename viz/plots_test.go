package viz

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autotab/pkg/errors"
)

func captureWarnings(t *testing.T) *[]error {
	t.Helper()
	var warnings []error
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	t.Cleanup(func() { errors.SetWarningHandler(nil) })
	return &warnings
}

func TestRenderBothPlots(t *testing.T) {
	dir := t.TempDir()
	warnings := captureWarnings(t)

	importance := map[string]float64{"price": 0.8, "category": 0.2}
	predictions := []float64{1, 2, 2, 3, 3, 3, 4, 4, 5}

	produced := Render(dir, importance, predictions)

	assert.Empty(t, *warnings)
	assert.Equal(t, filepath.Join(dir, ImportanceFile), produced["feature_importance"])
	assert.Equal(t, filepath.Join(dir, PredictionDistFile), produced["prediction_distribution"])
	assert.FileExists(t, filepath.Join(dir, ImportanceFile))
	assert.FileExists(t, filepath.Join(dir, PredictionDistFile))
}

// A feature-importance failure must not prevent the prediction histogram.
func TestRenderImportanceFailureIsIsolated(t *testing.T) {
	dir := t.TempDir()
	warnings := captureWarnings(t)

	produced := Render(dir, nil, []float64{1, 2, 3, 4, 5})

	require.Len(t, *warnings, 1)
	var pw *errors.PlotWarning
	assert.True(t, errors.As((*warnings)[0], &pw))

	_, ok := produced["feature_importance"]
	assert.False(t, ok)
	assert.Equal(t, filepath.Join(dir, PredictionDistFile), produced["prediction_distribution"])
	assert.FileExists(t, filepath.Join(dir, PredictionDistFile))
}

func TestRenderEmptyPredictionsWarns(t *testing.T) {
	dir := t.TempDir()
	warnings := captureWarnings(t)

	produced := Render(dir, map[string]float64{"price": 1}, nil)

	assert.Len(t, *warnings, 1)
	assert.FileExists(t, filepath.Join(dir, ImportanceFile))
	_, ok := produced["prediction_distribution"]
	assert.False(t, ok)
}
