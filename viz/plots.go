// Package viz renders the diagnostic plots of a run: a bar chart of
// per-feature importance and a histogram of the prediction distribution.
// Each plot is independent: a failure is reported as a warning and never
// stops the other plot or the pipeline.
package viz

import (
	"path/filepath"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"autotab/pkg/errors"
	"autotab/pkg/log"
)

// File names under the plots directory.
const (
	ImportanceFile     = "feature_importance.png"
	PredictionDistFile = "prediction_dist.png"
)

const histogramBins = 30

// Render attempts both plots and returns the logical-name → path map of the
// plots actually produced. Failures are delivered through errors.Warn.
func Render(dir string, importance map[string]float64, predictions []float64) map[string]string {
	logger := log.With("viz")
	produced := make(map[string]string)

	path := filepath.Join(dir, ImportanceFile)
	if err := featureImportancePlot(path, importance); err != nil {
		errors.Warn(errors.WithStack(&errors.PlotWarning{Plot: "feature importance", Err: err}))
	} else {
		produced["feature_importance"] = path
		logger.Info().Str("path", path).Msg("feature importance plot saved")
	}

	path = filepath.Join(dir, PredictionDistFile)
	if err := predictionHistogram(path, predictions); err != nil {
		errors.Warn(errors.WithStack(&errors.PlotWarning{Plot: "prediction distribution", Err: err}))
	} else {
		produced["prediction_distribution"] = path
		logger.Info().Str("path", path).Msg("prediction distribution plot saved")
	}

	return produced
}

func featureImportancePlot(path string, importance map[string]float64) error {
	if len(importance) == 0 {
		return errors.NewValueError("featureImportancePlot", "no importance values")
	}
	names := make([]string, 0, len(importance))
	for name := range importance {
		names = append(names, name)
	}
	sort.Strings(names)

	values := make(plotter.Values, len(names))
	for i, name := range names {
		values[i] = importance[name]
	}

	p := plot.New()
	p.Title.Text = "Feature Importance"
	p.Y.Label.Text = "importance"

	bars, err := plotter.NewBarChart(values, vg.Points(25))
	if err != nil {
		return err
	}
	p.Add(bars)
	p.NominalX(names...)

	return p.Save(10*vg.Inch, 6*vg.Inch, path)
}

func predictionHistogram(path string, predictions []float64) error {
	if len(predictions) == 0 {
		return errors.NewValueError("predictionHistogram", "no predictions")
	}
	p := plot.New()
	p.Title.Text = "Prediction Distribution"
	p.X.Label.Text = "predicted value"
	p.Y.Label.Text = "count"

	hist, err := plotter.NewHist(plotter.Values(predictions), histogramBins)
	if err != nil {
		return err
	}
	p.Add(hist)

	return p.Save(10*vg.Inch, 6*vg.Inch, path)
}
