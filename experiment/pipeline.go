package experiment

import (
	"os"
	"strconv"
	"time"

	"autotab/artifacts"
	"autotab/autotrain"
	"autotab/dataset"
	"autotab/pkg/errors"
	"autotab/pkg/log"
	"autotab/tracking"
	"autotab/viz"
)

// Options are the pipeline's fixed collaborator locations and split policy.
// Running two pipelines concurrently against the same directories is
// unsupported: they race on the model and artifact files.
type Options struct {
	DataPath       string
	ArtifactsDir   string
	PlotsDir       string
	ModelDir       string
	TrackingURI    string
	ExperimentName string
	MinRows        int
	TrainFraction  float64
	Seed           int64
}

// DefaultOptions mirrors the standard working-directory layout.
func DefaultOptions() Options {
	return Options{
		DataPath:       "data/product_reviews.csv",
		ArtifactsDir:   "artifacts",
		PlotsDir:       "plots",
		ModelDir:       "models/autotab",
		TrackingURI:    tracking.DefaultTrackingURI,
		ExperimentName: "autotab_tabular_demo",
		MinRows:        100,
		TrainFraction:  0.8,
		Seed:           42,
	}
}

// Run executes one experiment end to end: acquire data, split, open a
// tracked run, train and evaluate, record everything, close the run.
//
// Acquisition and split errors abort before a run is opened. Any error after
// Open is recorded as the run's "error" parameter, the run is closed FAILED,
// and the error is returned. Plot and upload failures are warnings only.
func Run(cfg Config, opts Options) error {
	logger := log.With("experiment")

	data, err := dataset.LoadOrCreate(opts.DataPath, opts.MinRows)
	if err != nil {
		return err
	}
	train, test, err := data.Split(opts.TrainFraction, opts.Seed)
	if err != nil {
		return err
	}
	logger.Info().Int("train_rows", train.Len()).Int("test_rows", test.Len()).Msg("data split")

	rec := tracking.NewRunRecorder(tracking.NewClient(opts.TrackingURI), opts.ExperimentName)
	if err := rec.Open(); err != nil {
		return err
	}
	logger.Info().Str("run_id", rec.RunID()).Msg("tracked run started")

	if err := execute(cfg, opts, rec, train, test); err != nil {
		if closeErr := rec.CloseFailure(err); closeErr != nil {
			errors.Warn(errors.Wrap(closeErr, "closing failed run"))
		}
		return err
	}
	if err := rec.CloseSuccess(); err != nil {
		return err
	}
	logger.Info().Str("run_id", rec.RunID()).Str("artifact_uri", rec.ArtifactURI()).
		Msg("training completed successfully")
	return nil
}

// execute performs every step between Open and Close. Returning an error
// transitions the run to Closed(failure) in Run.
func execute(cfg Config, opts Options, rec *tracking.RunRecorder, train, test *dataset.Dataset) error {
	predictor := autotrain.New(cfg.Label, opts.ModelDir)
	if err := predictor.Fit(train, cfg.TimeLimit, autotrain.DefaultHyperparameters()); err != nil {
		return err
	}
	predictions, err := predictor.Predict(test)
	if err != nil {
		return err
	}
	leaderboard, err := predictor.Leaderboard(test)
	if err != nil {
		return err
	}

	// Plots are best-effort: an importance failure must not prevent the
	// prediction histogram.
	importance, err := predictor.FeatureImportance(test)
	if err != nil {
		errors.Warn(errors.WithStack(&errors.PlotWarning{Plot: "feature importance", Err: err}))
	}
	viz.Render(opts.PlotsDir, importance, predictions)

	if err := rec.LogParams(map[string]string{
		"label":         cfg.Label,
		"time_limit":    strconv.Itoa(cfg.TimeLimit),
		"train_samples": strconv.Itoa(train.Len()),
		"test_samples":  strconv.Itoa(test.Len()),
		"timestamp":     time.Now().Format("20060102_150405"),
	}); err != nil {
		return err
	}
	if err := rec.LogMetrics(map[string]float64{
		"best_score":  bestScore(leaderboard),
		"avg_score":   avgScore(leaderboard),
		"model_count": float64(len(leaderboard)),
	}); err != nil {
		return err
	}

	yTrue, err := test.LabelVector(cfg.Label)
	if err != nil {
		return err
	}
	summary, err := predictor.FitSummary()
	if err != nil {
		return err
	}
	if err := artifacts.Write(opts.ArtifactsDir, leaderboard, yTrue, predictions, summary); err != nil {
		return err
	}

	rec.UploadDir(opts.ArtifactsDir, "artifacts")
	rec.UploadDir(opts.PlotsDir, "plots")
	if _, err := os.Stat(opts.ModelDir); err == nil {
		rec.UploadDir(opts.ModelDir, "model")
	}
	return nil
}

func bestScore(lb autotrain.Leaderboard) float64 {
	best := lb[0].ScoreVal
	for _, row := range lb[1:] {
		if row.ScoreVal > best {
			best = row.ScoreVal
		}
	}
	return best
}

func avgScore(lb autotrain.Leaderboard) float64 {
	var sum float64
	for _, row := range lb {
		sum += row.ScoreVal
	}
	return sum / float64(len(lb))
}

