// Package artifacts turns evaluation outputs into the durable files recorded
// against a run: the leaderboard and prediction tables as CSV and the fit
// summary as JSON. Every file is attempted even when an earlier one fails;
// failures are combined into the returned error.
package artifacts

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"autotab/autotrain"
	"autotab/pkg/errors"
	"autotab/pkg/log"
)

// File names under the artifacts directory.
const (
	LeaderboardFile = "leaderboard.csv"
	PredictionsFile = "predictions.csv"
	SummaryFile     = "model_summary.json"
)

// Write renders the three artifact files into dir. yTrue and yPred are
// index-aligned with the test partition.
func Write(dir string, lb autotrain.Leaderboard, yTrue, yPred []float64, summary *autotrain.FitSummary) error {
	logger := log.With("artifacts")

	var combined error
	if err := writeLeaderboard(filepath.Join(dir, LeaderboardFile), lb); err != nil {
		combined = errors.CombineErrors(combined, errors.Wrap(err, "writing leaderboard"))
	}
	if err := writePredictions(filepath.Join(dir, PredictionsFile), yTrue, yPred); err != nil {
		combined = errors.CombineErrors(combined, errors.Wrap(err, "writing predictions"))
	}
	if err := writeSummary(filepath.Join(dir, SummaryFile), summary); err != nil {
		combined = errors.CombineErrors(combined, errors.Wrap(err, "writing model summary"))
	}
	if combined == nil {
		logger.Info().Str("dir", dir).Msg("artifact files written")
	}
	return combined
}

func writeLeaderboard(path string, lb autotrain.Leaderboard) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"model", "score_val", "score_test", "fit_time_sec"}); err != nil {
		return err
	}
	for _, row := range lb {
		rec := []string{
			row.Model,
			strconv.FormatFloat(row.ScoreVal, 'f', 6, 64),
			strconv.FormatFloat(row.ScoreTest, 'f', 6, 64),
			strconv.FormatFloat(row.FitTimeSec, 'f', 6, 64),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writePredictions(path string, yTrue, yPred []float64) error {
	if len(yTrue) != len(yPred) {
		return errors.NewDimensionError("writePredictions", len(yTrue), len(yPred), 0)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"true", "predicted"}); err != nil {
		return err
	}
	for i := range yTrue {
		rec := []string{
			strconv.FormatFloat(yTrue[i], 'f', 6, 64),
			strconv.FormatFloat(yPred[i], 'f', 6, 64),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeSummary(path string, summary *autotrain.FitSummary) error {
	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o644)
}
