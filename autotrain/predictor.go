// Package autotrain implements the automated tabular trainer: given a labeled
// dataset, a wall-clock budget and a model-family table, it fits one
// candidate per family, scores each on an internal validation holdout, ranks
// them into a leaderboard and serves predictions from the best candidate.
// Fitted models are serialized into a model directory as a side effect.
package autotrain

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	"autotab/dataset"
	"autotab/metrics"
	"autotab/pkg/errors"
	"autotab/pkg/log"
)

// Validation holdout taken from the training partition, and the seeds that
// keep fitting reproducible.
const (
	holdoutFraction = 0.8
	holdoutSeed     = 7
	familySeed      = 11
	minTrainRows    = 10
)

// regressor is one trainable model family instance.
type regressor interface {
	fit(X *mat.Dense, y []float64) error
	predict(X *mat.Dense) []float64
	marshal() ([]byte, error)
}

// Candidate is one fitted model with its validation score.
type Candidate struct {
	Name       string
	ScoreVal   float64
	FitTimeSec float64

	model regressor
}

// LeaderboardRow ranks one candidate. Scores follow the negative-RMSE
// convention: higher is better, zero is a perfect fit.
type LeaderboardRow struct {
	Model      string  `json:"model"`
	ScoreVal   float64 `json:"score_val"`
	ScoreTest  float64 `json:"score_test"`
	FitTimeSec float64 `json:"fit_time_sec"`
}

// Leaderboard is ordered by validation score, best first.
type Leaderboard []LeaderboardRow

// CandidateSummary is the per-model slice of the fit summary.
type CandidateSummary struct {
	Name       string  `json:"name"`
	ScoreVal   float64 `json:"score_val"`
	FitTimeSec float64 `json:"fit_time_sec"`
}

// FitSummary is the structured metadata of a completed fit. All values are
// JSON-serializable; hyperparameter values are stringified when recorded.
type FitSummary struct {
	Label           string                       `json:"label"`
	TrainRows       int                          `json:"train_rows"`
	ValidationRows  int                          `json:"validation_rows"`
	Features        []string                     `json:"features"`
	ModelDir        string                       `json:"model_dir"`
	BestModel       string                       `json:"best_model"`
	TotalFitTimeSec float64                      `json:"total_fit_time_sec"`
	TimeLimitSec    int                          `json:"time_limit_sec"`
	Candidates      []CandidateSummary           `json:"candidates"`
	Hyperparameters map[string]map[string]string `json:"hyperparameters"`
}

// Predictor trains and serves an ensemble of tabular model families for one
// target column. It owns its model directory for the lifetime of the run.
type Predictor struct {
	label      string
	dir        string
	fitted     bool
	features   []string
	candidates []*Candidate
	summary    *FitSummary
}

// New creates a predictor targeting the given label column, persisting model
// files under dir.
func New(label, dir string) *Predictor {
	return &Predictor{label: label, dir: dir}
}

// Fit trains one candidate per family in hyperparameters under the given
// wall-clock budget (seconds). The budget is cooperative: it is checked
// before each candidate and between boosting rounds/trees inside one. Fit
// fails when the budget is non-positive, the label column is missing or
// non-numeric, the data is too small, or no candidate could be trained.
func (p *Predictor) Fit(train *dataset.Dataset, timeLimit int, hyperparameters Hyperparameters) error {
	logger := log.With("autotrain")

	if timeLimit <= 0 {
		return errors.NewValidationError("time_limit", "must be a positive number of seconds", timeLimit)
	}
	if train.Len() < minTrainRows {
		return errors.NewModelError("Predictor.Fit", "insufficient data",
			errors.Newf("need at least %d rows, got %d", minTrainRows, train.Len()))
	}
	if _, err := train.LabelVector(p.label); err != nil {
		return errors.NewModelError("Predictor.Fit", "invalid label column", err)
	}
	features := train.NumericColumns(p.label)
	if len(features) == 0 {
		return errors.NewModelError("Predictor.Fit", "no usable feature columns", nil)
	}

	fitDS, valDS, err := train.Split(holdoutFraction, holdoutSeed)
	if err != nil {
		return errors.NewModelError("Predictor.Fit", "validation holdout failed", err)
	}
	Xfit, err := fitDS.FeatureMatrix(features)
	if err != nil {
		return err
	}
	yFit, err := fitDS.LabelVector(p.label)
	if err != nil {
		return err
	}
	Xval, err := valDS.FeatureMatrix(features)
	if err != nil {
		return err
	}
	yVal, err := valDS.LabelVector(p.label)
	if err != nil {
		return err
	}

	start := time.Now()
	deadline := start.Add(time.Duration(timeLimit) * time.Second)

	families := make([]string, 0, len(hyperparameters))
	for f := range hyperparameters {
		families = append(families, f)
	}
	sort.Strings(families)

	p.candidates = nil
	for _, family := range families {
		if time.Now().After(deadline) {
			errors.Warn(errors.Newf("time budget exhausted, skipping remaining families"))
			break
		}
		model, ok := buildRegressor(family, hyperparameters[family], familySeed, deadline)
		if !ok {
			errors.Warn(errors.Newf("model family %q is not supported, skipping", family))
			continue
		}
		t0 := time.Now()
		if err := model.fit(Xfit, yFit); err != nil {
			errors.Warn(errors.Wrapf(err, "training %s failed, skipping", family))
			continue
		}
		rmse, err := metrics.RMSE(yVal, model.predict(Xval))
		if err != nil {
			errors.Warn(errors.Wrapf(err, "scoring %s failed, skipping", family))
			continue
		}
		cand := &Candidate{
			Name:       family,
			ScoreVal:   -rmse,
			FitTimeSec: time.Since(t0).Seconds(),
			model:      model,
		}
		p.candidates = append(p.candidates, cand)
		logger.Info().Str("family", family).
			Float64("score_val", cand.ScoreVal).
			Float64("fit_time_sec", cand.FitTimeSec).
			Msg("candidate trained")
	}

	if len(p.candidates) == 0 {
		return errors.NewModelError("Predictor.Fit", "no model could be trained within constraints", nil)
	}

	sort.SliceStable(p.candidates, func(i, j int) bool {
		return p.candidates[i].ScoreVal > p.candidates[j].ScoreVal
	})

	p.features = features
	p.fitted = true
	p.summary = p.buildSummary(train.Len(), valDS.Len(), timeLimit, time.Since(start), hyperparameters)

	p.persist()
	return nil
}

// Predict returns one prediction per row of ds, computed by the best
// candidate over the feature view (the label column is never read).
func (p *Predictor) Predict(ds *dataset.Dataset) ([]float64, error) {
	if !p.fitted {
		return nil, errors.NewNotFittedError("Predictor", "Predict")
	}
	X, err := ds.FeatureMatrix(p.features)
	if err != nil {
		return nil, err
	}
	return p.best().model.predict(X), nil
}

// Leaderboard scores every candidate on ds and returns the ranking by
// validation score, best first. ds must carry the label column.
func (p *Predictor) Leaderboard(ds *dataset.Dataset) (Leaderboard, error) {
	if !p.fitted {
		return nil, errors.NewNotFittedError("Predictor", "Leaderboard")
	}
	X, err := ds.FeatureMatrix(p.features)
	if err != nil {
		return nil, err
	}
	yTrue, err := ds.LabelVector(p.label)
	if err != nil {
		return nil, err
	}
	lb := make(Leaderboard, 0, len(p.candidates))
	for _, cand := range p.candidates {
		rmse, err := metrics.RMSE(yTrue, cand.model.predict(X))
		if err != nil {
			return nil, err
		}
		lb = append(lb, LeaderboardRow{
			Model:      cand.Name,
			ScoreVal:   cand.ScoreVal,
			ScoreTest:  -rmse,
			FitTimeSec: cand.FitTimeSec,
		})
	}
	return lb, nil
}

// FeatureImportance computes permutation importance of the best candidate on
// ds: the drop in score when one feature column is shuffled. ds must carry
// the label column.
func (p *Predictor) FeatureImportance(ds *dataset.Dataset) (map[string]float64, error) {
	if !p.fitted {
		return nil, errors.NewNotFittedError("Predictor", "FeatureImportance")
	}
	X, err := ds.FeatureMatrix(p.features)
	if err != nil {
		return nil, err
	}
	yTrue, err := ds.LabelVector(p.label)
	if err != nil {
		return nil, err
	}
	model := p.best().model
	baseRMSE, err := metrics.RMSE(yTrue, model.predict(X))
	if err != nil {
		return nil, err
	}

	n, _ := X.Dims()
	rng := rand.New(rand.NewSource(holdoutSeed))
	importance := make(map[string]float64, len(p.features))
	for j, feature := range p.features {
		perm := mat.DenseCopyOf(X)
		order := rng.Perm(n)
		for i := 0; i < n; i++ {
			perm.Set(i, j, X.At(order[i], j))
		}
		rmse, err := metrics.RMSE(yTrue, model.predict(perm))
		if err != nil {
			return nil, err
		}
		// Positive importance: shuffling the feature made predictions worse.
		importance[feature] = rmse - baseRMSE
	}
	return importance, nil
}

// FitSummary returns the structured metadata of the last fit.
func (p *Predictor) FitSummary() (*FitSummary, error) {
	if !p.fitted {
		return nil, errors.NewNotFittedError("Predictor", "FitSummary")
	}
	return p.summary, nil
}

// BestModel returns the name of the top-ranked candidate.
func (p *Predictor) BestModel() string {
	if !p.fitted {
		return ""
	}
	return p.best().Name
}

func (p *Predictor) best() *Candidate {
	return p.candidates[0]
}

func (p *Predictor) buildSummary(trainRows, valRows, timeLimit int, elapsed time.Duration, hp Hyperparameters) *FitSummary {
	s := &FitSummary{
		Label:           p.label,
		TrainRows:       trainRows,
		ValidationRows:  valRows,
		Features:        append([]string(nil), p.features...),
		ModelDir:        p.dir,
		BestModel:       p.candidates[0].Name,
		TotalFitTimeSec: elapsed.Seconds(),
		TimeLimitSec:    timeLimit,
		Hyperparameters: make(map[string]map[string]string, len(hp)),
	}
	for _, cand := range p.candidates {
		s.Candidates = append(s.Candidates, CandidateSummary{
			Name:       cand.Name,
			ScoreVal:   cand.ScoreVal,
			FitTimeSec: cand.FitTimeSec,
		})
	}
	// Knob values are stringified so the summary always serializes.
	for family, params := range hp {
		flat := make(map[string]string, len(params))
		for k, v := range params {
			flat[k] = fmt.Sprintf("%v", v)
		}
		s.Hyperparameters[family] = flat
	}
	return s
}

// persist writes each fitted candidate to the model directory. Write failures
// are warnings: the fitted predictor in memory is unaffected.
func (p *Predictor) persist() {
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		errors.Warn(errors.Wrapf(err, "creating model directory %s", p.dir))
		return
	}
	for _, cand := range p.candidates {
		blob, err := cand.model.marshal()
		if err != nil {
			errors.Warn(errors.Wrapf(err, "serializing model %s", cand.Name))
			continue
		}
		bundle := map[string]any{
			"name":      cand.Name,
			"score_val": cand.ScoreVal,
			"model":     json.RawMessage(blob),
		}
		out, err := json.MarshalIndent(bundle, "", "  ")
		if err != nil {
			errors.Warn(errors.Wrapf(err, "serializing model bundle %s", cand.Name))
			continue
		}
		path := filepath.Join(p.dir, cand.Name+".json")
		if err := os.WriteFile(path, out, 0o644); err != nil {
			errors.Warn(errors.Wrapf(err, "writing model file %s", path))
		}
	}
}
