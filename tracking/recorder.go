package tracking

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"autotab/pkg/errors"
	"autotab/pkg/log"
)

// State is the lifecycle position of a tracked run.
type State int

const (
	// NotStarted means Open has not been called.
	NotStarted State = iota
	// Open means the run exists on the server and accepts records.
	Open
	// ClosedSuccess and ClosedFailure are terminal; a recorder is never
	// reopened and a run id is never reused.
	ClosedSuccess
	ClosedFailure
)

// MLflow terminal run statuses.
const (
	statusFinished = "FINISHED"
	statusFailed   = "FAILED"
)

// RunRecorder owns one tracked run: it opens it against a named experiment
// (created if absent, reused otherwise), appends parameters, metrics and
// artifact directories, and closes it exactly once on either exit path.
type RunRecorder struct {
	client         *Client
	experimentName string

	experimentID string
	runID        string
	state        State
	logger       zerolog.Logger
}

// NewRunRecorder creates a recorder bound to the experiment name.
func NewRunRecorder(client *Client, experimentName string) *RunRecorder {
	return &RunRecorder{
		client:         client,
		experimentName: experimentName,
		logger:         log.With("tracking"),
	}
}

// Open begins a new tracked run. The experiment container is created when
// absent, otherwise reused by name.
func (r *RunRecorder) Open() error {
	if r.state != NotStarted {
		return errors.NewValueError("RunRecorder.Open", "run already opened")
	}
	expID, err := r.client.CreateExperiment(r.experimentName)
	if err != nil {
		expID, err = r.client.GetExperimentByName(r.experimentName)
		if err != nil {
			return errors.Wrapf(err, "resolving experiment %q", r.experimentName)
		}
	}
	runName := "autotab-" + uuid.NewString()[:8]
	runID, err := r.client.CreateRun(expID, runName)
	if err != nil {
		return errors.Wrap(err, "creating run")
	}
	r.experimentID = expID
	r.runID = runID
	r.state = Open
	r.logger.Info().Str("run_id", runID).Str("experiment_id", expID).Msg("run opened")
	return nil
}

// RunID returns the tracked run identifier, empty before Open.
func (r *RunRecorder) RunID() string { return r.runID }

// State returns the recorder's lifecycle state.
func (r *RunRecorder) State() State { return r.state }

// ArtifactURI returns the server-side base URI of the run's artifacts.
func (r *RunRecorder) ArtifactURI() string {
	return r.client.ArtifactURI(r.experimentID, r.runID)
}

// LogParams appends run parameters. Parameters are append-only within a run.
func (r *RunRecorder) LogParams(params map[string]string) error {
	if r.state != Open {
		return errors.NewValueError("RunRecorder.LogParams", "run is not open")
	}
	return r.client.LogBatch(r.runID, params, nil)
}

// LogMetrics appends run metrics. Metrics are append-only within a run.
func (r *RunRecorder) LogMetrics(metrics map[string]float64) error {
	if r.state != Open {
		return errors.NewValueError("RunRecorder.LogMetrics", "run is not open")
	}
	return r.client.LogBatch(r.runID, nil, metrics)
}

// UploadDir uploads every file under localDir as a unit beneath artifactPath.
// When the bulk upload fails it falls back to uploading each regular file in
// localDir individually; per-file failures are warnings, never errors.
func (r *RunRecorder) UploadDir(localDir, artifactPath string) {
	if r.state != Open {
		errors.Warn(errors.Newf("upload of %s skipped: run is not open", localDir))
		return
	}
	if err := r.uploadBulk(localDir, artifactPath); err != nil {
		errors.Warn(errors.Wrapf(err, "bulk upload of %s failed, retrying per file", localDir))
		r.uploadPerFile(localDir, artifactPath)
		return
	}
	r.logger.Info().Str("dir", localDir).Str("artifact_path", artifactPath).Msg("artifacts uploaded")
}

// uploadBulk walks localDir and uploads every file, aborting on the first
// failure so the caller can fall back.
func (r *RunRecorder) uploadBulk(localDir, artifactPath string) error {
	return filepath.WalkDir(localDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(localDir, p)
		if err != nil {
			return err
		}
		sub := artifactPath
		if dir := filepath.Dir(rel); dir != "." {
			sub = filepath.ToSlash(filepath.Join(artifactPath, dir))
		}
		return r.client.UploadArtifact(r.experimentID, r.runID, p, sub)
	})
}

// uploadPerFile uploads each regular file directly inside localDir, reporting
// but not aborting on individual failures.
func (r *RunRecorder) uploadPerFile(localDir, artifactPath string) {
	entries, err := os.ReadDir(localDir)
	if err != nil {
		errors.Warn(errors.Wrapf(err, "listing %s for per-file upload", localDir))
		return
	}
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		p := filepath.Join(localDir, entry.Name())
		if err := r.client.UploadArtifact(r.experimentID, r.runID, p, artifactPath); err != nil {
			errors.Warn(errors.WithStack(&errors.UploadWarning{Path: p, Err: err}))
		}
	}
}

// CloseSuccess finalizes the run as FINISHED.
func (r *RunRecorder) CloseSuccess() error {
	return r.close(statusFinished, ClosedSuccess)
}

// CloseFailure records the failure message as the "error" parameter, then
// finalizes the run as FAILED. The caller re-raises the original error after
// this returns; the run is never left open.
func (r *RunRecorder) CloseFailure(cause error) error {
	if r.state == Open && cause != nil {
		if err := r.client.LogParam(r.runID, "error", cause.Error()); err != nil {
			errors.Warn(errors.Wrap(err, "recording error parameter"))
		}
	}
	return r.close(statusFailed, ClosedFailure)
}

func (r *RunRecorder) close(status string, terminal State) error {
	if r.state != Open {
		return errors.NewValueError("RunRecorder.close", "run is not open")
	}
	// The state transition happens regardless of whether the server call
	// succeeds: terminal states are final.
	r.state = terminal
	if err := r.client.UpdateRun(r.runID, status); err != nil {
		return errors.Wrapf(err, "closing run %s", r.runID)
	}
	r.logger.Info().Str("run_id", r.runID).Str("status", status).Msg("run closed")
	return nil
}
