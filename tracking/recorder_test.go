package tracking

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autotab/pkg/errors"
)

// stubServer emulates the slice of the MLflow REST API the recorder uses.
type stubServer struct {
	*httptest.Server

	mu          sync.Mutex
	failCreate  bool
	failUploads map[string]bool // artifact basename -> reject with 500

	runCounter int
	params     map[string]string
	metrics    map[string]float64
	status     string
	uploads    []string
}

func newStub(t *testing.T) *stubServer {
	t.Helper()
	s := &stubServer{
		failUploads: make(map[string]bool),
		params:      make(map[string]string),
		metrics:     make(map[string]float64),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/2.0/mlflow/experiments/create", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.failCreate {
			http.Error(w, `{"error_code":"RESOURCE_ALREADY_EXISTS"}`, http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, `{"experiment_id":"1"}`)
	})
	mux.HandleFunc("/api/2.0/mlflow/experiments/get-by-name", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"experiment":{"experiment_id":"1"}}`)
	})
	mux.HandleFunc("/api/2.0/mlflow/runs/create", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.runCounter++
		id := fmt.Sprintf("run-%d", s.runCounter)
		s.mu.Unlock()
		fmt.Fprintf(w, `{"run":{"info":{"run_id":"%s"}}}`, id)
	})
	mux.HandleFunc("/api/2.0/mlflow/runs/log-parameter", func(w http.ResponseWriter, r *http.Request) {
		var req struct{ Key, Value string }
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		s.mu.Lock()
		s.params[req.Key] = req.Value
		s.mu.Unlock()
		fmt.Fprint(w, `{}`)
	})
	mux.HandleFunc("/api/2.0/mlflow/runs/log-batch", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Params []struct{ Key, Value string } `json:"params"`
			Metrics []struct {
				Key   string
				Value float64
			} `json:"metrics"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		s.mu.Lock()
		for _, p := range req.Params {
			s.params[p.Key] = p.Value
		}
		for _, m := range req.Metrics {
			s.metrics[m.Key] = m.Value
		}
		s.mu.Unlock()
		fmt.Fprint(w, `{}`)
	})
	mux.HandleFunc("/api/2.0/mlflow/runs/update", func(w http.ResponseWriter, r *http.Request) {
		var req struct{ Status string }
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		s.mu.Lock()
		s.status = req.Status
		s.mu.Unlock()
		fmt.Fprint(w, `{}`)
	})
	mux.HandleFunc("/api/2.0/mlflow-artifacts/artifacts/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			http.NotFound(w, r)
			return
		}
		name := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.failUploads[name] {
			http.Error(w, "storage unavailable", http.StatusInternalServerError)
			return
		}
		s.uploads = append(s.uploads, r.URL.Path)
		fmt.Fprint(w, `{}`)
	})

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func captureWarnings(t *testing.T) *[]error {
	t.Helper()
	var warnings []error
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	t.Cleanup(func() { errors.SetWarningHandler(nil) })
	return &warnings
}

func TestRecorderLifecycleSuccess(t *testing.T) {
	stub := newStub(t)
	rec := NewRunRecorder(NewClient(stub.URL), "exp")

	require.Equal(t, NotStarted, rec.State())
	require.NoError(t, rec.Open())
	assert.Equal(t, Open, rec.State())
	assert.Equal(t, "run-1", rec.RunID())

	require.NoError(t, rec.LogParams(map[string]string{"label": "rating"}))
	require.NoError(t, rec.LogMetrics(map[string]float64{"best_score": -0.5}))
	require.NoError(t, rec.CloseSuccess())

	assert.Equal(t, ClosedSuccess, rec.State())
	assert.Equal(t, "FINISHED", stub.status)
	assert.Equal(t, "rating", stub.params["label"])
	assert.Equal(t, -0.5, stub.metrics["best_score"])
}

func TestRecorderCloseFailureRecordsErrorParam(t *testing.T) {
	stub := newStub(t)
	rec := NewRunRecorder(NewClient(stub.URL), "exp")
	require.NoError(t, rec.Open())

	cause := errors.New("training exploded")
	require.NoError(t, rec.CloseFailure(cause))

	assert.Equal(t, ClosedFailure, rec.State())
	assert.Equal(t, "FAILED", stub.status)
	assert.Equal(t, "training exploded", stub.params["error"])
}

func TestRecorderReusesExistingExperiment(t *testing.T) {
	stub := newStub(t)
	stub.failCreate = true

	rec := NewRunRecorder(NewClient(stub.URL), "exp")
	require.NoError(t, rec.Open())
	assert.Equal(t, Open, rec.State())
}

func TestRecorderLifecycleGuards(t *testing.T) {
	stub := newStub(t)
	rec := NewRunRecorder(NewClient(stub.URL), "exp")

	assert.Error(t, rec.LogParams(map[string]string{"a": "b"}))
	assert.Error(t, rec.CloseSuccess())

	require.NoError(t, rec.Open())
	assert.Error(t, rec.Open(), "a recorder is opened at most once")

	require.NoError(t, rec.CloseSuccess())
	assert.Error(t, rec.CloseSuccess(), "terminal states are final")
	assert.Error(t, rec.LogParams(map[string]string{"a": "b"}))
}

func TestRunIDsAreNotReused(t *testing.T) {
	stub := newStub(t)

	first := NewRunRecorder(NewClient(stub.URL), "exp")
	require.NoError(t, first.Open())
	second := NewRunRecorder(NewClient(stub.URL), "exp")
	require.NoError(t, second.Open())

	assert.NotEqual(t, first.RunID(), second.RunID())
}

func TestUploadDirBulk(t *testing.T) {
	stub := newStub(t)
	warnings := captureWarnings(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("b"), 0o644))

	rec := NewRunRecorder(NewClient(stub.URL), "exp")
	require.NoError(t, rec.Open())
	rec.UploadDir(dir, "artifacts")

	assert.Empty(t, *warnings)
	assert.Len(t, stub.uploads, 2)
}

// When the bulk upload fails the recorder retries each regular file
// individually, warning on per-file failures without escalating.
func TestUploadDirFallback(t *testing.T) {
	stub := newStub(t)
	stub.failUploads["a.txt"] = true
	warnings := captureWarnings(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("b"), 0o644))

	rec := NewRunRecorder(NewClient(stub.URL), "exp")
	require.NoError(t, rec.Open())
	rec.UploadDir(dir, "artifacts")

	// b.txt made it through the per-file fallback.
	require.Len(t, stub.uploads, 1)
	assert.True(t, strings.HasSuffix(stub.uploads[0], "/b.txt"))

	// One warning for the failed bulk upload, one for the failed file.
	require.Len(t, *warnings, 2)
	var uw *errors.UploadWarning
	assert.True(t, errors.As((*warnings)[1], &uw))
}
