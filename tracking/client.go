// Package tracking records experiment runs against an MLflow tracking server:
// a thin REST client plus the RunRecorder that owns the open/record/close
// lifecycle of one tracked run.
package tracking

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"time"

	"autotab/pkg/errors"
)

// DefaultTrackingURI is the local tracking server endpoint.
const DefaultTrackingURI = "http://localhost:5000"

const apiPrefix = "/api/2.0/mlflow"

// Client talks to an MLflow tracking server over its REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the tracking server at baseURL.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultTrackingURI
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) postJSON(endpoint string, req, resp any) error {
	body, err := json.Marshal(req)
	if err != nil {
		return errors.Wrap(err, "encoding request")
	}
	httpResp, err := c.httpClient.Post(c.baseURL+apiPrefix+endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return errors.Wrapf(err, "POST %s", endpoint)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return errors.Wrapf(err, "reading response of %s", endpoint)
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return errors.Newf("tracking server: %s returned %d: %s", endpoint, httpResp.StatusCode, truncate(data, 200))
	}
	if resp != nil {
		if err := json.Unmarshal(data, resp); err != nil {
			return errors.Wrapf(err, "decoding response of %s", endpoint)
		}
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}

// CreateExperiment creates a named experiment and returns its id. The server
// rejects duplicate names; callers fall back to GetExperimentByName.
func (c *Client) CreateExperiment(name string) (string, error) {
	var resp struct {
		ExperimentID string `json:"experiment_id"`
	}
	err := c.postJSON("/experiments/create", map[string]string{"name": name}, &resp)
	if err != nil {
		return "", err
	}
	return resp.ExperimentID, nil
}

// GetExperimentByName resolves an existing experiment id by name.
func (c *Client) GetExperimentByName(name string) (string, error) {
	u := fmt.Sprintf("%s%s/experiments/get-by-name?experiment_name=%s",
		c.baseURL, apiPrefix, url.QueryEscape(name))
	httpResp, err := c.httpClient.Get(u)
	if err != nil {
		return "", errors.Wrap(err, "GET experiments/get-by-name")
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", errors.Wrap(err, "reading experiment response")
	}
	if httpResp.StatusCode != http.StatusOK {
		return "", errors.Newf("tracking server: get-by-name returned %d: %s", httpResp.StatusCode, truncate(data, 200))
	}
	var resp struct {
		Experiment struct {
			ExperimentID string `json:"experiment_id"`
		} `json:"experiment"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", errors.Wrap(err, "decoding experiment response")
	}
	return resp.Experiment.ExperimentID, nil
}

// CreateRun opens a new run in the experiment and returns the run id the
// server generated.
func (c *Client) CreateRun(experimentID, runName string) (string, error) {
	req := map[string]any{
		"experiment_id": experimentID,
		"start_time":    time.Now().UnixMilli(),
		"tags": []map[string]string{
			{"key": "mlflow.runName", "value": runName},
		},
	}
	var resp struct {
		Run struct {
			Info struct {
				RunID string `json:"run_id"`
			} `json:"info"`
		} `json:"run"`
	}
	if err := c.postJSON("/runs/create", req, &resp); err != nil {
		return "", err
	}
	if resp.Run.Info.RunID == "" {
		return "", errors.New("tracking server returned an empty run id")
	}
	return resp.Run.Info.RunID, nil
}

// LogParam records one run parameter.
func (c *Client) LogParam(runID, key, value string) error {
	return c.postJSON("/runs/log-parameter", map[string]string{
		"run_id": runID,
		"key":    key,
		"value":  value,
	}, nil)
}

// LogBatch records a set of parameters and metrics in one call.
func (c *Client) LogBatch(runID string, params map[string]string, metrics map[string]float64) error {
	type kv struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	type metric struct {
		Key       string  `json:"key"`
		Value     float64 `json:"value"`
		Timestamp int64   `json:"timestamp"`
		Step      int64   `json:"step"`
	}
	req := struct {
		RunID   string   `json:"run_id"`
		Params  []kv     `json:"params,omitempty"`
		Metrics []metric `json:"metrics,omitempty"`
	}{RunID: runID}
	for k, v := range params {
		req.Params = append(req.Params, kv{Key: k, Value: v})
	}
	now := time.Now().UnixMilli()
	for k, v := range metrics {
		req.Metrics = append(req.Metrics, metric{Key: k, Value: v, Timestamp: now})
	}
	return c.postJSON("/runs/log-batch", req, nil)
}

// UpdateRun moves the run to a terminal status (FINISHED or FAILED).
func (c *Client) UpdateRun(runID, status string) error {
	return c.postJSON("/runs/update", map[string]any{
		"run_id":   runID,
		"status":   status,
		"end_time": time.Now().UnixMilli(),
	}, nil)
}

// UploadArtifact PUTs one local file into the run's artifact store under
// artifactPath (the proxied mlflow-artifacts endpoint).
func (c *Client) UploadArtifact(experimentID, runID, localPath, artifactPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return errors.Wrapf(err, "opening artifact %s", localPath)
	}
	defer f.Close()

	remote := path.Join(experimentID, runID, "artifacts", artifactPath, path.Base(localPath))
	u := fmt.Sprintf("%s/api/2.0/mlflow-artifacts/artifacts/%s", c.baseURL, remote)

	req, err := http.NewRequest(http.MethodPut, u, f)
	if err != nil {
		return errors.Wrap(err, "building artifact request")
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "uploading artifact %s", localPath)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return errors.Newf("tracking server: artifact upload returned %d: %s", resp.StatusCode, truncate(data, 200))
	}
	return nil
}

// ArtifactURI returns the server-side base URI of a run's artifacts.
func (c *Client) ArtifactURI(experimentID, runID string) string {
	return fmt.Sprintf("%s/api/2.0/mlflow-artifacts/artifacts/%s/%s/artifacts", c.baseURL, experimentID, runID)
}
