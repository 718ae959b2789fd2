package ogc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"ogctester/internal/apperrors"
	"ogctester/internal/config"
)

// cleanupTimeout bounds individual release calls so a wedged server cannot
// stall the cleanup sweep.
const cleanupTimeout = 5 * time.Second

// Client talks to one OGC API Processes server. All requests carry the
// configured credential; 401/403 responses surface as AuthenticationError.
type Client struct {
	baseURL string
	cred    config.Credential

	httpClient *http.Client
	// cleanupClient uses a short timeout for dismiss/undeploy during cleanup.
	cleanupClient *http.Client
}

// NewClient creates a client from the server configuration.
func NewClient(cfg *config.ServerConfig) *Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Client{
		baseURL:       cfg.NormalizedBaseURL(),
		cred:          cfg.Credential(),
		httpClient:    &http.Client{Timeout: cfg.Timeout, Transport: transport},
		cleanupClient: &http.Client{Timeout: cleanupTimeout, Transport: transport},
	}
}

// BaseURL returns the normalized server base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// addAuth sets the Authorization header per the configured credential.
func (c *Client) addAuth(req *http.Request) {
	switch c.cred.Kind {
	case config.CredentialBearer:
		req.Header.Set("Authorization", "Bearer "+c.cred.Token)
	case config.CredentialBasic:
		req.SetBasicAuth(c.cred.Username, c.cred.Password)
	case config.CredentialAPIKey:
		req.Header.Set("Authorization", "Bearer "+c.cred.Token)
	}
}

func (c *Client) do(ctx context.Context, client *http.Client, method, path, contentType string, body []byte) (*http.Response, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	c.addAuth(req)

	return client.Do(req)
}

// readBody drains and closes the response body, returning a trimmed snippet
// for error messages.
func readBody(resp *http.Response) string {
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// Deploy registers a workflow document under processID.
// The document is treated as an opaque blob: it is normalized through YAML
// so JSON-shaped input still deploys as application/cwl+yaml, but its
// contents are never interpreted. A 409 conflict means the process already
// exists on the server and counts as deployed.
func (c *Client) Deploy(ctx context.Context, processID string, workflowDoc []byte) (string, error) {
	normalized, err := normalizeCWL(workflowDoc)
	if err != nil {
		return "", fmt.Errorf("normalize workflow document: %w", err)
	}

	slog.Info("Deploying process", "processId", processID, "server", c.baseURL)

	resp, err := c.do(ctx, c.httpClient, http.MethodPost, "/processes", "application/cwl+yaml", normalized)
	if err != nil {
		return "", err
	}

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		readBody(resp)
		return processID, nil
	case resp.StatusCode == http.StatusConflict:
		readBody(resp)
		slog.Info("Process already exists on server", "processId", processID)
		return processID, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		readBody(resp)
		return "", apperrors.Authentication("ogc.deploy", resp.StatusCode)
	default:
		return "", fmt.Errorf("deploy returned HTTP %d: %s", resp.StatusCode, readBody(resp))
	}
}

// executeRequest is the body of an execute call.
type executeRequest struct {
	Inputs   json.RawMessage `json:"inputs"`
	Response string          `json:"response"`
}

// Execute starts an asynchronous job for a deployed process and returns the
// server-assigned job id, taken from the Location header or the body.
func (c *Client) Execute(ctx context.Context, processID string, params json.RawMessage) (string, error) {
	if len(params) == 0 {
		params = json.RawMessage(`{}`)
	}
	body, err := json.Marshal(executeRequest{Inputs: params, Response: "document"})
	if err != nil {
		return "", fmt.Errorf("marshal execute request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/processes/"+processID+"/execution", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Prefer", "respond-async")
	c.addAuth(req)

	slog.Info("Executing process", "processId", processID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		readBody(resp)
		return "", apperrors.Authentication("ogc.execute", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("execute returned HTTP %d: %s", resp.StatusCode, readBody(resp))
	}

	if location := resp.Header.Get("Location"); location != "" {
		readBody(resp)
		parts := strings.Split(strings.TrimRight(location, "/"), "/")
		jobID := parts[len(parts)-1]
		slog.Debug("Job id from Location header", "jobId", jobID)
		return jobID, nil
	}

	var info StatusInfo
	data, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		return "", fmt.Errorf("read execute response: %w", readErr)
	}
	if err := json.Unmarshal(data, &info); err != nil || info.JobID == "" {
		return "", fmt.Errorf("no job id in execute response for process %s", processID)
	}
	slog.Debug("Job id from response body", "jobId", info.JobID)
	return info.JobID, nil
}

// JobStatus returns the current status of a job.
func (c *Client) JobStatus(ctx context.Context, jobID string) (*StatusInfo, error) {
	resp, err := c.do(ctx, c.httpClient, http.MethodGet, "/jobs/"+jobID, "", nil)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		readBody(resp)
		return nil, apperrors.Authentication("ogc.status", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("job status returned HTTP %d: %s", resp.StatusCode, readBody(resp))
	}

	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read status response: %w", err)
	}
	var info StatusInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("decode status response: %w", err)
	}
	if info.JobID == "" {
		info.JobID = jobID
	}
	return &info, nil
}

// DismissJob cancels and removes a job. Already-gone jobs are not an error.
func (c *Client) DismissJob(ctx context.Context, jobID string) error {
	resp, err := c.do(ctx, c.cleanupClient, http.MethodDelete, "/jobs/"+jobID, "", nil)
	if err != nil {
		return err
	}
	code := resp.StatusCode
	readBody(resp)

	switch {
	case code == http.StatusOK || code == http.StatusNoContent || code == http.StatusNotFound:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return apperrors.Authentication("ogc.dismiss", code)
	default:
		return fmt.Errorf("dismiss job %s returned HTTP %d", jobID, code)
	}
}

// Undeploy removes a process from the server. Any jobs still listed for the
// process are dismissed first; failures there are logged and do not block
// the process deletion itself.
func (c *Client) Undeploy(ctx context.Context, processID string) error {
	jobs, err := c.ListJobs(ctx, processID)
	if err != nil {
		slog.Warn("Listing jobs during undeploy failed", "processId", processID, "error", err)
	}
	for _, jobID := range jobs {
		if err := c.DismissJob(ctx, jobID); err != nil {
			slog.Warn("Dismissing job during undeploy failed", "jobId", jobID, "error", err)
		}
	}

	resp, err := c.do(ctx, c.cleanupClient, http.MethodDelete, "/processes/"+processID, "", nil)
	if err != nil {
		return err
	}
	code := resp.StatusCode
	body := readBody(resp)

	switch {
	case code == http.StatusOK || code == http.StatusNoContent || code == http.StatusNotFound:
		slog.Info("Process undeployed", "processId", processID)
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return apperrors.Authentication("ogc.undeploy", code)
	default:
		return fmt.Errorf("undeploy process %s returned HTTP %d: %s", processID, code, body)
	}
}

// jobList is the server's job list response.
type jobList struct {
	Jobs []struct {
		JobID string `json:"jobID"`
	} `json:"jobs"`
}

// ListJobs returns the ids of jobs on the server, optionally filtered by
// owning process.
func (c *Client) ListJobs(ctx context.Context, processID string) ([]string, error) {
	path := "/jobs"
	if processID != "" {
		path += "?processID=" + processID
	}
	resp, err := c.do(ctx, c.cleanupClient, http.MethodGet, path, "", nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		readBody(resp)
		return nil, apperrors.Authentication("ogc.jobs", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list jobs returned HTTP %d: %s", resp.StatusCode, readBody(resp))
	}

	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read jobs response: %w", err)
	}
	var list jobList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("decode jobs response: %w", err)
	}
	ids := make([]string, 0, len(list.Jobs))
	for _, j := range list.Jobs {
		if j.JobID != "" {
			ids = append(ids, j.JobID)
		}
	}
	return ids, nil
}

// processList is the server's process list response.
type processList struct {
	Processes []ProcessSummary `json:"processes"`
}

// ListProcesses returns the processes available on the server.
func (c *Client) ListProcesses(ctx context.Context) ([]ProcessSummary, error) {
	resp, err := c.do(ctx, c.httpClient, http.MethodGet, "/processes", "", nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		readBody(resp)
		return nil, apperrors.Authentication("ogc.processes", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list processes returned HTTP %d: %s", resp.StatusCode, readBody(resp))
	}

	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read processes response: %w", err)
	}
	var list processList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("decode processes response: %w", err)
	}
	return list.Processes, nil
}

// DescribeProcess returns the detailed description of one process.
func (c *Client) DescribeProcess(ctx context.Context, processID string) (*ProcessDescription, error) {
	resp, err := c.do(ctx, c.httpClient, http.MethodGet, "/processes/"+processID, "", nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		readBody(resp)
		return nil, apperrors.Authentication("ogc.describe", resp.StatusCode)
	}
	if resp.StatusCode == http.StatusNotFound {
		readBody(resp)
		return nil, fmt.Errorf("process %s not found on server", processID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("describe process returned HTTP %d: %s", resp.StatusCode, readBody(resp))
	}

	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read description response: %w", err)
	}
	var desc ProcessDescription
	if err := json.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("decode description response: %w", err)
	}
	return &desc, nil
}

// Ready probes the server landing page.
func (c *Client) Ready(ctx context.Context) error {
	resp, err := c.do(ctx, c.cleanupClient, http.MethodGet, "/", "", nil)
	if err != nil {
		return err
	}
	code := resp.StatusCode
	readBody(resp)
	if code == http.StatusUnauthorized || code == http.StatusForbidden {
		return apperrors.Authentication("ogc.ready", code)
	}
	if code >= 500 {
		return fmt.Errorf("server returned HTTP %d", code)
	}
	return nil
}

// normalizeCWL re-serializes a workflow document as YAML. CWL files are
// usually YAML already; JSON input is valid YAML so both shapes pass through.
func normalizeCWL(doc []byte) ([]byte, error) {
	var parsed any
	if err := yaml.Unmarshal(doc, &parsed); err != nil {
		return nil, err
	}
	return yaml.Marshal(parsed)
}
