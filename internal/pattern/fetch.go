package pattern

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// DefaultWorkflowBaseURL is the upstream location of the pattern workflows.
const DefaultWorkflowBaseURL = "https://raw.githubusercontent.com/eoap/application-package-patterns/main/cwl-workflow"

// Fetcher downloads pattern workflow documents into the store's cache.
type Fetcher struct {
	store   *Store
	baseURL string
	force   bool

	httpClient *http.Client
}

// NewFetcher creates a fetcher over the given store. An empty baseURL uses
// the upstream repository. force re-downloads files already in the cache.
func NewFetcher(store *Store, baseURL string, force bool) *Fetcher {
	if baseURL == "" {
		baseURL = DefaultWorkflowBaseURL
	}
	return &Fetcher{
		store:      store,
		baseURL:    baseURL,
		force:      force,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// SetHTTPClient overrides the HTTP client, for tests.
func (f *Fetcher) SetHTTPClient(c *http.Client) {
	f.httpClient = c
}

// Fetch ensures the workflow document for a pattern is present in the cache
// and returns its path. Cached files are reused unless force is set.
func (f *Fetcher) Fetch(ctx context.Context, patternID string) (string, error) {
	if !ValidID(patternID) {
		return "", fmt.Errorf("malformed pattern id %q", patternID)
	}

	destPath := filepath.Join(f.store.WorkflowDir(), patternID+".cwl")
	if !f.force {
		if _, err := os.Stat(destPath); err == nil {
			slog.Debug("Workflow already cached", "patternId", patternID, "path", destPath)
			return destPath, nil
		}
	}

	url := f.baseURL + "/" + patternID + ".cwl"
	slog.Info("Downloading workflow", "patternId", patternID, "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download workflow: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("workflow download failed with status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	// Write to a temp file first so a failed download never leaves a
	// truncated document in the cache.
	tmp, err := os.CreateTemp(filepath.Dir(destPath), "."+patternID+"-*.cwl")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		tmp.Close()
		os.Remove(tmpName)
	}()

	written, err := io.Copy(tmp, resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to write workflow: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return "", fmt.Errorf("failed to sync workflow: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close workflow: %w", err)
	}
	if err := os.Rename(tmpName, destPath); err != nil {
		return "", fmt.Errorf("failed to move workflow into cache: %w", err)
	}

	slog.Debug("Downloaded workflow", "bytes", written, "path", destPath)
	return destPath, nil
}
