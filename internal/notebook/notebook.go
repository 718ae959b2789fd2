// Package notebook extracts default pattern parameters from upstream
// Jupyter notebook sources. The interesting part is the parameter block
// parser: notebooks assign a literal mapping to a fixed variable, and that
// mapping is recovered with a strict literal-only parser that refuses
// anything resembling code, falling back to a looser structured-data
// grammar only for benign syntax differences.
package notebook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"ogctester/internal/pattern"
)

// DefaultNotebookBaseURL is the upstream location of the pattern notebooks.
const DefaultNotebookBaseURL = "https://raw.githubusercontent.com/eoap/application-package-patterns/main/docs"

// Notebook is the subset of the ipynb document model the extractor needs.
type Notebook struct {
	Cells []Cell `json:"cells"`
}

// Cell is one notebook cell with its source joined to a single string.
type Cell struct {
	CellType string     `json:"cell_type"`
	Source   cellSource `json:"source"`
}

// cellSource accepts both ipynb source encodings: a single string or a
// list of line fragments.
type cellSource string

func (s *cellSource) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = cellSource(single)
		return nil
	}
	var lines []string
	if err := json.Unmarshal(data, &lines); err != nil {
		return fmt.Errorf("cell source is neither string nor string list")
	}
	*s = cellSource(strings.Join(lines, ""))
	return nil
}

// Parse decodes an ipynb document.
func Parse(data []byte) (*Notebook, error) {
	var nb Notebook
	if err := json.Unmarshal(data, &nb); err != nil {
		return nil, fmt.Errorf("decode notebook: %w", err)
	}
	return &nb, nil
}

// Fetcher downloads pattern notebooks from the upstream repository.
type Fetcher struct {
	baseURL    string
	httpClient *http.Client
}

// NewFetcher creates a notebook fetcher. An empty baseURL uses the
// upstream repository.
func NewFetcher(baseURL string) *Fetcher {
	if baseURL == "" {
		baseURL = DefaultNotebookBaseURL
	}
	return &Fetcher{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// SetHTTPClient overrides the HTTP client, for tests.
func (f *Fetcher) SetHTTPClient(c *http.Client) {
	f.httpClient = c
}

// Fetch downloads and decodes the notebook for a pattern.
func (f *Fetcher) Fetch(ctx context.Context, patternID string) (*Notebook, error) {
	if !pattern.ValidID(patternID) {
		return nil, fmt.Errorf("malformed pattern id %q", patternID)
	}

	url := f.baseURL + "/" + patternID + ".ipynb"
	slog.Info("Downloading notebook", "patternId", patternID, "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download notebook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("notebook download failed with status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read notebook: %w", err)
	}
	return Parse(data)
}
