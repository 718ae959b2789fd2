// Package pattern provides access to local pattern definitions: one JSON
// parameter file per pattern plus a cache of downloaded workflow documents.
package pattern

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"ogctester/internal/apperrors"
)

// idPattern matches pattern identifiers of the form "pattern-<n>".
var idPattern = regexp.MustCompile(`^pattern-(\d+)$`)

// ValidID reports whether id is a well-formed pattern identifier.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// Descriptor describes one pattern. Read-only once loaded.
type Descriptor struct {
	ID           string
	WorkflowPath string
	ParamsPath   string
}

// Store resolves pattern ids against a directory of parameter files and a
// workflow cache directory.
type Store struct {
	patternsDir string
	workflowDir string
}

// NewStore creates a store, creating both directories if needed.
func NewStore(patternsDir, workflowDir string) (*Store, error) {
	if err := os.MkdirAll(patternsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create patterns dir: %w", err)
	}
	if err := os.MkdirAll(workflowDir, 0o755); err != nil {
		return nil, fmt.Errorf("create workflow dir: %w", err)
	}
	return &Store{patternsDir: patternsDir, workflowDir: workflowDir}, nil
}

// PatternsDir returns the parameter file directory.
func (s *Store) PatternsDir() string { return s.patternsDir }

// WorkflowDir returns the workflow cache directory.
func (s *Store) WorkflowDir() string { return s.workflowDir }

// Get resolves a pattern id. A missing parameter file means the pattern is
// unknown to this store.
func (s *Store) Get(id string) (*Descriptor, error) {
	paramsPath := filepath.Join(s.patternsDir, id+".json")
	if _, err := os.Stat(paramsPath); err != nil {
		return nil, apperrors.PatternNotFound(id)
	}
	return &Descriptor{
		ID:           id,
		WorkflowPath: filepath.Join(s.workflowDir, id+".cwl"),
		ParamsPath:   paramsPath,
	}, nil
}

// Params loads the raw parameter document for a pattern.
func (s *Store) Params(id string) (json.RawMessage, error) {
	desc, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(desc.ParamsPath)
	if err != nil {
		return nil, fmt.Errorf("read params for %s: %w", id, err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("params file for %s is not valid JSON", id)
	}
	return json.RawMessage(data), nil
}

// Workflow loads the cached workflow document for a pattern.
func (s *Store) Workflow(id string) ([]byte, error) {
	desc, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(desc.WorkflowPath)
	if err != nil {
		return nil, fmt.Errorf("read workflow for %s: %w", id, err)
	}
	return data, nil
}

// List returns all pattern ids present in the store, sorted numerically by
// pattern number so pattern-10 follows pattern-9.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.patternsDir)
	if err != nil {
		return nil, fmt.Errorf("read patterns dir: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".json")
		if name == entry.Name() {
			continue
		}
		if ValidID(name) {
			ids = append(ids, name)
		}
	}

	sort.Slice(ids, func(i, j int) bool {
		return patternNumber(ids[i]) < patternNumber(ids[j])
	})
	return ids, nil
}

func patternNumber(id string) int {
	m := idPattern.FindStringSubmatch(id)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}
