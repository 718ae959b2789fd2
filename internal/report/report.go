// Package report renders batch summaries for operators and persists them
// as structured report files.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"

	"ogctester/internal/runner"
)

// view is the persisted report shape. Durations are stored in seconds so
// reports stay readable without a decoder for nanosecond counts.
type view struct {
	RunID          string       `json:"runId" yaml:"runId"`
	GeneratedAt    time.Time    `json:"generatedAt" yaml:"generatedAt"`
	Total          int          `json:"total" yaml:"total"`
	Successful     int          `json:"successful" yaml:"successful"`
	Failed         int          `json:"failed" yaml:"failed"`
	SuccessRate    float64      `json:"successRate" yaml:"successRate"`
	ElapsedSeconds float64      `json:"elapsedSeconds" yaml:"elapsedSeconds"`
	Results        []resultView `json:"results" yaml:"results"`
}

type resultView struct {
	PatternID      string  `json:"patternId" yaml:"patternId"`
	Outcome        string  `json:"outcome" yaml:"outcome"`
	Success        bool    `json:"success" yaml:"success"`
	Message        string  `json:"message" yaml:"message"`
	ElapsedSeconds float64 `json:"elapsedSeconds" yaml:"elapsedSeconds"`
	ProcessID      string  `json:"processId,omitempty" yaml:"processId,omitempty"`
	JobID          string  `json:"jobId,omitempty" yaml:"jobId,omitempty"`
}

func newView(s runner.Summary) view {
	v := view{
		RunID:          s.RunID,
		GeneratedAt:    time.Now().UTC(),
		Total:          s.Total,
		Successful:     s.Successful,
		Failed:         s.Failed,
		SuccessRate:    s.SuccessRate(),
		ElapsedSeconds: s.Elapsed.Seconds(),
		Results:        make([]resultView, 0, len(s.Results)),
	}
	for _, r := range s.Results {
		v.Results = append(v.Results, resultView{
			PatternID:      r.PatternID,
			Outcome:        string(r.Outcome),
			Success:        r.Success,
			Message:        r.Message,
			ElapsedSeconds: r.Elapsed.Seconds(),
			ProcessID:      r.ProcessID,
			JobID:          r.JobID,
		})
	}
	return v
}

// RenderSummary writes a human-readable result table.
func RenderSummary(w io.Writer, s runner.Summary) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"#", "Pattern", "Outcome", "Elapsed", "Message"})

	for i, r := range s.Results {
		outcome := string(r.Outcome)
		switch r.Outcome {
		case runner.OutcomeSucceeded:
			outcome = text.FgGreen.Sprint(outcome)
		case runner.OutcomeInterrupted:
			outcome = text.FgYellow.Sprint(outcome)
		default:
			outcome = text.FgRed.Sprint(outcome)
		}
		tw.AppendRow(table.Row{i + 1, r.PatternID, outcome, r.Elapsed.Round(time.Second), r.Message})
	}
	tw.AppendFooter(table.Row{"", "total", fmt.Sprintf("%d/%d ok", s.Successful, s.Total),
		s.Elapsed.Round(time.Second), fmt.Sprintf("%.0f%% success", s.SuccessRate())})
	tw.Render()
}

// Write persists the summary to path, choosing the format by extension:
// .yaml/.yml for YAML, anything else JSON.
func Write(path string, s runner.Summary) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(newView(s))
	default:
		data, err = json.MarshalIndent(newView(s), "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return writeAtomic(path, data)
}

// writeAtomic lands the report under its final name only after a complete
// write.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		tmp.Close()
		os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close report: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("move report into place: %w", err)
	}
	return nil
}
