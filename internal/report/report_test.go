package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"ogctester/internal/runner"
)

func sampleSummary() runner.Summary {
	return runner.NewSummary("run-42", []runner.ExecutionResult{
		{PatternID: "pattern-1", Outcome: runner.OutcomeSucceeded, Success: true,
			Message: "job completed: succeeded", Elapsed: 92 * time.Second,
			ProcessID: "pattern-1", JobID: "job-1"},
		{PatternID: "pattern-2", Outcome: runner.OutcomeTimedOut, Success: false,
			Message: "monitoring timed out", Elapsed: 30 * time.Minute},
	}, 32*time.Minute)
}

func TestRenderSummary(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	RenderSummary(&buf, sampleSummary())
	// go-pretty upper-cases footer rows; compare case-folded.
	out := strings.ToLower(buf.String())

	for _, want := range []string{"pattern-1", "pattern-2", "succeeded", "timed_out", "1/2 ok", "50% success"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, buf.String())
		}
	}
}

func TestWriteJSONReport(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "report.json")
	if err := Write(path, sampleSummary()); err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var v view
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if v.RunID != "run-42" || v.Total != 2 || v.Successful != 1 || v.Failed != 1 {
		t.Errorf("report = %+v", v)
	}
	if len(v.Results) != 2 || v.Results[0].PatternID != "pattern-1" {
		t.Errorf("results = %+v", v.Results)
	}
	if v.Results[1].ElapsedSeconds != 1800 {
		t.Errorf("elapsed = %v, want 1800", v.Results[1].ElapsedSeconds)
	}
	if v.GeneratedAt.IsZero() {
		t.Error("report has no generation time")
	}
}

func TestWriteYAMLReport(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "report.yaml")
	if err := Write(path, sampleSummary()); err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var v view
	if err := yaml.Unmarshal(data, &v); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if v.SuccessRate != 50 {
		t.Errorf("success rate = %v, want 50", v.SuccessRate)
	}
}
