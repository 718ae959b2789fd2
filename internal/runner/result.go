package runner

import "time"

// Outcome is the terminal cause of one pattern run.
type Outcome string

const (
	OutcomeSucceeded   Outcome = "succeeded"
	OutcomeFailed      Outcome = "failed"
	OutcomeTimedOut    Outcome = "timed_out"
	OutcomeInterrupted Outcome = "interrupted"
)

// ExecutionResult describes one pattern run attempt. Immutable once the run
// reaches Done; exactly one is produced per attempt, including timeout and
// interruption cases.
type ExecutionResult struct {
	PatternID string        `json:"patternId" yaml:"patternId"`
	Outcome   Outcome       `json:"outcome" yaml:"outcome"`
	Success   bool          `json:"success" yaml:"success"`
	Message   string        `json:"message" yaml:"message"`
	Elapsed   time.Duration `json:"elapsed" yaml:"elapsed"`
	JobID     string        `json:"jobId,omitempty" yaml:"jobId,omitempty"`
	ProcessID string        `json:"processId,omitempty" yaml:"processId,omitempty"`
}

// Summary aggregates a batch of pattern runs in submission order.
type Summary struct {
	RunID      string            `json:"runId" yaml:"runId"`
	Total      int               `json:"total" yaml:"total"`
	Successful int               `json:"successful" yaml:"successful"`
	Failed     int               `json:"failed" yaml:"failed"`
	Elapsed    time.Duration     `json:"elapsed" yaml:"elapsed"`
	Results    []ExecutionResult `json:"results" yaml:"results"`
}

// NewSummary computes the aggregate counts for a result sequence.
func NewSummary(runID string, results []ExecutionResult, elapsed time.Duration) Summary {
	successful := 0
	for _, r := range results {
		if r.Success {
			successful++
		}
	}
	return Summary{
		RunID:      runID,
		Total:      len(results),
		Successful: successful,
		Failed:     len(results) - successful,
		Elapsed:    elapsed,
		Results:    results,
	}
}

// SuccessRate returns the percentage of successful runs.
func (s Summary) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Successful) / float64(s.Total) * 100
}
