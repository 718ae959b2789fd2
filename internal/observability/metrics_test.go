package observability

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMetricsExposition(t *testing.T) {
	ctx := context.Background()
	m, handler, err := NewMetrics(ctx)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	m.RecordRunStarted(ctx, "pattern-1")
	m.RecordDeploy(ctx, "pattern-1")
	m.RecordStatusPoll(ctx, "pattern-1")
	m.RecordRunFinished(ctx, "pattern-1", "succeeded", true, 12.5)
	m.RecordRunStarted(ctx, "pattern-2")
	m.RecordRunFinished(ctx, "pattern-2", "failed", false, 3.0)
	m.RecordCleanupFailure(ctx, "pattern-2")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	text := string(body)

	for _, want := range []string{
		"pattern_runs_total",
		"pattern_run_duration_seconds",
		"pattern_run_errors_total",
		"pattern_deploys_total",
		"pattern_status_polls_total",
		"pattern_cleanup_failures_total",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}
