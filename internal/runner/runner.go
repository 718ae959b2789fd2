// Package runner drives the deploy → execute → monitor → cleanup state
// machine for pattern runs against an OGC API Processes server.
//
// The central correctness property is that cleanup runs on every exit path,
// including timeout and cancellation, so an interrupted batch never leaks
// server-side processes or jobs. Each run has a single deferred release
// section; cleanup failures are logged and never overwrite the execution
// verdict.
package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"ogctester/internal/apperrors"
	"ogctester/internal/observability"
	"ogctester/internal/ogc"
	"ogctester/internal/pattern"
	"ogctester/internal/registry"
	"ogctester/pkg/retry"
)

// ProcessService is the remote collaborator consumed by the runner.
// Implemented by *ogc.Client.
type ProcessService interface {
	Deploy(ctx context.Context, processID string, workflowDoc []byte) (string, error)
	Execute(ctx context.Context, processID string, params json.RawMessage) (string, error)
	JobStatus(ctx context.Context, jobID string) (*ogc.StatusInfo, error)
	DismissJob(ctx context.Context, jobID string) error
	Undeploy(ctx context.Context, processID string) error
}

// Options tune the runner. Zero values use defaults.
type Options struct {
	PollInterval   time.Duration // default: 10s
	DeployAttempts int           // default: 3
	DeployBackoff  *retry.Config

	// SkipCleanup leaves processes and jobs on the server after a run, for
	// debugging a failing pattern. Entries stay in the registry so a later
	// cleanup sweep can release them.
	SkipCleanup bool
}

// Runner orchestrates pattern runs. Safe for use by a bounded-parallel
// batch: the registry is the only shared mutable state and is internally
// synchronized.
type Runner struct {
	store   *pattern.Store
	fetcher *pattern.Fetcher
	client  ProcessService
	reg     *registry.Registry
	metrics *observability.Metrics // nil disables metric recording

	pollInterval   time.Duration
	deployAttempts int
	deployBackoff  *retry.Config
	skipCleanup    bool
}

// New creates a runner.
func New(store *pattern.Store, fetcher *pattern.Fetcher, client ProcessService, reg *registry.Registry, metrics *observability.Metrics, opts Options) *Runner {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 10 * time.Second
	}
	if opts.DeployAttempts <= 0 {
		opts.DeployAttempts = 3
	}
	return &Runner{
		store:          store,
		fetcher:        fetcher,
		client:         client,
		reg:            reg,
		metrics:        metrics,
		pollInterval:   opts.PollInterval,
		deployAttempts: opts.DeployAttempts,
		deployBackoff:  opts.DeployBackoff,
		skipCleanup:    opts.SkipCleanup,
	}
}

// Registry exposes the cleanup registry for status inspection.
func (r *Runner) Registry() *registry.Registry {
	return r.reg
}

// RunSingle executes the full lifecycle of one pattern. It never returns an
// error: every failure, timeout or interruption is folded into the result.
// A zero timeout disables the monitoring bound.
func (r *Runner) RunSingle(ctx context.Context, patternID string, timeout time.Duration) (result ExecutionResult) {
	start := time.Now()
	logger := slog.With("patternId", patternID)
	result = ExecutionResult{PatternID: patternID, Outcome: OutcomeFailed}

	if r.metrics != nil {
		r.metrics.RecordRunStarted(ctx, patternID)
	}
	defer func() {
		result.Elapsed = time.Since(start)
		result.Success = result.Outcome == OutcomeSucceeded
		if r.metrics != nil {
			r.metrics.RecordRunFinished(ctx, patternID, string(result.Outcome), result.Success, result.Elapsed.Seconds())
		}
		logger.Info("Pattern run finished", "outcome", result.Outcome, "elapsed", result.Elapsed)
	}()

	// Local resolution happens before any remote call; an unknown id never
	// contacts the server.
	if _, err := r.store.Get(patternID); err != nil {
		result.Message = err.Error()
		return result
	}

	if _, err := r.fetcher.Fetch(ctx, patternID); err != nil {
		result.Message = fmt.Sprintf("workflow for %s unavailable: %v", patternID, err)
		return result
	}
	workflow, err := r.store.Workflow(patternID)
	if err != nil {
		result.Message = err.Error()
		return result
	}
	params, err := r.store.Params(patternID)
	if err != nil {
		result.Message = err.Error()
		return result
	}

	logger.Info("Starting pattern run", "timeout", timeout)

	processID, err := r.deploy(ctx, patternID, workflow)
	if err != nil {
		if ctx.Err() != nil {
			result.Outcome = OutcomeInterrupted
			result.Message = apperrors.Interrupted(patternID).Error()
		} else {
			result.Message = apperrors.Deployment(patternID, err).Error()
		}
		// The process may have been partially created before the failure;
		// release it without going through the registry.
		if !r.skipCleanup {
			r.releasePartialDeploy(ctx, patternID, logger)
		}
		return result
	}

	result.ProcessID = processID
	r.reg.Register(processID)
	if r.metrics != nil {
		r.metrics.RecordDeploy(ctx, patternID)
	}
	logger.Info("Process deployed", "processId", processID)

	// Single deferred release section covering every exit path below,
	// including the cancellation exit.
	defer func() {
		if r.skipCleanup {
			logger.Warn("Cleanup skipped, resources left on server", "processId", processID)
			return
		}
		if !r.Cleanup(ctx, patternID) {
			result.Message += " (warning: cleanup failed)"
		}
	}()

	jobID, err := r.client.Execute(ctx, processID, params)
	if err != nil {
		if ctx.Err() != nil {
			result.Outcome = OutcomeInterrupted
			result.Message = apperrors.Interrupted(patternID).Error()
		} else {
			result.Message = apperrors.Execution(patternID, err).Error()
		}
		return result
	}

	result.JobID = jobID
	r.reg.SetJob(processID, jobID)
	logger.Info("Job started", "jobId", jobID)

	result.Outcome, result.Message = r.monitor(ctx, patternID, jobID, timeout)
	return result
}

// RunMultiple executes patterns strictly sequentially in the given order.
// Each pattern's full lifecycle, cleanup included, completes before the
// next begins. With continueOnError false the batch stops at the first
// non-successful result; remaining ids are not attempted and do not appear
// in the summary. Cancellation is checked before each new pattern.
func (r *Runner) RunMultiple(ctx context.Context, patternIDs []string, timeout time.Duration, continueOnError bool) Summary {
	runID := uuid.NewString()
	start := time.Now()
	slog.Info("Starting batch run", "runId", runID, "patterns", len(patternIDs))

	var results []ExecutionResult
	for _, id := range patternIDs {
		if ctx.Err() != nil {
			slog.Warn("Cancellation requested, not starting remaining patterns", "runId", runID)
			break
		}
		results = append(results, r.RunSingle(ctx, id, timeout))
		if last := results[len(results)-1]; !last.Success && !continueOnError {
			if len(results) < len(patternIDs) {
				slog.Warn("Stopping batch at first failure", "patternId", last.PatternID)
			}
			break
		}
	}

	summary := NewSummary(runID, results, time.Since(start))
	slog.Info("Batch run complete", "runId", runID,
		"successful", summary.Successful, "failed", summary.Failed, "elapsed", summary.Elapsed)
	return summary
}

// RunParallel executes patterns with at most limit lifecycles in flight.
// Results keep submission order. Each pattern's own deploy → execute →
// monitor → cleanup sequence remains atomic from the registry's
// perspective; the registry is internally synchronized.
func (r *Runner) RunParallel(ctx context.Context, patternIDs []string, timeout time.Duration, limit int) Summary {
	if limit <= 1 {
		return r.RunMultiple(ctx, patternIDs, timeout, true)
	}

	runID := uuid.NewString()
	start := time.Now()
	slog.Info("Starting parallel batch run", "runId", runID, "patterns", len(patternIDs), "limit", limit)

	results := make([]ExecutionResult, len(patternIDs))
	g := new(errgroup.Group)
	g.SetLimit(limit)
	for i, id := range patternIDs {
		g.Go(func() error {
			results[i] = r.RunSingle(ctx, id, timeout)
			return nil
		})
	}
	g.Wait()

	summary := NewSummary(runID, results, time.Since(start))
	slog.Info("Parallel batch run complete", "runId", runID,
		"successful", summary.Successful, "failed", summary.Failed, "elapsed", summary.Elapsed)
	return summary
}

// Cleanup releases whatever the registry tracks for a pattern: the job is
// dismissed first, then the process undeployed. Idempotent: returns true
// when nothing is registered. The entry is unregistered only once the
// process release is confirmed, so a failed release stays recoverable by a
// later sweep. Runs detached from the caller's cancellation so an
// interrupted run still cleans up.
func (r *Runner) Cleanup(ctx context.Context, patternID string) bool {
	entry, ok := r.reg.Get(patternID)
	if !ok {
		return true
	}

	cleanupCtx := context.WithoutCancel(ctx)
	logger := slog.With("patternId", patternID)
	logger.Info("Cleaning up pattern", "processId", entry.ProcessID, "jobId", entry.JobID)

	if entry.JobID != "" {
		if err := r.client.DismissJob(cleanupCtx, entry.JobID); err != nil {
			logger.Warn("Dismissing job failed", "jobId", entry.JobID, "error", err)
		}
	}
	if err := r.client.Undeploy(cleanupCtx, entry.ProcessID); err != nil {
		logger.Warn("Undeploying process failed", "processId", entry.ProcessID, "error", err)
		if r.metrics != nil {
			r.metrics.RecordCleanupFailure(ctx, patternID)
		}
		return false
	}

	r.reg.Unregister(entry.ProcessID)
	return true
}

// CleanupAll sweeps every outstanding registry entry, e.g. after a failed
// batch left resources stranded. Returns how many were released.
func (r *Runner) CleanupAll(ctx context.Context) int {
	return r.reg.CleanupAll(context.WithoutCancel(ctx), r.client)
}

// deploy performs the remote deploy with bounded retries.
func (r *Runner) deploy(ctx context.Context, patternID string, workflow []byte) (string, error) {
	var processID string
	err := retry.Do(ctx, r.deployAttempts, r.deployBackoff, func(ctx context.Context) error {
		id, err := r.client.Deploy(ctx, patternID, workflow)
		if err != nil {
			// Rejected credentials will not improve on retry.
			if errors.Is(err, apperrors.ErrAuthentication) {
				return retry.Permanent(err)
			}
			slog.Warn("Deploy attempt failed", "patternId", patternID, "error", err)
			return err
		}
		processID = id
		return nil
	})
	return processID, err
}

// releasePartialDeploy best-effort releases a process whose deploy call
// failed midway. Tolerates the process not existing at all.
func (r *Runner) releasePartialDeploy(ctx context.Context, processID string, logger *slog.Logger) {
	if err := r.client.Undeploy(context.WithoutCancel(ctx), processID); err != nil {
		logger.Debug("Releasing partially deployed process failed", "processId", processID, "error", err)
	}
}

// monitor polls job status at the configured interval until a terminal
// status, the timeout, or cancellation. Cancellation is re-checked between
// polls, so its latency is one poll interval, not the full timeout.
func (r *Runner) monitor(ctx context.Context, patternID, jobID string, timeout time.Duration) (Outcome, string) {
	logger := slog.With("patternId", patternID, "jobId", jobID)
	if timeout > 0 {
		logger.Info("Monitoring job", "timeout", timeout)
	} else {
		logger.Info("Monitoring job", "timeout", "none")
	}

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	lastStatus := ogc.StatusUnknown

	for {
		if ctx.Err() != nil {
			return OutcomeInterrupted, apperrors.Interrupted(patternID).Error()
		}

		if r.metrics != nil {
			r.metrics.RecordStatusPoll(ctx, patternID)
		}
		info, err := r.client.JobStatus(ctx, jobID)
		if err != nil {
			if ctx.Err() != nil {
				return OutcomeInterrupted, apperrors.Interrupted(patternID).Error()
			}
			return OutcomeFailed, fmt.Sprintf("job status poll failed: %v", err)
		}

		if info.Status != lastStatus {
			logger.Info("Job status changed", "status", info.Status)
			lastStatus = info.Status
		} else {
			logger.Debug("Job status unchanged", "status", info.Status)
		}

		switch info.Status {
		case ogc.StatusSucceeded:
			return OutcomeSucceeded, "job completed: succeeded"
		case ogc.StatusFailed:
			return OutcomeFailed, "job completed: failed"
		case ogc.StatusDismissed:
			return OutcomeFailed, "job completed: dismissed"
		}

		if timeout > 0 && time.Now().After(deadline) {
			return OutcomeTimedOut, apperrors.Timeout(patternID, jobID).Error()
		}

		timer := time.NewTimer(r.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return OutcomeInterrupted, apperrors.Interrupted(patternID).Error()
		case <-timer.C:
		}
	}
}
