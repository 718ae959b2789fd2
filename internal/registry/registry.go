// Package registry tracks server-side resources created during a session so
// they can be released even if the owning operation fails midway.
package registry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Releaser releases server-side resources. Implemented by the OGC client.
type Releaser interface {
	DismissJob(ctx context.Context, jobID string) error
	Undeploy(ctx context.Context, processID string) error
}

// Entry is one tracked (process, optional job) pair.
type Entry struct {
	ID           string // registry-local id, not a server id
	ProcessID    string
	JobID        string
	RegisteredAt time.Time

	mu sync.Mutex
}

// SetJob records the job id created for this entry's process.
func (e *Entry) setJob(jobID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.JobID = jobID
}

func (e *Entry) job() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.JobID
}

// Registry is the mutable shared state of a session. It must reflect
// reality at every observable point: entries appear the moment a resource
// is confirmed created and disappear the moment its release is confirmed.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*Entry // keyed by process id
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

// Register records a freshly created process. Registering an already
// tracked process returns the existing entry.
func (r *Registry) Register(processID string) *Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[processID]; ok {
		return e
	}
	e := &Entry{
		ID:           uuid.NewString(),
		ProcessID:    processID,
		RegisteredAt: time.Now(),
	}
	r.entries[processID] = e
	return e
}

// SetJob records the job id running under a tracked process. A no-op if the
// process was already unregistered.
func (r *Registry) SetJob(processID, jobID string) {
	r.mu.Lock()
	e, ok := r.entries[processID]
	r.mu.Unlock()
	if ok {
		e.setJob(jobID)
	}
}

// Unregister removes a process entry after its release was confirmed.
// Idempotent: unknown process ids are a no-op. Returns whether an entry
// was removed, so callers can tell a release from an already-clean state.
func (r *Registry) Unregister(processID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[processID]; !ok {
		return false
	}
	delete(r.entries, processID)
	return true
}

// Get returns a snapshot of the entry for a process, if tracked.
func (r *Registry) Get(processID string) (Entry, bool) {
	r.mu.Lock()
	e, ok := r.entries[processID]
	r.mu.Unlock()
	if !ok {
		return Entry{}, false
	}
	return Entry{
		ID:           e.ID,
		ProcessID:    e.ProcessID,
		JobID:        e.job(),
		RegisteredAt: e.RegisteredAt,
	}, true
}

// Contains reports whether a process is currently tracked.
func (r *Registry) Contains(processID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[processID]
	return ok
}

// Outstanding returns a snapshot of all tracked entries.
func (r *Registry) Outstanding() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, Entry{
			ID:           e.ID,
			ProcessID:    e.ProcessID,
			JobID:        e.job(),
			RegisteredAt: e.RegisteredAt,
		})
	}
	return out
}

// CleanupAll releases every outstanding entry: the job is dismissed first
// (if one was recorded), then the process is undeployed. Individual release
// failures are logged and do not stop the sweep; the entry stays registered
// so a later sweep can retry it. Returns how many entries were fully
// released.
func (r *Registry) CleanupAll(ctx context.Context, client Releaser) int {
	released := 0
	outstanding := r.Outstanding()
	for i := range outstanding {
		e := &outstanding[i]
		if e.JobID != "" {
			if err := client.DismissJob(ctx, e.JobID); err != nil {
				slog.Warn("Dismissing job during sweep failed", "jobId", e.JobID, "error", err)
			}
		}
		if err := client.Undeploy(ctx, e.ProcessID); err != nil {
			slog.Warn("Undeploying process during sweep failed", "processId", e.ProcessID, "error", err)
			continue
		}
		if r.Unregister(e.ProcessID) {
			released++
		}
	}
	return released
}
