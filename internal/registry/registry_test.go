package registry

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// fakeReleaser records release calls and can fail selected processes.
type fakeReleaser struct {
	mu         sync.Mutex
	dismissed  []string
	undeployed []string
	failing    map[string]bool
}

func (f *fakeReleaser) DismissJob(ctx context.Context, jobID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dismissed = append(f.dismissed, jobID)
	return nil
}

func (f *fakeReleaser) Undeploy(ctx context.Context, processID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing[processID] {
		return errors.New("server unreachable")
	}
	f.undeployed = append(f.undeployed, processID)
	return nil
}

func TestRegisterIsIdempotentPerProcess(t *testing.T) {
	t.Parallel()

	r := New()
	e1 := r.Register("pattern-1")
	e2 := r.Register("pattern-1")
	if e1 != e2 {
		t.Error("second Register must return the existing entry")
	}
	if len(r.Outstanding()) != 1 {
		t.Errorf("outstanding = %d, want 1", len(r.Outstanding()))
	}
	if e1.ID == "" {
		t.Error("entry id must be set")
	}
}

func TestUnregisterIsIdempotent(t *testing.T) {
	t.Parallel()

	r := New()
	r.Register("pattern-1")

	if !r.Unregister("pattern-1") {
		t.Error("first Unregister = false, want true")
	}
	if r.Unregister("pattern-1") {
		t.Error("second Unregister = true, want false")
	}
	if r.Contains("pattern-1") {
		t.Error("entry must be gone after Unregister")
	}
}

func TestSetJobAfterUnregisterIsNoop(t *testing.T) {
	t.Parallel()

	r := New()
	r.Register("pattern-1")
	r.Unregister("pattern-1")
	r.SetJob("pattern-1", "job-1") // must not resurrect the entry

	if len(r.Outstanding()) != 0 {
		t.Errorf("outstanding = %v, want empty", r.Outstanding())
	}
}

func TestCleanupAllReleasesJobThenProcess(t *testing.T) {
	t.Parallel()

	r := New()
	r.Register("pattern-1")
	r.SetJob("pattern-1", "job-1")
	r.Register("pattern-2") // deployed, never executed

	f := &fakeReleaser{}
	released := r.CleanupAll(context.Background(), f)

	if released != 2 {
		t.Errorf("released = %d, want 2", released)
	}
	if len(f.dismissed) != 1 || f.dismissed[0] != "job-1" {
		t.Errorf("dismissed = %v, want [job-1]", f.dismissed)
	}
	if len(f.undeployed) != 2 {
		t.Errorf("undeployed = %v, want both processes", f.undeployed)
	}
	if len(r.Outstanding()) != 0 {
		t.Errorf("outstanding = %v, want empty", r.Outstanding())
	}
}

func TestCleanupAllToleratesFailuresAndKeepsEntry(t *testing.T) {
	t.Parallel()

	r := New()
	r.Register("pattern-1")
	r.Register("pattern-2")

	f := &fakeReleaser{failing: map[string]bool{"pattern-1": true}}
	released := r.CleanupAll(context.Background(), f)

	if released != 1 {
		t.Errorf("released = %d, want 1", released)
	}
	// The failed entry stays recoverable for a later sweep.
	if !r.Contains("pattern-1") {
		t.Error("failed entry must remain registered")
	}
	if r.Contains("pattern-2") {
		t.Error("released entry must be unregistered")
	}
}

func TestConcurrentRegistration(t *testing.T) {
	t.Parallel()

	r := New()
	var wg sync.WaitGroup
	ids := []string{"pattern-1", "pattern-2", "pattern-3", "pattern-4"}
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := ids[i%len(ids)]
			r.Register(id)
			r.SetJob(id, "job-"+id)
			r.Outstanding()
		}(i)
	}
	wg.Wait()

	if got := len(r.Outstanding()); got != len(ids) {
		t.Errorf("outstanding = %d, want %d", got, len(ids))
	}
}
