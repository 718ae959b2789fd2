package pattern

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"ogctester/internal/apperrors"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	base := t.TempDir()
	store, err := NewStore(filepath.Join(base, "patterns"), filepath.Join(base, "cwl"))
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func writeParams(t *testing.T, store *Store, id, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(store.PatternsDir(), id+".json"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestValidID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id   string
		want bool
	}{
		{"pattern-1", true},
		{"pattern-12", true},
		{"pattern-", false},
		{"pattern-x", false},
		{"other-1", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidID(tt.id); got != tt.want {
			t.Errorf("ValidID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestGetUnknownPattern(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	_, err := store.Get("pattern-99")
	if !errors.Is(err, apperrors.ErrPatternNotFound) {
		t.Errorf("err = %v, want ErrPatternNotFound", err)
	}
}

func TestParamsRejectsInvalidJSON(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	writeParams(t, store, "pattern-1", "{not json")

	if _, err := store.Params("pattern-1"); err == nil {
		t.Error("expected error for invalid JSON params")
	}
}

func TestParamsRoundTrip(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	writeParams(t, store, "pattern-1", `{"message": "hello"}`)

	params, err := store.Params("pattern-1")
	if err != nil {
		t.Fatalf("Params: %v", err)
	}
	if string(params) != `{"message": "hello"}` {
		t.Errorf("params = %s", params)
	}
}

func TestListSortsNumerically(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	for _, id := range []string{"pattern-10", "pattern-2", "pattern-1", "pattern-9"} {
		writeParams(t, store, id, `{}`)
	}
	// Noise that must be ignored.
	if err := os.WriteFile(filepath.Join(store.PatternsDir(), "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	ids, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"pattern-1", "pattern-2", "pattern-9", "pattern-10"}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d] = %q, want %q", i, ids[i], want[i])
		}
	}
}
