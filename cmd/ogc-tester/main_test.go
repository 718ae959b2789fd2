package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ogctester/internal/pattern"
)

func TestRootCommandWiring(t *testing.T) {
	t.Parallel()

	root := newRootCmd()
	want := []string{"run", "list", "describe", "jobs", "cleanup", "download", "sync-params", "check", "version"}
	for _, name := range want {
		found := false
		for _, c := range root.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	cmd := newVersionCmd()
	cmd.SetOut(&buf)
	cmd.Run(cmd, nil)

	if !strings.Contains(buf.String(), "ogc-tester") {
		t.Errorf("version output = %q", buf.String())
	}
}

func TestResolvePatternIDs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := pattern.NewStore(filepath.Join(dir, "p"), filepath.Join(dir, "w"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	for _, id := range []string{"pattern-2", "pattern-10"} {
		if err := os.WriteFile(filepath.Join(store.PatternsDir(), id+".json"), []byte("{}"), 0o644); err != nil {
			t.Fatalf("write params: %v", err)
		}
	}

	tests := []struct {
		name    string
		args    []string
		all     bool
		want    []string
		wantErr bool
	}{
		{"explicit ids", []string{"pattern-1"}, false, []string{"pattern-1"}, false},
		{"all sorted numerically", nil, true, []string{"pattern-2", "pattern-10"}, false},
		{"all plus args rejected", []string{"pattern-1"}, true, nil, true},
		{"no args no all", nil, false, nil, true},
		{"malformed id", []string{"pattern-x"}, false, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := resolvePatternIDs(store, tt.args, tt.all)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("resolvePatternIDs: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}
