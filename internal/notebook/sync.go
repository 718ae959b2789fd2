package notebook

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"golang.org/x/sync/errgroup"
)

// defaultSyncLimit bounds concurrent notebook downloads.
const defaultSyncLimit = 4

// SyncResult describes one pattern's parameter sync.
type SyncResult struct {
	PatternID string
	Path      string
	Err       error
}

// Syncer refreshes local parameter files from upstream notebooks.
type Syncer struct {
	fetcher *Fetcher
	limit   int
}

// NewSyncer creates a syncer downloading at most limit notebooks at a
// time. limit <= 0 uses the default.
func NewSyncer(fetcher *Fetcher, limit int) *Syncer {
	if limit <= 0 {
		limit = defaultSyncLimit
	}
	return &Syncer{fetcher: fetcher, limit: limit}
}

// Sync downloads each pattern's notebook, extracts its parameter block and
// writes one JSON file per pattern into outDir. Results keep the order of
// ids. With continueOnError false, the first failure cancels the remaining
// downloads and is returned; with continueOnError true all patterns are
// attempted and per-pattern failures live only in the results.
func (s *Syncer) Sync(ctx context.Context, ids []string, outDir string, continueOnError bool) ([]SyncResult, error) {
	results := make([]SyncResult, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limit)
	for i, id := range ids {
		g.Go(func() error {
			path, err := s.syncOne(gctx, id, outDir)
			results[i] = SyncResult{PatternID: id, Path: path, Err: err}
			if err != nil {
				slog.Error("Parameter sync failed", "patternId", id, "error", err)
				if !continueOnError {
					return fmt.Errorf("sync %s: %w", id, err)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func (s *Syncer) syncOne(ctx context.Context, patternID, outDir string) (string, error) {
	nb, err := s.fetcher.Fetch(ctx, patternID)
	if err != nil {
		return "", err
	}
	params, err := Extract(nb, patternID)
	if err != nil {
		return "", err
	}

	path := filepath.Join(outDir, patternID+".json")
	if err := params.WriteFile(path); err != nil {
		return "", err
	}
	slog.Info("Parameters synced", "patternId", patternID, "path", path, "count", params.Len())
	return path, nil
}
