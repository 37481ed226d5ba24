package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	statsSvc "beps/internal/domain/services/statistics"
)

// EverySpec renders an interval as a cron descriptor.
func EverySpec(d time.Duration) string {
	return "@every " + d.String()
}

// CleanupDir removes regular files in dir last modified before now-maxAge.
// A missing directory is not an error.
func CleanupDir(dir string, maxAge time.Duration, now time.Time, logger *slog.Logger) (int, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", dir, err)
	}

	cutoff := now.Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("cleanup remove failed", "path", path, "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}

// CleanupJob deletes stale generated files.
func CleanupJob(dir string, maxAge time.Duration, logger *slog.Logger) JobFunc {
	return func(ctx context.Context) error {
		n, err := CleanupDir(dir, maxAge, time.Now(), logger)
		if err != nil {
			return err
		}
		logger.Info("generated files cleaned", "dir", dir, "removed", n)
		return nil
	}
}

// RollupJob summarises yesterday and folds every period that just ended.
func RollupJob(rollup statsSvc.RollupService, loc *time.Location) JobFunc {
	return func(ctx context.Context) error {
		today := time.Now().In(loc)
		if err := rollup.RollupDay(ctx, today.AddDate(0, 0, -1)); err != nil {
			return err
		}
		return rollup.RollupCompleted(ctx, today)
	}
}
