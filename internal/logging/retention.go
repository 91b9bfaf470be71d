package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"cashcue/internal/config"
)

// runLogPattern matches the per-run files written by RunLogPath.
const runLogPattern = "cashcue-*.log"

// PruneRunLogs deletes run logs older than logging.retention_days. The log of
// the current run is never removed.
func PruneRunLogs(logger *slog.Logger, cfg *config.Config, current string) int {
	if cfg == nil {
		return 0
	}
	return PruneOlderThan(logger, cfg.Paths.LogDir, runLogPattern, cfg.Logging.RetentionDays, current)
}

// PruneOlderThan removes regular files in dir matching pattern whose
// modification time is more than days old, skipping any path in keep. It
// returns the number of files removed. days <= 0 disables pruning.
func PruneOlderThan(logger *slog.Logger, dir, pattern string, days int, keep ...string) int {
	if days <= 0 || dir == "" {
		return 0
	}
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return 0
	}
	skip := make(map[string]struct{}, len(keep))
	for _, path := range keep {
		if abs, err := filepath.Abs(path); err == nil {
			skip[abs] = struct{}{}
		}
	}

	cutoff := time.Now().AddDate(0, 0, -days)
	removed := 0
	for _, path := range matches {
		if abs, err := filepath.Abs(path); err == nil {
			if _, ok := skip[abs]; ok {
				continue
			}
		}
		info, err := os.Lstat(path)
		if err != nil || !info.Mode().IsRegular() || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "retention cleanup failed", "retention_remove_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check ownership of "+dir),
				String(FieldImpact, "expired file stays on disk"),
			)
			continue
		}
		removed++
	}
	if removed > 0 && logger != nil {
		logger.Info("expired files pruned",
			String(FieldEventType, "retention_pruned"),
			String("dir", dir),
			Int("removed", removed),
		)
	}
	return removed
}
