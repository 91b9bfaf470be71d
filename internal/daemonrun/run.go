package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"cashcue/internal/config"
	"cashcue/internal/daemon"
	"cashcue/internal/deps"
	"cashcue/internal/logging"
	"cashcue/internal/preflight"
	"cashcue/internal/source"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the cashcue daemon and blocks until SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logPath := logging.RunLogPath(cfg, time.Now())
	level := cfg.Logging.Level
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", logPath},
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logDependencySnapshot(signalCtx, logger, cfg)
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update cashcue.log link: %v\n", err)
	}
	logging.PruneRunLogs(logger, cfg, logPath)
	if cfg.Paths.InboxDir != "" {
		logging.PruneOlderThan(logger, filepath.Join(cfg.Paths.InboxDir, source.ProcessedDir), "*", cfg.Logging.RetentionDays)
	}

	pidPath := filepath.Join(cfg.Paths.DataDir, "cashcue.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	components, err := Build(cfg, logger, BuildOptions{History: true, Notify: true})
	if err != nil {
		logger.Error("build detection stack", logging.Error(err))
		return err
	}
	store := components.History
	// The daemon closes the store; keep Components.Close from doing it twice.
	components.History = nil
	defer components.Close()

	d, err := daemon.New(cfg, components.Manager, store, logger, logPath)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that no other cashcue daemon is running and api_bind is free"),
			logging.String(logging.FieldImpact, "detection service unavailable"),
		)
		return err
	}

	<-signalCtx.Done()
	logger.Info("cashcue daemon shutting down")
	return nil
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "cashcue.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.String("inference_backend", cfg.Inference.Backend),
		logging.String("camera_device", cfg.Camera.Device),
		logging.Bool("announce_enabled", cfg.Announce.Enabled),
		logging.String("ffmpeg_version", deps.FFmpegVersion(ctx, cfg.Camera.FFmpegBinary)),
	}
	for _, status := range preflight.CheckSystemDeps(cfg) {
		attrs = append(attrs, logging.Bool(strings.ToLower(status.Name)+"_available", status.Available))
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
	for _, result := range preflight.Failed(preflight.RunAll(ctx, cfg)) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldErrorHint, "run cashcue status for the full report"),
			logging.String(logging.FieldImpact, "some detection paths may fail"),
		)
	}
}
