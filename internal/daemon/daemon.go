package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"cashcue/internal/config"
	"cashcue/internal/deps"
	"cashcue/internal/history"
	"cashcue/internal/logging"
	"cashcue/internal/preflight"
	"cashcue/internal/session"
	"cashcue/internal/source"
)

// Daemon owns the background services and enforces single-instance execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	manager *session.Manager
	history *history.Store
	logPath string

	lockPath string
	lock     *flock.Flock

	api     *apiServer
	monitor *cameraMonitor

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	LockFilePath string         `json:"lock_file_path"`
	HistoryPath  string         `json:"history_path"`
	LogPath      string         `json:"log_path"`
	APIAddress   string         `json:"api_address,omitempty"`
	Session      session.Status `json:"session"`
	Dependencies []deps.Status  `json:"dependencies"`
}

// New constructs a daemon with initialized dependencies. store may be nil
// when history is disabled.
func New(cfg *config.Config, manager *session.Manager, store *history.Store, logger *slog.Logger, logPath string) (*Daemon, error) {
	if cfg == nil || manager == nil {
		return nil, errors.New("daemon requires config and session manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		manager:  manager,
		history:  store,
		logPath:  logPath,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, manager, store, logger)
	if cfg.Camera.Device != "" {
		d.monitor = newCameraMonitor(cfg.Camera.Device, manager, logger)
	}
	return d, nil
}

// Start acquires the daemon lock and launches the API, inbox, and camera
// monitor.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := os.MkdirAll(filepath.Dir(d.lockPath), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another cashcue daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	d.manager.SetBaseContext(d.ctx)

	if err := d.api.start(d.ctx); err != nil {
		d.cancel()
		_ = d.lock.Unlock()
		d.ctx, d.cancel = nil, nil
		return fmt.Errorf("start api: %w", err)
	}

	if dir := d.cfg.Paths.InboxDir; dir != "" {
		inbox := source.NewInbox(dir, d.logger)
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			if err := inbox.Run(d.ctx, d.handleInboxImage); err != nil && !errors.Is(err, context.Canceled) {
				logging.WarnWithContext(d.logger, "inbox watcher stopped", "inbox_failed",
					logging.String("dir", dir),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check paths.inbox_dir exists and is readable"),
					logging.String(logging.FieldImpact, "dropped images will not be identified"),
				)
			}
		}()
	}

	if err := d.monitor.Start(d.ctx); err != nil {
		d.logger.Warn("camera monitor unavailable", logging.Error(err))
	}

	if d.cfg.Live.AutoStart && d.cfg.Camera.Device != "" {
		if check := preflight.CheckCamera(d.cfg.Camera.Device); check.Passed {
			if _, err := d.manager.StartLive(); err != nil {
				d.logger.Warn("live auto start failed", logging.Error(err))
			}
		} else {
			d.manager.HandleSourceLost(errors.New(check.Detail))
		}
	}

	d.running.Store(true)
	d.logger.Info("cashcue daemon started",
		logging.String("lock", d.lockPath),
		logging.String("api", d.api.address()),
	)
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.monitor.Stop()
	d.api.stop()
	d.manager.StopLive()
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("cashcue daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	d.manager.Close()
	if d.history != nil {
		return d.history.Close()
	}
	return nil
}

// Running reports whether Start succeeded and Stop has not been called.
func (d *Daemon) Running() bool { return d.running.Load() }

// APIAddress returns the bound listener address, or "" when the API is off.
func (d *Daemon) APIAddress() string { return d.api.address() }

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	st := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		LockFilePath: d.lockPath,
		LogPath:      d.logPath,
		APIAddress:   d.api.address(),
		Session:      d.manager.Status(),
		Dependencies: preflight.CheckSystemDeps(d.cfg),
	}
	if d.history != nil {
		st.HistoryPath = d.history.Path()
	}
	return st
}

func (d *Daemon) handleInboxImage(ctx context.Context, path string) {
	log := d.logger.With(logging.String("file", filepath.Base(path)))
	data, err := source.LoadImage(path, d.cfg.Camera.MaxEdge)
	if err != nil {
		logging.WarnWithContext(log, "inbox image rejected", "inbox_image_rejected",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "drop a JPEG or PNG photo of a single bill"),
			logging.String(logging.FieldImpact, "image skipped"),
		)
		return
	}
	res, err := d.manager.DetectImage(ctx, data, filepath.Base(path))
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Info("inbox detection interrupted", logging.Error(err))
		}
		return
	}
	if res.Confirmed {
		log.Info("inbox image identified", logging.String("label", res.Label), logging.Bool("announced", res.Announced))
		return
	}
	log.Info("inbox image not identified", logging.Any("rounds", res.Rounds))
}
