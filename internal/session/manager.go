package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"cashcue/internal/announce"
	"cashcue/internal/config"
	"cashcue/internal/confirm"
	"cashcue/internal/events"
	"cashcue/internal/history"
	"cashcue/internal/inference"
	"cashcue/internal/logging"
	"cashcue/internal/services"
	"cashcue/internal/source"
)

// ErrSuperseded is returned by burst operations whose session was replaced
// before it finished.
var ErrSuperseded = errors.New("session superseded")

// ErrNoCamera is returned when a camera operation is requested without one.
var ErrNoCamera = errors.New("no camera configured")

// Announcer speaks confirmed denominations.
type Announcer interface {
	Announce(ctx context.Context, denomination string) bool
	Clear()
	State() announce.State
}

// Recorder persists confirmations.
type Recorder interface {
	Record(ctx context.Context, entry history.Entry) (history.Entry, error)
}

// Options wires a Manager.
type Options struct {
	Config    *config.Config
	Gateway   inference.Gateway
	Camera    source.Source
	Announcer Announcer
	Hub       *events.Hub
	History   Recorder
	Logger    *slog.Logger
	Now       func() time.Time
}

// BurstResult is the outcome of a completed burst.
type BurstResult struct {
	SessionID string          `json:"session_id"`
	Source    string          `json:"source"`
	Rounds    []string        `json:"rounds"`
	Confirmed bool            `json:"confirmed"`
	Result    *confirm.Result `json:"result,omitempty"`
	Label     string          `json:"label,omitempty"`
	Announced bool            `json:"announced"`
}

// Status is a snapshot of the manager.
type Status struct {
	Session      *Info          `json:"session,omitempty"`
	Live         bool           `json:"live"`
	Announcement announce.State `json:"announcement"`
	Last         *LastResult    `json:"last,omitempty"`
	Camera       CameraStatus   `json:"camera"`
	Window       int            `json:"window"`
}

// LastResult is the most recent confirmation.
type LastResult struct {
	SessionID   string         `json:"session_id"`
	Mode        Mode           `json:"mode"`
	Source      string         `json:"source"`
	Result      confirm.Result `json:"result"`
	Label       string         `json:"label"`
	ConfirmedAt time.Time      `json:"confirmed_at"`
}

// CameraStatus reports the last known camera condition.
type CameraStatus struct {
	Available bool   `json:"available"`
	LastError string `json:"last_error,omitempty"`
}

// Manager coordinates sessions for every caller.
type Manager struct {
	pipeline  *Pipeline
	camera    source.Source
	announcer Announcer
	hub       *events.Hub
	history   Recorder
	logger    *slog.Logger
	now       func() time.Time

	window    int
	interval  time.Duration
	autoStart bool
	camLabel  string

	mu        sync.Mutex
	current   *Session
	lastMode  Mode
	loop      *Loop
	last      *LastResult
	camStatus CameraStatus
	baseCtx   context.Context
	closed    bool
}

// NewManager constructs a Manager. Gateway and Config are required.
func NewManager(opts Options) (*Manager, error) {
	if opts.Config == nil {
		return nil, services.Wrap(services.ErrConfiguration, "session", "new manager", "config required", nil)
	}
	if opts.Gateway == nil {
		return nil, services.Wrap(services.ErrConfiguration, "session", "new manager", "inference gateway required", nil)
	}
	cfg := opts.Config
	logger := logging.NewComponentLogger(opts.Logger, "session")
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	announcer := opts.Announcer
	if announcer == nil {
		announcer = announce.NewDeduplicator(announce.Silent{}, cfg.Cooldown())
	}
	hub := opts.Hub
	if hub == nil {
		hub = events.NewHub(0)
	}
	m := &Manager{
		pipeline:  NewPipeline(opts.Gateway, cfg.Detection.AllowList, cfg.Detection.ConfidenceThreshold, opts.Logger),
		camera:    opts.Camera,
		announcer: announcer,
		hub:       hub,
		history:   opts.History,
		logger:    logger,
		now:       now,
		window:    cfg.Detection.WindowSize,
		interval:  cfg.RoundInterval(),
		autoStart: cfg.Live.AutoStart,
		camLabel:  cfg.Camera.Device,
		baseCtx:   context.Background(),
		camStatus: CameraStatus{Available: opts.Camera != nil},
	}
	return m, nil
}

// Hub exposes the event hub the manager publishes to.
func (m *Manager) Hub() *events.Hub { return m.hub }

// SetBaseContext sets the parent context for live loops, typically the
// daemon's lifetime context.
func (m *Manager) SetBaseContext(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ctx != nil {
		m.baseCtx = ctx
	}
}

// StartLive supersedes any current session and begins polling the camera.
func (m *Manager) StartLive() (Info, error) {
	if m.camera == nil {
		return Info{}, ErrNoCamera
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return Info{}, ErrSuperseded
	}
	prev, prevLoop := m.detachLocked()
	m.switchModeLocked(ModeLive)
	sess := newSession(ModeLive, m.camLabel, m.window, m.now())
	loop := NewLoop(m.interval, func(ctx context.Context) bool {
		return m.liveStep(ctx, sess)
	})
	m.current = sess
	m.loop = loop
	base := m.baseCtx
	info := sess.info()
	m.publishLocked(sess, events.Event{Type: events.TypeSessionStarted})
	m.mu.Unlock()

	m.finishDetached(prev, prevLoop)
	loop.Start(base)
	m.logger.Info("live session started",
		logging.String(logging.FieldSessionID, sess.ID),
		logging.String(logging.FieldMode, string(sess.Mode)),
		logging.String("source", sess.Source),
	)
	return info, nil
}

// StopLive ends the live session if one is running. It reports whether a
// live session was stopped.
func (m *Manager) StopLive() bool {
	m.mu.Lock()
	if m.current == nil || m.current.Mode != ModeLive {
		m.mu.Unlock()
		return false
	}
	prev, prevLoop := m.detachLocked()
	m.announcer.Clear()
	m.mu.Unlock()
	m.finishDetached(prev, prevLoop)
	return true
}

// Clear supersedes the current session, empties its window and resets the
// announcer so the next confirmation is spoken even if it repeats.
func (m *Manager) Clear() {
	m.mu.Lock()
	prev, prevLoop := m.detachLocked()
	m.announcer.Clear()
	m.last = nil
	m.publishLocked(nil, events.Event{Type: events.TypeCleared})
	m.mu.Unlock()
	m.finishDetached(prev, prevLoop)
	m.logger.Info("detection state cleared", logging.String(logging.FieldEventType, "cleared"))
}

// DetectImage runs a burst over one prepared image, re-classifying it for
// each round of the window.
func (m *Manager) DetectImage(ctx context.Context, image []byte, label string) (BurstResult, error) {
	if label == "" {
		label = "upload"
	}
	frames := source.Static(image)
	return m.burst(ctx, frames, label, 0)
}

// Capture runs a burst over fresh camera frames, one per round.
func (m *Manager) Capture(ctx context.Context) (BurstResult, error) {
	if m.camera == nil {
		return BurstResult{}, ErrNoCamera
	}
	return m.burst(ctx, m.camera, m.camLabel, m.interval)
}

// HandleSourceLost reports a camera failure observed outside a round, such
// as a device removal, and stops the live session.
func (m *Manager) HandleSourceLost(err error) {
	m.mu.Lock()
	m.camStatus = CameraStatus{Available: false, LastError: errorText(err)}
	var (
		prev     *Session
		prevLoop *Loop
	)
	if m.current != nil && m.current.Mode == ModeLive {
		prev, prevLoop = m.detachLocked()
	}
	m.publishLocked(prev, events.Event{
		Type:    events.TypeSourceUnavailable,
		Source:  m.camLabel,
		Message: errorText(err),
	})
	m.mu.Unlock()
	m.finishDetached(prev, prevLoop)
	logging.WarnWithContext(m.logger, "camera unavailable", "source_unavailable",
		logging.String("source", m.camLabel),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "reconnect the camera or check camera.device"),
		logging.String(logging.FieldImpact, "live detection stopped"),
	)
}

// HandleSourceRestored marks the camera usable again and restarts live
// detection when live.auto_start is enabled.
func (m *Manager) HandleSourceRestored() {
	m.mu.Lock()
	m.camStatus = CameraStatus{Available: true}
	running := m.current != nil && m.current.Mode == ModeLive
	m.publishLocked(nil, events.Event{Type: events.TypeSourceRestored, Source: m.camLabel})
	autoStart := m.autoStart && !m.closed
	m.mu.Unlock()
	m.logger.Info("camera available", logging.String("source", m.camLabel))
	if autoStart && !running {
		if _, err := m.StartLive(); err != nil {
			m.logger.Debug("auto start skipped", logging.Error(err))
		}
	}
}

// Status returns a snapshot of the current session and last confirmation.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := Status{
		Live:         m.current != nil && m.current.Mode == ModeLive,
		Announcement: m.announcer.State(),
		Camera:       m.camStatus,
		Window:       m.window,
	}
	if m.current != nil {
		info := m.current.info()
		st.Session = &info
	}
	if m.last != nil {
		last := *m.last
		st.Last = &last
	}
	return st
}

// Close stops any running session. Later calls to StartLive fail.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	prev, prevLoop := m.detachLocked()
	m.mu.Unlock()
	m.finishDetached(prev, prevLoop)
}

// detachLocked supersedes the current session and hands back what the
// caller must finish after releasing the lock.
func (m *Manager) detachLocked() (*Session, *Loop) {
	prev, loop := m.current, m.loop
	if prev != nil {
		prev.Supersede()
	}
	m.current = nil
	m.loop = nil
	return prev, loop
}

// switchModeLocked resets the announcement marker when the next session does
// not continue a run of uploads or captures. Consecutive bursts share the
// cool-down; anything involving live mode starts fresh.
func (m *Manager) switchModeLocked(next Mode) {
	if next == ModeLive || m.lastMode == ModeLive {
		m.announcer.Clear()
	}
	m.lastMode = next
}

// finishDetached waits for a superseded loop outside the lock and reports the
// stop. Loop steps take the lock, so stopping under it would deadlock.
func (m *Manager) finishDetached(prev *Session, loop *Loop) {
	if loop != nil {
		loop.Stop()
	}
	if prev == nil {
		return
	}
	m.mu.Lock()
	m.publishLocked(prev, events.Event{Type: events.TypeSessionStopped})
	m.mu.Unlock()
	m.logger.Info("session stopped",
		logging.String(logging.FieldSessionID, prev.ID),
		logging.String(logging.FieldMode, string(prev.Mode)),
	)
}

func (m *Manager) liveStep(ctx context.Context, sess *Session) bool {
	if sess.Superseded() {
		return false
	}
	ctx = sess.Context(ctx)
	frame, err := m.camera.Frame(ctx)
	if err != nil {
		if ctx.Err() != nil || sess.Superseded() {
			return false
		}
		m.sourceFailed(sess, err)
		return false
	}
	outcome := m.pipeline.Round(ctx, frame)
	if ctx.Err() != nil {
		return false
	}

	m.mu.Lock()
	if sess.Superseded() || sess != m.current {
		m.mu.Unlock()
		return false
	}
	m.camStatus = CameraStatus{Available: true}
	sess.rounds++
	result, ok := sess.confirmer.Observe(outcome.Round)
	m.publishRoundLocked(sess, outcome)
	var entry *history.Entry
	if ok {
		entry = m.liveConfirmLocked(ctx, sess, result)
	} else {
		sess.held = ""
	}
	m.mu.Unlock()

	m.record(ctx, entry)
	return true
}

// liveConfirmLocked handles a unanimous live window. A bill held in view
// re-confirms every round; only the first confirmation of a presentation and
// any later one the announcer speaks are published and recorded.
func (m *Manager) liveConfirmLocked(ctx context.Context, sess *Session, result confirm.Result) *history.Entry {
	announced := m.announcer.Announce(ctx, result.Denomination)
	if !announced && sess.held == result.Denomination {
		return nil
	}
	sess.held = result.Denomination
	return m.confirmLocked(ctx, sess, result, announced)
}

func (m *Manager) burst(ctx context.Context, frames source.Source, label string, gap time.Duration) (BurstResult, error) {
	m.mu.Lock()
	prev, prevLoop := m.detachLocked()
	m.switchModeLocked(ModeBurst)
	sess := newSession(ModeBurst, label, m.window, m.now())
	m.current = sess
	m.publishLocked(sess, events.Event{Type: events.TypeSessionStarted})
	m.mu.Unlock()
	m.finishDetached(prev, prevLoop)

	ctx = sess.Context(ctx)
	log := logging.WithContext(ctx, m.logger)
	log.Info("burst started", logging.String("source", label), logging.Int("rounds", m.window))

	for i := 0; i < m.window; i++ {
		if i > 0 && gap > 0 {
			select {
			case <-ctx.Done():
				m.abandon(sess)
				return BurstResult{}, ctx.Err()
			case <-time.After(gap):
			}
		}
		if sess.Superseded() {
			return BurstResult{}, ErrSuperseded
		}
		frame, err := frames.Frame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				m.abandon(sess)
				return BurstResult{}, ctx.Err()
			}
			m.sourceFailed(sess, err)
			return BurstResult{}, err
		}
		outcome := m.pipeline.Round(ctx, frame)
		if ctx.Err() != nil {
			m.abandon(sess)
			return BurstResult{}, ctx.Err()
		}

		m.mu.Lock()
		if sess.Superseded() || sess != m.current {
			m.mu.Unlock()
			return BurstResult{}, ErrSuperseded
		}
		sess.rounds++
		sess.confirmer.Record(outcome.Round)
		m.publishRoundLocked(sess, outcome)
		m.mu.Unlock()
	}

	m.mu.Lock()
	if sess.Superseded() || sess != m.current {
		m.mu.Unlock()
		return BurstResult{}, ErrSuperseded
	}
	rounds := sess.confirmer.Rounds()
	out := BurstResult{SessionID: sess.ID, Source: label, Rounds: roundLabels(rounds)}
	result, ok := sess.confirmer.Conclude()
	var entry *history.Entry
	if ok {
		entry = m.confirmLocked(ctx, sess, result, m.announcer.Announce(ctx, result.Denomination))
		out.Confirmed = true
		out.Result = &result
		out.Label = result.Label()
		out.Announced = entry.Announced
	} else {
		m.publishLocked(sess, events.Event{Type: events.TypeNoResult, Rounds: out.Rounds})
	}
	m.publishLocked(sess, events.Event{Type: events.TypeSessionStopped})
	sess.Supersede()
	m.current = nil
	m.mu.Unlock()

	m.record(ctx, entry)
	if ok {
		log.Info("burst confirmed", logging.Denomination(result.Denomination), logging.String("label", out.Label))
	} else {
		log.Info("burst ended without a result", logging.Any("rounds", out.Rounds))
	}
	return out, nil
}

// abandon drops a burst whose caller went away.
func (m *Manager) abandon(sess *Session) {
	m.mu.Lock()
	if m.current == sess {
		sess.Supersede()
		m.current = nil
	}
	m.mu.Unlock()
}

// confirmLocked publishes a result and returns the history entry to persist
// once the lock is released.
func (m *Manager) confirmLocked(ctx context.Context, sess *Session, result confirm.Result, announced bool) *history.Entry {
	now := m.now()
	m.last = &LastResult{
		SessionID:   sess.ID,
		Mode:        sess.Mode,
		Source:      sess.Source,
		Result:      result,
		Label:       result.Label(),
		ConfirmedAt: now,
	}
	m.publishLocked(sess, events.Event{
		Type:         events.TypeConfirmed,
		Denomination: result.Denomination,
		Label:        result.Label(),
		Support:      result.Support,
		Window:       result.Window,
		Unanimous:    result.Unanimous,
		Rounds:       roundLabels(sess.confirmer.Rounds()),
	})
	if announced {
		m.publishLocked(sess, events.Event{Type: events.TypeAnnounced, Denomination: result.Denomination})
	}
	logging.WithContext(ctx, m.logger).Info("denomination confirmed",
		logging.Denomination(result.Denomination),
		logging.String("label", result.Label()),
		logging.Bool("announced", announced),
		logging.String(logging.FieldEventType, "confirmed"),
	)
	return &history.Entry{
		SessionID:    sess.ID,
		Mode:         string(sess.Mode),
		Source:       sess.Source,
		Denomination: result.Denomination,
		Support:      result.Support,
		Window:       result.Window,
		Unanimous:    result.Unanimous,
		Announced:    announced,
		ConfirmedAt:  now,
	}
}

func (m *Manager) record(ctx context.Context, entry *history.Entry) {
	if entry == nil || m.history == nil {
		return
	}
	if _, err := m.history.Record(context.WithoutCancel(ctx), *entry); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, m.logger), "failed to record confirmation", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.data_dir permissions"),
			logging.String(logging.FieldImpact, "confirmation missing from history"),
		)
	}
}

// sourceFailed reports a frame acquisition error once and ends sess.
func (m *Manager) sourceFailed(sess *Session, err error) {
	m.mu.Lock()
	if sess.Superseded() || sess != m.current {
		m.mu.Unlock()
		return
	}
	if sess.Mode == ModeLive {
		m.camStatus = CameraStatus{Available: false, LastError: errorText(err)}
	}
	sess.Supersede()
	m.current = nil
	if m.loop != nil && sess.Mode == ModeLive {
		// the loop exits and releases its context once the step returns false
		m.loop = nil
	}
	m.publishLocked(sess, events.Event{
		Type:    events.TypeSourceUnavailable,
		Source:  sess.Source,
		Message: errorText(err),
	})
	m.publishLocked(sess, events.Event{Type: events.TypeSessionStopped})
	m.mu.Unlock()

	logging.WarnWithContext(logging.WithContext(sess.Context(context.Background()), m.logger),
		"image source unavailable", "source_unavailable",
		logging.String("source", sess.Source),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check the camera connection or the uploaded file"),
		logging.String(logging.FieldImpact, "session stopped"),
	)
}

func (m *Manager) publishRoundLocked(sess *Session, outcome Outcome) {
	evt := events.Event{
		Type:   events.TypeRound,
		Round:  sess.rounds,
		Rounds: roundLabels(sess.confirmer.Rounds()),
	}
	if outcome.Round.Present {
		evt.Denomination = outcome.Round.Denomination
		evt.Confidence = outcome.Best.Confidence
	}
	if outcome.Err != nil {
		evt.Message = "inference failed"
	}
	m.publishLocked(sess, evt)
	m.logger.Debug("round complete",
		logging.String(logging.FieldSessionID, sess.ID),
		logging.String(logging.FieldMode, string(sess.Mode)),
		logging.Int(logging.FieldRound, sess.rounds),
		logging.Denomination(outcome.Round.String()),
		logging.Confidence(outcome.Best.Confidence),
		logging.Int("candidates", outcome.Candidates),
		logging.Int("kept", outcome.Kept),
	)
}

func (m *Manager) publishLocked(sess *Session, evt events.Event) {
	if sess != nil {
		evt.SessionID = sess.ID
		evt.Mode = string(sess.Mode)
		if evt.Source == "" {
			evt.Source = sess.Source
		}
	}
	m.hub.Publish(evt)
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
