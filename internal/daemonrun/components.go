package daemonrun

import (
	"errors"
	"fmt"
	"log/slog"

	"cashcue/internal/announce"
	"cashcue/internal/config"
	"cashcue/internal/events"
	"cashcue/internal/history"
	"cashcue/internal/inference"
	"cashcue/internal/notifications"
	"cashcue/internal/session"
	"cashcue/internal/source"
)

const hubCapacity = 1024

// BuildOptions selects optional parts of the detection stack.
type BuildOptions struct {
	// History opens the SQLite store and records confirmations.
	History bool
	// Notify forwards confirmations and source errors to ntfy.
	Notify bool
}

// Components is the wired detection stack shared by the daemon and the
// one-shot CLI commands.
type Components struct {
	Gateway  inference.Gateway
	Camera   *source.Camera
	Dedup    *announce.Deduplicator
	Hub      *events.Hub
	History  *history.Store
	Notifier *notifications.EventSink
	Manager  *session.Manager
}

// Build constructs every component selected by cfg and opts.
func Build(cfg *config.Config, logger *slog.Logger, opts BuildOptions) (*Components, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	gateway, err := inference.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init inference: %w", err)
	}
	c := &Components{Gateway: gateway, Hub: events.NewHub(hubCapacity)}

	if cfg.Camera.Device != "" {
		c.Camera = source.NewCamera(source.CameraOptions{
			Device:      cfg.Camera.Device,
			FFmpeg:      cfg.Camera.FFmpegBinary,
			InputFormat: cfg.Camera.InputFormat,
			Timeout:     cfg.CaptureTimeout(),
			MaxEdge:     cfg.Camera.MaxEdge,
		})
	}

	c.Dedup = announce.NewDeduplicator(newSpeaker(cfg), cfg.Cooldown(),
		announce.WithPhraser(announce.NewPhraser(cfg.Announce.Language, cfg.Announce.Unit)),
		announce.WithLogger(logger),
	)

	if opts.History {
		store, err := history.Open(cfg)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("open history: %w", err)
		}
		c.History = store
	}
	if opts.Notify {
		c.Notifier = notifications.NewEventSink(notifications.NewService(cfg), logger)
		c.Hub.AddSink(c.Notifier)
	}

	mopts := session.Options{
		Config:    cfg,
		Gateway:   gateway,
		Announcer: c.Dedup,
		Hub:       c.Hub,
		Logger:    logger,
	}
	if c.Camera != nil {
		mopts.Camera = c.Camera
	}
	if c.History != nil {
		mopts.History = c.History
	}
	manager, err := session.NewManager(mopts)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Manager = manager
	return c, nil
}

func newSpeaker(cfg *config.Config) announce.Speaker {
	if !cfg.Announce.Enabled {
		return announce.Silent{}
	}
	return announce.NewCommandSpeaker(
		announce.WithBinary(cfg.Announce.Command),
		announce.WithVoice(cfg.Announce.Voice),
		announce.WithRate(cfg.Announce.Rate),
	)
}

// Close stops sessions, lets in-flight speech and notifications finish, and
// releases native resources. History is left open when the daemon owns it.
func (c *Components) Close() {
	if c == nil {
		return
	}
	if c.Manager != nil {
		c.Manager.Close()
	}
	if c.Dedup != nil {
		c.Dedup.Wait()
	}
	if c.Notifier != nil {
		c.Notifier.Wait()
	}
	if closer, ok := c.Gateway.(inference.Closer); ok {
		_ = closer.Close()
	}
	if c.History != nil {
		_ = c.History.Close()
	}
}
