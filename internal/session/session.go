package session

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"cashcue/internal/confirm"
	"cashcue/internal/services"
)

// Mode distinguishes continuous camera sessions from one-shot bursts.
type Mode string

const (
	// ModeLive confirms only on a unanimous sliding window.
	ModeLive Mode = "live"
	// ModeBurst runs a fixed window once and falls back to majority.
	ModeBurst Mode = "burst"
)

// Session is one detection run.
type Session struct {
	ID        string
	Mode      Mode
	Source    string
	StartedAt time.Time

	confirmer  *confirm.Confirmer
	rounds     int
	held       string // denomination confirmed by the current uninterrupted window
	superseded atomic.Bool
}

func newSession(mode Mode, source string, window int, now time.Time) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Mode:      mode,
		Source:    source,
		StartedAt: now,
		confirmer: confirm.New(window),
	}
}

// Supersede marks the session stale. It is idempotent.
func (s *Session) Supersede() {
	if s != nil {
		s.superseded.Store(true)
	}
}

// Superseded reports whether a newer session or a reset replaced s.
func (s *Session) Superseded() bool {
	return s == nil || s.superseded.Load()
}

// Context annotates ctx with the session identity for logging.
func (s *Session) Context(ctx context.Context) context.Context {
	ctx = services.WithSessionID(ctx, s.ID)
	return services.WithMode(ctx, string(s.Mode))
}

// Info is a read-only view of a session.
type Info struct {
	ID        string    `json:"id"`
	Mode      Mode      `json:"mode"`
	Source    string    `json:"source,omitempty"`
	StartedAt time.Time `json:"started_at"`
	Rounds    int       `json:"rounds"`
	Window    []string  `json:"window"`
}

// info must be called with the Manager lock held.
func (s *Session) info() Info {
	return Info{
		ID:        s.ID,
		Mode:      s.Mode,
		Source:    s.Source,
		StartedAt: s.StartedAt,
		Rounds:    s.rounds,
		Window:    roundLabels(s.confirmer.Rounds()),
	}
}

func roundLabels(rounds []confirm.Round) []string {
	out := make([]string, len(rounds))
	for i, r := range rounds {
		out[i] = r.String()
	}
	return out
}
