package announce

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"cashcue/internal/logging"
)

// State is a snapshot of the deduplicator.
type State struct {
	Active   string    `json:"active,omitempty"`
	Deadline time.Time `json:"deadline,omitempty"`
	Speaking bool      `json:"speaking"`
}

// Deduplicator gates announcements by denomination and cool-down.
type Deduplicator struct {
	speaker  Speaker
	phrase   func(string) string
	cooldown time.Duration
	now      func() time.Time
	logger   *slog.Logger

	mu       sync.Mutex
	active   string
	deadline time.Time
	cancel   context.CancelFunc
	speaking bool
	seq      uint64
	wg       sync.WaitGroup
}

// DedupOption customizes a Deduplicator.
type DedupOption func(*Deduplicator)

// WithClock overrides the time source.
func WithClock(now func() time.Time) DedupOption {
	return func(d *Deduplicator) {
		if now != nil {
			d.now = now
		}
	}
}

// WithPhraser sets how denominations become spoken text.
func WithPhraser(p *Phraser) DedupOption {
	return func(d *Deduplicator) {
		if p != nil {
			d.phrase = p.Phrase
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) DedupOption {
	return func(d *Deduplicator) {
		d.logger = logging.NewComponentLogger(logger, "announce")
	}
}

// NewDeduplicator returns a deduplicator speaking through speaker. A nil
// speaker is replaced with Silent.
func NewDeduplicator(speaker Speaker, cooldown time.Duration, opts ...DedupOption) *Deduplicator {
	if speaker == nil {
		speaker = Silent{}
	}
	d := &Deduplicator{
		speaker:  speaker,
		phrase:   func(s string) string { return s },
		cooldown: cooldown,
		now:      time.Now,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Announce speaks denomination unless it is already the active announcement
// and still inside the cool-down. It reports whether an announcement started.
// Speech runs in the background and outlives ctx cancellation; only a newer
// announcement or Clear interrupts it.
func (d *Deduplicator) Announce(ctx context.Context, denomination string) bool {
	d.mu.Lock()
	now := d.now()
	if denomination == d.active && now.Before(d.deadline) {
		d.mu.Unlock()
		d.logger.Debug("announcement suppressed",
			logging.Denomination(denomination),
			logging.Duration("remaining", d.deadline.Sub(now)),
		)
		return false
	}
	if d.cancel != nil {
		d.cancel()
	}
	speakCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	d.active = denomination
	d.deadline = now.Add(d.cooldown)
	d.cancel = cancel
	d.speaking = true
	d.seq++
	seq := d.seq
	d.wg.Add(1)
	d.mu.Unlock()

	text := d.phrase(denomination)
	d.logger.Info("announcing denomination",
		logging.Denomination(denomination),
		logging.String("text", text),
		logging.String(logging.FieldEventType, "announcement_started"),
	)
	go d.speak(speakCtx, seq, text)
	return true
}

func (d *Deduplicator) speak(ctx context.Context, seq uint64, text string) {
	defer d.wg.Done()
	err := d.speaker.Speak(ctx, text)

	d.mu.Lock()
	if d.seq == seq {
		d.speaking = false
		if d.cancel != nil {
			d.cancel()
			d.cancel = nil
		}
	}
	d.mu.Unlock()

	if err != nil && ctx.Err() == nil {
		logging.WarnWithContext(d.logger, "announcement failed", "announcement_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check announce.command and audio output"),
			logging.String(logging.FieldImpact, "confirmation was not spoken"),
		)
	}
}

// Clear forgets the active denomination and silences any in-flight speech so
// the next confirmation is announced even if it repeats.
func (d *Deduplicator) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.active = ""
	d.deadline = time.Time{}
	d.speaking = false
	d.seq++
}

// State returns the current active denomination and cool-down deadline.
func (d *Deduplicator) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return State{Active: d.active, Deadline: d.deadline, Speaking: d.speaking}
}

// Wait blocks until every started announcement has returned.
func (d *Deduplicator) Wait() {
	d.wg.Wait()
}

// Close cancels in-flight speech and waits for it to stop.
func (d *Deduplicator) Close() {
	d.Clear()
	d.Wait()
}
