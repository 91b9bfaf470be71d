package announce

import (
	"context"
	"sync"
	"testing"
	"time"
)

type recordingSpeaker struct {
	mu        sync.Mutex
	spoken    []string
	cancelled []string
	started   chan string
	block     bool
}

func newRecordingSpeaker(block bool) *recordingSpeaker {
	return &recordingSpeaker{started: make(chan string, 16), block: block}
}

func (s *recordingSpeaker) Speak(ctx context.Context, text string) error {
	s.mu.Lock()
	s.spoken = append(s.spoken, text)
	s.mu.Unlock()
	s.started <- text
	if !s.block {
		return nil
	}
	<-ctx.Done()
	s.mu.Lock()
	s.cancelled = append(s.cancelled, text)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *recordingSpeaker) snapshot() ([]string, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.spoken...), append([]string(nil), s.cancelled...)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func waitStarted(t *testing.T, s *recordingSpeaker, want string) {
	t.Helper()
	select {
	case got := <-s.started:
		if got != want {
			t.Fatalf("spoke %q, want %q", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %q", want)
	}
}

func TestAnnounceTwiceWithinCooldownSpeaksOnce(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	speaker := newRecordingSpeaker(false)
	d := NewDeduplicator(speaker, 5*time.Second, WithClock(clock.Now))

	if !d.Announce(context.Background(), "100") {
		t.Fatal("first announcement suppressed")
	}
	clock.Advance(2 * time.Second)
	if d.Announce(context.Background(), "100") {
		t.Fatal("repeat inside cool-down was announced")
	}
	d.Wait()

	spoken, _ := speaker.snapshot()
	if len(spoken) != 1 {
		t.Fatalf("spoken = %v, want one announcement", spoken)
	}
}

func TestAnnounceRepeatsAfterCooldown(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	speaker := newRecordingSpeaker(false)
	d := NewDeduplicator(speaker, 5*time.Second, WithClock(clock.Now))

	d.Announce(context.Background(), "100")
	clock.Advance(5 * time.Second)
	if !d.Announce(context.Background(), "100") {
		t.Fatal("announcement after cool-down was suppressed")
	}
	d.Wait()

	spoken, _ := speaker.snapshot()
	if len(spoken) != 2 {
		t.Fatalf("spoken = %v, want two announcements", spoken)
	}
}

func TestAnnounceNewDenominationCancelsInFlight(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	speaker := newRecordingSpeaker(true)
	d := NewDeduplicator(speaker, 5*time.Second, WithClock(clock.Now))

	d.Announce(context.Background(), "100")
	waitStarted(t, speaker, "100")
	if !d.Announce(context.Background(), "50") {
		t.Fatal("new denomination suppressed")
	}
	waitStarted(t, speaker, "50")

	if state := d.State(); state.Active != "50" || !state.Speaking {
		t.Fatalf("State() = %+v, want active 50 speaking", state)
	}

	d.Close()
	spoken, cancelled := speaker.snapshot()
	if len(spoken) != 2 {
		t.Fatalf("spoken = %v, want two", spoken)
	}
	if len(cancelled) != 2 {
		t.Fatalf("cancelled = %v, want both announcements cancelled", cancelled)
	}
}

func TestClearAllowsImmediateRepeat(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	speaker := newRecordingSpeaker(false)
	d := NewDeduplicator(speaker, 5*time.Second, WithClock(clock.Now))

	d.Announce(context.Background(), "100")
	d.Clear()
	if state := d.State(); state.Active != "" || !state.Deadline.IsZero() {
		t.Fatalf("State() after Clear = %+v", state)
	}
	if !d.Announce(context.Background(), "100") {
		t.Fatal("announcement after Clear was suppressed")
	}
	d.Wait()
}

func TestAnnounceOutlivesCallerContext(t *testing.T) {
	speaker := newRecordingSpeaker(true)
	d := NewDeduplicator(speaker, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	d.Announce(ctx, "200")
	waitStarted(t, speaker, "200")
	cancel()

	time.Sleep(20 * time.Millisecond)
	if _, cancelled := speaker.snapshot(); len(cancelled) != 0 {
		t.Fatalf("caller cancellation interrupted speech: %v", cancelled)
	}
	d.Close()
}

func TestPhraserUsesUnitAndGrouping(t *testing.T) {
	p := NewPhraser("en", "rupees")
	tests := map[string]string{
		"100":  "100 rupees",
		"2000": "2,000 rupees",
		"coin": "coin rupees",
	}
	for input, want := range tests {
		if got := p.Phrase(input); got != want {
			t.Errorf("Phrase(%q) = %q, want %q", input, got, want)
		}
	}
	if got := NewPhraser("not a tag!", "").Phrase("50"); got != "50" {
		t.Errorf("Phrase without unit = %q", got)
	}
}

func TestDeduplicatorUsesPhraser(t *testing.T) {
	speaker := newRecordingSpeaker(false)
	d := NewDeduplicator(speaker, time.Second, WithPhraser(NewPhraser("en", "dollars")))
	d.Announce(context.Background(), "20")
	waitStarted(t, speaker, "20 dollars")
	d.Wait()
}
