package events

import (
	"context"
	"sync"
	"testing"
	"time"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Append(evt Event) {
	s.mu.Lock()
	s.events = append(s.events, evt)
	s.mu.Unlock()
}

func TestHubPublishAssignsSequence(t *testing.T) {
	hub := NewHub(4)
	sink := &recordingSink{}
	hub.AddSink(sink)

	first := hub.Publish(Event{Type: TypeRound})
	second := hub.Publish(Event{Type: TypeConfirmed, Denomination: "100"})
	if first.Sequence != 1 || second.Sequence != 2 {
		t.Fatalf("sequences = %d,%d", first.Sequence, second.Sequence)
	}
	if first.Timestamp.IsZero() {
		t.Fatal("expected timestamp to be set")
	}
	if len(sink.events) != 2 {
		t.Fatalf("sink received %d events", len(sink.events))
	}
}

func TestHubEvictsOldest(t *testing.T) {
	hub := NewHub(2)
	for i := 0; i < 5; i++ {
		hub.Publish(Event{Type: TypeRound, Round: i + 1})
	}
	events, next := hub.Tail(0)
	if len(events) != 2 || events[0].Round != 4 || events[1].Round != 5 {
		t.Fatalf("Tail() = %+v", events)
	}
	if next != 5 {
		t.Fatalf("next = %d, want 5", next)
	}
}

func TestHubFetchSinceAndLimit(t *testing.T) {
	hub := NewHub(10)
	for i := 0; i < 5; i++ {
		hub.Publish(Event{Type: TypeRound, Round: i + 1})
	}
	events, next, err := hub.Fetch(context.Background(), 2, 2, false)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(events) != 2 || events[0].Sequence != 3 || next != 4 {
		t.Fatalf("Fetch() = %+v next=%d", events, next)
	}
	events, next, _ = hub.Fetch(context.Background(), next, 0, false)
	if len(events) != 1 || events[0].Sequence != 5 || next != 5 {
		t.Fatalf("second Fetch() = %+v next=%d", events, next)
	}
	events, next, _ = hub.Fetch(context.Background(), next, 0, false)
	if len(events) != 0 || next != 5 {
		t.Fatalf("drained Fetch() = %+v next=%d", events, next)
	}
}

func TestHubFetchWaitsForPublish(t *testing.T) {
	hub := NewHub(4)
	done := make(chan []Event, 1)
	go func() {
		events, _, _ := hub.Fetch(context.Background(), 0, 0, true)
		done <- events
	}()
	time.Sleep(20 * time.Millisecond)
	hub.Publish(Event{Type: TypeCleared})

	select {
	case events := <-done:
		if len(events) != 1 || events[0].Type != TypeCleared {
			t.Fatalf("Fetch() = %+v", events)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Fetch did not wake on publish")
	}
}

func TestHubFetchWaitHonoursContext(t *testing.T) {
	hub := NewHub(4)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, _, err := hub.Fetch(ctx, 0, 0, true)
	if err == nil {
		t.Fatal("expected context error")
	}
}

func TestHubLast(t *testing.T) {
	hub := NewHub(4)
	if _, ok := hub.Last(TypeConfirmed); ok {
		t.Fatal("expected no confirmed event")
	}
	hub.Publish(Event{Type: TypeConfirmed, Denomination: "50"})
	hub.Publish(Event{Type: TypeRound})
	hub.Publish(Event{Type: TypeConfirmed, Denomination: "100"})
	evt, ok := hub.Last(TypeConfirmed)
	if !ok || evt.Denomination != "100" {
		t.Fatalf("Last() = %+v, %v", evt, ok)
	}
}
