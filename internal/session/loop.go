package session

import (
	"context"
	"sync"
	"time"
)

// StepFunc runs one round. Returning false ends the loop.
type StepFunc func(ctx context.Context) bool

// Loop repeatedly runs a step, waiting interval after each completed step
// before starting the next. Steps never overlap.
type Loop struct {
	interval time.Duration
	step     StepFunc

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	stopped bool
}

// NewLoop constructs a stopped loop.
func NewLoop(interval time.Duration, step StepFunc) *Loop {
	return &Loop{interval: interval, step: step}
}

// Start launches the loop. It reports false if the loop is already running
// or was stopped before it started.
func (l *Loop) Start(ctx context.Context) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done != nil || l.stopped {
		return false
	}
	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.done = make(chan struct{})
	go l.run(ctx, cancel, l.done)
	return true
}

func (l *Loop) run(ctx context.Context, cancel context.CancelFunc, done chan struct{}) {
	defer close(done)
	defer cancel()
	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()
	for {
		if ctx.Err() != nil {
			return
		}
		if !l.step(ctx) {
			return
		}
		timer.Reset(l.interval)
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
	}
}

// Stop cancels the loop and waits for an in-flight step to return. It must
// not be called from inside a step.
func (l *Loop) Stop() {
	l.mu.Lock()
	l.stopped = true
	cancel, done := l.cancel, l.done
	l.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Done is closed when the loop exits. It is nil before Start.
func (l *Loop) Done() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done
}
