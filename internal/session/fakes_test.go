package session

import (
	"context"
	"errors"
	"sync"

	"cashcue/internal/announce"
	"cashcue/internal/history"
)

// scriptGateway returns one scripted response per call, repeating the last.
type scriptGateway struct {
	mu     sync.Mutex
	script []gatewayReply
	calls  int
}

type gatewayReply struct {
	records []map[string]any
	err     error
}

func reply(label string, confidence float64) gatewayReply {
	return gatewayReply{records: []map[string]any{{"class": label, "confidence": confidence}}}
}

func emptyReply() gatewayReply { return gatewayReply{records: []map[string]any{}} }

func failReply() gatewayReply { return gatewayReply{err: errors.New("gateway down")} }

func (g *scriptGateway) Infer(ctx context.Context, _ []byte) ([]map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	idx := min(g.calls, len(g.script)-1)
	g.calls++
	r := g.script[idx]
	return r.records, r.err
}

func (g *scriptGateway) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type fakeCamera struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (c *fakeCamera) Frame(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return []byte("frame"), nil
}

func (c *fakeCamera) fail(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
}

type recordingAnnouncer struct {
	mu      sync.Mutex
	spoken  []string
	cleared int
	inner   *announce.Deduplicator
}

func newRecordingAnnouncer(inner *announce.Deduplicator) *recordingAnnouncer {
	return &recordingAnnouncer{inner: inner}
}

func (a *recordingAnnouncer) Announce(ctx context.Context, denomination string) bool {
	ok := a.inner.Announce(ctx, denomination)
	if ok {
		a.mu.Lock()
		a.spoken = append(a.spoken, denomination)
		a.mu.Unlock()
	}
	return ok
}

func (a *recordingAnnouncer) Clear() {
	a.mu.Lock()
	a.cleared++
	a.mu.Unlock()
	a.inner.Clear()
}

func (a *recordingAnnouncer) State() announce.State { return a.inner.State() }

func (a *recordingAnnouncer) Spoken() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.spoken...)
}

type memRecorder struct {
	mu      sync.Mutex
	entries []history.Entry
}

func (r *memRecorder) Record(_ context.Context, entry history.Entry) (history.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = int64(len(r.entries) + 1)
	r.entries = append(r.entries, entry)
	return entry, nil
}

func (r *memRecorder) Entries() []history.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]history.Entry(nil), r.entries...)
}
