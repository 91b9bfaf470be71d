package notifications

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"cashcue/internal/events"
	"cashcue/internal/logging"
)

const sinkTimeout = 15 * time.Second

// EventSink forwards hub events to a Service without blocking the publisher.
type EventSink struct {
	svc    Service
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewEventSink wraps svc for use with events.Hub.AddSink.
func NewEventSink(svc Service, logger *slog.Logger) *EventSink {
	return &EventSink{svc: svc, logger: logging.NewComponentLogger(logger, "notifications")}
}

// Append implements events.Sink.
func (s *EventSink) Append(evt events.Event) {
	if s == nil || s.svc == nil {
		return
	}
	var send func(context.Context) error
	switch evt.Type {
	case events.TypeConfirmed:
		send = func(ctx context.Context) error {
			return s.svc.NotifyConfirmed(ctx, evt.Label, evt.Source)
		}
	case events.TypeSourceUnavailable:
		send = func(ctx context.Context) error {
			return s.svc.NotifySourceUnavailable(ctx, evt.Source, errors.New(evt.Message))
		}
	default:
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
		defer cancel()
		if err := send(ctx); err != nil {
			logging.WarnWithContext(s.logger, "notification delivery failed", "notification_failed",
				logging.String(logging.FieldSessionID, evt.SessionID),
				logging.String("event", string(evt.Type)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic reachability"),
				logging.String(logging.FieldImpact, "push notification was not delivered"),
			)
		}
	}()
}

// Wait blocks until in-flight deliveries finish.
func (s *EventSink) Wait() {
	s.wg.Wait()
}
