package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cashcue/internal/config"
)

const userAgent = "cashcue/0.1.0"

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	NotifyConfirmed(ctx context.Context, label, source string) error
	NotifySourceUnavailable(ctx context.Context, source string, err error) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:      topic,
		client:        &http.Client{Timeout: timeout},
		confirmations: cfg.Notifications.Confirmations,
		errors:        cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint      string
	client        *http.Client
	confirmations bool
	errors        bool
}

func (n *ntfyService) NotifyConfirmed(ctx context.Context, label, source string) error {
	if !n.confirmations {
		return nil
	}
	label = strings.TrimSpace(label)
	message := fmt.Sprintf("💵 Detected: %s", label)
	if source = strings.TrimSpace(source); source != "" {
		message = fmt.Sprintf("%s (%s)", message, source)
	}
	return n.send(ctx, payload{
		title:   "cashcue - Confirmed",
		message: message,
		tags:    []string{"cashcue", "confirmed"},
	})
}

func (n *ntfyService) NotifySourceUnavailable(ctx context.Context, source string, err error) error {
	if !n.errors {
		return nil
	}
	source = strings.TrimSpace(source)
	if source == "" {
		source = "image source"
	}
	message := fmt.Sprintf("📷 %s unavailable", source)
	if err != nil {
		message = fmt.Sprintf("%s: %s", message, strings.TrimSpace(err.Error()))
	}
	return n.send(ctx, payload{
		title:    "cashcue - Source Unavailable",
		message:  message,
		tags:     []string{"cashcue", "source", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("❌ Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}
	return n.send(ctx, payload{
		title:    "cashcue - Error",
		message:  builder.String(),
		tags:     []string{"cashcue", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "cashcue - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"cashcue", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyConfirmed(context.Context, string, string) error        { return nil }
func (noopService) NotifySourceUnavailable(context.Context, string, error) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error             { return nil }
func (noopService) TestNotification(context.Context) error                       { return nil }
