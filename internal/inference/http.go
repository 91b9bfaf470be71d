package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"cashcue/internal/services"
)

const maxResponseBytes = 4 << 20

// HTTPOption configures an HTTPGateway.
type HTTPOption func(*HTTPGateway)

// WithAPIKey sends key as a bearer token.
func WithAPIKey(key string) HTTPOption {
	return func(g *HTTPGateway) {
		g.apiKey = strings.TrimSpace(key)
	}
}

// WithTimeout bounds each request.
func WithTimeout(timeout time.Duration) HTTPOption {
	return func(g *HTTPGateway) {
		if timeout > 0 {
			g.client.Timeout = timeout
		}
	}
}

// WithHTTPClient swaps the underlying client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(g *HTTPGateway) {
		if client != nil {
			g.client = client
		}
	}
}

// HTTPGateway posts frames as multipart uploads to a remote detector.
type HTTPGateway struct {
	url    string
	apiKey string
	client *http.Client
}

// NewHTTPGateway constructs a gateway targeting url.
func NewHTTPGateway(url string, opts ...HTTPOption) *HTTPGateway {
	g := &HTTPGateway{
		url:    strings.TrimSpace(url),
		client: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Infer uploads image under the "file" form field and returns the decoded
// detections. Responses may be {"predictions": [...]}, {"detections": [...]}
// or a bare array.
func (g *HTTPGateway) Infer(ctx context.Context, image []byte) ([]map[string]any, error) {
	if g.url == "" {
		return nil, services.Wrap(services.ErrConfiguration, "inference", "http", "url not configured", nil)
	}
	if len(image) == 0 {
		return nil, services.Wrap(services.ErrValidation, "inference", "http", "empty image", nil)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "frame.jpg")
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "inference", "http", "create form file", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, services.Wrap(services.ErrTransient, "inference", "http", "write image", err)
	}
	if err := writer.Close(); err != nil {
		return nil, services.Wrap(services.ErrTransient, "inference", "http", "close form", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, body)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "inference", "http", "build request", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "inference", "http", "send request", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "inference", "http", "read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
		return nil, services.Wrap(services.ErrTransient, "inference", "http", msg, nil)
	}
	records, err := DecodeRecords(payload)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "inference", "http", "decode response", err)
	}
	return records, nil
}

// DecodeRecords extracts raw detection records from a detector response.
// Non-object array entries are skipped.
func DecodeRecords(payload []byte) ([]map[string]any, error) {
	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.UseNumber()
	var doc any
	if err := decoder.Decode(&doc); err != nil {
		return nil, err
	}

	var list []any
	switch v := doc.(type) {
	case []any:
		list = v
	case map[string]any:
		for _, key := range []string{"predictions", "detections", "results"} {
			if entries, ok := v[key].([]any); ok {
				list = entries
				break
			}
		}
	default:
		return nil, fmt.Errorf("unexpected response type %T", doc)
	}

	records := make([]map[string]any, 0, len(list))
	for _, entry := range list {
		if record, ok := entry.(map[string]any); ok {
			records = append(records, record)
		}
	}
	return records, nil
}
