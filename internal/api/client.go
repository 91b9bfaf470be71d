package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Client talks to a running cashcue daemon.
type Client struct {
	base  string
	token string
	http  *http.Client
}

// NewClient targets the API at bind, an address such as 127.0.0.1:7580 or
// a full http URL.
func NewClient(bind, token string) *Client {
	base := strings.TrimRight(strings.TrimSpace(bind), "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &Client{base: base, token: token, http: &http.Client{Timeout: 60 * time.Second}}
}

// Status fetches the manager snapshot.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, "", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Clear resets the daemon's detection state.
func (c *Client) Clear(ctx context.Context) (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.do(ctx, http.MethodPost, "/api/clear", nil, "", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StartLive begins continuous detection on the daemon.
func (c *Client) StartLive(ctx context.Context) (*LiveResponse, error) {
	var resp LiveResponse
	if err := c.do(ctx, http.MethodPost, "/api/live/start", nil, "", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StopLive ends continuous detection on the daemon.
func (c *Client) StopLive(ctx context.Context) (*LiveResponse, error) {
	var resp LiveResponse
	if err := c.do(ctx, http.MethodPost, "/api/live/stop", nil, "", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Capture runs a camera burst on the daemon.
func (c *Client) Capture(ctx context.Context) (*DetectResponse, error) {
	var resp DetectResponse
	if err := c.do(ctx, http.MethodPost, "/api/capture", nil, "", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Detect uploads the image at path for a burst.
func (c *Client) Detect(ctx context.Context, path string) (*DetectResponse, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, err
	}
	if err := form.Close(); err != nil {
		return nil, err
	}
	var resp DetectResponse
	if err := c.do(ctx, http.MethodPost, "/api/detect", &body, form.FormDataContentType(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// History lists recent confirmations.
func (c *Client) History(ctx context.Context, limit int, denomination string) (*HistoryResponse, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if denomination != "" {
		query.Set("denomination", denomination)
	}
	path := "/api/history"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	var resp HistoryResponse
	if err := c.do(ctx, http.MethodGet, path, nil, "", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Watch streams daemon events to fn until ctx ends, the connection drops,
// or fn returns false.
func (c *Client) Watch(ctx context.Context, fn func(EventView) bool) error {
	target, err := url.Parse(c.base + "/api/events")
	if err != nil {
		return err
	}
	switch target.Scheme {
	case "https":
		target.Scheme = "wss"
	default:
		target.Scheme = "ws"
	}
	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, target.String(), header)
	if err != nil {
		return fmt.Errorf("cashcue daemon unreachable at %s: %w", c.base, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		var evt EventView
		if err := conn.ReadJSON(&evt); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read event: %w", err)
		}
		if !fn(evt) {
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return nil
		}
	}
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("cashcue daemon unreachable at %s: %w", c.base, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s (status %d)", method, path, apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
