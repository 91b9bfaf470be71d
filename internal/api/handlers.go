package api

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"cashcue/internal/history"
	"cashcue/internal/logging"
	"cashcue/internal/services"
	"cashcue/internal/session"
	"cashcue/internal/source"
)

func (h *handlers) status(c *gin.Context) {
	c.JSON(http.StatusOK, FromStatus(h.ctrl.Status()))
}

func (h *handlers) detect(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	header, err := c.FormFile("file")
	if err != nil {
		h.fail(c, services.Wrap(services.ErrValidation, "api", "detect", "multipart field \"file\" is required", err))
		return
	}
	file, err := header.Open()
	if err != nil {
		h.fail(c, services.Wrap(services.ErrSourceUnavailable, "api", "detect", "open upload", err))
		return
	}
	defer file.Close()

	image, err := source.PrepareImage(file, h.maxEdge)
	if err != nil {
		h.fail(c, services.Wrap(services.ErrValidation, "api", "detect", header.Filename, err))
		return
	}
	label := filepath.Base(strings.TrimSpace(header.Filename))
	if label == "." || label == "/" {
		label = ""
	}
	res, err := h.ctrl.DetectImage(c.Request.Context(), image, label)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, FromBurst(res))
}

func (h *handlers) capture(c *gin.Context) {
	res, err := h.ctrl.Capture(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, FromBurst(res))
}

func (h *handlers) liveStart(c *gin.Context) {
	info, err := h.ctrl.StartLive()
	if err != nil {
		h.fail(c, err)
		return
	}
	view := FromInfo(info)
	c.JSON(http.StatusOK, LiveResponse{Live: true, Session: &view})
}

func (h *handlers) liveStop(c *gin.Context) {
	h.ctrl.StopLive()
	c.JSON(http.StatusOK, LiveResponse{Live: false})
}

func (h *handlers) clear(c *gin.Context) {
	h.ctrl.Clear()
	c.JSON(http.StatusOK, FromStatus(h.ctrl.Status()))
}

func (h *handlers) listHistory(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusOK, HistoryResponse{Entries: []HistoryEntry{}})
		return
	}
	opts := history.ListOptions{Denomination: strings.TrimSpace(c.Query("denomination"))}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			h.fail(c, services.Wrap(services.ErrValidation, "api", "history", "invalid limit", err))
			return
		}
		opts.Limit = limit
	}
	if raw := c.Query("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.fail(c, services.Wrap(services.ErrValidation, "api", "history", "since must be RFC3339", err))
			return
		}
		opts.Since = since
	}
	ctx := c.Request.Context()
	entries, err := h.history.List(ctx, opts)
	if err != nil {
		h.fail(c, err)
		return
	}
	counts, err := h.history.Counts(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	out := HistoryResponse{Entries: make([]HistoryEntry, 0, len(entries)), Counts: counts}
	for _, entry := range entries {
		out.Entries = append(out.Entries, FromEntry(entry))
	}
	c.JSON(http.StatusOK, out)
}

// fail maps err onto an HTTP status and writes an ErrorResponse.
func (h *handlers) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if unexpectedFailure(status, err) {
		logging.WarnWithContext(logging.WithContext(c.Request.Context(), h.logger), "api request failed", "api_request_failed",
			logging.String("path", c.FullPath()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "see the preceding session log entries"),
			logging.String(logging.FieldImpact, "request returned an error"),
		)
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}

// unexpectedFailure reports server-side errors the session manager has not
// already logged. Source acquisition problems are warned about where they occur.
func unexpectedFailure(status int, err error) bool {
	return status >= http.StatusInternalServerError && !services.UserVisible(err)
}

func statusFor(err error) int {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, session.ErrNoCamera), errors.Is(err, services.ErrSourceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
