package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"cashcue/internal/events"
	"cashcue/internal/logging"
)

const (
	streamBatch     = 64
	streamWriteWait = 5 * time.Second
	streamPongWait  = 60 * time.Second
	streamPingEvery = 25 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The API binds to localhost by default and is token gated otherwise.
	CheckOrigin: func(*http.Request) bool { return true },
}

// stream upgrades to a WebSocket and forwards hub events as JSON text
// frames. The optional since query parameter resumes after a sequence
// number; without it the client first receives the buffered tail.
func (h *handlers) stream(c *gin.Context) {
	if h.hub == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "event stream unavailable"})
		return
	}
	var since uint64
	resume := false
	if raw := c.Query("since"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid since"})
			return
		}
		since, resume = parsed, true
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", logging.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	go readPump(conn, cancel)

	log := logging.WithContext(ctx, h.logger)
	log.Debug("event stream opened", logging.Uint64("since", since))

	if !resume {
		tail, _ := h.hub.Tail(streamBatch)
		if len(tail) > 0 {
			since = tail[0].Sequence - 1
		} else {
			_, since = h.hub.Tail(0)
		}
	}

	ping := time.NewTicker(streamPingEvery)
	defer ping.Stop()
	batches := make(chan fetchResult)
	go h.fetchLoop(ctx, since, batches)

	for {
		select {
		case <-ctx.Done():
			log.Debug("event stream closed")
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case batch, ok := <-batches:
			if !ok {
				return
			}
			for _, evt := range batch.items {
				_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
				if err := conn.WriteJSON(FromEvent(evt)); err != nil {
					if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
						log.Debug("event stream write failed", logging.Error(err))
					}
					return
				}
			}
		}
	}
}

type fetchResult struct {
	items []events.Event
}

// fetchLoop blocks on the hub and feeds batches to the writer goroutine so
// the writer stays free to send pings.
func (h *handlers) fetchLoop(ctx context.Context, since uint64, out chan<- fetchResult) {
	defer close(out)
	for {
		batch, next, err := h.hub.Fetch(ctx, since, streamBatch, true)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				h.logger.Debug("event fetch stopped", logging.Error(err))
			}
			return
		}
		since = next
		select {
		case out <- fetchResult{items: batch}:
		case <-ctx.Done():
			return
		}
	}
}

// readPump drains client frames so control messages are processed and
// cancels the stream once the peer goes away.
func readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
