package api

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"cashcue/internal/events"
	"cashcue/internal/history"
	"cashcue/internal/logging"
	"cashcue/internal/services"
	"cashcue/internal/session"
)

// maxUploadBytes caps multipart uploads on /api/detect.
const maxUploadBytes = 16 << 20

// Controller is the subset of the session manager the API drives.
type Controller interface {
	Status() session.Status
	DetectImage(ctx context.Context, image []byte, label string) (session.BurstResult, error)
	Capture(ctx context.Context) (session.BurstResult, error)
	StartLive() (session.Info, error)
	StopLive() bool
	Clear()
}

// HistoryReader lists persisted confirmations.
type HistoryReader interface {
	List(ctx context.Context, opts history.ListOptions) ([]history.Entry, error)
	Counts(ctx context.Context) (map[string]int, error)
}

// RouterOptions wires the HTTP handlers.
type RouterOptions struct {
	Controller Controller
	History    HistoryReader
	Hub        *events.Hub
	Logger     *slog.Logger
	Token      string
	MaxEdge    int
}

type handlers struct {
	ctrl    Controller
	history HistoryReader
	hub     *events.Hub
	logger  *slog.Logger
	maxEdge int
}

// NewRouter builds the gin engine serving every API route.
func NewRouter(opts RouterOptions) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	logger := logging.NewComponentLogger(opts.Logger, "api")
	h := &handlers{
		ctrl:    opts.Controller,
		history: opts.History,
		hub:     opts.Hub,
		logger:  logger,
		maxEdge: opts.MaxEdge,
	}
	r.Use(gin.Recovery(), requestID(), accessLog(logger))

	group := r.Group("/api")
	group.Use(bearerAuth(opts.Token))
	group.GET("/status", h.status)
	group.POST("/detect", h.detect)
	group.POST("/capture", h.capture)
	group.POST("/live/start", h.liveStart)
	group.POST("/live/stop", h.liveStop)
	group.POST("/clear", h.clear)
	group.GET("/history", h.listHistory)
	group.GET("/events", h.stream)
	return r
}

// requestID tags each request context with a correlation id for logging.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader("X-Request-ID"))
		if id == "" {
			id = uuid.NewString()
		}
		c.Header("X-Request-ID", id)
		c.Request = c.Request.WithContext(services.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

func accessLog(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		logging.WithContext(c.Request.Context(), logger).Debug("api request",
			logging.String("method", c.Request.Method),
			logging.String("path", c.FullPath()),
			logging.Int("status", c.Writer.Status()),
		)
	}
}

// bearerAuth validates the Authorization header when token is set.
func bearerAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		presented := ""
		if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			presented = strings.TrimPrefix(auth, "Bearer ")
		} else if c.FullPath() == "/api/events" {
			presented = c.Query("token")
		}
		if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
			return
		}
		c.Next()
	}
}
