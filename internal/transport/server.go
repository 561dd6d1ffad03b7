// Package transport exposes the pipeline over HTTP: a WebSocket stream of raw
// PCM frames, a WebRTC offer/answer endpoint and the operational routes.
package transport

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Raikerian/go-voice-ingest/internal/config"
	"github.com/Raikerian/go-voice-ingest/internal/metrics"
	"github.com/Raikerian/go-voice-ingest/internal/pipeline"
)

// Server owns the HTTP listener and the routes.
type Server struct {
	cfg      config.ServerConfig
	manager  *pipeline.Manager
	metrics  *metrics.Metrics
	logger   *zap.Logger
	engine   *gin.Engine
	http     *http.Server
	upgrader websocket.Upgrader
	rtc      webrtc.Configuration
	started  time.Time
}

// NewServer builds the router. gatherer may be nil, which disables /metrics.
func NewServer(cfg config.ServerConfig, manager *pipeline.Manager, gatherer prometheus.Gatherer, m *metrics.Metrics, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cfg:     cfg,
		manager: manager,
		metrics: m,
		logger:  logger.Named("http"),
		engine:  gin.New(),
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(*http.Request) bool { return true },
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		rtc:     webrtc.Configuration{ICEServers: iceServers(cfg.ICEServers)},
		started: time.Now(),
	}

	s.engine.Use(gin.Recovery(), s.observe())

	s.engine.GET("/healthz", s.handleHealth)
	if gatherer != nil {
		s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	s.engine.GET("/sessions", s.handleSessions)
	s.engine.DELETE("/sessions/:id", s.handleCloseSession)
	s.engine.GET("/ws", s.handleWebSocket)
	s.engine.POST("/api/offer", s.handleOffer)

	s.http = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
	return s
}

func iceServers(urls []string) []webrtc.ICEServer {
	if len(urls) == 0 {
		return nil
	}
	return []webrtc.ICEServer{{URLs: urls}}
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.engine }

// Start binds the listener and serves in the background.
func (s *Server) Start(context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return err
	}
	s.logger.Info("HTTP server listening", zap.String("addr", ln.Addr().String()))

	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server stopped", zap.Error(err))
		}
	}()
	return nil
}

// Stop stops accepting requests and waits for active handlers until ctx is
// done. Upgraded connections are not tracked by the server; the session
// manager closes them.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")
	return s.http.Shutdown(ctx)
}

// observe records request metrics and logs failed requests.
func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)
		s.metrics.HTTPRequest(c.Request.Method, route, status, elapsed)

		if status >= http.StatusInternalServerError {
			s.logger.Warn("Request failed",
				zap.String("method", c.Request.Method),
				zap.String("route", route),
				zap.Int("status", status),
				zap.Duration("elapsed", elapsed),
				zap.Strings("errors", c.Errors.Errors()))
		}
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"uptime":          time.Since(s.started).Round(time.Second).String(),
		"active_sessions": s.manager.Count(),
	})
}

func (s *Server) handleSessions(c *gin.Context) {
	sessions := s.manager.List()
	c.JSON(http.StatusOK, gin.H{
		"count":    len(sessions),
		"sessions": sessions,
	})
}

func (s *Server) handleCloseSession(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}
	if err := s.manager.Close(id); err != nil {
		if errors.Is(err, pipeline.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// openStatus maps a Manager.Open error to an HTTP status.
func openStatus(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrMaxSessionsReached):
		return http.StatusTooManyRequests
	case errors.Is(err, pipeline.ErrSessionClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
