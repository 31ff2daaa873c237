package http

import (
	stdhttp "net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wireirc/internal/config"
	"github.com/vovakirdan/wireirc/internal/core"
	"github.com/vovakirdan/wireirc/internal/hostname"
	"github.com/vovakirdan/wireirc/internal/session"
)

// StatsResponse is the body of GET /stats.
type StatsResponse struct {
	ServerName     string `json:"server_name"`
	ActiveSessions int64  `json:"active_sessions"`
	TotalSessions  uint64 `json:"total_sessions"`
	UptimeSeconds  int64  `json:"uptime_seconds"`
}

// NewServer builds the HTTP server exposing health, stats and the WebSocket gateway.
func NewServer(cfg config.Config, d *core.Dispatcher, resolver *hostname.Resolver, tracker *session.Tracker, logger *zerolog.Logger) *stdhttp.Server {
	if tracker == nil {
		tracker = session.NewTracker(cfg.MaxConnections)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	started := time.Now()

	router.GET("/health", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})
	router.GET("/stats", func(c *gin.Context) {
		c.JSON(stdhttp.StatusOK, StatsResponse{
			ServerName:     cfg.ServerName,
			ActiveSessions: tracker.Active(),
			TotalSessions:  tracker.Total(),
			UptimeSeconds:  int64(time.Since(started).Seconds()),
		})
	})

	ws := NewWSHandler(d, resolver, tracker, cfg, logger)
	router.GET("/ws",
		admissionMiddleware(newAdmission(cfg.AcceptRate), logger),
		gin.WrapH(ws),
	)

	return &stdhttp.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
