// Package http serves the local operator dashboard: a JSON view of the
// client stores, realtime controls, prometheus metrics and a websocket push
// feed of store changes.
package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/livetrigger/internal/config"
	"github.com/vovakirdan/livetrigger/internal/events"
	"github.com/vovakirdan/livetrigger/internal/notify"
	"github.com/vovakirdan/livetrigger/internal/realtime"
	"github.com/vovakirdan/livetrigger/internal/status"
	"github.com/vovakirdan/livetrigger/internal/theme"
)

// Realtime is the transport manager as seen by the dashboard.
type Realtime interface {
	Connect()
	Disconnect()
	Info() realtime.Info
	Subscribe(buffer int) (<-chan realtime.StateChange, func())
}

// Deps are the stores the dashboard reads and drives. Theme, Notifications
// and Metrics may be nil.
type Deps struct {
	Realtime      Realtime
	Events        *events.Log
	Status        *status.Store
	Theme         *theme.Store
	Notifications *notify.Queue
	Metrics       stdhttp.Handler
}

// NewServer builds the dashboard HTTP server.
func NewServer(deps Deps, cfg config.DashboardConfig, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(deps, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewRouter mounts the websocket push feed on a plain mux in front of the
// gin engine; gin's writer cannot be hijacked once the upgrade has started.
func NewRouter(deps Deps, logger *zerolog.Logger) stdhttp.Handler {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), LoggerMiddleware(logger))

	r.GET("/health", healthHandler)

	h := NewAPIHandlers(deps, logger)
	api := r.Group("/api")
	api.GET("/state", h.State)
	api.GET("/events", h.ListEvents)
	api.POST("/events/clear", h.ClearEvents)
	api.POST("/realtime/connect", h.Connect)
	api.POST("/realtime/disconnect", h.Disconnect)
	api.GET("/theme", h.GetTheme)
	api.POST("/theme", h.SetTheme)
	api.POST("/theme/toggle", h.ToggleTheme)
	api.GET("/notifications", h.ListNotifications)
	api.DELETE("/notifications/:id", h.DismissNotification)

	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(deps, logger))
	mux.Handle("/", r)
	return mux
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
