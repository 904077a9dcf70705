// Package fakebackend is a scripted stand-in for the device automation
// backend: REST endpoints for devices, settings and the live stream session,
// plus the realtime websocket and long-poll feeds.
package fakebackend

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/livetrigger/internal/auth"
	"github.com/vovakirdan/livetrigger/internal/proto"
)

// Options configure the fake backend.
type Options struct {
	// JWT enables bearer authentication on every route but login and health.
	JWT *auth.JWTConfig
	// Users maps operator names to bcrypt password hashes.
	Users map[string]string
	// Devices seeds the inventory; DefaultDevices when empty.
	Devices []Device
}

// Server is the fake backend.
type Server struct {
	handler http.Handler
	hub     *Hub
	state   *State
	opts    Options
	log     *zerolog.Logger

	wsEnabled atomic.Bool

	mu       sync.Mutex
	sessions map[string]struct{}
	counts   proto.CountsData
}

// New builds the server and its routes.
func New(opts Options, logger *zerolog.Logger) *Server {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	devices := opts.Devices
	if len(devices) == 0 {
		devices = DefaultDevices()
	}

	s := &Server{
		hub:      NewHub(),
		state:    NewState(devices...),
		opts:     opts,
		log:      logger,
		sessions: make(map[string]struct{}),
	}
	s.wsEnabled.Store(true)
	mux := http.NewServeMux()
	mux.Handle("/ws", requireAuth(opts.JWT, logger, s.serveWS))
	mux.Handle("/", s.routes())
	s.handler = mux
	return s
}

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), LoggerMiddleware(s.log))

	r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.POST(auth.LoginPath, s.login)

	api := r.Group("/")
	if s.opts.JWT != nil {
		api.Use(AuthMiddleware(s.opts.JWT, s.log))
	}

	api.GET("/api/realtime/poll", s.pollRead)
	api.POST("/api/realtime/poll", s.pollWrite)

	api.GET("/api/devices", s.listDevices)
	api.GET("/api/devices/:id", s.getDevice)
	api.GET("/api/devices/:id/state", s.getDeviceState)
	api.POST("/api/devices/:id/name", s.renameDevice)
	api.POST("/api/devices/:id/on", s.switchOn)
	api.POST("/api/devices/:id/off", s.switchOff)

	api.GET("/api/settings/activation-duration", s.getGlobalDuration)
	api.POST("/api/settings/activation-duration", s.setGlobalDuration)
	api.GET("/api/settings/activation-duration/:id", s.getDeviceDuration)
	api.POST("/api/settings/activation-duration/:id", s.setDeviceDuration)
	api.GET("/api/settings/allow-offline-connect", s.getAllowOffline)
	api.POST("/api/settings/allow-offline-connect", s.setAllowOffline)
	api.GET("/api/device-mappings", s.getMappings)
	api.POST("/api/device-mappings/:trigger", s.setMapping)

	api.POST("/api/tiktok/connect", s.tiktokConnect)
	api.POST("/api/tiktok/disconnect", s.tiktokDisconnect)
	api.GET("/api/tiktok/status", s.tiktokStatus)

	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Hub exposes the realtime fan-out.
func (s *Server) Hub() *Hub {
	return s.hub
}

// State exposes the REST data set.
func (s *Server) State() *State {
	return s.state
}

// SetWebSocketEnabled makes /ws refuse upgrades when false, which pushes
// clients onto the long-poll fallback.
func (s *Server) SetWebSocketEnabled(enabled bool) {
	s.wsEnabled.Store(enabled)
}
