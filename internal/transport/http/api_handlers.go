package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/livetrigger/internal/events"
	"github.com/vovakirdan/livetrigger/internal/notify"
	"github.com/vovakirdan/livetrigger/internal/realtime"
	"github.com/vovakirdan/livetrigger/internal/status"
	"github.com/vovakirdan/livetrigger/internal/theme"
)

// APIHandlers provides HTTP handlers for the dashboard REST endpoints.
type APIHandlers struct {
	deps Deps
	log  *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(deps Deps, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{deps: deps, log: logger}
}

// StateResponse is the aggregate dashboard view.
type StateResponse struct {
	Transport  realtime.Info `json:"transport"`
	Connection status.State  `json:"connection"`
	Counts     events.Counts `json:"counts"`
	Events     int           `json:"events"`
	Capacity   int           `json:"capacity"`
	Theme      theme.Name    `json:"theme,omitempty"`
}

// EventsResponse wraps a filtered slice of the event log.
type EventsResponse struct {
	Events []events.Event `json:"events"`
}

// ThemeRequest selects a theme.
type ThemeRequest struct {
	Theme theme.Name `json:"theme" binding:"required"`
}

func (h *APIHandlers) snapshot() StateResponse {
	resp := StateResponse{
		Transport:  h.deps.Realtime.Info(),
		Connection: h.deps.Status.State(),
		Counts:     h.deps.Events.Counts(),
		Events:     h.deps.Events.Len(),
		Capacity:   h.deps.Events.Capacity(),
	}
	if h.deps.Theme != nil {
		resp.Theme = h.deps.Theme.Current()
	}
	return resp
}

// State returns transport, connection status and counters.
// GET /api/state
func (h *APIHandlers) State(c *gin.Context) {
	c.JSON(http.StatusOK, h.snapshot())
}

// ListEvents returns the log newest first, filtered by kind or stream subtype.
// GET /api/events?kind=&subtype=&limit=
func (h *APIHandlers) ListEvents(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	out := make([]events.Event, 0)
	add := func(e events.Event) bool {
		out = append(out, e)
		return limit == 0 || len(out) < limit
	}

	switch kind, subtype := c.Query("kind"), c.Query("subtype"); {
	case subtype != "":
		for e := range h.deps.Events.ByStreamSubtype(subtype) {
			if !add(e) {
				break
			}
		}
	case kind != "":
		for e := range h.deps.Events.ByKind(events.Kind(kind)) {
			if !add(e) {
				break
			}
		}
	default:
		for _, e := range h.deps.Events.Events() {
			if !add(e) {
				break
			}
		}
	}
	c.JSON(http.StatusOK, EventsResponse{Events: out})
}

// ClearEvents empties the log and zeroes the counters.
// POST /api/events/clear
func (h *APIHandlers) ClearEvents(c *gin.Context) {
	h.deps.Events.Clear()
	h.log.Info().Msg("event log cleared")
	c.Status(http.StatusNoContent)
}

// Connect starts the realtime session.
// POST /api/realtime/connect
func (h *APIHandlers) Connect(c *gin.Context) {
	h.deps.Realtime.Connect()
	c.JSON(http.StatusAccepted, h.deps.Realtime.Info())
}

// Disconnect stops the realtime session.
// POST /api/realtime/disconnect
func (h *APIHandlers) Disconnect(c *gin.Context) {
	h.deps.Realtime.Disconnect()
	c.JSON(http.StatusOK, h.deps.Realtime.Info())
}

// GetTheme returns the active theme.
// GET /api/theme
func (h *APIHandlers) GetTheme(c *gin.Context) {
	if h.deps.Theme == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "theme not available"})
		return
	}
	c.JSON(http.StatusOK, ThemeRequest{Theme: h.deps.Theme.Current()})
}

// SetTheme switches the theme.
// POST /api/theme
func (h *APIHandlers) SetTheme(c *gin.Context) {
	if h.deps.Theme == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "theme not available"})
		return
	}
	var req ThemeRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.Theme.Valid() {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "theme must be dark or light"})
		return
	}
	if err := h.deps.Theme.Set(c.Request.Context(), req.Theme); err != nil {
		h.log.Error().Err(err).Msg("failed to set theme")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, ThemeRequest{Theme: h.deps.Theme.Current()})
}

// ToggleTheme flips between dark and light.
// POST /api/theme/toggle
func (h *APIHandlers) ToggleTheme(c *gin.Context) {
	if h.deps.Theme == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "theme not available"})
		return
	}
	next, err := h.deps.Theme.Toggle(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to toggle theme")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, ThemeRequest{Theme: next})
}

// ListNotifications returns the visible notifications, newest first.
// GET /api/notifications
func (h *APIHandlers) ListNotifications(c *gin.Context) {
	out := []notify.Notification{}
	if h.deps.Notifications != nil {
		out = append(out, h.deps.Notifications.Active()...)
	}
	c.JSON(http.StatusOK, gin.H{"notifications": out})
}

// DismissNotification removes one notification.
// DELETE /api/notifications/:id
func (h *APIHandlers) DismissNotification(c *gin.Context) {
	if h.deps.Notifications == nil || !h.deps.Notifications.Dismiss(c.Param("id")) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "notification not found"})
		return
	}
	c.Status(http.StatusNoContent)
}
