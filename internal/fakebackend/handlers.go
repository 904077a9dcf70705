package fakebackend

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vovakirdan/livetrigger/internal/auth"
	"github.com/vovakirdan/livetrigger/internal/proto"
)

type valueBody[T any] struct {
	Value T `json:"value"`
}

func (s *Server) login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if s.opts.JWT == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "authentication disabled"})
		return
	}

	hash, ok := s.opts.Users[req.Username]
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
		return
	}
	if err := auth.ComparePassword(hash, req.Password); err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	token, err := auth.GenerateToken(s.opts.JWT, req.Username, time.Now())
	if err != nil {
		s.log.Error().Err(err).Str("username", req.Username).Msg("failed to issue token")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	s.log.Info().Str("username", req.Username).Msg("operator logged in")
	c.JSON(http.StatusOK, auth.LoginResponse{Token: token})
}

// ==== devices ====

func (s *Server) listDevices(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"devices": s.state.listDevices()})
}

func (s *Server) getDevice(c *gin.Context) {
	d, ok := s.state.device(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, Envelope{Message: "device not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"device": d})
}

func (s *Server) getDeviceState(c *gin.Context) {
	d, ok := s.state.device(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, Envelope{Message: "device not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": gin.H{"switch_1": d.On, "online": d.Online}})
}

func (s *Server) renameDevice(c *gin.Context) {
	var body struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.Name) == "" {
		c.JSON(http.StatusBadRequest, Envelope{Message: "name is required"})
		return
	}
	if !s.state.renameDevice(c.Param("id"), strings.TrimSpace(body.Name)) {
		c.JSON(http.StatusNotFound, Envelope{Message: "device not found"})
		return
	}
	c.JSON(http.StatusOK, Envelope{Success: true})
}

func (s *Server) switchOn(c *gin.Context) {
	var body struct {
		Duration int64 `json:"duration"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, Envelope{Message: "invalid request body"})
			return
		}
	}

	id := c.Param("id")
	d, ok := s.state.device(id)
	switch {
	case !ok:
		c.JSON(http.StatusNotFound, Envelope{Message: "device not found"})
		return
	case !d.Online:
		c.JSON(http.StatusOK, Envelope{Message: "device is offline"})
		return
	}

	s.activate(id, time.Duration(body.Duration)*time.Millisecond, "manual")
	c.JSON(http.StatusOK, Envelope{Success: true, Message: "device turned on"})
}

func (s *Server) switchOff(c *gin.Context) {
	id := c.Param("id")
	if !s.state.switchDevice(id, false) {
		c.JSON(http.StatusNotFound, Envelope{Message: "device not found"})
		return
	}
	s.publishDeviceStatus(id, false)
	c.JSON(http.StatusOK, Envelope{Success: true, Message: "device turned off"})
}

// ==== settings ====

func (s *Server) getGlobalDuration(c *gin.Context) {
	s.state.mu.Lock()
	v := s.state.globalDuration
	s.state.mu.Unlock()
	c.JSON(http.StatusOK, valueBody[int64]{Value: v})
}

func (s *Server) setGlobalDuration(c *gin.Context) {
	var body valueBody[int64]
	if err := c.ShouldBindJSON(&body); err != nil || body.Value <= 0 {
		c.JSON(http.StatusBadRequest, Envelope{Message: "value must be a positive number of milliseconds"})
		return
	}
	s.state.mu.Lock()
	s.state.globalDuration = body.Value
	s.state.mu.Unlock()
	c.JSON(http.StatusOK, Envelope{Success: true})
}

func (s *Server) getDeviceDuration(c *gin.Context) {
	id := c.Param("id")
	s.state.mu.Lock()
	v, ok := s.state.deviceDurations[id]
	if !ok {
		v = s.state.globalDuration
	}
	s.state.mu.Unlock()
	c.JSON(http.StatusOK, valueBody[int64]{Value: v})
}

func (s *Server) setDeviceDuration(c *gin.Context) {
	var body valueBody[int64]
	if err := c.ShouldBindJSON(&body); err != nil || body.Value <= 0 {
		c.JSON(http.StatusBadRequest, Envelope{Message: "value must be a positive number of milliseconds"})
		return
	}
	s.state.mu.Lock()
	s.state.deviceDurations[c.Param("id")] = body.Value
	s.state.mu.Unlock()
	c.JSON(http.StatusOK, Envelope{Success: true})
}

func (s *Server) getAllowOffline(c *gin.Context) {
	s.state.mu.Lock()
	v := s.state.allowOffline
	s.state.mu.Unlock()
	c.JSON(http.StatusOK, valueBody[bool]{Value: v})
}

func (s *Server) setAllowOffline(c *gin.Context) {
	var body valueBody[bool]
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, Envelope{Message: "invalid request body"})
		return
	}
	s.state.mu.Lock()
	s.state.allowOffline = body.Value
	s.state.mu.Unlock()
	c.JSON(http.StatusOK, Envelope{Success: true})
}

func (s *Server) getMappings(c *gin.Context) {
	s.state.mu.Lock()
	out := make(map[string]Mapping, len(s.state.mappings))
	for k, v := range s.state.mappings {
		out[k] = v
	}
	s.state.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"mappings": out})
}

func (s *Server) setMapping(c *gin.Context) {
	var body Mapping
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, Envelope{Message: "invalid request body"})
		return
	}
	if err := s.state.SetMapping(c.Param("trigger"), body); err != nil {
		c.JSON(http.StatusBadRequest, Envelope{Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, Envelope{Success: true})
}

// ==== live stream ====

func (s *Server) tiktokConnect(c *gin.Context) {
	var body struct {
		Username string `json:"username"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.Username) == "" {
		c.JSON(http.StatusBadRequest, Envelope{Message: "username is required"})
		return
	}
	user := strings.TrimPrefix(strings.TrimSpace(body.Username), "@")

	s.state.mu.Lock()
	_, offline := s.state.offlineUsers[user]
	if offline && !s.state.allowOffline {
		s.state.mu.Unlock()
		c.JSON(http.StatusOK, Envelope{Message: "user is not live"})
		return
	}
	s.state.connected = true
	s.state.liveUser = user
	s.state.mu.Unlock()

	s.EmitConnectionStatus(proto.ConnectionStatusData{Connected: true, Username: user})
	c.JSON(http.StatusOK, gin.H{"success": true, "username": user})
}

func (s *Server) tiktokDisconnect(c *gin.Context) {
	s.state.mu.Lock()
	s.state.connected = false
	s.state.liveUser = ""
	s.state.mu.Unlock()

	s.EmitConnectionStatus(proto.ConnectionStatusData{Connected: false})
	c.JSON(http.StatusOK, Envelope{Success: true})
}

func (s *Server) tiktokStatus(c *gin.Context) {
	connected, user := s.state.Live()
	c.JSON(http.StatusOK, gin.H{"success": true, "connected": connected, "username": user})
}
