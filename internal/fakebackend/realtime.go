package fakebackend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vovakirdan/livetrigger/internal/proto"
)

const maxPollWait = 30 * time.Second

func (s *Server) welcome(session string) proto.Inbound {
	raw, _ := json.Marshal(proto.WelcomeData{SessionID: session, Protocol: proto.ProtocolVersion})
	return proto.Inbound{Type: proto.InboundTypeWelcome, Data: raw, TS: time.Now().UnixMilli()}
}

// serveWS sits on the plain mux in front of gin so Accept can hijack the
// connection.
func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	if !s.wsEnabled.Load() {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "websocket disabled"})
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	client := NewClient(uuid.NewString())
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := wsjson.Write(ctx, conn, s.welcome(client.ID)); err != nil {
		s.log.Warn().Err(err).Str("client_id", client.ID).Msg("write welcome")
		return
	}
	var ready proto.Outbound
	if err := wsjson.Read(ctx, conn, &ready); err != nil || ready.Type != proto.OutboundTypeReady {
		s.log.Warn().Err(err).Str("client_id", client.ID).Str("type", ready.Type).Msg("expected ready frame")
		conn.Close(websocket.StatusPolicyViolation, "expected ready")
		return
	}

	s.hub.Register(client)
	defer s.hub.Unregister(client)
	s.log.Info().Str("client_id", client.ID).Msg("dashboard connected")

	errCh := make(chan error, 2)
	go func() {
		errCh <- s.readLoop(ctx, conn)
	}()
	go func() {
		errCh <- s.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel()
	<-errCh

	status := websocket.StatusNormalClosure
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
		if cs := websocket.CloseStatus(err); cs != -1 && cs != websocket.StatusNormalClosure && cs != websocket.StatusGoingAway {
			s.log.Warn().Err(err).Str("client_id", client.ID).Msg("ws connection closed with error")
		}
	}
	conn.Close(status, "closing")
}

// readLoop drains client frames so control frames are processed.
func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			return err
		}
	}
}

func (s *Server) writeLoop(ctx context.Context, conn *websocket.Conn, client *Client) error {
	for {
		select {
		case msg := <-client.Events:
			if err := wsjson.Write(ctx, conn, msg); err != nil {
				s.log.Error().Err(err).Str("client_id", client.ID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Server) pollRead(c *gin.Context) {
	session := c.Query("session")
	if session == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "session is required"})
		return
	}

	s.mu.Lock()
	_, known := s.sessions[session]
	if !known {
		s.sessions[session] = struct{}{}
	}
	s.mu.Unlock()

	if !known {
		c.JSON(http.StatusOK, proto.PollResponse{
			Cursor:   s.hub.Cursor(),
			Messages: []proto.Inbound{s.welcome(session)},
		})
		return
	}

	cursor, err := strconv.ParseInt(c.DefaultQuery("cursor", "0"), 10, 64)
	if err != nil || cursor < 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid cursor"})
		return
	}
	wait := maxPollWait
	if raw := c.Query("wait"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d >= 0 && d < maxPollWait {
			wait = d
		}
	}

	msgs, next, wake := s.hub.Since(cursor)
	if len(msgs) == 0 && wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-wake:
			msgs, next, _ = s.hub.Since(cursor)
		case <-timer.C:
		case <-c.Request.Context().Done():
			return
		}
	}
	if msgs == nil {
		msgs = []proto.Inbound{}
	}
	c.JSON(http.StatusOK, proto.PollResponse{Cursor: next, Messages: msgs})
}

func (s *Server) pollWrite(c *gin.Context) {
	session := c.Query("session")
	s.mu.Lock()
	_, known := s.sessions[session]
	s.mu.Unlock()
	if !known {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "unknown session"})
		return
	}

	var out proto.Outbound
	if err := c.ShouldBindJSON(&out); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid frame"})
		return
	}
	if out.Type == proto.OutboundTypeReady {
		s.log.Info().Str("session", session).Msg("dashboard connected over long-poll")
	}
	c.Status(http.StatusNoContent)
}
