// Package livestream drives the backend's connection to a streamer's live room.
package livestream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/livetrigger/internal/gateway"
	"github.com/vovakirdan/livetrigger/internal/notify"
	"github.com/vovakirdan/livetrigger/internal/status"
)

// ErrEmptyUsername is returned when Connect is called without a streamer.
var ErrEmptyUsername = errors.New("username is required")

// Status is the backend answer to the status probe.
type Status struct {
	Connected bool   `json:"connected"`
	Username  string `json:"username,omitempty"`
}

// Session issues live stream commands and mirrors their outcome into the
// connection status store.
type Session struct {
	api    *gateway.Client
	status *status.Store
	sink   notify.Sink
	log    *zerolog.Logger
}

// NewSession creates a session. sink may be nil.
func NewSession(api *gateway.Client, st *status.Store, sink notify.Sink, logger *zerolog.Logger) *Session {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Session{api: api, status: st, sink: sink, log: logger}
}

// Connect asks the backend to join username's live room. A leading "@" is
// stripped.
func (s *Session) Connect(ctx context.Context, username string) (string, error) {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if username == "" {
		return "", ErrEmptyUsername
	}

	var resp struct {
		Username string `json:"username"`
	}
	body := map[string]string{"username": username}
	if err := s.api.DoEnvelope(ctx, http.MethodPost, "/api/tiktok/connect", body, &resp); err != nil {
		wrapped := fmt.Errorf("failed to connect to %s: %w", username, err)
		s.status.SetError(errorText(err))
		s.log.Error().Err(err).Str("username", username).Msg("live connect failed")
		notify.Error(s.sink, wrapped)
		return "", wrapped
	}
	if resp.Username != "" {
		username = resp.Username
	}
	s.status.SetStatus(true, username)
	s.status.ClearError()
	s.log.Info().Str("username", username).Msg("live stream connected")
	return username, nil
}

// Disconnect leaves the live room.
func (s *Session) Disconnect(ctx context.Context) error {
	if err := s.api.DoEnvelope(ctx, http.MethodPost, "/api/tiktok/disconnect", nil, nil); err != nil {
		wrapped := fmt.Errorf("failed to disconnect: %w", err)
		s.log.Error().Err(err).Msg("live disconnect failed")
		notify.Error(s.sink, wrapped)
		return wrapped
	}
	s.status.SetStatus(false, "")
	return nil
}

// Status probes the backend and updates the store with the answer.
func (s *Session) Status(ctx context.Context) (Status, error) {
	var resp Status
	if err := s.api.Do(ctx, http.MethodGet, "/api/tiktok/status", nil, &resp); err != nil {
		s.log.Warn().Err(err).Msg("live status probe failed")
		return Status{}, fmt.Errorf("failed to fetch live status: %w", err)
	}
	s.status.SetStatus(resp.Connected, resp.Username)
	return resp, nil
}

func errorText(err error) string {
	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
