package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/livetrigger/internal/store"
)

// TokenStore holds the opaque bearer token and persists it under
// store.KeyToken. A nil backing store keeps the token in memory only.
type TokenStore struct {
	kv  store.KVStore
	log *zerolog.Logger

	mu    sync.RWMutex
	token string
}

// NewTokenStore loads any previously saved token.
func NewTokenStore(ctx context.Context, kv store.KVStore, logger *zerolog.Logger) (*TokenStore, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	ts := &TokenStore{kv: kv, log: logger}
	if kv == nil {
		return ts, nil
	}

	tok, err := kv.Get(ctx, store.KeyToken)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("load token: %w", err)
	default:
		ts.token = tok
	}
	return ts, nil
}

// Token returns the stored token or "".
func (s *TokenStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// SetToken stores token in memory and on disk.
func (s *TokenStore) SetToken(ctx context.Context, token string) error {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	if s.kv == nil {
		return nil
	}
	if err := s.kv.Set(ctx, store.KeyToken, token); err != nil {
		s.log.Error().Err(err).Msg("failed to save token")
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// RemoveToken discards the token.
func (s *TokenStore) RemoveToken(ctx context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()

	if s.kv == nil {
		return nil
	}
	if err := s.kv.Delete(ctx, store.KeyToken); err != nil {
		s.log.Error().Err(err).Msg("failed to remove token")
		return fmt.Errorf("remove token: %w", err)
	}
	return nil
}

// IsAuthenticated reports whether a token is held and its exp claim is still
// in the future. Malformed tokens and tokens without exp are not authenticated.
func (s *TokenStore) IsAuthenticated(now time.Time) bool {
	tok := s.Token()
	if tok == "" {
		return false
	}
	claims, err := InspectToken(tok)
	if err != nil || claims.ExpiresAt == nil {
		return false
	}
	return claims.ExpiresAt.After(now)
}
