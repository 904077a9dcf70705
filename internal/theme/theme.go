// Package theme stores the dark/light preference and the Lip Gloss styles
// used by the terminal event feed.
package theme

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/livetrigger/internal/store"
)

// Name is a theme name.
type Name string

const (
	Dark  Name = "dark"
	Light Name = "light"
)

// Valid reports whether n is a known theme.
func (n Name) Valid() bool {
	return n == Dark || n == Light
}

// Store holds the current theme and persists it under store.KeyTheme.
type Store struct {
	kv  store.KVStore
	log *zerolog.Logger

	mu      sync.RWMutex
	current Name
}

// SystemDefault follows the terminal background.
func SystemDefault() Name {
	if lipgloss.HasDarkBackground() {
		return Dark
	}
	return Light
}

// NewStore loads the saved preference, falling back to fallback when nothing
// valid is saved.
func NewStore(ctx context.Context, kv store.KVStore, fallback Name, logger *zerolog.Logger) (*Store, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if !fallback.Valid() {
		fallback = Light
	}
	s := &Store{kv: kv, log: logger, current: fallback}
	if kv == nil {
		return s, nil
	}

	saved, err := kv.Get(ctx, store.KeyTheme)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("load theme: %w", err)
	case Name(saved).Valid():
		s.current = Name(saved)
	default:
		logger.Debug().Str("theme", saved).Msg("ignoring unknown saved theme")
	}
	return s, nil
}

// Current returns the active theme.
func (s *Store) Current() Name {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Set switches to n. Unknown names are ignored.
func (s *Store) Set(ctx context.Context, n Name) error {
	if !n.Valid() {
		return nil
	}
	s.mu.Lock()
	s.current = n
	s.mu.Unlock()
	return s.persist(ctx, n)
}

// Toggle flips between dark and light and returns the new theme.
func (s *Store) Toggle(ctx context.Context) (Name, error) {
	s.mu.Lock()
	next := Dark
	if s.current == Dark {
		next = Light
	}
	s.current = next
	s.mu.Unlock()
	return next, s.persist(ctx, next)
}

func (s *Store) persist(ctx context.Context, n Name) error {
	if s.kv == nil {
		return nil
	}
	if err := s.kv.Set(ctx, store.KeyTheme, string(n)); err != nil {
		s.log.Error().Err(err).Msg("failed to save theme")
		return fmt.Errorf("save theme: %w", err)
	}
	return nil
}

// Styles returns the palette for the current theme.
func (s *Store) Styles() Styles {
	return StylesFor(s.Current())
}
