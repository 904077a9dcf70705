// Package status tracks whether live events are flowing and from whom.
package status

import (
	"sync"

	"github.com/vovakirdan/livetrigger/internal/observe"
)

// State is the connection status snapshot.
type State struct {
	Connected    bool    `json:"connected"`
	PeerIdentity *string `json:"peerIdentity"`
	LastError    *string `json:"lastError"`
}

// Store is the single source of truth for the live stream link. It has no
// expiry of its own: every change is pushed by the transport manager or by
// the live stream REST calls.
type Store struct {
	mu    sync.RWMutex
	state State
	bus   *observe.Bus[State]
}

// NewStore returns a disconnected store.
func NewStore() *Store {
	return &Store{bus: observe.NewBus[State]()}
}

// SetStatus sets the connected flag. The peer identity is stored only when
// connected; disconnecting without an identity clears it.
func (s *Store) SetStatus(connected bool, peerIdentity string) {
	s.mu.Lock()
	s.state.Connected = connected
	switch {
	case connected && peerIdentity != "":
		id := peerIdentity
		s.state.PeerIdentity = &id
	case !connected && peerIdentity == "":
		s.state.PeerIdentity = nil
	}
	st := s.snapshotLocked()
	s.mu.Unlock()

	s.bus.Publish(st)
}

// SetError records a human-readable failure.
func (s *Store) SetError(msg string) {
	s.mu.Lock()
	if msg == "" {
		s.state.LastError = nil
	} else {
		s.state.LastError = &msg
	}
	st := s.snapshotLocked()
	s.mu.Unlock()

	s.bus.Publish(st)
}

// ClearError drops the last recorded failure.
func (s *Store) ClearError() {
	s.SetError("")
}

// Reset returns the store to its initial values.
func (s *Store) Reset() {
	s.mu.Lock()
	s.state = State{}
	s.mu.Unlock()

	s.bus.Publish(State{})
}

// State returns a copy of the current status.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Subscribe returns the change feed.
func (s *Store) Subscribe(buffer int) (<-chan State, func()) {
	return s.bus.Subscribe(buffer)
}

func (s *Store) snapshotLocked() State {
	out := State{Connected: s.state.Connected}
	if s.state.PeerIdentity != nil {
		id := *s.state.PeerIdentity
		out.PeerIdentity = &id
	}
	if s.state.LastError != nil {
		msg := *s.state.LastError
		out.LastError = &msg
	}
	return out
}
