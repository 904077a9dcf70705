package realtime

import "fmt"

// State is the transport manager lifecycle state.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateDegraded
	StateClosed
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateDegraded:
		return "degraded"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name in JSON payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name written by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	for st := StateIdle; st <= StateClosed; st++ {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown transport state %q", text)
}

// StateChange is published on every transition.
type StateChange struct {
	From     State  `json:"from"`
	To       State  `json:"to"`
	Tier     Tier   `json:"tier"`
	Attempts int    `json:"attempts"`
	Err      string `json:"error,omitempty"`
}

// Info is a point-in-time view of the manager.
type Info struct {
	State     State  `json:"state"`
	Tier      Tier   `json:"tier"`
	Attempts  int    `json:"attempts"`
	Transport string `json:"transport,omitempty"`
}
