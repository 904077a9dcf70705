// Package realtime owns the streaming connection to the backend: the
// reconnect and fallback state machine and the dispatch of inbound messages
// into the event log and the connection status store.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/livetrigger/internal/events"
	"github.com/vovakirdan/livetrigger/internal/observe"
	"github.com/vovakirdan/livetrigger/internal/proto"
	"github.com/vovakirdan/livetrigger/internal/status"
)

// Recorder receives transport activity for metrics.
type Recorder interface {
	ReconnectAttempt()
	Fallback()
	StateChanged(from, to string)
	MessageReceived(typ string)
	MessageDropped()
}

// Manager keeps at most one logical session alive until Disconnect.
type Manager struct {
	cfg       Config
	preferred Transport
	fallback  Transport
	events    *events.Log
	status    *status.Store
	log       *zerolog.Logger
	metrics   Recorder

	lifecycleMu sync.Mutex // serialises Connect and Disconnect

	mu        sync.Mutex
	state     State
	tier      Tier
	attempts  int
	transport string
	cancel    context.CancelFunc
	done      chan struct{}

	bus *observe.Bus[StateChange]
}

// NewManager wires the manager to the stores it feeds. fallback may be nil, in
// which case the preferred transport is reused at the degraded tier.
func NewManager(cfg Config, preferred, fallback Transport, log *events.Log, st *status.Store, logger *zerolog.Logger) *Manager {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Manager{
		cfg:       cfg.normalized(),
		preferred: preferred,
		fallback:  fallback,
		events:    log,
		status:    st,
		log:       logger,
		state:     StateIdle,
		tier:      TierPreferred,
		bus:       observe.NewBus[StateChange](),
	}
}

// SetRecorder attaches metrics. Call before Connect.
func (m *Manager) SetRecorder(r Recorder) {
	m.metrics = r
}

// Connect starts the session loop. It is a no-op while a session exists.
func (m *Manager) Connect() {
	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()

	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	m.cancel = cancel
	m.done = done
	m.attempts = 0
	m.tier = TierPreferred
	m.setStateLocked(StateConnecting, nil)
	m.mu.Unlock()

	m.log.Info().Str("transport", m.preferred.Name()).Msg("realtime connect")
	go m.run(ctx, done)
}

// Disconnect tears the session down and resets derived state. The event
// history is kept. It is a no-op when no session exists.
func (m *Manager) Disconnect() {
	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()

	m.mu.Lock()
	cancel, done := m.cancel, m.done
	if cancel == nil {
		m.mu.Unlock()
		return
	}
	m.cancel = nil
	m.done = nil
	m.mu.Unlock()

	cancel()
	<-done

	m.mu.Lock()
	m.attempts = 0
	m.tier = TierPreferred
	m.transport = ""
	m.setStateLocked(StateClosed, nil)
	m.mu.Unlock()

	m.status.Reset()
	m.events.ResetCounts()
	m.log.Info().Msg("realtime disconnected")
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Tier reports the capability tier of the current or next attempt.
func (m *Manager) Tier() Tier {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tier
}

// Attempts is the number of consecutive failed attempts since the last
// successful handshake.
func (m *Manager) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// Info returns state, tier and retry counter together.
func (m *Manager) Info() Info {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Info{State: m.state, Tier: m.tier, Attempts: m.attempts, Transport: m.transport}
}

// Subscribe returns the feed of state transitions.
func (m *Manager) Subscribe(buffer int) (<-chan StateChange, func()) {
	return m.bus.Subscribe(buffer)
}

func (m *Manager) setStateLocked(to State, cause error) {
	from := m.state
	m.state = to
	change := StateChange{From: from, To: to, Tier: m.tier, Attempts: m.attempts}
	if cause != nil {
		change.Err = cause.Error()
	}
	if m.metrics != nil {
		prev := from.String()
		if from == to {
			prev = ""
		}
		m.metrics.StateChanged(prev, to.String())
	}
	m.bus.Publish(change)
}

func (m *Manager) transportFor(tier Tier) Transport {
	if tier == TierFallback && m.fallback != nil {
		return m.fallback
	}
	return m.preferred
}

func (m *Manager) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	tier := TierPreferred
	failures := 0

	for {
		if ctx.Err() != nil {
			return
		}

		tr := m.transportFor(tier)
		connected, err := m.session(ctx, tr, tier)
		if ctx.Err() != nil {
			return
		}

		if connected {
			failures = 0
			if tier == TierFallback && m.cfg.RestorePreferred {
				tier = TierPreferred
			}
			m.log.Warn().Err(err).Str("transport", tr.Name()).Msg("realtime connection lost")
		} else {
			failures++
			if m.metrics != nil {
				m.metrics.ReconnectAttempt()
			}
			m.log.Warn().Err(err).Str("transport", tr.Name()).Int("attempt", failures).Msg("realtime connect failed")
		}

		m.status.SetStatus(false, "")
		if err != nil {
			m.status.SetError(err.Error())
		}

		degrade := !connected && tier == TierPreferred && failures >= m.cfg.MaxRetries
		if degrade {
			tier = TierFallback
			if m.metrics != nil {
				m.metrics.Fallback()
			}
			m.log.Warn().Int("failures", failures).Str("transport", m.transportFor(tier).Name()).Msg("realtime falling back")
		}

		m.mu.Lock()
		m.attempts = failures
		m.tier = tier
		next := StateReconnecting
		if tier == TierFallback {
			next = StateDegraded
		}
		m.setStateLocked(next, err)
		m.mu.Unlock()

		timer := time.NewTimer(m.cfg.delay(max(failures, 1)))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// session dials tr and pumps messages until the connection ends. It reports
// whether the handshake completed.
func (m *Manager) session(ctx context.Context, tr Transport, tier Tier) (bool, error) {
	hsCtx, cancel := context.WithTimeout(ctx, m.cfg.HandshakeTimeout)
	defer cancel()

	conn, err := tr.Dial(hsCtx)
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", tr.Name(), err)
	}
	defer conn.Close()

	connected := false
	readCtx := hsCtx
	for {
		in, err := conn.Read(readCtx)
		if err != nil {
			if errors.Is(err, ErrMalformedFrame) {
				m.log.Debug().Err(err).Msg("dropping inbound frame")
				if m.metrics != nil {
					m.metrics.MessageDropped()
				}
				continue
			}
			if !connected {
				return false, fmt.Errorf("handshake %s: %w", tr.Name(), err)
			}
			return true, fmt.Errorf("read %s: %w", tr.Name(), err)
		}
		if m.metrics != nil {
			m.metrics.MessageReceived(in.Type)
		}

		if in.Type != proto.InboundTypeWelcome {
			m.dispatch(in)
			continue
		}
		if connected {
			continue
		}
		if err := conn.Write(ctx, proto.NewReady()); err != nil {
			return false, fmt.Errorf("send ready: %w", err)
		}
		connected = true
		readCtx = ctx
		m.onConnected(tr, tier)
	}
}

func (m *Manager) onConnected(tr Transport, tier Tier) {
	m.mu.Lock()
	m.attempts = 0
	m.tier = tier
	m.transport = tr.Name()
	m.setStateLocked(StateConnected, nil)
	m.mu.Unlock()

	m.status.ClearError()
	m.log.Info().Str("transport", tr.Name()).Str("tier", string(tier)).Msg("realtime connected")
}
