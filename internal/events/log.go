// Package events holds the bounded, newest-first event history and the
// aggregate counters derived from it.
package events

import (
	"encoding/json"
	"iter"
	"sync"
	"time"

	"github.com/gammazero/deque"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/livetrigger/internal/observe"
)

// DefaultCapacity bounds the log when no capacity is configured.
const DefaultCapacity = 100

// Op describes what changed in the log.
type Op string

const (
	OpRecorded Op = "recorded"
	OpCleared  Op = "cleared"
	OpCounts   Op = "counts"
)

// Change is published after every mutation.
type Change struct {
	Op     Op     `json:"op"`
	Event  *Event `json:"event,omitempty"`
	Counts Counts `json:"counts"`
}

// Recorder receives log activity for metrics.
type Recorder interface {
	EventRecorded(kind string)
	EventEvicted()
}

// Log is the event log store.
type Log struct {
	mu       sync.RWMutex
	capacity int
	items    deque.Deque[Event]
	counts   Counts

	now     func() time.Time
	bus     *observe.Bus[Change]
	metrics Recorder
	log     *zerolog.Logger
}

// Option customises a Log.
type Option func(*Log)

// WithCapacity overrides DefaultCapacity. Non-positive values are ignored.
func WithCapacity(n int) Option {
	return func(l *Log) {
		if n > 0 {
			l.capacity = n
		}
	}
}

// WithClock replaces time.Now for ingestion timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(l *Log) { l.metrics = r }
}

// WithLogger attaches a logger for dropped payloads.
func WithLogger(logger *zerolog.Logger) Option {
	return func(l *Log) {
		if logger != nil {
			l.log = logger
		}
	}
}

// NewLog constructs an empty log.
func NewLog(opts ...Option) *Log {
	l := &Log{
		capacity: DefaultCapacity,
		now:      time.Now,
		bus:      observe.NewBus[Change](),
	}
	nop := zerolog.Nop()
	l.log = &nop
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record inserts an event at the head and evicts from the tail past capacity.
// Stream events bump the matching counter; counts updates replace all counters.
func (l *Log) Record(kind Kind, payload json.RawMessage, source *time.Time) Event {
	ev := Event{
		ID:         uuid.NewString(),
		Kind:       kind,
		Payload:    payload,
		ReceivedAt: l.now(),
	}
	if source != nil {
		ts := *source
		ev.SourceTimestamp = &ts
	}

	l.mu.Lock()
	l.items.PushFront(ev)
	evicted := 0
	for l.items.Len() > l.capacity {
		l.items.PopBack()
		evicted++
	}

	switch kind {
	case KindStreamEvent:
		l.counts.apply(classify(payload))
	case KindCountsUpdate:
		var snap Counts
		if err := json.Unmarshal(payload, &snap); err != nil {
			l.log.Debug().Err(err).Str("event_id", ev.ID).Msg("counts update not applied")
		} else {
			l.counts = snap
		}
	}
	// Changes reach subscribers in mutation order.
	l.bus.Publish(Change{Op: OpRecorded, Event: &ev, Counts: l.counts})
	l.mu.Unlock()

	if l.metrics != nil {
		l.metrics.EventRecorded(string(kind))
		for range evicted {
			l.metrics.EventEvicted()
		}
	}
	return ev
}

// Clear empties the log and zeroes the counters.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items.Clear()
	l.counts = Counts{}
	l.bus.Publish(Change{Op: OpCleared})
}

// ResetCounts zeroes the counters and keeps the history.
func (l *Log) ResetCounts() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counts = Counts{}
	l.bus.Publish(Change{Op: OpCounts})
}

// Counts returns the current aggregate counters.
func (l *Log) Counts() Counts {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.counts
}

// Len returns the number of retained events.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.items.Len()
}

// Capacity returns the configured bound.
func (l *Log) Capacity() int {
	return l.capacity
}

// Events returns a newest-first snapshot.
func (l *Log) Events() []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Event, l.items.Len())
	for i := range out {
		out[i] = l.items.At(i)
	}
	return out
}

// ByKind yields events of the given kind from a snapshot taken now.
func (l *Log) ByKind(kind Kind) iter.Seq[Event] {
	return l.view(func(e Event) bool { return e.Kind == kind })
}

// ByStreamSubtype yields stream events whose classification equals subtype.
func (l *Log) ByStreamSubtype(subtype string) iter.Seq[Event] {
	return l.view(func(e Event) bool {
		return e.Kind == KindStreamEvent && e.Subtype() == subtype
	})
}

func (l *Log) view(match func(Event) bool) iter.Seq[Event] {
	snapshot := l.Events()
	return func(yield func(Event) bool) {
		for _, e := range snapshot {
			if !match(e) {
				continue
			}
			if !yield(e) {
				return
			}
		}
	}
}

// Subscribe returns the change feed of the log.
func (l *Log) Subscribe(buffer int) (<-chan Change, func()) {
	return l.bus.Subscribe(buffer)
}
