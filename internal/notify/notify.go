// Package notify carries transient operator notifications raised by failed
// REST actions.
package notify

import (
	"sync"
	"time"

	"github.com/gammazero/deque"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/livetrigger/internal/observe"
)

// Level is the severity of a notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

const (
	DefaultMax = 5
	DefaultTTL = 3 * time.Second
)

// Notification is one toast.
type Notification struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// Sink receives notifications.
type Sink interface {
	Notify(level Level, message string)
}

// Error pushes err to sink as an error notification. Nil sinks and nil
// errors are ignored.
func Error(sink Sink, err error) {
	if sink == nil || err == nil {
		return
	}
	sink.Notify(LevelError, err.Error())
}

// Queue keeps the newest notifications on top, at most max of them, each
// visible for ttl.
type Queue struct {
	mu    sync.Mutex
	items deque.Deque[Notification]
	max   int
	ttl   time.Duration
	now   func() time.Time
	bus   *observe.Bus[Notification]
}

// NewQueue returns a queue; non-positive arguments select the defaults.
func NewQueue(limit int, ttl time.Duration) *Queue {
	if limit <= 0 {
		limit = DefaultMax
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Queue{max: limit, ttl: ttl, now: time.Now, bus: observe.NewBus[Notification]()}
}

// Notify implements Sink.
func (q *Queue) Notify(level Level, message string) {
	n := Notification{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   message,
		CreatedAt: q.now(),
	}

	q.mu.Lock()
	q.items.PushFront(n)
	for q.items.Len() > q.max {
		q.items.PopBack()
	}
	q.mu.Unlock()

	q.bus.Publish(n)
}

// Active returns unexpired notifications, newest first, dropping the rest.
func (q *Queue) Active() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()

	cutoff := q.now().Add(-q.ttl)
	for q.items.Len() > 0 && !q.items.Back().CreatedAt.After(cutoff) {
		q.items.PopBack()
	}

	out := make([]Notification, 0, q.items.Len())
	for i := 0; i < q.items.Len(); i++ {
		out = append(out, q.items.At(i))
	}
	return out
}

// Dismiss removes the notification with id.
func (q *Queue) Dismiss(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	idx := q.items.Index(func(n Notification) bool { return n.ID == id })
	if idx < 0 {
		return false
	}
	q.items.Remove(idx)
	return true
}

// Subscribe delivers every new notification.
func (q *Queue) Subscribe(buffer int) (<-chan Notification, func()) {
	return q.bus.Subscribe(buffer)
}

// LogSink writes notifications to a zerolog logger.
type LogSink struct {
	log *zerolog.Logger
}

// NewLogSink wraps logger.
func NewLogSink(logger *zerolog.Logger) *LogSink {
	return &LogSink{log: logger}
}

// Notify implements Sink.
func (s *LogSink) Notify(level Level, message string) {
	var ev *zerolog.Event
	switch level {
	case LevelError:
		ev = s.log.Error()
	case LevelWarning:
		ev = s.log.Warn()
	default:
		ev = s.log.Info()
	}
	ev.Str("level_hint", string(level)).Msg(message)
}

// Multi fans a notification out to every sink.
type Multi []Sink

// Notify implements Sink.
func (m Multi) Notify(level Level, message string) {
	for _, s := range m {
		if s != nil {
			s.Notify(level, message)
		}
	}
}
