package notify

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_NewestOnTopBounded(t *testing.T) {
	q := NewQueue(0, 0)
	for _, msg := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		q.Notify(LevelInfo, msg)
	}

	active := q.Active()
	require.Len(t, active, DefaultMax)
	assert.Equal(t, "g", active[0].Message)
	assert.Equal(t, "c", active[DefaultMax-1].Message)
}

func TestQueue_Expiry(t *testing.T) {
	now := time.Unix(1000, 0)
	q := NewQueue(5, 3*time.Second)
	q.now = func() time.Time { return now }

	q.Notify(LevelError, "old")
	now = now.Add(2 * time.Second)
	q.Notify(LevelError, "new")

	assert.Len(t, q.Active(), 2)

	now = now.Add(1500 * time.Millisecond)
	active := q.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "new", active[0].Message)
}

func TestQueue_Dismiss(t *testing.T) {
	q := NewQueue(5, time.Minute)
	q.Notify(LevelWarning, "x")
	id := q.Active()[0].ID

	assert.True(t, q.Dismiss(id))
	assert.False(t, q.Dismiss(id))
	assert.Empty(t, q.Active())
}

func TestErrorHelperAndMulti(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	q := NewQueue(5, time.Minute)
	sink := Multi{q, NewLogSink(&logger), nil}

	Error(sink, errors.New("failed to fetch devices"))
	Error(sink, nil)
	Error(nil, errors.New("ignored"))

	active := q.Active()
	require.Len(t, active, 1)
	assert.Equal(t, LevelError, active[0].Level)
	assert.Contains(t, buf.String(), "failed to fetch devices")
	assert.Contains(t, buf.String(), `"level":"error"`)
}

func TestQueue_Subscribe(t *testing.T) {
	q := NewQueue(5, time.Minute)
	ch, unsubscribe := q.Subscribe(1)
	defer unsubscribe()

	q.Notify(LevelSuccess, "saved")
	select {
	case n := <-ch:
		assert.Equal(t, "saved", n.Message)
	case <-time.After(time.Second):
		t.Fatal("no notification delivered")
	}
}
