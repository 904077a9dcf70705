package events

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func streamPayload(subtype string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"type":%q,"user":"viewer"}`, subtype))
}

func TestLog_BoundedNewestFirst(t *testing.T) {
	log := NewLog()

	for i := range 150 {
		log.Record(KindDeviceStatus, json.RawMessage(fmt.Sprintf(`{"n":%d}`, i)), nil)
		require.LessOrEqual(t, log.Len(), DefaultCapacity)
	}

	events := log.Events()
	require.Len(t, events, DefaultCapacity)
	assert.JSONEq(t, `{"n":149}`, string(events[0].Payload))
	assert.JSONEq(t, `{"n":50}`, string(events[len(events)-1].Payload))
}

func TestLog_CustomCapacity(t *testing.T) {
	log := NewLog(WithCapacity(3))
	for i := range 5 {
		log.Record(KindRoomInfo, json.RawMessage(fmt.Sprintf(`%d`, i)), nil)
	}
	events := log.Events()
	require.Len(t, events, 3)
	assert.Equal(t, "4", string(events[0].Payload))
	assert.Equal(t, "2", string(events[2].Payload))
}

func TestLog_ClearIsIdempotent(t *testing.T) {
	log := NewLog()
	log.Record(KindStreamEvent, streamPayload(SubtypeLike), nil)
	log.Record(KindStreamEvent, streamPayload(SubtypeGift), nil)

	log.Clear()
	assert.Equal(t, 0, log.Len())
	assert.Equal(t, Counts{}, log.Counts())

	log.Clear()
	assert.Equal(t, 0, log.Len())
	assert.Equal(t, Counts{}, log.Counts())
}

func TestLog_StreamEventIncrementsCounters(t *testing.T) {
	log := NewLog()

	log.Record(KindStreamEvent, streamPayload(SubtypeLike), nil)
	assert.Equal(t, uint64(1), log.Counts().Likes)

	log.Record(KindStreamEvent, json.RawMessage(`{"type":"like","count":15}`), nil)
	log.Record(KindStreamEvent, streamPayload(SubtypeChat), nil)
	log.Record(KindStreamEvent, streamPayload(SubtypeComment), nil)
	log.Record(KindStreamEvent, streamPayload(SubtypeFollow), nil)
	log.Record(KindStreamEvent, json.RawMessage(`{"type":"gift","count":3}`), nil)
	log.Record(KindStreamEvent, streamPayload("share"), nil)
	log.Record(KindStreamEvent, json.RawMessage(`not json`), nil)

	assert.Equal(t, Counts{Likes: 16, Comments: 2, Gifts: 3, Follows: 1}, log.Counts())
	assert.Equal(t, 8, log.Len())
}

func TestLog_CountsUpdateReplacesWholesale(t *testing.T) {
	log := NewLog()
	for range 4 {
		log.Record(KindStreamEvent, streamPayload(SubtypeLike), nil)
	}

	log.Record(KindCountsUpdate, json.RawMessage(`{"likes":10,"comments":2,"gifts":0,"follows":1}`), nil)
	assert.Equal(t, Counts{Likes: 10, Comments: 2, Follows: 1}, log.Counts())

	// local increments continue from the snapshot
	log.Record(KindStreamEvent, streamPayload(SubtypeLike), nil)
	assert.Equal(t, uint64(11), log.Counts().Likes)
}

func TestLog_ResetCountsKeepsHistory(t *testing.T) {
	log := NewLog()
	log.Record(KindStreamEvent, streamPayload(SubtypeFollow), nil)

	log.ResetCounts()

	assert.Equal(t, Counts{}, log.Counts())
	assert.Equal(t, 1, log.Len())
}

func TestLog_TimestampDefaultsToIngestion(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	log := NewLog(WithClock(func() time.Time { return now }))

	ev := log.Record(KindDeviceActivation, nil, nil)
	assert.Equal(t, now, ev.Timestamp())
	assert.Nil(t, ev.SourceTimestamp)

	src := now.Add(-time.Minute)
	ev = log.Record(KindDeviceActivation, nil, &src)
	assert.Equal(t, src, ev.Timestamp())
	assert.Equal(t, now, ev.ReceivedAt)
	assert.NotEmpty(t, ev.ID)
}

func TestLog_ViewsAreRestartableSnapshots(t *testing.T) {
	log := NewLog()
	log.Record(KindStreamEvent, streamPayload(SubtypeLike), nil)
	log.Record(KindDeviceStatus, nil, nil)
	log.Record(KindStreamEvent, streamPayload(SubtypeGift), nil)
	log.Record(KindStreamEvent, streamPayload(SubtypeLike), nil)

	streams := log.ByKind(KindStreamEvent)
	likes := log.ByStreamSubtype(SubtypeLike)

	// mutations after the call are not visible
	log.Record(KindStreamEvent, streamPayload(SubtypeLike), nil)

	first := slices.Collect(streams)
	second := slices.Collect(streams)
	require.Len(t, first, 3)
	assert.Equal(t, first, second)
	assert.Equal(t, SubtypeLike, first[0].Subtype())
	assert.Equal(t, SubtypeGift, first[1].Subtype())

	likeEvents := slices.Collect(likes)
	require.Len(t, likeEvents, 2)
	assert.Equal(t, 5, log.Len())
}

func TestLog_ViewStopsEarly(t *testing.T) {
	log := NewLog()
	for range 5 {
		log.Record(KindRoomInfo, nil, nil)
	}
	seen := 0
	for range log.ByKind(KindRoomInfo) {
		seen++
		if seen == 2 {
			break
		}
	}
	assert.Equal(t, 2, seen)
}

func TestLog_SubscribeReceivesChanges(t *testing.T) {
	log := NewLog()
	ch, unsub := log.Subscribe(4)
	defer unsub()

	ev := log.Record(KindStreamEvent, streamPayload(SubtypeLike), nil)
	log.Clear()

	change := <-ch
	assert.Equal(t, OpRecorded, change.Op)
	require.NotNil(t, change.Event)
	assert.Equal(t, ev.ID, change.Event.ID)
	assert.Equal(t, uint64(1), change.Counts.Likes)

	change = <-ch
	assert.Equal(t, OpCleared, change.Op)
}

type countingRecorder struct {
	recorded map[string]int
	evicted  int
}

func (r *countingRecorder) EventRecorded(kind string) { r.recorded[kind]++ }
func (r *countingRecorder) EventEvicted()             { r.evicted++ }

func TestLog_RecorderSeesEvictions(t *testing.T) {
	rec := &countingRecorder{recorded: map[string]int{}}
	log := NewLog(WithCapacity(2), WithRecorder(rec))
	for range 5 {
		log.Record(KindDeviceActivation, nil, nil)
	}
	assert.Equal(t, 5, rec.recorded[string(KindDeviceActivation)])
	assert.Equal(t, 3, rec.evicted)
}

func TestLog_MalformedCountsUpdateIsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	log := NewLog(WithLogger(&logger))

	log.Record(KindStreamEvent, streamPayload(SubtypeLike), nil)
	log.Record(KindCountsUpdate, json.RawMessage(`"not counts"`), nil)

	assert.Equal(t, 2, log.Len())
	assert.Equal(t, Counts{Likes: 1}, log.Counts())
	assert.Contains(t, buf.String(), "counts update not applied")
}

func TestLog_ChangesFollowMutationOrder(t *testing.T) {
	log := NewLog(WithCapacity(10))
	changes, unsub := log.Subscribe(4096)
	defer unsub()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for range 500 {
			log.Record(KindStreamEvent, streamPayload(SubtypeGift), nil)
		}
	}()
	go func() {
		defer wg.Done()
		for range 500 {
			log.Clear()
		}
	}()
	wg.Wait()

	var last Change
	for n := 0; n < 1000; n++ {
		last = <-changes
	}
	assert.Equal(t, log.Counts(), last.Counts)
	switch last.Op {
	case OpCleared:
		assert.Zero(t, log.Len())
	case OpRecorded:
		require.NotZero(t, log.Len())
		assert.Equal(t, log.Events()[0].ID, last.Event.ID)
	default:
		t.Fatalf("unexpected op %s", last.Op)
	}
}
