package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/livetrigger/internal/events"
	"github.com/vovakirdan/livetrigger/internal/proto"
	"github.com/vovakirdan/livetrigger/internal/status"
)

const (
	waitFor = 2 * time.Second
	tick    = 2 * time.Millisecond
)

type harness struct {
	m         *Manager
	log       *events.Log
	status    *status.Store
	preferred *fakeTransport
	fallback  *fakeTransport
}

func newHarness(t *testing.T, cfg Config, preferred, fallback *fakeTransport) *harness {
	t.Helper()
	h := &harness{
		log:       events.NewLog(),
		status:    status.NewStore(),
		preferred: preferred,
		fallback:  fallback,
	}
	var fb Transport
	if fallback != nil {
		fb = fallback
	}
	h.m = NewManager(cfg, preferred, fb, h.log, h.status, nil)
	t.Cleanup(h.m.Disconnect)
	return h
}

func (h *harness) waitState(t *testing.T, want State) {
	t.Helper()
	require.Eventually(t, func() bool { return h.m.State() == want }, waitFor, tick,
		"state stuck at %s, want %s", h.m.State(), want)
}

func welcoming(name string) *fakeTransport {
	return &fakeTransport{name: name, dial: func(int) (Conn, error) { return newFakeConn(true), nil }}
}

func TestManager_ConnectIsIdempotent(t *testing.T) {
	h := newHarness(t, fastConfig(), welcoming("ws"), nil)

	h.m.Connect()
	h.m.Connect()
	h.waitState(t, StateConnected)
	h.m.Connect()

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, h.preferred.Dials())
	assert.Equal(t, StateConnected, h.m.State())
	assert.Equal(t, TierPreferred, h.m.Tier())
}

func TestManager_DisconnectWhenIdleIsNoop(t *testing.T) {
	h := newHarness(t, fastConfig(), welcoming("ws"), nil)

	assert.NotPanics(t, func() {
		h.m.Disconnect()
		h.m.Disconnect()
	})
	assert.Equal(t, StateIdle, h.m.State())
	assert.Equal(t, 0, h.preferred.Dials())
}

func TestManager_SendsReadyAfterWelcome(t *testing.T) {
	h := newHarness(t, fastConfig(), welcoming("ws"), nil)

	h.m.Connect()
	h.waitState(t, StateConnected)

	writes := h.preferred.Last().Writes()
	require.Len(t, writes, 1)
	assert.Equal(t, proto.NewReady(), writes[0])
	assert.Nil(t, h.status.State().LastError)
}

func TestManager_DegradesAfterMaxRetries(t *testing.T) {
	preferred := &fakeTransport{name: "ws"}
	fallback := &fakeTransport{name: "poll"}
	h := newHarness(t, fastConfig(), preferred, fallback)

	changes, unsubscribe := h.m.Subscribe(256)
	defer unsubscribe()

	h.m.Connect()
	h.waitState(t, StateDegraded)

	require.Eventually(t, func() bool { return fallback.Dials() >= 3 }, waitFor, tick)
	assert.Equal(t, 5, preferred.Dials())
	assert.Equal(t, TierFallback, h.m.Tier())
	assert.Equal(t, StateDegraded, h.m.State())

	st := h.status.State()
	require.NotNil(t, st.LastError)
	assert.Contains(t, *st.LastError, "connection refused")

	var seen []State
	for len(seen) < 7 {
		select {
		case c := <-changes:
			seen = append(seen, c.To)
		case <-time.After(waitFor):
			t.Fatalf("missing transitions, got %v", seen)
		}
	}
	assert.Equal(t, []State{
		StateConnecting,
		StateReconnecting, StateReconnecting, StateReconnecting, StateReconnecting,
		StateDegraded, StateDegraded,
	}, seen)
}

func TestManager_DegradedReusesPreferredWithoutFallback(t *testing.T) {
	preferred := &fakeTransport{name: "ws"}
	h := newHarness(t, fastConfig(), preferred, nil)

	h.m.Connect()
	h.waitState(t, StateDegraded)
	require.Eventually(t, func() bool { return preferred.Dials() >= 7 }, waitFor, tick)
}

func TestManager_DegradedConnectsThenRestoresPreferred(t *testing.T) {
	preferred := &fakeTransport{name: "ws"}
	fallback := welcoming("poll")
	h := newHarness(t, fastConfig(), preferred, fallback)

	h.m.Connect()
	h.waitState(t, StateConnected)
	assert.Equal(t, TierFallback, h.m.Tier())
	assert.Equal(t, 0, h.m.Attempts())
	assert.Equal(t, "poll", h.m.Info().Transport)

	fallback.Last().drop()
	require.Eventually(t, func() bool { return preferred.Dials() >= 6 }, waitFor, tick)
	h.waitState(t, StateConnected)
	assert.Equal(t, TierFallback, h.m.Tier())
}

func TestManager_StaysOnFallbackWhenRestoreDisabled(t *testing.T) {
	cfg := fastConfig()
	cfg.RestorePreferred = false
	preferred := &fakeTransport{name: "ws"}
	fallback := welcoming("poll")
	h := newHarness(t, cfg, preferred, fallback)

	h.m.Connect()
	h.waitState(t, StateConnected)

	fallback.Last().drop()
	require.Eventually(t, func() bool { return fallback.Dials() >= 2 }, waitFor, tick)
	h.waitState(t, StateConnected)
	assert.Equal(t, 5, preferred.Dials())
}

func TestManager_ReconnectsAfterDrop(t *testing.T) {
	h := newHarness(t, fastConfig(), welcoming("ws"), nil)

	h.m.Connect()
	h.waitState(t, StateConnected)

	h.preferred.Last().push(proto.InboundTypeConnectionStatus, proto.ConnectionStatusData{Connected: true, Username: "alice"})
	require.Eventually(t, func() bool { return h.status.State().Connected }, waitFor, tick)

	h.preferred.Last().drop()
	require.Eventually(t, func() bool { return h.preferred.Dials() == 2 }, waitFor, tick)
	h.waitState(t, StateConnected)
	assert.Equal(t, TierPreferred, h.m.Tier())
	assert.False(t, h.status.State().Connected)
}

func TestManager_HandshakeTimeoutCountsAsFailure(t *testing.T) {
	cfg := fastConfig()
	cfg.HandshakeTimeout = 10 * time.Millisecond
	silent := &fakeTransport{name: "ws", dial: func(int) (Conn, error) { return newFakeConn(false), nil }}
	h := newHarness(t, cfg, silent, nil)

	h.m.Connect()
	require.Eventually(t, func() bool { return h.m.Attempts() >= 1 }, waitFor, tick)

	st := h.status.State()
	require.NotNil(t, st.LastError)
	assert.Contains(t, *st.LastError, "handshake")
	assert.NotEqual(t, StateConnected, h.m.State())
}

func TestManager_GiftThenCountsSnapshot(t *testing.T) {
	h := newHarness(t, fastConfig(), welcoming("ws"), nil)

	h.m.Connect()
	h.waitState(t, StateConnected)

	conn := h.preferred.Last()
	conn.push(proto.InboundTypeStreamEvent, proto.StreamEventData{Type: events.SubtypeGift, GiftName: "rose"})
	conn.push(proto.InboundTypeCounts, proto.CountsData{Gifts: 5})

	require.Eventually(t, func() bool { return h.log.Len() == 2 }, waitFor, tick)
	assert.Equal(t, events.Counts{Gifts: 5}, h.log.Counts())

	evs := h.log.Events()
	assert.Equal(t, events.KindCountsUpdate, evs[0].Kind)
	assert.Equal(t, events.KindStreamEvent, evs[1].Kind)
	assert.Equal(t, events.SubtypeGift, evs[1].Subtype())
}

func TestManager_DispatchTable(t *testing.T) {
	h := newHarness(t, fastConfig(), welcoming("ws"), nil)

	h.m.Connect()
	h.waitState(t, StateConnected)

	conn := h.preferred.Last()
	conn.push(proto.InboundTypeRoomInfo, map[string]any{"viewerCount": 42})
	conn.push(proto.InboundTypeDeviceActivation, map[string]any{"deviceId": "d1"})
	conn.push(proto.InboundTypeDeviceStatus, map[string]any{"deviceId": "d1", "online": true})

	require.Eventually(t, func() bool { return h.log.Len() == 3 }, waitFor, tick)
	evs := h.log.Events()
	assert.Equal(t, events.KindDeviceStatus, evs[0].Kind)
	assert.Equal(t, events.KindDeviceActivation, evs[1].Kind)
	assert.Equal(t, events.KindRoomInfo, evs[2].Kind)
	assert.Equal(t, events.Counts{}, h.log.Counts())
}

func TestManager_UnknownTypeIsDropped(t *testing.T) {
	h := newHarness(t, fastConfig(), welcoming("ws"), nil)

	h.m.Connect()
	h.waitState(t, StateConnected)
	before := h.status.State()

	conn := h.preferred.Last()
	conn.push("tiktok-hologram", map[string]any{"type": "like"})
	conn.push(proto.InboundTypeDeviceStatus, map[string]any{"deviceId": "marker"})

	require.Eventually(t, func() bool { return h.log.Len() == 1 }, waitFor, tick)
	assert.Equal(t, events.KindDeviceStatus, h.log.Events()[0].Kind)
	assert.Equal(t, events.Counts{}, h.log.Counts())
	assert.Equal(t, before, h.status.State())
	assert.Equal(t, StateConnected, h.m.State())
}

func TestManager_ConnectionStatus(t *testing.T) {
	h := newHarness(t, fastConfig(), welcoming("ws"), nil)

	h.m.Connect()
	h.waitState(t, StateConnected)
	conn := h.preferred.Last()

	conn.push(proto.InboundTypeConnectionStatus, proto.ConnectionStatusData{Connected: true, Username: "alice"})
	require.Eventually(t, func() bool { return h.status.State().Connected }, waitFor, tick)
	st := h.status.State()
	require.NotNil(t, st.PeerIdentity)
	assert.Equal(t, "alice", *st.PeerIdentity)
	assert.Equal(t, 0, h.log.Len())

	conn.push(proto.InboundTypeConnectionStatus, proto.ConnectionStatusData{Connected: false, Error: "stream ended"})
	require.Eventually(t, func() bool { return h.log.Len() == 1 }, waitFor, tick)
	st = h.status.State()
	assert.False(t, st.Connected)
	assert.Nil(t, st.PeerIdentity)
	require.NotNil(t, st.LastError)
	assert.Equal(t, "stream ended", *st.LastError)
	assert.Equal(t, events.KindConnectionStatus, h.log.Events()[0].Kind)
}

func TestManager_DisconnectResetsDerivedState(t *testing.T) {
	h := newHarness(t, fastConfig(), welcoming("ws"), nil)

	h.m.Connect()
	h.waitState(t, StateConnected)
	conn := h.preferred.Last()
	conn.push(proto.InboundTypeConnectionStatus, proto.ConnectionStatusData{Connected: true, Username: "alice"})
	conn.push(proto.InboundTypeStreamEvent, proto.StreamEventData{Type: events.SubtypeLike})
	require.Eventually(t, func() bool { return h.log.Len() == 1 && h.status.State().Connected }, waitFor, tick)

	h.m.Disconnect()

	assert.Equal(t, StateClosed, h.m.State())
	assert.Equal(t, status.State{}, h.status.State())
	assert.Equal(t, events.Counts{}, h.log.Counts())
	assert.Equal(t, 1, h.log.Len())
	assert.True(t, conn.Closed())

	h.m.Connect()
	h.waitState(t, StateConnected)
	assert.Equal(t, 2, h.preferred.Dials())
}

func TestManager_SourceTimestampIsKept(t *testing.T) {
	h := newHarness(t, fastConfig(), welcoming("ws"), nil)

	h.m.Connect()
	h.waitState(t, StateConnected)

	ts := time.UnixMilli(1_700_000_000_000)
	h.preferred.Last().in <- proto.Inbound{
		Type: proto.InboundTypeDeviceActivation,
		Data: []byte(`{"deviceId":"d1"}`),
		TS:   ts.UnixMilli(),
	}
	require.Eventually(t, func() bool { return h.log.Len() == 1 }, waitFor, tick)
	assert.True(t, h.log.Events()[0].Timestamp().Equal(ts))
}

type recordingMetrics struct {
	attempts, fallbacks, received, dropped int
}

func (r *recordingMetrics) ReconnectAttempt()        { r.attempts++ }
func (r *recordingMetrics) Fallback()                { r.fallbacks++ }
func (r *recordingMetrics) StateChanged(_, _ string) {}
func (r *recordingMetrics) MessageReceived(_ string) { r.received++ }
func (r *recordingMetrics) MessageDropped()          { r.dropped++ }

func TestManager_RecorderSeesFallback(t *testing.T) {
	rec := &recordingMetrics{}
	h := newHarness(t, fastConfig(), &fakeTransport{name: "ws"}, welcoming("poll"))
	h.m.SetRecorder(rec)

	h.m.Connect()
	h.waitState(t, StateConnected)
	h.m.Disconnect()

	assert.Equal(t, 5, rec.attempts)
	assert.Equal(t, 1, rec.fallbacks)
	assert.Equal(t, 1, rec.received)
}
