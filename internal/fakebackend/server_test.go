package fakebackend_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/livetrigger/internal/auth"
	"github.com/vovakirdan/livetrigger/internal/events"
	"github.com/vovakirdan/livetrigger/internal/fakebackend"
	"github.com/vovakirdan/livetrigger/internal/proto"
	"github.com/vovakirdan/livetrigger/internal/realtime"
	"github.com/vovakirdan/livetrigger/internal/status"
)

const (
	waitFor = 3 * time.Second
	tick    = 5 * time.Millisecond
)

var testJWT = &auth.JWTConfig{
	Secret:   []byte("fake-backend-test"),
	Issuer:   "test",
	Audience: "test",
	TTL:      time.Hour,
}

func quickConfig() realtime.Config {
	return realtime.Config{
		MaxRetries:       2,
		InitialDelay:     time.Millisecond,
		MaxDelay:         5 * time.Millisecond,
		Multiplier:       2,
		HandshakeTimeout: time.Second,
	}
}

func doJSON(t *testing.T, srv *httptest.Server, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestLoginAndAuth(t *testing.T) {
	hash, err := auth.HashPassword("hunter22")
	require.NoError(t, err)
	fb := fakebackend.New(fakebackend.Options{JWT: testJWT, Users: map[string]string{"alice": hash}}, nil)
	srv := httptest.NewServer(fb.Handler())
	defer srv.Close()

	code, _ := doJSON(t, srv, http.MethodGet, "/api/devices", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = doJSON(t, srv, http.MethodPost, auth.LoginPath, "", auth.LoginRequest{Username: "alice", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body := doJSON(t, srv, http.MethodPost, auth.LoginPath, "", auth.LoginRequest{Username: "alice", Password: "hunter22"})
	require.Equal(t, http.StatusOK, code)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	code, body = doJSON(t, srv, http.MethodGet, "/api/devices", token, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, body["devices"], 3)
}

func TestDeviceEndpoints(t *testing.T) {
	fb := fakebackend.New(fakebackend.Options{}, nil)
	srv := httptest.NewServer(fb.Handler())
	defer srv.Close()

	code, body := doJSON(t, srv, http.MethodPost, "/api/devices/plug-1/name", "", map[string]string{"name": "Lamp"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])

	_, body = doJSON(t, srv, http.MethodGet, "/api/devices/plug-1", "", nil)
	dev := body["device"].(map[string]any)
	assert.Equal(t, "Lamp", dev["custom_name"])

	code, _ = doJSON(t, srv, http.MethodGet, "/api/devices/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, code)

	_, body = doJSON(t, srv, http.MethodPost, "/api/devices/plug-3/on", "", nil)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "device is offline", body["message"])

	_, body = doJSON(t, srv, http.MethodPost, "/api/devices/plug-1/on", "", map[string]int{"duration": 50})
	assert.Equal(t, true, body["success"])
	_, body = doJSON(t, srv, http.MethodGet, "/api/devices/plug-1/state", "", nil)
	assert.Equal(t, true, body["state"].(map[string]any)["switch_1"])

	require.Eventually(t, func() bool {
		_, body := doJSON(t, srv, http.MethodGet, "/api/devices/plug-1/state", "", nil)
		return body["state"].(map[string]any)["switch_1"] == false
	}, waitFor, 10*time.Millisecond)
}

func TestSettingsAndMappings(t *testing.T) {
	fb := fakebackend.New(fakebackend.Options{}, nil)
	srv := httptest.NewServer(fb.Handler())
	defer srv.Close()

	_, body := doJSON(t, srv, http.MethodGet, "/api/settings/activation-duration", "", nil)
	assert.EqualValues(t, 2000, body["value"])

	code, _ := doJSON(t, srv, http.MethodPost, "/api/settings/activation-duration", "", map[string]int{"value": -1})
	assert.Equal(t, http.StatusBadRequest, code)

	doJSON(t, srv, http.MethodPost, "/api/settings/activation-duration/plug-2", "", map[string]int{"value": 500})
	_, body = doJSON(t, srv, http.MethodGet, "/api/settings/activation-duration/plug-2", "", nil)
	assert.EqualValues(t, 500, body["value"])
	_, body = doJSON(t, srv, http.MethodGet, "/api/settings/activation-duration/plug-1", "", nil)
	assert.EqualValues(t, 2000, body["value"])

	code, _ = doJSON(t, srv, http.MethodPost, "/api/device-mappings/gift", "", fakebackend.Mapping{DeviceID: "nope", Enabled: true})
	assert.Equal(t, http.StatusBadRequest, code)

	doJSON(t, srv, http.MethodPost, "/api/device-mappings/gift", "", fakebackend.Mapping{DeviceID: "plug-2", Enabled: true, MinCount: 1})
	_, body = doJSON(t, srv, http.MethodGet, "/api/device-mappings", "", nil)
	gift := body["mappings"].(map[string]any)["gift"].(map[string]any)
	assert.Equal(t, "plug-2", gift["deviceId"])
	assert.Equal(t, true, gift["enabled"])
}

func TestTikTokConnect(t *testing.T) {
	fb := fakebackend.New(fakebackend.Options{}, nil)
	srv := httptest.NewServer(fb.Handler())
	defer srv.Close()

	_, body := doJSON(t, srv, http.MethodPost, "/api/tiktok/connect", "", map[string]string{"username": "offline"})
	assert.Equal(t, false, body["success"])

	doJSON(t, srv, http.MethodPost, "/api/settings/allow-offline-connect", "", map[string]bool{"value": true})
	_, body = doJSON(t, srv, http.MethodPost, "/api/tiktok/connect", "", map[string]string{"username": "@offline"})
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "offline", body["username"])

	connected, user := fb.State().Live()
	assert.True(t, connected)
	assert.Equal(t, "offline", user)

	doJSON(t, srv, http.MethodPost, "/api/tiktok/disconnect", "", nil)
	_, body = doJSON(t, srv, http.MethodGet, "/api/tiktok/status", "", nil)
	assert.Equal(t, false, body["connected"])
}

func TestHubSince(t *testing.T) {
	h := fakebackend.NewHub()
	msgs, cursor, wake := h.Since(0)
	assert.Empty(t, msgs)
	assert.Zero(t, cursor)

	h.Publish(proto.Inbound{Type: proto.InboundTypeCounts})
	select {
	case <-wake:
	default:
		t.Fatal("publish did not wake pollers")
	}

	msgs, cursor, _ = h.Since(0)
	require.Len(t, msgs, 1)
	assert.EqualValues(t, 1, cursor)
	assert.NotZero(t, msgs[0].TS)

	msgs, _, _ = h.Since(cursor)
	assert.Empty(t, msgs)
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func TestManagerOverWebSocket(t *testing.T) {
	fb := fakebackend.New(fakebackend.Options{}, nil)
	srv := httptest.NewServer(fb.Handler())
	defer srv.Close()

	log := events.NewLog()
	st := status.NewStore()
	m := realtime.NewManager(quickConfig(),
		realtime.NewWebSocketTransport(wsURL(srv), nil),
		realtime.NewPollTransport(srv.URL+"/api/realtime/poll", nil),
		log, st, nil)
	m.Connect()
	defer m.Disconnect()

	require.Eventually(t, func() bool {
		return fb.Hub().Clients() == 1 && m.State() == realtime.StateConnected
	}, waitFor, tick)
	assert.Equal(t, realtime.TierPreferred, m.Tier())

	fb.EmitConnectionStatus(proto.ConnectionStatusData{Connected: true, Username: "streamer"})
	count := uint64(3)
	fb.EmitStreamEvent(proto.StreamEventData{Type: "gift", User: "u1", GiftName: "Rose", Count: &count})

	require.Eventually(t, func() bool { return log.Counts().Gifts == 3 }, waitFor, tick)
	require.Eventually(t, func() bool { return st.State().Connected }, waitFor, tick)
	assert.Equal(t, "streamer", *st.State().PeerIdentity)
}

func TestWebSocketHandshakeWithToken(t *testing.T) {
	fb := fakebackend.New(fakebackend.Options{JWT: testJWT}, nil)
	srv := httptest.NewServer(fb.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()

	_, resp, err := websocket.Dial(ctx, wsURL(srv), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token, err := auth.GenerateToken(testJWT, "alice", time.Now())
	require.NoError(t, err)
	conn, _, err := websocket.Dial(ctx, wsURL(srv), &websocket.DialOptions{
		HTTPHeader: http.Header{"Authorization": []string{"Bearer " + token}},
	})
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	var welcome proto.Inbound
	require.NoError(t, wsjson.Read(ctx, conn, &welcome))
	assert.Equal(t, proto.InboundTypeWelcome, welcome.Type)

	require.NoError(t, wsjson.Write(ctx, conn, proto.NewReady()))
	require.Eventually(t, func() bool { return fb.Hub().Clients() == 1 }, waitFor, tick)

	fb.EmitRoomInfo(map[string]any{"title": "hello"})
	var frame proto.Inbound
	require.NoError(t, wsjson.Read(ctx, conn, &frame))
	assert.Equal(t, proto.InboundTypeRoomInfo, frame.Type)
}

func TestManagerFallsBackToLongPoll(t *testing.T) {
	fb := fakebackend.New(fakebackend.Options{}, nil)
	fb.SetWebSocketEnabled(false)
	require.NoError(t, fb.State().SetMapping("like", fakebackend.Mapping{DeviceID: "plug-1", Enabled: true}))
	srv := httptest.NewServer(fb.Handler())
	defer srv.Close()

	log := events.NewLog()
	poll := realtime.NewPollTransport(srv.URL+"/api/realtime/poll", nil)
	poll.Wait = 50 * time.Millisecond
	m := realtime.NewManager(quickConfig(), realtime.NewWebSocketTransport(wsURL(srv), nil), poll, log, status.NewStore(), nil)
	m.Connect()
	defer m.Disconnect()

	require.Eventually(t, func() bool {
		return m.State() == realtime.StateConnected && m.Tier() == realtime.TierFallback
	}, waitFor, tick)

	fb.EmitStreamEvent(proto.StreamEventData{Type: "like", User: "u2"})

	require.Eventually(t, func() bool {
		for range log.ByKind(events.KindDeviceActivation) {
			return true
		}
		return false
	}, waitFor, tick)
	assert.Equal(t, events.Counts{Likes: 1}, log.Counts())
}

func TestPollRejectsUnknownSessionWrite(t *testing.T) {
	fb := fakebackend.New(fakebackend.Options{}, nil)
	srv := httptest.NewServer(fb.Handler())
	defer srv.Close()

	code, _ := doJSON(t, srv, http.MethodPost, "/api/realtime/poll?session=ghost", "", proto.NewReady())
	assert.Equal(t, http.StatusNotFound, code)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/realtime/poll", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
