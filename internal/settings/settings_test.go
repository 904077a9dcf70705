package settings_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/livetrigger/internal/fakebackend"
	"github.com/vovakirdan/livetrigger/internal/gateway"
	"github.com/vovakirdan/livetrigger/internal/notify"
	"github.com/vovakirdan/livetrigger/internal/settings"
)

func newStore(t *testing.T) (*settings.Store, *notify.Queue) {
	t.Helper()
	fb := fakebackend.New(fakebackend.Options{}, nil)
	srv := httptest.NewServer(fb.Handler())
	t.Cleanup(srv.Close)

	q := notify.NewQueue(0, time.Minute)
	return settings.NewStore(gateway.New(srv.URL, nil, nil), q, nil), q
}

func TestDefaults(t *testing.T) {
	s := settings.NewStore(gateway.New("http://unused", nil, nil), nil, nil)
	assert.Equal(t, settings.DefaultDuration, s.GlobalDuration())
	assert.Equal(t, settings.DefaultDuration, s.DeviceDuration("plug-1"))
	assert.False(t, s.AllowOffline())
	assert.Empty(t, s.Mappings())
	assert.Equal(t, []string{"like", "chat", "gift", "follow"}, settings.AvailableTriggers())
}

func TestDurations(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetGlobalDuration(ctx, 1500*time.Millisecond))
	require.NoError(t, s.FetchGlobalDuration(ctx))
	assert.Equal(t, 1500*time.Millisecond, s.GlobalDuration())

	require.NoError(t, s.SetDeviceDuration(ctx, "plug-2", 750*time.Millisecond))
	d, err := s.FetchDeviceDuration(ctx, "plug-2")
	require.NoError(t, err)
	assert.Equal(t, 750*time.Millisecond, d)
	assert.Equal(t, 750*time.Millisecond, s.DeviceDuration("plug-2"))
	assert.Equal(t, 1500*time.Millisecond, s.DeviceDuration("plug-1"))
}

func TestMappingsRoundTrip(t *testing.T) {
	s, q := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetDeviceMapping(ctx, settings.TriggerGift, "plug-2"))
	require.NoError(t, s.SetDeviceMapping(ctx, settings.TriggerLike, "plug-1"))
	require.NoError(t, s.ClearDeviceMapping(ctx, settings.TriggerLike))

	require.NoError(t, s.FetchAll(ctx))
	assert.Equal(t, map[string]string{"gift": "plug-2"}, s.Mappings())
	assert.False(t, s.Loading())

	err := s.SetDeviceMapping(ctx, settings.TriggerChat, "ghost")
	require.Error(t, err)
	assert.NotEmpty(t, s.Err())
	require.Len(t, q.Active(), 1)
	assert.Equal(t, notify.LevelError, q.Active()[0].Level)
}

func TestFetchFailuresFallBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	q := notify.NewQueue(0, time.Minute)
	s := settings.NewStore(gateway.New(srv.URL, nil, nil), q, nil)
	ctx := context.Background()

	assert.NoError(t, s.FetchAllowOffline(ctx))
	assert.False(t, s.AllowOffline())
	assert.NoError(t, s.FetchMappings(ctx))
	assert.Empty(t, s.Mappings())
	assert.Empty(t, q.Active())

	assert.Error(t, s.FetchAll(ctx))
	assert.Equal(t, settings.DefaultDuration, s.GlobalDuration())
	assert.Len(t, q.Active(), 1)
}

func TestAllowOffline(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetAllowOffline(ctx, true))
	require.NoError(t, s.FetchAllowOffline(ctx))
	assert.True(t, s.AllowOffline())
	assert.True(t, s.Snapshot().AllowOffline)
}

func TestPlainAcknowledgements(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			w.WriteHeader(http.StatusNoContent)
		default:
			w.Write([]byte(`{}`))
		}
	}))
	defer srv.Close()

	q := notify.NewQueue(0, time.Minute)
	s := settings.NewStore(gateway.New(srv.URL, nil, nil), q, nil)
	ctx := context.Background()

	require.NoError(t, s.SetGlobalDuration(ctx, 3*time.Second))
	assert.Equal(t, 3*time.Second, s.GlobalDuration())
	require.NoError(t, s.FetchGlobalDuration(ctx))
	assert.Equal(t, settings.DefaultDuration, s.GlobalDuration())

	require.NoError(t, s.SetDeviceDuration(ctx, "plug-1", time.Second))
	assert.Equal(t, time.Second, s.DeviceDuration("plug-1"))

	require.NoError(t, s.SetAllowOffline(ctx, true))
	assert.True(t, s.AllowOffline())

	require.NoError(t, s.SetDeviceMapping(ctx, settings.TriggerGift, "plug-2"))
	assert.Equal(t, map[string]string{"gift": "plug-2"}, s.Mappings())
	require.NoError(t, s.ClearDeviceMapping(ctx, settings.TriggerGift))
	assert.Empty(t, s.Mappings())

	assert.Empty(t, q.Active())
	assert.Empty(t, s.Err())
}
