package livestream_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/livetrigger/internal/fakebackend"
	"github.com/vovakirdan/livetrigger/internal/gateway"
	"github.com/vovakirdan/livetrigger/internal/livestream"
	"github.com/vovakirdan/livetrigger/internal/notify"
	"github.com/vovakirdan/livetrigger/internal/status"
)

func setup(t *testing.T) (*livestream.Session, *status.Store, *notify.Queue) {
	t.Helper()
	fb := fakebackend.New(fakebackend.Options{}, nil)
	srv := httptest.NewServer(fb.Handler())
	t.Cleanup(srv.Close)

	st := status.NewStore()
	q := notify.NewQueue(0, time.Minute)
	return livestream.NewSession(gateway.New(srv.URL, nil, nil), st, q, nil), st, q
}

func TestConnectDisconnect(t *testing.T) {
	s, st, q := setup(t)
	ctx := context.Background()

	user, err := s.Connect(ctx, " @streamer ")
	require.NoError(t, err)
	assert.Equal(t, "streamer", user)

	got := st.State()
	assert.True(t, got.Connected)
	require.NotNil(t, got.PeerIdentity)
	assert.Equal(t, "streamer", *got.PeerIdentity)

	probe, err := s.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, livestream.Status{Connected: true, Username: "streamer"}, probe)

	require.NoError(t, s.Disconnect(ctx))
	got = st.State()
	assert.False(t, got.Connected)
	assert.Nil(t, got.PeerIdentity)
	assert.Empty(t, q.Active())
}

func TestConnectRejected(t *testing.T) {
	s, st, q := setup(t)

	_, err := s.Connect(context.Background(), "offline")
	require.Error(t, err)

	got := st.State()
	assert.False(t, got.Connected)
	require.NotNil(t, got.LastError)
	assert.Equal(t, "user is not live", *got.LastError)
	require.Len(t, q.Active(), 1)
	assert.Contains(t, q.Active()[0].Message, "failed to connect to offline")
}

func TestConnectEmptyUsername(t *testing.T) {
	s, _, _ := setup(t)
	_, err := s.Connect(context.Background(), "  @ ")
	assert.ErrorIs(t, err, livestream.ErrEmptyUsername)
}
