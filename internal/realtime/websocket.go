package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/livetrigger/internal/proto"
)

const wsReadLimit = 1 << 20

// DefaultPingInterval is how often an idle socket is checked for a live peer.
const DefaultPingInterval = 20 * time.Second

// WebSocketTransport is the preferred tier: one persistent socket per session.
type WebSocketTransport struct {
	URL   string
	Token TokenSource
	// PingInterval spaces keepalive pings. A ping that is not answered
	// within the interval closes the socket, which ends the session.
	PingInterval time.Duration
}

// NewWebSocketTransport returns a transport dialing url.
func NewWebSocketTransport(url string, token TokenSource) *WebSocketTransport {
	return &WebSocketTransport{URL: url, Token: token, PingInterval: DefaultPingInterval}
}

// Name implements Transport.
func (t *WebSocketTransport) Name() string { return "websocket" }

// Dial implements Transport.
func (t *WebSocketTransport) Dial(ctx context.Context) (Conn, error) {
	opts := &websocket.DialOptions{}
	if t.Token != nil {
		if tok := t.Token(); tok != "" {
			opts.HTTPHeader = http.Header{"Authorization": []string{"Bearer " + tok}}
		}
	}
	c, resp, err := websocket.Dial(ctx, t.URL, opts)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	c.SetReadLimit(wsReadLimit)

	pingCtx, stop := context.WithCancel(context.Background())
	w := &wsConn{c: c, stop: stop}
	if t.PingInterval > 0 {
		go w.keepalive(pingCtx, t.PingInterval)
	}
	return w, nil
}

type wsConn struct {
	c    *websocket.Conn
	stop context.CancelFunc
}

// keepalive pings until ctx ends. Pongs are only processed while a Read is
// in flight, which the session loop guarantees.
func (w *wsConn) keepalive(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		pingCtx, cancel := context.WithTimeout(ctx, interval)
		err := w.c.Ping(pingCtx)
		cancel()
		if err != nil {
			if ctx.Err() == nil {
				w.c.CloseNow()
			}
			return
		}
	}
}

func (w *wsConn) Read(ctx context.Context) (proto.Inbound, error) {
	_, data, err := w.c.Read(ctx)
	if err != nil {
		return proto.Inbound{}, err
	}
	var in proto.Inbound
	if err := json.Unmarshal(data, &in); err != nil {
		return proto.Inbound{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if in.Type == "" {
		return proto.Inbound{}, fmt.Errorf("%w: missing type", ErrMalformedFrame)
	}
	return in, nil
}

func (w *wsConn) Write(ctx context.Context, out proto.Outbound) error {
	return wsjson.Write(ctx, w.c, out)
}

func (w *wsConn) Close() error {
	w.stop()
	return w.c.Close(websocket.StatusNormalClosure, "bye")
}
