package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/vovakirdan/livetrigger/internal/proto"
)

var errRefused = errors.New("connection refused")

// fakeTransport hands out connections built by dial, or errRefused when dial
// is nil.
type fakeTransport struct {
	name string
	dial func(n int) (Conn, error)

	mu    sync.Mutex
	dials int
	conns []*fakeConn
}

func (f *fakeTransport) Name() string { return f.name }

func (f *fakeTransport) Dial(ctx context.Context) (Conn, error) {
	f.mu.Lock()
	f.dials++
	n := f.dials
	f.mu.Unlock()

	if f.dial == nil {
		return nil, errRefused
	}
	c, err := f.dial(n)
	if fc, ok := c.(*fakeConn); ok && err == nil {
		f.mu.Lock()
		f.conns = append(f.conns, fc)
		f.mu.Unlock()
	}
	return c, err
}

func (f *fakeTransport) Dials() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dials
}

func (f *fakeTransport) Last() *fakeConn {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.conns) == 0 {
		return nil
	}
	return f.conns[len(f.conns)-1]
}

type fakeConn struct {
	in       chan proto.Inbound
	dropped  chan struct{}
	dropOnce sync.Once

	mu     sync.Mutex
	writes []proto.Outbound
	closed bool
}

func newFakeConn(welcome bool) *fakeConn {
	c := &fakeConn{
		in:      make(chan proto.Inbound, 16),
		dropped: make(chan struct{}),
	}
	if welcome {
		c.in <- proto.Inbound{Type: proto.InboundTypeWelcome}
	}
	return c
}

func (c *fakeConn) Read(ctx context.Context) (proto.Inbound, error) {
	select {
	case <-ctx.Done():
		return proto.Inbound{}, ctx.Err()
	case <-c.dropped:
		return proto.Inbound{}, io.EOF
	case in := <-c.in:
		return in, nil
	}
}

func (c *fakeConn) Write(_ context.Context, out proto.Outbound) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, out)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) Writes() []proto.Outbound {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]proto.Outbound(nil), c.writes...)
}

func (c *fakeConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) drop() {
	c.dropOnce.Do(func() { close(c.dropped) })
}

func (c *fakeConn) push(typ string, data any) {
	raw, _ := json.Marshal(data)
	c.in <- proto.Inbound{Type: typ, Data: raw}
}

func fastConfig() Config {
	return Config{
		MaxRetries:       5,
		InitialDelay:     time.Millisecond,
		MaxDelay:         2 * time.Millisecond,
		Multiplier:       2,
		HandshakeTimeout: time.Second,
		RestorePreferred: true,
	}
}
