package realtime

import (
	"context"
	"errors"

	"github.com/vovakirdan/livetrigger/internal/proto"
)

// ErrMalformedFrame marks an inbound frame that could not be decoded. The
// session survives it; the frame is dropped.
var ErrMalformedFrame = errors.New("malformed frame")

// Conn is one live transport session.
type Conn interface {
	// Read blocks for the next inbound message.
	Read(ctx context.Context) (proto.Inbound, error)
	// Write sends a frame to the backend.
	Write(ctx context.Context, out proto.Outbound) error
	Close() error
}

// Transport opens sessions at one capability tier.
type Transport interface {
	Name() string
	Dial(ctx context.Context) (Conn, error)
}

// TokenSource returns the bearer token to present, or "".
type TokenSource func() string

// Tier is the transport capability level in use.
type Tier string

const (
	TierPreferred Tier = "preferred"
	TierFallback  Tier = "fallback"
)
