package proto

import (
	"encoding/json"
	"time"
)

// Inbound is the envelope for messages pushed by the backend.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
	// TS is the backend emission time in unix milliseconds, when known.
	TS int64 `json:"ts,omitempty"`
}

const (
	ProtocolVersion = 1

	// ClientRole is announced in the ready frame.
	ClientRole = "dashboard"

	InboundTypeWelcome          = "welcome"
	InboundTypeStreamEvent      = "tiktok-event"
	InboundTypeConnectionStatus = "tiktok-connection-status"
	InboundTypeRoomInfo         = "tiktok-room-info"
	InboundTypeCounts           = "tiktok-counts"
	InboundTypeDeviceActivation = "tuya-activation"
	InboundTypeDeviceStatus     = "tuya-status"

	OutboundTypeReady = "ready"
)

// SourceTime returns the backend timestamp carried by the envelope.
func (in Inbound) SourceTime() (time.Time, bool) {
	if in.TS <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(in.TS), true
}

// Outbound is the envelope for frames sent by the client.
type Outbound struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// ReadyData announces the client role once the backend welcomed us.
type ReadyData struct {
	Role     string `json:"role"`
	Protocol int    `json:"protocol"`
}

// NewReady builds the client-ready announcement.
func NewReady() Outbound {
	return Outbound{
		Type: OutboundTypeReady,
		Data: ReadyData{Role: ClientRole, Protocol: ProtocolVersion},
	}
}

// WelcomeData acknowledges a freshly registered connection.
type WelcomeData struct {
	SessionID string `json:"sessionId,omitempty"`
	Protocol  int    `json:"protocol,omitempty"`
}

// StreamEventData is a single viewer interaction on the live stream.
type StreamEventData struct {
	Type     string  `json:"type"`
	User     string  `json:"user,omitempty"`
	Nickname string  `json:"nickname,omitempty"`
	Comment  string  `json:"comment,omitempty"`
	GiftName string  `json:"giftName,omitempty"`
	Count    *uint64 `json:"count,omitempty"`
}

// ConnectionStatusData reports the backend's link to the live stream.
type ConnectionStatusData struct {
	Connected bool   `json:"connected"`
	Username  string `json:"username,omitempty"`
	Error     string `json:"error,omitempty"`
}

// CountsData is an authoritative snapshot of aggregate counters.
type CountsData struct {
	Likes    uint64 `json:"likes"`
	Comments uint64 `json:"comments"`
	Gifts    uint64 `json:"gifts"`
	Follows  uint64 `json:"follows"`
}

// PollResponse is returned by the long-poll fallback endpoint.
type PollResponse struct {
	Cursor   int64     `json:"cursor"`
	Messages []Inbound `json:"messages"`
}
