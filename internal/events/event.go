package events

import (
	"encoding/json"
	"time"
)

// Kind tags a recorded event. The set is open: unknown kinds are stored as-is.
type Kind string

const (
	KindStreamEvent      Kind = "stream-event"
	KindDeviceActivation Kind = "device-activation"
	KindDeviceStatus     Kind = "device-status"
	KindConnectionStatus Kind = "connection-status"
	KindRoomInfo         Kind = "room-info"
	KindCountsUpdate     Kind = "counts-update"
)

// Stream event subtypes as sent by the backend.
const (
	SubtypeLike    = "like"
	SubtypeChat    = "chat"
	SubtypeComment = "comment"
	SubtypeGift    = "gift"
	SubtypeFollow  = "follow"
)

// Event is an immutable entry of the log.
type Event struct {
	ID              string          `json:"id"`
	Kind            Kind            `json:"kind"`
	Payload         json.RawMessage `json:"payload,omitempty"`
	ReceivedAt      time.Time       `json:"receivedAt"`
	SourceTimestamp *time.Time      `json:"sourceTimestamp,omitempty"`
}

// Timestamp is the source time when the backend supplied one, else ingestion time.
func (e Event) Timestamp() time.Time {
	if e.SourceTimestamp != nil {
		return *e.SourceTimestamp
	}
	return e.ReceivedAt
}

// Subtype returns the classification field of a stream event, or "".
func (e Event) Subtype() string {
	if e.Kind != KindStreamEvent {
		return ""
	}
	return classify(e.Payload).subtype
}

// Counts are the aggregate interaction counters.
type Counts struct {
	Likes    uint64 `json:"likes"`
	Comments uint64 `json:"comments"`
	Gifts    uint64 `json:"gifts"`
	Follows  uint64 `json:"follows"`
}

type streamClass struct {
	subtype string
	count   uint64
}

func classify(payload json.RawMessage) streamClass {
	var body struct {
		Type  string  `json:"type"`
		Count *uint64 `json:"count"`
	}
	if len(payload) == 0 || json.Unmarshal(payload, &body) != nil {
		return streamClass{}
	}
	n := uint64(1)
	if body.Count != nil && *body.Count > 0 {
		n = *body.Count
	}
	return streamClass{subtype: body.Type, count: n}
}

// apply increments the counter matching the subtype. Unknown subtypes leave
// the counts untouched.
func (c *Counts) apply(sc streamClass) {
	switch sc.subtype {
	case SubtypeLike:
		c.Likes += sc.count
	case SubtypeChat, SubtypeComment:
		c.Comments += sc.count
	case SubtypeGift:
		c.Gifts += sc.count
	case SubtypeFollow:
		c.Follows += sc.count
	}
}
