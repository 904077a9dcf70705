package http

import (
	"github.com/vovakirdan/livetrigger/internal/events"
	"github.com/vovakirdan/livetrigger/internal/notify"
	"github.com/vovakirdan/livetrigger/internal/realtime"
	"github.com/vovakirdan/livetrigger/internal/status"
)

// Push event names.
const (
	PushState        = "state"
	PushRecorded     = "recorded"
	PushCleared      = "cleared"
	PushCounts       = "counts"
	PushStatus       = "status"
	PushTransport    = "transport"
	PushNotification = "notification"
)

// PushFrame is one message of the dashboard websocket feed.
type PushFrame struct {
	Type  string `json:"type"`
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

func pushFrame(event string, data any) PushFrame {
	return PushFrame{Type: "event", Event: event, Data: data}
}

func outboundFromChange(ch events.Change) PushFrame {
	switch ch.Op {
	case events.OpRecorded:
		return pushFrame(PushRecorded, ch)
	case events.OpCleared:
		return pushFrame(PushCleared, ch)
	default:
		return pushFrame(PushCounts, ch.Counts)
	}
}

func outboundFromStatus(st status.State) PushFrame {
	return pushFrame(PushStatus, st)
}

func outboundFromTransport(ch realtime.StateChange) PushFrame {
	return pushFrame(PushTransport, ch)
}

func outboundFromNotification(n notify.Notification) PushFrame {
	return pushFrame(PushNotification, n)
}
