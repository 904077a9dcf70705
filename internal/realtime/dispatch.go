package realtime

import (
	"encoding/json"
	"time"

	"github.com/vovakirdan/livetrigger/internal/events"
	"github.com/vovakirdan/livetrigger/internal/proto"
)

// recordKinds maps wire types that only append to the event log.
var recordKinds = map[string]events.Kind{
	proto.InboundTypeStreamEvent:      events.KindStreamEvent,
	proto.InboundTypeRoomInfo:         events.KindRoomInfo,
	proto.InboundTypeCounts:           events.KindCountsUpdate,
	proto.InboundTypeDeviceActivation: events.KindDeviceActivation,
	proto.InboundTypeDeviceStatus:     events.KindDeviceStatus,
}

// dispatch applies one inbound message to the stores. It runs on the session
// goroutine only.
func (m *Manager) dispatch(in proto.Inbound) {
	var source *time.Time
	if ts, ok := in.SourceTime(); ok {
		source = &ts
	}

	if in.Type == proto.InboundTypeConnectionStatus {
		m.handleConnectionStatus(in, source)
		return
	}

	kind, ok := recordKinds[in.Type]
	if !ok {
		m.log.Debug().Str("type", in.Type).Msg("ignoring unknown message type")
		if m.metrics != nil {
			m.metrics.MessageDropped()
		}
		return
	}
	m.events.Record(kind, in.Data, source)
}

func (m *Manager) handleConnectionStatus(in proto.Inbound, source *time.Time) {
	var data proto.ConnectionStatusData
	if err := json.Unmarshal(in.Data, &data); err != nil {
		m.log.Debug().Err(err).Msg("dropping malformed connection status")
		if m.metrics != nil {
			m.metrics.MessageDropped()
		}
		return
	}

	m.status.SetStatus(data.Connected, data.Username)
	if data.Error == "" {
		return
	}
	m.status.SetError(data.Error)
	m.events.Record(events.KindConnectionStatus, in.Data, source)
}
