package fakebackend

import (
	"encoding/json"
	"time"

	"github.com/vovakirdan/livetrigger/internal/proto"
)

func (s *Server) publish(typ string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		s.log.Error().Err(err).Str("type", typ).Msg("failed to encode frame")
		return
	}
	s.hub.Publish(proto.Inbound{Type: typ, Data: raw})
}

// EmitStreamEvent publishes a viewer interaction, updates the running totals
// and fires the mapped device, if any.
func (s *Server) EmitStreamEvent(ev proto.StreamEventData) {
	n := uint64(1)
	if ev.Count != nil && *ev.Count > 0 {
		n = *ev.Count
	}
	s.mu.Lock()
	switch ev.Type {
	case "like":
		s.counts.Likes += n
	case "chat", "comment":
		s.counts.Comments += n
	case "gift":
		s.counts.Gifts += n
	case "follow":
		s.counts.Follows += n
	}
	s.mu.Unlock()

	s.publish(proto.InboundTypeStreamEvent, ev)

	trigger := ev.Type
	if trigger == "comment" {
		trigger = "chat"
	}
	if m, ok := s.state.mappingFor(trigger); ok {
		s.activate(m.DeviceID, 0, trigger)
	}
}

// EmitCounts publishes the running totals as an authoritative snapshot.
func (s *Server) EmitCounts() proto.CountsData {
	s.mu.Lock()
	snap := s.counts
	s.mu.Unlock()
	s.publish(proto.InboundTypeCounts, snap)
	return snap
}

// EmitRoomInfo publishes room metadata.
func (s *Server) EmitRoomInfo(info any) {
	s.publish(proto.InboundTypeRoomInfo, info)
}

// EmitConnectionStatus publishes the simulated stream link state.
func (s *Server) EmitConnectionStatus(st proto.ConnectionStatusData) {
	s.publish(proto.InboundTypeConnectionStatus, st)
}

// EmitRaw publishes an arbitrary frame, including unknown types.
func (s *Server) EmitRaw(typ string, data any) {
	s.publish(typ, data)
}

// activate switches a device on and schedules it off again.
func (s *Server) activate(id string, d time.Duration, trigger string) {
	if d <= 0 {
		d = s.state.durationFor(id)
	}
	if !s.state.switchDevice(id, true) {
		return
	}
	s.publish(proto.InboundTypeDeviceActivation, map[string]any{
		"deviceId": id,
		"trigger":  trigger,
		"duration": d.Milliseconds(),
	})
	s.publishDeviceStatus(id, true)

	time.AfterFunc(d, func() {
		if s.state.switchDevice(id, false) {
			s.publishDeviceStatus(id, false)
		}
	})
}

func (s *Server) publishDeviceStatus(id string, on bool) {
	s.publish(proto.InboundTypeDeviceStatus, map[string]any{"deviceId": id, "on": on})
}
