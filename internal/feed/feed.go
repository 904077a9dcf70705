// Package feed renders event log entries as themed terminal lines.
package feed

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/vovakirdan/livetrigger/internal/events"
	"github.com/vovakirdan/livetrigger/internal/proto"
	"github.com/vovakirdan/livetrigger/internal/status"
	"github.com/vovakirdan/livetrigger/internal/theme"
)

// Line renders one event.
func Line(st theme.Styles, e events.Event) string {
	ts := st.Dimmed.Render(e.Timestamp().Format(time.TimeOnly))

	key, label, text := string(e.Kind), string(e.Kind), ""
	switch e.Kind {
	case events.KindStreamEvent:
		var body proto.StreamEventData
		_ = json.Unmarshal(e.Payload, &body)
		key, label = body.Type, body.Type
		text = describeStream(body)
	case events.KindDeviceActivation, events.KindDeviceStatus:
		var body struct {
			DeviceID string `json:"deviceId"`
			Trigger  string `json:"trigger"`
			Duration int64  `json:"duration"`
			On       *bool  `json:"on"`
		}
		_ = json.Unmarshal(e.Payload, &body)
		text = describeDevice(body.DeviceID, body.Trigger, body.Duration, body.On)
	case events.KindConnectionStatus:
		var body proto.ConnectionStatusData
		_ = json.Unmarshal(e.Payload, &body)
		text = body.Error
	case events.KindCountsUpdate:
		var c events.Counts
		_ = json.Unmarshal(e.Payload, &c)
		text = CountsText(c)
	default:
		text = compact(e.Payload)
	}
	if label == "" {
		label = "event"
	}
	return fmt.Sprintf("%s %s %s", ts, st.Badge(key, fmt.Sprintf("%-17s", label)), text)
}

func describeStream(e proto.StreamEventData) string {
	who := e.Nickname
	if who == "" {
		who = e.User
	}
	var b strings.Builder
	switch e.Type {
	case events.SubtypeGift:
		b.WriteString(e.GiftName)
		if e.Count != nil && *e.Count > 1 {
			fmt.Fprintf(&b, " x%d", *e.Count)
		}
	case events.SubtypeChat, events.SubtypeComment:
		fmt.Fprintf(&b, "%q", e.Comment)
	case events.SubtypeLike:
		if e.Count != nil && *e.Count > 1 {
			fmt.Fprintf(&b, "x%d", *e.Count)
		}
	}
	if who != "" {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString("from @" + who)
	}
	return b.String()
}

func describeDevice(id, trigger string, duration int64, on *bool) string {
	parts := []string{id}
	if on != nil {
		if *on {
			parts = append(parts, "on")
		} else {
			parts = append(parts, "off")
		}
	}
	if duration > 0 {
		parts = append(parts, fmt.Sprintf("for %s", time.Duration(duration)*time.Millisecond))
	}
	if trigger != "" {
		parts = append(parts, "("+trigger+")")
	}
	return strings.Join(parts, " ")
}

func compact(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > 80 {
		s = s[:77] + "..."
	}
	return s
}

// CountsText renders the aggregate counters.
func CountsText(c events.Counts) string {
	return fmt.Sprintf("likes %d  comments %d  gifts %d  follows %d", c.Likes, c.Comments, c.Gifts, c.Follows)
}

// StatusText renders the connection status.
func StatusText(st theme.Styles, s status.State) string {
	var line string
	switch {
	case s.Connected && s.PeerIdentity != nil:
		line = st.Header.Render("live: @" + *s.PeerIdentity)
	case s.Connected:
		line = st.Header.Render("live")
	default:
		line = st.Dimmed.Render("not live")
	}
	if s.LastError != nil {
		line += " " + st.Error.Render(*s.LastError)
	}
	return line
}

// Writer prints log changes to w until changes is closed.
func Writer(w io.Writer, styles func() theme.Styles, changes <-chan events.Change) {
	for ch := range changes {
		st := styles()
		switch ch.Op {
		case events.OpRecorded:
			if ch.Event != nil {
				fmt.Fprintln(w, Line(st, *ch.Event))
			}
		case events.OpCleared:
			fmt.Fprintln(w, st.Dimmed.Render("-- log cleared --"))
		case events.OpCounts:
			fmt.Fprintln(w, st.Dimmed.Render(CountsText(ch.Counts)))
		}
	}
}
