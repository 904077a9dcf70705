package http

import (
	"context"
	"errors"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/livetrigger/internal/events"
	"github.com/vovakirdan/livetrigger/internal/notify"
	"github.com/vovakirdan/livetrigger/internal/realtime"
	"github.com/vovakirdan/livetrigger/internal/status"
)

const pushBuffer = 64

// WSHandler upgrades HTTP connections and streams store changes to them.
type WSHandler struct {
	deps Deps
	api  *APIHandlers
	log  *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(deps Deps, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{deps: deps, api: NewAPIHandlers(deps, logger), log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"localhost:*", "127.0.0.1:*"},
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	id := uuid.NewString()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Subscribe before the snapshot so no change falls in between.
	changes, unsubEvents := h.deps.Events.Subscribe(pushBuffer)
	defer unsubEvents()
	statuses, unsubStatus := h.deps.Status.Subscribe(pushBuffer)
	defer unsubStatus()
	transitions, unsubTransport := h.deps.Realtime.Subscribe(pushBuffer)
	defer unsubTransport()
	var notes <-chan notify.Notification
	if h.deps.Notifications != nil {
		ch, unsub := h.deps.Notifications.Subscribe(pushBuffer)
		defer unsub()
		notes = ch
	}

	if err := wsjson.Write(ctx, conn, pushFrame(PushState, h.api.snapshot())); err != nil {
		h.log.Warn().Err(err).Str("client_id", id).Msg("write ws snapshot")
		return
	}
	h.log.Debug().Str("client_id", id).Msg("dashboard viewer connected")

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, changes, statuses, transitions, notes)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	code := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if s := websocket.CloseStatus(err); s != -1 {
			code = s
		}
		if code != websocket.StatusNormalClosure && code != websocket.StatusGoingAway {
			reason = err.Error()
			h.log.Warn().Err(err).Str("client_id", id).Msg("ws connection closed with error")
		}
	}

	conn.Close(code, reason)
}

// readLoop discards viewer frames; the feed is one-way.
func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			return err
		}
	}
}

func (h *WSHandler) writeLoop(
	ctx context.Context,
	conn *websocket.Conn,
	changes <-chan events.Change,
	statuses <-chan status.State,
	transitions <-chan realtime.StateChange,
	notes <-chan notify.Notification,
) error {
	for {
		var frame PushFrame
		select {
		case ch, ok := <-changes:
			if !ok {
				return nil
			}
			frame = outboundFromChange(ch)
		case st, ok := <-statuses:
			if !ok {
				return nil
			}
			frame = outboundFromStatus(st)
		case tr, ok := <-transitions:
			if !ok {
				return nil
			}
			frame = outboundFromTransport(tr)
		case n, ok := <-notes:
			if !ok {
				return nil
			}
			frame = outboundFromNotification(n)
		case <-ctx.Done():
			return ctx.Err()
		}
		if err := wsjson.Write(ctx, conn, frame); err != nil {
			h.log.Error().Err(err).Msg("write ws event")
			return err
		}
	}
}
