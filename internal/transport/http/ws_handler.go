package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/pairroom-server/internal/config"
	"github.com/vovakirdan/pairroom-server/internal/core"
	"github.com/vovakirdan/pairroom-server/internal/proto"
)

// WSHandler upgrades HTTP connections and bridges them to core.Connection.
type WSHandler struct {
	broker *core.Broker
	cfg    config.Config
	log    *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(broker *core.Broker, cfg config.Config, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{broker: broker, cfg: cfg, log: logger}
}

func (h *WSHandler) acceptOptions() *websocket.AcceptOptions {
	if len(h.cfg.AllowedOrigins) == 0 {
		return &websocket.AcceptOptions{InsecureSkipVerify: true}
	}
	return &websocket.AcceptOptions{OriginPatterns: h.cfg.AllowedOrigins}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	ws, err := websocket.Accept(w, r, h.acceptOptions())
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer ws.Close(websocket.StatusInternalError, "internal error")
	ws.SetReadLimit(h.cfg.ReadLimit())

	conn := h.broker.Connect()
	defer h.broker.Disconnect(conn)
	h.log.Info().Str("connection_id", conn.ID).Str("remote", r.RemoteAddr).Msg("ws connected")

	limiter := newRateLimiter(h.cfg.RateLimitPerMinute)
	stop := make(chan struct{})
	limiter.startReset(stop)
	defer close(stop)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, ws, conn, limiter)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, ws, conn)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("connection_id", conn.ID).Msg("ws connection closed with error")
		}
	}
	h.log.Info().Str("connection_id", conn.ID).Msg("ws disconnected")

	ws.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, ws *websocket.Conn, conn *core.Connection, limiter *rateLimiter) error {
	for {
		typ, data, err := ws.Read(ctx)
		if err != nil {
			h.log.Debug().Err(err).Str("connection_id", conn.ID).Msg("read ws inbound")
			return err
		}
		if typ != websocket.MessageText {
			if err := h.writeDirect(ctx, ws, badRequest("Binary frames are not supported")); err != nil {
				return err
			}
			continue
		}
		if !limiter.allow() {
			if err := h.writeDirect(ctx, ws, &proto.Outbound{
				Type:    proto.OutboundTypeError,
				Code:    core.ErrCodeRateLimited,
				Message: "Too many messages",
			}); err != nil {
				return err
			}
			continue
		}

		cmd, reply := inboundToCommand(data)
		if reply != nil {
			h.log.Debug().Str("connection_id", conn.ID).Str("code", reply.Code).Msg("rejected inbound")
			if err := h.writeDirect(ctx, ws, reply); err != nil {
				return err
			}
			continue
		}
		h.broker.Dispatch(conn, cmd)
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, ws *websocket.Conn, conn *core.Connection) error {
	for {
		select {
		case event, ok := <-conn.Events:
			if !ok {
				return nil
			}
			if err := h.writeEvent(ctx, ws, event); err != nil {
				h.log.Error().Err(err).Str("connection_id", conn.ID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *WSHandler) writeEvent(ctx context.Context, ws *websocket.Conn, event *core.Event) error {
	ctx, cancel := h.writeContext(ctx)
	defer cancel()
	if event.Kind == core.EventSignal {
		return ws.Write(ctx, websocket.MessageText, event.Raw)
	}
	return wsjson.Write(ctx, ws, outboundFromEvent(event))
}

// writeDirect answers the sender without going through the broker.
func (h *WSHandler) writeDirect(ctx context.Context, ws *websocket.Conn, out *proto.Outbound) error {
	ctx, cancel := h.writeContext(ctx)
	defer cancel()
	out.Timestamp = time.Now().UnixMilli()
	return wsjson.Write(ctx, ws, out)
}

func (h *WSHandler) writeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.cfg.WriteTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, h.cfg.WriteTimeout)
}
