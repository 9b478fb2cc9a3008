package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/timetable-server/internal/config"
	"github.com/vovakirdan/timetable-server/internal/core"
	"github.com/vovakirdan/timetable-server/internal/utils"
)

const writeTimeout = 10 * time.Second

var (
	errUnsupportedData = errors.New("binary frames are not supported")
	errRateLimited     = errors.New("rate limit exceeded")
	errServerShutdown  = errors.New("server shutting down")
)

// WSHandler upgrades HTTP connections and bridges them to core.Client.
type WSHandler struct {
	hub             *core.Hub
	log             *zerolog.Logger
	maxMessageBytes int64
	sendBuffer      int
	rateLimit       int
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, cfg *config.Config, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{
		hub:             hub,
		log:             logger,
		maxMessageBytes: cfg.MaxMessageBytes,
		sendBuffer:      cfg.SendBuffer,
		rateLimit:       cfg.RateLimitPerMinute,
	}
}

// Handle serves GET /api/v1/ws/:timetable_id.
func (h *WSHandler) Handle(c *gin.Context) {
	h.serve(c.Writer, c.Request, c.Param("timetable_id"))
}

func (h *WSHandler) serve(w stdhttp.ResponseWriter, r *stdhttp.Request, timetableID string) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Str("timetable_id", timetableID).Msg("ws accept error")
		return
	}
	if h.maxMessageBytes > 0 {
		conn.SetReadLimit(h.maxMessageBytes)
	}

	client := core.NewClient(utils.NewID(), timetableID, h.sendBuffer)
	if err := h.hub.Register(client); err != nil {
		h.log.Warn().Err(err).Str("client_id", client.ID()).Msg("ws register rejected")
		_ = conn.Close(websocket.StatusGoingAway, errServerShutdown.Error())
		return
	}
	defer h.hub.Unregister(client)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	limiter := newRateLimiter(h.rateLimit)
	stopLimiter := make(chan struct{})
	limiter.startReset(stopLimiter)
	defer close(stopLimiter)

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client, limiter)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	kind := classifyClose(err)
	status, reason := closeStatus(err, kind)

	logEvent := h.log.Debug()
	if kind == core.CloseTransport {
		logEvent = h.log.Warn().Err(err)
	}
	logEvent.
		Str("client_id", client.ID()).
		Str("timetable_id", timetableID).
		Str("close_kind", kind.String()).
		Int("status", int(status)).
		Msg("ws connection closed")

	// Closing the socket unblocks whichever loop is still running.
	_ = conn.Close(status, reason)
	cancel()
	<-errCh
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client, limiter *rateLimiter) error {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		if typ != websocket.MessageText {
			return errUnsupportedData
		}
		if !limiter.allow() {
			return errRateLimited
		}

		delivered := h.hub.Broadcast(core.Message{
			Timetable: client.Timetable(),
			Payload:   string(data),
		})
		h.log.Debug().
			Str("client_id", client.ID()).
			Str("timetable_id", client.Timetable()).
			Int("delivered", delivered).
			Msg("ws message broadcast")
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case msg, ok := <-client.Events():
			if !ok {
				return errServerShutdown
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Write(writeCtx, websocket.MessageText, []byte(msg.Text()))
			cancel()
			if err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// classifyClose tells how the first finished loop ended the connection.
func classifyClose(err error) core.CloseKind {
	switch {
	case err == nil, errors.Is(err, errServerShutdown), errors.Is(err, context.Canceled):
		return core.CloseShutdown
	case errors.Is(err, io.EOF):
		return core.ClosePeer
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway, websocket.StatusNoStatusRcvd:
		return core.ClosePeer
	}
	return core.CloseTransport
}

func closeStatus(err error, kind core.CloseKind) (websocket.StatusCode, string) {
	switch {
	case errors.Is(err, errUnsupportedData):
		return websocket.StatusUnsupportedData, "text frames only"
	case errors.Is(err, errRateLimited):
		return websocket.StatusPolicyViolation, errRateLimited.Error()
	}
	switch kind {
	case core.ClosePeer:
		return websocket.StatusNormalClosure, "closing"
	case core.CloseShutdown:
		return websocket.StatusGoingAway, errServerShutdown.Error()
	default:
		return websocket.StatusInternalError, "internal error"
	}
}
