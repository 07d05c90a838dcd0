package ws

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/kasuganosora/mazechase/config"
	"github.com/kasuganosora/mazechase/game/world"
	"github.com/kasuganosora/mazechase/pubsub"
)

// Handler is the Gin handler for GET /ws/sessions/:id.
type Handler struct {
	wm       *world.Manager
	pubsub   pubsub.PubSub
	router   *Router
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a new WebSocket Handler.
// sec.AllowedOrigins controls which WebSocket origins are accepted.
// An empty slice permits all origins (development only).
func NewHandler(wm *world.Manager, ps pubsub.PubSub, sec config.SecurityConfig, router *Router, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		wm:     wm,
		pubsub: ps,
		router: router,
		logger: logger,
	}
	allowed := sec.AllowedOrigins
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowed) == 0 {
				return true // dev mode: allow all
			}
			origin := r.Header.Get("Origin")
			for _, o := range allowed {
				if o == origin {
					return true
				}
			}
			return false
		},
	}
	return h
}

// ServeWS upgrades the connection and bridges it to the session: inbound
// packets become commands, session events go out as they are published.
func (h *Handler) ServeWS(c *gin.Context) {
	s, err := h.wm.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	events, unsub, err := h.pubsub.Subscribe(ctx, world.ChannelFor(s.ID))
	if err != nil {
		h.logger.Error("ws subscribe failed", zap.String("session", s.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "subscribe failed"})
		return
	}
	defer unsub()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("ws upgrade failed", zap.Error(err))
		return
	}

	client := NewClient(s, conn, h.logger)
	defer client.Close()
	h.logger.Info("host connected", zap.String("session", s.ID))
	sendSnapshot(client)

	go h.pumpEvents(client, events)
	h.readPump(client)
}

// pumpEvents relays published session events to the client. The session's
// own shutdown closes the connection.
func (h *Handler) pumpEvents(c *Client, events <-chan *pubsub.Message) {
	for {
		select {
		case msg, ok := <-events:
			if !ok {
				return
			}
			c.SendRaw([]byte(msg.Payload))
		case <-c.Session.Done():
			c.Close()
			return
		case <-c.Done:
			return
		}
	}
}

// readPump reads messages from the WebSocket connection and dispatches them.
func (h *Handler) readPump(c *Client) {
	defer h.logger.Info("host disconnected", zap.String("session", c.Session.ID))

	c.SetReadDeadline()
	c.Conn.SetPongHandler(func(string) error {
		c.SetReadDeadline()
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
				websocket.CloseNoStatusReceived) {
				h.logger.Warn("ws unexpected close",
					zap.String("session", c.Session.ID),
					zap.Error(err))
			}
			return
		}
		c.SetReadDeadline()
		h.router.Dispatch(c, raw)
	}
}
