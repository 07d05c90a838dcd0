package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kasuganosora/mazechase/game/world"
	"github.com/kasuganosora/mazechase/pubsub"
)

const keepaliveInterval = 30 * time.Second

// Handler streams session events as server-sent events.
type Handler struct {
	wm     *world.Manager
	pubsub pubsub.PubSub
	logger *zap.Logger
}

// NewHandler creates a new SSE Handler.
func NewHandler(wm *world.Manager, ps pubsub.PubSub, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{wm: wm, pubsub: ps, logger: logger}
}

// ServeSSE handles GET /api/sessions/:id/events.
// The first event is "snapshot" with the current state; every session event
// follows under its own event name, with the encoded envelope as data.
func (h *Handler) ServeSSE(c *gin.Context) {
	s, err := h.wm.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	subCtx, subCancel := context.WithCancel(c.Request.Context())
	defer subCancel()

	msgCh, unsub, err := h.pubsub.Subscribe(subCtx, world.ChannelFor(s.ID))
	if err != nil {
		h.logger.Error("sse subscribe failed", zap.String("session", s.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "subscribe failed"})
		return
	}
	defer unsub()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	snap, _ := json.Marshal(s.Snapshot())
	writeEvent(c, "snapshot", snap)

	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				return
			}
			writeEvent(c, eventName(msg.Payload), []byte(msg.Payload))

		case <-ticker.C:
			// Keepalive comment to prevent proxy timeouts.
			fmt.Fprintf(c.Writer, ": keepalive\n\n")
			c.Writer.Flush()

		case <-s.Done():
			writeEvent(c, "closed", []byte("{}"))
			return

		case <-c.Request.Context().Done():
			return
		}
	}
}

func writeEvent(c *gin.Context, name string, data []byte) {
	fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", name, data)
	c.Writer.Flush()
}

func eventName(payload string) string {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal([]byte(payload), &env); err != nil || env.Type == "" {
		return "message"
	}
	return env.Type
}
