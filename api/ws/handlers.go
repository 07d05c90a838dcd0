package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kasuganosora/mazechase/game/ai"
	"github.com/kasuganosora/mazechase/game/difficulty"
	"github.com/kasuganosora/mazechase/game/world"
)

var errBadPayload = errors.New("bad payload")

// RegisterHandlers registers the host bridge handlers on r.
func RegisterHandlers(r *Router) {
	r.On("ping", HandlePing)
	r.On("snapshot", HandleSnapshot)
	r.On("player_pos", HandlePlayerPos)
	r.On("pause", submitHandler(world.Pause{}))
	r.On("resume", submitHandler(world.Resume{}))
	r.On("reposition", submitHandler(world.RepositionAll{}))
	r.On("difficulty", HandleDifficulty)
	r.On("effect", HandleEffect)
}

// ------------------------------------------------------------------ ping

type pingPayload struct {
	TS int64 `json:"ts"`
}

// HandlePing answers host heartbeats with the client timestamp and server time.
func HandlePing(_ context.Context, c *Client, raw json.RawMessage) error {
	var p pingPayload
	_ = json.Unmarshal(raw, &p)
	payload, _ := json.Marshal(map[string]int64{"ts": p.TS, "server_ts": time.Now().UnixMilli()})
	c.Send(&Packet{Type: "pong", Payload: payload})
	return nil
}

// HandleSnapshot sends the latest session snapshot.
func HandleSnapshot(_ context.Context, c *Client, _ json.RawMessage) error {
	sendSnapshot(c)
	return nil
}

func sendSnapshot(c *Client) {
	payload, err := json.Marshal(c.Session.Snapshot())
	if err != nil {
		return
	}
	c.Send(&Packet{Type: "snapshot", Payload: payload})
}

// ------------------------------------------------------------------ commands

type playerPosReq struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

// HandlePlayerPos forwards the host-tracked player position.
func HandlePlayerPos(_ context.Context, c *Client, raw json.RawMessage) error {
	var req playerPosReq
	if err := json.Unmarshal(raw, &req); err != nil || req.X == nil || req.Y == nil {
		return fmt.Errorf("player_pos: %w", errBadPayload)
	}
	return c.Session.Submit(world.SetPlayer{X: *req.X, Y: *req.Y})
}

type difficultyReq struct {
	Mode       difficulty.Mode `json:"mode"`
	Regenerate bool            `json:"regenerate"`
}

// HandleDifficulty switches the session's difficulty profile.
func HandleDifficulty(_ context.Context, c *Client, raw json.RawMessage) error {
	var req difficultyReq
	if err := json.Unmarshal(raw, &req); err != nil {
		return fmt.Errorf("difficulty: %w", errBadPayload)
	}
	return c.Session.Submit(world.ResetProfile{Mode: req.Mode.Normalize(), Regenerate: req.Regenerate})
}

type effectReq struct {
	Chaser *int   `json:"chaser"`
	Effect string `json:"effect"`
}

// HandleEffect applies an item effect to one chaser, or all when chaser is omitted.
func HandleEffect(_ context.Context, c *Client, raw json.RawMessage) error {
	var req effectReq
	if err := json.Unmarshal(raw, &req); err != nil {
		return fmt.Errorf("effect: %w", errBadPayload)
	}
	effect := ai.Effect(req.Effect)
	if !effect.Valid() {
		return fmt.Errorf("effect: unknown effect %q", req.Effect)
	}
	idx := -1
	if req.Chaser != nil {
		idx = *req.Chaser
	}
	return c.Session.Submit(world.ApplyEffect{Chaser: idx, Effect: effect})
}

func submitHandler(cmd world.Command) HandlerFunc {
	return func(_ context.Context, c *Client, _ json.RawMessage) error {
		return c.Session.Submit(cmd)
	}
}
