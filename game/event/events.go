package event

import "encoding/json"

// Event is a typed simulation notification delivered to Bus subscribers.
type Event interface {
	EventType() string
}

// Publisher is the write side of a Bus. Controllers depend on this only.
type Publisher interface {
	Publish(e Event)
}

// --- Concrete event types ---

// PositionUpdate is emitted once per tick for every agent that moved.
type PositionUpdate struct {
	Agent string  `json:"agent"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

func (PositionUpdate) EventType() string { return "position_update" }

// Damage is a chaser hit on the player.
type Damage struct {
	Source string `json:"source"`
	Amount int    `json:"amount"`
}

func (Damage) EventType() string { return "player_hit" }

// Capture is raised when the player reaches a runner.
type Capture struct {
	Agent string `json:"agent"`
}

func (Capture) EventType() string { return "enemy_collide" }

// ModeChanged reports an AI state transition.
type ModeChanged struct {
	Agent string `json:"agent"`
	From  string `json:"from"`
	To    string `json:"to"`
}

func (ModeChanged) EventType() string { return "mode_changed" }

// Reposition is emitted after every agent was moved to a fresh spawn point.
type Reposition struct {
	Agents map[string][2]float64 `json:"agents"`
}

func (Reposition) EventType() string { return "reposition" }

type Paused struct{}

func (Paused) EventType() string { return "pause" }

type Resumed struct{}

func (Resumed) EventType() string { return "resume" }

// ProfileChanged is emitted when a new difficulty profile becomes active.
type ProfileChanged struct {
	Mode        int    `json:"mode"`
	Name        string `json:"name"`
	Regenerated bool   `json:"regenerated"`
}

func (ProfileChanged) EventType() string { return "profile_changed" }

// PlayerHP carries the player's hit points after any change, including resets.
type PlayerHP struct {
	HP    int  `json:"hp"`
	MaxHP int  `json:"max_hp"`
	Reset bool `json:"reset,omitempty"`
}

func (PlayerHP) EventType() string { return "player_hp" }

type PlayerDefeated struct{}

func (PlayerDefeated) EventType() string { return "player_defeated" }

// EffectApplied reports a status effect landing on a chaser.
type EffectApplied struct {
	Agent    string  `json:"agent"`
	Effect   string  `json:"effect"`
	Duration float64 `json:"duration"`
}

func (EffectApplied) EventType() string { return "effect_applied" }

// Envelope is the wire form of an event.
type Envelope struct {
	Type    string          `json:"type"`
	Tick    uint64          `json:"tick"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Encode wraps e in an Envelope and marshals it.
func Encode(tick uint64, e Event) ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: e.EventType(), Tick: tick, Payload: payload})
}
