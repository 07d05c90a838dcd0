package world

import (
	"github.com/kasuganosora/mazechase/game/difficulty"
	"github.com/kasuganosora/mazechase/game/maze"
)

// AgentState is the client-visible state of one agent.
type AgentState struct {
	ID   string  `json:"id"`
	Kind string  `json:"kind"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Mode string  `json:"mode"`
}

// PlayerState is the session's view of the host-controlled player.
type PlayerState struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Known    bool    `json:"known"`
	HP       int     `json:"hp"`
	MaxHP    int     `json:"max_hp"`
	Defeated bool    `json:"defeated"`
}

// Snapshot is an immutable copy of session state taken at the end of a tick.
type Snapshot struct {
	ID      string             `json:"id"`
	Tick    uint64             `json:"tick"`
	Elapsed float64            `json:"elapsed"`
	Paused  bool               `json:"paused"`
	Profile difficulty.Profile `json:"profile"`
	Width   int                `json:"width"`
	Height  int                `json:"height"`
	Tile    float64            `json:"tile"`
	Radius  float64            `json:"collider_radius"`
	Player  PlayerState        `json:"player"`
	Agents  []AgentState       `json:"agents"`

	// Grid is shared, never copied; it is read-only once generated.
	Grid *maze.Grid `json:"-"`
}

// Agent returns the state of the agent with the given id.
func (s *Snapshot) Agent(id string) (AgentState, bool) {
	for _, a := range s.Agents {
		if a.ID == id {
			return a, true
		}
	}
	return AgentState{}, false
}

// Snapshot returns the state published by the most recent tick. Safe for
// concurrent use.
func (s *Session) Snapshot() *Snapshot {
	return s.snap.Load()
}

func (s *Session) publishSnapshot() {
	snap := &Snapshot{
		ID:      s.ID,
		Tick:    s.clock.Ticks(),
		Elapsed: s.clock.Elapsed(),
		Paused:  s.clock.Paused(),
		Profile: s.profile,
		Width:   s.grid.W,
		Height:  s.grid.H,
		Tile:    s.opts.Tile,
		Radius:  s.opts.ColliderRadius,
		Player: PlayerState{
			X:        s.player.Pos[0],
			Y:        s.player.Pos[1],
			Known:    s.player.Known,
			HP:       s.player.HP,
			MaxHP:    s.player.MaxHP,
			Defeated: s.player.Defeated,
		},
		Grid: s.grid,
	}
	snap.Agents = make([]AgentState, 0, len(s.chasers)+1)
	for _, c := range s.chasers {
		snap.Agents = append(snap.Agents, agentState("chaser", c.ID(), c.Position(), c.ModeName()))
	}
	snap.Agents = append(snap.Agents, agentState("runner", s.runner.ID(), s.runner.Position(), s.runner.ModeName()))
	s.snap.Store(snap)
}

func agentState(kind, id string, pos [2]float64, mode string) AgentState {
	return AgentState{ID: id, Kind: kind, X: pos[0], Y: pos[1], Mode: mode}
}
