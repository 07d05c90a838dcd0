package world

import (
	"github.com/ungerik/go3d/float64/vec2"

	"github.com/kasuganosora/mazechase/game/ai"
	"github.com/kasuganosora/mazechase/game/difficulty"
)

// Command is an inbound host instruction, applied at the start of the next tick.
type Command interface {
	apply(s *Session)
}

// SetPlayer reports the host-tracked player position in world units.
type SetPlayer struct {
	X, Y float64
}

func (c SetPlayer) apply(s *Session) {
	s.player.Pos = vec2.T{c.X, c.Y}
	s.player.Known = true
}

type Pause struct{}

func (Pause) apply(s *Session) { s.pause() }

type Resume struct{}

func (Resume) apply(s *Session) { s.resume() }

// RepositionAll moves every agent to a fresh spawn point.
type RepositionAll struct{}

func (RepositionAll) apply(s *Session) { s.repositionAll() }

// ResetProfile activates a difficulty profile, restoring player HP and
// respawning agents. With Regenerate set a new maze is carved first.
type ResetProfile struct {
	Mode       difficulty.Mode
	Regenerate bool
}

func (c ResetProfile) apply(s *Session) { s.resetProfile(c.Mode, c.Regenerate) }

// ApplyEffect puts a status effect on one chaser, or on all of them when
// Chaser is negative.
type ApplyEffect struct {
	Chaser int
	Effect ai.Effect
}

func (c ApplyEffect) apply(s *Session) { s.applyEffect(c.Chaser, c.Effect) }
