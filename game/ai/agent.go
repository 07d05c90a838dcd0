package ai

import (
	"math"

	"github.com/ungerik/go3d/float64/vec2"

	"github.com/kasuganosora/mazechase/game/maze"
	"github.com/kasuganosora/mazechase/game/physics"
)

// World is the static environment shared by every agent of a session.
type World struct {
	Grid     *maze.Grid
	Tile     float64
	Resolver *physics.Resolver
}

// NewWorld wraps g with a collision resolver for colliders of the given radius.
func NewWorld(g *maze.Grid, tile, radius float64) *World {
	return &World{Grid: g, Tile: tile, Resolver: physics.NewResolver(g, tile, radius)}
}

// CellOf returns the grid cell containing pos, clamped to the grid.
func (w *World) CellOf(pos vec2.T) maze.Point {
	return w.clampCell(maze.CellAt(pos, w.Tile))
}

func (w *World) clampCell(p maze.Point) maze.Point {
	p.X = max(0, min(w.Grid.W-1, p.X))
	p.Y = max(0, min(w.Grid.H-1, p.Y))
	return p
}

// Controller is the per-tick contract the session drives.
type Controller interface {
	ID() string
	Position() vec2.T
	SetTarget(pos vec2.T)
	// Update advances the controller by dt seconds and reports whether it moved.
	Update(dt float64) bool
	// Reset relocates the agent and drops all transient state.
	Reset(pos vec2.T)
	ModeName() string
}

// Target is the last known position of the entity an agent reacts to.
type Target struct {
	Pos   vec2.T
	Known bool
}

// Agent holds the state shared by all controllers: position, path and target.
type Agent struct {
	id     string
	Pos    vec2.T
	Path   []maze.Point
	target Target
	world  *World
}

func (a *Agent) ID() string { return a.id }

// Position returns the agent's world position.
func (a *Agent) Position() vec2.T { return a.Pos }

// SetTarget records a coordinate snapshot of the tracked entity.
func (a *Agent) SetTarget(pos vec2.T) {
	a.target = Target{Pos: pos, Known: true}
}

// TargetRef returns the current target snapshot.
func (a *Agent) TargetRef() Target { return a.target }

// Cell returns the grid cell under the agent.
func (a *Agent) Cell() maze.Point { return a.world.CellOf(a.Pos) }

// targetDistance is +Inf while no target has been seen.
func (a *Agent) targetDistance() float64 {
	if !a.target.Known {
		return math.Inf(1)
	}
	d := vec2.Sub(&a.target.Pos, &a.Pos)
	return d.Length()
}

// steer moves toward the center of Path[lookahead] (or the last cell) and
// pops the head of the path once within arrival of that point.
func (a *Agent) steer(lookahead int, arrival, speed, dt float64) bool {
	if len(a.Path) == 0 {
		return false
	}
	next := a.Path[min(lookahead, len(a.Path)-1)].Center(a.world.Tile)
	d := vec2.Sub(&next, &a.Pos)
	dist := d.Length()
	if dist < arrival {
		a.Path = a.Path[1:]
		return false
	}
	return a.moveBy(d.Scaled(speed/dist), dt)
}

// moveBy applies vel through the collision resolver.
func (a *Agent) moveBy(vel vec2.T, dt float64) bool {
	next := a.world.Resolver.Resolve(a.Pos, vel, dt)
	moved := next != a.Pos
	a.Pos = next
	return moved
}
