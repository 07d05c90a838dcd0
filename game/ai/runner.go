package ai

import (
	"github.com/ungerik/go3d/float64/vec2"

	"github.com/kasuganosora/mazechase/game/event"
	"github.com/kasuganosora/mazechase/game/maze"
)

// RunnerMode enumerates the evasion states.
type RunnerMode int

const (
	RunnerIdle RunnerMode = iota
	RunnerEscape
)

func (m RunnerMode) String() string {
	if m == RunnerEscape {
		return "escape"
	}
	return "idle"
}

// RunnerConfig tunes the evasion state machine. Times are in seconds,
// distances in world units unless the name says cells.
type RunnerConfig struct {
	PathRecalc      float64 `mapstructure:"path_recalc"`
	SafeInner       float64 `mapstructure:"safe_inner"`
	SafeOuter       float64 `mapstructure:"safe_outer"`
	EscapeKeep      float64 `mapstructure:"escape_keep"`
	GoalLock        float64 `mapstructure:"goal_lock"`
	PixelTrigger    float64 `mapstructure:"pixel_trigger"`
	ClosingFast     float64 `mapstructure:"closing_fast"`
	TurnPenalty     float64 `mapstructure:"turn_penalty"`
	CandidateSteps  []int   `mapstructure:"candidate_steps"`
	FarCells        int     `mapstructure:"far_cells"`
	Arrival         float64 `mapstructure:"arrival"`
	CollideRadius   float64 `mapstructure:"collide_radius"`
	CaptureCooldown float64 `mapstructure:"capture_cooldown"`
}

// DefaultRunnerConfig returns the stock tuning.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		PathRecalc:      0.35,
		SafeInner:       300,
		SafeOuter:       1040,
		EscapeKeep:      1280,
		GoalLock:        0.2,
		PixelTrigger:    24,
		ClosingFast:     12,
		TurnPenalty:     0.3,
		CandidateSteps:  []int{10, 14, 18, 24, 28},
		FarCells:        32,
		Arrival:         8,
		CollideRadius:   20,
		CaptureCooldown: 1,
	}
}

// Runner keeps away from its threat, re-pathing to escape goals.
type Runner struct {
	Agent
	cfg   RunnerConfig
	speed float64
	pub   event.Publisher

	mode       RunnerMode
	pathTimer  float64
	goalLock   float64
	captureCD  float64
	preferLeft bool

	sampled        bool
	lastThreatCell maze.Point
	lastThreatPos  vec2.T
	lastDist       float64

	goal    maze.Point
	hasGoal bool
}

// NewRunner places a runner at pos. speed is in world units per second.
func NewRunner(id string, w *World, pos vec2.T, speed float64, cfg RunnerConfig, pub event.Publisher) *Runner {
	return &Runner{
		Agent:      Agent{id: id, Pos: pos, world: w},
		cfg:        cfg,
		speed:      speed,
		pub:        pub,
		preferLeft: true,
	}
}

// Mode returns the current evasion state.
func (r *Runner) Mode() RunnerMode { return r.mode }

func (r *Runner) ModeName() string { return r.mode.String() }

// Goal returns the last escape goal and whether one was ever chosen.
func (r *Runner) Goal() (maze.Point, bool) { return r.goal, r.hasGoal }

// Update runs one tick: timers, transitions, capture, re-pathing, then movement.
func (r *Runner) Update(dt float64) bool {
	r.pathTimer += dt
	if r.goalLock > 0 {
		r.goalLock -= dt
	}
	if r.captureCD > 0 {
		r.captureCD = max(0, r.captureCD-dt)
	}
	if !r.target.Known {
		return r.steer(1, r.cfg.Arrival, r.speed, dt)
	}

	dist := r.targetDistance()
	switch {
	case r.mode == RunnerIdle && dist < r.cfg.SafeInner:
		r.setMode(RunnerEscape)
	case r.mode == RunnerEscape && dist > r.cfg.SafeOuter:
		r.setMode(RunnerIdle)
	}

	if dist < r.cfg.CollideRadius && r.captureCD <= 0 {
		r.pub.Publish(event.Capture{Agent: r.id})
		r.captureCD = r.cfg.CaptureCooldown
		r.setMode(RunnerEscape)
		r.recalc(dist)
	} else if r.mode == RunnerEscape && r.shouldRecalc(dist) {
		r.recalc(dist)
	}

	moved := r.steer(1, r.cfg.Arrival, r.speed, dt)
	if len(r.Path) == 0 && r.mode == RunnerEscape && dist < r.cfg.EscapeKeep {
		r.pathTimer = r.cfg.PathRecalc
	}

	r.sampled = true
	r.lastThreatCell = r.world.CellOf(r.target.Pos)
	r.lastThreatPos = r.target.Pos
	r.lastDist = dist
	return moved
}

// shouldRecalc evaluates the re-path triggers. The periodic timer and an
// empty path inside escape-keep always fire; the reactive triggers wait
// for the goal lock to expire.
func (r *Runner) shouldRecalc(dist float64) bool {
	if r.pathTimer >= r.cfg.PathRecalc {
		return true
	}
	if len(r.Path) == 0 && dist < r.cfg.EscapeKeep {
		return true
	}
	if r.goalLock > 0 {
		return false
	}
	if !r.sampled {
		return true
	}
	moved := vec2.Sub(&r.target.Pos, &r.lastThreatPos)
	return r.world.CellOf(r.target.Pos) != r.lastThreatCell ||
		moved.Length() > r.cfg.PixelTrigger ||
		dist < r.lastDist-r.cfg.ClosingFast ||
		dist <= r.cfg.SafeInner*1.1
}

// recalc picks a new escape path. When nothing is found the current path
// is kept.
func (r *Runner) recalc(dist float64) {
	r.pathTimer = 0
	start := r.Cell()
	away := vec2.Sub(&r.Pos, &r.target.Pos)
	if l := away.Length(); l > 1e-6 {
		away.Scale(1 / l)
	} else {
		away = vec2.T{1, 0}
	}

	path := r.pickEscape(start, away)
	if len(path) == 0 && dist < r.cfg.EscapeKeep {
		path = r.farFallback(start, away)
	}
	if len(path) == 0 {
		return
	}
	r.Path = path
	r.goal = path[len(path)-1]
	r.hasGoal = true
	r.goalLock = r.cfg.GoalLock
	r.preferLeft = !r.preferLeft
}

// EscapeCandidates lists goal cells along the away vector, then along the
// preferred perpendicular, then the other one. Duplicates are dropped.
func (r *Runner) EscapeCandidates(away vec2.T) []maze.Point {
	left := vec2.T{-away[1], away[0]}
	right := vec2.T{away[1], -away[0]}
	dirs := [3]vec2.T{away, left, right}
	if !r.preferLeft {
		dirs[1], dirs[2] = right, left
	}
	seen := make(map[maze.Point]bool)
	var out []maze.Point
	for _, dir := range dirs {
		for _, k := range r.cfg.CandidateSteps {
			off := dir.Scaled(float64(k) * r.world.Tile)
			p := r.world.CellOf(vec2.Add(&r.Pos, &off))
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	return out
}

func (r *Runner) pickEscape(start maze.Point, away vec2.T) []maze.Point {
	for _, c := range r.EscapeCandidates(away) {
		if !r.world.Grid.Passable(c) {
			continue
		}
		if path := FindPath(r.world.Grid, start, c, r.cfg.TurnPenalty); len(path) > 0 {
			return path
		}
	}
	return nil
}

// farFallback paths to the reachable floor cell nearest a point FarCells
// along the away vector.
func (r *Runner) farFallback(start maze.Point, away vec2.T) []maze.Point {
	off := away.Scaled(float64(r.cfg.FarCells) * r.world.Tile)
	proj := r.world.CellOf(vec2.Add(&r.Pos, &off))

	var best maze.Point
	bestD := -1
	for _, p := range r.world.Grid.Flood(start) {
		if p == start {
			continue
		}
		dx, dy := p.X-proj.X, p.Y-proj.Y
		if d := dx*dx + dy*dy; bestD < 0 || d < bestD {
			best, bestD = p, d
		}
	}
	if bestD < 0 {
		return nil
	}
	return FindPath(r.world.Grid, start, best, r.cfg.TurnPenalty)
}

// Reset moves the runner to pos and forgets its path, goal and samples.
func (r *Runner) Reset(pos vec2.T) {
	r.Pos = pos
	r.Path = nil
	r.mode = RunnerIdle
	r.pathTimer = 0
	r.goalLock = 0
	r.captureCD = 0
	r.sampled = false
	r.hasGoal = false
}

// SetSpeed changes the movement speed in world units per second.
func (r *Runner) SetSpeed(speed float64) { r.speed = speed }

func (r *Runner) setMode(m RunnerMode) {
	if m == r.mode {
		return
	}
	from := r.mode
	r.mode = m
	r.pub.Publish(event.ModeChanged{Agent: r.id, From: from.String(), To: m.String()})
}
