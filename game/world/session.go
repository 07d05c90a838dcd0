package world

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/ungerik/go3d/float64/vec2"
	"go.uber.org/zap"

	"github.com/kasuganosora/mazechase/game/ai"
	"github.com/kasuganosora/mazechase/game/difficulty"
	"github.com/kasuganosora/mazechase/game/event"
	"github.com/kasuganosora/mazechase/game/maze"
)

var (
	ErrQueueFull      = errors.New("world: command queue full")
	ErrSessionStopped = errors.New("world: session stopped")
)

// RunnerID is the agent id of the session's runner.
const RunnerID = "runner"

// ChaserID returns the agent id of the i-th chaser.
func ChaserID(i int) string { return fmt.Sprintf("chaser-%d", i) }

// Options configures a Session.
type Options struct {
	ID             string
	Width, Height  int
	Tile           float64
	ColliderRadius float64
	MaxStep        float64
	TickInterval   time.Duration
	Mode           difficulty.Mode
	Chaser         ai.ChaserConfig
	Runner         ai.RunnerConfig
	SpawnClearance int
	// MinSpawnDistance keeps agent spawns away from the player, in world units.
	MinSpawnDistance float64
	CommandBuffer    int
	Rand             *rand.Rand
	Logger           *zap.Logger
}

// DefaultOptions matches the stock 51x25 map with 32px tiles.
func DefaultOptions() Options {
	return Options{
		Width:            51,
		Height:           25,
		Tile:             32,
		ColliderRadius:   32 * 0.2,
		MaxStep:          DefaultMaxStep,
		TickInterval:     16 * time.Millisecond,
		Mode:             difficulty.Normal,
		Chaser:           ai.DefaultChaserConfig(),
		Runner:           ai.DefaultRunnerConfig(),
		MinSpawnDistance: 5 * 32,
		CommandBuffer:    256,
	}
}

type playerState struct {
	Pos      vec2.T
	Known    bool
	HP       int
	MaxHP    int
	Defeated bool
}

// Session owns one running game: the maze, the agents, the player and the
// clock. All mutation happens on the goroutine that calls Tick (normally Run);
// other goroutines talk to it through Submit and Snapshot.
type Session struct {
	ID string

	opts    Options
	logger  *zap.Logger
	rng     *rand.Rand
	gen     *maze.Generator
	bus     *event.Bus
	clock   *Clock
	grid    *maze.Grid
	world   *ai.World
	profile difficulty.Profile
	chasers []*ai.Chaser
	runner  *ai.Runner
	player  playerState

	queue   agentEvents
	cmds    chan Command
	snap    atomic.Pointer[Snapshot]
	active  atomic.Int64
	stopCh  chan struct{}
	stopped sync.Once
}

// NewSession generates a maze for opts.Mode and spawns its agents.
func NewSession(opts Options) *Session {
	def := DefaultOptions()
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = def.Width, def.Height
	}
	if opts.Tile <= 0 {
		opts.Tile = def.Tile
	}
	if opts.ColliderRadius <= 0 {
		opts.ColliderRadius = opts.Tile * 0.2
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = def.TickInterval
	}
	if opts.CommandBuffer <= 0 {
		opts.CommandBuffer = def.CommandBuffer
	}
	if opts.ID == "" {
		opts.ID = uuid.New().String()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	s := &Session{
		ID:     opts.ID,
		opts:   opts,
		logger: opts.Logger.With(zap.String("session", opts.ID)),
		rng:    opts.Rand,
		gen:    maze.NewGenerator(opts.Rand),
		bus:    event.NewBus(),
		clock:  NewClock(opts.MaxStep),
		cmds:   make(chan Command, opts.CommandBuffer),
		stopCh: make(chan struct{}),
	}
	s.profile = difficulty.Lookup(opts.Mode)
	s.regenerate()
	s.player.Pos = s.spawn(false)
	s.player.MaxHP = s.profile.PlayerMaxHP
	s.player.HP = s.player.MaxHP
	s.buildAgents()
	s.touch()
	s.publishSnapshot()
	s.logger.Info("session created",
		zap.String("profile", s.profile.Name),
		zap.Int("width", s.grid.W),
		zap.Int("height", s.grid.H),
		zap.Int("chasers", len(s.chasers)))
	return s
}

// Subscribe registers fn for every event the session emits. Handlers run on
// the tick goroutine and must not block.
func (s *Session) Subscribe(fn event.Handler) (unsubscribe func()) {
	return s.bus.Subscribe(fn)
}

// Submit queues cmd for the next tick without blocking.
func (s *Session) Submit(cmd Command) error {
	select {
	case <-s.stopCh:
		return ErrSessionStopped
	default:
	}
	select {
	case s.cmds <- cmd:
		s.touch()
		return nil
	default:
		s.logger.Warn("command queue full, dropping command", zap.String("command", fmt.Sprintf("%T", cmd)))
		return ErrQueueFull
	}
}

// Run drives Tick from a ticker until ctx is cancelled or Stop is called.
func (s *Session) Run(ctx context.Context) {
	ticker := time.NewTicker(s.opts.TickInterval)
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case now := <-ticker.C:
			s.Tick(now.Sub(last).Seconds())
			last = now
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		}
	}
}

// Stop ends Run. Further Submit calls fail.
func (s *Session) Stop() {
	s.stopped.Do(func() {
		close(s.stopCh)
		s.logger.Info("session stopped")
	})
}

// Done is closed once the session is stopped.
func (s *Session) Done() <-chan struct{} { return s.stopCh }

// LastActive is the time of the last accepted command.
func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.active.Load())
}

func (s *Session) touch() { s.active.Store(time.Now().UnixNano()) }

// Tick applies queued commands, then advances every agent by the capped dt:
// chasers in index order, then the runner. All events of the tick are
// delivered before Tick returns.
func (s *Session) Tick(dt float64) {
	s.drain()
	if step, ok := s.clock.Advance(dt); ok {
		for _, c := range s.controllers() {
			// A defeat pauses the clock mid-tick; nobody moves after it.
			if s.clock.Paused() {
				break
			}
			s.stepAgent(c, step)
		}
	}
	s.publishSnapshot()
}

func (s *Session) drain() {
	for {
		select {
		case cmd := <-s.cmds:
			cmd.apply(s)
			s.flush()
		default:
			return
		}
	}
}

func (s *Session) stepAgent(c ai.Controller, dt float64) {
	if s.player.Known {
		c.SetTarget(s.player.Pos)
	}
	moved := c.Update(dt)
	s.flush()
	if moved {
		pos := c.Position()
		s.emit(event.PositionUpdate{Agent: c.ID(), X: pos[0], Y: pos[1]})
	}
}

// agentEvents buffers what controllers raise during their update so the
// session can deliver it, in order, once the update has finished.
type agentEvents struct {
	pending []event.Event
}

func (q *agentEvents) Publish(e event.Event) {
	q.pending = append(q.pending, e)
}

func (s *Session) flush() {
	for len(s.queue.pending) > 0 {
		batch := s.queue.pending
		s.queue.pending = nil
		for _, e := range batch {
			s.emit(e)
		}
	}
}

// emit delivers e to subscribers and then applies its consequences.
func (s *Session) emit(e event.Event) {
	s.bus.Publish(e)
	if d, ok := e.(event.Damage); ok {
		s.damagePlayer(d.Amount)
	}
}

func (s *Session) damagePlayer(amount int) {
	if s.player.Defeated || amount <= 0 {
		return
	}
	s.player.HP = max(0, s.player.HP-amount)
	s.emit(event.PlayerHP{HP: s.player.HP, MaxHP: s.player.MaxHP})
	if s.player.HP == 0 {
		s.player.Defeated = true
		s.logger.Info("player defeated", zap.Float64("elapsed", s.clock.Elapsed()))
		s.emit(event.PlayerDefeated{})
		s.pause()
	}
}

func (s *Session) pause() {
	if s.clock.Pause() {
		s.emit(event.Paused{})
	}
}

func (s *Session) resume() {
	if s.player.Defeated {
		return
	}
	if s.clock.Resume() {
		s.emit(event.Resumed{})
	}
}

func (s *Session) regenerate() {
	s.grid = s.gen.Generate(s.opts.Width, s.opts.Height, s.profile.Maze)
	s.world = ai.NewWorld(s.grid, s.opts.Tile, s.opts.ColliderRadius)
}

// spawn samples a spawn point, keeping clear of the player when avoidPlayer is set.
func (s *Session) spawn(avoidPlayer bool) vec2.T {
	opts := maze.SpawnOptions{Clearance: s.opts.SpawnClearance, Tile: s.opts.Tile}
	if avoidPlayer && s.opts.MinSpawnDistance > 0 {
		player := s.player.Pos
		opts.Reject = func(p maze.Point) bool {
			c := p.Center(s.opts.Tile)
			d := vec2.Sub(&c, &player)
			return d.Length() < s.opts.MinSpawnDistance
		}
	}
	return maze.FindSpawn(s.grid, s.rng, opts)
}

func (s *Session) buildAgents() {
	chaserSpeed := s.profile.ChaserSpeed * s.opts.Tile
	s.chasers = make([]*ai.Chaser, s.profile.ChaserCount)
	for i := range s.chasers {
		s.chasers[i] = ai.NewChaser(ChaserID(i), s.world, s.spawn(true), chaserSpeed, s.opts.Chaser, &s.queue)
	}
	s.runner = ai.NewRunner(RunnerID, s.world, s.spawn(true), s.profile.RunnerSpeed*s.opts.Tile, s.opts.Runner, &s.queue)
}

func (s *Session) repositionAll() {
	placed := make(map[string][2]float64, len(s.chasers)+1)
	for _, c := range s.controllers() {
		pos := s.spawn(true)
		c.Reset(pos)
		placed[c.ID()] = [2]float64{pos[0], pos[1]}
	}
	s.emit(event.Reposition{Agents: placed})
}

func (s *Session) resetProfile(mode difficulty.Mode, regenerate bool) {
	s.profile = difficulty.Lookup(mode)
	if regenerate {
		s.regenerate()
		s.player.Pos = s.spawn(false)
		s.player.Known = false
	}
	s.player.MaxHP = s.profile.PlayerMaxHP
	s.player.HP = s.player.MaxHP
	wasDefeated := s.player.Defeated
	s.player.Defeated = false

	s.buildAgents()
	s.logger.Info("profile changed", zap.String("profile", s.profile.Name), zap.Bool("regenerated", regenerate))
	s.emit(event.ProfileChanged{Mode: int(s.profile.Mode), Name: s.profile.Name, Regenerated: regenerate})
	s.emit(event.PlayerHP{HP: s.player.HP, MaxHP: s.player.MaxHP, Reset: true})
	placed := make(map[string][2]float64, len(s.chasers)+1)
	for _, c := range s.controllers() {
		pos := c.Position()
		placed[c.ID()] = [2]float64{pos[0], pos[1]}
	}
	s.emit(event.Reposition{Agents: placed})
	if wasDefeated {
		s.resume()
	}
}

func (s *Session) applyEffect(idx int, effect ai.Effect) {
	if !effect.Valid() {
		return
	}
	for i, c := range s.chasers {
		if idx >= 0 && i != idx {
			continue
		}
		d := c.Apply(effect)
		s.emit(event.EffectApplied{Agent: c.ID(), Effect: string(effect), Duration: d})
	}
}

func (s *Session) controllers() []ai.Controller {
	out := make([]ai.Controller, 0, len(s.chasers)+1)
	for _, c := range s.chasers {
		out = append(out, c)
	}
	return append(out, s.runner)
}
