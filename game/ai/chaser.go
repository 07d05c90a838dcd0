package ai

import (
	"github.com/ungerik/go3d/float64/vec2"

	"github.com/kasuganosora/mazechase/game/event"
)

// ChaserMode enumerates the pursuit states.
type ChaserMode int

const (
	ChaserIdle ChaserMode = iota
	ChaserAttack
)

func (m ChaserMode) String() string {
	if m == ChaserAttack {
		return "attack"
	}
	return "idle"
}

// Effect is a status effect an item can put on a chaser.
type Effect string

const (
	EffectSlow Effect = "slow"
	EffectRoot Effect = "root"
	EffectFear Effect = "fear"
)

// Valid reports whether e is a known effect.
func (e Effect) Valid() bool {
	return e == EffectSlow || e == EffectRoot || e == EffectFear
}

// ChaserConfig tunes the pursuit state machine. Times are in seconds,
// distances in world units.
type ChaserConfig struct {
	PathRecalc     float64 `mapstructure:"path_recalc"`
	AttackRange    float64 `mapstructure:"attack_range"`
	AttackFreeze   float64 `mapstructure:"attack_freeze"`
	AttackCooldown float64 `mapstructure:"attack_cooldown"`
	Arrival        float64 `mapstructure:"arrival"`
	Damage         int     `mapstructure:"damage"`
	SlowFactor     float64 `mapstructure:"slow_factor"`
	SlowDuration   float64 `mapstructure:"slow_duration"`
	RootDuration   float64 `mapstructure:"root_duration"`
	FearDuration   float64 `mapstructure:"fear_duration"`
}

// DefaultChaserConfig returns the stock tuning.
func DefaultChaserConfig() ChaserConfig {
	return ChaserConfig{
		PathRecalc:     0.3,
		AttackRange:    25,
		AttackFreeze:   0.4,
		AttackCooldown: 0.9,
		Arrival:        4,
		Damage:         1,
		SlowFactor:     0.4,
		SlowDuration:   3,
		RootDuration:   1.5,
		FearDuration:   0.8,
	}
}

// Chaser pursues its target along A* paths and hits it when in range.
type Chaser struct {
	Agent
	cfg   ChaserConfig
	speed float64
	pub   event.Publisher

	mode      ChaserMode
	freeze    float64
	cooldown  float64
	pathTimer float64

	slowLeft float64
	rootLeft float64
	fearLeft float64
}

// NewChaser places a chaser at pos. speed is in world units per second.
func NewChaser(id string, w *World, pos vec2.T, speed float64, cfg ChaserConfig, pub event.Publisher) *Chaser {
	return &Chaser{
		Agent: Agent{id: id, Pos: pos, world: w},
		cfg:   cfg,
		speed: speed,
		pub:   pub,
	}
}

// Mode returns the current pursuit state.
func (c *Chaser) Mode() ChaserMode { return c.mode }

func (c *Chaser) ModeName() string { return c.mode.String() }

// Frozen reports whether the attack wind-up is holding the chaser in place.
func (c *Chaser) Frozen() bool { return c.freeze > 0 }

// Update runs one tick: timers, transitions, damage, re-pathing, then movement.
func (c *Chaser) Update(dt float64) bool {
	c.pathTimer += dt
	if c.cooldown > 0 {
		c.cooldown = max(0, c.cooldown-dt)
	}
	c.slowLeft = max(0, c.slowLeft-dt)
	c.rootLeft = max(0, c.rootLeft-dt)
	c.fearLeft = max(0, c.fearLeft-dt)

	dist := c.targetDistance()
	switch {
	case c.mode == ChaserIdle && dist < c.cfg.AttackRange:
		c.setMode(ChaserAttack)
		c.freeze = c.cfg.AttackFreeze
	case c.mode == ChaserAttack && c.freeze <= 0 && dist >= c.cfg.AttackRange:
		c.setMode(ChaserIdle)
	}
	if c.freeze > 0 {
		c.freeze -= dt
	}

	if dist < c.cfg.AttackRange && c.cooldown <= 0 {
		c.pub.Publish(event.Damage{Source: c.id, Amount: c.cfg.Damage})
		c.cooldown = c.cfg.AttackCooldown
	}

	if c.target.Known && c.pathTimer >= c.cfg.PathRecalc {
		if path := FindPath(c.world.Grid, c.Cell(), c.world.CellOf(c.target.Pos), 0); len(path) > 0 {
			c.Path = path
		}
		c.pathTimer = 0
	}

	return c.move(dt)
}

func (c *Chaser) move(dt float64) bool {
	if c.rootLeft > 0 {
		return false
	}
	speed := c.speed
	if c.slowLeft > 0 {
		speed *= c.cfg.SlowFactor
	}
	if c.fearLeft > 0 && c.target.Known {
		away := vec2.Sub(&c.Pos, &c.target.Pos)
		l := away.Length()
		if l == 0 {
			return false
		}
		return c.moveBy(away.Scaled(speed/l), dt)
	}
	if c.freeze > 0 {
		return false
	}
	return c.steer(0, c.cfg.Arrival, speed, dt)
}

// Apply starts or refreshes a status effect. Unknown effects are ignored.
func (c *Chaser) Apply(e Effect) float64 {
	switch e {
	case EffectSlow:
		c.slowLeft = c.cfg.SlowDuration
		return c.slowLeft
	case EffectRoot:
		c.rootLeft = c.cfg.RootDuration
		return c.rootLeft
	case EffectFear:
		c.fearLeft = c.cfg.FearDuration
		return c.fearLeft
	}
	return 0
}

// Reset moves the chaser to pos, clears its path and timers, and returns it to idle.
func (c *Chaser) Reset(pos vec2.T) {
	c.Pos = pos
	c.Path = nil
	c.mode = ChaserIdle
	c.freeze = 0
	c.cooldown = 0
	c.pathTimer = 0
	c.slowLeft, c.rootLeft, c.fearLeft = 0, 0, 0
}

// SetSpeed changes the movement speed in world units per second.
func (c *Chaser) SetSpeed(speed float64) { c.speed = speed }

func (c *Chaser) setMode(m ChaserMode) {
	if m == c.mode {
		return
	}
	from := c.mode
	c.mode = m
	c.pub.Publish(event.ModeChanged{Agent: c.id, From: from.String(), To: m.String()})
}
