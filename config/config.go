package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/kasuganosora/mazechase/game/ai"
	"github.com/kasuganosora/mazechase/game/difficulty"
	"github.com/kasuganosora/mazechase/game/world"
	"github.com/kasuganosora/mazechase/pubsub"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Sim      SimConfig      `mapstructure:"sim"`
	AI       AIConfig       `mapstructure:"ai"`
	Cache    pubsub.Config  `mapstructure:"cache"`
	Security SecurityConfig `mapstructure:"security"`
}

type ServerConfig struct {
	Port  int  `mapstructure:"port"`
	Debug bool `mapstructure:"debug"`
}

type SimConfig struct {
	TickMs           int           `mapstructure:"tick_ms"`
	MaxStep          float64       `mapstructure:"max_step"`
	MapWidth         int           `mapstructure:"map_width"`
	MapHeight        int           `mapstructure:"map_height"`
	TileSize         float64       `mapstructure:"tile_size"`
	ColliderRatio    float64       `mapstructure:"collider_ratio"` // collider radius as a fraction of tile_size
	DefaultMode      string        `mapstructure:"default_mode"`   // normal | hard | hell
	SpawnClearance   int           `mapstructure:"spawn_clearance"`
	MinSpawnDistance float64       `mapstructure:"min_spawn_distance"`
	CommandBuffer    int           `mapstructure:"command_buffer"`
	MaxSessions      int           `mapstructure:"max_sessions"` // 0 = unlimited
	IdleTimeout      time.Duration `mapstructure:"idle_timeout"`
}

type AIConfig struct {
	Chaser ai.ChaserConfig `mapstructure:"chaser"`
	Runner ai.RunnerConfig `mapstructure:"runner"`
}

type SecurityConfig struct {
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
	// AllowedOrigins lists the WebSocket/SSE origins that are permitted.
	// An empty slice allows all origins (useful for local development only).
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads config from the given YAML file path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return decode(v)
}

// Default returns the built-in configuration without reading a file.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg, err := decode(v)
	if err != nil {
		// Defaults are static; a decode failure is a programming error.
		panic(err)
	}
	return cfg
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if _, ok := difficulty.ParseName(cfg.Sim.DefaultMode); !ok {
		return nil, fmt.Errorf("config: unknown sim.default_mode %q", cfg.Sim.DefaultMode)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.debug", false)

	v.SetDefault("sim.tick_ms", 16)
	v.SetDefault("sim.max_step", world.DefaultMaxStep)
	v.SetDefault("sim.map_width", 51)
	v.SetDefault("sim.map_height", 25)
	v.SetDefault("sim.tile_size", 32)
	v.SetDefault("sim.collider_ratio", 0.2)
	v.SetDefault("sim.default_mode", "normal")
	v.SetDefault("sim.spawn_clearance", 0)
	v.SetDefault("sim.min_spawn_distance", 160)
	v.SetDefault("sim.command_buffer", 256)
	v.SetDefault("sim.max_sessions", 64)
	v.SetDefault("sim.idle_timeout", "10m")

	c := ai.DefaultChaserConfig()
	v.SetDefault("ai.chaser.path_recalc", c.PathRecalc)
	v.SetDefault("ai.chaser.attack_range", c.AttackRange)
	v.SetDefault("ai.chaser.attack_freeze", c.AttackFreeze)
	v.SetDefault("ai.chaser.attack_cooldown", c.AttackCooldown)
	v.SetDefault("ai.chaser.arrival", c.Arrival)
	v.SetDefault("ai.chaser.damage", c.Damage)
	v.SetDefault("ai.chaser.slow_factor", c.SlowFactor)
	v.SetDefault("ai.chaser.slow_duration", c.SlowDuration)
	v.SetDefault("ai.chaser.root_duration", c.RootDuration)
	v.SetDefault("ai.chaser.fear_duration", c.FearDuration)

	r := ai.DefaultRunnerConfig()
	v.SetDefault("ai.runner.path_recalc", r.PathRecalc)
	v.SetDefault("ai.runner.safe_inner", r.SafeInner)
	v.SetDefault("ai.runner.safe_outer", r.SafeOuter)
	v.SetDefault("ai.runner.escape_keep", r.EscapeKeep)
	v.SetDefault("ai.runner.goal_lock", r.GoalLock)
	v.SetDefault("ai.runner.pixel_trigger", r.PixelTrigger)
	v.SetDefault("ai.runner.closing_fast", r.ClosingFast)
	v.SetDefault("ai.runner.turn_penalty", r.TurnPenalty)
	v.SetDefault("ai.runner.candidate_steps", r.CandidateSteps)
	v.SetDefault("ai.runner.far_cells", r.FarCells)
	v.SetDefault("ai.runner.arrival", r.Arrival)
	v.SetDefault("ai.runner.collide_radius", r.CollideRadius)
	v.SetDefault("ai.runner.capture_cooldown", r.CaptureCooldown)

	v.SetDefault("cache.local_pubsub_buf", 256)

	v.SetDefault("security.rate_limit_rps", 100)
	v.SetDefault("security.rate_limit_burst", 200)
}

// Mode returns the difficulty new sessions start in when none is requested.
func (c *Config) Mode() difficulty.Mode {
	m, _ := difficulty.ParseName(c.Sim.DefaultMode)
	return m
}

// SessionOptions builds the base options every session is created from.
func (c *Config) SessionOptions() world.Options {
	opts := world.DefaultOptions()
	opts.Width = c.Sim.MapWidth
	opts.Height = c.Sim.MapHeight
	opts.Tile = c.Sim.TileSize
	opts.ColliderRadius = c.Sim.TileSize * c.Sim.ColliderRatio
	opts.MaxStep = c.Sim.MaxStep
	opts.TickInterval = time.Duration(c.Sim.TickMs) * time.Millisecond
	opts.Mode = c.Mode()
	opts.Chaser = c.AI.Chaser
	opts.Runner = c.AI.Runner
	opts.SpawnClearance = c.Sim.SpawnClearance
	opts.MinSpawnDistance = c.Sim.MinSpawnDistance
	opts.CommandBuffer = c.Sim.CommandBuffer
	return opts
}
