package scheduler

import (
	"time"

	"go.uber.org/zap"

	"github.com/kasuganosora/mazechase/game/world"
)

// Task names registered by RegisterSessionJobs.
const (
	TaskReapIdle     = "reap_idle_sessions"
	TaskSessionStats = "session_stats"
)

// RegisterSessionJobs installs the session housekeeping tasks: idle sessions
// are reaped every reapEvery, and the live session count is logged every
// statsEvery. A non-positive idleTimeout disables reaping.
func RegisterSessionJobs(s *Scheduler, wm *world.Manager, idleTimeout, reapEvery, statsEvery time.Duration) {
	if idleTimeout > 0 {
		s.AddTicker(TaskReapIdle, reapEvery, ReapIdle(wm, idleTimeout, s.logger))
	}
	if statsEvery > 0 {
		s.AddTicker(TaskSessionStats, statsEvery, func() {
			s.logger.Info("sessions", zap.Int("active", wm.Count()))
		})
	}
}

// ReapIdle returns a task that destroys sessions idle for longer than maxIdle.
func ReapIdle(wm *world.Manager, maxIdle time.Duration, logger *zap.Logger) TaskFn {
	return func() {
		if n := wm.ReapIdle(maxIdle); n > 0 {
			logger.Info("reaped idle sessions", zap.Int("count", n), zap.Int("active", wm.Count()))
		}
	}
}
