package world

// DefaultMaxStep caps a single tick so a stalled host does not teleport agents.
const DefaultMaxStep = 0.033

// Clock turns wall-clock deltas into simulation steps.
// It is not safe for concurrent use; the session goroutine owns it.
type Clock struct {
	MaxStep float64

	paused  bool
	elapsed float64
	ticks   uint64
}

// NewClock returns a running clock. maxStep <= 0 selects DefaultMaxStep.
func NewClock(maxStep float64) *Clock {
	if maxStep <= 0 {
		maxStep = DefaultMaxStep
	}
	return &Clock{MaxStep: maxStep}
}

// Advance caps dt to MaxStep and returns the step to simulate.
// ok is false when paused or when dt is not positive; nothing advances then.
func (c *Clock) Advance(dt float64) (step float64, ok bool) {
	if c.paused || dt <= 0 {
		return 0, false
	}
	step = min(dt, c.MaxStep)
	c.elapsed += step
	c.ticks++
	return step, true
}

// Pause stops the clock. It reports whether the state changed.
func (c *Clock) Pause() bool {
	if c.paused {
		return false
	}
	c.paused = true
	return true
}

// Resume restarts the clock. It reports whether the state changed.
func (c *Clock) Resume() bool {
	if !c.paused {
		return false
	}
	c.paused = false
	return true
}

func (c *Clock) Paused() bool { return c.paused }

// Elapsed is the simulated time in seconds, excluding paused periods.
func (c *Clock) Elapsed() float64 { return c.elapsed }

// Ticks is the number of steps simulated so far.
func (c *Clock) Ticks() uint64 { return c.ticks }
