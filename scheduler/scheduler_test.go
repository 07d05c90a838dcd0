package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kasuganosora/mazechase/game/difficulty"
	"github.com/kasuganosora/mazechase/game/world"
)

func TestAddTicker_Fires(t *testing.T) {
	s := New(zap.NewNop())
	defer s.Stop()

	var count atomic.Int32
	s.AddTicker("tick", 20*time.Millisecond, func() { count.Add(1) })
	assert.Eventually(t, func() bool { return count.Load() >= 3 }, time.Second, 10*time.Millisecond)
}

func TestAddTicker_Replaces(t *testing.T) {
	s := New(zap.NewNop())
	defer s.Stop()

	var first, second atomic.Int32
	s.AddTicker("task", 10*time.Millisecond, func() { first.Add(1) })
	s.AddTicker("task", 10*time.Millisecond, func() { second.Add(1) })
	assert.Eventually(t, func() bool { return second.Load() >= 2 }, time.Second, 5*time.Millisecond)

	snap := first.Load()
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, snap, first.Load(), "replaced ticker must stop")
	assert.Equal(t, []string{"task"}, s.ListTickers())
}

func TestAddDelay(t *testing.T) {
	s := New(zap.NewNop())
	defer s.Stop()

	var count atomic.Int32
	s.AddDelay("d", 500*time.Millisecond, func() { count.Add(1) })
	s.AddDelay("d", 20*time.Millisecond, func() { count.Add(10) })
	s.AddDelay("gone", 20*time.Millisecond, func() { count.Add(100) })
	s.Remove("gone")

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(10), count.Load())
}

func TestRemoveAndStop(t *testing.T) {
	s := New(zap.NewNop())

	var a, b atomic.Int32
	s.AddTicker("a", 10*time.Millisecond, func() { a.Add(1) })
	s.AddTicker("b", 10*time.Millisecond, func() { b.Add(1) })
	s.Remove("a")
	s.Remove("nope")
	assert.Equal(t, []string{"b"}, s.ListTickers())

	assert.Eventually(t, func() bool { return b.Load() > 0 }, time.Second, 5*time.Millisecond)
	s.Stop()
	s.Stop()
	time.Sleep(30 * time.Millisecond)
	snapA, snapB := a.Load(), b.Load()
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, snapA, a.Load())
	assert.Equal(t, snapB, b.Load())
}

func TestTicker_PanicRecovery(t *testing.T) {
	s := New(zap.NewNop())
	defer s.Stop()

	var calls atomic.Int32
	s.AddTicker("panic", 10*time.Millisecond, func() {
		calls.Add(1)
		panic("oops")
	})
	assert.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
}

func TestRegisterSessionJobs_ReapsIdle(t *testing.T) {
	wm := world.NewManager(world.DefaultOptions(), 0, nil, zap.NewNop())
	defer wm.StopAll()
	_, err := wm.Create(difficulty.Normal, 0, 0)
	require.NoError(t, err)

	s := New(zap.NewNop())
	defer s.Stop()
	RegisterSessionJobs(s, wm, 10*time.Millisecond, 10*time.Millisecond, time.Hour)
	assert.Equal(t, []string{TaskReapIdle, TaskSessionStats}, s.ListTickers())
	assert.Eventually(t, func() bool { return wm.Count() == 0 }, time.Second, 5*time.Millisecond)
}

func TestRegisterSessionJobs_ReapDisabled(t *testing.T) {
	wm := world.NewManager(world.DefaultOptions(), 0, nil, zap.NewNop())
	defer wm.StopAll()
	s := New(zap.NewNop())
	defer s.Stop()
	RegisterSessionJobs(s, wm, 0, time.Minute, time.Minute)
	assert.Equal(t, []string{TaskSessionStats}, s.ListTickers())
}
