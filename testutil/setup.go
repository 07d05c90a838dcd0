package testutil

import (
	"math/rand"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/kasuganosora/mazechase/game/world"
	"github.com/kasuganosora/mazechase/pubsub"
)

// FastTick is the session tick interval used in tests.
const FastTick = 5 * time.Millisecond

// Logger returns a logger that writes through t.
func Logger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t, zaptest.Level(zap.WarnLevel))
}

// SetupTestPubSub creates an in-process PubSub (no Redis required), closed
// when the test ends.
func SetupTestPubSub(t *testing.T) pubsub.PubSub {
	t.Helper()
	ps := pubsub.NewLocal(64)
	t.Cleanup(func() { _ = ps.Close() })
	return ps
}

// SessionOptions returns default session options with a fast tick and a
// fixed seed.
func SessionOptions(seed int64) world.Options {
	opts := world.DefaultOptions()
	opts.TickInterval = FastTick
	opts.Rand = rand.New(rand.NewSource(seed))
	return opts
}

// SetupTestManager creates a Manager with fast-ticking sessions, stopped
// when the test ends. ps may be nil.
func SetupTestManager(t *testing.T, limit int, ps pubsub.PubSub) *world.Manager {
	t.Helper()
	wm := world.NewManager(SessionOptions(42), limit, ps, Logger(t))
	t.Cleanup(wm.StopAll)
	return wm
}
