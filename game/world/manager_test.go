package world

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kasuganosora/mazechase/game/difficulty"
	"github.com/kasuganosora/mazechase/game/event"
	"github.com/kasuganosora/mazechase/pubsub"
)

func newTestManager(t *testing.T, limit int, ps pubsub.PubSub) *Manager {
	t.Helper()
	base := DefaultOptions()
	base.TickInterval = 5 * time.Millisecond
	m := NewManager(base, limit, ps, zap.NewNop())
	t.Cleanup(m.StopAll)
	return m
}

func TestManager_CreateGetDestroy(t *testing.T) {
	m := newTestManager(t, 0, nil)

	s, err := m.Create(difficulty.Hard, 21, 15)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Count())
	assert.Equal(t, []string{s.ID}, m.IDs())

	got, err := m.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.Equal(t, 21, got.Snapshot().Width)
	assert.Equal(t, "Hard", got.Snapshot().Profile.Name)

	require.NoError(t, m.Destroy(s.ID))
	assert.Zero(t, m.Count())
	_, err = m.Get(s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, m.Destroy(s.ID), ErrSessionNotFound)
	assert.ErrorIs(t, s.Submit(Pause{}), ErrSessionStopped)
}

func TestManager_DefaultSize(t *testing.T) {
	m := newTestManager(t, 0, nil)
	s, err := m.Create(difficulty.Normal, 0, 0)
	require.NoError(t, err)
	snap := s.Snapshot()
	assert.Equal(t, 51, snap.Width)
	assert.Equal(t, 25, snap.Height)
}

func TestManager_Limit(t *testing.T) {
	m := newTestManager(t, 2, nil)
	_, err := m.Create(difficulty.Normal, 0, 0)
	require.NoError(t, err)
	_, err = m.Create(difficulty.Normal, 0, 0)
	require.NoError(t, err)
	_, err = m.Create(difficulty.Normal, 0, 0)
	assert.ErrorIs(t, err, ErrTooManySessions)
}

func TestManager_SessionsRun(t *testing.T) {
	m := newTestManager(t, 0, nil)
	s, err := m.Create(difficulty.Normal, 0, 0)
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return s.Snapshot().Tick > 2 }, time.Second, 5*time.Millisecond)
}

func TestManager_ReapIdle(t *testing.T) {
	m := newTestManager(t, 0, nil)
	idle, err := m.Create(difficulty.Normal, 0, 0)
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	busy, err := m.Create(difficulty.Normal, 0, 0)
	require.NoError(t, err)

	assert.Equal(t, 1, m.ReapIdle(10*time.Millisecond))
	_, err = m.Get(idle.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = m.Get(busy.ID)
	assert.NoError(t, err)
}

func TestManager_StopAll(t *testing.T) {
	m := newTestManager(t, 0, nil)
	a, _ := m.Create(difficulty.Normal, 0, 0)
	b, _ := m.Create(difficulty.Hell, 0, 0)
	m.StopAll()
	assert.Zero(t, m.Count())
	for _, s := range []*Session{a, b} {
		select {
		case <-s.Done():
		case <-time.After(time.Second):
			t.Fatal("session not stopped")
		}
	}
}

func TestManager_ForwardsEvents(t *testing.T) {
	ps := pubsub.NewLocal(64)
	defer ps.Close()
	m := newTestManager(t, 0, ps)

	s, err := m.Create(difficulty.Normal, 0, 0)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	msgs, unsubscribe, err := ps.Subscribe(ctx, ChannelFor(s.ID))
	require.NoError(t, err)
	defer unsubscribe()

	require.NoError(t, s.Submit(Pause{}))

	select {
	case msg := <-msgs:
		require.NotNil(t, msg)
		assert.Equal(t, "session:"+s.ID, msg.Channel)
		var env event.Envelope
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &env))
		assert.Equal(t, "pause", env.Type)
	case <-ctx.Done():
		t.Fatal("no event forwarded")
	}
}
