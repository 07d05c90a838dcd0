package world

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kasuganosora/mazechase/game/difficulty"
	"github.com/kasuganosora/mazechase/pubsub"
)

var (
	ErrSessionNotFound = errors.New("world: session not found")
	ErrTooManySessions = errors.New("world: too many sessions")
)

// Manager owns the running sessions of one server process.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	base        Options
	maxSessions int
	eventBuf    int
	ps          pubsub.PubSub
	seeds       *rand.Rand
	ctx         context.Context
	cancel      context.CancelFunc
	logger      *zap.Logger
}

// NewManager creates a Manager. Every session starts from base; maxSessions
// <= 0 means unlimited. ps may be nil, in which case events stay in-process.
func NewManager(base Options, maxSessions int, ps pubsub.PubSub, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		sessions:    make(map[string]*Session),
		base:        base,
		maxSessions: maxSessions,
		eventBuf:    base.CommandBuffer,
		ps:          ps,
		seeds:       rand.New(rand.NewSource(time.Now().UnixNano())),
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
	}
}

// Create starts a new session. Zero width or height selects the base size.
func (m *Manager) Create(mode difficulty.Mode, width, height int) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
		return nil, ErrTooManySessions
	}

	opts := m.base
	opts.ID = uuid.New().String()
	opts.Mode = mode
	if width > 0 && height > 0 {
		opts.Width, opts.Height = width, height
	}
	// Each session gets its own source; *rand.Rand is not goroutine-safe.
	opts.Rand = rand.New(rand.NewSource(m.seeds.Int63()))
	opts.Logger = m.logger

	s := NewSession(opts)
	m.sessions[s.ID] = s
	if m.ps != nil {
		s.Forward(m.ctx, m.ps, m.eventBuf)
	}
	go s.Run(m.ctx)
	m.logger.Info("session started", zap.String("session", s.ID), zap.Int("active", len(m.sessions)))
	return s, nil
}

// Get returns the session with the given id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Destroy stops and removes a session.
func (m *Manager) Destroy(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	s.Stop()
	m.logger.Info("session destroyed", zap.String("session", id))
	return nil
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// IDs lists the live session ids.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	return ids
}

// ReapIdle destroys sessions with no accepted command for longer than
// maxIdle and returns how many were removed.
func (m *Manager) ReapIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	m.mu.Lock()
	var idle []*Session
	for id, s := range m.sessions {
		if s.LastActive().Before(cutoff) {
			idle = append(idle, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()
	for _, s := range idle {
		s.Stop()
		m.logger.Info("idle session reaped", zap.String("session", s.ID))
	}
	return len(idle)
}

// StopAll stops every session (used at server shutdown).
func (m *Manager) StopAll() {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range all {
		s.Stop()
	}
	m.cancel()
}
