package pipeline

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Raikerian/go-voice-ingest/internal/config"
	"github.com/Raikerian/go-voice-ingest/internal/synthesis"
)

// Manager is the session table. Sessions are inserted on connect under a
// generated id and removed when they close, whatever the reason.
type Manager struct {
	cfg    config.PipelineConfig
	deps   Dependencies
	logger *zap.Logger

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	closing  bool
}

// Info is a read-only view of a session.
type Info struct {
	ID        uuid.UUID `json:"id"`
	State     State     `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}

// NewManager creates an empty session table.
func NewManager(cfg config.PipelineConfig, deps Dependencies) *Manager {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Manager{
		cfg:      cfg,
		deps:     deps,
		logger:   deps.Logger.Named("sessions"),
		sessions: make(map[uuid.UUID]*Session),
	}
}

// Open creates and starts a session. peer is closed when the session ends;
// sink receives synthesized replies and may be nil.
func (m *Manager) Open(peer io.Closer, sink synthesis.Sink) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closing {
		return nil, ErrSessionClosed
	}
	if m.cfg.MaxSessions > 0 && len(m.sessions) >= m.cfg.MaxSessions {
		return nil, ErrMaxSessionsReached
	}

	id := uuid.New()
	s, err := newSession(id, m.cfg, m.deps, peer, sink)
	if err != nil {
		return nil, err
	}
	s.onClosed = m.remove

	m.sessions[id] = s
	m.deps.Metrics.SessionOpened()
	s.start()

	m.logger.Info("Session opened",
		zap.String("session_id", id.String()),
		zap.Int("active_sessions", len(m.sessions)))

	return s, nil
}

func (m *Manager) remove(s *Session, reason string) {
	m.mu.Lock()
	delete(m.sessions, s.id)
	count := len(m.sessions)
	m.mu.Unlock()

	m.deps.Metrics.SessionClosed(reason)
	m.logger.Info("Session removed",
		zap.String("session_id", s.id.String()),
		zap.String("reason", reason),
		zap.Int("active_sessions", count))
}

// Get returns the session with id.
func (m *Manager) Get(id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Close tears down the session with id and waits for it to finish.
func (m *Manager) Close(id uuid.UUID) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	return s.Close()
}

// CloseAll stops accepting sessions and closes every open one, giving up
// when ctx is done.
func (m *Manager) CloseAll(ctx context.Context) error {
	m.mu.Lock()
	m.closing = true
	open := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		open = append(open, s)
	}
	m.mu.Unlock()

	for _, s := range open {
		s.setReason(ReasonShutdown)
		s.cancel()
	}
	for _, s := range open {
		select {
		case <-s.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Count returns the number of open sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// List returns a snapshot of the open sessions, oldest first.
func (m *Manager) List() []Info {
	m.mu.RLock()
	infos := make([]Info, 0, len(m.sessions))
	for _, s := range m.sessions {
		infos = append(infos, Info{ID: s.id, State: s.State(), CreatedAt: s.createdAt})
	}
	m.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].CreatedAt.Before(infos[j].CreatedAt) })
	return infos
}
