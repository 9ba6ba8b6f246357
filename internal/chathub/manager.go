package chathub

import (
	"context"
	"log/slog"
	"sync"

	"globalchat/backend/internal/models"
)

// ManagerService owns the admitted sessions of this instance.
type ManagerService struct {
	Registry *Registry
	Router   *Router

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	sessions map[string]*Session

	log *slog.Logger
}

// NewManagerService returns a manager with no sessions.
func NewManagerService(registry *Registry, router *Router, log *slog.Logger) *ManagerService {
	ctx, cancel := context.WithCancel(context.Background())
	return &ManagerService{
		Registry: registry,
		Router:   router,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*Session),
		log:      log,
	}
}

// Context is cancelled by Shutdown. Connection goroutines derive from it.
func (m *ManagerService) Context() context.Context {
	return m.ctx
}

// Connect admits client under identity. The returned session is rejected,
// together with ErrAnonymous, when identity is anonymous.
func (m *ManagerService) Connect(client Client, identity models.Identity, language string) (*Session, error) {
	s := NewSession(client, identity, language, m.Registry, m.Router)
	if err := s.Admit(); err != nil {
		m.log.Info("Connection rejected", "conn", client.ID(), "reason", err)
		return s, err
	}

	m.mu.Lock()
	m.sessions[client.ID()] = s
	count := len(m.sessions)
	m.mu.Unlock()

	m.log.Info("Client connected", "conn", client.ID(), "user", identity.Handle, "connections", count)
	return s, nil
}

// Disconnect tears down s. It is safe to call more than once.
func (m *ManagerService) Disconnect(s *Session) {
	if !s.Close() {
		return
	}

	m.mu.Lock()
	delete(m.sessions, s.client.ID())
	count := len(m.sessions)
	m.mu.Unlock()

	m.log.Info("Client disconnected", "conn", s.client.ID(), "user", s.identity.Handle, "connections", count)
}

func (m *ManagerService) ConnectionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown closes every session and its transport.
func (m *ManagerService) Shutdown() {
	m.cancel()

	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	clear(m.sessions)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
		s.client.Close()
	}
	m.log.Info("Closed all connections", "count", len(sessions))
}
