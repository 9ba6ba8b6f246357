package chathub

import (
	"context"
	"errors"
	"sync"

	"globalchat/backend/internal/config"
	"globalchat/backend/internal/models"
)

// State is the lifecycle stage of a Session.
type State int

const (
	StateConnecting State = iota
	StateRejected
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateRejected:
		return "rejected"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session errors.
var (
	ErrAnonymous         = errors.New("anonymous connections are not admitted")
	ErrSessionClosed     = errors.New("session is not open")
	ErrInvalidTransition = errors.New("session already admitted or rejected")
)

// Session binds one connection to the identity resolved at handshake time.
// Routing and teardown are serialized by mu, so once Close returns no command
// of this session is still in flight.
type Session struct {
	mu    sync.Mutex
	state State

	client   Client
	identity models.Identity
	language string

	registry *Registry
	router   *Router
}

// NewSession returns a session in StateConnecting. Call Admit to open it.
func NewSession(client Client, identity models.Identity, language string, registry *Registry, router *Router) *Session {
	return &Session{
		state:    StateConnecting,
		client:   client,
		identity: identity,
		language: language,
		registry: registry,
		router:   router,
	}
}

func (s *Session) Client() Client            { return s.client }
func (s *Session) Identity() models.Identity { return s.identity }
func (s *Session) Language() string          { return s.language }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Admit opens the session and subscribes it to the global group.
// Anonymous identities are rejected and never join any group.
func (s *Session) Admit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateConnecting {
		return ErrInvalidTransition
	}
	if s.identity.IsAnonymous() {
		s.state = StateRejected
		return ErrAnonymous
	}

	s.registry.Join(config.GlobalGroup, s.client)
	s.state = StateOpen
	return nil
}

// Handle routes one inbound payload. It returns ErrSessionClosed when the
// session is not open.
func (s *Session) Handle(ctx context.Context, raw []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateOpen {
		return ErrSessionClosed
	}
	s.router.Route(ctx, s, raw)
	return nil
}

// Close purges every membership of an open session. It reports whether this
// call performed the teardown; repeated calls are no-ops.
func (s *Session) Close() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateOpen:
		s.registry.Purge(s.client)
		s.state = StateClosed
		return true
	case StateConnecting:
		s.state = StateClosed
		return true
	default:
		return false
	}
}
