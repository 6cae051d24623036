package httpapi

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	sessionx "github.com/tanpawarit/slide-copilot/agent/session"
)

var ErrSessionNotFound = errors.New("session not found")

// Factory builds a session for a freshly minted id.
type Factory func(ctx context.Context, id string) (*sessionx.Session, error)

// Manager owns the live sessions served over HTTP. Each session keeps its own
// document, registry and context; nothing is shared between them.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*sessionx.Session
	factory  Factory
}

func NewManager(factory Factory) *Manager {
	return &Manager{
		sessions: make(map[string]*sessionx.Session),
		factory:  factory,
	}
}

func (m *Manager) Create(ctx context.Context) (*sessionx.Session, error) {
	id := uuid.NewString()
	s, err := m.factory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	return s, nil
}

func (m *Manager) Get(id string) (*sessionx.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

func (m *Manager) Close(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s.Close(ctx)
}

// CloseAll closes every session, collecting failures.
func (m *Manager) CloseAll(ctx context.Context) error {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*sessionx.Session)
	m.mu.Unlock()

	var errs []error
	for _, s := range sessions {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
