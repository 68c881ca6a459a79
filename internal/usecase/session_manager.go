package usecase

import (
	"context"
	"sync"
	"time"

	"cartsession-backend/internal/domain"
	"cartsession-backend/pkg/cache"
)

// SessionManager hands out the CartSession for a session ID, creating and
// bootstrapping one on first sight. Sessions live in the expiring cache so
// abandoned carts stop holding memory; their durable state survives in the
// KV store and is rebuilt on the next request.
type SessionManager struct {
	mu       sync.Mutex
	sessions cache.CacheService
	ttl      time.Duration
	deps     CartSessionDeps
}

func NewSessionManager(sessions cache.CacheService, ttl time.Duration, deps CartSessionDeps) *SessionManager {
	return &SessionManager{
		sessions: sessions,
		ttl:      ttl,
		deps:     deps,
	}
}

// GetOrCreate returns the live session, bootstrapping from durable state
// when none is cached. The lock covers lookup-and-create so two parallel
// requests for a new session cannot each build one.
func (m *SessionManager) GetOrCreate(ctx context.Context, sessionID string, user *domain.User) *CartSession {
	m.mu.Lock()
	defer m.mu.Unlock()

	if v, ok := m.sessions.Get(sessionID); ok {
		s := v.(*CartSession)
		m.sessions.Set(sessionID, s, m.ttl) // sliding expiry
		return s
	}

	s := NewCartSession(ctx, sessionID, user, m.deps)
	m.sessions.Set(sessionID, s, m.ttl)
	return s
}

// Drop forgets the cached session; durable state is untouched.
func (m *SessionManager) Drop(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions.Delete(sessionID)
}
