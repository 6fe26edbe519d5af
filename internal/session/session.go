// Package session carries the active principal of one client explicitly,
// instead of a process-wide "current user".
package session

import (
	"context"
	"sync"

	"myshop/internal/models"
)

type Session struct {
	mu        sync.RWMutex
	principal *models.Principal
	tokenID   string
}

func New() *Session {
	return &Session{}
}

// ForPrincipal returns a session already signed in as p.
func ForPrincipal(p models.Principal, tokenID string) *Session {
	return &Session{principal: &p, tokenID: tokenID}
}

func (s *Session) Principal() (models.Principal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.principal == nil {
		return models.Principal{}, false
	}
	return *s.principal, true
}

func (s *Session) Authenticated() bool {
	_, ok := s.Principal()
	return ok
}

func (s *Session) SetPrincipal(p models.Principal) {
	s.mu.Lock()
	s.principal = &p
	s.mu.Unlock()
}

// TokenID is the id of the bearer token the session was restored from, if any.
func (s *Session) TokenID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokenID
}

func (s *Session) Clear() {
	s.mu.Lock()
	s.principal = nil
	s.tokenID = ""
	s.mu.Unlock()
}

type ctxKey struct{}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session stored by WithSession, or a fresh
// signed-out session.
func FromContext(ctx context.Context) *Session {
	if s, ok := ctx.Value(ctxKey{}).(*Session); ok && s != nil {
		return s
	}
	return New()
}
