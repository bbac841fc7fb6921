// Package memory holds state that deliberately lives only for the process
// lifetime.
package memory

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/dom/doctree/internal/domain"
	"github.com/dom/doctree/internal/metrics"
)

// tokenBytes gives 256 bits of entropy per session token.
const tokenBytes = 32

// SessionRepository is the in-memory session table.
type SessionRepository struct {
	mu       sync.Mutex
	sessions map[string]domain.UserSession
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionRepository returns an empty session table whose sessions live
// for ttl.
func NewSessionRepository(ttl time.Duration) *SessionRepository {
	return NewSessionRepositoryWithClock(ttl, time.Now)
}

func NewSessionRepositoryWithClock(ttl time.Duration, now func() time.Time) *SessionRepository {
	return &SessionRepository{
		sessions: make(map[string]domain.UserSession),
		ttl:      ttl,
		now:      now,
	}
}

func (r *SessionRepository) Create(ctx context.Context, userID domain.ID) (domain.UserSession, error) {
	if err := ctx.Err(); err != nil {
		return domain.UserSession{}, err
	}
	token, err := newToken()
	if err != nil {
		return domain.UserSession{}, fmt.Errorf("generate session token: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	session := domain.UserSession{
		Token:     token,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(r.ttl),
	}
	r.sessions[token] = session
	metrics.SetSessionsActive(len(r.sessions))
	return session, nil
}

// Resolve returns the live session for token. Unknown and expired tokens are
// both ErrUnauthorized; an expired entry is evicted on the way out.
func (r *SessionRepository) Resolve(ctx context.Context, token string) (domain.UserSession, error) {
	if err := ctx.Err(); err != nil {
		return domain.UserSession{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[token]
	if !ok {
		return domain.UserSession{}, fmt.Errorf("session: %w", domain.ErrUnauthorized)
	}
	if session.Expired(r.now()) {
		delete(r.sessions, token)
		metrics.SetSessionsActive(len(r.sessions))
		return domain.UserSession{}, fmt.Errorf("session expired: %w", domain.ErrUnauthorized)
	}
	return session, nil
}

func (r *SessionRepository) Revoke(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, token)
	metrics.SetSessionsActive(len(r.sessions))
	return nil
}

func (r *SessionRepository) RevokeUser(ctx context.Context, userID domain.ID) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for token, s := range r.sessions {
		if s.UserID == userID {
			delete(r.sessions, token)
			removed++
		}
	}
	metrics.SetSessionsActive(len(r.sessions))
	return removed
}

// Sweep drops every expired session and reports how many went.
func (r *SessionRepository) Sweep(ctx context.Context) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for token, s := range r.sessions {
		if s.Expired(now) {
			delete(r.sessions, token)
			removed++
		}
	}
	metrics.SetSessionsActive(len(r.sessions))
	return removed
}

func (r *SessionRepository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
