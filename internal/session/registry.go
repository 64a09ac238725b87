// Package session provides the concurrent-safe registry of device authorization sessions
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// maxKeyAttempts bounds key regeneration on collision
const maxKeyAttempts = 5

var (
	// ErrUnknownSession indicates a lookup by an unrecognized session key
	ErrUnknownSession = errors.New("unknown session")

	// ErrEmptyToken indicates an attempt to store an empty access or refresh token
	ErrEmptyToken = errors.New("access and refresh tokens must both be set")

	// ErrSessionFailed indicates tokens were offered to a session that already failed
	ErrSessionFailed = errors.New("session authorization failed")
)

// Registry owns every session record. All access goes through its keyed
// accessors, which are safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewRegistry creates an empty session registry
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Create mints a new unguessable key and inserts a pending session seeded
// with the provider-issued values.
func (r *Registry) Create(seed Seed) (string, Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for attempt := 0; attempt < maxKeyAttempts; attempt++ {
		key, err := generateKey()
		if err != nil {
			return "", Session{}, fmt.Errorf("generating session key: %w", err)
		}
		if _, exists := r.sessions[key]; exists {
			continue
		}

		s := &Session{
			Key:          key,
			DeviceCode:   seed.DeviceCode,
			PollInterval: seed.PollInterval,
			ExpiresAt:    seed.ExpiresAt,
			CreatedAt:    r.now(),
			Status:       StatusPending,
		}
		r.sessions[key] = s
		return key, *s, nil
	}

	return "", Session{}, fmt.Errorf("failed to generate unique session key after %d attempts", maxKeyAttempts)
}

// Get returns a snapshot of the session stored under key
func (r *Registry) Get(key string) (Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[key]
	if !ok {
		return Session{}, ErrUnknownSession
	}
	return *s, nil
}

// SetTokens stores both tokens and marks the session ready in a single write.
// Repeating the call with identical values leaves the session unchanged.
func (r *Registry) SetTokens(key, accessToken, refreshToken string) error {
	if accessToken == "" || refreshToken == "" {
		return ErrEmptyToken
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[key]
	if !ok {
		return ErrUnknownSession
	}
	if s.Status == StatusFailed {
		return ErrSessionFailed
	}

	s.AccessToken = accessToken
	s.RefreshToken = refreshToken
	s.TokenReady = true
	s.Status = StatusAuthorized
	return nil
}

// MarkFailed moves a pending session to the terminal failed state.
// Authorized and already-failed sessions are left as they are.
func (r *Registry) MarkFailed(key, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[key]
	if !ok {
		return ErrUnknownSession
	}
	if s.Status != StatusPending {
		return nil
	}

	s.Status = StatusFailed
	s.FailureReason = reason
	return nil
}

// IsReady reports whether tokens have been issued for the session
func (r *Registry) IsReady(key string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[key]
	if !ok {
		return false, ErrUnknownSession
	}
	return s.TokenReady, nil
}

// Len returns the number of sessions held
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
