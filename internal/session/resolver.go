package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSessionNotFound is returned when a token resolves to nothing,
	// or to a session that is no longer open.
	ErrSessionNotFound = errors.New("session not found")
	// ErrClassNotFound is returned when no active class carries the code.
	ErrClassNotFound = errors.New("class not found")
	// ErrNoOpenSession is returned when the class exists but has no open
	// session right now.
	ErrNoOpenSession = errors.New("no open session for class")
)

// Store is the read surface the resolver needs from the session/class
// administration module.
type Store interface {
	// SessionByToken returns the session with the given public token,
	// or nil when none exists.
	SessionByToken(ctx context.Context, token string) (*Session, error)
	// ActiveClassIDByCode returns the id of the active class with the
	// given human code, or "" when none exists.
	ActiveClassIDByCode(ctx context.Context, code string) (string, error)
	// OpenSessionByClass returns an open session for the class, or nil.
	OpenSessionByClass(ctx context.Context, classID string) (*Session, error)
}

// Resolver locates the open session a check-in claim refers to. Pure
// reads, no side effects.
type Resolver struct {
	store Store
}

// NewResolver creates a resolver over the given store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// ResolveByToken looks a session up by its opaque public token, the
// QR-style path. A session that exists but is not open is reported the
// same as a missing one.
func (r *Resolver) ResolveByToken(ctx context.Context, token string) (*Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrSessionNotFound
	}
	s, err := r.store.SessionByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("session by token: %w", err)
	}
	if s == nil || s.Status != StatusOpen {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// ResolveByClassCode finds the open session of the active class with the
// given human-entered code.
func (r *Resolver) ResolveByClassCode(ctx context.Context, code string) (*Session, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrClassNotFound
	}
	classID, err := r.store.ActiveClassIDByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("class by code: %w", err)
	}
	if classID == "" {
		return nil, ErrClassNotFound
	}
	s, err := r.store.OpenSessionByClass(ctx, classID)
	if err != nil {
		return nil, fmt.Errorf("open session by class: %w", err)
	}
	if s == nil {
		return nil, ErrNoOpenSession
	}
	return s, nil
}
