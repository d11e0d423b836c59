// Package session persists explorer state between runs.
//
// A session records where a user was in the interactive explorer: the
// snapshot, the current path, and the navigation history that produced
// it. The file-backed store lets `vormap explore` resume at the exact
// spot the previous run ended.
//
// # Usage
//
// Create a store and save state on exit:
//
//	store, err := session.NewCLIStore()
//	if err != nil {
//	    return err
//	}
//	sess := session.New("2026-08-30", "/var/data/projects", history, session.DefaultTTL)
//	store.SaveSession(ctx, sess)
//
// Resume on the next run:
//
//	sess, err := store.GetSession(ctx)
//	if sess == nil || err != nil {
//	    // Nothing to resume, start at the snapshot root.
//	}
package session

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for session operations.
var (
	// ErrNotFound is returned when a session does not exist.
	ErrNotFound = errors.New("not found")

	// ErrExpired is returned when a session has exceeded its TTL.
	ErrExpired = errors.New("expired")
)

// Session stores one explorer run's resumable state.
type Session struct {
	ID         string    `json:"id"`
	SnapshotID string    `json:"snapshot_id"`
	Path       string    `json:"path"`
	History    []string  `json:"history,omitempty"`
	Theme      string    `json:"theme,omitempty"`
	ExpiresAt  time.Time `json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Store is the interface for session storage backends.
type Store interface {
	// Get retrieves a session by ID.
	// Returns nil, nil if the session doesn't exist.
	Get(ctx context.Context, sessionID string) (*Session, error)

	// Set stores a session.
	Set(ctx context.Context, session *Session) error

	// Delete removes a session.
	Delete(ctx context.Context, sessionID string) error

	// Cleanup removes expired sessions.
	Cleanup(ctx context.Context) error
}

// DefaultTTL is the default session duration. Snapshots rotate daily, so
// state older than a week is rarely worth resuming.
const DefaultTTL = 7 * 24 * time.Hour

// New creates a session capturing the given explorer position. The
// history slice is copied so later navigation does not mutate the saved
// state.
func New(snapshotID, path string, history []string, ttl time.Duration) *Session {
	now := time.Now()
	return &Session{
		ID:         snapshotID,
		SnapshotID: snapshotID,
		Path:       path,
		History:    append([]string(nil), history...),
		ExpiresAt:  now.Add(ttl),
		CreatedAt:  now,
	}
}
