// Package store persists sessions and their message transcripts.
//
// The store is the sole owner of Session and Message records. History is
// append-only: sessions are closed, never deleted, and messages are
// immutable once written.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/haasonsaas/switchboard/pkg/models"
)

var (
	// ErrSessionNotFound is returned for operations on an unknown session id.
	ErrSessionNotFound = errors.New("store: session not found")

	// ErrNoActiveSession is returned when a user has no active session.
	ErrNoActiveSession = errors.New("store: no active session")

	// ErrActiveSessionExists is returned when creating a session would
	// violate the one-active-session-per-user invariant.
	ErrActiveSessionExists = errors.New("store: active session already exists for user")
)

// Match pairs a stored message with its owning session. Produced by
// MatchActiveMessages for reply correlation.
type Match struct {
	Session *models.Session
	Message *models.Message
}

// Store is the interface for session persistence.
//
// All mutating operations are atomic per session: a close racing an append
// serializes inside the store, so the worst outcome is a message appended
// to a session closed moments later. That race is benign; history is
// append-only either way.
type Store interface {
	// FindActiveByUser returns the most-recently-active session with
	// status Active for the user, or ErrNoActiveSession.
	FindActiveByUser(ctx context.Context, userID int64) (*models.Session, error)

	// Get returns the session with the given id, or ErrSessionNotFound.
	Get(ctx context.Context, id int64) (*models.Session, error)

	// Create opens a new Active session for the user. It fails with
	// ErrActiveSessionExists if the user already has one; the store
	// enforces the invariant even if the caller checked first.
	Create(ctx context.Context, userID, operatorID int64) (*models.Session, error)

	// AppendMessage records a message and bumps the session's
	// LastActiveAt. Both happen atomically from the caller's perspective;
	// the append is durable before the bump is considered committed.
	// Fails with ErrSessionNotFound for an unknown session.
	AppendMessage(ctx context.Context, sessionID, senderID int64, content string) (*models.Message, error)

	// Close marks the session Closed. Idempotent: closing an
	// already-closed session is a no-op. Fails with ErrSessionNotFound
	// for an unknown session.
	Close(ctx context.Context, sessionID int64) error

	// FindStaleActive returns all Active sessions whose LastActiveAt
	// precedes now minus olderThan.
	FindStaleActive(ctx context.Context, olderThan time.Duration) ([]*models.Session, error)

	// MatchActiveMessages returns messages of Active sessions whose
	// content contains substr, most recent SentAt first, ties broken by
	// most-recently-created session.
	MatchActiveMessages(ctx context.Context, substr string) ([]Match, error)

	// History returns a session's messages ordered by SentAt ascending.
	// limit <= 0 returns everything.
	History(ctx context.Context, sessionID int64, limit int) ([]*models.Message, error)
}
