// Package models provides domain types for the Switchboard routing engine.
package models

import (
	"time"
)

// SessionStatus is the lifecycle state of a routed conversation.
type SessionStatus string

const (
	// SessionActive marks a session currently carrying traffic.
	SessionActive SessionStatus = "active"

	// SessionClosed marks a terminated session. Closed is terminal: a new
	// session must be created to resume contact.
	SessionClosed SessionStatus = "closed"
)

// Operator is a human support agent addressable by a stable relay identity.
// Operators are loaded once at startup and never mutated.
type Operator struct {
	// Name is the human-readable display name shown on the picker.
	Name string `json:"name"`

	// ID is the relay's addressing key for this operator.
	ID int64 `json:"id"`
}

// Session is one routed conversation between a user and an operator.
//
// Invariants:
//   - At most one Active session exists per UserID at any time.
//   - LastActiveAt >= CreatedAt; bumped on every message append.
//   - Active -> Closed is one-way. History is never deleted.
type Session struct {
	// ID is assigned by the store, monotonic and unique.
	ID int64 `json:"id"`

	// UserID is the relay identity of the end user.
	UserID int64 `json:"user_id"`

	// OperatorID is the relay identity of the assigned operator.
	OperatorID int64 `json:"operator_id"`

	Status SessionStatus `json:"status"`

	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
}

// Active reports whether the session is still carrying traffic.
func (s *Session) Active() bool {
	return s != nil && s.Status == SessionActive
}

// Message is one transcript entry, owned by its session and immutable once
// written. Message content doubles as the correlation substrate: operator
// replies are resolved by matching the replied-to text against stored
// content.
type Message struct {
	// ID is assigned by the store, monotonic within the store.
	ID int64 `json:"id"`

	SessionID int64 `json:"session_id"`

	// SenderID is the relay identity of whoever authored the message.
	SenderID int64 `json:"sender_id"`

	Content string `json:"content"`

	SentAt time.Time `json:"sent_at"`
}
