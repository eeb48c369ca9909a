package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/haasonsaas/switchboard/pkg/models"
)

// MemoryStore provides an in-memory Store implementation for testing and
// local runs. It mirrors the SQLite store's semantics, including the
// one-active-session-per-user invariant.
type MemoryStore struct {
	mu            sync.RWMutex
	sessions      map[int64]*models.Session
	messages      map[int64][]*models.Message
	nextSessionID int64
	nextMessageID int64

	nowFunc func() time.Time // For testing
}

// NewMemoryStore creates a new in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: map[int64]*models.Session{},
		messages: map[int64][]*models.Message{},
		nowFunc:  time.Now,
	}
}

// SetNowFunc sets a custom time function for testing.
func (m *MemoryStore) SetNowFunc(fn func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nowFunc = fn
}

func (m *MemoryStore) FindActiveByUser(ctx context.Context, userID int64) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var found *models.Session
	for _, s := range m.sessions {
		if s.UserID != userID || s.Status != models.SessionActive {
			continue
		}
		if found == nil || s.LastActiveAt.After(found.LastActiveAt) {
			found = s
		}
	}
	if found == nil {
		return nil, ErrNoActiveSession
	}
	return cloneSession(found), nil
}

func (m *MemoryStore) Get(ctx context.Context, id int64) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return cloneSession(s), nil
}

func (m *MemoryStore) Create(ctx context.Context, userID, operatorID int64) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.sessions {
		if s.UserID == userID && s.Status == models.SessionActive {
			return nil, ErrActiveSessionExists
		}
	}

	now := m.nowFunc()
	m.nextSessionID++
	s := &models.Session{
		ID:           m.nextSessionID,
		UserID:       userID,
		OperatorID:   operatorID,
		Status:       models.SessionActive,
		CreatedAt:    now,
		LastActiveAt: now,
	}
	m.sessions[s.ID] = s
	return cloneSession(s), nil
}

func (m *MemoryStore) AppendMessage(ctx context.Context, sessionID, senderID int64, content string) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	now := m.nowFunc()
	m.nextMessageID++
	msg := &models.Message{
		ID:        m.nextMessageID,
		SessionID: sessionID,
		SenderID:  senderID,
		Content:   content,
		SentAt:    now,
	}
	m.messages[sessionID] = append(m.messages[sessionID], msg)
	s.LastActiveAt = now
	return cloneMessage(msg), nil
}

func (m *MemoryStore) Close(ctx context.Context, sessionID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	s.Status = models.SessionClosed
	return nil
}

func (m *MemoryStore) FindStaleActive(ctx context.Context, olderThan time.Duration) ([]*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cutoff := m.nowFunc().Add(-olderThan)
	var stale []*models.Session
	for _, s := range m.sessions {
		if s.Status == models.SessionActive && s.LastActiveAt.Before(cutoff) {
			stale = append(stale, cloneSession(s))
		}
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i].ID < stale[j].ID })
	return stale, nil
}

func (m *MemoryStore) MatchActiveMessages(ctx context.Context, substr string) ([]Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matches []Match
	for sessionID, msgs := range m.messages {
		s, ok := m.sessions[sessionID]
		if !ok || s.Status != models.SessionActive {
			continue
		}
		for _, msg := range msgs {
			if strings.Contains(msg.Content, substr) {
				matches = append(matches, Match{
					Session: cloneSession(s),
					Message: cloneMessage(msg),
				})
			}
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].Message.SentAt.Equal(matches[j].Message.SentAt) {
			return matches[i].Message.SentAt.After(matches[j].Message.SentAt)
		}
		if !matches[i].Session.CreatedAt.Equal(matches[j].Session.CreatedAt) {
			return matches[i].Session.CreatedAt.After(matches[j].Session.CreatedAt)
		}
		return matches[i].Session.ID > matches[j].Session.ID
	})
	return matches, nil
}

func (m *MemoryStore) History(ctx context.Context, sessionID int64, limit int) ([]*models.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.sessions[sessionID]; !ok {
		return nil, ErrSessionNotFound
	}

	msgs := m.messages[sessionID]
	out := make([]*models.Message, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, cloneMessage(msg))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SentAt.Before(out[j].SentAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func cloneSession(s *models.Session) *models.Session {
	clone := *s
	return &clone
}

func cloneMessage(m *models.Message) *models.Message {
	clone := *m
	return &clone
}
