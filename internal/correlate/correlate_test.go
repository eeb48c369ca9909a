package correlate

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/haasonsaas/switchboard/internal/store"
)

func TestResolveSingleMatch(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	sess, err := s.Create(ctx, 1000, 111)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	content := "[user 1000] @alice\n\nmy order never arrived"
	if _, err := s.AppendMessage(ctx, sess.ID, 1000, content); err != nil {
		t.Fatalf("AppendMessage() error = %v", err)
	}

	idx := New(s, DefaultPrefixLen)

	// The relay may truncate the echoed text; a prefix still resolves.
	resolved, err := idx.Resolve(ctx, content[:20])
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if resolved.ID != sess.ID {
		t.Fatalf("resolved session %d, want %d", resolved.ID, sess.ID)
	}
	if resolved.UserID != 1000 || resolved.OperatorID != 111 {
		t.Fatalf("resolved wrong identities: %+v", resolved)
	}
}

func TestResolveNoMatch(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	sess, err := s.Create(ctx, 1000, 111)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := s.AppendMessage(ctx, sess.ID, 1000, "hello there"); err != nil {
		t.Fatalf("AppendMessage() error = %v", err)
	}

	idx := New(s, DefaultPrefixLen)
	if _, err := idx.Resolve(ctx, "completely unrelated text"); !errors.Is(err, ErrNoMatch) {
		t.Fatalf("Resolve() error = %v, want ErrNoMatch", err)
	}
}

func TestResolveEmptyReply(t *testing.T) {
	idx := New(store.NewMemoryStore(), DefaultPrefixLen)
	if _, err := idx.Resolve(context.Background(), ""); !errors.Is(err, ErrNoMatch) {
		t.Fatalf("Resolve(\"\") error = %v, want ErrNoMatch", err)
	}
}

func TestResolveIgnoresClosedSessions(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	sess, err := s.Create(ctx, 1000, 111)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := s.AppendMessage(ctx, sess.ID, 1000, "ticket 42: broken screen"); err != nil {
		t.Fatalf("AppendMessage() error = %v", err)
	}
	if err := s.Close(ctx, sess.ID); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	idx := New(s, DefaultPrefixLen)
	if _, err := idx.Resolve(ctx, "ticket 42"); !errors.Is(err, ErrNoMatch) {
		t.Fatalf("Resolve() error = %v, want ErrNoMatch after close", err)
	}
}

func TestResolvePrefersMostRecentMessage(t *testing.T) {
	s := store.NewMemoryStore()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.SetNowFunc(func() time.Time { return now })
	ctx := context.Background()

	// Two concurrent sessions sharing boilerplate content. The newer
	// message wins; the prefix heuristic cannot do better.
	first, err := s.Create(ctx, 1000, 111)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := s.AppendMessage(ctx, first.ID, 111, "New inquiry, please respond"); err != nil {
		t.Fatalf("AppendMessage() error = %v", err)
	}

	now = now.Add(time.Minute)
	second, err := s.Create(ctx, 2000, 111)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := s.AppendMessage(ctx, second.ID, 111, "New inquiry, please respond"); err != nil {
		t.Fatalf("AppendMessage() error = %v", err)
	}

	idx := New(s, DefaultPrefixLen)
	resolved, err := idx.Resolve(ctx, "New inquiry, please respond")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if resolved.ID != second.ID {
		t.Fatalf("resolved session %d, want newer session %d", resolved.ID, second.ID)
	}
}

func TestResolveTruncatesLongReplies(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	sess, err := s.Create(ctx, 1000, 111)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	stored := strings.Repeat("a", 60) + " stored tail"
	if _, err := s.AppendMessage(ctx, sess.ID, 1000, stored); err != nil {
		t.Fatalf("AppendMessage() error = %v", err)
	}

	idx := New(s, 50)

	// The echoed text diverges after the relay reformatted the tail, but
	// only the first 50 runes participate in matching.
	echoed := strings.Repeat("a", 60) + " reformatted tail"
	resolved, err := idx.Resolve(ctx, echoed)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if resolved.ID != sess.ID {
		t.Fatalf("resolved session %d, want %d", resolved.ID, sess.ID)
	}
}

func TestPrefixRunes(t *testing.T) {
	tests := []struct {
		name string
		text string
		n    int
		want string
	}{
		{"shorter than bound", "hello", 50, "hello"},
		{"exact bound", "hello", 5, "hello"},
		{"truncated", "hello world", 5, "hello"},
		{"multibyte", "你好世界你好世界", 4, "你好世界"},
		{"zero bound", "hello", 0, ""},
		{"empty", "", 50, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Prefix(tt.text, tt.n); got != tt.want {
				t.Errorf("Prefix(%q, %d) = %q, want %q", tt.text, tt.n, got, tt.want)
			}
		})
	}
}
