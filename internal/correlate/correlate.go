// Package correlate resolves an operator's reply to the session it answers.
//
// The relay's reply-to feature echoes only the replied-to message's text,
// not a stable session reference, so resolution works by matching a bounded
// prefix of that text against stored message content of active sessions.
//
// This is a heuristic, not an identifier: if two concurrent active sessions
// hold messages sharing the prefix (identical boilerplate, say), the newer
// message wins and may belong to the wrong session. Callers that need a
// hard binding should carry an explicit session token through the relay
// instead.
package correlate

import (
	"context"
	"errors"

	"github.com/haasonsaas/switchboard/internal/store"
	"github.com/haasonsaas/switchboard/pkg/models"
)

// ErrNoMatch is returned when no stored message of an active session
// contains the reply's prefix. The reply must be rejected; never guess.
var ErrNoMatch = errors.New("correlate: no matching session")

// DefaultPrefixLen bounds the replied-to text prefix, in runes. The full
// text is not used because relay rendering may truncate or reformat it.
const DefaultPrefixLen = 50

// Matcher is the slice of the session store the index queries.
type Matcher interface {
	MatchActiveMessages(ctx context.Context, substr string) ([]store.Match, error)
}

// Index derives sessions from stored message content.
type Index struct {
	matcher   Matcher
	prefixLen int
}

// New creates an Index over the given matcher. prefixLen <= 0 selects
// DefaultPrefixLen.
func New(matcher Matcher, prefixLen int) *Index {
	if prefixLen <= 0 {
		prefixLen = DefaultPrefixLen
	}
	return &Index{matcher: matcher, prefixLen: prefixLen}
}

// Resolve maps the replied-to text to the session it belongs to.
//
// Among candidate messages the most recent SentAt wins; timestamp ties go
// to the most-recently-created session. Returns ErrNoMatch if no active
// session's transcript contains the prefix.
func (i *Index) Resolve(ctx context.Context, repliedTo string) (*models.Session, error) {
	prefix := Prefix(repliedTo, i.prefixLen)
	if prefix == "" {
		return nil, ErrNoMatch
	}

	matches, err := i.matcher.MatchActiveMessages(ctx, prefix)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, ErrNoMatch
	}

	// The store returns candidates ordered by the resolution policy.
	return matches[0].Session, nil
}

// Prefix returns the first n runes of text. Rune-based so multibyte
// transcripts truncate cleanly.
func Prefix(text string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}
