// Package relay defines the boundary to the external messaging transport.
//
// The lifecycle layer only ever talks to the Sender interface; the concrete
// transport (Telegram) lives in a subpackage. Sends are fire-and-forget: a
// failed delivery is reported to the caller and never retried automatically.
package relay

import (
	"context"

	"github.com/haasonsaas/switchboard/pkg/models"
)

// Prompt describes the interactive affordance attached to an outgoing text.
// A nil Prompt sends plain text.
type Prompt struct {
	// Operators renders an operator picker for the recipient. Selection
	// comes back through the adapter's selection handler.
	Operators []models.Operator

	// ForceReply asks the recipient's client to compose a reply to this
	// message, so the reply carries the message text back for correlation.
	ForceReply bool
}

// Sender delivers text to a relay identity.
//
// Implementations must not be called while holding session locks: sending
// is blocking I/O and the locks protect only store mutation.
type Sender interface {
	SendText(ctx context.Context, to int64, text string, prompt *Prompt) error
}
