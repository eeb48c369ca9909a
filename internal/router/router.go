// Package router implements the session lifecycle: assigning users to
// operators, relaying traffic in both directions, correlating operator
// replies, and closing idle sessions.
//
// Per session the state machine is NoSession -> Active -> Closed. Closed is
// terminal; a user messaging after closure is re-prompted to pick an
// operator. A user traverses the machine once per Session record.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/haasonsaas/switchboard/internal/correlate"
	"github.com/haasonsaas/switchboard/internal/directory"
	"github.com/haasonsaas/switchboard/internal/relay"
	"github.com/haasonsaas/switchboard/internal/store"
	"github.com/haasonsaas/switchboard/pkg/models"
)

// Options configures a Router.
type Options struct {
	// IdleTimeout is the inactivity threshold after which RunIdleSweep
	// closes a session. Defaults to 30 minutes.
	IdleTimeout time.Duration

	// ReplyPrefixLen bounds the correlation prefix in runes. Defaults to
	// correlate.DefaultPrefixLen.
	ReplyPrefixLen int

	// Logger is an optional slog.Logger instance.
	Logger *slog.Logger
}

// Router orchestrates session creation, relay in both directions, and
// timeout closure. It holds no durable state of its own; the store owns
// all records.
type Router struct {
	dir         *directory.Directory
	store       store.Store
	index       *correlate.Index
	sender      relay.Sender
	locks       *userLocker
	logger      *slog.Logger
	idleTimeout time.Duration
}

// New creates a Router over the given collaborators.
func New(dir *directory.Directory, st store.Store, sender relay.Sender, opts Options) *Router {
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 30 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Router{
		dir:         dir,
		store:       st,
		index:       correlate.New(st, opts.ReplyPrefixLen),
		sender:      sender,
		locks:       newUserLocker(),
		logger:      opts.Logger.With("component", "router"),
		idleTimeout: opts.IdleTimeout,
	}
}

// Operators returns the directory listing for presentation.
func (r *Router) Operators() []models.Operator {
	return r.dir.List()
}

// IsOperator reports whether the identity belongs to a configured operator.
func (r *Router) IsOperator(id int64) bool {
	return r.dir.IsOperator(id)
}

// HandleStart greets a user opening the bot and shows the operator picker.
// No session is created until an operator is selected.
func (r *Router) HandleStart(ctx context.Context, userID int64, firstName string) error {
	return r.sendPicker(ctx, userID, formatGreeting(firstName))
}

// HandleUserText routes an inbound user message.
//
// With an active session the text is recorded and forwarded to the
// assigned operator with a reply affordance; without one the user is
// prompted to pick an operator and no session is created.
func (r *Router) HandleUserText(ctx context.Context, userID int64, username, text string) error {
	release := r.locks.acquire(userID)

	sess, err := r.store.FindActiveByUser(ctx, userID)
	if errors.Is(err, store.ErrNoActiveSession) {
		release()
		return r.sendPicker(ctx, userID, textPickOperatorFirst)
	}
	if err != nil {
		release()
		r.logger.Error("storage failure looking up session", "user_id", userID, "error", err)
		return fmt.Errorf("failed to look up session: %w", err)
	}

	// Record exactly what the operator will see: the stored content is the
	// substrate reply correlation matches against.
	forward := formatForward(userID, username, text)
	if _, err := r.store.AppendMessage(ctx, sess.ID, userID, forward); err != nil {
		release()
		r.logger.Error("failed to record user message", "session_id", sess.ID, "error", err)
		return fmt.Errorf("failed to record message: %w", err)
	}
	release()

	if err := r.sender.SendText(ctx, sess.OperatorID, forward, &relay.Prompt{ForceReply: true}); err != nil {
		r.logger.Error("failed to forward user message",
			"session_id", sess.ID,
			"operator_id", sess.OperatorID,
			"error", err)
		r.notify(ctx, userID, textForwardFailed)
		return err
	}

	r.notify(ctx, userID, textForwardAck)
	return nil
}

// HandleOperatorSelection connects a user to the chosen operator.
//
// An unknown operator rejects the selection and re-shows the picker. If the
// user already has an active session the selection is ignored and traffic
// keeps routing to the existing session.
func (r *Router) HandleOperatorSelection(ctx context.Context, userID int64, username string, operatorID int64) error {
	op, ok := r.dir.Lookup(operatorID)
	if !ok {
		r.logger.Warn("selection of unknown operator", "user_id", userID, "operator_id", operatorID)
		return r.sendPicker(ctx, userID, textUnknownOperator)
	}

	release := r.locks.acquire(userID)

	if existing, err := r.store.FindActiveByUser(ctx, userID); err == nil {
		release()
		name := r.operatorName(existing.OperatorID)
		r.notify(ctx, userID, fmt.Sprintf(textAlreadyConnected, name))
		return nil
	} else if !errors.Is(err, store.ErrNoActiveSession) {
		release()
		r.logger.Error("storage failure looking up session", "user_id", userID, "error", err)
		return fmt.Errorf("failed to look up session: %w", err)
	}

	sess, err := r.store.Create(ctx, userID, operatorID)
	if errors.Is(err, store.ErrActiveSessionExists) {
		// Lost a race with a concurrent selection. Route to the winner.
		release()
		r.notify(ctx, userID, fmt.Sprintf(textAlreadyConnected, r.activeOperatorName(ctx, userID)))
		return nil
	}
	if err != nil {
		release()
		r.logger.Error("failed to create session", "user_id", userID, "error", err)
		return fmt.Errorf("failed to create session: %w", err)
	}

	notice := formatSessionNotice(userID, username)
	if _, err := r.store.AppendMessage(ctx, sess.ID, operatorID, notice); err != nil {
		release()
		r.logger.Error("failed to record session notice", "session_id", sess.ID, "error", err)
		return fmt.Errorf("failed to record message: %w", err)
	}
	release()

	r.logger.Info("session created",
		"session_id", sess.ID,
		"user_id", userID,
		"operator_id", operatorID)

	r.notify(ctx, userID, fmt.Sprintf(textConnected, op.Name))

	if err := r.sender.SendText(ctx, operatorID, notice, &relay.Prompt{ForceReply: true}); err != nil {
		r.logger.Error("failed to notify operator of new session",
			"session_id", sess.ID,
			"operator_id", operatorID,
			"error", err)
		return err
	}
	return nil
}

// HandleOperatorReply routes an operator's reply back to the user it
// answers, resolving the session from the replied-to text. An unresolvable
// reply is rejected with an error text to the operator; state is unchanged.
func (r *Router) HandleOperatorReply(ctx context.Context, operatorID int64, text, repliedTo string) error {
	if !r.dir.IsOperator(operatorID) {
		// Not a configured operator; nothing to route.
		return nil
	}

	sess, err := r.index.Resolve(ctx, repliedTo)
	if errors.Is(err, correlate.ErrNoMatch) {
		r.logger.Warn("reply correlation failed", "operator_id", operatorID)
		r.notify(ctx, operatorID, textReplyNoMatch)
		return nil
	}
	if err != nil {
		r.logger.Error("storage failure resolving reply", "operator_id", operatorID, "error", err)
		return fmt.Errorf("failed to resolve reply: %w", err)
	}

	release := r.locks.acquire(sess.UserID)
	if _, err := r.store.AppendMessage(ctx, sess.ID, operatorID, text); err != nil {
		release()
		r.logger.Error("failed to record operator reply", "session_id", sess.ID, "error", err)
		return fmt.Errorf("failed to record message: %w", err)
	}
	release()

	reply := formatOperatorReply(r.operatorName(sess.OperatorID), text)
	if err := r.sender.SendText(ctx, sess.UserID, reply, nil); err != nil {
		r.logger.Error("failed to deliver operator reply",
			"session_id", sess.ID,
			"user_id", sess.UserID,
			"error", err)
		r.notify(ctx, operatorID, textReplyFailed)
		return err
	}

	r.notify(ctx, operatorID, textReplyAck)
	return nil
}

// RunIdleSweep closes every active session idle beyond the configured
// threshold and notifies both parties best-effort. Returns the number of
// sessions closed. Notification failure never blocks closure.
func (r *Router) RunIdleSweep(ctx context.Context) (int, error) {
	stale, err := r.store.FindStaleActive(ctx, r.idleTimeout)
	if err != nil {
		return 0, fmt.Errorf("failed to find stale sessions: %w", err)
	}

	closed := 0
	for _, sess := range stale {
		if err := r.store.Close(ctx, sess.ID); err != nil {
			r.logger.Error("failed to close idle session", "session_id", sess.ID, "error", err)
			continue
		}
		closed++

		r.notify(ctx, sess.UserID, textSessionClosedUser)
		r.notify(ctx, sess.OperatorID, fmt.Sprintf(textSessionClosedOp, formatUserInfo(sess.UserID, "")))
	}

	if closed > 0 {
		r.logger.Info("closed idle sessions", "count", closed)
	}
	return closed, nil
}

// sendPicker shows the operator selection prompt.
func (r *Router) sendPicker(ctx context.Context, userID int64, text string) error {
	return r.sender.SendText(ctx, userID, text, &relay.Prompt{Operators: r.dir.List()})
}

// notify sends a best-effort status text; failures are logged only.
func (r *Router) notify(ctx context.Context, to int64, text string) {
	if err := r.sender.SendText(ctx, to, text, nil); err != nil {
		r.logger.Warn("notification failed", "to", to, "error", err)
	}
}

func (r *Router) operatorName(id int64) string {
	if op, ok := r.dir.Lookup(id); ok {
		return op.Name
	}
	return "operator"
}

func (r *Router) activeOperatorName(ctx context.Context, userID int64) string {
	sess, err := r.store.FindActiveByUser(ctx, userID)
	if err != nil {
		return "operator"
	}
	return r.operatorName(sess.OperatorID)
}
