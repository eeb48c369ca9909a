// Package telegram implements the relay boundary on the Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/haasonsaas/switchboard/internal/relay"
	switchboard "github.com/haasonsaas/switchboard/pkg/models"
)

// callbackPrefix tags operator-picker button payloads.
const callbackPrefix = "op:"

// Handlers is the lifecycle surface the adapter's event loop drives.
type Handlers interface {
	HandleStart(ctx context.Context, userID int64, firstName string) error
	HandleUserText(ctx context.Context, userID int64, username, text string) error
	HandleOperatorSelection(ctx context.Context, userID int64, username string, operatorID int64) error
	HandleOperatorReply(ctx context.Context, operatorID int64, text, repliedTo string) error
	IsOperator(id int64) bool
}

// Config holds configuration for the Telegram adapter.
type Config struct {
	// Token is the bot token from @BotFather (required)
	Token string

	// RateLimit configures outbound sends per second
	RateLimit float64

	// RateBurst configures the burst capacity for outbound sends
	RateBurst int

	// Logger is an optional slog.Logger instance
	Logger *slog.Logger
}

// Validate checks if the configuration is valid and applies defaults.
func (c *Config) Validate() error {
	if c.Token == "" {
		return relay.ErrConfig("token is required", nil)
	}

	if c.RateLimit == 0 {
		c.RateLimit = 30 // Telegram's limit is ~30 messages per second
	}
	if c.RateBurst == 0 {
		c.RateBurst = 20
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}

	return nil
}

// Adapter connects the lifecycle layer to Telegram via long polling. It
// implements relay.Sender for the outbound direction and dispatches inbound
// updates to the Handlers.
type Adapter struct {
	config      Config
	handlers    Handlers
	bot         *bot.Bot
	rateLimiter *relay.RateLimiter
	metrics     *relay.Metrics
	logger      *slog.Logger
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// NewAdapter creates a new Telegram adapter with the given configuration.
// Handlers are bound at Start so the lifecycle layer can be constructed
// with the adapter as its Sender first.
func NewAdapter(config Config) (*Adapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Adapter{
		config:      config,
		rateLimiter: relay.NewRateLimiter(config.RateLimit, config.RateBurst),
		metrics:     relay.NewMetrics(),
		logger:      config.Logger.With("adapter", "telegram"),
	}, nil
}

// Start connects to Telegram and begins the long-polling loop, dispatching
// inbound updates to handlers.
func (a *Adapter) Start(ctx context.Context, handlers Handlers) error {
	if handlers == nil {
		return relay.ErrConfig("handlers are required", nil)
	}
	a.handlers = handlers

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	b, err := bot.New(a.config.Token)
	if err != nil {
		a.metrics.RecordError(relay.ErrCodeAuthentication)
		return relay.ErrAuthentication("failed to create bot", err)
	}
	a.bot = b

	b.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, a.handleStart)
	b.RegisterHandler(bot.HandlerTypeMessageText, "", bot.MatchTypePrefix, a.handleMessage)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, callbackPrefix, bot.MatchTypePrefix, a.handleCallback)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		b.Start(ctx) // blocks until ctx is cancelled
	}()

	a.logger.Info("telegram adapter started", "rate_limit", a.config.RateLimit)
	return nil
}

// Stop shuts down the polling loop and waits for it to finish or the
// context to expire.
func (a *Adapter) Stop(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		a.logger.Info("telegram adapter stopped")
		return nil
	case <-ctx.Done():
		a.metrics.RecordError(relay.ErrCodeTimeout)
		return relay.ErrTimeout("stop timeout", ctx.Err())
	}
}

// Metrics returns the current traffic counters.
func (a *Adapter) Metrics() relay.MetricsSnapshot {
	return a.metrics.Snapshot()
}

// handleStart greets a user opening the bot.
func (a *Adapter) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	a.metrics.RecordMessageReceived()

	if err := a.handlers.HandleStart(ctx, msg.From.ID, msg.From.FirstName); err != nil {
		a.logger.Error("start handling failed", "user_id", msg.From.ID, "error", err)
	}
}

// handleMessage dispatches a text message to the user or operator path.
func (a *Adapter) handleMessage(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	a.metrics.RecordMessageReceived()

	from := msg.From
	text := messageText(msg)

	a.logger.Debug("received message",
		"chat_id", msg.Chat.ID,
		"user_id", from.ID)

	if a.handlers.IsOperator(from.ID) {
		if msg.ReplyToMessage == nil || msg.ReplyToMessage.Text == "" {
			// Operator chatter without reply context carries no routing
			// information.
			a.logger.Debug("ignoring operator message without reply context", "operator_id", from.ID)
			return
		}
		if err := a.handlers.HandleOperatorReply(ctx, from.ID, text, msg.ReplyToMessage.Text); err != nil {
			a.logger.Error("operator reply handling failed", "operator_id", from.ID, "error", err)
		}
		return
	}

	if err := a.handlers.HandleUserText(ctx, from.ID, from.Username, text); err != nil {
		a.logger.Error("user message handling failed", "user_id", from.ID, "error", err)
	}
}

// handleCallback processes an operator-picker selection.
func (a *Adapter) handleCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	q := update.CallbackQuery
	if q == nil {
		return
	}
	a.metrics.RecordMessageReceived()

	if _, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: q.ID,
	}); err != nil {
		a.logger.Warn("failed to answer callback query", "error", err)
	}

	operatorID, err := parseCallback(q.Data)
	if err != nil {
		a.logger.Warn("malformed callback payload", "data", q.Data)
		return
	}

	if err := a.handlers.HandleOperatorSelection(ctx, q.From.ID, q.From.Username, operatorID); err != nil {
		a.logger.Error("operator selection failed",
			"user_id", q.From.ID,
			"operator_id", operatorID,
			"error", err)
	}
}

// SendText delivers text to a relay identity, applying rate limiting and
// rendering the prompt affordances.
func (a *Adapter) SendText(ctx context.Context, to int64, text string, prompt *relay.Prompt) error {
	startTime := time.Now()

	if err := a.rateLimiter.Wait(ctx); err != nil {
		a.metrics.RecordError(relay.ErrCodeTimeout)
		return relay.ErrTimeout("rate limit wait cancelled", err)
	}

	if a.bot == nil {
		a.metrics.RecordError(relay.ErrCodeInternal)
		return relay.ErrInternal("bot not initialized", nil)
	}

	params := &bot.SendMessageParams{
		ChatID: to,
		Text:   text,
	}

	if prompt != nil {
		switch {
		case len(prompt.Operators) > 0:
			params.ReplyMarkup = operatorKeyboard(prompt.Operators)
		case prompt.ForceReply:
			params.ReplyMarkup = &models.ForceReply{ForceReply: true}
		}
	}

	if _, err := a.bot.SendMessage(ctx, params); err != nil {
		a.metrics.RecordMessageFailed()
		if isRateLimitError(err) {
			a.metrics.RecordError(relay.ErrCodeRateLimit)
			return relay.ErrRateLimit("telegram rate limit exceeded", err)
		}
		a.metrics.RecordError(relay.ErrCodeDelivery)
		return relay.ErrDelivery(fmt.Sprintf("failed to send to %d", to), err)
	}

	a.metrics.RecordMessageSent()
	a.logger.Debug("message sent",
		"chat_id", to,
		"latency_ms", time.Since(startTime).Milliseconds())
	return nil
}

// operatorKeyboard renders the picker as an inline keyboard, three buttons
// per row.
func operatorKeyboard(operators []switchboard.Operator) *models.InlineKeyboardMarkup {
	var (
		keyboard [][]models.InlineKeyboardButton
		row      []models.InlineKeyboardButton
	)
	for _, op := range operators {
		row = append(row, models.InlineKeyboardButton{
			Text:         op.Name,
			CallbackData: fmt.Sprintf("%s%d", callbackPrefix, op.ID),
		})
		if len(row) == 3 {
			keyboard = append(keyboard, row)
			row = nil
		}
	}
	if len(row) > 0 {
		keyboard = append(keyboard, row)
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: keyboard}
}

// parseCallback extracts the operator identity from a picker payload.
func parseCallback(data string) (int64, error) {
	raw, ok := strings.CutPrefix(data, callbackPrefix)
	if !ok {
		return 0, fmt.Errorf("missing %q prefix", callbackPrefix)
	}
	return strconv.ParseInt(raw, 10, 64)
}

// messageText flattens the routable text of a message. Shared contacts are
// rendered with a masked phone number.
func messageText(msg *models.Message) string {
	text := msg.Text
	if msg.Contact != nil && msg.Contact.PhoneNumber != "" {
		contact := "contact: " + maskPhone(msg.Contact.PhoneNumber)
		if text == "" {
			return contact
		}
		return text + "\n" + contact
	}
	return text
}

// isRateLimitError checks if an error is a Telegram throttling response.
func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "Too Many Requests") || strings.Contains(s, "429")
}
