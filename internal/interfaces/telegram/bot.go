package telegram

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bimate/backend/internal/application/navigation"
	"github.com/bimate/backend/internal/domain/shared"
	"github.com/bimate/backend/internal/infrastructure/auth"
	"github.com/bimate/backend/internal/infrastructure/config"
	"github.com/bimate/backend/internal/infrastructure/logger"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// DefaultUpdateTimeout bounds the handling of a single update
const DefaultUpdateTimeout = 3 * time.Minute

// Flows drives the navigation menus
type Flows interface {
	Start(ctx context.Context, userID, chatID int64, flow navigation.Flow) error
	Handle(ctx context.Context, userID, chatID int64, data string) error
}

// Links issues dashboard links
type Links interface {
	Issue(userID, chatID int64, scope auth.LinkScope) (*auth.Link, error)
	Plain(scope auth.LinkScope) string
}

// UpdateRecorder counts handled updates
type UpdateRecorder interface {
	RecordUpdate(kind string)
}

// Bot receives updates and dispatches them. Every update runs on its own goroutine.
type Bot struct {
	api         API
	flows       Flows
	links       Links
	requireLink bool
	recorder    UpdateRecorder
	timeout     time.Duration
	logger      *zap.Logger
	wg          sync.WaitGroup
}

// BotOption configures a Bot
type BotOption func(*Bot)

// WithSignedLinks makes the web buttons hand out signed links
func WithSignedLinks(required bool) BotOption {
	return func(b *Bot) { b.requireLink = required }
}

// WithUpdateRecorder counts updates by kind
func WithUpdateRecorder(r UpdateRecorder) BotOption {
	return func(b *Bot) { b.recorder = r }
}

// WithUpdateTimeout bounds the handling of one update
func WithUpdateTimeout(d time.Duration) BotOption {
	return func(b *Bot) { b.timeout = d }
}

// NewBot creates a new Bot
func NewBot(api API, flows Flows, links Links, logger *zap.Logger, opts ...BotOption) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Bot{
		api:     api,
		flows:   flows,
		links:   links,
		timeout: DefaultUpdateTimeout,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Connect creates the Bot API client from configuration
func Connect(cfg config.TelegramConfig) (*tgbotapi.BotAPI, error) {
	var (
		api *tgbotapi.BotAPI
		err error
	)
	if cfg.APIEndpoint != "" {
		api, err = tgbotapi.NewBotAPIWithAPIEndpoint(cfg.Token, cfg.APIEndpoint)
	} else {
		api, err = tgbotapi.NewBotAPI(cfg.Token)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing telegram bot: %w", err)
	}
	api.Debug = cfg.Debug
	return api, nil
}

// Run consumes updates until ctx is done, then waits for in-flight handlers.
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	defer b.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.wg.Add(1)
			go func(u tgbotapi.Update) {
				defer b.wg.Done()
				b.HandleUpdate(ctx, u)
			}(update)
		}
	}
}

// HandleUpdate processes one update synchronously.
func (b *Bot) HandleUpdate(parent context.Context, update tgbotapi.Update) {
	ctx, cancel := context.WithTimeout(parent, b.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("panic while handling update",
				zap.Int("update_id", update.UpdateID), zap.Any("panic", r), zap.Stack("stack"))
		}
	}()

	switch {
	case update.Message != nil && update.Message.From != nil:
		b.record("message")
		msg := update.Message
		ctx, _ = logger.WithChatUser(ctx, b.logger, msg.From.ID, msg.Chat.ID)
		b.handleMessage(ctx, msg)
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		b.record("callback")
		q := update.CallbackQuery
		ctx, _ = logger.WithChatUser(ctx, b.logger, q.From.ID, q.Message.Chat.ID)
		b.handleCallback(ctx, q)
	default:
		b.record("ignored")
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	userID, chatID := msg.From.ID, msg.Chat.ID
	log := logger.L(ctx)

	var err error
	switch {
	case msg.IsCommand() && msg.Command() == "start":
		err = b.send(chatID, welcomeText, tgbotapi.ModeHTML)
	case msg.IsCommand() && msg.Command() == "help", msg.Text == ButtonHelp:
		err = b.send(chatID, helpText, "")
	case msg.Text == ButtonCharts:
		err = b.flows.Start(ctx, userID, chatID, navigation.FlowGraph)
	case msg.Text == ButtonReports:
		err = b.flows.Start(ctx, userID, chatID, navigation.FlowReport)
	case msg.Text == ButtonProducts:
		err = b.sendLink(ctx, userID, chatID, auth.ScopeProducts, productsLinkText)
	case msg.Text == ButtonSales:
		err = b.sendLink(ctx, userID, chatID, auth.ScopeSales, salesLinkText)
	default:
		err = b.send(chatID, unknownText, "")
	}

	if err != nil {
		log.Error("message handling failed", zap.String("text", msg.Text), zap.Error(err))
	}
}

func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	log := logger.L(ctx)

	if _, err := b.api.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
		log.Debug("callback answer failed", zap.Error(err))
	}

	err := b.flows.Handle(ctx, q.From.ID, q.Message.Chat.ID, q.Data)
	switch {
	case err == nil:
	case errors.Is(err, shared.ErrSessionLost):
		log.Info("callback without session", zap.String("data", q.Data))
	case errors.Is(err, shared.ErrInvalidInput):
		log.Debug("stale or unknown callback", zap.String("data", q.Data), zap.Error(err))
	case errors.Is(err, shared.ErrNoData):
		log.Info("no data for request", zap.Error(err))
	default:
		log.Error("callback handling failed", zap.String("data", q.Data), zap.Error(err))
	}
}

func (b *Bot) sendLink(ctx context.Context, userID, chatID int64, scope auth.LinkScope, format string) error {
	target := b.links.Plain(scope)
	if b.requireLink {
		link, err := b.links.Issue(userID, chatID, scope)
		if err != nil {
			logger.L(ctx).Error("link issue failed", zap.String("scope", string(scope)), zap.Error(err))
			return b.send(chatID, linkFailedText, "")
		}
		target = link.URL
	}
	return b.send(chatID, fmt.Sprintf(format, target), "")
}

func (b *Bot) send(chatID int64, text, parseMode string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = parseMode
	msg.ReplyMarkup = MainKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) record(kind string) {
	if b.recorder != nil {
		b.recorder.RecordUpdate(kind)
	}
}
