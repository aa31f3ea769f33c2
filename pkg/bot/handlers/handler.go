// Package handlers adapts Telegram updates to vocabulary store operations.
package handlers

import (
	"context"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tg-word-keeper/pkg/bot/importexport"
	"github.com/smith3v/tg-word-keeper/pkg/bot/pending"
	"github.com/smith3v/tg-word-keeper/pkg/db"
	"github.com/smith3v/tg-word-keeper/pkg/explain"
	"github.com/smith3v/tg-word-keeper/pkg/logger"
)

const (
	// MaxLookupWords is the longest phrase accepted for an explanation.
	MaxLookupWords = 3
	SearchLimit    = 20
)

// Store is the part of the word store the handlers use.
type Store interface {
	EnsureUser(ctx context.Context, userID int64, username, firstName *string) error
	SetSubscription(ctx context.Context, userID int64, subscribed bool) error
	AddWord(ctx context.Context, userID int64, word, definition string, wordContext *string) (int64, error)
	GetWord(ctx context.Context, id int64) (*db.Word, error)
	ExportWords(ctx context.Context, userID int64) ([]db.Word, error)
	SearchWords(ctx context.Context, userID int64, query string) ([]db.Word, error)
	RandomWord(ctx context.Context, userID int64) (*db.Word, error)
	MarkReviewed(ctx context.Context, id int64) error
	DeleteWord(ctx context.Context, id, userID int64) (bool, error)
	UserStats(ctx context.Context, userID int64) (db.Stats, error)
	WordsDueForReview(ctx context.Context, userID int64, days int) ([]db.Word, error)
	PageSummary(ctx context.Context, userID int64, limit, offset int) (db.PageSummary, error)
}

type Handler struct {
	store     Store
	explainer explain.Explainer
	pending   *pending.Store
	importer  *importexport.Importer
	now       func() time.Time
}

type Option func(*Handler)

// WithDownloader replaces the HTTP download used for CSV imports.
func WithDownloader(download importexport.Downloader) Option {
	return func(h *Handler) {
		h.importer = importexport.NewImporter(h.store, download)
	}
}

func WithClock(now func() time.Time) Option {
	return func(h *Handler) {
		h.now = now
	}
}

func New(store Store, explainer explain.Explainer, pendingStore *pending.Store, opts ...Option) *Handler {
	h := &Handler{
		store:     store,
		explainer: explainer,
		pending:   pendingStore,
		now:       time.Now,
	}
	h.importer = importexport.NewImporter(store, nil)
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Commands lists the bot menu shown by Telegram clients.
func Commands() []models.BotCommand {
	return []models.BotCommand{
		{Command: "dictionary", Description: "📚 My dictionary"},
		{Command: "random", Description: "🎲 Random word"},
		{Command: "review", Description: "🔁 Words to review"},
		{Command: "search", Description: "🔎 Search my words"},
		{Command: "stats", Description: "📊 Statistics"},
		{Command: "subscribe", Description: "🔔 Turn on smart words"},
		{Command: "unsubscribe", Description: "🔕 Turn off smart words"},
		{Command: "export", Description: "📤 Download my words"},
		{Command: "help", Description: "ℹ️ Help"},
		{Command: "start", Description: "👋 Restart the bot"},
	}
}

// Register wires every command and callback onto b.
func (h *Handler) Register(b *bot.Bot) {
	b.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, h.HandleStart)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, h.HandleHelp)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/dictionary", bot.MatchTypeExact, h.HandleDictionary)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/random", bot.MatchTypeExact, h.HandleRandom)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/review", bot.MatchTypeExact, h.HandleReview)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/search", bot.MatchTypePrefix, h.HandleSearch)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/stats", bot.MatchTypeExact, h.HandleStats)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/subscribe", bot.MatchTypeExact, h.HandleSubscribe)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/unsubscribe", bot.MatchTypeExact, h.HandleUnsubscribe)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/export", bot.MatchTypeExact, h.HandleExport)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, h.HandleCallback)
}

func (h *Handler) sendHTML(ctx context.Context, b *bot.Bot, chatID int64, text string, keyboard *models.InlineKeyboardMarkup) (*models.Message, error) {
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}
	return b.SendMessage(ctx, params)
}

func (h *Handler) sendText(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		logger.Error("failed to send message", "chat_id", chatID, "error", err)
	}
}

func validMessage(update *models.Update) bool {
	return update != nil && update.Message != nil && update.Message.From != nil && update.Message.Chat.ID != 0
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
