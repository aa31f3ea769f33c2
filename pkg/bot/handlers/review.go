package handlers

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tg-word-keeper/pkg/db"
	"github.com/smith3v/tg-word-keeper/pkg/logger"
	"github.com/smith3v/tg-word-keeper/pkg/ui"
)

const emptyDictionaryHint = "📚 Your dictionary is empty. Add a few words first!"

func (h *Handler) HandleRandom(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !validMessage(update) {
		logger.Error("invalid update in HandleRandom")
		return
	}
	h.showRandom(ctx, b, update.Message.From.ID, update.Message.Chat.ID, 0, nil)
}

// showRandom sends a random saved word, or edits messageID when set. When
// called from a button an empty dictionary is reported as an alert.
func (h *Handler) showRandom(ctx context.Context, b *bot.Bot, userID, chatID int64, messageID int, answer answerFunc) {
	w, err := h.store.RandomWord(ctx, userID)
	if err != nil {
		logger.Error("failed to load random word", "user_id", userID, "error", err)
		h.sendText(ctx, b, chatID, "Failed to load a word. Please try again later.")
		return
	}
	if w == nil {
		if answer != nil {
			answer(emptyDictionaryHint, true)
			return
		}
		h.sendText(ctx, b, chatID, emptyDictionaryHint)
		return
	}

	text, keyboard, err := ui.RenderRandom(*w)
	if err != nil {
		logger.Error("failed to render random word", "user_id", userID, "error", err)
		return
	}
	if err := h.editHTML(ctx, b, chatID, messageID, text, keyboard); err != nil {
		logger.Error("failed to send random word", "user_id", userID, "word_id", w.ID, "error", err)
	}
}

func (h *Handler) HandleStats(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !validMessage(update) {
		logger.Error("invalid update in HandleStats")
		return
	}
	h.showStats(ctx, b, update.Message.From.ID, update.Message.Chat.ID, 0)
}

func (h *Handler) showStats(ctx context.Context, b *bot.Bot, userID, chatID int64, messageID int) {
	stats, err := h.store.UserStats(ctx, userID)
	if err != nil {
		logger.Error("failed to load stats", "user_id", userID, "error", err)
		h.sendText(ctx, b, chatID, "Failed to load your statistics. Please try again later.")
		return
	}
	if err := h.editHTML(ctx, b, chatID, messageID, ui.RenderStats(stats), nil); err != nil {
		logger.Error("failed to send stats", "user_id", userID, "error", err)
	}
}

// HandleReview sends the words not reviewed for a week, one message each,
// and marks every delivered word as reviewed.
func (h *Handler) HandleReview(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !validMessage(update) {
		logger.Error("invalid update in HandleReview")
		return
	}
	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	words, err := h.store.WordsDueForReview(ctx, userID, db.DefaultReviewDays)
	if err != nil {
		logger.Error("failed to load review words", "user_id", userID, "error", err)
		h.sendText(ctx, b, chatID, "Failed to start review. Please try again later.")
		return
	}
	if len(words) == 0 {
		h.sendText(ctx, b, chatID, "🎉 Nothing to review right now.")
		return
	}

	header := fmt.Sprintf("🔁 <b>Time to review (%d):</b>", len(words))
	if _, err := h.sendHTML(ctx, b, chatID, header, nil); err != nil {
		logger.Error("failed to send review header", "user_id", userID, "error", err)
		return
	}

	reviewed := 0
	for _, w := range words {
		if _, err := h.sendHTML(ctx, b, chatID, ui.RenderWordCard(w.Word, w.Definition), nil); err != nil {
			logger.Error("failed to send review word", "user_id", userID, "word_id", w.ID, "error", err)
			continue
		}
		if err := h.store.MarkReviewed(ctx, w.ID); err != nil {
			logger.Error("failed to mark word reviewed", "user_id", userID, "word_id", w.ID, "error", err)
			continue
		}
		reviewed++
	}
	logger.Debug("review sent", "user_id", userID, "words", reviewed)
}
