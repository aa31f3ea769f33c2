package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tg-word-keeper/pkg/db"
	"github.com/smith3v/tg-word-keeper/pkg/logger"
	"github.com/smith3v/tg-word-keeper/pkg/ui"
)

func (h *Handler) HandleDictionary(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !validMessage(update) {
		logger.Error("invalid update in HandleDictionary")
		return
	}
	h.showDictionary(ctx, b, update.Message.From.ID, update.Message.Chat.ID, 0, 0)
}

// showDictionary renders a dictionary page, editing messageID in place when
// it is set. A page past the end falls back to the last page.
func (h *Handler) showDictionary(ctx context.Context, b *bot.Bot, userID, chatID int64, messageID, page int) {
	summary, page, err := h.loadDictionaryPage(ctx, userID, page)
	if err != nil {
		logger.Error("failed to load dictionary page", "user_id", userID, "page", page, "error", err)
		h.sendText(ctx, b, chatID, "Failed to load your dictionary. Please try again later.")
		return
	}

	text, keyboard, err := ui.RenderDictionary(summary, page)
	if err != nil {
		logger.Error("failed to render dictionary", "user_id", userID, "error", err)
		return
	}
	if err := h.editHTML(ctx, b, chatID, messageID, text, keyboard); err != nil {
		logger.Error("failed to send dictionary", "user_id", userID, "page", page, "error", err)
	}
}

func (h *Handler) loadDictionaryPage(ctx context.Context, userID int64, page int) (db.PageSummary, int, error) {
	summary, err := h.store.PageSummary(ctx, userID, ui.DictionaryPageSize, page*ui.DictionaryPageSize)
	if err != nil {
		return db.PageSummary{}, page, err
	}
	if len(summary.Words) > 0 || summary.Total == 0 || page == 0 {
		return summary, page, nil
	}
	page = ui.TotalPages(summary.Total) - 1
	summary, err = h.store.PageSummary(ctx, userID, ui.DictionaryPageSize, page*ui.DictionaryPageSize)
	return summary, page, err
}

func (h *Handler) viewWord(ctx context.Context, b *bot.Bot, userID, chatID int64, answer answerFunc, wordID int64) {
	w, err := h.store.GetWord(ctx, wordID)
	if err != nil {
		logger.Error("failed to load word", "user_id", userID, "word_id", wordID, "error", err)
		answer("Failed to load the word", true)
		return
	}
	if w == nil || w.UserID != userID {
		answer("Word not found", true)
		return
	}

	keyboard, err := ui.RenderDeleteKeyboard(w.ID)
	if err != nil {
		logger.Error("failed to build delete keyboard", "word_id", w.ID, "error", err)
		return
	}
	if _, err := h.sendHTML(ctx, b, chatID, ui.RenderWordCard(w.Word, w.Definition), keyboard); err != nil {
		logger.Error("failed to send word", "user_id", userID, "word_id", w.ID, "error", err)
	}
}

func (h *Handler) deleteWord(ctx context.Context, b *bot.Bot, userID int64, msg *models.Message, answer answerFunc, wordID int64) {
	deleted, err := h.store.DeleteWord(ctx, wordID, userID)
	if err != nil {
		logger.Error("failed to delete word", "user_id", userID, "word_id", wordID, "error", err)
	}
	if err != nil || !deleted {
		answer("Could not delete the word", true)
		return
	}
	logger.Info("word deleted", "user_id", userID, "word_id", wordID)
	answer("Word deleted", false)

	if _, err := b.DeleteMessage(ctx, &bot.DeleteMessageParams{
		ChatID:    msg.Chat.ID,
		MessageID: msg.ID,
	}); err != nil {
		logger.Error("failed to delete word message", "user_id", userID, "error", err)
	}
}
