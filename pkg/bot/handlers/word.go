package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tg-word-keeper/pkg/explain"
	"github.com/smith3v/tg-word-keeper/pkg/logger"
	"github.com/smith3v/tg-word-keeper/pkg/ui"
)

// DefaultHandler explains plain text, imports attached CSV files and answers
// unknown commands with the help text.
func (h *Handler) DefaultHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil {
		logger.Error("received invalid update in DefaultHandler")
		return
	}
	if update.Message.Chat.ID == 0 || update.Message.From == nil {
		logger.Error("chat ID or sender is missing in DefaultHandler")
		return
	}

	if update.Message.Document != nil {
		h.importer.HandleDocument(ctx, b, update)
		return
	}

	text := strings.TrimSpace(update.Message.Text)
	if text == "" || strings.HasPrefix(text, "/") {
		h.HandleHelp(ctx, b, update)
		return
	}
	if len(strings.Fields(text)) > MaxLookupWords {
		h.sendText(ctx, b, update.Message.Chat.ID, "🤔 That looks like a sentence. Send me a single word or a short phrase.")
		return
	}

	h.explainWord(ctx, b, update.Message, text)
}

func (h *Handler) explainWord(ctx context.Context, b *bot.Bot, msg *models.Message, text string) {
	chatID := msg.Chat.ID
	userID := msg.From.ID

	if err := h.store.EnsureUser(ctx, userID, optionalString(msg.From.Username), optionalString(msg.From.FirstName)); err != nil {
		logger.Error("failed to register user", "user_id", userID, "error", err)
	}

	if _, err := b.SendChatAction(ctx, &bot.SendChatActionParams{
		ChatID: chatID,
		Action: models.ChatActionTyping,
	}); err != nil {
		logger.Debug("failed to send typing action", "chat_id", chatID, "error", err)
	}

	explanation, err := h.explainer.Explain(ctx, text)
	if err != nil {
		logger.Error("failed to explain word", "user_id", userID, "word", text, "error", err)
		h.sendText(ctx, b, chatID, explain.FallbackText)
		return
	}

	token := h.pending.Put(userID, explanation)
	keyboard, err := ui.RenderSaveKeyboard(token)
	if err != nil {
		logger.Error("failed to build save keyboard", "user_id", userID, "error", err)
		return
	}
	if _, err := h.sendHTML(ctx, b, chatID, ui.RenderWordCard(explanation.Word, explanation.HTML), keyboard); err != nil {
		logger.Error("failed to send explanation", "user_id", userID, "word", explanation.Word, "error", err)
	}
}

func (h *Handler) handleSave(ctx context.Context, b *bot.Bot, query *models.CallbackQuery, answer answerFunc, token string) {
	userID := query.From.ID
	entry, ok := h.pending.Take(token, userID)
	if !ok {
		answer("This word has expired. Send it again to save it.", true)
		return
	}

	if _, err := h.store.AddWord(ctx, userID, entry.Explanation.Word, entry.Explanation.HTML, nil); err != nil {
		logger.Error("failed to save word", "user_id", userID, "word", entry.Explanation.Word, "error", err)
		h.pending.Restore(token, entry)
		answer("Failed to save the word. Please try again.", true)
		return
	}
	logger.Info("word saved", "user_id", userID, "word", entry.Explanation.Word)
	answer("Word saved!", false)

	msg, ok := accessibleMessage(query)
	if !ok {
		return
	}
	if _, err := b.EditMessageReplyMarkup(ctx, &bot.EditMessageReplyMarkupParams{
		ChatID:      msg.Chat.ID,
		MessageID:   msg.ID,
		ReplyMarkup: ui.RenderSavedKeyboard(),
	}); err != nil {
		logger.Error("failed to mark word as saved", "user_id", userID, "error", err)
	}
}
