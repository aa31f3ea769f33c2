package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tg-word-keeper/pkg/format"
	"github.com/smith3v/tg-word-keeper/pkg/logger"
	"github.com/smith3v/tg-word-keeper/pkg/ui"
)

// HandleSearch looks for the text after /search in saved headwords and
// definitions and offers a button per match.
func (h *Handler) HandleSearch(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !validMessage(update) {
		logger.Error("invalid update in HandleSearch")
		return
	}
	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	query := searchQuery(update.Message.Text)
	if query == "" {
		h.sendText(ctx, b, chatID, "Usage: /search <text>")
		return
	}

	words, err := h.store.SearchWords(ctx, userID, query)
	if err != nil {
		logger.Error("failed to search words", "user_id", userID, "error", err)
		h.sendText(ctx, b, chatID, "Failed to search your dictionary. Please try again later.")
		return
	}
	if len(words) == 0 {
		h.sendText(ctx, b, chatID, fmt.Sprintf("🔎 Nothing found for %q.", query))
		return
	}

	text := fmt.Sprintf("🔎 Found %d words for <b>%s</b>:", len(words), format.EscapeHTML(query))
	if len(words) > SearchLimit {
		text += fmt.Sprintf("\nShowing the newest %d.", SearchLimit)
		words = words[:SearchLimit]
	}

	rows := make([][]models.InlineKeyboardButton, 0, len(words))
	for _, w := range words {
		data, err := ui.BuildViewCallback(w.ID)
		if err != nil {
			logger.Error("failed to build view callback", "word_id", w.ID, "error", err)
			continue
		}
		rows = append(rows, []models.InlineKeyboardButton{{Text: "📖 " + w.Word, CallbackData: data}})
	}

	if _, err := h.sendHTML(ctx, b, chatID, text, &models.InlineKeyboardMarkup{InlineKeyboard: rows}); err != nil {
		logger.Error("failed to send search results", "user_id", userID, "error", err)
	}
}

// searchQuery strips the command and an optional @botname suffix.
func searchQuery(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "/search")
	if strings.HasPrefix(text, "@") {
		if i := strings.IndexAny(text, " \t\n"); i >= 0 {
			text = text[i:]
		} else {
			text = ""
		}
	}
	return strings.TrimSpace(text)
}
