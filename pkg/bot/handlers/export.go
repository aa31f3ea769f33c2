package handlers

import (
	"bytes"
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tg-word-keeper/pkg/bot/importexport"
	"github.com/smith3v/tg-word-keeper/pkg/logger"
)

func (h *Handler) HandleExport(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !validMessage(update) {
		logger.Error("invalid update in HandleExport")
		return
	}
	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	if update.Message.Chat.Type != "" && update.Message.Chat.Type != models.ChatTypePrivate {
		h.sendText(ctx, b, chatID, "The /export command works only in private chat.")
		return
	}

	words, err := h.store.ExportWords(ctx, userID)
	if err != nil {
		logger.Error("failed to fetch words for export", "user_id", userID, "error", err)
		h.sendText(ctx, b, chatID, "Failed to export your vocabulary. Please try again later.")
		return
	}
	if len(words) == 0 {
		h.sendText(ctx, b, chatID, "You have no vocabulary to export.")
		return
	}

	importexport.SortWordsForExport(words)
	data, err := importexport.BuildExportCSV(words)
	if err != nil {
		logger.Error("failed to build export CSV", "user_id", userID, "error", err)
		h.sendText(ctx, b, chatID, "Failed to export your vocabulary. Please try again later.")
		return
	}

	_, err = b.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID: chatID,
		Document: &models.InputFileUpload{
			Filename: importexport.ExportFilename(h.now()),
			Data:     bytes.NewReader(data),
		},
		Caption: fmt.Sprintf("Your vocabulary export (%d words).", len(words)),
	})
	if err != nil {
		logger.Error("failed to send export document", "user_id", userID, "error", err)
		h.sendText(ctx, b, chatID, "Failed to export your vocabulary. Please try again later.")
	}
}
