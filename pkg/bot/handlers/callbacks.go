package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tg-word-keeper/pkg/logger"
	"github.com/smith3v/tg-word-keeper/pkg/ui"
)

type answerFunc func(text string, alert bool)

// HandleCallback routes every inline button press.
func (h *Handler) HandleCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.CallbackQuery == nil {
		logger.Error("invalid update in HandleCallback")
		return
	}
	query := update.CallbackQuery

	answered := false
	answer := func(text string, alert bool) {
		if answered || query.ID == "" {
			return
		}
		if _, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
			CallbackQueryID: query.ID,
			Text:            text,
			ShowAlert:       alert,
		}); err != nil {
			logger.Error("failed to answer callback query", "error", err)
		}
		answered = true
	}
	defer answer("", false)

	action, err := ui.ParseCallbackData(query.Data)
	if err != nil {
		logger.Error("failed to parse callback", "data", query.Data, "error", err)
		answer("Unknown command", false)
		return
	}

	switch action.Kind {
	case ui.KindNoop:
		return
	case ui.KindSave:
		h.handleSave(ctx, b, query, answer, action.Token)
		return
	}

	msg, ok := accessibleMessage(query)
	if !ok {
		logger.Error("callback query message is inaccessible", "user_id", query.From.ID)
		answer("Message is not available", false)
		return
	}

	switch action.Kind {
	case ui.KindPage:
		page := clampPage(action.Value)
		h.showDictionary(ctx, b, query.From.ID, msg.Chat.ID, msg.ID, page)
	case ui.KindView:
		h.viewWord(ctx, b, query.From.ID, msg.Chat.ID, answer, action.Value)
	case ui.KindDelete:
		h.deleteWord(ctx, b, query.From.ID, msg, answer, action.Value)
	case ui.KindRandom:
		h.showRandom(ctx, b, query.From.ID, msg.Chat.ID, msg.ID, answer)
	case ui.KindStats:
		h.showStats(ctx, b, query.From.ID, msg.Chat.ID, msg.ID)
	}
}

func accessibleMessage(query *models.CallbackQuery) (*models.Message, bool) {
	message := query.Message
	if message.Type != models.MaybeInaccessibleMessageTypeMessage || message.Message == nil {
		return nil, false
	}
	if message.Message.Chat.ID == 0 {
		return nil, false
	}
	return message.Message, true
}

// maxPage keeps page*size inside int range for any decoded page number.
const maxPage = 1 << 24

func clampPage(value int64) int {
	if value > maxPage {
		return maxPage
	}
	return int(value)
}

// editHTML replaces the text of a message sent by the bot. A zero messageID
// sends a new message instead.
func (h *Handler) editHTML(ctx context.Context, b *bot.Bot, chatID int64, messageID int, text string, keyboard *models.InlineKeyboardMarkup) error {
	if messageID == 0 {
		_, err := h.sendHTML(ctx, b, chatID, text, keyboard)
		return err
	}
	params := &bot.EditMessageTextParams{
		ChatID:    chatID,
		MessageID: messageID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}
	_, err := b.EditMessageText(ctx, params)
	return err
}
