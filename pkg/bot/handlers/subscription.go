package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tg-word-keeper/pkg/logger"
)

func (h *Handler) HandleSubscribe(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.setSubscription(ctx, b, update, true,
		"✅ <b>Subscription is on!</b>\n\nI'll send you a new smart word every 3 hours during the day, picked to match your dictionary.")
}

func (h *Handler) HandleUnsubscribe(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.setSubscription(ctx, b, update, false,
		"🔕 <b>Subscription is off.</b>\nI won't send you automatic messages anymore.")
}

func (h *Handler) setSubscription(ctx context.Context, b *bot.Bot, update *models.Update, subscribed bool, reply string) {
	if !validMessage(update) {
		logger.Error("invalid update in setSubscription")
		return
	}
	from := update.Message.From
	chatID := update.Message.Chat.ID

	if err := h.store.EnsureUser(ctx, from.ID, optionalString(from.Username), optionalString(from.FirstName)); err != nil {
		logger.Error("failed to register user", "user_id", from.ID, "error", err)
		h.sendText(ctx, b, chatID, "Failed to update your subscription. Please try again later.")
		return
	}
	if err := h.store.SetSubscription(ctx, from.ID, subscribed); err != nil {
		logger.Error("failed to update subscription", "user_id", from.ID, "subscribed", subscribed, "error", err)
		h.sendText(ctx, b, chatID, "Failed to update your subscription. Please try again later.")
		return
	}
	logger.Info("subscription updated", "user_id", from.ID, "subscribed", subscribed)

	if _, err := h.sendHTML(ctx, b, chatID, reply, nil); err != nil {
		logger.Error("failed to send subscription reply", "user_id", from.ID, "error", err)
	}
}
