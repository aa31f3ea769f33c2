package handlers

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tg-word-keeper/pkg/format"
	"github.com/smith3v/tg-word-keeper/pkg/logger"
)

const commandsText = `<b>Commands:</b>
/dictionary - My dictionary
/random - Random word to review
/review - Words not reviewed for a week
/search &lt;text&gt; - Search my words
/stats - Statistics
/subscribe - Turn on smart words
/unsubscribe - Turn off smart words
/export - Download my words as CSV
/help - Help`

const helpText = `📖 <b>How to use:</b>

1️⃣ Send me a word (for example: "synthesize")
2️⃣ I'll give you a detailed explanation
3️⃣ Press "💾 Save to dictionary" to keep it

` + commandsText + `

<b>Also:</b>
• Words are saved with the date you added them
• Attach a CSV file (word, definition, context) to import words
• Smart words arrive every 3 hours while you are subscribed`

func (h *Handler) HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !validMessage(update) {
		logger.Error("invalid update in HandleStart")
		return
	}
	from := update.Message.From

	if err := h.store.EnsureUser(ctx, from.ID, optionalString(from.Username), optionalString(from.FirstName)); err != nil {
		logger.Error("failed to register user", "user_id", from.ID, "error", err)
	}

	name := from.FirstName
	if name == "" {
		name = "there"
	}
	text := fmt.Sprintf(`👋 Hi, %s!

I'm your personal dictionary with an AI helper.

📚 <b>What I can do:</b>
• Explain words with examples
• Save words to your own dictionary
• Show every saved word
• Send random words for review

<b>How to use:</b>
Just send me any word and I'll explain it!

`, format.EscapeHTML(name)) + commandsText

	if _, err := h.sendHTML(ctx, b, update.Message.Chat.ID, text, nil); err != nil {
		logger.Error("failed to send welcome message", "user_id", from.ID, "error", err)
	}
}

func (h *Handler) HandleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !validMessage(update) {
		logger.Error("invalid update in HandleHelp")
		return
	}
	if _, err := h.sendHTML(ctx, b, update.Message.Chat.ID, helpText, nil); err != nil {
		logger.Error("failed to send help message", "user_id", update.Message.From.ID, "error", err)
	}
}
