// Package broadcast sends subscribed users a suggested word on a schedule.
package broadcast

import (
	"context"
	"errors"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tg-word-keeper/pkg/bot/pending"
	"github.com/smith3v/tg-word-keeper/pkg/db"
	"github.com/smith3v/tg-word-keeper/pkg/explain"
	"github.com/smith3v/tg-word-keeper/pkg/logger"
	"github.com/smith3v/tg-word-keeper/pkg/ui"
)

// ContextWords is how many of the newest saved words steer a suggestion.
const ContextWords = 20

type Store interface {
	ListSubscribed(ctx context.Context) ([]int64, error)
	ListWords(ctx context.Context, userID int64, page db.Page) ([]db.Word, error)
	SetSubscription(ctx context.Context, userID int64, subscribed bool) error
}

// Sender is the part of *bot.Bot the job needs.
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// Result counts the outcome of one broadcast round.
type Result struct {
	Sent         int
	Failed       int
	Unsubscribed int
}

type Job struct {
	store     Store
	explainer explain.Explainer
	pending   *pending.Store
	sender    Sender
	pause     time.Duration
}

func NewJob(store Store, explainer explain.Explainer, pendingStore *pending.Store, sender Sender, pause time.Duration) *Job {
	if pause < 0 {
		pause = 0
	}
	return &Job{
		store:     store,
		explainer: explainer,
		pending:   pendingStore,
		sender:    sender,
		pause:     pause,
	}
}

// Run sends one suggestion to every subscribed user, pausing between
// recipients. Users whose chat is forbidden are unsubscribed.
func (j *Job) Run(ctx context.Context) Result {
	var result Result
	users, err := j.store.ListSubscribed(ctx)
	if err != nil {
		logger.Error("failed to fetch subscribed users", "error", err)
		return result
	}
	logger.Info("broadcast started", "users", len(users))

	for i, userID := range users {
		if ctx.Err() != nil {
			break
		}
		if i > 0 && !sleep(ctx, j.pause) {
			break
		}

		err := j.sendSuggestion(ctx, userID)
		switch {
		case err == nil:
			result.Sent++
		case errors.Is(err, bot.ErrorForbidden):
			result.Failed++
			logger.Warn("chat is forbidden, unsubscribing user", "user_id", userID, "error", err)
			if err := j.store.SetSubscription(ctx, userID, false); err != nil {
				logger.Error("failed to unsubscribe user", "user_id", userID, "error", err)
				continue
			}
			result.Unsubscribed++
		default:
			result.Failed++
			logger.Error("failed to send suggestion", "user_id", userID, "error", err)
		}
	}

	logger.Info("broadcast finished", "sent", result.Sent, "failed", result.Failed, "unsubscribed", result.Unsubscribed)
	return result
}

func (j *Job) sendSuggestion(ctx context.Context, userID int64) error {
	words, err := j.store.ListWords(ctx, userID, db.Page{Limit: ContextWords})
	if err != nil {
		return err
	}
	known := make([]string, 0, len(words))
	for _, w := range words {
		known = append(known, w.Word)
	}

	suggestion, err := j.explainer.Suggest(ctx, known)
	if err != nil {
		return err
	}

	token := j.pending.Put(userID, suggestion)
	keyboard, err := ui.RenderSaveKeyboard(token)
	if err != nil {
		return err
	}
	_, err = j.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      userID,
		Text:        ui.RenderSuggestion(suggestion.Word, suggestion.HTML),
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: keyboard,
	})
	return err
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
