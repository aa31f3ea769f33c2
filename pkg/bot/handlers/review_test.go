package handlers

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/smith3v/tg-word-keeper/pkg/db"
)

func TestHandleRandom(t *testing.T) {
	env := newTestEnv(t)

	env.handler.HandleRandom(context.Background(), env.bot, newTestUpdate("/random", 500))
	if got := env.client.lastMessageText(t); got != emptyDictionaryHint {
		t.Fatalf("expected empty hint, got %q", got)
	}

	env.addWord(t, 500, "hola", "hello")
	env.handler.HandleRandom(context.Background(), env.bot, newTestUpdate("/random", 500))

	got := env.client.lastMessageText(t)
	if !strings.Contains(got, "<b>HOLA</b>") || !strings.Contains(got, "Added: 2026-10-15") {
		t.Fatalf("unexpected random word message %q", got)
	}
}

func TestHandleStats(t *testing.T) {
	env := newTestEnv(t)
	env.addWord(t, 500, "hola", "hello")
	env.clock.Advance(48 * time.Hour)
	env.addWord(t, 500, "adios", "bye")

	env.handler.HandleStats(context.Background(), env.bot, newTestUpdate("/stats", 500))

	got := env.client.lastMessageText(t)
	for _, want := range []string{"Total words: 2", "First word: 2026-10-15", "Latest word: 2026-10-17"} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in stats, got %q", want, got)
		}
	}
}

func TestHandleReviewMarksDeliveredWords(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.handler.HandleReview(ctx, env.bot, newTestUpdate("/review", 500))
	if got := env.client.lastMessageText(t); !strings.Contains(got, "Nothing to review") {
		t.Fatalf("expected empty review, got %q", got)
	}

	env.addWord(t, 500, "hola", "hello")
	env.addWord(t, 500, "adios", "bye")

	sentBefore := env.client.countRequests("sendMessage")
	env.handler.HandleReview(ctx, env.bot, newTestUpdate("/review", 500))
	if sent := env.client.countRequests("sendMessage") - sentBefore; sent != 3 {
		t.Fatalf("expected header plus two words, got %d messages", sent)
	}

	due, err := env.store.WordsDueForReview(ctx, 500, db.DefaultReviewDays)
	if err != nil {
		t.Fatalf("failed to load due words: %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("expected delivered words to be marked reviewed, got %d due", len(due))
	}

	env.handler.HandleReview(ctx, env.bot, newTestUpdate("/review", 500))
	if got := env.client.lastMessageText(t); !strings.Contains(got, "Nothing to review") {
		t.Fatalf("expected reviewed words to rest, got %q", got)
	}

	env.clock.Advance(8 * 24 * time.Hour)
	due, err = env.store.WordsDueForReview(ctx, 500, db.DefaultReviewDays)
	if err != nil {
		t.Fatalf("failed to load due words: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("expected words to be due again after a week, got %d", len(due))
	}
}

func TestHandleSubscribeToggles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.handler.HandleSubscribe(ctx, env.bot, newTestUpdate("/subscribe", 600))
	subscribed, err := env.store.ListSubscribed(ctx)
	if err != nil {
		t.Fatalf("failed to list subscribed users: %v", err)
	}
	if len(subscribed) != 1 || subscribed[0] != 600 {
		t.Fatalf("expected user 600 to be subscribed, got %v", subscribed)
	}
	if got := env.client.lastMessageText(t); !strings.Contains(got, "Subscription is on") {
		t.Fatalf("unexpected subscribe reply %q", got)
	}

	env.handler.HandleUnsubscribe(ctx, env.bot, newTestUpdate("/unsubscribe", 600))
	subscribed, err = env.store.ListSubscribed(ctx)
	if err != nil {
		t.Fatalf("failed to list subscribed users: %v", err)
	}
	if len(subscribed) != 0 {
		t.Fatalf("expected no subscribers, got %v", subscribed)
	}
}
