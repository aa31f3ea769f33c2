package pending

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/smith3v/tg-word-keeper/pkg/explain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore(ttl time.Duration) (*Store, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)}
	return NewStore(ttl, clock.Now), clock
}

func TestPutAndTake(t *testing.T) {
	store, _ := newTestStore(time.Hour)
	token := store.Put(42, explain.Explanation{Word: "serendipity", HTML: "<b>luck</b>"})
	if len(token) != 20 {
		t.Fatalf("expected 20 character token, got %q", token)
	}
	if len("save:"+token) > 64 {
		t.Fatalf("callback data would exceed Telegram limit")
	}

	entry, ok := store.Take(token, 42)
	if !ok {
		t.Fatalf("expected entry to be found")
	}
	if entry.Explanation.Word != "serendipity" || entry.UserID != 42 {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if _, ok := store.Take(token, 42); ok {
		t.Fatalf("expected entry to be consumed")
	}
}

func TestTakeRejectsOtherUser(t *testing.T) {
	store, _ := newTestStore(time.Hour)
	token := store.Put(1, explain.Explanation{Word: "кот"})

	if _, ok := store.Take(token, 2); ok {
		t.Fatalf("expected other user to be rejected")
	}
	if _, ok := store.Take(token, 1); !ok {
		t.Fatalf("expected owner to still take the entry")
	}
}

func TestTakeExpired(t *testing.T) {
	store, clock := newTestStore(time.Hour)
	token := store.Put(1, explain.Explanation{Word: "word"})
	clock.Advance(time.Hour)

	if _, ok := store.Take(token, 1); ok {
		t.Fatalf("expected expired entry to be rejected")
	}
	if store.Len() != 0 {
		t.Fatalf("expected expired entry to be dropped")
	}
}

func TestRestore(t *testing.T) {
	store, _ := newTestStore(time.Hour)
	token := store.Put(1, explain.Explanation{Word: "word"})
	entry, ok := store.Take(token, 1)
	if !ok {
		t.Fatalf("expected entry")
	}
	store.Restore(token, entry)
	if _, ok := store.Take(token, 1); !ok {
		t.Fatalf("expected restored entry to be taken again")
	}
}

func TestSweep(t *testing.T) {
	store, clock := newTestStore(time.Hour)
	store.Put(1, explain.Explanation{Word: "old"})
	clock.Advance(30 * time.Minute)
	fresh := store.Put(1, explain.Explanation{Word: "fresh"})
	clock.Advance(30 * time.Minute)

	if removed := store.Sweep(); removed != 1 {
		t.Fatalf("expected 1 removed entry, got %d", removed)
	}
	if _, ok := store.Take(fresh, 1); !ok {
		t.Fatalf("expected fresh entry to survive the sweep")
	}
}

func TestStartSweeperStopsOnCancel(t *testing.T) {
	store, _ := newTestStore(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		store.StartSweeper(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("sweeper did not stop after cancel")
	}
}

func TestNewStoreDefaults(t *testing.T) {
	store := NewStore(0, nil)
	if store.ttl != DefaultTTL {
		t.Fatalf("expected default ttl, got %v", store.ttl)
	}
	if store.now == nil {
		t.Fatalf("expected default clock")
	}
}
