// Package pending keeps explanations offered to a user until they either
// save them or the offer expires.
package pending

import (
	"context"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/smith3v/tg-word-keeper/pkg/explain"
	"github.com/smith3v/tg-word-keeper/pkg/logger"
)

const (
	DefaultTTL      = 24 * time.Hour
	SweeperInterval = 10 * time.Minute
)

// Entry is an explanation waiting for the save button.
type Entry struct {
	UserID      int64
	Explanation explain.Explanation
	createdAt   time.Time
}

// Store maps callback tokens to offered explanations.
type Store struct {
	mu      sync.Mutex
	entries map[string]Entry
	ttl     time.Duration
	now     func() time.Time
}

func NewStore(ttl time.Duration, now func() time.Time) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Store{
		entries: make(map[string]Entry),
		ttl:     ttl,
		now:     now,
	}
}

// Put records an offer and returns the token to embed in callback data.
func (s *Store) Put(userID int64, explanation explain.Explanation) string {
	token := xid.New().String()
	s.mu.Lock()
	s.entries[token] = Entry{
		UserID:      userID,
		Explanation: explanation,
		createdAt:   s.now(),
	}
	s.mu.Unlock()
	return token
}

// Take removes and returns the offer for token. Offers made to another user
// are left in place.
func (s *Store) Take(token string, userID int64) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[token]
	if !ok || entry.UserID != userID {
		return Entry{}, false
	}
	delete(s.entries, token)
	if s.expired(entry, s.now()) {
		return Entry{}, false
	}
	return entry, true
}

// Restore puts back an entry returned by Take, e.g. after a failed save.
func (s *Store) Restore(token string, entry Entry) {
	s.mu.Lock()
	s.entries[token] = entry
	s.mu.Unlock()
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// StartSweeper drops expired offers until ctx is cancelled.
func (s *Store) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = SweeperInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.Sweep(); removed > 0 {
				logger.Debug("expired pending explanations removed", "count", removed)
			}
		}
	}
}

func (s *Store) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for token, entry := range s.entries {
		if s.expired(entry, now) {
			delete(s.entries, token)
			removed++
		}
	}
	return removed
}

func (s *Store) expired(entry Entry, now time.Time) bool {
	return now.Sub(entry.createdAt) >= s.ttl
}
