package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const (
	wordColumns = `id, user_id, word, definition, context, created_at, last_reviewed`

	// DefaultReviewDays is the minimum age of the last review for a word to
	// be due again.
	DefaultReviewDays = 7
	// ReviewSampleSize caps one review round.
	ReviewSampleSize = 10
)

const restoreWordQuery = `INSERT INTO words (user_id, word, definition, context, created_at, last_reviewed)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (user_id, lower(word)) DO NOTHING`

// AddWord stores a word for the user and returns its id. Re-adding a
// headword that differs only in case updates the existing row in place:
// definition and context are replaced, created_at is reset and the original
// id is returned. The owning user row is created first in the same
// transaction.
func (s *Store) AddWord(ctx context.Context, userID int64, word, definition string, wordContext *string) (int64, error) {
	word = strings.TrimSpace(word)
	if word == "" {
		return 0, newStoreError(ErrInvalidInput, "add word", errors.New("headword is empty"))
	}

	now := s.timestamp()
	var id int64
	err := s.provider.WithTx(ctx, func(q Queryer) error {
		if _, err := s.exec(ctx, q, s.dialect.InsertUserIfAbsent(), userID, nil, nil, now); err != nil {
			return err
		}
		if s.dialect.ReturnsInsertedID() {
			return s.get(ctx, q, &id, s.dialect.UpsertWord(), userID, word, definition, wordContext, now)
		}
		if _, err := s.exec(ctx, q, s.dialect.UpsertWord(), userID, word, definition, wordContext, now); err != nil {
			return err
		}
		return s.get(ctx, q, &id, `SELECT id FROM words WHERE user_id = ? AND lower(word) = lower(?)`, userID, word)
	})
	if err != nil {
		return 0, s.wrap("add word", err)
	}
	return id, nil
}

// GetWord returns nil without error when no word has the id.
func (s *Store) GetWord(ctx context.Context, id int64) (*Word, error) {
	var w Word
	err := s.provider.WithHandle(ctx, func(q Queryer) error {
		return s.get(ctx, q, &w, `SELECT `+wordColumns+` FROM words WHERE id = ?`, id)
	})
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, s.wrap("get word", err)
	}
	return &w, nil
}

// ListWords returns the user's words, newest first.
func (s *Store) ListWords(ctx context.Context, userID int64, page Page) ([]Word, error) {
	if page.Limit < 0 || page.Offset < 0 {
		return nil, newStoreError(ErrInvalidInput, "list words",
			fmt.Errorf("limit %d and offset %d must not be negative", page.Limit, page.Offset))
	}

	query := `SELECT ` + wordColumns + ` FROM words WHERE user_id = ?
ORDER BY created_at DESC, id DESC` + s.dialect.LimitOffset(page.Limit > 0)
	args := []interface{}{userID}
	if page.Limit > 0 {
		args = append(args, page.Limit)
	}
	args = append(args, page.Offset)

	var words []Word
	err := s.provider.WithHandle(ctx, func(q Queryer) error {
		return s.selectRows(ctx, q, &words, query, args...)
	})
	if err != nil {
		return nil, s.wrap("list words", err)
	}
	return words, nil
}

// ExportWords returns the whole collection of a user, newest first.
func (s *Store) ExportWords(ctx context.Context, userID int64) ([]Word, error) {
	return s.ListWords(ctx, userID, Page{})
}

// SearchWords matches query case-insensitively anywhere in the headword or
// the definition. An empty query matches every word.
func (s *Store) SearchWords(ctx context.Context, userID int64, query string) ([]Word, error) {
	pattern := containsPattern(query)
	stmt := `SELECT ` + wordColumns + ` FROM words WHERE user_id = ? AND (` +
		s.dialect.ContainsFold("word") + ` OR ` + s.dialect.ContainsFold("definition") +
		`) ORDER BY created_at DESC, id DESC`

	var words []Word
	err := s.provider.WithHandle(ctx, func(q Queryer) error {
		return s.selectRows(ctx, q, &words, stmt, userID, pattern, pattern)
	})
	if err != nil {
		return nil, s.wrap("search words", err)
	}
	return words, nil
}

// RandomWord returns nil without error when the user has no words.
func (s *Store) RandomWord(ctx context.Context, userID int64) (*Word, error) {
	var w Word
	err := s.provider.WithHandle(ctx, func(q Queryer) error {
		return s.get(ctx, q, &w, `SELECT `+wordColumns+` FROM words WHERE user_id = ? ORDER BY `+
			s.dialect.RandomOrder()+` LIMIT 1`, userID)
	})
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, s.wrap("random word", err)
	}
	return &w, nil
}

// MarkReviewed stamps the word with the current time. Ownership is not
// checked.
func (s *Store) MarkReviewed(ctx context.Context, id int64) error {
	err := s.provider.WithTx(ctx, func(q Queryer) error {
		_, err := s.exec(ctx, q, `UPDATE words SET last_reviewed = ? WHERE id = ?`, s.timestamp(), id)
		return err
	})
	return s.wrap("mark reviewed", err)
}

// DeleteWord removes word id only when it belongs to userID. It reports
// false, not an error, when nothing matched.
func (s *Store) DeleteWord(ctx context.Context, id, userID int64) (bool, error) {
	var affected int64
	err := s.provider.WithTx(ctx, func(q Queryer) error {
		var err error
		affected, err = s.exec(ctx, q, `DELETE FROM words WHERE id = ? AND user_id = ?`, id, userID)
		return err
	})
	if err != nil {
		return false, s.wrap("delete word", err)
	}
	return affected > 0, nil
}

func (s *Store) UserStats(ctx context.Context, userID int64) (Stats, error) {
	var row struct {
		Total int64    `db:"total"`
		First nullTime `db:"first_at"`
		Last  nullTime `db:"last_at"`
	}
	err := s.provider.WithHandle(ctx, func(q Queryer) error {
		return s.get(ctx, q, &row, `SELECT COUNT(*) AS total, MIN(created_at) AS first_at, MAX(created_at) AS last_at
FROM words WHERE user_id = ?`, userID)
	})
	if err != nil {
		return Stats{}, s.wrap("user stats", err)
	}
	return Stats{
		TotalWords:    row.Total,
		FirstWordDate: row.First.ptr(),
		LastWordDate:  row.Last.ptr(),
	}, nil
}

// WordsDueForReview returns up to ReviewSampleSize randomly chosen words that
// were never reviewed or were last reviewed at least days ago.
func (s *Store) WordsDueForReview(ctx context.Context, userID int64, days int) ([]Word, error) {
	if days < 0 {
		return nil, newStoreError(ErrInvalidInput, "words due for review",
			fmt.Errorf("days must not be negative, got %d", days))
	}

	query := `SELECT ` + wordColumns + ` FROM words WHERE user_id = ? AND ` +
		s.dialect.ReviewDue("last_reviewed") + ` ORDER BY ` + s.dialect.RandomOrder() + ` LIMIT ?`

	var words []Word
	err := s.provider.WithHandle(ctx, func(q Queryer) error {
		return s.selectRows(ctx, q, &words, query, userID, s.timestamp(), days, ReviewSampleSize)
	})
	if err != nil {
		return nil, s.wrap("words due for review", err)
	}
	return words, nil
}

const pageSummaryQuery = `WITH page AS (
	SELECT id, word, created_at FROM words WHERE user_id = ?
	ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?
)
SELECT (SELECT COUNT(*) FROM words WHERE user_id = ?) AS total, page.id AS id, page.word AS word
FROM (SELECT 1 AS anchor) AS base
LEFT JOIN page ON 1 = 1
ORDER BY page.created_at DESC, page.id DESC`

// PageSummary returns the total word count together with one page of
// (id, word) pairs in a single round trip. The total is reported even when
// the page is past the end.
func (s *Store) PageSummary(ctx context.Context, userID int64, limit, offset int) (PageSummary, error) {
	if limit < 1 || offset < 0 {
		return PageSummary{}, newStoreError(ErrInvalidInput, "page summary",
			fmt.Errorf("limit %d must be positive and offset %d not negative", limit, offset))
	}

	var rows []struct {
		Total int64          `db:"total"`
		ID    sql.NullInt64  `db:"id"`
		Word  sql.NullString `db:"word"`
	}
	err := s.provider.WithHandle(ctx, func(q Queryer) error {
		return s.selectRows(ctx, q, &rows, pageSummaryQuery, userID, limit, offset, userID)
	})
	if err != nil {
		return PageSummary{}, s.wrap("page summary", err)
	}

	summary := PageSummary{Words: make([]WordRef, 0, len(rows))}
	for _, row := range rows {
		summary.Total = row.Total
		if row.ID.Valid {
			summary.Words = append(summary.Words, WordRef{ID: row.ID.Int64, Word: row.Word.String})
		}
	}
	return summary, nil
}

// RestoreWord copies a word from another database. An existing word with the
// same identity wins; the return value reports whether a row was inserted.
func (s *Store) RestoreWord(ctx context.Context, w Word) (bool, error) {
	createdAt := w.CreatedAt.UTC()
	if w.CreatedAt.IsZero() {
		createdAt = s.timestamp()
	}
	var lastReviewed interface{}
	if w.LastReviewed != nil {
		lastReviewed = w.LastReviewed.UTC()
	}

	var affected int64
	err := s.provider.WithTx(ctx, func(q Queryer) error {
		var err error
		affected, err = s.exec(ctx, q, restoreWordQuery, w.UserID, w.Word, w.Definition, w.Context, createdAt, lastReviewed)
		return err
	})
	if err != nil {
		return false, s.wrap("restore word", err)
	}
	return affected > 0, nil
}
