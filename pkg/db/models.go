package db

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
)

type User struct {
	UserID       int64     `db:"user_id"`
	Username     *string   `db:"username"`
	FirstName    *string   `db:"first_name"`
	IsSubscribed bool      `db:"is_subscribed"`
	CreatedAt    time.Time `db:"created_at"`
}

type Word struct {
	ID           int64      `db:"id"`
	UserID       int64      `db:"user_id"`
	Word         string     `db:"word"`
	Definition   string     `db:"definition"`
	Context      *string    `db:"context"`
	CreatedAt    time.Time  `db:"created_at"`
	LastReviewed *time.Time `db:"last_reviewed"`
}

// Stats dates are nil when the collection is empty.
type Stats struct {
	TotalWords    int64
	FirstWordDate *time.Time
	LastWordDate  *time.Time
}

type WordRef struct {
	ID   int64
	Word string
}

type PageSummary struct {
	Total int64
	Words []WordRef
}

// Page bounds a listing. A zero Limit means no limit.
type Page struct {
	Limit  int
	Offset int
}

// nullTime scans timestamps whose column type was lost on the way out, as
// happens with SQLite aggregates.
type nullTime struct {
	Time  time.Time
	Valid bool
}

func (n *nullTime) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*n = nullTime{}
		return nil
	case time.Time:
		*n = nullTime{Time: v, Valid: true}
		return nil
	case string:
		return n.parse(v)
	case []byte:
		return n.parse(string(v))
	default:
		return fmt.Errorf("unsupported timestamp value %T", value)
	}
}

func (n *nullTime) parse(value string) error {
	value = strings.TrimSuffix(strings.TrimSpace(value), "Z")
	for _, layout := range sqlite3.SQLiteTimestampFormats {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			*n = nullTime{Time: t, Valid: true}
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", value)
}

func (n nullTime) ptr() *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time
	return &t
}
