package db

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// sqliteDriverName is mattn/go-sqlite3 with lower() replaced by a Unicode
// aware fold, so that headword identity holds for non-Latin scripts.
const sqliteDriverName = "sqlite3_vocab"

func init() {
	sql.Register(sqliteDriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("lower", sqlLower, true)
		},
	})
}

// sqlLower mirrors the built-in lower(): NULL stays NULL and only text is
// folded.
func sqlLower(value interface{}) interface{} {
	switch v := value.(type) {
	case string:
		return foldCase(v)
	case []byte:
		return foldCase(string(v))
	default:
		return v
	}
}

func foldCase(s string) string {
	// A Caser keeps state between calls.
	return cases.Lower(language.Und).String(s)
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string       { return DialectSQLite }
func (sqliteDialect) DriverName() string { return sqliteDriverName }

func (sqliteDialect) Rebind(query string) string {
	return sqlx.Rebind(sqlx.QUESTION, query)
}

func (sqliteDialect) Bool(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func (sqliteDialect) LimitOffset(limited bool) string {
	if limited {
		return " LIMIT ? OFFSET ?"
	}
	return " LIMIT -1 OFFSET ?"
}

func (sqliteDialect) InsertUserIfAbsent() string {
	return `INSERT OR IGNORE INTO users (user_id, username, first_name, is_subscribed, created_at)
VALUES (?, ?, ?, 0, ?)`
}

func (sqliteDialect) UpsertWord() string {
	return `INSERT INTO words (user_id, word, definition, context, created_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (user_id, lower(word)) DO UPDATE
SET definition = excluded.definition, context = excluded.context, created_at = excluded.created_at`
}

// ReturnsInsertedID is false: last_insert_rowid() is stale when the upsert
// takes the update path, so the store re-reads the id by identity.
func (sqliteDialect) ReturnsInsertedID() bool { return false }

func (sqliteDialect) RandomOrder() string { return "RANDOM()" }

func (sqliteDialect) ReviewDue(column string) string {
	return "(" + column + " IS NULL OR julianday(?) - julianday(" + column + ") >= ?)"
}

func (sqliteDialect) ContainsFold(column string) string {
	return "lower(" + column + `) LIKE lower(?) ESCAPE '\'`
}

func (sqliteDialect) CreateUsersTable() string {
	return `CREATE TABLE IF NOT EXISTS users (
	user_id INTEGER PRIMARY KEY,
	username TEXT,
	first_name TEXT,
	is_subscribed BOOLEAN NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`
}

func (sqliteDialect) CreateWordsTable() string {
	return `CREATE TABLE IF NOT EXISTS words (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	word TEXT NOT NULL,
	definition TEXT NOT NULL,
	context TEXT,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	last_reviewed TIMESTAMP,
	FOREIGN KEY (user_id) REFERENCES users (user_id)
)`
}

func (sqliteDialect) AddSubscriptionColumn() string {
	return `ALTER TABLE users ADD COLUMN is_subscribed BOOLEAN NOT NULL DEFAULT 0`
}

func (sqliteDialect) IsDuplicateColumn(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return strings.Contains(sqliteErr.Error(), "duplicate column name")
}

func (sqliteDialect) IsConstraintViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
}
