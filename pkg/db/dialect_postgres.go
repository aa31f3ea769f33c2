package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgDuplicateColumn     = "42701"
)

type postgresDialect struct{}

func (postgresDialect) Name() string       { return DialectPostgres }
func (postgresDialect) DriverName() string { return "pgx" }

func (postgresDialect) Rebind(query string) string {
	return sqlx.Rebind(sqlx.DOLLAR, query)
}

func (postgresDialect) Bool(v bool) string {
	if v {
		return "TRUE"
	}
	return "FALSE"
}

func (postgresDialect) LimitOffset(limited bool) string {
	if limited {
		return " LIMIT ? OFFSET ?"
	}
	return " OFFSET ?"
}

func (postgresDialect) InsertUserIfAbsent() string {
	return `INSERT INTO users (user_id, username, first_name, is_subscribed, created_at)
VALUES (?, ?, ?, FALSE, ?)
ON CONFLICT (user_id) DO NOTHING`
}

func (postgresDialect) UpsertWord() string {
	return `INSERT INTO words (user_id, word, definition, context, created_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (user_id, lower(word)) DO UPDATE
SET definition = EXCLUDED.definition, context = EXCLUDED.context, created_at = EXCLUDED.created_at
RETURNING id`
}

func (postgresDialect) ReturnsInsertedID() bool { return true }

func (postgresDialect) RandomOrder() string { return "RANDOM()" }

func (postgresDialect) ReviewDue(column string) string {
	return "(" + column + " IS NULL OR " + column +
		" <= CAST(? AS TIMESTAMPTZ) - make_interval(days => CAST(? AS INTEGER)))"
}

func (postgresDialect) ContainsFold(column string) string {
	return column + ` ILIKE ? ESCAPE '\'`
}

func (postgresDialect) CreateUsersTable() string {
	return `CREATE TABLE IF NOT EXISTS users (
	user_id BIGINT PRIMARY KEY,
	username TEXT,
	first_name TEXT,
	is_subscribed BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
)`
}

func (postgresDialect) CreateWordsTable() string {
	return `CREATE TABLE IF NOT EXISTS words (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL REFERENCES users (user_id),
	word TEXT NOT NULL,
	definition TEXT NOT NULL,
	context TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	last_reviewed TIMESTAMPTZ
)`
}

func (postgresDialect) AddSubscriptionColumn() string {
	return `ALTER TABLE users ADD COLUMN is_subscribed BOOLEAN NOT NULL DEFAULT FALSE`
}

func (postgresDialect) IsDuplicateColumn(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgDuplicateColumn
}

func (postgresDialect) IsConstraintViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgUniqueViolation || pgErr.Code == pgForeignKeyViolation
}
