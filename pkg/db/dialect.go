package db

import (
	"strings"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// Dialect holds every SQL fragment that differs between the client/server
// engine and the embedded one. Queries are written with `?` placeholders and
// passed through Rebind right before execution.
type Dialect interface {
	Name() string
	// DriverName is the database/sql driver the handles are opened with.
	DriverName() string
	Rebind(query string) string
	Bool(v bool) string
	// LimitOffset returns the paging clause; without a limit only the offset
	// placeholder is bound.
	LimitOffset(limited bool) string

	// InsertUserIfAbsent binds user_id, username, first_name, created_at.
	InsertUserIfAbsent() string
	// UpsertWord binds user_id, word, definition, context, created_at and
	// replaces definition, context and created_at on identity conflict.
	UpsertWord() string
	// ReturnsInsertedID reports whether UpsertWord yields the row id.
	ReturnsInsertedID() bool
	RandomOrder() string
	// ReviewDue is a predicate on column binding the current time and the
	// minimum number of days since the last review.
	ReviewDue(column string) string
	// ContainsFold is a case-insensitive LIKE on column binding one escaped
	// pattern.
	ContainsFold(column string) string

	CreateUsersTable() string
	CreateWordsTable() string
	AddSubscriptionColumn() string

	IsDuplicateColumn(err error) bool
	IsConstraintViolation(err error) bool
}

// DetectDialect maps a configured database location to its dialect.
func DetectDialect(url string) Dialect {
	if isPostgresURL(url) {
		return postgresDialect{}
	}
	return sqliteDialect{}
}

func isPostgresURL(url string) bool {
	lower := strings.ToLower(strings.TrimSpace(url))
	return strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a LIKE pattern matching value anywhere, with
// wildcards in value taken literally.
func containsPattern(value string) string {
	return "%" + likeEscaper.Replace(value) + "%"
}

const createWordsByDateIndex = `CREATE INDEX IF NOT EXISTS idx_user_words ON words (user_id, created_at DESC)`

const createWordIdentityIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_words_user_word ON words (user_id, lower(word))`

const wordIdentityIndex = "idx_words_user_word"

// removeDuplicateWords keeps the most recently inserted row of each
// (user, case-folded headword) group.
const removeDuplicateWords = `DELETE FROM words WHERE id NOT IN (
	SELECT MAX(id) FROM words GROUP BY user_id, lower(word)
)`
