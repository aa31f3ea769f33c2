package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/smith3v/tg-word-keeper/pkg/config"
	"github.com/smith3v/tg-word-keeper/pkg/db"
)

// SetupTestStore opens a store on a fresh SQLite file that is removed with
// the test's temp dir.
func SetupTestStore(t *testing.T, opts ...db.Option) *db.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vocabulary.db")
	store, err := db.Open(context.Background(), config.DatabaseConfig{URL: path, LogLevel: "silent"}, opts...)
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}

	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("failed to close test store: %v", err)
		}
	})
	return store
}

func StringPtr(value string) *string {
	return &value
}
