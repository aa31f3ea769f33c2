package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/smith3v/tg-word-keeper/pkg/config"
	"github.com/smith3v/tg-word-keeper/pkg/db"
	"github.com/smith3v/tg-word-keeper/pkg/logger"
)

type migrateOptions struct {
	From     string
	To       string
	DryRun   bool
	LogLevel string
}

type source interface {
	ListAllUsers(ctx context.Context) ([]db.User, error)
	ExportWords(ctx context.Context, userID int64) ([]db.Word, error)
}

type target interface {
	RestoreUser(ctx context.Context, u db.User) error
	RestoreWord(ctx context.Context, w db.Word) (bool, error)
}

type migrationStats struct {
	Users        int
	Words        int
	WordsSkipped int
}

func runMigrate(ctx context.Context, out io.Writer, opts migrateOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := logger.Configure(logger.Options{Level: opts.LogLevel}); err != nil {
		return err
	}
	if strings.TrimSpace(opts.From) == "" {
		return errors.New("--from is required")
	}
	if !opts.DryRun && strings.TrimSpace(opts.To) == "" {
		return errors.New("--to is required unless --dry-run is set")
	}
	if !opts.DryRun && opts.From == opts.To {
		return errors.New("source and target are the same database")
	}

	src, err := db.OpenReadOnly(ctx, config.DatabaseConfig{URL: opts.From, LogLevel: "silent"})
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer src.Close()

	var dst target
	if !opts.DryRun {
		store, err := db.Open(ctx, config.DatabaseConfig{URL: opts.To, LogLevel: "silent"})
		if err != nil {
			return fmt.Errorf("open target: %w", err)
		}
		defer store.Close()
		dst = store
	}

	stats, err := copyVocabulary(ctx, src, dst)
	if err != nil {
		return err
	}

	if opts.DryRun {
		fmt.Fprintf(out, "Dry run: would copy %d users and %d words\n", stats.Users, stats.Words)
		return nil
	}
	fmt.Fprintf(out, "Copied %d users and %d words (%d words already present)\n",
		stats.Users, stats.Words, stats.WordsSkipped)
	return nil
}

// copyVocabulary copies users first so every word has its owner. A nil dst
// only counts.
func copyVocabulary(ctx context.Context, src source, dst target) (migrationStats, error) {
	var stats migrationStats

	users, err := src.ListAllUsers(ctx)
	if err != nil {
		return stats, fmt.Errorf("list users: %w", err)
	}

	for _, u := range users {
		if dst != nil {
			if err := dst.RestoreUser(ctx, u); err != nil {
				return stats, fmt.Errorf("restore user %d: %w", u.UserID, err)
			}
		}
		stats.Users++

		words, err := src.ExportWords(ctx, u.UserID)
		if err != nil {
			return stats, fmt.Errorf("list words of user %d: %w", u.UserID, err)
		}
		for _, w := range words {
			if dst == nil {
				stats.Words++
				continue
			}
			inserted, err := dst.RestoreWord(ctx, w)
			if err != nil {
				return stats, fmt.Errorf("restore word %q of user %d: %w", w.Word, u.UserID, err)
			}
			if inserted {
				stats.Words++
			} else {
				stats.WordsSkipped++
			}
		}
		logger.Debug("user migrated", "user_id", u.UserID, "words", len(words))
	}
	return stats, nil
}
