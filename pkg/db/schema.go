package db

import (
	"context"

	"gorm.io/gorm"

	"github.com/smith3v/tg-word-keeper/pkg/logger"
)

// EnsureSchema creates the tables and indexes if they are missing and brings
// older databases up to date. It is idempotent and may be called at any
// time, including from liveness probes.
func (s *Store) EnsureSchema(ctx context.Context) error {
	s.schemaMu.Lock()
	defer s.schemaMu.Unlock()

	gdb := s.provider.gorm.WithContext(ctx)
	for _, stmt := range []string{
		s.dialect.CreateUsersTable(),
		s.dialect.CreateWordsTable(),
		createWordsByDateIndex,
	} {
		if err := gdb.Exec(stmt).Error; err != nil {
			return newStoreError(ErrSchemaMigration, "create schema", err)
		}
	}

	if err := s.ensureSubscriptionColumn(gdb); err != nil {
		return err
	}
	return s.ensureWordIdentity(gdb)
}

func (s *Store) ensureSubscriptionColumn(gdb *gorm.DB) error {
	if gdb.Migrator().HasColumn("users", "is_subscribed") {
		return nil
	}
	if err := gdb.Exec(s.dialect.AddSubscriptionColumn()).Error; err != nil {
		if s.dialect.IsDuplicateColumn(err) {
			logger.Debug("subscription column added concurrently")
			return nil
		}
		return newStoreError(ErrSchemaMigration, "add subscription column", err)
	}
	logger.Info("added subscription column to users table")
	return nil
}

// ensureWordIdentity installs the unique (user_id, lower(word)) index the
// upsert relies on. Databases written before the index existed may hold
// case-variant duplicates; only the newest row of each group survives.
func (s *Store) ensureWordIdentity(gdb *gorm.DB) error {
	if gdb.Migrator().HasIndex("words", wordIdentityIndex) {
		return nil
	}
	err := gdb.Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(removeDuplicateWords)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			logger.Warn("removed duplicate words before creating identity index", "rows", res.RowsAffected)
		}
		return tx.Exec(createWordIdentityIndex).Error
	})
	if err != nil {
		return newStoreError(ErrSchemaMigration, "create word identity index", err)
	}
	return nil
}
