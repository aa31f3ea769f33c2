package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/smith3v/tg-word-keeper/pkg/config"
	"github.com/smith3v/tg-word-keeper/pkg/logger"
)

// Store owns every read and write against the users and words tables.
type Store struct {
	provider *Provider
	dialect  Dialect
	now      func() time.Time
	schemaMu sync.Mutex
}

type Option func(*Store)

// WithClock replaces the time source used for created_at and last_reviewed.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func New(provider *Provider, opts ...Option) *Store {
	s := &Store{
		provider: provider,
		dialect:  provider.Dialect(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open connects to the configured database and prepares its schema. A
// schema failure closes the connection and is returned as ErrSchemaMigration.
func Open(ctx context.Context, cfg config.DatabaseConfig, opts ...Option) (*Store, error) {
	provider, err := OpenProvider(ctx, Options{URL: cfg.URL, LogLevel: cfg.LogLevel})
	if err != nil {
		return nil, err
	}
	s := New(provider, opts...)
	if err := s.EnsureSchema(ctx); err != nil {
		provider.Close()
		return nil, err
	}
	logger.Info("database schema ready", "dialect", s.dialect.Name())
	return s, nil
}

// OpenReadOnly connects to an existing database without preparing its
// schema, so older layouts are read as they are and nothing is written.
func OpenReadOnly(ctx context.Context, cfg config.DatabaseConfig, opts ...Option) (*Store, error) {
	provider, err := OpenProvider(ctx, Options{URL: cfg.URL, LogLevel: cfg.LogLevel, ReadOnly: true})
	if err != nil {
		return nil, err
	}
	return New(provider, opts...), nil
}

func (s *Store) Dialect() string {
	return s.dialect.Name()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.provider.Ping(ctx)
}

func (s *Store) Close() error {
	return s.provider.Close()
}

// timestamp is the current time at the precision both engines keep.
func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *Store) get(ctx context.Context, q Queryer, dest interface{}, query string, args ...interface{}) error {
	query = s.dialect.Rebind(query)
	begin := time.Now()
	err := q.GetContext(ctx, dest, query, args...)
	s.trace(ctx, begin, query, 1, err)
	return err
}

func (s *Store) selectRows(ctx context.Context, q Queryer, dest interface{}, query string, args ...interface{}) error {
	query = s.dialect.Rebind(query)
	begin := time.Now()
	err := q.SelectContext(ctx, dest, query, args...)
	s.trace(ctx, begin, query, -1, err)
	return err
}

func (s *Store) exec(ctx context.Context, q Queryer, query string, args ...interface{}) (int64, error) {
	query = s.dialect.Rebind(query)
	begin := time.Now()
	res, err := q.ExecContext(ctx, query, args...)
	var rows int64 = -1
	if err == nil {
		rows, err = res.RowsAffected()
	}
	s.trace(ctx, begin, query, rows, err)
	return rows, err
}

func (s *Store) trace(ctx context.Context, begin time.Time, query string, rows int64, err error) {
	s.provider.tracer.Trace(ctx, begin, func() (string, int64) { return query, rows }, err)
}

// wrap annotates err with op and classifies constraint failures. Errors that
// already carry a kind pass through unchanged.
func (s *Store) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return err
	}
	if s.dialect.IsConstraintViolation(err) {
		return newStoreError(ErrConstraintViolation, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
