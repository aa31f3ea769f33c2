package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/smith3v/tg-word-keeper/pkg/logger"
)

const (
	PoolMinConns = 2
	PoolMaxConns = 20

	sqliteBusyTimeout = 5 * time.Second
)

// Options selects and tunes the backing database.
type Options struct {
	// URL is a postgres:// (or postgresql://) URL, otherwise a SQLite file path.
	URL      string
	LogLevel string
	// ReadOnly opens an existing database without the ability to change it.
	// SQLite files are opened with mode=ro and must already exist; postgres
	// sessions default to read-only transactions.
	ReadOnly bool
}

// Queryer is the part of a handle or transaction the store issues SQL through.
type Queryer interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Handle is one acquired connection. It must be given back with Release.
type Handle struct {
	conn     *sqlx.Conn
	released bool
}

func (h *Handle) Queryer() Queryer {
	return h.conn
}

// Provider hands out connections for the selected dialect. Postgres handles
// come from a pgx pool; SQLite handles are fresh file handles closed on
// release.
type Provider struct {
	dialect Dialect
	gorm    *gorm.DB
	sqlDB   *sql.DB
	db      *sqlx.DB
	pool    *pgxpool.Pool
	tracer  *queryLogger
}

func OpenProvider(ctx context.Context, opts Options) (*Provider, error) {
	url := strings.TrimSpace(opts.URL)
	if url == "" {
		url = "vocabulary.db"
	}

	tracer, levelErr := newQueryLogger(opts.LogLevel)
	if levelErr != nil {
		logger.Warn("invalid query log level, using default", "error", levelErr)
	}

	dialect := DetectDialect(url)
	tracer.dialect = dialect.Name()
	gormConfig := &gorm.Config{Logger: tracer}

	var (
		gdb  *gorm.DB
		pool *pgxpool.Pool
		err  error
	)
	switch dialect.Name() {
	case DialectPostgres:
		gdb, pool, err = openPostgres(ctx, url, opts.ReadOnly, gormConfig)
	default:
		gdb, err = openSQLite(ctx, url, opts.ReadOnly, gormConfig)
	}
	if err != nil {
		return nil, err
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		if pool != nil {
			pool.Close()
		}
		return nil, newStoreError(ErrConnection, "open", err)
	}

	p := newProvider(dialect, sqlDB, gdb, tracer)
	p.pool = pool
	logger.Info("database connection opened", "dialect", dialect.Name(), "read_only", opts.ReadOnly)
	return p, nil
}

func newProvider(dialect Dialect, sqlDB *sql.DB, gdb *gorm.DB, tracer *queryLogger) *Provider {
	return &Provider{
		dialect: dialect,
		gorm:    gdb,
		sqlDB:   sqlDB,
		db:      sqlx.NewDb(sqlDB, dialect.DriverName()),
		tracer:  tracer,
	}
}

func openPostgres(ctx context.Context, url string, readOnly bool, gormConfig *gorm.Config) (*gorm.DB, *pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, nil, newStoreError(ErrConnection, "parse postgres url", err)
	}
	poolConfig.MinConns = PoolMinConns
	poolConfig.MaxConns = PoolMaxConns
	if readOnly {
		poolConfig.ConnConfig.RuntimeParams["default_transaction_read_only"] = "on"
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, newStoreError(ErrConnection, "create pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, newStoreError(ErrConnection, "ping postgres", err)
	}

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: stdlib.OpenDBFromPool(pool)}), gormConfig)
	if err != nil {
		pool.Close()
		return nil, nil, newStoreError(ErrConnection, "open postgres", err)
	}
	return gdb, pool, nil
}

func openSQLite(ctx context.Context, path string, readOnly bool, gormConfig *gorm.Config) (*gorm.DB, error) {
	dsn := sqliteDSN(path)
	if readOnly {
		if _, err := os.Stat(path); err != nil {
			return nil, newStoreError(ErrConnection, "open sqlite", err)
		}
		dsn = sqliteReadOnlyDSN(path)
	} else if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, newStoreError(ErrConnection, "create database directory", err)
		}
	}

	gdb, err := gorm.Open(sqlite.New(sqlite.Config{
		DriverName: sqliteDriverName,
		DSN:        dsn,
	}), gormConfig)
	if err != nil {
		return nil, newStoreError(ErrConnection, "open sqlite", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, newStoreError(ErrConnection, "open sqlite", err)
	}
	// Nothing is kept idle: a released handle closes its file handle.
	sqlDB.SetMaxIdleConns(0)
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, newStoreError(ErrConnection, "ping sqlite", err)
	}
	return gdb, nil
}

func sqliteDSN(path string) string {
	return fmt.Sprintf("%s?_busy_timeout=%d&_journal_mode=WAL&_txlock=immediate&_foreign_keys=1",
		path, sqliteBusyTimeout.Milliseconds())
}

// sqliteReadOnlyDSN leaves the journal mode alone, since switching to WAL
// would write to the file.
func sqliteReadOnlyDSN(path string) string {
	return fmt.Sprintf("file:%s?mode=ro&_busy_timeout=%d&_foreign_keys=1",
		path, sqliteBusyTimeout.Milliseconds())
}

func (p *Provider) Dialect() Dialect {
	return p.dialect
}

// Acquire takes a dedicated connection. Failures are reported as
// ErrConnection and never retried.
func (p *Provider) Acquire(ctx context.Context) (*Handle, error) {
	conn, err := p.db.Connx(ctx)
	if err != nil {
		return nil, newStoreError(ErrConnection, "acquire", err)
	}
	return &Handle{conn: conn}, nil
}

func (p *Provider) Release(h *Handle) {
	if h == nil || h.released {
		return
	}
	h.released = true
	if err := h.conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		logger.Warn("failed to release database handle", "dialect", p.dialect.Name(), "error", err)
	}
}

// WithHandle runs fn on an acquired handle and releases it on every path.
func (p *Provider) WithHandle(ctx context.Context, fn func(Queryer) error) error {
	h, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer p.Release(h)
	return fn(h.conn)
}

// WithTx runs fn inside one transaction on an acquired handle. The
// transaction is committed only when fn returns nil; it is rolled back on
// error or panic and the handle is released either way.
func (p *Provider) WithTx(ctx context.Context, fn func(Queryer) error) error {
	h, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer p.Release(h)

	tx, err := h.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			logger.Warn("failed to roll back transaction", "dialect", p.dialect.Name(), "error", rbErr)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}

func (p *Provider) Ping(ctx context.Context) error {
	if err := p.sqlDB.PingContext(ctx); err != nil {
		return newStoreError(ErrConnection, "ping", err)
	}
	return nil
}

func (p *Provider) Close() error {
	err := p.sqlDB.Close()
	if p.pool != nil {
		p.pool.Close()
	}
	return err
}
