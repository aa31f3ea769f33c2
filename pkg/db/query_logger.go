package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/smith3v/tg-word-keeper/pkg/logger"
)

const (
	defaultSlowThreshold = 200 * time.Millisecond
	defaultQueryLogLevel = gormlogger.Warn
)

// queryLogger routes gorm statements and the store's hand-written SQL into
// pkg/logger.
type queryLogger struct {
	slowThreshold time.Duration
	logLevel      gormlogger.LogLevel
	dialect       string
}

func newQueryLogger(levelValue string) (*queryLogger, error) {
	level := defaultQueryLogLevel
	var levelErr error
	if strings.TrimSpace(levelValue) != "" {
		level, levelErr = parseQueryLogLevel(levelValue)
	}
	return &queryLogger{
		slowThreshold: defaultSlowThreshold,
		logLevel:      level,
	}, levelErr
}

func (l *queryLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.logLevel = level
	return &clone
}

func (l *queryLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if !l.enabled(gormlogger.Info) {
		return
	}
	logger.Log(ctx, logger.DEBUG, fmt.Sprintf(msg, data...))
}

func (l *queryLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if !l.enabled(gormlogger.Warn) {
		return
	}
	logger.Log(ctx, logger.WARN, fmt.Sprintf(msg, data...))
}

func (l *queryLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if !l.enabled(gormlogger.Error) {
		return
	}
	logger.Log(ctx, logger.ERROR, fmt.Sprintf(msg, data...))
}

func (l *queryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.logLevel == gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	query, rows := fc()
	query = strings.Join(strings.Fields(query), " ")

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, sql.ErrNoRows) {
			return
		}
		if l.enabled(gormlogger.Error) {
			logger.Log(ctx, logger.ERROR, "sql query error",
				"dialect", l.dialect,
				"elapsed", elapsed,
				"rows", rows,
				"sql", query,
				"error", err,
			)
		}
		return
	}

	if l.slowThreshold > 0 && elapsed > l.slowThreshold {
		if l.enabled(gormlogger.Warn) {
			logger.Log(ctx, logger.WARN, "sql slow query",
				"dialect", l.dialect,
				"elapsed", elapsed,
				"rows", rows,
				"sql", query,
				"threshold", l.slowThreshold,
			)
		}
		return
	}

	if l.enabled(gormlogger.Info) {
		logger.Log(ctx, logger.DEBUG, "sql query",
			"dialect", l.dialect,
			"elapsed", elapsed,
			"rows", rows,
			"sql", query,
		)
	}
}

func (l *queryLogger) enabled(level gormlogger.LogLevel) bool {
	if l.logLevel == gormlogger.Silent || l.logLevel < level {
		return false
	}
	switch level {
	case gormlogger.Info:
		return logger.Enabled(logger.DEBUG)
	case gormlogger.Warn:
		return logger.Enabled(logger.WARN)
	case gormlogger.Error:
		return logger.Enabled(logger.ERROR)
	default:
		return false
	}
}

func parseQueryLogLevel(value string) (gormlogger.LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "silent":
		return gormlogger.Silent, nil
	case "error":
		return gormlogger.Error, nil
	case "warn":
		return gormlogger.Warn, nil
	case "info":
		return gormlogger.Info, nil
	default:
		return defaultQueryLogLevel, fmt.Errorf("invalid query log level %q", value)
	}
}
