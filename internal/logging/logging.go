// Package logging provides structured logging for the storage engine.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog with pager/tree-specific helpers.
type Logger struct {
	zlog zerolog.Logger
}

// Config holds logger configuration.
type Config struct {
	Level  string // debug, info, warn, error
	Pretty bool
	Output io.Writer
}

// New creates a structured logger for a single database path.
func New(cfg Config, dbPath string) *Logger {
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}
	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	zlog := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Str("service", "zdb").
		Str("db", dbPath).
		Logger()

	return &Logger{zlog: zlog}
}

// Nop returns a logger that discards everything, for tests that don't care.
func Nop() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

// LogOpen logs a pager being opened.
func (l *Logger) LogOpen(pageSize int, pageCount uint32) {
	l.zlog.Info().
		Str("event", "open").
		Int("page_size", pageSize).
		Uint32("page_count", pageCount).
		Msg("pager opened")
}

// LogCommit logs a successful transaction commit.
func (l *Logger) LogCommit(txID uint64, dirtyPages int, duration time.Duration) {
	l.zlog.Debug().
		Str("event", "commit").
		Uint64("tx_id", txID).
		Int("dirty_pages", dirtyPages).
		Dur("duration_ms", duration).
		Msg("transaction committed")
}

// LogRollback logs a transaction rollback.
func (l *Logger) LogRollback(txID uint64, restoredPages int) {
	l.zlog.Debug().
		Str("event", "rollback").
		Uint64("tx_id", txID).
		Int("restored_pages", restoredPages).
		Msg("transaction rolled back")
}

// LogGrowth logs the pager growing its backing file.
func (l *Logger) LogGrowth(oldPageCount, newPageCount uint32) {
	l.zlog.Info().
		Str("event", "growth").
		Uint32("old_page_count", oldPageCount).
		Uint32("new_page_count", newPageCount).
		Msg("pager grew backing file")
}

// LogSplit logs a node split during a tree insert.
func (l *Logger) LogSplit(kind string, pageID uint32) {
	l.zlog.Debug().
		Str("event", "split").
		Str("kind", kind).
		Uint32("page_id", pageID).
		Msg("node split")
}

// Error logs an error with context.
func (l *Logger) Error(msg string, err error) {
	l.zlog.Error().Err(err).Msg(msg)
}
