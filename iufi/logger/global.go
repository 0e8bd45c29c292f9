package logger

import (
	"context"
	"log/slog"
	"runtime"
	"time"
)

// Values of the "type" attribute, mapped to the [TYPE] column by the handler.
const (
	AttrCommand   = "cmd"
	AttrComponent = "component"
	AttrDB        = "db"
	AttrPool      = "pool"
	AttrSystem    = "sys"
	AttrError     = "error"
)

// SlowThreshold is how long an interaction may run before it is logged as slow.
const SlowThreshold = 2 * time.Second

func typed(logType string, attrs []any) []any {
	return append([]any{slog.String("type", logType)}, attrs...)
}

// emit logs through the default logger with the caller of the exported helper
// as the record's source, so error lines point at the call site.
func emit(level slog.Level, msg string, attrs []any) {
	l := slog.Default()
	ctx := context.Background()
	if !l.Enabled(ctx, level) {
		return
	}
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])
	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	r.Add(attrs...)
	_ = l.Handler().Handle(ctx, r)
}

// LogPool logs card pool events such as claims, trades and loading.
func LogPool(msg string, attrs ...any) {
	emit(slog.LevelInfo, msg, typed(AttrPool, attrs))
}

func LogPoolWarn(msg string, attrs ...any) {
	emit(slog.LevelWarn, msg, typed(AttrPool, attrs))
}

func LogSystem(msg string, attrs ...any) {
	emit(slog.LevelInfo, msg, typed(AttrSystem, attrs))
}

// LogError logs a failure of the given type with its error attached.
func LogError(logType, msg string, err error, attrs ...any) {
	emit(slog.LevelError, msg, typed(logType, append(attrs, slog.Any("error", err))))
}

// LogDivergent reports a write that could be neither completed nor undone, so
// the pool and the database disagree until someone fixes the row.
func LogDivergent(logType, msg string, err error, attrs ...any) {
	attrs = append(attrs, slog.String("status", "divergent"), slog.Any("error", err))
	emit(slog.LevelError, msg, typed(logType, attrs))
}

// LogQuery logs a finished statement. Successes are debug only.
func LogQuery(operation, query string, took time.Duration, err error, attrs ...any) {
	attrs = append(attrs,
		slog.String("operation", operation),
		slog.String("query", query),
		slog.Duration("took", took),
	)
	if err != nil {
		emit(slog.LevelError, "Query failed", typed(AttrDB, append(attrs, slog.Any("error", err))))
		return
	}
	emit(slog.LevelDebug, "Query executed", typed(AttrDB, attrs))
}

// LogInteraction logs how a command or component handler ended: failed, slow
// or completed. label is the human name of the kind, e.g. "Command".
func LogInteraction(logType, label string, took time.Duration, err error, attrs ...any) {
	attrs = typed(logType, append(attrs, slog.Duration("took", took)))
	switch {
	case err != nil:
		emit(slog.LevelError, label+" failed", append(attrs, slog.Any("error", err), slog.String("status", "failed")))
	case took > SlowThreshold:
		emit(slog.LevelWarn, label+" executed slowly", append(attrs, slog.String("status", "slow")))
	default:
		emit(slog.LevelInfo, label+" completed", append(attrs, slog.String("status", "success")))
	}
}
