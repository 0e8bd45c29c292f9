package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorPurple = "\033[35m"
	colorCyan   = "\033[36m"
	colorWhite  = "\033[37m"
)

type LogType string

const (
	TypeCommand   LogType = "CMD"
	TypeComponent LogType = "CMP"
	TypeDB        LogType = "DB"
	TypePool      LogType = "POOL"
	TypeSystem    LogType = "SYS"
	TypeError     LogType = "ERR"
)

// CustomHandler prints one colored line per record:
//
//	[IUFI] [15:04:05] [INFO] [POOL] message [Status: ...] key=value
type CustomHandler struct {
	out    io.Writer
	mu     *sync.Mutex
	level  slog.Leveler
	color  bool
	attrs  []slog.Attr
	groups []string
}

type Option func(*CustomHandler)

func WithLevel(level slog.Leveler) Option {
	return func(h *CustomHandler) {
		h.level = level
	}
}

// WithOutput sets the writer. Colors are dropped for anything but a terminal.
func WithOutput(w io.Writer) Option {
	return func(h *CustomHandler) {
		h.out = w
		h.color = w == os.Stdout || w == os.Stderr
	}
}

func WithColor(enabled bool) Option {
	return func(h *CustomHandler) {
		h.color = enabled
	}
}

func NewHandler(opts ...Option) *CustomHandler {
	h := &CustomHandler{
		out:   os.Stdout,
		mu:    &sync.Mutex{},
		level: slog.LevelInfo,
		color: true,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *CustomHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *CustomHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

func (h *CustomHandler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.groups = append(append([]string(nil), h.groups...), name)
	return &clone
}

func (h *CustomHandler) Handle(_ context.Context, r slog.Record) error {
	if shouldSkipLog(r.Message) {
		return nil
	}

	fields := collect(h.attrs, r)

	levelColor, levelText := levelStyle(r.Level)
	message := r.Message
	if r.Level >= slog.LevelError {
		location := fields.get("error_location")
		if location == "" {
			location = callerLocation(r.PC)
		}
		if location != "" {
			message = fmt.Sprintf("%s (%s)", message, location)
		}
		if errText := fields.get("error"); errText != "" {
			message = fmt.Sprintf("%s: %s", message, errText)
		}
	}
	if name, user := fields.get("name"), fields.get("user_name"); name != "" && user != "" {
		message = fmt.Sprintf("%s [%s by %s]", message, name, user)
	}
	if status := fields.get("status"); status != "" {
		message = fmt.Sprintf("%s [Status: %s]", message, status)
	}

	var b strings.Builder
	b.WriteString(message)
	for _, f := range fields {
		if isInternalAttr(f.key) {
			continue
		}
		fmt.Fprintf(&b, " %s=%s", f.key, f.value)
	}

	line := fmt.Sprintf("[IUFI] [%s] [%s] [%s] %s",
		r.Time.Format("15:04:05"),
		levelText,
		fields.logType(),
		b.String(),
	)
	if h.color {
		line = fmt.Sprintf("%s[IUFI] [%s] [%s%s%s] [%s%s%s] %s%s",
			colorWhite,
			r.Time.Format("15:04:05"),
			levelColor, levelText, colorWhite,
			colorCyan, fields.logType(), colorWhite,
			b.String(),
			colorReset,
		)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := fmt.Fprintln(h.out, line)
	return err
}

func levelStyle(level slog.Level) (string, string) {
	switch {
	case level >= slog.LevelError:
		return colorRed, "ERROR"
	case level >= slog.LevelWarn:
		return colorYellow, "WARN"
	case level >= slog.LevelInfo:
		return colorGreen, "INFO"
	default:
		return colorPurple, "DEBUG"
	}
}

type field struct {
	key   string
	value string
}

type fieldList []field

func collect(base []slog.Attr, r slog.Record) fieldList {
	out := make(fieldList, 0, len(base)+r.NumAttrs())
	for _, a := range base {
		out = append(out, field{a.Key, a.Value.String()})
	}
	r.Attrs(func(a slog.Attr) bool {
		out = append(out, field{a.Key, a.Value.String()})
		return true
	})
	return out
}

// get returns the last value logged for key.
func (l fieldList) get(key string) string {
	for i := len(l) - 1; i >= 0; i-- {
		if l[i].key == key {
			return l[i].value
		}
	}
	return ""
}

func (l fieldList) logType() LogType {
	switch l.get("type") {
	case "cmd":
		return TypeCommand
	case "component":
		return TypeComponent
	case "db":
		return TypeDB
	case "pool":
		return TypePool
	case "error":
		return TypeError
	default:
		return TypeSystem
	}
}

// Gateway and rest chatter logged by disgo at debug level.
var skippedMessages = []string{
	"locking buckets",
	"unlocking buckets",
	"gateway event",
	"cleaning up bucket",
	"cleaned up rate limit buckets",
	"binary message received",
	"received gateway message",
	"sending gateway command",
	"new request",
	"new response",
	"locking rest bucket",
	"unlocking rest bucket",
	"rate limit response headers",
	"sending heartbeat",
}

func shouldSkipLog(msg string) bool {
	msg = strings.ToLower(msg)
	for _, skip := range skippedMessages {
		if strings.Contains(msg, skip) {
			return true
		}
	}
	return false
}

func isInternalAttr(key string) bool {
	switch key {
	case "type", "name", "user_name", "status", "error", "error_location":
		return true
	}
	return false
}

func callerLocation(pc uintptr) string {
	if pc == 0 {
		return ""
	}
	frame, _ := runtime.CallersFrames([]uintptr{pc}).Next()
	if frame.File == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", filepath.Base(frame.File), frame.Line)
}

// ParseLevel maps a config level name to a slog level. Unknown names yield info.
func ParseLevel(name string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return level
}
