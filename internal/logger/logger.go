// Package logger provides structured logging with custom levels and formatting
// for hyprshutdown.
//
// Every process image of one run (the one started from the terminal, the
// intermediate detach stage and the daemon) appends to the same file, so each
// line carries a tag naming the image that wrote it:
//
//	2006-01-02T15:04:05.000Z [LEVEL] 4242/daemon: message | key=value, title="two words"
//
// Custom levels beyond the standard slog set:
//   - LevelTrace (-8): verbose diagnostic tracing
//   - LevelFail  (12): errors that end the run
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// ///////////////////////////////////////////////
// Custom Levels
// ///////////////////////////////////////////////

const (
	LevelTrace slog.Level = -8
	LevelDebug slog.Level = slog.LevelDebug // -4
	LevelInfo  slog.Level = slog.LevelInfo  // 0
	LevelWarn  slog.Level = slog.LevelWarn  // 4
	LevelError slog.Level = slog.LevelError // 8
	LevelFail  slog.Level = 12
)

// levelName returns the display name for a log level.
func levelName(l slog.Level) string {
	switch {
	case l <= LevelTrace:
		return "TRACE"
	case l <= LevelDebug:
		return "DEBUG"
	case l <= LevelInfo:
		return "INFO"
	case l <= LevelWarn:
		return "WARN"
	case l <= LevelError:
		return "ERROR"
	default:
		return "FAIL"
	}
}

// ParseLevel converts a level string to slog.Level.
// Supports: trace, debug, info, warn, error, fail (case-insensitive).
// Returns LevelInfo for unrecognized strings.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "trace":
		return LevelTrace
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	case "fail":
		return LevelFail
	default:
		return LevelInfo
	}
}

// ///////////////////////////////////////////////
// Handler
// ///////////////////////////////////////////////

// Options configures a [Handler].
type Options struct {
	// Level is the minimum severity emitted. A [slog.LevelVar] lets the level
	// change after construction. Nil means LevelInfo.
	Level slog.Leveler
	// Tag identifies the writing process image, e.g. "4242/daemon". Empty
	// omits it.
	Tag string
}

// Handler is a slog.Handler that writes one line per record in the format
// described in the package documentation. Each line is written with a single
// Write call so that concurrent appenders to the same file do not interleave.
type Handler struct {
	w  io.Writer
	mu *sync.Mutex

	opts Options
	// prefix holds the pre-rendered attributes from WithAttrs.
	prefix []string
	// group is the dot-separated key prefix from WithGroup.
	group string
}

// NewHandler creates a Handler that writes to w.
func NewHandler(w io.Writer, opts Options) *Handler {
	if opts.Level == nil {
		opts.Level = LevelInfo
	}
	return &Handler{w: w, mu: &sync.Mutex{}, opts: opts}
}

// Enabled reports whether the handler handles records at the given level.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

// Handle formats and writes a log record.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder

	t := r.Time
	if t.IsZero() {
		t = time.Now()
	}
	b.WriteString(t.UTC().Format("2006-01-02T15:04:05.000Z"))
	b.WriteString(" [")
	b.WriteString(levelName(r.Level))
	b.WriteString("] ")
	if h.opts.Tag != "" {
		b.WriteString(h.opts.Tag)
		b.WriteString(": ")
	}
	b.WriteString(r.Message)

	fields := append([]string(nil), h.prefix...)
	r.Attrs(func(a slog.Attr) bool {
		fields = appendAttr(fields, h.group, a)
		return true
	})
	if len(fields) > 0 {
		b.WriteString(" | ")
		b.WriteString(strings.Join(fields, ", "))
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

// WithAttrs returns a Handler that prepends attrs to every record.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.prefix = append([]string(nil), h.prefix...)
	for _, a := range attrs {
		next.prefix = appendAttr(next.prefix, h.group, a)
	}
	return &next
}

// WithGroup returns a Handler whose later attribute keys are prefixed with
// name, e.g. "group.key".
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.group = joinKey(h.group, name)
	return &next
}

// appendAttr renders a as "key=value" fields under group. Group values are
// flattened into dotted keys and empty attributes are dropped.
func appendAttr(fields []string, group string, a slog.Attr) []string {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return fields
	}
	if a.Value.Kind() == slog.KindGroup {
		sub := group
		if a.Key != "" {
			sub = joinKey(group, a.Key)
		}
		for _, ga := range a.Value.Group() {
			fields = appendAttr(fields, sub, ga)
		}
		return fields
	}
	return append(fields, joinKey(group, a.Key)+"="+formatValue(a.Value))
}

// joinKey joins a group prefix and a key with a dot.
func joinKey(group, key string) string {
	if group == "" {
		return key
	}
	return group + "." + key
}

// formatValue renders v, quoting strings that would be ambiguous in the line
// format: empty, or containing spaces, separators, quotes or control
// characters.
func formatValue(v slog.Value) string {
	s := v.String()
	if v.Kind() == slog.KindTime {
		s = v.Time().UTC().Format(time.RFC3339Nano)
	}
	if needsQuote(s) {
		return strconv.Quote(s)
	}
	return s
}

func needsQuote(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		if r <= ' ' || r == '=' || r == ',' || r == '|' || r == '"' || r == 0x7f {
			return true
		}
	}
	return false
}

// ///////////////////////////////////////////////
// Logger Constructor
// ///////////////////////////////////////////////

// File describes the rotating log file.
type File struct {
	// Path is the log file; its directory is created if needed.
	Path string
	// MaxSizeMB is the size at which the file is rotated.
	MaxSizeMB int
}

// NewLogger creates a slog.Logger that appends to the rotating file f. When
// console is non-nil every line is also written there. The returned
// io.Closer must be closed to release the file.
func NewLogger(f File, opts Options, console io.Writer) (*slog.Logger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}

	lj := &lumberjack.Logger{
		Filename:   f.Path,
		MaxSize:    f.MaxSizeMB,
		MaxBackups: 3,
		MaxAge:     28,
	}

	var w io.Writer = lj
	if console != nil {
		w = io.MultiWriter(lj, console)
	}
	return slog.New(NewHandler(w, opts)), lj, nil
}

// ///////////////////////////////////////////////
// Helper Functions
// ///////////////////////////////////////////////

// Trace logs a message at LevelTrace.
func Trace(logger *slog.Logger, msg string, args ...any) {
	logger.Log(context.Background(), LevelTrace, msg, args...)
}

// Fail logs a message at LevelFail.
func Fail(logger *slog.Logger, msg string, args ...any) {
	logger.Log(context.Background(), LevelFail, msg, args...)
}
