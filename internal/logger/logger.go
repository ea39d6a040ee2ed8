// Package logger builds the slog logger the server runs on: JSON records in
// production, a colored console format everywhere else.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Output formats.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Config selects the output format and verbosity. A zero Format falls back
// on Environment: production logs JSON, everything else logs for a terminal.
type Config struct {
	Writer      io.Writer
	Format      string
	Environment string
	Level       slog.Level
	AddSource   bool
}

// New builds a logger from cfg. The returned logger is handed around the
// rest of the server as a plain *slog.Logger.
func New(cfg Config) *slog.Logger {
	w := cfg.Writer
	if w == nil {
		w = os.Stdout
	}

	format := cfg.Format
	if format == "" {
		if cfg.Environment == "production" {
			format = FormatJSON
		} else {
			format = FormatConsole
		}
	}

	if format == FormatJSON {
		opts := &slog.HandlerOptions{
			Level:     cfg.Level,
			AddSource: cfg.AddSource,
			ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
				// Full build paths are noise; keep file:line.
				if a.Key == slog.SourceKey {
					if src, ok := a.Value.Any().(*slog.Source); ok {
						src.File = filepath.Base(src.File)
					}
				}
				return a
			},
		}
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(newConsoleHandler(w, cfg.Level, cfg.AddSource))
}

// ParseLevel maps a config string to a slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ANSI escapes used by the console handler.
const (
	ansiReset   = "\033[0m"
	ansiBold    = "\033[1m"
	ansiDim     = "\033[2m"
	ansiRed     = "\033[31m"
	ansiGreen   = "\033[32m"
	ansiYellow  = "\033[33m"
	ansiMagenta = "\033[35m"
	ansiCyan    = "\033[36m"
)

// consoleHandler renders records as a single line:
//
//	15:04:05 INFO  message key=value group.key=value
//
// Attributes added through With are preformatted once; group names prefix
// the keys of attributes logged inside them.
type consoleHandler struct {
	level     slog.Level
	addSource bool

	mu *sync.Mutex
	w  io.Writer

	preformatted string
	groups       []string
}

func newConsoleHandler(w io.Writer, level slog.Level, addSource bool) *consoleHandler {
	return &consoleHandler{
		level:     level,
		addSource: addSource,
		mu:        &sync.Mutex{},
		w:         w,
	}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.Grow(128)

	b.WriteString(ansiDim)
	b.WriteString(r.Time.Format("15:04:05"))
	b.WriteString(ansiReset)
	b.WriteByte(' ')

	tag, color := levelTag(r.Level)
	b.WriteString(color)
	b.WriteString(tag)
	b.WriteString(ansiReset)
	b.WriteByte(' ')

	if h.addSource && r.PC != 0 {
		frames := runtime.CallersFrames([]uintptr{r.PC})
		frame, _ := frames.Next()
		b.WriteString(ansiDim)
		b.WriteString(filepath.Base(frame.File))
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(frame.Line))
		b.WriteString(ansiReset)
		b.WriteByte(' ')
	}

	b.WriteString(ansiBold)
	b.WriteString(r.Message)
	b.WriteString(ansiReset)

	if h.preformatted != "" || r.NumAttrs() > 0 {
		b.WriteByte(' ')
		b.WriteString(ansiCyan)
		b.WriteString(h.preformatted)
		first := h.preformatted == ""
		r.Attrs(func(a slog.Attr) bool {
			if !first {
				b.WriteByte(' ')
			}
			first = false
			writeAttr(&b, h.groups, a)
			return true
		})
		b.WriteString(ansiReset)
	}

	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	var b strings.Builder
	b.WriteString(h.preformatted)
	for _, a := range attrs {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		writeAttr(&b, h.groups, a)
	}
	h2 := *h
	h2.preformatted = b.String()
	return &h2
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.groups = append(h.groups[:len(h.groups):len(h.groups)], name)
	return &h2
}

// writeAttr appends "key=value" with the group path prefixed to the key.
func writeAttr(b *strings.Builder, groups []string, a slog.Attr) {
	for _, g := range groups {
		b.WriteString(g)
		b.WriteByte('.')
	}
	b.WriteString(a.Key)
	b.WriteByte('=')
	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindTime:
		b.WriteString(v.Time().Format(time.RFC3339))
	case slog.KindDuration:
		b.WriteString(v.Duration().String())
	default:
		b.WriteString(v.String())
	}
}

func levelTag(level slog.Level) (tag, color string) {
	switch {
	case level >= slog.LevelError:
		return "ERROR", ansiRed
	case level >= slog.LevelWarn:
		return "WARN ", ansiYellow
	case level >= slog.LevelInfo:
		return "INFO ", ansiGreen
	default:
		return "DEBUG", ansiMagenta
	}
}
