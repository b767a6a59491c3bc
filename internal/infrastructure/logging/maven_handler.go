package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// systemKey is shown as the [SYSTEM] bracket instead of key=value
const systemKey = "system"

// highlightKeys are colored on a terminal so flagged transactions stand out
var highlightKeys = map[string]bool{
	"anomaly_type": true,
	"is_anomaly":   true,
}

// MavenHandler is a slog.Handler that formats logs in Maven-style:
// [LEVEL] [SYSTEM] [HH:MM:SS] message key=value key=value
type MavenHandler struct {
	w         io.Writer
	mu        *sync.Mutex
	level     slog.Leveler
	useColors bool

	system string // e.g., "reconcile", "api", "scan"
	prefix string // dotted path of open groups
	attrs  []byte // preformatted WithAttrs output
}

// NewMavenHandler creates a new Maven-style handler. Colors are used only
// when w is a terminal.
func NewMavenHandler(w io.Writer, opts *slog.HandlerOptions) *MavenHandler {
	h := &MavenHandler{
		w:         w,
		mu:        &sync.Mutex{},
		level:     slog.LevelInfo,
		useColors: isTerminal(w),
	}
	if opts != nil && opts.Level != nil {
		h.level = opts.Level
	}
	return h
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Enabled reports whether the handler handles records at the given level.
func (h *MavenHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle formats and writes a log record
func (h *MavenHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer

	h.bracket(&buf, levelColor(r.Level), levelString(r.Level))
	if h.system != "" {
		buf.WriteByte(' ')
		h.bracket(&buf, "", h.system)
	}
	if !r.Time.IsZero() {
		buf.WriteByte(' ')
		h.bracket(&buf, colorGray, r.Time.Format("15:04:05"))
	}

	buf.WriteByte(' ')
	if h.useColors && r.Level >= slog.LevelError {
		buf.WriteString(colorBold + r.Message + colorReset)
	} else {
		buf.WriteString(r.Message)
	}

	buf.Write(h.attrs)
	r.Attrs(func(a slog.Attr) bool {
		if a.Key != systemKey || h.prefix != "" {
			h.appendAttr(&buf, h.prefix, a)
		}
		return true
	})
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

func (h *MavenHandler) bracket(buf *bytes.Buffer, color, text string) {
	if h.useColors && color != "" {
		buf.WriteString(color + "[" + text + "]" + colorReset)
		return
	}
	buf.WriteString("[" + text + "]")
}

// appendAttr writes " key=value". Groups are flattened with dotted keys.
func (h *MavenHandler) appendAttr(buf *bytes.Buffer, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	key := a.Key
	if prefix != "" {
		key = prefix + "." + key
	}

	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			h.appendAttr(buf, key, ga)
		}
		return
	}

	pair := key + "=" + formatValue(a.Value)
	buf.WriteByte(' ')
	if h.useColors && highlightKeys[a.Key] {
		buf.WriteString(colorYellow + pair + colorReset)
		return
	}
	buf.WriteString(pair)
}

func formatValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return quoteIfNeeded(v.String())
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	case slog.KindDuration:
		return v.Duration().String()
	default:
		if err, ok := v.Any().(error); ok {
			return quoteIfNeeded(err.Error())
		}
		return quoteIfNeeded(fmt.Sprint(v.Any()))
	}
}

// quoteIfNeeded quotes values with spaces or separators so key=value stays parseable
func quoteIfNeeded(s string) string {
	if s == "" || strings.ContainsAny(s, " =\"\t\n") {
		return strconv.Quote(s)
	}
	return s
}

func (h *MavenHandler) clone() *MavenHandler {
	c := *h
	c.attrs = append([]byte(nil), h.attrs...)
	return &c
}

// WithAttrs returns a new handler with the given attributes added. A
// "system" attribute at the top level replaces the [SYSTEM] bracket.
func (h *MavenHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := h.clone()
	var buf bytes.Buffer
	for _, a := range attrs {
		if a.Key == systemKey && h.prefix == "" {
			c.system = a.Value.String()
			continue
		}
		c.appendAttr(&buf, h.prefix, a)
	}
	c.attrs = append(c.attrs, buf.Bytes()...)
	return c
}

// WithGroup returns a new handler that nests later attributes under name
func (h *MavenHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := h.clone()
	if c.prefix == "" {
		c.prefix = name
	} else {
		c.prefix += "." + name
	}
	return c
}

func levelColor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return colorRed
	case level >= slog.LevelWarn:
		return colorYellow
	case level >= slog.LevelInfo:
		return colorCyan
	default:
		return colorGray
	}
}

// levelString returns a short, uppercase string for the log level
func levelString(level slog.Level) string {
	switch level {
	case slog.LevelDebug:
		return "DEBUG"
	case slog.LevelInfo:
		return "INFO"
	case slog.LevelWarn:
		return "WARN"
	case slog.LevelError:
		return "ERROR"
	default:
		return level.String()
	}
}
