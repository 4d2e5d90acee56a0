package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// ConsoleHandler renders records as single human-readable lines with a
// coloured event prefix:
//
//	[15:04:05] Builder: installing Solr env=Debug
//	[15:04:05] Error: installing Solr failed, quitting exit_code=1
//
// Colours are dropped automatically when w is not a terminal.
type ConsoleHandler struct {
	out    *consoleOutput
	level  slog.Leveler
	attrs  []slog.Attr
	prefix string // dotted group prefix for attribute keys
}

// consoleOutput is shared by every handler derived from the same root.
type consoleOutput struct {
	mu     sync.Mutex
	w      io.Writer
	styles map[slog.Level]lipgloss.Style
	faint  lipgloss.Style
}

// NewConsoleHandler creates a ConsoleHandler writing to w.
func NewConsoleHandler(w io.Writer, level slog.Leveler) *ConsoleHandler {
	r := lipgloss.NewRenderer(w)
	return &ConsoleHandler{
		out: &consoleOutput{
			w: w,
			styles: map[slog.Level]lipgloss.Style{
				slog.LevelDebug: r.NewStyle().Foreground(lipgloss.Color("5")),
				slog.LevelInfo:  r.NewStyle().Foreground(lipgloss.Color("6")),
				slog.LevelWarn:  r.NewStyle().Foreground(lipgloss.Color("3")),
				slog.LevelError: r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
			},
			faint: r.NewStyle().Faint(true),
		},
		level: level,
	}
}

// Enabled reports whether the level passes the configured minimum.
func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.level != nil {
		minLevel = h.level.Level()
	}
	return level >= minLevel
}

// Handle formats and writes one record.
func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	b.WriteString(h.out.faint.Render("[" + ts.Format(time.TimeOnly) + "]"))
	b.WriteByte(' ')
	b.WriteString(h.out.styleFor(r.Level).Render(prefixFor(r.Level)))
	b.WriteByte(' ')
	b.WriteString(r.Message)

	for _, a := range h.attrs {
		writeAttr(&b, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&b, h.prefix, a)
		return true
	})
	b.WriteByte('\n')

	h.out.mu.Lock()
	defer h.out.mu.Unlock()
	_, err := io.WriteString(h.out.w, b.String())
	return err
}

// WithAttrs returns a handler that appends attrs to every record.
func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	nh := *h
	nh.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	nh.attrs = append(nh.attrs, h.attrs...)
	for _, a := range attrs {
		nh.attrs = append(nh.attrs, slog.Attr{Key: h.prefix + a.Key, Value: a.Value})
	}
	return &nh
}

// WithGroup returns a handler that qualifies later attribute keys with name.
func (h *ConsoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	nh := *h
	nh.prefix = h.prefix + name + "."
	return &nh
}

func (o *consoleOutput) styleFor(level slog.Level) lipgloss.Style {
	switch {
	case level >= slog.LevelError:
		return o.styles[slog.LevelError]
	case level >= slog.LevelWarn:
		return o.styles[slog.LevelWarn]
	case level >= slog.LevelInfo:
		return o.styles[slog.LevelInfo]
	default:
		return o.styles[slog.LevelDebug]
	}
}

func prefixFor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "Error:"
	case level >= slog.LevelWarn:
		return "Warning:"
	case level >= slog.LevelInfo:
		return "Builder:"
	default:
		return "Log:"
	}
}

func writeAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p = prefix + a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			writeAttr(b, p, ga)
		}
		return
	}
	b.WriteByte(' ')
	b.WriteString(prefix)
	b.WriteString(a.Key)
	b.WriteByte('=')
	b.WriteString(formatValue(a.Value))
}

func formatValue(v slog.Value) string {
	var s string
	switch v.Kind() {
	case slog.KindString:
		s = v.String()
	case slog.KindTime:
		s = v.Time().Format(time.RFC3339)
	case slog.KindDuration:
		s = v.Duration().String()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			s = err.Error()
		} else {
			s = fmt.Sprint(v.Any())
		}
	default:
		s = v.String()
	}
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}
