package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"reflect"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

const consoleTimeFormat = "2006-01-02 15:04:05"

// consoleHandler renders records for humans:
//
//	2024-01-02 15:04:05 [INFO] [test_20240102_150405_1a2b3c4d] message
//	key: value
type consoleHandler struct {
	mu     *sync.Mutex
	w      io.Writer
	level  slog.Leveler
	colors map[slog.Level]*color.Color
	attrs  []slog.Attr
	prefix string
}

func newConsoleHandler(w io.Writer, level slog.Leveler, noColor bool) *consoleHandler {
	colors := map[slog.Level]*color.Color{
		slog.LevelDebug: color.New(color.FgCyan),
		slog.LevelInfo:  color.New(color.FgGreen),
		slog.LevelWarn:  color.New(color.FgYellow, color.Bold),
		slog.LevelError: color.New(color.FgRed, color.Bold),
		LevelCritical:   color.New(color.FgWhite, color.BgRed, color.Bold),
	}

	useColor := !noColor && isTerminal(w)
	for _, c := range colors {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	return &consoleHandler{
		mu:     &sync.Mutex{},
		w:      w,
		level:  level,
		colors: colors,
	}
}

// isTerminal reports whether w is a terminal file descriptor.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder

	b.WriteString(r.Time.Format(consoleTimeFormat))
	b.WriteString(" [")
	name := LevelName(r.Level)
	if c, ok := h.colors[r.Level]; ok {
		name = c.Sprint(name)
	}
	b.WriteString(name)
	b.WriteString("]")

	var lines []string
	add := func(prefix string, a slog.Attr) {
		if a.Key == CaseIDKey && prefix == "" {
			b.WriteString(" [" + a.Value.String() + "]")
			return
		}
		lines = append(lines, prefix+a.Key+": "+formatValue(a.Value))
	}
	for _, a := range h.attrs {
		add("", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		add(h.prefix, a)
		return true
	})

	b.WriteString(" ")
	b.WriteString(r.Message)
	for _, line := range lines {
		b.WriteString("\n")
		b.WriteString(line)
	}
	b.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append([]slog.Attr{}, h.attrs...)
	for _, a := range attrs {
		a.Key = h.prefix + a.Key
		clone.attrs = append(clone.attrs, a)
	}
	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}

// formatValue renders composite values as indented JSON and everything
// else with its plain string form.
func formatValue(v slog.Value) string {
	v = v.Resolve()
	if v.Kind() != slog.KindAny {
		return v.String()
	}

	switch val := v.Any().(type) {
	case nil:
		return "null"
	case error:
		return val.Error()
	case []byte:
		return string(val)
	case fmt.Stringer:
		return val.String()
	}

	switch reflect.Indirect(reflect.ValueOf(v.Any())).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		data, err := json.MarshalIndent(v.Any(), "", "  ")
		if err == nil {
			return string(data)
		}
	}
	return fmt.Sprint(v.Any())
}
