package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// prettyHandler is a colorized slog handler for terminal output.
type prettyHandler struct {
	mu    *sync.Mutex
	w     io.Writer
	level slog.Level
	attrs []slog.Attr
}

var (
	timeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	keyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	debugStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	infoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

func newPrettyHandler(w io.Writer, level slog.Level) *prettyHandler {
	return &prettyHandler{
		mu:    &sync.Mutex{},
		w:     w,
		level: level,
	}
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *prettyHandler) Handle(_ context.Context, r slog.Record) error {
	buf := new(bytes.Buffer)

	if !r.Time.IsZero() {
		buf.WriteString(timeStyle.Render(r.Time.Format("15:04:05")))
		buf.WriteByte(' ')
	}

	buf.WriteString(levelStyle(r.Level).Render(r.Level.String()))
	buf.WriteByte(' ')
	buf.WriteString(r.Message)

	for _, a := range h.attrs {
		writeAttr(buf, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(buf, a)
		return true
	})

	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := h.w.Write(buf.Bytes())
	return err
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := append(h.attrs[:len(h.attrs):len(h.attrs)], attrs...)
	return &prettyHandler{
		mu:    h.mu,
		w:     h.w,
		level: h.level,
		attrs: merged,
	}
}

func (h *prettyHandler) WithGroup(string) slog.Handler {
	// Groups are flattened; the CLI's log attributes are already scoped.
	return h
}

func levelStyle(level slog.Level) lipgloss.Style {
	switch {
	case level >= slog.LevelError:
		return errStyle
	case level >= slog.LevelWarn:
		return warnStyle
	case level >= slog.LevelInfo:
		return infoStyle
	default:
		return debugStyle
	}
}

func writeAttr(buf *bytes.Buffer, a slog.Attr) {
	buf.WriteByte(' ')
	buf.WriteString(keyStyle.Render(a.Key + "="))
	fmt.Fprintf(buf, "%v", a.Value.Any())
}
