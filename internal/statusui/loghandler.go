package statusui

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
)

// logRecordMsg delivers a slog record to the bubbletea model for
// display in the panel's log tail.
type logRecordMsg struct {
	// Summary is the human-readable one-line form of the record.
	Summary string

	// Level is the slog level for styling (warn vs error).
	Level slog.Level
}

// LogHandler is a slog.Handler that routes log records into a
// bubbletea program as messages, so diagnostics land in the panel's
// log tail instead of corrupting the terminal. Records below the
// configured level are dropped.
//
// The handler is created before the program exists. Call SetProgram
// once the tea.Program is constructed; records arriving before that
// are dropped. Handlers derived via WithAttrs/WithGroup share the
// same program pointer, so a single SetProgram call covers them all.
type LogHandler struct {
	level   slog.Level
	program *atomic.Pointer[tea.Program]
	attrs   []slog.Attr
}

// NewLogHandler creates a handler that delivers records at or above
// the given level to the panel.
func NewLogHandler(level slog.Level) *LogHandler {
	return &LogHandler{
		level:   level,
		program: &atomic.Pointer[tea.Program]{},
	}
}

// SetProgram sets the bubbletea program that receives log messages.
// Safe to call from any goroutine.
func (h *LogHandler) SetProgram(program *tea.Program) {
	h.program.Store(program)
}

// Enabled implements slog.Handler.
func (h *LogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

// Handle formats the record as "message (key=value, ...)" and sends
// it to the program. With no program set yet, the record is dropped.
func (h *LogHandler) Handle(_ context.Context, record slog.Record) error {
	program := h.program.Load()
	if program == nil {
		return nil
	}

	summary := record.Message
	var parts []string
	for _, attr := range h.attrs {
		parts = append(parts, fmt.Sprintf("%s=%s", attr.Key, attr.Value))
	}
	record.Attrs(func(attr slog.Attr) bool {
		parts = append(parts, fmt.Sprintf("%s=%s", attr.Key, attr.Value))
		return true
	})
	if len(parts) > 0 {
		summary += " ("
		for i, part := range parts {
			if i > 0 {
				summary += ", "
			}
			summary += part
		}
		summary += ")"
	}

	program.Send(logRecordMsg{Summary: summary, Level: record.Level})
	return nil
}

// WithAttrs returns a derived handler sharing the program pointer.
func (h *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	derived := &LogHandler{
		level:   h.level,
		program: h.program,
		attrs:   make([]slog.Attr, 0, len(h.attrs)+len(attrs)),
	}
	derived.attrs = append(derived.attrs, h.attrs...)
	derived.attrs = append(derived.attrs, attrs...)
	return derived
}

// WithGroup returns a derived handler. Group names are not rendered
// in the one-line tail format.
func (h *LogHandler) WithGroup(string) slog.Handler {
	return &LogHandler{
		level:   h.level,
		program: h.program,
		attrs:   h.attrs,
	}
}
