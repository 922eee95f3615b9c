// Package sandbox runs fetched command text in an isolated scope and
// captures whatever it emits. Engines only see the command text and
// an output channel back; they cannot touch bridge state. Faults
// raised by a command are contained here and rendered as captured
// output, so a bad command can never terminate a polling cycle.
package sandbox

import (
	"context"
	"log/slog"
	"strings"
)

// ErrorMarker prefixes the output line produced for a contained
// execution fault.
const ErrorMarker = "execution error: "

// Engine executes command text and returns captured output. A non-nil
// error is an execution fault; any output captured before the fault is
// still returned alongside it.
type Engine interface {
	Execute(ctx context.Context, commandText string) (string, error)
}

// Adapter wraps an Engine with the containment guarantees the cycle
// controller relies on.
type Adapter struct {
	engine Engine
	logger *slog.Logger
}

// NewAdapter creates a sandbox adapter around engine.
func NewAdapter(engine Engine, logger *slog.Logger) *Adapter {
	return &Adapter{
		engine: engine,
		logger: logger.With(slog.String("component", "sandbox")),
	}
}

// Run executes commandText and returns the captured output. Empty or
// blank command text is a no-op that produces empty output. Engine
// faults never propagate: they surface as a final ErrorMarker line
// appended to the output captured before the fault.
func (a *Adapter) Run(ctx context.Context, commandText string) string {
	if strings.TrimSpace(commandText) == "" {
		return ""
	}

	output, err := a.engine.Execute(ctx, commandText)
	if err == nil {
		return output
	}

	a.logger.Debug("Execution fault contained",
		slog.String("error", err.Error()),
	)

	if output != "" && !strings.HasSuffix(output, "\n") {
		output += "\n"
	}
	return output + ErrorMarker + err.Error() + "\n"
}
