package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// ExecEngine runs command text through an interpreter subprocess. The
// text is fed on stdin, stdout is the captured output, stderr feeds
// fault detail. Process isolation is what keeps commands away from
// bridge state.
type ExecEngine struct {
	command []string
	timeout time.Duration
	logger  *slog.Logger
}

// NewExecEngine creates an engine running the given interpreter argv
// (e.g. ["/bin/sh"]). Timeout bounds each execution.
func NewExecEngine(command []string, timeout time.Duration, logger *slog.Logger) *ExecEngine {
	return &ExecEngine{
		command: command,
		timeout: timeout,
		logger:  logger.With(slog.String("component", "exec_engine")),
	}
}

// Execute runs commandText and returns captured stdout. Timeouts,
// spawn failures, and non-zero exits are faults; partial stdout is
// returned alongside them.
func (e *ExecEngine) Execute(ctx context.Context, commandText string) (string, error) {
	if len(e.command) == 0 {
		return "", fmt.Errorf("no interpreter configured")
	}

	execCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, e.command[0], e.command[1:]...)
	cmd.Stdin = strings.NewReader(commandText)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	e.logger.Debug("Executing command text",
		slog.String("interpreter", e.command[0]),
		slog.Int("bytes", len(commandText)),
	)

	err := cmd.Run()

	// Check for timeout
	if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
		return stdout.String(), fmt.Errorf("execution timed out after %v", e.timeout)
	}

	if err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return stdout.String(), fmt.Errorf("execution failed: %v: %s", err, detail)
		}
		return stdout.String(), fmt.Errorf("execution failed: %w", err)
	}

	return stdout.String(), nil
}
