package sandbox

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"testing"
	"time"
)

type stubEngine struct {
	executeFunc func(ctx context.Context, commandText string) (string, error)
}

func (s *stubEngine) Execute(ctx context.Context, commandText string) (string, error) {
	return s.executeFunc(ctx, commandText)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAdapterRun(t *testing.T) {
	tests := []struct {
		name    string
		command string
		engine  *stubEngine
		want    string
	}{
		{
			name:    "captures engine output",
			command: "print hello",
			engine: &stubEngine{executeFunc: func(_ context.Context, _ string) (string, error) {
				return "hello\n", nil
			}},
			want: "hello\n",
		},
		{
			// The engine must not run at all: if it did, its sentinel
			// output would show up in got.
			name:    "empty command is a no-op",
			command: "",
			engine: &stubEngine{executeFunc: func(_ context.Context, _ string) (string, error) {
				return "engine should not have run", nil
			}},
			want: "",
		},
		{
			name:    "blank command is a no-op",
			command: "  \n\t",
			engine: &stubEngine{executeFunc: func(_ context.Context, _ string) (string, error) {
				return "engine should not have run", nil
			}},
			want: "",
		},
		{
			name:    "fault becomes a marker line",
			command: "explode",
			engine: &stubEngine{executeFunc: func(_ context.Context, _ string) (string, error) {
				return "", errors.New("boom")
			}},
			want: ErrorMarker + "boom\n",
		},
		{
			name:    "partial output kept before the marker",
			command: "explode late",
			engine: &stubEngine{executeFunc: func(_ context.Context, _ string) (string, error) {
				return "partial", errors.New("boom")
			}},
			want: "partial\n" + ErrorMarker + "boom\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter := NewAdapter(tt.engine, discardLogger())
			got := adapter.Run(context.Background(), tt.command)
			if got != tt.want {
				t.Errorf("got output %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAdapterNeverPropagatesFaults(t *testing.T) {
	adapter := NewAdapter(&stubEngine{executeFunc: func(_ context.Context, _ string) (string, error) {
		return "", errors.New("catastrophic")
	}}, discardLogger())

	// The only visible effect of a fault is marker-tagged output.
	got := adapter.Run(context.Background(), "anything")
	if !strings.Contains(got, ErrorMarker) {
		t.Errorf("fault output %q missing marker %q", got, ErrorMarker)
	}
	if !strings.Contains(got, "catastrophic") {
		t.Errorf("fault output %q missing fault detail", got)
	}
}

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecEngineCapturesStdout(t *testing.T) {
	requireShell(t)

	engine := NewExecEngine([]string{"sh"}, 5*time.Second, discardLogger())
	out, err := engine.Execute(context.Background(), "echo hi")
	if err != nil {
		t.Fatalf("unexpected fault: %v", err)
	}
	if out != "hi\n" {
		t.Errorf("got output %q, want %q", out, "hi\n")
	}
}

func TestExecEngineNonZeroExitIsFault(t *testing.T) {
	requireShell(t)

	engine := NewExecEngine([]string{"sh"}, 5*time.Second, discardLogger())
	out, err := engine.Execute(context.Background(), "echo before; echo oops >&2; exit 3")
	if err == nil {
		t.Fatalf("expected a fault for non-zero exit")
	}
	if out != "before\n" {
		t.Errorf("got partial output %q, want %q", out, "before\n")
	}
	if !strings.Contains(err.Error(), "oops") {
		t.Errorf("fault %q missing stderr detail", err)
	}
}

func TestExecEngineTimeout(t *testing.T) {
	requireShell(t)

	engine := NewExecEngine([]string{"sh"}, 100*time.Millisecond, discardLogger())
	_, err := engine.Execute(context.Background(), "sleep 10")
	if err == nil {
		t.Fatalf("expected a timeout fault")
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("got fault %q, want a timeout", err)
	}
}

func TestExecEngineNoInterpreter(t *testing.T) {
	engine := NewExecEngine(nil, time.Second, discardLogger())
	if _, err := engine.Execute(context.Background(), "echo hi"); err == nil {
		t.Fatalf("expected a fault when no interpreter is configured")
	}
}
