package bridge

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/scriptbridge/scriptbridge/internal/clock"
	"github.com/scriptbridge/scriptbridge/internal/config"
	"github.com/scriptbridge/scriptbridge/internal/relay"
	"github.com/scriptbridge/scriptbridge/internal/sandbox"
)

// TestBridgeAgainstRelayEndToEnd drives the full chain: a live relay
// server, the production HTTP fetcher and timer scheduler, and a stub
// engine. A producer submits a script; the bridge discovers the relay,
// polls the script out, executes it, and reports the output back to
// the waiting producer. Then the relay dies and the bridge falls back
// to probing.
func TestBridgeAgainstRelayEndToEnd(t *testing.T) {
	cfg := config.Default()
	queue := relay.NewQueue(discardLogger())
	srv := httptest.NewServer(relay.NewRouter(queue, cfg, discardLogger()))
	defer srv.Close()

	engine := engineFunc(func(_ context.Context, commandText string) (string, error) {
		if commandText == "console.log('hi')" {
			return "hi\n", nil
		}
		return "", nil
	})
	adapter := sandbox.NewAdapter(engine, discardLogger())

	b := New(Config{
		DispatcherURL:  srv.URL,
		PollInterval:   20 * time.Millisecond,
		RequestTimeout: 2 * time.Second,
	}, clock.Real(), adapter, discardLogger())
	startBridge(t, b)

	waitForStatus(t, b, "dispatcher reachable", func(s Status) bool {
		return s.Connectivity == Reachable
	})
	b.StartPolling()

	type outcome struct {
		exec relay.Execution
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
		defer cancel()
		exec, err := queue.Submit(ctx, "console.log('hi')")
		done <- outcome{exec, err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			t.Fatalf("Submit error: %v", out.err)
		}
		if out.exec.Output != "hi\n" {
			t.Errorf("producer got output %q, want %q", out.exec.Output, "hi\n")
		}
	case <-time.After(waitTimeout):
		t.Fatal("producer never received output")
	}

	s := waitForStatus(t, b, "completed cycles", func(s Status) bool {
		return s.CyclesCompleted >= 1
	})
	if s.Polling != Active || s.Connectivity != Reachable {
		t.Errorf("bridge state after cycle: %+v", s)
	}

	// The relay disappears: polling resets and probing takes over.
	srv.Close()
	waitForStatus(t, b, "relay loss detected", func(s Status) bool {
		return s.Connectivity == Unreachable && s.Polling == Idle
	})
	waitForStatus(t, b, "probing continues on the fixed backoff", func(s Status) bool {
		return s.ProbeFailures >= 2
	})
}
