package relay

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
)

const waitTimeout = 5 * time.Second

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fetchEventually(t *testing.T, q *Queue) string {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for time.Now().Before(deadline) {
		if script := q.Fetch(); script != "" {
			return script
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("no script became fetchable")
	return ""
}

func waitState(t *testing.T, q *Queue, want string) {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for time.Now().Before(deadline) {
		if q.Stats().State == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("queue state = %q, want %q", q.Stats().State, want)
}

func TestQueueSubmitFetchReport(t *testing.T) {
	q := NewQueue(discardLogger())

	type result struct {
		exec Execution
		err  error
	}
	got := make(chan result, 1)
	go func() {
		exec, err := q.Submit(context.Background(), "console.log('hi')")
		got <- result{exec, err}
	}()

	if script := fetchEventually(t, q); script != "console.log('hi')" {
		t.Fatalf("fetched script = %q, want %q", script, "console.log('hi')")
	}

	// Handed out exactly once.
	if again := q.Fetch(); again != "" {
		t.Errorf("second fetch = %q, want empty", again)
	}

	if !q.Report("hi\n") {
		t.Fatal("Report returned false with a delivered command")
	}

	select {
	case res := <-got:
		if res.err != nil {
			t.Fatalf("Submit error: %v", res.err)
		}
		if res.exec.Output != "hi\n" {
			t.Errorf("output = %q, want %q", res.exec.Output, "hi\n")
		}
		if res.exec.ID == uuid.Nil {
			t.Error("execution ID is nil")
		}
	case <-time.After(waitTimeout):
		t.Fatal("submitter was not woken")
	}

	stats := q.Stats()
	if stats.State != "empty" || stats.Submitted != 1 || stats.Completed != 1 {
		t.Errorf("stats = %+v, want empty/1/1", stats)
	}
}

func TestQueueTurnsAwaySecondCommand(t *testing.T) {
	q := NewQueue(discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go q.Submit(ctx, "first")
	waitState(t, q, "pending")

	if _, err := q.Submit(context.Background(), "second"); !errors.Is(err, ErrBusy) {
		t.Fatalf("Submit while pending error = %v, want %v", err, ErrBusy)
	}

	// Still busy after the bridge fetched it.
	fetchEventually(t, q)
	if _, err := q.Submit(context.Background(), "third"); !errors.Is(err, ErrBusy) {
		t.Fatalf("Submit while delivered error = %v, want %v", err, ErrBusy)
	}
}

func TestQueueRejectsReportWithoutDelivery(t *testing.T) {
	q := NewQueue(discardLogger())

	if q.Report("stray") {
		t.Fatal("Report with an empty queue returned true")
	}

	// Queued but not yet fetched also rejects.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Submit(ctx, "queued")
	waitState(t, q, "pending")

	if q.Report("early") {
		t.Fatal("Report before fetch returned true")
	}
	if got := q.Stats().Rejected; got != 2 {
		t.Errorf("rejected = %d, want 2", got)
	}
}

func TestQueueSubmitTimeoutFreesSlot(t *testing.T) {
	q := NewQueue(discardLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if _, err := q.Submit(ctx, "never fetched"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Submit error = %v, want %v", err, context.DeadlineExceeded)
	}

	if got := q.Stats().State; got != "empty" {
		t.Fatalf("queue state after timeout = %q, want empty", got)
	}

	// The slot is immediately reusable.
	ctx2, cancel2 := context.WithCancel(context.Background())
	defer cancel2()
	go q.Submit(ctx2, "next")
	waitState(t, q, "pending")
}

func TestQueueRejectsLateReportAfterAbandon(t *testing.T) {
	q := NewQueue(discardLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	errCh := make(chan error, 1)
	go func() {
		_, err := q.Submit(ctx, "slow script")
		errCh <- err
	}()

	if got := fetchEventually(t, q); got != "slow script" {
		t.Fatalf("fetched script = %q, want %q", got, "slow script")
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("Submit error = %v, want %v", err, context.DeadlineExceeded)
		}
	case <-time.After(waitTimeout):
		t.Fatal("submitter did not give up")
	}

	if q.Report("hi\n") {
		t.Fatal("late report for an abandoned command was accepted")
	}
	if got := q.Stats().State; got != "empty" {
		t.Errorf("queue state = %q, want empty", got)
	}
}
