// Package relay implements the dispatcher side of the bridge wire
// contract: a single-slot command queue between producers and the
// polling bridge, the HTTP surface that serves it, and the server
// lifecycle around it.
package relay

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// ErrBusy is returned when a command is already queued or out with
// the bridge.
var ErrBusy = errors.New("a command is already in flight")

type slotState int

const (
	slotEmpty     slotState = iota
	slotPending             // submitted, not yet fetched by the bridge
	slotDelivered           // fetched, awaiting the bridge's report
)

func (s slotState) String() string {
	switch s {
	case slotPending:
		return "pending"
	case slotDelivered:
		return "delivered"
	default:
		return "empty"
	}
}

// command is one submitted script and its rendezvous channel. done is
// buffered so the reporting side never blocks on a submitter that
// already gave up.
type command struct {
	id     uuid.UUID
	script string
	done   chan string
}

// Execution is the completed result handed back to a submitter.
type Execution struct {
	ID     uuid.UUID
	Output string
}

// Queue is the single-slot command queue. Producers block in Submit
// until the bridge fetches the script, executes it, and reports the
// captured output. At most one command exists at a time; everything
// else is turned away busy.
type Queue struct {
	mu      sync.Mutex
	state   slotState
	current *command
	logger  *slog.Logger

	submitted int
	completed int
	rejected  int
}

func NewQueue(logger *slog.Logger) *Queue {
	return &Queue{logger: logger.With(slog.String("component", "queue"))}
}

// Submit queues script and blocks until its output arrives or ctx
// expires. On expiry the slot is released; a report that raced the
// deadline still wins.
func (q *Queue) Submit(ctx context.Context, script string) (Execution, error) {
	q.mu.Lock()
	if q.state != slotEmpty {
		q.mu.Unlock()
		return Execution{}, ErrBusy
	}
	cmd := &command{
		id:     uuid.New(),
		script: script,
		done:   make(chan string, 1),
	}
	q.state = slotPending
	q.current = cmd
	q.submitted++
	q.mu.Unlock()

	q.logger.Info("Command queued", slog.String("command_id", cmd.id.String()))

	select {
	case output := <-cmd.done:
		return Execution{ID: cmd.id, Output: output}, nil
	case <-ctx.Done():
		select {
		case output := <-cmd.done:
			return Execution{ID: cmd.id, Output: output}, nil
		default:
		}
		q.abandon(cmd)
		return Execution{}, ctx.Err()
	}
}

// Fetch hands the pending script to the bridge. It never blocks; with
// nothing pending it returns an empty script. A script is handed out
// exactly once.
func (q *Queue) Fetch() string {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.state != slotPending {
		return ""
	}
	q.state = slotDelivered
	q.logger.Debug("Command delivered", slog.String("command_id", q.current.id.String()))
	return q.current.script
}

// Report completes the delivered command with its output and wakes
// the submitter. A report with no delivered command is rejected; the
// caller acks it as invalid.
func (q *Queue) Report(output string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.state != slotDelivered {
		q.rejected++
		return false
	}

	q.logger.Info("Command completed",
		slog.String("command_id", q.current.id.String()),
		slog.Int("output_bytes", len(output)),
	)
	q.current.done <- output
	q.state = slotEmpty
	q.current = nil
	q.completed++
	return true
}

func (q *Queue) abandon(cmd *command) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.current == cmd {
		q.logger.Warn("Command abandoned before completion",
			slog.String("command_id", cmd.id.String()),
			slog.String("state", q.state.String()),
		)
		q.state = slotEmpty
		q.current = nil
	}
}

// Stats is a point-in-time view of the queue for introspection.
type Stats struct {
	State     string `json:"state"`
	Submitted int    `json:"submitted"`
	Completed int    `json:"completed"`
	Rejected  int    `json:"rejected"`
}

func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		State:     q.state.String(),
		Submitted: q.submitted,
		Completed: q.completed,
		Rejected:  q.rejected,
	}
}
