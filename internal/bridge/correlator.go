package bridge

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/scriptbridge/scriptbridge/internal/host"
)

// errSlotBusy is returned when a fetch is issued on a tag whose
// previous completion has not fired yet.
var errSlotBusy = errors.New("fetch slot busy")

// continuation consumes the raw result of a completed fetch. It runs
// on the bridge's loop goroutine only.
type continuation func(host.Result)

// correlator matches host completion notifications back to the
// logical request that issued them. One slot per tag: registering on
// an occupied slot is an error, resolving an empty slot is a no-op.
// This keeps "a fetch was issued" and "a fetch completed" as separate
// control-flow events without nested callback chains.
type correlator struct {
	mu     sync.Mutex
	slots  map[host.Tag]continuation
	logger *slog.Logger
}

func newCorrelator(logger *slog.Logger) *correlator {
	return &correlator{
		slots:  make(map[host.Tag]continuation),
		logger: logger.With(slog.String("component", "correlator")),
	}
}

// register associates cont with tag. Fails if the slot is occupied:
// the host supports only one in-flight fetch per tag.
func (c *correlator) register(tag host.Tag, cont continuation) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, occupied := c.slots[tag]; occupied {
		return errSlotBusy
	}
	c.slots[tag] = cont
	return nil
}

// resolve clears the slot for tag and invokes its continuation with
// the result. Spurious or duplicate notifications resolve nothing.
func (c *correlator) resolve(tag host.Tag, result host.Result) {
	c.mu.Lock()
	cont, ok := c.slots[tag]
	delete(c.slots, tag)
	c.mu.Unlock()

	if !ok {
		c.logger.Debug("Completion with no pending request discarded",
			slog.String("tag", string(tag)),
		)
		return
	}
	cont(result)
}

// pending reports whether a continuation is registered for tag.
func (c *correlator) pending(tag host.Tag) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.slots[tag]
	return ok
}

// clear drops all registrations. Used at teardown; the discarded
// continuations are never invoked.
func (c *correlator) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slots = make(map[host.Tag]continuation)
}
