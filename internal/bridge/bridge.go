// Package bridge implements the client-side state machine between a
// command dispatcher and the local execution sandbox. One goroutine
// owns all state and consumes a single inbox of events: fetch
// completions, scheduled wakeups, and user intents. It monitors
// dispatcher connectivity with a fixed-backoff probe, and while the
// user has polling enabled runs strict fetch-execute-report cycles,
// exactly one command in flight at a time.
package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/scriptbridge/scriptbridge/internal/clock"
	"github.com/scriptbridge/scriptbridge/internal/host"
	"github.com/scriptbridge/scriptbridge/internal/sandbox"
	"github.com/scriptbridge/scriptbridge/internal/transport"
)

// Wakeup labels. The same fixed interval drives both.
const (
	labelRetryProbe = "retry-probe"
	labelNextCycle  = "next-cycle"
)

const (
	inboxSize   = 64
	updatesSize = 16
)

// Config carries the bridge's runtime parameters.
type Config struct {
	// DispatcherURL is the base URL of the dispatcher.
	DispatcherURL string

	// PollInterval is the fixed delay between polling cycles and
	// between probe retries.
	PollInterval time.Duration

	// RequestTimeout bounds each dispatcher request.
	RequestTimeout time.Duration
}

// Bridge is the state machine instance. Create with New, drive with
// Run, interact through StartPolling/StopPolling/TogglePolling and
// Snapshot/Updates. All public entry points are safe to call after
// the bridge has been torn down; they become no-ops.
type Bridge struct {
	cfg       Config
	fetcher   host.Fetcher
	scheduler host.Scheduler
	sandbox   *sandbox.Adapter
	logger    *slog.Logger

	inbox   chan event
	started atomic.Bool
	active  atomic.Bool

	// Loop-owned state. Never touched off the loop goroutine.
	runCtx        context.Context
	connectivity  ConnectivityState
	polling       PollingState
	phase         cyclePhase
	slots         *correlator
	output        string
	lastOutput    string
	cycles        int
	probeFailures int

	mu       sync.Mutex
	snapshot Status
	updates  chan Status
}

// New creates a bridge with production host primitives: an HTTP
// fetcher and a clock-driven wakeup scheduler.
func New(cfg Config, clk clock.Clock, adapter *sandbox.Adapter, logger *slog.Logger) *Bridge {
	b := newBridge(cfg, adapter, logger)
	b.fetcher = host.NewHTTPFetcher(b, cfg.RequestTimeout, logger)
	b.scheduler = host.NewTimerScheduler(clk, b, logger)
	return b
}

// NewWithHost creates a bridge on explicit host primitives. Tests use
// it to substitute recording fakes for the fetcher and scheduler.
func NewWithHost(cfg Config, fetcher host.Fetcher, scheduler host.Scheduler, adapter *sandbox.Adapter, logger *slog.Logger) *Bridge {
	b := newBridge(cfg, adapter, logger)
	b.fetcher = fetcher
	b.scheduler = scheduler
	return b
}

func newBridge(cfg Config, adapter *sandbox.Adapter, logger *slog.Logger) *Bridge {
	b := &Bridge{
		cfg:          cfg,
		sandbox:      adapter,
		logger:       logger.With(slog.String("component", "bridge")),
		inbox:        make(chan event, inboxSize),
		connectivity: Unreachable,
		polling:      Idle,
		phase:        phaseStopped,
		updates:      make(chan Status, updatesSize),
	}
	b.slots = newCorrelator(logger)
	b.snapshot = b.currentStatus()
	return b
}

// Run owns the state machine until ctx is cancelled. It probes the
// dispatcher immediately, then consumes the inbox. Returns ctx.Err()
// after teardown. A bridge runs once; create a new one to restart.
func (b *Bridge) Run(ctx context.Context) error {
	if !b.started.CompareAndSwap(false, true) {
		return fmt.Errorf("bridge already started")
	}

	b.active.Store(true)
	b.runCtx = ctx
	b.logger.Info("Bridge starting",
		slog.String("dispatcher", b.cfg.DispatcherURL),
		slog.Duration("poll_interval", b.cfg.PollInterval),
	)
	b.publish()
	b.probe()

	for {
		select {
		case <-ctx.Done():
			b.teardown()
			return ctx.Err()
		case ev := <-b.inbox:
			b.handle(ev)
		}
	}
}

// teardown resets lifetime state to its initial values and drops all
// pending correlations. Wakeups and completions still in flight are
// discarded by the inactive flag when they arrive.
func (b *Bridge) teardown() {
	b.active.Store(false)
	b.slots.clear()
	b.connectivity = Unreachable
	b.polling = Idle
	b.phase = phaseStopped
	b.output = ""
	b.publish()
	close(b.updates)
	b.logger.Info("Bridge stopped")
}

// FetchDone implements host.Sink.
func (b *Bridge) FetchDone(tag host.Tag, result host.Result) {
	b.deliver(fetchDoneEvent{tag: tag, result: result})
}

// Woken implements host.Sink.
func (b *Bridge) Woken(label string) {
	b.deliver(wakeupEvent{label: label})
}

// StartPolling requests cycle polling. Ignored while already active
// and rejected while the dispatcher is unreachable.
func (b *Bridge) StartPolling() { b.deliver(startEvent{}) }

// StopPolling requests an end to cycle polling. Ignored while already
// idle. An in-flight cycle completes; it just does not re-arm.
func (b *Bridge) StopPolling() { b.deliver(stopEvent{}) }

// TogglePolling flips the polling intent based on the latest snapshot.
func (b *Bridge) TogglePolling() {
	if b.Snapshot().Polling == Active {
		b.StopPolling()
	} else {
		b.StartPolling()
	}
}

// Snapshot returns the latest published status.
func (b *Bridge) Snapshot() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshot
}

// Updates returns the status feed. Publishes are non-blocking; slow
// consumers miss intermediate snapshots, never the mechanism.
func (b *Bridge) Updates() <-chan Status {
	return b.updates
}

// deliver enqueues an event for the loop. Drops when the bridge is
// not running or the inbox is saturated, so no caller can block.
func (b *Bridge) deliver(ev event) {
	if !b.active.Load() {
		b.logger.Debug("Event dropped, bridge not running")
		return
	}
	select {
	case b.inbox <- ev:
	default:
		b.logger.Warn("Event dropped, inbox full")
	}
}

func (b *Bridge) handle(ev event) {
	switch ev := ev.(type) {
	case fetchDoneEvent:
		b.slots.resolve(ev.tag, ev.result)
	case wakeupEvent:
		b.handleWakeup(ev.label)
	case startEvent:
		b.handleStart()
	case stopEvent:
		b.handleStop()
	}
}

// handleWakeup re-validates state before resuming deferred work:
// wakeups cannot be revoked, so stale ones must be discarded here.
func (b *Bridge) handleWakeup(label string) {
	switch label {
	case labelRetryProbe:
		if b.connectivity == Reachable {
			b.logger.Debug("Stale probe wakeup discarded")
			return
		}
		b.probe()
	case labelNextCycle:
		if b.polling != Active || b.phase != phaseArmed {
			b.logger.Debug("Stale cycle wakeup discarded",
				slog.String("polling", string(b.polling)),
			)
			return
		}
		b.beginCycle()
	default:
		b.logger.Warn("Unknown wakeup label", slog.String("label", label))
	}
}

func (b *Bridge) handleStart() {
	if b.connectivity == Unreachable {
		b.logger.Debug("Start rejected, dispatcher unreachable")
		return
	}
	if b.polling == Active {
		b.logger.Debug("Start ignored, polling already active")
		return
	}

	b.setPolling(Active)
	b.logger.Info("Polling started")

	// A cycle still completing from before a stop keeps running; its
	// report re-arms now that polling is active again.
	if b.phase == phaseStopped {
		b.beginCycle()
	}
}

func (b *Bridge) handleStop() {
	if b.polling == Idle {
		b.logger.Debug("Stop ignored, polling already idle")
		return
	}

	b.setPolling(Idle)
	b.logger.Info("Polling stopped")

	// Armed means nothing is in flight, only a wakeup is pending;
	// park the cycle now and let the wakeup arrive stale.
	if b.phase == phaseArmed {
		b.setPhase(phaseStopped)
	}
}

// probe issues one liveness request. Health monitoring: a failure
// schedules exactly one retry after the fixed interval; a success
// leaves re-arming to the user's polling intent.
func (b *Bridge) probe() {
	if err := b.slots.register(host.TagGet, b.probeDone); err != nil {
		b.logger.Warn("Probe skipped, fetch slot busy")
		b.scheduler.ScheduleAfter(labelRetryProbe, b.cfg.PollInterval)
		return
	}
	b.fetcher.Fetch(host.TagGet, transport.NewPingRequest(b.cfg.DispatcherURL))
}

func (b *Bridge) probeDone(res host.Result) {
	if err := transport.ParsePing(res); err != nil {
		b.probeFailures++
		b.setConnectivity(Unreachable)
		b.publish()
		b.logger.Debug("Probe failed",
			slog.Int("failures", b.probeFailures),
			slog.String("error", err.Error()),
		)
		b.scheduler.ScheduleAfter(labelRetryProbe, b.cfg.PollInterval)
		return
	}

	b.probeFailures = 0
	if b.setConnectivity(Reachable) {
		b.logger.Info("Dispatcher reachable",
			slog.String("url", b.cfg.DispatcherURL),
		)
	}
}

// beginCycle starts one fetch-execute-report iteration.
func (b *Bridge) beginCycle() {
	b.output = ""
	b.setPhase(phaseAwaiting)

	if err := b.slots.register(host.TagGet, b.scriptFetched); err != nil {
		b.logger.Error("Cycle aborted, fetch slot busy")
		b.setPhase(phaseStopped)
		return
	}
	b.fetcher.Fetch(host.TagGet, transport.NewFetchRequest(b.cfg.DispatcherURL))
}

func (b *Bridge) scriptFetched(res host.Result) {
	script, err := transport.ParseScript(res)
	if err != nil {
		// Nothing was reported yet, so the cycle ends quietly and
		// rediscovery takes over.
		b.logger.Debug("Script fetch failed", slog.String("error", err.Error()))
		b.dispatcherLost()
		return
	}

	b.setPhase(phaseExecuting)
	b.output = b.sandbox.Run(b.runCtx, script)

	b.setPhase(phaseReporting)
	if err := b.slots.register(host.TagPost, b.reportDone); err != nil {
		b.logger.Error("Report aborted, post slot busy")
		b.setPhase(phaseStopped)
		return
	}
	b.fetcher.Fetch(host.TagPost, transport.NewReportRequest(b.cfg.DispatcherURL, b.output))
}

func (b *Bridge) reportDone(res host.Result) {
	ack, err := transport.ParseAck(res)
	if err != nil {
		b.logger.Error("Report failed, treating dispatcher as shut down",
			slog.String("error", err.Error()),
		)
		b.dispatcherLost()
		return
	}

	if ack != transport.AckOK {
		// Protocol anomaly: well-formed but unexpected. Advisory only.
		b.logger.Warn("Unexpected report ack", slog.String("ack", ack))
	}

	b.cycles++
	b.lastOutput = b.output
	b.output = ""

	if b.polling == Active {
		b.setPhase(phaseArmed)
		b.scheduler.ScheduleAfter(labelNextCycle, b.cfg.PollInterval)
	} else {
		b.logger.Debug("Cycle completed while idle, not re-arming")
		b.setPhase(phaseStopped)
	}
}

// dispatcherLost is the shared transport-fault path: the cycle stops,
// polling resets, and health probing resumes immediately.
func (b *Bridge) dispatcherLost() {
	b.setConnectivity(Unreachable)
	b.setPolling(Idle)
	b.setPhase(phaseStopped)
	b.output = ""
	b.probe()
}

func (b *Bridge) setConnectivity(s ConnectivityState) bool {
	if b.connectivity == s {
		return false
	}
	b.connectivity = s
	b.publish()
	return true
}

func (b *Bridge) setPolling(s PollingState) {
	if b.polling == s {
		return
	}
	b.polling = s
	b.publish()
}

func (b *Bridge) setPhase(p cyclePhase) {
	if b.phase == p {
		return
	}
	b.phase = p
	b.publish()
}

func (b *Bridge) currentStatus() Status {
	return Status{
		Connectivity:    b.connectivity,
		Polling:         b.polling,
		Phase:           b.phase.public(),
		CyclesCompleted: b.cycles,
		ProbeFailures:   b.probeFailures,
		LastOutput:      b.lastOutput,
	}
}

// publish stores a fresh snapshot and offers it to the updates feed.
func (b *Bridge) publish() {
	status := b.currentStatus()

	b.mu.Lock()
	b.snapshot = status
	b.mu.Unlock()

	select {
	case b.updates <- status:
	default:
	}
}
