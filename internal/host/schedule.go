package host

import (
	"log/slog"
	"time"

	"github.com/scriptbridge/scriptbridge/internal/clock"
)

// TimerScheduler delivers deferred wakeups through a Clock, so tests
// drive it with a fake clock instead of real sleeps.
type TimerScheduler struct {
	clk    clock.Clock
	sink   Sink
	logger *slog.Logger
}

// NewTimerScheduler creates a scheduler delivering wakeups to sink.
func NewTimerScheduler(clk clock.Clock, sink Sink, logger *slog.Logger) *TimerScheduler {
	return &TimerScheduler{
		clk:    clk,
		sink:   sink,
		logger: logger.With(slog.String("component", "scheduler")),
	}
}

// ScheduleAfter arms a one-shot wakeup named label. Wakeups are never
// cancelled here; stale ones are discarded by the receiver.
func (s *TimerScheduler) ScheduleAfter(label string, delay time.Duration) {
	s.logger.Debug("Wakeup scheduled",
		slog.String("label", label),
		slog.Duration("delay", delay),
	)
	s.clk.AfterFunc(delay, func() {
		s.sink.Woken(label)
	})
}
