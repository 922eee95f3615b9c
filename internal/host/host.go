// Package host defines the capability surface the bridge runs on: a
// single-slot asynchronous fetch primitive keyed by tag, a cooperative
// deferred-wakeup scheduler, and the sink that receives their named
// completion events. Production wires HTTPFetcher and TimerScheduler;
// tests substitute recording fakes.
package host

import "time"

// Tag identifies one of the fetch slots. The host supports at most one
// in-flight fetch per tag; callers enforce this before issuing.
type Tag string

const (
	// TagGet is the slot used for liveness probes and script fetches.
	TagGet Tag = "get-slot"

	// TagPost is the slot used for output reports.
	TagPost Tag = "post-slot"
)

// Request describes one fetch to issue.
type Request struct {
	Method string
	URL    string
	Body   []byte
}

// Result is the raw outcome of a completed fetch. Err is set for
// connection-level failures; otherwise Status and Body carry the
// response as received, with no interpretation applied.
type Result struct {
	Status int
	Body   []byte
	Err    error
}

// Fetcher issues a fetch and returns immediately. The completion is
// delivered later through Sink.FetchDone, never synchronously.
type Fetcher interface {
	Fetch(tag Tag, req Request)
}

// Scheduler accepts a deferred wakeup request and delivers it later
// through Sink.Woken. Pending wakeups cannot be revoked; receivers
// decide at delivery time whether handling one is still valid.
type Scheduler interface {
	ScheduleAfter(label string, delay time.Duration)
}

// Sink receives the named events the host delivers back.
type Sink interface {
	FetchDone(tag Tag, result Result)
	Woken(label string)
}
