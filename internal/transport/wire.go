// Package transport defines the dispatcher wire contract: the JSON
// shapes exchanged on the three endpoints, the request builders the
// bridge fires through the host fetcher, the parsers that turn raw
// fetch results into typed outcomes, and the fault taxonomy for
// everything that can go wrong at the transport level.
package transport

// PingResponse is the liveness payload from GET /ping.
type PingResponse struct {
	Status string `json:"status"`
}

// ScriptResponse is the payload from GET /. An empty Script means the
// dispatcher has nothing queued.
type ScriptResponse struct {
	Script string `json:"script"`
}

// OutputRequest is the body of POST /, carrying the captured output
// of one executed command.
type OutputRequest struct {
	Output string `json:"output"`
}

// AckResponse is the dispatcher's acknowledgment of a report.
type AckResponse struct {
	Status string `json:"status"`
}

const (
	// PingOK is the liveness marker a healthy dispatcher returns.
	PingOK = "pong"

	// AckOK acknowledges a report matched the delivered command.
	AckOK = "ok"

	// AckInvalid flags a report that matched no delivered command.
	// Advisory only; it never stops polling.
	AckInvalid = "invalid"
)
