package transport

import "fmt"

// Operations a fault can originate from.
const (
	OpPing   = "ping"
	OpFetch  = "fetch"
	OpReport = "report"
)

// Fault reasons.
const (
	// ReasonConnection covers network-level failures: refused,
	// timed out, reset.
	ReasonConnection = "connection"

	// ReasonStatus covers non-200 HTTP responses.
	ReasonStatus = "status"

	// ReasonDecode covers bodies that fail to parse as the expected
	// payload. Unparseable responses are treated as faults.
	ReasonDecode = "decode"

	// ReasonPayload covers well-formed bodies carrying the wrong
	// marker, e.g. a ping response that is not "pong".
	ReasonPayload = "payload"
)

// Fault is a transport-level failure on one of the dispatcher
// operations. The cycle controller decides retry policy; Fault only
// records what failed and why.
type Fault struct {
	Op     string
	Reason string
	Err    error
}

func (f *Fault) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s %s fault: %v", f.Op, f.Reason, f.Err)
	}
	return fmt.Sprintf("%s %s fault", f.Op, f.Reason)
}

func (f *Fault) Unwrap() error { return f.Err }
