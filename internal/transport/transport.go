package transport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/scriptbridge/scriptbridge/internal/host"
)

// NewPingRequest builds the liveness probe request.
func NewPingRequest(base string) host.Request {
	return host.Request{
		Method: http.MethodGet,
		URL:    joinURL(base, "/ping"),
	}
}

// NewFetchRequest builds the script fetch request.
func NewFetchRequest(base string) host.Request {
	return host.Request{
		Method: http.MethodGet,
		URL:    joinURL(base, "/"),
	}
}

// NewReportRequest builds the output report request.
func NewReportRequest(base, output string) host.Request {
	body, _ := json.Marshal(OutputRequest{Output: output})
	return host.Request{
		Method: http.MethodPost,
		URL:    joinURL(base, "/"),
		Body:   body,
	}
}

// ParsePing interprets a liveness probe result. A nil return means
// the dispatcher is reachable.
func ParsePing(res host.Result) error {
	body, err := checkResult(OpPing, res)
	if err != nil {
		return err
	}

	var payload PingResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return &Fault{Op: OpPing, Reason: ReasonDecode, Err: err}
	}
	if payload.Status != PingOK {
		return &Fault{
			Op:     OpPing,
			Reason: ReasonPayload,
			Err:    fmt.Errorf("unexpected liveness marker %q", payload.Status),
		}
	}
	return nil
}

// ParseScript interprets a script fetch result. An empty script with
// a nil error means the dispatcher has nothing queued.
func ParseScript(res host.Result) (string, error) {
	body, err := checkResult(OpFetch, res)
	if err != nil {
		return "", err
	}

	var payload ScriptResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", &Fault{Op: OpFetch, Reason: ReasonDecode, Err: err}
	}
	return payload.Script, nil
}

// ParseAck interprets a report acknowledgment. The returned status is
// the dispatcher's verdict ("ok", "invalid", ...); only transport
// failures surface as errors.
func ParseAck(res host.Result) (string, error) {
	body, err := checkResult(OpReport, res)
	if err != nil {
		return "", err
	}

	var payload AckResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", &Fault{Op: OpReport, Reason: ReasonDecode, Err: err}
	}
	return payload.Status, nil
}

// checkResult applies the transport-level checks shared by all three
// operations: connection errors, then non-200 statuses.
func checkResult(op string, res host.Result) ([]byte, error) {
	if res.Err != nil {
		return nil, &Fault{Op: op, Reason: ReasonConnection, Err: res.Err}
	}
	if res.Status != http.StatusOK {
		return nil, &Fault{
			Op:     op,
			Reason: ReasonStatus,
			Err:    fmt.Errorf("unexpected status %d", res.Status),
		}
	}
	return res.Body, nil
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + path
}
