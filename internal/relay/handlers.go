package relay

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/scriptbridge/scriptbridge/internal/config"
	"github.com/scriptbridge/scriptbridge/internal/transport"
)

// Global validator instance
var validate = validator.New()

// SubmitRequest is the body of POST /submit.
type SubmitRequest struct {
	Script string `json:"script" validate:"required"`
}

// SubmitResponse carries an executed command's output back to the
// submitter.
type SubmitResponse struct {
	ID     string `json:"id"`
	Output string `json:"output"`
}

// StatusResponse is the introspection payload of GET /status.
type StatusResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Queue         Stats  `json:"queue"`
}

// Handler serves the bridge-facing wire contract and the producer
// endpoints on top of the command queue.
type Handler struct {
	queue   *Queue
	cfg     *config.Config
	logger  *slog.Logger
	started time.Time
}

func NewHandler(queue *Queue, cfg *config.Config, logger *slog.Logger) *Handler {
	return &Handler{
		queue:   queue,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "handler")),
		started: time.Now(),
	}
}

// Ping answers the bridge's liveness probe.
func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, transport.PingResponse{Status: transport.PingOK})
}

// FetchScript hands the queued script to the bridge, or an empty one
// when nothing is waiting.
func (h *Handler) FetchScript(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, transport.ScriptResponse{Script: h.queue.Fetch()})
}

// ReportOutput accepts the bridge's captured output for the command
// it fetched. Output matching no delivered command is acked invalid;
// the bridge treats that as advisory.
func (h *Handler) ReportOutput(w http.ResponseWriter, r *http.Request) {
	input, ok := decodeJSON[transport.OutputRequest](w, r)
	if !ok {
		return
	}

	status := transport.AckOK
	if !h.queue.Report(input.Output) {
		status = transport.AckInvalid
	}
	sendJSON(w, http.StatusOK, transport.AckResponse{Status: status})
}

// Submit queues a script and blocks until the bridge reports its
// output or the configured wait expires.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	input, ok := decodeJSON[SubmitRequest](w, r)
	if !ok {
		return
	}
	if err := validate.Struct(input); err != nil {
		sendError(w, r, http.StatusBadRequest, "VALIDATION_FAILED", "script is required", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.Relay.GetSubmitWait())
	defer cancel()

	exec, err := h.queue.Submit(ctx, input.Script)
	switch {
	case errors.Is(err, ErrBusy):
		sendError(w, r, http.StatusConflict, "BUSY", "a command is already in flight", nil)
	case err != nil:
		sendError(w, r, http.StatusGatewayTimeout, "SUBMIT_TIMEOUT", "no output before the wait expired", nil)
	default:
		sendJSON(w, http.StatusOK, SubmitResponse{ID: exec.ID.String(), Output: exec.Output})
	}
}

// Status reports queue and uptime introspection.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, StatusResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
		Queue:         h.queue.Stats(),
	})
}
