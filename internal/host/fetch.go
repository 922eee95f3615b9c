package host

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// HTTPFetcher performs fetches over plain HTTP, one goroutine per
// issued request. It applies no retry and no response interpretation;
// it only couriers the raw result back to the sink.
type HTTPFetcher struct {
	client *http.Client
	sink   Sink
	logger *slog.Logger
}

// NewHTTPFetcher creates a fetcher delivering completions to sink.
// Timeout bounds the whole request including body read.
func NewHTTPFetcher(sink Sink, timeout time.Duration, logger *slog.Logger) *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{Timeout: timeout},
		sink:   sink,
		logger: logger.With(slog.String("component", "fetcher")),
	}
}

// Fetch issues the request and returns immediately. The completion
// arrives later via Sink.FetchDone on a separate goroutine.
func (f *HTTPFetcher) Fetch(tag Tag, req Request) {
	go f.do(tag, req)
}

func (f *HTTPFetcher) do(tag Tag, req Request) {
	var bodyReader io.Reader
	if len(req.Body) > 0 {
		bodyReader = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequest(req.Method, req.URL, bodyReader)
	if err != nil {
		f.sink.FetchDone(tag, Result{Err: err})
		return
	}
	if len(req.Body) > 0 {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		f.logger.Debug("Fetch failed",
			slog.String("tag", string(tag)),
			slog.String("url", req.URL),
			slog.String("error", err.Error()),
		)
		f.sink.FetchDone(tag, Result{Err: err})
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		f.sink.FetchDone(tag, Result{Err: err})
		return
	}

	f.sink.FetchDone(tag, Result{Status: resp.StatusCode, Body: body})
}
