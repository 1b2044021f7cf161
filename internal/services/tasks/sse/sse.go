// Package sse buffers datastar event streams into response snapshots so the
// worker can answer them like any other fetch.
package sse

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/louisbranch/offline-tasks/internal/services/tasks/fetch"
	"github.com/starfederation/datastar-go/datastar"
)

// RequestHeader is set by datastar on every backend action.
const RequestHeader = "Datastar-Request"

// ErrBodyTooLarge reports a signals body over the read limit.
var ErrBodyTooLarge = errors.New("signals body too large")

// IsDatastarRequest reports whether r came from a datastar action.
func IsDatastarRequest(r *http.Request) bool {
	if r == nil {
		return false
	}
	return r.Header.Get(RequestHeader) == "true"
}

// Response opens an event stream for r, runs build against it and returns
// the buffered events.
func Response(r *http.Request, build func(*datastar.ServerSentEventGenerator) error) (*fetch.Response, error) {
	if r == nil {
		return nil, errors.New("request is required")
	}
	var buildErr error
	resp := fetch.Capture(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buildErr = build(datastar.NewSSE(w, r))
	}), r)
	if buildErr != nil {
		return nil, buildErr
	}
	return resp, nil
}

// ReadSignals decodes the signals a client sent: the datastar query
// parameter for GET, the JSON body otherwise. Bodies over limit bytes fail
// with ErrBodyTooLarge.
func ReadSignals(r *http.Request, limit int64) (map[string]any, error) {
	if r == nil {
		return nil, errors.New("request is required")
	}
	if r.Method != http.MethodGet {
		if r.Body == nil {
			return nil, errors.New("request body is empty")
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
		if err != nil {
			return nil, fmt.Errorf("read signals: %w", err)
		}
		if int64(len(body)) > limit {
			return nil, ErrBodyTooLarge
		}
		r = r.Clone(r.Context())
		r.Body = io.NopCloser(bytes.NewReader(body))
	}
	signals := make(map[string]any)
	if err := datastar.ReadSignals(r, &signals); err != nil {
		return nil, fmt.Errorf("decode signals: %w", err)
	}
	return signals, nil
}
