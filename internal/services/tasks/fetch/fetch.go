// Package fetch models the network side of the worker: immutable response
// snapshots, request identity for caching, and Fetcher implementations that
// reach the origin either in-process or over HTTP.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// ErrNetwork wraps failures to obtain any response from the origin.
var ErrNetwork = errors.New("network request failed")

// Response is a fully buffered response snapshot. Snapshots are shared
// between the cache and callers, so treat them as read-only and Clone before
// mutating.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return r != nil && r.Status >= 200 && r.Status < 300
}

// Clone returns a deep copy of r.
func (r *Response) Clone() *Response {
	if r == nil {
		return nil
	}
	return &Response{
		Status: r.Status,
		Header: r.Header.Clone(),
		Body:   bytes.Clone(r.Body),
	}
}

// Write copies the snapshot onto w.
func (r *Response) Write(w http.ResponseWriter) error {
	if w == nil {
		return errors.New("response writer is required")
	}
	if r == nil {
		w.WriteHeader(http.StatusNoContent)
		return nil
	}
	header := w.Header()
	for key, values := range r.Header {
		header[key] = append([]string(nil), values...)
	}
	status := r.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if len(r.Body) == 0 {
		return nil
	}
	_, err := w.Write(r.Body)
	return err
}

// HTML builds an HTML response snapshot.
func HTML(status int, body string) *Response {
	header := make(http.Header)
	header.Set("Content-Type", "text/html; charset=utf-8")
	return &Response{Status: status, Header: header, Body: []byte(body)}
}

// Redirect builds a redirect snapshot pointing at location.
func Redirect(location string, status int) *Response {
	if status == 0 {
		status = http.StatusSeeOther
	}
	header := make(http.Header)
	header.Set("Location", location)
	return &Response{Status: status, Header: header}
}

// FromHTTP buffers resp into a snapshot and closes its body.
func FromHTTP(resp *http.Response) (*Response, error) {
	if resp == nil {
		return nil, errors.New("http response is required")
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return &Response{Status: resp.StatusCode, Header: resp.Header.Clone(), Body: body}, nil
}

// RequestKey identifies a request for cache lookups: path plus query.
// Only GET responses are cached, so the method is not part of the key.
func RequestKey(r *http.Request) string {
	if r == nil || r.URL == nil {
		return ""
	}
	return PathKey(r.URL.Path, r.URL.RawQuery)
}

// PathKey builds a request key from a path and raw query.
func PathKey(path, rawQuery string) string {
	if path == "" {
		path = "/"
	}
	if rawQuery == "" {
		return path
	}
	return path + "?" + rawQuery
}

// NewGet builds a GET request for an asset path, bound to ctx.
func NewGet(ctx context.Context, path string) (*http.Request, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	path = strings.TrimSpace(path)
	if !strings.HasPrefix(path, "/") {
		return nil, fmt.Errorf("asset path %q must be absolute", path)
	}
	u, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("parse asset path %q: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %q: %w", path, err)
	}
	return req, nil
}
