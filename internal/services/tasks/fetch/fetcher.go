package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Fetcher resolves a request against the network.
type Fetcher interface {
	Fetch(ctx context.Context, r *http.Request) (*Response, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, r *http.Request) (*Response, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, r *http.Request) (*Response, error) {
	return f(ctx, r)
}

// HandlerFetcher serves requests from an in-process origin handler.
type HandlerFetcher struct {
	Handler http.Handler
}

// Fetch runs the origin handler against a copy of r and snapshots the result.
func (f HandlerFetcher) Fetch(ctx context.Context, r *http.Request) (*Response, error) {
	if f.Handler == nil {
		return nil, fmt.Errorf("%w: origin handler is not configured", ErrNetwork)
	}
	if r == nil {
		return nil, errors.New("request is required")
	}
	if ctx == nil {
		ctx = r.Context()
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	return Capture(f.Handler, r.Clone(ctx)), nil
}

// ClientFetcher reaches a remote origin over HTTP. Request paths are
// resolved against BaseURL.
type ClientFetcher struct {
	BaseURL *url.URL
	Client  *http.Client
}

// NewClientFetcher parses base and returns a fetcher using a client with the
// given overall timeout (zero disables it).
func NewClientFetcher(base string, timeout time.Duration) (*ClientFetcher, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		return nil, errors.New("origin base url is required")
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse origin base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("origin base url %q must be http or https", base)
	}
	return &ClientFetcher{BaseURL: u, Client: &http.Client{Timeout: timeout}}, nil
}

// Fetch forwards r to the origin. Any response, including 4xx/5xx, is a
// success; only transport failures return ErrNetwork.
func (f *ClientFetcher) Fetch(ctx context.Context, r *http.Request) (*Response, error) {
	if f == nil || f.BaseURL == nil {
		return nil, fmt.Errorf("%w: origin base url is not configured", ErrNetwork)
	}
	if r == nil {
		return nil, errors.New("request is required")
	}
	if ctx == nil {
		ctx = r.Context()
	}
	target := f.BaseURL.ResolveReference(&url.URL{Path: r.URL.Path, RawQuery: r.URL.RawQuery})

	var body []byte
	if r.Body != nil && r.Body != http.NoBody {
		buf := new(bytes.Buffer)
		if _, err := buf.ReadFrom(r.Body); err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}
		body = buf.Bytes()
	}
	out, err := http.NewRequestWithContext(ctx, r.Method, target.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build origin request: %w", err)
	}
	out.Header = r.Header.Clone()

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(out)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	return FromHTTP(resp)
}

// responseBuffer captures an in-process handler response.
type responseBuffer struct {
	header      http.Header
	statusCode  int
	body        bytes.Buffer
	headerWrote bool
}

func (w *responseBuffer) Header() http.Header { return w.header }

func (w *responseBuffer) WriteHeader(status int) {
	if w.headerWrote {
		return
	}
	w.headerWrote = true
	w.statusCode = status
}

func (w *responseBuffer) Write(body []byte) (int, error) {
	if !w.headerWrote {
		w.WriteHeader(http.StatusOK)
	}
	return w.body.Write(body)
}

// Flush commits the status; the body stays buffered.
func (w *responseBuffer) Flush() {
	if !w.headerWrote {
		w.WriteHeader(http.StatusOK)
	}
}

// Capture runs h against r and returns the buffered response.
func Capture(h http.Handler, r *http.Request) *Response {
	capture := &responseBuffer{header: make(http.Header), statusCode: http.StatusOK}
	h.ServeHTTP(capture, r)
	return &Response{
		Status: capture.statusCode,
		Header: capture.header,
		Body:   capture.body.Bytes(),
	}
}
