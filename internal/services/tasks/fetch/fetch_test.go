package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCloneIsDeep(t *testing.T) {
	t.Parallel()

	orig := HTML(http.StatusOK, "<p>hi</p>")
	copied := orig.Clone()
	copied.Body[0] = 'X'
	copied.Header.Set("Content-Type", "text/plain")

	if string(orig.Body) != "<p>hi</p>" {
		t.Fatalf("original body mutated: %q", orig.Body)
	}
	if got := orig.Header.Get("Content-Type"); got != "text/html; charset=utf-8" {
		t.Fatalf("original header mutated: %q", got)
	}
}

func TestWriteCopiesSnapshot(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	if err := Redirect("/", 0).Write(rr); err != nil {
		t.Fatalf("write: %v", err)
	}
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusSeeOther)
	}
	if got := rr.Header().Get("Location"); got != "/" {
		t.Fatalf("Location = %q, want /", got)
	}
}

func TestRequestKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		target string
		want   string
	}{
		{target: "/", want: "/"},
		{target: "/main.css", want: "/main.css"},
		{target: "/edit?id=1", want: "/edit?id=1"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, tt.target, nil)
		if got := RequestKey(req); got != tt.want {
			t.Fatalf("RequestKey(%q) = %q, want %q", tt.target, got, tt.want)
		}
	}
	if got := RequestKey(nil); got != "" {
		t.Fatalf("RequestKey(nil) = %q, want empty", got)
	}
}

func TestNewGetRejectsRelativePath(t *testing.T) {
	t.Parallel()

	if _, err := NewGet(context.Background(), "main.css"); err == nil {
		t.Fatal("expected relative path error")
	}
	req, err := NewGet(context.Background(), "/main.css")
	if err != nil {
		t.Fatalf("NewGet: %v", err)
	}
	if req.Method != http.MethodGet || req.URL.Path != "/main.css" {
		t.Fatalf("request = %s %s, want GET /main.css", req.Method, req.URL.Path)
	}
}

func TestHandlerFetcherCapturesOrigin(t *testing.T) {
	t.Parallel()

	f := HandlerFetcher{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Origin", "yes")
		_, _ = io.WriteString(w, "origin:"+r.URL.Path)
	})}
	req := httptest.NewRequest(http.MethodGet, "/main.js", nil)
	resp, err := f.Fetch(context.Background(), req)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if resp.Status != http.StatusOK || string(resp.Body) != "origin:/main.js" {
		t.Fatalf("response = %d %q", resp.Status, resp.Body)
	}
	if resp.Header.Get("X-Origin") != "yes" {
		t.Fatal("expected origin header to be captured")
	}
}

func TestCaptureSupportsFlush(t *testing.T) {
	t.Parallel()

	resp := Capture(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		if err := http.NewResponseController(w).Flush(); err != nil {
			t.Errorf("flush: %v", err)
		}
		w.WriteHeader(http.StatusTeapot)
		_, _ = io.WriteString(w, "event: a\n\n")
	}), httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Status != http.StatusOK {
		t.Fatalf("status = %d, want 200 committed by flush", resp.Status)
	}
	if string(resp.Body) != "event: a\n\n" {
		t.Fatalf("body = %q", resp.Body)
	}
}

func TestHandlerFetcherFailsOnCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := HandlerFetcher{Handler: http.NotFoundHandler()}
	_, err := f.Fetch(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("err = %v, want ErrNetwork", err)
	}
}

func TestClientFetcherForwardsToOrigin(t *testing.T) {
	t.Parallel()

	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = io.WriteString(w, r.Method+" "+r.URL.RequestURI())
	}))
	defer origin.Close()

	f, err := NewClientFetcher(origin.URL, time.Second)
	if err != nil {
		t.Fatalf("new fetcher: %v", err)
	}
	resp, err := f.Fetch(context.Background(), httptest.NewRequest(http.MethodGet, "/main.css?v=1", nil))
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if resp.Status != http.StatusTeapot {
		t.Fatalf("status = %d, want %d", resp.Status, http.StatusTeapot)
	}
	if string(resp.Body) != "GET /main.css?v=1" {
		t.Fatalf("body = %q", resp.Body)
	}
}

func TestClientFetcherReportsNetworkFailure(t *testing.T) {
	t.Parallel()

	origin := httptest.NewServer(http.NotFoundHandler())
	base := origin.URL
	origin.Close()

	f, err := NewClientFetcher(base, time.Second)
	if err != nil {
		t.Fatalf("new fetcher: %v", err)
	}
	_, err = f.Fetch(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("err = %v, want ErrNetwork", err)
	}
}

func TestNewClientFetcherValidatesBase(t *testing.T) {
	t.Parallel()

	for _, base := range []string{"", "ftp://example.com"} {
		if _, err := NewClientFetcher(base, 0); err == nil {
			t.Fatalf("NewClientFetcher(%q) expected error", base)
		}
	}
}
