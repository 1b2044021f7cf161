package worker

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/louisbranch/offline-tasks/internal/services/tasks/fetch"
	apperrors "github.com/louisbranch/offline-tasks/internal/services/tasks/platform/errors"
)

func activatedWorker(t *testing.T, origin *fakeOrigin, rt *Router) *Worker {
	t.Helper()
	caches := openTestCaches(t)
	l := NewLifecycle(LifecycleConfig{
		Caches:     caches,
		Fetcher:    origin,
		CacheName:  "static-cache_1",
		Assets:     []string{"/"},
		Background: NewBackground(),
	})
	if err := l.Install(context.Background()); err != nil {
		t.Fatalf("install: %v", err)
	}
	if err := l.Activate(context.Background()); err != nil {
		t.Fatalf("activate: %v", err)
	}
	return New(rt, l, origin)
}

func TestWorkerPassesThroughUntilActivated(t *testing.T) {
	t.Parallel()

	origin := newFakeOrigin(map[string]string{"/": "origin"})
	rt := NewRouter()
	rt.Get("/", staticHandler("worker"))
	l := NewLifecycle(LifecycleConfig{Caches: openTestCaches(t), Fetcher: origin, CacheName: "c", Assets: []string{"/"}})
	w := New(rt, l, origin)

	rr := httptest.NewRecorder()
	w.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Body.String() != "origin" {
		t.Fatalf("body = %q, want origin", rr.Body.String())
	}
}

func TestWorkerDispatchesWhenControlling(t *testing.T) {
	t.Parallel()

	origin := newFakeOrigin(map[string]string{"/": "origin"})
	rt := NewRouter()
	rt.Get("/", staticHandler("worker"))
	w := activatedWorker(t, origin, rt)

	rr := httptest.NewRecorder()
	w.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK || rr.Body.String() != "worker" {
		t.Fatalf("response = %d %q, want 200 worker", rr.Code, rr.Body.String())
	}
}

func TestWorkerRendersErrors(t *testing.T) {
	t.Parallel()

	origin := newFakeOrigin(map[string]string{"/": "origin"})
	rt := NewRouter()
	rt.Get("/typed", func(*FetchEvent) (*fetch.Response, error) {
		return nil, apperrors.E(apperrors.KindNotFound, "task <x> not found")
	})
	rt.Get("/gateway", func(*FetchEvent) (*fetch.Response, error) {
		return nil, ErrNoResponse
	})
	rt.Get("/boom", func(*FetchEvent) (*fetch.Response, error) {
		return nil, errors.New("secret")
	})
	w := activatedWorker(t, origin, rt)

	tests := []struct {
		path   string
		status int
		body   string
	}{
		{path: "/typed", status: http.StatusNotFound, body: "<pre>task &lt;x&gt; not found</pre>"},
		{path: "/gateway", status: http.StatusGatewayTimeout, body: "<pre>no cached or network response</pre>"},
		{path: "/boom", status: http.StatusInternalServerError, body: "<pre>Internal Server Error</pre>"},
	}
	for _, tc := range tests {
		rr := httptest.NewRecorder()
		w.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tc.path, nil))
		if rr.Code != tc.status || rr.Body.String() != tc.body {
			t.Fatalf("GET %s = %d %q, want %d %q", tc.path, rr.Code, rr.Body.String(), tc.status, tc.body)
		}
	}
}

func TestWorkerPassThroughOffline(t *testing.T) {
	t.Parallel()

	origin := newFakeOrigin(map[string]string{})
	origin.setFail(true)
	w := New(NewRouter(), nil, origin)
	rr := httptest.NewRecorder()
	w.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusGatewayTimeout {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusGatewayTimeout)
	}
}
