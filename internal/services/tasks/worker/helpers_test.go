package worker

import (
	"context"
	"net/http"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/louisbranch/offline-tasks/internal/services/tasks/fetch"
	"github.com/louisbranch/offline-tasks/internal/services/tasks/storage/sqlite"
)

func openTestCaches(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "tasks-db.sqlite"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// fakeOrigin serves a fixed body per path and counts fetches.
type fakeOrigin struct {
	mu     sync.Mutex
	bodies map[string]string
	fail   bool
	gate   chan struct{}
	calls  atomic.Int64
}

func newFakeOrigin(bodies map[string]string) *fakeOrigin {
	return &fakeOrigin{bodies: bodies}
}

func (o *fakeOrigin) set(path, body string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.bodies[path] = body
}

func (o *fakeOrigin) setFail(fail bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fail = fail
}

// hold makes fetches block until the returned release func is called.
func (o *fakeOrigin) hold() (release func()) {
	gate := make(chan struct{})
	o.mu.Lock()
	o.gate = gate
	o.mu.Unlock()
	return func() { close(gate) }
}

func (o *fakeOrigin) Fetch(_ context.Context, r *http.Request) (*fetch.Response, error) {
	o.calls.Add(1)
	o.mu.Lock()
	gate := o.gate
	o.mu.Unlock()
	if gate != nil {
		<-gate
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fail {
		return nil, fetch.ErrNetwork
	}
	body, ok := o.bodies[r.URL.Path]
	if !ok {
		return fetch.HTML(http.StatusNotFound, "missing"), nil
	}
	return fetch.HTML(http.StatusOK, body), nil
}

func getRequest(t *testing.T, path string) *http.Request {
	t.Helper()
	req, err := fetch.NewGet(context.Background(), path)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	return req
}

func fetcherFunc(fn func(ctx context.Context) error) fetch.Fetcher {
	return fetch.FetcherFunc(func(ctx context.Context, _ *http.Request) (*fetch.Response, error) {
		if err := fn(ctx); err != nil {
			return nil, err
		}
		return fetch.HTML(http.StatusOK, "ok"), nil
	})
}
