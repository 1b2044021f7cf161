package tasks

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/louisbranch/offline-tasks/internal/platform/msgchan"
	"github.com/louisbranch/offline-tasks/internal/services/tasks/worker"
)

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = "127.0.0.1:0"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(t.TempDir(), "tasks-db.sqlite")
	}
	if cfg.Version == "" {
		cfg.Version = "0.0.1"
	}
	s, err := NewServer(context.Background(), cfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestNewServerRequiresAddress(t *testing.T) {
	t.Parallel()

	if _, err := NewServer(context.Background(), Config{Version: "1"}); err == nil {
		t.Fatal("expected error for empty address")
	}
	_, err := NewServer(context.Background(), Config{HTTPAddr: "127.0.0.1:0", Version: "1", ResponseMode: "smoke-signal"})
	if err == nil {
		t.Fatal("expected error for unknown response mode")
	}
	_, err = NewServer(context.Background(), Config{HTTPAddr: "127.0.0.1:0", Version: "1", OriginURL: "ftp://example.com"})
	if err == nil {
		t.Fatal("expected error for non-http origin")
	}
}

func TestServerActivatesAndServesList(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, Config{})
	if got := s.app.Lifecycle().State(); got != worker.StateActivated {
		t.Fatalf("state = %s, want activated", got)
	}

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `id="task-list"`) {
		t.Fatalf("body missing task list:\n%s", rr.Body.String())
	}
}

func TestServerExposesMetrics(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, Config{})
	s.Handler().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/main.css", nil))

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "tasks_worker_cache_strategy_total") {
		t.Fatal("metrics missing cache strategy counter")
	}
}

func TestServerUnknownChannelIs404(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, Config{})
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/channels/other", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestServerChannelSocket(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, Config{})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/channels/html-sanitizer", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	go func() {
		var msg msgchan.Message
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			return
		}
		msg["result"] = "from socket"
		_ = wsjson.Write(ctx, conn, msg)
	}()

	for {
		reply, err := s.app.Channel().Post(ctx, msgchan.Message{"path": "test"})
		if errors.Is(err, msgchan.ErrNoSubscribers) {
			time.Sleep(10 * time.Millisecond)
			continue
		}
		if err != nil {
			t.Fatalf("post: %v", err)
		}
		if reply["result"] != "from socket" {
			t.Fatalf("reply = %v", reply)
		}
		return
	}
}

func TestServerLocalSanitizer(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, Config{LocalSanitizer: true})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	reply, err := s.app.Channel().Post(ctx, msgchan.Message{"count": 1, "increment": 2})
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if reply["result"] != float64(3) {
		t.Fatalf("result = %v, want 3", reply["result"])
	}
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("listen and serve: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}
