package msgchan

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

func TestWebSocketHandlerRoundTrip(t *testing.T) {
	t.Parallel()

	c := New("html-sanitizer")
	srv := httptest.NewServer(WebSocketHandler(c, nil))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	go func() {
		var msg Message
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			return
		}
		msg["result"] = msg["count"].(float64) + msg["increment"].(float64)
		_ = wsjson.Write(ctx, conn, msg)
	}()

	reply, err := postWhenSubscribed(ctx, c, Message{"count": 2, "increment": 3})
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if reply["result"] != float64(5) {
		t.Fatalf("result = %v, want 5", reply["result"])
	}
	if _, ok := reply[IDField]; ok {
		t.Fatalf("reply should not carry %s: %v", IDField, reply)
	}
}

func TestWebSocketHandlerNilChannel(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	WebSocketHandler(nil, nil).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rr.Code)
	}
}

// postWhenSubscribed retries until the socket subscriber is registered.
func postWhenSubscribed(ctx context.Context, c *Channel, msg Message) (Message, error) {
	for {
		reply, err := c.Post(ctx, msg)
		if !errors.Is(err, ErrNoSubscribers) {
			return reply, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
}
