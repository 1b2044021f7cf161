package msgchan

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// WebSocketHandler exposes c to browser pages. Every posted message is
// written to the socket as a JSON frame; frames read back are treated as
// replies and routed by correlation id.
func WebSocketHandler(c *Channel, opts *websocket.AcceptOptions) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c == nil {
			http.Error(w, "channel unavailable", http.StatusServiceUnavailable)
			return
		}
		conn, err := websocket.Accept(w, r, opts)
		if err != nil {
			log.Printf("channel %s accept: %v", c.Name(), err)
			return
		}
		defer func() {
			_ = conn.CloseNow()
		}()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		outbound := make(chan Message, 16)
		unsubscribe := c.Subscribe(func(msg Message) {
			select {
			case outbound <- msg:
			case <-ctx.Done():
			}
		})
		defer unsubscribe()

		go func() {
			defer cancel()
			for {
				var msg Message
				if err := wsjson.Read(ctx, conn, &msg); err != nil {
					if !isNormalClose(err) && ctx.Err() == nil {
						log.Printf("channel %s read: %v", c.Name(), err)
					}
					return
				}
				c.Reply(msg)
			}
		}()

		for {
			select {
			case <-ctx.Done():
				_ = conn.Close(websocket.StatusNormalClosure, "")
				return
			case msg := <-outbound:
				if err := wsjson.Write(ctx, conn, msg); err != nil {
					if ctx.Err() == nil {
						log.Printf("channel %s write: %v", c.Name(), err)
					}
					return
				}
			}
		}
	})
}

func isNormalClose(err error) bool {
	status := websocket.CloseStatus(err)
	return status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled)
}
