// Package msgchan provides a named broadcast channel with request/response
// semantics: Post delivers a message to every subscriber and waits for the
// first reply that carries the same correlation id.
package msgchan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// IDField is the message field carrying the correlation id.
const IDField = "_id"

var (
	// ErrNoSubscribers reports a post on a channel nobody listens to.
	ErrNoSubscribers = errors.New("channel has no subscribers")
	// ErrClosed reports use of a closed channel.
	ErrClosed = errors.New("channel closed")
)

// Message is a JSON-compatible payload.
type Message map[string]any

// ID returns the correlation id of m, if any.
func (m Message) ID() string {
	id, _ := m[IDField].(string)
	return id
}

// clone returns a shallow copy so subscribers cannot mutate each other's view.
func (m Message) clone() Message {
	out := make(Message, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Channel is a named broadcast channel. The zero value is not usable; use New.
type Channel struct {
	name string

	mu          sync.Mutex
	closed      bool
	nextSub     int
	subscribers map[int]func(Message)
	pending     map[string]chan Message
}

// New creates a channel with the given name.
func New(name string) *Channel {
	return &Channel{
		name:        strings.TrimSpace(name),
		subscribers: make(map[int]func(Message)),
		pending:     make(map[string]chan Message),
	}
}

// Name returns the channel name.
func (c *Channel) Name() string {
	if c == nil {
		return ""
	}
	return c.name
}

// Subscribe registers deliver for every posted message. Delivery happens on
// its own goroutine. The returned function removes the subscription.
func (c *Channel) Subscribe(deliver func(Message)) (unsubscribe func()) {
	if c == nil || deliver == nil {
		return func() {}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subscribers[id] = deliver
	return func() {
		c.mu.Lock()
		delete(c.subscribers, id)
		c.mu.Unlock()
	}
}

// Post broadcasts msg with a fresh correlation id and blocks until a reply
// with that id arrives or ctx is done. The reply is returned without the
// correlation field.
func (c *Channel) Post(ctx context.Context, msg Message) (Message, error) {
	if c == nil {
		return nil, ErrClosed
	}
	if ctx == nil {
		ctx = context.Background()
	}

	id := c.name + "-" + uuid.NewString()
	outgoing := msg.clone()
	outgoing[IDField] = id
	reply := make(chan Message, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if len(c.subscribers) == 0 {
		c.mu.Unlock()
		return nil, fmt.Errorf("post on %s: %w", c.name, ErrNoSubscribers)
	}
	c.pending[id] = reply
	targets := make([]func(Message), 0, len(c.subscribers))
	for _, deliver := range c.subscribers {
		targets = append(targets, deliver)
	}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	for _, deliver := range targets {
		go deliver(outgoing.clone())
	}

	select {
	case got := <-reply:
		return got, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("await reply on %s: %w", c.name, ctx.Err())
	}
}

// Reply resolves the pending Post whose correlation id matches msg. It
// reports false when no post is waiting for that id (already answered, timed
// out, or unknown).
func (c *Channel) Reply(msg Message) bool {
	if c == nil {
		return false
	}
	id := msg.ID()
	if id == "" {
		return false
	}
	c.mu.Lock()
	wait, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()
	if !ok {
		return false
	}
	out := msg.clone()
	delete(out, IDField)
	wait <- out
	return true
}

// Respond subscribes handle and replies with its result. Messages handle
// rejects are dropped, leaving the poster to time out.
func (c *Channel) Respond(handle func(Message) (Message, error)) (unsubscribe func()) {
	return c.Subscribe(func(msg Message) {
		result, err := handle(msg)
		if err != nil {
			return
		}
		out := result.clone()
		out[IDField] = msg.ID()
		c.Reply(out)
	})
}

// Close fails future posts and drops every subscriber.
func (c *Channel) Close() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.subscribers = map[int]func(Message){}
}
