package worker

import (
	"context"
	"log"
	"sync"
)

// Background tracks work that outlives the request that started it.
type Background struct {
	wg sync.WaitGroup
}

// NewBackground returns an empty tracker.
func NewBackground() *Background {
	return &Background{}
}

// Go runs fn on its own goroutine with a context detached from parent's
// cancellation. Failures are logged.
func (b *Background) Go(parent context.Context, name string, fn func(context.Context) error) {
	if fn == nil {
		return
	}
	if parent == nil {
		parent = context.Background()
	}
	ctx := context.WithoutCancel(parent)
	if b == nil {
		go runBackground(ctx, name, fn)
		return
	}
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		runBackground(ctx, name, fn)
	}()
}

func runBackground(ctx context.Context, name string, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		backgroundTotal.WithLabelValues("error").Inc()
		log.Printf("background work failed name=%s err=%v", name, err)
		return
	}
	backgroundTotal.WithLabelValues("ok").Inc()
}

// Wait blocks until every tracked task finished or ctx is done.
func (b *Background) Wait(ctx context.Context) error {
	if b == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
