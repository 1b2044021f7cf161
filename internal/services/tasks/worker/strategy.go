package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/louisbranch/offline-tasks/internal/services/tasks/fetch"
	"github.com/louisbranch/offline-tasks/internal/services/tasks/storage"
)

// ErrNoResponse means neither the cache nor the network produced a response.
var ErrNoResponse = errors.New("no cached or network response")

// Strategy answers a GET request from cacheName and the network.
type Strategy func(ctx context.Context, r *http.Request, cacheName string) (*fetch.Response, error)

// StrategyName identifies a built-in strategy in configuration.
type StrategyName string

const (
	StrategyCacheFirst           StrategyName = "cache-first"
	StrategyNetworkFirst         StrategyName = "network-first"
	StrategyStaleWhileRevalidate StrategyName = "stale-while-revalidate"
)

// Strategies builds cache strategies over one cache storage and fetcher.
type Strategies struct {
	Caches  storage.CacheStorage
	Fetcher fetch.Fetcher
	// Background tracks revalidation fetches. Nil runs them untracked.
	Background *Background
	// FetchTimeout bounds each network fetch; zero means no bound.
	FetchTimeout time.Duration
}

// Lookup returns the strategy registered under name.
func (s *Strategies) Lookup(name StrategyName) (Strategy, error) {
	switch name {
	case StrategyCacheFirst:
		return s.CacheFirst, nil
	case StrategyNetworkFirst:
		return s.NetworkFirst, nil
	case StrategyStaleWhileRevalidate:
		return s.StaleWhileRevalidate, nil
	default:
		return nil, fmt.Errorf("unknown cache strategy %q", name)
	}
}

// CacheFirst returns a cached response when present; otherwise it fetches,
// stores and returns the network response. Hits are never revalidated.
func (s *Strategies) CacheFirst(ctx context.Context, r *http.Request, cacheName string) (*fetch.Response, error) {
	key := fetch.RequestKey(r)
	if cached, ok := s.match(ctx, cacheName, key); ok {
		strategyTotal.WithLabelValues(string(StrategyCacheFirst), "hit").Inc()
		return cached, nil
	}
	strategyTotal.WithLabelValues(string(StrategyCacheFirst), "miss").Inc()

	resp, err := s.fetch(ctx, r)
	if err != nil {
		strategyTotal.WithLabelValues(string(StrategyCacheFirst), "network_error").Inc()
		return nil, fmt.Errorf("%w: %w", ErrNoResponse, err)
	}
	s.put(ctx, cacheName, key, resp)
	return resp, nil
}

// NetworkFirst prefers a fresh network response, storing it, and falls back
// to the cache when the network fails.
func (s *Strategies) NetworkFirst(ctx context.Context, r *http.Request, cacheName string) (*fetch.Response, error) {
	key := fetch.RequestKey(r)
	resp, err := s.fetch(ctx, r)
	if err == nil {
		strategyTotal.WithLabelValues(string(StrategyNetworkFirst), "network").Inc()
		s.put(ctx, cacheName, key, resp)
		return resp, nil
	}
	if cached, ok := s.match(ctx, cacheName, key); ok {
		strategyTotal.WithLabelValues(string(StrategyNetworkFirst), "fallback").Inc()
		return cached, nil
	}
	strategyTotal.WithLabelValues(string(StrategyNetworkFirst), "network_error").Inc()
	return nil, fmt.Errorf("%w: %w", ErrNoResponse, err)
}

type fetchResult struct {
	resp *fetch.Response
	err  error
}

// StaleWhileRevalidate starts a network fetch and a cache lookup together.
// A cached response is returned immediately while the fetch refreshes the
// cache in the background; on a miss the network response is awaited.
func (s *Strategies) StaleWhileRevalidate(ctx context.Context, r *http.Request, cacheName string) (*fetch.Response, error) {
	key := fetch.RequestKey(r)
	results := make(chan fetchResult, 1)
	s.Background.Go(ctx, "revalidate "+key, func(bg context.Context) error {
		resp, err := s.fetch(bg, r.Clone(bg))
		if err == nil {
			s.put(bg, cacheName, key, resp)
		}
		results <- fetchResult{resp: resp, err: err}
		return err
	})

	if cached, ok := s.match(ctx, cacheName, key); ok {
		strategyTotal.WithLabelValues(string(StrategyStaleWhileRevalidate), "hit").Inc()
		return cached, nil
	}
	strategyTotal.WithLabelValues(string(StrategyStaleWhileRevalidate), "miss").Inc()

	select {
	case result := <-results:
		if result.err != nil {
			strategyTotal.WithLabelValues(string(StrategyStaleWhileRevalidate), "network_error").Inc()
			return nil, fmt.Errorf("%w: %w", ErrNoResponse, result.err)
		}
		return result.resp, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrNoResponse, ctx.Err())
	}
}

func (s *Strategies) fetch(ctx context.Context, r *http.Request) (*fetch.Response, error) {
	if s.Fetcher == nil {
		return nil, fmt.Errorf("%w: no fetcher configured", fetch.ErrNetwork)
	}
	if s.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.FetchTimeout)
		defer cancel()
	}
	return s.Fetcher.Fetch(ctx, r)
}

func (s *Strategies) match(ctx context.Context, cacheName, key string) (*fetch.Response, bool) {
	if s.Caches == nil {
		return nil, false
	}
	cached, ok, err := s.Caches.Match(ctx, cacheName, key)
	if err != nil {
		log.Printf("cache match failed cache=%s key=%s err=%v", cacheName, key, err)
		return nil, false
	}
	return cached, ok
}

// put stores successful responses only. Failures are logged since the
// response is still usable.
func (s *Strategies) put(ctx context.Context, cacheName, key string, resp *fetch.Response) {
	if s.Caches == nil || !resp.OK() {
		return
	}
	if err := s.Caches.Put(ctx, cacheName, key, resp.Clone()); err != nil {
		log.Printf("cache put failed cache=%s key=%s err=%v", cacheName, key, err)
	}
}
