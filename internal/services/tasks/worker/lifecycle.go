package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/louisbranch/offline-tasks/internal/services/tasks/fetch"
	"github.com/louisbranch/offline-tasks/internal/services/tasks/storage"
	"golang.org/x/sync/errgroup"
)

// State is a lifecycle phase.
type State string

const (
	StateParsed     State = "parsed"
	StateInstalling State = "installing"
	StateInstalled  State = "installed"
	StateActivating State = "activating"
	StateActivated  State = "activated"
	// StateRedundant marks a worker whose install failed.
	StateRedundant State = "redundant"
)

var allStates = []State{StateParsed, StateInstalling, StateInstalled, StateActivating, StateActivated, StateRedundant}

// installConcurrency bounds parallel precache fetches.
const installConcurrency = 4

// CacheName builds a generation name such as "static-cache_0.0.1".
func CacheName(kind, version string) string {
	return strings.TrimSpace(kind) + "-cache_" + strings.TrimSpace(version)
}

// LifecycleConfig configures a Lifecycle.
type LifecycleConfig struct {
	Caches  storage.CacheStorage
	Fetcher fetch.Fetcher
	// CacheName is the current generation.
	CacheName string
	// Assets are the paths precached at install.
	Assets     []string
	Background *Background
}

// Lifecycle drives install and activation of one worker version.
type Lifecycle struct {
	caches     storage.CacheStorage
	fetcher    fetch.Fetcher
	cacheName  string
	assets     []string
	background *Background

	mu          sync.RWMutex
	state       State
	skipWaiting bool
}

// NewLifecycle returns a lifecycle in the parsed state.
func NewLifecycle(cfg LifecycleConfig) *Lifecycle {
	l := &Lifecycle{
		caches:     cfg.Caches,
		fetcher:    cfg.Fetcher,
		cacheName:  cfg.CacheName,
		assets:     append([]string(nil), cfg.Assets...),
		background: cfg.Background,
	}
	l.setState(StateParsed)
	return l
}

// State returns the current phase.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// CacheName returns the current generation name.
func (l *Lifecycle) CacheName() string {
	return l.cacheName
}

// Background returns the tracker for work that must finish before shutdown.
func (l *Lifecycle) Background() *Background {
	return l.background
}

// Controlling reports whether the worker answers requests.
func (l *Lifecycle) Controlling() bool {
	return l.State() == StateActivated
}

// SkipWaiting lets activation follow install without waiting for an older
// worker to release its clients.
func (l *Lifecycle) SkipWaiting() {
	l.mu.Lock()
	l.skipWaiting = true
	l.mu.Unlock()
}

// Install fetches every asset and stores them in the current generation in
// one transaction. Any failure leaves the lifecycle redundant and the cache
// untouched.
func (l *Lifecycle) Install(ctx context.Context) error {
	if err := l.transition(StateInstalling, StateParsed); err != nil {
		return err
	}
	log.Printf("worker installing cache=%s assets=%d", l.cacheName, len(l.assets))

	entries, err := l.precache(ctx)
	if err == nil {
		err = l.caches.PutAll(ctx, l.cacheName, entries)
	}
	if err != nil {
		l.setState(StateRedundant)
		return fmt.Errorf("install %s: %w", l.cacheName, err)
	}

	l.SkipWaiting()
	l.setState(StateInstalled)
	log.Printf("worker installed cache=%s", l.cacheName)
	return nil
}

func (l *Lifecycle) precache(ctx context.Context) ([]storage.CachedResponse, error) {
	if l.caches == nil || l.fetcher == nil {
		return nil, errors.New("cache storage and fetcher are required")
	}
	entries := make([]storage.CachedResponse, len(l.assets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(installConcurrency)
	for i, path := range l.assets {
		g.Go(func() error {
			req, err := fetch.NewGet(gctx, path)
			if err != nil {
				return err
			}
			resp, err := l.fetcher.Fetch(gctx, req)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", path, err)
			}
			if !resp.OK() {
				return fmt.Errorf("fetch %s: status %d", path, resp.Status)
			}
			entries[i] = storage.CachedResponse{Key: fetch.RequestKey(req), Response: resp}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}

// Activate evicts every other cache generation and claims clients. Eviction
// errors are logged; activation still completes.
func (l *Lifecycle) Activate(ctx context.Context) error {
	l.mu.RLock()
	skip := l.skipWaiting
	l.mu.RUnlock()
	if !skip {
		return errors.New("activate: installed worker is waiting")
	}
	if err := l.transition(StateActivating, StateInstalled); err != nil {
		return err
	}

	names, err := l.caches.CacheNames(ctx)
	if err != nil {
		log.Printf("list caches failed err=%v", err)
	}
	for _, name := range names {
		if name == l.cacheName {
			continue
		}
		if _, err := l.caches.DeleteCache(ctx, name); err != nil {
			log.Printf("evict cache failed cache=%s err=%v", name, err)
			continue
		}
		log.Printf("evicted cache=%s", name)
	}

	l.setState(StateActivated)
	log.Printf("worker activated cache=%s", l.cacheName)
	return nil
}

// Shutdown waits for background work, bounded by ctx.
func (l *Lifecycle) Shutdown(ctx context.Context) error {
	if err := l.background.Wait(ctx); err != nil {
		return fmt.Errorf("drain background work: %w", err)
	}
	return nil
}

func (l *Lifecycle) transition(to State, from State) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != from {
		return fmt.Errorf("cannot move to %s from %s", to, l.state)
	}
	l.setStateLocked(to)
	return nil
}

func (l *Lifecycle) setState(state State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.setStateLocked(state)
}

func (l *Lifecycle) setStateLocked(state State) {
	l.state = state
	for _, s := range allStates {
		value := 0.0
		if s == state {
			value = 1
		}
		lifecycleState.WithLabelValues(string(s)).Set(value)
	}
}
