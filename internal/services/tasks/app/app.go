// Package app wires the task handlers, cache strategies and lifecycle into
// one worker instance.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/louisbranch/offline-tasks/internal/platform/msgchan"
	"github.com/louisbranch/offline-tasks/internal/services/tasks/fetch"
	"github.com/louisbranch/offline-tasks/internal/services/tasks/storage"
	"github.com/louisbranch/offline-tasks/internal/services/tasks/worker"
)

// SanitizerChannel is the channel message posts go out on.
const SanitizerChannel = "html-sanitizer"

// CacheKindStatic prefixes the static asset cache generation.
const CacheKindStatic = "static"

// Store is the persistence the app needs.
type Store interface {
	storage.KV
	storage.CacheStorage
}

// Config holds app behavior settings.
type Config struct {
	Version        string
	ResponseMode   ResponseMode
	StaticStrategy worker.StrategyName
	FetchTimeout   time.Duration
	// ReplyTimeout bounds how long a message post waits for a reply.
	ReplyTimeout time.Duration
	Assets       []string
}

// Deps are the collaborators the app runs against.
type Deps struct {
	Store  Store
	Origin fetch.Fetcher
	// Channel carries message posts. Nil creates an unattached channel.
	Channel *msgchan.Channel
}

// App is one worker instance with its handlers and state.
type App struct {
	cfg        Config
	tasks      TaskRepository
	filters    FilterRepository
	caches     storage.CacheStorage
	strategies *worker.Strategies
	router     *worker.Router
	lifecycle  *worker.Lifecycle
	worker     *worker.Worker
	channel    *msgchan.Channel
}

// New builds an app. The worker passes requests through to the origin until
// Start activates it.
func New(cfg Config, deps Deps) (*App, error) {
	if deps.Store == nil {
		return nil, errors.New("store is required")
	}
	if deps.Origin == nil {
		return nil, errors.New("origin is required")
	}
	if cfg.Version == "" {
		return nil, errors.New("version is required")
	}
	if cfg.ResponseMode == "" {
		cfg.ResponseMode = ModeRedirect
	}
	if _, err := ParseResponseMode(string(cfg.ResponseMode)); err != nil {
		return nil, err
	}
	if cfg.StaticStrategy == "" {
		cfg.StaticStrategy = worker.StrategyCacheFirst
	}
	if cfg.ReplyTimeout <= 0 {
		cfg.ReplyTimeout = 5 * time.Second
	}
	channel := deps.Channel
	if channel == nil {
		channel = msgchan.New(SanitizerChannel)
	}

	background := worker.NewBackground()
	strategies := &worker.Strategies{
		Caches:       deps.Store,
		Fetcher:      deps.Origin,
		Background:   background,
		FetchTimeout: cfg.FetchTimeout,
	}
	staticStrategy, err := strategies.Lookup(cfg.StaticStrategy)
	if err != nil {
		return nil, err
	}
	cacheName := worker.CacheName(CacheKindStatic, cfg.Version)

	a := &App{
		cfg:        cfg,
		tasks:      NewTaskRepository(deps.Store),
		filters:    NewFilterRepository(deps.Store),
		caches:     deps.Store,
		strategies: strategies,
		router:     worker.NewRouter(),
		lifecycle: worker.NewLifecycle(worker.LifecycleConfig{
			Caches:     deps.Store,
			Fetcher:    deps.Origin,
			CacheName:  cacheName,
			Assets:     cfg.Assets,
			Background: background,
		}),
		channel: channel,
	}
	a.routes()
	a.router.Caches([]worker.CacheConfig{{
		CacheName: cacheName,
		Strategy:  staticStrategy,
		Assets:    cfg.Assets,
	}})
	a.worker = worker.New(a.router, a.lifecycle, deps.Origin)
	return a, nil
}

func (a *App) routes() {
	a.router.Get("/", a.handleList)
	a.router.Post("/set-filter", a.handleSetFilter)
	a.router.Post("/create", a.handleCreate)
	a.router.Patch("/complete", a.handleComplete)
	a.router.Get("/complete", a.handleComplete)
	a.router.Delete("/delete", a.handleDelete)
	a.router.Get("/delete", a.handleDelete)
	a.router.Get("/edit", a.handleEditForm)
	a.router.Patch("/edit", a.handleEdit)
	a.router.Post("/edit", a.handleEdit)
	a.router.Get("/post-message", a.handlePostMessage)
	a.router.Post("/post-message", a.handlePostMessage)
}

// Handler returns the worker as an HTTP handler.
func (a *App) Handler() http.Handler {
	return a.worker
}

// Channel returns the message channel.
func (a *App) Channel() *msgchan.Channel {
	return a.channel
}

// Lifecycle exposes the worker lifecycle.
func (a *App) Lifecycle() *worker.Lifecycle {
	return a.lifecycle
}

// Tasks exposes the task repository.
func (a *App) Tasks() TaskRepository {
	return a.tasks
}

// Start installs and activates the worker. A failed install is logged and
// leaves the worker passing requests through to the origin.
func (a *App) Start(ctx context.Context) error {
	if err := a.lifecycle.Install(ctx); err != nil {
		log.Printf("worker install failed, passing requests through: %v", err)
		return nil
	}
	if err := a.lifecycle.Activate(ctx); err != nil {
		return fmt.Errorf("activate worker: %w", err)
	}
	return nil
}

// Shutdown waits for background work started by handlers.
func (a *App) Shutdown(ctx context.Context) error {
	return a.lifecycle.Shutdown(ctx)
}
