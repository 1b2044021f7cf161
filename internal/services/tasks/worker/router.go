package worker

import (
	"context"
	"log"
	"net/http"
	"sync"

	"github.com/a-h/templ"
	"github.com/louisbranch/offline-tasks/internal/services/tasks/fetch"
)

// FetchEvent is one intercepted request.
type FetchEvent struct {
	Request    *http.Request
	background *Background
}

// NewFetchEvent wraps r. Work passed to WaitUntil is tracked by bg.
func NewFetchEvent(r *http.Request, bg *Background) *FetchEvent {
	return &FetchEvent{Request: r, background: bg}
}

// Context returns the request context.
func (e *FetchEvent) Context() context.Context {
	if e == nil || e.Request == nil {
		return context.Background()
	}
	return e.Request.Context()
}

// WaitUntil runs fn after the response may already have been sent. The
// worker does not shut down before fn returns.
func (e *FetchEvent) WaitUntil(fn func(context.Context) error) {
	name := "-"
	if e != nil && e.Request != nil {
		name = e.Request.Method + " " + e.Request.URL.Path
	}
	var bg *Background
	if e != nil {
		bg = e.background
	}
	bg.Go(e.Context(), name, fn)
}

// HandlerFunc answers a fetch event.
type HandlerFunc func(*FetchEvent) (*fetch.Response, error)

// CacheConfig assigns a cache and strategy to a set of asset paths.
type CacheConfig struct {
	CacheName string
	Strategy  Strategy
	Assets    []string
}

type cacheAssignment struct {
	cacheName string
	strategy  Strategy
}

var supportedMethods = map[string]struct{}{
	http.MethodGet:    {},
	http.MethodPost:   {},
	http.MethodPut:    {},
	http.MethodPatch:  {},
	http.MethodDelete: {},
}

// Router maps (method, path) to handlers and asset paths to cache strategies.
// Handlers take precedence over cache assignments.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]map[string]HandlerFunc
	assets   map[string]cacheAssignment
}

// NewRouter returns an empty router.
func NewRouter() *Router {
	return &Router{
		handlers: make(map[string]map[string]HandlerFunc),
		assets:   make(map[string]cacheAssignment),
	}
}

// Handle registers h for method and path. A later registration replaces an
// earlier one.
func (rt *Router) Handle(method, path string, h HandlerFunc) {
	if _, ok := supportedMethods[method]; !ok {
		log.Printf("route not registered: method %s not supported path=%s", method, path)
		return
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	byPath, ok := rt.handlers[method]
	if !ok {
		byPath = make(map[string]HandlerFunc)
		rt.handlers[method] = byPath
	}
	byPath[path] = h
}

// Get registers h for GET requests to path.
func (rt *Router) Get(path string, h HandlerFunc) { rt.Handle(http.MethodGet, path, h) }

// Post registers h for POST requests to path.
func (rt *Router) Post(path string, h HandlerFunc) { rt.Handle(http.MethodPost, path, h) }

// Put registers h for PUT requests to path.
func (rt *Router) Put(path string, h HandlerFunc) { rt.Handle(http.MethodPut, path, h) }

// Patch registers h for PATCH requests to path.
func (rt *Router) Patch(path string, h HandlerFunc) { rt.Handle(http.MethodPatch, path, h) }

// Delete registers h for DELETE requests to path.
func (rt *Router) Delete(path string, h HandlerFunc) { rt.Handle(http.MethodDelete, path, h) }

// Caches assigns asset paths to caches. When a path appears more than once
// the last entry wins.
func (rt *Router) Caches(configs []CacheConfig) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	for _, cfg := range configs {
		for _, path := range cfg.Assets {
			rt.assets[normalizePath(path)] = cacheAssignment{cacheName: cfg.CacheName, strategy: cfg.Strategy}
		}
	}
}

// Dispatch answers e. A registered handler wins; otherwise a GET or HEAD for
// an assigned asset path goes through its cache strategy; anything else is
// 404. HEAD is served from the GET entry with the body dropped.
func (rt *Router) Dispatch(e *FetchEvent) (*fetch.Response, error) {
	r := e.Request
	path := normalizePath(r.URL.Path)

	if _, ok := supportedMethods[r.Method]; !ok && r.Method != http.MethodHead {
		log.Printf("http method %q not supported path=%s", r.Method, path)
	}

	rt.mu.RLock()
	handler := rt.handlers[r.Method][path]
	assignment, assigned := rt.assets[path]
	rt.mu.RUnlock()

	if handler != nil {
		dispatchTotal.WithLabelValues("handler").Inc()
		return handler(e)
	}
	if assigned && assignment.strategy != nil {
		switch r.Method {
		case http.MethodGet:
			dispatchTotal.WithLabelValues("cache").Inc()
			return assignment.strategy(e.Context(), r, assignment.cacheName)
		case http.MethodHead:
			dispatchTotal.WithLabelValues("cache").Inc()
			get := r.Clone(e.Context())
			get.Method = http.MethodGet
			resp, err := assignment.strategy(e.Context(), get, assignment.cacheName)
			if err != nil || resp == nil {
				return resp, err
			}
			head := resp.Clone()
			head.Body = nil
			return head, nil
		}
	}
	dispatchTotal.WithLabelValues("not_found").Inc()
	return NotFound(r.Method, path), nil
}

// NotFound is the response for requests no route matches.
func NotFound(method, path string) *fetch.Response {
	body := "<pre>CANNOT " + templ.EscapeString(method) + " " + templ.EscapeString(path) + "</pre>"
	return fetch.HTML(http.StatusNotFound, body)
}

func normalizePath(path string) string {
	if path == "" || path == "/index.html" {
		return "/"
	}
	return path
}
