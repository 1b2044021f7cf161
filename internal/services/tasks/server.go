// Package tasks hosts the offline task list: the worker-fronted app, its
// message channel endpoint, and metrics.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/louisbranch/offline-tasks/internal/platform/msgchan"
	"github.com/louisbranch/offline-tasks/internal/platform/timeouts"
	"github.com/louisbranch/offline-tasks/internal/services/tasks/app"
	"github.com/louisbranch/offline-tasks/internal/services/tasks/fetch"
	"github.com/louisbranch/offline-tasks/internal/services/tasks/origin"
	"github.com/louisbranch/offline-tasks/internal/services/tasks/platform/httpx"
	"github.com/louisbranch/offline-tasks/internal/services/tasks/storage/sqlite"
	"github.com/louisbranch/offline-tasks/internal/services/tasks/worker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config defines startup inputs for the tasks service.
type Config struct {
	HTTPAddr string
	DBPath   string
	// OriginURL points at a remote origin; empty serves the embedded assets.
	OriginURL      string
	Version        string
	ResponseMode   string
	StaticStrategy string
	FetchTimeout   time.Duration
	// LocalSanitizer answers html-sanitizer posts in process.
	LocalSanitizer bool
	// ChannelOrigins are extra host patterns allowed to open channel sockets.
	ChannelOrigins []string
}

// Server hosts the tasks HTTP surface and lifecycle.
type Server struct {
	httpAddr    string
	httpServer  *http.Server
	store       *sqlite.Store
	app         *app.App
	unsubscribe func()
}

// NewHandler routes metrics and channel sockets beside the worker.
func NewHandler(a *app.App, channelOrigins []string) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	socket := msgchan.WebSocketHandler(a.Channel(), &websocket.AcceptOptions{OriginPatterns: channelOrigins})
	mux.HandleFunc("GET /channels/{name}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("name") != a.Channel().Name() {
			http.NotFound(w, r)
			return
		}
		socket.ServeHTTP(w, r)
	})
	mux.Handle("/", a.Handler())
	return httpx.Chain(mux,
		httpx.RecoverPanic(),
		httpx.RequestID(),
	)
}

// NewServer opens storage, starts the worker, and constructs the server.
func NewServer(ctx context.Context, cfg Config) (*Server, error) {
	httpAddr := strings.TrimSpace(cfg.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	mode, err := app.ParseResponseMode(cfg.ResponseMode)
	if err != nil {
		return nil, err
	}
	originFetcher, err := newOrigin(cfg.OriginURL, cfg.FetchTimeout)
	if err != nil {
		return nil, err
	}

	store, err := sqlite.Open(cfg.DBPath, app.Partitions...)
	if err != nil {
		return nil, fmt.Errorf("open task store: %w", err)
	}
	a, err := app.New(app.Config{
		Version:        cfg.Version,
		ResponseMode:   mode,
		StaticStrategy: worker.StrategyName(cfg.StaticStrategy),
		FetchTimeout:   cfg.FetchTimeout,
		ReplyTimeout:   timeouts.ChannelReply,
		Assets:         origin.Assets,
	}, app.Deps{Store: store, Origin: originFetcher})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("compose tasks app: %w", err)
	}

	installCtx, cancel := context.WithTimeout(ctx, timeouts.Install)
	err = a.Start(installCtx)
	cancel()
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	log.Printf("worker %s cache=%s mode=%s", a.Lifecycle().State(), a.Lifecycle().CacheName(), mode)

	s := &Server{
		httpAddr: httpAddr,
		httpServer: &http.Server{
			Addr:              httpAddr,
			Handler:           NewHandler(a, cfg.ChannelOrigins),
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
		store: store,
		app:   a,
	}
	if cfg.LocalSanitizer {
		s.unsubscribe = a.Channel().Respond(app.SanitizerResponder)
	}
	return s, nil
}

func newOrigin(originURL string, timeout time.Duration) (fetch.Fetcher, error) {
	if strings.TrimSpace(originURL) == "" {
		return fetch.HandlerFetcher{Handler: origin.Handler()}, nil
	}
	client, err := fetch.NewClientFetcher(originURL, timeout)
	if err != nil {
		return nil, fmt.Errorf("origin client: %w", err)
	}
	return client, nil
}

// Handler returns the composed root handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe serves HTTP traffic until context cancellation or server stop.
// Background work from handlers is drained before returning.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("tasks server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("tasks listening at %s", s.httpAddr)
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown tasks http server: %w", err)
		}
		return s.drain()
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return s.drain()
		}
		return fmt.Errorf("serve tasks http: %w", err)
	}
}

func (s *Server) drain() error {
	ctx, cancel := context.WithTimeout(context.Background(), timeouts.BackgroundDrain)
	defer cancel()
	return s.app.Shutdown(ctx)
}

// Close closes open server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	if s.app != nil {
		s.app.Channel().Close()
	}
	if s.httpServer != nil {
		_ = s.httpServer.Close()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close task store: %v", err)
		}
	}
}
