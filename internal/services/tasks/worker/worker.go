package worker

import (
	"errors"
	"log"
	"net/http"

	"github.com/louisbranch/offline-tasks/internal/services/tasks/fetch"
	apperrors "github.com/louisbranch/offline-tasks/internal/services/tasks/platform/errors"
	"github.com/louisbranch/offline-tasks/internal/services/tasks/platform/httpx"
	"github.com/louisbranch/offline-tasks/internal/services/tasks/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/louisbranch/offline-tasks/internal/services/tasks/worker"

// Worker is the HTTP face of the interception layer.
type Worker struct {
	router    *Router
	lifecycle *Lifecycle
	origin    fetch.Fetcher
	tracer    trace.Tracer
}

// New builds a worker. Until lifecycle is activated, requests pass through
// to origin.
func New(router *Router, lifecycle *Lifecycle, origin fetch.Fetcher) *Worker {
	return &Worker{
		router:    router,
		lifecycle: lifecycle,
		origin:    origin,
		tracer:    otel.Tracer(tracerName),
	}
}

// ServeHTTP turns r into a fetch event and writes the resulting response.
func (w *Worker) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	ctx, span := w.tracer.Start(r.Context(), "worker.fetch", trace.WithAttributes(
		attribute.String("http.request.method", r.Method),
		attribute.String("url.path", r.URL.Path),
	))
	defer span.End()
	r = r.WithContext(ctx)

	var (
		resp *fetch.Response
		err  error
	)
	if w.lifecycle == nil || !w.lifecycle.Controlling() {
		dispatchTotal.WithLabelValues("passthrough").Inc()
		span.SetAttributes(attribute.Bool("worker.passthrough", true))
		resp, err = w.passThrough(r)
	} else {
		resp, err = w.router.Dispatch(NewFetchEvent(r, w.lifecycle.Background()))
	}
	if err != nil {
		err = classify(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Printf("fetch failed method=%s path=%s status=%d err=%v", r.Method, r.URL.Path, apperrors.HTTPStatus(err), err)
		httpx.WriteError(rw, err)
		return
	}
	span.SetAttributes(attribute.Int("http.response.status_code", resp.Status))
	if err := resp.Write(rw); err != nil {
		log.Printf("write response failed path=%s err=%v", r.URL.Path, err)
	}
}

func (w *Worker) passThrough(r *http.Request) (*fetch.Response, error) {
	if w.origin == nil {
		return nil, apperrors.E(apperrors.KindGateway, "origin is not configured")
	}
	return w.origin.Fetch(r.Context(), r)
}

// classify gives untyped failures an error kind for status mapping.
func classify(err error) error {
	if apperrors.KindOf(err) != apperrors.KindUnknown {
		return err
	}
	switch {
	case errors.Is(err, ErrNoResponse), errors.Is(err, fetch.ErrNetwork):
		return apperrors.Wrap(apperrors.KindGateway, "no cached or network response", err)
	case errors.Is(err, storage.ErrUnavailable):
		return apperrors.Wrap(apperrors.KindUnavailable, "storage unavailable", err)
	default:
		return err
	}
}
