package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/fplfetch/pkg/domain/interfaces"
	"github.com/m-mizutani/fplfetch/pkg/domain/model"
	"github.com/m-mizutani/fplfetch/pkg/utils/async"
)

// config holds internal HTTP server configuration
type config struct {
	addr           string
	metricsHandler http.Handler
	errorReporter  interfaces.ErrorReporter
}

// Option is a functional option for Server configuration
type Option func(*config)

// WithAddr sets the server address
func WithAddr(addr string) Option {
	return func(c *config) {
		c.addr = addr
	}
}

// WithMetricsHandler exposes h on /metrics
func WithMetricsHandler(h http.Handler) Option {
	return func(c *config) {
		c.metricsHandler = h
	}
}

// WithErrorReporter forwards failures of background fetches to r
func WithErrorReporter(r interfaces.ErrorReporter) Option {
	return func(c *config) {
		c.errorReporter = r
	}
}

// Server represents the HTTP server
type Server struct {
	*http.Server
	dispatcher *async.Dispatcher
}

// WaitBackground blocks until background fetches started by the server finish
func (s *Server) WaitBackground(ctx context.Context) error {
	return s.dispatcher.Wait(ctx)
}

// NewServer creates a new HTTP server
func NewServer(
	ctx context.Context,
	fetchUC interfaces.FetchUseCase,
	ds model.Dataset,
	opts ...Option,
) (*Server, error) {
	// Default configuration
	cfg := &config{
		addr: "localhost:8080",
	}

	// Apply options
	for _, opt := range opts {
		opt(cfg)
	}

	router := chi.NewRouter()

	// Global middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(LoggingMiddleware(ctx))
	router.Use(middleware.Recoverer)

	// Health check
	router.Get("/health", handleHealth)

	// Dataset
	var dispatchOpts []async.Option
	if cfg.errorReporter != nil {
		dispatchOpts = append(dispatchOpts, async.WithErrorReporter(cfg.errorReporter))
	}
	dispatcher := async.NewDispatcher(dispatchOpts...)
	fetchHandler := NewFetchHandler(fetchUC, ds, dispatcher)
	router.Get("/status", fetchHandler.HandleStatus)
	router.Post("/fetch", fetchHandler.HandleFetch)
	router.Handle("/data/*", http.StripPrefix("/data", http.FileServer(http.Dir(ds.TargetDir))))

	if cfg.metricsHandler != nil {
		router.Handle("/metrics", cfg.metricsHandler)
	}

	server := &Server{
		Server: &http.Server{
			Addr:              cfg.addr,
			Handler:           router,
			ReadHeaderTimeout: 15 * time.Second,
		},
		dispatcher: dispatcher,
	}

	return server, nil
}
