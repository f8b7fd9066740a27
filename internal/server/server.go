// Package server exposes the optimizer over HTTP.
//
// Routes:
//
//	POST /v1/mix/anneal      raw tables, timed annealing
//	POST /v1/mix/exact       raw tables, Held-Karp
//	POST /v1/sets/optimize   tracks through the pipeline, optionally saved
//	GET  /v1/sets/{id}       a saved set
//	GET  /healthz
//	GET  /metrics            Prometheus exposition
package server

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/mixorder/pkg/config"
	"github.com/matzehuels/mixorder/pkg/pipeline"
	"github.com/matzehuels/mixorder/pkg/store"
)

// Server holds the dependencies shared by all handlers.
type Server struct {
	cfg     *config.Config
	runner  *pipeline.Runner
	store   store.Store
	logger  *log.Logger
	metrics http.Handler
}

var validate = validator.New()

// New creates a server. gatherer backs /metrics; nil uses the default
// Prometheus registry.
func New(cfg *config.Config, runner *pipeline.Runner, st store.Store, logger *log.Logger, gatherer prometheus.Gatherer) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		cfg:     cfg,
		runner:  runner,
		store:   st,
		logger:  logger,
		metrics: promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}),
	}
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestID)
	r.Use(s.limitBody)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/mix/anneal", s.handleAnneal)
		r.Post("/mix/exact", s.handleExact)
		r.Post("/sets/optimize", s.handleOptimize)
		r.Get("/sets/{id}", s.handleGetSet)
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.cfg.Server.ReadTimeout.Duration,
		// Annealing requests hold the connection for their whole budget.
		WriteTimeout: s.cfg.Server.MaxTimeLimit.Duration + 30*time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type ctxKey int

const requestIDKey ctxKey = iota

// requestID propagates X-Request-ID, generating one when absent.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func (s *Server) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}

// requestLogger returns the server logger tagged with the request ID.
func (s *Server) requestLogger(r *http.Request, handler string) *log.Logger {
	id, _ := r.Context().Value(requestIDKey).(string)
	return s.logger.With("request_id", id, "handler", handler)
}
