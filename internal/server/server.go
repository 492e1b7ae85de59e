// Package server assembles all HTTP handlers and starts the server.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/matthewbaird/entityui/internal/logging"
	"github.com/matthewbaird/entityui/internal/page"
)

// Config holds server configuration.
type Config struct {
	Addr  string
	Pages *page.Factory
	// WebSocket serves /api/ws. Nil leaves the route out.
	WebSocket http.Handler
	// Registry serves /metrics and receives the request duration histogram.
	// Nil leaves both out.
	Registry *prometheus.Registry
	Log      logrus.FieldLogger
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration
}

// NewRouter builds the HTTP routes.
func NewRouter(cfg Config) http.Handler {
	log := logging.OrDiscard(cfg.Log).WithField("component", "http")

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)

	if cfg.Registry != nil {
		r.Use(instrument(cfg.Registry))
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	h := &dataHandler{pages: cfg.Pages, log: log}
	r.Route("/api", func(r chi.Router) {
		r.Get("/entities", h.listEntities)
		r.Get("/entities/{entity}", h.getEntity)

		r.Route("/data/{entity}", func(r chi.Router) {
			r.Get("/", h.list)
			r.Post("/", h.create)
			r.Get("/{id}", h.get)
			r.Patch("/{id}", h.update)
		})

		if cfg.WebSocket != nil {
			r.Get("/ws", cfg.WebSocket.ServeHTTP)
		}
	})
	return r
}

// Run starts the HTTP server and shuts it down when ctx is done.
func Run(ctx context.Context, cfg Config) error {
	log := logging.OrDiscard(cfg.Log)
	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{"addr": cfg.Addr, "entities": len(cfg.Pages.Names())}).Info("starting server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	log.Info("shutting down server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
