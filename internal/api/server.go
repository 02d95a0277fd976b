// Package api exposes the audit pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/aidiscovery-cli/internal/audit"
	"github.com/sells-group/aidiscovery-cli/internal/model"
	"github.com/sells-group/aidiscovery-cli/internal/resilience"
	"github.com/sells-group/aidiscovery-cli/internal/store"
)

// Auditor is the part of audit.Service the API drives.
type Auditor interface {
	Prepare(ctx context.Context, req audit.Request) (*audit.Job, error)
	Deliver(ctx context.Context, a *model.Audit, b model.BusinessSignal) error
}

// Config holds the HTTP settings.
type Config struct {
	CORSOrigins []string
	JWTSecret   string
	JWTIssuer   string
}

// Server routes requests to the audit service and the store.
type Server struct {
	audits   Auditor
	store    store.Store
	limiter  Limiter
	gatherer prometheus.Gatherer
	cfg      Config

	// jobCtx outlives the request that started a job.
	jobCtx context.Context
	jobs   sync.WaitGroup
}

// New creates a Server. Background audits run under ctx. A nil limiter
// disables rate limiting; a nil gatherer serves the default registry.
func New(ctx context.Context, audits Auditor, st store.Store, limiter Limiter, gatherer prometheus.Gatherer, cfg Config) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		audits:   audits,
		store:    st,
		limiter:  limiter,
		gatherer: gatherer,
		cfg:      cfg,
		jobCtx:   ctx,
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		ExposedHeaders: []string{"Retry-After"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(rateLimit(s.limiter))
		r.Use(authenticate([]byte(s.cfg.JWTSecret), s.cfg.JWTIssuer))

		r.Route("/audits", func(r chi.Router) {
			r.Post("/", s.createAudit)
			r.Get("/", s.listAudits)
			r.Get("/{id}", s.getAudit)
			r.Get("/{id}/report", s.getReport)
			r.Post("/{id}/whatsapp", s.resendWhatsApp)
		})
	})
	return r
}

// Wait blocks until every background audit started by the server returns.
func (s *Server) Wait() {
	s.jobs.Wait()
}

// ListenAndServe serves h on port until ctx is cancelled, then shuts down
// gracefully.
func ListenAndServe(ctx context.Context, h http.Handler, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("api: listening", zap.Int("port", port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "api: listen")
		}
		return nil
	case <-ctx.Done():
	}

	zap.L().Info("api: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "api: shutdown")
	}
	return nil
}

type breakerSource interface {
	Breakers() *resilience.ServiceBreakers
}

// health reports "degraded" while any upstream circuit is open. The
// endpoint itself always answers 200.
func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	status := "ok"
	circuits := map[string]string{}
	if src, ok := s.audits.(breakerSource); ok {
		for name, st := range src.Breakers().States() {
			circuits[name] = st.String()
			if st == resilience.CircuitOpen {
				status = "degraded"
			}
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": status, "circuits": circuits})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
