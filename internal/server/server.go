/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/protoreg/internal/api"
	"github.com/friendsincode/protoreg/internal/audit"
	"github.com/friendsincode/protoreg/internal/blobstore"
	"github.com/friendsincode/protoreg/internal/config"
	"github.com/friendsincode/protoreg/internal/db"
	"github.com/friendsincode/protoreg/internal/document"
	"github.com/friendsincode/protoreg/internal/eventbus"
	"github.com/friendsincode/protoreg/internal/events"
	"github.com/friendsincode/protoreg/internal/lock"
	"github.com/friendsincode/protoreg/internal/registration"
	"github.com/friendsincode/protoreg/internal/sheet"
	"github.com/friendsincode/protoreg/internal/telemetry"
	"github.com/friendsincode/protoreg/internal/web"
)

// Server bundles HTTP and supporting services.
type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server
	closers    []func() error

	store      blobstore.Store
	locker     lock.Locker
	bus        *events.Bus
	db         *gorm.DB
	auditSvc   *audit.Service
	forwarders []*eventbus.Forwarder
	api        *api.API
	webHandler *web.Handler

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New constructs the server and wires dependencies.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	router.Use(telemetry.TracingMiddleware("protoreg-http"))
	router.Use(telemetry.MetricsMiddleware)
	router.Use(middleware.Timeout(60 * time.Second))

	srv := &Server{
		cfg:    cfg,
		logger: logger,
		router: router,
		bus:    events.NewBus(),
	}

	if err := srv.initDependencies(ctx); err != nil {
		_ = srv.Close()
		return nil, err
	}

	srv.configureRoutes()
	srv.startBackgroundWorkers()

	addr := fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort)
	srv.httpServer = &http.Server{
		Addr:              addr,
		Handler:           srv.router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return srv, nil
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; frame-ancestors 'none'; base-uri 'self'; form-action 'self'")

		// Only advertise HSTS for requests served over HTTPS.
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) initDependencies(ctx context.Context) error {
	store, err := blobstore.New(ctx, s.cfg, s.logger)
	if err != nil {
		return err
	}
	s.store = store

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := store.CheckAccess(checkCtx); err != nil {
		// Submissions will fail until the container is reachable; keep serving pages.
		s.logger.Warn().Err(err).Str("backend", store.Backend()).Msg("blob storage not reachable at startup")
	}

	locker, err := lock.New(s.cfg, s.logger)
	if err != nil {
		return fmt.Errorf("create blob lock: %w", err)
	}
	s.locker = locker
	s.DeferClose(locker.Close)
	s.logger.Info().Str("backend", locker.Backend()).Msg("blob write lock ready")

	if err := s.initLedger(); err != nil {
		return err
	}
	if err := s.initForwarders(); err != nil {
		return err
	}

	participants := registration.NewParticipantService(
		sheet.NewCodec(store, s.cfg.ParticipantBlob, s.logger), locker, s.bus, s.logger)
	protocols := registration.NewProtocolService(
		document.NewCodec(store, s.cfg.ProtocolBlob, s.logger), locker, s.bus, s.logger)
	s.api = api.New(participants, protocols, s.cfg.MaxBodyBytes(), s.logger)

	webHandler, err := web.NewHandler(s.logger)
	if err != nil {
		return err
	}
	s.webHandler = webHandler

	return nil
}

// HTTPServer exposes the underlying HTTP server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close stops background workers and releases resources in reverse order.
func (s *Server) Close() error {
	s.stopBackgroundWorkers()
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.closers = nil
	return firstErr
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

func (s *Server) startBackgroundWorkers() {
	if s.auditSvc == nil && len(s.forwarders) == 0 {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	if s.auditSvc != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			s.auditSvc.Start(ctx)
		}()

		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					db.UpdateConnectionMetrics(s.db)
				}
			}
		}()
	}

	for _, f := range s.forwarders {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			if err := f.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error().Err(err).Str("broker", f.Name()).Msg("event forwarder exited")
			}
		}()
	}
}

func (s *Server) stopBackgroundWorkers() {
	if s.bgCancel == nil {
		return
	}
	s.bgCancel()
	s.bgWG.Wait()
	s.bgCancel = nil
}

func (s *Server) configureRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/readyz", s.handleReady)
	s.router.Handle("/metrics", telemetry.Handler())

	s.api.Routes(s.router)
	s.webHandler.Routes(s.router)
}
