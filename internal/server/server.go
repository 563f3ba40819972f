// Package server exposes the persisted content indexes over a read-only HTTP API.
//
// Handlers only ever read the documents the build coordinators committed, so
// a client observes either the previous or the next snapshot of a pipeline.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/contented/internal/eventstore"
	ferrors "git.home.luguber.info/inful/contented/internal/foundation/errors"
	"git.home.luguber.info/inful/contented/internal/index"
	"git.home.luguber.info/inful/contented/internal/logfields"
	"git.home.luguber.info/inful/contented/internal/metrics"
	smw "git.home.luguber.info/inful/contented/internal/server/middleware"
)

// Reader is the read side of the index store.
type Reader interface {
	Read(typ string) (index.Document, error)
	ReadManifest() (index.Manifest, error)
}

// Options wires the data sources of the API. Journal and Registry are optional.
type Options struct {
	Listen   string
	Store    Reader
	Journal  *eventstore.Journal
	Registry *prom.Registry
	Logger   *slog.Logger
}

// Server serves the read API.
type Server struct {
	opts         Options
	logger       *slog.Logger
	errorAdapter *ferrors.HTTPErrorAdapter
	router       chi.Router
	startTime    time.Time

	httpServer *http.Server
	addr       net.Addr
}

// New builds the router. It does not listen until Start.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		opts:         opts,
		logger:       logger,
		errorAdapter: ferrors.NewHTTPErrorAdapter(logger),
		startTime:    time.Now(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(smw.Chain(s.logger, s.errorAdapter))

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/pipelines", s.handlePipelines)
		r.Get("/pipelines/{type}", s.handleDocument)
		r.Get("/pipelines/{type}/records/{id}", s.handleRecord)
		r.Get("/batches", s.handleBatches)
		r.Get("/batches/{id}", s.handleBatch)
	})
	if s.opts.Registry != nil {
		r.Method(http.MethodGet, "/metrics", metrics.HTTPHandler(s.opts.Registry))
	}
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.errorAdapter.WriteErrorResponse(w, r, ferrors.NotFoundError("no such endpoint").WithContext("path", r.URL.Path).Build())
	})
	s.router = r
}

// Start binds the listen address and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	if s.opts.Listen == "" {
		return ferrors.ConfigError("server listen address is empty").WithContext("field", "server.listen").Build()
	}
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.opts.Listen)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryRuntime, fmt.Sprintf("listen on %s", s.opts.Listen)).Build()
	}
	s.addr = ln.Addr()
	s.httpServer = &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", logfields.Error(err))
		}
	}()
	s.logger.Info("Read API listening", slog.String("addr", s.addr.String()))
	return nil
}

// Addr returns the bound address once Start succeeded.
func (s *Server) Addr() net.Addr { return s.addr }

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("read API shutdown: %w", err)
	}
	s.logger.Info("Read API stopped")
	return nil
}
