// Package server exposes traces over HTTP.
//
// Routes:
//
//	GET /healthz                      liveness probe
//	GET /environment                  the default marker environment
//	GET /trace/{package}              trace report as JSON
//	GET /trace/{package}/graph.svg    trace diagram as SVG
//	GET /trace/{package}/graph.dot    trace diagram as Graphviz DOT
//	GET /reports                      stored reports, newest first (?package=, ?limit=)
//	GET /reports/{id}                 one stored report
//
// Trace routes accept ?all=1 (report exclusions at every depth), ?deep=1
// (follow unconditional dependencies), ?refresh=1 (bypass the response
// cache) and any number of ?env=key=value marker overrides.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/reqtrace/pkg/pep508"
	"github.com/matzehuels/reqtrace/pkg/pipeline"
	"github.com/matzehuels/reqtrace/pkg/store"
)

const shutdownTimeout = 10 * time.Second

// Server wraps the router and the components that serve traces.
type Server struct {
	l      *log.Logger
	r      chi.Router
	n      *http.Server
	runner *pipeline.Runner
	store  store.Store
	env    pep508.Environment
}

// New initializes the server with its routes. The runner's store, if any,
// also backs the /reports routes.
func New(l *log.Logger, runner *pipeline.Runner, env pep508.Environment) *Server {
	if env == nil {
		env = pep508.DefaultEnvironment()
	}
	s := &Server{
		l:      l.WithPrefix("http"),
		r:      chi.NewRouter(),
		n:      &http.Server{ReadHeaderTimeout: 10 * time.Second},
		runner: runner,
		store:  runner.Store,
		env:    env,
	}

	s.r.Use(middleware.RequestID)
	s.r.Use(middleware.Recoverer)
	s.r.Use(s.requestLogger)
	s.r.Use(middleware.Heartbeat("/healthz"))

	s.r.Get("/environment", s.httpEnvironment)
	s.r.Route("/trace/{package}", func(r chi.Router) {
		r.Get("/", s.httpTrace)
		r.Get("/graph.svg", s.httpGraph(pipeline.FormatSVG, "image/svg+xml"))
		r.Get("/graph.dot", s.httpGraph(pipeline.FormatDOT, "text/vnd.graphviz; charset=utf-8"))
	})
	s.r.Get("/reports", s.httpListReports)
	s.r.Get("/reports/{id}", s.httpGetReport)

	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.r }

// Serve binds addr and serves until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	s.n.Addr = addr
	s.n.Handler = s.r

	errc := make(chan error, 1)
	go func() {
		s.l.Info("HTTP is starting", "addr", addr)
		errc <- s.n.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.l.Info("HTTP is shutting down")
		if err := s.n.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.l.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).Round(time.Millisecond),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
