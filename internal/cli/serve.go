package cli

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/matzehuels/vpcmap/pkg/buildinfo"
	errs "github.com/matzehuels/vpcmap/pkg/errors"
	"github.com/matzehuels/vpcmap/pkg/pipeline"
	"github.com/matzehuels/vpcmap/pkg/render"
)

// servedFormats are rendered on every build and served as /graph.<ext>.
var servedFormats = []string{render.FormatDOT, render.FormatSVG, render.FormatJSON, render.FormatYAML}

const shutdownTimeout = 10 * time.Second

func (c *CLI) serveCommand() *cobra.Command {
	var (
		scope scopeFlags
		addr  string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the topology and metrics over HTTP",
		Long: `Serve builds the topology once and serves it:

  GET  /healthz      build status
  GET  /graph.svg    rendered diagram (also .dot, .json, .yaml)
  GET  /metrics      Prometheus metrics
  POST /refresh      rebuild from the provider, bypassing the cache

The topology is only rebuilt on POST /refresh.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if addr == "" {
				addr = c.config().Serve.Addr
			}
			m := c.metrics()

			sess, err := c.openSession(ctx, &scope)
			if err != nil {
				return err
			}
			defer sess.Close()

			runner := sess.newRunner(c.Logger)
			opts := sess.pipelineOptions(&scope, c.config(), servedFormats)
			srv := newServer(runner, opts, c.Logger, m.Handler())
			if err := srv.rebuild(ctx, scope.refresh); err != nil {
				return err
			}

			return listenAndServe(ctx, addr, srv.routes(), c.Logger)
		},
	}

	scope.register(cmd, true)
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config or \":8080\")")
	return cmd
}

// listenAndServe runs h on addr until ctx is cancelled, then shuts down
// gracefully.
func listenAndServe(ctx context.Context, addr string, h http.Handler, logger *log.Logger) error {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}

// =============================================================================
// Server
// =============================================================================

// server holds the most recent successful build and rebuilds on request.
type server struct {
	runner  *pipeline.Runner
	opts    pipeline.Options
	logger  *log.Logger
	metrics http.Handler

	building sync.Mutex // held for the duration of a rebuild

	mu      sync.RWMutex
	result  *pipeline.Result
	builtAt time.Time
	lastErr error
}

func newServer(runner *pipeline.Runner, opts pipeline.Options, logger *log.Logger, metrics http.Handler) *server {
	return &server{runner: runner, opts: opts, logger: logger, metrics: metrics}
}

// errBusy is returned by rebuild when another rebuild is running.
var errBusy = errors.New("rebuild already in progress")

// rebuild runs the pipeline and swaps in the result. A failed rebuild
// keeps serving the previous result.
func (s *server) rebuild(ctx context.Context, refresh bool) error {
	if !s.building.TryLock() {
		return errBusy
	}
	defer s.building.Unlock()

	opts := s.opts
	opts.Refresh = refresh
	result, err := s.runner.Execute(ctx, opts)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
	if err != nil {
		return err
	}
	s.result = result
	s.builtAt = time.Now().UTC()
	return nil
}

func (s *server) current() (*pipeline.Result, time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result, s.builtAt, s.lastErr
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/graph.{format}", s.handleGraph)
	r.Post("/refresh", s.handleRefresh)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	return r
}

type healthResponse struct {
	Status           string    `json:"status"`
	Version          string    `json:"version"`
	RunID            string    `json:"run_id,omitempty"`
	BuiltAt          time.Time `json:"built_at,omitempty"`
	Nodes            int       `json:"nodes"`
	Edges            int       `json:"edges"`
	DanglingPeerings int       `json:"dangling_peerings"`
	LastError        string    `json:"last_error,omitempty"`
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	result, builtAt, lastErr := s.current()
	resp := healthResponse{Status: "ok", Version: buildinfo.Version}
	status := http.StatusOK
	if lastErr != nil {
		resp.Status = "degraded"
		resp.LastError = errs.UserMessage(lastErr)
	}
	if result == nil {
		resp.Status = "unavailable"
		status = http.StatusServiceUnavailable
	} else {
		resp.RunID = result.RunID.String()
		resp.BuiltAt = builtAt
		resp.Nodes = result.Stats.NodeCount
		resp.Edges = result.Stats.EdgeCount
		resp.DanglingPeerings = result.Stats.DanglingPeerings
	}
	writeJSON(w, status, resp)
}

func (s *server) handleGraph(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")
	if !slices.Contains(s.opts.Formats, format) {
		http.NotFound(w, r)
		return
	}
	result, _, _ := s.current()
	if result == nil {
		http.Error(w, "topology not built", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", render.ContentType(format))
	w.Header().Set("X-Run-Id", result.RunID.String())
	_, _ = w.Write(result.Artifacts[format])
}

func (s *server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	err := s.rebuild(r.Context(), true)
	switch {
	case errors.Is(err, errBusy):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	case err != nil:
		s.logger.Error("rebuild failed", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": errs.UserMessage(err)})
		return
	}
	s.handleHealth(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// requestLogger logs each request at debug level through logger.
func requestLogger(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()))
		})
	}
}
