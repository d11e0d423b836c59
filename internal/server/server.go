// Package server implements the vormap HTTP API.
//
// The API mirrors what the explorer frontends consume: snapshot listings,
// hierarchy artifacts, folder listings, and rendered layout artifacts.
// Hierarchies are served from the durable store when one is configured,
// falling back to the upstream source otherwise.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	vorerrors "github.com/vormap/vormap/pkg/errors"
	"github.com/vormap/vormap/pkg/pipeline"
	"github.com/vormap/vormap/pkg/snapshot"
	"github.com/vormap/vormap/pkg/source"
	"github.com/vormap/vormap/pkg/store"
)

// Server serves the vormap API.
type Server struct {
	runner *pipeline.Runner
	source source.Source
	store  store.Store
	logger *log.Logger

	theme  string
	labels bool
}

// Option configures a Server.
type Option func(*Server)

// WithStore attaches a durable hierarchy store. Hierarchy reads prefer
// the store; misses fall through to the source.
func WithStore(st store.Store) Option {
	return func(s *Server) { s.store = st }
}

// WithRenderDefaults sets the theme and label defaults applied when a
// render request omits them.
func WithRenderDefaults(theme string, labels bool) Option {
	return func(s *Server) {
		if theme != "" {
			s.theme = theme
		}
		s.labels = labels
	}
}

// New creates a Server over the given runner and source.
func New(runner *pipeline.Runner, src source.Source, logger *log.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		runner: runner,
		source: src,
		logger: logger,
		theme:  pipeline.DefaultTheme,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes builds the chi router with all API endpoints mounted.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/snapshots", s.handleSnapshots)
		r.Get("/hierarchy/{snapshotID}", s.handleHierarchy)
		r.Get("/folders/list", s.handleList)
		r.Get("/layout", s.handleLayout)
		r.Get("/render", s.handleRender)
	})
	return r
}

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// logRequests logs one line per request with status and duration.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).Round(time.Microsecond))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		descriptors []snapshot.Descriptor
		err         error
	)
	if s.store != nil {
		descriptors, err = s.store.List(ctx)
	} else {
		descriptors, err = s.source.Snapshots(ctx)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"snapshots": descriptors})
}

func (s *Server) handleHierarchy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snapshotID := chi.URLParam(r, "snapshotID")

	h, err := s.loadHierarchy(ctx, snapshotID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

// loadHierarchy prefers the durable store and falls back to the source.
func (s *Server) loadHierarchy(ctx context.Context, snapshotID string) (*snapshot.Hierarchy, error) {
	if s.store != nil {
		h, err := s.store.Get(ctx, snapshotID)
		if err == nil {
			return h, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}
	return s.source.Hierarchy(ctx, snapshotID)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snapshotID := r.URL.Query().Get("snapshot")
	path := r.URL.Query().Get("path")
	if snapshotID == "" {
		s.writeError(w, r, vorerrors.New(vorerrors.ErrCodeInvalidInput, "missing snapshot parameter"))
		return
	}
	if path == "" {
		path = "/"
	}
	if err := vorerrors.ValidatePath(path); err != nil {
		s.writeError(w, r, err)
		return
	}

	entries, err := s.source.List(ctx, snapshotID, path)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	opts, err := s.pipelineOptions(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	tree, hash, err := s.runner.Fetch(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	lvl, err := s.runner.ComputeLevel(r.Context(), tree, hash, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lvl)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	opts, err := s.pipelineOptions(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = pipeline.FormatSVG
	}
	if err := pipeline.ValidateFormat(format); err != nil {
		s.writeError(w, r, vorerrors.New(vorerrors.ErrCodeInvalidInput, "%v", err))
		return
	}
	opts.Formats = []string{format}

	result, err := s.runner.Execute(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", contentTypes[format])
	w.WriteHeader(http.StatusOK)
	w.Write(result.Artifacts[format])
}

var contentTypes = map[string]string{
	pipeline.FormatSVG:  "image/svg+xml",
	pipeline.FormatJSON: "application/json",
	pipeline.FormatDOT:  "text/vnd.graphviz",
}

// pipelineOptions builds pipeline options from query parameters.
func (s *Server) pipelineOptions(r *http.Request) (pipeline.Options, error) {
	q := r.URL.Query()
	opts := pipeline.Options{
		SnapshotID: q.Get("snapshot"),
		Path:       q.Get("path"),
		Theme:      s.theme,
		Labels:     s.labels,
		Logger:     s.logger,
	}
	if opts.SnapshotID == "" {
		return opts, vorerrors.New(vorerrors.ErrCodeInvalidInput, "missing snapshot parameter")
	}
	if opts.Path == "" {
		opts.Path = "/"
	}
	if err := vorerrors.ValidatePath(opts.Path); err != nil {
		return opts, err
	}

	var err error
	if opts.Width, err = parseDimension(q.Get("width"), pipeline.DefaultWidth); err != nil {
		return opts, vorerrors.New(vorerrors.ErrCodeInvalidInput, "invalid width %q", q.Get("width"))
	}
	if opts.Height, err = parseDimension(q.Get("height"), pipeline.DefaultHeight); err != nil {
		return opts, vorerrors.New(vorerrors.ErrCodeInvalidInput, "invalid height %q", q.Get("height"))
	}
	if theme := q.Get("theme"); theme != "" {
		if err := pipeline.ValidateTheme(theme); err != nil {
			return opts, vorerrors.New(vorerrors.ErrCodeInvalidInput, "%v", err)
		}
		opts.Theme = theme
	}
	if labels := q.Get("labels"); labels != "" {
		opts.Labels = labels == "true" || labels == "1"
	}
	opts.Refresh = q.Get("refresh") == "true" || q.Get("refresh") == "1"
	return opts, nil
}

func parseDimension(s string, fallback float64) (float64, error) {
	if s == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(s, 64)
}

// errorResponse is the JSON shape of API errors.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// writeError maps domain errors to HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	code := ""

	switch {
	case vorerrors.Is(err, vorerrors.ErrCodeInvalidInput),
		vorerrors.Is(err, vorerrors.ErrCodeInvalidPath),
		vorerrors.Is(err, vorerrors.ErrCodeInvalidViewport):
		status = http.StatusBadRequest
		code = string(vorerrors.GetCode(err))
	case vorerrors.Is(err, vorerrors.ErrCodeNodeNotFound),
		errors.Is(err, source.ErrNotFound),
		errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, source.ErrNetwork):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "err", err)
	}
	writeJSON(w, status, errorResponse{Error: vorerrors.UserMessage(err), Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
