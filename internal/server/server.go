// Package server exposes the layout pipeline over HTTP.
//
// The server accepts plan hierarchies, runs the force layout, and stores the
// resulting frames as scenes that can be fetched later by ID. Scenes live in
// the same cache backend as pipeline results, so a Redis-backed deployment
// shares scenes across replicas.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/planviz/planviz/pkg/cache"
	"github.com/planviz/planviz/pkg/errors"
	"github.com/planviz/planviz/pkg/hierarchy"
	"github.com/planviz/planviz/pkg/layout"
	"github.com/planviz/planviz/pkg/pipeline"
)

// Server handles layout requests and scene lookups.
type Server struct {
	runner *pipeline.Runner
	store  cache.Cache
	keyer  cache.Keyer
	logger *log.Logger
}

// New creates a Server backed by the given cache. The runner shares the same
// cache, so repeated layouts of identical plans are served from it.
func New(store cache.Cache, logger *log.Logger) *Server {
	if store == nil {
		store = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		runner: pipeline.NewRunner(store, nil, logger),
		store:  store,
		keyer:  cache.DefaultKeyer{},
		logger: logger,
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Post("/api/layout", s.handleLayout)
	r.Get("/api/scenes/{id}", s.handleScene)

	return r
}

// Close releases the underlying cache.
func (s *Server) Close() error {
	return s.runner.Close()
}

// logRequests logs method, path, status and duration for every request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).Round(time.Millisecond))
	})
}

// =============================================================================
// Request / Response Types
// =============================================================================

// LayoutRequest is the POST /api/layout body.
type LayoutRequest struct {
	Forest hierarchy.Forest `json:"forest"`

	Mode        string  `json:"mode,omitempty"`
	Width       float64 `json:"width,omitempty"`
	Height      float64 `json:"height,omitempty"`
	SettleTicks int     `json:"settle_ticks,omitempty"`

	ShowArticles     bool `json:"show_articles"`
	ShowAssemblies   bool `json:"show_assemblies"`
	ShowWorkPackages bool `json:"show_work_packages"`
	ShowOperations   bool `json:"show_operations"`
	HideCompleted    bool `json:"hide_completed"`

	Refresh bool `json:"refresh,omitempty"`
}

// LayoutResponse is the POST /api/layout reply.
type LayoutResponse struct {
	SceneID string       `json:"scene_id"`
	Frame   layout.Frame `json:"frame"`
	Cached  bool         `json:"cached"`
	Ticks   int          `json:"ticks"`
}

// errorResponse is the error reply body.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	var req LayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest,
			errors.New(errors.ErrCodeInvalidInput, "invalid request body"))
		return
	}

	opts := pipeline.Options{
		Forest:           &req.Forest,
		Mode:             req.Mode,
		Width:            req.Width,
		Height:           req.Height,
		SettleTicks:      req.SettleTicks,
		ShowArticles:     req.ShowArticles,
		ShowAssemblies:   req.ShowAssemblies,
		ShowWorkPackages: req.ShowWorkPackages,
		ShowOperations:   req.ShowOperations,
		HideCompleted:    req.HideCompleted,
		Refresh:          req.Refresh,
		Formats:          []string{"json"},
		Logger:           s.logger,
	}

	result, err := s.runner.Execute(r.Context(), opts)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}

	sceneID := uuid.NewString()
	if data, err := json.Marshal(result.Frame); err == nil {
		key := s.keyer.SceneKey(sceneID)
		if err := s.store.Set(r.Context(), key, data, cache.TTLScene); err != nil {
			s.logger.Warn("scene store failed", "scene", sceneID, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, LayoutResponse{
		SceneID: sceneID,
		Frame:   result.Frame,
		Cached:  result.CacheInfo.LayoutHit,
		Ticks:   result.Stats.SettleTicks,
	})
}

func (s *Server) handleScene(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	data, ok, err := s.store.Get(r.Context(), s.keyer.SceneKey(id))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError,
			errors.Wrap(errors.ErrCodeInternal, err, "scene lookup"))
		return
	}
	if !ok {
		s.writeError(w, http.StatusNotFound,
			errors.New(errors.ErrCodeSceneNotFound, "scene %q not found", id))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// =============================================================================
// Helpers
// =============================================================================

// statusFor maps an error code to an HTTP status.
func statusFor(err error) int {
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidForest,
		errors.ErrCodeInvalidMode, errors.ErrCodeInvalidFormat,
		errors.ErrCodeInvalidConfig:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeFileNotFound,
		errors.ErrCodeSceneNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, errorResponse{
		Code:    string(errors.GetCode(err)),
		Message: errors.UserMessage(err),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
