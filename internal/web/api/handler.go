// Package api exposes the relation mapper over HTTP
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/conduit-lang/relmap/internal/events"
	"github.com/conduit-lang/relmap/internal/mapper"
	"github.com/conduit-lang/relmap/internal/web/middleware"
	"github.com/conduit-lang/relmap/internal/web/profiling"
	"github.com/conduit-lang/relmap/internal/web/response"
)

// Catalog lists the registered models
type Catalog interface {
	Names() []string
	Exists(model string) bool
}

// Handler serves relation graphs, paths and resolutions of a catalog
type Handler struct {
	mapper  *mapper.Mapper
	catalog Catalog
	bus     *events.Bus
	logger  *zap.Logger

	profiling *profiling.Config
}

// NewHandler creates an API handler. Rebuild requests are published on bus.
func NewHandler(m *mapper.Mapper, catalog Catalog, bus *events.Bus, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		mapper:  m,
		catalog: catalog,
		bus:     bus,
		logger:  logger,
	}
}

// WithProfiling mounts the pprof endpoints next to the API routes
func (h *Handler) WithProfiling(config *profiling.Config) *Handler {
	if config == nil {
		config = profiling.DefaultConfig()
	}
	h.profiling = config
	return h
}

// Routes builds the router with the standard middleware chain
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(h.logger))
	r.Use(middleware.Recovery(h.logger))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.RenderNotFound(w, "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.RenderMethodNotAllowed(w, allowedMethods(r.URL.Path))
	})

	r.Get("/models", h.listModels)
	r.Route("/models/{model}", func(r chi.Router) {
		r.Get("/relations", h.relations)
		r.Get("/paths", h.paths)
		r.Get("/resolve", h.resolve)
	})
	r.Post("/rebuild", h.rebuild)

	if h.profiling != nil {
		profiling.RegisterRoutes(r, h.profiling)
	}

	return r
}

func allowedMethods(path string) []string {
	if path == "/rebuild" {
		return []string{http.MethodPost}
	}
	return []string{http.MethodGet}
}

type modelsResponse struct {
	Models []string `json:"models"`
}

type relationsResponse struct {
	Model     string `json:"model"`
	Policy    string `json:"policy"`
	Relations any    `json:"relations"`
}

type pathsResponse struct {
	Model string   `json:"model"`
	Paths []string `json:"paths"`
}

type resolveResponse struct {
	Path  string            `json:"path"`
	Valid bool              `json:"valid"`
	Steps mapper.Resolution `json:"steps"`
}

type rebuildRequest struct {
	Models []string `json:"models"`
}

type rebuildResponse struct {
	ID     string   `json:"id"`
	Models []string `json:"models"`
}

func (h *Handler) listModels(w http.ResponseWriter, r *http.Request) {
	response.RenderCachedJSON(w, r, modelsResponse{Models: h.catalog.Names()})
}

// model returns the {model} parameter, rendering a 404 when it is not
// registered
func (h *Handler) model(w http.ResponseWriter, r *http.Request) (string, bool) {
	model := chi.URLParam(r, "model")
	if !h.catalog.Exists(model) {
		response.RenderNotFound(w, fmt.Sprintf("model %s not found", model))
		return "", false
	}
	return model, true
}

func (h *Handler) relations(w http.ResponseWriter, r *http.Request) {
	model, ok := h.model(w, r)
	if !ok {
		return
	}

	rels, err := h.mapper.Relations(r.Context(), model)
	if err != nil {
		h.renderMapperError(w, r, err)
		return
	}

	response.RenderCachedJSON(w, r, relationsResponse{
		Model:     model,
		Policy:    h.mapper.Policy().String(),
		Relations: rels,
	})
}

func (h *Handler) paths(w http.ResponseWriter, r *http.Request) {
	model, ok := h.model(w, r)
	if !ok {
		return
	}

	paths, err := h.mapper.MapKeysByName(r.Context(), model)
	if err != nil {
		h.renderMapperError(w, r, err)
		return
	}

	response.RenderCachedJSON(w, r, pathsResponse{Model: model, Paths: paths})
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) {
	model, ok := h.model(w, r)
	if !ok {
		return
	}

	path := r.URL.Query().Get("path")
	if path == "" {
		response.RenderBadRequest(w, "query parameter path is required")
		return
	}

	res, err := h.mapper.Resolve(r.Context(), model, path)
	if err != nil {
		h.renderMapperError(w, r, err)
		return
	}
	if res == nil {
		res = mapper.Resolution{}
	}

	response.RenderCachedJSON(w, r, resolveResponse{
		Path:  path,
		Valid: res.Valid(),
		Steps: res,
	})
}

func (h *Handler) rebuild(w http.ResponseWriter, r *http.Request) {
	var req rebuildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.RenderBadRequest(w, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	var unknown []string
	for _, model := range req.Models {
		if !h.catalog.Exists(model) {
			unknown = append(unknown, model)
		}
	}
	if len(unknown) > 0 {
		response.RenderErrorWithDetails(w, http.StatusBadRequest,
			errors.New("unknown models"),
			map[string]any{"models": unknown})
		return
	}

	event := events.NewModelMapUpdated("api", req.Models...)
	if err := h.bus.Publish(r.Context(), event); err != nil {
		h.logger.Error("rebuild failed",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.Stringer("event", event.ID),
			zap.Error(err))
		response.RenderErrorWithCode(w, http.StatusInternalServerError, err, "rebuild_failed")
		return
	}

	models := req.Models
	if len(models) == 0 {
		models = h.catalog.Names()
	}
	response.RenderJSON(w, http.StatusAccepted, rebuildResponse{
		ID:     event.ID.String(),
		Models: models,
	})
}

func (h *Handler) renderMapperError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case mapper.IsResolutionError(err):
		response.RenderErrorWithCode(w, http.StatusInternalServerError, err, "resolution_failed")
	case errors.Is(err, mapper.ErrMissingKey):
		response.RenderErrorWithCode(w, http.StatusInternalServerError, err, "discovery_failed")
	default:
		h.logger.Error("relation mapping failed",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		response.RenderInternalError(w)
	}
}
