package handlers

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/mathbot/internal/api"
	"github.com/cloo-solutions/mathbot/internal/domain"
	"github.com/cloo-solutions/mathbot/internal/logger"
	"github.com/cloo-solutions/mathbot/internal/ontology"
	"github.com/cloo-solutions/mathbot/internal/service"
)

type CurriculumReader interface {
	Schema(ctx context.Context) (*service.SchemaInfo, error)
	Concepts(ctx context.Context, query string) ([]domain.Concept, error)
	Prerequisites(ctx context.Context, label string, depth int) (*domain.PrerequisiteWalk, error)
	PrerequisitePath(ctx context.Context, from, to string) (*domain.PrerequisitePath, error)
	RenderGraph(ctx context.Context, w io.Writer, highlights []string) error
}

type GraphReloader interface {
	Reload(ctx context.Context) (*ontology.Snapshot, bool, error)
}

type CurriculumHandler struct {
	svc      CurriculumReader
	reloader GraphReloader
	log      *logger.Logger
}

// NewCurriculumHandler creates the curriculum handler. A nil reloader disables the
// reload endpoint.
func NewCurriculumHandler(svc CurriculumReader, reloader GraphReloader, log *logger.Logger) *CurriculumHandler {
	return &CurriculumHandler{svc: svc, reloader: reloader, log: log}
}

type ConceptsResponse struct {
	Concepts []domain.Concept `json:"concepts"`
	Count    int              `json:"count"`
}

type ReloadResponse struct {
	Version  string `json:"version"`
	Changed  bool   `json:"changed"`
	Triples  int    `json:"triples"`
	LoadedAt string `json:"loaded_at"`
}

func (h *CurriculumHandler) Schema(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.Schema(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, info)
}

func (h *CurriculumHandler) Concepts(w http.ResponseWriter, r *http.Request) {
	concepts, err := h.svc.Concepts(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, ConceptsResponse{Concepts: concepts, Count: len(concepts)})
}

func (h *CurriculumHandler) Prerequisites(w http.ResponseWriter, r *http.Request) {
	label := chi.URLParam(r, "label")
	if strings.TrimSpace(label) == "" {
		api.Error(w, http.StatusBadRequest, "label is required")
		return
	}

	depth := 0
	if raw := r.URL.Query().Get("depth"); raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil || d < 0 {
			api.Error(w, http.StatusBadRequest, "depth must be a non-negative integer")
			return
		}
		depth = d
	}

	walk, err := h.svc.Prerequisites(r.Context(), label, depth)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, walk)
}

// Path answers how the concept in the URL leads to the concept named by ?to=.
func (h *CurriculumHandler) Path(w http.ResponseWriter, r *http.Request) {
	from := chi.URLParam(r, "label")
	to := r.URL.Query().Get("to")
	if strings.TrimSpace(from) == "" || strings.TrimSpace(to) == "" {
		api.Error(w, http.StatusBadRequest, "label and to are required")
		return
	}

	path, err := h.svc.PrerequisitePath(r.Context(), from, to)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, path)
}

// GraphView serves the visualization page. Highlights come from repeated or
// comma-separated highlight parameters.
func (h *CurriculumHandler) GraphView(w http.ResponseWriter, r *http.Request) {
	var highlights []string
	for _, v := range r.URL.Query()["highlight"] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				highlights = append(highlights, part)
			}
		}
	}

	var buf bytes.Buffer
	if err := h.svc.RenderGraph(r.Context(), &buf, highlights); err != nil {
		api.HandleError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *CurriculumHandler) Reload(w http.ResponseWriter, r *http.Request) {
	if h.reloader == nil {
		api.Error(w, http.StatusNotFound, "reload is not enabled")
		return
	}

	snap, changed, err := h.reloader.Reload(r.Context())
	if err != nil {
		h.log.Warn("manual reload failed", "error", err)
		api.HandleError(w, domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable, "reload failed", err))
		return
	}
	if snap == nil {
		api.HandleError(w, domain.ErrGraphNotLoaded)
		return
	}

	api.Success(w, http.StatusOK, ReloadResponse{
		Version:  snap.Version,
		Changed:  changed,
		Triples:  snap.Graph.Len(),
		LoadedAt: snap.LoadedAt.Format(time.RFC3339),
	})
}
