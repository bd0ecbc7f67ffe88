package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/mathbot/internal/api"
	"github.com/cloo-solutions/mathbot/internal/api/handlers"
	"github.com/cloo-solutions/mathbot/internal/api/middleware"
	"github.com/cloo-solutions/mathbot/internal/logger"
)

type RouterConfig struct {
	Logger            *logger.Logger
	AuthValidator     middleware.AuthValidator
	MaxBodyBytes      int64
	MetricsHandler    http.Handler
	AskHandler        *handlers.AskHandler
	CurriculumHandler *handlers.CurriculumHandler
	// QuestionHandler is nil when no database is configured.
	QuestionHandler *handlers.QuestionHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog(log))
	r.Use(middleware.MaxBodyBytes(cfg.MaxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.AuthValidator))

		r.Post("/ask", cfg.AskHandler.Ask)
		r.Get("/schema", cfg.CurriculumHandler.Schema)

		r.Route("/concepts", func(r chi.Router) {
			r.Get("/", cfg.CurriculumHandler.Concepts)
			r.Get("/{label}/prerequisites", cfg.CurriculumHandler.Prerequisites)
			r.Get("/{label}/path", cfg.CurriculumHandler.Path)
		})

		r.Route("/graph", func(r chi.Router) {
			r.Get("/view", cfg.CurriculumHandler.GraphView)
			r.Post("/reload", cfg.CurriculumHandler.Reload)
		})

		if cfg.QuestionHandler != nil {
			r.Get("/questions", cfg.QuestionHandler.List)
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		api.Error(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		api.Error(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}
