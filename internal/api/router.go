package api

import (
	"log/slog"
	"net/http"

	apimiddleware "github.com/choishiam0906/govhelper/internal/api/middleware"
	"github.com/choishiam0906/govhelper/internal/service/auth"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// RouterDeps is everything NewRouter wires into routes.
// MetricsHandler and HTTPObserver may be nil.
type RouterDeps struct {
	JWT           auth.JWTService
	Matches       *MatchHandler
	Announcements *AnnouncementHandler
	Streams       *StreamHandler
	Admin         *AdminHandler

	MetricsHandler http.Handler
	HTTPObserver   apimiddleware.HTTPObserver
	Logger         *slog.Logger
}

// NewRouter creates the application router. Everything under /api requires
// a bearer token; /healthz and /metrics do not.
func NewRouter(deps RouterDeps) http.Handler {
	if deps.JWT == nil || deps.Matches == nil || deps.Announcements == nil ||
		deps.Streams == nil || deps.Admin == nil {
		panic("router dependencies cannot be nil")
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(apimiddleware.NewTraceMiddleware(log))
	if deps.HTTPObserver != nil {
		r.Use(apimiddleware.NewMetricsMiddleware(deps.HTTPObserver))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error("failed to write health check response", slog.String("error", err.Error()))
		}
	})
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	authMiddleware := apimiddleware.NewAuthMiddleware(deps.JWT)
	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		r.Post("/matches", deps.Matches.Analyze)
		r.Post("/matches/{id}/feedback", deps.Matches.SubmitFeedback)

		r.Post("/announcements/{id}/eligibility", deps.Announcements.ParseEligibility)
		r.Get("/announcements/{id}/evaluation", deps.Announcements.GetEvaluation)
		r.Post("/announcements/{id}/evaluation/match", deps.Announcements.MatchEvaluation)

		r.Post("/generate/section", deps.Streams.GenerateSection)
		r.Post("/generate/improve", deps.Streams.ImproveSection)
		r.Post("/chat", deps.Streams.Chat)

		r.Get("/prompts/{type}/metrics", deps.Admin.GetPromptMetrics)
		r.Post("/jobs/{kind}", deps.Admin.SubmitJob)
	})

	return r
}
