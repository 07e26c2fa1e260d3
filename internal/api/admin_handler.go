package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/choishiam0906/govhelper/internal/api/shared"
	"github.com/choishiam0906/govhelper/internal/domain"
	"github.com/choishiam0906/govhelper/internal/platform/logger"
	"github.com/choishiam0906/govhelper/internal/service/batch"
	"github.com/choishiam0906/govhelper/internal/task"
	"github.com/go-chi/chi/v5"
)

// PromptMetricsResponse is the body of GET /api/prompts/{type}/metrics.
type PromptMetricsResponse struct {
	PromptType domain.PromptType      `json:"promptType"`
	Versions   []domain.PromptMetrics `json:"versions"`
}

// JobRequest is the optional body of POST /api/jobs/{kind}.
type JobRequest struct {
	Limit int  `json:"limit" validate:"min=0,max=1000"`
	Force bool `json:"force"`
}

// JobResponse acknowledges an enqueued job.
type JobResponse struct {
	TaskID string             `json:"taskId"`
	Job    task.ExtractionJob `json:"job"`
	Status task.TaskStatus    `json:"status"`
}

// AdminHandler serves prompt metrics and batch job submission.
type AdminHandler struct {
	metrics PromptMetrics
	jobs    JobFactory
	tasks   TaskSubmitter
	logger  *slog.Logger
}

// NewAdminHandler creates an AdminHandler. jobs and tasks may both be nil,
// in which case job submission answers 503.
func NewAdminHandler(metrics PromptMetrics, jobs JobFactory, tasks TaskSubmitter, logger *slog.Logger) *AdminHandler {
	if metrics == nil {
		panic("metrics cannot be nil for AdminHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandler{
		metrics: metrics,
		jobs:    jobs,
		tasks:   tasks,
		logger:  logger.With(slog.String("component", "admin_handler")),
	}
}

// GetPromptMetrics handles GET /api/prompts/{type}/metrics.
func (h *AdminHandler) GetPromptMetrics(w http.ResponseWriter, r *http.Request) {
	t := domain.PromptType(chi.URLParam(r, "type"))
	if !t.Valid() {
		HandleAPIError(w, r, domain.ErrInvalidPromptType, "")
		return
	}

	metrics, err := h.metrics.GetMetrics(r.Context(), t)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if metrics == nil {
		metrics = []domain.PromptMetrics{}
	}
	shared.RespondWithData(w, r, http.StatusOK, PromptMetricsResponse{PromptType: t, Versions: metrics})
}

// SubmitJob handles POST /api/jobs/{kind}. The job runs on the task queue;
// the response carries the task ID.
func (h *AdminHandler) SubmitJob(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	if h.jobs == nil || h.tasks == nil {
		HandleAPIError(w, r, task.ErrQueueClosed, "")
		return
	}

	kind, err := batch.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	var req JobRequest
	if r.ContentLength != 0 {
		if err := shared.DecodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
			shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, MsgInvalidRequest, err)
			return
		}
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	job := task.ExtractionJob{Kind: kind, Limit: req.Limit, Force: req.Force}
	t, err := h.jobs.CreateTask(job)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if err := h.tasks.Submit(r.Context(), t); err != nil {
		HandleAPIError(w, r, err, "작업을 등록하지 못했어요")
		return
	}

	log.Info("batch job submitted",
		slog.String("task_id", t.ID().String()),
		slog.String("kind", string(kind)),
		slog.Int("limit", req.Limit))
	shared.RespondWithData(w, r, http.StatusAccepted, JobResponse{
		TaskID: t.ID().String(),
		Job:    job,
		Status: task.TaskStatusPending,
	})
}
