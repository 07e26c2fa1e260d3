package api

import (
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/choishiam0906/govhelper/internal/api/shared"
	"github.com/choishiam0906/govhelper/internal/domain"
	"github.com/choishiam0906/govhelper/internal/platform/logger"
	"github.com/choishiam0906/govhelper/internal/redact"
	"github.com/choishiam0906/govhelper/internal/service/extraction"
	"github.com/choishiam0906/govhelper/internal/store"
	"github.com/google/uuid"
)

// MinEvaluationContentRunes is the shortest announcement text the
// evaluation endpoint sends to the model.
const MinEvaluationContentRunes = 100

// EvaluationResponse is the body of GET /api/announcements/{id}/evaluation.
type EvaluationResponse struct {
	Success  bool                       `json:"success"`
	Criteria *domain.EvaluationCriteria `json:"criteria,omitempty"`
	Summary  *domain.EvaluationSummary  `json:"summary,omitempty"`
	Error    string                     `json:"error,omitempty"`
	Cached   bool                       `json:"cached"`
}

// EvaluationMatchRequest is the body of
// POST /api/announcements/{id}/evaluation/match.
type EvaluationMatchRequest struct {
	CompanyID    string `json:"companyId"    validate:"required,uuid"`
	BusinessPlan string `json:"businessPlan" validate:"max=20000"`
}

// AnnouncementHandler serves criteria extraction for announcements.
type AnnouncementHandler struct {
	extractor     Extractor
	announcements store.AnnouncementStore
	companies     store.CompanyStore
	logger        *slog.Logger
}

// NewAnnouncementHandler creates an AnnouncementHandler.
func NewAnnouncementHandler(
	extractor Extractor,
	announcements store.AnnouncementStore,
	companies store.CompanyStore,
	logger *slog.Logger,
) *AnnouncementHandler {
	if extractor == nil || announcements == nil || companies == nil {
		panic("dependencies cannot be nil for AnnouncementHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AnnouncementHandler{
		extractor:     extractor,
		announcements: announcements,
		companies:     companies,
		logger:        logger.With(slog.String("component", "announcement_handler")),
	}
}

// ParseEligibility handles POST /api/announcements/{id}/eligibility.
// The model is called whatever the content length.
func (h *AnnouncementHandler) ParseEligibility(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	id, ok := requirePathUUID(w, r, "id")
	if !ok {
		return
	}
	a, err := h.announcements.GetByID(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	criteria, err := h.extractor.ParseEligibility(r.Context(), a.Title, a.TargetCompany, a.AnalysisContent())
	if err != nil {
		h.saveEligibility(r, id, nil, domain.ParseStatusFailed)
		HandleAPIError(w, r, err, MsgAIFailed)
		return
	}
	if err := h.announcements.SaveEligibility(r.Context(), id, criteria, domain.ParseStatusSucceeded); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	log.Info("eligibility parsed",
		slog.String("announcement_id", id.String()),
		slog.Float64("confidence", criteria.Confidence))
	shared.RespondWithData(w, r, http.StatusOK, criteria)
}

func (h *AnnouncementHandler) saveEligibility(r *http.Request, id uuid.UUID, c *domain.EligibilityCriteria, status domain.ParseStatus) {
	if err := h.announcements.SaveEligibility(r.Context(), id, c, status); err != nil {
		logger.FromContextOrDefault(r.Context(), h.logger).Warn("failed to record eligibility status",
			slog.String("announcement_id", id.String()),
			slog.String("error", redact.Error(err)))
	}
}

func (h *AnnouncementHandler) saveEvaluation(r *http.Request, id uuid.UUID, c *domain.EvaluationCriteria, status domain.ParseStatus) {
	if err := h.announcements.SaveEvaluation(r.Context(), id, c, status); err != nil {
		logger.FromContextOrDefault(r.Context(), h.logger).Warn("failed to record evaluation status",
			slog.String("announcement_id", id.String()),
			slog.String("error", redact.Error(err)))
	}
}

// GetEvaluation handles GET /api/announcements/{id}/evaluation.
// Stored criteria are returned as is. Announcements with less than
// MinEvaluationContentRunes of text are rejected before any model call.
// An announcement without a rubric is marked processed so it is not
// retried, and answered with Success false.
func (h *AnnouncementHandler) GetEvaluation(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	id, ok := requirePathUUID(w, r, "id")
	if !ok {
		return
	}
	a, err := h.announcements.GetByID(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if a.EvaluationParsed && a.EvaluationCriteria != nil {
		shared.RespondWithData(w, r, http.StatusOK, EvaluationResponse{
			Success:  true,
			Criteria: a.EvaluationCriteria,
			Summary:  a.EvaluationCriteria.Summarize(),
			Cached:   true,
		})
		return
	}

	if a.EvaluationParsed && a.EvaluationStatus == domain.ParseStatusSucceeded {
		shared.RespondWithData(w, r, http.StatusOK, EvaluationResponse{
			Success: false,
			Error:   extraction.ErrMsgCriteriaNotFound,
			Cached:  true,
		})
		return
	}

	content := strings.TrimSpace(a.AnalysisContent())
	if utf8.RuneCountInString(content) < MinEvaluationContentRunes {
		log.Debug("announcement content too short for evaluation",
			slog.String("announcement_id", id.String()),
			slog.Int("runes", utf8.RuneCountInString(content)))
		shared.RespondWithError(w, r, http.StatusBadRequest, MsgContentTooShort)
		return
	}

	result, err := h.extractor.ExtractEvaluation(r.Context(), a.Title, content)
	if err != nil {
		h.saveEvaluation(r, id, nil, domain.ParseStatusFailed)
		HandleAPIError(w, r, err, MsgAIFailed)
		return
	}
	if !result.Success {
		h.saveEvaluation(r, id, nil, domain.ParseStatusSucceeded)
		shared.RespondWithData(w, r, http.StatusOK, EvaluationResponse{Success: false, Error: result.Error})
		return
	}
	if err := h.announcements.SaveEvaluation(r.Context(), id, result.Criteria, domain.ParseStatusSucceeded); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	log.Info("evaluation criteria extracted",
		slog.String("announcement_id", id.String()),
		slog.Int("items", len(result.Criteria.Items)))
	shared.RespondWithData(w, r, http.StatusOK, EvaluationResponse{
		Success:  true,
		Criteria: result.Criteria,
		Summary:  result.Summary,
	})
}

// MatchEvaluation handles POST /api/announcements/{id}/evaluation/match.
// The announcement must already have extracted criteria.
func (h *AnnouncementHandler) MatchEvaluation(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := requirePathUUID(w, r, "id")
	if !ok {
		return
	}
	var req EvaluationMatchRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	company, err := h.companies.GetByID(r.Context(), uuid.MustParse(req.CompanyID))
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if company.UserID != userID {
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return
	}

	a, err := h.announcements.GetByID(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if a.EvaluationCriteria == nil {
		shared.RespondWithError(w, r, http.StatusConflict, extraction.ErrMsgCriteriaNotFound)
		return
	}

	analysis, err := h.extractor.AnalyzeWithEvaluation(r.Context(), extraction.EvaluationMatchInput{
		Company:      company,
		Criteria:     a.EvaluationCriteria,
		BusinessPlan: req.BusinessPlan,
		UserID:       &userID,
	})
	if err != nil {
		HandleAPIError(w, r, err, MsgAIFailed)
		return
	}
	shared.RespondWithData(w, r, http.StatusOK, analysis)
}
