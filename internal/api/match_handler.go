package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/choishiam0906/govhelper/internal/api/shared"
	"github.com/choishiam0906/govhelper/internal/domain"
	"github.com/choishiam0906/govhelper/internal/platform/logger"
	"github.com/choishiam0906/govhelper/internal/redact"
	"github.com/choishiam0906/govhelper/internal/service/extraction"
	"github.com/choishiam0906/govhelper/internal/store"
	"github.com/google/uuid"
)

// AnalyzeMatchRequest is the body of POST /api/matches.
type AnalyzeMatchRequest struct {
	AnnouncementID string `json:"announcementId" validate:"required,uuid"`
	CompanyID      string `json:"companyId"      validate:"required,uuid"`
	BusinessPlan   string `json:"businessPlan"   validate:"max=20000"`
}

// MatchResponse is the result of a match analysis.
type MatchResponse struct {
	Match    *domain.Match         `json:"match"`
	Analysis *domain.MatchAnalysis `json:"analysis"`
	Cached   bool                  `json:"cached"`
}

// FeedbackRequest is the body of POST /api/matches/{id}/feedback.
type FeedbackRequest struct {
	FeedbackType string `json:"feedbackType" validate:"required,oneof=accurate too_high too_low"`
	Rating       int    `json:"rating"       validate:"required,min=1,max=5"`
	Comment      string `json:"comment"      validate:"max=1000"`
}

// MatchHandler serves match analysis and feedback.
type MatchHandler struct {
	extractor     Extractor
	calibrator    ScoreCalibrator
	announcements store.AnnouncementStore
	companies     store.CompanyStore
	matches       store.MatchStore
	feedback      store.FeedbackStore
	cache         MatchCache
	logger        *slog.Logger
}

// NewMatchHandler creates a MatchHandler. cache may be nil.
func NewMatchHandler(
	extractor Extractor,
	calibrator ScoreCalibrator,
	announcements store.AnnouncementStore,
	companies store.CompanyStore,
	matches store.MatchStore,
	feedback store.FeedbackStore,
	cache MatchCache,
	logger *slog.Logger,
) *MatchHandler {
	if extractor == nil || calibrator == nil {
		panic("extractor and calibrator cannot be nil for MatchHandler")
	}
	if announcements == nil || companies == nil || matches == nil || feedback == nil {
		panic("stores cannot be nil for MatchHandler")
	}
	if cache == nil {
		cache = noCache{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MatchHandler{
		extractor:     extractor,
		calibrator:    calibrator,
		announcements: announcements,
		companies:     companies,
		matches:       matches,
		feedback:      feedback,
		cache:         cache,
		logger:        logger.With(slog.String("component", "match_handler")),
	}
}

// ownedCompany loads a company and checks that userID owns it.
func (h *MatchHandler) ownedCompany(r *http.Request, companyID, userID uuid.UUID) (*domain.Company, error) {
	company, err := h.companies.GetByID(r.Context(), companyID)
	if err != nil {
		return nil, err
	}
	if company.UserID != userID {
		return nil, domain.ErrUnauthorized
	}
	return company, nil
}

// Analyze handles POST /api/matches.
// A request without a business plan is answered from the cache when a
// previous analysis of the same pair is still there.
func (h *MatchHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req AnalyzeMatchRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	announcementID := uuid.MustParse(req.AnnouncementID)
	companyID := uuid.MustParse(req.CompanyID)

	company, err := h.ownedCompany(r, companyID, userID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	announcement, err := h.announcements.GetByID(r.Context(), announcementID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	hasPlan := req.BusinessPlan != ""
	if !hasPlan {
		if cached, hit := h.cache.GetMatch(r.Context(), companyID, announcementID); hit {
			log.Debug("match served from cache", slog.String("match_id", cached.ID.String()))
			shared.RespondWithData(w, r, http.StatusOK, MatchResponse{
				Match:    cached,
				Analysis: &cached.Analysis,
				Cached:   true,
			})
			return
		}
	}

	uid := userID
	analysis, err := h.extractor.AnalyzeMatch(r.Context(), extraction.MatchInput{
		Company:      company,
		Announcement: announcement,
		BusinessPlan: req.BusinessPlan,
		UserID:       &uid,
	})
	if err != nil {
		HandleAPIError(w, r, err, MsgAIFailed)
		return
	}

	score := h.calibrator.Calibrate(r.Context(), analysis, company, hasPlan, false)
	match, err := domain.NewMatch(companyID, announcementID, score, *analysis)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if err := h.matches.Create(r.Context(), match); err != nil {
		HandleAPIError(w, r, err, "매칭 결과를 저장하지 못했어요")
		return
	}
	if !hasPlan {
		h.cache.SetMatch(r.Context(), match)
	}

	log.Info("match analyzed",
		slog.String("match_id", match.ID.String()),
		slog.String("announcement_id", announcementID.String()),
		slog.Float64("raw_score", analysis.OverallScore),
		slog.Int("score", score))
	shared.RespondWithData(w, r, http.StatusCreated, MatchResponse{Match: match, Analysis: analysis})
}

// SubmitFeedback handles POST /api/matches/{id}/feedback.
func (h *MatchHandler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	matchID, ok := requirePathUUID(w, r, "id")
	if !ok {
		return
	}

	var req FeedbackRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, MsgInvalidRequest, err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, MsgInvalidFeedback, err)
		return
	}

	match, err := h.matches.GetByID(r.Context(), matchID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if _, err := h.ownedCompany(r, match.CompanyID, userID); err != nil {
		if errors.Is(err, store.ErrCompanyNotFound) {
			err = domain.ErrUnauthorized
		}
		HandleAPIError(w, r, err, "")
		return
	}

	fb := &domain.MatchFeedback{
		ID:           uuid.New(),
		MatchID:      match.ID,
		CompanyID:    match.CompanyID,
		FeedbackType: domain.FeedbackType(req.FeedbackType),
		Rating:       req.Rating,
		Comment:      req.Comment,
		CreatedAt:    time.Now().UTC(),
	}
	if err := fb.Validate(); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if err := h.feedback.Create(r.Context(), fb); err != nil {
		log.Error("failed to save match feedback",
			slog.String("match_id", matchID.String()),
			slog.String("error", redact.Error(err)))
		HandleAPIError(w, r, err, "피드백을 저장하지 못했어요")
		return
	}

	log.Info("match feedback recorded",
		slog.String("match_id", matchID.String()),
		slog.String("feedback_type", req.FeedbackType),
		slog.Int("rating", req.Rating))
	shared.RespondWithData(w, r, http.StatusCreated, fb)
}
