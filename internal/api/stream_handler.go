package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/http"

	"github.com/choishiam0906/govhelper/internal/domain"
	"github.com/choishiam0906/govhelper/internal/platform/logger"
	"github.com/choishiam0906/govhelper/internal/redact"
	"github.com/choishiam0906/govhelper/internal/service/extraction"
	"github.com/choishiam0906/govhelper/internal/store"
	"github.com/google/uuid"
)

// MsgStreamFailed is sent as the last event of a stream that broke.
const MsgStreamFailed = "응답 생성 중 오류가 발생했어요"

// chatRecentMatches is how many recent matches the chatbot sees.
const chatRecentMatches = 3

// SectionRequest is the body of POST /api/generate/section.
type SectionRequest struct {
	AnnouncementID string `json:"announcementId" validate:"required,uuid"`
	Section        string `json:"section"        validate:"required,max=100"`
	BusinessPlan   string `json:"businessPlan"   validate:"max=20000"`
}

// ImprovementRequest is the body of POST /api/generate/improve.
type ImprovementRequest struct {
	AnnouncementID string `json:"announcementId" validate:"required,uuid"`
	Section        string `json:"section"        validate:"required,max=100"`
	CurrentContent string `json:"currentContent" validate:"required,max=20000"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message        string `json:"message"        validate:"required,max=2000"`
	AnnouncementID string `json:"announcementId" validate:"omitempty,uuid"`
}

// StreamHandler serves generated text as server-sent events.
type StreamHandler struct {
	extractor     Extractor
	announcements store.AnnouncementStore
	companies     store.CompanyStore
	matches       store.MatchStore
	logger        *slog.Logger
}

// NewStreamHandler creates a StreamHandler.
func NewStreamHandler(
	extractor Extractor,
	announcements store.AnnouncementStore,
	companies store.CompanyStore,
	matches store.MatchStore,
	logger *slog.Logger,
) *StreamHandler {
	if extractor == nil || announcements == nil || companies == nil || matches == nil {
		panic("dependencies cannot be nil for StreamHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamHandler{
		extractor:     extractor,
		announcements: announcements,
		companies:     companies,
		matches:       matches,
		logger:        logger.With(slog.String("component", "stream_handler")),
	}
}

// GenerateSection handles POST /api/generate/section.
func (h *StreamHandler) GenerateSection(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req SectionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	a, company, ok := h.loadContext(w, r, userID, req.AnnouncementID)
	if !ok {
		return
	}

	h.writeStream(w, r, h.extractor.StreamSection(r.Context(), extraction.SectionInput{
		Section:      req.Section,
		Announcement: a,
		Company:      company,
		BusinessPlan: req.BusinessPlan,
		UserID:       &userID,
	}))
}

// ImproveSection handles POST /api/generate/improve.
func (h *StreamHandler) ImproveSection(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req ImprovementRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	a, company, ok := h.loadContext(w, r, userID, req.AnnouncementID)
	if !ok {
		return
	}

	h.writeStream(w, r, h.extractor.StreamImprovement(r.Context(), extraction.ImprovementInput{
		Section:        req.Section,
		CurrentContent: req.CurrentContent,
		Announcement:   a,
		Company:        company,
		UserID:         &userID,
	}))
}

// loadContext loads the announcement and the user's company for a draft.
func (h *StreamHandler) loadContext(
	w http.ResponseWriter,
	r *http.Request,
	userID uuid.UUID,
	announcementID string,
) (*domain.Announcement, *domain.Company, bool) {
	company, err := h.companies.GetByUserID(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return nil, nil, false
	}
	a, err := h.announcements.GetByID(r.Context(), uuid.MustParse(announcementID))
	if err != nil {
		HandleAPIError(w, r, err, "")
		return nil, nil, false
	}
	return a, company, true
}

// Chat handles POST /api/chat. The user's company, its latest matches and
// the announcement being viewed are added as context when available.
func (h *StreamHandler) Chat(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req ChatRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	in := extraction.ChatInput{Message: req.Message, UserID: &userID}

	company, err := h.companies.GetByUserID(r.Context(), userID)
	switch {
	case err == nil:
		in.Company = company
		recent, err := h.matches.ListRecentByCompany(r.Context(), company.ID, chatRecentMatches)
		if err != nil {
			log.Warn("failed to load recent matches for chat",
				slog.String("error", redact.Error(err)))
		}
		in.RecentMatches = recent
	case !errors.Is(err, store.ErrNotFound):
		HandleAPIError(w, r, err, "")
		return
	}

	if req.AnnouncementID != "" {
		a, err := h.announcements.GetByID(r.Context(), uuid.MustParse(req.AnnouncementID))
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			HandleAPIError(w, r, err, "")
			return
		}
		in.Announcement = a
	}

	h.writeStream(w, r, h.extractor.StreamChat(r.Context(), in))
}

type streamEvent struct {
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

// writeStream relays chunks as `data: {"text":...}` events and ends with
// `data: [DONE]`. A failure mid-stream ends it with an error event instead.
func (h *StreamHandler) writeStream(w http.ResponseWriter, r *http.Request, chunks iter.Seq2[string, error]) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	rc := http.NewResponseController(w)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	send := func(ev streamEvent) bool {
		payload, err := json.Marshal(ev)
		if err != nil {
			return false
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return false
		}
		_ = rc.Flush()
		return true
	}

	for chunk, err := range chunks {
		if err != nil {
			log.Error("stream generation failed", slog.String("error", redact.Error(err)))
			send(streamEvent{Error: MsgStreamFailed})
			return
		}
		if chunk == "" {
			continue
		}
		if !send(streamEvent{Text: chunk}) {
			log.Debug("client went away during stream")
			return
		}
	}

	_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
	_ = rc.Flush()
}
