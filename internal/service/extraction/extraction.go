// Package extraction turns announcement text into structured data with a
// generation provider: eligibility criteria, evaluation rubrics, match
// analyses and evaluation-based scores. It also streams free text for
// application sections and the chatbot.
//
// Parsing never leaves the caller empty-handed. When the provider fails or
// its answer has no usable JSON object, the structured default for the
// operation is returned together with the cause.
package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/choishiam0906/govhelper/internal/domain"
	"github.com/choishiam0906/govhelper/internal/generation"
	"github.com/choishiam0906/govhelper/internal/platform/logger"
	"github.com/choishiam0906/govhelper/internal/prompts"
	"github.com/choishiam0906/govhelper/internal/redact"
	"github.com/choishiam0906/govhelper/internal/service/promptversion"
	"github.com/google/uuid"
)

// Generator is the part of generation.Orchestrator the service uses.
type Generator interface {
	Generate(ctx context.Context, req generation.Request) (string, error)
	Stream(ctx context.Context, req generation.Request) iter.Seq2[string, error]
}

// PromptSelector resolves prompt versions and records their usage.
type PromptSelector interface {
	GetPromptWithABTest(ctx context.Context, t domain.PromptType, useAB bool) (promptversion.Resolved, error)
	LogUsage(ctx context.Context, p promptversion.Resolved, u promptversion.Usage)
}

// Service runs the extraction operations.
type Service struct {
	gen     Generator
	prompts PromptSelector
	abTest  bool
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithABTest draws prompt versions by weight instead of taking the newest.
func WithABTest(enabled bool) Option {
	return func(s *Service) { s.abTest = enabled }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates an extraction service.
func NewService(gen Generator, selector PromptSelector, logger *slog.Logger, opts ...Option) *Service {
	if gen == nil {
		panic("gen cannot be nil")
	}
	if selector == nil {
		panic("selector cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		gen:     gen,
		prompts: selector,
		now:     time.Now,
		logger:  logger.With(slog.String("component", "extraction_service")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// call is one prompt rendered and answered.
type call struct {
	prompt promptversion.Resolved
	start  time.Time
	userID *uuid.UUID
}

func (s *Service) prepare(
	ctx context.Context,
	t domain.PromptType,
	data any,
	userID *uuid.UUID,
) (*call, generation.Request, error) {
	p, err := s.prompts.GetPromptWithABTest(ctx, t, s.abTest)
	if err != nil {
		return nil, generation.Request{}, err
	}
	text, err := p.Render(data)
	if err != nil {
		return nil, generation.Request{}, err
	}
	req := generation.Request{
		System:      p.System,
		Prompt:      text,
		Temperature: p.Temperature,
		MaxTokens:   p.MaxTokens,
		JSON:        p.JSON,
	}
	return &call{prompt: p, start: s.now(), userID: userID}, req, nil
}

func (s *Service) finish(ctx context.Context, c *call, score *float64, err error) {
	s.prompts.LogUsage(ctx, c.prompt, promptversion.Usage{
		UserID:       c.userID,
		ResponseTime: s.now().Sub(c.start),
		Score:        score,
		Err:          err,
	})
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Warn("extraction failed, using default",
			slog.String("prompt_type", string(c.prompt.Type)),
			slog.String("prompt_version", c.prompt.Version),
			slog.String("error", redact.Error(err)))
	}
}

// generateJSON renders t, asks the provider and decodes the answer into v.
func (s *Service) generateJSON(
	ctx context.Context,
	t domain.PromptType,
	data any,
	userID *uuid.UUID,
	v any,
	score func() *float64,
) error {
	c, req, err := s.prepare(ctx, t, data, userID)
	if err != nil {
		return err
	}

	text, err := s.gen.Generate(ctx, req)
	if err == nil {
		err = generation.DecodeJSON(text, v)
	}

	var sc *float64
	if err == nil && score != nil {
		sc = score()
	}
	s.finish(ctx, c, sc, err)
	return err
}

// ParseEligibility extracts the eligibility criteria of an announcement.
// The provider is always called; short-content guards belong to callers.
// On failure the default criteria (confidence 0) is returned with the cause.
func (s *Service) ParseEligibility(
	ctx context.Context,
	title, targetCompany, content string,
) (*domain.EligibilityCriteria, error) {
	var c domain.EligibilityCriteria
	err := s.generateJSON(ctx, domain.PromptEligibilityParsing, prompts.EligibilityData{
		Title:         title,
		TargetCompany: targetCompany,
		Content:       content,
	}, nil, &c, nil)
	if err != nil {
		return domain.DefaultEligibilityCriteria(s.now()), err
	}

	c.Normalize()
	c.Confidence = clamp(c.Confidence, 0, 1)
	c.ParsedAt = s.now().UTC()
	return &c, nil
}

// MatchInput is what a match analysis compares.
type MatchInput struct {
	Company      *domain.Company
	Announcement *domain.Announcement
	BusinessPlan string
	UserID       *uuid.UUID
}

// AnalyzeMatch scores a company against an announcement in two stages:
// eligibility checks, then fit scores. On failure the default analysis,
// with every check failed and all scores 0, is returned with the cause.
func (s *Service) AnalyzeMatch(ctx context.Context, in MatchInput) (*domain.MatchAnalysis, error) {
	var a domain.MatchAnalysis
	err := s.generateJSON(ctx, domain.PromptMatchingAnalysis, prompts.MatchingData{
		AnnouncementContent: in.Announcement.AnalysisContent(),
		CompanyProfile:      prompts.CompanyProfile(in.Company, s.now()),
		BusinessPlan:        in.BusinessPlan,
	}, in.UserID, &a, func() *float64 { return &a.OverallScore })
	if err != nil {
		return domain.DefaultMatchAnalysis(), err
	}

	normalizeMatch(&a)
	return &a, nil
}

func normalizeMatch(a *domain.MatchAnalysis) {
	if a.Eligibility.FailedReasons == nil {
		a.Eligibility.FailedReasons = []string{}
	}
	if a.Strengths == nil {
		a.Strengths = []string{}
	}
	if a.Weaknesses == nil {
		a.Weaknesses = []string{}
	}
	if a.Recommendations == nil {
		a.Recommendations = []string{}
	}
	a.OverallScore = clamp(a.OverallScore, 0, 100)
}

// Messages returned in EvaluationExtractionResult.Error.
const (
	ErrMsgCriteriaNotFound = "평가기준을 찾을 수 없어요"
	ErrMsgExtractionFailed = "평가기준 추출 중 오류가 발생했어요"
)

// evaluationAnswer is the extraction answer: the rubric plus a found flag.
type evaluationAnswer struct {
	Found *bool `json:"found"`
	domain.EvaluationCriteria
}

// ExtractEvaluation extracts the scoring rubric of an announcement. A valid
// answer that reports no rubric is not an error: Success is false and the
// error is nil. Provider and parsing failures return Success false and the
// cause.
func (s *Service) ExtractEvaluation(
	ctx context.Context,
	title, content string,
) (*domain.EvaluationExtractionResult, error) {
	var answer evaluationAnswer
	err := s.generateJSON(ctx, domain.PromptEvaluationExtraction, prompts.EvaluationExtractionData{
		Title:   title,
		Content: content,
	}, nil, &answer, func() *float64 { return &answer.Confidence })
	if err != nil {
		return &domain.EvaluationExtractionResult{Success: false, Error: ErrMsgExtractionFailed}, err
	}

	if (answer.Found != nil && !*answer.Found) || len(answer.Items) == 0 {
		return &domain.EvaluationExtractionResult{Success: false, Error: ErrMsgCriteriaNotFound}, nil
	}

	criteria := answer.EvaluationCriteria
	if criteria.TotalScore <= 0 {
		for _, item := range criteria.Items {
			criteria.TotalScore += item.MaxScore
		}
	}
	criteria.Confidence = clamp(criteria.Confidence, 0, 1)
	criteria.ExtractedAt = s.now().UTC()
	if criteria.Source == "" {
		criteria.Source = "ai"
	}

	return &domain.EvaluationExtractionResult{
		Success:  true,
		Criteria: &criteria,
		Summary:  criteria.Summarize(),
	}, nil
}

// EvaluationMatchInput is what an evaluation-based match compares.
type EvaluationMatchInput struct {
	Company      *domain.Company
	Criteria     *domain.EvaluationCriteria
	BusinessPlan string
	UserID       *uuid.UUID
}

// AnalyzeWithEvaluation scores a company item by item against an extracted
// rubric and estimates its chance of passing. On failure the default
// analysis is returned with the cause.
func (s *Service) AnalyzeWithEvaluation(
	ctx context.Context,
	in EvaluationMatchInput,
) (*domain.EvaluationMatchAnalysis, error) {
	criteriaJSON, err := json.MarshalIndent(in.Criteria, "", "  ")
	if err != nil {
		return domain.DefaultEvaluationMatchAnalysis(in.Criteria.TotalScore), fmt.Errorf("encode criteria: %w", err)
	}

	var a domain.EvaluationMatchAnalysis
	err = s.generateJSON(ctx, domain.PromptEvaluationMatching, prompts.EvaluationMatchingData{
		CriteriaJSON:   string(criteriaJSON),
		CompanyProfile: prompts.CompanyProfile(in.Company, s.now()),
		BusinessPlan:   in.BusinessPlan,
	}, in.UserID, &a, func() *float64 { return &a.TotalEstimatedScore })
	if err != nil {
		return domain.DefaultEvaluationMatchAnalysis(in.Criteria.TotalScore), err
	}

	if a.MaxPossibleScore <= 0 {
		a.MaxPossibleScore = in.Criteria.TotalScore
	}
	if a.Categories == nil {
		a.Categories = []domain.CategoryScore{}
	}
	if a.BonusApplied == nil {
		a.BonusApplied = []domain.AppliedBonus{}
	}
	if a.KeyStrengths == nil {
		a.KeyStrengths = []string{}
	}
	if a.KeyWeaknesses == nil {
		a.KeyWeaknesses = []string{}
	}
	a.PassLikelihood = a.EstimatePassLikelihood(in.Criteria.PassingScore)
	return &a, nil
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// SectionInput is what a section draft is written from.
type SectionInput struct {
	Section      string
	Announcement *domain.Announcement
	Company      *domain.Company
	BusinessPlan string
	UserID       *uuid.UUID
}

// StreamSection streams a draft of one application section.
func (s *Service) StreamSection(ctx context.Context, in SectionInput) iter.Seq2[string, error] {
	return s.stream(ctx, domain.PromptApplicationSection, prompts.SectionData{
		Section:             in.Section,
		Guide:               prompts.SectionGuide(in.Section),
		AnnouncementContent: in.Announcement.AnalysisContent(),
		CompanyProfile:      prompts.CompanyProfile(in.Company, s.now()),
		BusinessPlan:        in.BusinessPlan,
	}, in.UserID)
}

// ImprovementInput is a section draft to be improved.
type ImprovementInput struct {
	Section        string
	CurrentContent string
	Announcement   *domain.Announcement
	Company        *domain.Company
	UserID         *uuid.UUID
}

// StreamImprovement streams a revised version of a section draft.
func (s *Service) StreamImprovement(ctx context.Context, in ImprovementInput) iter.Seq2[string, error] {
	return s.stream(ctx, domain.PromptSectionImprovement, prompts.ImprovementData{
		Section:             in.Section,
		CurrentContent:      in.CurrentContent,
		AnnouncementContent: in.Announcement.AnalysisContent(),
		CompanyProfile:      prompts.CompanyProfile(in.Company, s.now()),
	}, in.UserID)
}

// ChatInput is a chatbot question with optional context.
type ChatInput struct {
	Message       string
	Company       *domain.Company
	RecentMatches []*domain.Match
	Announcement  *domain.Announcement
	UserID        *uuid.UUID
}

// chatAnnouncementRunes bounds the announcement text given to the chatbot.
const chatAnnouncementRunes = 2000

// StreamChat streams the chatbot's answer.
func (s *Service) StreamChat(ctx context.Context, in ChatInput) iter.Seq2[string, error] {
	data := prompts.ChatbotData{Message: in.Message}
	if in.Company != nil {
		data.CompanyProfile = prompts.CompanyProfile(in.Company, s.now())
	}
	if len(in.RecentMatches) > 0 {
		var b strings.Builder
		for _, m := range in.RecentMatches {
			fmt.Fprintf(&b, "- 공고 %s: %d점\n", m.AnnouncementID, m.Score)
		}
		data.RecentMatches = strings.TrimRight(b.String(), "\n")
	}
	if a := in.Announcement; a != nil {
		data.CurrentAnnouncement = fmt.Sprintf("%s (%s)\n%s",
			a.Title, a.Organization, redact.Snippet(a.AnalysisContent(), chatAnnouncementRunes))
	}
	return s.stream(ctx, domain.PromptChatbot, data, in.UserID)
}

// stream wraps the provider stream so usage is recorded once it ends.
func (s *Service) stream(ctx context.Context, t domain.PromptType, data any, userID *uuid.UUID) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		c, req, err := s.prepare(ctx, t, data, userID)
		if err != nil {
			yield("", err)
			return
		}

		var streamErr error
		defer func() {
			s.prompts.LogUsage(ctx, c.prompt, promptversion.Usage{
				UserID:       userID,
				ResponseTime: s.now().Sub(c.start),
				Err:          streamErr,
			})
		}()

		for chunk, err := range s.gen.Stream(ctx, req) {
			if err != nil {
				streamErr = err
				yield("", err)
				return
			}
			if !yield(chunk, nil) {
				return
			}
		}
	}
}
