package domain

import (
	"time"

	"github.com/google/uuid"
)

// Check is the outcome of one eligibility condition.
type Check struct {
	Passed       bool   `json:"passed"`
	Requirement  string `json:"requirement"`
	CompanyValue string `json:"companyValue"`
	Reason       string `json:"reason"`
}

// EligibilityChecks groups the five conditions every match is screened on.
type EligibilityChecks struct {
	Industry      Check `json:"industry"`
	Region        Check `json:"region"`
	CompanyAge    Check `json:"companyAge"`
	Revenue       Check `json:"revenue"`
	EmployeeCount Check `json:"employeeCount"`
}

// All returns the checks in a fixed order.
func (c EligibilityChecks) All() []Check {
	return []Check{c.Industry, c.Region, c.CompanyAge, c.Revenue, c.EmployeeCount}
}

// EligibilityCheck is the first stage of a match: can the company apply at all.
type EligibilityCheck struct {
	IsEligible    bool              `json:"isEligible"`
	Checks        EligibilityChecks `json:"checks"`
	FailedReasons []string          `json:"failedReasons"`
}

// MatchAnalysis is the model's assessment of one company against one
// announcement. Scores are only meaningful when the company is eligible.
type MatchAnalysis struct {
	Eligibility EligibilityCheck `json:"eligibility"`

	OverallScore   float64 `json:"overallScore"`
	TechnicalScore float64 `json:"technicalScore"`
	MarketScore    float64 `json:"marketScore"`
	BusinessScore  float64 `json:"businessScore"`
	FitScore       float64 `json:"fitScore"`
	BonusPoints    float64 `json:"bonusPoints"`

	Strengths       []string `json:"strengths"`
	Weaknesses      []string `json:"weaknesses"`
	Recommendations []string `json:"recommendations"`
}

// Fixed strings of the fallback analysis.
const (
	UnknownRequirement   = "확인 불가"
	UnknownCompanyValue  = "-"
	AnalysisErrorReason  = "분석 오류"
	AnalysisErrorMessage = "분석 중 오류가 발생했습니다."
	RetryRecommendation  = "다시 시도해주세요."
)

// DefaultMatchAnalysis is returned when the model response could not be
// parsed. Every check fails and every score is zero.
func DefaultMatchAnalysis() *MatchAnalysis {
	failed := Check{
		Passed:       false,
		Requirement:  UnknownRequirement,
		CompanyValue: UnknownCompanyValue,
		Reason:       AnalysisErrorReason,
	}
	return &MatchAnalysis{
		Eligibility: EligibilityCheck{
			IsEligible: false,
			Checks: EligibilityChecks{
				Industry:      failed,
				Region:        failed,
				CompanyAge:    failed,
				Revenue:       failed,
				EmployeeCount: failed,
			},
			FailedReasons: []string{AnalysisErrorMessage},
		},
		Strengths:       []string{},
		Weaknesses:      []string{AnalysisErrorMessage},
		Recommendations: []string{RetryRecommendation},
	}
}

// Match is a stored analysis of one company against one announcement.
type Match struct {
	ID             uuid.UUID     `json:"id"`
	CompanyID      uuid.UUID     `json:"companyId"`
	AnnouncementID uuid.UUID     `json:"announcementId"`
	Score          int           `json:"matchScore"`
	Analysis       MatchAnalysis `json:"analysis"`
	CreatedAt      time.Time     `json:"createdAt"`
}

// NewMatch creates a match with a fresh ID.
func NewMatch(companyID, announcementID uuid.UUID, score int, analysis MatchAnalysis) (*Match, error) {
	m := &Match{
		ID:             uuid.New(),
		CompanyID:      companyID,
		AnnouncementID: announcementID,
		Score:          score,
		Analysis:       analysis,
		CreatedAt:      time.Now().UTC(),
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks identifiers and the score range.
func (m *Match) Validate() error {
	if m.ID == uuid.Nil || m.CompanyID == uuid.Nil || m.AnnouncementID == uuid.Nil {
		return ErrInvalidID
	}
	if m.Score < 0 || m.Score > 100 {
		return ErrValidation
	}
	return nil
}

// FeedbackType is the direction of a user's disagreement with a match score.
type FeedbackType string

// Feedback types
const (
	FeedbackAccurate FeedbackType = "accurate"
	FeedbackTooHigh  FeedbackType = "too_high"
	FeedbackTooLow   FeedbackType = "too_low"
)

// MatchFeedback is a user's rating of a match score.
type MatchFeedback struct {
	ID           uuid.UUID    `json:"id"`
	MatchID      uuid.UUID    `json:"matchId"`
	CompanyID    uuid.UUID    `json:"companyId"`
	FeedbackType FeedbackType `json:"feedbackType"`
	Rating       int          `json:"rating"`
	Comment      string       `json:"comment,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
}

// Validate checks the feedback type and that the rating is 1-5.
func (f *MatchFeedback) Validate() error {
	switch f.FeedbackType {
	case FeedbackAccurate, FeedbackTooHigh, FeedbackTooLow:
	default:
		return ErrInvalidFeedback
	}
	if f.Rating < 1 || f.Rating > 5 {
		return ErrInvalidFeedback
	}
	if f.MatchID == uuid.Nil {
		return ErrInvalidID
	}
	return nil
}
