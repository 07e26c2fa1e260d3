package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PromptType names a logical prompt. Every stored version belongs to one.
type PromptType string

// Known prompt types
const (
	PromptMatchingAnalysis     PromptType = "matching_analysis"
	PromptEligibilityParsing   PromptType = "eligibility_parsing"
	PromptApplicationSection   PromptType = "application_section"
	PromptSectionImprovement   PromptType = "section_improvement"
	PromptEvaluationExtraction PromptType = "evaluation_extraction"
	PromptEvaluationMatching   PromptType = "evaluation_matching"
	PromptChatbot              PromptType = "chatbot"
	PromptApplicationScore     PromptType = "application_score"
	PromptSectionGuide         PromptType = "section_guide"
)

// PromptTypes lists every known prompt type.
var PromptTypes = []PromptType{
	PromptMatchingAnalysis,
	PromptEligibilityParsing,
	PromptApplicationSection,
	PromptSectionImprovement,
	PromptEvaluationExtraction,
	PromptEvaluationMatching,
	PromptChatbot,
	PromptApplicationScore,
	PromptSectionGuide,
}

// Valid reports whether t is a known prompt type.
func (t PromptType) Valid() bool {
	for _, known := range PromptTypes {
		if t == known {
			return true
		}
	}
	return false
}

// PromptVersion is a stored prompt template. Content is a text/template
// rendered with the same data as the built-in template of its type.
type PromptVersion struct {
	ID          uuid.UUID  `json:"id"`
	Type        PromptType `json:"type"`
	Version     string     `json:"version"`
	Content     string     `json:"content"`
	IsActive    bool       `json:"isActive"`
	Weight      int        `json:"weight"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// DefaultPromptWeight is the weight given to new versions.
const DefaultPromptWeight = 100

// NewPromptVersion creates an inactive version with the default weight.
func NewPromptVersion(t PromptType, version, content, description string) (*PromptVersion, error) {
	v := &PromptVersion{
		ID:          uuid.New(),
		Type:        t,
		Version:     version,
		Content:     content,
		IsActive:    false,
		Weight:      DefaultPromptWeight,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return v, nil
}

// Validate checks the type, version label, content and weight range.
func (v *PromptVersion) Validate() error {
	if v.ID == uuid.Nil {
		return ErrInvalidID
	}
	if !v.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPromptType, v.Type)
	}
	if v.Version == "" {
		return fmt.Errorf("%w: version label is required", ErrValidation)
	}
	if v.Content == "" {
		return ErrEmptyContent
	}
	return ValidateWeight(v.Weight)
}

// ValidateWeight checks that an A/B weight is within 0-100.
func ValidateWeight(weight int) error {
	if weight < 0 || weight > 100 {
		return ErrInvalidWeight
	}
	return nil
}

// PromptUsageLog records one use of a prompt version.
type PromptUsageLog struct {
	ID              uuid.UUID  `json:"id"`
	PromptVersionID uuid.UUID  `json:"promptVersionId"`
	UserID          *uuid.UUID `json:"userId,omitempty"`
	ResultScore     *float64   `json:"resultScore,omitempty"`
	ResponseTimeMS  *int64     `json:"responseTime,omitempty"`
	ErrorMessage    string     `json:"errorMessage,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// PromptMetrics aggregates usage logs of one version. Rates are percentages.
type PromptMetrics struct {
	VersionID           uuid.UUID `json:"versionId"`
	TotalUsage          int       `json:"totalUsage"`
	AverageScore        float64   `json:"averageScore"`
	AverageResponseTime float64   `json:"averageResponseTime"`
	ErrorRate           float64   `json:"errorRate"`
	SuccessRate         float64   `json:"successRate"`
}

// AggregatePromptMetrics groups logs by version in first-seen order.
// Averages divide by the total usage count, matching how the dashboard
// has always reported them.
func AggregatePromptMetrics(logs []PromptUsageLog) []PromptMetrics {
	type acc struct {
		usage, errors       int
		score, responseTime float64
	}
	var order []uuid.UUID
	byVersion := make(map[uuid.UUID]*acc)

	for _, l := range logs {
		a, ok := byVersion[l.PromptVersionID]
		if !ok {
			a = &acc{}
			byVersion[l.PromptVersionID] = a
			order = append(order, l.PromptVersionID)
		}
		a.usage++
		if l.ResultScore != nil {
			a.score += *l.ResultScore
		}
		if l.ResponseTimeMS != nil {
			a.responseTime += float64(*l.ResponseTimeMS)
		}
		if l.ErrorMessage != "" {
			a.errors++
		}
	}

	out := make([]PromptMetrics, 0, len(order))
	for _, id := range order {
		a := byVersion[id]
		n := float64(a.usage)
		out = append(out, PromptMetrics{
			VersionID:           id,
			TotalUsage:          a.usage,
			AverageScore:        a.score / n,
			AverageResponseTime: a.responseTime / n,
			ErrorRate:           float64(a.errors) / n * 100,
			SuccessRate:         float64(a.usage-a.errors) / n * 100,
		})
	}
	return out
}
