package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ParseStatus records how the last extraction attempt on an announcement
// ended. A parsed flag alone cannot tell a failed attempt from a good one.
type ParseStatus string

// Possible parse status values
const (
	ParseStatusPending   ParseStatus = "pending"
	ParseStatusSucceeded ParseStatus = "succeeded"
	ParseStatusFailed    ParseStatus = "failed"
	ParseStatusSkipped   ParseStatus = "skipped"
)

// Announcement is a grant or tender posting collected from a public source.
type Announcement struct {
	ID               uuid.UUID  `json:"id"`
	Source           string     `json:"source"`
	SourceID         string     `json:"sourceId"`
	Title            string     `json:"title"`
	Organization     string     `json:"organization,omitempty"`
	Category         string     `json:"category,omitempty"`
	SupportType      string     `json:"supportType,omitempty"`
	TargetCompany    string     `json:"targetCompany,omitempty"`
	SupportAmount    string     `json:"supportAmount,omitempty"`
	ApplicationStart *time.Time `json:"applicationStart,omitempty"`
	ApplicationEnd   *time.Time `json:"applicationEnd,omitempty"`
	Content          string     `json:"content,omitempty"`
	ParsedContent    string     `json:"parsedContent,omitempty"`
	Status           string     `json:"status"`

	EligibilityCriteria *EligibilityCriteria `json:"eligibilityCriteria,omitempty"`
	EligibilityParsed   bool                 `json:"eligibilityParsed"`
	EligibilityStatus   ParseStatus          `json:"eligibilityStatus"`

	EvaluationCriteria *EvaluationCriteria `json:"evaluationCriteria,omitempty"`
	EvaluationParsed   bool                `json:"evaluationParsed"`
	EvaluationStatus   ParseStatus         `json:"evaluationStatus"`

	CreatedAt time.Time `json:"createdAt"`
}

// AnalysisContent returns the text handed to the models: the parsed
// attachment content when present, the raw posting body otherwise.
func (a *Announcement) AnalysisContent() string {
	if strings.TrimSpace(a.ParsedContent) != "" {
		return a.ParsedContent
	}
	return a.Content
}

// MaxEmbeddingTextRunes bounds the text sent to embedding providers.
const MaxEmbeddingTextRunes = 10000

// EmbeddingText builds the labelled document that gets embedded: title,
// organization, category, support type and target on their own lines,
// then the analysis content. It is cut to MaxEmbeddingTextRunes.
func (a *Announcement) EmbeddingText() string {
	lines := []string{"제목: " + a.Title}
	for _, f := range []struct{ label, value string }{
		{"기관", a.Organization},
		{"분야", a.Category},
		{"지원유형", a.SupportType},
		{"지원대상", a.TargetCompany},
	} {
		if f.value != "" {
			lines = append(lines, f.label+": "+f.value)
		}
	}
	if body := a.AnalysisContent(); body != "" {
		lines = append(lines, body)
	}
	text := strings.Join(lines, "\n")

	runes := []rune(text)
	if len(runes) > MaxEmbeddingTextRunes {
		text = string(runes[:MaxEmbeddingTextRunes])
	}
	return text
}
