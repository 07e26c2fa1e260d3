package domain

import (
	"math"
	"time"
)

// EvaluationSubItem is a scored line under an evaluation item.
type EvaluationSubItem struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	MaxScore    float64  `json:"maxScore"`
	Keywords    []string `json:"keywords,omitempty"`
}

// EvaluationItem is one row of a review board's scoring sheet.
type EvaluationItem struct {
	Category    string              `json:"category"`
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	MaxScore    float64             `json:"maxScore"`
	Weight      *float64            `json:"weight,omitempty"`
	SubItems    []EvaluationSubItem `json:"subItems,omitempty"`
}

// Bonus item kinds
const (
	BonusTypeBonus   = "bonus"
	BonusTypePenalty = "penalty"
)

// BonusItem is an extra point or deduction applied on top of the sheet.
type BonusItem struct {
	Name      string  `json:"name"`
	Score     float64 `json:"score"`
	Condition string  `json:"condition"`
	Type      string  `json:"type"`
}

// EvaluationMethod describes how applications are ranked.
type EvaluationMethod struct {
	Type       string   `json:"type"` // absolute or relative
	Stages     *int     `json:"stages,omitempty"`
	StageNames []string `json:"stageNames,omitempty"`
}

// EvaluationCriteria is the structured scoring rubric of an announcement.
type EvaluationCriteria struct {
	TotalScore       float64           `json:"totalScore"`
	PassingScore     *float64          `json:"passingScore,omitempty"`
	Items            []EvaluationItem  `json:"items"`
	BonusItems       []BonusItem       `json:"bonusItems,omitempty"`
	EvaluationMethod *EvaluationMethod `json:"evaluationMethod,omitempty"`
	ExtractedAt      time.Time         `json:"extractedAt"`
	Confidence       float64           `json:"confidence"`
	Source           string            `json:"source,omitempty"`
}

// CategorySummary is one category's share of the total score.
type CategorySummary struct {
	Name       string  `json:"name"`
	MaxScore   float64 `json:"maxScore"`
	Percentage int     `json:"percentage"`
}

// EvaluationSummary is a compact view of criteria for listings.
type EvaluationSummary struct {
	TotalScore    float64           `json:"totalScore"`
	Categories    []CategorySummary `json:"categories"`
	HasBonusItems bool              `json:"hasBonusItems"`
	PassingScore  *float64          `json:"passingScore,omitempty"`
}

// Summarize groups items by category in first-seen order. Percentages are
// relative to TotalScore, or to the item sum when TotalScore is zero.
func (c *EvaluationCriteria) Summarize() *EvaluationSummary {
	var order []string
	sums := make(map[string]float64)
	itemTotal := 0.0
	for _, item := range c.Items {
		if _, seen := sums[item.Category]; !seen {
			order = append(order, item.Category)
		}
		sums[item.Category] += item.MaxScore
		itemTotal += item.MaxScore
	}

	total := c.TotalScore
	if total <= 0 {
		total = itemTotal
	}

	categories := make([]CategorySummary, 0, len(order))
	for _, name := range order {
		pct := 0
		if total > 0 {
			pct = int(math.Round(sums[name] / total * 100))
		}
		categories = append(categories, CategorySummary{
			Name:       name,
			MaxScore:   sums[name],
			Percentage: pct,
		})
	}

	return &EvaluationSummary{
		TotalScore:    c.TotalScore,
		Categories:    categories,
		HasBonusItems: len(c.BonusItems) > 0,
		PassingScore:  c.PassingScore,
	}
}

// EvaluationExtractionResult is the outcome of extracting criteria from
// an announcement. Criteria and Summary are set only when Success is true.
type EvaluationExtractionResult struct {
	Success  bool                `json:"success"`
	Criteria *EvaluationCriteria `json:"criteria,omitempty"`
	Summary  *EvaluationSummary  `json:"summary,omitempty"`
	Error    string              `json:"error,omitempty"`
}

// CategoryScore is the estimated score of a company in one evaluation category.
type CategoryScore struct {
	Category       string   `json:"category"`
	MaxScore       float64  `json:"maxScore"`
	EstimatedScore float64  `json:"estimatedScore"`
	Percentage     float64  `json:"percentage"`
	Reasons        []string `json:"reasons"`
	Improvements   []string `json:"improvements,omitempty"`
}

// AppliedBonus reports whether a bonus item applies to the company.
type AppliedBonus struct {
	Name    string  `json:"name"`
	Score   float64 `json:"score"`
	Applied bool    `json:"applied"`
}

// EvaluationMatchAnalysis scores a company against an extracted rubric.
type EvaluationMatchAnalysis struct {
	TotalEstimatedScore float64         `json:"totalEstimatedScore"`
	MaxPossibleScore    float64         `json:"maxPossibleScore"`
	Categories          []CategoryScore `json:"categories"`
	BonusApplied        []AppliedBonus  `json:"bonusApplied"`
	OverallAssessment   string          `json:"overallAssessment"`
	KeyStrengths        []string        `json:"keyStrengths"`
	KeyWeaknesses       []string        `json:"keyWeaknesses"`
	PassLikelihood      PassLikelihood  `json:"passLikelihood,omitempty"`
}

// PassLikelihood is a coarse rank estimate for an evaluation-based match.
type PassLikelihood string

const (
	PassLikelihoodHigh   PassLikelihood = "high"
	PassLikelihoodMedium PassLikelihood = "medium"
	PassLikelihoodLow    PassLikelihood = "low"
)

// EstimatePassLikelihood ranks the estimated total against the passing
// score, with a 10 point margin for "high". Without a passing score the
// share of the maximum is used: 80% and up is high, 60% and up is medium.
func (a *EvaluationMatchAnalysis) EstimatePassLikelihood(passingScore *float64) PassLikelihood {
	if passingScore != nil {
		switch {
		case a.TotalEstimatedScore >= *passingScore+10:
			return PassLikelihoodHigh
		case a.TotalEstimatedScore >= *passingScore:
			return PassLikelihoodMedium
		default:
			return PassLikelihoodLow
		}
	}
	if a.MaxPossibleScore <= 0 {
		return PassLikelihoodLow
	}
	share := a.TotalEstimatedScore / a.MaxPossibleScore
	switch {
	case share >= 0.8:
		return PassLikelihoodHigh
	case share >= 0.6:
		return PassLikelihoodMedium
	default:
		return PassLikelihoodLow
	}
}

// DefaultEvaluationMatchAnalysis is returned when the model response could
// not be parsed.
func DefaultEvaluationMatchAnalysis(maxScore float64) *EvaluationMatchAnalysis {
	return &EvaluationMatchAnalysis{
		MaxPossibleScore:  maxScore,
		Categories:        []CategoryScore{},
		BonusApplied:      []AppliedBonus{},
		OverallAssessment: AnalysisErrorMessage,
		KeyStrengths:      []string{},
		KeyWeaknesses:     []string{AnalysisErrorMessage},
	}
}
