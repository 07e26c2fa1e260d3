// Package calibration corrects raw model match scores. Models tend to score
// generously, so scores are discounted when the model had little to go on
// and compressed at the top of the range. A feedback offset derived from
// user ratings can be applied on top.
package calibration

import (
	"context"
	"log/slog"
	"math"

	"github.com/choishiam0906/govhelper/internal/domain"
	"github.com/choishiam0906/govhelper/internal/platform/logger"
	"github.com/choishiam0906/govhelper/internal/redact"
	"github.com/choishiam0906/govhelper/internal/store"
)

// Config holds the calibration factors.
type Config struct {
	// NoPlanPenalty is the share removed when neither a business plan nor
	// document context was available.
	NoPlanPenalty float64
	// IncompleteProfilePenalty scales with the missing share of the profile.
	IncompleteProfilePenalty float64
	// CompletenessThreshold is the profile completeness below which the
	// incomplete profile penalty applies.
	CompletenessThreshold float64
	// CompressAbove is the score above which the excess is halved.
	CompressAbove float64
	MinScore      float64
	MaxScore      float64
}

// DefaultConfig returns the production calibration factors.
func DefaultConfig() Config {
	return Config{
		NoPlanPenalty:            0.15,
		IncompleteProfilePenalty: 0.10,
		CompletenessThreshold:    0.7,
		CompressAbove:            85,
		MinScore:                 0,
		MaxScore:                 100,
	}
}

// Input describes what the model had available when it scored.
type Input struct {
	HasBusinessPlan     bool
	HasRAGContext       bool
	ProfileCompleteness float64
	EligibilityPassed   bool
}

// Score calibrates rawScore with the default factors.
func Score(rawScore float64, in Input) int {
	return DefaultConfig().Score(rawScore, in)
}

// Score calibrates rawScore. Ineligible companies always score 0.
func (c Config) Score(rawScore float64, in Input) int {
	if !in.EligibilityPassed {
		return 0
	}

	s := rawScore
	if !in.HasBusinessPlan && !in.HasRAGContext {
		s *= 1 - c.NoPlanPenalty
	}
	if in.ProfileCompleteness < c.CompletenessThreshold {
		s *= 1 - c.IncompleteProfilePenalty*(1-in.ProfileCompleteness)
	}
	if s > c.CompressAbove {
		s = c.CompressAbove + (s-c.CompressAbove)*0.5
	}
	return int(math.Max(c.MinScore, math.Min(c.MaxScore, roundHalfUp(s))))
}

// roundHalfUp rounds .5 towards positive infinity, so -2.5 becomes -2.
func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}

// Feedback window and bounds.
const (
	FeedbackWindow     = 100
	MinFeedbackSamples = 10
	MaxFeedbackOffset  = 10
)

// FeedbackOffset averages the direction of recent user feedback into a score
// adjustment in [-MaxFeedbackOffset, MaxFeedbackOffset]. A "too high" rating
// of r pulls scores down by 6-r, "too low" pushes them up by 6-r and
// "accurate" ratings are ignored. Fewer than MinFeedbackSamples rows give 0.
func FeedbackOffset(feedback []*domain.MatchFeedback) int {
	if len(feedback) < MinFeedbackSamples {
		return 0
	}

	offset, count := 0, 0
	for _, f := range feedback {
		switch f.FeedbackType {
		case domain.FeedbackTooHigh:
			offset -= 6 - f.Rating
			count++
		case domain.FeedbackTooLow:
			offset += 6 - f.Rating
			count++
		}
	}
	if count == 0 {
		return 0
	}

	avg := roundHalfUp(float64(offset) / float64(count))
	return int(math.Max(-MaxFeedbackOffset, math.Min(MaxFeedbackOffset, avg)))
}

// Calibrator applies calibration and the stored feedback offset.
type Calibrator struct {
	feedback store.FeedbackStore
	config   Config
	logger   *slog.Logger
}

// NewCalibrator creates a Calibrator over the feedback store.
func NewCalibrator(feedback store.FeedbackStore, config Config, logger *slog.Logger) *Calibrator {
	if feedback == nil {
		panic("feedback store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Calibrator{
		feedback: feedback,
		config:   config,
		logger:   logger.With(slog.String("component", "calibrator")),
	}
}

// Offset loads the recent feedback and returns its offset. Load failures
// are logged and give 0 so scoring never fails on feedback.
func (c *Calibrator) Offset(ctx context.Context) int {
	rows, err := c.feedback.ListRecent(ctx, FeedbackWindow)
	if err != nil {
		logger.FromContextOrDefault(ctx, c.logger).Warn("loading match feedback failed",
			slog.String("error", redact.Error(err)))
		return 0
	}
	return FeedbackOffset(rows)
}

// Calibrate scores an analysis for a company. The feedback offset is added
// to the calibrated score of eligible companies and the result is clamped
// again.
func (c *Calibrator) Calibrate(
	ctx context.Context,
	a *domain.MatchAnalysis,
	company *domain.Company,
	hasBusinessPlan, hasRAGContext bool,
) int {
	in := Input{
		HasBusinessPlan:     hasBusinessPlan,
		HasRAGContext:       hasRAGContext,
		ProfileCompleteness: company.Completeness(),
		EligibilityPassed:   a.Eligibility.IsEligible,
	}
	score := c.config.Score(a.OverallScore, in)
	if !in.EligibilityPassed {
		return score
	}

	adjusted := float64(score + c.Offset(ctx))
	final := int(math.Max(c.config.MinScore, math.Min(c.config.MaxScore, adjusted)))

	logger.FromContextOrDefault(ctx, c.logger).Debug("match score calibrated",
		slog.Float64("raw", a.OverallScore),
		slog.Int("calibrated", score),
		slog.Int("final", final),
		slog.Float64("completeness", in.ProfileCompleteness))
	return final
}
