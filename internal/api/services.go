package api

import (
	"context"
	"iter"

	"github.com/choishiam0906/govhelper/internal/domain"
	"github.com/choishiam0906/govhelper/internal/service/extraction"
	"github.com/choishiam0906/govhelper/internal/task"
	"github.com/google/uuid"
)

// Extractor is the model-backed analysis the handlers need.
// *extraction.Service satisfies it.
type Extractor interface {
	ParseEligibility(ctx context.Context, title, targetCompany, content string) (*domain.EligibilityCriteria, error)
	AnalyzeMatch(ctx context.Context, in extraction.MatchInput) (*domain.MatchAnalysis, error)
	ExtractEvaluation(ctx context.Context, title, content string) (*domain.EvaluationExtractionResult, error)
	AnalyzeWithEvaluation(ctx context.Context, in extraction.EvaluationMatchInput) (*domain.EvaluationMatchAnalysis, error)
	StreamSection(ctx context.Context, in extraction.SectionInput) iter.Seq2[string, error]
	StreamImprovement(ctx context.Context, in extraction.ImprovementInput) iter.Seq2[string, error]
	StreamChat(ctx context.Context, in extraction.ChatInput) iter.Seq2[string, error]
}

// ScoreCalibrator turns a raw analysis into the stored match score.
// *calibration.Calibrator satisfies it.
type ScoreCalibrator interface {
	Calibrate(ctx context.Context, a *domain.MatchAnalysis, company *domain.Company, hasBusinessPlan, hasRAGContext bool) int
}

// MatchCache caches match results per company and announcement.
// *redis.Cache satisfies it, including a nil *redis.Cache.
type MatchCache interface {
	GetMatch(ctx context.Context, companyID, announcementID uuid.UUID) (*domain.Match, bool)
	SetMatch(ctx context.Context, m *domain.Match)
}

// PromptMetrics reports per-version prompt performance.
// *promptversion.Manager satisfies it.
type PromptMetrics interface {
	GetMetrics(ctx context.Context, t domain.PromptType) ([]domain.PromptMetrics, error)
}

// JobFactory builds extraction tasks. *task.ExtractionTaskFactory
// satisfies it.
type JobFactory interface {
	CreateTask(job task.ExtractionJob) (*task.ExtractionTask, error)
}

// TaskSubmitter persists and enqueues a task. *task.TaskRunner satisfies it.
type TaskSubmitter interface {
	Submit(ctx context.Context, t task.Task) error
}

type noCache struct{}

func (noCache) GetMatch(context.Context, uuid.UUID, uuid.UUID) (*domain.Match, bool) {
	return nil, false
}
func (noCache) SetMatch(context.Context, *domain.Match) {}
