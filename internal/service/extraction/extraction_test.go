package extraction_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/choishiam0906/govhelper/internal/domain"
	"github.com/choishiam0906/govhelper/internal/generation"
	"github.com/choishiam0906/govhelper/internal/mocks"
	"github.com/choishiam0906/govhelper/internal/service/extraction"
	"github.com/choishiam0906/govhelper/internal/service/promptversion"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func newService(gen *mocks.MockGenerator, versions ...*domain.PromptVersion) (*extraction.Service, *mocks.MockUsageLogStore) {
	logs := mocks.NewMockUsageLogStore()
	selector := promptversion.NewSelector(
		mocks.NewMockPromptVersionStore(versions...),
		promptversion.NewStoreSink(logs),
		nil,
		promptversion.WithClock(func() time.Time { return fixedNow }),
	)
	svc := extraction.NewService(gen, selector, nil, extraction.WithClock(func() time.Time { return fixedNow }))
	return svc, logs
}

func sampleCompany() *domain.Company {
	employees := 12
	founded := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	return &domain.Company{
		ID:             uuid.New(),
		UserID:         uuid.New(),
		Name:           "그린랩",
		Industry:       "소프트웨어",
		EmployeeCount:  &employees,
		FoundedDate:    &founded,
		Location:       "서울",
		Certifications: []string{"venture"},
	}
}

func sampleAnnouncement() *domain.Announcement {
	return &domain.Announcement{
		ID:           uuid.New(),
		Title:        "2025 창업도약패키지",
		Organization: "중소벤처기업부",
		Content:      "업력 3년 이상 7년 이내 창업기업을 지원합니다.",
		Status:       "active",
	}
}

func TestParseEligibility(t *testing.T) {
	ctx := context.Background()

	t.Run("answer wrapped in prose", func(t *testing.T) {
		gen := mocks.NewMockGenerator("분석 결과입니다.\n" +
			`{"companyTypes":["중소기업"],"employeeCount":{"min":null,"max":299},` +
			`"industries":{"included":["제조업"]},"summary":"중소 제조기업","confidence":1.4}` +
			"\n감사합니다.")
		svc, _ := newService(gen)

		c, err := svc.ParseEligibility(ctx, "제조혁신 바우처", "중소기업", "상시근로자 300인 미만 제조기업")
		require.NoError(t, err)
		assert.Equal(t, []string{"중소기업"}, c.CompanyTypes)
		require.NotNil(t, c.EmployeeCount)
		assert.InDelta(t, 299, *c.EmployeeCount.Max, 0.001)
		assert.Equal(t, []string{}, c.Industries.Excluded)
		assert.Equal(t, []string{}, c.Exclusions)
		assert.InDelta(t, 1.0, c.Confidence, 0.0001)
		assert.Equal(t, fixedNow, c.ParsedAt)

		req := gen.LastRequest()
		assert.True(t, req.JSON)
		assert.Contains(t, req.System, "JSON")
		assert.Contains(t, req.Prompt, "제조혁신 바우처")
		assert.Contains(t, req.Prompt, "상시근로자 300인 미만")
	})

	t.Run("short content still calls the provider", func(t *testing.T) {
		gen := mocks.NewMockGenerator(`{"summary":"짧음","confidence":0.2}`)
		svc, _ := newService(gen)

		_, err := svc.ParseEligibility(ctx, "공고", "", "짧은 본문")
		require.NoError(t, err)
		assert.Equal(t, 1, gen.CallCount())
	})

	t.Run("provider failure returns default", func(t *testing.T) {
		gen := mocks.NewMockGeneratorWithError(generation.ErrRateLimited)
		svc, _ := newService(gen)

		c, err := svc.ParseEligibility(ctx, "공고", "", "본문")
		assert.ErrorIs(t, err, generation.ErrRateLimited)
		require.NotNil(t, c)
		assert.Equal(t, domain.EligibilityParseFailedSummary, c.Summary)
		assert.Zero(t, c.Confidence)
		assert.Empty(t, c.AdditionalRequirements)
		assert.Empty(t, c.Exclusions)
	})

	t.Run("answer without json returns default", func(t *testing.T) {
		gen := mocks.NewMockGenerator("죄송하지만 지원자격을 찾을 수 없습니다.")
		svc, _ := newService(gen)

		c, err := svc.ParseEligibility(ctx, "공고", "", "본문")
		assert.ErrorIs(t, err, generation.ErrNoJSON)
		assert.Zero(t, c.Confidence)
	})
}

func TestAnalyzeMatch(t *testing.T) {
	ctx := context.Background()

	t.Run("parses both stages", func(t *testing.T) {
		gen := mocks.NewMockGenerator(`{
			"eligibility": {"isEligible": true, "checks": {"industry": {"passed": true, "requirement": "제한 없음"}}},
			"overallScore": 78, "technicalScore": 20, "fitScore": 21,
			"strengths": ["업력 적합"]
		}`)
		svc, _ := newService(gen)

		a, err := svc.AnalyzeMatch(ctx, extraction.MatchInput{
			Company:      sampleCompany(),
			Announcement: sampleAnnouncement(),
			BusinessPlan: "스마트팜 자동화 솔루션",
		})
		require.NoError(t, err)
		assert.True(t, a.Eligibility.IsEligible)
		assert.True(t, a.Eligibility.Checks.Industry.Passed)
		assert.InDelta(t, 78, a.OverallScore, 0.001)
		assert.Equal(t, []string{}, a.Weaknesses)
		assert.Equal(t, []string{}, a.Eligibility.FailedReasons)

		prompt := gen.LastRequest().Prompt
		assert.Contains(t, prompt, "그린랩")
		assert.Contains(t, prompt, "스마트팜 자동화 솔루션")
		assert.Contains(t, prompt, "업력 3년 이상")
	})

	t.Run("failure returns the failed default", func(t *testing.T) {
		gen := mocks.NewMockGeneratorWithError(generation.ErrGenerationFailed)
		svc, _ := newService(gen)

		a, err := svc.AnalyzeMatch(ctx, extraction.MatchInput{Company: sampleCompany(), Announcement: sampleAnnouncement()})
		assert.ErrorIs(t, err, generation.ErrGenerationFailed)
		assert.False(t, a.Eligibility.IsEligible)
		for _, c := range a.Eligibility.Checks.All() {
			assert.False(t, c.Passed)
			assert.Equal(t, domain.UnknownRequirement, c.Requirement)
			assert.Equal(t, domain.UnknownCompanyValue, c.CompanyValue)
			assert.Equal(t, domain.AnalysisErrorReason, c.Reason)
		}
		assert.Zero(t, a.OverallScore)
		assert.Equal(t, []string{domain.RetryRecommendation}, a.Recommendations)
	})

	t.Run("usage of a stored version records the score", func(t *testing.T) {
		v := &domain.PromptVersion{
			ID: uuid.New(), Type: domain.PromptMatchingAnalysis, Version: "v2", IsActive: true, Weight: 100,
			Content: "공고 {{.AnnouncementContent}} / 기업 {{.CompanyProfile}} / 계획 {{.BusinessPlan}}",
		}
		gen := mocks.NewMockGenerator(`{"overallScore": 64}`)
		svc, logs := newService(gen, v)

		_, err := svc.AnalyzeMatch(ctx, extraction.MatchInput{Company: sampleCompany(), Announcement: sampleAnnouncement()})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(gen.LastRequest().Prompt, "공고 "))

		entries := logs.Logs()
		require.Len(t, entries, 1)
		assert.Equal(t, v.ID, entries[0].PromptVersionID)
		assert.InDelta(t, 64, *entries[0].ResultScore, 0.001)
	})
}

func TestExtractEvaluation(t *testing.T) {
	ctx := context.Background()

	t.Run("rubric with summary", func(t *testing.T) {
		gen := mocks.NewMockGenerator(`{"found": true, "passingScore": 70,
			"items": [
				{"category": "기술성", "name": "기술개발 계획", "maxScore": 30},
				{"category": "기술성", "name": "기술 역량", "maxScore": 20},
				{"category": "사업성", "name": "사업화 전략", "maxScore": 50}
			],
			"bonusItems": [{"name": "벤처기업", "score": 3, "condition": "인증 보유", "type": "bonus"}],
			"confidence": 0.9}`)
		svc, _ := newService(gen)

		res, err := svc.ExtractEvaluation(ctx, "공고", strings.Repeat("평가기준 ", 30))
		require.NoError(t, err)
		require.True(t, res.Success)
		assert.InDelta(t, 100, res.Criteria.TotalScore, 0.001)
		assert.Equal(t, fixedNow, res.Criteria.ExtractedAt)
		assert.Equal(t, "ai", res.Criteria.Source)
		require.Len(t, res.Summary.Categories, 2)
		assert.Equal(t, 50, res.Summary.Categories[0].Percentage)
		assert.True(t, res.Summary.HasBonusItems)
	})

	t.Run("rubric not found", func(t *testing.T) {
		gen := mocks.NewMockGenerator(`{"found": false, "confidence": 0}`)
		svc, _ := newService(gen)

		res, err := svc.ExtractEvaluation(ctx, "공고", "본문")
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, extraction.ErrMsgCriteriaNotFound, res.Error)
		assert.Nil(t, res.Criteria)
	})

	t.Run("no json", func(t *testing.T) {
		gen := mocks.NewMockGenerator("평가기준이 없습니다")
		svc, _ := newService(gen)

		res, err := svc.ExtractEvaluation(ctx, "공고", "본문")
		assert.ErrorIs(t, err, generation.ErrNoJSON)
		assert.False(t, res.Success)
	})
}

func TestAnalyzeWithEvaluation(t *testing.T) {
	ctx := context.Background()
	passing := 70.0
	criteria := &domain.EvaluationCriteria{
		TotalScore:   100,
		PassingScore: &passing,
		Items:        []domain.EvaluationItem{{Category: "기술성", Name: "기술개발 계획", MaxScore: 100}},
	}

	t.Run("scores and ranks", func(t *testing.T) {
		gen := mocks.NewMockGenerator(`{"totalEstimatedScore": 84,
			"categories": [{"category": "기술성", "maxScore": 100, "estimatedScore": 84, "percentage": 84, "reasons": ["자체 기술"]}],
			"overallAssessment": "우수"}`)
		svc, _ := newService(gen)

		a, err := svc.AnalyzeWithEvaluation(ctx, extraction.EvaluationMatchInput{Company: sampleCompany(), Criteria: criteria})
		require.NoError(t, err)
		assert.InDelta(t, 100, a.MaxPossibleScore, 0.001)
		assert.Equal(t, domain.PassLikelihoodHigh, a.PassLikelihood)
		assert.Equal(t, []domain.AppliedBonus{}, a.BonusApplied)
		assert.Contains(t, gen.LastRequest().Prompt, "기술개발 계획")
	})

	t.Run("failure returns default", func(t *testing.T) {
		gen := mocks.NewMockGenerator("no json here")
		svc, _ := newService(gen)

		a, err := svc.AnalyzeWithEvaluation(ctx, extraction.EvaluationMatchInput{Company: sampleCompany(), Criteria: criteria})
		assert.Error(t, err)
		assert.InDelta(t, 100, a.MaxPossibleScore, 0.001)
		assert.Equal(t, domain.AnalysisErrorMessage, a.OverallAssessment)
	})
}

func collect(seq func(func(string, error) bool)) (string, error) {
	var b strings.Builder
	for chunk, err := range seq {
		if err != nil {
			return b.String(), err
		}
		b.WriteString(chunk)
	}
	return b.String(), nil
}

func TestStreamChat(t *testing.T) {
	ctx := context.Background()
	v := &domain.PromptVersion{
		ID: uuid.New(), Type: domain.PromptChatbot, Version: "v1", IsActive: true, Weight: 100,
		Content: "{{if .CompanyProfile}}{{.CompanyProfile}}\n{{end}}{{if .RecentMatches}}{{.RecentMatches}}\n{{end}}Q: {{.Message}}",
	}

	gen := &mocks.MockGenerator{Chunks: []string{"안녕하세요. ", "지원 가능해요."}}
	svc, logs := newService(gen, v)

	match := &domain.Match{AnnouncementID: uuid.New(), Score: 82}
	text, err := collect(svc.StreamChat(ctx, extraction.ChatInput{
		Message:       "이 공고 지원 가능한가요?",
		Company:       sampleCompany(),
		RecentMatches: []*domain.Match{match},
	}))
	require.NoError(t, err)
	assert.Equal(t, "안녕하세요. 지원 가능해요.", text)

	req := gen.LastRequest()
	assert.False(t, req.JSON)
	assert.Contains(t, req.Prompt, "82점")
	assert.Contains(t, req.Prompt, "Q: 이 공고 지원 가능한가요?")

	entries := logs.Logs()
	require.Len(t, entries, 1)
	assert.Empty(t, entries[0].ErrorMessage)
}

func TestStreamSection_ErrorAndEarlyStop(t *testing.T) {
	ctx := context.Background()

	t.Run("provider error ends the stream", func(t *testing.T) {
		gen := &mocks.MockGenerator{Chunks: []string{"사업 개요: "}, Err: errors.New("stream reset")}
		svc, _ := newService(gen)

		text, err := collect(svc.StreamSection(ctx, extraction.SectionInput{
			Section: "사업개요", Announcement: sampleAnnouncement(), Company: sampleCompany(),
		}))
		assert.EqualError(t, err, "stream reset")
		assert.Equal(t, "사업 개요: ", text)
	})

	t.Run("consumer break stops reading", func(t *testing.T) {
		gen := &mocks.MockGenerator{Chunks: []string{"a", "b", "c"}}
		svc, _ := newService(gen)

		var got []string
		for chunk, err := range svc.StreamImprovement(ctx, extraction.ImprovementInput{
			Section: "사업개요", CurrentContent: "초안", Announcement: sampleAnnouncement(), Company: sampleCompany(),
		}) {
			require.NoError(t, err)
			got = append(got, chunk)
			break
		}
		assert.Equal(t, []string{"a"}, got)
	})
}
