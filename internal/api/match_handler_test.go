package api_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/choishiam0906/govhelper/internal/api"
	"github.com/choishiam0906/govhelper/internal/domain"
	"github.com/choishiam0906/govhelper/internal/generation"
	"github.com/choishiam0906/govhelper/internal/service/extraction"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eligibleAnalysis(score float64) *domain.MatchAnalysis {
	a := &domain.MatchAnalysis{
		Eligibility:     domain.EligibilityCheck{IsEligible: true, FailedReasons: []string{}},
		OverallScore:    score,
		Strengths:       []string{"기술력"},
		Weaknesses:      []string{},
		Recommendations: []string{},
	}
	return a
}

type memoryCache struct {
	mu   sync.Mutex
	data map[string]*domain.Match
}

func (c *memoryCache) key(companyID, announcementID uuid.UUID) string {
	return fmt.Sprintf("%s:%s", companyID, announcementID)
}

func (c *memoryCache) GetMatch(ctx context.Context, companyID, announcementID uuid.UUID) (*domain.Match, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.data[c.key(companyID, announcementID)]
	return m, ok
}

func (c *memoryCache) SetMatch(ctx context.Context, m *domain.Match) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		c.data = make(map[string]*domain.Match)
	}
	c.data[c.key(m.CompanyID, m.AnnouncementID)] = m
}

func TestMatchHandler_Analyze(t *testing.T) {
	t.Run("calibrates and stores", func(t *testing.T) {
		f := newFixture(t)
		f.extractor.AnalyzeMatchFn = func(ctx context.Context, in extraction.MatchInput) (*domain.MatchAnalysis, error) {
			assert.Equal(t, f.company.ID, in.Company.ID)
			assert.Equal(t, f.announcement.ID, in.Announcement.ID)
			require.NotNil(t, in.UserID)
			assert.Equal(t, f.userID, *in.UserID)
			return eligibleAnalysis(80), nil
		}

		rec := f.do(t, http.MethodPost, "/api/matches", map[string]string{
			"announcementId": f.announcement.ID.String(),
			"companyId":      f.company.ID.String(),
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var resp api.MatchResponse
		decodeData(t, rec, &resp)
		// No plan and no document context: 80 * 0.85.
		assert.Equal(t, 68, resp.Match.Score)
		assert.Equal(t, 80.0, resp.Analysis.OverallScore)
		assert.False(t, resp.Cached)
		require.Len(t, f.matches.Matches, 1)
		assert.Equal(t, resp.Match.ID, f.matches.Matches[0].ID)
	})

	t.Run("business plan avoids penalty", func(t *testing.T) {
		f := newFixture(t)
		f.extractor.AnalyzeMatchFn = func(ctx context.Context, in extraction.MatchInput) (*domain.MatchAnalysis, error) {
			assert.Equal(t, "AI 기반 수출 플랫폼", in.BusinessPlan)
			return eligibleAnalysis(80), nil
		}

		rec := f.do(t, http.MethodPost, "/api/matches", map[string]string{
			"announcementId": f.announcement.ID.String(),
			"companyId":      f.company.ID.String(),
			"businessPlan":   "AI 기반 수출 플랫폼",
		})
		require.Equal(t, http.StatusCreated, rec.Code)

		var resp api.MatchResponse
		decodeData(t, rec, &resp)
		assert.Equal(t, 80, resp.Match.Score)
	})

	t.Run("served from cache", func(t *testing.T) {
		f := newFixture(t)
		cache := &memoryCache{}
		f.router = f.build(cache)
		f.extractor.AnalyzeMatchFn = func(ctx context.Context, in extraction.MatchInput) (*domain.MatchAnalysis, error) {
			return eligibleAnalysis(70), nil
		}
		body := map[string]string{
			"announcementId": f.announcement.ID.String(),
			"companyId":      f.company.ID.String(),
		}

		first := f.do(t, http.MethodPost, "/api/matches", body)
		require.Equal(t, http.StatusCreated, first.Code)
		second := f.do(t, http.MethodPost, "/api/matches", body)
		require.Equal(t, http.StatusOK, second.Code)

		var resp api.MatchResponse
		decodeData(t, second, &resp)
		assert.True(t, resp.Cached)
		assert.Equal(t, 1, f.extractor.Calls("AnalyzeMatch"))
		assert.Len(t, f.matches.Matches, 1)
	})

	t.Run("other user's company", func(t *testing.T) {
		f := newFixture(t)
		f.company.UserID = uuid.New()

		rec := f.do(t, http.MethodPost, "/api/matches", map[string]string{
			"announcementId": f.announcement.ID.String(),
			"companyId":      f.company.ID.String(),
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, api.MsgForbidden, decode(t, rec).Error)
		assert.Zero(t, f.extractor.Calls("AnalyzeMatch"))
	})

	t.Run("unknown announcement", func(t *testing.T) {
		f := newFixture(t)

		rec := f.do(t, http.MethodPost, "/api/matches", map[string]string{
			"announcementId": uuid.NewString(),
			"companyId":      f.company.ID.String(),
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, api.MsgAnnouncementNotFound, decode(t, rec).Error)
	})

	t.Run("invalid body", func(t *testing.T) {
		f := newFixture(t)

		rec := f.do(t, http.MethodPost, "/api/matches", map[string]string{"companyId": "not-a-uuid"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Zero(t, f.extractor.Calls("AnalyzeMatch"))
	})

	t.Run("rate limited provider", func(t *testing.T) {
		f := newFixture(t)
		f.extractor.AnalyzeMatchFn = func(ctx context.Context, in extraction.MatchInput) (*domain.MatchAnalysis, error) {
			return domain.DefaultMatchAnalysis(), fmt.Errorf("groq: %w", generation.ErrRateLimited)
		}

		rec := f.do(t, http.MethodPost, "/api/matches", map[string]string{
			"announcementId": f.announcement.ID.String(),
			"companyId":      f.company.ID.String(),
		})
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, api.MsgAIUnavailable, decode(t, rec).Error)
		assert.Empty(t, f.matches.Matches)
	})

	t.Run("store failure", func(t *testing.T) {
		f := newFixture(t)
		f.matches.CreateErr = errors.New("connection reset")
		f.extractor.AnalyzeMatchFn = func(ctx context.Context, in extraction.MatchInput) (*domain.MatchAnalysis, error) {
			return eligibleAnalysis(50), nil
		}

		rec := f.do(t, http.MethodPost, "/api/matches", map[string]string{
			"announcementId": f.announcement.ID.String(),
			"companyId":      f.company.ID.String(),
		})
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "매칭 결과를 저장하지 못했어요", decode(t, rec).Error)
	})
}

func TestMatchHandler_SubmitFeedback(t *testing.T) {
	newMatch := func(t *testing.T, f *fixture) *domain.Match {
		m, err := domain.NewMatch(f.company.ID, f.announcement.ID, 72, *eligibleAnalysis(85))
		require.NoError(t, err)
		require.NoError(t, f.matches.Create(context.Background(), m))
		return m
	}

	t.Run("records feedback", func(t *testing.T) {
		f := newFixture(t)
		m := newMatch(t, f)

		rec := f.do(t, http.MethodPost, "/api/matches/"+m.ID.String()+"/feedback", map[string]any{
			"feedbackType": "too_high",
			"rating":       2,
			"comment":      "지역 요건이 맞지 않아요",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		require.Len(t, f.feedback.Feedback, 1)
		fb := f.feedback.Feedback[0]
		assert.Equal(t, m.ID, fb.MatchID)
		assert.Equal(t, f.company.ID, fb.CompanyID)
		assert.Equal(t, domain.FeedbackTooHigh, fb.FeedbackType)
		assert.Equal(t, 2, fb.Rating)
	})

	t.Run("rating out of range", func(t *testing.T) {
		f := newFixture(t)
		m := newMatch(t, f)

		rec := f.do(t, http.MethodPost, "/api/matches/"+m.ID.String()+"/feedback", map[string]any{
			"feedbackType": "accurate",
			"rating":       6,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, api.MsgInvalidFeedback, decode(t, rec).Error)
		assert.Empty(t, f.feedback.Feedback)
	})

	t.Run("not the owner", func(t *testing.T) {
		f := newFixture(t)
		m := newMatch(t, f)
		f.company.UserID = uuid.New()

		rec := f.do(t, http.MethodPost, "/api/matches/"+m.ID.String()+"/feedback", map[string]any{
			"feedbackType": "accurate",
			"rating":       5,
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unknown match", func(t *testing.T) {
		f := newFixture(t)

		rec := f.do(t, http.MethodPost, "/api/matches/"+uuid.NewString()+"/feedback", map[string]any{
			"feedbackType": "accurate",
			"rating":       5,
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, api.MsgMatchNotFound, decode(t, rec).Error)
	})

	t.Run("bad id", func(t *testing.T) {
		f := newFixture(t)

		rec := f.do(t, http.MethodPost, "/api/matches/abc/feedback", map[string]any{
			"feedbackType": "accurate",
			"rating":       5,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
