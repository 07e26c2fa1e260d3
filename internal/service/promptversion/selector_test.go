package promptversion_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/choishiam0906/govhelper/internal/domain"
	"github.com/choishiam0906/govhelper/internal/mocks"
	"github.com/choishiam0906/govhelper/internal/service/promptversion"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func version(t domain.PromptType, label string, weight int, active bool, age time.Duration) *domain.PromptVersion {
	return &domain.PromptVersion{
		ID:        uuid.New(),
		Type:      t,
		Version:   label,
		Content:   "prompt " + label + " {{.AnnouncementContent}}",
		IsActive:  active,
		Weight:    weight,
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Add(-age),
	}
}

func fixedDraw(v float64) promptversion.DrawFunc {
	return func(int) float64 { return v }
}

func TestSelectWeighted(t *testing.T) {
	v1 := version(domain.PromptMatchingAnalysis, "v1", 70, true, 0)
	v2 := version(domain.PromptMatchingAnalysis, "v2", 20, true, 0)
	v3 := version(domain.PromptMatchingAnalysis, "v3", 10, true, 0)
	all := []*domain.PromptVersion{v1, v2, v3}

	tests := []struct {
		name string
		draw float64
		want *domain.PromptVersion
	}{
		{"draw 0 picks first", 0, v1},
		{"draw just below first bound", 69.999, v1},
		{"draw on first bound moves on", 70, v2},
		{"draw inside second band", 89.5, v2},
		{"draw on second bound", 90, v3},
		{"draw at top of range", 99.999, v3},
		{"out of range draw falls back to first", 150, v1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Same(t, tc.want, promptversion.SelectWeighted(all, fixedDraw(tc.draw)))
		})
	}
}

func TestSelectWeighted_EdgeCases(t *testing.T) {
	t.Run("empty list", func(t *testing.T) {
		assert.Nil(t, promptversion.SelectWeighted(nil, fixedDraw(0)))
	})

	t.Run("zero weight never chosen", func(t *testing.T) {
		zero := version(domain.PromptChatbot, "v1", 0, true, 0)
		full := version(domain.PromptChatbot, "v2", 100, true, 0)
		for _, d := range []float64{0, 0.5, 50, 99.9} {
			assert.Same(t, full, promptversion.SelectWeighted([]*domain.PromptVersion{zero, full}, fixedDraw(d)))
		}
	})

	t.Run("all zero returns first", func(t *testing.T) {
		a := version(domain.PromptChatbot, "v1", 0, true, 0)
		b := version(domain.PromptChatbot, "v2", 0, true, 0)
		called := false
		got := promptversion.SelectWeighted([]*domain.PromptVersion{a, b}, func(int) float64 {
			called = true
			return 0
		})
		assert.Same(t, a, got)
		assert.False(t, called)
	})

	t.Run("draw receives total weight", func(t *testing.T) {
		var total int
		promptversion.SelectWeighted([]*domain.PromptVersion{
			version(domain.PromptChatbot, "v1", 30, true, 0),
			version(domain.PromptChatbot, "v2", 45, true, 0),
		}, func(n int) float64 { total = n; return 0 })
		assert.Equal(t, 75, total)
	})

	t.Run("default random stays in range", func(t *testing.T) {
		vs := []*domain.PromptVersion{
			version(domain.PromptChatbot, "v1", 50, true, 0),
			version(domain.PromptChatbot, "v2", 50, true, 0),
		}
		for i := 0; i < 100; i++ {
			assert.NotNil(t, promptversion.SelectWeighted(vs, nil))
		}
	})
}

func TestGetActivePrompt(t *testing.T) {
	ctx := context.Background()

	t.Run("newest active version", func(t *testing.T) {
		older := version(domain.PromptMatchingAnalysis, "v1", 100, true, time.Hour)
		newer := version(domain.PromptMatchingAnalysis, "v2", 100, true, 0)
		inactive := version(domain.PromptMatchingAnalysis, "v3", 100, false, -time.Hour)
		s := promptversion.NewSelector(mocks.NewMockPromptVersionStore(older, newer, inactive), nil, nil)

		p, err := s.GetActivePrompt(ctx, domain.PromptMatchingAnalysis)
		require.NoError(t, err)
		assert.True(t, p.Stored())
		assert.Equal(t, newer.ID, *p.VersionID)
		assert.Equal(t, newer.Content, p.Source)
		assert.True(t, p.JSON)
		assert.InDelta(t, 0.3, p.Temperature, 0.0001)
	})

	t.Run("nothing stored uses built-in template", func(t *testing.T) {
		s := promptversion.NewSelector(mocks.NewMockPromptVersionStore(), nil, nil)

		p, err := s.GetActivePrompt(ctx, domain.PromptEligibilityParsing)
		require.NoError(t, err)
		assert.False(t, p.Stored())
		assert.Equal(t, "builtin", p.Version)
		assert.NotEmpty(t, p.Source)
	})

	t.Run("store failure uses built-in template", func(t *testing.T) {
		versions := mocks.NewMockPromptVersionStore()
		calls := 0
		versions.GetLatestActiveFn = func(context.Context, domain.PromptType) (*domain.PromptVersion, error) {
			calls++
			return nil, errors.New("connection refused")
		}
		s := promptversion.NewSelector(versions, nil, nil)

		p, err := s.GetActivePrompt(ctx, domain.PromptChatbot)
		require.NoError(t, err)
		assert.False(t, p.Stored())
		assert.Equal(t, 1, calls)
	})

	t.Run("no stored version and no built-in", func(t *testing.T) {
		s := promptversion.NewSelector(mocks.NewMockPromptVersionStore(), nil, nil)

		_, err := s.GetActivePrompt(ctx, domain.PromptApplicationScore)
		assert.ErrorIs(t, err, promptversion.ErrNoPrompt)
	})
}

func TestGetPromptWithABTest(t *testing.T) {
	ctx := context.Background()
	a := version(domain.PromptMatchingAnalysis, "a", 70, true, time.Hour)
	b := version(domain.PromptMatchingAnalysis, "b", 30, true, 0)

	t.Run("weighted draw over active versions", func(t *testing.T) {
		// ListActive is newest first: b (30) then a (70).
		s := promptversion.NewSelector(mocks.NewMockPromptVersionStore(a, b), nil, nil,
			promptversion.WithDraw(fixedDraw(45)))

		p, err := s.GetPromptWithABTest(ctx, domain.PromptMatchingAnalysis, true)
		require.NoError(t, err)
		assert.Equal(t, "a", p.Version)
	})

	t.Run("without A/B uses latest active", func(t *testing.T) {
		s := promptversion.NewSelector(mocks.NewMockPromptVersionStore(a, b), nil, nil,
			promptversion.WithDraw(fixedDraw(45)))

		p, err := s.GetPromptWithABTest(ctx, domain.PromptMatchingAnalysis, false)
		require.NoError(t, err)
		assert.Equal(t, "b", p.Version)
	})

	t.Run("no active versions falls back", func(t *testing.T) {
		s := promptversion.NewSelector(mocks.NewMockPromptVersionStore(), nil, nil)

		p, err := s.GetPromptWithABTest(ctx, domain.PromptMatchingAnalysis, true)
		require.NoError(t, err)
		assert.False(t, p.Stored())
	})

	t.Run("listing failure falls back", func(t *testing.T) {
		versions := mocks.NewMockPromptVersionStore(a, b)
		versions.Err = errors.New("timeout")
		s := promptversion.NewSelector(versions, nil, nil)

		p, err := s.GetPromptWithABTest(ctx, domain.PromptMatchingAnalysis, true)
		require.NoError(t, err)
		assert.False(t, p.Stored())
	})
}

type usageCounter struct {
	success, failure int
}

func (u *usageCounter) ObservePromptUsage(_ string, ok bool) {
	if ok {
		u.success++
	} else {
		u.failure++
	}
}

func TestLogUsage(t *testing.T) {
	ctx := context.Background()
	v := version(domain.PromptChatbot, "v1", 100, true, 0)

	t.Run("records stored versions", func(t *testing.T) {
		sink := &mocks.TestifyMockUsageSink{}
		sink.On("Record", mock.Anything, mock.MatchedBy(func(l *domain.PromptUsageLog) bool {
			return l.PromptVersionID == v.ID && *l.ResponseTimeMS == 1500 && l.ErrorMessage == ""
		})).Return(nil).Once()
		counter := &usageCounter{}

		s := promptversion.NewSelector(mocks.NewMockPromptVersionStore(v), sink, nil,
			promptversion.WithUsageObserver(counter))
		p, err := s.GetActivePrompt(ctx, domain.PromptChatbot)
		require.NoError(t, err)

		s.LogUsage(ctx, p, promptversion.Usage{ResponseTime: 1500 * time.Millisecond})
		sink.AssertExpectations(t)
		assert.Equal(t, 1, counter.success)
	})

	t.Run("sink failure is swallowed", func(t *testing.T) {
		sink := &mocks.TestifyMockUsageSink{}
		sink.On("Record", mock.Anything, mock.Anything).Return(errors.New("db down"))
		counter := &usageCounter{}

		s := promptversion.NewSelector(mocks.NewMockPromptVersionStore(v), sink, nil,
			promptversion.WithUsageObserver(counter))
		p, _ := s.GetActivePrompt(ctx, domain.PromptChatbot)

		assert.NotPanics(t, func() {
			s.LogUsage(ctx, p, promptversion.Usage{Err: errors.New("quota")})
		})
		assert.Equal(t, 1, counter.failure)
	})

	t.Run("built-in templates are not recorded", func(t *testing.T) {
		sink := &mocks.TestifyMockUsageSink{}
		s := promptversion.NewSelector(mocks.NewMockPromptVersionStore(), sink, nil)
		p, _ := s.GetActivePrompt(ctx, domain.PromptChatbot)

		s.LogUsage(ctx, p, promptversion.Usage{})
		sink.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	})
}

func TestExecuteWithLogging(t *testing.T) {
	ctx := context.Background()
	v := version(domain.PromptMatchingAnalysis, "v1", 100, true, 0)
	userID := uuid.New()

	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tick := func() time.Time {
		now := clock
		clock = clock.Add(250 * time.Millisecond)
		return now
	}

	logs := mocks.NewMockUsageLogStore()
	s := promptversion.NewSelector(mocks.NewMockPromptVersionStore(v), promptversion.NewStoreSink(logs), nil,
		promptversion.WithClock(tick))

	score := 82.0
	got, err := promptversion.ExecuteWithLogging(ctx, s, domain.PromptMatchingAnalysis, &userID,
		func(_ context.Context, p promptversion.Resolved) (string, *float64, error) {
			assert.Equal(t, v.ID, *p.VersionID)
			return "ok", &score, nil
		})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)

	failure := errors.New("generation failed")
	_, err = promptversion.ExecuteWithLogging(ctx, s, domain.PromptMatchingAnalysis, nil,
		func(context.Context, promptversion.Resolved) (int, *float64, error) {
			return 0, nil, failure
		})
	assert.ErrorIs(t, err, failure)

	entries := logs.Logs()
	require.Len(t, entries, 2)
	assert.Equal(t, userID, *entries[0].UserID)
	assert.InDelta(t, 82.0, *entries[0].ResultScore, 0.001)
	assert.Equal(t, int64(250), *entries[0].ResponseTimeMS)
	assert.Nil(t, entries[1].UserID)
	assert.Contains(t, entries[1].ErrorMessage, "generation failed")
}
