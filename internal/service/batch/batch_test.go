package batch_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/choishiam0906/govhelper/internal/config"
	"github.com/choishiam0906/govhelper/internal/domain"
	"github.com/choishiam0906/govhelper/internal/generation"
	"github.com/choishiam0906/govhelper/internal/mocks"
	"github.com/choishiam0906/govhelper/internal/service/batch"
	"github.com/choishiam0906/govhelper/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var longContent = strings.Repeat("지원대상은 중소기업입니다. ", 20)

type fakeExtractor struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error
	none  map[string]bool
}

func (f *fakeExtractor) record(title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, title)
	return f.fail[title]
}

func (f *fakeExtractor) ParseEligibility(_ context.Context, title, _, _ string) (*domain.EligibilityCriteria, error) {
	if err := f.record(title); err != nil {
		return domain.DefaultEligibilityCriteria(time.Now()), err
	}
	return &domain.EligibilityCriteria{Summary: title, Confidence: 0.9}, nil
}

func (f *fakeExtractor) ExtractEvaluation(_ context.Context, title, _ string) (*domain.EvaluationExtractionResult, error) {
	if err := f.record(title); err != nil {
		return &domain.EvaluationExtractionResult{Error: "failed"}, err
	}
	if f.none[title] {
		return &domain.EvaluationExtractionResult{Error: "평가기준을 찾을 수 없어요"}, nil
	}
	return &domain.EvaluationExtractionResult{
		Success: true,
		Criteria: &domain.EvaluationCriteria{
			TotalScore: 100,
			Items:      []domain.EvaluationItem{{Category: "기술성", Name: title, MaxScore: 100}},
			Confidence: 0.8,
		},
	}, nil
}

type fakeEmbedder struct {
	unchanged map[uuid.UUID]bool
	err       error
	forced    int
}

func (f *fakeEmbedder) EmbedAnnouncement(_ context.Context, a *domain.Announcement, force bool) (bool, error) {
	if force {
		f.forced++
	}
	if f.err != nil {
		return false, f.err
	}
	return force || !f.unchanged[a.ID], nil
}

type countingObserver struct {
	mu     sync.Mutex
	counts map[string]int
}

func (o *countingObserver) ObserveBatchItem(kind, outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.counts[kind+"/"+outcome]++
}

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return ctx.Err()
}

func (s *sleepRecorder) count(d time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, got := range s.delays {
		if got == d {
			n++
		}
	}
	return n
}

func announcements(n int) []*domain.Announcement {
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	out := make([]*domain.Announcement, n)
	for i := range out {
		out[i] = &domain.Announcement{
			ID:        uuid.New(),
			Title:     fmt.Sprintf("공고 %d", i),
			Content:   longContent,
			Status:    "active",
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
	}
	return out
}

func testOptions() batch.Options {
	return batch.OptionsFromConfig(config.BatchConfig{
		Size:               5,
		BatchDelayMS:       2000,
		EligibilityDelayMS: 200,
		EvaluationDelayMS:  500,
		EmbeddingDelayMS:   1000,
		MinContentLength:   200,
	}, batch.KindEligibility)
}

func TestRun_Eligibility(t *testing.T) {
	items := announcements(7)
	items[1].Content = "짧은 공고"
	items[2].Title = "실패 공고"

	st := mocks.NewMockAnnouncementStore(items...)
	ext := &fakeExtractor{fail: map[string]error{"실패 공고": generation.ErrRateLimited}}
	rec := &sleepRecorder{}
	obs := &countingObserver{counts: map[string]int{}}
	var progress []batch.ItemResult

	r := batch.NewRunner(st, ext, nil,
		batch.WithSleep(rec.sleep),
		batch.WithObserver(obs),
		batch.WithProgress(func(res batch.ItemResult) { progress = append(progress, res) }))

	sum, err := r.Run(context.Background(), batch.KindEligibility, testOptions())
	require.NoError(t, err)

	assert.Equal(t, 7, sum.Processed)
	assert.Equal(t, 5, sum.Succeeded)
	assert.Equal(t, 1, sum.Skipped)
	assert.Equal(t, 1, sum.Failed)
	assert.Len(t, progress, 7)
	assert.Len(t, ext.calls, 6, "short content never reaches the provider")

	assert.Equal(t, 6, rec.count(200*time.Millisecond))
	assert.Equal(t, 1, rec.count(2000*time.Millisecond))

	short := st.Get(items[1].ID)
	assert.True(t, short.EligibilityParsed)
	assert.Equal(t, domain.ParseStatusSkipped, short.EligibilityStatus)
	assert.Nil(t, short.EligibilityCriteria)

	failed := st.Get(items[2].ID)
	assert.True(t, failed.EligibilityParsed)
	assert.Equal(t, domain.ParseStatusFailed, failed.EligibilityStatus)
	assert.Nil(t, failed.EligibilityCriteria)

	ok := st.Get(items[0].ID)
	assert.Equal(t, domain.ParseStatusSucceeded, ok.EligibilityStatus)
	require.NotNil(t, ok.EligibilityCriteria)
	assert.Equal(t, "공고 0", ok.EligibilityCriteria.Summary)

	assert.Equal(t, 5, obs.counts["eligibility/succeeded"])
	assert.Equal(t, 1, obs.counts["eligibility/failed"])
	assert.Equal(t, 1, obs.counts["eligibility/skipped"])
}

func TestRun_Evaluation(t *testing.T) {
	items := announcements(3)
	items[1].Title = "평가기준 없음"
	items[2].Title = "오류"
	items[2].ParsedContent = longContent + " 첨부"

	st := mocks.NewMockAnnouncementStore(items...)
	ext := &fakeExtractor{
		fail: map[string]error{"오류": generation.ErrGenerationFailed},
		none: map[string]bool{"평가기준 없음": true},
	}
	rec := &sleepRecorder{}
	opts := batch.OptionsFromConfig(config.BatchConfig{Size: 5, BatchDelayMS: 2000, EvaluationDelayMS: 500, MinContentLength: 200}, batch.KindEvaluation)

	sum, err := batch.NewRunner(st, ext, nil, batch.WithSleep(rec.sleep)).Run(context.Background(), batch.KindEvaluation, opts)
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Succeeded)
	assert.Equal(t, 1, sum.NotFound)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 3, rec.count(500*time.Millisecond))
	assert.Zero(t, rec.count(2000*time.Millisecond), "a short batch ends the run")

	found := st.Get(items[0].ID)
	require.NotNil(t, found.EvaluationCriteria)
	assert.Equal(t, domain.ParseStatusSucceeded, found.EvaluationStatus)

	missing := st.Get(items[1].ID)
	assert.True(t, missing.EvaluationParsed)
	assert.Nil(t, missing.EvaluationCriteria)
	assert.Equal(t, domain.ParseStatusSucceeded, missing.EvaluationStatus)

	assert.Equal(t, domain.ParseStatusFailed, st.Get(items[2].ID).EvaluationStatus)
}

func TestRun_Limit(t *testing.T) {
	st := mocks.NewMockAnnouncementStore(announcements(7)...)
	ext := &fakeExtractor{}
	rec := &sleepRecorder{}

	opts := testOptions()
	opts.Limit = 3
	sum, err := batch.NewRunner(st, ext, nil, batch.WithSleep(rec.sleep)).Run(context.Background(), batch.KindEligibility, opts)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Processed)
	assert.Len(t, ext.calls, 3)
}

func TestRun_StopsWhenSavesFail(t *testing.T) {
	st := mocks.NewMockAnnouncementStore(announcements(7)...)
	st.SaveEligibilityFn = func(context.Context, uuid.UUID, *domain.EligibilityCriteria, domain.ParseStatus) error {
		return store.ErrUpdateFailed
	}
	ext := &fakeExtractor{}
	rec := &sleepRecorder{}

	sum, err := batch.NewRunner(st, ext, nil, batch.WithSleep(rec.sleep)).Run(context.Background(), batch.KindEligibility, testOptions())
	require.NoError(t, err)
	assert.Equal(t, 5, sum.Processed)
	assert.Equal(t, 5, sum.Failed)
	assert.Len(t, ext.calls, 5, "the same announcements are not extracted twice")
}

func TestRun_Cancelled(t *testing.T) {
	st := mocks.NewMockAnnouncementStore(announcements(4)...)
	ext := &fakeExtractor{}

	ctx, cancel := context.WithCancel(context.Background())
	sleep := func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	sum, err := batch.NewRunner(st, ext, nil, batch.WithSleep(sleep)).Run(ctx, batch.KindEligibility, testOptions())
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, sum)
	assert.Equal(t, 1, sum.Processed)
}

func TestRun_Embedding(t *testing.T) {
	items := announcements(3)
	st := mocks.NewMockAnnouncementStore(items...)
	emb := &fakeEmbedder{unchanged: map[uuid.UUID]bool{items[0].ID: true}}
	rec := &sleepRecorder{}

	opts := batch.OptionsFromConfig(config.BatchConfig{Size: 2, BatchDelayMS: 2000, EmbeddingDelayMS: 1000}, batch.KindEmbedding)
	r := batch.NewRunner(st, &fakeExtractor{}, nil, batch.WithEmbedder(emb), batch.WithSleep(rec.sleep))

	sum, err := r.Run(context.Background(), batch.KindEmbedding, opts)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Processed)
	assert.Equal(t, 2, sum.Succeeded)
	assert.Equal(t, 1, sum.Unchanged)
	assert.Equal(t, 2, rec.count(time.Second), "unchanged items are not paced")
	assert.Equal(t, 1, rec.count(2*time.Second))

	t.Run("force", func(t *testing.T) {
		opts.Force = true
		sum, err := r.Run(context.Background(), batch.KindEmbedding, opts)
		require.NoError(t, err)
		assert.Equal(t, 3, sum.Succeeded)
		assert.Equal(t, 3, emb.forced)
	})

	t.Run("needs an embedder", func(t *testing.T) {
		_, err := batch.NewRunner(st, &fakeExtractor{}, nil).Run(context.Background(), batch.KindEmbedding, opts)
		assert.ErrorIs(t, err, batch.ErrNoEmbedder)
	})

	t.Run("provider errors are counted", func(t *testing.T) {
		r := batch.NewRunner(st, &fakeExtractor{}, nil,
			batch.WithEmbedder(&fakeEmbedder{err: errors.New("quota")}), batch.WithSleep(rec.sleep))
		sum, err := r.Run(context.Background(), batch.KindEmbedding, opts)
		require.NoError(t, err)
		assert.Equal(t, 3, sum.Failed)
	})
}

func TestParseKind(t *testing.T) {
	k, err := batch.ParseKind("evaluation")
	require.NoError(t, err)
	assert.Equal(t, batch.KindEvaluation, k)

	_, err = batch.ParseKind("summaries")
	assert.ErrorIs(t, err, batch.ErrUnknownKind)
}
