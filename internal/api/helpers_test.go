package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"iter"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/choishiam0906/govhelper/internal/api"
	"github.com/choishiam0906/govhelper/internal/domain"
	"github.com/choishiam0906/govhelper/internal/mocks"
	"github.com/choishiam0906/govhelper/internal/platform/logger"
	"github.com/choishiam0906/govhelper/internal/service/batch"
	"github.com/choishiam0906/govhelper/internal/service/calibration"
	"github.com/choishiam0906/govhelper/internal/service/extraction"
	"github.com/choishiam0906/govhelper/internal/task"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// fakeExtractor implements api.Extractor with function fields and call
// tracking.
type fakeExtractor struct {
	ParseEligibilityFn      func(ctx context.Context, title, target, content string) (*domain.EligibilityCriteria, error)
	AnalyzeMatchFn          func(ctx context.Context, in extraction.MatchInput) (*domain.MatchAnalysis, error)
	ExtractEvaluationFn     func(ctx context.Context, title, content string) (*domain.EvaluationExtractionResult, error)
	AnalyzeWithEvaluationFn func(ctx context.Context, in extraction.EvaluationMatchInput) (*domain.EvaluationMatchAnalysis, error)

	// Chunks and StreamErr drive every stream method.
	Chunks    []string
	StreamErr error

	mu       sync.Mutex
	calls    map[string]int
	lastChat extraction.ChatInput
}

func (f *fakeExtractor) track(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[name]++
}

func (f *fakeExtractor) Calls(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeExtractor) ParseEligibility(ctx context.Context, title, target, content string) (*domain.EligibilityCriteria, error) {
	f.track("ParseEligibility")
	return f.ParseEligibilityFn(ctx, title, target, content)
}

func (f *fakeExtractor) AnalyzeMatch(ctx context.Context, in extraction.MatchInput) (*domain.MatchAnalysis, error) {
	f.track("AnalyzeMatch")
	return f.AnalyzeMatchFn(ctx, in)
}

func (f *fakeExtractor) ExtractEvaluation(ctx context.Context, title, content string) (*domain.EvaluationExtractionResult, error) {
	f.track("ExtractEvaluation")
	return f.ExtractEvaluationFn(ctx, title, content)
}

func (f *fakeExtractor) AnalyzeWithEvaluation(ctx context.Context, in extraction.EvaluationMatchInput) (*domain.EvaluationMatchAnalysis, error) {
	f.track("AnalyzeWithEvaluation")
	return f.AnalyzeWithEvaluationFn(ctx, in)
}

func (f *fakeExtractor) stream(name string) iter.Seq2[string, error] {
	f.track(name)
	return func(yield func(string, error) bool) {
		for _, c := range f.Chunks {
			if !yield(c, nil) {
				return
			}
		}
		if f.StreamErr != nil {
			yield("", f.StreamErr)
		}
	}
}

func (f *fakeExtractor) StreamSection(ctx context.Context, in extraction.SectionInput) iter.Seq2[string, error] {
	return f.stream("StreamSection")
}

func (f *fakeExtractor) StreamImprovement(ctx context.Context, in extraction.ImprovementInput) iter.Seq2[string, error] {
	return f.stream("StreamImprovement")
}

func (f *fakeExtractor) StreamChat(ctx context.Context, in extraction.ChatInput) iter.Seq2[string, error] {
	f.mu.Lock()
	f.lastChat = in
	f.mu.Unlock()
	return f.stream("StreamChat")
}

type fakeMetrics struct {
	metrics []domain.PromptMetrics
	err     error
}

func (f *fakeMetrics) GetMetrics(ctx context.Context, t domain.PromptType) ([]domain.PromptMetrics, error) {
	return f.metrics, f.err
}

type noopBatchRunner struct{}

func (noopBatchRunner) Run(ctx context.Context, kind batch.Kind, opts batch.Options) (*batch.Summary, error) {
	return &batch.Summary{}, nil
}

func testBatchOptions(kind batch.Kind) batch.Options {
	return batch.Options{Size: 10}
}

type fakeSubmitter struct {
	err       error
	submitted []task.Task
}

func (f *fakeSubmitter) Submit(ctx context.Context, t task.Task) error {
	if f.err != nil {
		return f.err
	}
	f.submitted = append(f.submitted, t)
	return nil
}

// fixture holds a router and the fakes behind it.
type fixture struct {
	userID        uuid.UUID
	company       *domain.Company
	announcement  *domain.Announcement
	extractor     *fakeExtractor
	announcements *mocks.MockAnnouncementStore
	companies     *mocks.MockCompanyStore
	matches       *mocks.MockMatchStore
	feedback      *mocks.MockFeedbackStore
	metrics       *fakeMetrics
	jobs          api.JobFactory
	submitter     *fakeSubmitter
	router        http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	userID := uuid.New()
	employees := 12
	revenue := int64(1_500_000_000)
	founded := time.Date(2019, 3, 1, 0, 0, 0, 0, time.UTC)
	company := &domain.Company{
		ID:            uuid.New(),
		UserID:        userID,
		Name:          "테스트기업",
		Industry:      "소프트웨어",
		EmployeeCount: &employees,
		FoundedDate:   &founded,
		Location:      "서울",
		AnnualRevenue: &revenue,
	}
	announcement := &domain.Announcement{
		ID:            uuid.New(),
		Title:         "2025 창업도약패키지",
		Organization:  "중소벤처기업부",
		TargetCompany: "업력 3~7년 창업기업",
		Content:       strings.Repeat("지원대상 및 평가기준 안내. ", 20),
		Status:        "active",
	}

	f := &fixture{
		userID:        userID,
		company:       company,
		announcement:  announcement,
		extractor:     &fakeExtractor{},
		announcements: mocks.NewMockAnnouncementStore(announcement),
		companies:     &mocks.MockCompanyStore{Companies: []*domain.Company{company}},
		matches:       &mocks.MockMatchStore{},
		feedback:      &mocks.MockFeedbackStore{},
		metrics:       &fakeMetrics{},
		submitter:     &fakeSubmitter{},
	}
	f.jobs = task.NewExtractionTaskFactory(&noopBatchRunner{}, testBatchOptions, nil)
	f.router = f.build(nil)
	return f
}

func (f *fixture) build(cache api.MatchCache) http.Handler {
	log, _ := logger.NewBufferLogger()
	calibrator := calibration.NewCalibrator(f.feedback, calibration.DefaultConfig(), log)
	return api.NewRouter(api.RouterDeps{
		JWT: mocks.NewMockJWTService(f.userID),
		Matches: api.NewMatchHandler(f.extractor, calibrator, f.announcements, f.companies,
			f.matches, f.feedback, cache, log),
		Announcements: api.NewAnnouncementHandler(f.extractor, f.announcements, f.companies, log),
		Streams:       api.NewStreamHandler(f.extractor, f.announcements, f.companies, f.matches, log),
		Admin:         api.NewAdminHandler(f.metrics, f.jobs, f.submitter, log),
		Logger:        log,
	})
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer test-token")
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	env := decode(t, rec)
	require.True(t, env.Success, rec.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, v))
}
