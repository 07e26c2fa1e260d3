package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestNewPromptVersion(t *testing.T) {
	t.Parallel()

	v, err := NewPromptVersion(PromptEligibilityParsing, "v2", "{{.Title}}", "shorter few-shot")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if v.IsActive {
		t.Error("Expected new versions to start inactive")
	}
	if v.Weight != DefaultPromptWeight {
		t.Errorf("Expected weight %d, got %d", DefaultPromptWeight, v.Weight)
	}

	if _, err := NewPromptVersion("unknown", "v1", "x", ""); !errors.Is(err, ErrInvalidPromptType) {
		t.Errorf("Expected ErrInvalidPromptType, got %v", err)
	}
	if _, err := NewPromptVersion(PromptChatbot, "v1", "", ""); !errors.Is(err, ErrEmptyContent) {
		t.Errorf("Expected ErrEmptyContent, got %v", err)
	}
}

func TestValidateWeight(t *testing.T) {
	t.Parallel()

	for _, w := range []int{0, 50, 100} {
		if err := ValidateWeight(w); err != nil {
			t.Errorf("Expected weight %d to be valid, got %v", w, err)
		}
	}
	for _, w := range []int{-1, 101} {
		if err := ValidateWeight(w); !errors.Is(err, ErrInvalidWeight) {
			t.Errorf("Expected weight %d to be rejected", w)
		}
	}
}

func TestAggregatePromptMetrics(t *testing.T) {
	t.Parallel()

	v1, v2 := uuid.New(), uuid.New()
	score := func(f float64) *float64 { return &f }
	ms := func(n int64) *int64 { return &n }

	logs := []PromptUsageLog{
		{PromptVersionID: v1, ResultScore: score(80), ResponseTimeMS: ms(1000)},
		{PromptVersionID: v2, ResponseTimeMS: ms(500), ErrorMessage: "timeout"},
		{PromptVersionID: v1, ResultScore: score(60), ResponseTimeMS: ms(3000)},
		{PromptVersionID: v1, ResponseTimeMS: ms(2000), ErrorMessage: "parse"},
		{PromptVersionID: v1, ResultScore: score(100)},
	}

	metrics := AggregatePromptMetrics(logs)

	if len(metrics) != 2 {
		t.Fatalf("Expected 2 versions, got %d", len(metrics))
	}
	m1 := metrics[0]
	if m1.VersionID != v1 || m1.TotalUsage != 4 {
		t.Fatalf("Unexpected first entry %+v", m1)
	}
	if m1.AverageScore != 60 {
		t.Errorf("Expected average score 60, got %v", m1.AverageScore)
	}
	if m1.AverageResponseTime != 1500 {
		t.Errorf("Expected average response time 1500, got %v", m1.AverageResponseTime)
	}
	if m1.ErrorRate != 25 || m1.SuccessRate != 75 {
		t.Errorf("Expected 25%%/75%%, got %v/%v", m1.ErrorRate, m1.SuccessRate)
	}

	m2 := metrics[1]
	if m2.ErrorRate != 100 || m2.SuccessRate != 0 {
		t.Errorf("Expected all errors for v2, got %+v", m2)
	}

	if got := AggregatePromptMetrics(nil); len(got) != 0 {
		t.Errorf("Expected no metrics for no logs, got %v", got)
	}
}
