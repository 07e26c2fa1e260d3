package mocks

import (
	"context"
	"iter"
	"sync"

	"github.com/choishiam0906/govhelper/internal/generation"
)

// MockGenerator implements generation.Generator for testing
type MockGenerator struct {
	// Custom behavior functions
	GenerateFn func(ctx context.Context, req generation.Request) (string, error)
	StreamFn   func(ctx context.Context, req generation.Request) iter.Seq2[string, error]

	// Default response values. Stream yields Chunks, then Err if set.
	ProviderName string
	Response     string
	Chunks       []string
	Err          error

	// Call tracking for verification
	Calls struct {
		mu       sync.Mutex
		Count    int
		Requests []generation.Request
	}
}

// NewMockGenerator creates a generator answering every request with response.
func NewMockGenerator(response string) *MockGenerator {
	return &MockGenerator{Response: response}
}

// NewMockGeneratorWithError creates a generator failing every request with err.
func NewMockGeneratorWithError(err error) *MockGenerator {
	return &MockGenerator{Err: err}
}

func (m *MockGenerator) track(req generation.Request) {
	m.Calls.mu.Lock()
	defer m.Calls.mu.Unlock()
	m.Calls.Count++
	m.Calls.Requests = append(m.Calls.Requests, req)
}

// CallCount returns how many Generate and Stream calls were made.
func (m *MockGenerator) CallCount() int {
	m.Calls.mu.Lock()
	defer m.Calls.mu.Unlock()
	return m.Calls.Count
}

// LastRequest returns the most recent request, or the zero Request.
func (m *MockGenerator) LastRequest() generation.Request {
	m.Calls.mu.Lock()
	defer m.Calls.mu.Unlock()
	if len(m.Calls.Requests) == 0 {
		return generation.Request{}
	}
	return m.Calls.Requests[len(m.Calls.Requests)-1]
}

// Name implements generation.Generator
func (m *MockGenerator) Name() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}

// Generate implements generation.Generator
func (m *MockGenerator) Generate(ctx context.Context, req generation.Request) (string, error) {
	m.track(req)
	if m.GenerateFn != nil {
		return m.GenerateFn(ctx, req)
	}
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

// Stream implements generation.Generator
func (m *MockGenerator) Stream(ctx context.Context, req generation.Request) iter.Seq2[string, error] {
	m.track(req)
	if m.StreamFn != nil {
		return m.StreamFn(ctx, req)
	}
	return func(yield func(string, error) bool) {
		for _, c := range m.Chunks {
			if !yield(c, nil) {
				return
			}
		}
		if m.Err != nil {
			yield("", m.Err)
		}
	}
}

// MockEmbedder implements generation.Embedder for testing
type MockEmbedder struct {
	EmbedFn func(ctx context.Context, text string) ([]float32, error)

	ProviderName string
	Dims         int
	Vector       []float32
	Err          error

	Calls struct {
		mu    sync.Mutex
		Count int
		Texts []string
	}
}

// Name implements generation.Embedder
func (m *MockEmbedder) Name() string {
	if m.ProviderName == "" {
		return "mock-embedder"
	}
	return m.ProviderName
}

// Dimensions implements generation.Embedder
func (m *MockEmbedder) Dimensions() int {
	if m.Dims == 0 {
		return len(m.Vector)
	}
	return m.Dims
}

// Embed implements generation.Embedder
func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.Calls.mu.Lock()
	m.Calls.Count++
	m.Calls.Texts = append(m.Calls.Texts, text)
	m.Calls.mu.Unlock()

	if m.EmbedFn != nil {
		return m.EmbedFn(ctx, text)
	}
	return m.Vector, m.Err
}

// CallCount returns how many Embed calls were made.
func (m *MockEmbedder) CallCount() int {
	m.Calls.mu.Lock()
	defer m.Calls.mu.Unlock()
	return m.Calls.Count
}
