package generation

import (
	"context"
	"iter"
	"sync"
	"time"
)

// scriptedGenerator returns the scripted results in order, one per call.
type scriptedGenerator struct {
	mu      sync.Mutex
	results []result
	calls   int
	streams [][]result
}

type result struct {
	text string
	err  error
}

func (g *scriptedGenerator) Name() string { return "fake" }

func (g *scriptedGenerator) Generate(_ context.Context, _ Request) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r := g.results[min(g.calls, len(g.results)-1)]
	g.calls++
	return r.text, r.err
}

func (g *scriptedGenerator) Stream(_ context.Context, _ Request) iter.Seq2[string, error] {
	g.mu.Lock()
	script := g.streams[min(g.calls, len(g.streams)-1)]
	g.calls++
	g.mu.Unlock()

	return func(yield func(string, error) bool) {
		for _, r := range script {
			if r.err != nil {
				yield("", r.err)
				return
			}
			if !yield(r.text, nil) {
				return
			}
		}
	}
}

func (g *scriptedGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type fakeEmbedder struct {
	name  string
	dims  int
	vec   []float32
	err   error
	calls int
}

func (e *fakeEmbedder) Name() string    { return e.name }
func (e *fakeEmbedder) Dimensions() int { return e.dims }

func (e *fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	e.calls++
	return e.vec, e.err
}

type recordedCall struct {
	provider, operation string
	err                 error
}

type recordingObserver struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (r *recordingObserver) ObserveCall(provider, operation string, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, recordedCall{provider, operation, err})
}

func fastPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond}
}

func vector(n int) []float32 {
	v := make([]float32, n)
	for i := range v {
		v[i] = float32(i)
	}
	return v
}
