package generation

import (
	"context"
	"iter"
)

// Request is a single prompt sent to a generation provider, optionally as a
// system and user message pair.
type Request struct {
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int
	// JSON asks providers with a structured-output mode to return a bare
	// JSON object. Callers still run ExtractJSONObject over the answer.
	JSON bool
}

// Generator is the boundary between the application and a hosted text
// model. Adapters in internal/platform implement it.
type Generator interface {
	// Name identifies the provider in logs and metrics.
	Name() string

	// Generate returns the complete answer to req.
	Generate(ctx context.Context, req Request) (string, error)

	// Stream yields the answer in chunks as the provider produces them.
	// A non-nil error is always the last value yielded. The sequence is
	// single-use; breaking out of the loop abandons the response.
	Stream(ctx context.Context, req Request) iter.Seq2[string, error]
}

// Embedder turns text into a fixed-size vector.
type Embedder interface {
	// Name identifies the provider in logs and metrics.
	Name() string

	// Dimensions is the length of the vectors Embed returns.
	Dimensions() int

	// Embed returns the embedding of text.
	Embed(ctx context.Context, text string) ([]float32, error)
}
