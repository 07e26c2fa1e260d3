// Package gemini adapts Google's Gemini API to the generation.Generator and
// generation.Embedder interfaces.
//
// This package is an infrastructure adapter: it translates generation
// requests into genai client calls and maps vendor failures onto the
// generation package's error values, so that retry and fallback decisions
// are made in one place by the orchestrator.
//
// Key components:
//
// 1. Client:
//   - Generate and Stream send a system instruction plus one user turn
//   - JSON requests ask the model for an application/json response
//   - Embed returns 768-dimensional vectors from the embedding model
//
// 2. Error mapping:
//   - HTTP 429 and RESOURCE_EXHAUSTED become generation.ErrRateLimited
//   - Safety blocks become generation.ErrContentBlocked
//   - Empty answers become generation.ErrInvalidResponse
package gemini
