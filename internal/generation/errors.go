package generation

import "errors"

// Common errors returned by the generation package and its adapters
var (
	// ErrGenerationFailed is returned when a provider call fails for any general reason
	ErrGenerationFailed = errors.New("failed to generate text")

	// ErrInvalidResponse is returned when the model response cannot be parsed or is malformed
	ErrInvalidResponse = errors.New("invalid response from language model")

	// ErrNoJSON is returned when a response contains no JSON object at all
	ErrNoJSON = errors.New("no JSON object in model response")

	// ErrContentBlocked is returned when the provider blocks the content due to safety filters
	ErrContentBlocked = errors.New("content blocked by language model safety filters")

	// ErrRateLimited marks vendor errors that report rate limiting or exhausted quota
	ErrRateLimited = errors.New("rate limited by provider")

	// ErrEmbeddingFailed is returned when neither embedding provider produced a vector
	ErrEmbeddingFailed = errors.New("failed to generate embedding")

	// ErrInvalidConfig is returned when a provider is missing credentials or settings
	ErrInvalidConfig = errors.New("invalid generator configuration")
)
