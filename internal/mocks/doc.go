// Package mocks provides shared test doubles for the store and generation
// interfaces.
//
// Store mocks are small in-memory implementations so tests can seed state
// and inspect it afterwards. Generator and embedder mocks follow the
// function-field pattern: set GenerateFn or EmbedFn for custom behavior,
// otherwise the default Response, Vector or Err is returned. Every mock
// records its calls for verification.
//
//	gen := mocks.NewMockGenerator(`{"overallScore": 70}`)
//	orch := generation.NewOrchestrator(generation.Options{Generator: gen}, nil)
//	...
//	assert.Equal(t, 1, gen.CallCount())
package mocks
