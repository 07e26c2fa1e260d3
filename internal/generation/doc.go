// Package generation defines the provider-neutral surface for calling hosted
// language and embedding models, and the Orchestrator that sits in front of
// the vendor adapters.
//
// The orchestrator owns three recovery rules:
//
//   - generation uses exactly one provider, chosen when the orchestrator is
//     built; there is no fallback between generation providers
//   - calls that fail with a rate-limit error are retried with exponential
//     backoff (1s, 2s, 4s, ... up to the configured attempt cap) and the
//     original error is returned once attempts run out
//   - embeddings fall back to a secondary provider whose longer vectors are
//     truncated to the primary provider's dimensionality
//
// Model answers are free text; ExtractJSONObject pulls the outermost {...}
// span out of them for callers that expect structured data.
package generation
