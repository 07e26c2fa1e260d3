// Package service groups the application services of the AI layer. Each
// subpackage owns one concern and depends only on domain types, the store
// interfaces and the generation orchestrator:
//
//   - auth: JWT validation for API requests
//   - extraction: eligibility, evaluation and match analysis on top of the
//     prompt templates
//   - promptversion: stored prompt versions, weighted A/B selection and usage
//     logging
//   - calibration: score adjustment from profile completeness and feedback
//   - embedding: announcement embeddings with caching
//   - batch: paced bulk extraction and embedding runs
package service
