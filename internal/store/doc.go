// Package store defines the persistence interfaces of the AI layer:
// announcements and their extracted criteria, company profiles, matches
// and feedback, embeddings, prompt versions and their usage logs.
//
// Implementations live in internal/platform/postgres. Services depend only
// on these interfaces, and tests use the in-memory fakes in internal/mocks.
package store
