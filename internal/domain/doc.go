// Package domain contains the records the AI layer reads and writes:
// announcements and their extracted eligibility and evaluation criteria,
// company profiles, match analyses, prompt versions and their usage logs.
//
// The types carry JSON tags matching the camelCase documents the models are
// asked to produce, so a model response unmarshals straight into them. The
// Default* constructors build the fixed fallback values returned when a
// model response cannot be parsed.
package domain
