// Package promptversion chooses which prompt text an AI call is made with.
//
// Prompt versions live in the prompt_versions table. The Selector returns
// the newest active version of a type, or draws one by weight when an A/B
// test is running, and falls back to the compiled-in template from
// internal/prompts when the store has nothing usable. Every call made with a
// stored version can be recorded through a UsageSink; recording is best
// effort and never fails the call it describes.
//
// The Manager covers the write side: creating versions, switching them on
// and off, adjusting weights, reporting per-version metrics and seeding
// versions from a YAML file.
package promptversion
