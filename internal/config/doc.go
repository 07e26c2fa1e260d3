// Package config handles configuration loading, parsing, and validation
// from environment variables (GOVHELPER_ prefix) and an optional YAML file.
// It provides typed access to server, database, AI provider, cache, queue
// and batch settings while keeping configuration details out of the
// components that consume them.
package config
