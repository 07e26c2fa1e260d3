package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g.
// GOVHELPER_DATABASE_URL or GOVHELPER_AI_GEMINI_API_KEY.
const EnvPrefix = "GOVHELPER"

// defaults lists every key viper should know about. AutomaticEnv only
// resolves keys that viper has seen, so secrets get an empty default too.
var defaults = map[string]any{
	"server.port":                     8080,
	"server.log_level":                "info",
	"server.shutdown_timeout_seconds": 15,

	"database.url":            "",
	"database.max_open_conns": 25,
	"database.max_idle_conns": 25,

	"auth.jwt_secret": "",

	"ai.provider":               "gemini",
	"ai.ab_test":                true,
	"ai.gemini.api_key":         "",
	"ai.gemini.model":           "gemini-1.5-pro",
	"ai.gemini.embedding_model": "text-embedding-004",
	"ai.groq.api_key":           "",
	"ai.groq.model":             "llama-3.3-70b-versatile",
	"ai.groq.base_url":          "https://api.groq.com/openai/v1",
	"ai.voyage.api_key":         "",
	"ai.voyage.model":           "voyage-multilingual-2",
	"ai.voyage.base_url":        "https://api.voyageai.com/v1",
	"ai.retry.max_attempts":     3,
	"ai.retry.initial_delay_ms": 1000,

	"redis.url": "",

	"queue.backend":      "memory",
	"queue.url":          "",
	"queue.name":         "govhelper.extraction",
	"queue.size":         100,
	"queue.worker_count": 2,

	"batch.size":                 5,
	"batch.batch_delay_ms":       2000,
	"batch.eligibility_delay_ms": 200,
	"batch.evaluation_delay_ms":  500,
	"batch.embedding_delay_ms":   1000,
	"batch.min_content_length":   200,
}

// Load configuration from environment variables and optionally a config.yaml
// in the working directory. Environment variables take precedence over values
// from the config file.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom behaves like Load but reads the given config file when path is
// not empty. A missing default config file is not an error.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate runs struct validation over a loaded configuration.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
