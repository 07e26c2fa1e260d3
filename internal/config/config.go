package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"`
	AI       AIConfig       `mapstructure:"ai" validate:"required"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Queue    QueueConfig    `mapstructure:"queue" validate:"required"`
	Batch    BatchConfig    `mapstructure:"batch" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	// ShutdownTimeoutSeconds bounds graceful shutdown of the HTTP server.
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds" validate:"gte=1"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL          string `mapstructure:"url" validate:"required,url"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=1"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" validate:"gte=0"`
}

// AuthConfig holds the secret used to verify the HS256 access tokens issued
// by the hosted auth service. It is only required by the HTTP server.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"omitempty,min=32"`
}

// AIConfig selects the generation provider and carries vendor credentials.
// Credentials are not validated here; each adapter rejects a missing key
// when it is constructed.
type AIConfig struct {
	Provider string `mapstructure:"provider" validate:"required,oneof=gemini groq"`
	// ABTest draws among active prompt versions by weight.
	ABTest bool         `mapstructure:"ab_test"`
	Gemini GeminiConfig `mapstructure:"gemini"`
	Groq   GroqConfig   `mapstructure:"groq"`
	Voyage VoyageConfig `mapstructure:"voyage"`
	Retry  RetryConfig  `mapstructure:"retry" validate:"required"`
}

// GeminiConfig configures the Gemini adapter used for generation and
// primary embeddings.
type GeminiConfig struct {
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model" validate:"required"`
	EmbeddingModel string `mapstructure:"embedding_model" validate:"required"`
}

// GroqConfig configures the OpenAI-compatible Groq chat completions adapter.
type GroqConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model" validate:"required"`
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
}

// VoyageConfig configures the fallback embedding provider.
type VoyageConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model" validate:"required"`
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
}

// RetryConfig controls the rate-limit retry loop around vendor calls.
type RetryConfig struct {
	MaxAttempts    int `mapstructure:"max_attempts" validate:"gte=1,lte=10"`
	InitialDelayMS int `mapstructure:"initial_delay_ms" validate:"gte=1"`
}

// RedisConfig is optional. An empty URL disables caching.
type RedisConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

// QueueConfig selects where extraction jobs are queued.
type QueueConfig struct {
	Backend     string `mapstructure:"backend" validate:"required,oneof=memory rabbitmq"`
	URL         string `mapstructure:"url" validate:"required_if=Backend rabbitmq"`
	Name        string `mapstructure:"name" validate:"required"`
	Size        int    `mapstructure:"size" validate:"gte=1"`
	WorkerCount int    `mapstructure:"worker_count" validate:"gte=1"`
}

// BatchConfig paces the sequential batch extraction runs.
type BatchConfig struct {
	Size               int `mapstructure:"size" validate:"gte=1"`
	BatchDelayMS       int `mapstructure:"batch_delay_ms" validate:"gte=0"`
	EligibilityDelayMS int `mapstructure:"eligibility_delay_ms" validate:"gte=0"`
	EvaluationDelayMS  int `mapstructure:"evaluation_delay_ms" validate:"gte=0"`
	EmbeddingDelayMS   int `mapstructure:"embedding_delay_ms" validate:"gte=0"`
	MinContentLength   int `mapstructure:"min_content_length" validate:"gte=0"`
}
