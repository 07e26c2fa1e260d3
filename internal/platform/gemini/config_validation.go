package gemini

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/choishiam0906/govhelper/internal/config"
	"github.com/choishiam0906/govhelper/internal/generation"
)

// validateConfig checks the settings the adapter cannot run without.
func validateConfig(ctx context.Context, logger *slog.Logger, cfg config.GeminiConfig) error {
	if cfg.APIKey == "" {
		logger.ErrorContext(ctx, "missing gemini API key")
		return fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.Model == "" {
		return fmt.Errorf("%w: gemini model cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.EmbeddingModel == "" {
		return fmt.Errorf("%w: gemini embedding model cannot be empty", generation.ErrInvalidConfig)
	}
	return nil
}
