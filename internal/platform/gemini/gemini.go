package gemini

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/choishiam0906/govhelper/internal/config"
	"github.com/choishiam0906/govhelper/internal/generation"
	"github.com/choishiam0906/govhelper/internal/redact"
	"google.golang.org/genai"
)

// ProviderName identifies this adapter in logs, metrics and usage logs.
const ProviderName = "gemini"

// EmbeddingDimensions is the vector size of the Gemini embedding model.
const EmbeddingDimensions = 768

// modelService is the subset of *genai.Models the adapter calls.
type modelService interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// Client implements generation.Generator and generation.Embedder.
type Client struct {
	models         modelService
	model          string
	embeddingModel string
	logger         *slog.Logger
}

var (
	_ generation.Generator = (*Client)(nil)
	_ generation.Embedder  = (*Client)(nil)
)

// NewClient creates a Gemini adapter. It fails with
// generation.ErrInvalidConfig when the API key is missing.
func NewClient(ctx context.Context, logger *slog.Logger, cfg config.GeminiConfig) (*Client, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if err := validateConfig(ctx, logger, cfg); err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create gemini client: %v", generation.ErrInvalidConfig, err)
	}

	logger.InfoContext(ctx, "gemini client initialized",
		"model", cfg.Model,
		"embedding_model", cfg.EmbeddingModel)

	return newClient(client.Models, cfg, logger), nil
}

func newClient(models modelService, cfg config.GeminiConfig, logger *slog.Logger) *Client {
	return &Client{
		models:         models,
		model:          cfg.Model,
		embeddingModel: cfg.EmbeddingModel,
		logger:         logger.With("provider", ProviderName),
	}
}

// Name implements generation.Generator.
func (c *Client) Name() string { return ProviderName }

// Dimensions implements generation.Embedder.
func (c *Client) Dimensions() int { return EmbeddingDimensions }

// Generate implements generation.Generator.
func (c *Client) Generate(ctx context.Context, req generation.Request) (string, error) {
	if req.Prompt == "" {
		return "", ErrEmptyPrompt
	}

	start := time.Now()
	resp, err := c.models.GenerateContent(ctx, c.model, contents(req), generateConfig(req))
	if err != nil {
		c.logger.WarnContext(ctx, "gemini generate failed", "error", redact.Error(err))
		return "", mapError("generate", err)
	}
	if err := checkResponse(resp); err != nil {
		return "", err
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("%w: empty text", generation.ErrInvalidResponse)
	}

	c.logger.DebugContext(ctx, "gemini generate succeeded",
		"model", c.model,
		"response_length", len(text),
		"duration_ms", time.Since(start).Milliseconds())
	return text, nil
}

// Stream implements generation.Generator.
func (c *Client) Stream(ctx context.Context, req generation.Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if req.Prompt == "" {
			yield("", ErrEmptyPrompt)
			return
		}
		for resp, err := range c.models.GenerateContentStream(ctx, c.model, contents(req), generateConfig(req)) {
			if err != nil {
				c.logger.WarnContext(ctx, "gemini stream failed", "error", redact.Error(err))
				yield("", mapError("stream", err))
				return
			}
			if resp == nil || len(resp.Candidates) == 0 {
				continue
			}
			if resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
				yield("", fmt.Errorf("%w: content blocked by safety filters", generation.ErrContentBlocked))
				return
			}
			chunk := resp.Text()
			if chunk == "" {
				continue
			}
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

// Embed implements generation.Embedder.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyPrompt
	}
	resp, err := c.models.EmbedContent(ctx, c.embeddingModel,
		genai.Text(text),
		&genai.EmbedContentConfig{TaskType: "RETRIEVAL_DOCUMENT"})
	if err != nil {
		return nil, mapError("embed", err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil || len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("%w: empty embedding", generation.ErrInvalidResponse)
	}
	return resp.Embeddings[0].Values, nil
}

func contents(req generation.Request) []*genai.Content {
	return []*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)}
}

func generateConfig(req generation.Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(req.Temperature),
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.JSON {
		cfg.ResponseMIMEType = "application/json"
	}
	return cfg
}
