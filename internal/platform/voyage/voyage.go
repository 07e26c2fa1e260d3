// Package voyage adapts the Voyage AI embeddings API to generation.Embedder.
// It is the fallback embedder behind Gemini.
package voyage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/choishiam0906/govhelper/internal/config"
	"github.com/choishiam0906/govhelper/internal/generation"
)

const (
	// ProviderName identifies this adapter in logs and metrics.
	ProviderName = "voyage"

	// EmbeddingDimensions is the vector size of voyage-multilingual-2.
	EmbeddingDimensions = 1024

	defaultBaseURL = "https://api.voyageai.com/v1"
	defaultTimeout = 30 * time.Second
	inputType      = "document"
)

// Client calls the Voyage embeddings endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

var _ generation.Embedder = (*Client)(nil)

// NewClient creates a Voyage adapter.
func NewClient(cfg config.VoyageConfig, httpClient *http.Client) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: voyage API key cannot be empty", generation.ErrInvalidConfig)
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "voyage-multilingual-2"
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: httpClient,
	}, nil
}

// Name implements generation.Embedder.
func (c *Client) Name() string { return ProviderName }

// Dimensions implements generation.Embedder.
func (c *Client) Dimensions() int { return EmbeddingDimensions }

type embeddingRequest struct {
	Input     []string `json:"input"`
	Model     string   `json:"model"`
	InputType string   `json:"input_type"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// Embed implements generation.Embedder.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("text cannot be empty")
	}

	payload, err := json.Marshal(embeddingRequest{
		Input:     []string{text},
		Model:     c.model,
		InputType: inputType,
	})
	if err != nil {
		return nil, fmt.Errorf("encode voyage request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build voyage request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("voyage request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		detail := strings.TrimSpace(string(body))
		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: voyage status %d: %s", generation.ErrRateLimited, resp.StatusCode, detail)
		}
		return nil, fmt.Errorf("voyage status %d: %s", resp.StatusCode, detail)
	}

	var decoded embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: decode voyage response: %v", generation.ErrInvalidResponse, err)
	}
	if len(decoded.Data) == 0 || len(decoded.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: voyage returned no embedding", generation.ErrInvalidResponse)
	}
	return decoded.Data[0].Embedding, nil
}
