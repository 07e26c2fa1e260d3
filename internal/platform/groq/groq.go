// Package groq adapts the OpenAI-compatible Groq chat completions API to
// generation.Generator.
package groq

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/choishiam0906/govhelper/internal/config"
	"github.com/choishiam0906/govhelper/internal/generation"
)

const (
	// ProviderName identifies this adapter in logs, metrics and usage logs.
	ProviderName = "groq"

	defaultBaseURL = "https://api.groq.com/openai/v1"
	defaultTimeout = 120 * time.Second
	maxErrorBody   = 2048
)

// Client calls Groq over plain HTTP.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ generation.Generator = (*Client)(nil)

// NewClient creates a Groq adapter. A missing API key is reported as
// generation.ErrInvalidConfig.
func NewClient(cfg config.GroqConfig, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: groq API key cannot be empty", generation.ErrInvalidConfig)
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("%w: groq model cannot be empty", generation.ErrInvalidConfig)
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      cfg.Model,
		httpClient: httpClient,
		logger:     logger.With("provider", ProviderName),
	}, nil
}

// Name implements generation.Generator.
func (c *Client) Name() string { return ProviderName }

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []message       `json:"messages"`
	Temperature    float32         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Stream         bool            `json:"stream,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Generate implements generation.Generator.
func (c *Client) Generate(ctx context.Context, req generation.Request) (string, error) {
	resp, err := c.post(ctx, req, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("%w: decode groq response: %v", generation.ErrInvalidResponse, err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("%w: groq response has no choices", generation.ErrInvalidResponse)
	}
	content := decoded.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("%w: groq response is empty", generation.ErrInvalidResponse)
	}
	return content, nil
}

// Stream implements generation.Generator over the server-sent event
// variant of the same endpoint.
func (c *Client) Stream(ctx context.Context, req generation.Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		resp, err := c.post(ctx, req, true)
		if err != nil {
			yield("", err)
			return
		}
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			data, ok := strings.CutPrefix(line, "data:")
			if !ok {
				continue
			}
			data = strings.TrimSpace(data)
			if data == "[DONE]" {
				return
			}

			var chunk chatResponse
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				yield("", fmt.Errorf("%w: decode groq stream chunk: %v", generation.ErrInvalidResponse, err))
				return
			}
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				continue
			}
			if !yield(chunk.Choices[0].Delta.Content, nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil && !errors.Is(err, context.Canceled) {
			yield("", fmt.Errorf("%w: read groq stream: %v", generation.ErrGenerationFailed, err))
		}
	}
}

func (c *Client) post(ctx context.Context, req generation.Request, stream bool) (*http.Response, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, errors.New("prompt cannot be empty")
	}

	body := chatRequest{
		Model:       c.model,
		Messages:    buildMessages(req),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      stream,
	}
	if req.JSON && !stream {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode groq request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build groq request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: groq request: %w", generation.ErrGenerationFailed, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		return nil, statusError(resp)
	}

	c.logger.DebugContext(ctx, "groq responded",
		"model", c.model,
		"stream", stream,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())
	return resp, nil
}

func buildMessages(req generation.Request) []message {
	messages := make([]message, 0, 2)
	if req.System != "" {
		messages = append(messages, message{Role: "system", Content: req.System})
	}
	return append(messages, message{Role: "user", Content: req.Prompt})
}

// statusError maps an HTTP failure to a generation error. 429 becomes
// generation.ErrRateLimited so the orchestrator retries it.
func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	detail := strings.TrimSpace(string(body))
	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: groq status %d: %s", generation.ErrRateLimited, resp.StatusCode, detail)
	}
	return fmt.Errorf("%w: groq status %d: %s", generation.ErrGenerationFailed, resp.StatusCode, detail)
}
