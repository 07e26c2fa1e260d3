package gemini

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/choishiam0906/govhelper/internal/generation"
	"google.golang.org/genai"
)

// ErrEmptyPrompt is returned when a request carries no user prompt.
var ErrEmptyPrompt = errors.New("prompt cannot be empty")

// mapError wraps a genai failure with the generation error it corresponds to.
// The vendor error stays in the chain for logging.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests || strings.EqualFold(apiErr.Status, "RESOURCE_EXHAUSTED") {
			return fmt.Errorf("%w: gemini %s: %w", generation.ErrRateLimited, op, err)
		}
	}
	return fmt.Errorf("%w: gemini %s: %w", generation.ErrGenerationFailed, op, err)
}

// checkResponse rejects responses that carry no usable text.
func checkResponse(resp *genai.GenerateContentResponse) error {
	if resp == nil {
		return fmt.Errorf("%w: nil response", generation.ErrInvalidResponse)
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" && fb.BlockReason != genai.BlockedReasonUnspecified {
		return fmt.Errorf("%w: prompt blocked (%s)", generation.ErrContentBlocked, fb.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return fmt.Errorf("%w: no candidates", generation.ErrInvalidResponse)
	}
	if resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return fmt.Errorf("%w: content blocked by safety filters", generation.ErrContentBlocked)
	}
	return nil
}
