package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"github.com/fal1winter/mentorsys/internal/domain"
)

var errNoEmbedding = errors.New("provider returned no embedding")

// errorClass is the error_type label of a failed call.
func errorClass(err error) string {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "breaker_open"
	case errors.Is(err, errNoEmbedding):
		return "empty_response"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "api_error"
	}
}

// providerError turns a client error into domain.ErrEmbeddingProviderError,
// keeping the status code and the most readable message the server sent.
func providerError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		msg := string(reqErr.Body)
		if detail := bodyDetail(reqErr.Body); detail != "" {
			msg = detail
		}
		return fmt.Errorf("embedding provider returned %d: %s: %w", reqErr.HTTPStatusCode, msg, domain.ErrEmbeddingProviderError)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("embedding provider returned %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, domain.ErrEmbeddingProviderError)
	}

	return fmt.Errorf("embedding call failed: %v: %w", err, domain.ErrEmbeddingProviderError)
}

// bodyDetail reads {"detail": "..."}, the error shape of FastAPI embedding servers.
func bodyDetail(body []byte) string {
	var v struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &v); err != nil {
		return ""
	}
	return v.Detail
}
