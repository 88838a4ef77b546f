// Package driven defines the outbound port interfaces implemented by adapters.
package driven

import (
	"context"
	"errors"
)

// Chat message roles accepted by OpenAI-compatible APIs.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// ChatMessage is a single message in a chat completion request.
type ChatMessage struct {
	Role    string
	Content string
}

// ChatRequest is a chat completion request to the model.
type ChatRequest struct {
	Messages    []ChatMessage
	Temperature float64
}

// ChatUsage is the token accounting reported by the API for one completion.
type ChatUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// ChatResult is the model's reply to a ChatRequest.
type ChatResult struct {
	Content string
	Model   string // Model identifier the API actually served.
	Usage   ChatUsage
}

// Sentinel errors mapped from API responses by ChatModel implementations.
var (
	ErrInvalidAPIKey = errors.New("model api: invalid api key")
	ErrRateLimited   = errors.New("model api: rate limited")
)

// ChatModel defines the driven port for an OpenAI-compatible chat completion API.
type ChatModel interface {
	// Complete sends a chat completion request and returns the first choice.
	Complete(ctx context.Context, req ChatRequest) (*ChatResult, error)
	// ListModels returns the model identifiers the API exposes. Used as a
	// cheap connectivity and credential check.
	ListModels(ctx context.Context) ([]string, error)
}
