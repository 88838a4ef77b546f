// Package openai implements the ChatModel port against any OpenAI-compatible
// chat completions API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gregjones/httpcache"

	"github.com/ericfisherdev/quizforge/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ChatModel = (*Client)(nil)

// requestTimeout bounds a single completion round trip. Quiz generation
// prompts routinely take tens of seconds on slower models.
const requestTimeout = 120 * time.Second

// Client implements the driven.ChatModel port over the OpenAI HTTP API.
// Any endpoint speaking the same wire format (Azure OpenAI, Ollama,
// llama.cpp server) works by pointing baseURL at it.
type Client struct {
	httpClient *http.Client
	baseURL    string // e.g. "https://api.openai.com/v1", no trailing slash.
	apiKey     string
	model      string
}

// NewClient creates a model API client. GET endpoints (the /models probe) go
// through an in-memory httpcache transport so repeated connectivity checks
// honor conditional request caching.
func NewClient(baseURL, apiKey, model string) *Client {
	cacheTransport := httpcache.NewMemoryCacheTransport()

	return &Client{
		httpClient: &http.Client{
			Transport: cacheTransport,
			Timeout:   requestTimeout,
		},
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
	}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base
// URL. This constructor is intended for testing against an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL, apiKey, model string) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
	}
}

// Model returns the model identifier requests are sent with.
func (c *Client) Model() string {
	return c.model
}

// Wire format types for the chat completions endpoint.

type chatMessageJSON struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequestJSON struct {
	Model       string            `json:"model"`
	Messages    []chatMessageJSON `json:"messages"`
	Temperature float64           `json:"temperature"`
}

type chatResponseJSON struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message      chatMessageJSON `json:"message"`
		FinishReason string          `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type apiErrorJSON struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// Complete sends a chat completion request and returns the first choice
// together with the reported token usage.
func (c *Client) Complete(ctx context.Context, req driven.ChatRequest) (*driven.ChatResult, error) {
	messages := make([]chatMessageJSON, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, chatMessageJSON{Role: m.Role, Content: m.Content})
	}

	body, err := json.Marshal(chatRequestJSON{
		Model:       c.model,
		Messages:    messages,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.apiError(resp)
	}

	var decoded chatResponseJSON
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode chat response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return nil, fmt.Errorf("chat response for model %q contained no choices", c.model)
	}

	slog.Debug("chat completion",
		"model", decoded.Model,
		"finish_reason", decoded.Choices[0].FinishReason,
		"prompt_tokens", decoded.Usage.PromptTokens,
		"completion_tokens", decoded.Usage.CompletionTokens,
		"duration", time.Since(start).Round(time.Millisecond),
	)

	servedModel := decoded.Model
	if servedModel == "" {
		servedModel = c.model
	}

	return &driven.ChatResult{
		Content: decoded.Choices[0].Message.Content,
		Model:   servedModel,
		Usage: driven.ChatUsage{
			PromptTokens:     decoded.Usage.PromptTokens,
			CompletionTokens: decoded.Usage.CompletionTokens,
			TotalTokens:      decoded.Usage.TotalTokens,
		},
	}, nil
}

// ListModels returns the model identifiers the API exposes.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("build models request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.apiError(resp)
	}

	var decoded struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode models response: %w", err)
	}

	ids := make([]string, 0, len(decoded.Data))
	for _, m := range decoded.Data {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// apiError maps a non-200 response to a port-level error, preserving the
// API's error message where one is present.
func (c *Client) apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	message := strings.TrimSpace(string(body))
	var decoded apiErrorJSON
	if err := json.Unmarshal(body, &decoded); err == nil && decoded.Error.Message != "" {
		message = decoded.Error.Message
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", driven.ErrInvalidAPIKey, message)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", driven.ErrRateLimited, message)
	}
	return fmt.Errorf("model api returned status %d: %s", resp.StatusCode, message)
}
