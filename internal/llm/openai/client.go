package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"resume-gap-analyzer/internal/llm"
	"resume-gap-analyzer/internal/shared/telemetry"
)

const (
	NebiusBaseURL = "https://api.studio.nebius.ai/v1/"
	OpenAIBaseURL = "https://api.openai.com/v1"

	defaultTemperature = 0.7
)

// Options configures an OpenAI-compatible chat completions client.
type Options struct {
	// Provider labels errors and log lines, e.g. "nebius" or "openai".
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float32
	// Timeout bounds the HTTP client. The caller's context still applies.
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client implements llm.Client against any OpenAI-compatible endpoint.
type Client struct {
	provider    string
	model       string
	temperature float32
	api         *goopenai.Client
}

// NewClient constructs a client. The base URL's trailing slash is dropped
// since the SDK joins paths itself.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("api key is required for %s", providerName(opts.Provider))
	}
	if strings.TrimSpace(opts.Model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for %s", providerName(opts.Provider))
	}
	baseURL := strings.TrimSpace(opts.BaseURL)
	if baseURL == "" {
		baseURL = OpenAIBaseURL
	}

	cfg := goopenai.DefaultConfig(opts.APIKey)
	cfg.BaseURL = strings.TrimRight(baseURL, "/")
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	cfg.HTTPClient = httpClient

	temp := opts.Temperature
	if temp == 0 {
		temp = defaultTemperature
	}
	return &Client{
		provider:    providerName(opts.Provider),
		model:       strings.TrimSpace(opts.Model),
		temperature: temp,
		api:         goopenai.NewClientWithConfig(cfg),
	}, nil
}

// Complete sends one chat completion request in JSON-object mode.
func (c *Client) Complete(ctx context.Context, prompt llm.Prompt) (json.RawMessage, error) {
	started := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: prompt.System},
			{Role: goopenai.ChatMessageRoleUser, Content: prompt.User},
		},
		Temperature: c.temperature,
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, c.wrapError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &llm.ServiceError{Provider: c.provider, Op: "complete", Err: llm.ErrEmptyResponse}
	}

	telemetry.Info("llm.response", map[string]any{
		"request_id":        telemetry.RequestID(ctx),
		"provider":          c.provider,
		"model":             c.model,
		"prompt_tokens":     resp.Usage.PromptTokens,
		"completion_tokens": resp.Usage.CompletionTokens,
		"total_tokens":      resp.Usage.TotalTokens,
		"duration_ms":       time.Since(started).Milliseconds(),
	})

	parsed, err := llm.ParseObject(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, &llm.ServiceError{Provider: c.provider, Op: "parse", Err: err}
	}
	return parsed, nil
}

func (c *Client) wrapError(err error) error {
	svcErr := &llm.ServiceError{Provider: c.provider, Op: "complete", Err: err}
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		svcErr.StatusCode = apiErr.HTTPStatusCode
		return svcErr
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		svcErr.StatusCode = reqErr.HTTPStatusCode
	}
	return svcErr
}

func providerName(p string) string {
	if p = strings.TrimSpace(p); p != "" {
		return p
	}
	return "openai"
}

var _ llm.Client = (*Client)(nil)
