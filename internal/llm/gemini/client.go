package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"resume-gap-analyzer/internal/llm"
	"resume-gap-analyzer/internal/shared/telemetry"
)

const (
	DefaultModel = "gemini-2.0-flash"
	providerName = "gemini"
)

// Options configures a Gemini API client.
type Options struct {
	APIKey      string
	Model       string
	Temperature float32
	Timeout     time.Duration
	// BaseURL overrides the API endpoint; tests point it at a local server.
	BaseURL string
}

// Client implements llm.Client using the Gemini GenerateContent API.
type Client struct {
	model       string
	temperature float32
	models      *genai.Models
}

// NewClient builds a Gemini API client. Model defaults to DefaultModel; an
// empty APIKey is an error.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}
	cfg := &genai.ClientConfig{
		APIKey:     opts.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: opts.Timeout},
	}
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: base}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	temp := opts.Temperature
	if temp == 0 {
		temp = 0.7
	}
	return &Client{model: model, temperature: temp, models: client.Models}, nil
}

// Complete performs one GenerateContent call with a JSON response MIME type.
func (c *Client) Complete(ctx context.Context, prompt llm.Prompt) (json.RawMessage, error) {
	started := time.Now()
	cfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(c.temperature),
		ResponseMIMEType: "application/json",
	}
	if strings.TrimSpace(prompt.System) != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: prompt.System}}}
	}
	resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(prompt.User), cfg)
	if err != nil {
		return nil, wrapError(err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, &llm.ServiceError{Provider: providerName, Op: "complete", Err: llm.ErrEmptyResponse}
	}

	fields := map[string]any{
		"request_id":  telemetry.RequestID(ctx),
		"provider":    providerName,
		"model":       c.model,
		"duration_ms": time.Since(started).Milliseconds(),
	}
	if usage := resp.UsageMetadata; usage != nil {
		fields["prompt_tokens"] = usage.PromptTokenCount
		fields["completion_tokens"] = usage.CandidatesTokenCount
		fields["total_tokens"] = usage.TotalTokenCount
	}
	telemetry.Info("llm.response", fields)

	parsed, err := llm.ParseObject(resp.Text())
	if err != nil {
		return nil, &llm.ServiceError{Provider: providerName, Op: "parse", Err: err}
	}
	return parsed, nil
}

func wrapError(err error) error {
	svcErr := &llm.ServiceError{Provider: providerName, Op: "complete", Err: err}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		svcErr.StatusCode = apiErr.Code
		return svcErr
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		svcErr.StatusCode = apiErrPtr.Code
	}
	return svcErr
}

var _ llm.Client = (*Client)(nil)
