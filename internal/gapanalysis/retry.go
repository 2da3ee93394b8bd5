package gapanalysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"resume-gap-analyzer/internal/llm"
	"resume-gap-analyzer/internal/shared/metrics"
	"resume-gap-analyzer/internal/shared/telemetry"
	"resume-gap-analyzer/internal/shared/util"
)

const (
	DefaultServiceTimeout = 60 * time.Second
	DefaultRetryDelay     = 300 * time.Millisecond
)

// RetryPolicy bounds calls to the completion service. MaxAttempts below one
// is treated as a single attempt.
type RetryPolicy struct {
	MaxAttempts int
	Timeout     time.Duration
	Delay       time.Duration
}

type retryingService struct {
	base      llm.Client
	policy    RetryPolicy
	provider  string
	requestID string
}

// complete returns the parsed object, the number of attempts made, and a
// *llm.ServiceError on failure.
func (r retryingService) complete(ctx context.Context, prompt llm.Prompt) (json.RawMessage, int, error) {
	attempts := r.policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := r.policy.Delay
	if delay <= 0 {
		delay = DefaultRetryDelay
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		raw, err := r.once(ctx, prompt)
		if err == nil {
			return raw, attempt, nil
		}
		lastErr = err
		if !shouldRetry(err) || ctx.Err() != nil {
			return nil, attempt, withAttempts(err, attempt)
		}
		if attempt == attempts {
			break
		}

		metrics.IncLLMRetries(r.provider)
		telemetry.Warn("llm.retry", map[string]any{
			"request_id": r.requestID,
			"provider":   r.provider,
			"attempt":    attempt,
			"error":      sanitizeError(err),
		})
		select {
		case <-time.After(delay * time.Duration(attempt)):
		case <-ctx.Done():
			return nil, attempt, &llm.ServiceError{Provider: r.provider, Op: "complete", Attempts: attempt, Err: ctx.Err()}
		}
	}
	if attempts == 1 {
		return nil, 1, withAttempts(lastErr, 1)
	}
	return nil, attempts, &llm.ServiceError{
		Provider: r.provider,
		Op:       "complete",
		Attempts: attempts,
		Err:      fmt.Errorf("%w: %w", llm.ErrRetryExhausted, lastErr),
	}
}

func (r retryingService) once(ctx context.Context, prompt llm.Prompt) (json.RawMessage, error) {
	attemptCtx := ctx
	if r.policy.Timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, r.policy.Timeout)
		defer cancel()
	}
	raw, err := r.base.Complete(attemptCtx, prompt)
	if err != nil {
		if llm.IsTimeout(err) || errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return nil, &llm.ServiceError{Provider: r.provider, Op: "timeout", Err: err}
		}
		return nil, llm.NewServiceError(r.provider, "complete", err)
	}
	parsed, err := llm.ParseObject(string(raw))
	if err != nil {
		return nil, &llm.ServiceError{Provider: r.provider, Op: "parse", Err: err}
	}
	return parsed, nil
}

func withAttempts(err error, attempts int) error {
	var svcErr *llm.ServiceError
	if errors.As(err, &svcErr) {
		if svcErr.Attempts == 0 {
			svcErr.Attempts = attempts
		}
		return svcErr
	}
	return &llm.ServiceError{Op: "complete", Attempts: attempts, Err: err}
}

func shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if llm.IsTimeout(err) {
		return true
	}
	if errors.Is(err, llm.ErrEmptyResponse) || errors.Is(err, llm.ErrInvalidJSON) {
		return true
	}
	var svcErr *llm.ServiceError
	if errors.As(err, &svcErr) && svcErr.StatusCode > 0 {
		return svcErr.StatusCode == 429 || svcErr.StatusCode >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "status code: 5") || strings.Contains(msg, "server_error") {
		return true
	}
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "tls handshake timeout") ||
		strings.HasSuffix(msg, "eof")
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return util.Truncate(strings.TrimSpace(err.Error()), 500)
}
