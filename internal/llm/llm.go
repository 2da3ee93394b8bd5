package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Prompt is the instruction pair sent to a completion service.
type Prompt struct {
	System string
	User   string
}

// Client abstracts completion providers. Complete performs exactly one
// round trip and returns the parsed JSON object or a *ServiceError.
type Client interface {
	Complete(ctx context.Context, prompt Prompt) (json.RawMessage, error)
}

var (
	ErrEmptyResponse  = errors.New("empty completion content")
	ErrInvalidJSON    = errors.New("completion content is not a JSON object")
	ErrRetryExhausted = errors.New("completion retries exhausted")
)

// ServiceError is the single failure type surfaced by completion clients.
type ServiceError struct {
	Provider   string
	Op         string
	StatusCode int
	Attempts   int
	Err        error
}

func (e *ServiceError) Error() string {
	var b strings.Builder
	b.WriteString("llm")
	if e.Provider != "" {
		b.WriteString(" " + e.Provider)
	}
	if e.Op != "" {
		b.WriteString(" " + e.Op)
	}
	if e.StatusCode > 0 {
		fmt.Fprintf(&b, " status=%d", e.StatusCode)
	}
	if e.Attempts > 1 {
		fmt.Fprintf(&b, " after %d attempts", e.Attempts)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *ServiceError) Unwrap() error { return e.Err }

// NewServiceError wraps err unless it already is a *ServiceError.
func NewServiceError(provider, op string, err error) error {
	if err == nil {
		return nil
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return err
	}
	return &ServiceError{Provider: provider, Op: op, Err: err}
}

// IsTimeout reports whether err was caused by a deadline or network timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "client.timeout")
}
