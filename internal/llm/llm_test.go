package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServiceErrorMessage(t *testing.T) {
	err := &ServiceError{Provider: "nebius", Op: "complete", StatusCode: 503, Attempts: 3, Err: errors.New("unavailable")}
	assert.Equal(t, "llm nebius complete status=503 after 3 attempts: unavailable", err.Error())

	single := &ServiceError{Op: "parse", Attempts: 1, Err: ErrInvalidJSON}
	assert.Equal(t, "llm parse: completion content is not a JSON object", single.Error())
	assert.ErrorIs(t, single, ErrInvalidJSON)
}

func TestNewServiceErrorKeepsExisting(t *testing.T) {
	orig := &ServiceError{Provider: "openai", StatusCode: 429}
	wrapped := fmt.Errorf("call: %w", orig)
	assert.Same(t, wrapped, NewServiceError("gemini", "complete", wrapped))
	assert.Nil(t, NewServiceError("gemini", "complete", nil))

	var svcErr *ServiceError
	assert.ErrorAs(t, NewServiceError("gemini", "complete", errors.New("x")), &svcErr)
	assert.Equal(t, "gemini", svcErr.Provider)
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, IsTimeout(context.DeadlineExceeded))
	assert.True(t, IsTimeout(fmt.Errorf("wrap: %w", context.DeadlineExceeded)))
	assert.True(t, IsTimeout(errors.New("net/http: request canceled (Client.Timeout exceeded)")))
	assert.False(t, IsTimeout(context.Canceled))
	assert.False(t, IsTimeout(nil))
}

func TestPromptTemplate(t *testing.T) {
	tmpl, ok := PromptTemplate("v1")
	assert.True(t, ok)
	assert.Equal(t, "v1", tmpl.Version)
	assert.NotEmpty(t, tmpl.System)
	assert.Contains(t, tmpl.User, "{{resume}}")

	fallback, ok := PromptTemplate("v7")
	assert.False(t, ok)
	assert.Equal(t, tmpl, fallback)
}
