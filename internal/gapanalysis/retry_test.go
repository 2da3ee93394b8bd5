package gapanalysis

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-gap-analyzer/internal/llm"
)

func TestRetryingServiceRecoversFromTransientStatus(t *testing.T) {
	client := &fakeClient{replies: []fakeReply{
		{err: &llm.ServiceError{Provider: "nebius", StatusCode: 503, Err: errors.New("unavailable")}},
		{body: `{"summary":"ok"}`},
	}}
	svc := retryingService{base: client, policy: RetryPolicy{MaxAttempts: 3, Delay: time.Millisecond}, provider: "nebius"}

	raw, attempts, err := svc.complete(context.Background(), llm.Prompt{User: "u"})

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.JSONEq(t, `{"summary":"ok"}`, string(raw))
}

func TestRetryingServiceDoesNotRetryClientErrors(t *testing.T) {
	client := &fakeClient{replies: []fakeReply{
		{err: &llm.ServiceError{Provider: "nebius", StatusCode: 401, Err: errors.New("unauthorized")}},
	}}
	svc := retryingService{base: client, policy: RetryPolicy{MaxAttempts: 3, Delay: time.Millisecond}}

	_, attempts, err := svc.complete(context.Background(), llm.Prompt{})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, client.callCount())
	var svcErr *llm.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, 401, svcErr.StatusCode)
}

func TestRetryingServiceExhaustion(t *testing.T) {
	client := &fakeClient{replies: []fakeReply{{body: "not json at all"}}}
	svc := retryingService{base: client, policy: RetryPolicy{MaxAttempts: 2, Delay: time.Millisecond}, provider: "openai"}

	_, attempts, err := svc.complete(context.Background(), llm.Prompt{})

	require.Error(t, err)
	assert.Equal(t, 2, attempts)
	assert.ErrorIs(t, err, llm.ErrRetryExhausted)
	assert.ErrorIs(t, err, llm.ErrInvalidJSON)
	var svcErr *llm.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, 2, svcErr.Attempts)
}

func TestRetryingServiceTimeout(t *testing.T) {
	client := &fakeClient{replies: []fakeReply{{block: true}}}
	svc := retryingService{base: client, policy: RetryPolicy{MaxAttempts: 1, Timeout: 10 * time.Millisecond}}

	_, attempts, err := svc.complete(context.Background(), llm.Prompt{})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	var svcErr *llm.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "timeout", svcErr.Op)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRetryingServiceEmptyBody(t *testing.T) {
	client := &fakeClient{replies: []fakeReply{{body: "   "}}}
	svc := retryingService{base: client, policy: RetryPolicy{}}

	_, _, err := svc.complete(context.Background(), llm.Prompt{})

	assert.ErrorIs(t, err, llm.ErrEmptyResponse)
}

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "canceled", err: context.Canceled, want: false},
		{name: "deadline", err: context.DeadlineExceeded, want: true},
		{name: "rate limited", err: &llm.ServiceError{StatusCode: 429}, want: true},
		{name: "server error", err: &llm.ServiceError{StatusCode: 502}, want: true},
		{name: "bad request", err: &llm.ServiceError{StatusCode: 400}, want: false},
		{name: "unexpected eof", err: io.ErrUnexpectedEOF, want: true},
		{name: "connection reset", err: errors.New("read: connection reset by peer"), want: true},
		{name: "other", err: errors.New("boom"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shouldRetry(tt.err))
		})
	}
}
