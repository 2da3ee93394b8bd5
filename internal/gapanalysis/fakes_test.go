package gapanalysis

import (
	"context"
	"encoding/json"
	"sync"

	"resume-gap-analyzer/internal/llm"
)

type fakeReply struct {
	body  string
	err   error
	panic string
	block bool
}

// fakeClient replays replies in order; the last one repeats.
type fakeClient struct {
	mu      sync.Mutex
	replies []fakeReply
	calls   int
	prompts []llm.Prompt
}

func (f *fakeClient) Complete(ctx context.Context, prompt llm.Prompt) (json.RawMessage, error) {
	f.mu.Lock()
	idx := f.calls
	if idx >= len(f.replies) {
		idx = len(f.replies) - 1
	}
	reply := f.replies[idx]
	f.calls++
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	if reply.panic != "" {
		panic(reply.panic)
	}
	if reply.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if reply.err != nil {
		return nil, reply.err
	}
	return json.RawMessage(reply.body), nil
}

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
