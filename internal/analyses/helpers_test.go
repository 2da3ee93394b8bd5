package analyses

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"resume-gap-analyzer/internal/gapanalysis"
	"resume-gap-analyzer/internal/llm"
	"resume-gap-analyzer/internal/queue"
	local "resume-gap-analyzer/internal/shared/storage/object/local"
)

var testNow = time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)

type queueStub struct {
	mu       sync.Mutex
	messages []queue.Message
	err      error
}

func (q *queueStub) Send(_ context.Context, msg queue.Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.messages = append(q.messages, msg)
	return nil
}

// stubLLM returns body on every call, or err when set.
type stubLLM struct {
	body string
	err  error
}

func (s stubLLM) Complete(context.Context, llm.Prompt) (json.RawMessage, error) {
	if s.err != nil {
		return nil, s.err
	}
	return json.RawMessage(s.body), nil
}

const stubReport = `{
  "candidateName": "Jane Smith",
  "relevanceScore": {"overall": 71, "skills": 65, "experience": 80, "atsCompatibility": 60},
  "skillGaps": [{"skill": "Kubernetes", "importance": "critical", "reason": "Listed in most postings"}],
  "atsKeywords": {"present": ["Python"], "missing": ["Kubernetes"], "suggestions": ["Add a skills section"]},
  "projectRecommendations": [],
  "learningPath": [],
  "improvementActions": [],
  "summary": "Solid base."
}`

type testDeps struct {
	svc   *Service
	repo  *MemoryRepo
	queue *queueStub
	dir   string
}

func newTestService(t *testing.T, orch *gapanalysis.Orchestrator) testDeps {
	t.Helper()
	dir := t.TempDir()
	repo := NewMemoryRepo()
	q := &queueStub{}
	ids := 0
	svc := &Service{
		Repo:     repo,
		Analyzer: func(string) *gapanalysis.Orchestrator { return orch },
		Store:    local.New(dir),
		Queue:    q,
		Model:    "test-model",
		Now:      func() time.Time { return testNow },
		NewID: func() string {
			ids++
			return "analysis-" + string(rune('0'+ids))
		},
	}
	return testDeps{svc: svc, repo: repo, queue: q, dir: dir}
}

func heuristicOrchestrator() *gapanalysis.Orchestrator {
	return &gapanalysis.Orchestrator{PromptVersion: "v1", Now: func() time.Time { return testNow }}
}

func janeRequest() gapanalysis.Request {
	return gapanalysis.Request{
		ResumeText: "Jane Smith\n- Software Engineer with Python",
		TargetRole: "Software Engineer",
	}
}

var errSendFailed = errors.New("send failed")
