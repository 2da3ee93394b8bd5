package analyses

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores analyses in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Analysis
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Analysis)}
}

func (r *MemoryRepo) Create(ctx context.Context, analysis Analysis) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[analysis.ID] = cloneAnalysis(analysis)
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, analysisID string) (Analysis, error) {
	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	analysis, ok := r.byID[analysisID]
	if !ok {
		return Analysis{}, ErrNotFound
	}
	return cloneAnalysis(analysis), nil
}

func (r *MemoryRepo) MarkProcessing(ctx context.Context, analysisID string, startedAt time.Time) error {
	return r.update(ctx, analysisID, func(a *Analysis) {
		a.Status = StatusProcessing
		a.StartedAt = &startedAt
		a.CompletedAt = nil
		a.ServiceError = ""
	})
}

func (r *MemoryRepo) SaveResult(ctx context.Context, analysis Analysis) error {
	return r.update(ctx, analysis.ID, func(a *Analysis) {
		a.Status = StatusCompleted
		a.Mode = analysis.Mode
		a.Provider = analysis.Provider
		a.Model = analysis.Model
		a.PromptVersion = analysis.PromptVersion
		a.CandidateName = analysis.CandidateName
		a.OverallScore = analysis.OverallScore
		a.Report = analysis.Report
		a.ReportKey = analysis.ReportKey
		a.ServiceError = analysis.ServiceError
		a.Attempts = analysis.Attempts
		a.DurationMs = analysis.DurationMs
		if analysis.StartedAt != nil {
			a.StartedAt = analysis.StartedAt
		}
		a.CompletedAt = analysis.CompletedAt
	})
}

func (r *MemoryRepo) MarkFailed(ctx context.Context, analysisID, message string, completedAt time.Time) error {
	return r.update(ctx, analysisID, func(a *Analysis) {
		a.Status = StatusFailed
		a.ServiceError = message
		a.CompletedAt = &completedAt
	})
}

func (r *MemoryRepo) List(ctx context.Context, limit, offset int) ([]Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}

	r.mu.RLock()
	all := make([]Analysis, 0, len(r.byID))
	for _, a := range r.byID {
		all = append(all, cloneAnalysis(a))
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	if offset >= len(all) {
		return []Analysis{}, nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end], nil
}

func (r *MemoryRepo) update(ctx context.Context, analysisID string, apply func(*Analysis)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	analysis, ok := r.byID[analysisID]
	if !ok {
		return ErrNotFound
	}
	apply(&analysis)
	r.byID[analysisID] = cloneAnalysis(analysis)
	return nil
}

// cloneAnalysis copies pointer fields so callers cannot mutate stored state.
func cloneAnalysis(a Analysis) Analysis {
	if a.OverallScore != nil {
		v := *a.OverallScore
		a.OverallScore = &v
	}
	if a.StartedAt != nil {
		v := *a.StartedAt
		a.StartedAt = &v
	}
	if a.CompletedAt != nil {
		v := *a.CompletedAt
		a.CompletedAt = &v
	}
	if a.Report != nil {
		v := *a.Report
		a.Report = &v
	}
	return a
}

var _ Repo = (*MemoryRepo)(nil)
