package analyses

import (
	"context"
	"time"
)

// Repo defines persistence operations for analyses.
type Repo interface {
	Create(ctx context.Context, analysis Analysis) error
	GetByID(ctx context.Context, analysisID string) (Analysis, error)
	// MarkProcessing moves a record to processing and stamps startedAt.
	MarkProcessing(ctx context.Context, analysisID string, startedAt time.Time) error
	// SaveResult stores the outcome fields of a completed analysis.
	SaveResult(ctx context.Context, analysis Analysis) error
	MarkFailed(ctx context.Context, analysisID, message string, completedAt time.Time) error
	// List returns records newest first.
	List(ctx context.Context, limit, offset int) ([]Analysis, error)
}
