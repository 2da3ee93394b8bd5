package analyses

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"resume-gap-analyzer/internal/gapanalysis"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const selectColumns = `
SELECT id, request_id, source, status, mode, provider, model, prompt_version,
       resume_text, resume_sha256, target_role, target_company, experience_level, additional_context,
       candidate_name, overall_score, report, report_key, service_error, attempts, duration_ms,
       created_at, started_at, completed_at
FROM gap_analyses`

// Create inserts a new analysis.
func (r *PGRepo) Create(ctx context.Context, analysis Analysis) error {
	const query = `
INSERT INTO gap_analyses (
	id, request_id, source, status, provider, model, prompt_version,
	resume_text, resume_sha256, target_role, target_company, experience_level, additional_context,
	created_at, started_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := r.DB.ExecContext(ctx, query,
		analysis.ID,
		analysis.RequestID,
		analysis.Source,
		analysis.Status,
		analysis.Provider,
		analysis.Model,
		analysis.PromptVersion,
		analysis.ResumeText,
		analysis.ResumeSHA256,
		analysis.TargetRole,
		analysis.TargetCompany,
		analysis.ExperienceLevel,
		analysis.AdditionalContext,
		analysis.CreatedAt,
		nullTime(analysis.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("insert analysis %s: %w", analysis.ID, err)
	}
	return nil
}

// GetByID returns an analysis by ID.
func (r *PGRepo) GetByID(ctx context.Context, analysisID string) (Analysis, error) {
	row := r.DB.QueryRowContext(ctx, selectColumns+`
WHERE id = $1
LIMIT 1`, analysisID)
	a, err := scanAnalysis(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Analysis{}, ErrNotFound
		}
		return Analysis{}, err
	}
	return a, nil
}

func (r *PGRepo) MarkProcessing(ctx context.Context, analysisID string, startedAt time.Time) error {
	const query = `
UPDATE gap_analyses
SET status = 'processing',
    started_at = $1,
    completed_at = NULL,
    service_error = ''
WHERE id = $2::uuid`
	return r.execOne(ctx, query, startedAt, analysisID)
}

func (r *PGRepo) SaveResult(ctx context.Context, analysis Analysis) error {
	const query = `
UPDATE gap_analyses
SET status = 'completed',
    mode = $1,
    provider = $2,
    model = $3,
    prompt_version = $4,
    candidate_name = $5,
    overall_score = $6,
    report = $7::jsonb,
    report_key = $8,
    service_error = $9,
    attempts = $10,
    duration_ms = $11,
    started_at = COALESCE($12::timestamptz, started_at),
    completed_at = $13
WHERE id = $14::uuid`

	var report any
	if analysis.Report != nil {
		payload, err := json.Marshal(analysis.Report)
		if err != nil {
			return fmt.Errorf("marshal report: %w", err)
		}
		report = payload
	}
	var score any
	if analysis.OverallScore != nil {
		score = *analysis.OverallScore
	}
	return r.execOne(ctx, query,
		string(analysis.Mode),
		analysis.Provider,
		analysis.Model,
		analysis.PromptVersion,
		analysis.CandidateName,
		score,
		report,
		analysis.ReportKey,
		analysis.ServiceError,
		analysis.Attempts,
		analysis.DurationMs,
		nullTime(analysis.StartedAt),
		nullTime(analysis.CompletedAt),
		analysis.ID,
	)
}

func (r *PGRepo) MarkFailed(ctx context.Context, analysisID, message string, completedAt time.Time) error {
	const query = `
UPDATE gap_analyses
SET status = 'failed',
    service_error = $1,
    completed_at = $2
WHERE id = $3::uuid`
	return r.execOne(ctx, query, message, completedAt, analysisID)
}

// List returns analyses newest first. A non-positive limit returns every row.
func (r *PGRepo) List(ctx context.Context, limit, offset int) ([]Analysis, error) {
	if offset < 0 {
		offset = 0
	}
	query := selectColumns + `
ORDER BY created_at DESC, id DESC
OFFSET $1`
	args := []any{offset}
	if limit > 0 {
		query += `
LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	out := []Analysis{}
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PGRepo) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (Analysis, error) {
	var (
		a           Analysis
		mode        string
		score       sql.NullFloat64
		report      []byte
		startedAt   sql.NullTime
		completedAt sql.NullTime
	)
	err := row.Scan(
		&a.ID,
		&a.RequestID,
		&a.Source,
		&a.Status,
		&mode,
		&a.Provider,
		&a.Model,
		&a.PromptVersion,
		&a.ResumeText,
		&a.ResumeSHA256,
		&a.TargetRole,
		&a.TargetCompany,
		&a.ExperienceLevel,
		&a.AdditionalContext,
		&a.CandidateName,
		&score,
		&report,
		&a.ReportKey,
		&a.ServiceError,
		&a.Attempts,
		&a.DurationMs,
		&a.CreatedAt,
		&startedAt,
		&completedAt,
	)
	if err != nil {
		return Analysis{}, err
	}
	a.Mode = gapanalysis.Mode(mode)
	if score.Valid {
		a.OverallScore = &score.Float64
	}
	if len(report) > 0 {
		var parsed gapanalysis.Report
		if err := json.Unmarshal(report, &parsed); err == nil {
			a.Report = &parsed
		}
	}
	if startedAt.Valid {
		a.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		a.CompletedAt = &completedAt.Time
	}
	return a, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

var _ Repo = (*PGRepo)(nil)
