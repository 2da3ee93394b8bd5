package analyses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"resume-gap-analyzer/internal/gapanalysis"
	"resume-gap-analyzer/internal/queue"
	"resume-gap-analyzer/internal/shared/metrics"
	"resume-gap-analyzer/internal/shared/storage/object"
	"resume-gap-analyzer/internal/shared/telemetry"
	"resume-gap-analyzer/internal/shared/util"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// AnalyzerFactory returns the orchestrator to use for a request. The payload
// credential is only consulted when no credential is configured.
type AnalyzerFactory func(payloadCredential string) *gapanalysis.Orchestrator

// Service persists analyses around the gap-analysis pipeline.
type Service struct {
	Repo     Repo
	Analyzer AnalyzerFactory
	// Store archives finished reports when non-nil.
	Store  object.ObjectStore
	Queue  queue.Client
	Model  string
	Now    func() time.Time
	NewID  func() string
	Source string
}

// Run analyzes req synchronously and returns the completed record.
// Input errors and strict-policy rejections are returned without persisting.
func (s *Service) Run(ctx context.Context, source string, req gapanalysis.Request, payloadCredential string) (Analysis, error) {
	if err := req.Validate(); err != nil {
		metrics.IncAnalysisRejected("invalid_input")
		return Analysis{}, err
	}
	orch := s.analyzer(payloadCredential)
	if err := orch.Ready(); err != nil {
		metrics.IncAnalysisRejected("credential")
		return Analysis{}, err
	}

	startedAt := s.now()
	analysis := s.newRecord(ctx, source, req.Normalize(), orch)
	analysis.Status = StatusProcessing
	analysis.StartedAt = &startedAt
	if err := s.Repo.Create(ctx, analysis); err != nil {
		return Analysis{}, fmt.Errorf("create analysis: %w", err)
	}
	return s.execute(ctx, analysis, orch)
}

// Enqueue stores a queued record and publishes a job message. Payload
// credentials are neither stored nor forwarded; workers use their own.
func (s *Service) Enqueue(ctx context.Context, source string, req gapanalysis.Request) (Analysis, error) {
	if err := req.Validate(); err != nil {
		metrics.IncAnalysisRejected("invalid_input")
		return Analysis{}, err
	}
	if s.Queue == nil {
		return Analysis{}, ErrQueueNotConfigured
	}
	orch := s.analyzer("")
	if err := orch.Ready(); err != nil {
		metrics.IncAnalysisRejected("credential")
		return Analysis{}, err
	}

	analysis := s.newRecord(ctx, source, req.Normalize(), orch)
	analysis.Status = StatusQueued
	if err := s.Repo.Create(ctx, analysis); err != nil {
		return Analysis{}, fmt.Errorf("create analysis: %w", err)
	}

	msg := queue.NewMessage(analysis.ID, analysis.RequestID, analysis.CreatedAt)
	if err := s.Queue.Send(ctx, msg); err != nil {
		s.fail(ctx, analysis.ID, fmt.Errorf("enqueue: %w", err))
		return Analysis{}, fmt.Errorf("enqueue analysis %s: %w", analysis.ID, err)
	}
	telemetry.Info("analysis.queued", map[string]any{
		"request_id":  analysis.RequestID,
		"analysis_id": analysis.ID,
	})
	return analysis, nil
}

// ProcessAnalysis runs a queued analysis. Completed and failed records are
// left alone so redelivered messages are harmless.
func (s *Service) ProcessAnalysis(ctx context.Context, analysisID string) error {
	analysis, err := s.Repo.GetByID(ctx, analysisID)
	if err != nil {
		return fmt.Errorf("analysis lookup %s: %w", analysisID, err)
	}
	if analysis.terminal() {
		telemetry.Info("analysis.already_terminal", map[string]any{
			"request_id":  telemetry.RequestID(ctx),
			"analysis_id": analysisID,
			"status":      analysis.Status,
		})
		return nil
	}

	orch := s.analyzer("")
	if err := orch.Ready(); err != nil {
		// Redelivery cannot fix a missing credential.
		s.fail(ctx, analysisID, err)
		return nil
	}

	startedAt := s.now()
	if err := s.Repo.MarkProcessing(ctx, analysisID, startedAt); err != nil {
		return fmt.Errorf("set processing %s: %w", analysisID, err)
	}
	analysis.Status = StatusProcessing
	analysis.StartedAt = &startedAt
	_, err = s.execute(ctx, analysis, orch)
	return err
}

// Get returns an analysis by ID.
func (s *Service) Get(ctx context.Context, analysisID string) (Analysis, error) {
	if strings.TrimSpace(analysisID) == "" {
		return Analysis{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, analysisID)
}

// List returns analyses newest first. limit is clamped to [1,100] with a
// default of 20.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Analysis, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.Repo.List(ctx, limit, offset)
}

func (s *Service) execute(ctx context.Context, analysis Analysis, orch *gapanalysis.Orchestrator) (Analysis, error) {
	metrics.IncAnalysisStarted()
	telemetry.Info("analysis.started", map[string]any{
		"request_id":  analysis.RequestID,
		"analysis_id": analysis.ID,
		"source":      analysis.Source,
		"provider":    analysis.Provider,
	})

	out, err := orch.Analyze(ctx, analysis.Request())
	if err != nil {
		s.fail(ctx, analysis.ID, err)
		return Analysis{}, err
	}

	completedAt := s.now()
	report := out.Report
	score := report.RelevanceScore.Overall
	analysis.Status = StatusCompleted
	analysis.Mode = out.Mode
	analysis.Report = &report
	analysis.CandidateName = report.CandidateName
	analysis.OverallScore = &score
	analysis.Attempts = out.Attempts
	analysis.DurationMs = out.Duration.Milliseconds()
	analysis.CompletedAt = &completedAt
	if out.ServiceErr != nil {
		analysis.ServiceError = sanitizeError(out.ServiceErr)
	}
	analysis.ReportKey = s.archive(ctx, analysis)

	if err := s.Repo.SaveResult(ctx, analysis); err != nil {
		return Analysis{}, fmt.Errorf("save analysis result %s: %w", analysis.ID, err)
	}

	metrics.IncAnalysisCompleted(string(analysis.Mode))
	if analysis.StartedAt != nil {
		metrics.ObserveAnalysisDurationMs(float64(completedAt.Sub(*analysis.StartedAt).Microseconds()) / 1000.0)
	}
	telemetry.Info("analysis.completed", map[string]any{
		"request_id":    analysis.RequestID,
		"analysis_id":   analysis.ID,
		"mode":          string(analysis.Mode),
		"attempts":      analysis.Attempts,
		"overall_score": score,
		"duration_ms":   analysis.DurationMs,
	})
	return analysis, nil
}

// archive writes the report JSON to the object store. Failures are logged and
// leave the key empty.
func (s *Service) archive(ctx context.Context, analysis Analysis) string {
	if s.Store == nil || analysis.Report == nil {
		return ""
	}
	payload, err := json.MarshalIndent(analysis.Report, "", "  ")
	if err != nil {
		return ""
	}
	key := object.ReportKey(analysis.ID, *analysis.CompletedAt)
	if _, err := s.Store.SaveWithKey(ctx, key, "application/json", bytes.NewReader(payload)); err != nil {
		telemetry.Warn("analysis.archive_failed", map[string]any{
			"request_id":  analysis.RequestID,
			"analysis_id": analysis.ID,
			"error":       err.Error(),
		})
		return ""
	}
	return key
}

func (s *Service) fail(ctx context.Context, analysisID string, cause error) {
	msg := sanitizeError(cause)
	if err := s.Repo.MarkFailed(context.WithoutCancel(ctx), analysisID, msg, s.now()); err != nil {
		telemetry.Error("analysis.fail_update_failed", map[string]any{
			"request_id":  telemetry.RequestID(ctx),
			"analysis_id": analysisID,
			"error":       err.Error(),
		})
	}
	metrics.IncAnalysisFailed()
	fields := map[string]any{
		"request_id":  telemetry.RequestID(ctx),
		"analysis_id": analysisID,
		"error":       msg,
	}
	if errors.Is(cause, gapanalysis.ErrMissingCredential) {
		fields["reason"] = "credential"
	}
	telemetry.Error("analysis.failed", fields)
}

func (s *Service) newRecord(ctx context.Context, source string, req gapanalysis.Request, orch *gapanalysis.Orchestrator) Analysis {
	provider := ""
	model := ""
	if orch.Service != nil {
		provider = orch.Provider
		model = s.Model
	}
	requestID := telemetry.RequestID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	if source == "" {
		source = s.Source
	}
	return Analysis{
		ID:                s.newID(),
		RequestID:         requestID,
		Source:            source,
		Provider:          provider,
		Model:             model,
		PromptVersion:     orch.PromptVersion,
		ResumeText:        req.ResumeText,
		ResumeSHA256:      util.HashText(req.ResumeText),
		TargetRole:        req.TargetRole,
		TargetCompany:     req.TargetCompany,
		ExperienceLevel:   req.ExperienceLevel,
		AdditionalContext: req.AdditionalContext,
		CreatedAt:         s.now(),
	}
}

func (s *Service) analyzer(payloadCredential string) *gapanalysis.Orchestrator {
	if s.Analyzer != nil {
		if orch := s.Analyzer(payloadCredential); orch != nil {
			return orch
		}
	}
	return &gapanalysis.Orchestrator{}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

const maxErrorLen = 500

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	return util.Truncate(msg, maxErrorLen)
}
