package analyses

import (
	"time"

	"resume-gap-analyzer/internal/gapanalysis"
)

const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

const (
	SourceCLI    = "cli"
	SourceAPI    = "api"
	SourceWorker = "worker"
)

// Analysis is the persisted record of one gap analysis.
type Analysis struct {
	ID                string              `json:"id"`
	RequestID         string              `json:"requestId,omitempty"`
	Source            string              `json:"source"`
	Status            string              `json:"status"`
	Mode              gapanalysis.Mode    `json:"mode,omitempty"`
	Provider          string              `json:"provider,omitempty"`
	Model             string              `json:"model,omitempty"`
	PromptVersion     string              `json:"promptVersion,omitempty"`
	ResumeText        string              `json:"-"`
	ResumeSHA256      string              `json:"resumeSha256"`
	TargetRole        string              `json:"targetRole"`
	TargetCompany     string              `json:"targetCompany,omitempty"`
	ExperienceLevel   string              `json:"experienceLevel"`
	AdditionalContext string              `json:"additionalContext,omitempty"`
	CandidateName     string              `json:"candidateName,omitempty"`
	OverallScore      *float64            `json:"overallScore,omitempty"`
	Report            *gapanalysis.Report `json:"report,omitempty"`
	ReportKey         string              `json:"reportKey,omitempty"`
	ServiceError      string              `json:"serviceError,omitempty"`
	Attempts          int                 `json:"attempts"`
	DurationMs        int64               `json:"durationMs"`
	CreatedAt         time.Time           `json:"createdAt"`
	StartedAt         *time.Time          `json:"startedAt,omitempty"`
	CompletedAt       *time.Time          `json:"completedAt,omitempty"`
}

// Request rebuilds the analysis request stored on the record.
func (a Analysis) Request() gapanalysis.Request {
	return gapanalysis.Request{
		ResumeText:        a.ResumeText,
		TargetRole:        a.TargetRole,
		TargetCompany:     a.TargetCompany,
		ExperienceLevel:   a.ExperienceLevel,
		AdditionalContext: a.AdditionalContext,
	}
}

func (a Analysis) terminal() bool {
	return a.Status == StatusCompleted || a.Status == StatusFailed
}
