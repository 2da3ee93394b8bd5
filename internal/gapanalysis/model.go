package gapanalysis

import (
	"strings"
	"time"
)

const (
	DefaultExperienceLevel = "mid"
	DefaultCompany         = "Not specified"
	UnknownCandidate       = "Not provided"
)

// Request is a single resume/role pair to analyze.
type Request struct {
	ResumeText        string `json:"resumeText"`
	TargetRole        string `json:"targetRole"`
	TargetCompany     string `json:"targetCompany,omitempty"`
	ExperienceLevel   string `json:"experienceLevel,omitempty"`
	AdditionalContext string `json:"additionalContext,omitempty"`
}

// Normalize trims every field and applies the experience level default.
func (r Request) Normalize() Request {
	out := Request{
		ResumeText:        strings.TrimSpace(r.ResumeText),
		TargetRole:        strings.TrimSpace(r.TargetRole),
		TargetCompany:     strings.TrimSpace(r.TargetCompany),
		ExperienceLevel:   strings.TrimSpace(r.ExperienceLevel),
		AdditionalContext: strings.TrimSpace(r.AdditionalContext),
	}
	if out.ExperienceLevel == "" {
		out.ExperienceLevel = DefaultExperienceLevel
	}
	return out
}

// Validate reports the first missing required field.
func (r Request) Validate() error {
	if strings.TrimSpace(r.ResumeText) == "" {
		return &InputError{Field: "resumeText", Reason: "is required"}
	}
	if strings.TrimSpace(r.TargetRole) == "" {
		return &InputError{Field: "targetRole", Reason: "is required"}
	}
	return nil
}

type Importance string

const (
	ImportanceCritical   Importance = "critical"
	ImportanceImportant  Importance = "important"
	ImportanceNiceToHave Importance = "nice-to-have"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

type ResourceType string

const (
	ResourceCourse        ResourceType = "course"
	ResourceDocumentation ResourceType = "documentation"
	ResourceBook          ResourceType = "book"
	ResourceTutorial      ResourceType = "tutorial"
	ResourceCertification ResourceType = "certification"
)

type Category string

const (
	CategoryResumeFormat   Category = "resume-format"
	CategorySkills         Category = "skills"
	CategoryExperience     Category = "experience"
	CategoryProjects       Category = "projects"
	CategoryCertifications Category = "certifications"
	CategoryNetworking     Category = "networking"
)

type Impact string

const (
	ImpactHigh   Impact = "high"
	ImpactMedium Impact = "medium"
	ImpactLow    Impact = "low"
)

type Timeframe string

const (
	TimeframeImmediate Timeframe = "immediate"
	TimeframeWeeks     Timeframe = "1-2 weeks"
	TimeframeMonths    Timeframe = "1-3 months"
)

type RelevanceScore struct {
	Overall          float64 `json:"overall"`
	Skills           float64 `json:"skills"`
	Experience       float64 `json:"experience"`
	ATSCompatibility float64 `json:"atsCompatibility"`
}

type SkillGap struct {
	Skill      string     `json:"skill"`
	Importance Importance `json:"importance"`
	Reason     string     `json:"reason"`
}

type ATSKeywords struct {
	Present     []string `json:"present"`
	Missing     []string `json:"missing"`
	Suggestions []string `json:"suggestions"`
}

type ProjectRecommendation struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	SkillsCovered []string `json:"skillsCovered"`
	EstimatedTime string   `json:"estimatedTime"`
	Priority      Priority `json:"priority"`
}

type LearningStep struct {
	Topic         string       `json:"topic"`
	ResourceType  ResourceType `json:"resourceType"`
	EstimatedTime string       `json:"estimatedTime"`
	Priority      int          `json:"priority"`
}

type ImprovementAction struct {
	Action    string    `json:"action"`
	Category  Category  `json:"category"`
	Impact    Impact    `json:"impact"`
	Timeframe Timeframe `json:"timeframe"`
}

// Report is the canonical gap-analysis output. After normalization every
// collection is non-nil and every score lies in [0,100].
type Report struct {
	CandidateName          string                  `json:"candidateName"`
	TargetRole             string                  `json:"targetRole"`
	TargetCompany          string                  `json:"targetCompany"`
	ExperienceLevel        string                  `json:"experienceLevel"`
	AnalysisDate           string                  `json:"analysisDate"`
	RelevanceScore         RelevanceScore          `json:"relevanceScore"`
	SkillGaps              []SkillGap              `json:"skillGaps"`
	ATSKeywords            ATSKeywords             `json:"atsKeywords"`
	ProjectRecommendations []ProjectRecommendation `json:"projectRecommendations"`
	LearningPath           []LearningStep          `json:"learningPath"`
	ImprovementActions     []ImprovementAction     `json:"improvementActions"`
	Summary                string                  `json:"summary"`
}

// Mode records which path produced a report.
type Mode string

const (
	ModeAI        Mode = "ai"
	ModeHeuristic Mode = "heuristic"
	ModeFallback  Mode = "fallback"
	ModeDemo      Mode = "demo"
)

// Outcome is a report plus the diagnostics of how it was produced.
type Outcome struct {
	Report     Report
	Mode       Mode
	ServiceErr error
	Attempts   int
	Duration   time.Duration
}

// FormatTimestamp renders t the way analysisDate is written.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
