package gapanalysis

import "fmt"

// Cause describes why a report may be degraded.
type Cause int

const (
	// CauseNone means the completion service answered.
	CauseNone Cause = iota
	// CauseNoCredential means the service was skipped for lack of a credential.
	CauseNoCredential
	// CauseServiceFailure means the service was called and failed.
	CauseServiceFailure
)

func (c Cause) degraded() bool { return c != CauseNone }

const (
	keywordLimitNoCredential = 8
	keywordLimitAfterFailure = 10
)

func (c Cause) keywordLimit() int {
	if c == CauseServiceFailure {
		return keywordLimitAfterFailure
	}
	return keywordLimitNoCredential
}

func placeholderSkillGap(c Cause, credential string) SkillGap {
	if c == CauseServiceFailure {
		return SkillGap{
			Skill:      "Unable to analyze",
			Importance: ImportanceCritical,
			Reason:     "AI analysis failed. Please check API configuration.",
		}
	}
	return SkillGap{
		Skill:      "Unable to determine specific gaps",
		Importance: ImportanceCritical,
		Reason:     fmt.Sprintf("Incomplete analysis - please add %s for detailed insights", credential),
	}
}

func placeholderProject() ProjectRecommendation {
	return ProjectRecommendation{
		Title:         "Build a Portfolio Project",
		Description:   "Create a project that demonstrates the skills required for your target role",
		SkillsCovered: []string{"relevant technical skills"},
		EstimatedTime: "2-4 weeks",
		Priority:      PriorityHigh,
	}
}

func placeholderLearningStep() LearningStep {
	return LearningStep{
		Topic:         "Role-specific technical skills",
		ResourceType:  ResourceCourse,
		EstimatedTime: "1-3 months",
		Priority:      1,
	}
}

func placeholderAction(c Cause, credential string) ImprovementAction {
	action := fmt.Sprintf("Configure %s environment variable for detailed analysis", credential)
	if c == CauseServiceFailure {
		action = fmt.Sprintf("Retry analysis with a valid %s", credential)
	}
	return ImprovementAction{
		Action:    action,
		Category:  CategorySkills,
		Impact:    ImpactHigh,
		Timeframe: TimeframeImmediate,
	}
}

func fallbackSummary(c Cause, req Request, credential string) string {
	if c == CauseServiceFailure {
		return fmt.Sprintf(
			"AI analysis failed for this %s-level %s assessment, so scores and keywords come from a basic keyword match. Please verify the %s credential and try again.",
			req.ExperienceLevel, req.TargetRole, credential,
		)
	}
	return fmt.Sprintf(
		"Analysis completed for a %s-level candidate targeting %s. For detailed insights, configure the %s credential for the completion service.",
		req.ExperienceLevel, req.TargetRole, credential,
	)
}
