package gapanalysis

import (
	"strings"
	"time"

	"resume-gap-analyzer/internal/llm"
)

// BuildPrompt renders the system and user instructions for req. The
// generatedAt timestamp is embedded in the JSON template in the same format
// the normalizer later writes to analysisDate.
func BuildPrompt(version string, req Request, generatedAt time.Time) llm.Prompt {
	tmpl, _ := llm.PromptTemplate(version)

	companySuffix := ""
	if company := strings.TrimSpace(req.TargetCompany); company != "" {
		companySuffix = " at " + company
	}
	contextBlock := ""
	if extra := strings.TrimSpace(req.AdditionalContext); extra != "" {
		contextBlock = "\nAdditional context: " + extra + "\n"
	}
	level := strings.TrimSpace(req.ExperienceLevel)
	if level == "" {
		level = DefaultExperienceLevel
	}

	replacer := strings.NewReplacer(
		"{{role}}", req.TargetRole,
		"{{companySuffix}}", companySuffix,
		"{{experienceLevel}}", level,
		"{{contextBlock}}", contextBlock,
		"{{resume}}", req.ResumeText,
		"{{generatedAt}}", FormatTimestamp(generatedAt),
	)
	return llm.Prompt{
		System: tmpl.System,
		User:   replacer.Replace(tmpl.User),
	}
}
