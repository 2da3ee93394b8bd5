package gapanalysis

import (
	"regexp"
	"strings"
)

var capitalizedRun = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b`)

// HeuristicResult is the deterministic signal used when the completion
// service is unavailable.
type HeuristicResult struct {
	CandidateName   string
	Score           float64
	PresentKeywords []string
}

// Heuristic runs every heuristic extractor over the resume.
func Heuristic(resumeText, targetRole string) HeuristicResult {
	return HeuristicResult{
		CandidateName:   CandidateName(resumeText),
		Score:           RoleScore(resumeText, targetRole),
		PresentKeywords: CapitalizedKeywords(resumeText),
	}
}

// CandidateName returns the first non-blank line, trimmed.
func CandidateName(resumeText string) string {
	for _, line := range strings.Split(resumeText, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return UnknownCandidate
}

// CapitalizedKeywords returns every run of capitalized words in order of
// appearance, duplicates included.
func CapitalizedKeywords(resumeText string) []string {
	matches := capitalizedRun.FindAllString(resumeText, -1)
	if matches == nil {
		return []string{}
	}
	return matches
}

// RoleScore is the share of role tokens found in the resume, scaled to 0-100.
func RoleScore(resumeText, targetRole string) float64 {
	tokens := strings.Fields(strings.ToLower(targetRole))
	total := len(tokens)
	if total == 0 {
		total = 1
	}
	resume := strings.ToLower(resumeText)
	matched := 0
	for _, token := range tokens {
		if strings.Contains(resume, token) {
			matched++
		}
	}
	score := 100 * float64(matched) / float64(total)
	if score > 100 {
		return 100
	}
	return score
}
