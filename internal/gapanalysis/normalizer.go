package gapanalysis

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// DefaultCredentialName is shown in placeholder text when no name is configured.
const DefaultCredentialName = "NEBIUS_API_KEY"

const defaultLearningPriority = 3

// Normalizer converts an untrusted completion body (or nothing) into a fully
// populated Report. It never fails.
type Normalizer struct {
	Now            func() time.Time
	CredentialName string
}

// Normalize builds the canonical report. raw may be nil. Every field of raw
// is read through typed lookups; the request is authoritative for the echoed
// role, company and experience level.
func (n Normalizer) Normalize(req Request, raw json.RawMessage, cause Cause) Report {
	req = req.Normalize()
	credential := n.credentialName()
	h := Heuristic(req.ResumeText, req.TargetRole)

	root := gjson.Result{}
	if len(raw) > 0 && gjson.ValidBytes(raw) {
		if parsed := gjson.ParseBytes(raw); parsed.IsObject() {
			root = parsed
		}
	}

	report := Report{
		CandidateName:   textOf(root.Get("candidateName")),
		TargetRole:      req.TargetRole,
		TargetCompany:   fallbackString(req.TargetCompany, DefaultCompany),
		ExperienceLevel: req.ExperienceLevel,
		AnalysisDate:    FormatTimestamp(n.now()),
		Summary:         textOf(root.Get("summary")),
	}
	if report.CandidateName == "" {
		report.CandidateName = h.CandidateName
	}

	if score, ok := relevanceFrom(root.Get("relevanceScore")); ok {
		report.RelevanceScore = score
	} else if cause.degraded() {
		report.RelevanceScore = RelevanceScore{Overall: clampScore(h.Score)}
	}

	report.SkillGaps = skillGapsFrom(root.Get("skillGaps"))
	if len(report.SkillGaps) == 0 {
		report.SkillGaps = []SkillGap{placeholderSkillGap(cause, credential)}
	}
	report.ProjectRecommendations = projectsFrom(root.Get("projectRecommendations"))
	if len(report.ProjectRecommendations) == 0 {
		report.ProjectRecommendations = []ProjectRecommendation{placeholderProject()}
	}
	report.LearningPath = learningPathFrom(root.Get("learningPath"))
	if len(report.LearningPath) == 0 {
		report.LearningPath = []LearningStep{placeholderLearningStep()}
	}
	report.ImprovementActions = actionsFrom(root.Get("improvementActions"))
	if len(report.ImprovementActions) == 0 {
		report.ImprovementActions = []ImprovementAction{placeholderAction(cause, credential)}
	}

	if keywords, ok := atsKeywordsFrom(root.Get("atsKeywords")); ok {
		report.ATSKeywords = keywords
	} else {
		report.ATSKeywords = ATSKeywords{
			Present:     firstUnique(h.PresentKeywords, cause.keywordLimit()),
			Missing:     []string{},
			Suggestions: []string{},
		}
	}

	if report.Summary == "" {
		report.Summary = fallbackSummary(cause, req, credential)
	}
	return report
}

// minimalReport is emitted when normalization itself cannot complete.
func (n Normalizer) minimalReport(req Request) Report {
	req = req.Normalize()
	credential := n.credentialName()
	h := Heuristic(req.ResumeText, req.TargetRole)
	return Report{
		CandidateName:   h.CandidateName,
		TargetRole:      req.TargetRole,
		TargetCompany:   fallbackString(req.TargetCompany, DefaultCompany),
		ExperienceLevel: req.ExperienceLevel,
		AnalysisDate:    FormatTimestamp(n.now()),
		RelevanceScore:  RelevanceScore{Overall: clampScore(h.Score)},
		SkillGaps:       []SkillGap{placeholderSkillGap(CauseServiceFailure, credential)},
		ATSKeywords: ATSKeywords{
			Present:     firstUnique(h.PresentKeywords, keywordLimitAfterFailure),
			Missing:     []string{},
			Suggestions: []string{},
		},
		ProjectRecommendations: []ProjectRecommendation{placeholderProject()},
		LearningPath:           []LearningStep{placeholderLearningStep()},
		ImprovementActions:     []ImprovementAction{placeholderAction(CauseServiceFailure, credential)},
		Summary:                fallbackSummary(CauseServiceFailure, req, credential),
	}
}

func (n Normalizer) now() time.Time {
	if n.Now != nil {
		return n.Now()
	}
	return time.Now()
}

func (n Normalizer) credentialName() string {
	return fallbackString(n.CredentialName, DefaultCredentialName)
}

func relevanceFrom(r gjson.Result) (RelevanceScore, bool) {
	if !r.IsObject() {
		return RelevanceScore{}, false
	}
	values := make([]float64, 0, 4)
	for _, key := range []string{"overall", "skills", "experience", "atsCompatibility"} {
		v := r.Get(key)
		if v.Type != gjson.Number || math.IsNaN(v.Num) || v.Num < 0 || v.Num > 100 {
			return RelevanceScore{}, false
		}
		values = append(values, v.Num)
	}
	return RelevanceScore{
		Overall:          values[0],
		Skills:           values[1],
		Experience:       values[2],
		ATSCompatibility: values[3],
	}, true
}

func skillGapsFrom(r gjson.Result) []SkillGap {
	out := []SkillGap{}
	for _, item := range arrayOf(r) {
		if !item.IsObject() {
			continue
		}
		skill := textOf(item.Get("skill"))
		if skill == "" {
			continue
		}
		out = append(out, SkillGap{
			Skill:      skill,
			Importance: normalizeImportance(textOf(item.Get("importance"))),
			Reason:     textOf(item.Get("reason")),
		})
	}
	return out
}

func projectsFrom(r gjson.Result) []ProjectRecommendation {
	out := []ProjectRecommendation{}
	for _, item := range arrayOf(r) {
		if !item.IsObject() {
			continue
		}
		title := textOf(item.Get("title"))
		if title == "" {
			continue
		}
		out = append(out, ProjectRecommendation{
			Title:         title,
			Description:   textOf(item.Get("description")),
			SkillsCovered: stringsOf(item.Get("skillsCovered")),
			EstimatedTime: fallbackString(textOf(item.Get("estimatedTime")), "Not specified"),
			Priority:      normalizePriority(textOf(item.Get("priority"))),
		})
	}
	return out
}

func learningPathFrom(r gjson.Result) []LearningStep {
	out := []LearningStep{}
	for _, item := range arrayOf(r) {
		if !item.IsObject() {
			continue
		}
		topic := textOf(item.Get("topic"))
		if topic == "" {
			continue
		}
		out = append(out, LearningStep{
			Topic:         topic,
			ResourceType:  normalizeResourceType(textOf(item.Get("resourceType"))),
			EstimatedTime: fallbackString(textOf(item.Get("estimatedTime")), "Not specified"),
			Priority:      normalizeLearningPriority(item.Get("priority")),
		})
	}
	return out
}

func actionsFrom(r gjson.Result) []ImprovementAction {
	out := []ImprovementAction{}
	for _, item := range arrayOf(r) {
		if !item.IsObject() {
			continue
		}
		action := textOf(item.Get("action"))
		if action == "" {
			continue
		}
		out = append(out, ImprovementAction{
			Action:    action,
			Category:  normalizeCategory(textOf(item.Get("category"))),
			Impact:    normalizeImpact(textOf(item.Get("impact"))),
			Timeframe: normalizeTimeframe(textOf(item.Get("timeframe"))),
		})
	}
	return out
}

// atsKeywordsFrom accepts an object where at least one of the three lists is
// present and none of the present ones has a non-array type.
func atsKeywordsFrom(r gjson.Result) (ATSKeywords, bool) {
	if !r.IsObject() {
		return ATSKeywords{}, false
	}
	found := 0
	for _, key := range []string{"present", "missing", "suggestions"} {
		v := r.Get(key)
		if !v.Exists() || v.Type == gjson.Null {
			continue
		}
		if !v.IsArray() {
			return ATSKeywords{}, false
		}
		found++
	}
	if found == 0 {
		return ATSKeywords{}, false
	}
	return ATSKeywords{
		Present:     stringsOf(r.Get("present")),
		Missing:     stringsOf(r.Get("missing")),
		Suggestions: stringsOf(r.Get("suggestions")),
	}, true
}

func arrayOf(r gjson.Result) []gjson.Result {
	if !r.IsArray() {
		return nil
	}
	return r.Array()
}

func textOf(r gjson.Result) string {
	switch r.Type {
	case gjson.String:
		return strings.TrimSpace(r.Str)
	case gjson.Number:
		return r.Raw
	default:
		return ""
	}
}

func stringsOf(r gjson.Result) []string {
	out := []string{}
	for _, item := range arrayOf(r) {
		if s := textOf(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func firstUnique(values []string, limit int) []string {
	out := make([]string, 0, limit)
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if len(out) >= limit {
			break
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func normalizeImportance(v string) Importance {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "critical", "high", "essential", "required":
		return ImportanceCritical
	case "important", "medium", "moderate":
		return ImportanceImportant
	case "nice-to-have", "nice to have", "nice_to_have", "low", "optional":
		return ImportanceNiceToHave
	default:
		return ImportanceImportant
	}
}

func normalizePriority(v string) Priority {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "high", "critical":
		return PriorityHigh
	case "low":
		return PriorityLow
	default:
		return PriorityMedium
	}
}

func normalizeResourceType(v string) ResourceType {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "course", "online course", "class":
		return ResourceCourse
	case "documentation", "docs", "official documentation":
		return ResourceDocumentation
	case "book", "books":
		return ResourceBook
	case "tutorial", "tutorials", "video", "workshop":
		return ResourceTutorial
	case "certification", "certificate", "cert":
		return ResourceCertification
	default:
		return ResourceCourse
	}
}

func normalizeLearningPriority(r gjson.Result) int {
	var value float64
	switch r.Type {
	case gjson.Number:
		value = r.Num
	case gjson.String:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(r.Str), 64)
		if err != nil {
			return defaultLearningPriority
		}
		value = parsed
	default:
		return defaultLearningPriority
	}
	if math.IsNaN(value) {
		return defaultLearningPriority
	}
	// Clamp before converting; out-of-range floats do not convert to int.
	return int(math.Round(math.Min(5, math.Max(1, value))))
}

func normalizeCategory(v string) Category {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "resume-format", "resume format", "formatting", "format":
		return CategoryResumeFormat
	case "skills", "skill":
		return CategorySkills
	case "experience":
		return CategoryExperience
	case "projects", "project", "portfolio":
		return CategoryProjects
	case "certifications", "certification":
		return CategoryCertifications
	case "networking", "network":
		return CategoryNetworking
	default:
		return CategorySkills
	}
}

func normalizeImpact(v string) Impact {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "high":
		return ImpactHigh
	case "low":
		return ImpactLow
	default:
		return ImpactMedium
	}
}

func normalizeTimeframe(v string) Timeframe {
	clean := strings.ToLower(strings.TrimSpace(v))
	clean = strings.NewReplacer("\u2013", "-", "\u2014", "-").Replace(clean)
	clean = strings.ReplaceAll(clean, " - ", "-")
	switch clean {
	case "immediate", "immediately", "now":
		return TimeframeImmediate
	case "1-2 weeks", "1-2weeks", "weeks":
		return TimeframeWeeks
	case "1-3 months", "1-3months", "months":
		return TimeframeMonths
	default:
		return TimeframeMonths
	}
}

func clampScore(value float64) float64 {
	if math.IsNaN(value) || value < 0 {
		return 0
	}
	if value > 100 {
		return 100
	}
	return value
}

func fallbackString(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
