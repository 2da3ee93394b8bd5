package gapanalysis

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

var fixedNow = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

func testNormalizer() Normalizer {
	return Normalizer{Now: func() time.Time { return fixedNow }, CredentialName: "NEBIUS_API_KEY"}
}

func TestNormalizeWellFormedBody(t *testing.T) {
	raw := json.RawMessage(`{
		"candidateName": "Jane Smith",
		"targetRole": "ignored",
		"analysisDate": "1999-01-01",
		"relevanceScore": {"overall": 72, "skills": 65, "experience": 80, "atsCompatibility": 70},
		"skillGaps": [{"skill": "Kubernetes", "importance": "critical", "reason": "deploys"}],
		"atsKeywords": {"present": ["Go"], "missing": ["Docker"], "suggestions": ["Add CI"]},
		"projectRecommendations": [{"title": "Build X", "description": "d", "skillsCovered": ["Go"], "estimatedTime": "2 weeks", "priority": "high"}],
		"learningPath": [{"topic": "K8s", "resourceType": "course", "estimatedTime": "1 month", "priority": 2}],
		"improvementActions": [{"action": "Add metrics", "category": "resume-format", "impact": "high", "timeframe": "immediate"}],
		"summary": "Solid candidate."
	}`)
	req := Request{ResumeText: "Jane Smith\nGo", TargetRole: "Platform Engineer", TargetCompany: "Acme", ExperienceLevel: "senior"}

	got := testNormalizer().Normalize(req, raw, CauseNone)

	assert.Equal(t, "Jane Smith", got.CandidateName)
	assert.Equal(t, "Platform Engineer", got.TargetRole)
	assert.Equal(t, "Acme", got.TargetCompany)
	assert.Equal(t, "senior", got.ExperienceLevel)
	assert.Equal(t, "2025-01-02T03:04:05Z", got.AnalysisDate)
	assert.Equal(t, RelevanceScore{Overall: 72, Skills: 65, Experience: 80, ATSCompatibility: 70}, got.RelevanceScore)
	assert.Equal(t, []SkillGap{{Skill: "Kubernetes", Importance: ImportanceCritical, Reason: "deploys"}}, got.SkillGaps)
	assert.Equal(t, ATSKeywords{Present: []string{"Go"}, Missing: []string{"Docker"}, Suggestions: []string{"Add CI"}}, got.ATSKeywords)
	require.Len(t, got.ProjectRecommendations, 1)
	assert.Equal(t, PriorityHigh, got.ProjectRecommendations[0].Priority)
	require.Len(t, got.LearningPath, 1)
	assert.Equal(t, 2, got.LearningPath[0].Priority)
	require.Len(t, got.ImprovementActions, 1)
	assert.Equal(t, CategoryResumeFormat, got.ImprovementActions[0].Category)
	assert.Equal(t, "Solid candidate.", got.Summary)
}

func TestNormalizeNoCredential(t *testing.T) {
	req := Request{ResumeText: "Jane Smith\n- Software Engineer with Python", TargetRole: "Software Engineer"}

	got := testNormalizer().Normalize(req, nil, CauseNoCredential)

	assert.Equal(t, "Jane Smith", got.CandidateName)
	assert.Equal(t, DefaultCompany, got.TargetCompany)
	assert.Equal(t, DefaultExperienceLevel, got.ExperienceLevel)
	assert.Equal(t, RelevanceScore{Overall: 100}, got.RelevanceScore)
	assert.Equal(t, []string{"Jane Smith", "Software Engineer", "Python"}, got.ATSKeywords.Present)
	assert.Equal(t, []string{}, got.ATSKeywords.Missing)
	assert.Equal(t, []string{}, got.ATSKeywords.Suggestions)
	require.Len(t, got.SkillGaps, 1)
	assert.Equal(t, "Unable to determine specific gaps", got.SkillGaps[0].Skill)
	assert.Contains(t, got.SkillGaps[0].Reason, "NEBIUS_API_KEY")
	require.Len(t, got.ImprovementActions, 1)
	assert.Contains(t, got.ImprovementActions[0].Action, "Configure NEBIUS_API_KEY")
	assert.Len(t, got.ProjectRecommendations, 1)
	assert.Len(t, got.LearningPath, 1)
	assert.Contains(t, got.Summary, "mid-level candidate targeting Software Engineer")
}

func TestNormalizeServiceFailureUsesWiderKeywordLimit(t *testing.T) {
	resume := "Alpha Beta\nOne two. Three x. Four x. Five x. Six x. Seven x. Eight x. Nine x. Ten x. Eleven x. Twelve x."
	req := Request{ResumeText: resume, TargetRole: "Engineer"}

	failed := testNormalizer().Normalize(req, nil, CauseServiceFailure)
	assert.Len(t, failed.ATSKeywords.Present, 10)
	assert.Equal(t, "Unable to analyze", failed.SkillGaps[0].Skill)
	assert.Contains(t, failed.Summary, "AI analysis failed")

	skipped := testNormalizer().Normalize(req, nil, CauseNoCredential)
	assert.Len(t, skipped.ATSKeywords.Present, 8)
}

func TestNormalizeDeduplicatesFallbackKeywords(t *testing.T) {
	req := Request{ResumeText: "Go Lang.\nPython. Python. Python. Rust.", TargetRole: "Engineer"}
	got := testNormalizer().Normalize(req, nil, CauseNoCredential)
	assert.Equal(t, []string{"Go Lang", "Python", "Rust"}, got.ATSKeywords.Present)
}

func TestNormalizeInvalidScoresAreDiscarded(t *testing.T) {
	req := Request{ResumeText: "abc", TargetRole: "X Y"}
	tests := []struct {
		name string
		raw  string
	}{
		{name: "out of range", raw: `{"relevanceScore": {"overall": 120, "skills": 1, "experience": 1, "atsCompatibility": 1}}`},
		{name: "missing key", raw: `{"relevanceScore": {"overall": 50, "skills": 1, "experience": 1}}`},
		{name: "string score", raw: `{"relevanceScore": {"overall": "50", "skills": 1, "experience": 1, "atsCompatibility": 1}}`},
		{name: "not object", raw: `{"relevanceScore": 50}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := testNormalizer().Normalize(req, json.RawMessage(tt.raw), CauseNone)
			assert.Equal(t, RelevanceScore{}, got.RelevanceScore)
		})
	}
}

func TestNormalizeDegradedScoreUsesHeuristic(t *testing.T) {
	req := Request{ResumeText: "abc", TargetRole: "X Y"}
	got := testNormalizer().Normalize(req, json.RawMessage(`{"relevanceScore": "high"}`), CauseServiceFailure)
	assert.Equal(t, RelevanceScore{}, got.RelevanceScore)

	req = Request{ResumeText: "data analyst", TargetRole: "Data Scientist"}
	got = testNormalizer().Normalize(req, nil, CauseServiceFailure)
	assert.Equal(t, RelevanceScore{Overall: 50}, got.RelevanceScore)
}

func TestNormalizeEnumSentinels(t *testing.T) {
	raw := json.RawMessage(`{
		"skillGaps": [
			{"skill": "A", "importance": "HIGH"},
			{"skill": "B", "importance": "low"},
			{"skill": "C", "importance": "whatever"},
			{"importance": "critical"},
			"not an object"
		],
		"projectRecommendations": [{"title": "P", "priority": "urgent", "estimatedTime": ""}],
		"learningPath": [
			{"topic": "T1", "resourceType": "podcast", "priority": 9},
			{"topic": "T2", "resourceType": "Docs", "priority": "0"},
			{"topic": "T3", "priority": "soon"}
		],
		"improvementActions": [
			{"action": "Do it", "category": "misc", "impact": "huge", "timeframe": "1 \u2013 2 weeks"},
			{"action": "Later", "timeframe": "someday"}
		]
	}`)
	got := testNormalizer().Normalize(Request{ResumeText: "r", TargetRole: "Dev"}, raw, CauseNone)

	require.Len(t, got.SkillGaps, 3)
	assert.Equal(t, ImportanceCritical, got.SkillGaps[0].Importance)
	assert.Equal(t, ImportanceNiceToHave, got.SkillGaps[1].Importance)
	assert.Equal(t, ImportanceImportant, got.SkillGaps[2].Importance)

	require.Len(t, got.ProjectRecommendations, 1)
	assert.Equal(t, PriorityMedium, got.ProjectRecommendations[0].Priority)
	assert.Equal(t, "Not specified", got.ProjectRecommendations[0].EstimatedTime)
	assert.Equal(t, []string{}, got.ProjectRecommendations[0].SkillsCovered)

	require.Len(t, got.LearningPath, 3)
	assert.Equal(t, ResourceCourse, got.LearningPath[0].ResourceType)
	assert.Equal(t, 5, got.LearningPath[0].Priority)
	assert.Equal(t, ResourceDocumentation, got.LearningPath[1].ResourceType)
	assert.Equal(t, 1, got.LearningPath[1].Priority)
	assert.Equal(t, 3, got.LearningPath[2].Priority)

	require.Len(t, got.ImprovementActions, 2)
	assert.Equal(t, CategorySkills, got.ImprovementActions[0].Category)
	assert.Equal(t, ImpactMedium, got.ImprovementActions[0].Impact)
	assert.Equal(t, TimeframeWeeks, got.ImprovementActions[0].Timeframe)
	assert.Equal(t, TimeframeMonths, got.ImprovementActions[1].Timeframe)
}

func TestNormalizeATSKeywords(t *testing.T) {
	req := Request{ResumeText: "Jane Smith.\nGo", TargetRole: "Dev"}
	tests := []struct {
		name string
		raw  string
		want ATSKeywords
	}{
		{
			name: "partial lists kept",
			raw:  `{"atsKeywords": {"missing": ["Docker"]}}`,
			want: ATSKeywords{Present: []string{}, Missing: []string{"Docker"}, Suggestions: []string{}},
		},
		{
			name: "non array falls back",
			raw:  `{"atsKeywords": {"present": "Go"}}`,
			want: ATSKeywords{Present: []string{"Jane Smith", "Go"}, Missing: []string{}, Suggestions: []string{}},
		},
		{
			name: "empty object falls back",
			raw:  `{"atsKeywords": {}}`,
			want: ATSKeywords{Present: []string{"Jane Smith", "Go"}, Missing: []string{}, Suggestions: []string{}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := testNormalizer().Normalize(req, json.RawMessage(tt.raw), CauseNone)
			assert.Equal(t, tt.want, got.ATSKeywords)
		})
	}
}

func TestNormalizeIgnoresNonObjectBodies(t *testing.T) {
	req := Request{ResumeText: "Jane Smith", TargetRole: "Dev"}
	for _, raw := range []string{`[1,2]`, `"text"`, `{broken`} {
		got := testNormalizer().Normalize(req, json.RawMessage(raw), CauseNone)
		assert.Equal(t, "Jane Smith", got.CandidateName)
		assert.Len(t, got.SkillGaps, 1)
		assert.NotEmpty(t, got.Summary)
	}
}

func TestNormalizeEmptyListsGetPlaceholders(t *testing.T) {
	raw := json.RawMessage(`{"skillGaps": [], "projectRecommendations": [], "learningPath": [], "improvementActions": []}`)
	got := testNormalizer().Normalize(Request{ResumeText: "r", TargetRole: "Dev"}, raw, CauseNone)
	assert.Len(t, got.SkillGaps, 1)
	assert.Len(t, got.ProjectRecommendations, 1)
	assert.Len(t, got.LearningPath, 1)
	assert.Len(t, got.ImprovementActions, 1)
}

func TestMinimalReport(t *testing.T) {
	got := testNormalizer().minimalReport(Request{ResumeText: "Jane Smith\nengineer", TargetRole: "Engineer"})
	assert.Equal(t, "Jane Smith", got.CandidateName)
	assert.Equal(t, float64(100), got.RelevanceScore.Overall)
	assert.Equal(t, "Unable to analyze", got.SkillGaps[0].Skill)
	assert.Equal(t, DefaultCompany, got.TargetCompany)
}

func TestNormalizeLearningPriorityClampsLargeValues(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{raw: `1e300`, want: 5},
		{raw: `9.3e18`, want: 5},
		{raw: `"1e30"`, want: 5},
		{raw: `-1e300`, want: 1},
		{raw: `4.4`, want: 4},
		{raw: `4.5`, want: 5},
		{raw: `"NaN"`, want: defaultLearningPriority},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeLearningPriority(gjson.Parse(tt.raw)))
		})
	}
}
