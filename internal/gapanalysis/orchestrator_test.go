package gapanalysis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-gap-analyzer/internal/llm"
)

const aiBody = `{
	"candidateName": "Jane Smith",
	"relevanceScore": {"overall": 81, "skills": 75, "experience": 85, "atsCompatibility": 78},
	"skillGaps": [{"skill": "Terraform", "importance": "important", "reason": "infra as code"}],
	"atsKeywords": {"present": ["Python"], "missing": ["Terraform"], "suggestions": []},
	"projectRecommendations": [{"title": "IaC lab", "description": "d", "skillsCovered": ["Terraform"], "estimatedTime": "2 weeks", "priority": "medium"}],
	"learningPath": [{"topic": "Terraform", "resourceType": "documentation", "estimatedTime": "1 week", "priority": 1}],
	"improvementActions": [{"action": "Quantify impact", "category": "experience", "impact": "high", "timeframe": "1-2 weeks"}],
	"summary": "Strong match."
}`

func newTestOrchestrator(client llm.Client, policy CredentialPolicy) *Orchestrator {
	o := &Orchestrator{
		Provider:       "nebius",
		Policy:         policy,
		Retry:          RetryPolicy{MaxAttempts: 1, Delay: time.Millisecond},
		PromptVersion:  llm.DefaultPromptVersion,
		CredentialName: "NEBIUS_API_KEY",
		Now:            func() time.Time { return fixedNow },
	}
	if client != nil {
		o.Service = client
	}
	return o
}

func janeRequest() Request {
	return Request{
		ResumeText: "Jane Smith\n- Software Engineer with Python",
		TargetRole: "Software Engineer",
	}
}

func TestAnalyzeUsesServiceResult(t *testing.T) {
	client := &fakeClient{replies: []fakeReply{{body: aiBody}}}
	o := newTestOrchestrator(client, PolicyLenient)

	out, err := o.Analyze(context.Background(), Request{
		ResumeText:      "Jane Smith\nPython",
		TargetRole:      "Platform Engineer",
		TargetCompany:   "Acme",
		ExperienceLevel: "senior",
	})

	require.NoError(t, err)
	assert.Equal(t, ModeAI, out.Mode)
	assert.Equal(t, 1, out.Attempts)
	assert.NoError(t, out.ServiceErr)
	assert.Equal(t, float64(81), out.Report.RelevanceScore.Overall)
	assert.Equal(t, "Acme", out.Report.TargetCompany)
	assert.Equal(t, "Strong match.", out.Report.Summary)
	require.Len(t, client.prompts, 1)
	assert.Contains(t, client.prompts[0].User, `"Platform Engineer" at Acme`)
}

func TestAnalyzeFallsBackOnInvalidJSON(t *testing.T) {
	client := &fakeClient{replies: []fakeReply{{body: "I cannot help with that."}}}
	o := newTestOrchestrator(client, PolicyLenient)

	out, err := o.Analyze(context.Background(), janeRequest())

	require.NoError(t, err)
	assert.Equal(t, ModeFallback, out.Mode)
	var svcErr *llm.ServiceError
	require.ErrorAs(t, out.ServiceErr, &svcErr)
	assert.Equal(t, float64(100), out.Report.RelevanceScore.Overall)
	assert.Equal(t, "Unable to analyze", out.Report.SkillGaps[0].Skill)
	assert.Equal(t, "Retry analysis with a valid NEBIUS_API_KEY", out.Report.ImprovementActions[0].Action)
	assert.Len(t, out.Report.SkillGaps, 1)
	assert.Len(t, out.Report.ProjectRecommendations, 1)
	assert.Len(t, out.Report.LearningPath, 1)
	assert.Len(t, out.Report.ImprovementActions, 1)
	assert.NotEmpty(t, out.Report.ProjectRecommendations[0].Title)
	assert.NotEmpty(t, out.Report.LearningPath[0].Topic)
}

func TestAnalyzeLenientWithoutCredential(t *testing.T) {
	o := newTestOrchestrator(nil, PolicyLenient)

	out, err := o.Analyze(context.Background(), janeRequest())

	require.NoError(t, err)
	assert.Equal(t, ModeHeuristic, out.Mode)
	assert.Equal(t, 0, out.Attempts)
	r := out.Report
	assert.Equal(t, "Jane Smith", r.CandidateName)
	assert.Equal(t, "Software Engineer", r.TargetRole)
	assert.Equal(t, DefaultCompany, r.TargetCompany)
	assert.Equal(t, "mid", r.ExperienceLevel)
	assert.Equal(t, "2025-01-02T03:04:05Z", r.AnalysisDate)
	assert.Equal(t, RelevanceScore{Overall: 100}, r.RelevanceScore)
	assert.Equal(t, []string{"Jane Smith", "Software Engineer", "Python"}, r.ATSKeywords.Present)
}

func TestAnalyzeZeroOverlapScore(t *testing.T) {
	o := newTestOrchestrator(nil, PolicyLenient)

	out, err := o.Analyze(context.Background(), Request{ResumeText: "abc", TargetRole: "X Y"})

	require.NoError(t, err)
	assert.Equal(t, float64(0), out.Report.RelevanceScore.Overall)
	assert.Equal(t, "abc", out.Report.CandidateName)
	assert.Equal(t, []string{}, out.Report.ATSKeywords.Present)
}

func TestAnalyzeStrictWithoutCredential(t *testing.T) {
	o := newTestOrchestrator(nil, PolicyStrict)

	_, err := o.Analyze(context.Background(), janeRequest())

	assert.ErrorIs(t, err, ErrMissingCredential)
}

func TestAnalyzeStrictIgnoredWhenServiceConfigured(t *testing.T) {
	client := &fakeClient{replies: []fakeReply{{body: aiBody}}}
	o := newTestOrchestrator(client, PolicyStrict)

	out, err := o.Analyze(context.Background(), janeRequest())

	require.NoError(t, err)
	assert.Equal(t, ModeAI, out.Mode)
}

func TestAnalyzeDemoPolicy(t *testing.T) {
	o := newTestOrchestrator(nil, PolicyDemo)

	out, err := o.Analyze(context.Background(), Request{
		ResumeText: "Jane Smith\nfull stack developer",
		TargetRole: "Full Stack Developer",
	})

	require.NoError(t, err)
	assert.Equal(t, ModeDemo, out.Mode)
	r := out.Report
	assert.Equal(t, RelevanceScore{Overall: 100, Skills: 90, Experience: 95, ATSCompatibility: 85}, r.RelevanceScore)
	require.Len(t, r.SkillGaps, 2)
	assert.Equal(t, ImportanceCritical, r.SkillGaps[1].Importance)
	assert.Equal(t, []string{"CI/CD", "Docker", "Kubernetes", "microservices", "system design"}, r.ATSKeywords.Missing)
	assert.Contains(t, r.Summary, "mid-level foundation")
}

func TestAnalyzeRejectsInvalidInput(t *testing.T) {
	o := newTestOrchestrator(nil, PolicyLenient)

	_, err := o.Analyze(context.Background(), Request{ResumeText: "  ", TargetRole: "Dev"})
	require.Error(t, err)
	assert.True(t, IsInputError(err))
	assert.EqualError(t, err, "invalid input: resumeText is required")

	_, err = o.Analyze(context.Background(), Request{ResumeText: "r"})
	assert.EqualError(t, err, "invalid input: targetRole is required")
}

func TestAnalyzeRecoversFromPanics(t *testing.T) {
	client := &fakeClient{replies: []fakeReply{{panic: "boom"}}}
	o := newTestOrchestrator(client, PolicyLenient)

	out, err := o.Analyze(context.Background(), janeRequest())

	require.NoError(t, err)
	assert.Equal(t, ModeFallback, out.Mode)
	assert.Error(t, out.ServiceErr)
	assert.Equal(t, "Jane Smith", out.Report.CandidateName)
	assert.Len(t, out.Report.ATSKeywords.Present, 3)
}

func TestParsePolicy(t *testing.T) {
	assert.Equal(t, PolicyStrict, ParsePolicy(" STRICT "))
	assert.Equal(t, PolicyDemo, ParsePolicy("demo"))
	assert.Equal(t, PolicyLenient, ParsePolicy(""))
	assert.Equal(t, PolicyLenient, ParsePolicy("unknown"))
}

func TestReady(t *testing.T) {
	assert.ErrorIs(t, newTestOrchestrator(nil, PolicyStrict).Ready(), ErrMissingCredential)
	assert.NoError(t, newTestOrchestrator(nil, PolicyLenient).Ready())
	assert.NoError(t, newTestOrchestrator(&fakeClient{replies: []fakeReply{{body: "{}"}}}, PolicyStrict).Ready())
}
