package gapanalysis

import (
	"encoding/json"
	"fmt"
	"math"
)

// demoResult is the canned sample analysis served under PolicyDemo. It goes
// through the normalizer like a real completion body.
func demoResult(req Request) json.RawMessage {
	h := Heuristic(req.ResumeText, req.TargetRole)
	score := h.Score
	body := map[string]any{
		"candidateName": h.CandidateName,
		"relevanceScore": map[string]any{
			"overall":          score,
			"skills":           math.Max(0, score-10),
			"experience":       math.Max(0, score-5),
			"atsCompatibility": math.Max(0, score-15),
		},
		"skillGaps": []map[string]any{
			{
				"skill":      "Advanced system design",
				"importance": "critical",
				"reason":     "Required for senior roles - add portfolio projects demonstrating scalable architecture",
			},
			{
				"skill":      "Cloud infrastructure (AWS/GCP/Azure)",
				"importance": "high",
				"reason":     "Most modern full-stack roles require cloud deployment experience",
			},
		},
		"atsKeywords": map[string]any{
			"present":     firstUnique(h.PresentKeywords, keywordLimitNoCredential),
			"missing":     []string{"CI/CD", "Docker", "Kubernetes", "microservices", "system design"},
			"suggestions": []string{"Add cloud platform experience", "Include DevOps tools", "Highlight scalability achievements"},
		},
		"projectRecommendations": []map[string]any{
			{
				"title":         "Build a Microservices E-commerce Platform",
				"description":   "Create a full-stack application with separate services for auth, products, cart, and payments",
				"skillsCovered": []string{"microservices", "Docker", "Kubernetes", "API design"},
				"estimatedTime": "4-6 weeks",
				"priority":      "high",
			},
		},
		"learningPath": []map[string]any{
			{"topic": "System Design Fundamentals", "resourceType": "course", "estimatedTime": "3-4 weeks", "priority": 1},
			{"topic": "AWS Solutions Architect Associate", "resourceType": "certification", "estimatedTime": "2-3 months", "priority": 2},
		},
		"improvementActions": []map[string]any{
			{
				"action":    `Add quantifiable metrics to project descriptions (e.g., "improved performance by 40%")`,
				"category":  "resume-format",
				"impact":    "high",
				"timeframe": "immediate",
			},
			{
				"action":    "Include cloud deployment and DevOps experience in skills section",
				"category":  "skills",
				"impact":    "high",
				"timeframe": "immediate",
			},
		},
		"summary": fmt.Sprintf(
			"Resume shows solid %s-level foundation but lacks advanced technical depth for %s. Focus on system design, cloud infrastructure, and adding measurable impact metrics. Recommended: 2-3 months preparation with targeted learning and portfolio projects.",
			req.ExperienceLevel, req.TargetRole,
		),
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil
	}
	return raw
}
