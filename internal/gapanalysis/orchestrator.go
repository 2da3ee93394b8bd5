package gapanalysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"resume-gap-analyzer/internal/llm"
	"resume-gap-analyzer/internal/shared/metrics"
	"resume-gap-analyzer/internal/shared/telemetry"
)

// CredentialPolicy decides what happens when no completion-service credential
// is available.
type CredentialPolicy string

const (
	// PolicyLenient produces a heuristic report.
	PolicyLenient CredentialPolicy = "lenient"
	// PolicyStrict aborts with ErrMissingCredential.
	PolicyStrict CredentialPolicy = "strict"
	// PolicyDemo produces the canned sample analysis.
	PolicyDemo CredentialPolicy = "demo"
)

// ParsePolicy normalizes a configured policy name. Unknown values are lenient.
func ParsePolicy(raw string) CredentialPolicy {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "strict":
		return PolicyStrict
	case "demo":
		return PolicyDemo
	default:
		return PolicyLenient
	}
}

// Orchestrator sequences prompt construction, the completion call, the
// heuristic fallback and normalization.
type Orchestrator struct {
	// Service is nil when no credential is configured.
	Service        llm.Client
	Provider       string
	Policy         CredentialPolicy
	Retry          RetryPolicy
	PromptVersion  string
	CredentialName string
	Now            func() time.Time
}

// Ready reports ErrMissingCredential when the policy forbids running without
// a completion service.
func (o *Orchestrator) Ready() error {
	if o.Service == nil && o.policy() == PolicyStrict {
		return ErrMissingCredential
	}
	return nil
}

// Analyze validates req and always produces a report once validation passes,
// except under PolicyStrict without a configured service. Completion failures
// are recorded in Outcome.ServiceErr, never returned.
func (o *Orchestrator) Analyze(ctx context.Context, req Request) (out Outcome, err error) {
	if err := req.Validate(); err != nil {
		return Outcome{}, err
	}
	req = req.Normalize()
	if err := o.Ready(); err != nil {
		return Outcome{}, err
	}

	started := o.now()
	requestID := telemetry.RequestID(ctx)
	normalizer := Normalizer{Now: o.Now, CredentialName: o.CredentialName}
	attempts := 0

	defer func() {
		if rec := recover(); rec != nil {
			telemetry.Error("analysis.normalize_failed", map[string]any{
				"request_id": requestID,
				"error":      fmt.Sprint(rec),
			})
			out = Outcome{
				Report:     normalizer.minimalReport(req),
				Mode:       ModeFallback,
				ServiceErr: fmt.Errorf("normalize: %v", rec),
				Attempts:   attempts,
			}
			err = nil
		}
		out.Duration = o.now().Sub(started)
	}()

	var (
		raw    json.RawMessage
		svcErr error
		cause  = CauseNoCredential
		mode   = ModeHeuristic
	)
	switch {
	case o.Service != nil:
		prompt := BuildPrompt(o.PromptVersion, req, started)
		svc := retryingService{base: o.Service, policy: o.Retry, provider: o.Provider, requestID: requestID}
		raw, attempts, svcErr = svc.complete(ctx, prompt)
		if svcErr != nil {
			raw = nil
			cause = CauseServiceFailure
			mode = ModeFallback
			metrics.IncAnalysisServiceErrors(o.Provider)
			telemetry.Error("analysis.service_error", map[string]any{
				"request_id": requestID,
				"provider":   o.Provider,
				"attempts":   attempts,
				"error":      sanitizeError(svcErr),
			})
		} else {
			cause = CauseNone
			mode = ModeAI
		}
	case o.policy() == PolicyDemo:
		raw = demoResult(req)
		mode = ModeDemo
		telemetry.Warn("analysis.fallback", map[string]any{"request_id": requestID, "mode": string(mode)})
	default:
		telemetry.Warn("analysis.fallback", map[string]any{
			"request_id": requestID,
			"mode":       string(mode),
			"reason":     "credential not configured",
		})
	}

	report := normalizer.Normalize(req, raw, cause)
	return Outcome{
		Report:     report,
		Mode:       mode,
		ServiceErr: svcErr,
		Attempts:   attempts,
	}, nil
}

func (o *Orchestrator) policy() CredentialPolicy {
	if o.Policy == "" {
		return PolicyLenient
	}
	return o.Policy
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}
