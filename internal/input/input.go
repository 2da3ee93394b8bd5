// Package input decodes the analysis job payload at the transport boundary.
package input

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"resume-gap-analyzer/internal/gapanalysis"
)

// MaxPayloadBytes bounds a decoded payload document.
const MaxPayloadBytes = 12 << 20

// Payload is the job input document. APIKey is accepted as an alias of
// NebiusAPIKey.
type Payload struct {
	ResumeText        string `json:"resumeText"`
	TargetRole        string `json:"targetRole"`
	TargetCompany     string `json:"targetCompany,omitempty"`
	ExperienceLevel   string `json:"experienceLevel,omitempty"`
	AdditionalContext string `json:"additionalContext,omitempty"`
	NebiusAPIKey      string `json:"nebiusApiKey,omitempty"`
	APIKey            string `json:"apiKey,omitempty"`
}

var errNoInput = &gapanalysis.InputError{Reason: "No input provided"}

// Decode reads one JSON payload from r.
func Decode(r io.Reader) (Payload, error) {
	if r == nil {
		return Payload{}, errNoInput
	}
	raw, err := io.ReadAll(io.LimitReader(r, MaxPayloadBytes))
	if err != nil {
		return Payload{}, fmt.Errorf("read input: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a payload document. Empty documents and JSON null are
// reported as missing input.
func Parse(raw []byte) (Payload, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return Payload{}, errNoInput
	}
	var p Payload
	if err := json.Unmarshal([]byte(trimmed), &p); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return Payload{}, &gapanalysis.InputError{Field: typeErr.Field, Reason: "must be a " + typeErr.Type.String()}
		}
		return Payload{}, &gapanalysis.InputError{Reason: "malformed JSON: " + err.Error()}
	}
	return p, nil
}

// ReadFile decodes the payload stored at path.
func ReadFile(path string) (Payload, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Payload{}, errNoInput
		}
		return Payload{}, fmt.Errorf("open input %s: %w", path, err)
	}
	defer f.Close()
	return Decode(f)
}

// Request validates the payload and returns the normalized analysis request.
func (p Payload) Request() (gapanalysis.Request, error) {
	req := gapanalysis.Request{
		ResumeText:        p.ResumeText,
		TargetRole:        p.TargetRole,
		TargetCompany:     p.TargetCompany,
		ExperienceLevel:   p.ExperienceLevel,
		AdditionalContext: p.AdditionalContext,
	}
	if err := req.Validate(); err != nil {
		return gapanalysis.Request{}, err
	}
	return req.Normalize(), nil
}

// Credential returns the payload-supplied key, preferring nebiusApiKey.
func (p Payload) Credential() string {
	if key := strings.TrimSpace(p.NebiusAPIKey); key != "" {
		return key
	}
	return strings.TrimSpace(p.APIKey)
}

// ResolveCredential prefers the environment value over the payload value.
func ResolveCredential(envValue, payloadValue string) string {
	if v := strings.TrimSpace(envValue); v != "" {
		return v
	}
	return strings.TrimSpace(payloadValue)
}
