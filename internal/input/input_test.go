package input

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-gap-analyzer/internal/gapanalysis"
)

func TestDecodeAndRequest(t *testing.T) {
	p, err := Decode(strings.NewReader(`{
		"resumeText": "  Jane Smith\nEngineer ",
		"targetRole": " Software Engineer ",
		"targetCompany": "Acme",
		"additionalContext": "",
		"apiKey": "payload-key"
	}`))
	require.NoError(t, err)

	req, err := p.Request()
	require.NoError(t, err)
	assert.Equal(t, gapanalysis.Request{
		ResumeText:      "Jane Smith\nEngineer",
		TargetRole:      "Software Engineer",
		TargetCompany:   "Acme",
		ExperienceLevel: "mid",
	}, req)
	assert.Equal(t, "payload-key", p.Credential())
}

func TestCredentialPrefersNebiusKey(t *testing.T) {
	p := Payload{NebiusAPIKey: " nebius ", APIKey: "alias"}
	assert.Equal(t, "nebius", p.Credential())
}

func TestDecodeMissingInput(t *testing.T) {
	for _, doc := range []string{"", "   ", "null"} {
		_, err := Decode(strings.NewReader(doc))
		require.Error(t, err)
		assert.True(t, gapanalysis.IsInputError(err))
		assert.Equal(t, "invalid input: No input provided", err.Error())
	}
	_, err := Decode(nil)
	assert.True(t, gapanalysis.IsInputError(err))
}

func TestDecodeMalformed(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"resumeText": `))
	require.Error(t, err)
	assert.True(t, gapanalysis.IsInputError(err))
	assert.Contains(t, err.Error(), "malformed JSON")

	_, err = Decode(strings.NewReader(`{"resumeText": 42, "targetRole": "Dev"}`))
	var inputErr *gapanalysis.InputError
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, "resumeText", inputErr.Field)
}

func TestRequestValidation(t *testing.T) {
	_, err := Payload{ResumeText: "r"}.Request()
	assert.EqualError(t, err, "invalid input: targetRole is required")

	_, err = Payload{TargetRole: "Dev", ResumeText: "\n\t"}.Request()
	assert.EqualError(t, err, "invalid input: resumeText is required")
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "INPUT.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"resumeText":"r","targetRole":"Dev","experienceLevel":"senior"}`), 0o644))

	p, err := ReadFile(path)
	require.NoError(t, err)
	req, err := p.Request()
	require.NoError(t, err)
	assert.Equal(t, "senior", req.ExperienceLevel)

	_, err = ReadFile(filepath.Join(dir, "missing.json"))
	assert.True(t, gapanalysis.IsInputError(err))
}

func TestResolveCredential(t *testing.T) {
	assert.Equal(t, "env", ResolveCredential(" env ", "payload"))
	assert.Equal(t, "payload", ResolveCredential("  ", "payload"))
	assert.Equal(t, "", ResolveCredential("", ""))
}
