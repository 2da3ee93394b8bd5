package llm

import (
	_ "embed"
	"strings"
)

const DefaultPromptVersion = "v1"

var (
	//go:embed prompts/v1_system.txt
	promptV1System string
	//go:embed prompts/v1_user.txt
	promptV1User string
)

// Template holds the raw system and user prompt templates for a version.
type Template struct {
	Version string
	System  string
	User    string
}

// PromptTemplate returns the templates and whether the version was recognized.
// Unknown versions fall back to v1.
func PromptTemplate(version string) (Template, bool) {
	switch strings.TrimSpace(version) {
	case "v1", "":
		return Template{Version: "v1", System: strings.TrimSpace(promptV1System), User: strings.TrimSpace(promptV1User)}, true
	default:
		return Template{Version: "v1", System: strings.TrimSpace(promptV1System), User: strings.TrimSpace(promptV1User)}, false
	}
}
