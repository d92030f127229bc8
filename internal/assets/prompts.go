package assets

import (
	"bytes"
	_ "embed"
	"fmt"
	"text/template"
)

// SceneAnalysisPrompt asks the vision model for the two-part scene overview
// and annotation instructions JSON.
//
//go:embed prompts/scene-analysis.txt
var SceneAnalysisPrompt string

//go:embed prompts/veo3-spec.txt
var veo3SpecTemplate string

// template.Must panics on malformed templates, catching errors at program
// startup rather than at call time.
var veo3SpecTmpl = template.Must(template.New("veo3-spec").Option("missingkey=error").Parse(veo3SpecTemplate))

// Veo3PromptData holds the dynamic data injected into the Veo3 spec prompt.
type Veo3PromptData struct {
	// UserPrompt is embedded verbatim; no escaping is applied.
	UserPrompt string
}

// RenderVeo3SpecPrompt renders the finalize instruction for the given video
// description.
func RenderVeo3SpecPrompt(userPrompt string) (string, error) {
	var buf bytes.Buffer
	if err := veo3SpecTmpl.Execute(&buf, Veo3PromptData{UserPrompt: userPrompt}); err != nil {
		return "", fmt.Errorf("failed to render veo3 spec prompt: %w", err)
	}
	return buf.String(), nil
}
