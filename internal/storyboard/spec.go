package storyboard

import "encoding/json"

// Veo3Spec is the video generation spec authored by the vision model. Its
// schema is advisory; the only guarantee is that it is a JSON object.
type Veo3Spec map[string]any

// Prompt returns the top-level generation prompt, if the model supplied one.
func (s Veo3Spec) Prompt() string {
	p, _ := s["prompt"].(string)
	return p
}

// Section returns a nested object such as "camera" or "timing".
func (s Veo3Spec) Section(name string) map[string]any {
	m, _ := s[name].(map[string]any)
	return m
}

// MarshalIndent renders the spec for display.
func (s Veo3Spec) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(map[string]any(s), "", "  ")
}
