// Package assets provides embedded static assets for the application.
//
// Prompt text lives under prompts/ and is embedded at compile time so the
// wording sent to the models is versioned with the code that parses the
// replies.
package assets

import "embed"

//go:embed prompts/*.txt
var promptFS embed.FS

// PromptNames lists the embedded prompt files.
func PromptNames() []string {
	entries, err := promptFS.ReadDir("prompts")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
