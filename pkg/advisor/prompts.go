package advisor

import (
	_ "embed"
)

//go:embed prompts/system_prompt.md
var systemPrompt string

// GetSystemPrompt returns the default system prompt for advise sessions
func GetSystemPrompt() string {
	return systemPrompt
}
