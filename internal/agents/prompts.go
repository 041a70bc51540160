package agents

import (
	"context"
	"embed"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed prompts
var promptFiles embed.FS

// loadPrompt loads a role prompt from the embedded markdown files.
func loadPrompt(path string) (string, error) {
	content, err := promptFiles.ReadFile(fmt.Sprintf("prompts/%s.md", path))
	if err != nil {
		return "", fmt.Errorf("load prompt %s: %w", path, err)
	}
	return string(content), nil
}

// formatPrompt renders a role prompt with its context variables into the
// message list handed to the gateway.
func formatPrompt(ctx context.Context, path string, vars map[string]any) ([]*schema.Message, error) {
	tpl, err := loadPrompt(path)
	if err != nil {
		return nil, err
	}
	template := prompt.FromMessages(schema.FString, schema.UserMessage(tpl))
	messages, err := template.Format(ctx, vars)
	if err != nil {
		return nil, fmt.Errorf("format prompt %s: %w", path, err)
	}
	return messages, nil
}
