// Package prompt holds the advisor instruction and the search prompt template.
package prompt

import (
	"context"
	"embed"
	"fmt"
	"os"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed prompts
var promptFiles embed.FS

// Load returns an embedded prompt by name, without the .md suffix.
func Load(name string) (string, error) {
	content, err := promptFiles.ReadFile(fmt.Sprintf("prompts/%s.md", name))
	if err != nil {
		return "", fmt.Errorf("failed to load prompt %s: %w", name, err)
	}
	return strings.TrimSpace(string(content)), nil
}

// AdvisorInstruction returns the system instruction prepended to every
// conversation. A non-empty path replaces the built-in text with the file's
// contents.
func AdvisorInstruction(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return Load("advisor")
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read instructions: %w", err)
	}
	text := strings.TrimSpace(string(content))
	if text == "" {
		return "", fmt.Errorf("instructions file %s is empty", path)
	}
	return text, nil
}

// SearchTemplate returns the single-shot exchange sent by the bond search:
// a system turn carrying the dataset under {bonds} and a user turn with {query}.
func SearchTemplate() (prompt.ChatTemplate, error) {
	systemTpl, err := Load("search")
	if err != nil {
		return nil, err
	}
	return prompt.FromMessages(schema.FString,
		schema.SystemMessage(systemTpl),
		schema.UserMessage("{query}"),
	), nil
}

// SearchVariables are the template values for one search.
func SearchVariables(datasetJSON, query string) map[string]any {
	return map[string]any{
		"bonds": datasetJSON,
		"query": query,
	}
}

// SearchMessages formats the search exchange directly.
func SearchMessages(ctx context.Context, datasetJSON, query string) ([]*schema.Message, error) {
	tpl, err := SearchTemplate()
	if err != nil {
		return nil, err
	}
	return tpl.Format(ctx, SearchVariables(datasetJSON, query))
}
