package display

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dyike/BondCortex/models"
)

// Report renders a run as a markdown document.
func Report(request, recommendation string, turns []models.TranscriptTurn) string {
	var b strings.Builder
	b.WriteString("# Portfolio Recommendation\n\n")
	b.WriteString("## Request\n\n")
	b.WriteString(strings.TrimSpace(request))
	b.WriteString("\n\n## Recommendation\n\n")
	b.WriteString(strings.TrimSpace(recommendation))
	b.WriteString("\n")

	if len(turns) == 0 {
		return b.String()
	}

	b.WriteString("\n## Transcript\n")
	for i, turn := range turns {
		label := turn.Role
		if turn.Name != "" {
			label += " (" + turn.Name + ")"
		}
		fmt.Fprintf(&b, "\n### %d. %s\n\n", i+1, label)
		if content := strings.TrimSpace(turn.Content); content != "" {
			b.WriteString(content)
			b.WriteString("\n")
		}
		for _, call := range turn.ToolCalls {
			fmt.Fprintf(&b, "\n- `%s` `%s` (%s)\n", call.Name, call.Args, call.ID)
		}
	}
	return b.String()
}

// WriteReport writes content to dir/fileName, creating dir when needed, and
// returns the written path.
func WriteReport(dir, fileName, content string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, fileName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write file %s: %w", path, err)
	}
	return path, nil
}
