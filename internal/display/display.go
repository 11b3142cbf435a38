// Package display renders advisor output for the terminal.
package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/dyike/BondCortex/consts"
	"github.com/dyike/BondCortex/models"
)

const maxWidth = 78

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED"))

	recommendationStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("#10B981")).
				Padding(1, 2).
				Width(maxWidth + 4)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6")).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	roleStyles = map[string]lipgloss.Style{
		consts.RoleSystem:    lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")),
		consts.RoleUser:      lipgloss.NewStyle().Foreground(lipgloss.Color("#3B82F6")).Bold(true),
		consts.RoleAssistant: lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true),
		consts.RoleTool:      lipgloss.NewStyle().Foreground(lipgloss.Color("#8B5CF6")),
	}

	toolCallStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	infoStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#3B82F6"))
)

// Recommendation prints the advisor's answer. Answers are usually markdown;
// when rendering fails the raw text is boxed instead.
func Recommendation(w io.Writer, text string) {
	fmt.Fprintln(w, titleStyle.Render("📊 PORTFOLIO RECOMMENDATION"))
	rendered, err := RenderMarkdown(text)
	if err != nil {
		fmt.Fprintln(w, recommendationStyle.Render(strings.TrimSpace(text)))
		return
	}
	fmt.Fprint(w, rendered)
}

// RenderMarkdown renders markdown content for terminal display using glamour.
func RenderMarkdown(content string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(maxWidth),
	)
	if err != nil {
		return content, err
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content, err
	}
	return rendered, nil
}

// Transcript prints every turn, including tool requests and tool results.
func Transcript(w io.Writer, turns []models.TranscriptTurn) {
	fmt.Fprintln(w, titleStyle.Render("🧾 TRANSCRIPT"))
	for i, turn := range turns {
		style, ok := roleStyles[turn.Role]
		if !ok {
			style = lipgloss.NewStyle()
		}
		label := strings.ToUpper(turn.Role)
		if turn.Name != "" {
			label += " (" + turn.Name + ")"
		}
		fmt.Fprintf(w, "%2d %s\n", i+1, style.Render(label))

		content := turn.Content
		if turn.Role == consts.RoleSystem {
			content = truncate(content, 160)
		}
		for _, line := range wrap(content, "   ") {
			fmt.Fprintln(w, line)
		}
		for _, call := range turn.ToolCalls {
			fmt.Fprintln(w, toolCallStyle.Render(fmt.Sprintf("   → %s %s [%s]", call.Name, call.Args, call.ID)))
		}
	}
}

// BondTable renders the dataset as a table with one row per bond.
func BondTable(dataset *models.BondDataset) string {
	headers := []string{"Issuer", "ISIN", "Rating", "Ccy", "Coupon", "Yield", "Ask", "Maturity"}

	rows := make([][]string, 0, dataset.Len())
	for _, b := range dataset.Bonds() {
		maturity := ""
		if !b.MaturityDate.IsZero() {
			maturity = b.MaturityDate.Format(models.DateLayout)
		}
		rows = append(rows, []string{
			b.Issuer,
			b.ISIN,
			b.CreditRating,
			b.Currency,
			formatPercent(b.Coupon.Valid, b.Coupon.Decimal.StringFixed(3)),
			formatPercent(b.Yield.Valid, b.Yield.Decimal.StringFixed(2)),
			formatValue(b.AskPrice.Valid, b.AskPrice.Decimal.StringFixed(2)),
			maturity,
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	return t.Render()
}

func formatPercent(valid bool, value string) string {
	if !valid {
		return "-"
	}
	return value + "%"
}

func formatValue(valid bool, value string) string {
	if !valid {
		return "-"
	}
	return value
}

// DisplayError shows formatted error messages
func DisplayError(w io.Writer, err error, context string) {
	fmt.Fprintln(w, errorStyle.Render(fmt.Sprintf("❌ Error in %s:", context)))
	fmt.Fprintf(w, "   %v\n", err)
}

func DisplaySuccess(w io.Writer, message string) {
	fmt.Fprintln(w, successStyle.Render("✅ "+message))
}

func DisplayInfo(w io.Writer, message string) {
	fmt.Fprintln(w, infoStyle.Render("ℹ️  "+message))
}

// wrap splits text into indented lines no longer than maxWidth, keeping
// paragraph breaks.
func wrap(text, indent string) []string {
	var out []string
	for _, paragraph := range strings.Split(text, "\n") {
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			continue
		}
		line := indent + words[0]
		for _, word := range words[1:] {
			if len(line)+1+len(word) > maxWidth {
				out = append(out, line)
				line = indent + word
				continue
			}
			line += " " + word
		}
		out = append(out, line)
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(strings.Join(strings.Fields(s), " "))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "…"
}
