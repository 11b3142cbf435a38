package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	welcomeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7C3AED")).
			Bold(true).
			Align(lipgloss.Center).
			Width(80).
			MarginBottom(1)

	taglineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Italic(true).
			Align(lipgloss.Center).
			Width(80).
			MarginBottom(1)

	thinkingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B"))
)

// DisplayWelcomeBanner shows the welcome banner
func DisplayWelcomeBanner() {
	banner := `
 ____                  _  ____           _
| __ )  ___  _ __   __| |/ ___|___  _ __| |_ _____  __
|  _ \ / _ \| '_ \ / _' | |   / _ \| '__| __/ _ \ \/ /
| |_) | (_) | | | | (_| | |__| (_) | |  | ||  __/>  <
|____/ \___/|_| |_|\__,_|\____\___/|_|   \__\___/_/\_\
`

	fmt.Print(welcomeStyle.Render(banner))
	fmt.Println()
	fmt.Print(taglineStyle.Render("Describe your goals and get a bond portfolio recommendation"))
	fmt.Println()
}
