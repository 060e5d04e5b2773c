package transcript

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title      lipgloss.Style
	header     lipgloss.Style
	burst      lipgloss.Style
	section    lipgloss.Style
	empty      lipgloss.Style
	timestamp  lipgloss.Style
	user       lipgloss.Style
	speaker    lipgloss.Style
	narration  lipgloss.Style
	content    lipgloss.Style
	fallback   lipgloss.Style
	avatar     lipgloss.Style
	status     lipgloss.Style
	attrKey    lipgloss.Style
	barBracket lipgloss.Style
	barFill    lipgloss.Style
	barEmpty   lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:      lipgloss.NewStyle().Bold(true),
		header:     lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		burst:      lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true),
		section:    lipgloss.NewStyle().MarginTop(1),
		empty:      lipgloss.NewStyle().Faint(true),
		timestamp:  lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		user:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("69")),
		speaker:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		narration:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		content:    lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		fallback:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		avatar:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229")).Background(lipgloss.Color("61")).Padding(0, 1),
		status:     lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		attrKey:    lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		barBracket: lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		barFill:    lipgloss.NewStyle().Foreground(lipgloss.Color("159")),
		barEmpty:   lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
	}
}
