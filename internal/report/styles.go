package report

import (
	"github.com/Veraticus/tollgate-risk/internal/cli"
	"github.com/charmbracelet/lipgloss"
)

// Styles contains all styling definitions for report formatting.
type Styles struct {
	// Base styles from CLI package
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Success  lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style
	Info     lipgloss.Style
	Subtle   lipgloss.Style
	Normal   lipgloss.Style

	// Report-specific styles
	Box     lipgloss.Style
	Total   lipgloss.Style
	Profile lipgloss.Style
	Header  lipgloss.Style
	Cell    lipgloss.Style
	Border  lipgloss.Style
}

// NewStyles creates a new Styles instance with default styling.
func NewStyles() *Styles {
	s := &Styles{
		Title:    cli.TitleStyle,
		Subtitle: cli.SubtitleStyle,
		Success:  cli.SuccessStyle,
		Warning:  cli.WarningStyle,
		Error:    cli.ErrorStyle,
		Info:     cli.InfoStyle,
		Subtle:   cli.SubtleStyle,
		Normal:   lipgloss.NewStyle(),
	}

	s.Box = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(cli.SubtleColor).
		Padding(0, 1)

	s.Total = lipgloss.NewStyle().
		Bold(true).
		Foreground(cli.PrimaryColor)

	s.Profile = lipgloss.NewStyle().
		Bold(true).
		Italic(true)

	s.Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(cli.PrimaryColor).
		Padding(0, 1)

	s.Cell = lipgloss.NewStyle().Padding(0, 1)

	s.Border = lipgloss.NewStyle().Foreground(cli.SubtleColor)

	return s
}
