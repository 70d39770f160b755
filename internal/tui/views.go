package tui

import (
	"fmt"
	"strings"

	"github.com/Veraticus/tollgate-risk/internal/report"
	"github.com/charmbracelet/lipgloss"
)

func (m Model) render() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")

	if m.drill != nil {
		f := m.analysis.Report.Factors[m.drillFactor]
		b.WriteString(m.theme.Bold.Render(string(f.Parameter)))
		b.WriteString(m.theme.Subtitle.Render("  " + f.Observation))
		b.WriteString("\n")
		b.WriteString(m.drill.View())
	} else {
		b.WriteString(m.tables[m.view].View())
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keymap))
	return b.String()
}

func (m Model) renderHeader() string {
	r := m.analysis.Report
	total := fmt.Sprintf("Premium adjustment %s", report.FormatAdjustment(r.TotalAdjustmentPercent))

	totalStyle := m.theme.StatusInfo
	switch {
	case r.TotalAdjustmentPercent < 0:
		totalStyle = m.theme.StatusSuccess
	case r.TotalAdjustmentPercent > 0:
		totalStyle = m.theme.StatusWarning
	}

	line := lipgloss.JoinHorizontal(lipgloss.Top,
		m.theme.Bold.Render(m.analysis.Source),
		"  ",
		totalStyle.Render(total),
		"  ",
		m.theme.Normal.Render(r.DriverProfile),
	)
	if m.analysis.Synthetic {
		line += "\n" + m.theme.StatusError.Render("Demonstration data: the statement could not be read")
	}
	return m.theme.RoundedBox.Width(max(m.width-2, 20)).Render(line)
}

func (m Model) renderTabs() string {
	tabs := make([]string, 0, viewCount)
	for v := View(0); v < viewCount; v++ {
		label := v.String()
		switch v {
		case ViewTrips:
			label += fmt.Sprintf(" (%d)", len(m.analysis.Trips))
		case ViewSpeed:
			label += fmt.Sprintf(" (%d)", len(m.analysis.Legs))
		}
		if v == m.view {
			tabs = append(tabs, m.theme.TabActive.Render(label))
		} else {
			tabs = append(tabs, m.theme.TabInactive.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}
