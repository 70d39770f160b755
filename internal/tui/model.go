// Package tui is an interactive browser for a finished analysis.
package tui

import (
	"fmt"
	"strconv"

	"github.com/Veraticus/tollgate-risk/internal/engine"
	"github.com/Veraticus/tollgate-risk/internal/model"
	"github.com/Veraticus/tollgate-risk/internal/report"
	"github.com/Veraticus/tollgate-risk/internal/tui/themes"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
)

// View is one of the top-level tabs.
type View int

// Views in tab order.
const (
	ViewFactors View = iota
	ViewTrips
	ViewSpeed
	viewCount
)

func (v View) String() string {
	switch v {
	case ViewFactors:
		return "Risk Factors"
	case ViewTrips:
		return "Trips"
	case ViewSpeed:
		return "Speed"
	default:
		return "View(" + strconv.Itoa(int(v)) + ")"
	}
}

// chromeHeight is the rows taken by header, tabs and footer.
const chromeHeight = 9

// Model holds the browser state.
type Model struct {
	analysis *engine.Analysis
	theme    themes.Theme
	keymap   KeyMap
	help     help.Model
	tables   [viewCount]table.Model
	drill    *table.Model
	// drillFactor is the factor index the open drill-down belongs to.
	drillFactor int
	view        View
	width       int
	height      int
	quitting    bool
}

// New creates a browser over an analysis.
func New(a *engine.Analysis, theme themes.Theme) Model {
	m := Model{
		analysis: a,
		theme:    theme,
		keymap:   DefaultKeyMap(),
		help:     help.New(),
		width:    100,
		height:   30,
	}
	m.tables[ViewFactors] = m.newTable(factorColumns(), factorRows(a.Report.Factors))
	m.tables[ViewTrips] = m.newTable(tripColumns(), tripRows(a.Trips))
	m.tables[ViewSpeed] = m.newTable(speedColumns(), speedRows(a.Legs))
	m.focus()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		for i := range m.tables {
			m.tables[i].SetHeight(m.tableHeight())
		}
		if m.drill != nil {
			m.drill.SetHeight(m.tableHeight())
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keymap.ForceQuit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keymap.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}

		if m.drill != nil {
			if key.Matches(msg, m.keymap.Back) || key.Matches(msg, m.keymap.Quit) {
				m.drill = nil
				m.focus()
				return m, nil
			}
			t, cmd := m.drill.Update(msg)
			m.drill = &t
			return m, cmd
		}

		switch {
		case key.Matches(msg, m.keymap.Quit), key.Matches(msg, m.keymap.Back):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keymap.NextView):
			m.view = (m.view + 1) % viewCount
			m.focus()
			return m, nil
		case key.Matches(msg, m.keymap.PrevView):
			m.view = (m.view + viewCount - 1) % viewCount
			m.focus()
			return m, nil
		case key.Matches(msg, m.keymap.Select):
			if m.view == ViewFactors {
				m.openDrillDown()
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.tables[m.view], cmd = m.tables[m.view].Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return m.render()
}

// openDrillDown shows the trips or breakdown behind the selected factor.
func (m *Model) openDrillDown() {
	factors := m.analysis.Report.Factors
	i := m.tables[ViewFactors].Cursor()
	if i < 0 || i >= len(factors) {
		return
	}
	dd := factors[i].DrillDown

	var t table.Model
	if len(dd.Trips) > 0 {
		t = m.newTable(tripColumns(), tripRows(dd.Trips))
	} else {
		rows := make([]table.Row, 0, len(dd.Breakdown))
		for _, b := range dd.Breakdown {
			rows = append(rows, table.Row{b.Label, b.Value})
		}
		t = m.newTable([]table.Column{{Title: "Item", Width: 40}, {Title: "Value", Width: 30}}, rows)
	}
	t.Focus()
	m.tables[ViewFactors].Blur()
	m.drill = &t
	m.drillFactor = i
}

func (m *Model) focus() {
	for i := range m.tables {
		if View(i) == m.view {
			m.tables[i].Focus()
		} else {
			m.tables[i].Blur()
		}
	}
}

func (m Model) tableHeight() int {
	return max(m.height-chromeHeight, 3)
}

func (m Model) newTable(cols []table.Column, rows []table.Row) table.Model {
	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithHeight(m.tableHeight()),
	)
	s := table.DefaultStyles()
	s.Header = m.theme.TableHeader
	s.Selected = m.theme.Selected
	t.SetStyles(s)
	return t
}

func factorColumns() []table.Column {
	return []table.Column{
		{Title: "Parameter", Width: 22},
		{Title: "Observation", Width: 46},
		{Title: "Level", Width: 10},
		{Title: "Adj.", Width: 7},
	}
}

func factorRows(factors []model.RiskFactor) []table.Row {
	rows := make([]table.Row, 0, len(factors))
	for _, f := range factors {
		rows = append(rows, table.Row{
			string(f.Parameter),
			f.Observation,
			f.RiskLevel.String(),
			report.FormatAdjustment(f.AdjustmentPercent),
		})
	}
	return rows
}

func tripColumns() []table.Column {
	return []table.Column{
		{Title: "#", Width: 5},
		{Title: "Date", Width: 11},
		{Title: "Time", Width: 12},
		{Title: "Toll Gate", Width: 22},
		{Title: "Direction", Width: 12},
		{Title: "Amount", Width: 8},
	}
}

func tripRows(trips []model.TripRecord) []table.Row {
	cells := report.TripRows(trips)
	rows := make([]table.Row, len(cells))
	for i, c := range cells {
		rows[i] = c
	}
	return rows
}

func speedColumns() []table.Column {
	return []table.Column{
		{Title: "Date", Width: 11},
		{Title: "Start", Width: 12},
		{Title: "Route", Width: 36},
		{Title: "km/h", Width: 7},
		{Title: "Limit", Width: 6},
		{Title: "", Width: 5},
	}
}

func speedRows(legs []model.SpeedLeg) []table.Row {
	rows := make([]table.Row, 0, len(legs))
	for _, l := range legs {
		status := "ok"
		if !l.WithinLimit {
			status = "OVER"
		}
		rows = append(rows, table.Row{
			l.Date,
			l.StartTime,
			l.Route,
			fmt.Sprintf("%.1f", l.SpeedKmh),
			fmt.Sprintf("%.0f", l.SpeedLimitKmh),
			status,
		})
	}
	return rows
}

var _ tea.Model = Model{}

