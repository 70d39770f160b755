// Package report renders analyses for the terminal.
package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/tollgate-risk/internal/cli"
	"github.com/Veraticus/tollgate-risk/internal/engine"
	"github.com/Veraticus/tollgate-risk/internal/model"
	"github.com/Veraticus/tollgate-risk/internal/service"
	"github.com/Veraticus/tollgate-risk/internal/speed"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// DefaultLedgerRows caps the ledger table in the summary view.
const DefaultLedgerRows = 20

// CLIFormatter renders analyses as styled terminal text.
type CLIFormatter struct {
	styles     *Styles
	ledgerRows int
}

// NewCLIFormatter creates a formatter showing at most ledgerRows trips;
// zero or less shows them all.
func NewCLIFormatter(ledgerRows int) *CLIFormatter {
	return &CLIFormatter{
		styles:     NewStyles(),
		ledgerRows: ledgerRows,
	}
}

// FormatAnalysis renders the whole analysis: header, risk report, speed
// legs and the trip ledger.
func (f *CLIFormatter) FormatAnalysis(a *engine.Analysis) string {
	if a == nil {
		return f.styles.Error.Render("No analysis available")
	}

	sections := []string{f.formatHeader(a)}
	if a.Synthetic {
		sections = append(sections, cli.FormatWarning("The statement could not be read; demonstration data is shown instead."))
	}
	sections = append(sections,
		f.FormatRisk(a.Report),
		f.FormatSpeed(a.Legs, a.Speed),
		f.FormatLedger(a.Trips),
	)
	return strings.Join(sections, "\n\n")
}

func (f *CLIFormatter) formatHeader(a *engine.Analysis) string {
	title := cli.FormatTitle("Toll Statement Risk Report")

	source := fmt.Sprintf("Source: %s", a.Source)
	if a.Format != "" {
		source += fmt.Sprintf(" (%s)", a.Format)
	}

	meta := fmt.Sprintf("Session: %s  Trips: %d  Dropped rows: %d",
		a.SessionID, len(a.Trips), a.Dropped)
	if !a.GeneratedAt.IsZero() {
		meta += "  Generated: " + a.GeneratedAt.Format(time.RFC3339)
	}

	return fmt.Sprintf("%s\n%s\n%s", title, f.styles.Subtitle.UnsetMargins().Render(source), f.styles.Subtle.Render(meta))
}

// FormatRisk renders the factor table followed by the total and profile.
func (f *CLIFormatter) FormatRisk(r model.RiskReport) string {
	rows := make([][]string, 0, len(r.Factors))
	for _, fc := range r.Factors {
		rows = append(rows, []string{
			string(fc.Parameter),
			fc.Observation,
			fc.RiskLevel.String(),
			FormatAdjustment(fc.AdjustmentPercent),
		})
	}

	t := f.newTable("Parameter", "Observation", "Risk Level", "Adjustment").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return f.styles.Header
			}
			switch col {
			case 2:
				return f.styles.Cell.Inherit(cli.LevelStyle(r.Factors[row].RiskLevel))
			case 3:
				return f.styles.Cell.Inherit(cli.AdjustmentStyle(r.Factors[row].AdjustmentPercent))
			default:
				return f.styles.Cell
			}
		})

	total := f.styles.Total.Render("Total premium adjustment: " + FormatAdjustment(r.TotalAdjustmentPercent))
	if r.UnclampedAdjustmentPercent != r.TotalAdjustmentPercent {
		total += f.styles.Subtle.Render(fmt.Sprintf(" (capped from %s)", FormatAdjustment(r.UnclampedAdjustmentPercent)))
	}
	profile := "Driver profile: " + f.styles.Profile.Render(r.DriverProfile)

	return strings.Join([]string{
		f.styles.Title.Render(cli.ChartIcon + " Risk Factors"),
		t.Render(),
		f.styles.Box.Render(total + "\n" + profile),
	}, "\n")
}

// FormatSpeed renders inferred legs and their aggregates.
func (f *CLIFormatter) FormatSpeed(legs []model.SpeedLeg, summary speed.Summary) string {
	title := f.styles.Title.Render("Speed Legs")
	if len(legs) == 0 {
		return title + "\n" + f.styles.Subtle.Render("No consecutive crossings at adjacent gates, so no speeds could be inferred.")
	}

	rows := make([][]string, 0, len(legs))
	for _, l := range legs {
		status := "ok"
		if !l.WithinLimit {
			status = "OVER"
		}
		rows = append(rows, []string{
			l.Date,
			l.StartTime + " - " + l.EndTime,
			l.Route,
			formatFloat(l.DistanceKm, 1),
			formatFloat(l.TimeHours*60, 1),
			formatFloat(l.SpeedKmh, 1),
			formatFloat(l.SpeedLimitKmh, 0),
			status,
		})
	}

	t := f.newTable("Date", "Window", "Route", "km", "min", "km/h", "Limit", "").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return f.styles.Header
			}
			if col == 7 && !legs[row].WithinLimit {
				return f.styles.Cell.Inherit(f.styles.Error)
			}
			return f.styles.Cell
		})

	stats := fmt.Sprintf("%d legs, %d over the limit, average %s km/h, max %s km/h",
		summary.Legs, summary.Violations, formatFloat(summary.AverageKmh, 1), formatFloat(summary.MaxKmh, 1))

	return strings.Join([]string{title, t.Render(), f.styles.Subtle.Render(stats)}, "\n")
}

// FormatLedger renders the trip ledger, truncated to the configured rows.
func (f *CLIFormatter) FormatLedger(trips []model.TripRecord) string {
	title := f.styles.Title.Render(fmt.Sprintf("Trip Ledger (%d trips)", len(trips)))

	shown := trips
	if f.ledgerRows > 0 && len(shown) > f.ledgerRows {
		shown = shown[:f.ledgerRows]
	}

	t := f.newTable("#", "Date", "Time", "Toll Gate", "Direction", "Amount").
		Rows(TripRows(shown)...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return f.styles.Header
			}
			if shown[row].TollGate == model.UnknownGate {
				return f.styles.Cell.Inherit(f.styles.Subtle)
			}
			return f.styles.Cell
		})

	out := title + "\n" + t.Render()
	if hidden := len(trips) - len(shown); hidden > 0 {
		out += "\n" + f.styles.Subtle.Render(fmt.Sprintf("... %d more trips (use --json or --interactive to see all)", hidden))
	}
	return out
}

// FormatSessions renders stored sessions.
func (f *CLIFormatter) FormatSessions(sessions []service.SessionInfo) string {
	if len(sessions) == 0 {
		return f.styles.Subtle.Render("No saved sessions.")
	}
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, []string{s.ID, s.UpdatedAt.Local().Format("2006-01-02 15:04"), strconv.Itoa(s.Artifacts)})
	}
	return f.newTable("Session", "Updated", "Artifacts").Rows(rows...).
		StyleFunc(f.plainStyle).Render()
}

// FormatGates renders the toll network reference.
func (f *CLIFormatter) FormatGates(gates []model.TollGateInfo) string {
	rows := make([][]string, 0, len(gates))
	for _, g := range gates {
		rows = append(rows, []string{
			strconv.Itoa(g.RouteOrder),
			g.Name,
			string(g.Kind),
			formatFloat(g.SpeedLimitKmh, 0),
			formatFloat(g.DistanceToNextKm, 1),
		})
	}
	return f.newTable("Order", "Gate", "Kind", "Limit (km/h)", "To next (km)").Rows(rows...).
		StyleFunc(f.plainStyle).Render()
}

// TripRows converts trips into display cells.
func TripRows(trips []model.TripRecord) [][]string {
	rows := make([][]string, 0, len(trips))
	for _, t := range trips {
		rows = append(rows, []string{
			strconv.Itoa(t.ID),
			orDash(t.Date),
			orDash(t.Time),
			t.TollGate,
			orDash(t.Direction),
			t.Amount.StringFixed(2),
		})
	}
	return rows
}

// FormatAdjustment renders a signed percentage such as "+1.5%" or "-2%".
func FormatAdjustment(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if v > 0 {
		s = "+" + s
	}
	return s + "%"
}

func (f *CLIFormatter) newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(f.styles.Border).
		Headers(headers...)
}

func (f *CLIFormatter) plainStyle(row, _ int) lipgloss.Style {
	if row == table.HeaderRow {
		return f.styles.Header
	}
	return f.styles.Cell
}

func formatFloat(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
