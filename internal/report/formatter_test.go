package report

import (
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/tollgate-risk/internal/engine"
	"github.com/Veraticus/tollgate-risk/internal/model"
	"github.com/Veraticus/tollgate-risk/internal/service"
	"github.com/Veraticus/tollgate-risk/internal/speed"
	"github.com/Veraticus/tollgate-risk/internal/tollnet"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func testTrips(n int) []model.TripRecord {
	trips := make([]model.TripRecord, n)
	for i := range trips {
		trips[i] = model.TripRecord{
			ID:        i + 1,
			Date:      "2024-03-04",
			Time:      "08:00:00 AM",
			TollGate:  "Al Barsha",
			Direction: "Eastbound",
			Amount:    decimal.NewFromInt(4),
		}
	}
	return trips
}

func testAnalysis() *engine.Analysis {
	legs := []model.SpeedLeg{
		{Date: "2024-03-04", StartTime: "08:00:00 AM", EndTime: "08:05:00 AM", Route: "Al Barsha → Al Safa South",
			DistanceKm: 9.5, TimeHours: 5.0 / 60, SpeedKmh: 114, SpeedLimitKmh: 100},
	}
	return &engine.Analysis{
		SessionID:   "s-1",
		Source:      "statement.csv",
		Format:      "delimited",
		GeneratedAt: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
		Trips:       testTrips(3),
		Legs:        legs,
		Speed:       speed.Summarize(legs),
		Report: model.RiskReport{
			DriverProfile: "Highway Occasional Cautious Driver",
			Factors: []model.RiskFactor{
				{Parameter: model.DimensionFrequency, Observation: "3 trips", RiskLevel: model.RiskVeryLow, AdjustmentPercent: -2},
				{Parameter: model.DimensionSpeed, Observation: "1 violation", RiskLevel: model.RiskLow},
				{Parameter: model.DimensionNight, Observation: "50% at night", RiskLevel: model.RiskVeryHigh, AdjustmentPercent: 2.5},
			},
			TotalAdjustmentPercent:     0.5,
			UnclampedAdjustmentPercent: 0.5,
		},
	}
}

func TestFormatAnalysis(t *testing.T) {
	f := NewCLIFormatter(DefaultLedgerRows)

	out := f.FormatAnalysis(testAnalysis())
	for _, want := range []string{
		"Toll Statement Risk Report",
		"statement.csv (delimited)",
		"Session: s-1",
		"Driving Frequency",
		"Very High",
		"+2.5%",
		"-2%",
		"Total premium adjustment: +0.5%",
		"Highway Occasional Cautious Driver",
		"Al Barsha → Al Safa South",
		"OVER",
		"1 legs, 1 over the limit",
		"Trip Ledger (3 trips)",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "demonstration data")
	assert.NotContains(t, out, "capped from")

	assert.Contains(t, f.FormatAnalysis(nil), "No analysis available")
}

func TestFormatAnalysis_SyntheticAndCapped(t *testing.T) {
	a := testAnalysis()
	a.Synthetic = true
	a.Report.TotalAdjustmentPercent = 8
	a.Report.UnclampedAdjustmentPercent = 11.5

	out := NewCLIFormatter(0).FormatAnalysis(a)
	assert.Contains(t, out, "demonstration data")
	assert.Contains(t, out, "capped from +11.5%")
}

func TestFormatSpeed_NoLegs(t *testing.T) {
	out := NewCLIFormatter(0).FormatSpeed(nil, speed.Summary{})
	assert.Contains(t, out, "no speeds could be inferred")
}

func TestFormatLedger_Truncates(t *testing.T) {
	out := NewCLIFormatter(5).FormatLedger(testTrips(12))
	assert.Contains(t, out, "Trip Ledger (12 trips)")
	assert.Contains(t, out, "7 more trips")

	out = NewCLIFormatter(0).FormatLedger(testTrips(12))
	assert.NotContains(t, out, "more trips")
	assert.Equal(t, 12, strings.Count(out, "Al Barsha"))
}

func TestFormatSessions(t *testing.T) {
	f := NewCLIFormatter(0)
	assert.Contains(t, f.FormatSessions(nil), "No saved sessions")

	out := f.FormatSessions([]service.SessionInfo{{ID: "abc-123", Artifacts: 6, UpdatedAt: time.Now()}})
	assert.Contains(t, out, "abc-123")
	assert.Contains(t, out, "6")
}

func TestFormatGates(t *testing.T) {
	out := NewCLIFormatter(0).FormatGates(tollnet.Default().Gates())
	assert.Contains(t, out, "Jebel Ali")
	assert.Contains(t, out, "Al Mamzar North")
	assert.Contains(t, out, "urban")
}

func TestTripRows(t *testing.T) {
	trips := []model.TripRecord{{ID: 7, TollGate: model.UnknownGate, Amount: decimal.RequireFromString("4.5")}}
	assert.Equal(t, [][]string{{"7", "-", "-", model.UnknownGate, "-", "4.50"}}, TripRows(trips))
}

func TestFormatAdjustment(t *testing.T) {
	tests := []struct {
		want string
		in   float64
	}{
		{"+1.5%", 1.5},
		{"-8%", -8},
		{"0%", 0},
		{"+0.3%", 0.3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatAdjustment(tt.in))
	}
}
