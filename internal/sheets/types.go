package sheets

import (
	"github.com/Veraticus/tollgate-risk/internal/model"
	"github.com/shopspring/decimal"
)

// Tab names written by the exporter.
const (
	TabTrips = "Trips"
	TabSpeed = "Speed"
	TabRisk  = "Risk"
)

// TripRow is a single row in the Trips tab.
type TripRow struct {
	Date      string
	Time      string
	TollGate  string
	Direction string
	Amount    decimal.Decimal
	ID        int
}

// SpeedRow is a single row in the Speed tab.
type SpeedRow struct {
	Date       string
	StartTime  string
	EndTime    string
	Route      string
	DistanceKm float64
	Minutes    float64
	SpeedKmh   float64
	LimitKmh   float64
	Status     string
}

// FactorRow is a single row in the Risk tab.
type FactorRow struct {
	Parameter   string
	Observation string
	Level       string
	Adjustment  float64
}

func tripRow(t model.TripRecord) TripRow {
	return TripRow{
		ID:        t.ID,
		Date:      t.Date,
		Time:      t.Time,
		TollGate:  t.TollGate,
		Direction: t.Direction,
		Amount:    t.Amount,
	}
}

func speedRow(l model.SpeedLeg) SpeedRow {
	status := "Within limit"
	if !l.WithinLimit {
		status = "Over limit"
	}
	return SpeedRow{
		Date:       l.Date,
		StartTime:  l.StartTime,
		EndTime:    l.EndTime,
		Route:      l.Route,
		DistanceKm: l.DistanceKm,
		Minutes:    l.TimeHours * 60,
		SpeedKmh:   l.SpeedKmh,
		LimitKmh:   l.SpeedLimitKmh,
		Status:     status,
	}
}

func factorRow(f model.RiskFactor) FactorRow {
	return FactorRow{
		Parameter:   string(f.Parameter),
		Observation: f.Observation,
		Level:       f.RiskLevel.String(),
		Adjustment:  f.AdjustmentPercent,
	}
}
