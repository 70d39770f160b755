package risk

import (
	"log/slog"
	"math"
	"strings"

	"github.com/Veraticus/tollgate-risk/internal/model"
	"github.com/Veraticus/tollgate-risk/internal/speed"
)

// AdjustmentCap bounds the visible premium adjustment in both directions.
const AdjustmentCap = 8.0

// Evaluate scores every dimension and aggregates them into a report. It is
// a pure function of its inputs.
func Evaluate(network GateKinds, trips []model.TripRecord, legs []model.SpeedLeg, th Thresholds, synthetic bool) model.RiskReport {
	in := Input{
		Network:    network,
		Trips:      trips,
		Legs:       legs,
		Speed:      speed.Summarize(legs),
		Thresholds: th,
	}

	factors := make([]model.RiskFactor, 0, len(dimensions))
	sum := 0.0
	for _, d := range dimensions {
		f := d.Evaluate(in)
		factors = append(factors, f)
		sum += f.AdjustmentPercent
	}

	unclamped := round1(sum)
	total := ClampAdjustment(unclamped)

	report := model.RiskReport{
		Factors:                    factors,
		TotalAdjustmentPercent:     total,
		UnclampedAdjustmentPercent: finiteOr(unclamped, total),
		Synthetic:                  synthetic,
	}
	report.DriverProfile = Profile(network, trips, total)

	slog.Debug("Evaluated risk",
		"trips", len(trips),
		"legs", len(legs),
		"unclamped_percent", report.UnclampedAdjustmentPercent,
		"total_percent", total,
		"profile", report.DriverProfile,
		"synthetic", synthetic)

	return report
}

// ClampAdjustment bounds v to [-AdjustmentCap, AdjustmentCap]. NaN maps to 0.
func ClampAdjustment(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(-AdjustmentCap, math.Min(AdjustmentCap, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func finiteOr(v, fallback float64) float64 {
	if finite(v) {
		return v
	}
	return fallback
}

// Profile composes the driver label from route, time, frequency and risk
// character, in that order.
func Profile(network GateKinds, trips []model.TripRecord, total float64) string {
	var parts []string
	for _, frag := range []string{
		routeCharacter(network, trips),
		timeCharacter(trips),
		frequencyCharacter(trips),
		riskCharacter(total),
	} {
		if frag != "" {
			parts = append(parts, frag)
		}
	}
	return strings.Join(append(parts, "Driver"), " ")
}

func routeCharacter(network GateKinds, trips []model.TripRecord) string {
	urban, highway := gateMix(network, trips)
	switch {
	case urban == 0 && highway == 0:
		return ""
	case float64(urban) > 1.5*float64(highway):
		return "Urban"
	case float64(highway) > 1.5*float64(urban):
		return "Highway"
	default:
		return "Mixed-Route"
	}
}

func timeCharacter(trips []model.TripRecord) string {
	n := len(trips)
	if n == 0 {
		return ""
	}
	weekend := 0
	for _, t := range trips {
		if w, ok := t.IsWeekend(); ok && w {
			weekend++
		}
	}
	switch {
	case share(len(tripsInHours(trips, isNightHour)), n) > 0.30:
		return "Night"
	case share(len(tripsInHours(trips, isPeakHour)), n) > 0.50:
		return "Rush-Hour"
	case share(weekend, n) > 0.50:
		return "Weekend"
	default:
		return ""
	}
}

// frequencyCharacter rates trips per active day. Undated trips count toward
// the numerator but never add a day.
func frequencyCharacter(trips []model.TripRecord) string {
	days := len(activeDays(trips))
	if days == 0 {
		return ""
	}

	perDay := float64(len(trips)) / float64(days)
	switch {
	case perDay > 2.5:
		return "Frequent"
	case perDay < 1:
		return "Occasional"
	default:
		return ""
	}
}

func riskCharacter(total float64) string {
	switch {
	case total < -5:
		return "Safe"
	case total >= 0 && total <= 5:
		return "Average"
	case total > 5:
		return "Moderate-Risk"
	default:
		return "Cautious"
	}
}
