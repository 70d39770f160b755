package risk

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"

	"github.com/Veraticus/tollgate-risk/internal/model"
	"github.com/Veraticus/tollgate-risk/internal/speed"
)

// GateKinds classifies a gate as urban or highway.
type GateKinds interface {
	Kind(name string) model.GateKind
}

// Input is everything a dimension may look at.
type Input struct {
	Network    GateKinds
	Trips      []model.TripRecord
	Legs       []model.SpeedLeg
	Speed      speed.Summary
	Thresholds Thresholds
}

// Dimension evaluates one risk factor. Dimensions are pure and independent.
type Dimension struct {
	Name     model.Dimension
	Evaluate func(Input) model.RiskFactor
}

var dimensions = []Dimension{
	{Name: model.DimensionFrequency, Evaluate: frequencyFactor},
	{Name: model.DimensionPeakHours, Evaluate: peakHoursFactor},
	{Name: model.DimensionNight, Evaluate: nightFactor},
	{Name: model.DimensionSpeed, Evaluate: speedFactor},
	{Name: model.DimensionRoute, Evaluate: routeFactor},
	{Name: model.DimensionWeekendMix, Evaluate: weekendMixFactor},
	{Name: model.DimensionDistance, Evaluate: distanceFactor},
	{Name: model.DimensionDrivingStyle, Evaluate: drivingStyleFactor},
}

// Dimensions returns the registered dimensions in report order.
func Dimensions() []Dimension {
	return slices.Clone(dimensions)
}

// Hour windows, [start, end) on a 24h clock.
func isPeakHour(h int) bool  { return (h >= 6 && h < 10) || (h >= 16 && h < 20) }
func isNightHour(h int) bool { return h >= 23 || h < 6 }

func share(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}

func pct(f float64) string {
	return strconv.FormatFloat(f*100, 'f', 1, 64) + "%"
}

func frequencyFactor(in Input) model.RiskFactor {
	th := in.Thresholds.Frequency
	days := activeDays(in.Trips)
	n := len(in.Trips)
	level := th.Level(float64(n))

	breakdown := []model.BreakdownItem{
		{Label: "Total trips", Value: strconv.Itoa(n)},
		{Label: "Active days", Value: strconv.Itoa(len(days))},
	}
	if len(days) > 0 {
		breakdown = append(breakdown, model.BreakdownItem{
			Label: "Trips per active day",
			Value: strconv.FormatFloat(float64(n)/float64(len(days)), 'f', 1, 64),
		})
	}
	for _, d := range days {
		breakdown = append(breakdown, model.BreakdownItem{Label: d.date, Value: strconv.Itoa(d.trips)})
	}

	return model.RiskFactor{
		Parameter:         model.DimensionFrequency,
		Observation:       fmt.Sprintf("%d trips over %d active days", n, len(days)),
		RiskLevel:         level,
		AdjustmentPercent: th.Adjustments.For(level),
		DrillDown:         model.DrillDown{Breakdown: breakdown},
	}
}

type dayCount struct {
	date  string
	trips int
}

// activeDays counts trips per distinct date, in date order.
func activeDays(trips []model.TripRecord) []dayCount {
	counts := make(map[string]int)
	for _, t := range trips {
		if _, ok := t.ParsedDate(); ok {
			counts[t.Date]++
		}
	}
	days := make([]dayCount, 0, len(counts))
	for d, n := range counts {
		days = append(days, dayCount{date: d, trips: n})
	}
	slices.SortFunc(days, func(a, b dayCount) int {
		return cmp.Compare(a.date, b.date)
	})
	return days
}

// tripsInHours returns the trips whose clock hour satisfies match.
func tripsInHours(trips []model.TripRecord, match func(int) bool) []model.TripRecord {
	var out []model.TripRecord
	for _, t := range trips {
		if h, ok := t.Hour(); ok && match(h) {
			out = append(out, t)
		}
	}
	return out
}

func hourShareFactor(in Input, dim model.Dimension, th Ladder, match func(int) bool, window string) model.RiskFactor {
	hits := tripsInHours(in.Trips, match)
	frac := share(len(hits), len(in.Trips))
	level := th.Level(frac)

	drill := model.DrillDown{Trips: hits}
	if len(hits) == 0 {
		drill = model.DrillDown{Breakdown: []model.BreakdownItem{
			{Label: "Trips in " + window, Value: "0"},
			{Label: "Total trips", Value: strconv.Itoa(len(in.Trips))},
		}}
	}

	return model.RiskFactor{
		Parameter:         dim,
		Observation:       fmt.Sprintf("%s of trips (%d of %d) in %s", pct(frac), len(hits), len(in.Trips), window),
		RiskLevel:         level,
		AdjustmentPercent: th.Adjustments.For(level),
		DrillDown:         drill,
	}
}

func peakHoursFactor(in Input) model.RiskFactor {
	return hourShareFactor(in, model.DimensionPeakHours, in.Thresholds.PeakHours, isPeakHour,
		"06:00-10:00 or 16:00-20:00")
}

func nightFactor(in Input) model.RiskFactor {
	return hourShareFactor(in, model.DimensionNight, in.Thresholds.NightDriving, isNightHour,
		"23:00-06:00")
}

func speedFactor(in Input) model.RiskFactor {
	s := in.Speed
	penalty := in.Thresholds.Speed.Penalty

	f := model.RiskFactor{Parameter: model.DimensionSpeed}
	switch v := s.Violations; {
	case s.Legs == 0:
		f.RiskLevel, f.AdjustmentPercent = model.RiskLow, 0
	case v == 0:
		f.RiskLevel, f.AdjustmentPercent = model.RiskVeryLow, -penalty/2
	case v == 1:
		f.RiskLevel, f.AdjustmentPercent = model.RiskLow, 0
	case v == 2:
		f.RiskLevel, f.AdjustmentPercent = model.RiskMedium, penalty*0.25
	case v == 3:
		f.RiskLevel, f.AdjustmentPercent = model.RiskMedium, penalty*0.5
	case v == 4:
		f.RiskLevel, f.AdjustmentPercent = model.RiskHigh, penalty*0.75
	default:
		f.RiskLevel, f.AdjustmentPercent = model.RiskVeryHigh, penalty
	}

	if s.Legs == 0 {
		f.Observation = "Not enough data: no consecutive crossings at adjacent gates"
	} else {
		f.Observation = fmt.Sprintf("%d of %d legs over the limit, average %.1f km/h, max %.1f km/h",
			s.Violations, s.Legs, s.AverageKmh, s.MaxKmh)
	}

	breakdown := []model.BreakdownItem{
		{Label: "Speed legs", Value: strconv.Itoa(s.Legs)},
		{Label: "Violations", Value: strconv.Itoa(s.Violations)},
		{Label: "Average speed", Value: fmt.Sprintf("%.1f km/h", s.AverageKmh)},
		{Label: "Maximum speed", Value: fmt.Sprintf("%.1f km/h", s.MaxKmh)},
	}
	for _, l := range speed.Violations(in.Legs) {
		breakdown = append(breakdown, model.BreakdownItem{
			Label: fmt.Sprintf("%s %s %s", l.Date, l.StartTime, l.Route),
			Value: fmt.Sprintf("%.1f km/h (limit %.0f)", l.SpeedKmh, l.SpeedLimitKmh),
		})
	}
	f.DrillDown = model.DrillDown{Breakdown: breakdown}
	return f
}

// gateMix counts trips through urban and highway gates; unknown gates count
// toward neither.
func gateMix(network GateKinds, trips []model.TripRecord) (urban, highway int) {
	if network == nil {
		return 0, 0
	}
	for _, t := range trips {
		switch network.Kind(t.TollGate) {
		case model.GateUrban:
			urban++
		case model.GateHighway:
			highway++
		}
	}
	return urban, highway
}

func routeFactor(in Input) model.RiskFactor {
	urban, highway := gateMix(in.Network, in.Trips)
	penalty := in.Thresholds.Route.UrbanPenalty

	f := model.RiskFactor{Parameter: model.DimensionRoute}
	switch {
	case urban == 0 && highway == 0:
		f.RiskLevel, f.AdjustmentPercent = model.RiskLow, 0
		f.Observation = "No trips through recognized gates"
	case urban > 2*highway:
		f.RiskLevel, f.AdjustmentPercent = model.RiskHigh, penalty
		f.Observation = fmt.Sprintf("Urban-dominant: %d urban vs %d highway trips", urban, highway)
	case urban > highway:
		f.RiskLevel, f.AdjustmentPercent = model.RiskMedium, penalty/2
		f.Observation = fmt.Sprintf("Mostly urban: %d urban vs %d highway trips", urban, highway)
	default:
		f.RiskLevel, f.AdjustmentPercent = model.RiskLow, 0
		f.Observation = fmt.Sprintf("Highway or balanced: %d urban vs %d highway trips", urban, highway)
	}

	f.DrillDown = model.DrillDown{Breakdown: []model.BreakdownItem{
		{Label: "Urban gate trips", Value: strconv.Itoa(urban)},
		{Label: "Highway gate trips", Value: strconv.Itoa(highway)},
		{Label: "Unrecognized gate trips", Value: strconv.Itoa(len(in.Trips) - urban - highway)},
	}}
	return f
}

func weekendMixFactor(in Input) model.RiskFactor {
	th := in.Thresholds.WeekendMix
	weekend, dated := 0, 0
	for _, t := range in.Trips {
		w, ok := t.IsWeekend()
		if !ok {
			continue
		}
		dated++
		if w {
			weekend++
		}
	}
	frac := share(weekend, dated)

	f := model.RiskFactor{Parameter: model.DimensionWeekendMix}
	switch {
	case dated == 0:
		f.RiskLevel, f.AdjustmentPercent = model.RiskLow, 0
		f.Observation = "Not enough data: no dated trips"
	case frac >= th.Target-th.Band && frac <= th.Target+th.Band:
		f.RiskLevel, f.AdjustmentPercent = model.RiskLow, -th.Reward
		f.Observation = fmt.Sprintf("Balanced: %s of trips on weekends", pct(frac))
	case frac < th.Target:
		f.RiskLevel, f.AdjustmentPercent = model.RiskMedium, th.Penalty
		f.Observation = fmt.Sprintf("Weekday-heavy: %s of trips on weekends", pct(frac))
	default:
		f.RiskLevel, f.AdjustmentPercent = model.RiskMedium, th.Penalty
		f.Observation = fmt.Sprintf("Weekend-heavy: %s of trips on weekends", pct(frac))
	}

	f.DrillDown = model.DrillDown{Breakdown: []model.BreakdownItem{
		{Label: "Weekday trips", Value: strconv.Itoa(dated - weekend)},
		{Label: "Weekend trips", Value: strconv.Itoa(weekend)},
		{Label: "Weekend share", Value: pct(frac)},
		{Label: "Target", Value: fmt.Sprintf("%s ± %s", pct(th.Target), pct(th.Band))},
	}}
	return f
}

func distanceFactor(in Input) model.RiskFactor {
	th := in.Thresholds.Distance
	n := float64(len(in.Trips))
	lowKm, highKm := n*th.KmPerTripMin, n*th.KmPerTripMax

	var level model.RiskLevel
	switch {
	case highKm < th.MediumKm:
		level = model.RiskLow
	case highKm < th.HighKm:
		level = model.RiskMedium
	default:
		level = model.RiskHigh
	}

	return model.RiskFactor{
		Parameter:         model.DimensionDistance,
		Observation:       fmt.Sprintf("Estimated %.0f-%.0f km over %d trips", lowKm, highKm, len(in.Trips)),
		RiskLevel:         level,
		AdjustmentPercent: th.Adjustments.For(level),
		DrillDown: model.DrillDown{Breakdown: []model.BreakdownItem{
			{Label: "Trips", Value: strconv.Itoa(len(in.Trips))},
			{Label: "Estimated minimum", Value: fmt.Sprintf("%.0f km", lowKm)},
			{Label: "Estimated maximum", Value: fmt.Sprintf("%.0f km", highKm)},
			{Label: "Medium from", Value: fmt.Sprintf("%.0f km", th.MediumKm)},
			{Label: "High from", Value: fmt.Sprintf("%.0f km", th.HighKm)},
		}},
	}
}

func drivingStyleFactor(in Input) model.RiskFactor {
	reward := in.Thresholds.DrivingStyle.Reward
	v := in.Speed.Violations

	f := model.RiskFactor{Parameter: model.DimensionDrivingStyle}
	switch {
	case v == 0:
		f.RiskLevel, f.AdjustmentPercent = model.RiskVeryLow, -reward
		f.Observation = "No speed violations recorded"
	case v <= 3:
		f.RiskLevel, f.AdjustmentPercent = model.RiskLow, -reward/2
		f.Observation = fmt.Sprintf("%d speed violations", v)
	default:
		f.RiskLevel, f.AdjustmentPercent = model.RiskHigh, 0
		f.Observation = fmt.Sprintf("%d speed violations, no safe-driving reward", v)
	}

	f.DrillDown = model.DrillDown{Breakdown: []model.BreakdownItem{
		{Label: "Violations", Value: strconv.Itoa(v)},
		{Label: "Speed legs", Value: strconv.Itoa(in.Speed.Legs)},
	}}
	return f
}
