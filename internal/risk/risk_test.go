package risk

import (
	"fmt"
	"math"
	"testing"

	"github.com/Veraticus/tollgate-risk/internal/common"
	"github.com/Veraticus/tollgate-risk/internal/model"
	"github.com/Veraticus/tollgate-risk/internal/tollnet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// balancedLedger builds 150 midday trips at a highway gate over ten active
// days, three of them on weekends.
func balancedLedger() []model.TripRecord {
	dates := []string{
		"2024-03-04", "2024-03-05", "2024-03-06", "2024-03-07", "2024-03-08",
		"2024-03-09", "2024-03-10", // weekend
		"2024-03-11", "2024-03-12",
		"2024-03-16", // weekend
	}
	var trips []model.TripRecord
	for _, d := range dates {
		for i := 0; i < 15; i++ {
			trips = append(trips, model.TripRecord{
				ID:       len(trips) + 1,
				Date:     d,
				Time:     "12:00:00 PM",
				TollGate: "Al Barsha",
			})
		}
	}
	return trips
}

func cleanLegs() []model.SpeedLeg {
	return []model.SpeedLeg{{
		Date: "2024-03-04", Route: "Al Barsha → Al Safa South",
		DistanceKm: 9.5, TimeHours: 0.1, SpeedKmh: 95, SpeedLimitKmh: 100, WithinLimit: true,
	}}
}

func violatingLegs(n int) []model.SpeedLeg {
	legs := make([]model.SpeedLeg, n)
	for i := range legs {
		legs[i] = model.SpeedLeg{Date: "2024-03-04", SpeedKmh: 130, SpeedLimitKmh: 100}
	}
	return legs
}

func TestEvaluate_HighFrequencyCleanBalancedLedger(t *testing.T) {
	th := DefaultThresholds()
	report := Evaluate(tollnet.Default(), balancedLedger(), cleanLegs(), th, false)

	require.Len(t, report.Factors, 8)
	for i, d := range Dimensions() {
		assert.Equal(t, d.Name, report.Factors[i].Parameter)
		assert.False(t, report.Factors[i].DrillDown.IsEmpty(), "%s has no drill-down", d.Name)
	}

	freq, _ := report.Factor(model.DimensionFrequency)
	assert.Equal(t, model.RiskVeryHigh, freq.RiskLevel)
	assert.InDelta(t, th.Frequency.Adjustments.VeryHigh, freq.AdjustmentPercent, 1e-9)

	spd, _ := report.Factor(model.DimensionSpeed)
	assert.Equal(t, model.RiskVeryLow, spd.RiskLevel)
	assert.Negative(t, spd.AdjustmentPercent)

	mix, _ := report.Factor(model.DimensionWeekendMix)
	assert.Equal(t, model.RiskLow, mix.RiskLevel)
	assert.Negative(t, mix.AdjustmentPercent)
	assert.Contains(t, mix.Observation, "Balanced")

	// 3 - 1 - 1 - 1.5 + 0 - 1 + 1.5 - 2
	assert.InDelta(t, -2.0, report.TotalAdjustmentPercent, 1e-9)
	assert.InDelta(t, -2.0, report.UnclampedAdjustmentPercent, 1e-9)
	assert.Equal(t, "Highway Frequent Cautious Driver", report.DriverProfile)
	assert.False(t, report.Synthetic)
}

func TestEvaluate_TotalIsClamped(t *testing.T) {
	tests := []struct {
		name      string
		veryHigh  float64
		wantTotal float64
		wantRaw   float64
	}{
		{name: "above cap", veryHigh: 50, wantTotal: 8, wantRaw: 45},
		{name: "below cap", veryHigh: -50, wantTotal: -8, wantRaw: -55},
		{name: "inside cap", veryHigh: 3, wantTotal: -2, wantRaw: -2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := DefaultThresholds()
			th.Frequency.Adjustments.VeryHigh = tt.veryHigh

			report := Evaluate(tollnet.Default(), balancedLedger(), cleanLegs(), th, false)
			assert.InDelta(t, tt.wantTotal, report.TotalAdjustmentPercent, 1e-9)
			assert.InDelta(t, tt.wantRaw, report.UnclampedAdjustmentPercent, 1e-9)
		})
	}
}

func TestEvaluate_SyntheticMarkerCarriesThrough(t *testing.T) {
	report := Evaluate(tollnet.Default(), balancedLedger()[:8], nil, DefaultThresholds(), true)
	assert.True(t, report.Synthetic)
}

func TestEvaluate_Deterministic(t *testing.T) {
	trips := balancedLedger()
	a := Evaluate(tollnet.Default(), trips, cleanLegs(), DefaultThresholds(), false)
	b := Evaluate(tollnet.Default(), trips, cleanLegs(), DefaultThresholds(), false)
	assert.Equal(t, a, b)
}

func TestEvaluate_EmptyLedger(t *testing.T) {
	report := Evaluate(tollnet.Default(), nil, nil, DefaultThresholds(), false)

	require.Len(t, report.Factors, 8)
	for _, f := range report.Factors {
		assert.False(t, f.DrillDown.IsEmpty(), "%s has no drill-down", f.Parameter)
		assert.False(t, math.IsNaN(f.AdjustmentPercent))
	}
	assert.GreaterOrEqual(t, report.TotalAdjustmentPercent, -AdjustmentCap)
	assert.LessOrEqual(t, report.TotalAdjustmentPercent, AdjustmentCap)
}

func TestSpeedFactor(t *testing.T) {
	th := DefaultThresholds() // penalty 3
	tests := []struct {
		name      string
		legs      []model.SpeedLeg
		wantLevel model.RiskLevel
		wantAdj   float64
		wantObs   string
	}{
		{name: "no legs", legs: nil, wantLevel: model.RiskLow, wantAdj: 0, wantObs: "Not enough data"},
		{name: "clean", legs: cleanLegs(), wantLevel: model.RiskVeryLow, wantAdj: -1.5},
		{name: "one violation", legs: violatingLegs(1), wantLevel: model.RiskLow, wantAdj: 0},
		{name: "two violations", legs: violatingLegs(2), wantLevel: model.RiskMedium, wantAdj: 0.75},
		{name: "three violations", legs: violatingLegs(3), wantLevel: model.RiskMedium, wantAdj: 1.5},
		{name: "four violations", legs: violatingLegs(4), wantLevel: model.RiskHigh, wantAdj: 2.25},
		{name: "five violations", legs: violatingLegs(5), wantLevel: model.RiskVeryHigh, wantAdj: 3},
		{name: "many violations", legs: violatingLegs(12), wantLevel: model.RiskVeryHigh, wantAdj: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := Evaluate(tollnet.Default(), balancedLedger(), tt.legs, th, false)
			f, ok := report.Factor(model.DimensionSpeed)
			require.True(t, ok)
			assert.Equal(t, tt.wantLevel, f.RiskLevel)
			assert.InDelta(t, tt.wantAdj, f.AdjustmentPercent, 1e-9)
			if tt.wantObs != "" {
				assert.Contains(t, f.Observation, tt.wantObs)
			}
		})
	}
}

func TestDrivingStyleFactor(t *testing.T) {
	th := DefaultThresholds() // reward 2
	tests := []struct {
		violations int
		want       float64
	}{
		{violations: 0, want: -2},
		{violations: 1, want: -1},
		{violations: 3, want: -1},
		{violations: 4, want: 0},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d violations", tt.violations), func(t *testing.T) {
			report := Evaluate(tollnet.Default(), balancedLedger(), violatingLegs(tt.violations), th, false)
			f, _ := report.Factor(model.DimensionDrivingStyle)
			assert.InDelta(t, tt.want, f.AdjustmentPercent, 1e-9)
		})
	}
}

func TestRouteFactor(t *testing.T) {
	mk := func(urban, highway, unknown int) []model.TripRecord {
		var trips []model.TripRecord
		add := func(gate string, n int) {
			for i := 0; i < n; i++ {
				trips = append(trips, model.TripRecord{ID: len(trips) + 1, Date: "2024-03-04", Time: "12:00:00 PM", TollGate: gate})
			}
		}
		add("Al Garhoud Bridge", urban)
		add("Jebel Ali", highway)
		add(model.UnknownGate, unknown)
		return trips
	}

	tests := []struct {
		name      string
		trips     []model.TripRecord
		wantLevel model.RiskLevel
		wantAdj   float64
	}{
		{name: "urban dominant", trips: mk(7, 3, 0), wantLevel: model.RiskHigh, wantAdj: 2},
		{name: "exactly double", trips: mk(6, 3, 0), wantLevel: model.RiskMedium, wantAdj: 1},
		{name: "mildly urban", trips: mk(4, 3, 0), wantLevel: model.RiskMedium, wantAdj: 1},
		{name: "balanced", trips: mk(3, 3, 0), wantLevel: model.RiskLow, wantAdj: 0},
		{name: "highway", trips: mk(0, 5, 0), wantLevel: model.RiskLow, wantAdj: 0},
		{name: "only unknown", trips: mk(0, 0, 5), wantLevel: model.RiskLow, wantAdj: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := routeFactor(Input{Network: tollnet.Default(), Trips: tt.trips, Thresholds: DefaultThresholds()})
			assert.Equal(t, tt.wantLevel, f.RiskLevel)
			assert.InDelta(t, tt.wantAdj, f.AdjustmentPercent, 1e-9)
		})
	}
}

func TestWeekendMixFactor(t *testing.T) {
	// 2024-03-04 is a Monday, 2024-03-09 a Saturday.
	mk := func(weekday, weekend int) []model.TripRecord {
		var trips []model.TripRecord
		for i := 0; i < weekday; i++ {
			trips = append(trips, model.TripRecord{Date: "2024-03-04"})
		}
		for i := 0; i < weekend; i++ {
			trips = append(trips, model.TripRecord{Date: "2024-03-09"})
		}
		return trips
	}

	tests := []struct {
		name    string
		trips   []model.TripRecord
		wantAdj float64
		wantObs string
	}{
		{name: "on target", trips: mk(7, 3), wantAdj: -1, wantObs: "Balanced"},
		{name: "band edge", trips: mk(8, 2), wantAdj: -1, wantObs: "Balanced"},
		{name: "weekday heavy", trips: mk(19, 1), wantAdj: 0.5, wantObs: "Weekday-heavy"},
		{name: "weekend heavy", trips: mk(4, 6), wantAdj: 0.5, wantObs: "Weekend-heavy"},
		{name: "undated", trips: []model.TripRecord{{}}, wantAdj: 0, wantObs: "Not enough data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := weekendMixFactor(Input{Trips: tt.trips, Thresholds: DefaultThresholds()})
			assert.InDelta(t, tt.wantAdj, f.AdjustmentPercent, 1e-9)
			assert.Contains(t, f.Observation, tt.wantObs)
		})
	}
}

func TestDistanceFactor_UsesUpperEstimate(t *testing.T) {
	th := DefaultThresholds() // 3-5 km per trip, medium from 300 km, high from 600 km

	tests := []struct {
		trips int
		want  model.RiskLevel
	}{
		{trips: 0, want: model.RiskLow},
		{trips: 59, want: model.RiskLow},
		{trips: 60, want: model.RiskMedium}, // 180-300 km
		{trips: 119, want: model.RiskMedium},
		{trips: 120, want: model.RiskHigh},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d trips", tt.trips), func(t *testing.T) {
			f := distanceFactor(Input{Trips: make([]model.TripRecord, tt.trips), Thresholds: th})
			assert.Equal(t, tt.want, f.RiskLevel)
			assert.InDelta(t, th.Distance.Adjustments.For(tt.want), f.AdjustmentPercent, 1e-9)
		})
	}
}

func TestHourShareFactors(t *testing.T) {
	trips := []model.TripRecord{
		{ID: 1, Time: "07:30:00 AM"},
		{ID: 2, Time: "05:00:00 PM"},
		{ID: 3, Time: "11:30:00 PM"},
		{ID: 4, Time: "02:00:00 AM"},
		{ID: 5, Time: "12:00:00 PM"},
		{ID: 6, Time: "10:00:00 AM"},
		{ID: 7, Time: "06:00:00 AM"},
		{ID: 8},
	}
	in := Input{Trips: trips, Thresholds: DefaultThresholds()}

	peak := peakHoursFactor(in)
	require.Len(t, peak.DrillDown.Trips, 3)
	assert.Equal(t, []int{1, 2, 7}, []int{peak.DrillDown.Trips[0].ID, peak.DrillDown.Trips[1].ID, peak.DrillDown.Trips[2].ID})
	assert.Equal(t, model.RiskMedium, peak.RiskLevel) // 3/8 = 0.375

	night := nightFactor(in)
	require.Len(t, night.DrillDown.Trips, 2)
	assert.Equal(t, model.RiskVeryHigh, night.RiskLevel) // 2/8 = 0.25
}

func TestFrequency_MonotonicInTripCount(t *testing.T) {
	ladders := []Ladder{
		DefaultThresholds().Frequency,
		{Low: 1, Medium: 2, High: 3, VeryHigh: 4},
		{Low: 5, Medium: 5, High: 50, VeryHigh: 50},
	}

	for i, l := range ladders {
		prev := model.RiskVeryLow
		for n := 0; n <= 200; n++ {
			f := frequencyFactor(Input{Trips: make([]model.TripRecord, n), Thresholds: Thresholds{Frequency: l}})
			assert.GreaterOrEqual(t, int(f.RiskLevel), int(prev), "ladder %d, %d trips", i, n)
			prev = f.RiskLevel
		}
	}
}

func TestLadder_BelowLowestIsVeryLow(t *testing.T) {
	l := DefaultThresholds().Frequency
	assert.Equal(t, model.RiskVeryLow, l.Level(0))
	assert.Equal(t, model.RiskVeryLow, l.Level(9))
	assert.Equal(t, model.RiskLow, l.Level(10))
	assert.Equal(t, model.RiskVeryHigh, l.Level(100))
}

func TestProfile(t *testing.T) {
	net := tollnet.Default()
	at := func(date, clock, gate string) model.TripRecord {
		return model.TripRecord{Date: date, Time: clock, TollGate: gate}
	}

	tests := []struct {
		name  string
		trips []model.TripRecord
		total float64
		want  string
	}{
		{
			name: "urban night frequent",
			trips: []model.TripRecord{
				at("2024-03-04", "11:30:00 PM", "Airport Tunnel"),
				at("2024-03-04", "11:45:00 PM", "Al Mamzar South"),
				at("2024-03-04", "12:00:00 PM", "Al Garhoud Bridge"),
			},
			total: 6,
			want:  "Urban Night Frequent Moderate-Risk Driver",
		},
		{
			name: "highway rush hour",
			trips: []model.TripRecord{
				at("2024-03-04", "08:00:00 AM", "Jebel Ali"),
				at("2024-03-10", "05:30:00 PM", "Al Barsha"),
			},
			total: -6,
			want:  "Highway Rush-Hour Safe Driver",
		},
		{
			name: "mixed weekend",
			trips: []model.TripRecord{
				at("2024-03-09", "12:00:00 PM", "Jebel Ali"),
				at("2024-03-09", "01:00:00 PM", "Al Garhoud Bridge"),
			},
			total: 0,
			want:  "Mixed-Route Weekend Average Driver",
		},
		{
			name:  "nothing but risk",
			trips: []model.TripRecord{at("2024-03-04", "12:00:00 PM", model.UnknownGate), at("2024-03-05", "", model.UnknownGate)},
			total: -1,
			want:  "Cautious Driver",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Profile(net, tt.trips, tt.total))
		})
	}
}

func TestFrequencyCharacter(t *testing.T) {
	on := func(date string, n int) []model.TripRecord {
		trips := make([]model.TripRecord, n)
		for i := range trips {
			trips[i] = model.TripRecord{Date: date}
		}
		return trips
	}

	tests := []struct {
		name  string
		trips []model.TripRecord
		want  string
	}{
		{
			name:  "three a day on days far apart",
			trips: append(on("2024-03-01", 3), on("2024-03-11", 3)...),
			want:  "Frequent",
		},
		{
			name:  "exactly two and a half a day",
			trips: append(on("2024-03-01", 2), on("2024-03-02", 3)...),
			want:  "",
		},
		{
			name:  "one a day across a month",
			trips: append(on("2024-03-01", 1), on("2024-03-31", 1)...),
			want:  "",
		},
		{
			name:  "undated trips count toward the rate",
			trips: append(on("2024-03-01", 2), on("", 1)...),
			want:  "Frequent",
		},
		{
			name:  "no dated trips",
			trips: on("", 4),
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, frequencyCharacter(tt.trips))
		})
	}
}

func TestRiskCharacter(t *testing.T) {
	tests := map[float64]string{
		-8: "Safe", -5.1: "Safe", -5: "Cautious", -0.1: "Cautious",
		0: "Average", 5: "Average", 5.1: "Moderate-Risk", 8: "Moderate-Risk",
	}
	for total, want := range tests {
		assert.Equal(t, want, riskCharacter(total), "total %v", total)
	}
}

func TestClampAdjustment(t *testing.T) {
	assert.Equal(t, 0.0, ClampAdjustment(math.NaN()))
	assert.Equal(t, 8.0, ClampAdjustment(math.Inf(1)))
	assert.Equal(t, -8.0, ClampAdjustment(math.Inf(-1)))
	assert.Equal(t, 3.5, ClampAdjustment(3.5))
}

func TestThresholds_Validate(t *testing.T) {
	require.NoError(t, DefaultThresholds().Validate())

	tests := []struct {
		name   string
		mutate func(*Thresholds)
	}{
		{name: "descending ladder", mutate: func(th *Thresholds) { th.Frequency.High = 5 }},
		{name: "fraction above one", mutate: func(th *Thresholds) { th.PeakHours.VeryHigh = 1.5 }},
		{name: "nan adjustment", mutate: func(th *Thresholds) { th.NightDriving.Adjustments.High = math.NaN() }},
		{name: "negative penalty", mutate: func(th *Thresholds) { th.Speed.Penalty = -1 }},
		{name: "infinite reward", mutate: func(th *Thresholds) { th.DrivingStyle.Reward = math.Inf(1) }},
		{name: "weekend target", mutate: func(th *Thresholds) { th.WeekendMix.Target = 2 }},
		{name: "km per trip range", mutate: func(th *Thresholds) { th.Distance.KmPerTripMax = 1 }},
		{name: "distance tiers", mutate: func(th *Thresholds) { th.Distance.HighKm = 100 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := DefaultThresholds()
			tt.mutate(&th)
			assert.ErrorIs(t, th.Validate(), common.ErrInvalidConfig)
		})
	}
}

func FuzzEvaluate_TotalWithinCap(f *testing.F) {
	f.Add(150, 0, 3.0, 3.0, 2.0, 1.0, 0.3, 2.0, 1.5)
	f.Add(0, 9, -100.0, 1e300, -1e300, 50.0, 2.0, -7.0, 0.0)
	f.Add(40, 2, math.Inf(1), 0.0, 0.0, 0.0, 0.5, 0.0, math.NaN())

	dates := []string{"2024-03-04", "2024-03-06", "2024-03-09", "2024-03-10"}
	clocks := []string{"07:00:00 AM", "12:00:00 PM", "05:30:00 PM", "11:30:00 PM", ""}
	gates := []string{"Jebel Ali", "Al Garhoud Bridge", "Airport Tunnel", model.UnknownGate}

	f.Fuzz(func(t *testing.T, trips, violations int, freqAdj, speedPenalty, urbanPenalty, weekendReward, target, styleReward, distAdj float64) {
		trips = int(math.Abs(float64(trips % 400)))
		violations = int(math.Abs(float64(violations % 20)))

		ledger := make([]model.TripRecord, trips)
		for i := range ledger {
			ledger[i] = model.TripRecord{
				ID:       i + 1,
				Date:     dates[i%len(dates)],
				Time:     clocks[i%len(clocks)],
				TollGate: gates[i%len(gates)],
			}
		}

		th := DefaultThresholds()
		th.Frequency.Adjustments = Adjustments{VeryLow: -freqAdj, Low: freqAdj / 2, Medium: freqAdj, High: freqAdj * 2, VeryHigh: freqAdj * 3}
		th.Speed.Penalty = speedPenalty
		th.Route.UrbanPenalty = urbanPenalty
		th.WeekendMix.Reward = weekendReward
		th.WeekendMix.Target = target
		th.DrivingStyle.Reward = styleReward
		th.Distance.Adjustments = Adjustments{Low: -distAdj, Medium: distAdj, High: distAdj * 10}

		report := Evaluate(tollnet.Default(), ledger, violatingLegs(violations), th, false)

		total := report.TotalAdjustmentPercent
		if math.IsNaN(total) || total < -AdjustmentCap || total > AdjustmentCap {
			t.Fatalf("total %v outside [-8, 8]", total)
		}
		if len(report.Factors) != 8 {
			t.Fatalf("got %d factors", len(report.Factors))
		}
	})
}
