// Package risk turns a trip ledger and its speed legs into a bounded premium
// adjustment and a driver profile label.
package risk

import (
	"fmt"
	"math"

	"github.com/Veraticus/tollgate-risk/internal/common"
	"github.com/Veraticus/tollgate-risk/internal/model"
)

// Adjustments holds the signed premium adjustment, in percent, for each
// risk level of a tiered dimension.
type Adjustments struct {
	VeryLow  float64 `yaml:"very_low" mapstructure:"very_low" json:"very_low"`
	Low      float64 `yaml:"low" mapstructure:"low" json:"low"`
	Medium   float64 `yaml:"medium" mapstructure:"medium" json:"medium"`
	High     float64 `yaml:"high" mapstructure:"high" json:"high"`
	VeryHigh float64 `yaml:"very_high" mapstructure:"very_high" json:"very_high"`
}

// For returns the adjustment configured for a level.
func (a Adjustments) For(l model.RiskLevel) float64 {
	switch l {
	case model.RiskVeryLow:
		return a.VeryLow
	case model.RiskLow:
		return a.Low
	case model.RiskMedium:
		return a.Medium
	case model.RiskHigh:
		return a.High
	case model.RiskVeryHigh:
		return a.VeryHigh
	default:
		return 0
	}
}

// Ladder is four ascending cut points. A value below Low is Very Low, at or
// above VeryHigh it is Very High.
type Ladder struct {
	Low         float64     `yaml:"low" mapstructure:"low" json:"low"`
	Medium      float64     `yaml:"medium" mapstructure:"medium" json:"medium"`
	High        float64     `yaml:"high" mapstructure:"high" json:"high"`
	VeryHigh    float64     `yaml:"very_high" mapstructure:"very_high" json:"very_high"`
	Adjustments Adjustments `yaml:"adjustments" mapstructure:"adjustments" json:"adjustments"`
}

// Level places v on the ladder.
func (l Ladder) Level(v float64) model.RiskLevel {
	switch {
	case v < l.Low:
		return model.RiskVeryLow
	case v < l.Medium:
		return model.RiskLow
	case v < l.High:
		return model.RiskMedium
	case v < l.VeryHigh:
		return model.RiskHigh
	default:
		return model.RiskVeryHigh
	}
}

func (l Ladder) validate(name string, fractions bool) error {
	cuts := []float64{l.Low, l.Medium, l.High, l.VeryHigh}
	for i, c := range cuts {
		if !finite(c) || c < 0 {
			return fmt.Errorf("%w: %s thresholds must be finite and non-negative", common.ErrInvalidConfig, name)
		}
		if fractions && c > 1 {
			return fmt.Errorf("%w: %s thresholds are fractions and must not exceed 1", common.ErrInvalidConfig, name)
		}
		if i > 0 && c < cuts[i-1] {
			return fmt.Errorf("%w: %s thresholds must be ascending", common.ErrInvalidConfig, name)
		}
	}
	a := l.Adjustments
	if !allFinite(a.VeryLow, a.Low, a.Medium, a.High, a.VeryHigh) {
		return fmt.Errorf("%w: %s adjustments must be finite", common.ErrInvalidConfig, name)
	}
	return nil
}

// SpeedThresholds configures Speed Behavior.
type SpeedThresholds struct {
	// Penalty is the full adjustment for five or more violating legs. A clean
	// record earns half of it back.
	Penalty float64 `yaml:"penalty" mapstructure:"penalty" json:"penalty"`
}

// RouteThresholds configures Route Risk.
type RouteThresholds struct {
	UrbanPenalty float64 `yaml:"urban_penalty" mapstructure:"urban_penalty" json:"urban_penalty"`
}

// WeekendMixThresholds configures the Weekday/Weekend Mix dimension.
type WeekendMixThresholds struct {
	Target  float64 `yaml:"target" mapstructure:"target" json:"target"`
	Band    float64 `yaml:"band" mapstructure:"band" json:"band"`
	Reward  float64 `yaml:"reward" mapstructure:"reward" json:"reward"`
	Penalty float64 `yaml:"penalty" mapstructure:"penalty" json:"penalty"`
}

// DistanceThresholds configures Distance Traveled. Distance is estimated
// from the trip count at KmPerTripMin..KmPerTripMax per trip.
type DistanceThresholds struct {
	KmPerTripMin float64     `yaml:"km_per_trip_min" mapstructure:"km_per_trip_min" json:"km_per_trip_min"`
	KmPerTripMax float64     `yaml:"km_per_trip_max" mapstructure:"km_per_trip_max" json:"km_per_trip_max"`
	MediumKm     float64     `yaml:"medium_km" mapstructure:"medium_km" json:"medium_km"`
	HighKm       float64     `yaml:"high_km" mapstructure:"high_km" json:"high_km"`
	Adjustments  Adjustments `yaml:"adjustments" mapstructure:"adjustments" json:"adjustments"`
}

// DrivingStyleThresholds configures Overall Driving Style.
type DrivingStyleThresholds struct {
	Reward float64 `yaml:"reward" mapstructure:"reward" json:"reward"`
}

// Thresholds is the full scoring configuration. The engine only reads it.
type Thresholds struct {
	Frequency    Ladder                 `yaml:"frequency" mapstructure:"frequency" json:"frequency"`
	PeakHours    Ladder                 `yaml:"peak_hours" mapstructure:"peak_hours" json:"peak_hours"`
	NightDriving Ladder                 `yaml:"night_driving" mapstructure:"night_driving" json:"night_driving"`
	Speed        SpeedThresholds        `yaml:"speed" mapstructure:"speed" json:"speed"`
	Route        RouteThresholds        `yaml:"route" mapstructure:"route" json:"route"`
	WeekendMix   WeekendMixThresholds   `yaml:"weekend_mix" mapstructure:"weekend_mix" json:"weekend_mix"`
	Distance     DistanceThresholds     `yaml:"distance" mapstructure:"distance" json:"distance"`
	DrivingStyle DrivingStyleThresholds `yaml:"driving_style" mapstructure:"driving_style" json:"driving_style"`
}

// DefaultThresholds returns the stock scoring table.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Frequency: Ladder{
			Low: 10, Medium: 30, High: 60, VeryHigh: 100,
			Adjustments: Adjustments{VeryLow: -2, Low: -1, Medium: 0, High: 1.5, VeryHigh: 3},
		},
		PeakHours: Ladder{
			Low: 0.10, Medium: 0.25, High: 0.40, VeryHigh: 0.60,
			Adjustments: Adjustments{VeryLow: -1, Low: -0.5, Medium: 0, High: 1, VeryHigh: 2},
		},
		NightDriving: Ladder{
			Low: 0.02, Medium: 0.05, High: 0.10, VeryHigh: 0.20,
			Adjustments: Adjustments{VeryLow: -1, Low: -0.5, Medium: 0.5, High: 1.5, VeryHigh: 2.5},
		},
		Speed: SpeedThresholds{Penalty: 3},
		Route: RouteThresholds{UrbanPenalty: 2},
		WeekendMix: WeekendMixThresholds{
			Target: 0.30, Band: 0.10, Reward: 1, Penalty: 0.5,
		},
		Distance: DistanceThresholds{
			KmPerTripMin: 3, KmPerTripMax: 5, MediumKm: 300, HighKm: 600,
			Adjustments: Adjustments{Low: -1, Medium: 0, High: 1.5},
		},
		DrivingStyle: DrivingStyleThresholds{Reward: 2},
	}
}

// Validate rejects tables that cannot be evaluated sensibly. The total is
// clamped either way; Validate exists to catch configuration mistakes.
func (t Thresholds) Validate() error {
	if err := t.Frequency.validate("frequency", false); err != nil {
		return err
	}
	if err := t.PeakHours.validate("peak_hours", true); err != nil {
		return err
	}
	if err := t.NightDriving.validate("night_driving", true); err != nil {
		return err
	}

	magnitudes := map[string]float64{
		"speed.penalty":            t.Speed.Penalty,
		"route.urban_penalty":      t.Route.UrbanPenalty,
		"weekend_mix.reward":       t.WeekendMix.Reward,
		"weekend_mix.penalty":      t.WeekendMix.Penalty,
		"weekend_mix.band":         t.WeekendMix.Band,
		"driving_style.reward":     t.DrivingStyle.Reward,
		"distance.medium_km":       t.Distance.MediumKm,
		"distance.high_km":         t.Distance.HighKm,
		"distance.km_per_trip_min": t.Distance.KmPerTripMin,
	}
	for name, v := range magnitudes {
		if !finite(v) || v < 0 {
			return fmt.Errorf("%w: %s must be a finite, non-negative number", common.ErrInvalidConfig, name)
		}
	}

	if !finite(t.WeekendMix.Target) || t.WeekendMix.Target < 0 || t.WeekendMix.Target > 1 {
		return fmt.Errorf("%w: weekend_mix.target must be a fraction", common.ErrInvalidConfig)
	}
	if !finite(t.Distance.KmPerTripMax) || t.Distance.KmPerTripMax < t.Distance.KmPerTripMin {
		return fmt.Errorf("%w: distance.km_per_trip_max must not be below km_per_trip_min", common.ErrInvalidConfig)
	}
	if t.Distance.HighKm < t.Distance.MediumKm {
		return fmt.Errorf("%w: distance.high_km must not be below medium_km", common.ErrInvalidConfig)
	}
	a := t.Distance.Adjustments
	if !allFinite(a.Low, a.Medium, a.High) {
		return fmt.Errorf("%w: distance adjustments must be finite", common.ErrInvalidConfig)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func allFinite(vs ...float64) bool {
	for _, v := range vs {
		if !finite(v) {
			return false
		}
	}
	return true
}
