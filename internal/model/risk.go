package model

import (
	"fmt"
	"strings"
)

// RiskLevel is an ordinal risk tier.
type RiskLevel int

// Risk levels in ascending order.
const (
	RiskVeryLow RiskLevel = iota
	RiskLow
	RiskMedium
	RiskHigh
	RiskVeryHigh
)

var riskLevelNames = [...]string{"Very Low", "Low", "Medium", "High", "Very High"}

func (l RiskLevel) String() string {
	if l < RiskVeryLow || l > RiskVeryHigh {
		return fmt.Sprintf("RiskLevel(%d)", int(l))
	}
	return riskLevelNames[l]
}

// MarshalText implements encoding.TextMarshaler.
func (l RiskLevel) MarshalText() ([]byte, error) {
	if l < RiskVeryLow || l > RiskVeryHigh {
		return nil, fmt.Errorf("invalid risk level %d", int(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *RiskLevel) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	for i, name := range riskLevelNames {
		if strings.EqualFold(name, s) {
			*l = RiskLevel(i)
			return nil
		}
	}
	return fmt.Errorf("unknown risk level %q", s)
}

// Dimension names one of the eight fixed risk dimensions.
type Dimension string

// Risk dimensions, in report order.
const (
	DimensionFrequency    Dimension = "Driving Frequency"
	DimensionPeakHours    Dimension = "Peak-Hour Usage"
	DimensionNight        Dimension = "Night Driving"
	DimensionSpeed        Dimension = "Speed Behavior"
	DimensionRoute        Dimension = "Route Risk"
	DimensionWeekendMix   Dimension = "Weekday/Weekend Mix"
	DimensionDistance     Dimension = "Distance Traveled"
	DimensionDrivingStyle Dimension = "Overall Driving Style"
)

// BreakdownItem is one label/value row of a drill-down table.
type BreakdownItem struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// DrillDown explains how a factor reached its tier. Exactly one of Trips or
// Breakdown is populated.
type DrillDown struct {
	Trips     []TripRecord    `json:"trips,omitempty"`
	Breakdown []BreakdownItem `json:"breakdown,omitempty"`
}

// IsEmpty reports whether the drill-down carries nothing.
func (d DrillDown) IsEmpty() bool {
	return d.Trips == nil && d.Breakdown == nil
}

// RiskFactor is the evaluation of a single dimension.
type RiskFactor struct {
	Parameter         Dimension `json:"parameter"`
	Observation       string    `json:"observation"`
	DrillDown         DrillDown `json:"drillDown"`
	RiskLevel         RiskLevel `json:"riskLevel"`
	AdjustmentPercent float64   `json:"adjustmentPercent"`
}

// RiskReport aggregates all eight factors into a premium adjustment.
type RiskReport struct {
	DriverProfile              string       `json:"driverProfile"`
	Factors                    []RiskFactor `json:"factors"`
	TotalAdjustmentPercent     float64      `json:"totalAdjustmentPercent"`
	UnclampedAdjustmentPercent float64      `json:"unclampedAdjustmentPercent"`
	Synthetic                  bool         `json:"synthetic"`
}

// Factor returns the factor for a dimension.
func (r RiskReport) Factor(d Dimension) (RiskFactor, bool) {
	for _, f := range r.Factors {
		if f.Parameter == d {
			return f, true
		}
	}
	return RiskFactor{}, false
}
