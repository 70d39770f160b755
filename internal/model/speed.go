package model

// SpeedLeg is a point-to-point leg inferred from two adjacent crossings.
type SpeedLeg struct {
	Date          string  `json:"date"`
	StartTime     string  `json:"startTime"`
	EndTime       string  `json:"endTime"`
	Route         string  `json:"route"`
	FromGate      string  `json:"fromGate"`
	ToGate        string  `json:"toGate"`
	DistanceKm    float64 `json:"distanceKm"`
	TimeHours     float64 `json:"timeHours"`
	SpeedKmh      float64 `json:"speedKmh"`
	SpeedLimitKmh float64 `json:"speedLimitKmh"`
	WithinLimit   bool    `json:"withinLimit"`
}
