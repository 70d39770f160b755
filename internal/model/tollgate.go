package model

// GateKind classifies a toll gate by the character of the road it sits on.
type GateKind string

// Gate kinds.
const (
	GateUrban   GateKind = "urban"
	GateHighway GateKind = "highway"
)

// TollGateInfo is one static entry of the toll network reference.
type TollGateInfo struct {
	Name             string   `json:"name" yaml:"name"`
	Kind             GateKind `json:"kind" yaml:"kind"`
	Aliases          []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	RouteOrder       int      `json:"routeOrder" yaml:"route_order"`
	SpeedLimitKmh    float64  `json:"speedLimitKmh" yaml:"speed_limit_kmh"`
	DistanceToNextKm float64  `json:"distanceToNextKm" yaml:"distance_to_next_km"`
}
