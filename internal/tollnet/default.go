package tollnet

import "github.com/Veraticus/tollgate-risk/internal/model"

// defaultGates is the shipped corridor, west to east.
var defaultGates = []model.TollGateInfo{
	{Name: "Jebel Ali", Kind: model.GateHighway, RouteOrder: 1, SpeedLimitKmh: 120, DistanceToNextKm: 14.0, Aliases: []string{"Jebel Ali Gate"}},
	{Name: "Al Barsha", Kind: model.GateHighway, RouteOrder: 2, SpeedLimitKmh: 120, DistanceToNextKm: 9.5, Aliases: []string{"Barsha"}},
	{Name: "Al Safa South", Kind: model.GateHighway, RouteOrder: 3, SpeedLimitKmh: 100, DistanceToNextKm: 1.5, Aliases: []string{"Safa South"}},
	{Name: "Al Safa North", Kind: model.GateHighway, RouteOrder: 4, SpeedLimitKmh: 100, DistanceToNextKm: 6.0, Aliases: []string{"Safa North"}},
	{Name: "Business Bay Crossing", Kind: model.GateUrban, RouteOrder: 5, SpeedLimitKmh: 80, DistanceToNextKm: 4.5, Aliases: []string{"Business Bay"}},
	{Name: "Al Garhoud Bridge", Kind: model.GateUrban, RouteOrder: 6, SpeedLimitKmh: 80, DistanceToNextKm: 3.5, Aliases: []string{"Garhoud"}},
	{Name: "Al Maktoum Bridge", Kind: model.GateUrban, RouteOrder: 7, SpeedLimitKmh: 60, DistanceToNextKm: 5.5, Aliases: []string{"Maktoum Bridge"}},
	{Name: "Airport Tunnel", Kind: model.GateUrban, RouteOrder: 8, SpeedLimitKmh: 80, DistanceToNextKm: 7.5},
	{Name: "Al Mamzar South", Kind: model.GateUrban, RouteOrder: 9, SpeedLimitKmh: 80, DistanceToNextKm: 1.0, Aliases: []string{"Mamzar South"}},
	{Name: "Al Mamzar North", Kind: model.GateUrban, RouteOrder: 10, SpeedLimitKmh: 80, DistanceToNextKm: 0, Aliases: []string{"Mamzar North"}},
}

// Default returns the shipped toll network reference.
func Default() *Network {
	n, err := New(defaultGates)
	if err != nil {
		panic("tollnet: invalid default gate table: " + err.Error())
	}
	return n
}
