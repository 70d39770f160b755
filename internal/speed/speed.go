// Package speed infers point-to-point legs between consecutive toll
// crossings and flags the ones driven above the posted limit.
package speed

import (
	"cmp"
	"math"
	"slices"
	"time"

	"github.com/Veraticus/tollgate-risk/internal/model"
)

// Network is the part of the toll network reference the deriver needs.
type Network interface {
	Adjacent(a, b string) (distanceKm, limitKmh float64, ok bool)
}

// crossing is a trip with its resolved instant.
type crossing struct {
	at   time.Time
	trip model.TripRecord
}

// Derive pairs consecutive same-day crossings at adjacent gates into legs.
// Crossings without a usable date and time never take part, and a pair is
// dropped when the clock does not move forward between them. Legs are
// ordered by date, then start time.
func Derive(network Network, trips []model.TripRecord) []model.SpeedLeg {
	byDate := make(map[string][]crossing)
	for _, t := range trips {
		at, ok := t.Timestamp()
		if !ok {
			continue
		}
		byDate[t.Date] = append(byDate[t.Date], crossing{at: at, trip: t})
	}

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	slices.Sort(dates)

	var legs []model.SpeedLeg
	for _, d := range dates {
		day := byDate[d]
		slices.SortStableFunc(day, func(a, b crossing) int {
			if c := a.at.Compare(b.at); c != 0 {
				return c
			}
			return cmp.Compare(a.trip.ID, b.trip.ID)
		})

		for i := 1; i < len(day); i++ {
			if leg, ok := pair(network, day[i-1], day[i]); ok {
				legs = append(legs, leg)
			}
		}
	}
	return legs
}

func pair(network Network, from, to crossing) (model.SpeedLeg, bool) {
	hours := to.at.Sub(from.at).Hours()
	if hours <= 0 {
		return model.SpeedLeg{}, false
	}
	distance, limit, ok := network.Adjacent(from.trip.TollGate, to.trip.TollGate)
	if !ok {
		return model.SpeedLeg{}, false
	}

	kmh := distance / hours
	return model.SpeedLeg{
		Date:          from.trip.Date,
		StartTime:     from.trip.Time,
		EndTime:       to.trip.Time,
		Route:         from.trip.TollGate + " → " + to.trip.TollGate,
		FromGate:      from.trip.TollGate,
		ToGate:        to.trip.TollGate,
		DistanceKm:    distance,
		TimeHours:     hours,
		SpeedKmh:      kmh,
		SpeedLimitKmh: limit,
		WithinLimit:   kmh <= limit,
	}, true
}

// Summary aggregates a leg set. Both the speed table and the risk report
// read it from the same legs.
type Summary struct {
	Legs       int     `json:"legs"`
	Violations int     `json:"violations"`
	AverageKmh float64 `json:"averageKmh"`
	MaxKmh     float64 `json:"maxKmh"`
}

// Summarize computes the leg aggregates. An empty set yields a zero Summary.
func Summarize(legs []model.SpeedLeg) Summary {
	s := Summary{Legs: len(legs)}
	if len(legs) == 0 {
		return s
	}

	total := 0.0
	for _, l := range legs {
		total += l.SpeedKmh
		s.MaxKmh = math.Max(s.MaxKmh, l.SpeedKmh)
		if !l.WithinLimit {
			s.Violations++
		}
	}
	s.AverageKmh = total / float64(len(legs))
	return s
}

// Violations returns only the legs above their limit.
func Violations(legs []model.SpeedLeg) []model.SpeedLeg {
	var out []model.SpeedLeg
	for _, l := range legs {
		if !l.WithinLimit {
			out = append(out, l)
		}
	}
	return out
}
