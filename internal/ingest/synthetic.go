package ingest

import (
	"github.com/Veraticus/tollgate-risk/internal/model"
	"github.com/shopspring/decimal"
)

// syntheticTrips is the fixed demonstration ledger used when a statement
// cannot be read at all. It must stay deterministic.
var syntheticTrips = []struct {
	date, clock, gate, direction string
}{
	{"2024-03-04", "08:10:00 AM", "Al Barsha", "Northbound"},
	{"2024-03-04", "08:16:00 AM", "Al Safa South", "Northbound"},
	{"2024-03-04", "06:05:00 PM", "Al Garhoud Bridge", "Southbound"},
	{"2024-03-05", "07:45:00 AM", "Business Bay Crossing", "Northbound"},
	{"2024-03-05", "07:49:00 AM", "Al Garhoud Bridge", "Northbound"},
	{"2024-03-07", "11:40:00 PM", "Airport Tunnel", "Eastbound"},
	{"2024-03-09", "02:30:00 PM", "Jebel Ali", "Southbound"},
	{"2024-03-10", "10:20:00 AM", "Al Maktoum Bridge", "Northbound"},
}

// syntheticLedger returns the demonstration trips and their raw twins.
func syntheticLedger(fee decimal.Decimal) ([]model.TripRecord, []model.RawTripRecord) {
	trips := make([]model.TripRecord, len(syntheticTrips))
	raws := make([]model.RawTripRecord, len(syntheticTrips))
	for i, s := range syntheticTrips {
		trips[i] = model.TripRecord{
			ID:        i + 1,
			Date:      s.date,
			Time:      s.clock,
			TollGate:  s.gate,
			Direction: s.direction,
			Amount:    fee,
		}
		raws[i] = model.RawTripRecord{
			Position:  i + 1,
			Date:      s.date,
			Time:      s.clock,
			TollGate:  s.gate,
			Direction: s.direction,
			Amount:    fee.StringFixed(2),
			Extra:     map[string]string{"source": "synthetic"},
		}
	}
	return trips, raws
}
