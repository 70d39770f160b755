// Package model defines the core domain models used throughout the application.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// UnknownGate is the toll gate recorded when a crossing cannot be matched
// against the toll network reference.
const UnknownGate = "Unknown"

// Canonical date and clock layouts shared by every ingestion path.
const (
	DateLayout  = "2006-01-02"
	ClockLayout = "03:04:05 PM"
)

// TripRecord is a single toll crossing in the canonical ledger.
type TripRecord struct {
	Date      string          `json:"date"`
	Time      string          `json:"time"`
	TollGate  string          `json:"tollGate"`
	Direction string          `json:"direction"`
	Amount    decimal.Decimal `json:"amount"`
	ID        int             `json:"id"`
}

// ParsedDate returns the crossing's calendar date.
func (t TripRecord) ParsedDate() (time.Time, bool) {
	if t.Date == "" {
		return time.Time{}, false
	}
	d, err := time.Parse(DateLayout, t.Date)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// Timestamp combines Date and Time into a single instant (UTC, no zone).
func (t TripRecord) Timestamp() (time.Time, bool) {
	d, ok := t.ParsedDate()
	if !ok || t.Time == "" {
		return time.Time{}, false
	}
	c, err := time.Parse(ClockLayout, t.Time)
	if err != nil {
		return time.Time{}, false
	}
	return d.Add(time.Duration(c.Hour())*time.Hour +
		time.Duration(c.Minute())*time.Minute +
		time.Duration(c.Second())*time.Second), true
}

// Hour returns the 24h clock hour of the crossing.
func (t TripRecord) Hour() (int, bool) {
	if t.Time == "" {
		return 0, false
	}
	c, err := time.Parse(ClockLayout, t.Time)
	if err != nil {
		return 0, false
	}
	return c.Hour(), true
}

// IsWeekend reports whether the crossing happened on a Saturday or Sunday.
func (t TripRecord) IsWeekend() (weekend bool, ok bool) {
	d, ok := t.ParsedDate()
	if !ok {
		return false, false
	}
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday, true
}

// RawTripRecord is the same crossing before narrowing. Canonical columns are
// kept as the source text; every other column survives in Extra under its
// normalized header key.
type RawTripRecord struct {
	Extra     map[string]string `json:"extra,omitempty"`
	Date      string            `json:"date,omitempty"`
	Time      string            `json:"time,omitempty"`
	TollGate  string            `json:"tollGate,omitempty"`
	Direction string            `json:"direction,omitempty"`
	Amount    string            `json:"amount,omitempty"`
	Position  int               `json:"position"`
}

// IsBlank reports whether every field of the row is empty.
func (r RawTripRecord) IsBlank() bool {
	if r.Date != "" || r.Time != "" || r.TollGate != "" || r.Direction != "" || r.Amount != "" {
		return false
	}
	for _, v := range r.Extra {
		if v != "" {
			return false
		}
	}
	return true
}
