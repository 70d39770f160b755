package ingest

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Veraticus/tollgate-risk/internal/model"
	"github.com/shopspring/decimal"
)

// DefaultTollFee is charged when a row carries no readable amount.
var DefaultTollFee = decimal.NewFromInt(4)

var amountRe = regexp.MustCompile(`-?\d+(?:[.,]\d+)*`)

// parseAmount extracts a non-negative amount from text such as "AED 4.00",
// "-4,00" or "1,204.50". ok is false when no number can be read.
func parseAmount(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, false
	}
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = strings.Trim(s, "()")
	}

	num := amountRe.FindString(s)
	if num == "" {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(normalizeSeparators(num))
	if err != nil {
		return decimal.Zero, false
	}
	return d.Abs(), true
}

// normalizeSeparators rewrites a matched amount with "." as the only decimal
// separator. The rightmost separator is the decimal one when both kinds
// appear. A lone comma followed by exactly three digits groups thousands,
// unless the whole part is zero.
func normalizeSeparators(num string) string {
	lastComma := strings.LastIndex(num, ",")
	lastDot := strings.LastIndex(num, ".")

	switch {
	case lastComma < 0 && strings.Count(num, ".") > 1:
		return strings.ReplaceAll(num, ".", "")
	case lastComma < 0:
		return num
	case lastDot > lastComma:
		return strings.ReplaceAll(num, ",", "")
	case lastDot >= 0:
		return strings.Replace(strings.ReplaceAll(num, ".", ""), ",", ".", 1)
	case strings.Count(num, ",") > 1:
		return strings.ReplaceAll(num, ",", "")
	case len(num)-lastComma-1 == 3 && strings.TrimLeft(num[:lastComma], "-0") != "":
		return strings.ReplaceAll(num, ",", "")
	default:
		return strings.Replace(num, ",", ".", 1)
	}
}

// narrowRow converts one raw row into the canonical record. Every defect is
// recovered with a default; the returned defects list is for logging only.
func (in *Ingester) narrowRow(raw model.RawTripRecord) (model.TripRecord, []string) {
	var defects []string
	trip := model.TripRecord{
		ID:        raw.Position,
		Direction: strings.TrimSpace(raw.Direction),
	}

	if t := ParseTemporal(raw.Date); t != nil {
		if d, ok := t.Date(); ok {
			trip.Date = d
		} else {
			defects = append(defects, "date")
		}
	} else {
		defects = append(defects, "date")
	}

	if t := ParseTemporal(raw.Time); t != nil {
		if c, ok := t.Clock(); ok {
			trip.Time = c
		} else {
			defects = append(defects, "time")
		}
	} else {
		defects = append(defects, "time")
	}

	trip.TollGate = in.network.Resolve(raw.TollGate)
	if trip.TollGate == model.UnknownGate {
		defects = append(defects, "toll_gate")
	}

	amount, ok := parseAmount(raw.Amount)
	if !ok {
		amount = in.defaultFee
		defects = append(defects, "amount")
	}
	trip.Amount = amount

	return trip, defects
}

// recordFromCells spreads one table row over a raw record using the
// header's column map.
func recordFromCells(cm columnMap, cells []string) model.RawTripRecord {
	var rec model.RawTripRecord
	for i, key := range cm.keys {
		v := ""
		if i < len(cells) {
			v = strings.TrimSpace(cells[i])
		}
		switch cm.fields[i] {
		case fieldDate:
			rec.Date = v
		case fieldTime:
			rec.Time = v
		case fieldDateTime:
			// A combined column feeds both halves unless a dedicated column exists.
			if rec.Date == "" {
				rec.Date = v
			}
			if rec.Time == "" {
				rec.Time = v
			}
		case fieldGate:
			rec.TollGate = v
		case fieldDirection:
			rec.Direction = v
		case fieldAmount:
			rec.Amount = v
		default:
			if rec.Extra == nil {
				rec.Extra = make(map[string]string)
			}
			rec.Extra[key] = v
		}
	}
	// Cells past the header are kept rather than lost.
	for i := len(cm.keys); i < len(cells); i++ {
		if v := strings.TrimSpace(cells[i]); v != "" {
			if rec.Extra == nil {
				rec.Extra = make(map[string]string)
			}
			rec.Extra["column_"+strconv.Itoa(i+1)] = v
		}
	}
	return rec
}
