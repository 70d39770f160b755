package ingest

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	parentheticalRe = regexp.MustCompile(`\([^)]*\)`)
	whitespaceRe    = regexp.MustCompile(`\s+`)
	nonKeyRe        = regexp.MustCompile(`[^a-z0-9_]`)
	underscoresRe   = regexp.MustCompile(`_+`)
)

// NormalizeKey folds a column header into a stable key so "Trip Date",
// "trip date (local)" and "TRIP_DATE" all become "trip_date".
func NormalizeKey(s string) string {
	s = strings.ToLower(s)
	s = parentheticalRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	s = whitespaceRe.ReplaceAllString(s, "_")
	s = nonKeyRe.ReplaceAllString(s, "")
	s = underscoresRe.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// field is a canonical trip column.
type field int

const (
	fieldNone field = iota
	fieldDate
	fieldTime
	fieldDateTime
	fieldGate
	fieldDirection
	fieldAmount
)

var fieldAliases = map[string]field{
	"date":                  fieldDate,
	"trip_date":             fieldDate,
	"transaction_date":      fieldDate,
	"travel_date":           fieldDate,
	"crossing_date":         fieldDate,
	"date_of_trip":          fieldDate,
	"txn_date":              fieldDate,
	"day":                   fieldDate,
	"time":                  fieldTime,
	"trip_time":             fieldTime,
	"transaction_time":      fieldTime,
	"travel_time":           fieldTime,
	"crossing_time":         fieldTime,
	"txn_time":              fieldTime,
	"datetime":              fieldDateTime,
	"date_time":             fieldDateTime,
	"date_and_time":         fieldDateTime,
	"trip_datetime":         fieldDateTime,
	"trip_date_time":        fieldDateTime,
	"transaction_datetime":  fieldDateTime,
	"transaction_date_time": fieldDateTime,
	"crossing_datetime":     fieldDateTime,
	"timestamp":             fieldDateTime,
	"toll_gate":             fieldGate,
	"tollgate":              fieldGate,
	"gate":                  fieldGate,
	"gate_name":             fieldGate,
	"toll_gate_name":        fieldGate,
	"toll_point":            fieldGate,
	"toll_location":         fieldGate,
	"toll_plaza":            fieldGate,
	"plaza":                 fieldGate,
	"location":              fieldGate,
	"salik_gate":            fieldGate,
	"direction":             fieldDirection,
	"dir":                   fieldDirection,
	"travel_direction":      fieldDirection,
	"route":                 fieldDirection,
	"amount":                fieldAmount,
	"toll_amount":           fieldAmount,
	"toll_fee":              fieldAmount,
	"fee":                   fieldAmount,
	"fare":                  fieldAmount,
	"charge":                fieldAmount,
	"charges":               fieldAmount,
	"cost":                  fieldAmount,
	"debit":                 fieldAmount,
	"amount_aed":            fieldAmount,
	"aed":                   fieldAmount,
}

// guessField classifies headers the alias table does not know.
func guessField(key string) field {
	hasDate := strings.Contains(key, "date")
	hasTime := strings.Contains(key, "time")
	switch {
	case hasDate && hasTime:
		return fieldDateTime
	case hasDate:
		return fieldDate
	case hasTime:
		return fieldTime
	case strings.Contains(key, "gate"), strings.Contains(key, "plaza"):
		return fieldGate
	case strings.Contains(key, "direction"):
		return fieldDirection
	case strings.Contains(key, "amount"), strings.Contains(key, "fee"):
		return fieldAmount
	default:
		return fieldNone
	}
}

// columnMap assigns each header position to a canonical field or to the
// extra-field key it will be preserved under.
type columnMap struct {
	fields []field
	keys   []string
}

// mapColumns resolves aliases first so an exact header always wins a field
// over a guessed one; later duplicates of a field fall through to extras.
func mapColumns(header []string) columnMap {
	cm := columnMap{
		fields: make([]field, len(header)),
		keys:   make([]string, len(header)),
	}
	taken := make(map[field]bool)
	seen := make(map[string]int)

	for i, h := range header {
		key := NormalizeKey(h)
		if key == "" {
			key = "column_" + strconv.Itoa(i+1)
		}
		seen[key]++
		if n := seen[key]; n > 1 {
			key += "_" + strconv.Itoa(n)
		}
		cm.keys[i] = key
		if f, ok := fieldAliases[cm.keys[i]]; ok && !taken[f] {
			cm.fields[i] = f
			taken[f] = true
		}
	}

	for i := range header {
		if cm.fields[i] != fieldNone {
			continue
		}
		if f := guessField(cm.keys[i]); f != fieldNone && !taken[f] {
			cm.fields[i] = f
			taken[f] = true
		}
	}

	return cm
}
