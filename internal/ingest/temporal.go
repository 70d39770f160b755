package ingest

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/tollgate-risk/internal/model"
)

// Spreadsheet serial encoding: whole days since 1899-12-30, which sits
// serialEpochOffset days before the Unix epoch, plus a fraction of a day.
const (
	serialEpochOffset = 25569
	secondsPerDay     = 86400
	serialDateMin     = 30000
	serialDateMax     = 60000
)

// Temporal is a date/time cell resolved once at the ingestion boundary.
// It is either a TextTemporal or a SerialTemporal.
type Temporal interface {
	// Date returns the canonical YYYY-MM-DD date, if the value carries one.
	Date() (string, bool)
	// Clock returns the canonical "03:04:05 PM" time, if the value carries one.
	Clock() (string, bool)
	isTemporal()
}

// TextTemporal is a date, time or date-time written as text.
type TextTemporal struct {
	Raw string
}

// SerialTemporal is a spreadsheet-native fractional-day number.
type SerialTemporal struct {
	Value float64
}

func (TextTemporal) isTemporal()   {}
func (SerialTemporal) isTemporal() {}

// ParseTemporal decides which encoding a raw cell uses. Blank cells yield nil.
func ParseTemporal(raw string) Temporal {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil && isSerial(v) {
		return SerialTemporal{Value: v}
	}
	return TextTemporal{Raw: s}
}

func isSerial(v float64) bool {
	return isSerialDate(v) || isSerialTime(v)
}

func isSerialDate(v float64) bool { return v > serialDateMin && v < serialDateMax }
func isSerialTime(v float64) bool { return v > 0 && v < 1 }

// instant converts the serial to a UTC instant. The whole part is the day
// and the fraction only sets the clock, rounded to the nearest second and
// capped at 23:59:59 so it never rolls into the next day.
func (s SerialTemporal) instant() time.Time {
	whole, frac := math.Modf(s.Value)
	days := int64(whole)
	if isSerialDate(s.Value) {
		days -= serialEpochOffset
	}
	secs := int64(math.Round(frac * secondsPerDay))
	if secs >= secondsPerDay {
		secs = secondsPerDay - 1
	}
	return time.Unix(days*secondsPerDay+secs, 0).UTC()
}

// Date implements Temporal.
func (s SerialTemporal) Date() (string, bool) {
	if !isSerialDate(s.Value) {
		return "", false
	}
	return s.instant().Format(model.DateLayout), true
}

// Clock implements Temporal. A whole-day serial carries no time of day.
func (s SerialTemporal) Clock() (string, bool) {
	if isSerialDate(s.Value) && s.Value == math.Trunc(s.Value) {
		return "", false
	}
	if !isSerial(s.Value) {
		return "", false
	}
	return s.instant().Format(model.ClockLayout), true
}

var (
	dateTimeLayouts = []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02 3:04:05 PM",
		"2006-01-02 3:04 PM",
		"2006/1/2 15:04:05",
		"2006/1/2 15:04",
		"2/1/2006 15:04:05",
		"2/1/2006 15:04",
		"2/1/2006 3:04:05 PM",
		"2/1/2006 3:04 PM",
		"2-1-2006 15:04:05",
		"2-1-2006 15:04",
		"2 Jan 2006 15:04:05",
		"2 Jan 2006 15:04",
		"2 Jan 2006 3:04 PM",
		"Jan 2, 2006 15:04:05",
		"Jan 2, 2006 3:04 PM",
	}
	// Day-first numeric forms; monthFirstLayouts are only tried when the
	// day-first reading is impossible (e.g. 03/25/2024).
	dateLayouts = []string{
		"2006-01-02",
		"2006-1-2",
		"2006/1/2",
		"2/1/2006",
		"2-1-2006",
		"2.1.2006",
		"2 Jan 2006",
		"2-Jan-2006",
		"2 January 2006",
		"Jan 2, 2006",
		"January 2, 2006",
		"Mon, 2 Jan 2006",
		"Monday, 2 January 2006",
	}
	monthFirstLayouts = []string{
		"1/2/2006",
		"1/2/2006 15:04:05",
		"1/2/2006 15:04",
		"1/2/2006 3:04:05 PM",
		"1/2/2006 3:04 PM",
	}
	clockLayouts = []string{
		"15:04:05",
		"15:04",
		"3:04:05 PM",
		"3:04 PM",
		"3:04:05PM",
		"3:04PM",
	}
)

// resolve reads the text as date-time, date, or clock, in that order.
func (t TextTemporal) resolve() (date time.Time, hasDate bool, clock time.Time, hasClock bool) {
	s := strings.ToUpper(whitespaceRe.ReplaceAllString(strings.TrimSpace(t.Raw), " "))

	for _, layout := range dateTimeLayouts {
		if v, err := time.Parse(layout, s); err == nil {
			return v, true, v, true
		}
	}
	for _, layout := range dateLayouts {
		if v, err := time.Parse(layout, s); err == nil {
			return v, true, time.Time{}, false
		}
	}
	for _, layout := range monthFirstLayouts {
		if v, err := time.Parse(layout, s); err == nil {
			return v, true, v, strings.Contains(layout, ":")
		}
	}
	for _, layout := range clockLayouts {
		if v, err := time.Parse(layout, s); err == nil {
			return time.Time{}, false, v, true
		}
	}
	return time.Time{}, false, time.Time{}, false
}

// Date implements Temporal.
func (t TextTemporal) Date() (string, bool) {
	d, ok, _, _ := t.resolve()
	if !ok {
		return "", false
	}
	return d.Format(model.DateLayout), true
}

// Clock implements Temporal.
func (t TextTemporal) Clock() (string, bool) {
	_, _, c, ok := t.resolve()
	if !ok {
		return "", false
	}
	return c.Format(model.ClockLayout), true
}
