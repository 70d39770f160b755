package ingest

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/Veraticus/tollgate-risk/internal/model"
)

var (
	textDateRe = regexp.MustCompile(`(?i)\b(\d{4}-\d{1,2}-\d{1,2}|\d{1,2}[/.-]\d{1,2}[/.-]\d{4}|\d{1,2}[ -](?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*[ -]\d{4})\b`)
	textTimeRe = regexp.MustCompile(`(?i)\b(\d{1,2}:\d{2}(?::\d{2})?(?:\s?[ap]m\b)?)`)
	// Decimal point required so gate numbers and tag ids are not read as fees.
	textAmountRe = regexp.MustCompile(`\b(\d+\.\d{1,2})\b`)
	boundRe      = regexp.MustCompile(`(?i)\b(north|south|east|west)bound\b`)
	boundShortRe = regexp.MustCompile(`\b([NSEW])B\b`)
)

// readFreeText extracts one raw record per line that carries a date token.
func (in *Ingester) readFreeText(r io.Reader) ([]model.RawTripRecord, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var records []model.RawTripRecord
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		rec, ok := in.parseLine(line)
		if !ok {
			continue
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read text statement: %w", err)
	}

	return records, nil
}

func (in *Ingester) parseLine(line string) (model.RawTripRecord, bool) {
	date := textDateRe.FindString(line)
	if date == "" {
		return model.RawTripRecord{}, false
	}
	rest := strings.Replace(line, date, " ", 1)

	clock := textTimeRe.FindString(rest)
	if clock != "" {
		rest = strings.Replace(rest, clock, " ", 1)
	}

	rec := model.RawTripRecord{
		Date:   date,
		Time:   strings.TrimSpace(clock),
		Amount: textAmountRe.FindString(rest),
		Extra:  map[string]string{"line": line},
	}
	if gate, ok := in.network.FindIn(line); ok {
		rec.TollGate = gate
	}
	rec.Direction = lineDirection(line)

	return rec, true
}

func lineDirection(line string) string {
	if m := boundRe.FindString(line); m != "" {
		return strings.ToUpper(m[:1]) + strings.ToLower(m[1:])
	}
	if m := boundShortRe.FindStringSubmatch(line); m != nil {
		switch m[1] {
		case "N":
			return "Northbound"
		case "S":
			return "Southbound"
		case "E":
			return "Eastbound"
		case "W":
			return "Westbound"
		}
	}
	return ""
}
