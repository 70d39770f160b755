package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// table is a header plus the data rows beneath it.
type table struct {
	header []string
	rows   [][]string
}

// readDelimited reads CSV-like text, sniffing the delimiter from the first
// non-blank line.
func readDelimited(r io.Reader) (table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return table{}, fmt.Errorf("failed to read delimited statement: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = sniffDelimiter(data)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var records [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return table{}, fmt.Errorf("failed to parse delimited statement: %w", err)
		}
		records = append(records, rec)
	}

	return splitHeader(records), nil
}

// sniffDelimiter counts candidate separators outside quotes on the first
// non-blank line and picks the most frequent, defaulting to a comma.
func sniffDelimiter(data []byte) rune {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var line string
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) != "" {
			line = sc.Text()
			break
		}
	}

	counts := map[rune]int{}
	inQuotes := false
	for _, r := range line {
		switch r {
		case '"':
			inQuotes = !inQuotes
		case ',', ';', '\t', '|':
			if !inQuotes {
				counts[r]++
			}
		}
	}

	best, bestCount := ',', 0
	for _, r := range []rune{',', ';', '\t', '|'} {
		if counts[r] > bestCount {
			best, bestCount = r, counts[r]
		}
	}
	return best
}

// splitHeader treats the first row with any content as the header.
func splitHeader(records [][]string) table {
	for i, rec := range records {
		if !blankCells(rec) {
			return table{header: rec, rows: records[i+1:]}
		}
	}
	return table{}
}

func blankCells(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
