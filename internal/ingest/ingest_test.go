package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/Veraticus/tollgate-risk/internal/common"
	"github.com/Veraticus/tollgate-risk/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// failingReader fails the test if anything tries to read it.
type failingReader struct{ t *testing.T }

func (r failingReader) Read(_ []byte) (int, error) {
	r.t.Fatal("statement was read before the format was checked")
	return 0, errors.New("unreachable")
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		filename string
		want     Format
		wantErr  bool
	}{
		{filename: "statement.csv", want: FormatDelimited},
		{filename: "STATEMENT.XLSX", want: FormatSpreadsheet},
		{filename: "notes.txt", want: FormatFreeText},
		{filename: "scan.pdf", want: FormatOpaque},
		{filename: "statement.docx", wantErr: true},
		{filename: "statement.xls", wantErr: true},
		{filename: "statement", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			got, err := DetectFormat(tt.filename)
			if tt.wantErr {
				assert.ErrorIs(t, err, common.ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIngest_UnsupportedExtensionFailsBeforeReading(t *testing.T) {
	in := NewIngester(nil)

	res, err := in.Ingest(context.Background(), "statement.docx", failingReader{t: t})

	assert.Nil(t, res)
	assert.ErrorIs(t, err, common.ErrUnsupportedFormat)
	var ufe *common.UnsupportedFormatError
	require.ErrorAs(t, err, &ufe)
	assert.Equal(t, ".docx", ufe.Extension)
}

func TestIngest_Delimited(t *testing.T) {
	csv := "\xEF\xBB\xBFTransaction ID,Trip Date,Trip Time (local),Toll Gate,Direction,Amount (AED),Tag Number\n" +
		"TX-1,04/03/2024,08:15:00,AL BARSHA,Northbound,4.00,1001\n" +
		",,,,,,\n" +
		"TX-2,45355,0.34375,Salik - Al Safa South,Northbound,,1001\n" +
		"TX-3,2024-03-05,6:05 PM,Sharjah Bridge,Southbound,AED -6.00,1001\n" +
		"TX-4,garbage,later,Garhoud,,four,1001\n"

	res, err := NewIngester(nil).Ingest(context.Background(), "statement.csv", strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, FormatDelimited, res.Format)
	assert.False(t, res.Synthetic)
	assert.Equal(t, 1, res.Dropped)
	require.Len(t, res.Trips, 4)
	require.Len(t, res.Raw, 4)

	first := res.Trips[0]
	assert.Equal(t, 1, first.ID)
	assert.Equal(t, "2024-03-04", first.Date)
	assert.Equal(t, "08:15:00 AM", first.Time)
	assert.Equal(t, "Al Barsha", first.TollGate)
	assert.Equal(t, "Northbound", first.Direction)
	assert.True(t, decimal.NewFromInt(4).Equal(first.Amount))

	serial := res.Trips[1]
	assert.Equal(t, 2, serial.ID)
	assert.Equal(t, "2024-03-04", serial.Date, "serial date decodes to the same day as text")
	assert.Equal(t, "08:15:00 AM", serial.Time)
	assert.Equal(t, "Al Safa South", serial.TollGate)
	assert.True(t, DefaultTollFee.Equal(serial.Amount), "missing amount defaults to the nominal fee")

	unknown := res.Trips[2]
	assert.Equal(t, model.UnknownGate, unknown.TollGate)
	assert.Equal(t, "06:05:00 PM", unknown.Time)
	assert.True(t, decimal.NewFromInt(6).Equal(unknown.Amount), "amounts are never negative")

	defective := res.Trips[3]
	assert.Equal(t, 4, defective.ID)
	assert.Empty(t, defective.Date)
	assert.Empty(t, defective.Time)
	assert.Equal(t, "Al Garhoud Bridge", defective.TollGate)
	assert.True(t, DefaultTollFee.Equal(defective.Amount))

	raw := res.Raw[1]
	assert.Equal(t, 2, raw.Position)
	assert.Equal(t, "45355", raw.Date)
	assert.Equal(t, "TX-2", raw.Extra["transaction_id"])
	assert.Equal(t, "1001", raw.Extra["tag_number"])
}

func TestIngest_MissingAmountKeepsRow(t *testing.T) {
	csv := "date,time,gate,amount\n2024-03-04,08:00,Al Barsha,\n"

	res, err := NewIngester(nil).Ingest(context.Background(), "s.csv", strings.NewReader(csv))
	require.NoError(t, err)

	require.Len(t, res.Trips, 1)
	assert.Equal(t, "4", res.Trips[0].Amount.String())
}

func TestIngest_SemicolonDelimitedWithCombinedDateTime(t *testing.T) {
	csv := "Date/Time;Location;Charge\n" +
		"04.03.2024;Airport Tunnel;4,00\n" +
		"2024-03-04 23:40:00;Airport Tunnel;4,00\n"

	res, err := NewIngester(nil).Ingest(context.Background(), "s.csv", strings.NewReader(csv))
	require.NoError(t, err)

	require.Len(t, res.Trips, 2)
	assert.Equal(t, "2024-03-04", res.Trips[0].Date)
	assert.Empty(t, res.Trips[0].Time)
	assert.Equal(t, "11:40:00 PM", res.Trips[1].Time)
	assert.Equal(t, "Airport Tunnel", res.Trips[1].TollGate)
	assert.Equal(t, "4", res.Trips[1].Amount.String())
}

func TestIngest_AllBlankIsEmptyResult(t *testing.T) {
	tests := map[string]string{
		"header only":   "Date,Time,Gate,Amount\n",
		"blank rows":    "Date,Time,Gate,Amount\n,,,\n , , , \n",
		"nothing at all": "",
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			res, err := NewIngester(nil).Ingest(context.Background(), "s.csv", strings.NewReader(content))
			assert.Nil(t, res)
			assert.ErrorIs(t, err, common.ErrEmptyResult)
			assert.NotErrorIs(t, err, common.ErrUnsupportedFormat)
		})
	}
}

func TestIngest_IDsFollowOutputOrder(t *testing.T) {
	var b strings.Builder
	b.WriteString("Date,Time,Gate,Amount,Seq\n")
	for i := 0; i < 500; i++ {
		if i%7 == 0 {
			b.WriteString(",,,,\n")
			continue
		}
		fmt.Fprintf(&b, "2024-03-04,08:%02d:00,Al Barsha,4.00,%d\n", i%60, i)
	}

	res, err := NewIngester(nil, WithWorkers(8)).Ingest(context.Background(), "s.csv", strings.NewReader(b.String()))
	require.NoError(t, err)

	prevSeq := -1
	for i, trip := range res.Trips {
		assert.Equal(t, i+1, trip.ID)
		assert.Equal(t, i+1, res.Raw[i].Position)
		var seq int
		_, scanErr := fmt.Sscanf(res.Raw[i].Extra["seq"], "%d", &seq)
		require.NoError(t, scanErr)
		assert.Greater(t, seq, prevSeq, "source order preserved")
		prevSeq = seq
	}
}

func TestIngest_FreeText(t *testing.T) {
	text := `SALIK TRIP STATEMENT
Account 12345 Period March 2024
04/03/2024 08:10 AM  Al Barsha        Northbound  AED 4.00
04/03/2024 08:16:30 AM  AL SAFA SOUTH  NB  4.00
05-Mar-2024 18:05 Unknown Bridge 4.00
Closing balance 88.00`

	res, err := NewIngester(nil).Ingest(context.Background(), "statement.txt", strings.NewReader(text))
	require.NoError(t, err)

	assert.False(t, res.Synthetic)
	require.Len(t, res.Trips, 3)

	assert.Equal(t, "2024-03-04", res.Trips[0].Date)
	assert.Equal(t, "08:10:00 AM", res.Trips[0].Time)
	assert.Equal(t, "Al Barsha", res.Trips[0].TollGate)
	assert.Equal(t, "Northbound", res.Trips[0].Direction)

	assert.Equal(t, "08:16:30 AM", res.Trips[1].Time)
	assert.Equal(t, "Al Safa South", res.Trips[1].TollGate)
	assert.Equal(t, "Northbound", res.Trips[1].Direction)

	assert.Equal(t, "2024-03-05", res.Trips[2].Date)
	assert.Equal(t, "06:05:00 PM", res.Trips[2].Time)
	assert.Equal(t, model.UnknownGate, res.Trips[2].TollGate)
	assert.Equal(t, 3, res.Trips[2].ID)
	assert.Contains(t, res.Raw[2].Extra["line"], "Unknown Bridge")
}

func TestIngest_SyntheticFallbacks(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  string
	}{
		{name: "opaque document", filename: "statement.pdf", content: "%PDF-1.7 binary"},
		{name: "text without dates", filename: "statement.txt", content: "hello\nno trips here\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NewIngester(nil).Ingest(context.Background(), tt.filename, strings.NewReader(tt.content))
			require.NoError(t, err)

			assert.True(t, res.Synthetic)
			require.Len(t, res.Trips, 8)
			require.Len(t, res.Raw, 8)
			for i, trip := range res.Trips {
				assert.Equal(t, i+1, trip.ID)
				assert.Equal(t, "synthetic", res.Raw[i].Extra["source"])
			}
		})
	}

	a, err := NewIngester(nil).Ingest(context.Background(), "a.pdf", strings.NewReader(""))
	require.NoError(t, err)
	b, err := NewIngester(nil).Ingest(context.Background(), "b.pdf", strings.NewReader("other"))
	require.NoError(t, err)
	assert.Equal(t, a.Trips, b.Trips, "demonstration data is deterministic")
}

func TestIngest_SpreadsheetSheets(t *testing.T) {
	f := excelize.NewFile()
	t.Cleanup(func() { _ = f.Close() })

	const trips = "Sheet1"
	rows := [][]any{
		{"Trip Date", "Trip Time", "Toll Gate", "Direction", "Amount", "Tag"},
		{45355.0, 0.34375, "Al Barsha", "Northbound", 4, "T1"},
		{nil, nil, nil, nil, nil, nil},
		{"05/03/2024", "18:05", "Al Garhoud Bridge", "Southbound", nil, "T1"},
	}
	for r, row := range rows {
		for c, v := range row {
			if v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(trips, cell, v))
		}
	}

	_, err := f.NewSheet("Speed Data (raw)")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Speed Data (raw)", "A1", &[]any{"Route", "Speed km/h"}))
	require.NoError(t, f.SetSheetRow("Speed Data (raw)", "A2", &[]any{"Barsha - Safa", 95}))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	res, err := NewIngester(nil).Ingest(context.Background(), "statement.xlsx", bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	assert.Equal(t, FormatSpreadsheet, res.Format)
	require.Len(t, res.Trips, 2, "only the primary sheet feeds the ledger")
	assert.Equal(t, "2024-03-04", res.Trips[0].Date)
	assert.Equal(t, "08:15:00 AM", res.Trips[0].Time)
	assert.Equal(t, "2024-03-05", res.Trips[1].Date)
	assert.Equal(t, "06:05:00 PM", res.Trips[1].Time)
	assert.True(t, DefaultTollFee.Equal(res.Trips[1].Amount))
	assert.Equal(t, "T1", res.Raw[0].Extra["tag"])

	speed, ok := res.Tables["speed_data"]
	require.True(t, ok, "supplementary sheet kept under its normalized name")
	require.Len(t, speed, 1)
	assert.Equal(t, "Barsha - Safa", speed[0].Direction)
	assert.Equal(t, "95", speed[0].Extra["speed_kmh"])
}

func TestIngest_CorruptSpreadsheet(t *testing.T) {
	_, err := NewIngester(nil).Ingest(context.Background(), "statement.xlsx", strings.NewReader("not a zip"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrUnsupportedFormat)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{raw: "4.00", want: "4", ok: true},
		{raw: "AED 4.00", want: "4", ok: true},
		{raw: "-4.00", want: "4", ok: true},
		{raw: "(8.00)", want: "8", ok: true},
		{raw: "4,50", want: "4.5", ok: true},
		{raw: "1,204.50", want: "1204.5", ok: true},
		{raw: "1,204", want: "1204", ok: true},
		{raw: "-1,204", want: "1204", ok: true},
		{raw: "12,345,678", want: "12345678", ok: true},
		{raw: "0,500", want: "0.5", ok: true},
		{raw: "4,5", want: "4.5", ok: true},
		{raw: "1,2045", want: "1.2045", ok: true},
		{raw: "1.204,50", want: "1204.5", ok: true},
		{raw: "1.204.500", want: "1204500", ok: true},
		{raw: "", want: "0"},
		{raw: "four", want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := parseAmount(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got.String())
		})
	}
}
