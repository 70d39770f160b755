package ingest

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/xuri/excelize/v2"
)

// sheet is one worksheet of a workbook.
type sheet struct {
	name  string
	table table
}

// readSpreadsheet reads every worksheet in workbook order. Raw cell values
// are requested so date and time cells arrive as serial numbers rather than
// locale-formatted text.
func readSpreadsheet(r io.Reader) ([]sheet, error) {
	f, err := excelize.OpenReader(r, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			slog.Debug("Failed to close spreadsheet", "error", cerr)
		}
	}()

	var sheets []sheet
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", name, err)
		}
		sheets = append(sheets, sheet{name: name, table: splitHeader(rows)})
	}

	return sheets, nil
}
