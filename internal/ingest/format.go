// Package ingest turns toll usage statements in several loosely structured
// formats into the canonical trip ledger.
package ingest

import (
	"path/filepath"
	"strings"

	"github.com/Veraticus/tollgate-risk/internal/common"
)

// Format is the kind of statement file being ingested.
type Format string

// Supported statement formats.
const (
	FormatDelimited   Format = "delimited"
	FormatSpreadsheet Format = "spreadsheet"
	FormatFreeText    Format = "free-text"
	FormatOpaque      Format = "opaque"
)

var formatsByExtension = map[string]Format{
	".csv":  FormatDelimited,
	".xlsx": FormatSpreadsheet,
	".txt":  FormatFreeText,
	".pdf":  FormatOpaque,
}

// DetectFormat picks the format from the file extension alone.
func DetectFormat(filename string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if f, ok := formatsByExtension[ext]; ok {
		return f, nil
	}
	return "", &common.UnsupportedFormatError{Extension: ext}
}

// SupportedExtensions lists the accepted file extensions.
func SupportedExtensions() []string {
	return []string{".csv", ".xlsx", ".pdf", ".txt"}
}
