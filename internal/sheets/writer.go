package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"os"
	"time"

	"github.com/Veraticus/tollgate-risk/internal/common"
	"github.com/Veraticus/tollgate-risk/internal/service"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Writer implements service.ReportWriter for Google Sheets.
type Writer struct {
	service *sheets.Service
	logger  *slog.Logger
	config  Config
}

// NewWriter creates a new Google Sheets report writer.
func NewWriter(ctx context.Context, config Config, logger *slog.Logger) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	service, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Writer{
		config:  config,
		service: service,
		logger:  logger,
	}, nil
}

// tab is one worksheet and the rows destined for it.
type tab struct {
	title  string
	values [][]any
}

// Write implements service.ReportWriter. Each tab is cleared and rewritten
// so re-exporting a session replaces the previous export.
func (w *Writer) Write(ctx context.Context, summary *service.ReportSummary) error {
	if summary == nil {
		return fmt.Errorf("nothing to export: summary is nil")
	}
	w.logger.Info("starting report export",
		"session", summary.SessionID,
		"trips", len(summary.Trips),
		"legs", len(summary.Legs),
		"synthetic", summary.Synthetic)

	tabs := []tab{
		{title: TabRisk, values: prepareRiskValues(summary)},
		{title: TabTrips, values: prepareTripValues(summary)},
		{title: TabSpeed, values: prepareSpeedValues(summary)},
	}

	spreadsheetID, sheetIDs, err := w.getOrCreateSpreadsheet(ctx, tabs)
	if err != nil {
		return fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	retryOpts := service.RetryOptions{
		MaxAttempts:  max(w.config.RetryAttempts, 1),
		InitialDelay: w.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	for _, t := range tabs {
		err := common.WithRetry(ctx, func() error {
			if clearErr := w.clearTab(ctx, spreadsheetID, t.title); clearErr != nil {
				return classifyAPIError(clearErr)
			}
			return classifyAPIError(w.writeData(ctx, spreadsheetID, t.title, t.values))
		}, retryOpts)
		if err != nil {
			return fmt.Errorf("failed to write %s tab: %w", t.title, err)
		}
	}

	if w.config.EnableFormatting {
		err = common.WithRetry(ctx, func() error {
			return classifyAPIError(w.applyFormatting(ctx, spreadsheetID, sheetIDs))
		}, retryOpts)
		if err != nil {
			w.logger.Warn("failed to apply formatting", "error", err)
			// Don't fail the whole export if formatting fails
		}
	}

	w.logger.Info("report export completed",
		"spreadsheet_id", spreadsheetID,
		"tabs", len(tabs))

	return nil
}

// createSheetsService creates a Google Sheets API service.
func createSheetsService(ctx context.Context, config Config) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}

		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}

		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		token := &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		}
		tokenSource = oauthConfig(config.ClientID, config.ClientSecret, "").TokenSource(ctx, token)
	}

	httpClient := oauth2.NewClient(ctx, tokenSource)
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return srv, nil
}

// getOrCreateSpreadsheet returns the target spreadsheet with every tab
// present, adding missing tabs to an existing spreadsheet.
func (w *Writer) getOrCreateSpreadsheet(ctx context.Context, tabs []tab) (string, map[string]int64, error) {
	if w.config.SpreadsheetID == "" {
		spreadsheet := &sheets.Spreadsheet{
			Properties: &sheets.SpreadsheetProperties{
				Title:    w.config.SpreadsheetName,
				TimeZone: w.config.TimeZone,
			},
		}
		for _, t := range tabs {
			spreadsheet.Sheets = append(spreadsheet.Sheets, &sheets.Sheet{
				Properties: &sheets.SheetProperties{Title: t.title},
			})
		}

		created, err := w.service.Spreadsheets.Create(spreadsheet).Context(ctx).Do()
		if err != nil {
			return "", nil, fmt.Errorf("unable to create spreadsheet: %w", err)
		}

		w.logger.Info("created new spreadsheet",
			"id", created.SpreadsheetId,
			"url", created.SpreadsheetUrl)

		return created.SpreadsheetId, sheetIDs(created), nil
	}

	existing, err := w.service.Spreadsheets.Get(w.config.SpreadsheetID).Context(ctx).Do()
	if err != nil {
		return "", nil, fmt.Errorf("unable to access spreadsheet %s: %w", w.config.SpreadsheetID, err)
	}

	ids := sheetIDs(existing)
	var add []*sheets.Request
	for _, t := range tabs {
		if _, ok := ids[t.title]; !ok {
			add = append(add, &sheets.Request{
				AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: t.title}},
			})
		}
	}
	if len(add) == 0 {
		return existing.SpreadsheetId, ids, nil
	}

	resp, err := w.service.Spreadsheets.BatchUpdate(existing.SpreadsheetId,
		&sheets.BatchUpdateSpreadsheetRequest{Requests: add}).Context(ctx).Do()
	if err != nil {
		return "", nil, fmt.Errorf("unable to add tabs: %w", err)
	}
	for _, r := range resp.Replies {
		if r.AddSheet != nil && r.AddSheet.Properties != nil {
			ids[r.AddSheet.Properties.Title] = r.AddSheet.Properties.SheetId
		}
	}
	return existing.SpreadsheetId, ids, nil
}

func sheetIDs(s *sheets.Spreadsheet) map[string]int64 {
	ids := make(map[string]int64, len(s.Sheets))
	for _, sh := range s.Sheets {
		if sh.Properties != nil {
			ids[sh.Properties.Title] = sh.Properties.SheetId
		}
	}
	return ids
}

// classifyAPIError marks quota errors for backoff and client errors as
// final so WithRetry does not repeat a request that cannot succeed. A
// Retry-After header on a retryable response sets the next delay.
func classifyAPIError(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	retryAfter := common.ParseRetryAfter(apiErr.Header.Get("Retry-After"), time.Now())
	switch {
	case apiErr.Code == http.StatusTooManyRequests:
		return &common.RetryableError{
			Err:        fmt.Errorf("%w: %w", common.ErrRateLimit, err),
			Retryable:  true,
			RetryAfter: retryAfter,
		}
	case apiErr.Code >= 400 && apiErr.Code < 500:
		return &common.RetryableError{Err: err, Retryable: false}
	case retryAfter > 0:
		return &common.RetryableError{Err: err, Retryable: true, RetryAfter: retryAfter}
	default:
		return err
	}
}

// clearTab clears all data from one tab.
func (w *Writer) clearTab(ctx context.Context, spreadsheetID, title string) error {
	_, err := w.service.Spreadsheets.Values.Clear(spreadsheetID, quoteTab(title)+"!A:Z", &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

func quoteTab(title string) string {
	return "'" + title + "'"
}

// writeData writes rows to a tab in batches to stay under API limits.
func (w *Writer) writeData(ctx context.Context, spreadsheetID, title string, values [][]any) error {
	for i := 0; i < len(values); i += w.config.BatchSize {
		end := min(i+w.config.BatchSize, len(values))
		batch := values[i:end]

		rangeStr := fmt.Sprintf("%s!A%d", quoteTab(title), i+1)
		_, err := w.service.Spreadsheets.Values.Update(spreadsheetID, rangeStr, &sheets.ValueRange{Values: batch}).
			ValueInputOption("USER_ENTERED").
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("failed to write batch starting at row %d: %w", i+1, err)
		}

		w.logger.Debug("wrote batch", "tab", title, "start_row", i+1, "rows", len(batch))
	}

	return nil
}

// applyFormatting bolds headers, freezes them and resizes columns.
func (w *Writer) applyFormatting(ctx context.Context, spreadsheetID string, ids map[string]int64) error {
	var requests []*sheets.Request
	for _, title := range []string{TabRisk, TabTrips, TabSpeed} {
		id, ok := ids[title]
		if !ok {
			continue
		}
		requests = append(requests,
			&sheets.Request{
				RepeatCell: &sheets.RepeatCellRequest{
					Range: &sheets.GridRange{SheetId: id, StartRowIndex: 0, EndRowIndex: 1},
					Cell: &sheets.CellData{
						UserEnteredFormat: &sheets.CellFormat{
							TextFormat: &sheets.TextFormat{Bold: true},
						},
					},
					Fields: "userEnteredFormat.textFormat",
				},
			},
			&sheets.Request{
				UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
					Properties: &sheets.SheetProperties{
						SheetId:        id,
						GridProperties: &sheets.GridProperties{FrozenRowCount: 1},
					},
					Fields: "gridProperties.frozenRowCount",
				},
			},
			&sheets.Request{
				AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
					Dimensions: &sheets.DimensionRange{
						SheetId:    id,
						Dimension:  "COLUMNS",
						StartIndex: 0,
						EndIndex:   9,
					},
				},
			},
		)
	}
	if len(requests) == 0 {
		return nil
	}

	_, err := w.service.Spreadsheets.BatchUpdate(spreadsheetID,
		&sheets.BatchUpdateSpreadsheetRequest{Requests: requests}).Context(ctx).Do()
	return err
}

// prepareTripValues lays out the Trips tab: one row per ledger entry.
func prepareTripValues(summary *service.ReportSummary) [][]any {
	values := make([][]any, 0, len(summary.Trips)+1)
	values = append(values, []any{"ID", "Date", "Time", "Toll Gate", "Direction", "Amount"})
	for _, t := range summary.Trips {
		r := tripRow(t)
		values = append(values, []any{r.ID, r.Date, r.Time, r.TollGate, r.Direction, r.Amount.StringFixed(2)})
	}
	return values
}

// prepareSpeedValues lays out the Speed tab: one row per inferred leg.
func prepareSpeedValues(summary *service.ReportSummary) [][]any {
	values := make([][]any, 0, len(summary.Legs)+1)
	values = append(values, []any{"Date", "Start", "End", "Route", "Distance (km)", "Minutes", "Speed (km/h)", "Limit (km/h)", "Status"})
	for _, l := range summary.Legs {
		r := speedRow(l)
		values = append(values, []any{
			r.Date, r.StartTime, r.EndTime, r.Route,
			round2(r.DistanceKm), round2(r.Minutes), round2(r.SpeedKmh), r.LimitKmh, r.Status,
		})
	}
	return values
}

// prepareRiskValues lays out the Risk tab: headline figures, then one row
// per factor.
func prepareRiskValues(summary *service.ReportSummary) [][]any {
	report := summary.Report
	values := [][]any{
		{"Parameter", "Observation", "Risk Level", "Adjustment (%)"},
	}
	for _, f := range report.Factors {
		r := factorRow(f)
		values = append(values, []any{r.Parameter, r.Observation, r.Level, r.Adjustment})
	}
	values = append(values,
		[]any{},
		[]any{"Total Adjustment (%)", report.TotalAdjustmentPercent},
		[]any{"Driver Profile", report.DriverProfile},
		[]any{"Source", summary.Source},
		[]any{"Generated", summary.GeneratedAt.Format(time.RFC3339)},
	)
	if summary.Synthetic || report.Synthetic {
		values = append(values, []any{"Note", "Demonstration data: the statement content could not be read"})
	}
	return values
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
