package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"

	"github.com/Veraticus/tollgate-risk/internal/common"
	"github.com/Veraticus/tollgate-risk/internal/model"
	"github.com/Veraticus/tollgate-risk/internal/tollnet"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Result is the outcome of ingesting one statement. It is only returned
// once every stage succeeded; callers never see a partial ledger.
type Result struct {
	Tables    map[string][]model.RawTripRecord `json:"tables,omitempty"`
	Format    Format                           `json:"format"`
	Trips     []model.TripRecord               `json:"trips"`
	Raw       []model.RawTripRecord            `json:"raw"`
	Dropped   int                              `json:"dropped"`
	Synthetic bool                             `json:"synthetic"`
}

// Ingester reads statements against a toll network reference.
type Ingester struct {
	network    *tollnet.Network
	defaultFee decimal.Decimal
	workers    int
}

// Option configures an Ingester.
type Option func(*Ingester)

// WithWorkers bounds the number of rows normalized concurrently.
func WithWorkers(n int) Option {
	return func(in *Ingester) {
		if n > 0 {
			in.workers = n
		}
	}
}

// WithDefaultFee overrides the fee recorded for rows without an amount.
func WithDefaultFee(fee decimal.Decimal) Option {
	return func(in *Ingester) {
		in.defaultFee = fee
	}
}

// NewIngester creates an ingester. A nil network selects the default one.
func NewIngester(network *tollnet.Network, opts ...Option) *Ingester {
	if network == nil {
		network = tollnet.Default()
	}
	in := &Ingester{
		network:    network,
		defaultFee: DefaultTollFee,
		workers:    runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Ingest detects the format from filename, then reads r. An unsupported
// extension fails before r is touched; a readable statement with no rows
// fails with common.ErrEmptyResult.
func (in *Ingester) Ingest(ctx context.Context, filename string, r io.Reader) (*Result, error) {
	format, err := DetectFormat(filename)
	if err != nil {
		return nil, err
	}

	res := &Result{Format: format}

	switch format {
	case FormatDelimited:
		tbl, err := readDelimited(r)
		if err != nil {
			return nil, err
		}
		raws, dropped := buildRecords(tbl)
		res.Raw, res.Dropped = raws, dropped

	case FormatSpreadsheet:
		sheets, err := readSpreadsheet(r)
		if err != nil {
			return nil, err
		}
		for i, sh := range sheets {
			raws, dropped := buildRecords(sh.table)
			if i == 0 {
				res.Raw, res.Dropped = raws, dropped
				continue
			}
			if res.Tables == nil {
				res.Tables = make(map[string][]model.RawTripRecord)
			}
			res.Tables[sheetKey(sh.name, i)] = raws
		}

	case FormatFreeText:
		raws, err := in.readFreeText(r)
		if err != nil {
			return nil, err
		}
		if len(raws) == 0 {
			slog.Warn("No trips recognized in text statement, substituting demonstration data",
				"file", filename)
			in.fillSynthetic(res)
			return res, nil
		}
		numberRecords(raws)
		res.Raw = raws

	case FormatOpaque:
		slog.Warn("Statement content cannot be read, substituting demonstration data",
			"file", filename,
			"format", format)
		in.fillSynthetic(res)
		return res, nil
	}

	if len(res.Raw) == 0 {
		return nil, fmt.Errorf("%w: %s", common.ErrEmptyResult, filename)
	}

	trips, err := in.narrow(ctx, res.Raw)
	if err != nil {
		return nil, err
	}
	res.Trips = trips

	slog.Info("Ingested statement",
		"file", filename,
		"format", format,
		"trips", len(res.Trips),
		"dropped_rows", res.Dropped,
		"supplementary_tables", len(res.Tables))

	return res, nil
}

func (in *Ingester) fillSynthetic(res *Result) {
	res.Trips, res.Raw = syntheticLedger(in.defaultFee)
	res.Synthetic = true
}

// narrow normalizes rows concurrently. Results are written by index so the
// output order, and therefore every id, matches the input order.
func (in *Ingester) narrow(ctx context.Context, raws []model.RawTripRecord) ([]model.TripRecord, error) {
	trips := make([]model.TripRecord, len(raws))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(in.workers)
	for i := range raws {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			trip, defects := in.narrowRow(raws[i])
			if len(defects) > 0 {
				slog.Debug("Recovered row defects",
					"position", raws[i].Position,
					"defaulted", defects)
			}
			trips[i] = trip
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to normalize rows: %w", err)
	}

	for i := range trips {
		trips[i].ID = i + 1
	}
	return trips, nil
}

// buildRecords maps table rows onto raw records, silently dropping rows
// whose every cell is blank.
func buildRecords(tbl table) ([]model.RawTripRecord, int) {
	if len(tbl.header) == 0 {
		return nil, 0
	}
	cm := mapColumns(tbl.header)

	raws := make([]model.RawTripRecord, 0, len(tbl.rows))
	dropped := 0
	for _, cells := range tbl.rows {
		rec := recordFromCells(cm, cells)
		if rec.IsBlank() {
			dropped++
			continue
		}
		raws = append(raws, rec)
	}
	numberRecords(raws)
	return raws, dropped
}

func numberRecords(raws []model.RawTripRecord) {
	for i := range raws {
		raws[i].Position = i + 1
	}
}

func sheetKey(name string, index int) string {
	if k := NormalizeKey(name); k != "" {
		return k
	}
	return fmt.Sprintf("sheet_%d", index+1)
}
