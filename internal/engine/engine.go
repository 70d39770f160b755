// Package engine runs the statement pipeline: ingest, derive speed legs,
// score risk. It also saves and resumes analyses through a repository.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Veraticus/tollgate-risk/internal/ingest"
	"github.com/Veraticus/tollgate-risk/internal/model"
	"github.com/Veraticus/tollgate-risk/internal/risk"
	"github.com/Veraticus/tollgate-risk/internal/service"
	"github.com/Veraticus/tollgate-risk/internal/speed"
	"github.com/Veraticus/tollgate-risk/internal/tollnet"
	"github.com/google/uuid"
)

// Analysis is everything one pipeline run produced.
type Analysis struct {
	GeneratedAt time.Time                        `json:"generatedAt"`
	Tables      map[string][]model.RawTripRecord `json:"tables,omitempty"`
	SessionID   string                           `json:"sessionId"`
	Source      string                           `json:"source"`
	Format      ingest.Format                    `json:"format"`
	Trips       []model.TripRecord               `json:"trips"`
	Raw         []model.RawTripRecord            `json:"raw,omitempty"`
	Legs        []model.SpeedLeg                 `json:"legs"`
	Report      model.RiskReport                 `json:"report"`
	Speed       speed.Summary                    `json:"speed"`
	Thresholds  risk.Thresholds                  `json:"thresholds"`
	Dropped     int                              `json:"dropped"`
	Synthetic   bool                             `json:"synthetic"`
}

// Summary converts the analysis for report writers.
func (a *Analysis) Summary() *service.ReportSummary {
	return &service.ReportSummary{
		GeneratedAt: a.GeneratedAt,
		Source:      a.Source,
		SessionID:   a.SessionID,
		Trips:       a.Trips,
		Legs:        a.Legs,
		Report:      a.Report,
		Synthetic:   a.Synthetic,
	}
}

// Engine wires the toll network into every pipeline stage.
type Engine struct {
	network  *tollnet.Network
	ingester *ingest.Ingester
	now      func() time.Time
	newID    func() string
}

// New creates an engine. A nil network selects tollnet.Default.
func New(network *tollnet.Network, opts ...ingest.Option) *Engine {
	if network == nil {
		network = tollnet.Default()
	}
	return &Engine{
		network:  network,
		ingester: ingest.NewIngester(network, opts...),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Network returns the toll network reference the engine scores against.
func (e *Engine) Network() *tollnet.Network {
	return e.network
}

// Analyze runs the full pipeline over one statement. On error no partial
// analysis is returned.
func (e *Engine) Analyze(ctx context.Context, filename string, r io.Reader, th risk.Thresholds) (*Analysis, error) {
	if err := th.Validate(); err != nil {
		return nil, err
	}

	res, err := e.ingester.Ingest(ctx, filename, r)
	if err != nil {
		return nil, fmt.Errorf("failed to ingest %s: %w", filename, err)
	}

	a := &Analysis{
		SessionID:   e.newID(),
		GeneratedAt: e.now().UTC(),
		Source:      filename,
		Format:      res.Format,
		Trips:       res.Trips,
		Raw:         res.Raw,
		Tables:      res.Tables,
		Dropped:     res.Dropped,
		Synthetic:   res.Synthetic,
	}
	e.score(a, th)

	slog.Info("Analysis complete",
		"session", a.SessionID,
		"file", filename,
		"trips", len(a.Trips),
		"legs", len(a.Legs),
		"violations", a.Speed.Violations,
		"adjustment_percent", a.Report.TotalAdjustmentPercent,
		"synthetic", a.Synthetic)

	return a, nil
}

// AnalyzeLedger scores an already-canonical ledger, skipping ingestion.
func (e *Engine) AnalyzeLedger(source string, trips []model.TripRecord, th risk.Thresholds, synthetic bool) (*Analysis, error) {
	if err := th.Validate(); err != nil {
		return nil, err
	}
	a := &Analysis{
		SessionID:   e.newID(),
		GeneratedAt: e.now().UTC(),
		Source:      source,
		Trips:       trips,
		Synthetic:   synthetic,
	}
	e.score(a, th)
	return a, nil
}

// Reevaluate re-scores an analysis under new thresholds. The ledger and
// legs are reused; a is not modified.
func (e *Engine) Reevaluate(a *Analysis, th risk.Thresholds) (*Analysis, error) {
	if err := th.Validate(); err != nil {
		return nil, err
	}
	out := *a
	out.Thresholds = th
	out.Report = risk.Evaluate(e.network, out.Trips, out.Legs, th, out.Synthetic)
	return &out, nil
}

func (e *Engine) score(a *Analysis, th risk.Thresholds) {
	a.Thresholds = th
	a.Legs = speed.Derive(e.network, a.Trips)
	a.Speed = speed.Summarize(a.Legs)
	a.Report = risk.Evaluate(e.network, a.Trips, a.Legs, th, a.Synthetic)
}
