package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/tollgate-risk/internal/common"
	"github.com/Veraticus/tollgate-risk/internal/model"
	"github.com/Veraticus/tollgate-risk/internal/risk"
	"github.com/Veraticus/tollgate-risk/internal/service"
	"github.com/Veraticus/tollgate-risk/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Al Barsha to Al Safa South is 9.5 km at a 100 km/h limit, Al Safa South
// to Al Safa North is 1.5 km.
const statement = "Date,Time,Toll Gate,Direction,Amount\n" +
	"04/03/2024,08:00,Al Barsha,Eastbound,4.00\n" +
	"04/03/2024,08:05,Al Safa South,Eastbound,4.00\n" +
	"04/03/2024,08:06,Al Safa North,Eastbound,4.00\n" +
	"09/03/2024,22:30,Al Maktoum Bridge,Westbound,4.00\n"

var fixedNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestEngine() *Engine {
	e := New(nil)
	e.now = func() time.Time { return fixedNow }
	n := 0
	e.newID = func() string {
		n++
		return "session-" + string(rune('0'+n))
	}
	return e
}

func TestAnalyze(t *testing.T) {
	e := newTestEngine()

	a, err := e.Analyze(context.Background(), "statement.csv", strings.NewReader(statement), risk.DefaultThresholds())
	require.NoError(t, err)

	assert.Equal(t, "session-1", a.SessionID)
	assert.Equal(t, fixedNow, a.GeneratedAt)
	assert.Equal(t, "statement.csv", a.Source)
	require.Len(t, a.Trips, 4)
	require.Len(t, a.Legs, 2)

	assert.Equal(t, "Al Barsha → Al Safa South", a.Legs[0].Route)
	assert.InDelta(t, 114.0, a.Legs[0].SpeedKmh, 1e-6)
	assert.False(t, a.Legs[0].WithinLimit)
	assert.InDelta(t, 90.0, a.Legs[1].SpeedKmh, 1e-6)
	assert.True(t, a.Legs[1].WithinLimit)

	assert.Equal(t, 2, a.Speed.Legs)
	assert.Equal(t, 1, a.Speed.Violations)

	require.Len(t, a.Report.Factors, 8)
	assert.GreaterOrEqual(t, a.Report.TotalAdjustmentPercent, -risk.AdjustmentCap)
	assert.LessOrEqual(t, a.Report.TotalAdjustmentPercent, risk.AdjustmentCap)
	assert.NotEmpty(t, a.Report.DriverProfile)
	assert.False(t, a.Report.Synthetic)
	assert.Equal(t, risk.DefaultThresholds(), a.Thresholds)

	summary := a.Summary()
	assert.Equal(t, a.SessionID, summary.SessionID)
	assert.Len(t, summary.Legs, 2)
}

func TestAnalyze_Failures(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	a, err := e.Analyze(ctx, "statement.docx", strings.NewReader(statement), risk.DefaultThresholds())
	assert.Nil(t, a)
	assert.ErrorIs(t, err, common.ErrUnsupportedFormat)

	a, err = e.Analyze(ctx, "statement.csv", strings.NewReader("Date,Time,Toll Gate\n,,\n"), risk.DefaultThresholds())
	assert.Nil(t, a)
	assert.ErrorIs(t, err, common.ErrEmptyResult)

	bad := risk.DefaultThresholds()
	bad.Speed.Penalty = -1
	a, err = e.Analyze(ctx, "statement.csv", strings.NewReader(statement), bad)
	assert.Nil(t, a)
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestAnalyze_Synthetic(t *testing.T) {
	a, err := newTestEngine().Analyze(context.Background(), "scan.pdf", strings.NewReader("%PDF-1.7"), risk.DefaultThresholds())
	require.NoError(t, err)
	assert.True(t, a.Synthetic)
	assert.True(t, a.Report.Synthetic)
	assert.NotEmpty(t, a.Trips)
}

func TestAnalyzeLedger(t *testing.T) {
	trips := []model.TripRecord{
		{ID: 1, Date: "2024-03-04", Time: "08:00:00 AM", TollGate: "Al Barsha"},
		{ID: 2, Date: "2024-03-04", Time: "08:05:00 AM", TollGate: "Al Safa South"},
	}

	a, err := newTestEngine().AnalyzeLedger("api", trips, risk.DefaultThresholds(), false)
	require.NoError(t, err)
	require.Len(t, a.Legs, 1)
	assert.Equal(t, "api", a.Source)
	assert.Empty(t, a.Format)
	assert.Len(t, a.Report.Factors, 8)
}

func TestReevaluate(t *testing.T) {
	e := newTestEngine()
	a, err := e.Analyze(context.Background(), "statement.csv", strings.NewReader(statement), risk.DefaultThresholds())
	require.NoError(t, err)

	before, ok := a.Report.Factor(model.DimensionDrivingStyle)
	require.True(t, ok)
	assert.InDelta(t, -1.0, before.AdjustmentPercent, 1e-9, "one violation earns half the reward")

	th := risk.DefaultThresholds()
	th.DrivingStyle.Reward = 4
	b, err := e.Reevaluate(a, th)
	require.NoError(t, err)

	after, ok := b.Report.Factor(model.DimensionDrivingStyle)
	require.True(t, ok)
	assert.InDelta(t, -2.0, after.AdjustmentPercent, 1e-9)
	assert.Equal(t, a.Legs, b.Legs)
	assert.Equal(t, th, b.Thresholds)

	unchanged, _ := a.Report.Factor(model.DimensionDrivingStyle)
	assert.InDelta(t, -1.0, unchanged.AdjustmentPercent, 1e-9, "the original analysis is not modified")

	th.DrivingStyle.Reward = -3
	_, err = e.Reevaluate(a, th)
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestSaveResume(t *testing.T) {
	ctx := context.Background()
	repo := storage.NewMemoryStorage()
	e := newTestEngine()

	th := risk.DefaultThresholds()
	th.DrivingStyle.Reward = 4
	a, err := e.Analyze(ctx, "statement.csv", strings.NewReader(statement), th)
	require.NoError(t, err)
	require.NoError(t, e.Save(ctx, repo, a))

	sessions, err := repo.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, a.SessionID, sessions[0].ID)
	assert.Equal(t, 6, sessions[0].Artifacts)

	t.Run("stored thresholds", func(t *testing.T) {
		resumed, err := e.Resume(ctx, repo, a.SessionID, nil)
		require.NoError(t, err)

		assert.Equal(t, th, resumed.Thresholds)
		assert.Equal(t, a.Source, resumed.Source)
		assert.Equal(t, a.GeneratedAt, resumed.GeneratedAt)
		assert.Equal(t, a.Format, resumed.Format)
		assert.Len(t, resumed.Raw, len(a.Raw))
		assert.Equal(t, a.Legs, resumed.Legs)
		assert.InDelta(t, a.Report.TotalAdjustmentPercent, resumed.Report.TotalAdjustmentPercent, 1e-9)
		assert.Equal(t, a.Report.DriverProfile, resumed.Report.DriverProfile)
		for i, trip := range resumed.Trips {
			assert.Equal(t, a.Trips[i].TollGate, trip.TollGate)
			assert.True(t, a.Trips[i].Amount.Equal(trip.Amount))
		}
	})

	t.Run("override thresholds", func(t *testing.T) {
		defaults := risk.DefaultThresholds()
		resumed, err := e.Resume(ctx, repo, a.SessionID, &defaults)
		require.NoError(t, err)
		f, _ := resumed.Report.Factor(model.DimensionDrivingStyle)
		assert.InDelta(t, -1.0, f.AdjustmentPercent, 1e-9)
	})

	t.Run("unknown session", func(t *testing.T) {
		_, err := e.Resume(ctx, repo, "nope", nil)
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("ledger without meta", func(t *testing.T) {
		require.NoError(t, repo.Put(ctx, "bare", service.ArtifactTripLedger, []byte(`[{"id":1,"date":"2024-03-04","time":"08:00:00 AM","tollGate":"Al Barsha","direction":"","amount":"4"}]`)))
		_, err := e.Resume(ctx, repo, "bare", nil)
		assert.ErrorIs(t, err, ErrIncompleteSession)
	})

	t.Run("meta without thresholds uses defaults", func(t *testing.T) {
		require.NoError(t, repo.Put(ctx, "lean", service.ArtifactSessionMeta, []byte(`{"source":"lean.csv","synthetic":true}`)))
		require.NoError(t, repo.Put(ctx, "lean", service.ArtifactTripLedger, []byte(`[{"id":1,"date":"2024-03-04","time":"08:00:00 AM","tollGate":"Al Barsha","direction":"","amount":"4"}]`)))
		resumed, err := e.Resume(ctx, repo, "lean", nil)
		require.NoError(t, err)
		assert.Equal(t, risk.DefaultThresholds(), resumed.Thresholds)
		assert.Len(t, resumed.Trips, 1)
		assert.True(t, resumed.Synthetic)
		assert.True(t, resumed.Report.Synthetic)
	})
}

// failingRepo fails Put for one artifact.
type failingRepo struct {
	*storage.MemoryStorage
	failOn service.ArtifactName
}

func (r *failingRepo) Put(ctx context.Context, sessionID string, name service.ArtifactName, payload []byte) error {
	if name == r.failOn {
		return errors.New("disk full")
	}
	return r.MemoryStorage.Put(ctx, sessionID, name, payload)
}

func TestSave_PartialFailure(t *testing.T) {
	ctx := context.Background()

	for _, failOn := range []service.ArtifactName{
		service.ArtifactSpeedLegs,
		service.ArtifactRiskThresholds,
		service.ArtifactTripLedger,
	} {
		t.Run(string(failOn), func(t *testing.T) {
			repo := &failingRepo{MemoryStorage: storage.NewMemoryStorage(), failOn: failOn}
			e := newTestEngine()

			a, err := e.AnalyzeLedger("ledger.json", []model.TripRecord{
				{ID: 1, Date: "2024-03-04", Time: "08:00:00 AM", TollGate: "Al Barsha"},
			}, risk.DefaultThresholds(), true)
			require.NoError(t, err)

			err = e.Save(ctx, repo, a)
			require.Error(t, err)
			assert.Contains(t, err.Error(), string(failOn))

			sessions, err := repo.ListSessions(ctx)
			require.NoError(t, err)
			assert.Empty(t, sessions, "partial artifacts are removed")

			_, err = e.Resume(ctx, repo, a.SessionID, nil)
			assert.ErrorIs(t, err, common.ErrNotFound)
		})
	}
}
