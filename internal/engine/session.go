package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/tollgate-risk/internal/common"
	"github.com/Veraticus/tollgate-risk/internal/config"
	"github.com/Veraticus/tollgate-risk/internal/ingest"
	"github.com/Veraticus/tollgate-risk/internal/risk"
	"github.com/Veraticus/tollgate-risk/internal/service"
)

// sessionMeta is the session_meta artifact.
type sessionMeta struct {
	GeneratedAt time.Time     `json:"generatedAt"`
	Source      string        `json:"source"`
	Format      ingest.Format `json:"format,omitempty"`
	Dropped     int           `json:"dropped"`
	Synthetic   bool          `json:"synthetic"`
}

// ErrIncompleteSession marks a session whose artifacts were only partly saved.
var ErrIncompleteSession = errors.New("session is incomplete")

// Save persists every artifact of an analysis under its session ID.
// session_meta goes first and trip_ledger last, so Resume never sees a
// ledger without its metadata. A failed write removes what was stored.
func (e *Engine) Save(ctx context.Context, repo service.Repository, a *Analysis) error {
	thresholds, err := config.EncodeThresholds(a.Thresholds)
	if err != nil {
		return err
	}

	values := []struct {
		value any
		name  service.ArtifactName
	}{
		{name: service.ArtifactSessionMeta, value: sessionMeta{
			GeneratedAt: a.GeneratedAt,
			Source:      a.Source,
			Format:      a.Format,
			Dropped:     a.Dropped,
			Synthetic:   a.Synthetic,
		}},
		{name: service.ArtifactRawLedger, value: a.Raw},
		{name: service.ArtifactSupplementaryTables, value: a.Tables},
		{name: service.ArtifactSpeedLegs, value: a.Legs},
	}

	type artifact struct {
		name    service.ArtifactName
		payload []byte
	}
	artifacts := make([]artifact, 0, len(values)+2)
	for _, v := range values {
		payload, err := json.Marshal(v.value)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", v.name, err)
		}
		artifacts = append(artifacts, artifact{name: v.name, payload: payload})
	}
	ledger, err := json.Marshal(a.Trips)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", service.ArtifactTripLedger, err)
	}
	artifacts = append(artifacts,
		artifact{name: service.ArtifactRiskThresholds, payload: thresholds},
		artifact{name: service.ArtifactTripLedger, payload: ledger},
	)

	for _, art := range artifacts {
		if err := repo.Put(ctx, a.SessionID, art.name, art.payload); err != nil {
			e.discard(ctx, repo, a.SessionID)
			return fmt.Errorf("failed to store %s: %w", art.name, err)
		}
	}

	slog.Debug("Saved session", "session", a.SessionID, "artifacts", len(artifacts))
	return nil
}

// discard removes a partly saved session.
func (e *Engine) discard(ctx context.Context, repo service.Repository, sessionID string) {
	if err := repo.DeleteSession(context.WithoutCancel(ctx), sessionID); err != nil && !errors.Is(err, common.ErrNotFound) {
		slog.Warn("Failed to remove partial session", "session", sessionID, "error", err)
	}
}

// Resume rebuilds a saved analysis from its stored ledger. Legs and the
// report are derived again, so a changed network or thresholds take effect.
// A nil th reuses the thresholds stored with the session.
func (e *Engine) Resume(ctx context.Context, repo service.Repository, sessionID string, th *risk.Thresholds) (*Analysis, error) {
	a := &Analysis{SessionID: sessionID}

	if err := getJSON(ctx, repo, sessionID, service.ArtifactTripLedger, &a.Trips); err != nil {
		return nil, err
	}

	var meta sessionMeta
	if err := getJSON(ctx, repo, sessionID, service.ArtifactSessionMeta, &meta); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s has no %s", ErrIncompleteSession, sessionID, service.ArtifactSessionMeta)
		}
		return nil, err
	}

	optional := []struct {
		dst  any
		name service.ArtifactName
	}{
		{dst: &a.Raw, name: service.ArtifactRawLedger},
		{dst: &a.Tables, name: service.ArtifactSupplementaryTables},
	}
	for _, o := range optional {
		if err := getJSON(ctx, repo, sessionID, o.name, o.dst); err != nil && !errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
	}
	a.GeneratedAt = meta.GeneratedAt
	a.Source = meta.Source
	a.Format = meta.Format
	a.Dropped = meta.Dropped
	a.Synthetic = meta.Synthetic

	var effective risk.Thresholds
	if th != nil {
		effective = *th
	} else {
		stored, err := e.StoredThresholds(ctx, repo, sessionID)
		if err != nil {
			return nil, err
		}
		effective = stored
	}
	if err := effective.Validate(); err != nil {
		return nil, err
	}

	e.score(a, effective)
	return a, nil
}

// StoredThresholds returns the thresholds saved with a session, or the
// defaults when none were saved.
func (e *Engine) StoredThresholds(ctx context.Context, repo service.Repository, sessionID string) (risk.Thresholds, error) {
	payload, err := repo.Get(ctx, sessionID, service.ArtifactRiskThresholds)
	if errors.Is(err, common.ErrNotFound) {
		return risk.DefaultThresholds(), nil
	}
	if err != nil {
		return risk.Thresholds{}, fmt.Errorf("failed to load %s: %w", service.ArtifactRiskThresholds, err)
	}
	return config.DecodeThresholds(payload)
}

func getJSON(ctx context.Context, repo service.Repository, sessionID string, name service.ArtifactName, dst any) error {
	payload, err := repo.Get(ctx, sessionID, name)
	if err != nil {
		return fmt.Errorf("failed to load %s for session %s: %w", name, sessionID, err)
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return nil
}
