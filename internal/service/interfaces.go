// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/tollgate-risk/internal/model"
)

// ArtifactName is the fixed logical name an analysis artifact is stored under.
type ArtifactName string

// Artifacts persisted for a session so it can be resumed without re-ingestion.
const (
	ArtifactTripLedger          ArtifactName = "trip_ledger"
	ArtifactRawLedger           ArtifactName = "raw_ledger"
	ArtifactSupplementaryTables ArtifactName = "supplementary_tables"
	ArtifactSpeedLegs           ArtifactName = "speed_legs"
	ArtifactRiskThresholds      ArtifactName = "risk_thresholds"
	ArtifactSessionMeta         ArtifactName = "session_meta"
)

// SessionInfo describes a stored analysis session.
type SessionInfo struct {
	UpdatedAt time.Time `json:"updatedAt"`
	ID        string    `json:"id"`
	Artifacts int       `json:"artifacts"`
}

// Repository stores opaque, already-encoded artifacts per session. It is the
// only way pipeline outputs cross process boundaries.
type Repository interface {
	Put(ctx context.Context, sessionID string, name ArtifactName, payload []byte) error
	Get(ctx context.Context, sessionID string, name ArtifactName) ([]byte, error)
	ListSessions(ctx context.Context) ([]SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error
	Close() error
}

// ReportSummary is the presentation-ready view of one analysis.
type ReportSummary struct {
	GeneratedAt time.Time
	Source      string
	SessionID   string
	Trips       []model.TripRecord
	Legs        []model.SpeedLeg
	Report      model.RiskReport
	Synthetic   bool
}

// ReportWriter exports an analysis to an external destination.
type ReportWriter interface {
	Write(ctx context.Context, summary *ReportSummary) error
}

// RetryOptions configures retry behavior for remote operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
