// Package storage provides the artifact repositories analysis sessions are
// saved to and resumed from.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/tollgate-risk/internal/service"
)

// Validation errors.
var (
	ErrNilContext      = errors.New("context cannot be nil")
	ErrEmptyString     = errors.New("string parameter cannot be empty")
	ErrUnknownArtifact = errors.New("unknown artifact name")
)

var knownArtifacts = map[service.ArtifactName]bool{
	service.ArtifactTripLedger:          true,
	service.ArtifactRawLedger:           true,
	service.ArtifactSupplementaryTables: true,
	service.ArtifactSpeedLegs:           true,
	service.ArtifactRiskThresholds:      true,
	service.ArtifactSessionMeta:         true,
}

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateArtifactName only admits the fixed logical artifact names.
func validateArtifactName(name service.ArtifactName) error {
	if !knownArtifacts[name] {
		return fmt.Errorf("%w: %q", ErrUnknownArtifact, name)
	}
	return nil
}
