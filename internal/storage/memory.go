package storage

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Veraticus/tollgate-risk/internal/common"
	"github.com/Veraticus/tollgate-risk/internal/service"
)

// MemoryStorage keeps artifacts in process memory. Sessions do not outlive
// the process.
type MemoryStorage struct {
	sessions map[string]*memorySession
	mu       sync.RWMutex
}

type memorySession struct {
	updatedAt time.Time
	artifacts map[service.ArtifactName][]byte
}

// NewMemoryStorage creates an empty in-memory repository.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{sessions: make(map[string]*memorySession)}
}

// Put implements service.Repository.
func (m *MemoryStorage) Put(ctx context.Context, sessionID string, name service.ArtifactName, payload []byte) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(sessionID, "sessionID"); err != nil {
		return err
	}
	if err := validateArtifactName(name); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		s = &memorySession{artifacts: make(map[service.ArtifactName][]byte)}
		m.sessions[sessionID] = s
	}
	s.artifacts[name] = slices.Clone(payload)
	s.updatedAt = time.Now().UTC()
	return nil
}

// Get implements service.Repository.
func (m *MemoryStorage) Get(ctx context.Context, sessionID string, name service.ArtifactName) ([]byte, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateArtifactName(name); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: session %s", common.ErrNotFound, sessionID)
	}
	payload, ok := s.artifacts[name]
	if !ok {
		return nil, fmt.Errorf("%w: artifact %s in session %s", common.ErrNotFound, name, sessionID)
	}
	return slices.Clone(payload), nil
}

// ListSessions implements service.Repository.
func (m *MemoryStorage) ListSessions(ctx context.Context) ([]service.SessionInfo, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]service.SessionInfo, 0, len(m.sessions))
	for id, s := range m.sessions {
		out = append(out, service.SessionInfo{ID: id, UpdatedAt: s.updatedAt, Artifacts: len(s.artifacts)})
	}
	sortSessions(out)
	return out, nil
}

// DeleteSession implements service.Repository.
func (m *MemoryStorage) DeleteSession(ctx context.Context, sessionID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[sessionID]; !ok {
		return fmt.Errorf("%w: session %s", common.ErrNotFound, sessionID)
	}
	delete(m.sessions, sessionID)
	return nil
}

// Close implements service.Repository.
func (m *MemoryStorage) Close() error {
	return nil
}

// sortSessions orders sessions most recently updated first, then by id.
func sortSessions(sessions []service.SessionInfo) {
	slices.SortFunc(sessions, func(a, b service.SessionInfo) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
}
