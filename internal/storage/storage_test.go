package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/tollgate-risk/internal/common"
	"github.com/Veraticus/tollgate-risk/internal/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper function to create test storage.
func createTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "nested", "test.db")

	store, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func repositories(t *testing.T) map[string]service.Repository {
	t.Helper()
	repos := map[string]service.Repository{
		"sqlite": createTestStorage(t),
		"memory": NewMemoryStorage(),
	}

	// Redis is only exercised when a server is provided.
	if addr := os.Getenv("TOLLRISK_TEST_REDIS_ADDR"); addr != "" {
		r, err := NewRedisStorage(context.Background(), addr, time.Minute)
		require.NoError(t, err)
		t.Cleanup(func() { _ = r.Close() })
		repos["redis"] = r
	}
	return repos
}

func TestRepository_PutGet(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id := uuid.NewString()

			require.NoError(t, repo.Put(ctx, id, service.ArtifactTripLedger, []byte(`[{"id":1}]`)))
			got, err := repo.Get(ctx, id, service.ArtifactTripLedger)
			require.NoError(t, err)
			assert.JSONEq(t, `[{"id":1}]`, string(got))

			require.NoError(t, repo.Put(ctx, id, service.ArtifactTripLedger, []byte(`[]`)))
			got, err = repo.Get(ctx, id, service.ArtifactTripLedger)
			require.NoError(t, err)
			assert.Equal(t, "[]", string(got), "put replaces the artifact")

			_, err = repo.Get(ctx, id, service.ArtifactSpeedLegs)
			assert.ErrorIs(t, err, common.ErrNotFound)

			_, err = repo.Get(ctx, uuid.NewString(), service.ArtifactTripLedger)
			assert.ErrorIs(t, err, common.ErrNotFound)
		})
	}
}

func TestRepository_RejectsUnknownArtifacts(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			err := repo.Put(context.Background(), "s1", service.ArtifactName("ledger_v2"), []byte("x"))
			assert.ErrorIs(t, err, ErrUnknownArtifact)

			err = repo.Put(context.Background(), " ", service.ArtifactTripLedger, []byte("x"))
			assert.ErrorIs(t, err, ErrEmptyString)
		})
	}
}

func TestRepository_ListAndDeleteSessions(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			first, second := uuid.NewString(), uuid.NewString()

			require.NoError(t, repo.Put(ctx, first, service.ArtifactTripLedger, []byte("[]")))
			require.NoError(t, repo.Put(ctx, first, service.ArtifactSessionMeta, []byte("{}")))
			time.Sleep(5 * time.Millisecond)
			require.NoError(t, repo.Put(ctx, second, service.ArtifactTripLedger, []byte("[]")))

			sessions, err := repo.ListSessions(ctx)
			require.NoError(t, err)
			byID := make(map[string]service.SessionInfo)
			var order []string
			for _, s := range sessions {
				byID[s.ID] = s
				if s.ID == first || s.ID == second {
					order = append(order, s.ID)
				}
			}
			assert.Equal(t, []string{second, first}, order, "most recently updated first")
			assert.Equal(t, 2, byID[first].Artifacts)
			assert.Equal(t, 1, byID[second].Artifacts)
			assert.False(t, byID[first].UpdatedAt.IsZero())

			require.NoError(t, repo.DeleteSession(ctx, first))
			_, err = repo.Get(ctx, first, service.ArtifactTripLedger)
			assert.ErrorIs(t, err, common.ErrNotFound)
			assert.ErrorIs(t, repo.DeleteSession(ctx, first), common.ErrNotFound)

			require.NoError(t, repo.DeleteSession(ctx, second))
		})
	}
}

func TestSQLiteStorage_MigrateIsIdempotent(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.Migrate(ctx))

	var version int
	require.NoError(t, store.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version))
	assert.Equal(t, ExpectedSchemaVersion, version)

	var indexCount int
	require.NoError(t, store.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sqlite_master
		WHERE type='index' AND name='idx_sessions_updated_at'
	`).Scan(&indexCount))
	assert.Equal(t, 1, indexCount)
}

func TestSQLiteStorage_SurvivesReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sessions.db")
	ctx := context.Background()

	store, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.Put(ctx, "s1", service.ArtifactRiskThresholds, []byte("speed: {penalty: 3}")))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })
	require.NoError(t, reopened.Migrate(ctx))

	got, err := reopened.Get(ctx, "s1", service.ArtifactRiskThresholds)
	require.NoError(t, err)
	assert.Equal(t, "speed: {penalty: 3}", string(got))
}

func TestNewSQLiteStorage_EmptyPath(t *testing.T) {
	_, err := NewSQLiteStorage("  ")
	assert.ErrorIs(t, err, ErrEmptyString)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	repo, err := Open(ctx, Options{Driver: DriverMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStorage{}, repo)

	repo, err = Open(ctx, Options{Driver: DriverSQLite, DatabasePath: filepath.Join(t.TempDir(), "x.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	assert.IsType(t, &SQLiteStorage{}, repo)

	_, err = Open(ctx, Options{Driver: "postgres"})
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}
