package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"giveaway/internal/config"
	"giveaway/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot() models.Snapshot {
	return models.Snapshot{
		ID:               "3f1c2a9e-0000-4000-8000-000000000001",
		Active:           true,
		ScopeID:          "channel-1",
		StartedAt:        time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC),
		EndTime:          time.Date(2026, time.March, 1, 13, 0, 0, 0, time.UTC),
		WinnersCount:     2,
		Prize:            "Nitro",
		Entries:          map[string]int{"u1": 1, "u2": 5},
		MultiplierRoleID: "booster",
		MultiplierWeight: 5,
	}
}

// exerciseStore checks the behaviour every backend shares.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("empty store loads default", func(t *testing.T) {
		got, err := s.Load(ctx)
		require.NoError(t, err)
		assert.False(t, got.Active)
		assert.Equal(t, 1, got.WinnersCount)
		assert.Equal(t, 1, got.MultiplierWeight)
		assert.NotNil(t, got.Entries)
		assert.Empty(t, got.Entries)
	})

	t.Run("save then load", func(t *testing.T) {
		want := sampleSnapshot()
		require.NoError(t, s.Save(ctx, want))

		got, err := s.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("save overwrites", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, models.DefaultSnapshot()))

		got, err := s.Load(ctx)
		require.NoError(t, err)
		assert.False(t, got.Active)
		assert.Empty(t, got.Entries)
	})
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "nested", "giveaway.json"))
	require.NoError(t, err)
	exerciseStore(t, s)
}

func TestFileStoreRequiresPath(t *testing.T) {
	_, err := NewFileStore("  ")
	assert.Error(t, err)
}

func TestFileStoreMalformedDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "giveaway.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s, err := NewFileStore(path)
	require.NoError(t, err)

	got, err := s.Load(context.Background())
	assert.Error(t, err)
	assert.False(t, got.Active)
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "giveaway.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	exerciseStore(t, s)
}

func TestSQLiteStoreReopenKeepsSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "giveaway.db")

	first, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, first.Save(context.Background(), sampleSnapshot()))
	require.NoError(t, first.Close())

	// migrations must not fail on an already migrated database
	second, err := OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close() })

	got, err := second.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sampleSnapshot(), got)
}

func TestOpenSQLiteRequiresPath(t *testing.T) {
	_, err := OpenSQLite("")
	assert.Error(t, err)
}

func TestOpenSelectsDriver(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(context.Background(), config.Store{Driver: config.DriverFile, Path: filepath.Join(dir, "a.json")})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	s, err = Open(context.Background(), config.Store{Driver: config.DriverSQLite, Path: filepath.Join(dir, "a.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	s, err = Open(context.Background(), config.Store{Driver: config.DriverGist, GistID: "g", GitHubToken: "t"})
	require.NoError(t, err)
	assert.IsType(t, &GistStore{}, s)

	_, err = Open(context.Background(), config.Store{Driver: "tape"})
	assert.Error(t, err)
}
