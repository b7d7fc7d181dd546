package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jesposito/walkabout/config"
)

func TestRunCreatesBackup(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "walkabout.db")
	require.NoError(t, os.WriteFile(dbPath, []byte("sqlite data"), 0o644))

	svc := NewService(dbPath, dir, config.BackupConfig{MaxKeep: 7})
	dest, err := svc.Run()
	require.NoError(t, err)
	require.NotEmpty(t, dest)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "sqlite data", string(data))
}

func TestRotationKeepsNewest(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "walkabout.db")
	require.NoError(t, os.WriteFile(dbPath, []byte("x"), 0o644))

	svc := NewService(dbPath, dir, config.BackupConfig{MaxKeep: 3})

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		offset := i
		svc.now = func() time.Time { return base.Add(time.Duration(offset) * time.Hour) }
		_, err := svc.Run()
		require.NoError(t, err)
	}

	entries, err := os.ReadDir(filepath.Join(dir, "backups"))
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	// The newest backup survives.
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	assert.Contains(t, names, "walkabout-20260301-040000.db")
}

func TestMemoryDatabaseDisabled(t *testing.T) {
	svc := NewService(":memory:", t.TempDir(), config.BackupConfig{MaxKeep: 7})
	assert.False(t, svc.Enabled())

	dest, err := svc.Run()
	require.NoError(t, err)
	assert.Empty(t, dest)
}
