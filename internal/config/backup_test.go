package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupFile_MissingFile(t *testing.T) {
	backup, err := BackupFile(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Empty(t, backup)
}

func TestBackupFile_CopiesContent(t *testing.T) {
	// Given: an existing config file
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("source: /tmp/in\n"), 0o644))

	// When: backing it up
	backup, err := BackupFile(path)
	require.NoError(t, err)

	// Then: the backup holds the same content next to the original
	data, err := os.ReadFile(backup)
	require.NoError(t, err)
	assert.Equal(t, "source: /tmp/in\n", string(data))
	assert.Equal(t, filepath.Dir(path), filepath.Dir(backup))
}

func TestBackupFile_KeepsNewestBackups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: 1\n"), 0o644))

	for i := 0; i < MaxBackups+2; i++ {
		_, err := BackupFile(path)
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
	}

	backups, err := ListBackups(path)
	require.NoError(t, err)
	assert.Len(t, backups, MaxBackups)
	for i := 1; i < len(backups); i++ {
		assert.Greater(t, backups[i-1], backups[i], "newest first")
	}
}

func TestRestoreBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: 1\n"), 0o644))
	backup, err := BackupFile(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("workers: 9\n"), 0o644))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, RestoreBackup(backup, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "workers: 1\n", string(data))

	// The overwritten version was backed up too.
	backups, err := ListBackups(path)
	require.NoError(t, err)
	assert.Len(t, backups, 2)
}
