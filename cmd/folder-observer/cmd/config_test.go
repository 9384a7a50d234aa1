package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ickyicky/folder-observer/internal/config"
)

func TestConfigCmd_InitAndForce(t *testing.T) {
	// Given: no config yet
	dir := isolate(t)
	path := filepath.Join(dir, "observer.yaml")

	// When: creating it
	out, err := run(t, "config", "init", "--path", path)

	// Then: a default file is written
	require.NoError(t, err)
	assert.Contains(t, out, "Created configuration")
	require.FileExists(t, path)

	// When: running init again without --force
	out, err = run(t, "config", "init", "--path", path)

	// Then: the file is left alone
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")

	// When: the user edited it and upgrades with --force
	require.NoError(t, os.WriteFile(path, []byte("workers: 9\n"), 0o644))
	out, err = run(t, "config", "init", "--path", path, "--force")

	// Then: edits survive, new defaults appear, and a backup holds the old file
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration upgraded")

	cfg := config.NewConfig()
	require.NoError(t, cfg.LoadYAML(path))
	assert.Equal(t, 9, cfg.Workers)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "exclude:")

	backups, err := config.ListBackups(path)
	require.NoError(t, err)
	require.Len(t, backups, 1)
	old, err := os.ReadFile(backups[0])
	require.NoError(t, err)
	assert.Equal(t, "workers: 9\n", string(old))
}

func TestConfigCmd_Restore(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "observer.yaml")
	writeFile(t, path, "workers: 2\n")
	_, err := run(t, "config", "init", "--path", path, "--force")
	require.NoError(t, err)

	out, err := run(t, "config", "restore", "--path", path, "--list")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Base(path)+config.BackupSuffix)

	out, err = run(t, "config", "restore", "--path", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Restored")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "workers: 2\n", string(data))
}

func TestConfigCmd_RestoreWithoutBackups(t *testing.T) {
	dir := isolate(t)

	_, err := run(t, "config", "restore", "--path", filepath.Join(dir, "none.yaml"))

	assert.Error(t, err)
}

func TestConfigCmd_ShowJSON(t *testing.T) {
	dir := isolate(t)
	src := filepath.Join(dir, "src")

	out, err := run(t, "config", "show", src, "--json", "--delay", "2s", "-d", filepath.Join(dir, "out"))

	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, src, got["source"])
	assert.Equal(t, filepath.Join(dir, "out"), got["destination"])
	assert.Equal(t, "2s", got["delay"])
}

func TestConfigCmd_ShowYAML(t *testing.T) {
	isolate(t)

	out, err := run(t, "config", "show")

	require.NoError(t, err)
	assert.Contains(t, out, "categories:")
	assert.Contains(t, out, "dwg: AutoCAD")
}

func TestConfigCmd_Path(t *testing.T) {
	dir := isolate(t)

	out, err := run(t, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "xdg", "folder-observer", "config.yaml")+" (not created)", strings.TrimSpace(out))

	_, err = run(t, "config", "init")
	require.NoError(t, err)

	out, err = run(t, "config", "path")
	require.NoError(t, err)
	assert.NotContains(t, out, "not created")
}

func TestConfigCmd_InitWritesTemplate(t *testing.T) {
	// Given: a fresh config written from the template
	dir := isolate(t)
	path := filepath.Join(dir, "observer.yaml")
	_, err := run(t, "config", "init", "--path", path)
	require.NoError(t, err)

	// When: loading it over the defaults
	cfg := config.NewConfig()
	require.NoError(t, cfg.LoadYAML(path))

	// Then: nothing changes, and the file documents the settings
	assert.Equal(t, config.NewConfig(), cfg)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# link_duration: 0s")
	assert.Contains(t, string(data), "#     dwg: AutoCAD")
}
