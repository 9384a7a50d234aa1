package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoctorCmd_Ready(t *testing.T) {
	dir := isolate(t)
	src := filepath.Join(dir, "src")
	require.NoError(t, os.MkdirAll(src, 0o755))

	out, err := run(t, "doctor", src, "--offline")

	require.NoError(t, err)
	assert.Contains(t, out, "[PASS] source")
	assert.Contains(t, out, "destination_writable")
	assert.NotContains(t, out, "[FAIL]")
}

func TestDoctorCmd_MissingSourceFails(t *testing.T) {
	dir := isolate(t)

	out, err := run(t, "doctor", filepath.Join(dir, "gone"), "--json")

	require.Error(t, err)
	var report struct {
		Status string `json:"status"`
		Checks []struct {
			Name   string `json:"name"`
			Status string `json:"status"`
		} `json:"checks"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "failed", report.Status)
	require.NotEmpty(t, report.Checks)
	assert.Equal(t, "source", report.Checks[0].Name)
	assert.Equal(t, "fail", report.Checks[0].Status)
}
