package preflight

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ickyicky/folder-observer/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	require.NoError(t, os.MkdirAll(src, 0o755))

	cfg := config.NewConfig()
	cfg.Source = src
	cfg.Categories.Lookup.URL = ""
	cfg.Journal.Path = filepath.Join(dir, "journal.db")
	require.NoError(t, cfg.Normalize())
	return cfg
}

func byName(results []CheckResult) map[string]CheckResult {
	m := make(map[string]CheckResult, len(results))
	for _, r := range results {
		m[r.Name] = r
	}
	return m
}

func TestCheckStatus_String(t *testing.T) {
	tests := []struct {
		status CheckStatus
		want   string
	}{
		{StatusPass, "PASS"},
		{StatusWarn, "WARN"},
		{StatusFail, "FAIL"},
		{CheckStatus(9), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.String())
		})
	}
}

func TestCheckResult_JSON(t *testing.T) {
	data, err := json.Marshal(CheckResult{Name: "source", Status: StatusWarn, Message: "m"})

	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"source","status":"warn","message":"m","required":false}`, string(data))
}

func TestCheckResult_IsCritical(t *testing.T) {
	tests := []struct {
		name     string
		result   CheckResult
		expected bool
	}{
		{"required pass is not critical", CheckResult{Status: StatusPass, Required: true}, false},
		{"required fail is critical", CheckResult{Status: StatusFail, Required: true}, true},
		{"optional fail is not critical", CheckResult{Status: StatusFail}, false},
		{"required warn is not critical", CheckResult{Status: StatusWarn, Required: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.result.IsCritical())
		})
	}
}

func TestChecker_NewWithOptions(t *testing.T) {
	// Given: custom options
	buf := &bytes.Buffer{}
	checker := New(
		WithOffline(true),
		WithVerbose(true),
		WithOutput(buf),
		WithLockDir("/tmp/locks"),
	)

	// Then: options are applied
	assert.True(t, checker.offline)
	assert.True(t, checker.verbose)
	assert.Equal(t, buf, checker.output)
	assert.Equal(t, "/tmp/locks", checker.lockDir)
}

func TestChecker_SummaryStatus(t *testing.T) {
	checker := New()

	tests := []struct {
		name     string
		results  []CheckResult
		expected string
	}{
		{"all pass", []CheckResult{{Status: StatusPass}, {Status: StatusPass}}, "ready"},
		{"with warnings", []CheckResult{{Status: StatusPass}, {Status: StatusWarn}}, "ready_with_warnings"},
		{"with critical failure", []CheckResult{{Status: StatusPass}, {Status: StatusFail, Required: true}}, "failed"},
		{"with optional failure", []CheckResult{{Status: StatusFail}}, "ready_with_warnings"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, checker.SummaryStatus(tt.results))
			assert.Equal(t, tt.expected == "failed", checker.HasCriticalFailures(tt.results))
		})
	}
}

func TestChecker_CheckSource(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	checker := New()

	assert.Equal(t, StatusPass, checker.CheckSource(dir).Status)
	assert.Equal(t, StatusFail, checker.CheckSource(file).Status)
	missing := checker.CheckSource(filepath.Join(dir, "missing"))
	assert.Equal(t, StatusFail, missing.Status)
	assert.True(t, missing.IsCritical())
}

func TestChecker_CheckWritePermissions_Writable(t *testing.T) {
	// Given: a writable directory
	tmpDir := t.TempDir()

	// When: checking write permissions
	result := New().CheckWritePermissions(tmpDir)

	// Then: passes and leaves nothing behind
	assert.Equal(t, StatusPass, result.Status)
	assert.Equal(t, "destination_writable", result.Name)
	assert.True(t, result.Required)
	entries, err := os.ReadDir(tmpDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestChecker_CheckWritePermissions_MissingDestination(t *testing.T) {
	// Given: a destination that will be created on first move
	tmpDir := t.TempDir()
	dest := filepath.Join(tmpDir, "sorted", "deeper")

	// When: checking write permissions
	result := New().CheckWritePermissions(dest)

	// Then: the parent is probed
	assert.Equal(t, StatusPass, result.Status)
	assert.Contains(t, result.Details, tmpDir)
	assert.NoDirExists(t, dest)
}

func TestChecker_CheckWritePermissions_ReadOnly(t *testing.T) {
	// Given: a read-only directory (skip on CI/root)
	if os.Getuid() == 0 {
		t.Skip("Skipping read-only test when running as root")
	}

	tmpDir := t.TempDir()
	readOnlyDir := filepath.Join(tmpDir, "readonly")
	require.NoError(t, os.Mkdir(readOnlyDir, 0o555))
	defer func() { _ = os.Chmod(readOnlyDir, 0o755) }()

	// When: checking write permissions
	result := New().CheckWritePermissions(readOnlyDir)

	// Then: fails
	assert.Equal(t, StatusFail, result.Status)
	assert.Contains(t, result.Message, "permission denied")
}

func TestChecker_CheckSameFilesystem(t *testing.T) {
	dir := t.TempDir()

	result := New().CheckSameFilesystem(dir, filepath.Join(dir, "not", "yet"))

	assert.Equal(t, StatusPass, result.Status)
}

func TestChecker_CheckDiskSpace(t *testing.T) {
	result := New().CheckDiskSpace(t.TempDir())

	assert.Equal(t, "disk_space", result.Name)
	assert.False(t, result.Required)
	assert.Contains(t, result.Message, "free")
}

func TestChecker_CheckFileDescriptors(t *testing.T) {
	assert.True(t, New().CheckFileDescriptors(true).Required)
	assert.False(t, New().CheckFileDescriptors(false).Required)
	assert.Contains(t, New().CheckFileDescriptors(false).Message, "minimum")
}

func TestChecker_RunAll_ReturnsAllChecks(t *testing.T) {
	// Given: a valid configuration
	cfg := testConfig(t)
	checker := New(WithOffline(true), WithLockDir(t.TempDir()))

	// When: running all checks
	results := checker.RunAll(context.Background(), cfg)

	// Then: every check is present and none is critical
	checks := byName(results)
	for _, name := range []string{
		"source", "destination_writable", "same_filesystem",
		"disk_space", "file_descriptors", "source_lock", "journal",
	} {
		assert.Contains(t, checks, name)
	}
	assert.NotContains(t, checks, "lookup", "offline skips the lookup")
	assert.False(t, checker.HasCriticalFailures(results))
}

func TestChecker_RunAll_NoLockDir(t *testing.T) {
	cfg := testConfig(t)

	results := New(WithOffline(true)).RunAll(context.Background(), cfg)

	assert.NotContains(t, byName(results), "source_lock")
}

func TestChecker_RunAll_MissingSource(t *testing.T) {
	cfg := testConfig(t)
	cfg.Source = filepath.Join(t.TempDir(), "gone")
	checker := New(WithOffline(true))

	results := checker.RunAll(context.Background(), cfg)

	assert.True(t, checker.HasCriticalFailures(results))
	assert.Equal(t, "failed", checker.SummaryStatus(results))
}

func TestChecker_PrintResults(t *testing.T) {
	// Given: some check results
	results := []CheckResult{
		{Name: "disk_space", Status: StatusPass, Message: "50 GiB free"},
		{Name: "lookup", Status: StatusWarn, Message: "timeout", Details: "https://example.com/pdf"},
		{Name: "source", Status: StatusFail, Message: "missing", Required: true},
	}

	buf := &bytes.Buffer{}
	checker := New(WithOutput(buf), WithVerbose(true))

	// When: printing results
	checker.PrintResults(results)

	// Then: output contains formatted results
	out := buf.String()
	assert.Contains(t, out, "[PASS] disk_space: 50 GiB free")
	assert.Contains(t, out, "[WARN] lookup: timeout")
	assert.Contains(t, out, "https://example.com/pdf")
	assert.Contains(t, out, "[FAIL] source: missing")
	assert.Contains(t, out, "Status: FAILED")
	assert.Contains(t, out, "1 error(s)")
	assert.Contains(t, out, "1 warning(s)")
}
