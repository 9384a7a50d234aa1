package version

import (
	"encoding/json"
	"runtime"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withBuild sets the ldflags variables and build info for one test.
func withBuild(t *testing.T, version, mainVersion string) {
	t.Helper()
	oldVersion, oldRead := Version, readBuildInfo
	t.Cleanup(func() { Version, readBuildInfo = oldVersion, oldRead })

	Version = version
	readBuildInfo = func() (*debug.BuildInfo, bool) {
		if mainVersion == "" {
			return nil, false
		}
		return &debug.BuildInfo{Main: debug.Module{Version: mainVersion}}, true
	}
}

func TestShort_Ldflags(t *testing.T) {
	// Given a version injected at build time
	withBuild(t, "1.2.3", "v0.9.0")

	// Then it wins over the module version
	assert.Equal(t, "1.2.3", Short())
}

func TestShort_ModuleVersion(t *testing.T) {
	// Given a go install build without ldflags
	withBuild(t, "dev", "v0.4.1")

	assert.Equal(t, "v0.4.1", Short())
}

func TestShort_Devel(t *testing.T) {
	withBuild(t, "dev", "(devel)")
	assert.Equal(t, "dev", Short())

	withBuild(t, "dev", "")
	assert.Equal(t, "dev", Short())
}

func TestString(t *testing.T) {
	withBuild(t, "1.2.3", "")

	s := String()

	assert.Contains(t, s, "folder-observer 1.2.3")
	assert.Contains(t, s, "commit: "+Commit)
	assert.Contains(t, s, "go: "+GoVersion)
}

func TestGetInfo_JSON(t *testing.T) {
	withBuild(t, "1.2.3", "")

	data, err := json.Marshal(GetInfo())
	require.NoError(t, err)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "1.2.3", decoded["version"])
	assert.Equal(t, runtime.GOOS, decoded["os"])
	assert.Equal(t, runtime.GOARCH, decoded["arch"])
	assert.Contains(t, decoded, "go_version")
}
