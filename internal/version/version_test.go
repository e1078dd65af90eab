package version

import (
	"runtime/debug"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func withBuild(t *testing.T, version, commit, built string, info *debug.BuildInfo) {
	t.Helper()

	oldVersion, oldCommit, oldTime, oldRead := Version, GitCommit, BuildTime, readBuildInfo
	t.Cleanup(func() {
		Version, GitCommit, BuildTime, readBuildInfo = oldVersion, oldCommit, oldTime, oldRead
	})

	Version, GitCommit, BuildTime = version, commit, built
	readBuildInfo = func() (*debug.BuildInfo, bool) { return info, info != nil }
}

func TestLdflagsWin(t *testing.T) {
	withBuild(t, "v1.2.3", "0123456789abcdef", "2025-01-02T03:04:05Z", nil)

	info := GetBuildInfo()
	assert.Equal(t, "v1.2.3", info.Version)
	assert.Equal(t, "0123456789abcdef", info.GitCommit)
	assert.Equal(t, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), info.BuildTime)
	assert.Equal(t, "v1.2.3 (0123456)", GetShortVersion())
	assert.Contains(t, info.String(), "Built: 2025-01-02T03:04:05Z")
}

func TestFallsBackToBuildInfo(t *testing.T) {
	withBuild(t, "dev", "unknown", "unknown", &debug.BuildInfo{
		Main: debug.Module{Version: "(devel)"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "abcdef0123456789"},
			{Key: "vcs.modified", Value: "true"},
		},
	})

	info := GetBuildInfo()
	assert.Equal(t, "dev-abcdef0", info.Version)
	assert.Equal(t, "abcdef0123456789", info.GitCommit)
	assert.True(t, info.Dirty)
	assert.True(t, info.BuildTime.IsZero())
	assert.Equal(t, "dev-abcdef0", GetShortVersion())
	assert.Contains(t, info.String(), "(dirty)")
	assert.NotContains(t, info.String(), "Built:")
}

func TestNoBuildInfo(t *testing.T) {
	withBuild(t, "", "", "garbage", nil)

	assert.Equal(t, "dev", GetVersion())
	assert.Equal(t, "unknown", GetGitCommit())
	assert.Equal(t, "dev", GetShortVersion())
	assert.NotContains(t, GetBuildInfo().String(), "Commit:")
}

func TestParseBuildTime(t *testing.T) {
	assert.False(t, parseBuildTime("2025-01-02 03:04:05").IsZero())
	assert.False(t, parseBuildTime("2025-01-02T03:04:05").IsZero())
	assert.True(t, parseBuildTime("yesterday").IsZero())
}
