package version

import (
	"encoding/json"
	"runtime"
	"runtime/debug"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_FillsRuntimeFields(t *testing.T) {
	// Given: a binary built without ldflags

	// When: reading build info
	info := Get()

	// Then: runtime fields are always present
	assert.NotEmpty(t, info.Version)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, runtime.GOOS, info.OS)
	assert.Equal(t, runtime.GOARCH, info.Arch)
}

func TestFromBuildInfo(t *testing.T) {
	tests := []struct {
		name  string
		start BuildInfo
		bi    debug.BuildInfo
		want  BuildInfo
	}{
		{
			name:  "vcs stamp fills unset fields",
			start: BuildInfo{Version: "dev", Commit: "unknown", Date: "unknown"},
			bi: debug.BuildInfo{
				Main: debug.Module{Version: "v0.3.0"},
				Settings: []debug.BuildSetting{
					{Key: "vcs.revision", Value: "0123456789abcdef0123"},
					{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
					{Key: "vcs.modified", Value: "true"},
				},
			},
			want: BuildInfo{Version: "v0.3.0", Commit: "0123456789ab", Date: "2026-01-02T03:04:05Z", Modified: true},
		},
		{
			name:  "ldflags win",
			start: BuildInfo{Version: "1.0.0", Commit: "abc", Date: "today"},
			bi: debug.BuildInfo{
				Main:     debug.Module{Version: "v0.3.0"},
				Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "ffff"}},
			},
			want: BuildInfo{Version: "1.0.0", Commit: "abc", Date: "today"},
		},
		{
			name:  "devel module version ignored",
			start: BuildInfo{Version: "dev", Commit: "unknown", Date: "unknown"},
			bi:    debug.BuildInfo{Main: debug.Module{Version: "(devel)"}},
			want:  BuildInfo{Version: "dev", Commit: "unknown", Date: "unknown"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.start
			fromBuildInfo(&got, &tt.bi)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestString_Format(t *testing.T) {
	s := String()

	assert.True(t, strings.HasPrefix(s, "pantry "), s)
	assert.Contains(t, s, "go: "+runtime.Version())
	assert.Contains(t, s, runtime.GOOS+"/"+runtime.GOARCH)
}

func TestShort_MatchesGet(t *testing.T) {
	assert.Equal(t, Get().Version, Short())
}

func TestBuildInfo_JSON(t *testing.T) {
	data, err := json.Marshal(Get())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	for _, key := range []string{"version", "commit", "date", "go_version", "os", "arch"} {
		assert.Contains(t, decoded, key)
	}
}
