package log

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizePath(t *testing.T) {
	long := "/var/lib/dualfs/some/deeply/nested/file.txt"

	tests := []struct {
		name string
		path string
		mode SanitizationMode
		want string
	}{
		{name: "empty", path: "", mode: ProductionMode, want: ""},
		{name: "debug keeps path", path: long, mode: DebugMode, want: long},
		{name: "development short", path: "/tmp/x.txt", mode: DevelopmentMode, want: "/tmp/x.txt"},
		{name: "development truncates", path: long, mode: DevelopmentMode, want: "/var/lib/d...ile.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizePath(tt.path, tt.mode))
		})
	}
}

func TestSanitizePathProductionHashes(t *testing.T) {
	got := sanitizePath("/etc/secret", ProductionMode)

	assert.True(t, strings.HasPrefix(got, "hash:"))
	assert.Len(t, got, len("hash:")+16)
	assert.NotContains(t, got, "secret")
	assert.Equal(t, got, sanitizePath("/etc/secret", ProductionMode))
}

func TestParseMode(t *testing.T) {
	mode, ok := ParseMode("Debug")
	assert.True(t, ok)
	assert.Equal(t, DebugMode, mode)

	_, ok = ParseMode("verbose")
	assert.False(t, ok)
}
