package log

import (
	"crypto/sha256"
	"fmt"
	"os"
	"strings"
)

// SanitizationMode controls how paths are rendered in logs
type SanitizationMode int

const (
	// ProductionMode hashes paths
	ProductionMode SanitizationMode = iota
	// DevelopmentMode shows truncated paths
	DevelopmentMode
	// DebugMode shows full paths
	DebugMode
)

var currentMode = ProductionMode

func init() {
	if mode, ok := ParseMode(os.Getenv("DUALFS_LOG_MODE")); ok {
		currentMode = mode
	}
}

// ParseMode maps "production", "development" or "debug" to a mode
func ParseMode(s string) (SanitizationMode, bool) {
	switch strings.ToLower(s) {
	case "production":
		return ProductionMode, true
	case "development":
		return DevelopmentMode, true
	case "debug":
		return DebugMode, true
	}
	return ProductionMode, false
}

// SetMode overrides the mode selected from DUALFS_LOG_MODE. It is meant to be
// called once during startup.
func SetMode(mode SanitizationMode) {
	currentMode = mode
}

// SanitizePath sanitizes file paths for logging based on the current mode
func SanitizePath(path string) string {
	return sanitizePath(path, currentMode)
}

func sanitizePath(path string, mode SanitizationMode) string {
	if path == "" {
		return ""
	}

	switch mode {
	case DevelopmentMode:
		if len(path) <= 20 {
			return path
		}
		return path[:10] + "..." + path[len(path)-7:]
	case DebugMode:
		return path
	default:
		// Hash the path to prevent leaking sensitive filenames
		hash := sha256.Sum256([]byte(path))
		return fmt.Sprintf("hash:%x", hash[:8])
	}
}
