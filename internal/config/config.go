// Package config resolves on-disk locations and the small set of
// recognized environment variables.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

const appDirName = "rzn_datasourcer"

// ConfigDir is where credentials live. Falls back to the working
// directory when the user config dir cannot be resolved.
func ConfigDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return "." + appDirName
	}
	return filepath.Join(base, appDirName)
}

// StateDir is where the usage log lives. RZN_STATE_DIR overrides;
// otherwise XDG_STATE_HOME, then the config dir.
func StateDir() string {
	if dir := strings.TrimSpace(os.Getenv("RZN_STATE_DIR")); dir != "" {
		return dir
	}
	if base := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); base != "" {
		return filepath.Join(base, appDirName)
	}
	return ConfigDir()
}

// CredentialsPath is the fixed location of the auth file.
func CredentialsPath() string {
	return filepath.Join(ConfigDir(), "auth.json")
}

// PricingOverlayPath names an optional user pricing overlay file.
func PricingOverlayPath() string {
	if path := strings.TrimSpace(os.Getenv("RZN_PRICING_OVERLAY")); path != "" {
		return path
	}
	return filepath.Join(ConfigDir(), "pricing.json")
}

// ProfilesPath names the optional user search-profile file.
func ProfilesPath() string {
	if path := strings.TrimSpace(os.Getenv("RZN_PROFILES")); path != "" {
		return path
	}
	return filepath.Join(ConfigDir(), "profiles.yaml")
}

// PersistTokens gates whether setup flows write refreshed tokens back
// to the credential store.
func PersistTokens() bool {
	return ParseBoolEnv("RZN_PERSIST_TOKENS", true)
}

// TraceUsage gates whether usage events are mirrored onto the global
// OpenTelemetry tracer provider.
func TraceUsage() bool {
	return ParseBoolEnv("RZN_TRACE_USAGE", false)
}

// ShowAdminTools gates whether administrative tools appear in listings.
func ShowAdminTools() bool {
	return ParseBoolEnv("RZN_SHOW_ADMIN_TOOLS", false)
}

// EnabledConnectors reads the RZN_CONNECTORS allowlist. Empty means
// every registered connector is enabled.
func EnabledConnectors() []string {
	raw := strings.TrimSpace(os.Getenv("RZN_CONNECTORS"))
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
