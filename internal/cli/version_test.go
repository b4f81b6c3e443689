package cli

import (
	"strings"
	"testing"
)

func TestResolveVersionInfo_LdflagsOverride(t *testing.T) {
	origV, origC, origD := version, commit, date
	defer func() { version, commit, date = origV, origC, origD }()

	version, commit, date = "1.2.3", "abc123", "2026-01-02"
	v, c, d := resolveVersionInfo()
	if v != "1.2.3" || c != "abc123" || d != "2026-01-02" {
		t.Errorf("resolveVersionInfo() = %q, %q, %q; want ldflags values", v, c, d)
	}
}

func TestResolveVersionInfo_DevFallback(t *testing.T) {
	origV, origC, origD := version, commit, date
	defer func() { version, commit, date = origV, origC, origD }()

	version, commit, date = "dev", "unknown", "unknown"
	v, c, d := resolveVersionInfo()

	if v == "" {
		t.Error("version should not be empty")
	}
	// A test binary carries whatever build info the toolchain stamped.
	t.Logf("resolved: version=%s commit=%s date=%s", v, c, d)
}

func TestUserAgent(t *testing.T) {
	origV := version
	defer func() { version = origV }()

	version = "0.4.0"
	if got := userAgent(); got != "pgingest/0.4.0" {
		t.Errorf("userAgent() = %q, want pgingest/0.4.0", got)
	}
	if !strings.HasPrefix(rootCmd.Long, asciiLogo) {
		t.Error("root help should start with the logo")
	}
}
