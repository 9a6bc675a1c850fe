package debug

import "testing"

func TestEnabled(t *testing.T) {
	t.Setenv(EnvVar, "")
	if Enabled() {
		t.Error("Expected debug logging off by default")
	}

	t.Setenv(EnvVar, "1")
	if !Enabled() {
		t.Error("Expected debug logging on with BORK_ENABLE_DEBUG_LOG=1")
	}

	t.Setenv(EnvVar, "true")
	if Enabled() {
		t.Error("Only the literal '1' enables debug logging")
	}
}
