package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGetters(t *testing.T) {
	t.Setenv("TLV_TEST_STR", "bands.yaml")
	t.Setenv("TLV_TEST_INT", "9")
	t.Setenv("TLV_TEST_BAD_INT", "nine")
	t.Setenv("TLV_TEST_BOOL", "true")
	t.Setenv("TLV_TEST_DUR", "250ms")

	if got := GetEnv("TLV_TEST_STR", "x"); got != "bands.yaml" {
		t.Errorf("GetEnv = %q, want bands.yaml", got)
	}
	if got := GetEnv("TLV_TEST_UNSET", "x"); got != "x" {
		t.Errorf("GetEnv unset = %q, want x", got)
	}
	if got := GetEnvInt("TLV_TEST_INT", 1); got != 9 {
		t.Errorf("GetEnvInt = %d, want 9", got)
	}
	if got := GetEnvInt("TLV_TEST_BAD_INT", 1); got != 1 {
		t.Errorf("GetEnvInt malformed = %d, want 1", got)
	}
	if got := GetEnvBool("TLV_TEST_BOOL", false); !got {
		t.Error("GetEnvBool = false, want true")
	}
	if got := GetEnvDuration("TLV_TEST_DUR", time.Second); got != 250*time.Millisecond {
		t.Errorf("GetEnvDuration = %v, want 250ms", got)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("TLV_TEST_FROM_FILE=12\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TLV_TEST_FROM_FILE", "")
	os.Unsetenv("TLV_TEST_FROM_FILE")
	if err := Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("TLV_TEST_FROM_FILE") })
	if got := GetEnvInt("TLV_TEST_FROM_FILE", 0); got != 12 {
		t.Errorf("TLV_TEST_FROM_FILE = %d, want 12", got)
	}
	if err := Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Error("Load of a missing file returned nil")
	}
}
