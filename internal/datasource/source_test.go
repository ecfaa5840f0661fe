package datasource

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/daviddao/tlview/pkg/model"
)

const sampleBands = `bands:
  - type: Timescale
    id: ts
    header: true
    properties:
      grabAction: select
  - type: EventBand
    id: ops
    label: Operations
    interactive: true
    style:
      backgroundColor: "#ff0000"
    entries:
      - id: burn
        start: 2024-05-01T12:00:00Z
        stop: 2024-05-01T13:00:00Z
        title: Burn
      - start: 2024-05-01T14:00:00Z
        title: AOS
`

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(orig) })
}

func TestParseBands(t *testing.T) {
	bands, err := ParseBands([]byte(sampleBands))
	if err != nil {
		t.Fatalf("ParseBands: %v", err)
	}
	if len(bands) != 2 {
		t.Fatalf("bands = %d, want 2", len(bands))
	}
	ts, ops := bands[0], bands[1]
	if !ts.Header || ts.Property("grabAction", "") != "select" {
		t.Errorf("timescale = %+v", ts)
	}
	if ops.Style["backgroundColor"] != "#ff0000" || !ops.Interactive {
		t.Errorf("ops = %+v", ops)
	}
	want := time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC)
	if len(ops.Entries) != 2 || !ops.Entries[0].Stop.Equal(want) {
		t.Fatalf("entries = %+v", ops.Entries)
	}
	if !ops.Entries[1].IsMilestone() || ops.Entries[0].IsMilestone() {
		t.Error("milestone defaults wrong")
	}
}

func TestParseBandsErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"unknown key", "bands:\n  - type: Spacer\n    colour: red\n"},
		{"missing type", "bands:\n  - id: x\n"},
		{"bad time", "bands:\n  - type: EventBand\n    entries:\n      - start: yesterday\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseBands([]byte(tt.in)); err == nil {
				t.Error("ParseBands returned nil error")
			}
		})
	}
	if bands, err := ParseBands(nil); err != nil || len(bands) != 0 {
		t.Errorf("ParseBands(empty) = %v, %v", bands, err)
	}
}

func TestFileSourceLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bands.yaml")
	writeFile(t, path, sampleBands)
	src := &FileSource{File: path}
	bands, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(bands) != 2 || bands[1].Type != model.TypeEventBand {
		t.Errorf("bands = %+v", bands)
	}
	if src.Name() != "file:bands.yaml" || src.Path() != path {
		t.Errorf("Name, Path = %q, %q", src.Name(), src.Path())
	}

	if _, err := (&FileSource{File: path + ".missing"}).Load(context.Background()); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file err = %v, want ErrNotExist", err)
	}
}

func TestDiscoverBandsFromEnvVar(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mine.yaml")
	writeFile(t, path, sampleBands)
	t.Setenv("TLV_BANDS", path)

	got, err := DiscoverBands()
	if err != nil {
		t.Fatalf("DiscoverBands: %v", err)
	}
	if got != path {
		t.Errorf("DiscoverBands() = %q, want %q", got, path)
	}
}

func TestDiscoverEnvVarMissing(t *testing.T) {
	t.Setenv("TLV_BANDS", "/nonexistent/path/bands.yaml")
	if _, err := DiscoverBands(); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("DiscoverBands err = %v, want ErrNotExist", err)
	}
}

func TestDiscoverFromParentDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".tlview", "bands.yaml")
	writeFile(t, path, sampleBands)
	child := filepath.Join(dir, "sub", "deep")
	if err := os.MkdirAll(child, 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TLV_BANDS", "")
	chdir(t, child)

	got, err := DiscoverBands()
	if err != nil {
		t.Fatalf("DiscoverBands: %v", err)
	}
	// Resolve symlinks for comparison (macOS /var -> /private/var).
	resolvedGot, _ := filepath.EvalSymlinks(got)
	resolvedWant, _ := filepath.EvalSymlinks(path)
	if resolvedGot != resolvedWant {
		t.Errorf("DiscoverBands() = %q, want %q", got, path)
	}
}

func TestDiscoverNothing(t *testing.T) {
	t.Setenv("TLV_BANDS", "")
	t.Setenv("CLOCKMAIL_DB", "")
	chdir(t, t.TempDir())

	if _, err := DiscoverBands(); !errors.Is(err, ErrNotFound) {
		t.Errorf("DiscoverBands err = %v, want ErrNotFound", err)
	}
	if _, err := Discover(); !errors.Is(err, ErrNotFound) {
		t.Errorf("Discover err = %v, want ErrNotFound", err)
	}
}

func TestDiscoverBoth(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".tlview", "bands.yaml"), sampleBands)
	writeFile(t, filepath.Join(dir, ".clockmail", "clockmail.db"), "")
	t.Setenv("TLV_BANDS", "")
	t.Setenv("CLOCKMAIL_DB", "")
	chdir(t, dir)

	sources, err := Discover()
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("sources = %d, want 2", len(sources))
	}
	if _, ok := sources[0].(*FileSource); !ok {
		t.Errorf("sources[0] = %T, want *FileSource", sources[0])
	}
	if _, ok := sources[1].(*ClockmailSource); !ok {
		t.Errorf("sources[1] = %T, want *ClockmailSource", sources[1])
	}
}
