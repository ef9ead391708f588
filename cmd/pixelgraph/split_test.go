package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"pixelgraph/internal/assetref"
	"pixelgraph/internal/store"
)

func TestWriteRegionsSkipsEmptyRefs(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()

	stored, err := st.Put(ctx, "split", []byte("stored-region"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	refs := []string{
		assetref.Ephemeral(stored).String(),
		"", // region whose crop derivation failed
		assetref.Inline([]byte("inline-region"), "image/png").Value,
	}
	rects := []map[string]any{
		{"x": 0.0, "y": 0.0, "width": 10.0, "height": 10.0},
		{"x": 20.0, "y": 0.0, "width": 10.0, "height": 10.0},
		{"x": 40.0, "y": 0.0, "width": 10.0, "height": 10.0},
	}

	dir := t.TempDir()
	written, err := writeRegions(ctx, st, refs, rects, dir)
	if err != nil {
		t.Fatalf("writeRegions: %v", err)
	}
	if written != 2 {
		t.Errorf("written = %d, want 2", written)
	}

	for name, want := range map[string]string{
		"region_01.png": "stored-region",
		"region_03.png": "inline-region",
	} {
		blob, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if string(blob) != want {
			t.Errorf("%s holds %q, want %q", name, blob, want)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "region_02.png")); !os.IsNotExist(err) {
		t.Error("skipped region must not produce a file")
	}
}
