package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"pixelgraph/internal/assetref"
	"pixelgraph/internal/engine"
	"pixelgraph/internal/graph"
	"pixelgraph/internal/store"
)

var (
	splitCount int
	splitOut   string
)

var splitCmd = &cobra.Command{
	Use:   "split <image>",
	Short: "Detect content regions and write per-region crops",
	Long: `Detect content regions in the image and write one PNG per region.

Examples:
  pixelgraph split sheet.png --count 9 --out regions/
  pixelgraph split photo.jpg --count 4`,
	Args: cobra.ExactArgs(1),
	RunE: runSplit,
}

func init() {
	rootCmd.AddCommand(splitCmd)

	splitCmd.Flags().IntVar(&splitCount, "count", 4, "Desired region count")
	splitCmd.Flags().StringVar(&splitOut, "out", ".", "Output directory for region crops")
}

func runSplit(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}

	src := &graph.Node{
		ID:   "source",
		Kind: graph.KindImage,
		Data: map[string]any{"imageData": assetref.Inline(data, http.DetectContentType(data)).Value},
	}
	split := &graph.Node{ID: "split", Kind: graph.KindSplit, Data: map[string]any{}}
	g := graph.New([]*graph.Node{src, split},
		[]graph.Edge{{Source: src.ID, Target: split.ID, TargetHandle: "image"}})

	sink := newFieldSink()
	eng, st, err := newEngine(sink, cfg.ComposeOptions())
	if err != nil {
		return err
	}
	defer eng.Close()

	if err := eng.RecomputeSplit(cmd.Context(), g, split.ID, splitCount); err != nil {
		return err
	}
	if status, _ := sink.get(engine.FieldStatus).(string); status != string(engine.StatusSucceeded) {
		msg, _ := sink.get(engine.FieldError).(string)
		return fmt.Errorf("split did not complete: %s", msg)
	}

	refs, _ := sink.get(engine.FieldImageRefs).([]string)
	rects, _ := sink.get(engine.FieldRects).([]map[string]any)
	if err := os.MkdirAll(splitOut, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	written, err := writeRegions(cmd.Context(), st, refs, rects, splitOut)
	if err != nil {
		return err
	}
	fmt.Printf("%d region(s)\n", written)
	return nil
}

// writeRegions writes one PNG per derived region ref into dir. Regions whose
// derivation produced no preview (empty ref) are skipped, matching the
// engine's best-effort per-region contract.
func writeRegions(ctx context.Context, st store.Store, refs []string, rects []map[string]any, dir string) (int, error) {
	written := 0
	for i, raw := range refs {
		if raw == "" {
			slog.Warn("region has no preview, skipping", "region", i+1)
			continue
		}
		blob, err := fetchRef(ctx, st, raw)
		if err != nil {
			return written, fmt.Errorf("read region %d: %w", i+1, err)
		}
		name := filepath.Join(dir, fmt.Sprintf("region_%02d.png", i+1))
		if err := os.WriteFile(name, blob, 0o644); err != nil {
			return written, fmt.Errorf("write %s: %w", name, err)
		}
		written++
		if i < len(rects) {
			r := rects[i]
			fmt.Printf("%s  %.0f,%.0f %.0fx%.0f\n", name, r["x"], r["y"], r["width"], r["height"])
		} else {
			fmt.Println(name)
		}
	}
	return written, nil
}
