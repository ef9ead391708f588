package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"pixelgraph/internal/assetref"
	"pixelgraph/internal/compose"
	"pixelgraph/internal/config"
	"pixelgraph/internal/engine"
	"pixelgraph/internal/graph"
	"pixelgraph/internal/store"
)

var (
	configPath string
	debug      bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "pixelgraph",
	Short: "Image region splitting and grid compositing",
	Long: `Pixelgraph detects content regions in an image and derives per-region
crops, or composites a set of images into a uniform grid.`,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if debug {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

		var err error
		var path string
		if configPath != "" {
			cfg, path, err = config.LoadFromPath(configPath)
		} else {
			cfg, path, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if path != "" {
			slog.Debug("loaded config", "path", path)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: searched)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// fieldSink collects node patches into one merged field map, standing in for
// the editor's state-update mechanism.
type fieldSink struct {
	mu     sync.Mutex
	fields map[string]any
}

func newFieldSink() *fieldSink {
	return &fieldSink{fields: make(map[string]any)}
}

func (s *fieldSink) PatchNode(_ graph.NodeID, fields map[string]any) {
	s.mu.Lock()
	for k, v := range fields {
		s.fields[k] = v
	}
	s.mu.Unlock()
}

func (s *fieldSink) get(key string) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fields[key]
}

// newEngine assembles the engine from the loaded config. The caller owns the
// returned store (for reading derived assets back out) and must Close the
// engine, which closes the store too.
func newEngine(sink engine.PatchSink, comp compose.Options) (*engine.Engine, store.Store, error) {
	st, err := store.Open(cfg.StorePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open asset store: %w", err)
	}
	eng := engine.New(engine.Config{
		Store:   st,
		Sink:    sink,
		Codec:   &assetref.Codec{ProxyBase: cfg.ProxyBase},
		Segment: cfg.SegmentParams(),
		Compose: comp,
		Workers: cfg.Workers,
	})
	return eng, st, nil
}

// fetchRef reads the bytes behind a patched output reference: an ephemeral
// id from the store, or an inline data URL.
func fetchRef(ctx context.Context, st store.Store, raw string) ([]byte, error) {
	codec := &assetref.Codec{}
	ref, ok := codec.Classify(raw)
	if !ok {
		return nil, fmt.Errorf("empty output reference")
	}
	switch ref.Kind {
	case assetref.KindEphemeral:
		return st.Get(ctx, ref.Value)
	case assetref.KindInline:
		return codec.DecodeInline(ref)
	default:
		return nil, fmt.Errorf("unexpected output reference %q", raw)
	}
}
