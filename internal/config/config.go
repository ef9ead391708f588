// Package config loads engine tuning from a YAML file.
//
// Config file locations (priority order):
//  1. $PIXELGRAPH_CONFIG
//  2. ./pixelgraph.yaml
//  3. ~/.config/pixelgraph/config.yaml
package config

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"pixelgraph/internal/compose"
	"pixelgraph/internal/segment"
)

// Config is the on-disk tuning surface. Every field is optional; zero values
// fall back to built-in defaults.
type Config struct {
	// StorePath is the sqlite file for the ephemeral asset store. Empty
	// keeps assets in memory for the session.
	StorePath string `yaml:"storePath"`

	// Workers sizes the offload pool. 0 means one per CPU, negative runs
	// pixel work on the caller.
	Workers int `yaml:"workers"`

	// ProxyBase is the display-proxy prefix stripped when normalizing
	// proxied remote references.
	ProxyBase string `yaml:"proxyBase"`

	Segment SegmentConfig `yaml:"segment"`
	Compose ComposeConfig `yaml:"compose"`
}

// SegmentConfig overrides individual segmentation thresholds. Pointers
// distinguish "unset" from an explicit zero.
type SegmentConfig struct {
	WhiteRatioThreshold *float64 `yaml:"whiteRatioThreshold"`
	NearWhiteLevel      *uint8   `yaml:"nearWhiteLevel"`
	AlphaFloor          *uint8   `yaml:"alphaFloor"`
	MinComponentPx      *int     `yaml:"minComponentPx"`
	RowBucketPx         *int     `yaml:"rowBucketPx"`
	OverdetectFactor    *int     `yaml:"overdetectFactor"`
}

// ComposeConfig overrides grid compositing layout.
type ComposeConfig struct {
	GapPx      *int   `yaml:"gapPx"`
	PaddingPx  *int   `yaml:"paddingPx"`
	Background string `yaml:"background"` // "#rrggbb"
}

// Load finds and loads the config file, or returns defaults if none found.
func Load() (*Config, string, error) {
	path := FindConfigPath()
	if path == "" {
		return &Config{}, "", nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path.
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}
	return &cfg, path, nil
}

// FindConfigPath returns the first config file that exists, or "".
func FindConfigPath() string {
	if p := os.Getenv("PIXELGRAPH_CONFIG"); p != "" {
		return p
	}
	candidates := []string{"./pixelgraph.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "pixelgraph", "config.yaml"))
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Validate rejects values outside their usable ranges.
func (c *Config) Validate() error {
	if s := c.Segment.WhiteRatioThreshold; s != nil && (*s < 0 || *s > 1) {
		return fmt.Errorf("segment.whiteRatioThreshold %v out of range [0,1]", *s)
	}
	if f := c.Segment.OverdetectFactor; f != nil && *f < 1 {
		return fmt.Errorf("segment.overdetectFactor %d must be at least 1", *f)
	}
	if g := c.Compose.GapPx; g != nil && *g < 0 {
		return fmt.Errorf("compose.gapPx %d must not be negative", *g)
	}
	if p := c.Compose.PaddingPx; p != nil && *p < 0 {
		return fmt.Errorf("compose.paddingPx %d must not be negative", *p)
	}
	if c.Compose.Background != "" {
		if _, err := parseHexColor(c.Compose.Background); err != nil {
			return fmt.Errorf("compose.background: %w", err)
		}
	}
	return nil
}

// SegmentParams returns the tuned defaults with overrides applied.
func (c *Config) SegmentParams() segment.Params {
	p := segment.DefaultParams()
	if v := c.Segment.WhiteRatioThreshold; v != nil {
		p.WhiteRatioThreshold = *v
	}
	if v := c.Segment.NearWhiteLevel; v != nil {
		p.NearWhiteLevel = *v
	}
	if v := c.Segment.AlphaFloor; v != nil {
		p.AlphaFloor = *v
	}
	if v := c.Segment.MinComponentPx; v != nil {
		p.MinComponentPx = *v
	}
	if v := c.Segment.RowBucketPx; v != nil {
		p.RowBucketPx = *v
	}
	if v := c.Segment.OverdetectFactor; v != nil {
		p.OverdetectFactor = *v
	}
	return p
}

// ComposeOptions returns the default layout with overrides applied.
func (c *Config) ComposeOptions() compose.Options {
	o := compose.DefaultOptions()
	if v := c.Compose.GapPx; v != nil {
		o.GapPx = *v
	}
	if v := c.Compose.PaddingPx; v != nil {
		o.PaddingPx = *v
	}
	if c.Compose.Background != "" {
		if bg, err := parseHexColor(c.Compose.Background); err == nil {
			o.Background = bg
		}
	}
	return o
}

func parseHexColor(s string) (color.Color, error) {
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "#%02x%02x%02x", &r, &g, &b); err != nil {
		return nil, fmt.Errorf("want #rrggbb, got %q", s)
	}
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}
