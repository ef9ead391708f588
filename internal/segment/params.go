// Package segment detects content regions in an image: connected-component
// detection over a near-white background mask with noise filtering and a
// whitespace-trim refinement, falling back to a uniform grid partition when
// detection is unreliable.
package segment

import "log/slog"

// MaxRegions is the hard ceiling on regions returned by any path.
const MaxRegions = 50

// Tuned thresholds. These were arrived at empirically against hand-drawn and
// photographic sources; tune them through Params rather than editing call
// sites.
const (
	// DefaultWhiteRatioThreshold is the fraction of near-white or
	// near-transparent sample pixels above which a source counts as
	// light-background and worth component detection.
	DefaultWhiteRatioThreshold = 0.55

	// DefaultNearWhiteLevel is the minimum channel value for a pixel to
	// count as background white.
	DefaultNearWhiteLevel = 240

	// DefaultAlphaFloor is the alpha at or below which a pixel counts as
	// transparent background.
	DefaultAlphaFloor = 16

	// DefaultMinComponentPx discards detected components whose bounding box
	// is narrower or shorter than this (scanner noise, stray strokes).
	DefaultMinComponentPx = 20

	// DefaultRowBucketPx is the row bucket height used to order components
	// in natural reading order (top-to-bottom buckets, left-to-right within).
	DefaultRowBucketPx = 50

	// DefaultOverdetectFactor triggers the grid fallback when detection
	// finds more than desiredCount times this factor: that many components
	// on a supposedly clean background means the mask picked up noise.
	DefaultOverdetectFactor = 2

	// DefaultSamplePixels bounds the downsampled rendering used by the
	// background classifier.
	DefaultSamplePixels = 64 * 64

	// DefaultDetectMaxPixels bounds the source size eligible for full
	// connected-component detection.
	DefaultDetectMaxPixels = 4 << 20

	// DefaultTrimMaxPixels bounds the per-rect pixel count scanned by the
	// whitespace trim; larger sub-rects are trimmed on a downsampled copy.
	DefaultTrimMaxPixels = 1 << 20

	// minTrimDim rejects trims that collapse a rect below this size in
	// either dimension.
	minTrimDim = 2
)

// Params controls segmentation behavior.
type Params struct {
	WhiteRatioThreshold float64
	NearWhiteLevel      uint8
	AlphaFloor          uint8
	MinComponentPx      int
	RowBucketPx         int
	OverdetectFactor    int
	SamplePixels        int
	DetectMaxPixels     int
	TrimMaxPixels       int

	Log *slog.Logger
}

// DefaultParams returns the tuned default parameters.
func DefaultParams() Params {
	return Params{
		WhiteRatioThreshold: DefaultWhiteRatioThreshold,
		NearWhiteLevel:      DefaultNearWhiteLevel,
		AlphaFloor:          DefaultAlphaFloor,
		MinComponentPx:      DefaultMinComponentPx,
		RowBucketPx:         DefaultRowBucketPx,
		OverdetectFactor:    DefaultOverdetectFactor,
		SamplePixels:        DefaultSamplePixels,
		DetectMaxPixels:     DefaultDetectMaxPixels,
		TrimMaxPixels:       DefaultTrimMaxPixels,
	}
}

func (p Params) log() *slog.Logger {
	if p.Log != nil {
		return p.Log
	}
	return slog.Default()
}

// isBackground classifies one RGBA pixel as background (near-white or
// near-transparent).
func (p Params) isBackground(r, g, b, a uint8) bool {
	if a <= p.AlphaFloor {
		return true
	}
	return r >= p.NearWhiteLevel && g >= p.NearWhiteLevel && b >= p.NearWhiteLevel
}
