// Package crop derives cropped image blobs from a base reference and a
// region rectangle. Derivation is best-effort: failures mean "no preview"
// for one region, never a fatal condition.
package crop

import (
	"context"
	"fmt"
	"log/slog"

	"pixelgraph/internal/assetref"
	"pixelgraph/internal/imaging"
	"pixelgraph/pkg/geometry"
)

// DefaultMaxOutputPixels caps derived crops at 4 megapixels; larger results
// are downscaled proportionally.
const DefaultMaxOutputPixels = 4 << 20

// Deriver renders crop rectangles of resolved images into encoded blobs.
type Deriver struct {
	Fetcher         *imaging.Fetcher
	MaxOutputPixels int // 0 uses DefaultMaxOutputPixels
	Log             *slog.Logger
}

func (d *Deriver) log() *slog.Logger {
	if d.Log != nil {
		return d.Log
	}
	return slog.Default()
}

func (d *Deriver) maxPixels() int {
	if d.MaxOutputPixels > 0 {
		return d.MaxOutputPixels
	}
	return DefaultMaxOutputPixels
}

// DeriveCrop resolves the base reference, scales rect from the declared
// sourceWidth x sourceHeight space into the bitmap's natural pixel space,
// and returns the cropped region as a losslessly encoded blob. Zero source
// dimensions mean the rect is already in natural pixels.
func (d *Deriver) DeriveCrop(ctx context.Context, base assetref.Ref, rect geometry.Rect, sourceWidth, sourceHeight int) ([]byte, error) {
	data, err := d.Fetcher.Fetch(ctx, base)
	if err != nil {
		return nil, fmt.Errorf("resolve base image: %w", err)
	}

	img, err := imaging.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode base image: %w", err)
	}

	cropped, err := imaging.CropScaled(img, rect, sourceWidth, sourceHeight)
	if err != nil {
		return nil, fmt.Errorf("crop geometry: %w", err)
	}

	// Cap the output resolution; oversized crops downscale proportionally.
	b := cropped.Bounds()
	if px := b.Dx() * b.Dy(); px > d.maxPixels() {
		capped, scale := imaging.Downsample(cropped, d.maxPixels())
		d.log().Debug("crop capped to output ceiling",
			"from", fmt.Sprintf("%dx%d", b.Dx(), b.Dy()),
			"to", fmt.Sprintf("%dx%d", capped.Bounds().Dx(), capped.Bounds().Dy()),
			"scale", scale)
		cropped = capped
	}

	return imaging.EncodePNG(cropped)
}
