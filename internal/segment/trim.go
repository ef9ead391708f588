package segment

import (
	"image"
	"math"

	"pixelgraph/internal/imaging"
	"pixelgraph/pkg/geometry"
)

// TrimWhitespace shrinks a candidate rect to the tight bounding box of its
// non-background content. Sub-rects above the trim pixel budget are scanned
// on a downsampled copy and the tight bounds mapped back, so large sources
// stay cheap. The trim is rejected (original rect kept) when the result
// collapses below 2px in either dimension.
func TrimWhitespace(rgba *image.RGBA, rect geometry.RectInt, p Params) geometry.RectInt {
	bounds := rgba.Bounds()
	rect = rect.ClampTo(bounds.Dx(), bounds.Dy())
	if rect.Empty() {
		return rect
	}

	sub := rgba.SubImage(image.Rect(
		bounds.Min.X+rect.X, bounds.Min.Y+rect.Y,
		bounds.Min.X+rect.X+rect.Width, bounds.Min.Y+rect.Y+rect.Height,
	))

	scan, scale := imaging.Downsample(sub, p.TrimMaxPixels)
	tight, ok := contentBounds(scan, p)
	if !ok {
		return rect // all background, nothing to anchor a trim on
	}

	// Map back into the rect's natural pixel space. Conservative rounding:
	// the trimmed rect may keep a sliver of background, never lose content.
	x1 := int(math.Floor(float64(tight.X) / scale))
	y1 := int(math.Floor(float64(tight.Y) / scale))
	x2 := int(math.Ceil(float64(tight.X+tight.Width) / scale))
	y2 := int(math.Ceil(float64(tight.Y+tight.Height) / scale))

	trimmed := geometry.NewRectInt(rect.X+x1, rect.Y+y1, x2-x1, y2-y1).
		ClampTo(bounds.Dx(), bounds.Dy())
	if trimmed.Width < minTrimDim || trimmed.Height < minTrimDim {
		return rect
	}
	return trimmed
}

// contentBounds scans an RGBA image for the tight bounding box of
// non-background pixels.
func contentBounds(rgba *image.RGBA, p Params) (geometry.RectInt, bool) {
	width := rgba.Bounds().Dx()
	height := rgba.Bounds().Dy()

	minX, minY := width, height
	maxX, maxY := -1, -1
	for y := 0; y < height; y++ {
		row := y * rgba.Stride
		for x := 0; x < width; x++ {
			o := row + x*4
			if p.isBackground(rgba.Pix[o], rgba.Pix[o+1], rgba.Pix[o+2], rgba.Pix[o+3]) {
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}
	if maxX < 0 {
		return geometry.RectInt{}, false
	}
	return geometry.NewRectInt(minX, minY, maxX-minX+1, maxY-minY+1), true
}
