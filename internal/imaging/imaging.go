// Package imaging provides image decode/encode and pixel-budget scaling
// helpers shared by the segmentation, cropping, and compositing pipelines.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"math"

	"pixelgraph/pkg/geometry"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Decode decodes raw bytes into an image. All registered formats (png, jpeg,
// gif, tiff, webp, bmp) are accepted.
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// EncodePNG encodes the image as PNG. PNG is used for all derived assets so
// crops survive repeated re-derivation without generational loss.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// ToRGBA returns the image as *image.RGBA with origin-anchored bounds,
// copying only when needed.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// Downsample scales the image down so its pixel count does not exceed
// maxPixels, preserving aspect ratio. Returns the (possibly original-size)
// RGBA copy and the scale factor applied per axis (1.0 when unscaled).
func Downsample(img image.Image, maxPixels int) (*image.RGBA, float64) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return image.NewRGBA(image.Rect(0, 0, 0, 0)), 1
	}
	if maxPixels <= 0 || w*h <= maxPixels {
		return ToRGBA(img), 1
	}
	scale := math.Sqrt(float64(maxPixels) / float64(w*h))
	dw := int(float64(w) * scale)
	dh := int(float64(h) * scale)
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst, float64(dw) / float64(w)
}

// Resize scales the image to exactly width x height using a high-quality
// kernel. Used when capping derived crops to the output resolution ceiling.
func Resize(img image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return dst
}

// CropScaled extracts the sub-image described by crop. The crop rectangle is
// declared in a sourceWidth x sourceHeight coordinate space which need not
// match the bitmap's natural size; it is ratio-scaled into natural pixels
// and clamped to stay within bounds. Returns an error when the effective
// rectangle collapses to zero area.
func CropScaled(img image.Image, crop geometry.Rect, sourceWidth, sourceHeight int) (*image.RGBA, error) {
	b := img.Bounds()
	naturalW, naturalH := b.Dx(), b.Dy()
	if naturalW <= 0 || naturalH <= 0 {
		return nil, fmt.Errorf("empty source bitmap")
	}

	sx, sy := 1.0, 1.0
	if sourceWidth > 0 {
		sx = float64(naturalW) / float64(sourceWidth)
	}
	if sourceHeight > 0 {
		sy = float64(naturalH) / float64(sourceHeight)
	}

	eff := crop.Scale(sx, sy).ToInt().ClampTo(naturalW, naturalH)
	if eff.Empty() {
		return nil, fmt.Errorf("crop %v scaled by %.3fx%.3f leaves no area in %dx%d bitmap",
			crop, sx, sy, naturalW, naturalH)
	}

	dst := image.NewRGBA(image.Rect(0, 0, eff.Width, eff.Height))
	draw.Draw(dst, dst.Bounds(), img, image.Point{X: b.Min.X + eff.X, Y: b.Min.Y + eff.Y}, draw.Src)
	return dst, nil
}
