// Package compose renders an ordered set of images into a single grid
// canvas with uniform cells, padding, and gaps.
package compose

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"pixelgraph/internal/imaging"
	"pixelgraph/pkg/geometry"

	"golang.org/x/sync/errgroup"
)

// Item is one input to the compositor: raw encoded bytes plus an optional
// crop declared in the SourceWidth x SourceHeight coordinate space.
type Item struct {
	Name         string // used in error messages; falls back to the index
	Data         []byte
	Crop         *geometry.Rect
	SourceWidth  int
	SourceHeight int
}

// Options controls grid layout and appearance.
type Options struct {
	Background color.Color
	PaddingPx  int // padding inside each cell, per side
	GapPx      int // gap between and around cells, including the outer border
}

// DefaultOptions returns a white background with no padding and a 16px gap.
func DefaultOptions() Options {
	return Options{Background: color.White, GapPx: 16}
}

// GridSize returns the rows/columns of the square grid used for n items:
// fixed thresholds up to 25 items, ceil(sqrt(n)) beyond.
func GridSize(n int) int {
	switch {
	case n <= 1:
		return 1
	case n <= 4:
		return 2
	case n <= 9:
		return 3
	case n <= 16:
		return 4
	case n <= 25:
		return 5
	default:
		return int(math.Ceil(math.Sqrt(float64(n))))
	}
}

// Composite decodes all items and renders them into a single grid canvas,
// returning the PNG-encoded result plus the grid dimension used. The
// contract is all-or-nothing: any item failing to decode (or cropping to
// nothing) aborts the whole composite, so a broken input never silently
// produces a grid with a blank cell.
func Composite(ctx context.Context, items []Item, opts Options) ([]byte, int, error) {
	if len(items) == 0 {
		return nil, 0, fmt.Errorf("no items to composite")
	}
	if opts.Background == nil {
		opts.Background = color.White
	}

	bitmaps := make([]*image.RGBA, len(items))
	g, ctx := errgroup.WithContext(ctx)
	for i := range items {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			bm, err := decodeItem(items[i])
			if err != nil {
				return fmt.Errorf("item %s: %w", itemName(items[i], i), err)
			}
			bitmaps[i] = bm
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	// Uniform cells sized to the largest effective image; larger images are
	// never cropped to fit, smaller ones are centered.
	var maxW, maxH int
	for _, bm := range bitmaps {
		if w := bm.Bounds().Dx(); w > maxW {
			maxW = w
		}
		if h := bm.Bounds().Dy(); h > maxH {
			maxH = h
		}
	}

	grid := GridSize(len(items))
	cellW := maxW + 2*opts.PaddingPx
	cellH := maxH + 2*opts.PaddingPx
	canvasW := cellW*grid + opts.GapPx*(grid+1)
	canvasH := cellH*grid + opts.GapPx*(grid+1)

	canvas := image.NewRGBA(image.Rect(0, 0, canvasW, canvasH))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(opts.Background), image.Point{}, draw.Src)

	for i, bm := range bitmaps {
		row := i / grid
		col := i % grid
		cellX := opts.GapPx + col*(cellW+opts.GapPx)
		cellY := opts.GapPx + row*(cellH+opts.GapPx)

		w := bm.Bounds().Dx()
		h := bm.Bounds().Dy()
		x := cellX + (cellW-w)/2
		y := cellY + (cellH-h)/2
		draw.Draw(canvas, image.Rect(x, y, x+w, y+h), bm, image.Point{}, draw.Over)
	}

	out, err := imaging.EncodePNG(canvas)
	if err != nil {
		return nil, 0, err
	}
	return out, grid, nil
}

func decodeItem(item Item) (*image.RGBA, error) {
	img, err := imaging.Decode(item.Data)
	if err != nil {
		return nil, err
	}
	if item.Crop != nil {
		return imaging.CropScaled(img, *item.Crop, item.SourceWidth, item.SourceHeight)
	}
	return imaging.ToRGBA(img), nil
}

func itemName(item Item, i int) string {
	if item.Name != "" {
		return item.Name
	}
	return fmt.Sprintf("#%d", i+1)
}
