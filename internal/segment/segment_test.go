package segment

import (
	"image"
	"image/color"
	"image/draw"
	"reflect"
	"testing"

	"pixelgraph/pkg/geometry"
)

func whiteCanvas(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return img
}

func fillRect(img *image.RGBA, r geometry.RectInt, c color.Color) {
	draw.Draw(img, image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height),
		image.NewUniform(c), image.Point{}, draw.Src)
}

func photoLike(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(40 + x%160), G: uint8(60 + y%120), B: 90, A: 255})
		}
	}
	return img
}

func TestIsLightBackground(t *testing.T) {
	p := DefaultParams()

	t.Run("white canvas with sparse content is light", func(t *testing.T) {
		img := whiteCanvas(200, 200)
		fillRect(img, geometry.NewRectInt(10, 10, 40, 40), color.Black)
		if !IsLightBackground(img, p) {
			t.Error("mostly-white canvas should classify as light background")
		}
	})

	t.Run("photographic content is not light", func(t *testing.T) {
		if IsLightBackground(photoLike(200, 200), p) {
			t.Error("dense colored image should not classify as light background")
		}
	})

	t.Run("transparent canvas counts as light", func(t *testing.T) {
		img := image.NewRGBA(image.Rect(0, 0, 64, 64))
		if !IsLightBackground(img, p) {
			t.Error("fully transparent canvas should classify as light background")
		}
	})
}

func TestSegmentDetectsSeparatedBlocks(t *testing.T) {
	p := DefaultParams()
	img := whiteCanvas(300, 300)
	fillRect(img, geometry.NewRectInt(10, 10, 50, 50), color.Black)
	fillRect(img, geometry.NewRectInt(200, 200, 50, 50), color.Black)

	// Requested count 9, but detection owns the count on this path:
	// two well-separated blocks yield exactly two regions.
	rects := Segment(img, 9, p)
	if len(rects) != 2 {
		t.Fatalf("got %d rects, want 2: %v", len(rects), rects)
	}
	if rects[0] != geometry.NewRectInt(10, 10, 50, 50) {
		t.Errorf("first rect = %v, want block at (10,10)", rects[0])
	}
	if rects[1] != geometry.NewRectInt(200, 200, 50, 50) {
		t.Errorf("second rect = %v, want block at (200,200)", rects[1])
	}
}

func TestSegmentReadingOrder(t *testing.T) {
	p := DefaultParams()
	img := whiteCanvas(400, 400)
	// Same row bucket, out of x order; plus one lower block.
	fillRect(img, geometry.NewRectInt(300, 12, 40, 40), color.Black)
	fillRect(img, geometry.NewRectInt(20, 8, 40, 40), color.Black)
	fillRect(img, geometry.NewRectInt(100, 300, 40, 40), color.Black)

	rects := Segment(img, 9, p)
	if len(rects) != 3 {
		t.Fatalf("got %d rects, want 3", len(rects))
	}
	if rects[0].X != 20 || rects[1].X != 300 || rects[2].Y != 300 {
		t.Errorf("rects not in reading order: %v", rects)
	}
}

func TestSegmentIdempotent(t *testing.T) {
	p := DefaultParams()
	img := whiteCanvas(300, 300)
	fillRect(img, geometry.NewRectInt(30, 30, 60, 60), color.Black)
	fillRect(img, geometry.NewRectInt(150, 150, 80, 40), color.RGBA{R: 20, G: 20, B: 180, A: 255})

	first := Segment(img, 4, p)
	second := Segment(img, 4, p)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("segmentation not deterministic: %v vs %v", first, second)
	}
}

func TestSegmentNoiseFiltered(t *testing.T) {
	p := DefaultParams()
	img := whiteCanvas(300, 300)
	fillRect(img, geometry.NewRectInt(10, 10, 50, 50), color.Black)
	fillRect(img, geometry.NewRectInt(200, 50, 60, 60), color.Black)
	// Specks below the minimum extent must not become regions.
	fillRect(img, geometry.NewRectInt(150, 150, 5, 5), color.Black)
	fillRect(img, geometry.NewRectInt(100, 250, 12, 3), color.Black)

	rects := Segment(img, 9, p)
	if len(rects) != 2 {
		t.Errorf("got %d rects, want 2 (noise filtered): %v", len(rects), rects)
	}
}

func TestSegmentPhotographicFallsBackToGrid(t *testing.T) {
	p := DefaultParams()
	rects := Segment(photoLike(300, 300), 6, p)
	if len(rects) != 6 {
		t.Fatalf("grid fallback must return exactly the requested count, got %d", len(rects))
	}
	// cols = ceil(sqrt(6)) = 3, so cells are 100x150.
	if rects[0] != geometry.NewRectInt(0, 0, 100, 150) {
		t.Errorf("first cell = %v, want 100x150 at origin", rects[0])
	}
	if rects[5] != geometry.NewRectInt(200, 150, 100, 150) {
		t.Errorf("last cell = %v", rects[5])
	}
}

func TestSegmentSingleComponentUsesGrid(t *testing.T) {
	p := DefaultParams()
	img := whiteCanvas(300, 300)
	fillRect(img, geometry.NewRectInt(50, 50, 200, 200), color.Black)

	// One component is inconclusive; the grid owns the count, and the trim
	// pass may shrink cells to their content.
	rects := Segment(img, 4, p)
	if len(rects) != 4 {
		t.Errorf("got %d rects, want 4 from grid fallback", len(rects))
	}
}

func TestSegmentCountClamped(t *testing.T) {
	p := DefaultParams()
	rects := Segment(photoLike(500, 500), 120, p)
	if len(rects) != MaxRegions {
		t.Errorf("got %d rects, want clamped to %d", len(rects), MaxRegions)
	}
}

func TestGridPartition(t *testing.T) {
	t.Run("count property", func(t *testing.T) {
		for _, n := range []int{1, 2, 3, 4, 5, 9, 10, 17, 50, 80} {
			want := n
			if want > MaxRegions {
				want = MaxRegions
			}
			if got := len(GridPartition(1000, 800, n)); got != want {
				t.Errorf("GridPartition(n=%d) returned %d cells, want %d", n, got, want)
			}
		}
	})

	t.Run("cells tile the source", func(t *testing.T) {
		cells := GridPartition(301, 200, 4)
		var area int
		for _, c := range cells {
			area += c.Width * c.Height
		}
		if area != 301*200 {
			t.Errorf("cell areas sum to %d, want %d", area, 301*200)
		}
	})

	t.Run("degenerate inputs", func(t *testing.T) {
		if GridPartition(0, 100, 4) != nil {
			t.Error("zero width should yield nil")
		}
		if GridPartition(100, 100, 0) != nil {
			t.Error("zero count should yield nil")
		}
	})
}

func TestTrimWhitespace(t *testing.T) {
	p := DefaultParams()

	t.Run("shrinks to content", func(t *testing.T) {
		img := whiteCanvas(200, 200)
		fillRect(img, geometry.NewRectInt(80, 90, 30, 20), color.Black)
		got := TrimWhitespace(img, geometry.NewRectInt(0, 0, 200, 200), p)
		want := geometry.NewRectInt(80, 90, 30, 20)
		if got != want {
			t.Errorf("trim = %v, want %v", got, want)
		}
	})

	t.Run("all-background rect is kept", func(t *testing.T) {
		img := whiteCanvas(100, 100)
		r := geometry.NewRectInt(10, 10, 50, 50)
		if got := TrimWhitespace(img, r, p); got != r {
			t.Errorf("trim = %v, want original %v", got, r)
		}
	})

	t.Run("collapse below 2px is rejected", func(t *testing.T) {
		img := whiteCanvas(100, 100)
		fillRect(img, geometry.NewRectInt(50, 50, 1, 1), color.Black)
		r := geometry.NewRectInt(0, 0, 100, 100)
		if got := TrimWhitespace(img, r, p); got != r {
			t.Errorf("trim = %v, want original kept", got)
		}
	})
}
