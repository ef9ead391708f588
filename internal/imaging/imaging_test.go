package imaging

import (
	"context"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"testing"

	"pixelgraph/internal/assetref"
	"pixelgraph/pkg/geometry"
)

func solidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	src := solidImage(8, 6, color.RGBA{R: 200, G: 10, B: 10, A: 255})
	data, err := EncodePNG(src)
	if err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	back, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if b := back.Bounds(); b.Dx() != 8 || b.Dy() != 6 {
		t.Errorf("bounds = %v, want 8x6", b)
	}
}

func TestDecodeGarbage(t *testing.T) {
	if _, err := Decode([]byte("not an image")); err == nil {
		t.Error("Decode should fail on garbage bytes")
	}
}

func TestDownsample(t *testing.T) {
	t.Run("under budget is untouched", func(t *testing.T) {
		src := solidImage(100, 50, color.RGBA{A: 255})
		out, scale := Downsample(src, 10000)
		if scale != 1 {
			t.Errorf("scale = %v, want 1", scale)
		}
		if out.Bounds().Dx() != 100 || out.Bounds().Dy() != 50 {
			t.Errorf("bounds = %v", out.Bounds())
		}
	})

	t.Run("over budget shrinks within budget", func(t *testing.T) {
		src := solidImage(200, 200, color.RGBA{A: 255})
		out, scale := Downsample(src, 10000)
		b := out.Bounds()
		if b.Dx()*b.Dy() > 10000 {
			t.Errorf("pixel count %d exceeds budget", b.Dx()*b.Dy())
		}
		if scale >= 1 || scale <= 0 {
			t.Errorf("scale = %v, want in (0,1)", scale)
		}
	})
}

func TestCropScaled(t *testing.T) {
	t.Run("scale factor from declared source space", func(t *testing.T) {
		// Declared 400-wide space against an 800-wide bitmap: factor 2.
		src := solidImage(800, 800, color.RGBA{R: 1, A: 255})
		out, err := CropScaled(src, geometry.NewRect(50, 50, 100, 100), 400, 400)
		if err != nil {
			t.Fatalf("CropScaled: %v", err)
		}
		if b := out.Bounds(); b.Dx() != 200 || b.Dy() != 200 {
			t.Errorf("effective crop = %v, want 200x200", b)
		}
	})

	t.Run("zero source dims use natural space", func(t *testing.T) {
		src := solidImage(100, 100, color.RGBA{A: 255})
		out, err := CropScaled(src, geometry.NewRect(10, 10, 30, 40), 0, 0)
		if err != nil {
			t.Fatalf("CropScaled: %v", err)
		}
		if b := out.Bounds(); b.Dx() != 30 || b.Dy() != 40 {
			t.Errorf("crop = %v, want 30x40", b)
		}
	})

	t.Run("overhanging crop is clamped", func(t *testing.T) {
		src := solidImage(100, 100, color.RGBA{A: 255})
		out, err := CropScaled(src, geometry.NewRect(80, 80, 50, 50), 100, 100)
		if err != nil {
			t.Fatalf("CropScaled: %v", err)
		}
		if b := out.Bounds(); b.Dx() != 20 || b.Dy() != 20 {
			t.Errorf("crop = %v, want clamped 20x20", b)
		}
	})

	t.Run("out-of-bounds crop is a geometry error", func(t *testing.T) {
		src := solidImage(100, 100, color.RGBA{A: 255})
		if _, err := CropScaled(src, geometry.NewRect(200, 200, 50, 50), 100, 100); err == nil {
			t.Error("expected geometry error")
		}
	})
}

func TestFetcher(t *testing.T) {
	var codec assetref.Codec

	t.Run("inline", func(t *testing.T) {
		payload, _ := EncodePNG(solidImage(2, 2, color.RGBA{A: 255}))
		f := Fetcher{Codec: &codec}
		got, err := f.Fetch(context.Background(), assetref.Inline(payload, "image/png"))
		if err != nil {
			t.Fatalf("Fetch inline: %v", err)
		}
		if len(got) != len(payload) {
			t.Errorf("got %d bytes, want %d", len(got), len(payload))
		}
	})

	t.Run("remote URL", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("imgbytes"))
		}))
		defer srv.Close()

		f := Fetcher{Codec: &codec, Client: srv.Client()}
		got, err := f.Fetch(context.Background(), assetref.Remote(srv.URL+"/a.png"))
		if err != nil {
			t.Fatalf("Fetch remote: %v", err)
		}
		if string(got) != "imgbytes" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("remote error status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "gone", http.StatusNotFound)
		}))
		defer srv.Close()

		f := Fetcher{Codec: &codec, Client: srv.Client()}
		if _, err := f.Fetch(context.Background(), assetref.Remote(srv.URL+"/a.png")); err == nil {
			t.Error("expected error for 404")
		}
	})

	t.Run("ephemeral without store", func(t *testing.T) {
		f := Fetcher{Codec: &codec}
		if _, err := f.Fetch(context.Background(), assetref.Ephemeral("x")); err == nil {
			t.Error("expected error without session store")
		}
	})
}
