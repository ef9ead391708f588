package segment

import (
	"image"
	"sort"

	"pixelgraph/internal/imaging"
	"pixelgraph/pkg/geometry"

	"gonum.org/v1/gonum/stat"
)

// Segment produces the content regions of an image, ordered top-to-bottom
// then left-to-right. Light-background sources go through connected-component
// detection with whitespace trimming; everything else (and every unreliable
// detection) falls back to a uniform grid partition of exactly
// min(desiredCount, MaxRegions) cells. Detection-path results keep however
// many components survived filtering, which may differ from desiredCount;
// callers adapt their port count to the result.
func Segment(img image.Image, desiredCount int, p Params) []geometry.RectInt {
	if desiredCount < 1 {
		desiredCount = 1
	}
	if desiredCount > MaxRegions {
		desiredCount = MaxRegions
	}

	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	if width <= 0 || height <= 0 {
		return nil
	}

	light := IsLightBackground(img, p)

	var rects []geometry.RectInt
	fromDetection := false
	if light && width*height <= p.DetectMaxPixels {
		comps := detectComponents(imaging.ToRGBA(img), p)
		switch {
		case len(comps) <= 1:
			p.log().Debug("detection inconclusive, using grid fallback", "components", len(comps))
		case p.OverdetectFactor > 0 && len(comps) > desiredCount*p.OverdetectFactor:
			// Far more components than requested regions means background
			// noise was mis-detected as content.
			p.log().Debug("detection over-segmented, using grid fallback",
				"components", len(comps), "desired", desiredCount)
		default:
			rects = comps
			fromDetection = true
		}
	}

	if !fromDetection {
		rects = GridPartition(width, height, desiredCount)
	}

	if light {
		rgba := imaging.ToRGBA(img)
		for i, r := range rects {
			rects[i] = TrimWhitespace(rgba, r, p)
		}
	}

	if len(rects) > MaxRegions {
		rects = rects[:MaxRegions]
	}
	p.log().Debug("segmentation complete",
		"regions", len(rects), "detection", fromDetection, "light", light)
	return rects
}

// IsLightBackground classifies the source as hand-drawn/white-background
// (worth component detection) or photographic (grid fallback only). The
// decision is made on a small downsampled rendering so cost stays flat
// regardless of source size.
func IsLightBackground(img image.Image, p Params) bool {
	sample, _ := imaging.Downsample(img, p.SamplePixels)
	sb := sample.Bounds()
	n := sb.Dx() * sb.Dy()
	if n == 0 {
		return false
	}

	indicator := make([]float64, 0, n)
	for i := 0; i < len(sample.Pix); i += 4 {
		if p.isBackground(sample.Pix[i], sample.Pix[i+1], sample.Pix[i+2], sample.Pix[i+3]) {
			indicator = append(indicator, 1)
		} else {
			indicator = append(indicator, 0)
		}
	}

	ratio := stat.Mean(indicator, nil)
	p.log().Debug("background classification",
		"whiteRatio", ratio, "spread", stat.StdDev(indicator, nil), "samplePixels", n)
	return ratio >= p.WhiteRatioThreshold
}

// detectComponents runs 4-connectivity flood fill over the binary foreground
// mask and returns the bounding boxes of components that pass the minimum
// extent filter, in reading order.
func detectComponents(rgba *image.RGBA, p Params) []geometry.RectInt {
	width := rgba.Bounds().Dx()
	height := rgba.Bounds().Dy()

	// Binary mask: 1 = foreground content, 0 = background.
	mask := make([]byte, width*height)
	for y := 0; y < height; y++ {
		row := y * rgba.Stride
		for x := 0; x < width; x++ {
			o := row + x*4
			if !p.isBackground(rgba.Pix[o], rgba.Pix[o+1], rgba.Pix[o+2], rgba.Pix[o+3]) {
				mask[y*width+x] = 1
			}
		}
	}

	visited := make([]byte, width*height)
	var stack []int
	var comps []geometry.RectInt

	for start := 0; start < len(mask); start++ {
		if mask[start] == 0 || visited[start] != 0 {
			continue
		}

		minX, minY := start%width, start/width
		maxX, maxY := minX, minY
		visited[start] = 1
		stack = append(stack[:0], start)

		for len(stack) > 0 {
			idx := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := idx%width, idx/width

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

			if x > 0 {
				push(mask, visited, &stack, idx-1)
			}
			if x < width-1 {
				push(mask, visited, &stack, idx+1)
			}
			if y > 0 {
				push(mask, visited, &stack, idx-width)
			}
			if y < height-1 {
				push(mask, visited, &stack, idx+width)
			}
		}

		w := maxX - minX + 1
		h := maxY - minY + 1
		if w < p.MinComponentPx || h < p.MinComponentPx {
			continue // noise
		}
		comps = append(comps, geometry.NewRectInt(minX, minY, w, h))
	}

	sortReadingOrder(comps, p.RowBucketPx)
	p.log().Debug("component detection", "components", len(comps), "maskPixels", width*height)
	return comps
}

func push(mask, visited []byte, stack *[]int, idx int) {
	if mask[idx] != 0 && visited[idx] == 0 {
		visited[idx] = 1
		*stack = append(*stack, idx)
	}
}

// sortReadingOrder approximates natural left-to-right, top-to-bottom reading
// order by bucketing component origins into fixed-height rows.
func sortReadingOrder(rects []geometry.RectInt, bucketPx int) {
	if bucketPx < 1 {
		bucketPx = 1
	}
	sort.SliceStable(rects, func(i, j int) bool {
		bi, bj := rects[i].Y/bucketPx, rects[j].Y/bucketPx
		if bi != bj {
			return bi < bj
		}
		return rects[i].X < rects[j].X
	})
}
