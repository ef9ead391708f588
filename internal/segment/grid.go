package segment

import (
	"math"

	"pixelgraph/pkg/geometry"
)

// GridPartition divides a width x height source into count cells of nearly
// equal size, row-major. The layout uses cols = ceil(sqrt(count)) columns and
// as many rows as needed; cell edges divide the pixel ranges evenly so the
// cells tile the source exactly. The result always has exactly
// min(count, MaxRegions) cells.
func GridPartition(width, height, count int) []geometry.RectInt {
	if width <= 0 || height <= 0 || count < 1 {
		return nil
	}
	if count > MaxRegions {
		count = MaxRegions
	}

	cols := int(math.Ceil(math.Sqrt(float64(count))))
	rows := (count + cols - 1) / cols

	cells := make([]geometry.RectInt, 0, count)
	for row := 0; row < rows && len(cells) < count; row++ {
		y1 := row * height / rows
		y2 := (row + 1) * height / rows
		for col := 0; col < cols && len(cells) < count; col++ {
			x1 := col * width / cols
			x2 := (col + 1) * width / cols
			cells = append(cells, geometry.NewRectInt(x1, y1, x2-x1, y2-y1))
		}
	}
	return cells
}
