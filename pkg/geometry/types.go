// Package geometry provides the rectangle and size value types shared by the
// segmentation, cropping, and compositing packages.
package geometry

import (
	"fmt"
	"math"
)

// Rect is an axis-aligned rectangle in source pixel space. Coordinates are
// floating point because the editor serializes them as JSON numbers and crop
// rects may originate in a scaled coordinate space.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// NewRect creates a new Rect.
func NewRect(x, y, width, height float64) Rect {
	return Rect{X: x, Y: y, Width: width, Height: height}
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Center returns the center point coordinates of the rectangle.
func (r Rect) Center() (x, y float64) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Intersects returns true if this rectangle intersects with another.
func (r Rect) Intersects(other Rect) bool {
	return r.X < other.X+other.Width && r.X+r.Width > other.X &&
		r.Y < other.Y+other.Height && r.Y+r.Height > other.Y
}

// Union returns the smallest rectangle containing both rectangles.
func (r Rect) Union(other Rect) Rect {
	x := math.Min(r.X, other.X)
	y := math.Min(r.Y, other.Y)
	x2 := math.Max(r.X+r.Width, other.X+other.Width)
	y2 := math.Max(r.Y+r.Height, other.Y+other.Height)
	return Rect{X: x, Y: y, Width: x2 - x, Height: y2 - y}
}

// Scale returns the rectangle with all coordinates multiplied by the given
// per-axis factors. Used to map a crop rect declared against one pixel space
// onto a bitmap decoded at a different natural size.
func (r Rect) Scale(sx, sy float64) Rect {
	return Rect{X: r.X * sx, Y: r.Y * sy, Width: r.Width * sx, Height: r.Height * sy}
}

// ToInt rounds the rectangle to integer pixel coordinates.
func (r Rect) ToInt() RectInt {
	x := int(math.Round(r.X))
	y := int(math.Round(r.Y))
	return RectInt{
		X:      x,
		Y:      y,
		Width:  int(math.Round(r.X+r.Width)) - x,
		Height: int(math.Round(r.Y+r.Height)) - y,
	}
}

// String formats the rect as "x,y,wxh" for identity keys and log output.
func (r Rect) String() string {
	return fmt.Sprintf("%g,%g,%gx%g", r.X, r.Y, r.Width, r.Height)
}

// RectInt is an axis-aligned rectangle with integer pixel coordinates.
type RectInt struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// NewRectInt creates a new RectInt.
func NewRectInt(x, y, width, height int) RectInt {
	return RectInt{X: x, Y: y, Width: width, Height: height}
}

// Empty reports whether the rectangle has no area.
func (r RectInt) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// ToFloat converts to Rect.
func (r RectInt) ToFloat() Rect {
	return Rect{X: float64(r.X), Y: float64(r.Y), Width: float64(r.Width), Height: float64(r.Height)}
}

// ClampTo clips the rectangle to the pixel bounds [0,width) x [0,height).
// The result may be empty when the rectangle lies entirely outside.
func (r RectInt) ClampTo(width, height int) RectInt {
	x1, y1 := r.X, r.Y
	x2, y2 := r.X+r.Width, r.Y+r.Height
	if x1 < 0 {
		x1 = 0
	}
	if y1 < 0 {
		y1 = 0
	}
	if x2 > width {
		x2 = width
	}
	if y2 > height {
		y2 = height
	}
	return RectInt{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// Contains reports whether the pixel (x, y) lies inside the rectangle.
func (r RectInt) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

// Size represents a 2D pixel size.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Pixels returns the total pixel count of the size. Zero for degenerate sizes.
func (s Size) Pixels() int {
	if s.Width <= 0 || s.Height <= 0 {
		return 0
	}
	return s.Width * s.Height
}
