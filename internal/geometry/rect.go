// Package geometry provides axis-aligned rectangle arithmetic in pixel space.
package geometry

import "math"

// Rect is an axis-aligned rectangle in pixel coordinates.
// (X1, Y1) is the top-left corner and (X2, Y2) the bottom-right corner.
type Rect struct {
	X1 float64 `json:"x1" yaml:"x1" parquet:"x1"`
	Y1 float64 `json:"y1" yaml:"y1" parquet:"y1"`
	X2 float64 `json:"x2" yaml:"x2" parquet:"x2"`
	Y2 float64 `json:"y2" yaml:"y2" parquet:"y2"`
}

// FromXYWH builds a rectangle from its top-left corner and size.
func FromXYWH(x, y, w, h float64) Rect {
	return Rect{X1: x, Y1: y, X2: x + w, Y2: y + h}
}

// FromCenter builds a rectangle from a center and size given as ratios of
// the image size, scaled to pixels.
func FromCenter(cx, cy, w, h float64, imageWidth, imageHeight int) Rect {
	W, H := float64(imageWidth), float64(imageHeight)
	return Rect{
		X1: (cx - w/2) * W,
		Y1: (cy - h/2) * H,
		X2: (cx + w/2) * W,
		Y2: (cy + h/2) * H,
	}
}

// Width is X2-X1, never negative.
func (r Rect) Width() float64 {
	return math.Max(0, r.X2-r.X1)
}

// Height is Y2-Y1, never negative.
func (r Rect) Height() float64 {
	return math.Max(0, r.Y2-r.Y1)
}

// Area returns Width*Height. Degenerate rectangles have area 0.
func (r Rect) Area() float64 {
	return r.Width() * r.Height()
}

// Valid reports whether all coordinates are finite and X2 >= X1, Y2 >= Y1.
func (r Rect) Valid() bool {
	for _, v := range [...]float64{r.X1, r.Y1, r.X2, r.Y2} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return r.X2 >= r.X1 && r.Y2 >= r.Y1
}

// Clamp limits every coordinate to [0,width]x[0,height].
func (r Rect) Clamp(width, height int) Rect {
	W, H := float64(width), float64(height)
	return Rect{
		X1: clamp(r.X1, 0, W),
		Y1: clamp(r.Y1, 0, H),
		X2: clamp(r.X2, 0, W),
		Y2: clamp(r.Y2, 0, H),
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

// Intersection returns the overlap area of a and b.
func Intersection(a, b Rect) float64 {
	ix1 := math.Max(a.X1, b.X1)
	iy1 := math.Max(a.Y1, b.Y1)
	ix2 := math.Min(a.X2, b.X2)
	iy2 := math.Min(a.Y2, b.Y2)
	return math.Max(0, ix2-ix1) * math.Max(0, iy2-iy1)
}

// Union returns the area covered by a or b.
func Union(a, b Rect) float64 {
	return a.Area() + b.Area() - Intersection(a, b)
}

// IoU returns the intersection-over-union of a and b in [0,1].
// It is 0 when the union is empty, so two degenerate rectangles never match.
func IoU(a, b Rect) float64 {
	union := Union(a, b)
	if !(union > 0) {
		return 0
	}
	iou := Intersection(a, b) / union
	if math.IsNaN(iou) {
		return 0
	}
	return math.Min(iou, 1)
}
