package state

// Rect is an axis-aligned rectangle.
type Rect struct {
	X, Y, W, H float64
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

// Center returns the midpoint of r.
func (r Rect) Center() Point { return Point{X: r.X + r.W/2, Y: r.Y + r.H/2} }

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.W && p.Y >= r.Y && p.Y <= r.Y+r.H
}

// Overlaps reports whether the two rectangles intersect.
func (r Rect) Overlaps(o Rect) bool {
	return !(r.X+r.W < o.X || o.X+o.W < r.X || r.Y+r.H < o.Y || o.Y+o.H < r.Y)
}

// Expand grows r by padding on every side.
func (r Rect) Expand(padding float64) Rect {
	return Rect{X: r.X - padding, Y: r.Y - padding, W: r.W + 2*padding, H: r.H + 2*padding}
}

// Union returns the smallest rectangle covering both.
func (r Rect) Union(o Rect) Rect {
	minX, minY := min(r.X, o.X), min(r.Y, o.Y)
	maxX, maxY := max(r.X+r.W, o.X+o.W), max(r.Y+r.H, o.Y+o.H)
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// PointsBounds returns the bounding box of points.
func PointsBounds(points []Point) (Rect, bool) {
	if len(points) == 0 {
		return Rect{}, false
	}
	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}, true
}
