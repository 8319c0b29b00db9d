package state

import "math"

// Scale bounds for every view.
const (
	MinScale = 0.1
	MaxScale = 10.0
)

// ViewTransform maps world space to one endpoint's screen space:
//
//	screen = (world - offset) * scale
//	world  = screen/scale + offset
//
// Each endpoint owns its own transform; the two never have to agree.
type ViewTransform struct {
	Offset Point   `json:"offset"`
	Scale  float64 `json:"scale"`
}

// NewViewTransform returns the identity view.
func NewViewTransform() ViewTransform {
	return ViewTransform{Scale: 1}
}

// ClampScale limits s to [MinScale, MaxScale].
func ClampScale(s float64) float64 {
	if math.IsNaN(s) || s <= 0 {
		return 1
	}
	return math.Max(MinScale, math.Min(MaxScale, s))
}

func (v ViewTransform) scale() float64 {
	if v.Scale <= 0 {
		return 1
	}
	return v.Scale
}

// ToScreen maps a world point to screen space.
func (v ViewTransform) ToScreen(p Point) Point {
	s := v.scale()
	return Point{X: (p.X - v.Offset.X) * s, Y: (p.Y - v.Offset.Y) * s}
}

// ToWorld maps a screen point to world space.
func (v ViewTransform) ToWorld(p Point) Point {
	s := v.scale()
	return Point{X: p.X/s + v.Offset.X, Y: p.Y/s + v.Offset.Y}
}

// ToWorldLength converts a screen distance to world units.
func (v ViewTransform) ToWorldLength(d float64) float64 {
	return d / v.scale()
}

// Pan moves the content by a screen-space delta.
func (v *ViewTransform) Pan(dx, dy float64) {
	s := v.scale()
	v.Offset.X -= dx / s
	v.Offset.Y -= dy / s
}

// ZoomAt multiplies the scale by factor keeping the world point under the
// screen-space anchor fixed.
func (v *ViewTransform) ZoomAt(factor float64, anchor Point) {
	before := v.ToWorld(anchor)
	v.Scale = ClampScale(v.scale() * factor)
	after := v.ToWorld(anchor)
	v.Offset.X += before.X - after.X
	v.Offset.Y += before.Y - after.Y
}

// Visible returns the world rectangle shown in a viewport of w×h pixels.
func (v ViewTransform) Visible(w, h float64) Rect {
	tl := v.ToWorld(Point{})
	s := v.scale()
	return Rect{X: tl.X, Y: tl.Y, W: w / s, H: h / s}
}

// Fit centres r in a w×h viewport with padding pixels on each side.
func (v *ViewTransform) Fit(r Rect, w, h, padding float64) {
	if r.Empty() || w <= 2*padding || h <= 2*padding {
		*v = NewViewTransform()
		return
	}
	sx := (w - 2*padding) / r.W
	sy := (h - 2*padding) / r.H
	v.Scale = ClampScale(math.Min(sx, sy))
	c := r.Center()
	v.Offset = Point{X: c.X - w/(2*v.Scale), Y: c.Y - h/(2*v.Scale)}
}
