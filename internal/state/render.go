package state

// Renderer receives draw calls in screen coordinates. The hosting shell
// implements it and calls Render once per frame.
type Renderer interface {
	Image(layer ImageLayer, screen Rect)
	Stroke(points []Point, color string, width float64)
	Viewport(screen Rect)
}

// Render paints images, then strokes, then the peer's viewport outline,
// mapped through the local view.
func (r *Replica) Render(out Renderer) {
	v := r.view
	for _, id := range r.imageOrder {
		l := r.images[id]
		tl := v.ToScreen(l.Position)
		out.Image(*l, Rect{X: tl.X, Y: tl.Y, W: l.Width * v.scale(), H: l.Height * v.scale()})
	}

	for _, s := range r.strokes {
		pts := make([]Point, len(s.Points))
		for i, p := range s.Points {
			pts[i] = v.ToScreen(p)
		}
		out.Stroke(pts, s.Color, s.Width*v.scale())
	}

	if pv, ok := r.PeerView(); ok && pv.Scale > 0 {
		tl := v.ToScreen(pv.Offset)
		k := v.scale() / pv.Scale
		out.Viewport(Rect{X: tl.X, Y: tl.Y, W: pv.ViewW * k, H: pv.ViewH * k})
	}
}
