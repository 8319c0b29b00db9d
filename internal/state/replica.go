package state

import (
	"log/slog"

	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/protocol"
)

// Replica is one endpoint's copy of the shared canvas.
//
// Local and remote events go through the same Apply, so two replicas that
// have seen the same events hold the same strokes and images. The view
// transform is private to the endpoint.
//
// A Replica is owned by the interaction goroutine. It has no lock; other
// goroutines hand work to the owner instead of calling it directly.
type Replica struct {
	strokes []*Stroke
	byID    map[string]*Stroke
	retired map[string]struct{} // ended-then-removed, undone, cleared or erased ids

	images     map[string]*ImageLayer
	imageOrder []string

	view     ViewTransform
	peerView *protocol.DrawView

	log *slog.Logger
}

// NewReplica creates an empty canvas with the identity view.
func NewReplica(logger *slog.Logger) *Replica {
	if logger == nil {
		logger = slog.Default()
	}
	return &Replica{
		byID:    make(map[string]*Stroke),
		retired: make(map[string]struct{}),
		images:  make(map[string]*ImageLayer),
		view:    NewViewTransform(),
		log:     logger.With("component", "replica"),
	}
}

// Apply runs one transition and reports whether the canvas changed.
// Messages that are neither draw nor image events are ignored.
func (r *Replica) Apply(msg protocol.Message) bool {
	switch ev := msg.(type) {
	case protocol.DrawBegin:
		return r.begin(ev)
	case protocol.DrawMove:
		return r.extend(ev.ID, ev.At, false)
	case protocol.DrawEnd:
		return r.extend(ev.ID, ev.At, true)
	case protocol.DrawUndo:
		return r.undo()
	case protocol.DrawClear:
		return r.clear()
	case protocol.DrawErase:
		return r.erase(ev.At, ev.Radius)
	case protocol.DrawView:
		v := ev
		r.peerView = &v
		return true
	case protocol.ImageMove:
		return r.moveImage(ev)
	case protocol.ImageResize:
		return r.resizeImage(ev)
	}
	return false
}

func (r *Replica) begin(ev protocol.DrawBegin) bool {
	if ev.ID == "" {
		return false
	}
	if _, ok := r.byID[ev.ID]; ok {
		r.log.Debug("duplicate begin ignored", "stroke", ev.ID)
		return false
	}
	if _, ok := r.retired[ev.ID]; ok {
		r.log.Debug("begin for retired stroke ignored", "stroke", ev.ID)
		return false
	}
	s := &Stroke{ID: ev.ID, Color: ev.Color, Width: ev.Width, Points: []Point{ev.At}}
	r.strokes = append(r.strokes, s)
	r.byID[ev.ID] = s
	return true
}

func (r *Replica) extend(id string, at Point, end bool) bool {
	s, ok := r.byID[id]
	if !ok || s.Ended {
		return false
	}
	if last := s.Points[len(s.Points)-1]; last != at {
		s.Points = append(s.Points, at)
	}
	if end {
		s.Ended = true
	}
	return true
}

func (r *Replica) retire(s *Stroke) {
	delete(r.byID, s.ID)
	r.retired[s.ID] = struct{}{}
}

func (r *Replica) undo() bool {
	n := len(r.strokes)
	if n == 0 {
		return false
	}
	last := r.strokes[n-1]
	r.strokes[n-1] = nil
	r.strokes = r.strokes[:n-1]
	r.retire(last)
	r.log.Debug("undo", "stroke", last.ID)
	return true
}

func (r *Replica) clear() bool {
	if len(r.strokes) == 0 {
		return false
	}
	for _, s := range r.strokes {
		r.retire(s)
	}
	r.strokes = nil
	return true
}

func (r *Replica) erase(at Point, radius float64) bool {
	if radius <= 0 {
		return false
	}
	r2 := radius * radius
	reach := Rect{X: at.X, Y: at.Y}.Expand(radius)

	kept := r.strokes[:0]
	removed := 0
	for _, s := range r.strokes {
		if hit(s, at, r2, reach) {
			r.retire(s)
			removed++
			continue
		}
		kept = append(kept, s)
	}
	for i := len(kept); i < len(r.strokes); i++ {
		r.strokes[i] = nil
	}
	r.strokes = kept
	if removed > 0 {
		r.log.Debug("erase", "x", at.X, "y", at.Y, "radius", radius, "removed", removed)
	}
	return removed > 0
}

func hit(s *Stroke, at Point, r2 float64, reach Rect) bool {
	if b, ok := PointsBounds(s.Points); !ok || !b.Overlaps(reach) {
		return false
	}
	for _, p := range s.Points {
		if p.Dist2(at) <= r2 {
			return true
		}
	}
	return false
}

// PlaceImage adds a layer delivered by the image channel. A layer with an
// existing id replaces the old one in place.
func (r *Replica) PlaceImage(layer ImageLayer) bool {
	if layer.ID == "" || layer.Image == nil {
		return false
	}
	if layer.Width <= 0 || layer.Height <= 0 {
		b := layer.Image.Bounds()
		layer.Width, layer.Height = float64(b.Dx()), float64(b.Dy())
	}
	layer.Width = max(layer.Width, MinImageSize)
	layer.Height = max(layer.Height, MinImageSize)

	if _, ok := r.images[layer.ID]; !ok {
		r.imageOrder = append(r.imageOrder, layer.ID)
	}
	l := layer
	r.images[layer.ID] = &l
	r.log.Debug("image placed", "image", layer.ID, "w", layer.Width, "h", layer.Height)
	return true
}

func (r *Replica) moveImage(ev protocol.ImageMove) bool {
	l, ok := r.images[ev.ID]
	if !ok {
		return false
	}
	l.Position = ev.At
	return true
}

func (r *Replica) resizeImage(ev protocol.ImageResize) bool {
	l, ok := r.images[ev.ID]
	if !ok {
		return false
	}
	l.Width = max(ev.Width, MinImageSize)
	l.Height = max(ev.Height, MinImageSize)
	return true
}

// Strokes returns copies of the strokes in paint order.
func (r *Replica) Strokes() []Stroke {
	out := make([]Stroke, 0, len(r.strokes))
	for _, s := range r.strokes {
		out = append(out, s.clone())
	}
	return out
}

// Stroke returns a copy of the stroke with id.
func (r *Replica) Stroke(id string) (Stroke, bool) {
	s, ok := r.byID[id]
	if !ok {
		return Stroke{}, false
	}
	return s.clone(), true
}

// Images returns the image layers in paint order.
func (r *Replica) Images() []ImageLayer {
	out := make([]ImageLayer, 0, len(r.imageOrder))
	for _, id := range r.imageOrder {
		out = append(out, *r.images[id])
	}
	return out
}

// Image returns the layer with id.
func (r *Replica) Image(id string) (ImageLayer, bool) {
	l, ok := r.images[id]
	if !ok {
		return ImageLayer{}, false
	}
	return *l, true
}

// ImageAt returns the topmost image under a world point.
func (r *Replica) ImageAt(p Point) (ImageLayer, bool) {
	for i := len(r.imageOrder) - 1; i >= 0; i-- {
		l := r.images[r.imageOrder[i]]
		if l.Rect().Contains(p) {
			return *l, true
		}
	}
	return ImageLayer{}, false
}

// View returns the endpoint's private view transform for in-place changes.
func (r *Replica) View() *ViewTransform { return &r.view }

// PeerView returns the last viewport announced by the other endpoint.
func (r *Replica) PeerView() (protocol.DrawView, bool) {
	if r.peerView == nil {
		return protocol.DrawView{}, false
	}
	return *r.peerView, true
}

// Bounds returns the world rectangle covering all strokes and images.
func (r *Replica) Bounds() (Rect, bool) {
	var out Rect
	found := false
	add := func(b Rect) {
		if !found {
			out, found = b, true
			return
		}
		out = out.Union(b)
	}
	for _, s := range r.strokes {
		if b, ok := PointsBounds(s.Points); ok {
			add(b.Expand(s.Width / 2))
		}
	}
	for _, id := range r.imageOrder {
		add(r.images[id].Rect())
	}
	return out, found
}
