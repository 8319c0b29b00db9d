package gesture

import (
	"math"

	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/protocol"
	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/state"
)

// drawPen handles the pen in draw mode. Coordinates leave in world space;
// stroke width and eraser radius are converted from screen pixels at the
// local scale, so they match what the user sees on this device.
func (i *Interpreter) drawPen(s Sample, p point, erase bool) {
	switch s.Phase {
	case PhaseDown:
		if i.state == StateDrawing || i.state == StateErasing {
			return
		}
		i.abandonFingers()
		i.pen = p
		w := i.view.ToWorld(p)
		if erase {
			i.state = StateErasing
			i.emitErase(w)
			return
		}
		i.state = StateDrawing
		i.stroke = state.NewStrokeID()
		i.strokeEnd = w
		i.emit(protocol.DrawBegin{
			ID:    i.stroke,
			At:    w,
			Color: i.cfg.StrokeColor,
			Width: i.view.ToWorldLength(i.cfg.StrokeWidth),
		})
	case PhaseMove:
		if i.state != StateDrawing && i.state != StateErasing {
			return
		}
		if math.Sqrt(p.Dist2(i.pen)) < i.cfg.JitterPx {
			return
		}
		i.pen = p
		w := i.view.ToWorld(p)
		if i.state == StateErasing {
			i.emitErase(w)
			return
		}
		i.strokeEnd = w
		i.emit(protocol.DrawMove{ID: i.stroke, At: w})
	case PhaseUp:
		switch i.state {
		case StateDrawing:
			i.endStroke(i.view.ToWorld(p))
		case StateErasing:
			i.state = StateIdle
		}
	}
}

func (i *Interpreter) emitErase(w point) {
	i.emit(protocol.DrawErase{At: w, Radius: i.view.ToWorldLength(i.cfg.EraserRadius)})
}

func (i *Interpreter) endStroke(w point) {
	i.emit(protocol.DrawEnd{ID: i.stroke, At: w})
	i.stroke = ""
	i.state = StateIdle
}

// drawFinger pans with one finger and pinch-zooms with two. Only the local
// view changes; the new viewport is announced on the next Tick.
func (i *Interpreter) drawFinger(s Sample, p point) {
	switch s.Phase {
	case PhaseDown:
		i.touches[s.Pointer] = p
		if i.awaitRelease {
			return
		}
		switch i.state {
		case StateIdle:
			i.state = StatePanning
			i.primary = s.Pointer
			i.last = p
		case StatePanning:
			i.state = StatePinching
			i.pair = [2]int{i.primary, s.Pointer}
			i.pinchMid, i.pinchDist = i.pinch()
		case StateDrawing, StateErasing:
			i.awaitRelease = true
		}
	case PhaseMove:
		if _, ok := i.touches[s.Pointer]; !ok {
			return
		}
		i.touches[s.Pointer] = p
		if i.awaitRelease {
			return
		}
		switch i.state {
		case StatePanning:
			if s.Pointer == i.primary {
				i.view.Pan(p.X-i.last.X, p.Y-i.last.Y)
				i.last = p
				i.viewDirty = true
			}
		case StatePinching:
			if s.Pointer == i.pair[0] || s.Pointer == i.pair[1] {
				i.trackPinch()
			}
		}
	case PhaseUp:
		if _, ok := i.touches[s.Pointer]; !ok {
			return
		}
		if !i.awaitRelease {
			switch i.state {
			case StatePanning:
				if s.Pointer == i.primary {
					i.state = StateIdle
				}
			case StatePinching:
				if s.Pointer == i.pair[0] || s.Pointer == i.pair[1] {
					i.state = StateIdle
				}
			}
		}
		delete(i.touches, s.Pointer)
		switch {
		case len(i.touches) == 0:
			i.awaitRelease = false
		case i.state == StateIdle:
			i.awaitRelease = true
		}
	}
}

func (i *Interpreter) pinch() (mid point, dist float64) {
	a, b := i.touches[i.pair[0]], i.touches[i.pair[1]]
	return point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}, math.Sqrt(a.Dist2(b))
}

func (i *Interpreter) trackPinch() {
	mid, dist := i.pinch()
	// Pan first so the world point under the old midpoint lands under the
	// new one, then zoom around it.
	i.view.Pan(mid.X-i.pinchMid.X, mid.Y-i.pinchMid.Y)
	if i.pinchDist > 0 && dist > 0 {
		i.view.ZoomAt(dist/i.pinchDist, mid)
	}
	i.pinchMid, i.pinchDist = mid, dist
	i.viewDirty = true
}

func (i *Interpreter) emitView() {
	i.emit(protocol.DrawView{
		Offset: i.view.Offset,
		Scale:  i.view.Scale,
		ViewW:  i.viewW,
		ViewH:  i.viewH,
	})
	i.viewDirty = false
}
