package gesture

import (
	"log/slog"
	"math"
	"time"

	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/protocol"
	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/state"
)

type point = protocol.Point

// Interpreter turns raw samples into pointer and draw events.
//
// It is not safe for concurrent use. Feed and Tick must be called from the
// interaction goroutine; Tick once per display refresh. Move deltas and
// scroll lines are coalesced between ticks, so at most one Move and one
// Scroll leave per refresh.
type Interpreter struct {
	cfg  Config
	sink Sink
	log  *slog.Logger

	mode  Mode
	state State

	touches      map[int]point
	primary      int
	pair         [2]int
	awaitRelease bool // ignore fingers until all are lifted

	downAt time.Time
	origin point
	last   point

	moveX, moveY float64

	scrollFrom       point
	scrollLast       point
	scrollX, scrollY float64 // fractional lines
	scrollDir        point   // travel at commit
	scrolling        bool
	scrolled         bool // at least one line left

	hoverLast point
	pen       point

	view         *state.ViewTransform
	viewW, viewH float64
	viewDirty    bool
	stroke       string
	strokeEnd    point
	pinchDist    float64
	pinchMid     point
}

// New creates an interpreter in pointer mode. view is the local canvas view
// used in draw mode; nil gives the interpreter a private identity view.
func New(cfg Config, sink Sink, view *state.ViewTransform, logger *slog.Logger) *Interpreter {
	if logger == nil {
		logger = slog.Default()
	}
	if view == nil {
		v := state.NewViewTransform()
		view = &v
	}
	return &Interpreter{
		cfg:     cfg.withDefaults(),
		sink:    sink,
		log:     logger.With("component", "gesture"),
		touches: make(map[int]point),
		view:    view,
	}
}

// SetPen changes the colour and screen width of strokes started from now on.
func (i *Interpreter) SetPen(color string, width float64) {
	if color != "" {
		i.cfg.StrokeColor = color
	}
	if width > 0 {
		i.cfg.StrokeWidth = width
	}
}

// Mode returns the current mode.
func (i *Interpreter) Mode() Mode { return i.mode }

// State returns the current classification.
func (i *Interpreter) State() State { return i.state }

// SetMode abandons any gesture in progress and switches mode.
func (i *Interpreter) SetMode(m Mode) {
	if m == i.mode {
		return
	}
	i.Cancel()
	i.mode = m
	i.log.Debug("mode changed", "mode", m)
}

// SetViewport records the canvas size announced in view updates.
func (i *Interpreter) SetViewport(w, h float64) {
	if w == i.viewW && h == i.viewH {
		return
	}
	i.viewW, i.viewH = w, h
	if i.mode == ModeDraw {
		i.viewDirty = true
	}
}

// Feed consumes one sample.
func (i *Interpreter) Feed(s Sample) {
	if s.Phase == PhaseCancel {
		i.Cancel()
		return
	}
	p := s.point()
	switch {
	case s.Tool == ToolFinger && i.mode == ModeDraw:
		i.drawFinger(s, p)
	case s.Tool == ToolFinger:
		i.finger(s, p)
	case i.mode == ModeDraw:
		i.drawPen(s, p, s.Tool == ToolEraser)
	default:
		i.stylus(s, p)
	}
}

// Tick fires the long-press timer and flushes coalesced output.
func (i *Interpreter) Tick(now time.Time) {
	if i.state == StatePending && !i.awaitRelease && now.Sub(i.downAt) >= i.cfg.LongPress {
		i.log.Debug("long press")
		i.startDrag()
	}
	i.flushMove()
	i.flushScroll()
	if i.viewDirty {
		i.emitView()
	}
}

// Cancel abandons the current gesture. A held button is released and an
// open stroke is ended.
func (i *Interpreter) Cancel() {
	switch i.state {
	case StateDragging, StateStylusActive:
		i.flushMove()
		i.emit(protocol.Button{Side: protocol.SideLeft, Down: false})
	case StateDrawing:
		i.endStroke(i.strokeEnd)
	}
	if i.state != StateIdle {
		i.log.Debug("gesture cancelled", "state", i.state)
	}
	clear(i.touches)
	i.awaitRelease = false
	i.moveX, i.moveY = 0, 0
	i.resetScroll()
	i.state = StateIdle
}

func (i *Interpreter) emit(msg protocol.Message) {
	if i.sink != nil {
		i.sink.Emit(msg)
	}
}

func (i *Interpreter) finger(s Sample, p point) {
	switch s.Phase {
	case PhaseDown:
		i.fingerDown(s, p)
	case PhaseMove:
		i.fingerMove(s, p)
	case PhaseUp:
		i.fingerUp(s, p)
	}
}

func (i *Interpreter) fingerDown(s Sample, p point) {
	i.touches[s.Pointer] = p
	if i.awaitRelease {
		return
	}
	switch i.state {
	case StateIdle, StateStylusHover:
		i.flushMove()
		i.state = StatePending
		i.primary = s.Pointer
		i.downAt = s.At
		i.origin, i.last = p, p
	case StatePending:
		i.state = StateTwoFingerScroll
		i.pair = [2]int{i.primary, s.Pointer}
		i.resetScroll()
		c := i.pairMid()
		i.scrollFrom, i.scrollLast = c, c
	case StateStylusActive:
		// Palm on the glass while the pen is down.
		i.awaitRelease = true
	}
}

func (i *Interpreter) fingerMove(s Sample, p point) {
	if _, ok := i.touches[s.Pointer]; !ok {
		return
	}
	i.touches[s.Pointer] = p
	if i.awaitRelease {
		return
	}
	switch i.state {
	case StatePending:
		if s.Pointer == i.primary && math.Sqrt(p.Dist2(i.origin)) > i.cfg.TouchSlop {
			i.startDrag()
			i.addMove(p)
		}
	case StateDragging:
		if s.Pointer == i.primary {
			i.addMove(p)
		}
	case StateTwoFingerScroll:
		if s.Pointer == i.pair[0] || s.Pointer == i.pair[1] {
			i.trackScroll()
		}
	}
}

func (i *Interpreter) fingerUp(s Sample, p point) {
	if _, ok := i.touches[s.Pointer]; !ok {
		return
	}
	i.touches[s.Pointer] = p
	if !i.awaitRelease {
		switch i.state {
		case StatePending:
			switch held := s.At.Sub(i.downAt); {
			case held >= i.cfg.LongPress:
				// The long press fired before this release; no tick saw it.
				i.startDrag()
				i.emit(protocol.Button{Side: protocol.SideLeft, Down: false})
			case held < i.cfg.TapTimeout:
				i.click(protocol.SideLeft)
			}
			i.state = StateIdle
		case StateDragging:
			if s.Pointer == i.primary {
				i.addMove(p)
				i.flushMove()
				i.emit(protocol.Button{Side: protocol.SideLeft, Down: false})
				i.state = StateIdle
			}
		case StateTwoFingerScroll:
			if s.Pointer == i.pair[0] || s.Pointer == i.pair[1] {
				i.trackScroll()
				i.endScroll(s.At)
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

func (i *Interpreter) startDrag() {
	i.flushMove()
	i.emit(protocol.Button{Side: protocol.SideLeft, Down: true})
	i.state = StateDragging
}

func (i *Interpreter) click(side protocol.Side) {
	i.flushMove()
	i.emit(protocol.Button{Side: side, Down: true})
	i.emit(protocol.Button{Side: side, Down: false})
	i.log.Debug("click", "button", side)
}

func (i *Interpreter) addMove(p point) {
	i.moveX += p.X - i.last.X
	i.moveY += p.Y - i.last.Y
	i.last = p
}

func (i *Interpreter) flushMove() {
	if i.moveX == 0 && i.moveY == 0 {
		return
	}
	i.emit(protocol.Move{DX: i.moveX, DY: i.moveY})
	i.moveX, i.moveY = 0, 0
}

func (i *Interpreter) pairMid() point {
	a, b := i.touches[i.pair[0]], i.touches[i.pair[1]]
	return point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}

func (i *Interpreter) resetScroll() {
	i.scrollX, i.scrollY = 0, 0
	i.scrollDir = point{}
	i.scrolling = false
	i.scrolled = false
}

// trackScroll accumulates two-finger travel once it commits to scrolling.
// Vertical travel past the right-click slop commits; sideways drift only
// commits once it amounts to a whole line. The travel before the commit
// counts towards the first line.
func (i *Interpreter) trackScroll() {
	c := i.pairMid()
	if !i.scrolling {
		d := c.Sub(i.scrollFrom)
		if math.Abs(d.Y) <= i.cfg.RightClickSlop && math.Abs(d.X) < i.cfg.ScrollStep {
			return
		}
		i.scrolling = true
		i.scrollDir = d
		i.log.Debug("scroll committed")
	}
	i.scrollX += (c.X - i.scrollLast.X) / i.cfg.ScrollStep
	i.scrollY += (c.Y - i.scrollLast.Y) / i.cfg.ScrollStep
	i.scrollLast = c
}

func (i *Interpreter) flushScroll() {
	lx, ly := int(i.scrollX), int(i.scrollY)
	if lx == 0 && ly == 0 {
		return
	}
	i.scrollX -= float64(lx)
	i.scrollY -= float64(ly)
	i.scrolled = true
	i.emit(protocol.Scroll{DX: lx, DY: ly})
}

func (i *Interpreter) endScroll(at time.Time) {
	if i.scrolling {
		i.flushScroll()
		if !i.scrolled {
			// Committed but short of a line: still one line of scroll.
			i.emit(oneLine(i.scrollDir))
		}
	} else if at.Sub(i.downAt) < i.cfg.TapTimeout {
		i.click(protocol.SideRight)
	}
	i.resetScroll()
	i.state = StateIdle
}

// oneLine is a single-line scroll along the dominant axis of d.
func oneLine(d point) protocol.Scroll {
	if math.Abs(d.X) > math.Abs(d.Y) {
		return protocol.Scroll{DX: int(math.Copysign(1, d.X))}
	}
	return protocol.Scroll{DY: int(math.Copysign(1, d.Y))}
}

// abandonFingers ends a finger gesture when the pen takes over.
func (i *Interpreter) abandonFingers() {
	switch i.state {
	case StateDragging:
		i.flushMove()
		i.emit(protocol.Button{Side: protocol.SideLeft, Down: false})
	case StatePending, StateTwoFingerScroll, StatePanning, StatePinching:
	default:
		return
	}
	i.resetScroll()
	i.state = StateIdle
	if len(i.touches) > 0 {
		i.awaitRelease = true
	}
}

func (i *Interpreter) stylus(s Sample, p point) {
	switch s.Phase {
	case PhaseHover:
		switch i.state {
		case StateIdle:
			i.state = StateStylusHover
			i.hoverLast = p
		case StateStylusHover:
			i.moveX += p.X - i.hoverLast.X
			i.moveY += p.Y - i.hoverLast.Y
			i.hoverLast = p
		}
	case PhaseHoverExit:
		if i.state == StateStylusHover {
			i.flushMove()
			i.state = StateIdle
		}
	case PhaseDown:
		if i.state == StateStylusActive {
			return
		}
		i.abandonFingers()
		if i.state == StateStylusHover {
			i.moveX += p.X - i.hoverLast.X
			i.moveY += p.Y - i.hoverLast.Y
		}
		i.flushMove()
		i.emit(protocol.Button{Side: protocol.SideLeft, Down: true})
		i.state = StateStylusActive
		i.pen = p
	case PhaseMove:
		if i.state == StateStylusActive {
			i.moveX += p.X - i.pen.X
			i.moveY += p.Y - i.pen.Y
			i.pen = p
		}
	case PhaseUp:
		if i.state != StateStylusActive {
			return
		}
		i.moveX += p.X - i.pen.X
		i.moveY += p.Y - i.pen.Y
		i.flushMove()
		i.emit(protocol.Button{Side: protocol.SideLeft, Down: false})
		i.state = StateStylusHover
		i.hoverLast = p
	}
}
