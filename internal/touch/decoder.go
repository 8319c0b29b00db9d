// Package touch turns Linux evdev reports from a touch panel or pen digitiser
// into gesture samples.
package touch

import (
	"sort"
	"time"

	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/evdev"
	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/gesture"
)

// PenPointer is the pointer id given to single-touch pen samples. Tracking
// ids from the kernel are 16-bit so they never collide with it.
const PenPointer = 1 << 20

// Axes is the raw range of the X and Y axes a device reports.
type Axes struct {
	X, Y evdev.AbsInfo
}

type slot struct {
	tracking int32
	x, y     int32
	pen      bool

	active  bool
	down    bool
	moved   bool
	lifted  bool
	pointer int
}

type penState struct {
	x, y     int32
	toolPen  bool
	rubber   bool
	touching bool
	button   bool

	wasIn    bool
	wasTouch bool
}

func (p *penState) inRange() bool { return p.toolPen || p.rubber }

// Decoder accumulates events between SYN_REPORTs and emits one sample per
// changed contact. It handles multi-touch protocol B slots and single-touch
// pens in the same stream.
type Decoder struct {
	axes          Axes
	width, height float64
	now           func() time.Time

	slots    map[int32]*slot
	cur      int32
	pen      penState
	penDirty bool
	dropping bool
}

// NewDecoder maps raw axes onto a width x height pixel surface.
func NewDecoder(axes Axes, width, height float64) *Decoder {
	return &Decoder{
		axes:   axes,
		width:  width,
		height: height,
		now:    time.Now,
		slots:  make(map[int32]*slot),
	}
}

func (d *Decoder) slot() *slot {
	s, ok := d.slots[d.cur]
	if !ok {
		s = &slot{tracking: -1}
		d.slots[d.cur] = s
	}
	return s
}

func (d *Decoder) scale(x, y int32) (float64, float64) {
	return d.axes.X.Norm(x) * d.width, d.axes.Y.Norm(y) * d.height
}

// Feed consumes one event and calls emit for every sample it completes.
func (d *Decoder) Feed(ev evdev.Event, emit func(gesture.Sample)) {
	if d.dropping {
		// After SYN_DROPPED everything up to the next report is stale.
		if ev.Type == evdev.EV_SYN && ev.Code == evdev.SYN_REPORT {
			d.dropping = false
		}
		return
	}

	switch ev.Type {
	case evdev.EV_ABS:
		d.abs(ev)
	case evdev.EV_KEY:
		d.key(ev)
	case evdev.EV_SYN:
		switch ev.Code {
		case evdev.SYN_REPORT:
			d.report(emit)
		case evdev.SYN_DROPPED:
			d.drop(emit)
		}
	}
}

func (d *Decoder) abs(ev evdev.Event) {
	switch ev.Code {
	case evdev.ABS_MT_SLOT:
		d.cur = ev.Value
	case evdev.ABS_MT_TRACKING_ID:
		s := d.slot()
		if ev.Value < 0 {
			if s.active {
				s.lifted = true
			}
			// Down and up inside one report never reaches the interpreter.
			s.down = false
			return
		}
		if s.active && s.tracking != ev.Value {
			// A new contact replaced one whose lift we never saw.
			s.lifted = true
		}
		s.tracking = ev.Value
		s.down = true
	case evdev.ABS_MT_POSITION_X:
		s := d.slot()
		s.x, s.moved = ev.Value, true
	case evdev.ABS_MT_POSITION_Y:
		s := d.slot()
		s.y, s.moved = ev.Value, true
	case evdev.ABS_MT_TOOL_TYPE:
		d.slot().pen = ev.Value == evdev.MT_TOOL_PEN
	case evdev.ABS_X:
		d.pen.x, d.penDirty = ev.Value, true
	case evdev.ABS_Y:
		d.pen.y, d.penDirty = ev.Value, true
	}
}

func (d *Decoder) key(ev evdev.Event) {
	on := ev.Value != 0
	switch ev.Code {
	case evdev.BTN_TOOL_PEN:
		d.pen.toolPen = on
	case evdev.BTN_TOOL_RUBBER:
		d.pen.rubber = on
	case evdev.BTN_TOUCH:
		d.pen.touching = on
	case evdev.BTN_STYLUS:
		d.pen.button = on
	default:
		return
	}
	d.penDirty = true
}

func (d *Decoder) report(emit func(gesture.Sample)) {
	now := d.now()
	ids := make([]int32, 0, len(d.slots))
	for id := range d.slots {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })

	for _, id := range ids {
		s := d.slots[id]
		tool := gesture.ToolFinger
		if s.pen {
			tool = gesture.ToolStylus
		}
		x, y := d.scale(s.x, s.y)
		if s.lifted {
			emit(gesture.Sample{Pointer: s.pointer, Tool: tool, Phase: gesture.PhaseUp, X: x, Y: y, At: now})
			s.active, s.lifted = false, false
		}
		switch {
		case s.down:
			s.pointer = int(s.tracking)
			s.active = true
			emit(gesture.Sample{Pointer: s.pointer, Tool: tool, Phase: gesture.PhaseDown, X: x, Y: y, At: now})
		case s.moved && s.active:
			emit(gesture.Sample{Pointer: s.pointer, Tool: tool, Phase: gesture.PhaseMove, X: x, Y: y, At: now})
		}
		s.down, s.moved = false, false
		if !s.active {
			delete(d.slots, id)
		}
	}

	if d.penDirty {
		d.reportPen(emit, now)
		d.penDirty = false
	}
}

func (d *Decoder) reportPen(emit func(gesture.Sample), now time.Time) {
	p := &d.pen
	tool := gesture.ToolStylus
	if p.rubber || p.button {
		tool = gesture.ToolEraser
	}
	x, y := d.scale(p.x, p.y)
	sample := func(ph gesture.Phase) {
		emit(gesture.Sample{Pointer: PenPointer, Tool: tool, Phase: ph, X: x, Y: y, At: now})
	}

	switch {
	case p.touching && !p.wasTouch:
		sample(gesture.PhaseDown)
	case p.touching:
		sample(gesture.PhaseMove)
	case p.wasTouch:
		sample(gesture.PhaseUp)
		if !p.inRange() {
			sample(gesture.PhaseHoverExit)
		}
	case p.inRange():
		sample(gesture.PhaseHover)
	case p.wasIn:
		sample(gesture.PhaseHoverExit)
	}
	p.wasTouch = p.touching
	p.wasIn = p.inRange() || p.touching
}

// drop discards partial state after the kernel buffer overflowed and cancels
// whatever gesture was in flight.
func (d *Decoder) drop(emit func(gesture.Sample)) {
	emit(gesture.Sample{Phase: gesture.PhaseCancel, At: d.now()})
	clear(d.slots)
	d.pen = penState{}
	d.penDirty = false
	d.dropping = true
}
