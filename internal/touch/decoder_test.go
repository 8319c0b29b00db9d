package touch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/evdev"
	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/gesture"
)

var t0 = time.Unix(100, 0)

func newTestDecoder() *Decoder {
	axes := Axes{X: evdev.AbsInfo{Max: 1000}, Y: evdev.AbsInfo{Max: 2000}}
	d := NewDecoder(axes, 500, 1000)
	d.now = func() time.Time { return t0 }
	return d
}

type frame []evdev.Event

func abs(code uint16, v int32) evdev.Event { return evdev.Event{Type: evdev.EV_ABS, Code: code, Value: v} }
func key(code uint16, v int32) evdev.Event { return evdev.Event{Type: evdev.EV_KEY, Code: code, Value: v} }

var syn = evdev.Event{Type: evdev.EV_SYN, Code: evdev.SYN_REPORT}

func run(d *Decoder, frames ...frame) []gesture.Sample {
	var out []gesture.Sample
	for _, f := range frames {
		for _, ev := range f {
			d.Feed(ev, func(s gesture.Sample) { out = append(out, s) })
		}
	}
	return out
}

type short struct {
	Pointer int
	Tool    gesture.Tool
	Phase   gesture.Phase
	X, Y    float64
}

func shorten(in []gesture.Sample) []short {
	out := make([]short, len(in))
	for i, s := range in {
		out[i] = short{s.Pointer, s.Tool, s.Phase, s.X, s.Y}
	}
	return out
}

func TestSingleFingerLifecycle(t *testing.T) {
	d := newTestDecoder()
	got := run(d,
		frame{abs(evdev.ABS_MT_SLOT, 0), abs(evdev.ABS_MT_TRACKING_ID, 7), abs(evdev.ABS_MT_POSITION_X, 100), abs(evdev.ABS_MT_POSITION_Y, 200), syn},
		frame{abs(evdev.ABS_MT_POSITION_X, 200), syn},
		frame{abs(evdev.ABS_MT_TRACKING_ID, -1), syn},
	)
	assert.Equal(t, []short{
		{7, gesture.ToolFinger, gesture.PhaseDown, 50, 100},
		{7, gesture.ToolFinger, gesture.PhaseMove, 100, 100},
		{7, gesture.ToolFinger, gesture.PhaseUp, 100, 100},
	}, shorten(got))
	assert.Equal(t, t0, got[0].At)
}

func TestTwoSlots(t *testing.T) {
	d := newTestDecoder()
	got := run(d,
		frame{
			abs(evdev.ABS_MT_SLOT, 0), abs(evdev.ABS_MT_TRACKING_ID, 1), abs(evdev.ABS_MT_POSITION_X, 0), abs(evdev.ABS_MT_POSITION_Y, 0),
			abs(evdev.ABS_MT_SLOT, 1), abs(evdev.ABS_MT_TRACKING_ID, 2), abs(evdev.ABS_MT_POSITION_X, 1000), abs(evdev.ABS_MT_POSITION_Y, 2000),
			syn,
		},
		frame{abs(evdev.ABS_MT_SLOT, 1), abs(evdev.ABS_MT_POSITION_Y, 1000), syn},
		frame{abs(evdev.ABS_MT_SLOT, 0), abs(evdev.ABS_MT_TRACKING_ID, -1), syn},
	)
	assert.Equal(t, []short{
		{1, gesture.ToolFinger, gesture.PhaseDown, 0, 0},
		{2, gesture.ToolFinger, gesture.PhaseDown, 500, 1000},
		{2, gesture.ToolFinger, gesture.PhaseMove, 500, 500},
		{1, gesture.ToolFinger, gesture.PhaseUp, 0, 0},
	}, shorten(got))
}

func TestTapInsideOneReportIsDropped(t *testing.T) {
	d := newTestDecoder()
	got := run(d, frame{abs(evdev.ABS_MT_TRACKING_ID, 3), abs(evdev.ABS_MT_POSITION_X, 10), abs(evdev.ABS_MT_TRACKING_ID, -1), syn})
	assert.Empty(t, got)
}

func TestReplacedContactLiftsOldPointer(t *testing.T) {
	d := newTestDecoder()
	got := run(d,
		frame{abs(evdev.ABS_MT_TRACKING_ID, 4), syn},
		frame{abs(evdev.ABS_MT_TRACKING_ID, 5), syn},
	)
	require.Len(t, got, 3)
	assert.Equal(t, gesture.PhaseUp, got[1].Phase)
	assert.Equal(t, 4, got[1].Pointer)
	assert.Equal(t, gesture.PhaseDown, got[2].Phase)
	assert.Equal(t, 5, got[2].Pointer)
}

func TestMTPenToolType(t *testing.T) {
	d := newTestDecoder()
	got := run(d, frame{abs(evdev.ABS_MT_TRACKING_ID, 9), abs(evdev.ABS_MT_TOOL_TYPE, evdev.MT_TOOL_PEN), syn})
	require.Len(t, got, 1)
	assert.Equal(t, gesture.ToolStylus, got[0].Tool)
}

func TestPenHoverTouchLeave(t *testing.T) {
	d := newTestDecoder()
	got := run(d,
		frame{key(evdev.BTN_TOOL_PEN, 1), abs(evdev.ABS_X, 500), abs(evdev.ABS_Y, 500), syn},
		frame{abs(evdev.ABS_X, 600), syn},
		frame{key(evdev.BTN_TOUCH, 1), syn},
		frame{abs(evdev.ABS_Y, 1000), syn},
		frame{key(evdev.BTN_TOUCH, 0), syn},
		frame{key(evdev.BTN_TOOL_PEN, 0), syn},
	)
	assert.Equal(t, []short{
		{PenPointer, gesture.ToolStylus, gesture.PhaseHover, 250, 250},
		{PenPointer, gesture.ToolStylus, gesture.PhaseHover, 300, 250},
		{PenPointer, gesture.ToolStylus, gesture.PhaseDown, 300, 250},
		{PenPointer, gesture.ToolStylus, gesture.PhaseMove, 300, 500},
		{PenPointer, gesture.ToolStylus, gesture.PhaseUp, 300, 500},
		{PenPointer, gesture.ToolStylus, gesture.PhaseHoverExit, 300, 500},
	}, shorten(got))
}

func TestPenEraser(t *testing.T) {
	for _, code := range []uint16{evdev.BTN_TOOL_RUBBER, evdev.BTN_STYLUS} {
		d := newTestDecoder()
		got := run(d, frame{key(evdev.BTN_TOOL_PEN, 1), key(code, 1), key(evdev.BTN_TOUCH, 1), syn})
		require.Len(t, got, 1)
		assert.Equal(t, gesture.ToolEraser, got[0].Tool)
		assert.Equal(t, gesture.PhaseDown, got[0].Phase)
	}
}

func TestSynDroppedCancelsAndSkipsToNextReport(t *testing.T) {
	d := newTestDecoder()
	got := run(d,
		frame{abs(evdev.ABS_MT_TRACKING_ID, 1), syn},
		frame{{Type: evdev.EV_SYN, Code: evdev.SYN_DROPPED}, abs(evdev.ABS_MT_TRACKING_ID, 2), syn},
		frame{abs(evdev.ABS_MT_TRACKING_ID, 3), syn},
	)
	require.Len(t, got, 3)
	assert.Equal(t, gesture.PhaseDown, got[0].Phase)
	assert.Equal(t, gesture.PhaseCancel, got[1].Phase)
	assert.Equal(t, gesture.PhaseDown, got[2].Phase)
	assert.Equal(t, 3, got[2].Pointer)
}

func TestParseDevicesAndPick(t *testing.T) {
	table := `I: Bus=0000 Vendor=0000 Product=0000 Version=0000
N: Name="sec_touchscreen"
H: Handlers=event2

I: Bus=0000 Vendor=0000 Product=0000 Version=0000
N: Name="sec_e-pen"
H: Handlers=kbd event5

I: Bus=0019 Vendor=0001 Product=0001 Version=0100
N: Name="gpio-keys"
H: Handlers=kbd event0
`
	devs := parseDevices(table)
	require.Len(t, devs, 3)
	assert.Equal(t, "sec_e-pen", devs[1].Name)
	assert.Equal(t, "/dev/input/event5", devs[1].Path())

	touch, pen := PickDevices(devs)
	assert.Equal(t, "/dev/input/event2", touch)
	assert.Equal(t, "/dev/input/event5", pen)
}
