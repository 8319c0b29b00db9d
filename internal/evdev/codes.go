// Package evdev holds the Linux input constants and the input_event wire
// format shared by the touch reader and the uinput injector.
package evdev

// Event types
const (
	EV_SYN = 0x00
	EV_KEY = 0x01
	EV_REL = 0x02
	EV_ABS = 0x03
)

// SYN codes
const (
	SYN_REPORT  = 0x00
	SYN_DROPPED = 0x03
)

// Keys
const (
	BTN_LEFT        = 0x110
	BTN_RIGHT       = 0x111
	BTN_MIDDLE      = 0x112
	BTN_TOOL_PEN    = 0x140
	BTN_TOOL_RUBBER = 0x141
	BTN_TOOL_FINGER = 0x145
	BTN_TOUCH       = 0x14A
	BTN_STYLUS      = 0x14B
)

// REL axes
const (
	REL_X      = 0x00
	REL_Y      = 0x01
	REL_HWHEEL = 0x06
	REL_WHEEL  = 0x08
)

// ABS axes
const (
	ABS_X              = 0x00
	ABS_Y              = 0x01
	ABS_PRESSURE       = 0x18
	ABS_DISTANCE       = 0x19
	ABS_MT_SLOT        = 0x2F
	ABS_MT_POSITION_X  = 0x35
	ABS_MT_POSITION_Y  = 0x36
	ABS_MT_TOOL_TYPE   = 0x37
	ABS_MT_TRACKING_ID = 0x39
)

// ABS_MT_TOOL_TYPE values
const (
	MT_TOOL_FINGER = 0
	MT_TOOL_PEN    = 1
)

// AbsInfo mirrors struct input_absinfo.
type AbsInfo struct {
	Value      int32
	Min        int32
	Max        int32
	Fuzz       int32
	Flat       int32
	Resolution int32
}

// Norm maps v into [0,1] over the axis range.
func (a AbsInfo) Norm(v int32) float64 {
	if a.Max <= a.Min {
		return 0
	}
	x := float64(v-a.Min) / float64(a.Max-a.Min)
	return min(1, max(0, x))
}
