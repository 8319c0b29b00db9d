package gesture

import (
	"fmt"
	"time"

	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/protocol"
)

// Tool is the kind of contact that produced a sample.
type Tool int

const (
	ToolFinger Tool = iota
	ToolStylus
	ToolEraser
)

func (t Tool) String() string {
	switch t {
	case ToolFinger:
		return "finger"
	case ToolStylus:
		return "stylus"
	case ToolEraser:
		return "eraser"
	}
	return fmt.Sprintf("tool(%d)", int(t))
}

// Phase is where a sample sits in its pointer's life.
type Phase int

const (
	PhaseDown Phase = iota
	PhaseMove
	PhaseUp
	PhaseCancel
	// PhaseHover is a stylus in range but not touching.
	PhaseHover
	PhaseHoverExit
)

func (p Phase) String() string {
	switch p {
	case PhaseDown:
		return "down"
	case PhaseMove:
		return "move"
	case PhaseUp:
		return "up"
	case PhaseCancel:
		return "cancel"
	case PhaseHover:
		return "hover"
	case PhaseHoverExit:
		return "hover_exit"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Sample is one raw touch report in screen pixels.
type Sample struct {
	Pointer int
	Tool    Tool
	Phase   Phase
	X, Y    float64
	At      time.Time
}

func (s Sample) point() protocol.Point { return protocol.Point{X: s.X, Y: s.Y} }

// Mode selects what touches are turned into.
type Mode int

const (
	// ModePointer drives the host cursor.
	ModePointer Mode = iota
	// ModeDraw draws on the shared canvas.
	ModeDraw
)

func (m Mode) String() string {
	if m == ModeDraw {
		return "draw"
	}
	return "pointer"
}

// ParseMode accepts "pointer" or "draw".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "pointer", "":
		return ModePointer, nil
	case "draw":
		return ModeDraw, nil
	}
	return ModePointer, fmt.Errorf("gesture: unknown mode %q", s)
}

// State is the interpreter's current classification.
type State int

const (
	StateIdle State = iota
	StatePending
	StateDragging
	StateTwoFingerScroll
	StateStylusHover
	StateStylusActive
	StateDrawing
	StateErasing
	StatePanning
	StatePinching
)

var stateNames = [...]string{
	StateIdle:            "idle",
	StatePending:         "pending",
	StateDragging:        "dragging",
	StateTwoFingerScroll: "two_finger_scroll",
	StateStylusHover:     "stylus_hover",
	StateStylusActive:    "stylus_active",
	StateDrawing:         "drawing",
	StateErasing:         "erasing",
	StatePanning:         "panning",
	StatePinching:        "pinching",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Sink receives interpreted events.
type Sink interface {
	Emit(msg protocol.Message)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(protocol.Message)

func (f SinkFunc) Emit(msg protocol.Message) { f(msg) }
