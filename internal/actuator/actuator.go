// Package actuator applies pointer events to the host's cursor.
package actuator

import (
	"context"
	"errors"
	"log/slog"
	"math"

	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/protocol"
	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/state"
)

// ErrUnsupported is returned by injectors that cannot run on this platform.
var ErrUnsupported = errors.New("actuator: injector not supported on this platform")

// Button is the mouse button held during a move.
type Button int

const (
	ButtonNone Button = iota
	ButtonLeft
	ButtonRight
)

func (b Button) String() string {
	switch b {
	case ButtonLeft:
		return "left"
	case ButtonRight:
		return "right"
	}
	return "none"
}

// Injector performs the host-side effect of a pointer action. Positions
// are absolute host pixels already clamped to the displays.
type Injector interface {
	Move(to protocol.Point, drag Button) error
	Button(b Button, down bool, at protocol.Point) error
	Scroll(dx, dy int) error
	Close() error
}

// Config controls how pad motion maps to the host cursor.
type Config struct {
	Sensitivity float64      `yaml:"sensitivity"`
	InvertY     bool         `yaml:"invert_y"`
	Warp        bool         `yaml:"cursor_warp"`
	Displays    []state.Rect `yaml:"displays"`
}

// DefaultDisplay is used when no display layout is configured.
var DefaultDisplay = state.Rect{W: 1920, H: 1080}

// Actuator holds the virtual cursor and button state. It is owned by the
// goroutine running Run.
type Actuator struct {
	cfg      Config
	inj      Injector
	log      *slog.Logger
	displays []state.Rect

	pos         protocol.Point
	left, right bool
}

// New places the cursor at the centre of the first display.
func New(cfg Config, inj Injector, logger *slog.Logger) *Actuator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Sensitivity <= 0 {
		cfg.Sensitivity = 1
	}
	displays := cfg.displays()
	return &Actuator{
		cfg:      cfg,
		inj:      inj,
		log:      logger.With("component", "actuator"),
		displays: displays,
		pos:      displays[0].Center(),
	}
}

// Position returns the virtual cursor.
func (a *Actuator) Position() protocol.Point { return a.pos }

// Held returns the button a move would drag with.
func (a *Actuator) Held() Button {
	switch {
	case a.left:
		return ButtonLeft
	case a.right:
		return ButtonRight
	}
	return ButtonNone
}

// Handle applies one event.
func (a *Actuator) Handle(ev protocol.PointerEvent) error {
	switch e := ev.(type) {
	case protocol.Move:
		dx, dy := e.DX*a.cfg.Sensitivity, e.DY*a.cfg.Sensitivity
		if a.cfg.InvertY {
			dy = -dy
		}
		a.pos = a.clamp(protocol.Point{X: a.pos.X + dx, Y: a.pos.Y + dy})
		return a.inj.Move(a.pos, a.Held())
	case protocol.Button:
		b, held := ButtonLeft, &a.left
		if e.Side == protocol.SideRight {
			b, held = ButtonRight, &a.right
		}
		if *held == e.Down {
			a.log.Debug("duplicate button event", "button", b, "down", e.Down)
			return nil
		}
		*held = e.Down
		return a.inj.Button(b, e.Down, a.pos)
	case protocol.Scroll:
		if e.DX == 0 && e.DY == 0 {
			return nil
		}
		return a.inj.Scroll(e.DX, e.DY)
	}
	return nil
}

// Release lifts any held button.
func (a *Actuator) Release() {
	for _, b := range []struct {
		btn  Button
		held *bool
	}{{ButtonLeft, &a.left}, {ButtonRight, &a.right}} {
		if !*b.held {
			continue
		}
		*b.held = false
		if err := a.inj.Button(b.btn, false, a.pos); err != nil {
			a.log.Warn("release failed", "button", b.btn, "err", err)
		}
	}
}

// Run applies events until ctx is done or the channel closes. Held buttons
// are released on the way out.
func (a *Actuator) Run(ctx context.Context, events <-chan protocol.PointerEvent) error {
	defer a.Release()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := a.Handle(ev); err != nil {
				a.log.Debug("inject failed", "type", ev.Type(), "err", err)
			}
		}
	}
}

// clamp keeps p on a display: unchanged if inside one, else the nearest
// point on the closest display.
func (a *Actuator) clamp(p protocol.Point) protocol.Point {
	best, bestD := p, math.Inf(1)
	for _, d := range a.displays {
		q := protocol.Point{
			X: min(max(p.X, d.X), d.X+d.W-1),
			Y: min(max(p.Y, d.Y), d.Y+d.H-1),
		}
		dist := q.Dist2(p)
		if dist == 0 {
			return q
		}
		if dist < bestD {
			best, bestD = q, dist
		}
	}
	return best
}

// Bounds returns the union of the configured displays.
func (a *Actuator) Bounds() state.Rect { return union(a.displays) }

// Bounds returns the union of the displays an Actuator built from c uses.
func (c Config) Bounds() state.Rect { return union(c.displays()) }

func (c Config) displays() []state.Rect {
	out := make([]state.Rect, 0, len(c.Displays))
	for _, d := range c.Displays {
		if !d.Empty() {
			out = append(out, d)
		}
	}
	if len(out) == 0 {
		out = append(out, DefaultDisplay)
	}
	return out
}

func union(displays []state.Rect) state.Rect {
	u := displays[0]
	for _, d := range displays[1:] {
		u = u.Union(d)
	}
	return u
}
