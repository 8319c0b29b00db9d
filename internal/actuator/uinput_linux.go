package actuator

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/evdev"
	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/protocol"
	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/state"
)

const uinputPath = "/dev/uinput"

// uinput ioctls (linux/uinput.h)
var (
	uiDevCreate  = evdev.IO('U', 1)
	uiDevDestroy = evdev.IO('U', 2)
	uiDevSetup   = evdev.IOW('U', 3, unsafe.Sizeof(uinputSetup{}))
	uiAbsSetup   = evdev.IOW('U', 4, unsafe.Sizeof(uinputAbsSetup{}))
	uiSetEvBit   = evdev.IOW('U', 100, unsafe.Sizeof(int32(0)))
	uiSetKeyBit  = evdev.IOW('U', 101, unsafe.Sizeof(int32(0)))
	uiSetRelBit  = evdev.IOW('U', 102, unsafe.Sizeof(int32(0)))
	uiSetAbsBit  = evdev.IOW('U', 103, unsafe.Sizeof(int32(0)))
)

type inputID struct {
	Bustype, Vendor, Product, Version uint16
}

type uinputSetup struct {
	ID           inputID
	Name         [80]byte
	FFEffectsMax uint32
}

type uinputAbsSetup struct {
	Code uint16
	_    uint16
	Info evdev.AbsInfo
}

// Uinput injects through a virtual input device. In warp mode the device
// reports absolute positions over the display bounds; otherwise it is a
// relative mouse fed with deltas.
type Uinput struct {
	mu     sync.Mutex
	f      *os.File
	warp   bool
	bounds state.Rect
	last   protocol.Point
	moved  bool
	buf    []byte
	log    *slog.Logger
}

// NewUinput creates the virtual device.
func NewUinput(name string, warp bool, bounds state.Rect, logger *slog.Logger) (*Uinput, error) {
	if logger == nil {
		logger = slog.Default()
	}
	f, err := os.OpenFile(uinputPath, os.O_WRONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", uinputPath, err)
	}
	u := &Uinput{f: f, warp: warp, bounds: bounds, log: logger.With("component", "uinput")}
	if err := u.setup(name); err != nil {
		f.Close()
		return nil, err
	}
	u.log.Info("virtual device created", "name", name, "warp", warp)
	return u, nil
}

func (u *Uinput) setup(name string) error {
	fd := int(u.f.Fd())
	set := func(req uintptr, v int) error {
		if err := evdev.IoctlInt(fd, req, v); err != nil {
			return fmt.Errorf("uinput setup: %w", err)
		}
		return nil
	}

	for _, ev := range []int{evdev.EV_KEY, evdev.EV_REL, evdev.EV_SYN} {
		if err := set(uiSetEvBit, ev); err != nil {
			return err
		}
	}
	for _, key := range []int{evdev.BTN_LEFT, evdev.BTN_RIGHT, evdev.BTN_MIDDLE} {
		if err := set(uiSetKeyBit, key); err != nil {
			return err
		}
	}
	rels := []int{evdev.REL_WHEEL, evdev.REL_HWHEEL}
	if !u.warp {
		rels = append(rels, evdev.REL_X, evdev.REL_Y)
	}
	for _, rel := range rels {
		if err := set(uiSetRelBit, rel); err != nil {
			return err
		}
	}

	if u.warp {
		if err := set(uiSetEvBit, evdev.EV_ABS); err != nil {
			return err
		}
		axes := []struct {
			code     int
			min, max float64
		}{
			{evdev.ABS_X, u.bounds.X, u.bounds.X + u.bounds.W - 1},
			{evdev.ABS_Y, u.bounds.Y, u.bounds.Y + u.bounds.H - 1},
		}
		for _, ax := range axes {
			if err := set(uiSetAbsBit, ax.code); err != nil {
				return err
			}
			abs := uinputAbsSetup{Code: uint16(ax.code), Info: evdev.AbsInfo{Min: int32(ax.min), Max: int32(ax.max)}}
			if err := evdev.Ioctl(fd, uiAbsSetup, unsafe.Pointer(&abs)); err != nil {
				return fmt.Errorf("uinput abs setup: %w", err)
			}
		}
	}

	var s uinputSetup
	s.ID = inputID{Bustype: 0x03, Vendor: 0x1209, Product: 0x4e4d, Version: 1}
	copy(s.Name[:len(s.Name)-1], name)
	if err := evdev.Ioctl(fd, uiDevSetup, unsafe.Pointer(&s)); err != nil {
		return fmt.Errorf("uinput dev setup: %w", err)
	}
	if err := evdev.IoctlInt(fd, uiDevCreate, 0); err != nil {
		return fmt.Errorf("uinput create: %w", err)
	}
	return nil
}

func (u *Uinput) write(events ...evdev.Event) error {
	u.buf = u.buf[:0]
	for _, ev := range events {
		u.buf = evdev.AppendEvent(u.buf, evdev.EventSize, ev)
	}
	u.buf = evdev.AppendEvent(u.buf, evdev.EventSize, evdev.Event{Type: evdev.EV_SYN, Code: evdev.SYN_REPORT})
	_, err := u.f.Write(u.buf)
	return err
}

// Move implements Injector. The device reports the held button itself, so
// drags need no extra events.
func (u *Uinput) Move(to protocol.Point, _ Button) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.warp {
		u.last, u.moved = to, true
		return u.write(
			evdev.Event{Type: evdev.EV_ABS, Code: evdev.ABS_X, Value: int32(math.Round(to.X))},
			evdev.Event{Type: evdev.EV_ABS, Code: evdev.ABS_Y, Value: int32(math.Round(to.Y))},
		)
	}
	if !u.moved {
		u.last, u.moved = to, true
		return nil
	}
	dx := int32(math.Round(to.X)) - int32(math.Round(u.last.X))
	dy := int32(math.Round(to.Y)) - int32(math.Round(u.last.Y))
	if dx == 0 && dy == 0 {
		return nil
	}
	u.last = to
	return u.write(
		evdev.Event{Type: evdev.EV_REL, Code: evdev.REL_X, Value: dx},
		evdev.Event{Type: evdev.EV_REL, Code: evdev.REL_Y, Value: dy},
	)
}

// Button implements Injector.
func (u *Uinput) Button(b Button, down bool, _ protocol.Point) error {
	code := uint16(evdev.BTN_LEFT)
	if b == ButtonRight {
		code = evdev.BTN_RIGHT
	}
	var v int32
	if down {
		v = 1
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.write(evdev.Event{Type: evdev.EV_KEY, Code: code, Value: v})
}

// Scroll implements Injector. Positive dy (fingers moving down) scrolls up.
func (u *Uinput) Scroll(dx, dy int) error {
	var evs []evdev.Event
	if dy != 0 {
		evs = append(evs, evdev.Event{Type: evdev.EV_REL, Code: evdev.REL_WHEEL, Value: int32(dy)})
	}
	if dx != 0 {
		evs = append(evs, evdev.Event{Type: evdev.EV_REL, Code: evdev.REL_HWHEEL, Value: int32(-dx)})
	}
	if len(evs) == 0 {
		return nil
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.write(evs...)
}

// Close destroys the device.
func (u *Uinput) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.f == nil {
		return nil
	}
	_ = evdev.IoctlInt(int(u.f.Fd()), uiDevDestroy, 0)
	err := u.f.Close()
	u.f = nil
	return err
}
