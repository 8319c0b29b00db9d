//go:build !linux

package actuator

import (
	"log/slog"

	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/protocol"
	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/state"
)

// Uinput is only available on Linux.
type Uinput struct{}

func NewUinput(string, bool, state.Rect, *slog.Logger) (*Uinput, error) {
	return nil, ErrUnsupported
}

func (*Uinput) Move(protocol.Point, Button) error         { return ErrUnsupported }
func (*Uinput) Button(Button, bool, protocol.Point) error { return ErrUnsupported }
func (*Uinput) Scroll(int, int) error                     { return ErrUnsupported }
func (*Uinput) Close() error                              { return nil }
