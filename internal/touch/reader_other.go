//go:build !linux

package touch

import (
	"context"
	"errors"
	"log/slog"

	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/gesture"
)

// ErrUnsupported is returned when evdev is not available.
var ErrUnsupported = errors.New("touch: evdev input requires linux")

type Device struct{}

func Open(path string, width, height float64, grab bool, logger *slog.Logger) (*Device, error) {
	return nil, ErrUnsupported
}

func (d *Device) Run(ctx context.Context, out chan<- gesture.Sample) error { return ErrUnsupported }

func (d *Device) Close() error { return nil }
