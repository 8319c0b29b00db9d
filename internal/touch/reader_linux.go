//go:build linux

package touch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/evdev"
	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/gesture"
)

// Device is an open evdev node.
type Device struct {
	f    *os.File
	dec  *Decoder
	path string
	log  *slog.Logger
}

// Open opens path and maps its axes onto a width x height surface. With grab
// set the device is taken exclusively so the local UI does not also react.
func Open(path string, width, height float64, grab bool, logger *slog.Logger) (*Device, error) {
	if logger == nil {
		logger = slog.Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	fd := int(f.Fd())

	axes, err := readAxes(fd, evdev.ABS_MT_POSITION_X, evdev.ABS_MT_POSITION_Y)
	if err != nil {
		axes, err = readAxes(fd, evdev.ABS_X, evdev.ABS_Y)
	}
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s has no usable position axes: %w", path, err)
	}
	log := logger.With("component", "touch", "device", path)
	if grab {
		if err := evdev.Grab(fd); err != nil {
			log.Warn("grab failed, continuing shared", "err", err)
		}
	}
	log.Info("device opened", "x_max", axes.X.Max, "y_max", axes.Y.Max)
	return &Device{f: f, dec: NewDecoder(axes, width, height), path: path, log: log}, nil
}

func readAxes(fd, xCode, yCode int) (Axes, error) {
	x, err := evdev.GetAbsInfo(fd, xCode)
	if err != nil {
		return Axes{}, err
	}
	y, err := evdev.GetAbsInfo(fd, yCode)
	if err != nil {
		return Axes{}, err
	}
	if x.Max <= x.Min || y.Max <= y.Min {
		return Axes{}, errors.New("empty axis range")
	}
	return Axes{X: x, Y: y}, nil
}

// Run reads until ctx is done or the device goes away, delivering samples to
// out.
func (d *Device) Run(ctx context.Context, out chan<- gesture.Sample) error {
	stop := context.AfterFunc(ctx, func() { d.f.Close() })
	defer stop()

	parser := evdev.NewParser(evdev.EventSize)
	emit := func(s gesture.Sample) {
		select {
		case out <- s:
		case <-ctx.Done():
		}
	}
	buf := make([]byte, 64*evdev.EventSize)
	for {
		n, err := d.f.Read(buf)
		if n > 0 {
			parser.Feed(buf[:n], func(ev evdev.Event) { d.dec.Feed(ev, emit) })
		}
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, os.ErrClosed) {
				return nil
			}
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("%s closed", d.path)
			}
			return fmt.Errorf("read %s: %w", d.path, err)
		}
	}
}

// Close releases the device.
func (d *Device) Close() error { return d.f.Close() }
