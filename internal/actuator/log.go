package actuator

import (
	"log/slog"

	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/protocol"
)

// LogInjector only logs. It backs dry runs and hosts without uinput access.
type LogInjector struct {
	log *slog.Logger
}

func NewLogInjector(logger *slog.Logger) *LogInjector {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogInjector{log: logger.With("component", "inject")}
}

func (l *LogInjector) Move(to protocol.Point, drag Button) error {
	l.log.Debug("move", "x", to.X, "y", to.Y, "drag", drag)
	return nil
}

func (l *LogInjector) Button(b Button, down bool, at protocol.Point) error {
	l.log.Info("button", "button", b, "down", down, "x", at.X, "y", at.Y)
	return nil
}

func (l *LogInjector) Scroll(dx, dy int) error {
	l.log.Info("scroll", "dx", dx, "dy", dy)
	return nil
}

func (l *LogInjector) Close() error { return nil }
