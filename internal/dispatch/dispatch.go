// Package dispatch is the hand-off between network goroutines and the
// interaction goroutine. Pointer events go to the actuator; canvas events,
// images and touch samples are run on the interaction goroutine through a
// Shell.
package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/gesture"
	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/protocol"
	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/state"
)

// Shell runs fn on the interaction goroutine.
type Shell interface {
	Do(fn func())
}

// Inline runs fn on the caller. With it the Loop goroutine is itself the
// interaction goroutine.
type Inline struct{}

func (Inline) Do(fn func()) { fn() }

// Canvas is the replica surface the loop mutates.
type Canvas interface {
	Apply(msg protocol.Message) bool
	PlaceImage(layer state.ImageLayer) bool
}

// Inputs are the channels a Loop drains. Nil channels are never selected.
type Inputs struct {
	Messages <-chan protocol.Message
	Layers   <-chan state.ImageLayer
	Samples  <-chan gesture.Sample
	// Tick is how often the interpreter flushes. Zero disables ticking.
	Tick time.Duration
}

// Loop routes inbound traffic. Canvas and Interp are touched only inside
// Shell.Do.
type Loop struct {
	Shell  Shell
	Canvas Canvas
	Interp *gesture.Interpreter
	// Pointer receives pointer events for the actuator. Nil drops them.
	Pointer chan<- protocol.PointerEvent
	// OnChange runs on the interaction goroutine after the canvas changed.
	OnChange func()
	Log      *slog.Logger
}

func (l *Loop) shell() Shell {
	if l.Shell == nil {
		return Inline{}
	}
	return l.Shell
}

func (l *Loop) logger() *slog.Logger {
	if l.Log == nil {
		return slog.Default()
	}
	return l.Log
}

// Run drains in until ctx is done.
func (l *Loop) Run(ctx context.Context, in Inputs) error {
	var tick <-chan time.Time
	if in.Tick > 0 && l.Interp != nil {
		t := time.NewTicker(in.Tick)
		defer t.Stop()
		tick = t.C
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-in.Messages:
			l.Route(msg)
		case layer := <-in.Layers:
			l.shell().Do(func() { l.place(layer) })
		case s := <-in.Samples:
			if l.Interp != nil {
				l.shell().Do(func() { l.Interp.Feed(s) })
			}
		case now := <-tick:
			l.shell().Do(func() { l.Interp.Tick(now) })
		}
	}
}

// Route hands one decoded message to where it applies.
func (l *Loop) Route(msg protocol.Message) {
	switch m := msg.(type) {
	case protocol.PointerEvent:
		if l.Pointer == nil {
			return
		}
		select {
		case l.Pointer <- m:
		default:
			l.logger().Debug("actuator busy, pointer event dropped", "type", m.Type())
		}
	case protocol.DrawEvent, protocol.ImageEvent:
		if l.Canvas == nil {
			return
		}
		l.shell().Do(func() {
			if l.Canvas.Apply(m) && l.OnChange != nil {
				l.OnChange()
			}
		})
	default:
		l.logger().Debug("message ignored", "type", msg.Type())
	}
}

func (l *Loop) place(layer state.ImageLayer) {
	if l.Canvas == nil {
		return
	}
	if l.Canvas.PlaceImage(layer) && l.OnChange != nil {
		l.OnChange()
	}
}

// Tee applies locally produced canvas events to the local replica before
// forwarding them, so both replicas run the same transitions. View updates
// describe this endpoint and are only forwarded. It is called on the
// interaction goroutine.
type Tee struct {
	Canvas   Canvas
	Next     gesture.Sink
	OnChange func()
}

func (t Tee) Emit(msg protocol.Message) {
	switch msg.(type) {
	case protocol.DrawView:
	case protocol.DrawEvent, protocol.ImageEvent:
		if t.Canvas != nil && t.Canvas.Apply(msg) && t.OnChange != nil {
			t.OnChange()
		}
	}
	if t.Next != nil {
		t.Next.Emit(msg)
	}
}
