package main

import (
	"context"
	"log/slog"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"

	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/dispatch"
	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/gesture"
	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/imagechan"
	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/protocol"
	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/state"
	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/transport"
	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/ui"
)

// refreshInterval is how often the interpreter is ticked.
const refreshInterval = time.Second / 60

type canvasOptions struct {
	Title    string
	Headless bool
	Gesture  gesture.Config
	Mode     gesture.Mode
	// PenControls shows mode, ink and width on the toolbar.
	PenControls bool
	// Out carries locally made events to the peer.
	Out transport.Sender
	// Pointer receives pointer events from the peer. Nil drops them.
	Pointer chan<- protocol.PointerEvent
	// Peer returns where the peer receives images, once known.
	Peer   func() (protocol.Session, bool)
	Images *imagechan.Sender
}

// canvasSide is one endpoint's replica with its interpreter, dispatch loop
// and, unless headless, the window showing it.
type canvasSide struct {
	replica *state.Replica
	interp  *gesture.Interpreter
	loop    *dispatch.Loop
	board   *ui.BoardWidget
	app     fyne.App
	win     fyne.Window
	log     *slog.Logger
	opts    canvasOptions
}

func newCanvasSide(opts canvasOptions, logger *slog.Logger) *canvasSide {
	c := &canvasSide{
		replica: state.NewReplica(logger),
		log:     logger,
		opts:    opts,
	}
	onChange := func() {}
	if !opts.Headless {
		c.app = app.NewWithID(appID)
		c.board = ui.NewBoardWidget(c.replica, logger)
		onChange = c.board.Refresh
	}

	tee := dispatch.Tee{Canvas: c.replica, Next: transport.Sink{Sender: opts.Out}, OnChange: onChange}
	c.interp = gesture.New(opts.Gesture, tee, c.replica.View(), logger)
	c.interp.SetMode(opts.Mode)

	var shell dispatch.Shell = dispatch.Inline{}
	if c.board != nil {
		shell = ui.Shell{}
		c.board.Emit = tee
		c.board.Input = c.interp.Feed
		c.board.OnResize = c.interp.SetViewport
		c.board.OnLoad = c.mirror
		uiOpts := ui.Options{Title: opts.Title}
		if opts.PenControls {
			uiOpts.Pen = c.interp
		}
		c.win = ui.NewWindow(c.app, c.board, uiOpts)
	}

	c.loop = &dispatch.Loop{
		Shell:    shell,
		Canvas:   c.replica,
		Interp:   c.interp,
		Pointer:  opts.Pointer,
		OnChange: onChange,
		Log:      logger,
	}
	return c
}

// setStatus shows text in the window, or logs it when headless.
func (c *canvasSide) setStatus(text string) {
	if c.board != nil {
		c.board.SetStatus(text)
		return
	}
	c.log.Info(text)
}

// run starts the dispatch loop and blocks until ctx is done or the window
// is closed, then calls stop.
func (c *canvasSide) run(ctx context.Context, stop context.CancelFunc, in dispatch.Inputs, w *workers) {
	in.Tick = refreshInterval
	w.Go("dispatch", func() error { return c.loop.Run(ctx, in) })
	if c.win == nil {
		<-ctx.Done()
		return
	}
	go func() {
		<-ctx.Done()
		fyne.Do(c.app.Quit)
	}()
	c.win.ShowAndRun()
	stop()
}

// mirror sends a reloaded snapshot to the peer: strokes are cleared and
// replayed over the message link, images go over the image channel.
func (c *canvasSide) mirror(snap state.Snapshot) {
	if c.opts.Out == nil {
		return
	}
	c.opts.Out.Send(protocol.DrawClear{})
	for _, m := range snap.Replay() {
		c.opts.Out.Send(m)
	}
	if len(snap.Images) == 0 || c.opts.Images == nil || c.opts.Peer == nil {
		return
	}
	peer, ok := c.opts.Peer()
	if !ok {
		c.log.Warn("peer unknown, images not mirrored", "images", len(snap.Images))
		return
	}
	layers, err := snap.Layers()
	if err != nil {
		c.log.Warn("images not mirrored", "err", err)
		return
	}
	go func() {
		for i, l := range layers {
			if err := c.opts.Images.SendEncoded(context.Background(), peer, l, snap.Images[i].PNG); err != nil {
				c.log.Warn("mirror image failed", "id", l.ID, "err", err)
			}
		}
	}()
}
