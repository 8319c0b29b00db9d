package ui

import (
	"fmt"
	"image/color"
	"log/slog"
	"math"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/export"
	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/gesture"
	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/protocol"
	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/state"
)

// mousePointer is the sample pointer id used for the mouse.
const mousePointer = 1

// fitPadding is the screen margin kept around content by Fit.
const fitPadding = 24

// resizeHandle is the screen distance from an image's bottom-right corner
// within which shift-drag resizes instead of moving.
const resizeHandle = 16

var nowFunc = time.Now

// BoardWidget shows a replica. The primary button acts as a pen, the
// secondary button pans, the wheel zooms and shift-drag moves an image, or
// resizes it when grabbed by the bottom-right corner.
//
// All methods run on the fyne main goroutine, which owns the replica.
type BoardWidget struct {
	widget.BaseWidget

	replica *state.Replica
	status  *widget.Label
	log     *slog.Logger

	// Input receives pen samples made from the mouse.
	Input func(gesture.Sample)
	// Emit carries canvas events the board makes itself: undo, clear,
	// image moves and resizes, and view updates.
	Emit gesture.Sink
	// OnResize reports the drawable size in pixels.
	OnResize func(w, h float64)
	// OnLoad runs after a snapshot replaced the content. Stroke ids in snap
	// are fresh.
	OnLoad func(snap state.Snapshot)

	pressed bool
	panning bool

	grabbed    string
	grabOffset state.Point
	resizing   bool
}

var _ fyne.Widget = (*BoardWidget)(nil)
var _ fyne.Draggable = (*BoardWidget)(nil)
var _ fyne.Scrollable = (*BoardWidget)(nil)
var _ desktop.Mouseable = (*BoardWidget)(nil)

func NewBoardWidget(replica *state.Replica, logger *slog.Logger) *BoardWidget {
	if logger == nil {
		logger = slog.Default()
	}
	b := &BoardWidget{
		replica: replica,
		status:  widget.NewLabel("Ready"),
		log:     logger.With("component", "board"),
	}
	b.ExtendBaseWidget(b)
	return b
}

// StatusBar is the label SetStatus writes to.
func (b *BoardWidget) StatusBar() *widget.Label { return b.status }

// SetStatus may be called from any goroutine.
func (b *BoardWidget) SetStatus(text string) {
	fyne.Do(func() { b.status.SetText(text) })
}

func (b *BoardWidget) emit(msg protocol.Message) {
	if b.Emit != nil {
		b.Emit.Emit(msg)
	}
}

func (b *BoardWidget) emitView() {
	v := b.replica.View()
	size := b.Size()
	b.emit(protocol.DrawView{
		Offset: v.Offset,
		Scale:  v.Scale,
		ViewW:  float64(size.Width),
		ViewH:  float64(size.Height),
	})
}

// Undo removes the most recent stroke on both replicas.
func (b *BoardWidget) Undo() { b.emit(protocol.DrawUndo{}) }

// ClearStrokes removes every stroke on both replicas. Images stay.
func (b *BoardWidget) ClearStrokes() { b.emit(protocol.DrawClear{}) }

// Fit frames all content. An empty canvas resets the view.
func (b *BoardWidget) Fit() {
	size := b.Size()
	r, _ := b.replica.Bounds()
	b.replica.View().Fit(r, float64(size.Width), float64(size.Height), fitPadding)
	b.emitView()
	b.Refresh()
}

func (b *BoardWidget) Resize(size fyne.Size) {
	b.BaseWidget.Resize(size)
	if b.OnResize != nil {
		b.OnResize(float64(size.Width), float64(size.Height))
	}
}

// SaveToFile writes a snapshot of the replica and closes writer.
func (b *BoardWidget) SaveToFile(writer fyne.URIWriteCloser) {
	defer func() {
		if err := writer.Close(); err != nil {
			b.log.Warn("close snapshot writer", "err", err)
		}
	}()

	snap, err := b.replica.Snapshot()
	if err != nil {
		b.log.Error("snapshot", "err", err)
		b.SetStatus("Error saving file")
		return
	}
	if err := state.WriteSnapshot(writer, snap); err != nil {
		b.log.Error("write snapshot", "uri", writer.URI(), "err", err)
		b.SetStatus("Error writing file")
		return
	}
	b.log.Info("snapshot saved", "uri", writer.URI(), "strokes", len(snap.Strokes), "images", len(snap.Images))
	b.SetStatus(fmt.Sprintf("Saved %d strokes, %d images", len(snap.Strokes), len(snap.Images)))
}

// LoadFromFile replaces the replica with a saved snapshot and closes reader.
func (b *BoardWidget) LoadFromFile(reader fyne.URIReadCloser) {
	defer func() {
		if err := reader.Close(); err != nil {
			b.log.Warn("close snapshot reader", "err", err)
		}
	}()

	snap, err := state.ReadSnapshot(reader)
	if err != nil {
		b.log.Error("read snapshot", "uri", reader.URI(), "err", err)
		b.SetStatus("Error parsing file - invalid format")
		return
	}
	snap = snap.Reissue()
	if err := b.replica.Restore(snap); err != nil {
		b.log.Error("restore snapshot", "err", err)
		b.SetStatus("Error loading file")
		return
	}
	b.Refresh()
	b.SetStatus(fmt.Sprintf("Loaded %d strokes, %d images", len(snap.Strokes), len(snap.Images)))
	if b.OnLoad != nil {
		b.OnLoad(snap)
	}
}

// ExportPDF writes the replica as a PDF page and closes writer.
func (b *BoardWidget) ExportPDF(writer fyne.URIWriteCloser) {
	defer writer.Close()

	snap, err := b.replica.Snapshot()
	if err == nil {
		err = export.WritePDF(writer, snap)
	}
	if err != nil {
		b.log.Error("export pdf", "uri", writer.URI(), "err", err)
		b.SetStatus("Error exporting PDF")
		return
	}
	b.SetStatus("Exported " + writer.URI().Name())
}

func toPoint(p fyne.Position) state.Point {
	return state.Point{X: float64(p.X), Y: float64(p.Y)}
}

func (b *BoardWidget) feed(phase gesture.Phase, at state.Point) {
	if b.Input == nil {
		return
	}
	b.Input(gesture.Sample{
		Pointer: mousePointer,
		Tool:    gesture.ToolStylus,
		Phase:   phase,
		X:       at.X,
		Y:       at.Y,
		At:      nowFunc(),
	})
}

func (b *BoardWidget) MouseDown(e *desktop.MouseEvent) {
	at := toPoint(e.Position)
	switch {
	case e.Button == desktop.MouseButtonSecondary:
		b.panning = true
	case e.Button == desktop.MouseButtonPrimary && e.Modifier&fyne.KeyModifierShift != 0:
		w := b.replica.View().ToWorld(at)
		l, ok := b.replica.ImageAt(w)
		if !ok {
			return
		}
		b.grabbed = l.ID
		corner := state.Point{X: l.Position.X + l.Width, Y: l.Position.Y + l.Height}
		if math.Sqrt(b.replica.View().ToScreen(corner).Dist2(at)) <= resizeHandle {
			b.resizing = true
			b.grabOffset = state.Point{X: corner.X - w.X, Y: corner.Y - w.Y}
			return
		}
		b.grabOffset = state.Point{X: w.X - l.Position.X, Y: w.Y - l.Position.Y}
	case e.Button == desktop.MouseButtonPrimary:
		b.pressed = true
		b.feed(gesture.PhaseDown, at)
	}
}

func (b *BoardWidget) MouseUp(e *desktop.MouseEvent) {
	if b.pressed {
		b.feed(gesture.PhaseUp, toPoint(e.Position))
	}
	b.pressed, b.panning, b.grabbed, b.resizing = false, false, "", false
}

func (b *BoardWidget) Dragged(e *fyne.DragEvent) {
	switch {
	case b.panning:
		b.replica.View().Pan(float64(e.Dragged.DX), float64(e.Dragged.DY))
		b.emitView()
		b.Refresh()
	case b.resizing:
		l, ok := b.replica.Image(b.grabbed)
		if !ok {
			return
		}
		w := b.replica.View().ToWorld(toPoint(e.Position))
		b.emit(protocol.ImageResize{
			ID:     b.grabbed,
			Width:  max(w.X+b.grabOffset.X-l.Position.X, state.MinImageSize),
			Height: max(w.Y+b.grabOffset.Y-l.Position.Y, state.MinImageSize),
		})
	case b.grabbed != "":
		w := b.replica.View().ToWorld(toPoint(e.Position))
		b.emit(protocol.ImageMove{
			ID: b.grabbed,
			At: state.Point{X: w.X - b.grabOffset.X, Y: w.Y - b.grabOffset.Y},
		})
	case b.pressed:
		b.feed(gesture.PhaseMove, toPoint(e.Position))
	}
}

func (b *BoardWidget) Scrolled(e *fyne.ScrollEvent) {
	factor := math.Exp(float64(e.Scrolled.DY) / 200)
	b.replica.View().ZoomAt(factor, toPoint(e.Position))
	b.emitView()
	b.Refresh()
}

func (b *BoardWidget) DragEnd() {}

func (b *BoardWidget) CreateRenderer() fyne.WidgetRenderer {
	r := &boardWidgetRenderer{
		board:      b,
		background: canvas.NewRectangle(color.White),
		outline:    canvas.NewRectangle(color.Transparent),
		images:     make(map[string]*canvas.Image),
	}
	r.outline.StrokeColor = color.NRGBA{R: 0x1e, G: 0x88, B: 0xe5, A: 0xc0}
	r.outline.StrokeWidth = 1.5
	r.rebuild()
	return r
}

// boardWidgetRenderer collects the replica's draw calls into fyne objects.
type boardWidgetRenderer struct {
	board      *BoardWidget
	background *canvas.Rectangle
	outline    *canvas.Rectangle
	images     map[string]*canvas.Image
	objects    []fyne.CanvasObject
	seen       map[string]bool
}

var _ state.Renderer = (*boardWidgetRenderer)(nil)

func (r *boardWidgetRenderer) Image(layer state.ImageLayer, screen state.Rect) {
	img, ok := r.images[layer.ID]
	if !ok || img.Image != layer.Image {
		img = canvas.NewImageFromImage(layer.Image)
		img.FillMode = canvas.ImageFillStretch
		r.images[layer.ID] = img
	}
	img.Move(fyne.NewPos(float32(screen.X), float32(screen.Y)))
	img.Resize(fyne.NewSize(float32(screen.W), float32(screen.H)))
	r.seen[layer.ID] = true
	r.objects = append(r.objects, img)
}

func (r *boardWidgetRenderer) Stroke(points []state.Point, ink string, width float64) {
	c := state.ParseColor(ink)
	if len(points) == 1 {
		dot := canvas.NewCircle(c)
		dot.Move(fyne.NewPos(float32(points[0].X-width/2), float32(points[0].Y-width/2)))
		dot.Resize(fyne.NewSize(float32(width), float32(width)))
		r.objects = append(r.objects, dot)
		return
	}
	for i := 1; i < len(points); i++ {
		segment := canvas.NewLine(c)
		segment.StrokeWidth = float32(width)
		segment.Position1 = fyne.NewPos(float32(points[i-1].X), float32(points[i-1].Y))
		segment.Position2 = fyne.NewPos(float32(points[i].X), float32(points[i].Y))
		r.objects = append(r.objects, segment)
	}
}

func (r *boardWidgetRenderer) Viewport(screen state.Rect) {
	r.outline.Move(fyne.NewPos(float32(screen.X), float32(screen.Y)))
	r.outline.Resize(fyne.NewSize(float32(screen.W), float32(screen.H)))
	r.objects = append(r.objects, r.outline)
}

func (r *boardWidgetRenderer) Objects() []fyne.CanvasObject { return r.objects }

func (r *boardWidgetRenderer) Refresh() {
	r.rebuild()
	canvas.Refresh(r.board)
}

func (r *boardWidgetRenderer) rebuild() {
	r.objects = []fyne.CanvasObject{r.background}
	r.seen = make(map[string]bool, len(r.images))
	r.board.replica.Render(r)
	for id := range r.images {
		if !r.seen[id] {
			delete(r.images, id)
		}
	}
}

func (r *boardWidgetRenderer) Layout(size fyne.Size) {
	r.background.Resize(size)
}

func (r *boardWidgetRenderer) MinSize() fyne.Size { return fyne.NewSize(300, 300) }

func (r *boardWidgetRenderer) Destroy() {}
