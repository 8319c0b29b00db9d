package state

import (
	"bytes"
	"image"
	"image/color"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/protocol"
)

func quietReplica() *Replica {
	return NewReplica(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func drawStroke(r *Replica, id string, pts ...Point) {
	r.Apply(protocol.DrawBegin{ID: id, At: pts[0], Color: "#000000", Width: 2})
	for _, p := range pts[1 : len(pts)-1] {
		r.Apply(protocol.DrawMove{ID: id, At: p})
	}
	r.Apply(protocol.DrawEnd{ID: id, At: pts[len(pts)-1]})
}

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
	}
	return img
}

func strokeIDs(r *Replica) []string {
	var ids []string
	for _, s := range r.Strokes() {
		ids = append(ids, s.ID)
	}
	return ids
}

func TestStrokeLifecycle(t *testing.T) {
	r := quietReplica()
	assert.True(t, r.Apply(protocol.DrawBegin{ID: "a", At: Point{X: 1, Y: 1}, Color: "#ff0000", Width: 3}))
	assert.True(t, r.Apply(protocol.DrawMove{ID: "a", At: Point{X: 2, Y: 2}}))
	assert.True(t, r.Apply(protocol.DrawEnd{ID: "a", At: Point{X: 3, Y: 3}}))

	s, ok := r.Stroke("a")
	require.True(t, ok)
	assert.True(t, s.Ended)
	assert.Equal(t, "#ff0000", s.Color)
	assert.Equal(t, []Point{{X: 1, Y: 1}, {X: 2, Y: 2}, {X: 3, Y: 3}}, s.Points)

	// Late delivery after End is dropped.
	assert.False(t, r.Apply(protocol.DrawMove{ID: "a", At: Point{X: 9, Y: 9}}))
	s, _ = r.Stroke("a")
	assert.Len(t, s.Points, 3)
}

func TestMoveForUnknownStrokeIgnored(t *testing.T) {
	r := quietReplica()
	assert.False(t, r.Apply(protocol.DrawMove{ID: "ghost", At: Point{X: 1, Y: 1}}))
	assert.False(t, r.Apply(protocol.DrawEnd{ID: "ghost", At: Point{X: 1, Y: 1}}))
	assert.Empty(t, r.Strokes())
}

func TestDuplicateBeginIgnored(t *testing.T) {
	r := quietReplica()
	r.Apply(protocol.DrawBegin{ID: "a", At: Point{X: 1, Y: 1}})
	assert.False(t, r.Apply(protocol.DrawBegin{ID: "a", At: Point{X: 5, Y: 5}}))
	assert.Len(t, r.Strokes(), 1)
}

func TestUndoRemovesOnlyLastStroke(t *testing.T) {
	r := quietReplica()
	drawStroke(r, "a", Point{X: 0, Y: 0}, Point{X: 1, Y: 1})
	drawStroke(r, "b", Point{X: 5, Y: 5}, Point{X: 6, Y: 6}, Point{X: 7, Y: 7})

	assert.True(t, r.Apply(protocol.DrawUndo{}))
	assert.Equal(t, []string{"a"}, strokeIDs(r))

	// An undone id is never revived.
	assert.False(t, r.Apply(protocol.DrawBegin{ID: "b", At: Point{X: 1, Y: 1}}))
	assert.False(t, r.Apply(protocol.DrawMove{ID: "b", At: Point{X: 1, Y: 1}}))
	assert.Equal(t, []string{"a"}, strokeIDs(r))

	assert.True(t, r.Apply(protocol.DrawUndo{}))
	assert.False(t, r.Apply(protocol.DrawUndo{}))
	assert.Empty(t, r.Strokes())
}

func TestUndoRemovesOpenStroke(t *testing.T) {
	r := quietReplica()
	drawStroke(r, "a", Point{X: 0, Y: 0}, Point{X: 1, Y: 1})
	r.Apply(protocol.DrawBegin{ID: "b", At: Point{X: 2, Y: 2}})

	r.Apply(protocol.DrawUndo{})
	assert.Equal(t, []string{"a"}, strokeIDs(r))
	assert.False(t, r.Apply(protocol.DrawMove{ID: "b", At: Point{X: 3, Y: 3}}))
}

func TestClearKeepsImages(t *testing.T) {
	r := quietReplica()
	drawStroke(r, "a", Point{X: 0, Y: 0}, Point{X: 1, Y: 1})
	drawStroke(r, "b", Point{X: 2, Y: 2}, Point{X: 3, Y: 3})
	require.True(t, r.PlaceImage(ImageLayer{ID: "img", Image: testImage(40, 20), Position: Point{X: 10, Y: 10}}))

	assert.True(t, r.Apply(protocol.DrawClear{}))
	assert.Empty(t, r.Strokes())

	imgs := r.Images()
	require.Len(t, imgs, 1)
	assert.Equal(t, "img", imgs[0].ID)
	assert.Equal(t, Point{X: 10, Y: 10}, imgs[0].Position)
	assert.Equal(t, 40.0, imgs[0].Width)

	assert.False(t, r.Apply(protocol.DrawBegin{ID: "a", At: Point{}}))
}

func TestEraseByWorldRadius(t *testing.T) {
	r := quietReplica()
	drawStroke(r, "inside", Point{X: 0, Y: 0}, Point{X: 110, Y: 110}, Point{X: 300, Y: 300})
	drawStroke(r, "edge", Point{X: 120, Y: 100}, Point{X: 200, Y: 100})
	drawStroke(r, "outside", Point{X: 115, Y: 115}, Point{X: 130, Y: 130})
	// Segment passes near the centre but no sample point is within range.
	drawStroke(r, "crossing", Point{X: 50, Y: 100}, Point{X: 150, Y: 100})

	assert.True(t, r.Apply(protocol.DrawErase{At: Point{X: 100, Y: 100}, Radius: 20}))
	assert.Equal(t, []string{"outside", "crossing"}, strokeIDs(r))

	assert.False(t, r.Apply(protocol.DrawErase{At: Point{X: 1000, Y: 1000}, Radius: 20}))
	assert.False(t, r.Apply(protocol.DrawErase{At: Point{X: 115, Y: 115}, Radius: 0}))
}

func TestEraseMatchesAcrossViews(t *testing.T) {
	// Both replicas see the same erase in world units, whatever their zoom.
	a, b := quietReplica(), quietReplica()
	a.View().ZoomAt(4, Point{})
	b.View().ZoomAt(0.5, Point{X: 300, Y: 200})

	events := []protocol.Message{
		protocol.DrawBegin{ID: "s1", At: Point{X: 10, Y: 10}},
		protocol.DrawEnd{ID: "s1", At: Point{X: 12, Y: 10}},
		protocol.DrawBegin{ID: "s2", At: Point{X: 50, Y: 50}},
		protocol.DrawEnd{ID: "s2", At: Point{X: 60, Y: 50}},
		protocol.DrawErase{At: Point{X: 11, Y: 11}, Radius: 5},
	}
	for _, ev := range events {
		a.Apply(ev)
		b.Apply(ev)
	}
	assert.Equal(t, a.Strokes(), b.Strokes())
	assert.Equal(t, []string{"s2"}, strokeIDs(a))
}

func TestImageMoveIdempotent(t *testing.T) {
	r := quietReplica()
	require.True(t, r.PlaceImage(ImageLayer{ID: "img", Image: testImage(10, 10), Width: 100, Height: 50}))

	mv := protocol.ImageMove{ID: "img", At: Point{X: 42, Y: -7}}
	r.Apply(mv)
	first, _ := r.Image("img")
	r.Apply(mv)
	second, _ := r.Image("img")
	assert.Equal(t, Point{X: 42, Y: -7}, second.Position)
	assert.Equal(t, first, second)
}

func TestImageEventsForUnknownIDIgnored(t *testing.T) {
	r := quietReplica()
	assert.False(t, r.Apply(protocol.ImageMove{ID: "nope", At: Point{X: 1, Y: 1}}))
	assert.False(t, r.Apply(protocol.ImageResize{ID: "nope", Width: 10, Height: 10}))
	assert.Empty(t, r.Images())
}

func TestImageResizeClamped(t *testing.T) {
	r := quietReplica()
	r.PlaceImage(ImageLayer{ID: "img", Image: testImage(64, 64)})

	r.Apply(protocol.ImageResize{ID: "img", Width: 2, Height: 300})
	l, _ := r.Image("img")
	assert.Equal(t, MinImageSize, l.Width)
	assert.Equal(t, 300.0, l.Height)
}

func TestPlaceImageSameIDReplaces(t *testing.T) {
	r := quietReplica()
	r.PlaceImage(ImageLayer{ID: "a", Image: testImage(20, 20)})
	r.PlaceImage(ImageLayer{ID: "b", Image: testImage(20, 20)})
	r.PlaceImage(ImageLayer{ID: "a", Image: testImage(30, 30), Position: Point{X: 5, Y: 5}})

	imgs := r.Images()
	require.Len(t, imgs, 2)
	assert.Equal(t, "a", imgs[0].ID)
	assert.Equal(t, 30.0, imgs[0].Width)
	assert.False(t, r.PlaceImage(ImageLayer{ID: "", Image: testImage(1, 1)}))
	assert.False(t, r.PlaceImage(ImageLayer{ID: "c"}))
}

func TestPeerViewDoesNotMoveLocalView(t *testing.T) {
	r := quietReplica()
	r.View().Pan(10, 10)
	before := *r.View()

	assert.True(t, r.Apply(protocol.DrawView{Offset: Point{X: 100, Y: 100}, Scale: 2, ViewW: 800, ViewH: 600}))
	assert.Equal(t, before, *r.View())

	pv, ok := r.PeerView()
	require.True(t, ok)
	assert.Equal(t, 2.0, pv.Scale)
}

func TestPointerEventsIgnored(t *testing.T) {
	r := quietReplica()
	assert.False(t, r.Apply(protocol.Move{DX: 1, DY: 1}))
	assert.False(t, r.Apply(protocol.Test{}))
}

type recordingRenderer struct {
	calls   []string
	strokes [][]Point
	widths  []float64
	images  []Rect
	view    Rect
}

func (rr *recordingRenderer) Image(l ImageLayer, screen Rect) {
	rr.calls = append(rr.calls, "image:"+l.ID)
	rr.images = append(rr.images, screen)
}

func (rr *recordingRenderer) Stroke(points []Point, _ string, width float64) {
	rr.calls = append(rr.calls, "stroke")
	rr.strokes = append(rr.strokes, points)
	rr.widths = append(rr.widths, width)
}

func (rr *recordingRenderer) Viewport(screen Rect) {
	rr.calls = append(rr.calls, "viewport")
	rr.view = screen
}

func TestRenderMapsThroughLocalView(t *testing.T) {
	r := quietReplica()
	drawStroke(r, "a", Point{X: 10, Y: 10}, Point{X: 20, Y: 10})
	r.PlaceImage(ImageLayer{ID: "img", Image: testImage(10, 10), Position: Point{X: 0, Y: 0}, Width: 50, Height: 25})
	r.Apply(protocol.DrawView{Offset: Point{X: 10, Y: 10}, Scale: 4, ViewW: 400, ViewH: 200})
	*r.View() = ViewTransform{Offset: Point{X: 10, Y: 0}, Scale: 2}

	var rr recordingRenderer
	r.Render(&rr)

	assert.Equal(t, []string{"image:img", "stroke", "viewport"}, rr.calls)
	assert.Equal(t, Rect{X: -20, Y: 0, W: 100, H: 50}, rr.images[0])
	assert.Equal(t, []Point{{X: 0, Y: 20}, {X: 20, Y: 20}}, rr.strokes[0])
	assert.Equal(t, 4.0, rr.widths[0])
	// Peer shows 100×50 world units starting at (10,10).
	assert.Equal(t, Rect{X: 0, Y: 20, W: 200, H: 100}, rr.view)
}

func TestSnapshotRoundTrip(t *testing.T) {
	r := quietReplica()
	drawStroke(r, "a", Point{X: 1, Y: 2}, Point{X: 3, Y: 4})
	r.PlaceImage(ImageLayer{ID: "img", Image: testImage(8, 4), Position: Point{X: 7, Y: 7}, Width: 80, Height: 40})
	r.View().ZoomAt(2, Point{X: 5, Y: 5})

	snap, err := r.Snapshot()
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, WriteSnapshot(&buf, snap))

	loaded, err := ReadSnapshot(&buf)
	require.NoError(t, err)
	other := quietReplica()
	drawStroke(other, "old", Point{}, Point{X: 1, Y: 1})
	require.NoError(t, other.Restore(loaded))

	assert.Equal(t, r.Strokes(), other.Strokes())
	assert.Equal(t, *r.View(), *other.View())
	imgs := other.Images()
	require.Len(t, imgs, 1)
	assert.Equal(t, Point{X: 7, Y: 7}, imgs[0].Position)
	assert.Equal(t, image.Rect(0, 0, 8, 4), imgs[0].Image.Bounds())

	// Strokes replaced by a restore stay retired.
	assert.False(t, other.Apply(protocol.DrawBegin{ID: "old", At: Point{}}))
}

func TestReadSnapshotRejectsVersion(t *testing.T) {
	_, err := ReadSnapshot(bytes.NewBufferString(`{"version":99}`))
	assert.ErrorIs(t, err, ErrSnapshotVersion)
}

func TestBounds(t *testing.T) {
	r := quietReplica()
	_, ok := r.Bounds()
	assert.False(t, ok)

	drawStroke(r, "a", Point{X: 10, Y: 10}, Point{X: 20, Y: 30})
	r.PlaceImage(ImageLayer{ID: "img", Image: testImage(1, 1), Position: Point{X: -50, Y: 0}, Width: 20, Height: 20})
	b, ok := r.Bounds()
	require.True(t, ok)
	assert.Equal(t, Rect{X: -50, Y: 0, W: 71, H: 31}, b)
}
