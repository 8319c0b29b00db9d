package gesture

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/protocol"
	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/state"
)

type recorder struct {
	msgs []protocol.Message
}

func (r *recorder) Emit(m protocol.Message) { r.msgs = append(r.msgs, m) }

func (r *recorder) take() []protocol.Message {
	out := r.msgs
	r.msgs = nil
	return out
}

var t0 = time.Unix(1_700_000_000, 0)

func at(ms int) time.Time { return t0.Add(time.Duration(ms) * time.Millisecond) }

func touch(id int, ph Phase, x, y float64, ms int) Sample {
	return Sample{Pointer: id, Tool: ToolFinger, Phase: ph, X: x, Y: y, At: at(ms)}
}

func pen(tool Tool, ph Phase, x, y float64, ms int) Sample {
	return Sample{Pointer: 100, Tool: tool, Phase: ph, X: x, Y: y, At: at(ms)}
}

func newTestInterpreter(view *state.ViewTransform) (*Interpreter, *recorder) {
	rec := &recorder{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(DefaultConfig(), rec, view, logger), rec
}

var (
	leftDown  = protocol.Button{Side: protocol.SideLeft, Down: true}
	leftUp    = protocol.Button{Side: protocol.SideLeft, Down: false}
	rightDown = protocol.Button{Side: protocol.SideRight, Down: true}
	rightUp   = protocol.Button{Side: protocol.SideRight, Down: false}
)

func TestTapClicks(t *testing.T) {
	g, rec := newTestInterpreter(nil)
	g.Feed(touch(1, PhaseDown, 100, 100, 0))
	g.Tick(at(16))
	g.Feed(touch(1, PhaseMove, 103, 101, 40))
	g.Tick(at(48))
	g.Feed(touch(1, PhaseUp, 103, 101, 120))
	g.Tick(at(130))

	assert.Equal(t, []protocol.Message{leftDown, leftUp}, rec.take())
	assert.Equal(t, StateIdle, g.State())
}

func TestSlowReleaseWithoutLongPressEmitsNothing(t *testing.T) {
	g, rec := newTestInterpreter(nil)
	g.Feed(touch(1, PhaseDown, 100, 100, 0))
	g.Tick(at(350))
	g.Feed(touch(1, PhaseUp, 100, 100, 400))
	assert.Empty(t, rec.take())
}

func TestLongPressStartsDrag(t *testing.T) {
	g, rec := newTestInterpreter(nil)
	g.Feed(touch(1, PhaseDown, 100, 100, 0))
	g.Tick(at(250))
	assert.Empty(t, rec.msgs)

	g.Tick(at(500))
	assert.Equal(t, []protocol.Message{leftDown}, rec.take())
	assert.Equal(t, StateDragging, g.State())

	g.Feed(touch(1, PhaseMove, 110, 100, 520))
	g.Feed(touch(1, PhaseMove, 130, 105, 530))
	g.Tick(at(533))
	g.Feed(touch(1, PhaseMove, 130, 125, 540))
	g.Tick(at(550))
	g.Feed(touch(1, PhaseUp, 130, 125, 600))

	assert.Equal(t, []protocol.Message{
		protocol.Move{DX: 30, DY: 5},
		protocol.Move{DX: 0, DY: 20},
		leftUp,
	}, rec.take())
}

func TestLongPressReleasedBeforeTickDrags(t *testing.T) {
	g, rec := newTestInterpreter(nil)
	g.Feed(touch(1, PhaseDown, 100, 100, 0))
	g.Tick(at(480))
	g.Feed(touch(1, PhaseUp, 100, 100, 520))
	g.Tick(at(530))

	assert.Equal(t, []protocol.Message{leftDown, leftUp}, rec.take())
	assert.Equal(t, StateIdle, g.State())
}

func TestSlopStartsDrag(t *testing.T) {
	g, rec := newTestInterpreter(nil)
	g.Feed(touch(1, PhaseDown, 100, 100, 0))
	g.Feed(touch(1, PhaseMove, 105, 100, 20))
	assert.Empty(t, rec.msgs)

	g.Feed(touch(1, PhaseMove, 120, 100, 40))
	g.Tick(at(48))
	g.Feed(touch(1, PhaseMove, 130, 110, 60))
	g.Feed(touch(1, PhaseUp, 130, 110, 70))

	assert.Equal(t, []protocol.Message{
		leftDown,
		protocol.Move{DX: 20, DY: 0},
		protocol.Move{DX: 10, DY: 10},
		leftUp,
	}, rec.take())
}

func TestTwoFingerTapRightClicks(t *testing.T) {
	g, rec := newTestInterpreter(nil)
	g.Feed(touch(1, PhaseDown, 100, 100, 0))
	g.Feed(touch(2, PhaseDown, 200, 100, 20))
	assert.Equal(t, StateTwoFingerScroll, g.State())
	g.Tick(at(32))
	g.Feed(touch(1, PhaseMove, 101, 103, 60))
	g.Feed(touch(2, PhaseMove, 201, 104, 60))
	g.Tick(at(64))
	g.Feed(touch(1, PhaseUp, 101, 103, 150))
	g.Feed(touch(2, PhaseUp, 201, 104, 160))
	g.Tick(at(170))

	assert.Equal(t, []protocol.Message{rightDown, rightUp}, rec.take())
}

func TestTwoFingerTapWithSidewaysDriftRightClicks(t *testing.T) {
	g, rec := newTestInterpreter(nil)
	g.Feed(touch(1, PhaseDown, 100, 100, 0))
	g.Feed(touch(2, PhaseDown, 200, 100, 10))
	g.Feed(touch(1, PhaseMove, 115, 100, 60))
	g.Feed(touch(2, PhaseMove, 215, 100, 60))
	g.Tick(at(64))
	g.Feed(touch(1, PhaseUp, 115, 100, 150))
	g.Feed(touch(2, PhaseUp, 215, 100, 160))
	g.Tick(at(170))

	assert.Equal(t, []protocol.Message{rightDown, rightUp}, rec.take())
}

func TestShortScrollStillScrollsOneLine(t *testing.T) {
	tests := []struct {
		name   string
		dx, dy float64
		want   protocol.Scroll
	}{
		{"diagonal", 15, 15, protocol.Scroll{DY: 1}},
		{"up", 0, -20, protocol.Scroll{DY: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, rec := newTestInterpreter(nil)
			g.Feed(touch(1, PhaseDown, 100, 100, 0))
			g.Feed(touch(2, PhaseDown, 200, 100, 10))
			g.Feed(touch(1, PhaseMove, 100+tt.dx, 100+tt.dy, 60))
			g.Feed(touch(2, PhaseMove, 200+tt.dx, 100+tt.dy, 60))
			g.Tick(at(64))
			g.Feed(touch(1, PhaseUp, 100+tt.dx, 100+tt.dy, 150))
			g.Feed(touch(2, PhaseUp, 200+tt.dx, 100+tt.dy, 160))
			g.Tick(at(170))

			assert.Equal(t, []protocol.Message{tt.want}, rec.take())
		})
	}
}

func TestTwoFingerScroll(t *testing.T) {
	g, rec := newTestInterpreter(nil)
	g.Feed(touch(1, PhaseDown, 100, 100, 0))
	g.Feed(touch(2, PhaseDown, 200, 100, 10))
	for step := 1; step <= 6; step++ {
		y := 100 + float64(step*10)
		ms := 10 + step*16
		g.Feed(touch(1, PhaseMove, 100, y, ms))
		g.Feed(touch(2, PhaseMove, 200, y, ms))
		g.Tick(at(ms))
	}
	g.Feed(touch(1, PhaseUp, 100, 160, 120))
	g.Feed(touch(2, PhaseUp, 200, 160, 125))
	g.Tick(at(130))

	lines := 0
	for _, m := range rec.take() {
		sc, ok := m.(protocol.Scroll)
		require.True(t, ok, "unexpected %#v", m)
		assert.Zero(t, sc.DX)
		lines += sc.DY
	}
	// 60px at 24px per line; the half line left over is dropped.
	assert.Equal(t, 2, lines)
}

func TestScrollCarriesRemainder(t *testing.T) {
	g, rec := newTestInterpreter(nil)
	g.Feed(touch(1, PhaseDown, 0, 0, 0))
	g.Feed(touch(2, PhaseDown, 100, 0, 0))

	g.Feed(touch(1, PhaseMove, 0, -36, 10))
	g.Feed(touch(2, PhaseMove, 100, -36, 10))
	g.Tick(at(16))
	assert.Equal(t, []protocol.Message{protocol.Scroll{DY: -1}}, rec.take())

	g.Feed(touch(1, PhaseMove, 0, -48, 20))
	g.Feed(touch(2, PhaseMove, 100, -48, 20))
	g.Tick(at(32))
	assert.Equal(t, []protocol.Message{protocol.Scroll{DY: -1}}, rec.take())
}

func TestSecondFingerCancelsLongPress(t *testing.T) {
	g, rec := newTestInterpreter(nil)
	g.Feed(touch(1, PhaseDown, 100, 100, 0))
	g.Feed(touch(2, PhaseDown, 200, 100, 100))
	g.Tick(at(600))
	g.Feed(touch(1, PhaseUp, 100, 100, 700))
	g.Feed(touch(2, PhaseUp, 200, 100, 710))
	g.Tick(at(720))
	assert.Empty(t, rec.take())
}

func TestLeftoverFingerIgnoredUntilLifted(t *testing.T) {
	g, rec := newTestInterpreter(nil)
	g.Feed(touch(1, PhaseDown, 100, 100, 0))
	g.Feed(touch(2, PhaseDown, 200, 100, 10))
	g.Feed(touch(1, PhaseUp, 100, 100, 80))
	assert.Equal(t, []protocol.Message{rightDown, rightUp}, rec.take())

	g.Feed(touch(2, PhaseMove, 400, 300, 100))
	g.Tick(at(700))
	g.Feed(touch(2, PhaseUp, 400, 300, 800))
	assert.Empty(t, rec.take())

	g.Feed(touch(3, PhaseDown, 50, 50, 900))
	g.Feed(touch(3, PhaseUp, 50, 50, 950))
	assert.Equal(t, []protocol.Message{leftDown, leftUp}, rec.take())
}

func TestStylusHoverMovesAndContactDrags(t *testing.T) {
	g, rec := newTestInterpreter(nil)
	g.Feed(pen(ToolStylus, PhaseHover, 10, 10, 0))
	g.Feed(pen(ToolStylus, PhaseHover, 15, 12, 5))
	g.Tick(at(16))
	assert.Equal(t, StateStylusHover, g.State())

	g.Feed(pen(ToolStylus, PhaseDown, 15, 12, 20))
	assert.Equal(t, StateStylusActive, g.State())
	g.Feed(pen(ToolStylus, PhaseMove, 25, 12, 30))
	g.Tick(at(32))
	g.Feed(pen(ToolStylus, PhaseUp, 25, 12, 40))
	g.Feed(pen(ToolStylus, PhaseHoverExit, 25, 12, 60))

	assert.Equal(t, []protocol.Message{
		protocol.Move{DX: 5, DY: 2},
		leftDown,
		protocol.Move{DX: 10, DY: 0},
		leftUp,
	}, rec.take())
	assert.Equal(t, StateIdle, g.State())
}

func TestStylusTakesOverFingerDrag(t *testing.T) {
	g, rec := newTestInterpreter(nil)
	g.Feed(touch(1, PhaseDown, 100, 100, 0))
	g.Tick(at(600))
	g.Feed(pen(ToolStylus, PhaseDown, 300, 300, 610))
	g.Feed(touch(1, PhaseMove, 150, 150, 620))
	g.Feed(pen(ToolStylus, PhaseUp, 300, 300, 650))
	g.Tick(at(660))

	assert.Equal(t, []protocol.Message{leftDown, leftUp, leftDown, leftUp}, rec.take())
}

func TestCancelReleasesButton(t *testing.T) {
	g, rec := newTestInterpreter(nil)
	g.Feed(touch(1, PhaseDown, 100, 100, 0))
	g.Tick(at(500))
	g.Feed(touch(1, PhaseMove, 110, 100, 510))
	g.Feed(touch(1, PhaseCancel, 110, 100, 520))

	assert.Equal(t, []protocol.Message{leftDown, protocol.Move{DX: 10}, leftUp}, rec.take())
	assert.Equal(t, StateIdle, g.State())

	g.Feed(touch(1, PhaseMove, 200, 100, 530))
	g.Feed(touch(1, PhaseUp, 200, 100, 540))
	g.Tick(at(600))
	assert.Empty(t, rec.take())
}

func TestOneClassificationPerGesture(t *testing.T) {
	// A drag that ends quickly is never also reported as a tap.
	g, rec := newTestInterpreter(nil)
	g.Feed(touch(1, PhaseDown, 0, 0, 0))
	g.Feed(touch(1, PhaseMove, 50, 0, 30))
	g.Feed(touch(1, PhaseUp, 50, 0, 60))

	var buttons []protocol.Message
	for _, m := range rec.take() {
		if b, ok := m.(protocol.Button); ok {
			buttons = append(buttons, b)
		}
	}
	assert.Equal(t, []protocol.Message{leftDown, leftUp}, buttons)
}

func TestDrawStrokeInWorldSpace(t *testing.T) {
	view := state.ViewTransform{Offset: state.Point{X: 0, Y: 0}, Scale: 2}
	g, rec := newTestInterpreter(&view)
	g.SetMode(ModeDraw)

	g.Feed(pen(ToolStylus, PhaseDown, 20, 20, 0))
	g.Feed(pen(ToolStylus, PhaseMove, 20.2, 20, 5))
	g.Feed(pen(ToolStylus, PhaseMove, 40, 20, 10))
	g.Feed(pen(ToolStylus, PhaseUp, 40, 40, 20))

	msgs := rec.take()
	require.Len(t, msgs, 3)
	begin, ok := msgs[0].(protocol.DrawBegin)
	require.True(t, ok)
	assert.NotEmpty(t, begin.ID)
	assert.Equal(t, state.Point{X: 10, Y: 10}, begin.At)
	assert.Equal(t, 1.5, begin.Width)
	assert.Equal(t, DefaultConfig().StrokeColor, begin.Color)
	assert.Equal(t, protocol.DrawMove{ID: begin.ID, At: state.Point{X: 20, Y: 10}}, msgs[1])
	assert.Equal(t, protocol.DrawEnd{ID: begin.ID, At: state.Point{X: 20, Y: 20}}, msgs[2])

	g.Feed(pen(ToolStylus, PhaseDown, 0, 0, 30))
	next := rec.take()[0].(protocol.DrawBegin)
	assert.NotEqual(t, begin.ID, next.ID)
}

func TestEraserRadiusFollowsLocalScale(t *testing.T) {
	view := state.ViewTransform{Offset: state.Point{X: 100, Y: 0}, Scale: 2}
	g, rec := newTestInterpreter(&view)
	g.SetMode(ModeDraw)

	g.Feed(pen(ToolEraser, PhaseDown, 20, 20, 0))
	g.Feed(pen(ToolEraser, PhaseUp, 20, 20, 10))

	assert.Equal(t, []protocol.Message{
		protocol.DrawErase{At: state.Point{X: 110, Y: 10}, Radius: 10},
	}, rec.take())
}

func TestDrawPanAnnouncesView(t *testing.T) {
	view := state.NewViewTransform()
	g, rec := newTestInterpreter(&view)
	g.SetMode(ModeDraw)
	g.SetViewport(800, 600)

	g.Feed(touch(1, PhaseDown, 100, 100, 0))
	g.Feed(touch(1, PhaseMove, 150, 80, 10))
	g.Tick(at(16))
	g.Feed(touch(1, PhaseUp, 150, 80, 20))
	g.Tick(at(32))

	assert.Equal(t, []protocol.Message{
		protocol.DrawView{Offset: state.Point{X: -50, Y: 20}, Scale: 1, ViewW: 800, ViewH: 600},
	}, rec.take())
	assert.Equal(t, state.Point{X: -50, Y: 20}, view.Offset)
}

func TestDrawPinchZoomsAroundMidpoint(t *testing.T) {
	view := state.NewViewTransform()
	g, rec := newTestInterpreter(&view)
	g.SetMode(ModeDraw)

	g.Feed(touch(1, PhaseDown, 100, 100, 0))
	g.Feed(touch(2, PhaseDown, 200, 100, 5))
	assert.Equal(t, StatePinching, g.State())
	anchor := view.ToWorld(state.Point{X: 150, Y: 100})

	g.Feed(touch(1, PhaseMove, 50, 100, 10))
	g.Feed(touch(2, PhaseMove, 250, 100, 10))
	g.Tick(at(16))

	assert.InDelta(t, 2.0, view.Scale, 1e-9)
	got := view.ToWorld(state.Point{X: 150, Y: 100})
	assert.InDelta(t, anchor.X, got.X, 1e-9)
	assert.InDelta(t, anchor.Y, got.Y, 1e-9)

	msgs := rec.take()
	require.Len(t, msgs, 1)
	assert.IsType(t, protocol.DrawView{}, msgs[0])
}

func TestDrawCancelEndsStroke(t *testing.T) {
	g, rec := newTestInterpreter(nil)
	g.SetMode(ModeDraw)
	g.Feed(pen(ToolStylus, PhaseDown, 10, 10, 0))
	g.Feed(pen(ToolStylus, PhaseMove, 30, 10, 5))
	g.Feed(pen(ToolStylus, PhaseCancel, 30, 10, 6))

	msgs := rec.take()
	require.Len(t, msgs, 3)
	begin := msgs[0].(protocol.DrawBegin)
	assert.Equal(t, protocol.DrawEnd{ID: begin.ID, At: state.Point{X: 30, Y: 10}}, msgs[2])
}

func TestSetModeReleasesDrag(t *testing.T) {
	g, rec := newTestInterpreter(nil)
	g.Feed(touch(1, PhaseDown, 0, 0, 0))
	g.Tick(at(500))
	g.SetMode(ModeDraw)

	assert.Equal(t, []protocol.Message{leftDown, leftUp}, rec.take())
	assert.Equal(t, ModeDraw, g.Mode())
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("draw")
	require.NoError(t, err)
	assert.Equal(t, ModeDraw, m)
	_, err = ParseMode("paint")
	assert.Error(t, err)
}
