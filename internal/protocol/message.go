package protocol

// Type is the "type" discriminant carried by every datagram.
type Type string

const (
	TypeMove        Type = "move"
	TypeButton      Type = "button"
	TypeScroll      Type = "scroll"
	TypeDrawBegin   Type = "draw_begin"
	TypeDrawMove    Type = "draw_move"
	TypeDrawEnd     Type = "draw_end"
	TypeDrawUndo    Type = "draw_undo"
	TypeDrawClear   Type = "draw_clear"
	TypeDrawErase   Type = "draw_erase"
	TypeDrawView    Type = "draw_view"
	TypeImageMove   Type = "image_move"
	TypeImageResize Type = "image_resize"
	TypeTest        Type = "test"
)

// Message is one decoded datagram. The set of implementations is closed.
type Message interface {
	Type() Type
}

// PointerEvent is a Message that drives the host cursor.
type PointerEvent interface {
	Message
	pointerEvent()
}

// DrawEvent is a Message applied to the canvas replica.
type DrawEvent interface {
	Message
	drawEvent()
}

// ImageEvent is a follow-up Message for an already placed image.
type ImageEvent interface {
	Message
	imageEvent()
	ImageID() string
}

// Side identifies a mouse button.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// Point is a coordinate pair. Its space (world or screen) depends on context.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p+q.
func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

// Sub returns p-q.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Dist2 returns the squared distance between p and q.
func (p Point) Dist2(q Point) float64 {
	dx, dy := p.X-q.X, p.Y-q.Y
	return dx*dx + dy*dy
}

// Move is a relative cursor motion in pad pixels.
type Move struct {
	DX, DY float64
}

// Button presses or releases a mouse button at the current cursor position.
type Button struct {
	Side Side
	Down bool
}

// Scroll scrolls by whole lines. Positive DY means the fingers moved down.
type Scroll struct {
	DX, DY int
}

// DrawBegin opens a stroke at a world-space point.
type DrawBegin struct {
	ID    string
	At    Point
	Color string
	Width float64
}

// DrawMove appends a world-space point to an open stroke.
type DrawMove struct {
	ID string
	At Point
}

// DrawEnd appends a final point and closes the stroke.
type DrawEnd struct {
	ID string
	At Point
}

// DrawUndo removes the most recently added stroke.
type DrawUndo struct{}

// DrawClear removes every stroke. Images are kept.
type DrawClear struct{}

// DrawErase removes strokes with a sample point within Radius of At (world units).
type DrawErase struct {
	At     Point
	Radius float64
}

// DrawView announces the sender's viewport. It never changes the receiver's view.
type DrawView struct {
	Offset Point
	Scale  float64
	ViewW  float64
	ViewH  float64
}

// ImageMove repositions a placed image.
type ImageMove struct {
	ID string
	At Point
}

// ImageResize changes the world size of a placed image.
type ImageResize struct {
	ID            string
	Width, Height float64
}

// Test is a liveness probe with no state change.
type Test struct{}

func (Move) Type() Type        { return TypeMove }
func (Button) Type() Type      { return TypeButton }
func (Scroll) Type() Type      { return TypeScroll }
func (DrawBegin) Type() Type   { return TypeDrawBegin }
func (DrawMove) Type() Type    { return TypeDrawMove }
func (DrawEnd) Type() Type     { return TypeDrawEnd }
func (DrawUndo) Type() Type    { return TypeDrawUndo }
func (DrawClear) Type() Type   { return TypeDrawClear }
func (DrawErase) Type() Type   { return TypeDrawErase }
func (DrawView) Type() Type    { return TypeDrawView }
func (ImageMove) Type() Type   { return TypeImageMove }
func (ImageResize) Type() Type { return TypeImageResize }
func (Test) Type() Type        { return TypeTest }

func (Move) pointerEvent()   {}
func (Button) pointerEvent() {}
func (Scroll) pointerEvent() {}

func (DrawBegin) drawEvent() {}
func (DrawMove) drawEvent()  {}
func (DrawEnd) drawEvent()   {}
func (DrawUndo) drawEvent()  {}
func (DrawClear) drawEvent() {}
func (DrawErase) drawEvent() {}
func (DrawView) drawEvent()  {}

func (ImageMove) imageEvent()   {}
func (ImageResize) imageEvent() {}

func (m ImageMove) ImageID() string   { return m.ID }
func (m ImageResize) ImageID() string { return m.ID }
