package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// MaxDatagramSize bounds a single encoded datagram. Larger packets are
// dropped before parsing.
const MaxDatagramSize = 8 * 1024

// Decoding errors.
var (
	ErrMalformed        = errors.New("protocol: malformed message")
	ErrUnknownType      = errors.New("protocol: unknown message type")
	ErrDatagramTooLarge = errors.New("protocol: datagram too large")
	ErrEmptyDatagram    = errors.New("protocol: empty datagram")
)

// envelope is the flat record every datagram is encoded as. Fields are
// pointers where absence has to be told apart from zero.
type envelope struct {
	Type    Type     `json:"type"`
	Token   string   `json:"token"`
	DX      *float64 `json:"dx,omitempty"`
	DY      *float64 `json:"dy,omitempty"`
	Button  string   `json:"button,omitempty"`
	State   string   `json:"state,omitempty"`
	ID      string   `json:"id,omitempty"`
	X       *float64 `json:"x,omitempty"`
	Y       *float64 `json:"y,omitempty"`
	Color   string   `json:"color,omitempty"`
	Width   *float64 `json:"width,omitempty"`
	Height  *float64 `json:"height,omitempty"`
	Radius  *float64 `json:"radius,omitempty"`
	OffsetX *float64 `json:"offset_x,omitempty"`
	OffsetY *float64 `json:"offset_y,omitempty"`
	Scale   *float64 `json:"scale,omitempty"`
	ViewW   *float64 `json:"view_w,omitempty"`
	ViewH   *float64 `json:"view_h,omitempty"`
}

func num(v float64) *float64 { return &v }

func numOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

// Encode serialises msg with the session token.
func Encode(msg Message, token string) ([]byte, error) {
	env := envelope{Type: msg.Type(), Token: token}
	switch m := msg.(type) {
	case Move:
		env.DX, env.DY = num(m.DX), num(m.DY)
	case Button:
		env.Button = string(m.Side)
		env.State = "up"
		if m.Down {
			env.State = "down"
		}
	case Scroll:
		env.DX, env.DY = num(float64(m.DX)), num(float64(m.DY))
	case DrawBegin:
		env.ID, env.X, env.Y = m.ID, num(m.At.X), num(m.At.Y)
		env.Color, env.Width = m.Color, num(m.Width)
	case DrawMove:
		env.ID, env.X, env.Y = m.ID, num(m.At.X), num(m.At.Y)
	case DrawEnd:
		env.ID, env.X, env.Y = m.ID, num(m.At.X), num(m.At.Y)
	case DrawUndo, DrawClear, Test:
	case DrawErase:
		env.X, env.Y, env.Radius = num(m.At.X), num(m.At.Y), num(m.Radius)
	case DrawView:
		env.OffsetX, env.OffsetY = num(m.Offset.X), num(m.Offset.Y)
		env.Scale, env.ViewW, env.ViewH = num(m.Scale), num(m.ViewW), num(m.ViewH)
	case ImageMove:
		env.ID, env.X, env.Y = m.ID, num(m.At.X), num(m.At.Y)
	case ImageResize:
		env.ID, env.Width, env.Height = m.ID, num(m.Width), num(m.Height)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, msg.Type())
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode %s: %w", msg.Type(), err)
	}
	return data, nil
}

// Decode parses one datagram and returns the message and the token it
// carried. The token is not checked here.
func Decode(data []byte) (Message, string, error) {
	if len(data) == 0 {
		return nil, "", ErrEmptyDatagram
	}
	if len(data) > MaxDatagramSize {
		return nil, "", ErrDatagramTooLarge
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	msg, err := env.message()
	if err != nil {
		return nil, env.Token, err
	}
	return msg, env.Token, nil
}

func (env *envelope) point() (Point, error) {
	if env.X == nil || env.Y == nil {
		return Point{}, fmt.Errorf("%w: %s without x/y", ErrMalformed, env.Type)
	}
	return Point{X: *env.X, Y: *env.Y}, nil
}

func (env *envelope) requireID() error {
	if env.ID == "" {
		return fmt.Errorf("%w: %s without id", ErrMalformed, env.Type)
	}
	return nil
}

func (env *envelope) message() (Message, error) {
	switch env.Type {
	case TypeMove:
		return Move{DX: numOr(env.DX, 0), DY: numOr(env.DY, 0)}, nil

	case TypeButton:
		side := Side(env.Button)
		if side != SideLeft && side != SideRight {
			return nil, fmt.Errorf("%w: button %q", ErrMalformed, env.Button)
		}
		switch env.State {
		case "down":
			return Button{Side: side, Down: true}, nil
		case "up":
			return Button{Side: side}, nil
		}
		return nil, fmt.Errorf("%w: button state %q", ErrMalformed, env.State)

	case TypeScroll:
		return Scroll{
			DX: int(math.Round(numOr(env.DX, 0))),
			DY: int(math.Round(numOr(env.DY, 0))),
		}, nil

	case TypeDrawBegin, TypeDrawMove, TypeDrawEnd, TypeImageMove:
		if err := env.requireID(); err != nil {
			return nil, err
		}
		at, err := env.point()
		if err != nil {
			return nil, err
		}
		switch env.Type {
		case TypeDrawBegin:
			return DrawBegin{ID: env.ID, At: at, Color: env.Color, Width: numOr(env.Width, 0)}, nil
		case TypeDrawMove:
			return DrawMove{ID: env.ID, At: at}, nil
		case TypeDrawEnd:
			return DrawEnd{ID: env.ID, At: at}, nil
		default:
			return ImageMove{ID: env.ID, At: at}, nil
		}

	case TypeDrawUndo:
		return DrawUndo{}, nil

	case TypeDrawClear:
		return DrawClear{}, nil

	case TypeDrawErase:
		at, err := env.point()
		if err != nil {
			return nil, err
		}
		r := numOr(env.Radius, 0)
		if r <= 0 {
			return nil, fmt.Errorf("%w: erase radius %v", ErrMalformed, r)
		}
		return DrawErase{At: at, Radius: r}, nil

	case TypeDrawView:
		s := numOr(env.Scale, 0)
		if s <= 0 {
			return nil, fmt.Errorf("%w: view scale %v", ErrMalformed, s)
		}
		return DrawView{
			Offset: Point{X: numOr(env.OffsetX, 0), Y: numOr(env.OffsetY, 0)},
			Scale:  s,
			ViewW:  numOr(env.ViewW, 0),
			ViewH:  numOr(env.ViewH, 0),
		}, nil

	case TypeImageResize:
		if err := env.requireID(); err != nil {
			return nil, err
		}
		if env.Width == nil || env.Height == nil {
			return nil, fmt.Errorf("%w: image_resize without size", ErrMalformed)
		}
		return ImageResize{ID: env.ID, Width: *env.Width, Height: *env.Height}, nil

	case TypeTest:
		return Test{}, nil

	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
}
