package state

import (
	"image"

	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/protocol"
)

// Point is a world-space coordinate unless stated otherwise.
type Point = protocol.Point

// Stroke is a free-hand path. Points only grow while the stroke is open.
type Stroke struct {
	ID     string  `json:"id"`
	Color  string  `json:"color"`
	Width  float64 `json:"width"`
	Points []Point `json:"points"`
	Ended  bool    `json:"ended"`
}

func (s *Stroke) clone() Stroke {
	c := *s
	c.Points = append([]Point(nil), s.Points...)
	return c
}

// ImageLayer is a bitmap placed on the canvas.
type ImageLayer struct {
	ID       string
	Image    image.Image
	Position Point
	Width    float64
	Height   float64
}

// Rect returns the world rectangle covered by the layer.
func (l *ImageLayer) Rect() Rect {
	return Rect{X: l.Position.X, Y: l.Position.Y, W: l.Width, H: l.Height}
}

// MinImageSize is the smallest world width or height an image can be resized to.
const MinImageSize = 16.0
