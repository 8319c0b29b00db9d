package imagechan

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"net"
	"time"

	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/protocol"
	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/state"
)

// SenderConfig controls how images are prepared and sent.
type SenderConfig struct {
	MaxDimension int
	JPEGQuality  int
	Timeout      time.Duration
}

// DefaultSenderConfig returns the sender defaults.
func DefaultSenderConfig() SenderConfig {
	return SenderConfig{
		MaxDimension: DefaultMaxDimension,
		JPEGQuality:  DefaultJPEGQuality,
		Timeout:      15 * time.Second,
	}
}

// Placement is where the image lands in world space. A zero size means the
// pixel size of the prepared image.
type Placement struct {
	ID     string
	At     state.Point
	Width  float64
	Height float64
}

// Sender transmits one image per connection.
type Sender struct {
	cfg SenderConfig
	log *slog.Logger
}

func NewSender(cfg SenderConfig, logger *slog.Logger) *Sender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultSenderConfig().Timeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sender{cfg: cfg, log: logger.With("component", "image_sender")}
}

// Prepare downsizes img and returns the layer the local replica should place
// together with the encoded body.
func (s *Sender) Prepare(img image.Image, p Placement) (state.ImageLayer, []byte, error) {
	if p.ID == "" {
		p.ID = state.NewImageID()
	}
	scaled := Downscale(img, s.cfg.MaxDimension)
	body, err := Compress(scaled, s.cfg.JPEGQuality)
	if err != nil {
		return state.ImageLayer{}, nil, err
	}
	b := scaled.Bounds()
	if p.Width <= 0 || p.Height <= 0 {
		p.Width, p.Height = float64(b.Dx()), float64(b.Dy())
	}
	layer := state.ImageLayer{ID: p.ID, Image: scaled, Position: p.At, Width: p.Width, Height: p.Height}
	return layer, body, nil
}

// Send prepares img and writes it to the session's image port. It blocks
// until the frame is written, so call it off the interaction goroutine.
func (s *Sender) Send(ctx context.Context, session protocol.Session, img image.Image, p Placement) (state.ImageLayer, error) {
	layer, body, err := s.Prepare(img, p)
	if err != nil {
		return state.ImageLayer{}, err
	}
	if err := s.SendEncoded(ctx, session, layer, body); err != nil {
		return state.ImageLayer{}, err
	}
	return layer, nil
}

// SendEncoded writes an already prepared body.
func (s *Sender) SendEncoded(ctx context.Context, session protocol.Session, layer state.ImageLayer, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", session.ImageAddr())
	if err != nil {
		return fmt.Errorf("dial image channel %s: %w", session.ImageAddr(), err)
	}
	defer conn.Close()
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(dl)
	}

	hdr := protocol.ImageHeader{
		ID:     layer.ID,
		X:      layer.Position.X,
		Y:      layer.Position.Y,
		Width:  layer.Width,
		Height: layer.Height,
		Token:  session.Token,
	}
	if err := protocol.WriteImageFrame(conn, hdr, body); err != nil {
		return fmt.Errorf("send image %s: %w", layer.ID, err)
	}
	s.log.Info("image sent", "id", layer.ID, "bytes", len(body), "to", session.ImageAddr())
	return nil
}
