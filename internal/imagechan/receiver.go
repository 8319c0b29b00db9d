package imagechan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/metrics"
	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/protocol"
	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/state"
)

// Rejection reasons reported to metrics.
const (
	RejectHeader    = "header"
	RejectToken     = "token"
	RejectBody      = "body"
	RejectType      = "type"
	RejectDecode    = "decode"
	RejectSize      = "size"
	RejectQueueFull = "queue_full"
)

// ReceiverConfig bounds the receive path.
type ReceiverConfig struct {
	Limits protocol.FrameLimits
	// ReadTimeout covers one whole connection.
	ReadTimeout time.Duration
	// QueueSize bounds decoded layers waiting for the interaction loop.
	QueueSize int
	// MaxEdge bounds the decoded width and height.
	MaxEdge int
}

func DefaultReceiverConfig() ReceiverConfig {
	return ReceiverConfig{
		Limits:      protocol.DefaultFrameLimits(),
		ReadTimeout: 30 * time.Second,
		QueueSize:   8,
		MaxEdge:     DefaultMaxEdge,
	}
}

// Receiver accepts image connections one at a time and delivers decoded
// layers through a bounded channel.
type Receiver struct {
	ln      net.Listener
	cfg     ReceiverConfig
	out     chan state.ImageLayer
	metrics *metrics.Metrics
	log     *slog.Logger

	mu      sync.RWMutex
	session protocol.Session
}

// Listen binds addr for incoming images.
func Listen(addr string, cfg ReceiverConfig, session protocol.Session, m *metrics.Metrics, logger *slog.Logger) (*Receiver, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen image channel %s: %w", addr, err)
	}
	def := DefaultReceiverConfig()
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.MaxEdge <= 0 {
		cfg.MaxEdge = def.MaxEdge
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Receiver{
		ln:      ln,
		cfg:     cfg,
		out:     make(chan state.ImageLayer, cfg.QueueSize),
		metrics: m,
		log:     logger.With("component", "image_receiver"),
		session: session,
	}, nil
}

// Addr is the bound address.
func (r *Receiver) Addr() net.Addr { return r.ln.Addr() }

// Layers is the hand-off channel read by the interaction loop.
func (r *Receiver) Layers() <-chan state.ImageLayer { return r.out }

// SetSession replaces the session whose token is checked.
func (r *Receiver) SetSession(s protocol.Session) {
	r.mu.Lock()
	r.session = s
	r.mu.Unlock()
}

// Close stops accepting.
func (r *Receiver) Close() error { return r.ln.Close() }

// Run accepts until ctx is done. Each connection is drained before the next
// is accepted.
func (r *Receiver) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { r.ln.Close() })
	defer stop()
	r.log.Info("listening", "addr", r.ln.Addr())

	pause := backoff.NewExponentialBackOff()
	pause.InitialInterval = 5 * time.Millisecond
	pause.MaxInterval = time.Second
	pause.MaxElapsedTime = 0
	failing := false
	for {
		conn, err := r.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			wait := pause.NextBackOff()
			r.log.Warn("accept failed", "err", err, "retry_in", wait)
			failing = true
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(wait):
			}
			continue
		}
		if failing {
			pause.Reset()
			failing = false
		}
		r.serve(conn)
	}
}

func (r *Receiver) serve(conn net.Conn) {
	defer conn.Close()
	from := conn.RemoteAddr()
	_ = conn.SetReadDeadline(time.Now().Add(r.cfg.ReadTimeout))

	layer, reason, err := r.receive(conn)
	if err != nil {
		r.metrics.ImageRejected(reason)
		r.log.Debug("image rejected", "reason", reason, "from", from, "err", err)
		return
	}

	select {
	case r.out <- layer:
		r.metrics.ImageReceived()
		r.log.Info("image received", "id", layer.ID, "from", from)
	default:
		r.metrics.ImageRejected(RejectQueueFull)
		r.log.Warn("image dropped, queue full", "id", layer.ID)
	}
}

// receive reads one frame. The token is checked before the body is read so
// stray senders cost at most one header.
func (r *Receiver) receive(conn net.Conn) (state.ImageLayer, string, error) {
	hdr, err := protocol.ReadImageHeader(conn, r.cfg.Limits)
	if err != nil {
		return state.ImageLayer{}, RejectHeader, err
	}
	r.mu.RLock()
	ok := r.session.Accepts(hdr.Token)
	r.mu.RUnlock()
	if !ok {
		return state.ImageLayer{}, RejectToken, errors.New("token mismatch")
	}
	body, err := protocol.ReadImageBody(conn, r.cfg.Limits)
	if err != nil {
		return state.ImageLayer{}, RejectBody, err
	}
	img, err := Decode(body, r.cfg.MaxEdge)
	switch {
	case errors.Is(err, ErrUnsupportedType):
		return state.ImageLayer{}, RejectType, err
	case errors.Is(err, ErrTooLarge):
		return state.ImageLayer{}, RejectSize, err
	case err != nil:
		return state.ImageLayer{}, RejectDecode, err
	}
	return state.ImageLayer{
		ID:       hdr.ID,
		Image:    img,
		Position: state.Point{X: hdr.X, Y: hdr.Y},
		Width:    hdr.Width,
		Height:   hdr.Height,
	}, "", nil
}
