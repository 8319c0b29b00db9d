package transport

import (
	"errors"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/metrics"
	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/protocol"
)

// InboxConfig sizes the inbound path.
type InboxConfig struct {
	// QueueSize bounds decoded messages waiting for the interaction loop.
	QueueSize int
	// RatePerSec and Burst limit messages per source host. Zero disables.
	RatePerSec float64
	Burst      int
	// OnPeer is called, from the receiving goroutine, for every source that
	// passes the token check.
	OnPeer func(from net.Addr)
}

// DefaultInboxConfig allows a 240 Hz pen stream with headroom.
func DefaultInboxConfig() InboxConfig {
	return InboxConfig{QueueSize: 512, RatePerSec: 1000, Burst: 200}
}

// Inbox validates raw inbound messages and hands accepted ones to the
// interaction loop through a bounded channel. Every failure is a silent
// drop; nothing is sent back to the source.
type Inbox struct {
	out     chan protocol.Message
	limits  *limiterStore
	onPeer  func(net.Addr)
	metrics *metrics.Metrics
	log     *slog.Logger

	mu      sync.RWMutex
	session protocol.Session

	lastProbe atomic.Int64
}

func NewInbox(cfg InboxConfig, session protocol.Session, m *metrics.Metrics, logger *slog.Logger) *Inbox {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultInboxConfig().QueueSize
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Inbox{
		out:     make(chan protocol.Message, cfg.QueueSize),
		limits:  newLimiterStore(rate.Limit(cfg.RatePerSec), cfg.Burst, 10*time.Minute),
		onPeer:  cfg.OnPeer,
		metrics: m,
		log:     logger.With("component", "inbox"),
		session: session,
	}
}

// Messages is the hand-off channel read by the interaction loop.
func (in *Inbox) Messages() <-chan protocol.Message { return in.out }

// SetSession replaces the session whose token is checked.
func (in *Inbox) SetSession(s protocol.Session) {
	in.mu.Lock()
	in.session = s
	in.mu.Unlock()
}

// LastProbe returns when the last liveness probe was accepted.
func (in *Inbox) LastProbe() time.Time {
	ns := in.lastProbe.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Handle processes one raw message and reports whether it was accepted.
// It never blocks.
func (in *Inbox) Handle(data []byte, from net.Addr) bool {
	if len(data) == 0 || len(data) > protocol.MaxDatagramSize {
		in.drop(metrics.DropOversize, from, nil)
		return false
	}
	if !in.limits.allow(sourceKey(from)) {
		in.drop(metrics.DropRateLimited, from, nil)
		return false
	}
	msg, token, err := protocol.Decode(data)
	if err != nil {
		reason := metrics.DropMalformed
		if errors.Is(err, protocol.ErrUnknownType) {
			reason = metrics.DropUnknownType
		}
		in.drop(reason, from, err)
		return false
	}

	in.mu.RLock()
	ok := in.session.Accepts(token)
	in.mu.RUnlock()
	if !ok {
		in.drop(metrics.DropToken, from, nil)
		return false
	}
	if in.onPeer != nil {
		in.onPeer(from)
	}
	in.metrics.Received(string(msg.Type()))

	if _, probe := msg.(protocol.Test); probe {
		now := time.Now()
		in.lastProbe.Store(now.UnixNano())
		in.metrics.Probe(float64(now.Unix()))
		in.log.Debug("probe", "from", from)
		return true
	}

	select {
	case in.out <- msg:
		return true
	default:
		in.drop(metrics.DropQueueFull, from, nil)
		return false
	}
}

func (in *Inbox) drop(reason string, from net.Addr, err error) {
	in.metrics.Dropped(reason)
	if err != nil {
		in.log.Debug("message dropped", "reason", reason, "from", from, "err", err)
		return
	}
	in.log.Debug("message dropped", "reason", reason, "from", from)
}
