package transport

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
)

// ErrNoTarget is returned when a send has nowhere to go yet.
var ErrNoTarget = errors.New("transport: no datagram target")

// UDPListener reads datagrams on its own goroutine and feeds an Inbox.
type UDPListener struct {
	conn  net.PacketConn
	inbox *Inbox
	log   *slog.Logger
}

// ListenUDP binds addr (":9000", "127.0.0.1:0", ...).
func ListenUDP(addr string, inbox *Inbox, logger *slog.Logger) (*UDPListener, error) {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen udp %s: %w", addr, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UDPListener{conn: conn, inbox: inbox, log: logger.With("component", "udp")}, nil
}

// Conn is the bound socket. Links write through it so replies come from the
// port the peer already knows.
func (l *UDPListener) Conn() net.PacketConn { return l.conn }

// Addr is the bound address.
func (l *UDPListener) Addr() net.Addr { return l.conn.LocalAddr() }

// errorPause spaces out retries while reads keep failing.
func errorPause() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Millisecond
	b.MaxInterval = time.Second
	b.MaxElapsedTime = 0
	return b
}

// Run receives until ctx is done. Read errors other than shutdown are logged
// and the loop continues after a growing pause.
func (l *UDPListener) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { l.conn.Close() })
	defer stop()
	l.log.Info("listening", "addr", l.conn.LocalAddr())

	// One byte over the limit so oversized packets are seen as oversized
	// rather than silently truncated.
	buf := make([]byte, protocol.MaxDatagramSize+1)
	pause := errorPause()
	failing := false
	for {
		n, from, err := l.conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			wait := pause.NextBackOff()
			l.log.Warn("read failed", "err", err, "retry_in", wait)
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
		// Decode copies what it keeps, so buf can be reused.
		l.inbox.Handle(buf[:n], from)
	}
}

// Close releases the socket.
func (l *UDPListener) Close() error { return l.conn.Close() }

// UDPLink sends datagrams to the other endpoint through the outbox. The
// target comes from the session (pad) or is learned from the first
// authenticated datagram (host).
type UDPLink struct {
	conn    net.PacketConn
	outbox  *Outbox
	metrics *metrics.Metrics
	log     *slog.Logger

	mu      sync.RWMutex
	session protocol.Session
	target  net.Addr
}

// NewUDPLink resolves the session's datagram address when it names a host.
func NewUDPLink(conn net.PacketConn, outbox *Outbox, session protocol.Session, m *metrics.Metrics, logger *slog.Logger) (*UDPLink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	l := &UDPLink{conn: conn, outbox: outbox, metrics: m, log: logger.With("component", "udp_link")}
	if err := l.SetSession(session); err != nil {
		return nil, err
	}
	return l, nil
}

// SetSession swaps the session, re-resolving the target.
func (l *UDPLink) SetSession(s protocol.Session) error {
	var target net.Addr
	if s.Host != "" && s.Port != 0 {
		addr, err := net.ResolveUDPAddr("udp", s.DatagramAddr())
		if err != nil {
			return fmt.Errorf("resolve %s: %w", s.DatagramAddr(), err)
		}
		target = addr
	}
	l.mu.Lock()
	l.session = s
	if target != nil {
		l.target = target
	}
	l.mu.Unlock()
	l.log.Info("session set", "session", s)
	return nil
}

// Session returns the current session.
func (l *UDPLink) Session() protocol.Session {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.session
}

// SetTarget points the link at addr if it is a UDP address.
func (l *UDPLink) SetTarget(addr net.Addr) {
	ua, ok := addr.(*net.UDPAddr)
	if !ok {
		return
	}
	l.mu.Lock()
	changed := l.target == nil || l.target.String() != ua.String()
	l.target = ua
	l.mu.Unlock()
	if changed {
		l.log.Info("peer address learned", "addr", ua)
	}
}

// Target returns the current destination, if any.
func (l *UDPLink) Target() net.Addr {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.target
}

// Send encodes msg on the caller's goroutine and queues the write.
func (l *UDPLink) Send(msg protocol.Message) bool {
	l.mu.RLock()
	token, target := l.session.Token, l.target
	l.mu.RUnlock()
	if target == nil {
		l.log.Debug("send dropped", "type", msg.Type(), "err", ErrNoTarget)
		return false
	}
	data, err := protocol.Encode(msg, token)
	if err != nil {
		l.log.Debug("encode failed", "type", msg.Type(), "err", err)
		return false
	}
	return l.outbox.Submit(func() error {
		_, err := l.conn.WriteTo(data, target)
		return err
	})
}
