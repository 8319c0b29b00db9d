package transport

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/metrics"
	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/protocol"
)

const (
	wsWriteWait  = 5 * time.Second
	wsPongWait   = 20 * time.Second
	wsPingEvery  = 8 * time.Second
	wsSendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsClient is one control connection on the host.
type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// WSHub serves the control WebSocket on the host. Inbound frames go through
// the same Inbox as datagrams; Send broadcasts to every client.
type WSHub struct {
	inbox   *Inbox
	metrics *metrics.Metrics
	log     *slog.Logger

	mu      sync.Mutex
	clients map[*wsClient]struct{}
	token   string
}

func NewWSHub(inbox *Inbox, session protocol.Session, m *metrics.Metrics, logger *slog.Logger) *WSHub {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHub{
		inbox:   inbox,
		metrics: m,
		log:     logger.With("component", "ws_hub"),
		clients: make(map[*wsClient]struct{}),
		token:   session.Token,
	}
}

// SetSession swaps the token used on outbound frames.
func (h *WSHub) SetSession(s protocol.Session) {
	h.mu.Lock()
	h.token = s.Token
	h.mu.Unlock()
}

// Router mounts /ws, /metrics and /healthz.
func (h *WSHub) Router(metricsHandler http.Handler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/ws", h.ServeWS).Methods(http.MethodGet)
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler).Methods(http.MethodGet)
	}
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodGet)
	return r
}

// ServeWS upgrades one control connection.
func (h *WSHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("upgrade failed", "err", err)
		return
	}
	c := &wsClient{conn: conn, send: make(chan []byte, wsSendBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.metrics.WSClients(1)
	h.log.Info("client connected", "remote", r.RemoteAddr, "clients", n)

	from, _ := net.ResolveTCPAddr("tcp", r.RemoteAddr)
	go h.writePump(c)
	h.readPump(c, from)
}

func (h *WSHub) remove(c *wsClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	if ok {
		h.metrics.WSClients(-1)
	}
}

func (h *WSHub) readPump(c *wsClient, from net.Addr) {
	defer func() {
		h.remove(c)
		c.conn.Close()
		h.log.Info("client disconnected", "remote", from)
	}()
	c.conn.SetReadLimit(protocol.MaxDatagramSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		h.inbox.Handle(data, from)
	}
}

func (h *WSHub) writePump(c *wsClient) {
	ticker := time.NewTicker(wsPingEvery)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.metrics.SendFailed()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Send broadcasts msg. A client whose buffer is full is disconnected.
func (h *WSHub) Send(msg protocol.Message) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.clients) == 0 {
		return false
	}
	data, err := protocol.Encode(msg, h.token)
	if err != nil {
		h.log.Debug("encode failed", "type", msg.Type(), "err", err)
		return false
	}
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.log.Warn("slow client dropped")
			delete(h.clients, c)
			close(c.send)
			h.metrics.WSClients(-1)
		}
	}
	return true
}

// Clients returns the number of connected clients.
func (h *WSHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// WSLink is the pad's control connection. It redials with exponential
// backoff and feeds frames from the host into an Inbox.
type WSLink struct {
	// Rediscover, when set, runs after a dial fails or a connection drops.
	// A session different from the current one replaces it before the
	// next dial.
	Rediscover func(ctx context.Context) (protocol.Session, error)

	inbox   *Inbox
	metrics *metrics.Metrics
	log     *slog.Logger
	out     chan []byte

	mu      sync.Mutex
	session protocol.Session
	conn    *websocket.Conn
}

func NewWSLink(session protocol.Session, inbox *Inbox, m *metrics.Metrics, logger *slog.Logger) *WSLink {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSLink{
		inbox:   inbox,
		metrics: m,
		log:     logger.With("component", "ws_link"),
		out:     make(chan []byte, wsSendBuffer),
		session: session,
	}
}

// SetSession swaps the session and drops the current connection so the
// next dial uses it.
func (l *WSLink) SetSession(s protocol.Session) {
	l.mu.Lock()
	l.session = s
	conn := l.conn
	l.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

// Session returns the session the next dial uses.
func (l *WSLink) Session() protocol.Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.session
}

// Connected reports whether a connection to the host is up.
func (l *WSLink) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn != nil
}

// Send encodes msg and queues it for the writer. While disconnected the
// message is dropped; a later sample supersedes it.
func (l *WSLink) Send(msg protocol.Message) bool {
	l.mu.Lock()
	token, up := l.session.Token, l.conn != nil
	l.mu.Unlock()
	if !up {
		l.metrics.Dropped("disconnected")
		return false
	}
	data, err := protocol.Encode(msg, token)
	if err != nil {
		l.log.Debug("encode failed", "type", msg.Type(), "err", err)
		return false
	}
	select {
	case l.out <- data:
		return true
	default:
		l.metrics.OutboxDropped()
		return false
	}
}

// Run keeps the connection up until ctx is done.
func (l *WSLink) Run(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 0

	for {
		l.mu.Lock()
		url := l.session.ControlURL()
		l.mu.Unlock()

		conn, err := l.dial(ctx, url)
		if err == nil {
			b.Reset()
			l.log.Info("connected", "url", url)
			err = l.serve(ctx, conn)
			l.log.Info("disconnected", "url", url, "err", err)
		} else {
			l.log.Debug("dial failed", "url", url, "err", err)
		}
		if ctx.Err() != nil {
			return nil
		}
		l.rediscover(ctx)

		wait := b.NextBackOff()
		if wait == backoff.Stop {
			wait = b.MaxInterval
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}

func (l *WSLink) rediscover(ctx context.Context) {
	if l.Rediscover == nil {
		return
	}
	s, err := l.Rediscover(ctx)
	if err != nil {
		l.log.Debug("rediscover failed", "err", err)
		return
	}
	if s != l.Session() {
		l.log.Info("host changed", "session", s)
		l.SetSession(s)
	}
}

func (l *WSLink) dial(ctx context.Context, url string) (*websocket.Conn, error) {
	d := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		NetDialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 15 * time.Second,
		}).DialContext,
	}
	conn, _, err := d.DialContext(ctx, url, nil)
	return conn, err
}

// serve runs the read loop and the writer for one connection. Frames left
// over from an earlier connection are discarded first.
func (l *WSLink) serve(ctx context.Context, conn *websocket.Conn) error {
	l.discardPending()
	l.mu.Lock()
	l.conn = conn
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		l.conn = nil
		l.mu.Unlock()
		conn.Close()
	}()

	from := conn.RemoteAddr()
	conn.SetReadLimit(protocol.MaxDatagramSize)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	readErr := make(chan error, 1)
	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
			if l.inbox != nil {
				l.inbox.Handle(data, from)
			}
		}
	}()

	ticker := time.NewTicker(wsPingEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(wsWriteWait))
			return ctx.Err()
		case err := <-readErr:
			return err
		case data := <-l.out:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				l.metrics.SendFailed()
				return err
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return err
			}
		}
	}
}

func (l *WSLink) discardPending() {
	for {
		select {
		case <-l.out:
		default:
			return
		}
	}
}
