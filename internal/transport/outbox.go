// Package transport carries protocol messages between the pad and the host:
// UDP datagrams or a WebSocket control connection, an outbound worker that
// keeps network writes off the interaction goroutine, and mDNS discovery.
package transport

import (
	"context"
	"log/slog"

	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/metrics"
	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/protocol"
)

// DefaultOutboxSize bounds queued sends.
const DefaultOutboxSize = 256

// Sender is anything that can carry a message to the other endpoint.
// Send never blocks and reports whether the message was queued.
type Sender interface {
	Send(msg protocol.Message) bool
}

// Senders fans a message out to every sender.
type Senders []Sender

func (s Senders) Send(msg protocol.Message) bool {
	ok := false
	for _, x := range s {
		if x != nil && x.Send(msg) {
			ok = true
		}
	}
	return ok
}

// Sink lets a Sender act as a gesture sink.
type Sink struct{ Sender }

func (s Sink) Emit(msg protocol.Message) { s.Send(msg) }

// Outbox runs queued send jobs on a single worker. Jobs are fire-and-forget:
// a full queue drops the job and a failed job is only counted.
type Outbox struct {
	jobs    chan func() error
	metrics *metrics.Metrics
	log     *slog.Logger
}

func NewOutbox(size int, m *metrics.Metrics, logger *slog.Logger) *Outbox {
	if size <= 0 {
		size = DefaultOutboxSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Outbox{
		jobs:    make(chan func() error, size),
		metrics: m,
		log:     logger.With("component", "outbox"),
	}
}

// Submit queues job without blocking.
func (o *Outbox) Submit(job func() error) bool {
	select {
	case o.jobs <- job:
		return true
	default:
		o.metrics.OutboxDropped()
		o.log.Debug("outbox full, send dropped")
		return false
	}
}

// Run drains the queue until ctx is done.
func (o *Outbox) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-o.jobs:
			if err := job(); err != nil {
				o.metrics.SendFailed()
				o.log.Debug("send failed", "err", err)
			}
		}
	}
}
