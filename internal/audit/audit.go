// Package audit posts request notices to a Matrix room in the background.
package audit

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

//go:generate mockgen -destination=mocks/mock_sender.go -package=mocks . Sender

const (
	// DefaultQueueSize is the number of notices buffered before new ones are dropped.
	DefaultQueueSize = 64

	sendTimeout  = 10 * time.Second
	drainTimeout = 5 * time.Second
)

// Sender delivers a plain-text message to a room.
type Sender interface {
	SendText(ctx context.Context, roomID, accessToken, text string) error
}

// Notifier queues notices and delivers them from a single worker, so callers
// never wait on the homeserver.
type Notifier struct {
	sender Sender
	roomID string
	token  string
	queue  chan string
	log    *slog.Logger

	running atomic.Bool
}

// New creates a notifier. It is disabled when roomID or token is empty.
func New(sender Sender, roomID, token string, queueSize int, log *slog.Logger) *Notifier {
	if log == nil {
		log = slog.Default()
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Notifier{
		sender: sender,
		roomID: roomID,
		token:  token,
		queue:  make(chan string, queueSize),
		log:    log.With("component", "audit"),
	}
}

// Enabled reports whether notices will be delivered at all.
func (n *Notifier) Enabled() bool {
	return n.sender != nil && n.roomID != "" && n.token != ""
}

// Running reports whether the delivery worker is active.
func (n *Notifier) Running() bool {
	return n.running.Load()
}

// Notify queues message for delivery. It never blocks. The message is dropped
// when the notifier is disabled, the worker is not running or the queue is
// full.
func (n *Notifier) Notify(message string) {
	if !n.Enabled() {
		n.log.Debug("audit disabled, dropping notice")
		return
	}
	if !n.running.Load() {
		n.log.Warn("audit worker not running, dropping notice", "message", message)
		return
	}
	select {
	case n.queue <- message:
	default:
		n.log.Warn("audit queue full, dropping notice", "message", message)
	}
}

// Run delivers queued notices until ctx is canceled, then makes a bounded
// attempt to flush what is left. Delivery failures are logged and never
// returned.
func (n *Notifier) Run(ctx context.Context) error {
	if !n.Enabled() {
		n.log.Info("audit room not configured, notices disabled")
		<-ctx.Done()
		return nil
	}

	n.running.Store(true)
	defer n.running.Store(false)

	n.log.Info("audit worker started", "room_id", n.roomID)
	for {
		select {
		case <-ctx.Done():
			n.drain(context.WithoutCancel(ctx))
			return nil
		case msg := <-n.queue:
			if ctx.Err() != nil {
				n.drain(context.WithoutCancel(ctx), msg)
				return nil
			}
			n.send(ctx, msg)
		}
	}
}

func (n *Notifier) drain(ctx context.Context, pending ...string) {
	ctx, cancel := context.WithTimeout(ctx, drainTimeout)
	defer cancel()
	for _, msg := range pending {
		n.send(ctx, msg)
	}
	for {
		select {
		case msg := <-n.queue:
			n.send(ctx, msg)
		default:
			return
		}
	}
}

func (n *Notifier) send(ctx context.Context, msg string) {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	if err := n.sender.SendText(ctx, n.roomID, n.token, msg); err != nil {
		n.log.Warn("audit notice not delivered", "message", msg, "error", err)
		return
	}
	n.log.Debug("audit notice delivered")
}
