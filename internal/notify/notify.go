// Package notify delivers best-effort, out-of-band notifications. Callers
// enqueue and move on; delivery failures are logged, never propagated.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Sender delivers a single notification. Email transport itself is an
// external collaborator; LogSender stands in for it here.
type Sender interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// LogSender writes notifications to the log instead of delivering them.
type LogSender struct{}

func (LogSender) Send(_ context.Context, recipient, subject, _ string) error {
	log.Info().Str("recipient", recipient).Str("subject", subject).Msg("notify: notification delivered to log")
	return nil
}

type message struct {
	recipient string
	subject   string
	body      string
}

// Dispatcher fans notifications out to a Sender from a background worker so
// the request path never blocks on delivery. A full queue drops the message
// with a log entry rather than stalling the caller.
type Dispatcher struct {
	sender      Sender
	queue       chan message
	sendTimeout time.Duration

	closeOnce sync.Once
	done      chan struct{}
}

func NewDispatcher(sender Sender, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 64
	}
	d := &Dispatcher{
		sender:      sender,
		queue:       make(chan message, queueSize),
		sendTimeout: 10 * time.Second,
		done:        make(chan struct{}),
	}
	go d.run()
	return d
}

// Notify enqueues a notification without blocking.
func (d *Dispatcher) Notify(recipient, subject, body string) {
	select {
	case d.queue <- message{recipient: recipient, subject: subject, body: body}:
	default:
		log.Warn().Str("recipient", recipient).Str("subject", subject).
			Msg("notify: queue full, notification dropped")
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for msg := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
		if err := d.sender.Send(ctx, msg.recipient, msg.subject, msg.body); err != nil {
			log.Error().Err(err).Str("recipient", msg.recipient).Str("subject", msg.subject).
				Msg("notify: failed to deliver notification")
		}
		cancel()
	}
}

// Close stops accepting messages and waits for in-flight deliveries.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.queue)
	})
	<-d.done
}
