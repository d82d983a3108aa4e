package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dtroode/fintrack-server/internal/logger"
	"github.com/dtroode/fintrack-server/internal/model"
)

// Sender delivers one encoded event to the message log.
type Sender interface {
	Send(ctx context.Context, topic string, value []byte) error
	Close() error
}

type message struct {
	ctx   context.Context
	topic string
	value []byte
}

var _ model.Publisher = (*Dispatcher)(nil)

// Dispatcher is a fire-and-forget publisher. Publish enqueues into a bounded
// buffer and returns immediately; worker goroutines hand queued events to the
// sender. A full buffer drops the event.
type Dispatcher struct {
	sender Sender
	log    *logger.Logger
	queue  chan message

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher starts workers goroutines draining a queue of queueSize events.
func NewDispatcher(sender Sender, log *logger.Logger, queueSize, workers int) *Dispatcher {
	if queueSize < 1 {
		queueSize = 1
	}
	if workers < 1 {
		workers = 1
	}

	d := &Dispatcher{
		sender: sender,
		log:    log,
		queue:  make(chan message, queueSize),
	}
	for range workers {
		d.wg.Add(1)
		go d.work()
	}
	return d
}

// Publish encodes payload and queues it for delivery. Failures are logged.
func (d *Dispatcher) Publish(ctx context.Context, topic string, payload any) {
	value, err := json.Marshal(payload)
	if err != nil {
		d.log.Error("Event dispatcher: failed to encode event", "topic", topic, "error", err)
		return
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.log.Warn("Event dispatcher: closed, dropping event", "topic", topic)
		return
	}

	select {
	case d.queue <- message{ctx: context.WithoutCancel(ctx), topic: topic, value: value}:
	default:
		d.log.Warn("Event dispatcher: queue full, dropping event", "topic", topic)
	}
}

// Close stops accepting events and waits for queued ones to be sent until ctx
// is done. The sender is closed afterwards.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("failed to drain event queue: %w", ctx.Err())
	}

	if err := d.sender.Close(); err != nil {
		return fmt.Errorf("failed to close event sender: %w", err)
	}
	return nil
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for msg := range d.queue {
		if err := d.sender.Send(msg.ctx, msg.topic, msg.value); err != nil {
			d.log.Error("Event dispatcher: failed to send event", "topic", msg.topic, "error", err)
		}
	}
}
