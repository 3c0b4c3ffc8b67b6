// Package notify implements best-effort outbound notifications. Dispatch is
// decoupled from the request/response lifecycle: callers enqueue and return,
// a single worker goroutine drains the queue, and failures end up in the
// attempt log instead of the caller's response.
package notify

import (
	"log"
	"sync"
	"time"
)

// Dispatcher queues notifications and delivers them on a background worker.
type Dispatcher struct {
	sender Sender
	queue  chan Notification

	mu       sync.Mutex
	attempts []Attempt

	done chan struct{}
	once sync.Once
}

// NewDispatcher constructs a dispatcher with the given queue capacity and
// starts its worker.
func NewDispatcher(sender Sender, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 64
	}
	d := &Dispatcher{
		sender: sender,
		queue:  make(chan Notification, queueSize),
		done:   make(chan struct{}),
	}
	go d.run()
	return d
}

// Dispatch enqueues a notification without blocking. When the queue is full
// the notification is dropped and recorded as failed; delivery is
// best-effort by design.
func (d *Dispatcher) Dispatch(n Notification) {
	select {
	case d.queue <- n:
	default:
		log.Printf("WARN: notification queue full, dropping %s for %s", n.Kind, n.Recipient)
		d.record(n, ResultFailed)
	}
}

// Stop drains the queue and stops the worker. Safe to call more than once.
func (d *Dispatcher) Stop() {
	d.once.Do(func() {
		close(d.queue)
		<-d.done
	})
}

// Attempts returns a copy of every delivery attempt recorded so far. Tests
// use this to assert "notification attempted" independently of the caller's
// response.
func (d *Dispatcher) Attempts() []Attempt {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Attempt, len(d.attempts))
	copy(out, d.attempts)
	return out
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for n := range d.queue {
		if n.Recipient == "" {
			d.record(n, ResultSkipped)
			continue
		}
		if err := d.sender.Send(n); err != nil {
			log.Printf("ERROR: failed to deliver %s notification to %s: %v", n.Kind, n.Recipient, err)
			d.record(n, ResultFailed)
			continue
		}
		d.record(n, ResultSent)
	}
}

func (d *Dispatcher) record(n Notification, result Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.attempts = append(d.attempts, Attempt{Notification: n, Result: result, At: time.Now().UTC()})
}
