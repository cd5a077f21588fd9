package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Options tunes a Dispatcher. Zero fields take the defaults below.
type Options struct {
	Workers        int
	QueueSize      int
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

const (
	defaultWorkers        = 2
	defaultQueueSize      = 100
	defaultMaxAttempts    = 5
	defaultInitialBackoff = 500 * time.Millisecond
	defaultMaxBackoff     = 30 * time.Second
)

func (o Options) normalized() Options {
	if o.Workers <= 0 {
		o.Workers = defaultWorkers
	}
	if o.QueueSize <= 0 {
		o.QueueSize = defaultQueueSize
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = defaultMaxAttempts
	}
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = defaultInitialBackoff
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = defaultMaxBackoff
	}
	return o
}

// Dispatcher sends messages from a bounded queue on a fixed pool of worker
// goroutines, retrying failed sends with exponential backoff. It is safe for
// concurrent use.
type Dispatcher struct {
	mailer Mailer
	opts   Options
	queue  chan Message

	mu     sync.RWMutex
	closed bool

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewDispatcher starts the worker pool.
func NewDispatcher(mailer Mailer, opts Options) *Dispatcher {
	opts = opts.normalized()
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		mailer: mailer,
		opts:   opts,
		queue:  make(chan Message, opts.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}
	for range opts.Workers {
		d.wg.Add(1)
		go d.work()
	}
	return d
}

// Enqueue hands msg to the workers without blocking. It reports false and
// drops the message when the queue is full or the dispatcher is closed.
func (d *Dispatcher) Enqueue(msg Message) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		slog.Warn("email dropped, dispatcher closed", "to", msg.To, "subject", msg.Subject)
		return false
	}

	select {
	case d.queue <- msg:
		return true
	default:
		slog.Warn("email dropped, queue full", "to", msg.To, "subject", msg.Subject)
		return false
	}
}

// Close stops accepting messages and waits for queued ones to be delivered.
// If ctx ends first, in-flight retries are abandoned and ctx.Err() is
// returned.
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
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for msg := range d.queue {
		if err := d.deliver(msg); err != nil {
			slog.Error("email delivery failed", "to", msg.To, "subject", msg.Subject, "error", err)
		}
	}
}

func (d *Dispatcher) deliver(msg Message) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.opts.InitialBackoff
	b.MaxInterval = d.opts.MaxBackoff

	_, err := backoff.Retry(d.ctx, func() (struct{}, error) {
		err := d.mailer.Send(d.ctx, msg)
		if err != nil && IsPermanent(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(d.opts.MaxAttempts)),
	)
	return err
}
