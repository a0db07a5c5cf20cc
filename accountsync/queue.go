package accountsync

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	oa "github.com/panyam/tenantauth"
)

var (
	ErrQueueFull   = errors.New("account sync queue is full")
	ErrQueueClosed = errors.New("account sync queue is closed")
)

const (
	DefaultWorkers         = 2
	DefaultMaxTries        = 5
	DefaultBuffer          = 256
	DefaultInitialInterval = 500 * time.Millisecond
	DefaultMaxInterval     = 30 * time.Second
)

// Options tunes a Queue. Zero values pick the defaults above.
type Options struct {
	Workers         int
	MaxTries        int
	Buffer          int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Logger          *slog.Logger
}

// Queue implements oa.AccountSyncer on top of a buffered channel drained by
// a fixed set of workers.
type Queue struct {
	Sender Sender
	Logger *slog.Logger

	maxTries        int
	initialInterval time.Duration
	maxInterval     time.Duration

	mu     sync.RWMutex
	closed bool
	events chan oa.AccountCreated
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewQueue starts the workers. Call Close to drain and stop them.
func NewQueue(sender Sender, opts Options) *Queue {
	q := newQueue(sender, opts)
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.work()
	}
	return q
}

func newQueue(sender Sender, opts Options) *Queue {
	q := &Queue{
		Sender:          sender,
		Logger:          opts.Logger,
		maxTries:        opts.MaxTries,
		initialInterval: opts.InitialInterval,
		maxInterval:     opts.MaxInterval,
	}
	if q.maxTries <= 0 {
		q.maxTries = DefaultMaxTries
	}
	if q.initialInterval <= 0 {
		q.initialInterval = DefaultInitialInterval
	}
	if q.maxInterval <= 0 {
		q.maxInterval = DefaultMaxInterval
	}
	buffer := opts.Buffer
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	q.events = make(chan oa.AccountCreated, buffer)
	q.ctx, q.cancel = context.WithCancel(context.Background())
	return q
}

func (q *Queue) logger() *slog.Logger {
	if q.Logger != nil {
		return q.Logger
	}
	return slog.Default()
}

// EnqueueAccountCreated never blocks. A full or closed queue is reported
// as an error and the event is dropped.
func (q *Queue) EnqueueAccountCreated(ctx context.Context, event oa.AccountCreated) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.events <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *Queue) work() {
	defer q.wg.Done()
	for event := range q.events {
		q.deliver(event)
	}
}

func (q *Queue) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = q.initialInterval
	b.MaxInterval = q.maxInterval
	return b
}

func (q *Queue) deliver(event oa.AccountCreated) {
	log := q.logger().With("event_id", event.ID, "email", event.Email)
	_, err := backoff.Retry(q.ctx, func() (struct{}, error) {
		return struct{}{}, q.Sender.Send(q.ctx, event)
	},
		backoff.WithBackOff(q.newBackOff()),
		backoff.WithMaxTries(uint(q.maxTries)),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn("account sync attempt failed", "error", err, "retry_in", next)
		}),
	)
	if err != nil {
		log.Error("account sync failed", "error", err)
		return
	}
	log.Debug("account synced")
}

// Close stops accepting events and waits for queued ones to be delivered.
// If ctx ends first, in-flight retries are cancelled and ctx.Err is returned.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.events)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		q.cancel()
		return nil
	case <-ctx.Done():
		q.cancel()
		<-done
		return ctx.Err()
	}
}
