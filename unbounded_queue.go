package tgbot

import (
	"context"
	"log/slog"
	"sync"
)

// queueDepthWarningStep is the queue depth multiple at which a growing queue is reported
const queueDepthWarningStep = 1024

// unboundedQueue is a FIFO queue whose push never blocks. Its items are delivered through the output channel by a
// separate goroutine. Nothing limits the queue depth: a consumer which never reads the output makes the queue grow
// without bound, which is reported into the log every queueDepthWarningStep items.
type unboundedQueue[T any] struct {
	name   string
	mu     sync.Mutex
	items  []T
	closed bool
	notify chan struct{}
	out    chan T
}

// newUnboundedQueue creates a new queue. The queue stops delivering items once the context is done.
func newUnboundedQueue[T any](ctx context.Context, name string) *unboundedQueue[T] {
	q := &unboundedQueue[T]{
		name:   name,
		notify: make(chan struct{}, 1),
		out:    make(chan T),
	}

	go q.deliver(ctx)

	return q
}

// push appends the item to the queue. Items pushed after close are dropped.
func (q *unboundedQueue[T]) push(item T) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}

	q.items = append(q.items, item)
	depth := len(q.items)
	q.mu.Unlock()

	if depth%queueDepthWarningStep == 0 {
		slog.Warn("the queue keeps growing because its consumer falls behind",
			slog.String("queue", q.name), slog.Int("depth", depth))
	}

	q.wakeUp()
}

// close closes the output channel once all the queued items have been delivered
func (q *unboundedQueue[T]) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	q.wakeUp()
}

func (q *unboundedQueue[T]) output() <-chan T {
	return q.out
}

func (q *unboundedQueue[T]) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *unboundedQueue[T]) wakeUp() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *unboundedQueue[T]) deliver(ctx context.Context) {
	defer close(q.out)

	for {
		item, isAvailable, isClosed := q.pop()
		if isClosed {
			return
		}

		if !isAvailable {
			select {
			case <-q.notify:
				continue

			case <-ctx.Done():
				return
			}
		}

		select {
		case q.out <- item:

		case <-ctx.Done():
			return
		}
	}
}

// pop takes the first item of the queue. The queue is reported as closed only when it is both closed and empty.
func (q *unboundedQueue[T]) pop() (item T, isAvailable, isClosed bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return item, false, q.closed
	}

	item = q.items[0]
	var zero T
	q.items[0] = zero
	q.items = q.items[1:]

	return item, true, false
}
