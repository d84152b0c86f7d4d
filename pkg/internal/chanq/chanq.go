// Package chanq provides an unbounded FIFO exposed as a receive channel.
package chanq

import "sync"

// Queue buffers pushed values without limit and delivers them in order on
// Out. Push never blocks, so producers are never coupled to the pace of
// the consumer.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool
	signal chan struct{}
	out    chan T
	done   chan struct{}
}

// New creates a queue and starts its delivery goroutine. The goroutine exits
// once the queue is closed and drained, or when stop is closed.
func New[T any](stop <-chan struct{}) *Queue[T] {
	q := &Queue[T]{
		signal: make(chan struct{}, 1),
		out:    make(chan T),
		done:   make(chan struct{}),
	}
	go q.pump(stop)
	return q
}

// Push appends v. It returns false if the queue is closed.
func (q *Queue[T]) Push(v T) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, v)
	q.mu.Unlock()
	q.wake()
	return true
}

// Close stops intake. Values already pushed are still delivered, then Out is
// closed.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wake()
}

// Out returns the delivery channel.
func (q *Queue[T]) Out() <-chan T {
	return q.out
}

// Done is closed when the delivery goroutine has exited.
func (q *Queue[T]) Done() <-chan struct{} {
	return q.done
}

// Len returns the number of values waiting for delivery.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue[T]) wake() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *Queue[T]) pump(stop <-chan struct{}) {
	defer close(q.done)
	defer close(q.out)

	for {
		q.mu.Lock()
		if len(q.items) == 0 {
			closed := q.closed
			q.mu.Unlock()
			if closed {
				return
			}
			select {
			case <-q.signal:
				continue
			case <-stop:
				return
			}
		}
		next := q.items[0]
		q.mu.Unlock()

		select {
		case q.out <- next:
			q.mu.Lock()
			var zero T
			q.items[0] = zero
			q.items = q.items[1:]
			q.mu.Unlock()
		case <-stop:
			return
		}
	}
}
