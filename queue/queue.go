// Package queue implements the bounded blocking packet queue (component B):
// a fixed-size ring of raw messages guarded by a mutex and condition
// variable, the same shape as the teacher's transmit queue (src/tq.go's
// tq_mutex / wake_up_cond pair), except here it carries received messages
// from the demodulator worker to the stdout consumer instead of carrying
// outbound packets to a transmit thread.
package queue

import (
	"context"
	"sync"

	"github.com/shermpay/sofi/codec"
)

// Queue is a fixed-capacity FIFO of codec.RawMessage values. Only the
// demodulator goroutine calls Enqueue; only the consumer goroutine calls
// Dequeue, per spec.md 4.B.
type Queue struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	items    []codec.RawMessage
	start    int
	size     int
	dropped  uint64
}

// New allocates a queue with the given fixed capacity.
func New(capacity int) *Queue {
	q := &Queue{items: make([]codec.RawMessage, capacity)}
	q.notEmpty = sync.NewCond(&q.mu)
	return q
}

// Enqueue appends msg, or drops it and increments the drop counter if the
// queue is full. Never blocks.
func (q *Queue) Enqueue(msg codec.RawMessage) (dropped bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.size == len(q.items) {
		q.dropped++
		return true
	}
	q.items[(q.start+q.size)%len(q.items)] = msg
	q.size++
	q.notEmpty.Signal()
	return false
}

// Dequeue blocks until a message is available, then returns it. It returns
// false if ctx is cancelled before a message arrives.
func (q *Queue) Dequeue(ctx context.Context) (codec.RawMessage, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.size == 0 {
		if ctx.Err() != nil {
			return codec.RawMessage{}, false
		}
		waitOrCancel(q.notEmpty, ctx)
		if q.size == 0 && ctx.Err() != nil {
			return codec.RawMessage{}, false
		}
	}

	msg := q.items[q.start]
	q.start = (q.start + 1) % len(q.items)
	q.size--
	return msg, true
}

// Dropped returns the number of messages dropped due to overflow so far.
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// waitOrCancel waits on cond, but also wakes up (at least eventually) if ctx
// is cancelled, by arranging a one-shot goroutine that broadcasts when the
// context is done. sync.Cond has no native context support; this mirrors the
// pattern the teacher's tq_wait_while_empty uses a plain cond_wait for, with
// cancellation layered on top for clean shutdown (spec.md 5 "demodulator
// worker MUST NOT leave the packet queue locked across ... cancellation-safe
// points").
func waitOrCancel(cond *sync.Cond, ctx context.Context) {
	stop := context.AfterFunc(ctx, cond.Broadcast)
	defer stop()
	cond.Wait()
}
