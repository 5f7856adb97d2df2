package rxpayload

import (
	"context"
	"fmt"
	"sync"
)

// Queue is the bounded, blocking delivery-descriptor queue the
// application's delivery thread drains (spec §4.6 "a pool of... an
// output queue of completed payload descriptors"). It is a power-of-two
// ring buffer guarded by a mutex/condvar, the same discipline the
// teacher's ring buffer uses, extended with context.Context-aware
// pulls so a consumer can stop waiting when its connection shuts down.
type Queue struct {
	size   uint64
	mutex  sync.Mutex
	cond   *sync.Cond
	buffer []*Delivery
	rIdx   uint64
	wIdx   uint64
	closed bool
}

// NewQueue allocates a Queue. size must be a power of two.
func NewQueue(size uint64) (*Queue, error) {
	if size == 0 || (size&(size-1)) != 0 {
		return nil, fmt.Errorf("rxpayload: queue size must be a power of two")
	}

	q := &Queue{
		size:   size,
		buffer: make([]*Delivery, size),
	}
	q.cond = sync.NewCond(&q.mutex)

	return q, nil
}

// Close makes every blocked and future Pull return false.
func (q *Queue) Close() {
	q.mutex.Lock()
	q.closed = true
	for i := range q.buffer {
		q.buffer[i] = nil
	}
	q.mutex.Unlock()
	q.cond.Broadcast()
}

// Push enqueues d, returning false if the queue is full. The caller
// still owns d's reorder runs in that case and must release them.
func (q *Queue) Push(d *Delivery) bool {
	q.mutex.Lock()

	if q.buffer[q.wIdx] != nil {
		q.mutex.Unlock()
		return false
	}

	q.buffer[q.wIdx] = d
	q.wIdx = (q.wIdx + 1) % q.size

	q.mutex.Unlock()
	q.cond.Broadcast()

	return true
}

// Pull blocks until a delivery is available, the queue is closed, or ctx
// is done. A nil ctx behaves like context.Background().
func (q *Queue) Pull(ctx context.Context) (*Delivery, bool) {
	if ctx != nil && ctx.Done() != nil {
		stop := make(chan struct{})
		defer close(stop)

		go func() {
			select {
			case <-ctx.Done():
				q.mutex.Lock()
				q.cond.Broadcast()
				q.mutex.Unlock()
			case <-stop:
			}
		}()
	}

	for {
		q.mutex.Lock()

		d := q.buffer[q.rIdx]
		if d != nil {
			q.buffer[q.rIdx] = nil
			q.rIdx = (q.rIdx + 1) % q.size
			q.mutex.Unlock()
			return d, true
		}

		if q.closed {
			q.mutex.Unlock()
			return nil, false
		}

		if ctx != nil {
			select {
			case <-ctx.Done():
				q.mutex.Unlock()
				return nil, false
			default:
			}
		}

		q.cond.Wait()
		q.mutex.Unlock()
	}
}
