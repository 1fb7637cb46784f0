package util

import (
	"errors"
	"sync"
)

var ErrRingDisposed = errors.New("ring buffer disposed")

// RingBuffer is a bounded FIFO queue used to hand items from I/O goroutines
// to the tick owner. Offer never blocks, a full buffer rejects the item.
type RingBuffer struct {
	sync.Mutex
	cond     *sync.Cond
	items    []any
	head     int
	size     int
	disposed bool
}

func NewRingBuffer(capacity int) *RingBuffer {
	if capacity < 1 {
		panic(capacity)
	}
	rb := &RingBuffer{items: make([]any, capacity)}
	rb.cond = sync.NewCond(&rb.Mutex)
	return rb
}

func (rb *RingBuffer) Offer(val any) (bool, error) {
	rb.Lock()
	defer rb.Unlock()

	if rb.disposed {
		return false, ErrRingDisposed
	}
	if rb.size == len(rb.items) {
		return false, nil
	}
	rb.items[(rb.head+rb.size)%len(rb.items)] = val
	rb.size++
	rb.cond.Signal()
	return true, nil
}

// Poll returns the oldest item, or nil when the buffer is empty and wait is
// false. A disposed buffer keeps returning its remaining items before the error.
func (rb *RingBuffer) Poll(wait bool) (any, error) {
	rb.Lock()
	defer rb.Unlock()

	for wait && rb.size == 0 && !rb.disposed {
		rb.cond.Wait()
	}
	if rb.size == 0 {
		if rb.disposed {
			return nil, ErrRingDisposed
		}
		return nil, nil
	}
	val := rb.items[rb.head]
	rb.items[rb.head] = nil
	rb.head = (rb.head + 1) % len(rb.items)
	rb.size--
	return val, nil
}

func (rb *RingBuffer) Len() int {
	rb.Lock()
	defer rb.Unlock()

	return rb.size
}

func (rb *RingBuffer) Dispose() {
	rb.Lock()
	defer rb.Unlock()

	rb.disposed = true
	rb.cond.Broadcast()
}
