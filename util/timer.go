package util

import "time"

// Timer wraps time.Timer so a timer can be reset safely whether or not its
// channel was already consumed.
type Timer struct {
	impl    *time.Timer
	drained bool
}

func NewTimer(d time.Duration) *Timer {
	impl := time.NewTimer(d)
	return &Timer{impl, false}
}

func (t *Timer) C() <-chan time.Time {
	return t.impl.C
}

// Drain must be called after a value was received from C.
func (t *Timer) Drain() {
	t.drained = true
}

func (t *Timer) Stop() {
	if !t.impl.Stop() && !t.drained {
		select {
		case <-t.impl.C:
		default:
		}
	}
	t.drained = true
}

func (t *Timer) Reset(d time.Duration) {
	if !t.drained && !t.impl.Stop() {
		select {
		case <-t.impl.C:
		default:
		}
	}
	t.impl.Reset(d)
	t.drained = false
}
