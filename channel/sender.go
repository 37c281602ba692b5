package channel

import (
	"runtime"
	"sync/atomic"
)

// Sender is a producing handle. Each live handle counts as one producer; the
// channel closes when the last one is closed. A Sender must not be copied.
type Sender[T any] struct {
	state  *state[T]
	closed atomic.Bool
}

func newSender[T any](s *state[T]) (snd *Sender[T]) {
	snd = &Sender[T]{
		state: s,
	}

	// A handle that is dropped without Close still has to release its producer
	// count, or the receiver would wait forever.
	runtime.SetFinalizer(snd, (*Sender[T]).finalize)

	return
}

// Send appends v to the channel and wakes the receiver if it is waiting. It
// never blocks beyond the brief critical section, and does not care whether
// the receiver is still in use. Send panics with ErrClosed if this handle has
// been closed.
func (snd *Sender[T]) Send(v T) {
	snd.mustBeOpen()
	snd.state.push(v)
	snd.state.cond.Signal()
}

// Clone returns a new handle to the same channel, adding one producer.
func (snd *Sender[T]) Clone() *Sender[T] {
	snd.mustBeOpen()
	snd.state.addSender()

	return newSender(snd.state)
}

// Close releases this handle. Closing the last handle closes the channel.
// Calling Close more than once is a no-op.
func (snd *Sender[T]) Close() {
	if !snd.closed.CompareAndSwap(false, true) {
		return
	}

	runtime.SetFinalizer(snd, nil)
	snd.release()
}

func (snd *Sender[T]) Stats() Stats {
	return snd.state.stats()
}

func (snd *Sender[T]) release() {
	// The decrement is visible under the lock before the receiver is woken
	if snd.state.removeSender() {
		snd.state.cond.Signal()
	}
}

func (snd *Sender[T]) finalize() {
	if !snd.closed.CompareAndSwap(false, true) {
		return
	}

	snd.state.log.Error(nil, "Sender was garbage collected without being closed")

	// Never crash the finalizer goroutine on a poisoned channel
	defer func() {
		if r := recover(); r != nil {
			snd.state.log.Error(ErrPoisoned, "Could not release sender")
		}
	}()

	snd.release()
}

func (snd *Sender[T]) mustBeOpen() {
	if snd.closed.Load() {
		panic(ErrClosed)
	}
}
