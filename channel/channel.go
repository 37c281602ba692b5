// Package channel provides a blocking, unbounded, multi-producer/single-consumer
// channel built on a mutex and a condition variable.
//
// Every channel has exactly one [Receiver] and any number of [Sender] handles.
// The channel is closed once the last sender has been closed: from then on
// [Receiver.Receive] drains whatever is left and then reports ok == false.
package channel

// New creates a channel backed by an unbounded in-memory ring buffer and
// returns its first sender and its only receiver.
func New[T any](opts ...Option) (*Sender[T], *Receiver[T]) {
	return NewWithQueue[T](newRing[T](), opts...)
}

// NewWithQueue creates a channel backed by the provided queue, which must not
// be used by anything else while the channel is alive.
func NewWithQueue[T any](queue Queue[T], opts ...Option) (*Sender[T], *Receiver[T]) {
	s := newState(queue, opts)

	return newSender(s), &Receiver[T]{state: s}
}
