package channel

import "context"

// Receiver is the single consuming handle of a channel. It must only be used
// from one goroutine at a time; concurrent receives are not supported.
type Receiver[T any] struct {
	state *state[T]
}

// Receive returns the oldest item, blocking while the channel is empty and at
// least one sender is alive. Once the channel is closed and drained, it
// returns the zero value and ok == false.
func (rcv *Receiver[T]) Receive() (v T, ok bool) {
	v, ok, _ = rcv.state.receive(context.Background())
	return
}

// ReceiveContext is like Receive, but gives up when ctx is done and returns its
// error. Queued items are still returned even if ctx is already done.
func (rcv *Receiver[T]) ReceiveContext(ctx context.Context) (v T, ok bool, err error) {
	return rcv.state.receive(ctx)
}

// TryReceive returns the oldest item without blocking. It fails with ErrEmpty
// if senders are alive but nothing is queued, and with ErrClosed if the channel
// is closed and drained.
func (rcv *Receiver[T]) TryReceive() (v T, err error) {
	return rcv.state.tryReceive()
}

// Wait blocks until there is an item to receive (true) or the channel is
// closed and drained (false). It does not consume anything.
func (rcv *Receiver[T]) Wait() bool {
	return rcv.state.waitReady()
}

func (rcv *Receiver[T]) Stats() Stats {
	return rcv.state.stats()
}
