package channel

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-logr/logr"
)

// Memory shared by every handle of one channel.
type state[T any] struct {
	mu       sync.Mutex
	cond     sync.Cond // Awaited by the receiver, notified by senders.
	queue    Queue[T]
	log      logr.Logger
	senders  int
	sent     uint64
	received uint64
	poisoned bool
}

func newState[T any](queue Queue[T], opts []Option) (s *state[T]) {
	o := options{
		log: logr.Discard(),
	}

	for _, opt := range opts {
		opt(&o)
	}

	s = &state[T]{
		queue:   queue,
		log:     o.log,
		senders: 1,
	}

	s.cond.L = &s.mu

	return
}

// Acquires the lock, panicking if a previous holder left the state torn.
func (s *state[T]) lock() {
	s.mu.Lock()

	if s.poisoned {
		s.mu.Unlock()
		panic(ErrPoisoned)
	}
}

// Releases the lock. Must be deferred directly: a panic unwinding through the
// critical section poisons the state before the lock is released.
func (s *state[T]) unlock() {
	if r := recover(); r != nil {
		if !s.poisoned {
			s.poisoned = true
			s.log.Error(fmt.Errorf("%v", r), "Channel poisoned by panic while locked")
		}

		// Wake the receiver so it observes the poisoning instead of sleeping forever
		s.cond.Broadcast()
		s.mu.Unlock()
		panic(r)
	}

	s.mu.Unlock()
}

func (s *state[T]) push(v T) {
	s.lock()
	defer s.unlock()

	s.queue.Push(v)
	s.sent++
}

func (s *state[T]) addSender() {
	s.lock()
	defer s.unlock()

	s.senders++
}

// Reports whether the removed sender was the last one.
func (s *state[T]) removeSender() (closed bool) {
	s.lock()
	defer s.unlock()

	s.senders--
	closed = s.senders == 0

	if log := s.log.V(1); closed && log.Enabled() {
		log.Info("Last sender closed", "pending", s.queue.Len())
	}

	return
}

// Pops the front item, blocking while the queue is empty and senders are alive.
func (s *state[T]) receive(ctx context.Context) (v T, ok bool, err error) {
	if ctx.Done() != nil {
		stop := context.AfterFunc(ctx, func() {
			s.mu.Lock()
			s.cond.Broadcast()
			s.mu.Unlock()
		})

		defer stop()
	}

	s.lock()
	defer s.unlock()

	for {
		if v, ok = s.queue.Pop(); ok {
			s.received++
			return
		}

		// If there are no senders, there will never be any more to read
		if s.senders == 0 {
			return
		}

		if err = ctx.Err(); err != nil {
			return
		}

		s.wait()
	}
}

func (s *state[T]) tryReceive() (v T, err error) {
	s.lock()
	defer s.unlock()

	var ok bool

	if v, ok = s.queue.Pop(); ok {
		s.received++
		return
	}

	if s.senders == 0 {
		return v, ErrClosed
	}

	return v, ErrEmpty
}

// Blocks until there is data to read (true), or until the channel is closed
// and drained (false).
func (s *state[T]) waitReady() bool {
	s.lock()
	defer s.unlock()

	for s.queue.Len() == 0 {
		if s.senders == 0 {
			return false
		}

		s.wait()
	}

	return true
}

// Must be called with the lock held.
func (s *state[T]) wait() {
	s.cond.Wait()

	if s.poisoned {
		panic(ErrPoisoned)
	}
}

func (s *state[T]) stats() Stats {
	s.lock()
	defer s.unlock()

	return Stats{
		Len:      s.queue.Len(),
		Senders:  s.senders,
		Sent:     s.sent,
		Received: s.received,
		Closed:   s.senders == 0,
	}
}
