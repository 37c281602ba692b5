package channel

// Queue is the FIFO storage behind a channel. It is only ever called while the
// channel lock is held, so implementations need no locking of their own.
// A panic raised by an implementation poisons the channel.
type Queue[T any] interface {
	Push(v T)
	Pop() (v T, ok bool)
	Len() int
}

const minRingCapacity = 16

// Unbounded ring buffer. Doubles its backing slice when full instead of
// overwriting the oldest item.
type ring[T any] struct {
	data     []T
	startIdx int
	length   int
}

func newRing[T any]() *ring[T] {
	return &ring[T]{
		data: make([]T, minRingCapacity),
	}
}

func (r *ring[T]) Push(v T) {
	if !r.spaceLeft() {
		r.grow()
	}

	r.data[r.index(r.length)] = v
	r.length++
}

func (r *ring[T]) Pop() (v T, ok bool) {
	if r.empty() {
		return
	}

	idx := r.index(0)
	v, r.data[idx] = r.data[idx], v // Release the reference held by the slot
	r.length--

	if r.length > 0 {
		r.startIdx = r.index(1)
	} else {
		r.startIdx = 0
	}

	return v, true
}

func (r *ring[T]) Len() int {
	return r.length
}

func (r *ring[T]) Cap() int {
	return len(r.data)
}

func (r *ring[T]) empty() bool {
	return r.length <= 0
}

func (r *ring[T]) spaceLeft() bool {
	return r.length < len(r.data)
}

func (r *ring[T]) grow() {
	data := make([]T, len(r.data)*2)

	// Unwrap while copying, so the oldest item lands at index 0
	n := copy(data, r.data[r.startIdx:])
	copy(data[n:], r.data[:r.startIdx])

	r.data = data
	r.startIdx = 0
}

func (r *ring[T]) index(index int) int {
	return r.wrap(r.startIdx + index)
}

func (r *ring[T]) wrap(index int) int {
	return (index + len(r.data)) % len(r.data)
}
