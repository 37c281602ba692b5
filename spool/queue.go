package spool

// Queue adapts a Spool to the storage interface of a channel of []byte. The
// channel has no way to report storage failures, so I/O errors and corrupt
// records panic, which poisons the channel.
type Queue struct {
	spool *Spool
}

func AsQueue(s *Spool) *Queue {
	return &Queue{spool: s}
}

func (q *Queue) Push(b []byte) {
	if err := q.spool.Push(b); err != nil {
		panic(err)
	}
}

func (q *Queue) Pop() (b []byte, ok bool) {
	b, ok, err := q.spool.Pop()

	if err != nil {
		panic(err)
	}

	return
}

func (q *Queue) Len() int {
	return q.spool.Len()
}
