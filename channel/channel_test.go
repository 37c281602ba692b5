package channel

import (
	"context"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/go-logr/logr/funcr"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

const blockedFor = 50 * time.Millisecond

func TestPingPong(t *testing.T) {
	snd, rcv := New[int]()
	snd.Send(42)

	v, ok := rcv.Receive()
	require.True(t, ok)
	assert.Equal(t, 42, v)

	snd.Close()

	v, ok = rcv.Receive()
	assert.False(t, ok)
	assert.Zero(t, v)
}

func TestDropSenderInstantly(t *testing.T) {
	snd, rcv := New[struct{}]()
	snd.Close()

	done := make(chan bool)

	go func() {
		_, ok := rcv.Receive()
		done <- ok
	}()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("receive on a channel without senders blocked")
	}
}

func TestFIFOSingleProducer(t *testing.T) {
	snd, rcv := New[string]()
	defer snd.Close()

	want := []string{"a", "b", "c", "d", "e"}

	for _, v := range want {
		snd.Send(v)
	}

	got := make([]string, 0, len(want))

	for range want {
		v, ok := rcv.Receive()
		require.True(t, ok)
		got = append(got, v)
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("received items mismatch (-want +got):\n%s", diff)
	}
}

func TestDrainAfterClose(t *testing.T) {
	snd, rcv := New[int]()

	for i := 0; i < 100; i++ {
		snd.Send(i)
	}

	snd.Close()

	for i := 0; i < 100; i++ {
		v, ok := rcv.Receive()
		require.True(t, ok)
		require.Equal(t, i, v)
	}

	_, ok := rcv.Receive()
	assert.False(t, ok)

	// Stays closed
	_, ok = rcv.Receive()
	assert.False(t, ok)
}

func TestConcurrentProducers(t *testing.T) {
	const perProducer = 5000

	type msg struct {
		producer int
		seq      int
	}

	snd, rcv := New[msg]()

	var g errgroup.Group

	for p := 0; p < 2; p++ {
		p := p
		clone := snd.Clone()

		g.Go(func() error {
			defer clone.Close()

			for i := 0; i < perProducer; i++ {
				clone.Send(msg{producer: p, seq: i})
			}

			return nil
		})
	}

	snd.Close()

	next := make([]int, 2)
	total := 0

	for {
		m, ok := rcv.Receive()

		if !ok {
			break
		}

		// Each producer's own items arrive in order, exactly once
		require.Equal(t, next[m.producer], m.seq, "producer %d", m.producer)
		next[m.producer]++
		total++
	}

	require.NoError(t, g.Wait())
	assert.Equal(t, 2*perProducer, total)
	assert.Equal(t, []int{perProducer, perProducer}, next)
}

func TestReceiveBlocksUntilSend(t *testing.T) {
	snd, rcv := New[int]()
	defer snd.Close()

	done := make(chan int)

	go func() {
		v, _ := rcv.Receive()
		done <- v
	}()

	select {
	case <-done:
		t.Fatal("receive returned before anything was sent")
	case <-time.After(blockedFor):
	}

	snd.Send(7)

	select {
	case v := <-done:
		assert.Equal(t, 7, v)
	case <-time.After(time.Second):
		t.Fatal("receive was not woken by send")
	}
}

func TestReceiveBlocksUntilLastSenderCloses(t *testing.T) {
	snd, rcv := New[int]()
	clone := snd.Clone()

	done := make(chan bool)

	go func() {
		_, ok := rcv.Receive()
		done <- ok
	}()

	snd.Close()

	select {
	case <-done:
		t.Fatal("receive returned while a sender was still alive")
	case <-time.After(blockedFor):
	}

	clone.Close()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("receive was not woken by the last sender closing")
	}
}

func TestSenderClose(t *testing.T) {
	snd, rcv := New[int]()
	clone := snd.Clone()

	assert.Equal(t, 2, rcv.Stats().Senders)

	clone.Close()
	clone.Close()

	assert.Equal(t, 1, rcv.Stats().Senders)
	assert.PanicsWithValue(t, ErrClosed, func() { clone.Send(1) })
	assert.PanicsWithValue(t, ErrClosed, func() { clone.Clone() })

	snd.Close()

	stats := rcv.Stats()
	assert.Equal(t, 0, stats.Senders)
	assert.True(t, stats.Closed)
}

func TestTryReceive(t *testing.T) {
	snd, rcv := New[int]()

	_, err := rcv.TryReceive()
	assert.ErrorIs(t, err, ErrEmpty)

	snd.Send(1)

	v, err := rcv.TryReceive()
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	snd.Send(2)
	snd.Close()

	v, err = rcv.TryReceive()
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	_, err = rcv.TryReceive()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestReceiveContext(t *testing.T) {
	t.Run("cancelled while blocked", func(t *testing.T) {
		snd, rcv := New[int]()
		defer snd.Close()

		ctx, cancel := context.WithCancel(context.Background())

		go func() {
			time.Sleep(blockedFor)
			cancel()
		}()

		_, ok, err := rcv.ReceiveContext(ctx)
		assert.False(t, ok)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("deadline", func(t *testing.T) {
		snd, rcv := New[int]()
		defer snd.Close()

		ctx, cancel := context.WithTimeout(context.Background(), blockedFor)
		defer cancel()

		_, ok, err := rcv.ReceiveContext(ctx)
		assert.False(t, ok)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("queued items win over done context", func(t *testing.T) {
		snd, rcv := New[int]()
		defer snd.Close()

		snd.Send(3)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		v, ok, err := rcv.ReceiveContext(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 3, v)
	})

	t.Run("closed", func(t *testing.T) {
		snd, rcv := New[int]()
		snd.Close()

		_, ok, err := rcv.ReceiveContext(context.Background())
		assert.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestWait(t *testing.T) {
	snd, rcv := New[int]()

	snd.Send(1)
	assert.True(t, rcv.Wait())
	assert.Equal(t, 1, rcv.Stats().Len, "wait must not consume")

	_, _ = rcv.Receive()

	done := make(chan bool)

	go func() {
		done <- rcv.Wait()
	}()

	select {
	case <-done:
		t.Fatal("wait returned on an empty channel")
	case <-time.After(blockedFor):
	}

	snd.Close()
	assert.False(t, <-done)
}

func TestStats(t *testing.T) {
	snd, rcv := New[int]()

	snd.Send(1)
	snd.Send(2)
	_, _ = rcv.Receive()

	assert.Equal(t, Stats{
		Len:      1,
		Senders:  1,
		Sent:     2,
		Received: 1,
	}, snd.Stats())

	snd.Close()
	_, _ = rcv.Receive()

	assert.Equal(t, Stats{
		Senders:  0,
		Sent:     2,
		Received: 2,
		Closed:   true,
	}, rcv.Stats())
}

func TestSendWithoutReceiver(t *testing.T) {
	snd, _ := New[int]()
	defer snd.Close()

	// The receiver is unreachable from here on
	runtime.GC()

	assert.NotPanics(t, func() {
		for i := 0; i < 3; i++ {
			snd.Send(i)
		}
	})

	stats := snd.Stats()
	assert.Equal(t, uint64(3), stats.Sent)
	assert.Equal(t, 3, stats.Len)
	assert.Zero(t, stats.Received)
}

type countingQueue struct {
	ring[int]
	lens int
}

func (q *countingQueue) Len() int {
	q.lens++
	return q.ring.Len()
}

func TestCloseLogsPendingOnlyWhenVerbose(t *testing.T) {
	t.Run("discarded", func(t *testing.T) {
		q := &countingQueue{ring: *newRing[int]()}
		snd, _ := NewWithQueue[int](q)

		snd.Send(1)
		snd.Close()

		assert.Zero(t, q.lens)
	})

	t.Run("verbose", func(t *testing.T) {
		var lines []string

		log := funcr.New(func(prefix, args string) {
			lines = append(lines, args)
		}, funcr.Options{Verbosity: 1})

		q := &countingQueue{ring: *newRing[int]()}
		snd, _ := NewWithQueue[int](q, WithLogger(log))

		snd.Send(1)
		snd.Send(2)
		snd.Close()

		assert.Equal(t, 1, q.lens)
		require.Len(t, lines, 1)
		assert.True(t, strings.Contains(lines[0], `"msg"="Last sender closed"`), lines[0])
		assert.True(t, strings.Contains(lines[0], `"pending"=2`), lines[0])
	})
}

type faultyQueue struct {
	ring[int]
}

func (q *faultyQueue) Push(v int) {
	if v < 0 {
		panic("negative item")
	}

	q.ring.Push(v)
}

func TestPoisoning(t *testing.T) {
	snd, rcv := NewWithQueue[int](&faultyQueue{ring: *newRing[int]()})

	done := make(chan any)

	go func() {
		defer func() {
			done <- recover()
		}()

		rcv.Receive()
	}()

	time.Sleep(blockedFor)

	assert.PanicsWithValue(t, "negative item", func() { snd.Send(-1) })

	select {
	case r := <-done:
		assert.Equal(t, ErrPoisoned, r)
	case <-time.After(time.Second):
		t.Fatal("blocked receiver was not woken by poisoning")
	}

	assert.PanicsWithValue(t, ErrPoisoned, func() { snd.Send(1) })
	assert.PanicsWithValue(t, ErrPoisoned, func() { rcv.TryReceive() })
	assert.PanicsWithValue(t, ErrPoisoned, func() { snd.Close() })
}

func TestLeakedSenderIsReleased(t *testing.T) {
	snd, rcv := New[int]()

	// Dropped without Close
	snd.Clone()
	snd.Close()

	require.Eventually(t, func() bool {
		runtime.GC()
		return rcv.Stats().Closed
	}, 5*time.Second, 10*time.Millisecond)

	_, ok := rcv.Receive()
	assert.False(t, ok)
}

func BenchmarkSendReceive(b *testing.B) {
	snd, rcv := New[int]()
	b.Cleanup(snd.Close)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		snd.Send(i)
		_, _ = rcv.Receive()
	}
}

func BenchmarkConcurrentMultipleSend(b *testing.B) {
	snd, rcv := New[int]()
	done := make(chan struct{})

	go func() {
		defer close(done)

		for {
			if _, ok := rcv.Receive(); !ok {
				return
			}
		}
	}()

	b.SetParallelism(100)
	b.ResetTimer()

	b.RunParallel(func(p *testing.PB) {
		clone := snd.Clone()
		defer clone.Close()

		for p.Next() {
			clone.Send(1)
		}
	})

	snd.Close()
	<-done
	b.StopTimer()
}
