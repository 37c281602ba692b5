// Package load drives concurrent producers through one channel and verifies
// that the single consumer sees every message exactly once, in per-producer
// order.
package load

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/webbmaffian/go-mpsc/channel"
	"github.com/webbmaffian/go-mpsc/internal/config"
	"github.com/webbmaffian/go-mpsc/metrics"
	"github.com/webbmaffian/go-mpsc/spool"
)

const messageSize = 8

// Result summarizes a run.
type Result struct {
	Producers  int
	Expected   int
	Received   int
	Duplicates int
	OutOfOrder int
	Missing    int
	Elapsed    time.Duration
}

// OK reports whether every message arrived exactly once and in order.
func (r Result) OK() bool {
	return r.Received == r.Expected && r.Duplicates == 0 && r.OutOfOrder == 0 && r.Missing == 0
}

// Run executes one load run. When reg is not nil, the channel is exported on
// it for the duration of the run.
func Run(ctx context.Context, cfg *config.Config, log logr.Logger, reg prometheus.Registerer) (res Result, err error) {
	snd, rcv, cleanup, err := open(cfg, log)

	if err != nil {
		return
	}

	defer func() {
		err = multierr.Append(err, cleanup())
	}()

	if reg != nil {
		collector := metrics.NewCollector("load", rcv)

		if err = reg.Register(collector); err != nil {
			snd.Close()
			return res, fmt.Errorf("failed to register metrics: %w", err)
		}

		defer reg.Unregister(collector)
	}

	res.Producers = cfg.Producers
	res.Expected = cfg.Producers * cfg.Messages
	start := time.Now()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	for p := 0; p < cfg.Producers; p++ {
		p := p
		clone := snd.Clone()

		g.Go(func() error {
			defer clone.Close()

			for i := 0; i < cfg.Messages; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}

				clone.Send(encode(p, i))
			}

			log.V(1).Info("Producer done", "producer", p, "messages", cfg.Messages)

			return nil
		})
	}

	// From here on the channel closes as soon as the last producer is done
	snd.Close()

	next := make([]int, cfg.Producers)

	for {
		b, ok, rerr := rcv.ReceiveContext(ctx)

		if rerr != nil {
			err = rerr
			break
		}

		if !ok {
			break
		}

		p, seq, derr := decode(b)

		if derr != nil || p >= cfg.Producers {
			err = fmt.Errorf("unexpected message %x", b)
			cancel()
			break
		}

		res.Received++

		switch {
		case seq < next[p]:
			res.Duplicates++
		case seq > next[p]:
			res.OutOfOrder++
			next[p] = seq + 1
		default:
			next[p]++
		}
	}

	// Producers only fail when the run was cancelled, which err already tells
	if gerr := g.Wait(); err == nil {
		err = gerr
	}

	res.Elapsed = time.Since(start)

	for _, n := range next {
		if n < cfg.Messages {
			res.Missing += cfg.Messages - n
		}
	}

	log.Info("Load run finished",
		"producers", res.Producers,
		"received", res.Received,
		"elapsed", res.Elapsed,
		"ok", res.OK(),
	)

	return
}

func open(cfg *config.Config, log logr.Logger) (snd *channel.Sender[[]byte], rcv *channel.Receiver[[]byte], cleanup func() error, err error) {
	if cfg.Spool.Path == "" {
		snd, rcv = channel.New[[]byte](channel.WithLogger(log))
		return snd, rcv, func() error { return nil }, nil
	}

	s, err := spool.Open(cfg.Spool.Path, cfg.Spool.RecordSize, cfg.Spool.Capacity)

	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open spool: %w", err)
	}

	if n := s.Len(); n > 0 {
		return nil, nil, nil, multierr.Append(fmt.Errorf("spool %s still holds %d records", cfg.Spool.Path, n), s.Close())
	}

	log.V(1).Info("Using spool", "path", cfg.Spool.Path, "capacity", s.Cap(), "recordSize", s.RecordSize())

	snd, rcv = channel.NewWithQueue[[]byte](spool.AsQueue(s), channel.WithLogger(log))

	return snd, rcv, s.Close, nil
}

func encode(producer, seq int) []byte {
	b := make([]byte, messageSize)
	binary.BigEndian.PutUint32(b[0:4], uint32(producer))
	binary.BigEndian.PutUint32(b[4:8], uint32(seq))

	return b
}

func decode(b []byte) (producer, seq int, err error) {
	if len(b) != messageSize {
		return 0, 0, errors.New("invalid message size")
	}

	return int(binary.BigEndian.Uint32(b[0:4])), int(binary.BigEndian.Uint32(b[4:8])), nil
}
