package spool

import (
	"os"

	"github.com/edsrzf/mmap-go"
	"go.uber.org/multierr"

	"github.com/webbmaffian/go-mpsc/internal/utils"
)

// Readonly is a read-only view of a spool file that another process may be
// writing to. Its values are live but unsynchronized, and only meant for
// monitoring.
type Readonly struct {
	data mmap.MMap
	file *os.File
	head *header
}

func OpenReadonly(filepath string) (ch *Readonly, err error) {
	ch = &Readonly{}

	info, err := os.Stat(filepath)

	if err != nil {
		return nil, err
	}

	if ch.file, err = os.OpenFile(filepath, os.O_RDONLY, 0); err != nil {
		return nil, err
	}

	if _, err = readHead(ch.file, info.Size()); err != nil {
		return nil, multierr.Append(err, ch.file.Close())
	}

	if ch.data, err = mmap.Map(ch.file, mmap.RDONLY, 0); err != nil {
		return nil, multierr.Append(err, ch.file.Close())
	}

	ch.head = utils.BytesToPointer[header](ch.data[:newHeader(0, 0).headSize])

	return
}

func (ch *Readonly) StartIndex() int64 {
	if ch.head == nil {
		return 0
	}

	return ch.head.startIdx
}

func (ch *Readonly) Cap() int64 {
	if ch.head == nil {
		return 0
	}

	return ch.head.capacity
}

func (ch *Readonly) RecordSize() int64 {
	if ch.head == nil {
		return 0
	}

	return ch.head.recordSize
}

func (ch *Readonly) Len() int64 {
	if ch.head == nil {
		return 0
	}

	return ch.head.length
}

func (ch *Readonly) Written() uint64 {
	if ch.head == nil {
		return 0
	}

	return ch.head.written
}

func (ch *Readonly) Read() uint64 {
	if ch.head == nil {
		return 0
	}

	return ch.head.read
}

func (ch *Readonly) Close() (err error) {
	ch.head = nil

	if ch.data != nil {
		err = multierr.Append(err, ch.data.Unmap())
		ch.data = nil
	}

	if ch.file != nil {
		err = multierr.Append(err, ch.file.Close())
		ch.file = nil
	}

	return
}
