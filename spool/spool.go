// Package spool provides a durable, unbounded FIFO of byte records in a
// memory-mapped file. A Spool can back a channel through [AsQueue], so that
// queued items survive a restart of the process.
package spool

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/edsrzf/mmap-go"
	"go.uber.org/multierr"

	"github.com/webbmaffian/go-mpsc/internal/utils"
)

type Spool struct {
	data mmap.MMap
	mu   sync.Mutex
	file *os.File
	head *header
	err  error // Set when a failed resize left the mapping unusable
}

// Open opens the spool at filepath, or creates it if it doesn't exist. When
// creating, capacity is mandatory; it is the initial number of records and the
// file grows as needed. The record size includes a 12 byte record header, and
// must match the file's when reopening. Unread records of an existing file are
// kept.
func Open(filepath string, recordSize int, capacity int) (s *Spool, err error) {
	s = &Spool{
		head: newHeader(capacity, recordSize),
	}

	if recordSize <= recordHeadSize {
		return nil, fmt.Errorf("record size must be larger than %d bytes", recordHeadSize)
	}

	defer func() {
		if err != nil {
			err = multierr.Append(err, s.closeFiles())
			s = nil
		}
	}()

	var created bool
	info, err := os.Stat(filepath)

	if err == nil {
		if s.file, err = os.OpenFile(filepath, os.O_RDWR, 0); err != nil {
			return
		}

		var head header

		if head, err = readHead(s.file, info.Size()); err != nil {
			return
		}

		if head.recordSize != int64(recordSize) {
			return s, fmt.Errorf("record size mismatch: file has %d, expected %d", head.recordSize, recordSize)
		}
	} else if os.IsNotExist(err) {
		if s.head.capacity <= 0 {
			return s, errors.New("capacity is mandatory")
		}

		if s.file, err = os.Create(filepath); err != nil {
			return
		}

		if err = s.file.Truncate(s.head.fileSize()); err != nil {
			return
		}

		created = true
	} else {
		return
	}

	if s.data, err = mmap.Map(s.file, mmap.RDWR, 0); err != nil {
		return
	}

	if created {
		if n := int(s.head.headSize); copy(s.data[:n], utils.PointerToBytes(s.head)) != n {
			return s, errors.New("failed to write header")
		}

		if err = s.data.Flush(); err != nil {
			return
		}
	}

	s.head = utils.BytesToPointer[header](s.data[:s.head.headSize])

	return
}

// Push appends a copy of b to the tail of the spool, growing the file when it
// is full. It fails with ErrTooLarge if b doesn't fit in a record.
func (s *Spool) Push(b []byte) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}

	if s.data == nil {
		return ErrClosed
	}

	if int64(len(b)) > s.head.payloadSize() {
		return ErrTooLarge
	}

	if s.head.length == s.head.capacity {
		if err = s.grow(); err != nil {
			return
		}
	}

	s.write(s.slice(s.index(s.head.length)), b)
	s.head.length++
	s.head.written++

	return
}

// Pop removes the record at the head of the spool and returns a copy of its
// payload. It returns ok == false if the spool is empty. A record that fails
// its checksum is left in place and ErrCorrupt is returned.
func (s *Spool) Pop() (b []byte, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return nil, false, s.err
	}

	if s.data == nil {
		return nil, false, ErrClosed
	}

	if s.empty() {
		return
	}

	if b, err = s.readRecord(s.slice(s.index(0))); err != nil {
		return nil, false, fmt.Errorf("record %d: %w", s.head.read, err)
	}

	s.head.length--
	s.head.read++

	if s.head.length > 0 {
		s.head.startIdx = s.index(1)
	}

	return b, true, nil
}

func (s *Spool) write(slot []byte, b []byte) {
	binary.LittleEndian.PutUint32(slot[0:4], uint32(len(b)))
	binary.LittleEndian.PutUint64(slot[4:12], xxhash.Sum64(b))
	copy(slot[recordHeadSize:], b)
}

func (s *Spool) readRecord(slot []byte) (b []byte, err error) {
	size := int64(binary.LittleEndian.Uint32(slot[0:4]))

	if size > s.head.payloadSize() {
		return nil, ErrCorrupt
	}

	payload := slot[recordHeadSize : recordHeadSize+size]

	if xxhash.Sum64(payload) != binary.LittleEndian.Uint64(slot[4:12]) {
		return nil, ErrCorrupt
	}

	b = make([]byte, size)
	copy(b, payload)

	return
}

// Doubles the capacity. The file is remapped, and records that had wrapped
// around to the start of the ring are moved past the old end so the ring is
// contiguous again.
func (s *Spool) grow() (err error) {
	head := *s.head
	newCap := head.capacity * 2

	defer func() {
		if err != nil {
			s.err = fmt.Errorf("grow spool to %d records: %w", newCap, err)
			err = s.err
		}
	}()

	if err = s.data.Flush(); err != nil {
		return
	}

	s.head = nil

	if err = s.data.Unmap(); err != nil {
		return
	}

	head.capacity = newCap

	if err = s.file.Truncate(head.fileSize()); err != nil {
		return
	}

	if s.data, err = mmap.Map(s.file, mmap.RDWR, 0); err != nil {
		return
	}

	s.head = utils.BytesToPointer[header](s.data[:head.headSize])

	if wrapped := s.head.startIdx + s.head.length - s.head.capacity; wrapped > 0 {
		from := s.offset(0)
		to := s.offset(s.head.capacity)
		n := wrapped * s.head.recordSize

		copy(s.data[to:to+n], s.data[from:from+n])
	}

	s.head.capacity = newCap

	return
}

func (s *Spool) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}

	if s.data == nil {
		return ErrClosed
	}

	return s.data.Flush()
}

func (s *Spool) Close() (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err == nil && s.data != nil {
		err = s.data.Flush()
	}

	return multierr.Append(err, s.closeFiles())
}

func (s *Spool) closeFiles() (err error) {
	// The header lives in the mapping
	s.head = nil

	if s.data != nil {
		err = multierr.Append(err, s.data.Unmap())
		s.data = nil
	}

	if s.file != nil {
		err = multierr.Append(err, s.file.Close())
		s.file = nil
	}

	return
}

func (s *Spool) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return int(s.len())
}

func (s *Spool) len() int64 {
	if s.head == nil {
		return 0
	}

	return s.head.length
}

func (s *Spool) empty() bool {
	return s.len() <= 0
}

func (s *Spool) Cap() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.head == nil {
		return 0
	}

	return int(s.head.capacity)
}

// RecordSize is the size of a record slot, including its 12 byte header.
func (s *Spool) RecordSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.head == nil {
		return 0
	}

	return int(s.head.recordSize)
}

// Written is the number of records ever pushed to the spool file.
func (s *Spool) Written() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.head == nil {
		return 0
	}

	return s.head.written
}

// Read is the number of records ever popped from the spool file.
func (s *Spool) Read() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.head == nil {
		return 0
	}

	return s.head.read
}

func (s *Spool) slice(index int64) []byte {
	offset := s.offset(index)
	return s.data[offset : offset+s.head.recordSize]
}

func (s *Spool) offset(index int64) int64 {
	return s.head.headSize + index*s.head.recordSize
}

func (s *Spool) index(index int64) int64 {
	return s.wrap(s.head.startIdx + index)
}

func (s *Spool) wrap(index int64) int64 {
	return (index + s.head.capacity) % s.head.capacity
}
