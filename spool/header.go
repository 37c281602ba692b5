package spool

import (
	"errors"
	"io"
	"os"
	"unsafe"

	"github.com/webbmaffian/go-mpsc/internal/utils"
)

// Payload length (4 bytes) and xxhash checksum (8 bytes) in front of each payload.
const recordHeadSize = 12

func newHeader(capacity int, recordSize int) *header {
	h := &header{
		capacity:   int64(capacity),
		recordSize: int64(recordSize),
	}
	h.headSize = int64(unsafe.Sizeof(*h))

	return h
}

type header struct {
	headSize   int64
	recordSize int64
	startIdx   int64
	length     int64
	capacity   int64
	written    uint64
	read       uint64
}

func (h header) fileSize() int64 {
	return h.headSize + h.capacity*h.recordSize
}

func (h header) payloadSize() int64 {
	return h.recordSize - recordHeadSize
}

// Reads the header from the start of an existing spool file and validates it
// against the file size.
func readHead(file *os.File, fileSize int64) (head header, err error) {
	expected := newHeader(0, 0)

	if fileSize < expected.headSize {
		return head, errors.New("file too small")
	}

	if _, err = file.Seek(0, io.SeekStart); err != nil {
		return
	}

	b := make([]byte, expected.headSize)

	if _, err = io.ReadFull(file, b); err != nil {
		return
	}

	head = *utils.BytesToPointer[header](b)

	if head.headSize != expected.headSize {
		return head, errors.New("invalid header size")
	}

	if head.recordSize <= recordHeadSize {
		return head, errors.New("invalid record size")
	}

	if head.capacity < 1 {
		return head, errors.New("invalid capacity")
	}

	// Start index must be less than capacity
	if head.startIdx < 0 || head.startIdx >= head.capacity {
		return head, errors.New("invalid start index")
	}

	// A capacity can never be less than the length
	if head.length < 0 || head.capacity < head.length {
		return head, errors.New("invalid length")
	}

	if fileSize != head.fileSize() {
		return head, errors.New("invalid file size")
	}

	return
}
