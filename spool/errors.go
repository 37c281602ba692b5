package spool

type spoolError string

var _ error = spoolError("")

func (err spoolError) Error() string {
	return string(err)
}

const (
	ErrTooLarge = spoolError("payload does not fit in a record")
	ErrCorrupt  = spoolError("record checksum mismatch")
	ErrClosed   = spoolError("spool is closed")
)
