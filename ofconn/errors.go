package ofconn

import (
	"errors"

	"golang.org/x/sys/unix"
)

var (
	// ErrClosed is returned by any operation on a Vconn after Close.
	ErrClosed = errors.New("ofconn: vconn closed")

	// ErrProtocol marks a length-framing violation: an ofp_header.length
	// smaller than the header itself, or a stream that ends mid-message.
	ErrProtocol = errors.New("ofconn: malformed OpenFlow frame")

	// ErrWouldBlock is returned by Send when a message is already staged,
	// and by Accept/Recv when nothing is ready yet. It is the same value
	// Recv propagates from a nonblocking read, so callers can compare
	// against either name.
	ErrWouldBlock error = unix.EAGAIN
)
