// Package vconn implements a polymorphic virtual-connection abstraction: a
// class-registered, poll-driven transport handle. Package ofconn registers
// the concrete tcp/ptcp classes; callers reach them only through Open and
// the Vconn interface here, decoupling "what transport" from "how the
// control loop drives it".
package vconn

import "golang.org/x/sys/unix"

// Want is the caller's poll-readiness request, passed to Prepoll.
type Want uint8

const (
	WantRecv Want = 1 << iota
	WantSend
	WantAccept
)

// Vconn is the operations every transport variant exposes. A passive
// listener implements Accept but returns "would block" forever from Recv
// and Send; an active connection implements Recv/Send but never Accept.
// Close releases the underlying fd and any staged buffers.
type Vconn interface {
	// Prepoll fills in pfd.Fd and pfd.Events for the next poll() call
	// according to want, and returns true if the caller should skip the
	// syscall entirely because work is already ready (e.g. a buffered
	// message recv already assembled).
	Prepoll(want Want, pfd *unix.PollFd) bool

	// Postpoll processes whatever readiness the OS reported in revents,
	// notably flushing a staged send buffer.
	Postpoll(revents int16) error

	// Recv returns the next complete message, or unix.EAGAIN if none is
	// ready yet, or io.EOF at a clean stream close.
	Recv() ([]byte, error)

	// Send stages or writes msg. It returns unix.EAGAIN if a message is
	// already staged ("would block"); otherwise msg is accepted for
	// delivery (possibly only partially written so far).
	Send(msg []byte) error

	// Accept returns a newly connected Vconn from a passive listener, or
	// unix.EAGAIN if none is pending.
	Accept() (Vconn, error)

	// Close releases the fd and any staged buffers. Close is idempotent.
	Close() error
}
