// Package nlsock implements a reliable request/reply protocol on top of a
// raw AF_NETLINK socket: PID allocation, sequence-number generation,
// ENOBUFS-triggered resend, and strict sequence/pid filtering of replies.
// It is built directly on golang.org/x/sys/unix rather than a netlink
// library because the PID, sequence, and retry semantics here are bespoke
// (see DESIGN.md).
package nlsock

import "errors"

var (
	// ErrNoFreeSlot is returned by the PID allocator when all MaxSockets
	// per-process socket slots are in use.
	ErrNoFreeSlot = errors.New("nlsock: no free socket slot")

	// ErrClosed is returned by operations attempted on a closed Socket.
	ErrClosed = errors.New("nlsock: socket closed")

	// ErrSeqMismatch is returned by FamilyCache.Lookup when its transaction
	// completes without any data reply matching the request. Transact
	// itself discards replies whose sequence number doesn't match and
	// keeps reading rather than surfacing this to the caller.
	ErrSeqMismatch = errors.New("nlsock: reply sequence number mismatch")

	// ErrPidMismatch names a reply whose pid doesn't match this socket's
	// allocated pid. Transact discards such replies and keeps reading; no
	// function in this package returns it.
	ErrPidMismatch = errors.New("nlsock: reply pid mismatch")
)
