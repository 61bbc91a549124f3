package nlmsg

import (
	"errors"

	"golang.org/x/sys/unix"
)

// Error types returned while building or parsing messages. ErrProtocol
// marks malformed wire data (the EPROTO class of failure); it is also
// what Transact (in package nlsock) returns for an EAGAIN observed
// inside an NLMSG_ERROR payload, to keep it distinguishable from the
// non-blocking "would block" signal.
var (
	ErrTruncated       = errors.New("nlmsg: message truncated")
	ErrAttrTruncated   = errors.New("nlmsg: attribute truncated")
	ErrAttrTooLarge    = errors.New("nlmsg: attribute exceeds 65535 bytes aligned")
	ErrAttrLength      = errors.New("nlmsg: attribute length outside policy range")
	ErrAttrString      = errors.New("nlmsg: string attribute missing or misplaced NUL terminator")
	ErrMissingRequired = errors.New("nlmsg: required attribute missing")
	ErrNotBuilt        = errors.New("nlmsg: buffer has no finalized nlmsghdr")
	ErrProtocol        = error(unix.EPROTO)
)
