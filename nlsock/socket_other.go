//go:build !linux

package nlsock

import (
	"errors"

	"github.com/m-lab/ofcore/nlmsg"
)

// ErrUnsupported is returned by every Socket operation on platforms without
// AF_NETLINK. Netlink is a Linux-only facility; this stub exists only so
// the rest of the module (and its non-socket tests) builds elsewhere.
var ErrUnsupported = errors.New("nlsock: netlink is only supported on linux")

// Config mirrors the Linux Create options; every value is ignored here.
type Config struct {
	Group  uint32
	SndBuf int
	RcvBuf int
}

// Socket is a stand-in with no working fields on non-Linux platforms.
type Socket struct{}

// Create always fails on non-Linux platforms.
func Create(family int, cfg Config) (*Socket, error) { return nil, ErrUnsupported }

func (s *Socket) Pid() uint32                               { return 0 }
func (s *Socket) NextSeq() uint32                           { return 0 }
func (s *Socket) Close() error                              { return ErrUnsupported }
func (s *Socket) Send(data []byte, wait bool) error         { return ErrUnsupported }
func (s *Socket) Recv(wait bool) ([]nlmsg.Message, error)   { return nil, ErrUnsupported }
func (s *Socket) Transact(b *nlmsg.Builder) ([]nlmsg.Message, error) {
	return nil, ErrUnsupported
}
