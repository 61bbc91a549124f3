package ofconn

import (
	"strconv"

	"golang.org/x/sys/unix"

	"github.com/m-lab/ofcore/metrics"
	"github.com/m-lab/ofcore/ofp"
	"github.com/m-lab/ofcore/vconn"
)

// passiveConn is the ptcp vconn class: a non-blocking listening socket
// whose only operation is Accept.
type passiveConn struct {
	fd     int
	closed bool
}

// openPassive parses suffix as a port number, or uses ofp.TCPPort if
// suffix is empty, and binds INADDR_ANY:port with SO_REUSEADDR and a
// backlog of 10.
func openPassive(suffix string) (vconn.Vconn, error) {
	port := ofp.TCPPort
	if suffix != "" {
		p, err := strconv.Atoi(suffix)
		if err != nil {
			return nil, err
		}
		port = p
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, err
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, err
	}
	if err := unix.Bind(fd, &unix.SockaddrInet4{Port: port}); err != nil {
		unix.Close(fd)
		return nil, err
	}
	if err := unix.Listen(fd, 10); err != nil {
		unix.Close(fd)
		return nil, err
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, err
	}
	return &passiveConn{fd: fd}, nil
}

func (p *passiveConn) Prepoll(want vconn.Want, pfd *unix.PollFd) bool {
	pfd.Fd = int32(p.fd)
	if want&vconn.WantAccept != 0 {
		pfd.Events = unix.POLLIN
	}
	return false
}

func (p *passiveConn) Postpoll(revents int16) error { return nil }

func (p *passiveConn) Recv() ([]byte, error) { return nil, ErrWouldBlock }

func (p *passiveConn) Send(msg []byte) error { return ErrWouldBlock }

// Accept returns a new non-blocking, TCP_NODELAY-enabled active vconn.
func (p *passiveConn) Accept() (vconn.Vconn, error) {
	if p.closed {
		return nil, ErrClosed
	}
	fd, _, err := unix.Accept4(p.fd, unix.SOCK_NONBLOCK)
	if err == unix.EAGAIN {
		return nil, ErrWouldBlock
	}
	if err != nil {
		return nil, err
	}
	metrics.VconnAcceptedCount.Inc()
	return newActiveFromFd(fd)
}

func (p *passiveConn) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	return unix.Close(p.fd)
}
