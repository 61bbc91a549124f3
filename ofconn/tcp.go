package ofconn

import (
	"io"
	"net"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sys/unix"

	"github.com/m-lab/ofcore/buffer"
	"github.com/m-lab/ofcore/metrics"
	"github.com/m-lab/ofcore/ofp"
	"github.com/m-lab/ofcore/uuid"
	"github.com/m-lab/ofcore/vconn"
)

func init() {
	vconn.Register("tcp", openActive)
	vconn.Register("ptcp", openPassive)
}

// activeConn is the tcp vconn class: an active TCP connection carrying
// length-framed OpenFlow messages.
type activeConn struct {
	fd         int
	connecting bool
	closed     bool

	rx       *buffer.Buffer
	rxTarget int // 0 until the header has been decoded

	tx *buffer.Buffer // nil when nothing is staged

	id string // SO_COOKIE-derived connection id, best-effort (see uuid.FromFd)
}

// ID returns this connection's globally unique, SO_COOKIE-derived
// identifier, or "" if the kernel didn't support deriving one (e.g. a
// socketpair fd in tests, or a pre-4.18 kernel).
func (c *activeConn) ID() string { return c.id }

// openActive parses suffix as host[::port] (falling back to host:port) and
// opens a blocking connect, then switches to non-blocking + TCP_NODELAY.
func openActive(suffix string) (vconn.Vconn, error) {
	host, port := suffix, ofp.TCPPort
	if i := strings.LastIndex(suffix, "::"); i >= 0 {
		host = suffix[:i]
		if p, err := strconv.Atoi(suffix[i+2:]); err == nil {
			port = p
		}
	} else if i := strings.LastIndex(suffix, ":"); i >= 0 {
		host = suffix[:i]
		if p, err := strconv.Atoi(suffix[i+1:]); err == nil {
			port = p
		}
	}

	ip, err := lookupIP(host)
	if err != nil {
		return nil, err
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, err
	}
	sa := &unix.SockaddrInet4{Port: port}
	copy(sa.Addr[:], ip.To4())
	if err := unix.Connect(fd, sa); err != nil {
		unix.Close(fd)
		return nil, err
	}
	return newActiveFromFd(fd)
}

// lookupIP resolves host to an IPv4 address.
func lookupIP(host string) (net.IP, error) {
	ips, err := net.LookupIP(host)
	if err != nil {
		return nil, err
	}
	for _, ip := range ips {
		if v4 := ip.To4(); v4 != nil {
			return v4, nil
		}
	}
	return nil, &net.AddrError{Err: "no A record", Addr: host}
}

// newActiveFromFd wraps an already-connected fd (used by both openActive
// and ptcp's Accept), switching it to non-blocking + TCP_NODELAY. A stream
// fd of another family (e.g. a unix socketpair) rejects TCP_NODELAY and is
// used without it.
func newActiveFromFd(fd int) (*activeConn, error) {
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, err
	}
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); err != nil && err != unix.EOPNOTSUPP && err != unix.ENOPROTOOPT {
		unix.Close(fd)
		return nil, err
	}
	id, _ := uuid.FromFd(fd) // best-effort; "" if the kernel can't produce SO_COOKIE
	return &activeConn{fd: fd, rx: buffer.New(ofp.HeaderLen), id: id}, nil
}

func (c *activeConn) State() State {
	return composeState(c.connecting, c.closed, c.rx.Size() > 0, c.tx != nil)
}

// Prepoll fills pfd for this connection's outstanding interest. It never
// reports immediate readiness: all work here genuinely needs a poll wait
// (including TCP connect completion, reported via POLLOUT).
func (c *activeConn) Prepoll(want vconn.Want, pfd *unix.PollFd) bool {
	pfd.Fd = int32(c.fd)
	var events int16
	if c.connecting || (want&vconn.WantSend != 0 && c.tx != nil) {
		events |= unix.POLLOUT
	}
	if want&vconn.WantRecv != 0 {
		events |= unix.POLLIN
	}
	pfd.Events = events
	return false
}

// Postpoll flushes a staged send on POLLOUT and completes a pending
// connect; other failures surface on the next Recv/Send call rather than
// here (the caller inspects revents itself).
func (c *activeConn) Postpoll(revents int16) error {
	if c.closed {
		return ErrClosed
	}
	if c.connecting && revents&unix.POLLOUT != 0 {
		c.connecting = false
	}
	if c.tx != nil && revents&unix.POLLOUT != 0 {
		return c.flush()
	}
	return nil
}

// Recv assembles one length-framed OpenFlow message.
func (c *activeConn) Recv() ([]byte, error) {
	if c.closed {
		return nil, ErrClosed
	}
	for {
		if c.rx.Size() < ofp.HeaderLen {
			n, err := c.readInto(ofp.HeaderLen - c.rx.Size())
			if err != nil {
				return nil, err
			}
			if n == 0 {
				if c.rx.Size() == 0 {
					return nil, io.EOF
				}
				return nil, ErrProtocol
			}
			continue
		}
		if c.rxTarget == 0 {
			hdr := ofp.ReadHeader(c.rx.Bytes())
			if int(hdr.Length) < ofp.HeaderLen {
				return nil, ErrProtocol
			}
			c.rxTarget = int(hdr.Length)
		}
		if c.rx.Size() < c.rxTarget {
			n, err := c.readInto(c.rxTarget - c.rx.Size())
			if err != nil {
				return nil, err
			}
			if n == 0 {
				return nil, ErrProtocol
			}
			continue
		}
		msg := make([]byte, c.rxTarget)
		copy(msg, c.rx.Bytes()[:c.rxTarget])
		c.rx.Reinit(ofp.HeaderLen)
		c.rxTarget = 0
		return msg, nil
	}
}

// readInto reads up to n bytes into rx's tailroom and commits however many
// bytes were actually read. EINTR is retried internally; EAGAIN and other
// errors are returned to the caller.
func (c *activeConn) readInto(n int) (int, error) {
	c.rx.ReserveTailroom(n)
	tail := c.rx.Tail()
	for {
		got, err := unix.Read(c.fd, tail[:n])
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, err
		}
		if got > 0 {
			c.rx.PutUninit(got)
			metrics.VconnBytesReceived.With(prometheus.Labels{"scheme": "tcp"}).Add(float64(got))
		}
		return got, nil
	}
}

// Send stages msg (copying it) if nothing is already staged, writes as much
// of it as the socket accepts right away, and leaves any unwritten
// remainder staged for Postpoll to flush.
func (c *activeConn) Send(msg []byte) error {
	if c.closed {
		return ErrClosed
	}
	if c.tx != nil {
		return ErrWouldBlock
	}
	buf := buffer.New(len(msg))
	buf.Put(msg)
	c.tx = buf
	return c.flush()
}

// flush writes as much of the staged buffer as possible, advancing past
// written bytes, and clears the stage once empty.
func (c *activeConn) flush() error {
	for c.tx.Size() > 0 {
		n, err := unix.Write(c.fd, c.tx.Bytes())
		if err == unix.EINTR {
			continue
		}
		if err == unix.EAGAIN {
			return nil
		}
		if err != nil {
			return err
		}
		metrics.VconnBytesSent.With(prometheus.Labels{"scheme": "tcp"}).Add(float64(n))
		c.tx.Pull(n)
	}
	c.tx = nil
	return nil
}

func (c *activeConn) Accept() (vconn.Vconn, error) {
	return nil, ErrWouldBlock
}

func (c *activeConn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return unix.Close(c.fd)
}
