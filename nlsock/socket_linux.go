//go:build linux

package nlsock

import (
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sys/unix"

	"github.com/m-lab/ofcore/metrics"
	"github.com/m-lab/ofcore/nlmsg"
)

// defaultAlloc/defaultSeq are process-wide: every Socket created by this
// process shares one PID bitmap and one sequence series, the way a single
// process talking to the kernel over several netlink sockets must.
var (
	defaultOnce  sync.Once
	defaultAlloc *PIDAllocator
	defaultSeq   *SeqCounter
)

func defaults() (*PIDAllocator, *SeqCounter) {
	defaultOnce.Do(func() {
		pid := os.Getpid()
		defaultAlloc = NewPIDAllocator(pid)
		defaultSeq = NewSeqCounter(pid, time.Now().Unix())
	})
	return defaultAlloc, defaultSeq
}

// initialRecvBuf is the starting size of a Socket's peek buffer. It grows
// by doubling whenever a peek finds the pending datagram doesn't fit.
const initialRecvBuf = 2048

// Config carries the optional knobs Create applies to a new Socket: a
// multicast group to join (0 means none; groups 1..32 are joined via the
// legacy bind-time bitmask, larger group numbers via NETLINK_ADD_MEMBERSHIP),
// and kernel send/receive buffer sizes (0 leaves the system default).
type Config struct {
	Group  uint32
	SndBuf int
	RcvBuf int
}

// Socket is a single AF_NETLINK/SOCK_RAW socket bound to an allocated nl_pid,
// offering the Send/Recv/Transact request/reply protocol.
type Socket struct {
	fd      int
	pid     uint32
	slot    int
	alloc   *PIDAllocator
	seq     *SeqCounter
	family  int // netlink protocol family, e.g. unix.NETLINK_GENERIC
	closed  bool
	mu      sync.Mutex
	recvBuf []byte

	// sendFunc/recvFunc are what Transact actually calls; Create points
	// them at this Socket's own Send/Recv. Tests construct a Socket
	// directly with these swapped for a stub "kernel" (or, from other
	// packages, via NewStubSocket), since Send/Recv otherwise talk to a
	// real fd with no seam to inject one.
	sendFunc func([]byte) error
	recvFunc func() ([]nlmsg.Message, error)
}

// NewStubSocket returns an fd-less Socket whose send and receive paths are
// the supplied functions, so tests elsewhere in this module (genlfamily,
// datapath) can play the kernel's side of a transaction the way nlsock's
// own transact tests do by constructing the stub directly.
func NewStubSocket(pid uint32, seq *SeqCounter, send func([]byte) error, recv func() ([]nlmsg.Message, error)) *Socket {
	return &Socket{pid: pid, seq: seq, sendFunc: send, recvFunc: recv}
}

// Create opens a netlink socket of the given protocol family (e.g.
// unix.NETLINK_GENERIC, unix.NETLINK_ROUTE), binds it to a pid allocated
// from the process-wide bitmap, applies cfg's buffer sizes and multicast
// membership, and connects the peer address to the kernel (pid 0).
func Create(family int, cfg Config) (*Socket, error) {
	alloc, seq := defaults()
	pid, slot, err := alloc.Alloc()
	if err != nil {
		metrics.ErrorCount.With(prometheus.Labels{"type": "nobufs-pid"}).Inc()
		return nil, err
	}

	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_RAW, family)
	if err != nil {
		alloc.Free(slot)
		return nil, err
	}
	cleanup := func(err error) (*Socket, error) {
		unix.Close(fd)
		alloc.Free(slot)
		return nil, err
	}

	if cfg.SndBuf > 0 {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_SNDBUF, cfg.SndBuf); err != nil {
			return cleanup(err)
		}
	}
	if cfg.RcvBuf > 0 {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, cfg.RcvBuf); err != nil {
			return cleanup(err)
		}
	}

	sa := &unix.SockaddrNetlink{Family: unix.AF_NETLINK, Pid: pid}
	if cfg.Group >= 1 && cfg.Group <= 32 {
		sa.Groups = 1 << (cfg.Group - 1)
	}
	if err := unix.Bind(fd, sa); err != nil {
		return cleanup(err)
	}
	if cfg.Group > 32 {
		if err := unix.SetsockoptInt(fd, unix.SOL_NETLINK, unix.NETLINK_ADD_MEMBERSHIP, int(cfg.Group)); err != nil {
			return cleanup(err)
		}
	}
	// The kernel is always nl_pid 0; connecting pins the peer so Sendto
	// needs no per-call destination.
	if err := unix.Connect(fd, &unix.SockaddrNetlink{Family: unix.AF_NETLINK}); err != nil {
		return cleanup(err)
	}
	s := &Socket{
		fd:      fd,
		pid:     pid,
		slot:    slot,
		alloc:   alloc,
		seq:     seq,
		family:  family,
		recvBuf: make([]byte, initialRecvBuf),
	}
	s.sendFunc = func(data []byte) error { return s.Send(data, true) }
	s.recvFunc = func() ([]nlmsg.Message, error) { return s.Recv(true) }
	return s, nil
}

// Pid returns this socket's allocated nl_pid.
func (s *Socket) Pid() uint32 { return s.pid }

// NextSeq returns the next sequence number from the process-wide counter,
// for the caller to stamp onto a request via nlmsg.Builder.PutNlMsgHdr.
func (s *Socket) NextSeq() uint32 { return s.seq.Next() }

// Close releases the socket fd and its allocator slot. Close is idempotent.
func (s *Socket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.alloc == nil {
		// A stub socket owns no fd and no allocator slot.
		return nil
	}
	s.alloc.Free(s.slot)
	return unix.Close(s.fd)
}

// Send writes one finalized message to the kernel (dst pid 0). With
// wait=false the send is issued MSG_DONTWAIT and may fail with EAGAIN.
func (s *Socket) Send(data []byte, wait bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	flags := 0
	if !wait {
		flags = unix.MSG_DONTWAIT
	}
	sa := &unix.SockaddrNetlink{Family: unix.AF_NETLINK}
	for {
		err := unix.Sendto(s.fd, data, flags, sa)
		if err == unix.EINTR {
			continue
		}
		return err
	}
}

// Recv reads one datagram's worth of netlink messages: it peeks into
// recvBuf, doubling and re-peeking whenever the
// pending datagram doesn't fit, then issues a second, non-peeking 1-byte
// receive to pop the datagram off the kernel's queue (the peek already
// retrieved its bytes, so nothing but a queue-side dequeue is needed).
// EINTR is retried at both receive sites. With wait=false both receives
// are issued MSG_DONTWAIT and an empty queue surfaces as EAGAIN.
func (s *Socket) Recv(wait bool) ([]nlmsg.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	flags := 0
	if !wait {
		flags = unix.MSG_DONTWAIT
	}

	var n int
	var err error
	for {
		n, _, err = unix.Recvfrom(s.fd, s.recvBuf, flags|unix.MSG_PEEK)
		if err == unix.EINTR {
			continue
		}
		if err == unix.ENOBUFS {
			// Overrun: the caller (Transact) is expected to resend its
			// request rather than treat this as fatal.
			return nil, err
		}
		if err != nil {
			return nil, err
		}
		if n < len(s.recvBuf) {
			break
		}
		// The datagram may not fit; grow and peek again.
		s.recvBuf = make([]byte, len(s.recvBuf)*2)
	}

	data := make([]byte, n)
	copy(data, s.recvBuf[:n])

	var discard [1]byte
	for {
		_, _, err = unix.Recvfrom(s.fd, discard[:], flags)
		if err == unix.EINTR {
			continue
		}
		break
	}
	if err != nil {
		return nil, err
	}

	return parseMulti(data)
}

func parseMulti(data []byte) ([]nlmsg.Message, error) {
	var msgs []nlmsg.Message
	for len(data) > 0 {
		hdr, err := nlmsg.ReadHeader(data)
		if err != nil {
			return nil, err
		}
		raw := data[:hdr.Len]
		msgs = append(msgs, nlmsg.Message{Header: hdr, Raw: raw})
		data = data[nlmsg.Align(int(hdr.Len)):]
	}
	return msgs, nil
}

// Transact sends req (forcing NLM_F_ACK so a plain non-dump request still
// yields a reply) and collects replies until NLMSG_DONE or a non-multi
// terminal message. Replies whose seq or pid don't match are discarded
// and reading continues; an ENOBUFS on Recv unconditionally resends req
// and keeps reading (the kernel may drop a reply under buffer pressure
// any number of times; the request must be idempotent); an EAGAIN
// observed inside an NLMSG_ERROR payload is remapped to nlmsg.ErrProtocol.
func (s *Socket) Transact(b *nlmsg.Builder) ([]nlmsg.Message, error) {
	start := time.Now()
	defer func() {
		metrics.SyscallTimeHistogram.With(prometheus.Labels{"op": "transact"}).Observe(time.Since(start).Seconds())
	}()

	b.SetFlags(nlmsg.FAck)
	wantSeq := b.Seq()
	data := b.Buffer().Bytes()

	if err := s.sendFunc(data); err != nil {
		return nil, err
	}

	var results []nlmsg.Message
	for {
		msgs, err := s.recvFunc()
		if err == unix.ENOBUFS {
			metrics.TransactRetryCount.With(prometheus.Labels{"reason": "enobufs"}).Inc()
			if err := s.sendFunc(data); err != nil {
				return nil, err
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		for _, m := range msgs {
			if m.Header.Seq != wantSeq || m.Header.Pid != s.pid {
				metrics.TransactRetryCount.With(prometheus.Labels{"reason": "seq-mismatch"}).Inc()
				continue
			}
			if m.Header.Type == nlmsg.Done {
				return results, nil
			}
			if m.Header.Type == nlmsg.Error {
				perr := nlmsg.ParseError(m.Payload())
				if perr == unix.EAGAIN {
					return nil, nlmsg.ErrProtocol
				}
				if perr != nil {
					return nil, perr
				}
				if m.Header.Flags&nlmsg.FMulti == 0 {
					return results, nil
				}
				continue
			}
			results = append(results, m)
			if m.Header.Flags&nlmsg.FMulti == 0 {
				return results, nil
			}
		}
	}
}
