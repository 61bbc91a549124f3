package ofconn

import (
	"io"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/m-lab/ofcore/buffer"
	"github.com/m-lab/ofcore/ofp"
	"github.com/m-lab/ofcore/vconn"
)

// pair returns two activeConns back to back over a unix socketpair, an
// in-process fixture instead of a real network connection.
func pair(t *testing.T) (*activeConn, *activeConn) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("Socketpair: %v", err)
	}
	a, err := newActiveFromFd(fds[0])
	if err != nil {
		t.Fatalf("newActiveFromFd(a): %v", err)
	}
	b, err := newActiveFromFd(fds[1])
	if err != nil {
		t.Fatalf("newActiveFromFd(b): %v", err)
	}
	t.Cleanup(func() { a.Close(); b.Close() })
	return a, b
}

func frame(xid uint32, payload string) []byte {
	buf := make([]byte, ofp.HeaderLen+len(payload))
	ofp.PutHeader(buf, ofp.Header{Version: 4, Type: 0, Length: uint16(len(buf)), Xid: xid})
	copy(buf[ofp.HeaderLen:], payload)
	return buf
}

func TestSendRecvWholeFrame(t *testing.T) {
	a, b := pair(t)
	msg := frame(1, "hello")
	if err := a.Send(msg); err != nil {
		t.Fatalf("Send: %v", err)
	}
	got, err := recvWithRetry(t, b)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if string(got) != string(msg) {
		t.Fatalf("got %q, want %q", got, msg)
	}
}

func TestSendWhileStagedWouldBlock(t *testing.T) {
	a, _ := pair(t)
	a.tx = buffer.New(4)
	a.tx.Put([]byte{1, 2, 3, 4})
	if err := a.Send(frame(1, "x")); err != ErrWouldBlock {
		t.Fatalf("Send while staged = %v, want ErrWouldBlock", err)
	}
}

func TestRecvEmptyStreamEOF(t *testing.T) {
	a, b := pair(t)
	b.Close()
	if _, err := a.Recv(); err != io.EOF {
		t.Fatalf("Recv on closed peer = %v, want io.EOF", err)
	}
}

func TestRecvShortFrameIsProtocolError(t *testing.T) {
	a, b := pair(t)
	// A header claiming a length shorter than the header itself.
	bad := make([]byte, ofp.HeaderLen)
	ofp.PutHeader(bad, ofp.Header{Length: 2})
	if err := a.Send(bad); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, err := recvWithRetry(t, b); err != ErrProtocol {
		t.Fatalf("Recv = %v, want ErrProtocol", err)
	}
}

func TestRecvZeroPayloadFrame(t *testing.T) {
	a, b := pair(t)
	// A header-only frame (length == HeaderLen) is legal and must be
	// delivered, not deferred as not-yet-ready.
	msg := frame(3, "")
	if err := a.Send(msg); err != nil {
		t.Fatalf("Send: %v", err)
	}
	got, err := recvWithRetry(t, b)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if len(got) != ofp.HeaderLen {
		t.Fatalf("len(got) = %d, want %d", len(got), ofp.HeaderLen)
	}
}

func TestRecvDripFedFrame(t *testing.T) {
	a, b := pair(t)
	msg := frame(5, string(make([]byte, 64-ofp.HeaderLen)))
	for i := range msg[ofp.HeaderLen:] {
		msg[ofp.HeaderLen+i] = byte(i)
	}

	chunks := []int{1, 2, 3, 10, 20, 27, 1}
	off := 0
	for i, n := range chunks {
		if _, err := unix.Write(a.fd, msg[off:off+n]); err != nil {
			t.Fatalf("Write chunk %d: %v", i, err)
		}
		off += n
		if off == len(msg) {
			break
		}
		// The frame is still incomplete; Recv must keep waiting without
		// surfacing a partial message.
		if _, err := b.Recv(); err != unix.EAGAIN {
			t.Fatalf("Recv after chunk %d = %v, want EAGAIN", i, err)
		}
	}

	got, err := recvWithRetry(t, b)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if string(got) != string(msg) {
		t.Fatalf("reassembled frame differs from the sent bytes")
	}
}

func TestPartialSendFlushedByPostpoll(t *testing.T) {
	a, b := pair(t)
	// Shrink the send buffer so one nonblocking write cannot take the
	// whole message, forcing the staging path.
	if err := unix.SetsockoptInt(a.fd, unix.SOL_SOCKET, unix.SO_SNDBUF, 4096); err != nil {
		t.Fatalf("SO_SNDBUF: %v", err)
	}
	msg := frame(7, string(make([]byte, 60000-ofp.HeaderLen)))
	for i := range msg[ofp.HeaderLen:] {
		msg[ofp.HeaderLen+i] = byte(i % 251)
	}

	if err := a.Send(msg); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if a.tx == nil {
		t.Fatal("expected a short write to leave a staged buffer")
	}
	var pfd unix.PollFd
	a.Prepoll(vconn.WantSend, &pfd)
	if pfd.Events&unix.POLLOUT == 0 {
		t.Fatalf("Prepoll with a staged buffer: Events = %v, want POLLOUT", pfd.Events)
	}
	if st := a.State(); st != TxStaged {
		t.Errorf("State() = %v, want TxStaged", st)
	}

	// Drain the peer while flushing, until the stage clears and every
	// byte has arrived; the wire sequence must match a single write.
	got := make([]byte, 0, len(msg))
	rbuf := make([]byte, 8192)
	for i := 0; i < 100000 && (a.tx != nil || len(got) < len(msg)); i++ {
		n, err := unix.Read(b.fd, rbuf)
		if err != nil && err != unix.EAGAIN {
			t.Fatalf("drain Read: %v", err)
		}
		if n > 0 {
			got = append(got, rbuf[:n]...)
		}
		if a.tx != nil {
			if err := a.Postpoll(unix.POLLOUT); err != nil {
				t.Fatalf("Postpoll: %v", err)
			}
		}
	}
	if string(got) != string(msg) {
		t.Fatalf("flushed wire bytes differ from the original message")
	}

	// The stage is free again; a new Send must be accepted.
	if err := a.Send(frame(8, "next")); err != nil {
		t.Fatalf("Send after flush: %v", err)
	}
}

// recvWithRetry polls Recv until it stops returning EAGAIN, bounding the
// number of attempts since the fixture is a loopback unix socketpair where
// writes land promptly.
func recvWithRetry(t *testing.T, c *activeConn) ([]byte, error) {
	t.Helper()
	for i := 0; i < 1000; i++ {
		msg, err := c.Recv()
		if err == unix.EAGAIN {
			continue
		}
		return msg, err
	}
	t.Fatal("Recv never became ready")
	return nil, nil
}
