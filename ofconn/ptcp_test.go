package ofconn

import (
	"testing"

	"golang.org/x/sys/unix"

	"github.com/m-lab/ofcore/vconn"
)

func TestPassiveAcceptWouldBlockWhenEmpty(t *testing.T) {
	v, err := openPassive("0")
	if err != nil {
		t.Fatalf("openPassive: %v", err)
	}
	defer v.Close()
	p := v.(*passiveConn)
	if _, err := p.Accept(); err != ErrWouldBlock {
		t.Fatalf("Accept on empty backlog = %v, want ErrWouldBlock", err)
	}
}

func TestPassiveRecvSendAlwaysWouldBlock(t *testing.T) {
	v, err := openPassive("0")
	if err != nil {
		t.Fatalf("openPassive: %v", err)
	}
	defer v.Close()
	if _, err := v.Recv(); err != ErrWouldBlock {
		t.Fatalf("Recv = %v, want ErrWouldBlock", err)
	}
	if err := v.Send([]byte("x")); err != ErrWouldBlock {
		t.Fatalf("Send = %v, want ErrWouldBlock", err)
	}
}

func TestPassivePrepollSetsPollin(t *testing.T) {
	v, err := openPassive("0")
	if err != nil {
		t.Fatalf("openPassive: %v", err)
	}
	defer v.Close()
	var pfd unix.PollFd
	v.Prepoll(vconn.WantAccept, &pfd)
	if pfd.Events&unix.POLLIN == 0 {
		t.Errorf("Events = %v, want POLLIN set", pfd.Events)
	}
}
