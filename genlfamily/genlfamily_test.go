//go:build linux

package genlfamily

import (
	"testing"

	"github.com/m-lab/ofcore/nlmsg"
	"github.com/m-lab/ofcore/nlsock"
)

// Generic-netlink controller attribute ids the stub "kernel" speaks
// (uapi/linux/genetlink.h).
const (
	ctrlAttrFamilyID   uint16 = 1
	ctrlAttrFamilyName uint16 = 2
)

func familyReply(seq, pid uint32, id uint16) nlmsg.Message {
	b := nlmsg.NewBuilder(64)
	b.PutNlMsgHdr(pid, seq, 0x10, 0, 0)
	b.PutGenlMsgHdr(1, 2)
	b.PutU16(ctrlAttrFamilyID, id)
	b.Finalize()
	raw := append([]byte(nil), b.Buffer().Bytes()...)
	hdr, err := nlmsg.ReadHeader(raw)
	if err != nil {
		panic(err)
	}
	return nlmsg.Message{Header: hdr, Raw: raw}
}

// requestedFamily decodes the CTRL_ATTR_FAMILY_NAME string out of a
// captured CTRL_CMD_GETFAMILY request.
func requestedFamily(t *testing.T, req []byte) string {
	t.Helper()
	result, err := nlmsg.Parse(req[nlmsg.HdrLen+nlmsg.GenlHdrLen:], nlmsg.Policy{
		ctrlAttrFamilyName: nlmsg.String(),
	})
	if err != nil {
		t.Fatalf("stub could not parse request attributes: %v", err)
	}
	name, ok := result.Attrs.String(ctrlAttrFamilyName)
	if !ok {
		t.Fatal("request carried no family name attribute")
	}
	return name
}

func TestResolveCachesPerName(t *testing.T) {
	ids := map[string]uint16{Datapath: 0x18, Vport: 0x19}

	var lastReq []byte
	recvCalls := 0
	sock := nlsock.NewStubSocket(77, nlsock.NewSeqCounter(1, 1),
		func(data []byte) error {
			lastReq = append([]byte(nil), data...)
			return nil
		},
		func() ([]nlmsg.Message, error) {
			recvCalls++
			hdr, err := nlmsg.ReadHeader(lastReq)
			if err != nil {
				t.Fatalf("stub could not read request header: %v", err)
			}
			name := requestedFamily(t, lastReq)
			id, ok := ids[name]
			if !ok {
				t.Fatalf("stub asked for unexpected family %q", name)
			}
			return []nlmsg.Message{familyReply(hdr.Seq, 77, id)}, nil
		})
	defer sock.Close()

	r := NewResolver()
	id, err := r.Resolve(sock, Datapath)
	if err != nil {
		t.Fatalf("Resolve(%q): %v", Datapath, err)
	}
	if id != 0x18 {
		t.Fatalf("Resolve(%q) = %#x, want 0x18", Datapath, id)
	}
	if recvCalls != 1 {
		t.Fatalf("recvFunc called %d times, want 1", recvCalls)
	}

	// A repeat resolution must come from the cache without I/O.
	id, err = r.Resolve(sock, Datapath)
	if err != nil {
		t.Fatalf("cached Resolve: %v", err)
	}
	if id != 0x18 || recvCalls != 1 {
		t.Fatalf("cached Resolve: id = %#x, recv calls = %d; want 0x18, 1", id, recvCalls)
	}

	// A different family misses the cache and round-trips once.
	id, err = r.Resolve(sock, Vport)
	if err != nil {
		t.Fatalf("Resolve(%q): %v", Vport, err)
	}
	if id != 0x19 || recvCalls != 2 {
		t.Fatalf("Resolve(%q): id = %#x, recv calls = %d; want 0x19, 2", Vport, id, recvCalls)
	}
}
