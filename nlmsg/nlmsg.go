// Package nlmsg implements the Netlink and Generic-Netlink wire format: the
// fixed nlmsghdr/genlmsghdr headers, 4-byte-aligned TLV attributes, a
// schema-driven attribute policy for validation, and a builder/parser pair
// that operate on a buffer.Buffer. It has no notion of a socket; nlsock
// layers the send/receive/transact protocol on top.
package nlmsg

import (
	"encoding/binary"
	"unsafe"
)

// Sizes of the fixed-layout pieces of a message, per uapi/linux/netlink.h
// and uapi/linux/genetlink.h.
const (
	HdrLen     = 16 // nlmsghdr
	GenlHdrLen = 4  // genlmsghdr
	AttrHdrLen = 4  // nlattr
)

// Message type and flag values used by this package and its callers.
const (
	Error = 2 // NLMSG_ERROR
	Done  = 3 // NLMSG_DONE

	FRequest = 1     // NLM_F_REQUEST
	FMulti   = 2     // NLM_F_MULTI
	FAck     = 4     // NLM_F_ACK
	FDump    = 0x300 // NLM_F_ROOT | NLM_F_MATCH
)

// endian is the byte order netlink messages are encoded in: host byte
// order, which in practice means "whatever this machine's native order
// is" rather than a fixed choice. Detected once at package init the same
// way vishvananda/netlink's nl.NativeEndian() does it.
var endian = nativeEndian()

func nativeEndian() binary.ByteOrder {
	var x uint16 = 1
	if *(*byte)(unsafe.Pointer(&x)) == 1 {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// Align rounds n up to the 4-byte alignment netlink attributes use.
func Align(n int) int {
	return (n + 3) &^ 3
}

// ReadU32 decodes a host-byte-order uint32 from the first 4 bytes of b, for
// callers (e.g. package datapath) that need to read a fixed-layout struct
// field following a genlmsghdr without importing their own byte-order
// logic.
func ReadU32(b []byte) uint32 {
	return endian.Uint32(b)
}

// WriteU32 encodes a host-byte-order uint32 into the first 4 bytes of b,
// the inverse of ReadU32.
func WriteU32(b []byte, v uint32) {
	endian.PutUint32(b, v)
}

// Header is the decoded form of an nlmsghdr.
type Header struct {
	Len   uint32
	Type  uint16
	Flags uint16
	Seq   uint32
	Pid   uint32
}

// ReadHeader decodes the first HdrLen bytes of data as an nlmsghdr. It
// returns ErrTruncated if data is shorter than HdrLen, and ErrTruncated
// again if the header's own Len field claims more bytes than data holds.
func ReadHeader(data []byte) (Header, error) {
	if len(data) < HdrLen {
		return Header{}, ErrTruncated
	}
	h := Header{
		Len:   endian.Uint32(data[0:4]),
		Type:  endian.Uint16(data[4:6]),
		Flags: endian.Uint16(data[6:8]),
		Seq:   endian.Uint32(data[8:12]),
		Pid:   endian.Uint32(data[12:16]),
	}
	if int(h.Len) < HdrLen || int(h.Len) > len(data) {
		return Header{}, ErrTruncated
	}
	return h, nil
}

// GenlHeader is the decoded form of a genlmsghdr.
type GenlHeader struct {
	Cmd     uint8
	Version uint8
}

// ReadGenlHeader decodes the GenlHdrLen bytes immediately following an
// nlmsghdr.
func ReadGenlHeader(data []byte) (GenlHeader, error) {
	if len(data) < GenlHdrLen {
		return GenlHeader{}, ErrTruncated
	}
	return GenlHeader{Cmd: data[0], Version: data[1]}, nil
}

// Message is a fully received, not-yet-attribute-parsed netlink message:
// the decoded header plus the complete raw bytes it was decoded from
// (header included), so that callers can locate the payload themselves
// (e.g. skip an extra genlmsghdr).
type Message struct {
	Header Header
	Raw    []byte
}

// Payload returns the bytes following the fixed nlmsghdr.
func (m *Message) Payload() []byte {
	return m.Raw[HdrLen:]
}
