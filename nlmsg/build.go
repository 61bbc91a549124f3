package nlmsg

import "github.com/m-lab/ofcore/buffer"

// Builder lays out a netlink (optionally generic-netlink) message into a
// buffer.Buffer. A Builder is used once, in order: PutNlMsgHdr, optionally
// PutGenlMsgHdr, then any number of attribute Put* calls, then Finalize
// immediately before the message is sent.
type Builder struct {
	buf *buffer.Buffer
}

// NewBuilder allocates a Builder with capacityHint bytes of initial
// tailroom; it need not be exact, since the underlying buffer grows.
func NewBuilder(capacityHint int) *Builder {
	return &Builder{buf: buffer.New(capacityHint)}
}

// Buffer returns the underlying buffer. Do not call PutUninit/Pull/Reinit
// on it directly while a Builder is in use for anything but reading the
// finalized bytes.
func (b *Builder) Buffer() *buffer.Buffer { return b.buf }

// PutNlMsgHdr emplaces the 16-byte nlmsghdr at the start of an empty
// buffer, reserving tailroom for the header plus expectedPayload bytes.
// The length field is written as 0 and finalized later by Finalize. It
// panics if called on a non-empty buffer.
func (b *Builder) PutNlMsgHdr(pid, seq uint32, msgType, flags uint16, expectedPayload int) {
	if b.buf.Size() != 0 {
		panic("nlmsg: PutNlMsgHdr called on a non-empty buffer")
	}
	b.buf.ReserveTailroom(HdrLen + expectedPayload)
	hdr := b.buf.PutUninit(HdrLen)
	endian.PutUint32(hdr[0:4], 0)
	endian.PutUint16(hdr[4:6], msgType)
	endian.PutUint16(hdr[6:8], flags)
	endian.PutUint32(hdr[8:12], seq)
	endian.PutUint32(hdr[12:16], pid)
}

// PutGenlMsgHdr chains a 4-byte genlmsghdr after a PutNlMsgHdr call.
func (b *Builder) PutGenlMsgHdr(cmd, version uint8) {
	hdr := b.buf.PutUninit(GenlHdrLen)
	hdr[0] = cmd
	hdr[1] = version
	hdr[2] = 0
	hdr[3] = 0
}

// PutUnspecUninit emplaces an attribute header of the given type at the
// current tail and returns n uninitialized payload bytes, zero-padded up
// to the next 4-byte boundary. It panics if the aligned header+payload
// length would exceed 65535, which nla_len cannot represent.
func (b *Builder) PutUnspecUninit(attrType uint16, n int) []byte {
	total := AttrHdrLen + n
	if Align(total) > 0xffff {
		panic("nlmsg: attribute too large")
	}
	hdr := b.buf.PutUninit(AttrHdrLen)
	endian.PutUint16(hdr[0:2], uint16(total))
	endian.PutUint16(hdr[2:4], attrType)
	payload := b.buf.PutUninit(n)
	if pad := Align(total) - total; pad > 0 {
		padding := b.buf.PutUninit(pad)
		for i := range padding {
			padding[i] = 0
		}
	}
	return payload
}

// PutU8 appends a 1-byte attribute.
func (b *Builder) PutU8(attrType uint16, v uint8) {
	b.PutUnspecUninit(attrType, 1)[0] = v
}

// PutU16 appends a 2-byte attribute.
func (b *Builder) PutU16(attrType uint16, v uint16) {
	endian.PutUint16(b.PutUnspecUninit(attrType, 2), v)
}

// PutU32 appends a 4-byte attribute.
func (b *Builder) PutU32(attrType uint16, v uint32) {
	endian.PutUint32(b.PutUnspecUninit(attrType, 4), v)
}

// PutU64 appends an 8-byte attribute.
func (b *Builder) PutU64(attrType uint16, v uint64) {
	endian.PutUint64(b.PutUnspecUninit(attrType, 8), v)
}

// PutFlag appends a zero-length presence attribute.
func (b *Builder) PutFlag(attrType uint16) {
	b.PutUnspecUninit(attrType, 0)
}

// PutString appends a NUL-terminated string attribute. s must not itself
// contain a NUL byte.
func (b *Builder) PutString(attrType uint16, s string) {
	payload := b.PutUnspecUninit(attrType, len(s)+1)
	copy(payload, s)
	payload[len(s)] = 0
}

// PutNested finalizes inner's own nlmsg_len and embeds its bytes as the
// payload of a single attribute.
func (b *Builder) PutNested(attrType uint16, inner *Builder) {
	inner.Finalize()
	payload := b.PutUnspecUninit(attrType, inner.buf.Size())
	copy(payload, inner.buf.Bytes())
}

// Finalize writes the buffer's current size into the outer nlmsg_len
// field. Call it exactly once, immediately before handing the buffer to a
// socket's Send or Transact.
func (b *Builder) Finalize() {
	hdr := b.buf.AtAssert(0, HdrLen)
	endian.PutUint32(hdr[0:4], uint32(b.buf.Size()))
}

// SetFlags ORs extra bits into the already-written nlmsg_flags field, used
// by Transact to force NLM_F_ACK onto a request that didn't ask for one.
func (b *Builder) SetFlags(extra uint16) {
	hdr := b.buf.AtAssert(0, HdrLen)
	cur := endian.Uint16(hdr[6:8])
	endian.PutUint16(hdr[6:8], cur|extra)
}

// Seq returns the sequence number written by PutNlMsgHdr.
func (b *Builder) Seq() uint32 {
	hdr := b.buf.AtAssert(0, HdrLen)
	return endian.Uint32(hdr[8:12])
}
