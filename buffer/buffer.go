// Package buffer implements a growable byte buffer with explicit head and
// tail room, the carrier type used throughout the netlink codec and the
// vconn transports. It plays the same role here that a plain []byte plays
// in most Go code, except that callers need stable offsets into a payload
// that is still being built (for example, a length field that can only be
// finalized once the whole message has been appended to the buffer).
package buffer

// Buffer is an owned, growable byte region with three logical spans:
// headroom (unused bytes before the payload), payload ([off, off+size)),
// and tailroom (unused bytes after the payload). Buffer is not safe for
// concurrent use; ownership transfers with the value the way a []byte's
// backing array does.
type Buffer struct {
	data []byte // full backing array
	off  int    // start of payload within data
	size int    // length of payload
}

// New allocates an empty buffer with at least capacity bytes of tailroom.
func New(capacity int) *Buffer {
	return &Buffer{data: make([]byte, capacity)}
}

// Headroom returns the number of unused bytes before the payload.
func (b *Buffer) Headroom() int { return b.off }

// Size returns the length of the payload.
func (b *Buffer) Size() int { return b.size }

// Tailroom returns the number of unused bytes after the payload.
func (b *Buffer) Tailroom() int { return len(b.data) - b.off - b.size }

// Capacity returns headroom + size + tailroom.
func (b *Buffer) Capacity() int { return len(b.data) }

// Bytes returns the payload. The slice is valid only until the next
// capacity-changing operation (ReserveTailroom, PutUninit growing past
// tailroom, or Reinit).
func (b *Buffer) Bytes() []byte { return b.data[b.off : b.off+b.size] }

// ReserveTailroom grows capacity, if necessary, so that at least n bytes of
// tailroom are available, without changing size. The payload origin may
// move; any previously returned slice from Bytes/PutUninit/Tail is invalid
// after this call if a reallocation occurred.
func (b *Buffer) ReserveTailroom(n int) {
	if b.Tailroom() >= n {
		return
	}
	newData := make([]byte, b.off+b.size+n)
	copy(newData[b.off:], b.data[b.off:b.off+b.size])
	b.data = newData
}

// ReserveHeadroom grows capacity, if necessary, so that at least n bytes of
// headroom are available, shifting the payload to the right. Existing
// payload bytes are preserved.
func (b *Buffer) ReserveHeadroom(n int) {
	if b.off >= n {
		return
	}
	newData := make([]byte, n+b.size+b.Tailroom())
	copy(newData[n:], b.data[b.off:b.off+b.size])
	b.data = newData
	b.off = n
}

// PutUninit grows tailroom if needed, advances size by n, and returns a
// pointer (as a slice) to the newly added, uninitialized region. The
// returned slice is valid only until the next capacity-changing operation.
func (b *Buffer) PutUninit(n int) []byte {
	b.ReserveTailroom(n)
	start := b.off + b.size
	b.size += n
	return b.data[start : start+n]
}

// Put appends a copy of p to the payload.
func (b *Buffer) Put(p []byte) {
	copy(b.PutUninit(len(p)), p)
}

// Pull advances the payload start past the first n bytes and shrinks size
// by n. It panics if n > Size().
func (b *Buffer) Pull(n int) {
	if n > b.size {
		panic("buffer: Pull n exceeds size")
	}
	b.off += n
	b.size -= n
}

// At returns a slice into the payload starting at offset, of at least
// minSize bytes, or nil if offset+minSize exceeds Size().
func (b *Buffer) At(offset, minSize int) []byte {
	if offset < 0 || minSize < 0 || offset+minSize > b.size {
		return nil
	}
	return b.data[b.off+offset : b.off+b.size]
}

// AtAssert is like At but panics instead of returning nil.
func (b *Buffer) AtAssert(offset, minSize int) []byte {
	v := b.At(offset, minSize)
	if v == nil {
		panic("buffer: AtAssert out of range")
	}
	return v
}

// Tail returns a slice at the current write position (data+size), with
// length equal to the current tailroom. Useful for building a header in
// place before committing to PutUninit's accounting.
func (b *Buffer) Tail() []byte {
	return b.data[b.off+b.size : len(b.data)]
}

// Reinit resets the buffer to empty with at least newCapacity bytes of
// tailroom, discarding any payload.
func (b *Buffer) Reinit(newCapacity int) {
	if cap(b.data) >= newCapacity {
		b.data = b.data[:cap(b.data)]
	} else {
		b.data = make([]byte, newCapacity)
	}
	b.off = 0
	b.size = 0
}
