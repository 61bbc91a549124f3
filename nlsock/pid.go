package nlsock

import "sync"

// Netlink port-id layout: the low ProcessBits hold this process's unix
// pid, and the high SocketBits hold a
// per-process slot index, so that many sockets opened by one process each
// get a distinct, kernel-unique nl_pid without needing to ask the kernel to
// autobind one.
const (
	ProcessBits = 22
	SocketBits  = 32 - ProcessBits
	MaxSockets  = 1 << SocketBits

	processMask = (1 << ProcessBits) - 1
)

// PIDAllocator hands out socket slots from a fixed-size bitmap, the way a
// single process-wide allocator must: every Socket this process opens calls
// Alloc once and Free once, and the resulting nl_pid values never collide
// with each other even though they all encode the same unix pid.
type PIDAllocator struct {
	mu     sync.Mutex
	pid    uint32 // this process's unix pid, masked to ProcessBits
	bitmap [MaxSockets / 64]uint64
}

// NewPIDAllocator builds an allocator for the given unix process id.
func NewPIDAllocator(unixPID int) *PIDAllocator {
	return &PIDAllocator{pid: uint32(unixPID) & processMask}
}

// Alloc reserves the lowest-numbered free slot and returns the resulting
// nl_pid along with the slot index (needed later by Free). It returns
// ErrNoFreeSlot once all MaxSockets slots are in use.
func (a *PIDAllocator) Alloc() (pid uint32, slot int, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for word := 0; word < len(a.bitmap); word++ {
		if a.bitmap[word] == ^uint64(0) {
			continue
		}
		for bit := 0; bit < 64; bit++ {
			if a.bitmap[word]&(1<<uint(bit)) != 0 {
				continue
			}
			a.bitmap[word] |= 1 << uint(bit)
			slot = word*64 + bit
			pid = a.pid | (uint32(slot) << ProcessBits)
			return pid, slot, nil
		}
	}
	return 0, 0, ErrNoFreeSlot
}

// Free releases a slot previously returned by Alloc. Freeing an already-free
// slot is a no-op.
func (a *PIDAllocator) Free(slot int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.bitmap[slot/64] &^= 1 << uint(slot%64)
}
