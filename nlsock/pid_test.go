package nlsock

import "testing"

func TestPIDAllocatorEncodesProcessAndSlot(t *testing.T) {
	a := NewPIDAllocator(4242)
	pid, slot, err := a.Alloc()
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if slot != 0 {
		t.Fatalf("first Alloc slot = %d, want 0", slot)
	}
	if pid&processMask != uint32(4242)&processMask {
		t.Errorf("pid low bits = %d, want %d", pid&processMask, 4242&processMask)
	}
	if pid>>ProcessBits != 0 {
		t.Errorf("pid slot bits = %d, want 0", pid>>ProcessBits)
	}
}

func TestPIDAllocatorDistinctSlots(t *testing.T) {
	a := NewPIDAllocator(1)
	seen := map[uint32]bool{}
	for i := 0; i < 100; i++ {
		pid, _, err := a.Alloc()
		if err != nil {
			t.Fatalf("Alloc #%d: %v", i, err)
		}
		if seen[pid] {
			t.Fatalf("duplicate pid %d on Alloc #%d", pid, i)
		}
		seen[pid] = true
	}
}

func TestPIDAllocatorFreeReusesSlot(t *testing.T) {
	a := NewPIDAllocator(1)
	_, slot0, _ := a.Alloc()
	a.Free(slot0)
	_, slot1, err := a.Alloc()
	if err != nil {
		t.Fatalf("Alloc after Free: %v", err)
	}
	if slot1 != slot0 {
		t.Errorf("slot after Free = %d, want reused %d", slot1, slot0)
	}
}

func TestPIDAllocatorExhaustion(t *testing.T) {
	a := NewPIDAllocator(1)
	for i := 0; i < MaxSockets; i++ {
		if _, _, err := a.Alloc(); err != nil {
			t.Fatalf("Alloc #%d unexpectedly failed: %v", i, err)
		}
	}
	if _, _, err := a.Alloc(); err != ErrNoFreeSlot {
		t.Fatalf("final Alloc = %v, want ErrNoFreeSlot", err)
	}
}
