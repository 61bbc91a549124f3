package nlsock

import "testing"

func TestSeqCounterMonotonic(t *testing.T) {
	c := NewSeqCounter(100, 1000)
	prev := c.Next()
	for i := 0; i < 10; i++ {
		next := c.Next()
		if next != prev+1 {
			t.Fatalf("Next() = %d, want %d", next, prev+1)
		}
		prev = next
	}
}

func TestSeqCounterSeedVariesWithInputs(t *testing.T) {
	a := NewSeqCounter(100, 1000)
	b := NewSeqCounter(101, 1000)
	if a.Next() == b.Next() {
		t.Error("different pids produced the same first sequence number")
	}
}
