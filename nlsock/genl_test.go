package nlsock

import "testing"

func TestFamilyCacheHitNeedsNoSocket(t *testing.T) {
	c := NewFamilyCache()
	c.byName["ovs_datapath"] = 27
	// A cache hit must not dereference sock at all.
	id, err := c.Lookup(nil, "ovs_datapath")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if id != 27 {
		t.Fatalf("id = %d, want 27", id)
	}
}
