package ofp

import "testing"

func TestHeaderRoundTrip(t *testing.T) {
	want := Header{Version: 4, Type: 10, Length: 64, Xid: 0xdeadbeef}
	buf := make([]byte, HeaderLen)
	PutHeader(buf, want)
	got := ReadHeader(buf)
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}
