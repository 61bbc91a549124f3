package vconn

import "testing"

func TestSplitSchemeDoubleColon(t *testing.T) {
	scheme, suffix, ok := splitScheme("tcp::127.0.0.1:6633")
	if !ok || scheme != "tcp" || suffix != "127.0.0.1:6633" {
		t.Fatalf("got %q %q %v", scheme, suffix, ok)
	}
}

func TestSplitSchemeSingleColonFallback(t *testing.T) {
	scheme, suffix, ok := splitScheme("ptcp:6633")
	if !ok || scheme != "ptcp" || suffix != "6633" {
		t.Fatalf("got %q %q %v", scheme, suffix, ok)
	}
}

func TestSplitSchemeMalformed(t *testing.T) {
	if _, _, ok := splitScheme("nocolon"); ok {
		t.Fatal("expected ok=false for a url with no separator")
	}
}

func TestOpenUnknownScheme(t *testing.T) {
	if _, err := Open("bogus:suffix"); err == nil {
		t.Fatal("expected error for unregistered scheme")
	}
}

func TestRegisterAndOpen(t *testing.T) {
	seen := ""
	Register("stub-test-scheme", func(suffix string) (Vconn, error) {
		seen = suffix
		return nil, nil
	})
	if _, err := Open("stub-test-scheme::hello"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if seen != "hello" {
		t.Fatalf("suffix = %q, want hello", seen)
	}
}
