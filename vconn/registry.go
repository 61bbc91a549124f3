package vconn

import (
	"fmt"
	"strings"
)

// OpenFunc is what a transport class registers: given the suffix portion of
// a vconn URL, it returns a ready-to-use Vconn.
type OpenFunc func(suffix string) (Vconn, error)

var classes = map[string]OpenFunc{}

// Register adds a transport class under scheme, for later lookup by Open.
// Intended to be called from an init() in the package implementing the
// class (e.g. ofconn).
func Register(scheme string, open OpenFunc) {
	classes[scheme] = open
}

// Open parses url as "scheme::suffix" (the historical separator, kept for
// URL compatibility) falling back to "scheme:suffix", and dispatches to
// the registered class's OpenFunc.
func Open(url string) (Vconn, error) {
	scheme, suffix, ok := splitScheme(url)
	if !ok {
		return nil, fmt.Errorf("vconn: malformed url %q", url)
	}
	open, ok := classes[scheme]
	if !ok {
		return nil, fmt.Errorf("vconn: unknown scheme %q", scheme)
	}
	return open(suffix)
}

func splitScheme(url string) (scheme, suffix string, ok bool) {
	if i := strings.Index(url, "::"); i >= 0 {
		return url[:i], url[i+2:], true
	}
	if i := strings.Index(url, ":"); i >= 0 {
		return url[:i], url[i+1:], true
	}
	return "", "", false
}
