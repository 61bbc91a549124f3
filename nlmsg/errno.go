package nlmsg

import "golang.org/x/sys/unix"

// errnoFromCode turns a positive magnitude (as stored, negated, in an
// NLMSG_ERROR payload) into the corresponding errno value.
func errnoFromCode(magnitude int32) error {
	return unix.Errno(magnitude)
}
