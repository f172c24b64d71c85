// Package gid extracts the identity of the calling goroutine.
//
// The runtime deliberately hides goroutine IDs, but the thread-binding
// guard needs a stable identity for the logical execution context that
// created a backend handle. The first line of a stack trace is the only
// stable place the runtime reports it.
package gid

import (
	"runtime"
	"strconv"
	"strings"
)

// ID returns the ID of the calling goroutine.
//
// The cost is one runtime.Stack call over a small stack buffer. Callers
// that need the ID on every access (Tracked strategy) should treat it as
// a cheap-but-not-free operation and avoid it in tight per-byte loops.
func ID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	// First line: "goroutine 123 [running]:"
	s := strings.TrimPrefix(string(buf[:n]), "goroutine ")
	i := strings.IndexByte(s, ' ')
	if i < 0 {
		return 0
	}
	id, err := strconv.ParseUint(s[:i], 10, 64)
	if err != nil {
		return 0
	}
	return id
}
