// Package jit loads machine code into executable memory and runs it.
//
// A Buffer owns one region of page-aligned memory that is writable and
// executable at the same time. Code is appended at a cursor starting at the
// base address, which is also the entry point; the rest of the region is
// laid out as described in package layout. Every byte not written by Append
// holds the single-byte return opcode, so an empty buffer is a valid program
// that returns immediately.
package jit

// Backend hides the platform primitives behind executable memory.
type Backend interface {
	// Allocate returns size bytes of page-aligned, writable memory.
	Allocate(size int) ([]byte, error)
	// Protect makes mem readable, writable and executable.
	Protect(mem []byte) error
	// Free releases memory obtained from Allocate.
	Free(mem []byte) error
}

var host = newHostBackend()

// HostBackend returns the backend for the running platform.
func HostBackend() Backend {
	return host
}
