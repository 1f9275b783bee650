// Package layout describes the fixed regions of a JIT buffer.
//
// A buffer is laid out as follows, all offsets relative to its base address:
//
//	[0, VariableOffset)                         machine code, entry point at 0
//	[VariableOffset, VariableOffset+VariableSize) variable slots, 8 bytes each
//	[OutputOffset, OutputOffset+OutputSize)     output staging area
//
// Generated code addresses variables and the staging area by these absolute
// offsets, so they must not depend on the length of the code.
package layout

import (
	"os"

	"github.com/iley/coki/internal/util"
)

const (
	VariableOffset = 0x4000
	VariableSize   = 0x1000
	OutputOffset   = VariableOffset + VariableSize
	OutputSize     = 0x40

	// CodeLimit is the largest program that fits in front of the variable region.
	CodeLimit = VariableOffset
	// End is the first byte past the last reserved region.
	End = OutputOffset + OutputSize

	SlotSize = 8
)

// PageSize returns the memory protection granularity of the host.
func PageSize() int {
	return os.Getpagesize()
}

// PagesFor returns the number of pages needed to hold codeLen bytes of code
// together with the reserved regions.
func PagesFor(codeLen int) int {
	size := max(codeLen, End)
	page := PageSize()
	if !util.IsPowerOfTwo(page) {
		return (size + page - 1) / page
	}
	return util.Align(size, page) / page
}

// MinPages is the smallest buffer that still contains every reserved region.
func MinPages() int {
	return PagesFor(0)
}
