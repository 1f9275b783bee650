package jit

import (
	"encoding/binary"
	stderrors "errors"
	"fmt"
	"unsafe"

	"go.uber.org/multierr"

	"github.com/iley/coki/internal/errors"
	"github.com/iley/coki/internal/layout"
)

var (
	ErrBufferFull = stderrors.New("jit buffer is full")
	ErrReleased   = stderrors.New("jit buffer has been released")
)

// RetOpcode is the x86 near return. Unwritten bytes of a buffer hold it.
const RetOpcode = 0xC3

type Buffer struct {
	backend  Backend
	mem      []byte
	cursor   int
	released bool
}

// Allocate obtains a buffer of the given number of pages from the host
// backend.
func Allocate(pages int) (*Buffer, error) {
	return AllocateWith(host, pages)
}

// AllocateWith obtains a buffer of the given number of pages from backend.
// The buffer must be big enough for every reserved region of the layout.
func AllocateWith(backend Backend, pages int) (*Buffer, error) {
	const op = "jit.Allocate"

	if pages <= 0 {
		return nil, errors.Errorf(errors.EAllocation, op, "invalid page count %d", pages)
	}
	size := pages * layout.PageSize()
	if size < layout.End {
		return nil, errors.Errorf(errors.EAllocation, op,
			"%d pages (%d bytes) cannot hold the reserved regions ending at %#x", pages, size, layout.End)
	}

	mem, err := backend.Allocate(size)
	if err != nil {
		return nil, &errors.Error{
			Code: errors.EAllocation,
			Op:   op,
			Msg:  fmt.Sprintf("allocating %d bytes", size),
			Err:  err,
		}
	}
	if len(mem) != size {
		return nil, multierr.Append(
			errors.Errorf(errors.EInternal, op, "backend returned %d bytes, asked for %d", len(mem), size),
			backend.Free(mem))
	}

	for i := range mem {
		mem[i] = RetOpcode
	}
	clear(mem[layout.VariableOffset : layout.VariableOffset+layout.VariableSize])
	clear(mem[layout.OutputOffset : layout.OutputOffset+layout.OutputSize])

	if err := backend.Protect(mem); err != nil {
		return nil, multierr.Append(&errors.Error{
			Code: errors.EAllocation,
			Op:   op,
			Msg:  "making buffer executable",
			Err:  err,
		}, backend.Free(mem))
	}

	return &Buffer{backend: backend, mem: mem}, nil
}

// Append copies code to the cursor and advances it. Code never extends into
// the variable region; an append that would is rejected as a whole.
func (b *Buffer) Append(code []byte) error {
	const op = "jit.Append"

	if b.released {
		return errors.Wrap(ErrReleased, errors.EInternal, op)
	}
	if b.cursor+len(code) > b.Cap() {
		return &errors.Error{
			Code: errors.ECompile,
			Op:   op,
			Err: fmt.Errorf("%w: %d bytes at offset %d exceed the %d byte code region",
				ErrBufferFull, len(code), b.cursor, b.Cap()),
		}
	}
	b.cursor += copy(b.mem[b.cursor:], code)
	return nil
}

// Len returns the number of code bytes appended so far.
func (b *Buffer) Len() int {
	return b.cursor
}

// Cap returns the number of code bytes the buffer can hold.
func (b *Buffer) Cap() int {
	return min(layout.CodeLimit, len(b.mem))
}

// Size returns the size of the whole buffer, always a multiple of the page size.
func (b *Buffer) Size() int {
	return len(b.mem)
}

// ReadUint64 reads the little-endian word at off.
func (b *Buffer) ReadUint64(off int) (uint64, error) {
	const op = "jit.Read"

	if b.released {
		return 0, errors.Wrap(ErrReleased, errors.EInternal, op)
	}
	if off < 0 || off+8 > len(b.mem) {
		return 0, errors.Errorf(errors.EInternal, op, "offset %#x out of bounds for a %d byte buffer", off, len(b.mem))
	}
	return binary.LittleEndian.Uint64(b.mem[off:]), nil
}

// Variable reads the slot at offset, which must lie in the variable region.
func (b *Buffer) Variable(offset uint32) (int64, error) {
	if offset < layout.VariableOffset || offset+layout.SlotSize > layout.VariableOffset+layout.VariableSize {
		return 0, errors.Errorf(errors.EInternal, "jit.Variable", "offset %#x is outside the variable region", offset)
	}
	v, err := b.ReadUint64(int(offset))
	return int64(v), err
}

// StagedOutput returns the last value handed to the print builtin.
func (b *Buffer) StagedOutput() (uint64, error) {
	return b.ReadUint64(layout.OutputOffset)
}

// Release frees the memory. Calling it again is a no-op.
func (b *Buffer) Release() error {
	if b.released {
		return nil
	}
	b.released = true
	mem := b.mem
	b.mem = nil
	b.cursor = 0
	if err := b.backend.Free(mem); err != nil {
		return &errors.Error{
			Code: errors.EAllocation,
			Op:   "jit.Release",
			Msg:  fmt.Sprintf("freeing %d bytes", len(mem)),
			Err:  err,
		}
	}
	return nil
}

// Program returns the handle through which the loaded code is run.
func (b *Buffer) Program() (*Program, error) {
	if b.released {
		return nil, errors.Wrap(ErrReleased, errors.EInternal, "jit.Program")
	}
	return &Program{buf: b}, nil
}

func (b *Buffer) entry() uintptr {
	return base(b.mem)
}

func base(mem []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(mem)))
}
