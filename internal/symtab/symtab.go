// Package symtab maps variable names to their slots in the variable region.
package symtab

import (
	"errors"
	"fmt"
)

var (
	ErrUndefined = errors.New("undefined variable")
	ErrFull      = errors.New("variable region is full")
)

const slotStride = 8

// Table assigns every variable a stable offset on first write. Offsets are
// handed out in first-use order, 8 bytes apart, and never reused.
type Table struct {
	base    uint32
	size    uint32
	next    uint32
	offsets map[string]uint32
	order   []string
}

// New creates a table whose slots live in [base, base+size).
func New(base, size uint32) *Table {
	return &Table{
		base:    base,
		size:    size,
		offsets: make(map[string]uint32),
	}
}

// Read returns the offset of an already written variable.
func (t *Table) Read(name string) (uint32, error) {
	offset, ok := t.offsets[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUndefined, name)
	}
	return offset, nil
}

// Write returns the offset of name, allocating the next free slot if the
// variable has not been written before.
func (t *Table) Write(name string) (uint32, error) {
	if offset, ok := t.offsets[name]; ok {
		return offset, nil
	}
	if t.next+slotStride > t.size {
		return 0, fmt.Errorf("%w: no slot left for %s (%d variables)", ErrFull, name, len(t.order))
	}
	offset := t.base + t.next
	t.next += slotStride
	t.offsets[name] = offset
	t.order = append(t.order, name)
	return offset, nil
}

// Names returns the variables in the order their slots were allocated.
func (t *Table) Names() []string {
	return append([]string(nil), t.order...)
}

func (t *Table) Len() int {
	return len(t.order)
}
