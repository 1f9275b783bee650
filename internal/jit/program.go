package jit

import (
	"io"
	"os"
	"runtime"
	"sync"

	"github.com/ebitengine/purego"

	"github.com/iley/coki/internal/errors"
)

// Program is a loaded buffer ready to run. The entry point is the base of
// the buffer; generated code takes no arguments and returns one 64-bit value.
type Program struct {
	buf *Buffer
	out io.Writer
}

// SetOutput directs the print builtin to w for calls to Invoke. The default
// is standard output.
func (p *Program) SetOutput(w io.Writer) {
	p.out = w
}

// CanExecute reports whether generated code can run on this machine.
func CanExecute() bool {
	return runtime.GOARCH == "amd64"
}

// The print builtin is a single native callback, so only one program may run
// at a time.
var invokeMu sync.Mutex

// Invoke runs the program to completion on the calling goroutine and returns
// its result. The call cannot be interrupted.
func (p *Program) Invoke() (uint64, error) {
	const op = "jit.Invoke"

	if p.buf.released {
		return 0, errors.Wrap(ErrReleased, errors.EInternal, op)
	}
	if !CanExecute() {
		return 0, errors.Errorf(errors.EInternal, op, "generated code targets amd64, running on %s", runtime.GOARCH)
	}

	out := p.out
	if out == nil {
		out = os.Stdout
	}

	invokeMu.Lock()
	defer invokeMu.Unlock()

	printer := &sink{w: out}
	current = printer
	defer func() { current = nil }()

	r1, _, _ := purego.SyscallN(p.buf.entry())
	if printer.err != nil {
		return uint64(r1), &errors.Error{Code: errors.EIO, Op: op, Msg: "writing program output", Err: printer.err}
	}
	return uint64(r1), nil
}
