package jit

import (
	"io"
	"strconv"
	"sync"

	"github.com/ebitengine/purego"
)

const sentinelByte = 0xCC

var (
	printOnce sync.Once
	printAddr uintptr

	// current receives the output of the running program. Guarded by invokeMu.
	current *sink
)

type sink struct {
	w   io.Writer
	err error
}

// PrintAddress returns the native address of the print builtin. Generated
// code calls it with the value to print as its single argument.
func PrintAddress() uintptr {
	printOnce.Do(func() {
		printAddr = purego.NewCallback(printBuiltin)
	})
	return printAddr
}

func printBuiltin(v uintptr) uintptr {
	if current == nil || current.err != nil {
		return 0
	}
	_, current.err = current.w.Write(FormatValue(uint64(v)))
	return 0
}

// FormatValue renders a printed value: sentinel padding is removed, the rest
// is formatted as a signed decimal and terminated by CRLF.
func FormatValue(v uint64) []byte {
	out := strconv.AppendInt(nil, int64(StripSentinel(v)), 10)
	return append(out, '\r', '\n')
}

// StripSentinel clears the run of 0xCC (int3) padding bytes at the
// high-order end of v. Bytes below the first other byte belong to the value.
func StripSentinel(v uint64) uint64 {
	for shift := 56; shift >= 0; shift -= 8 {
		if byte(v>>shift) != sentinelByte {
			break
		}
		v &^= 0xFF << shift
	}
	return v
}
