//go:build !unix && !windows

package jit

import (
	"fmt"
	"runtime"
)

type unsupportedBackend struct{}

func newHostBackend() Backend {
	return unsupportedBackend{}
}

func (unsupportedBackend) Allocate(size int) ([]byte, error) {
	return nil, fmt.Errorf("executable memory is not supported on %s", runtime.GOOS)
}

func (unsupportedBackend) Protect(mem []byte) error {
	return fmt.Errorf("executable memory is not supported on %s", runtime.GOOS)
}

func (unsupportedBackend) Free(mem []byte) error {
	return nil
}
