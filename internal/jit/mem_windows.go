//go:build windows

package jit

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

type virtualBackend struct{}

func newHostBackend() Backend {
	return virtualBackend{}
}

func (virtualBackend) Allocate(size int) ([]byte, error) {
	addr, err := windows.VirtualAlloc(0, uintptr(size), windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size), nil
}

func (virtualBackend) Protect(mem []byte) error {
	var old uint32
	return windows.VirtualProtect(base(mem), uintptr(len(mem)), windows.PAGE_EXECUTE_READWRITE, &old)
}

func (virtualBackend) Free(mem []byte) error {
	// MEM_RELEASE frees the whole reservation and requires a zero size.
	return windows.VirtualFree(base(mem), 0, windows.MEM_RELEASE)
}
