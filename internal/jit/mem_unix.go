//go:build unix

package jit

import "golang.org/x/sys/unix"

type mmapBackend struct{}

func newHostBackend() Backend {
	return mmapBackend{}
}

func (mmapBackend) Allocate(size int) ([]byte, error) {
	return unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
}

func (mmapBackend) Protect(mem []byte) error {
	return unix.Mprotect(mem, unix.PROT_READ|unix.PROT_WRITE|unix.PROT_EXEC)
}

func (mmapBackend) Free(mem []byte) error {
	return unix.Munmap(mem)
}
