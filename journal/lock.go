package journal

import (
	"os"

	"golang.org/x/sys/unix"
)

// acquireWriterLock takes an exclusive, non-blocking flock on path,
// returning the open file descriptor that holds it. The lock is
// released by closing the returned file. This is what gives the
// journal its single-writer guarantee: a second process
// opening the same journal fails fast instead of corrupting it.
func acquireWriterLock(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}
