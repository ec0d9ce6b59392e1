// Package filelock provides an advisory, whole-file lock used to guard a
// sackdb file against concurrent writers from other processes.
package filelock

import "errors"

// ErrUnsupported is returned by Lock/TryLock on platforms with no
// advisory locking implementation.
var ErrUnsupported = errors.New("filelock: not supported on this platform")

// Lock acquires a shared or exclusive advisory lock on fd, blocking until
// it is available.
func Lock(fd uintptr, exclusive bool) error {
	return lock(fd, exclusive)
}

// TryLock attempts to acquire the lock without blocking, returning false
// if it is already held by another process.
func TryLock(fd uintptr, exclusive bool) (bool, error) {
	return tryLock(fd, exclusive)
}

// Unlock releases a lock previously taken with Lock or TryLock.
func Unlock(fd uintptr) error {
	return unlock(fd)
}
