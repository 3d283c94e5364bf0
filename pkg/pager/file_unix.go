//go:build unix

// pkg/pager/file_unix.go
package pager

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// FileBackend implements Backend on a regular file. The file is held under
// an exclusive advisory lock for as long as the backend is open.
type FileBackend struct {
	file *os.File
}

// OpenFileBackend opens or creates path and locks it. It returns ErrLocked
// when another process already holds the database.
func OpenFileBackend(path string, readOnly bool) (*FileBackend, error) {
	flags := os.O_RDWR | os.O_CREATE
	if readOnly {
		flags = os.O_RDONLY
	}

	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, err
	}

	how := unix.LOCK_EX
	if readOnly {
		how = unix.LOCK_SH
	}
	if err := unix.Flock(int(f.Fd()), how|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, ErrLocked
		}
		return nil, err
	}

	return &FileBackend{file: f}, nil
}

func (b *FileBackend) ReadAt(p []byte, off int64) (int, error) {
	return b.file.ReadAt(p, off)
}

func (b *FileBackend) WriteAt(p []byte, off int64) (int, error) {
	return b.file.WriteAt(p, off)
}

func (b *FileBackend) Size() (int64, error) {
	stat, err := b.file.Stat()
	if err != nil {
		return 0, err
	}
	return stat.Size(), nil
}

// Sync forces written pages to stable storage.
func (b *FileBackend) Sync() error {
	return unix.Fsync(int(b.file.Fd()))
}

// Close releases the lock and closes the file.
func (b *FileBackend) Close() error {
	var firstErr error
	if err := unix.Flock(int(b.file.Fd()), unix.LOCK_UN); err != nil {
		firstErr = err
	}
	if err := b.file.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
