//go:build !unix

// pkg/pager/file_other.go
package pager

import "os"

// FileBackend implements Backend on a regular file. Platforms without
// flock(2) open the file without an advisory lock.
type FileBackend struct {
	file *os.File
}

// OpenFileBackend opens or creates path.
func OpenFileBackend(path string, readOnly bool) (*FileBackend, error) {
	flags := os.O_RDWR | os.O_CREATE
	if readOnly {
		flags = os.O_RDONLY
	}
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
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

func (b *FileBackend) Sync() error {
	return b.file.Sync()
}

func (b *FileBackend) Close() error {
	return b.file.Close()
}
