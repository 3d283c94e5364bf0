// pkg/pager/backend.go
package pager

import (
	"io"
	"sync"
)

// Backend is the byte-addressed device a pager reads pages from and
// writes pages back to. File-backed and in-memory implementations exist.
type Backend interface {
	io.ReaderAt
	io.WriterAt

	// Size returns the current size of the backend in bytes.
	Size() (int64, error)

	// Sync flushes any pending writes to durable storage.
	Sync() error

	// Close releases any resources associated with the backend.
	Close() error
}

// MemoryBackend implements Backend on a growable byte slice.
// It backs the ":memory:" database mode.
type MemoryBackend struct {
	mu   sync.RWMutex
	data []byte
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

// ReadAt implements io.ReaderAt. Reads past the end return io.EOF.
func (m *MemoryBackend) ReadAt(p []byte, off int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt implements io.WriterAt, growing the buffer as needed.
func (m *MemoryBackend) WriteAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	end := off + int64(len(p))
	if end > int64(len(m.data)) {
		grown := make([]byte, end)
		copy(grown, m.data)
		m.data = grown
	}
	return copy(m.data[off:], p), nil
}

// Size returns the number of bytes written so far.
func (m *MemoryBackend) Size() (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.data)), nil
}

// Sync is a no-op for memory.
func (m *MemoryBackend) Sync() error {
	return nil
}

// Close drops the buffer.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = nil
	return nil
}
