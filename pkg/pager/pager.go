// pkg/pager/pager.go
package pager

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
)

const (
	// Database header constants
	headerSize      = 100
	magicString     = "rrrdb format 1\x00"
	defaultPageSize = 4096
	minPageSize     = 512
	maxPageSize     = 32768

	// MemoryPath opens a pager on a MemoryBackend
	MemoryPath = ":memory:"
)

var (
	ErrInvalidHeader   = errors.New("invalid database header")
	ErrInvalidPageSize = errors.New("invalid page size")
	ErrPageNotFound    = errors.New("page not found")
	ErrReadOnly        = errors.New("pager is read-only")
	ErrLocked          = errors.New("database is locked by another process")
	ErrClosed          = errors.New("pager is closed")
)

// Options configures the pager
type Options struct {
	PageSize    int  // Page size in bytes for new databases (default 4096)
	ReadOnly    bool // Open in read-only mode
	SyncOnFlush bool // fsync the backend after every Flush
}

// Pager hands out fixed-size pages of a Backend. Every page touched is kept
// in memory until Close; modified pages are written back by Flush.
type Pager struct {
	mu        sync.Mutex
	backend   Backend
	opts      Options
	pageSize  int
	pageCount uint32
	freeHead  uint32
	freeCount uint32
	cache     map[uint32]*Page
	dirtyHdr  bool
	closed    bool
}

// OpenFile opens or creates a database file at path. MemoryPath selects
// an in-memory backend.
func OpenFile(path string, opts Options) (*Pager, error) {
	var (
		backend Backend
		err     error
	)
	if path == MemoryPath {
		backend = NewMemoryBackend()
	} else {
		backend, err = OpenFileBackend(path, opts.ReadOnly)
		if err != nil {
			return nil, err
		}
	}

	p, err := Open(backend, opts)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return p, nil
}

// Open initializes a pager over backend. An empty backend gets a fresh
// header; otherwise the existing header is validated and loaded.
func Open(backend Backend, opts Options) (*Pager, error) {
	pageSize := opts.PageSize
	if pageSize == 0 {
		pageSize = defaultPageSize
	}
	if pageSize < minPageSize || pageSize > maxPageSize {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPageSize, pageSize)
	}

	p := &Pager{
		backend:  backend,
		opts:     opts,
		pageSize: pageSize,
		cache:    make(map[uint32]*Page),
	}

	size, err := backend.Size()
	if err != nil {
		return nil, err
	}

	if size == 0 {
		if opts.ReadOnly {
			return nil, fmt.Errorf("%w: empty database opened read-only", ErrInvalidHeader)
		}
		// New database: page 0 holds only the header
		p.pageCount = 1
		p.dirtyHdr = true
		if err := p.flushLocked(); err != nil {
			return nil, err
		}
		return p, nil
	}

	header := make([]byte, headerSize)
	if _, err := backend.ReadAt(header, 0); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if string(header[0:len(magicString)]) != magicString {
		return nil, ErrInvalidHeader
	}

	p.pageSize = int(binary.LittleEndian.Uint32(header[16:20]))
	if p.pageSize < minPageSize || p.pageSize > maxPageSize {
		return nil, fmt.Errorf("%w: header page size %d", ErrInvalidHeader, p.pageSize)
	}
	p.pageCount = binary.LittleEndian.Uint32(header[20:24])
	p.freeHead = GetFreelistHead(header)
	p.freeCount = GetFreePageCount(header)

	return p, nil
}

// encodeHeader renders the header page
func (p *Pager) encodeHeader() []byte {
	header := make([]byte, p.pageSize)
	copy(header[0:16], magicString)
	binary.LittleEndian.PutUint32(header[16:20], uint32(p.pageSize))
	binary.LittleEndian.PutUint32(header[20:24], p.pageCount)
	PutFreelistHead(header, p.freeHead)
	PutFreePageCount(header, p.freeCount)
	return header
}

// PageSize returns the page size
func (p *Pager) PageSize() int {
	return p.pageSize
}

// PageCount returns the number of pages, including the header page
func (p *Pager) PageCount() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pageCount
}

// FreePageCount returns the number of pages on the freelist
func (p *Pager) FreePageCount() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.freeCount
}

// ReadOnly reports whether the pager refuses writes
func (p *Pager) ReadOnly() bool {
	return p.opts.ReadOnly
}

// Get retrieves a page by number. Page 0 is the header and is never
// handed out.
func (p *Pager) Get(pageNo uint32) (*Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrClosed
	}
	return p.getLocked(pageNo)
}

func (p *Pager) getLocked(pageNo uint32) (*Page, error) {
	if page, ok := p.cache[pageNo]; ok {
		return page, nil
	}

	if pageNo == 0 || pageNo >= p.pageCount {
		return nil, fmt.Errorf("%w: %d", ErrPageNotFound, pageNo)
	}

	page := newPage(pageNo, p.pageSize)
	offset := int64(pageNo) * int64(p.pageSize)
	// A short read at the tail means the page was never written; it stays zeroed
	if _, err := p.backend.ReadAt(page.data, offset); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read page %d: %w", pageNo, err)
	}

	p.cache[pageNo] = page
	return page, nil
}

// Allocate returns a zeroed page, reusing a freelist page when available
func (p *Pager) Allocate() (*Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrClosed
	}
	if p.opts.ReadOnly {
		return nil, ErrReadOnly
	}

	if p.freeHead != 0 {
		return p.popFreePage()
	}

	pageNo := p.pageCount
	p.pageCount++
	p.dirtyHdr = true

	page := newPage(pageNo, p.pageSize)
	page.dirty = true
	p.cache[pageNo] = page

	return page, nil
}

// Flush writes every dirty page and the header to the backend. With
// SyncOnFlush set the backend is synced afterwards.
func (p *Pager) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	if err := p.flushLocked(); err != nil {
		return err
	}
	if p.opts.SyncOnFlush && !p.opts.ReadOnly {
		return p.backend.Sync()
	}
	return nil
}

func (p *Pager) flushLocked() error {
	if p.opts.ReadOnly {
		return nil
	}

	dirty := make([]uint32, 0)
	for pageNo, page := range p.cache {
		if page.dirty {
			dirty = append(dirty, pageNo)
		}
	}
	slices.Sort(dirty)

	for _, pageNo := range dirty {
		page := p.cache[pageNo]
		offset := int64(pageNo) * int64(p.pageSize)
		if _, err := p.backend.WriteAt(page.data, offset); err != nil {
			return fmt.Errorf("write page %d: %w", pageNo, err)
		}
		page.dirty = false
	}

	if p.dirtyHdr || len(dirty) > 0 {
		if _, err := p.backend.WriteAt(p.encodeHeader(), 0); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		p.dirtyHdr = false
	}
	return nil
}

// Sync flushes all changes and forces them to stable storage
func (p *Pager) Sync() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	if p.opts.ReadOnly {
		return nil
	}
	if err := p.flushLocked(); err != nil {
		return err
	}
	return p.backend.Sync()
}

// Close flushes, syncs and closes the backend
func (p *Pager) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	if !p.opts.ReadOnly {
		if err := p.flushLocked(); err != nil {
			p.backend.Close()
			return err
		}
		if err := p.backend.Sync(); err != nil {
			p.backend.Close()
			return err
		}
	}

	p.cache = nil
	return p.backend.Close()
}
