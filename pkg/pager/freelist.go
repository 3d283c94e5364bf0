// pkg/pager/freelist.go
package pager

import (
	"encoding/binary"
	"fmt"
)

// Database header offsets for freelist fields
//   Offset 0-16: Magic string
//   Offset 16-20: Page size
//   Offset 20-24: Page count
const (
	offsetFreelistHead  = 24 // First free page number
	offsetFreePageCount = 28 // Total number of free pages
)

// GetFreelistHead reads the freelist head page number from a header.
func GetFreelistHead(header []byte) uint32 {
	return binary.LittleEndian.Uint32(header[offsetFreelistHead : offsetFreelistHead+4])
}

// PutFreelistHead writes the freelist head page number to a header.
func PutFreelistHead(header []byte, pageNo uint32) {
	binary.LittleEndian.PutUint32(header[offsetFreelistHead:offsetFreelistHead+4], pageNo)
}

// GetFreePageCount reads the free page count from a header.
func GetFreePageCount(header []byte) uint32 {
	return binary.LittleEndian.Uint32(header[offsetFreePageCount : offsetFreePageCount+4])
}

// PutFreePageCount writes the free page count to a header.
func PutFreePageCount(header []byte, count uint32) {
	binary.LittleEndian.PutUint32(header[offsetFreePageCount:offsetFreePageCount+4], count)
}

// Free pages form a singly linked list threaded through the pages
// themselves:
//   Offset 0: page type (PageTypeFree)
//   Offset 1: 4-byte page number of the next free page (0 ends the list)

// Free returns a page to the freelist. The page's contents are discarded.
func (p *Pager) Free(pageNo uint32) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	if p.opts.ReadOnly {
		return ErrReadOnly
	}

	page, err := p.getLocked(pageNo)
	if err != nil {
		return err
	}
	if page.Type() == PageTypeFree {
		return fmt.Errorf("page %d is already free", pageNo)
	}

	clear(page.data)
	page.data[0] = byte(PageTypeFree)
	binary.LittleEndian.PutUint32(page.data[1:5], p.freeHead)
	page.dirty = true

	p.freeHead = pageNo
	p.freeCount++
	p.dirtyHdr = true
	return nil
}

// popFreePage unlinks the head of the freelist and returns it zeroed.
// Caller must hold p.mu.
func (p *Pager) popFreePage() (*Page, error) {
	page, err := p.getLocked(p.freeHead)
	if err != nil {
		return nil, err
	}
	if page.Type() != PageTypeFree {
		return nil, fmt.Errorf("freelist corrupt: page %d has type %s", page.pageNo, page.Type())
	}

	p.freeHead = binary.LittleEndian.Uint32(page.data[1:5])
	p.freeCount--
	p.dirtyHdr = true

	clear(page.data)
	page.dirty = true
	return page, nil
}
