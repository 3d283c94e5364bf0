// pkg/pager/page.go
package pager

import "encoding/binary"

// PageType identifies the type of data stored in a page
type PageType byte

const (
	PageTypeUnknown       PageType = 0x00
	PageTypeBTreeInterior PageType = 0x01
	PageTypeBTreeLeaf     PageType = 0x02
	PageTypeOverflow      PageType = 0x20
	PageTypeFree          PageType = 0x30
)

func (t PageType) String() string {
	switch t {
	case PageTypeBTreeInterior:
		return "btree-interior"
	case PageTypeBTreeLeaf:
		return "btree-leaf"
	case PageTypeOverflow:
		return "overflow"
	case PageTypeFree:
		return "free"
	default:
		return "unknown"
	}
}

// Page is an in-memory copy of one database page. The data slice stays
// valid for the lifetime of the pager.
type Page struct {
	pageNo uint32
	data   []byte
	dirty  bool
}

func newPage(pageNo uint32, pageSize int) *Page {
	return &Page{
		pageNo: pageNo,
		data:   make([]byte, pageSize),
	}
}

// PageNo returns the page number
func (p *Page) PageNo() uint32 {
	return p.pageNo
}

// Data returns the raw page data. Callers that modify it must call
// MarkDirty so the change is written back on the next flush.
func (p *Page) Data() []byte {
	return p.data
}

// IsDirty reports whether the page has unflushed modifications
func (p *Page) IsDirty() bool {
	return p.dirty
}

// MarkDirty flags the page for write-back
func (p *Page) MarkDirty() {
	p.dirty = true
}

// Type returns the page type (stored in first byte)
func (p *Page) Type() PageType {
	if len(p.data) == 0 {
		return PageTypeUnknown
	}
	return PageType(p.data[0])
}

// SetType sets the page type (stored in first byte)
func (p *Page) SetType(t PageType) {
	if len(p.data) > 0 {
		p.data[0] = byte(t)
		p.dirty = true
	}
}

// Overflow page layout:
//   Offset 0: page type (PageTypeOverflow)
//   Offset 1: 4-byte next overflow page (0 terminates the chain)
//   Offset 5: payload
const overflowHeaderSize = 5

// OverflowNext returns the next page of an overflow chain
func (p *Page) OverflowNext() uint32 {
	return binary.LittleEndian.Uint32(p.data[1:5])
}

// SetOverflowNext links this overflow page to the next one
func (p *Page) SetOverflowNext(next uint32) {
	binary.LittleEndian.PutUint32(p.data[1:5], next)
	p.dirty = true
}

// OverflowPayload returns the payload area of an overflow page
func (p *Page) OverflowPayload() []byte {
	return p.data[overflowHeaderSize:]
}

// OverflowCapacity returns how many payload bytes fit in one overflow page
func OverflowCapacity(pageSize int) int {
	return pageSize - overflowHeaderSize
}
