// pkg/btree/overflow.go
package btree

import (
	"encoding/binary"
	"errors"
	"fmt"

	"rrrdb/pkg/pager"
)

// Leaf values are stored as a payload whose first byte says where the
// bytes live:
//   payloadInline:   tag | value
//   payloadOverflow: tag | 4-byte first overflow page | 4-byte value length
const (
	payloadInline   byte = 0x00
	payloadOverflow byte = 0x01

	payloadPointerSize = 9
)

// writePayload encodes value for a leaf cell under key, spilling it into an
// overflow chain when the cell would exceed the local limit
func (bt *BTree) writePayload(key, value []byte) ([]byte, error) {
	if cellSize(len(key), len(value)+1)+cellPointerSize <= bt.maxLocalCell() {
		payload := make([]byte, 0, len(value)+1)
		payload = append(payload, payloadInline)
		return append(payload, value...), nil
	}

	first, err := bt.writeOverflow(value)
	if err != nil {
		return nil, err
	}

	payload := make([]byte, payloadPointerSize)
	payload[0] = payloadOverflow
	binary.LittleEndian.PutUint32(payload[1:5], first)
	binary.LittleEndian.PutUint32(payload[5:9], uint32(len(value)))
	return payload, nil
}

func (bt *BTree) writeOverflow(value []byte) (uint32, error) {
	chunk := pager.OverflowCapacity(bt.pager.PageSize())

	var (
		first uint32
		prev  *pager.Page
	)
	for off := 0; off < len(value); off += chunk {
		page, err := bt.pager.Allocate()
		if err != nil {
			if first != 0 {
				err = errors.Join(err, bt.freeOverflow(first))
			}
			return 0, err
		}
		page.SetType(pager.PageTypeOverflow)
		page.SetOverflowNext(0)
		copy(page.OverflowPayload(), value[off:min(off+chunk, len(value))])

		if prev == nil {
			first = page.PageNo()
		} else {
			prev.SetOverflowNext(page.PageNo())
		}
		prev = page
	}
	return first, nil
}

// readPayload decodes a leaf payload into a detached copy of the value
func (bt *BTree) readPayload(payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrCorrupt)
	}

	switch payload[0] {
	case payloadInline:
		return append([]byte{}, payload[1:]...), nil
	case payloadOverflow:
		if len(payload) < payloadPointerSize {
			return nil, fmt.Errorf("%w: short overflow pointer", ErrCorrupt)
		}
		first := binary.LittleEndian.Uint32(payload[1:5])
		length := int(binary.LittleEndian.Uint32(payload[5:9]))
		return bt.readOverflow(first, length)
	default:
		return nil, fmt.Errorf("%w: unknown payload tag %#x", ErrCorrupt, payload[0])
	}
}

func (bt *BTree) readOverflow(pageNo uint32, length int) ([]byte, error) {
	value := make([]byte, 0, length)
	for len(value) < length {
		if pageNo == 0 {
			return nil, fmt.Errorf("%w: overflow chain ends after %d of %d bytes", ErrCorrupt, len(value), length)
		}
		page, err := bt.pager.Get(pageNo)
		if err != nil {
			return nil, err
		}
		if page.Type() != pager.PageTypeOverflow {
			return nil, fmt.Errorf("%w: page %d is not an overflow page", ErrCorrupt, pageNo)
		}
		data := page.OverflowPayload()
		value = append(value, data[:min(len(data), length-len(value))]...)
		pageNo = page.OverflowNext()
	}
	return value, nil
}

// freePayload returns the overflow pages referenced by payload, if any
func (bt *BTree) freePayload(payload []byte) error {
	if len(payload) < payloadPointerSize || payload[0] != payloadOverflow {
		return nil
	}
	return bt.freeOverflow(binary.LittleEndian.Uint32(payload[1:5]))
}

func (bt *BTree) freeOverflow(pageNo uint32) error {
	for pageNo != 0 {
		page, err := bt.pager.Get(pageNo)
		if err != nil {
			return err
		}
		next := page.OverflowNext()
		if err := bt.pager.Free(pageNo); err != nil {
			return err
		}
		pageNo = next
	}
	return nil
}
