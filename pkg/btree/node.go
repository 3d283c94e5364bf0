// pkg/btree/node.go
package btree

import (
	"encoding/binary"
	"errors"

	"rrrdb/pkg/pager"
)

/*
Node Page Layout:
+-------------------+
| Header (12 bytes) |
|   - page type (1) |
|   - cell count(2) |
|   - free start(2) |
|   - free end (2)  |
|   - reserved (1)  |
|   - right child(4)| (interior only)
+-------------------+
| Cell Pointers     |
| (2 bytes each)    |
+-------------------+
| Free Space        |
+-------------------+
| Cell Content      |
| (grows upward)    |
+-------------------+

Cell: varint key length | key | varint value length | value
*/

const (
	nodeHeaderSize  = 12
	cellPointerSize = 2
)

var (
	ErrNodeFull = errors.New("node is full")
)

// Cell is a detached copy of one key/value entry of a node
type Cell struct {
	Key   []byte
	Value []byte
}

// Node represents a B-tree node backed by a page
type Node struct {
	data []byte
}

// NewNode initializes data as an empty node
func NewNode(data []byte, isLeaf bool) *Node {
	n := &Node{data: data}
	n.reset(isLeaf)
	n.SetRightChild(0)
	return n
}

// LoadNode wraps existing page data
func LoadNode(data []byte) *Node {
	return &Node{data: data}
}

func (n *Node) reset(isLeaf bool) {
	if isLeaf {
		n.data[0] = byte(pager.PageTypeBTreeLeaf)
	} else {
		n.data[0] = byte(pager.PageTypeBTreeInterior)
	}
	n.setCellCount(0)
	n.setFreeStart(nodeHeaderSize)
	n.setFreeEnd(len(n.data))
	n.data[7] = 0
}

// IsLeaf returns true if this is a leaf node
func (n *Node) IsLeaf() bool {
	return pager.PageType(n.data[0]) == pager.PageTypeBTreeLeaf
}

// IsValid reports whether the page carries a B-tree node type
func (n *Node) IsValid() bool {
	t := pager.PageType(n.data[0])
	return t == pager.PageTypeBTreeLeaf || t == pager.PageTypeBTreeInterior
}

// CellCount returns the number of cells in this node
func (n *Node) CellCount() int {
	return int(binary.LittleEndian.Uint16(n.data[1:3]))
}

func (n *Node) setCellCount(count int) {
	binary.LittleEndian.PutUint16(n.data[1:3], uint16(count))
}

func (n *Node) freeStart() int {
	return int(binary.LittleEndian.Uint16(n.data[3:5]))
}

func (n *Node) setFreeStart(offset int) {
	binary.LittleEndian.PutUint16(n.data[3:5], uint16(offset))
}

func (n *Node) freeEnd() int {
	return int(binary.LittleEndian.Uint16(n.data[5:7]))
}

func (n *Node) setFreeEnd(offset int) {
	binary.LittleEndian.PutUint16(n.data[5:7], uint16(offset))
}

// FreeSpace returns the amount of free space available
func (n *Node) FreeSpace() int {
	return n.freeEnd() - n.freeStart()
}

func (n *Node) cellPointerOffset(i int) int {
	return nodeHeaderSize + i*cellPointerSize
}

func (n *Node) getCellOffset(i int) int {
	return int(binary.LittleEndian.Uint16(n.data[n.cellPointerOffset(i):]))
}

func (n *Node) setCellOffset(i, offset int) {
	binary.LittleEndian.PutUint16(n.data[n.cellPointerOffset(i):], uint16(offset))
}

// cellSize is the number of content bytes a cell occupies, excluding its pointer
func cellSize(keyLen, valueLen int) int {
	return uvarintLen(uint64(keyLen)) + keyLen + uvarintLen(uint64(valueLen)) + valueLen
}

func uvarintLen(x uint64) int {
	n := 1
	for x >= 0x80 {
		x >>= 7
		n++
	}
	return n
}

// InsertCell inserts a key-value cell at position i
func (n *Node) InsertCell(i int, key, value []byte) error {
	size := cellSize(len(key), len(value))
	if n.FreeSpace() < size+cellPointerSize {
		return ErrNodeFull
	}

	count := n.CellCount()

	// Shift cell pointers to make room at position i
	for j := count; j > i; j-- {
		n.setCellOffset(j, n.getCellOffset(j-1))
	}

	// Cell content grows from the end of the page backward
	newFreeEnd := n.freeEnd() - size
	n.setFreeEnd(newFreeEnd)

	offset := newFreeEnd
	offset += binary.PutUvarint(n.data[offset:], uint64(len(key)))
	offset += copy(n.data[offset:], key)
	offset += binary.PutUvarint(n.data[offset:], uint64(len(value)))
	copy(n.data[offset:], value)

	n.setCellOffset(i, newFreeEnd)
	n.setCellCount(count + 1)
	n.setFreeStart(n.freeStart() + cellPointerSize)

	return nil
}

// GetCell returns the key and value at position i. The slices alias the page.
func (n *Node) GetCell(i int) (key, value []byte) {
	if i < 0 || i >= n.CellCount() {
		return nil, nil
	}

	offset := n.getCellOffset(i)

	keyLen, sz := binary.Uvarint(n.data[offset:])
	offset += sz
	key = n.data[offset : offset+int(keyLen)]
	offset += int(keyLen)

	valueLen, sz := binary.Uvarint(n.data[offset:])
	offset += sz
	value = n.data[offset : offset+int(valueLen)]

	return key, value
}

// Cells returns detached copies of all cells in order
func (n *Node) Cells() []Cell {
	count := n.CellCount()
	cells := make([]Cell, count)
	for i := 0; i < count; i++ {
		key, value := n.GetCell(i)
		cells[i] = Cell{
			Key:   append([]byte(nil), key...),
			Value: append([]byte(nil), value...),
		}
	}
	return cells
}

// cellsFit reports whether cells fit into an empty node of pageSize bytes
func cellsFit(cells []Cell, pageSize int) bool {
	return cellsSize(cells) <= pageSize-nodeHeaderSize
}

func cellsSize(cells []Cell) int {
	total := 0
	for _, c := range cells {
		total += cellSize(len(c.Key), len(c.Value)) + cellPointerSize
	}
	return total
}

// Rebuild rewrites the node from scratch with the given cells. The node is
// left untouched when the cells do not fit.
func (n *Node) Rebuild(isLeaf bool, cells []Cell, rightChild uint32) error {
	if !cellsFit(cells, len(n.data)) {
		return ErrNodeFull
	}

	n.reset(isLeaf)
	n.SetRightChild(rightChild)
	for i, c := range cells {
		if err := n.InsertCell(i, c.Key, c.Value); err != nil {
			return err
		}
	}
	return nil
}

// SetRightChild sets the right child page number (interior nodes only)
func (n *Node) SetRightChild(pageNo uint32) {
	binary.LittleEndian.PutUint32(n.data[8:12], pageNo)
}

// RightChild returns the right child page number
func (n *Node) RightChild() uint32 {
	return binary.LittleEndian.Uint32(n.data[8:12])
}

// ChildAt returns the child page for slot i, where slot CellCount() is the
// right child
func (n *Node) ChildAt(i int) uint32 {
	if i >= n.CellCount() {
		return n.RightChild()
	}
	_, value := n.GetCell(i)
	return decodePageNo(value)
}

func encodePageNo(pageNo uint32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, pageNo)
	return buf
}

func decodePageNo(value []byte) uint32 {
	if len(value) < 4 {
		return 0
	}
	return binary.LittleEndian.Uint32(value)
}
