// pkg/btree/btree.go
package btree

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"rrrdb/pkg/pager"
)

var (
	ErrKeyNotFound = errors.New("key not found")
	ErrKeyTooLarge = errors.New("key too large")
	ErrCorrupt     = errors.New("btree page is corrupt")
)

// BTree is an ordered byte-key map stored in pager pages. The root page
// number never changes once the tree is created.
type BTree struct {
	pager    *pager.Pager
	rootPage uint32
}

// Create creates a new B-tree, allocating a root page
func Create(p *pager.Pager) (*BTree, error) {
	page, err := p.Allocate()
	if err != nil {
		return nil, err
	}

	NewNode(page.Data(), true)
	page.MarkDirty()

	return &BTree{
		pager:    p,
		rootPage: page.PageNo(),
	}, nil
}

// Open opens an existing B-tree with the given root page
func Open(p *pager.Pager, rootPage uint32) *BTree {
	return &BTree{
		pager:    p,
		rootPage: rootPage,
	}
}

// CreateAtPage creates an empty B-tree rooted at pageNo, allocating pages
// until pageNo exists.
func CreateAtPage(p *pager.Pager, pageNo uint32) (*BTree, error) {
	for p.PageCount() <= pageNo {
		if _, err := p.Allocate(); err != nil {
			return nil, err
		}
	}

	page, err := p.Get(pageNo)
	if err != nil {
		return nil, err
	}

	NewNode(page.Data(), true)
	page.MarkDirty()

	return &BTree{
		pager:    p,
		rootPage: pageNo,
	}, nil
}

// RootPage returns the root page number
func (bt *BTree) RootPage() uint32 {
	return bt.rootPage
}

// maxLocalCell is the largest cell (content plus pointer) kept inside a
// node. At least four such cells fit in a page, so a split always yields
// two halves that fit.
func (bt *BTree) maxLocalCell() int {
	return (bt.pager.PageSize() - nodeHeaderSize) / 4
}

func (bt *BTree) loadNode(pageNo uint32) (*pager.Page, *Node, error) {
	page, err := bt.pager.Get(pageNo)
	if err != nil {
		return nil, nil, err
	}
	node := LoadNode(page.Data())
	if !node.IsValid() {
		return nil, nil, fmt.Errorf("%w: page %d has type %s", ErrCorrupt, pageNo, page.Type())
	}
	return page, node, nil
}

// Get retrieves the value stored under key
func (bt *BTree) Get(key []byte) ([]byte, error) {
	pageNo := bt.rootPage
	for {
		_, node, err := bt.loadNode(pageNo)
		if err != nil {
			return nil, err
		}

		if node.IsLeaf() {
			pos, found := searchLeaf(node, key)
			if !found {
				return nil, ErrKeyNotFound
			}
			_, payload := node.GetCell(pos)
			return bt.readPayload(payload)
		}

		pageNo = node.ChildAt(childIndex(node, key))
	}
}

// Insert inserts or replaces a key-value pair
func (bt *BTree) Insert(key, value []byte) error {
	if cellSize(len(key), payloadPointerSize)+cellPointerSize > bt.maxLocalCell() {
		return fmt.Errorf("%w: %d bytes", ErrKeyTooLarge, len(key))
	}

	payload, err := bt.writePayload(key, value)
	if err != nil {
		return err
	}

	if _, err := bt.insertRecursive(bt.rootPage, key, payload); err != nil {
		return errors.Join(err, bt.freePayload(payload))
	}
	return nil
}

// splitResult is returned when a node split occurs during insertion
type splitResult struct {
	promotedKey []byte // Smallest key of the new right sibling
	rightPageNo uint32 // Page number of the new right sibling
}

func (bt *BTree) insertRecursive(pageNo uint32, key, payload []byte) (*splitResult, error) {
	page, node, err := bt.loadNode(pageNo)
	if err != nil {
		return nil, err
	}

	if node.IsLeaf() {
		return bt.insertIntoLeaf(page, node, key, payload)
	}
	return bt.insertIntoInterior(page, node, key, payload)
}

func (bt *BTree) insertIntoLeaf(page *pager.Page, node *Node, key, payload []byte) (*splitResult, error) {
	pos, found := searchLeaf(node, key)

	// Fast path: new key with room to spare
	if !found {
		if err := node.InsertCell(pos, key, payload); err == nil {
			page.MarkDirty()
			return nil, nil
		}
	}

	cells := node.Cells()
	var replaced []byte
	if found {
		replaced = cells[pos].Value
		cells[pos].Value = payload
	} else {
		cells = append(cells, Cell{})
		copy(cells[pos+1:], cells[pos:])
		cells[pos] = Cell{Key: append([]byte(nil), key...), Value: payload}
	}

	split, err := bt.store(page, true, cells, 0)
	if err != nil {
		return nil, err
	}
	if replaced != nil {
		if err := bt.freePayload(replaced); err != nil {
			return nil, err
		}
	}
	return split, nil
}

func (bt *BTree) insertIntoInterior(page *pager.Page, node *Node, key, payload []byte) (*splitResult, error) {
	idx := childIndex(node, key)
	child := node.ChildAt(idx)

	split, err := bt.insertRecursive(child, key, payload)
	if err != nil || split == nil {
		return nil, err
	}

	// child keeps keys below the promoted key; the new sibling takes the
	// rest of child's former range
	cells := node.Cells()
	right := node.RightChild()
	promoted := Cell{Key: split.promotedKey, Value: encodePageNo(child)}
	if idx == len(cells) {
		cells = append(cells, promoted)
		right = split.rightPageNo
	} else {
		cells = append(cells, Cell{})
		copy(cells[idx+1:], cells[idx:])
		cells[idx] = promoted
		cells[idx+1].Value = encodePageNo(split.rightPageNo)
	}

	return bt.store(page, false, cells, right)
}

// store writes cells into page, splitting it when they do not fit. A split
// root keeps its page number: both halves move to fresh pages and the root
// becomes an interior node above them.
func (bt *BTree) store(page *pager.Page, isLeaf bool, cells []Cell, rightChild uint32) (*splitResult, error) {
	node := LoadNode(page.Data())
	if cellsFit(cells, bt.pager.PageSize()) {
		if err := node.Rebuild(isLeaf, cells, rightChild); err != nil {
			return nil, err
		}
		page.MarkDirty()
		return nil, nil
	}

	mid := splitPoint(cells, isLeaf)

	var (
		leftCells, rightCells []Cell
		leftRight, rightRight uint32
		promoted              []byte
	)
	if isLeaf {
		leftCells, rightCells = cells[:mid], cells[mid:]
		promoted = rightCells[0].Key
	} else {
		// The middle key moves up; its child becomes the left half's right child
		leftCells, rightCells = cells[:mid], cells[mid+1:]
		leftRight, rightRight = decodePageNo(cells[mid].Value), rightChild
		promoted = cells[mid].Key
	}

	rightPage, err := bt.newNodePage(isLeaf, rightCells, rightRight)
	if err != nil {
		return nil, err
	}

	if page.PageNo() == bt.rootPage {
		leftPage, err := bt.newNodePage(isLeaf, leftCells, leftRight)
		if err != nil {
			return nil, err
		}
		rootCells := []Cell{{Key: promoted, Value: encodePageNo(leftPage)}}
		if err := node.Rebuild(false, rootCells, rightPage); err != nil {
			return nil, err
		}
		page.MarkDirty()
		return nil, nil
	}

	if err := node.Rebuild(isLeaf, leftCells, leftRight); err != nil {
		return nil, err
	}
	page.MarkDirty()

	return &splitResult{promotedKey: promoted, rightPageNo: rightPage}, nil
}

func (bt *BTree) newNodePage(isLeaf bool, cells []Cell, rightChild uint32) (uint32, error) {
	page, err := bt.pager.Allocate()
	if err != nil {
		return 0, err
	}
	if err := NewNode(page.Data(), isLeaf).Rebuild(isLeaf, cells, rightChild); err != nil {
		return 0, err
	}
	page.MarkDirty()
	return page.PageNo(), nil
}

// splitPoint picks the first index at which the cells before it hold at
// least half the bytes. Leaves need a non-empty right half; interior nodes
// also need a cell left over to promote.
func splitPoint(cells []Cell, isLeaf bool) int {
	total := cellsSize(cells)
	acc, mid := 0, 0
	for mid < len(cells) && acc < total/2 {
		acc += cellSize(len(cells[mid].Key), len(cells[mid].Value)) + cellPointerSize
		mid++
	}

	upper := len(cells) - 1
	if !isLeaf {
		upper = len(cells) - 2
	}
	if mid > upper {
		mid = upper
	}
	if mid < 1 {
		mid = 1
	}
	return mid
}

// searchLeaf returns the position of key, or where it would be inserted
func searchLeaf(node *Node, key []byte) (int, bool) {
	count := node.CellCount()
	pos := sort.Search(count, func(i int) bool {
		k, _ := node.GetCell(i)
		return bytes.Compare(k, key) >= 0
	})
	if pos < count {
		k, _ := node.GetCell(pos)
		return pos, bytes.Equal(k, key)
	}
	return pos, false
}

// childIndex returns the child slot whose range covers key
func childIndex(node *Node, key []byte) int {
	return sort.Search(node.CellCount(), func(i int) bool {
		k, _ := node.GetCell(i)
		return bytes.Compare(key, k) < 0
	})
}

// Depth returns the number of levels from the root to the leftmost leaf
func (bt *BTree) Depth() (int, error) {
	depth := 0
	pageNo := bt.rootPage
	for {
		_, node, err := bt.loadNode(pageNo)
		if err != nil {
			return 0, err
		}
		depth++
		if node.IsLeaf() {
			return depth, nil
		}
		pageNo = node.ChildAt(0)
	}
}
