// pkg/btree/cursor.go
package btree

// Cursor iterates over B-tree entries in ascending key order
type Cursor struct {
	btree *BTree
	// Stack of nodes from root to current leaf
	stack []*cursorFrame
	valid bool
	err   error
}

// cursorFrame represents one level in the cursor's position stack. For
// interior nodes pos is the child slot being visited, CellCount() meaning
// the right child.
type cursorFrame struct {
	node *Node
	pos  int
}

// Cursor creates a new cursor for this B-tree
func (bt *BTree) Cursor() *Cursor {
	return &Cursor{
		btree: bt,
		stack: make([]*cursorFrame, 0, 8),
	}
}

// First moves the cursor to the first entry
func (c *Cursor) First() {
	c.stack = c.stack[:0]
	c.err = nil
	c.descend(c.btree.rootPage)
	c.settle()
}

// Next advances the cursor to the next entry
func (c *Cursor) Next() {
	if !c.valid {
		return
	}
	c.stack[len(c.stack)-1].pos++
	c.settle()
}

// descend pushes frames from pageNo down to its leftmost leaf
func (c *Cursor) descend(pageNo uint32) {
	for {
		_, node, err := c.btree.loadNode(pageNo)
		if err != nil {
			c.err = err
			c.valid = false
			return
		}

		c.stack = append(c.stack, &cursorFrame{node: node})
		if node.IsLeaf() {
			return
		}
		pageNo = node.ChildAt(0)
	}
}

// settle moves forward until the top frame points at a leaf cell, popping
// exhausted nodes along the way
func (c *Cursor) settle() {
	for c.err == nil && len(c.stack) > 0 {
		top := c.stack[len(c.stack)-1]
		if top.node.IsLeaf() {
			if top.pos < top.node.CellCount() {
				c.valid = true
				return
			}
			c.stack = c.stack[:len(c.stack)-1]
			if len(c.stack) > 0 {
				c.stack[len(c.stack)-1].pos++
			}
			continue
		}

		if top.pos > top.node.CellCount() {
			c.stack = c.stack[:len(c.stack)-1]
			if len(c.stack) > 0 {
				c.stack[len(c.stack)-1].pos++
			}
			continue
		}
		c.descend(top.node.ChildAt(top.pos))
	}
	c.valid = false
}

// Valid returns true if the cursor points to a valid entry
func (c *Cursor) Valid() bool {
	return c.valid
}

// Err returns the first error the cursor ran into, if any
func (c *Cursor) Err() error {
	return c.err
}

// Key returns a copy of the current entry's key
func (c *Cursor) Key() []byte {
	if !c.valid {
		return nil
	}
	top := c.stack[len(c.stack)-1]
	key, _ := top.node.GetCell(top.pos)
	return append([]byte(nil), key...)
}

// Value returns a copy of the current entry's value, following overflow
// pages when needed
func (c *Cursor) Value() ([]byte, error) {
	if !c.valid {
		return nil, nil
	}
	top := c.stack[len(c.stack)-1]
	_, payload := top.node.GetCell(top.pos)
	return c.btree.readPayload(payload)
}

// Close releases the cursor's position
func (c *Cursor) Close() {
	c.stack = nil
	c.valid = false
}
