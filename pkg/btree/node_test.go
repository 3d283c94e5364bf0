// pkg/btree/node_test.go
package btree

import (
	"errors"
	"testing"
)

func TestNodeInsertAndGetCell(t *testing.T) {
	data := make([]byte, 512)
	node := NewNode(data, true)

	if !node.IsLeaf() {
		t.Fatal("expected leaf node")
	}
	if node.CellCount() != 0 {
		t.Fatalf("expected empty node, got %d cells", node.CellCount())
	}

	if err := node.InsertCell(0, []byte("b"), []byte("2")); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if err := node.InsertCell(0, []byte("a"), []byte("1")); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if err := node.InsertCell(2, []byte("c"), []byte("3")); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	expected := []struct {
		key   string
		value string
	}{
		{"a", "1"},
		{"b", "2"},
		{"c", "3"},
	}
	for i, exp := range expected {
		key, value := node.GetCell(i)
		if string(key) != exp.key || string(value) != exp.value {
			t.Errorf("cell %d: expected %s=%s, got %s=%s", i, exp.key, exp.value, key, value)
		}
	}

	if key, value := node.GetCell(5); key != nil || value != nil {
		t.Error("expected nil for out of range cell")
	}
}

func TestNodeFull(t *testing.T) {
	data := make([]byte, 512)
	node := NewNode(data, true)

	value := make([]byte, 100)
	var err error
	for i := 0; i < 10 && err == nil; i++ {
		err = node.InsertCell(i, []byte{byte(i)}, value)
	}
	if !errors.Is(err, ErrNodeFull) {
		t.Errorf("expected ErrNodeFull, got %v", err)
	}
}

func TestNodeRebuild(t *testing.T) {
	data := make([]byte, 512)
	node := NewNode(data, true)
	for i := 0; i < 5; i++ {
		if err := node.InsertCell(i, []byte{byte('a' + i)}, []byte("v")); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	cells := node.Cells()
	cells = cells[1:4]
	if err := node.Rebuild(false, cells, 77); err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}

	if node.IsLeaf() {
		t.Error("expected interior node after rebuild")
	}
	if node.CellCount() != 3 {
		t.Fatalf("expected 3 cells, got %d", node.CellCount())
	}
	if node.RightChild() != 77 {
		t.Errorf("expected right child 77, got %d", node.RightChild())
	}
	key, _ := node.GetCell(0)
	if string(key) != "b" {
		t.Errorf("expected first key b, got %s", key)
	}
	if node.FreeSpace() != 512-nodeHeaderSize-cellsSize(cells) {
		t.Errorf("unexpected free space %d", node.FreeSpace())
	}
}

func TestNodeRebuildTooLarge(t *testing.T) {
	data := make([]byte, 512)
	node := NewNode(data, true)
	if err := node.InsertCell(0, []byte("keep"), []byte("me")); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	big := []Cell{
		{Key: []byte("x"), Value: make([]byte, 300)},
		{Key: []byte("y"), Value: make([]byte, 300)},
	}
	if err := node.Rebuild(true, big, 0); !errors.Is(err, ErrNodeFull) {
		t.Fatalf("expected ErrNodeFull, got %v", err)
	}

	// Node must be unchanged
	key, value := node.GetCell(0)
	if node.CellCount() != 1 || string(key) != "keep" || string(value) != "me" {
		t.Error("node modified by failed rebuild")
	}
}

func TestNodeChildAt(t *testing.T) {
	data := make([]byte, 512)
	node := NewNode(data, false)
	cells := []Cell{
		{Key: []byte("m"), Value: encodePageNo(3)},
		{Key: []byte("t"), Value: encodePageNo(4)},
	}
	if err := node.Rebuild(false, cells, 5); err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}

	tests := []struct {
		key   string
		child uint32
	}{
		{"a", 3},
		{"m", 4},
		{"p", 4},
		{"t", 5},
		{"z", 5},
	}
	for _, tt := range tests {
		if got := node.ChildAt(childIndex(node, []byte(tt.key))); got != tt.child {
			t.Errorf("key %s: expected child %d, got %d", tt.key, tt.child, got)
		}
	}
}
