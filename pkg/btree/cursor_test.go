// pkg/btree/cursor_test.go
package btree

import (
	"bytes"
	"fmt"
	"testing"
)

func TestCursorEmptyTree(t *testing.T) {
	p := openMemoryPager(t, 4096)
	bt, err := Create(p)
	if err != nil {
		t.Fatalf("failed to create btree: %v", err)
	}

	c := bt.Cursor()
	defer c.Close()
	c.First()
	if c.Valid() {
		t.Error("cursor on empty tree should not be valid")
	}
	if c.Err() != nil {
		t.Errorf("unexpected error: %v", c.Err())
	}
}

func TestCursorIteratesInOrder(t *testing.T) {
	p := openMemoryPager(t, 512)
	bt, err := Create(p)
	if err != nil {
		t.Fatalf("failed to create btree: %v", err)
	}

	const n = 1000
	for i := n - 1; i >= 0; i-- {
		key := []byte(fmt.Sprintf("%04d", i))
		if err := bt.Insert(key, key); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	c := bt.Cursor()
	defer c.Close()

	var prev []byte
	count := 0
	for c.First(); c.Valid(); c.Next() {
		key := c.Key()
		if prev != nil && bytes.Compare(prev, key) >= 0 {
			t.Fatalf("keys out of order: %s then %s", prev, key)
		}
		value, err := c.Value()
		if err != nil {
			t.Fatalf("value failed: %v", err)
		}
		if !bytes.Equal(key, value) {
			t.Errorf("key %s has value %s", key, value)
		}
		prev = key
		count++
	}
	if c.Err() != nil {
		t.Fatalf("cursor error: %v", c.Err())
	}
	if count != n {
		t.Errorf("expected %d entries, got %d", n, count)
	}
}

func TestCursorOverflowValue(t *testing.T) {
	p := openMemoryPager(t, 512)
	bt, err := Create(p)
	if err != nil {
		t.Fatalf("failed to create btree: %v", err)
	}

	big := bytes.Repeat([]byte("x"), 5000)
	if err := bt.Insert([]byte("a"), big); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	c := bt.Cursor()
	defer c.Close()
	c.First()
	if !c.Valid() {
		t.Fatal("expected valid cursor")
	}
	value, err := c.Value()
	if err != nil {
		t.Fatalf("value failed: %v", err)
	}
	if len(value) != len(big) {
		t.Errorf("expected %d bytes, got %d", len(big), len(value))
	}
}
