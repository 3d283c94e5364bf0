// pkg/pager/pager_test.go
package pager

import (
	"errors"
	"path/filepath"
	"testing"
)

func openTestPager(t *testing.T) (*Pager, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	p, err := OpenFile(path, Options{PageSize: 4096})
	if err != nil {
		t.Fatalf("failed to open pager: %v", err)
	}
	return p, path
}

func TestPagerCreate(t *testing.T) {
	p, _ := openTestPager(t)
	defer p.Close()

	if p.PageSize() != 4096 {
		t.Errorf("expected page size 4096, got %d", p.PageSize())
	}
	if p.PageCount() != 1 {
		t.Errorf("expected only the header page, got %d pages", p.PageCount())
	}
}

func TestPagerAllocatePage(t *testing.T) {
	p, _ := openTestPager(t)
	defer p.Close()

	// Page 0 is the header, so allocation starts at 1
	page, err := p.Allocate()
	if err != nil {
		t.Fatalf("failed to allocate page: %v", err)
	}
	if page.PageNo() != 1 {
		t.Errorf("expected page number 1, got %d", page.PageNo())
	}

	page2, err := p.Allocate()
	if err != nil {
		t.Fatalf("failed to allocate second page: %v", err)
	}
	if page2.PageNo() != 2 {
		t.Errorf("expected page number 2, got %d", page2.PageNo())
	}
}

func TestPagerGetReservedAndMissingPages(t *testing.T) {
	p, _ := openTestPager(t)
	defer p.Close()

	if _, err := p.Get(0); !errors.Is(err, ErrPageNotFound) {
		t.Errorf("expected ErrPageNotFound for header page, got %v", err)
	}
	if _, err := p.Get(42); !errors.Is(err, ErrPageNotFound) {
		t.Errorf("expected ErrPageNotFound past the end, got %v", err)
	}
}

func TestPagerPersistence(t *testing.T) {
	p, path := openTestPager(t)

	page, err := p.Allocate()
	if err != nil {
		t.Fatalf("failed to allocate page: %v", err)
	}
	copy(page.Data()[10:], "persisted bytes")
	page.MarkDirty()

	if err := p.Close(); err != nil {
		t.Fatalf("failed to close pager: %v", err)
	}

	p2, err := OpenFile(path, Options{})
	if err != nil {
		t.Fatalf("failed to reopen pager: %v", err)
	}
	defer p2.Close()

	if p2.PageCount() != 2 {
		t.Fatalf("expected 2 pages after reopen, got %d", p2.PageCount())
	}
	got, err := p2.Get(page.PageNo())
	if err != nil {
		t.Fatalf("failed to get page: %v", err)
	}
	if string(got.Data()[10:25]) != "persisted bytes" {
		t.Errorf("unexpected page content %q", got.Data()[10:25])
	}
}

func TestPagerReopenKeepsPageSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	p, err := OpenFile(path, Options{PageSize: 1024})
	if err != nil {
		t.Fatalf("failed to open pager: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("failed to close pager: %v", err)
	}

	// The header wins over the requested size
	p2, err := OpenFile(path, Options{PageSize: 8192})
	if err != nil {
		t.Fatalf("failed to reopen pager: %v", err)
	}
	defer p2.Close()

	if p2.PageSize() != 1024 {
		t.Errorf("expected page size 1024, got %d", p2.PageSize())
	}
}

func TestPagerInvalidPageSize(t *testing.T) {
	for _, size := range []int{100, 65536, 100000} {
		_, err := Open(NewMemoryBackend(), Options{PageSize: size})
		if !errors.Is(err, ErrInvalidPageSize) {
			t.Errorf("page size %d: expected ErrInvalidPageSize, got %v", size, err)
		}
	}
}

func TestPagerInvalidHeader(t *testing.T) {
	backend := NewMemoryBackend()
	if _, err := backend.WriteAt([]byte("definitely not a database file"), 0); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	if _, err := Open(backend, Options{}); !errors.Is(err, ErrInvalidHeader) {
		t.Errorf("expected ErrInvalidHeader, got %v", err)
	}
}

func TestPagerFileLocked(t *testing.T) {
	p, path := openTestPager(t)
	defer p.Close()

	_, err := OpenFile(path, Options{})
	if !errors.Is(err, ErrLocked) {
		t.Errorf("expected ErrLocked for second open, got %v", err)
	}
}

func TestPagerReadOnly(t *testing.T) {
	p, path := openTestPager(t)
	if _, err := p.Allocate(); err != nil {
		t.Fatalf("failed to allocate page: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("failed to close pager: %v", err)
	}

	ro, err := OpenFile(path, Options{ReadOnly: true})
	if err != nil {
		t.Fatalf("failed to open read-only: %v", err)
	}
	defer ro.Close()

	if _, err := ro.Allocate(); !errors.Is(err, ErrReadOnly) {
		t.Errorf("expected ErrReadOnly, got %v", err)
	}
	if _, err := ro.Get(1); err != nil {
		t.Errorf("read-only get failed: %v", err)
	}
}

func TestPagerMemory(t *testing.T) {
	p, err := OpenFile(MemoryPath, Options{PageSize: 512})
	if err != nil {
		t.Fatalf("failed to open memory pager: %v", err)
	}
	defer p.Close()

	for i := 0; i < 10; i++ {
		page, err := p.Allocate()
		if err != nil {
			t.Fatalf("allocate %d failed: %v", i, err)
		}
		page.Data()[0] = byte(i)
	}
	if err := p.Flush(); err != nil {
		t.Fatalf("flush failed: %v", err)
	}

	page, err := p.Get(5)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if page.Data()[0] != 4 {
		t.Errorf("expected marker 4 on page 5, got %d", page.Data()[0])
	}
}

func TestPagerClosed(t *testing.T) {
	p, _ := openTestPager(t)
	if err := p.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if _, err := p.Allocate(); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}
}
