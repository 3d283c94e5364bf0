// pkg/storage/storage_test.go
package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	dberrors "rrrdb/internal/errors"
)

func openMemory(t *testing.T) *Storage {
	t.Helper()
	s, err := OpenMemory(Options{})
	if err != nil {
		t.Fatalf("failed to open storage: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNamespaceKeyspace(t *testing.T) {
	tests := []struct {
		ns       Namespace
		expected string
	}{
		{Metadata(), "metadata"},
		{Database("shop"), "shop"},
		{Table("shop", "users"), "shop_users"},
	}
	for _, tt := range tests {
		if got := tt.ns.Keyspace(); got != tt.expected {
			t.Errorf("expected keyspace %q, got %q", tt.expected, got)
		}
	}
}

func TestStorageMetadataExists(t *testing.T) {
	s := openMemory(t)

	if !s.HasKeyspace(MetadataKeyspace) {
		t.Fatal("metadata keyspace should exist after open")
	}
	if _, ok, err := s.Get(Metadata(), []byte("nothing")); err != nil || ok {
		t.Errorf("expected absent key without error, got ok=%v err=%v", ok, err)
	}
}

func TestStoragePutGet(t *testing.T) {
	s := openMemory(t)
	if err := s.CreateKeyspace("shop_users"); err != nil {
		t.Fatalf("create keyspace failed: %v", err)
	}

	ns := Table("shop", "users")
	if err := s.Put(ns, []byte("1"), []byte("alice")); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if err := s.Put(ns, []byte("1"), []byte("bob")); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}

	value, ok, err := s.Get(ns, []byte("1"))
	if err != nil || !ok {
		t.Fatalf("get failed: ok=%v err=%v", ok, err)
	}
	if string(value) != "bob" {
		t.Errorf("expected last write to win, got %s", value)
	}
}

func TestStorageNamespaceNotFound(t *testing.T) {
	s := openMemory(t)
	ns := Table("shop", "ghosts")

	_, _, err := s.Get(ns, []byte("1"))
	if !errors.Is(err, ErrNamespaceNotFound) {
		t.Fatalf("expected ErrNamespaceNotFound, got %v", err)
	}
	if !dberrors.Is(err, dberrors.KindStorage) {
		t.Errorf("expected STORAGE kind, got %v", err)
	}
	if err := s.Put(ns, []byte("1"), []byte("x")); !errors.Is(err, ErrNamespaceNotFound) {
		t.Errorf("expected ErrNamespaceNotFound on put, got %v", err)
	}
	if _, err := s.Iterate(ns); !errors.Is(err, ErrNamespaceNotFound) {
		t.Errorf("expected ErrNamespaceNotFound on iterate, got %v", err)
	}
}

func TestStorageCreateKeyspaceIdempotent(t *testing.T) {
	s := openMemory(t)

	if err := s.CreateKeyspace("a"); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := s.Put(Database("a"), []byte("k"), []byte("v")); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if err := s.CreateKeyspace("a"); err != nil {
		t.Fatalf("second create failed: %v", err)
	}
	if _, ok, _ := s.Get(Database("a"), []byte("k")); !ok {
		t.Error("recreating an existing keyspace must keep its data")
	}
	if err := s.CreateKeyspace(""); !errors.Is(err, ErrEmptyKeyspaceName) {
		t.Errorf("expected ErrEmptyKeyspaceName, got %v", err)
	}
}

func TestStorageIterateOrder(t *testing.T) {
	s := openMemory(t)
	if err := s.CreateKeyspace("db_t"); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	ns := Table("db", "t")

	for _, k := range []string{"3", "10", "2", "1"} {
		if err := s.Put(ns, []byte(k), []byte("v"+k)); err != nil {
			t.Fatalf("put failed: %v", err)
		}
	}

	it, err := s.Iterate(ns)
	if err != nil {
		t.Fatalf("iterate failed: %v", err)
	}
	defer it.Close()

	var keys []string
	for it.Next() {
		keys = append(keys, string(it.Key()))
		if string(it.Value()) != "v"+string(it.Key()) {
			t.Errorf("unexpected value %s for key %s", it.Value(), it.Key())
		}
	}
	if it.Err() != nil {
		t.Fatalf("iteration error: %v", it.Err())
	}

	// Byte order, not numeric order
	expected := []string{"1", "10", "2", "3"}
	if fmt.Sprint(keys) != fmt.Sprint(expected) {
		t.Errorf("expected %v, got %v", expected, keys)
	}

	// Exhausted iterator released the lock, so writes go through
	if err := s.Put(ns, []byte("4"), []byte("v4")); err != nil {
		t.Fatalf("put after iteration failed: %v", err)
	}

	// A fresh scan sees the new key
	it2, err := s.Iterate(ns)
	if err != nil {
		t.Fatalf("iterate failed: %v", err)
	}
	count := 0
	for it2.Next() {
		count++
	}
	it2.Close()
	if count != 5 {
		t.Errorf("expected 5 keys in fresh scan, got %d", count)
	}
}

type document struct {
	Name  string   `json:"name"`
	Items []string `json:"items"`
}

func TestStorageSerialized(t *testing.T) {
	s := openMemory(t)

	in := document{Name: "shop", Items: []string{"a", "b"}}
	if err := s.PutSerialized(Metadata(), []byte("doc"), in); err != nil {
		t.Fatalf("put serialized failed: %v", err)
	}

	var out document
	ok, err := s.GetSerialized(Metadata(), []byte("doc"), &out)
	if err != nil || !ok {
		t.Fatalf("get serialized failed: ok=%v err=%v", ok, err)
	}
	if out.Name != "shop" || len(out.Items) != 2 {
		t.Errorf("unexpected document %+v", out)
	}

	ok, err = s.GetSerialized(Metadata(), []byte("absent"), &out)
	if err != nil || ok {
		t.Errorf("expected absent document, got ok=%v err=%v", ok, err)
	}

	if err := s.Put(Metadata(), []byte("junk"), []byte("{not json")); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if _, err := s.GetSerialized(Metadata(), []byte("junk"), &out); !dberrors.Is(err, dberrors.KindData) {
		t.Errorf("expected DATA error for undecodable document, got %v", err)
	}
}

func TestStoragePersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rrr.db")

	s, err := Open(path, Options{PageSize: 1024})
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if err := s.CreateKeyspace("shop_users"); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	for i := 0; i < 500; i++ {
		key := []byte(fmt.Sprintf("%d", i))
		if err := s.Put(Table("shop", "users"), key, []byte(fmt.Sprintf(`{"id":"%d"}`, i))); err != nil {
			t.Fatalf("put failed: %v", err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	s2, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s2.Close()

	expected := []string{"metadata", "shop_users"}
	if fmt.Sprint(s2.Keyspaces()) != fmt.Sprint(expected) {
		t.Errorf("expected keyspaces %v, got %v", expected, s2.Keyspaces())
	}
	value, ok, err := s2.Get(Table("shop", "users"), []byte("321"))
	if err != nil || !ok {
		t.Fatalf("get after reopen failed: ok=%v err=%v", ok, err)
	}
	if string(value) != `{"id":"321"}` {
		t.Errorf("unexpected value %s", value)
	}
}

func TestStorageConcurrentPuts(t *testing.T) {
	s := openMemory(t)
	if err := s.CreateKeyspace("db_t"); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	ns := Table("db", "t")

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				key := []byte(fmt.Sprintf("%d-%03d", w, i))
				if err := s.Put(ns, key, key); err != nil {
					t.Errorf("put failed: %v", err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	it, err := s.Iterate(ns)
	if err != nil {
		t.Fatalf("iterate failed: %v", err)
	}
	defer it.Close()
	count := 0
	for it.Next() {
		count++
	}
	if count != 400 {
		t.Errorf("expected 400 keys, got %d", count)
	}
}
