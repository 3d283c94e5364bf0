// pkg/storage/storage.go
package storage

import (
	"encoding/binary"
	"errors"
	"log/slog"
	"slices"
	"sync"

	json "github.com/goccy/go-json"

	dberrors "rrrdb/internal/errors"
	"rrrdb/internal/logging"
	"rrrdb/pkg/btree"
	"rrrdb/pkg/pager"
)

// directoryRoot is the fixed root page of the keyspace directory, a B-tree
// mapping keyspace name to the root page of that keyspace's tree
const directoryRoot uint32 = 1

var (
	ErrNamespaceNotFound = errors.New("namespace not found")
	ErrEmptyKeyspaceName = errors.New("keyspace name is empty")
)

// Options configures storage
type Options struct {
	PageSize    int  // Page size for new files (default 4096)
	ReadOnly    bool // Refuse all writes
	SyncOnFlush bool // fsync on every Flush
}

// Storage is an ordered key-value store partitioned into named keyspaces.
// It is safe for concurrent use.
type Storage struct {
	mu        sync.RWMutex
	pager     *pager.Pager
	directory *btree.BTree
	keyspaces map[string]*btree.BTree
	log       *slog.Logger
}

// Open opens or creates the store at path. pager.MemoryPath keeps
// everything in memory.
func Open(path string, opts Options) (*Storage, error) {
	p, err := pager.OpenFile(path, pager.Options{
		PageSize:    opts.PageSize,
		ReadOnly:    opts.ReadOnly,
		SyncOnFlush: opts.SyncOnFlush,
	})
	if err != nil {
		return nil, dberrors.Storage(err, "open %s", path)
	}

	s := &Storage{
		pager:     p,
		keyspaces: make(map[string]*btree.BTree),
		log:       logging.WithComponent("storage"),
	}

	if err := s.loadDirectory(); err != nil {
		p.Close()
		return nil, err
	}

	if _, ok := s.keyspaces[MetadataKeyspace]; !ok {
		if err := s.CreateKeyspace(MetadataKeyspace); err != nil {
			p.Close()
			return nil, err
		}
		if err := s.Flush(); err != nil {
			p.Close()
			return nil, err
		}
	}

	s.log.Debug("storage opened", "path", path, "keyspaces", len(s.keyspaces))
	return s, nil
}

// OpenMemory opens an empty in-memory store
func OpenMemory(opts Options) (*Storage, error) {
	return Open(pager.MemoryPath, opts)
}

func (s *Storage) loadDirectory() error {
	if s.pager.PageCount() <= directoryRoot {
		dir, err := btree.CreateAtPage(s.pager, directoryRoot)
		if err != nil {
			return dberrors.Storage(err, "create keyspace directory")
		}
		s.directory = dir
		return nil
	}

	s.directory = btree.Open(s.pager, directoryRoot)
	c := s.directory.Cursor()
	defer c.Close()
	for c.First(); c.Valid(); c.Next() {
		value, err := c.Value()
		if err != nil {
			return dberrors.Storage(err, "read keyspace directory")
		}
		if len(value) != 4 {
			return dberrors.Storage(btree.ErrCorrupt, "directory entry %q", c.Key())
		}
		s.keyspaces[string(c.Key())] = btree.Open(s.pager, binary.LittleEndian.Uint32(value))
	}
	if err := c.Err(); err != nil {
		return dberrors.Storage(err, "read keyspace directory")
	}
	return nil
}

// CreateKeyspace creates the named keyspace if it does not exist yet
func (s *Storage) CreateKeyspace(name string) error {
	if name == "" {
		return dberrors.Storage(ErrEmptyKeyspaceName, "create keyspace")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.keyspaces[name]; ok {
		return nil
	}

	tree, err := btree.Create(s.pager)
	if err != nil {
		return dberrors.Storage(err, "create keyspace %s", name)
	}
	root := make([]byte, 4)
	binary.LittleEndian.PutUint32(root, tree.RootPage())
	if err := s.directory.Insert([]byte(name), root); err != nil {
		return dberrors.Storage(err, "register keyspace %s", name)
	}

	s.keyspaces[name] = tree
	s.log.Debug("keyspace created", "keyspace", name, "root", tree.RootPage())
	return nil
}

// HasKeyspace reports whether the keyspace exists
func (s *Storage) HasKeyspace(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.keyspaces[name]
	return ok
}

// Keyspaces returns all keyspace names in sorted order
func (s *Storage) Keyspaces() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.keyspaces))
	for name := range s.keyspaces {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// tree resolves a namespace. Caller must hold s.mu.
func (s *Storage) tree(ns Namespace) (*btree.BTree, error) {
	tree, ok := s.keyspaces[ns.Keyspace()]
	if !ok {
		return nil, dberrors.Storage(ErrNamespaceNotFound, "keyspace %q", ns.Keyspace())
	}
	return tree, nil
}

// Get returns the value stored under key. The boolean is false when the key
// is absent.
func (s *Storage) Get(ns Namespace, key []byte) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tree, err := s.tree(ns)
	if err != nil {
		return nil, false, err
	}

	value, err := tree.Get(key)
	if errors.Is(err, btree.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, dberrors.Storage(err, "get %s/%s", ns, key)
	}
	return value, true, nil
}

// Put stores value under key, replacing any previous value
func (s *Storage) Put(ns Namespace, key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tree, err := s.tree(ns)
	if err != nil {
		return err
	}
	if err := tree.Insert(key, value); err != nil {
		return dberrors.Storage(err, "put %s/%s", ns, key)
	}
	return nil
}

// GetSerialized reads the JSON document under key into v. It reports false
// when the key is absent.
func (s *Storage) GetSerialized(ns Namespace, key []byte, v any) (bool, error) {
	data, ok, err := s.Get(ns, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, dberrors.Wrap(dberrors.KindData, err, "decode %s/%s", ns, key)
	}
	return true, nil
}

// PutSerialized stores v as a JSON document under key
func (s *Storage) PutSerialized(ns Namespace, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return dberrors.Wrap(dberrors.KindData, err, "encode %s/%s", ns, key)
	}
	return s.Put(ns, key, data)
}

// Iterate starts a full scan of the namespace in key order. The store is
// read-locked until the iterator is exhausted or closed, so callers must
// not write through the same Storage while iterating.
func (s *Storage) Iterate(ns Namespace) (*Iterator, error) {
	s.mu.RLock()

	tree, err := s.tree(ns)
	if err != nil {
		s.mu.RUnlock()
		return nil, err
	}

	return &Iterator{
		ns:      ns,
		cursor:  tree.Cursor(),
		release: s.mu.RUnlock,
	}, nil
}

// Flush writes modified pages to the backing file
func (s *Storage) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.pager.Flush(); err != nil {
		return dberrors.Storage(err, "flush")
	}
	return nil
}

// Close flushes and closes the store
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.pager.Close(); err != nil {
		return dberrors.Storage(err, "close")
	}
	s.log.Debug("storage closed")
	return nil
}

// Iterator walks one keyspace in ascending key order
type Iterator struct {
	ns      Namespace
	cursor  *btree.Cursor
	started bool
	key     []byte
	value   []byte
	err     error
	release func()
}

// Next advances to the next entry and reports whether one exists
func (it *Iterator) Next() bool {
	if it.cursor == nil {
		return false
	}

	if !it.started {
		it.cursor.First()
		it.started = true
	} else {
		it.cursor.Next()
	}

	if !it.cursor.Valid() {
		if err := it.cursor.Err(); err != nil {
			it.err = dberrors.Storage(err, "scan %s", it.ns)
		}
		it.Close()
		return false
	}

	it.key = it.cursor.Key()
	it.value, it.err = it.cursor.Value()
	if it.err != nil {
		it.err = dberrors.Storage(it.err, "scan %s", it.ns)
		it.Close()
		return false
	}
	return true
}

// Key returns the current key
func (it *Iterator) Key() []byte {
	return it.key
}

// Value returns the current value
func (it *Iterator) Value() []byte {
	return it.value
}

// Err returns the error that stopped the scan, if any
func (it *Iterator) Err() error {
	return it.err
}

// Close ends the scan and releases the store. It is safe to call twice.
func (it *Iterator) Close() {
	if it.cursor == nil {
		return
	}
	it.cursor.Close()
	it.cursor = nil
	it.release()
}
