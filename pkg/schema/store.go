// pkg/schema/store.go
package schema

import (
	"log/slog"
	"strings"
	"sync"

	dberrors "rrrdb/internal/errors"
	"rrrdb/internal/logging"
	"rrrdb/pkg/cache"
	"rrrdb/pkg/storage"
)

// SchemaSuffix is appended to a database name to form its catalog key
const SchemaSuffix = "_schema"

// Store persists catalog documents in the metadata namespace. Writers to
// the same database are serialized, so concurrent CreateTable calls never
// lose each other's tables. Decoded documents are cached; every write goes
// through the Store, so the cache never goes stale.
type Store struct {
	storage *storage.Storage
	docs    *cache.LRU[string, *Database]
	log     *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore creates a catalog store on top of s
func NewStore(s *storage.Storage) *Store {
	return &Store{
		storage: s,
		docs:    cache.New[string, *Database](cache.DefaultCapacity),
		log:     logging.WithComponent("schema"),
		locks:   make(map[string]*sync.Mutex),
	}
}

func schemaKey(database string) []byte {
	return []byte(database + SchemaSuffix)
}

// lockFor returns the writer lock of a database
func (s *Store) lockFor(database string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[database]
	if !ok {
		l = &sync.Mutex{}
		s.locks[database] = l
	}
	return l
}

// FindSchema loads the catalog document of database. It returns nil
// without error when the database has no document yet. The result is a
// private copy the caller may modify.
func (s *Store) FindSchema(database string) (*Database, error) {
	if db, ok := s.docs.Get(database); ok {
		return db.Clone(), nil
	}

	var db Database
	ok, err := s.storage.GetSerialized(storage.Metadata(), schemaKey(database), &db)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	s.docs.Put(database, db.Clone())
	return &db, nil
}

// CacheStats reports how often FindSchema was served from memory
func (s *Store) CacheStats() cache.Stats {
	return s.docs.Stats()
}

// SaveSchema overwrites the whole catalog document of db
func (s *Store) SaveSchema(db *Database) error {
	l := s.lockFor(db.Name)
	l.Lock()
	defer l.Unlock()

	return s.save(db)
}

func (s *Store) save(db *Database) error {
	if err := s.storage.PutSerialized(storage.Metadata(), schemaKey(db.Name), db); err != nil {
		s.docs.Invalidate(db.Name)
		return err
	}
	s.docs.Put(db.Name, db.Clone())
	return nil
}

// CreateTable appends table to database's catalog, creating the document
// when needed. It fails with ErrTableExists if the name is taken.
func (s *Store) CreateTable(database string, table Table) error {
	if err := table.Validate(); err != nil {
		return err
	}

	l := s.lockFor(database)
	l.Lock()
	defer l.Unlock()

	db, err := s.FindSchema(database)
	if err != nil {
		return err
	}
	if db == nil {
		db = NewDatabase(database)
	}

	if db.Table(table.Name) != nil {
		return dberrors.Schema(ErrTableExists, "table %s in database %s", table.Name, database)
	}

	db.Tables = append(db.Tables, table)
	if err := s.save(db); err != nil {
		return err
	}

	s.log.Info("table created", "database", database, "table", table.Name, "columns", len(table.Columns))
	return nil
}

// KeyspaceOwner finds the catalog table whose rows live in keyspace.
// ok is false when no table claims it.
func (s *Store) KeyspaceOwner(keyspace string) (database, table string, ok bool, err error) {
	names, err := s.ListDatabases()
	if err != nil {
		return "", "", false, err
	}
	for _, name := range names {
		db, err := s.FindSchema(name)
		if err != nil {
			return "", "", false, err
		}
		if db == nil {
			continue
		}
		for _, t := range db.Tables {
			if storage.Table(name, t.Name).Keyspace() == keyspace {
				return name, t.Name, true, nil
			}
		}
	}
	return "", "", false, nil
}

// ListDatabases returns the names of all databases with a catalog
// document, in key order
func (s *Store) ListDatabases() ([]string, error) {
	it, err := s.storage.Iterate(storage.Metadata())
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var names []string
	for it.Next() {
		key := string(it.Key())
		if name, ok := strings.CutSuffix(key, SchemaSuffix); ok {
			names = append(names, name)
		}
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return names, nil
}
