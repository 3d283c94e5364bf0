// pkg/rrrdb/db.go
package rrrdb

import (
	"errors"
	"log/slog"
	"sync"

	dberrors "rrrdb/internal/errors"
	"rrrdb/internal/logging"
	"rrrdb/pkg/pager"
	"rrrdb/pkg/schema"
	"rrrdb/pkg/sql/executor"
	"rrrdb/pkg/sql/lexer"
	"rrrdb/pkg/sql/parser"
	"rrrdb/pkg/sql/planner"
	"rrrdb/pkg/storage"
)

var (
	// ErrDatabaseClosed is returned when attempting operations on a closed database
	ErrDatabaseClosed = errors.New("database is closed")

	// ErrReadOnly is returned for statements that would write to a read-only database
	ErrReadOnly = errors.New("database is read-only")
)

// MemoryPath opens a database that lives only in memory
const MemoryPath = pager.MemoryPath

type (
	// Outcome is the result of one statement
	Outcome = executor.Outcome
	// ResultSet holds the rows of a SELECT
	ResultSet = executor.ResultSet
)

// Options configures database opening behavior
type Options struct {
	// PageSize specifies the page size in bytes for new files (default 4096)
	PageSize int

	// SyncWrites fsyncs the file after every mutating statement
	SyncWrites bool

	// ReadOnly opens the database in read-only mode
	ReadOnly bool
}

// DB represents an open database. It owns the storage and every stage of
// the query pipeline; statements run one at a time.
type DB struct {
	mu sync.Mutex

	// path is the file path of the database, or MemoryPath
	path string
	opts Options

	storage  *storage.Storage
	store    *schema.Store
	planner  *planner.Planner
	executor *executor.Executor
	log      *slog.Logger

	closed bool
}

// Open opens a database file, creating it if it does not exist. The
// caller is responsible for calling Close when done.
func Open(path string, opts Options) (*DB, error) {
	s, err := storage.Open(path, storage.Options{
		PageSize:    opts.PageSize,
		ReadOnly:    opts.ReadOnly,
		SyncOnFlush: opts.SyncWrites,
	})
	if err != nil {
		return nil, err
	}

	store := schema.NewStore(s)
	db := &DB{
		path:     path,
		opts:     opts,
		storage:  s,
		store:    store,
		planner:  planner.New(store),
		executor: executor.New(s, store),
		log:      logging.WithComponent("db").With("path", path),
	}

	db.log.Info("database opened", "read_only", opts.ReadOnly)
	return db, nil
}

// OpenMemory opens an empty in-memory database
func OpenMemory() (*DB, error) {
	return Open(MemoryPath, Options{})
}

// Path returns the file path of the database
func (db *DB) Path() string {
	return db.path
}

// Execute runs one SQL statement against database. Mutating statements
// are flushed to the file before Execute returns.
func (db *DB) Execute(database, sql string) (*Outcome, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return nil, ErrDatabaseClosed
	}

	log := db.log.With("database", database)
	out, err := db.execute(database, sql)
	if err != nil {
		log.Debug("statement failed", "sql", sql, "error", err)
		return nil, err
	}

	switch out.Kind {
	case executor.OutcomeDatabaseCreated, executor.OutcomeTableCreated:
		log.Info(out.Kind.String(), "sql", sql)
	}
	return out, nil
}

func (db *DB) execute(database, sql string) (*Outcome, error) {
	tokens, err := lexer.Tokenize(sql)
	if err != nil {
		return nil, err
	}

	stmt, err := parser.New(database, tokens).Parse()
	if err != nil {
		return nil, err
	}

	plan, err := db.planner.Plan(database, stmt)
	if err != nil {
		return nil, err
	}

	_, query := plan.(*planner.SelectPlan)
	if !query && db.opts.ReadOnly {
		return nil, dberrors.Storage(ErrReadOnly, "cannot run %T", stmt)
	}

	out, err := db.executor.Execute(plan)
	if err != nil {
		return nil, err
	}

	if !query {
		if err := db.storage.Flush(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Databases lists the databases that have at least one table
func (db *DB) Databases() ([]string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return nil, ErrDatabaseClosed
	}
	return db.store.ListDatabases()
}

// Schema returns the catalog of database, or nil if it has no tables
func (db *DB) Schema(database string) (*schema.Database, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return nil, ErrDatabaseClosed
	}
	return db.store.FindSchema(database)
}

// Close closes the database and releases the file lock. It is an error
// to call Close more than once.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return ErrDatabaseClosed
	}
	db.closed = true

	if err := db.storage.Close(); err != nil {
		return err
	}
	db.log.Info("database closed")
	return nil
}
