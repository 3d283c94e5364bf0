// pkg/rrrdb/db_test.go
package rrrdb

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"

	dberrors "rrrdb/internal/errors"
	"rrrdb/pkg/pager"
	"rrrdb/pkg/schema"
	"rrrdb/pkg/sql/executor"
)

func openMemory(t *testing.T) *DB {
	t.Helper()
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func mustExec(t *testing.T, db *DB, sql string) *Outcome {
	t.Helper()
	out, err := db.Execute("main", sql)
	if err != nil {
		t.Fatalf("execute %q failed: %v", sql, err)
	}
	return out
}

func recordText(rec executor.Record) string {
	parts := make([]string, len(rec.Values))
	for i, v := range rec.Values {
		parts[i] = v.String()
	}
	return strings.Join(parts, ",")
}

func TestDB_Open_CreatesNewFile(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "new.db")

	db, err := Open(dbPath, Options{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file should exist after Open")
	}
	if db.Path() != dbPath {
		t.Errorf("expected path %q, got %q", dbPath, db.Path())
	}
}

func TestDB_Close_Twice(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := db.Close(); !errors.Is(err, ErrDatabaseClosed) {
		t.Errorf("expected ErrDatabaseClosed, got %v", err)
	}
	if _, err := db.Execute("main", "SELECT 1"); !errors.Is(err, ErrDatabaseClosed) {
		t.Errorf("expected ErrDatabaseClosed from Execute, got %v", err)
	}
}

func TestDB_MetadataOrderMatchesDeclaration(t *testing.T) {
	db := openMemory(t)

	tests := []struct {
		create   string
		expected []string
	}{
		{"CREATE TABLE a (id int, name varchar)", []string{"id", "name"}},
		{"CREATE TABLE b (zeta string, id integer, alpha int)", []string{"zeta", "id", "alpha"}},
		{"CREATE TABLE c (name varchar, id int)", []string{"name", "id"}},
	}

	for _, tt := range tests {
		mustExec(t, db, tt.create)
		table := strings.Fields(tt.create)[2]
		out := mustExec(t, db, "SELECT * FROM "+table)
		got := out.ResultSet.Metadata.Names()
		if strings.Join(got, ",") != strings.Join(tt.expected, ",") {
			t.Errorf("%s: expected %v, got %v", table, tt.expected, got)
		}
	}
}

func TestDB_InsertSelectRoundTrip(t *testing.T) {
	db := openMemory(t)
	mustExec(t, db, "CREATE TABLE t (id integer, name varchar)")
	mustExec(t, db, "INSERT INTO t VALUES (1, 'Alice')")

	out := mustExec(t, db, "SELECT * FROM t WHERE id = 1")
	if out.ResultSet.Len() != 1 {
		t.Fatalf("expected one record, got %d", out.ResultSet.Len())
	}
	rec := out.ResultSet.Records[0]
	if len(rec.Values) != 2 || !rec.Values[0].Equal(executor.IntField(1)) || !rec.Values[1].Equal(executor.TextField("Alice")) {
		t.Errorf("unexpected record %+v", rec)
	}
}

func TestDB_InsertIsIdempotentPerID(t *testing.T) {
	db := openMemory(t)
	mustExec(t, db, "CREATE TABLE t (id integer, name varchar)")

	for i := 0; i < 3; i++ {
		mustExec(t, db, "INSERT INTO t VALUES (1, 'Alice')")
	}

	out := mustExec(t, db, "SELECT * FROM t WHERE id = 1")
	if out.ResultSet.Len() != 1 {
		t.Errorf("expected exactly one record for id 1, got %d", out.ResultSet.Len())
	}
}

func TestDB_CreateTableTwice(t *testing.T) {
	db := openMemory(t)
	mustExec(t, db, "CREATE TABLE t (id integer, name varchar)")

	_, err := db.Execute("main", "CREATE TABLE t (id integer)")
	if !dberrors.Is(err, dberrors.KindSchema) || !errors.Is(err, schema.ErrTableExists) {
		t.Fatalf("expected table exists error, got %v", err)
	}

	// The first definition is untouched
	catalog, err := db.Schema("main")
	if err != nil {
		t.Fatalf("schema failed: %v", err)
	}
	if table := catalog.Table("t"); table == nil || len(table.Columns) != 2 {
		t.Errorf("catalog changed after failed create: %+v", catalog)
	}
}

func TestDB_UnresolvedNames(t *testing.T) {
	db := openMemory(t)
	mustExec(t, db, "CREATE TABLE t (id integer, name varchar)")

	tests := []struct {
		sql  string
		name string
	}{
		{"SELECT col FROM missing_table", "missing_table"},
		{"SELECT unknown_col FROM t", "unknown_col"},
	}
	for _, tt := range tests {
		_, err := db.Execute("main", tt.sql)
		if !dberrors.Is(err, dberrors.KindPlan) {
			t.Errorf("%s: expected plan error, got %v", tt.sql, err)
			continue
		}
		if !strings.Contains(err.Error(), tt.name) {
			t.Errorf("%s: error %q should name %s", tt.sql, err, tt.name)
		}
	}
}

func TestDB_UsersScenario(t *testing.T) {
	db := openMemory(t)
	mustExec(t, db, "CREATE TABLE users (id integer, name varchar)")
	mustExec(t, db, "INSERT INTO users VALUES (1, 'Alice')")
	mustExec(t, db, "INSERT INTO users VALUES (2, 'Bob')")

	out := mustExec(t, db, "SELECT name FROM users WHERE id = 2")
	rs := out.ResultSet
	if rs.Len() != 1 || recordText(rs.Records[0]) != "Bob" {
		t.Errorf("expected [Bob], got %+v", rs.Records)
	}
	if len(rs.Metadata.Fields) != 1 || rs.Metadata.Fields[0] != (executor.FieldMetadata{Name: "name", Type: "varchar"}) {
		t.Errorf("unexpected metadata %+v", rs.Metadata.Fields)
	}
}

func TestDB_ErrorKinds(t *testing.T) {
	db := openMemory(t)
	mustExec(t, db, "CREATE TABLE users (id integer, name varchar)")

	tests := []struct {
		sql  string
		kind dberrors.Kind
	}{
		{"SELECT ! FROM users", dberrors.KindTokenize},
		{"SELECT FROM", dberrors.KindParse},
		{"DROP TABLE users", dberrors.KindParse},
		{"SELECT * FROM nowhere", dberrors.KindPlan},
		{"CREATE TABLE x (id blob)", dberrors.KindSchema},
		{"INSERT INTO users VALUES (1)", dberrors.KindData},
		{"INSERT INTO users VALUES ('one', 'Alice')", dberrors.KindData},
	}
	for _, tt := range tests {
		_, err := db.Execute("main", tt.sql)
		if got := dberrors.KindOf(err); got != tt.kind {
			t.Errorf("%s: expected %s error, got %v", tt.sql, tt.kind, err)
		}
	}
}

func TestDB_DatabasesAreIsolated(t *testing.T) {
	db := openMemory(t)
	if _, err := db.Execute("shop", "CREATE TABLE users (id int, name varchar)"); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := db.Execute("blog", "CREATE TABLE users (id int, title varchar, words int)"); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := db.Execute("shop", "INSERT INTO users VALUES (1, 'Alice')"); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	out, err := db.Execute("blog", "SELECT * FROM users")
	if err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if out.ResultSet.Len() != 0 || len(out.ResultSet.Metadata.Fields) != 3 {
		t.Errorf("blog.users should be empty with three columns, got %+v", out.ResultSet)
	}

	names, err := db.Databases()
	if err != nil {
		t.Fatalf("databases failed: %v", err)
	}
	if strings.Join(names, ",") != "blog,shop" {
		t.Errorf("expected [blog shop], got %v", names)
	}
}

func TestDB_Persistence(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "persist.db")

	db, err := Open(dbPath, Options{PageSize: 1024})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	mustExec(t, db, "CREATE TABLE users (id integer, name varchar)")
	for i := 0; i < 200; i++ {
		mustExec(t, db, fmt.Sprintf("INSERT INTO users VALUES (%d, 'user-%d')", i, i))
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	db, err = Open(dbPath, Options{})
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer db.Close()

	out := mustExec(t, db, "SELECT id FROM users")
	if out.ResultSet.Len() != 200 {
		t.Errorf("expected 200 rows after reopen, got %d", out.ResultSet.Len())
	}
	out = mustExec(t, db, "SELECT name FROM users WHERE id = 123")
	if out.ResultSet.Len() != 1 || recordText(out.ResultSet.Records[0]) != "user-123" {
		t.Errorf("unexpected lookup result %+v", out.ResultSet.Records)
	}
}

func TestDB_ReadOnly(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ro.db")

	db, err := Open(dbPath, Options{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	mustExec(t, db, "CREATE TABLE t (id integer)")
	mustExec(t, db, "INSERT INTO t VALUES (1)")
	db.Close()

	db, err = Open(dbPath, Options{ReadOnly: true})
	if err != nil {
		t.Fatalf("read-only open failed: %v", err)
	}
	defer db.Close()

	if out := mustExec(t, db, "SELECT * FROM t"); out.ResultSet.Len() != 1 {
		t.Errorf("expected one row, got %d", out.ResultSet.Len())
	}
	if _, err := db.Execute("main", "INSERT INTO t VALUES (2)"); !errors.Is(err, ErrReadOnly) {
		t.Errorf("expected ErrReadOnly, got %v", err)
	}
}

func TestDB_Locked(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file locking is unix-only")
	}
	dbPath := filepath.Join(t.TempDir(), "locked.db")

	db, err := Open(dbPath, Options{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if _, err := Open(dbPath, Options{}); !errors.Is(err, pager.ErrLocked) {
		t.Errorf("expected ErrLocked for a second open, got %v", err)
	}
}

func TestDB_ConcurrentExecute(t *testing.T) {
	db := openMemory(t)
	mustExec(t, db, "CREATE TABLE t (id integer, worker integer)")

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				sql := fmt.Sprintf("INSERT INTO t VALUES (%d, %d)", w*100+i, w)
				if _, err := db.Execute("main", sql); err != nil {
					errs <- err
					return
				}
				if _, err := db.Execute("main", "SELECT id FROM t"); err != nil {
					errs <- err
					return
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent execute failed: %v", err)
	}
	if out := mustExec(t, db, "SELECT id FROM t"); out.ResultSet.Len() != 200 {
		t.Errorf("expected 200 rows, got %d", out.ResultSet.Len())
	}
}

func TestDB_OutcomeKinds(t *testing.T) {
	db := openMemory(t)

	expected := []struct {
		sql  string
		kind executor.OutcomeKind
	}{
		{"CREATE DATABASE main", executor.OutcomeDatabaseCreated},
		{"CREATE TABLE t (id int);", executor.OutcomeTableCreated},
		{"INSERT INTO t VALUES (1);", executor.OutcomeInserted},
		{"SELECT * FROM t;", executor.OutcomeRows},
	}
	for _, tt := range expected {
		if out := mustExec(t, db, tt.sql); out.Kind != tt.kind {
			t.Errorf("%s: expected %s, got %s", tt.sql, tt.kind, out.Kind)
		}
	}
}

func TestDB_OutOfRangeIntegerRejected(t *testing.T) {
	db := openMemory(t)
	mustExec(t, db, "CREATE TABLE users (id integer, age integer)")
	mustExec(t, db, "INSERT INTO users VALUES (1, 30)")

	_, err := db.Execute("main", "INSERT INTO users VALUES (2, 99999999999999999999)")
	if !dberrors.Is(err, dberrors.KindData) {
		t.Fatalf("expected data error for out-of-range integer, got %v", err)
	}

	// The table stays readable
	out := mustExec(t, db, "SELECT * FROM users WHERE id = 1")
	if out.ResultSet.Len() != 1 || recordText(out.ResultSet.Records[0]) != "1,30" {
		t.Errorf("unexpected rows %+v", out.ResultSet.Records)
	}
	if n := mustExec(t, db, "SELECT id FROM users").ResultSet.Len(); n != 1 {
		t.Errorf("rejected insert should not be stored, got %d rows", n)
	}
	if errs := db.IntegrityCheck(); len(errs) != 0 {
		t.Errorf("expected clean database, got %v", errs)
	}
}
