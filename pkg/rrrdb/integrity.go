// pkg/rrrdb/integrity.go
package rrrdb

import (
	"fmt"
	"strconv"
	"strings"

	"rrrdb/pkg/schema"
	"rrrdb/pkg/sql/executor"
	"rrrdb/pkg/storage"
)

// IntegrityError represents a single integrity check finding
type IntegrityError struct {
	// Type indicates the kind of problem (catalog, keyspace, row)
	Type string

	// Database and Table locate the problem when applicable
	Database string
	Table    string

	// Key is the affected row key (if applicable)
	Key string

	// Message provides details about the error
	Message string
}

// String returns a human-readable description of the integrity error
func (e IntegrityError) String() string {
	var location []string
	if e.Database != "" {
		location = append(location, "database "+e.Database)
	}
	if e.Table != "" {
		location = append(location, "table "+e.Table)
	}
	if e.Key != "" {
		location = append(location, fmt.Sprintf("key %q", e.Key))
	}

	if len(location) > 0 {
		return fmt.Sprintf("[%s] %s: %s", e.Type, strings.Join(location, ", "), e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Error implements the error interface
func (e IntegrityError) Error() string {
	return e.String()
}

// IntegrityCheck walks every catalog document and every table keyspace.
// It reports:
//   - catalog documents that fail to decode or validate
//   - tables whose keyspace is missing
//   - keyspaces no table claims (left behind by an interrupted CREATE TABLE)
//   - rows that do not decode against their table or whose key differs from their id
//
// An empty slice means no problems were found.
func (db *DB) IntegrityCheck() []IntegrityError {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return []IntegrityError{{Type: "database", Message: "database is closed"}}
	}

	var errs []IntegrityError

	names, err := db.store.ListDatabases()
	if err != nil {
		return []IntegrityError{{Type: "catalog", Message: err.Error()}}
	}

	claimed := map[string]bool{storage.MetadataKeyspace: true}
	for _, name := range names {
		catalog, err := db.store.FindSchema(name)
		if err != nil {
			errs = append(errs, IntegrityError{Type: "catalog", Database: name, Message: err.Error()})
			continue
		}
		if catalog.Name != name {
			errs = append(errs, IntegrityError{
				Type:     "catalog",
				Database: name,
				Message:  fmt.Sprintf("document names database %q", catalog.Name),
			})
		}

		for _, table := range catalog.Tables {
			ns := storage.Table(name, table.Name)
			claimed[ns.Keyspace()] = true

			if err := table.Validate(); err != nil {
				errs = append(errs, IntegrityError{Type: "catalog", Database: name, Table: table.Name, Message: err.Error()})
				continue
			}
			if !db.storage.HasKeyspace(ns.Keyspace()) {
				errs = append(errs, IntegrityError{
					Type:     "keyspace",
					Database: name,
					Table:    table.Name,
					Message:  fmt.Sprintf("keyspace %s is missing", ns.Keyspace()),
				})
				continue
			}
			errs = append(errs, db.checkRows(name, table)...)
		}
	}

	for _, ks := range db.storage.Keyspaces() {
		if !claimed[ks] {
			errs = append(errs, IntegrityError{
				Type:    "keyspace",
				Message: fmt.Sprintf("keyspace %s belongs to no table", ks),
			})
		}
	}

	return errs
}

// checkRows decodes every row of table
func (db *DB) checkRows(database string, table schema.Table) []IntegrityError {
	it, err := db.storage.Iterate(storage.Table(database, table.Name))
	if err != nil {
		return []IntegrityError{{Type: "keyspace", Database: database, Table: table.Name, Message: err.Error()}}
	}
	defer it.Close()

	var errs []IntegrityError
	for it.Next() {
		key := string(it.Key())
		row, err := executor.DecodeRow(table, it.Key(), it.Value())
		if err != nil {
			errs = append(errs, IntegrityError{Type: "row", Database: database, Table: table.Name, Key: key, Message: err.Error()})
			continue
		}

		id, ok := row[schema.IDColumn]
		if !ok || idMatchesKey(id, key) {
			continue
		}
		errs = append(errs, IntegrityError{
			Type:     "row",
			Database: database,
			Table:    table.Name,
			Key:      key,
			Message:  fmt.Sprintf("stored id %q does not match key", id.String()),
		})
	}
	if err := it.Err(); err != nil {
		errs = append(errs, IntegrityError{Type: "keyspace", Database: database, Table: table.Name, Message: err.Error()})
	}
	return errs
}

// idMatchesKey compares integer ids by value since keys keep the literal text
func idMatchesKey(id executor.FieldValue, key string) bool {
	if id.Kind == executor.FieldInt {
		n, err := strconv.ParseInt(key, 10, 64)
		return err == nil && n == id.Int
	}
	return id.String() == key
}
