// pkg/storage/namespace.go
package storage

import "fmt"

// MetadataKeyspace holds catalog documents and always exists
const MetadataKeyspace = "metadata"

// NamespaceKind distinguishes the three families of keyspaces
type NamespaceKind int

const (
	NamespaceMetadata NamespaceKind = iota
	NamespaceDatabase
	NamespaceTable
)

// Namespace is a logical name for a keyspace
type Namespace struct {
	Kind     NamespaceKind
	Database string
	Table    string
}

// Metadata returns the catalog namespace
func Metadata() Namespace {
	return Namespace{Kind: NamespaceMetadata}
}

// Database returns the namespace of a database
func Database(name string) Namespace {
	return Namespace{Kind: NamespaceDatabase, Database: name}
}

// Table returns the namespace holding a table's rows
func Table(database, name string) Namespace {
	return Namespace{Kind: NamespaceTable, Database: database, Table: name}
}

// Keyspace returns the physical keyspace name:
// "metadata", the database name, or "{database}_{table}".
func (n Namespace) Keyspace() string {
	switch n.Kind {
	case NamespaceDatabase:
		return n.Database
	case NamespaceTable:
		return fmt.Sprintf("%s_%s", n.Database, n.Table)
	default:
		return MetadataKeyspace
	}
}

func (n Namespace) String() string {
	return n.Keyspace()
}
