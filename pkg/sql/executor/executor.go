// pkg/sql/executor/executor.go
package executor

import (
	"fmt"
	"log/slog"

	json "github.com/goccy/go-json"

	dberrors "rrrdb/internal/errors"
	"rrrdb/internal/logging"
	"rrrdb/pkg/schema"
	"rrrdb/pkg/sql/planner"
	"rrrdb/pkg/storage"
)

// Executor runs plans against storage and the catalog
type Executor struct {
	storage *storage.Storage
	store   *schema.Store
	log     *slog.Logger
}

// New creates an executor
func New(s *storage.Storage, store *schema.Store) *Executor {
	return &Executor{
		storage: s,
		store:   store,
		log:     logging.WithComponent("executor"),
	}
}

// Execute runs a plan
func (e *Executor) Execute(plan planner.Plan) (*Outcome, error) {
	switch p := plan.(type) {
	case *planner.SelectPlan:
		rs, err := e.executeSelect(p)
		if err != nil {
			return nil, err
		}
		return &Outcome{Kind: OutcomeRows, ResultSet: rs}, nil
	case *planner.InsertPlan:
		if err := e.executeInsert(p); err != nil {
			return nil, err
		}
		return &Outcome{Kind: OutcomeInserted, RowsAffected: 1}, nil
	case *planner.CreateDatabasePlan:
		return &Outcome{Kind: OutcomeDatabaseCreated}, nil
	case *planner.CreateTablePlan:
		if err := e.executeCreateTable(p); err != nil {
			return nil, err
		}
		return &Outcome{Kind: OutcomeTableCreated}, nil
	default:
		return nil, dberrors.Plan("unsupported plan %T", plan)
	}
}

func metadataOf(projections []planner.ProjectionPlan) ResultMetadata {
	fields := make([]FieldMetadata, len(projections))
	for i, proj := range projections {
		fields[i] = FieldMetadata{Name: proj.Column.Name, Type: proj.Column.ColumnType.String()}
	}
	return ResultMetadata{Fields: fields}
}

// scanTable picks the single table a select reads
func scanTable(p *planner.SelectPlan) (schema.Table, error) {
	if len(p.Plans) == 0 {
		return schema.Table{}, dberrors.Plan("select without a table is not supported")
	}
	table := p.Plans[0].Table
	for _, tp := range p.Plans[1:] {
		if tp.Table.Name != table.Name {
			return schema.Table{}, dberrors.Plan("select over several tables is not supported")
		}
	}
	return table, nil
}

func (e *Executor) executeSelect(p *planner.SelectPlan) (*ResultSet, error) {
	rs := &ResultSet{Metadata: metadataOf(p.Projections)}

	table, err := scanTable(p)
	if err != nil {
		return nil, err
	}

	it, err := e.storage.Iterate(storage.Table(p.Database, table.Name))
	if err != nil {
		return nil, err
	}

	var rows RowIterator = NewTableScanIterator(it, table)
	if len(p.Filters) > 0 {
		rows = NewFilterIterator(rows, p.Filters)
	}
	proj := NewProjectionIterator(rows, p.Projections)
	defer proj.Close()

	for proj.Next() {
		rs.Records = append(rs.Records, proj.Record())
	}
	if err := proj.Err(); err != nil {
		return nil, err
	}
	return rs, nil
}

func (e *Executor) executeInsert(p *planner.InsertPlan) error {
	doc := make(map[string]string, len(p.Values))
	for _, rv := range p.Values {
		doc[rv.Column.Name] = rv.Value.Raw()
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return dberrors.Wrap(dberrors.KindData, err, "encode row of table %s", p.Table.Name)
	}

	return e.storage.Put(storage.Table(p.Database, p.Table.Name), []byte(p.ID()), data)
}

func (e *Executor) executeCreateTable(p *planner.CreateTablePlan) error {
	table := schema.Table{Name: p.TableName, Columns: make([]schema.Column, 0, len(p.Columns))}
	for _, def := range p.Columns {
		ct, err := schema.ParseColumnType(def.Type)
		if err != nil {
			return err
		}
		table.Columns = append(table.Columns, schema.Column{Name: def.Name, ColumnType: ct})
	}
	if err := table.Validate(); err != nil {
		return err
	}

	ns := storage.Table(p.DatabaseName, p.TableName)
	if e.storage.HasKeyspace(ns.Keyspace()) {
		// An unclaimed keyspace is left over from an interrupted create and is reused
		owner, ownerTable, ok, err := e.store.KeyspaceOwner(ns.Keyspace())
		if err != nil {
			return err
		}
		if ok && (owner != p.DatabaseName || ownerTable != p.TableName) {
			return dberrors.Schema(schema.ErrKeyspaceTaken, "table %s in database %s", p.TableName, p.DatabaseName).
				WithDetail(fmt.Sprintf("keyspace %s holds table %s of database %s", ns.Keyspace(), ownerTable, owner))
		}
	}
	if err := e.storage.CreateKeyspace(ns.Keyspace()); err != nil {
		return err
	}

	if err := e.store.CreateTable(p.DatabaseName, table); err != nil {
		return err
	}
	e.log.Debug("table keyspace ready", "keyspace", ns.Keyspace())
	return nil
}
