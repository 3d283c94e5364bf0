// pkg/cli/repl.go
package cli

import (
	"fmt"
	"io"
	"strings"

	"rrrdb/pkg/rrrdb"
	"rrrdb/pkg/schema"
	"rrrdb/pkg/sql/executor"
)

// REPL provides a Read-Eval-Print Loop for interactive SQL execution.
type REPL struct {
	// db is the database connection
	db *rrrdb.DB

	// database is the current database statements run against
	database string

	// shell handles input and statement splitting
	shell *Shell

	// output is where results are written
	output io.Writer

	// errOutput is where errors are written
	errOutput io.Writer

	styles    styles
	errStyles styles

	// exitRequested indicates that .exit was called
	exitRequested bool
}

// NewREPL creates a REPL over db reading from shell.
func NewREPL(db *rrrdb.DB, database string, shell *Shell, output, errOutput io.Writer) *REPL {
	if errOutput == nil {
		errOutput = output
	}
	r := &REPL{
		db:        db,
		database:  database,
		shell:     shell,
		output:    output,
		errOutput: errOutput,
		styles:    newStyles(output),
		errStyles: newStyles(errOutput),
	}
	r.updatePrompt()
	return r
}

// Database returns the current database name
func (r *REPL) Database() string {
	return r.database
}

func (r *REPL) updatePrompt() {
	r.shell.SetPrompt(fmt.Sprintf("rrrdb(%s)> ", r.database))
}

// Run reads and executes statements until EOF or .exit. It returns the
// number of statements that failed.
func (r *REPL) Run() int {
	r.exitRequested = false
	failures := 0

	fmt.Fprintln(r.output, "rrrdb shell")
	fmt.Fprintln(r.output, r.styles.muted.Render(`Enter ".help" for usage hints.`))

	for !r.exitRequested {
		stmt, eof := r.shell.ReadStatement()

		if eof && stmt == "" {
			fmt.Fprintln(r.output)
			break
		}

		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}

		if strings.HasPrefix(stmt, ".") {
			r.handleDotCommand(stmt)
		} else if err := r.ExecuteStatement(stmt); err != nil {
			r.printError(err)
			failures++
		}

		if eof {
			break
		}
	}

	return failures
}

// ExecuteStatement executes a single SQL statement and displays the result.
func (r *REPL) ExecuteStatement(sql string) error {
	out, err := r.db.Execute(r.database, sql)
	if err != nil {
		return err
	}

	r.displayOutcome(out)
	return nil
}

func (r *REPL) displayOutcome(out *rrrdb.Outcome) {
	if out.Kind != executor.OutcomeRows {
		fmt.Fprintln(r.output, r.styles.muted.Render(out.Message()))
		return
	}
	r.displayTable(out.ResultSet)
}

// displayTable formats results as an ASCII table.
func (r *REPL) displayTable(rs *rrrdb.ResultSet) {
	columns := rs.Metadata.Names()
	if len(columns) == 0 {
		fmt.Fprintln(r.output, rowCount(rs))
		return
	}

	rows := make([][]string, len(rs.Records))
	for i, rec := range rs.Records {
		rows[i] = make([]string, len(columns))
		for j, v := range rec.Values {
			if j < len(columns) {
				rows[i][j] = v.String()
			}
		}
	}

	// Calculate column widths
	widths := make([]int, len(columns))
	for i, col := range columns {
		widths[i] = len(col)
	}
	for _, row := range rows {
		for i, s := range row {
			if len(s) > widths[i] {
				widths[i] = len(s)
			}
		}
	}

	r.printSeparator(widths)
	r.printRow(columns, widths, r.styles.header.Render)
	r.printSeparator(widths)
	for _, row := range rows {
		r.printRow(row, widths, nil)
	}
	r.printSeparator(widths)

	fmt.Fprintln(r.output, r.styles.muted.Render(rowCount(rs)))
}

func rowCount(rs *rrrdb.ResultSet) string {
	return fmt.Sprintf("%d row(s)", rs.Len())
}

// printSeparator prints a horizontal line separator.
func (r *REPL) printSeparator(widths []int) {
	var sb strings.Builder
	sb.WriteString("+")
	for _, w := range widths {
		sb.WriteString(strings.Repeat("-", w+2))
		sb.WriteString("+")
	}
	fmt.Fprintln(r.output, sb.String())
}

// printRow prints one row, padding before styling so escape codes do not
// count towards the width
func (r *REPL) printRow(values []string, widths []int, render func(...string) string) {
	var sb strings.Builder
	sb.WriteString("|")
	for i, val := range values {
		pad := strings.Repeat(" ", widths[i]-len(val))
		if render != nil {
			val = render(val)
		}
		sb.WriteString(" " + val + pad + " |")
	}
	fmt.Fprintln(r.output, sb.String())
}

// handleDotCommand processes special dot commands.
func (r *REPL) handleDotCommand(cmd string) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return
	}

	switch strings.ToLower(parts[0]) {
	case ".exit", ".quit":
		r.exitRequested = true
	case ".help":
		r.printHelp()
	case ".use":
		if len(parts) != 2 {
			r.printError(fmt.Errorf("usage: .use DATABASE"))
			return
		}
		r.database = parts[1]
		r.updatePrompt()
	case ".databases":
		r.showDatabases()
	case ".tables":
		r.showTables()
	case ".schema":
		if len(parts) > 1 {
			r.showSchema(parts[1])
		} else {
			r.showAllSchemas()
		}
	default:
		r.printError(fmt.Errorf("unknown command: %s", parts[0]))
		fmt.Fprintln(r.errOutput, `Use ".help" for usage hints.`)
	}
}

// printHelp displays help information.
func (r *REPL) printHelp() {
	help := `
.databases         List databases that have tables
.exit              Exit this program
.help              Show this help message
.quit              Exit this program
.schema [TABLE]    Show CREATE statement for table(s)
.tables            List tables of the current database
.use DATABASE      Switch the current database

Enter SQL statements terminated with a semicolon.
Multi-line statements are supported.
`
	fmt.Fprintln(r.output, help)
}

func (r *REPL) showDatabases() {
	names, err := r.db.Databases()
	if err != nil {
		r.printError(err)
		return
	}
	if len(names) == 0 {
		fmt.Fprintln(r.output, "(no databases)")
		return
	}
	for _, name := range names {
		fmt.Fprintln(r.output, name)
	}
}

// catalog loads the current database, printing errors
func (r *REPL) catalog() *schema.Database {
	catalog, err := r.db.Schema(r.database)
	if err != nil {
		r.printError(err)
		return nil
	}
	if catalog == nil {
		return schema.NewDatabase(r.database)
	}
	return catalog
}

// showTables lists all tables in the current database.
func (r *REPL) showTables() {
	catalog := r.catalog()
	if catalog == nil {
		return
	}

	tables := catalog.TableNames()
	if len(tables) == 0 {
		fmt.Fprintln(r.output, "(no tables)")
		return
	}
	for _, name := range tables {
		fmt.Fprintln(r.output, name)
	}
}

// showSchema shows the CREATE statement for a specific table.
func (r *REPL) showSchema(tableName string) {
	catalog := r.catalog()
	if catalog == nil {
		return
	}

	table := catalog.Table(tableName)
	if table == nil {
		r.printError(fmt.Errorf("no such table: %s", tableName))
		return
	}
	fmt.Fprintln(r.output, generateCreateSQL(table))
}

// showAllSchemas shows CREATE statements for all tables.
func (r *REPL) showAllSchemas() {
	catalog := r.catalog()
	if catalog == nil {
		return
	}
	for i := range catalog.Tables {
		fmt.Fprintln(r.output, generateCreateSQL(&catalog.Tables[i]))
	}
}

// generateCreateSQL renders a CREATE TABLE statement for a table.
func generateCreateSQL(table *schema.Table) string {
	var sb strings.Builder
	sb.WriteString("CREATE TABLE ")
	sb.WriteString(table.Name)
	sb.WriteString(" (")

	for i, col := range table.Columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(col.Name)
		sb.WriteString(" ")
		sb.WriteString(col.ColumnType.String())
	}

	sb.WriteString(");")
	return sb.String()
}

// printError prints an error message to the error output.
func (r *REPL) printError(err error) {
	fmt.Fprintln(r.errOutput, r.errStyles.err.Render(fmt.Sprintf("Error: %v", err)))
}
