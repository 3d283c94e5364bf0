// cmd/rrrdb/main.go
//
// rrrdb CLI - Interactive SQL shell for rrrdb databases.
//
// Usage:
//
//	rrrdb [-path file] [-db name] [-e sql]
//
// Without -path an in-memory database is opened.
// Use .help for available commands.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chzyer/readline"

	"rrrdb/internal/logging"
	"rrrdb/pkg/cli"
	"rrrdb/pkg/rrrdb"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		path      = flag.String("path", rrrdb.MemoryPath, "database file, or :memory:")
		database  = flag.String("db", "main", "database statements run against")
		logLevel  = flag.String("log-level", "warn", "log level: debug, info, warn, error")
		logFormat = flag.String("log-format", "text", "log format: text or json")
		logFile   = flag.String("log-file", "", "write logs to this file instead of stderr")
		sync      = flag.Bool("sync", false, "fsync after every write statement")
		pageSize  = flag.Int("page-size", 0, "page size in bytes for new files (default 4096)")
		execute   = flag.String("e", "", "execute one statement and exit")
	)
	flag.Parse()

	level, err := logging.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	if err := logging.Init(logging.Config{
		Level:      level,
		OutputPath: *logFile,
		Writer:     os.Stderr,
		Format:     *logFormat,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		return 1
	}
	defer logging.Close()

	db, err := rrrdb.Open(*path, rrrdb.Options{PageSize: *pageSize, SyncWrites: *sync})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		return 1
	}
	defer db.Close()

	if *execute != "" {
		repl := cli.NewREPL(db, *database, cli.NewShell(nil, nil), os.Stdout, os.Stderr)
		if err := repl.ExecuteStatement(*execute); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	shell, err := newShell()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting shell: %v\n", err)
		return 1
	}
	defer shell.Close()

	if failures := cli.NewREPL(db, *database, shell, os.Stdout, os.Stderr).Run(); failures > 0 && !readline.IsTerminal(int(os.Stdin.Fd())) {
		return 1
	}
	return 0
}

// newShell uses line editing on a terminal and plain reads otherwise
func newShell() (*cli.Shell, error) {
	if !readline.IsTerminal(int(os.Stdin.Fd())) {
		return cli.NewShell(os.Stdin, nil), nil
	}

	history := ""
	if home, err := os.UserHomeDir(); err == nil {
		history = filepath.Join(home, ".rrrdb_history")
	}
	return cli.NewTerminalShell(history)
}
