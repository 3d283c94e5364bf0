// pkg/cli/shell.go
package cli

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"github.com/chzyer/readline"
)

// errInterrupted is returned by a lineReader when the user pressed Ctrl-C
var errInterrupted = errors.New("interrupted")

// lineReader is the source of input lines
type lineReader interface {
	// ReadLine shows prompt and returns the next line, or io.EOF
	ReadLine(prompt string) (string, error)
	Close() error
}

// bufferedReader reads lines from any io.Reader and echoes prompts to out
type bufferedReader struct {
	reader *bufio.Reader
	output io.Writer
}

func (b *bufferedReader) ReadLine(prompt string) (string, error) {
	if b.output != nil {
		io.WriteString(b.output, prompt)
	}
	return b.reader.ReadString('\n')
}

func (b *bufferedReader) Close() error { return nil }

// terminalReader uses readline for line editing and persistent history
type terminalReader struct {
	rl *readline.Instance
}

func (t *terminalReader) ReadLine(prompt string) (string, error) {
	t.rl.SetPrompt(prompt)
	line, err := t.rl.Readline()
	if errors.Is(err, readline.ErrInterrupt) {
		return "", errInterrupted
	}
	return line, err
}

func (t *terminalReader) Close() error { return t.rl.Close() }

// Shell reads SQL statements and dot-commands. Statements may span lines
// and end at a semicolon; dot-commands end at the line break.
type Shell struct {
	// reader reads input lines
	reader lineReader

	// prompt is the primary prompt shown for new statements
	prompt string

	// continuePrompt is shown for multi-line statement continuation
	continuePrompt string

	// history stores completed statements
	history []string

	// maxHistory is the maximum number of history entries to keep
	maxHistory int
}

// NewShell creates a shell over a plain reader, writing prompts to output.
// A nil input behaves like an empty one.
func NewShell(input io.Reader, output io.Writer) *Shell {
	if input == nil {
		input = strings.NewReader("")
	}
	return newShell(&bufferedReader{reader: bufio.NewReader(input), output: output})
}

// NewTerminalShell creates a shell with line editing on the process
// terminal. History is kept in historyFile when it is not empty.
func NewTerminalShell(historyFile string) (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "rrrdb> ",
		HistoryFile:     historyFile,
		HistoryLimit:    1000,
		InterruptPrompt: "^C",
		EOFPrompt:       ".exit",
	})
	if err != nil {
		return nil, err
	}
	return newShell(&terminalReader{rl: rl}), nil
}

func newShell(reader lineReader) *Shell {
	return &Shell{
		reader:         reader,
		prompt:         "rrrdb> ",
		continuePrompt: "   ...> ",
		history:        make([]string, 0),
		maxHistory:     1000,
	}
}

// SetPrompt changes the primary prompt string.
func (s *Shell) SetPrompt(prompt string) {
	s.prompt = prompt
}

// SetContinuePrompt changes the continuation prompt string.
func (s *Shell) SetContinuePrompt(prompt string) {
	s.continuePrompt = prompt
}

// Close releases the terminal, if any
func (s *Shell) Close() error {
	return s.reader.Close()
}

// ReadStatement reads a complete SQL statement or a dot-command. It
// returns the input and whether EOF was reached. Ctrl-C discards the
// statement being typed.
func (s *Shell) ReadStatement() (string, bool) {
	var lines []string

	for {
		prompt := s.prompt
		if len(lines) > 0 {
			prompt = s.continuePrompt
		}

		line, err := s.reader.ReadLine(prompt)
		if errors.Is(err, errInterrupted) {
			lines = lines[:0]
			continue
		}
		eof := err != nil
		line = strings.TrimRight(line, " \t\r\n")

		// Handle empty input
		if eof && line == "" && len(lines) == 0 {
			return "", true
		}

		// Dot-commands are single-line
		if len(lines) == 0 && strings.HasPrefix(strings.TrimSpace(line), ".") {
			return strings.TrimSpace(line), eof
		}

		lines = append(lines, line)
		combined := strings.Join(lines, "\n")

		if s.IsComplete(combined) {
			if trimmed := strings.TrimSpace(combined); trimmed != "" {
				s.AddHistory(trimmed)
			}
			return combined, eof
		}

		// If we hit EOF with an incomplete statement, return what we have
		if eof {
			return combined, true
		}
	}
}

// IsComplete reports whether sql ends with a semicolon outside a string
// literal. Only single quotes delimit strings.
func (s *Shell) IsComplete(sql string) bool {
	inString := false
	complete := false

	for _, r := range sql {
		switch {
		case r == '\'':
			inString = !inString
			complete = false
		case inString:
		case r == ';':
			complete = true
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
		default:
			complete = false
		}
	}

	return complete && !inString
}

// AddHistory adds a statement to the command history.
func (s *Shell) AddHistory(stmt string) {
	// Don't add duplicates of the last entry
	if len(s.history) > 0 && s.history[len(s.history)-1] == stmt {
		return
	}

	s.history = append(s.history, stmt)
	if len(s.history) > s.maxHistory {
		s.history = s.history[len(s.history)-s.maxHistory:]
	}
}

// History returns a copy of the command history.
func (s *Shell) History() []string {
	result := make([]string, len(s.history))
	copy(result, s.history)
	return result
}
