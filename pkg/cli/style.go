// pkg/cli/style.go
package cli

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	accentColor = lipgloss.Color("#06B6D4") // Cyan
	errorColor  = lipgloss.Color("#EF4444") // Red
	mutedColor  = lipgloss.Color("#94A3B8") // Slate
)

// styles render shell output. Colors only appear when the output is a
// terminal that supports them.
type styles struct {
	header lipgloss.Style
	err    lipgloss.Style
	muted  lipgloss.Style
}

func newStyles(output io.Writer) styles {
	r := lipgloss.NewRenderer(output)
	return styles{
		header: r.NewStyle().Bold(true).Foreground(accentColor),
		err:    r.NewStyle().Bold(true).Foreground(errorColor),
		muted:  r.NewStyle().Foreground(mutedColor),
	}
}
