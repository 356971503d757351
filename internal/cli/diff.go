package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aymanbagabas/go-udiff"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/roach88/tagrules/internal/ir"
	"github.com/roach88/tagrules/internal/library"
)

var (
	insertedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	deletedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	hunkStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Faint(true)
)

// renderSummary renders one record's pending changes as a unified diff of
// "field: value" lines, stored state on the left.
func renderSummary(s library.Summary, color bool) string {
	var before, after strings.Builder
	for _, c := range s.Changes {
		if c.Old != nil {
			fmt.Fprintf(&before, "%s: %s\n", c.Field, ir.Format(c.Old))
		}
		if c.New != nil {
			fmt.Fprintf(&after, "%s: %s\n", c.Field, ir.Format(c.New))
		}
	}

	label := fmt.Sprintf("%s %d", s.Entity, s.ID)
	diff := udiff.Unified(label+" (stored)", label, before.String(), after.String())
	if !color {
		return diff
	}
	return colorizeDiff(diff)
}

func colorizeDiff(diff string) string {
	lines := strings.Split(diff, "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			// headers stay plain
		case strings.HasPrefix(line, "@@"):
			lines[i] = hunkStyle.Render(line)
		case strings.HasPrefix(line, "+"):
			lines[i] = insertedStyle.Render(line)
		case strings.HasPrefix(line, "-"):
			lines[i] = deletedStyle.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}

// isTerminal reports whether w is a terminal, for deciding on color.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	//nolint:gosec // G115: file descriptors fit in int.
	return term.IsTerminal(int(f.Fd()))
}
