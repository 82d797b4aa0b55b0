package output

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))  // green
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))  // red
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")) // yellow
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14")) // cyan
)

// Symbols prefix every status line.
var Symbols = map[string]string{
	"pass":    "✓",
	"fail":    "✗",
	"warning": "!",
	"bullet":  "•",
}

// PrintSuccess writes a green status line to w.
func PrintSuccess(w io.Writer, text string) {
	fmt.Fprintln(w, successStyle.Render(Symbols["pass"]+" "+text))
}

// PrintError writes a red status line to w.
func PrintError(w io.Writer, text string) {
	fmt.Fprintln(w, errorStyle.Render(Symbols["fail"]+" "+text))
}

// PrintWarning writes a yellow status line to w.
func PrintWarning(w io.Writer, text string) {
	fmt.Fprintln(w, warningStyle.Render(Symbols["warning"]+" "+text))
}

// PrintInfo writes a cyan status line to w.
func PrintInfo(w io.Writer, text string) {
	fmt.Fprintln(w, infoStyle.Render(Symbols["bullet"]+" "+text))
}
