package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ivlev/sketchstory/internal/director"
)

var (
	infoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
)

func info(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, infoStyle.Render("[*]")+" "+fmt.Sprintf(format, args...))
}

func success(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, okStyle.Render("[+]")+" "+fmt.Sprintf(format, args...))
}

func warn(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, warnStyle.Render("[!]")+" "+fmt.Sprintf(format, args...))
}

func fail(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, errStyle.Render("[-]")+" "+fmt.Sprintf(format, args...))
}

// renderTimeline draws the scene table for a compiled timeline.
func renderTimeline(tl *director.Timeline) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(tl.Topic))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  %s · %.0fs · %d scenes", tl.Style, tl.TotalDuration, len(tl.Scenes))))
	b.WriteString("\n")
	for _, s := range tl.Scenes {
		kinds := make([]string, 0, len(s.Shapes))
		for _, sh := range s.Shapes {
			kinds = append(kinds, string(sh.Kind))
		}
		fmt.Fprintf(&b, "%s %s %s\n",
			infoStyle.Render(fmt.Sprintf("%5.1fs", s.StartTime)),
			s.DisplayText,
			dimStyle.Render("["+strings.Join(kinds, ", ")+"]"))
	}
	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}
