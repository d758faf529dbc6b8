// Package output provides styled terminal output for command results.
// Logs go to stderr through the logger; everything here writes to
// stdout for the user.
package output

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/alexjbarnes/remsync/internal/remarkable"
	"github.com/alexjbarnes/remsync/internal/tree"
)

var (
	folderStyle  = lipgloss.NewStyle().Bold(true)
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// Success prints a green message.
func Success(format string, a ...any) {
	fmt.Println(successStyle.Render(fmt.Sprintf(format, a...)))
}

// Error prints a red message.
func Error(format string, a ...any) {
	fmt.Println(errorStyle.Render(fmt.Sprintf(format, a...)))
}

// Warning prints an orange message.
func Warning(format string, a ...any) {
	fmt.Println(warningStyle.Render(fmt.Sprintf(format, a...)))
}

// Info prints a plain message.
func Info(format string, a ...any) {
	fmt.Printf(format+"\n", a...)
}

// Subtle prints a dimmed message, for secondary detail.
func Subtle(format string, a ...any) {
	fmt.Println(subtleStyle.Render(fmt.Sprintf(format, a...)))
}

// Tree renders a resolved tree one line per node, folders bold with a
// trailing slash, annotated with what a push would do to existing
// objects: reused objects green, overwrites red, fresh objects bare.
func Tree(root *tree.Node) string {
	var sb strings.Builder
	writeTree(&sb, root, 0)

	return sb.String()
}

func writeTree(sb *strings.Builder, n *tree.Node, depth int) {
	sb.WriteString(strings.Repeat("    ", depth))

	if n.Kind == remarkable.KindFolder {
		sb.WriteString(folderStyle.Render(n.Name + "/"))
	} else {
		sb.WriteString(n.Name)
	}

	switch n.Disposition {
	case tree.DispositionReused:
		sb.WriteString(" " + successStyle.Render("| exists already"))
	case tree.DispositionModified, tree.DispositionModifiedPayloadOnly:
		sb.WriteString(" " + errorStyle.Render("| !!! gets modified !!!"))
	}

	sb.WriteString("\n")

	for _, child := range n.Children {
		writeTree(sb, child, depth+1)
	}
}
