package dom

import (
	"fmt"
	"strconv"
	"strings"
)

type treeWriter struct {
	w *strings.Builder
}

func (tw treeWriter) line(depth int, format string, args ...any) {
	for range depth {
		tw.w.WriteString("  ")
	}
	fmt.Fprintf(tw.w, format, args...)
	tw.w.WriteByte('\n')
}

func (tw treeWriter) textBlock(depth int, label, value string) {
	for range depth {
		tw.w.WriteString("  ")
	}
	tw.w.WriteString(label)
	tw.w.WriteString(": ")
	tw.w.WriteString(encodeText(value))
	tw.w.WriteByte('\n')
}

func encodeText(raw string) string {
	if raw == "" {
		return raw
	}
	return strconv.Quote(raw)
}

// Tree returns indented dump of the subtree: one line per element with its
// specified values, quoted text for non blank character data.
func Tree(root *Node) string {
	tw := treeWriter{w: &strings.Builder{}}
	if root != nil {
		tw.node(0, root)
	}
	return tw.w.String()
}

func (tw treeWriter) node(depth int, n *Node) {
	if n.IsChars() {
		if strings.TrimSpace(n.text) != "" {
			tw.textBlock(depth, n.String(), n.text)
		}
		return
	}

	decls := n.values.Declarations()
	if len(decls) == 0 {
		tw.line(depth, "%s", n)
	} else {
		parts := make([]string, 0, len(decls))
		for _, d := range decls {
			parts = append(parts, d.String())
		}
		tw.line(depth, "%s { %s }", n, strings.Join(parts, "; "))
	}
	for c := range n.Children() {
		tw.node(depth+1, c)
	}
}
