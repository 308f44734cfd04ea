package syntax

import (
	"fmt"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// TreeString renders a parse tree as an indented s-expression, one named
// node per line, prefixed with its field name when it has one. Anonymous
// nodes are omitted the way tree-sitter's playground omits them.
func TreeString(node *tree_sitter.Node) string {
	var sb strings.Builder
	if node.ChildCount() == 0 {
		if nodeIsVisible(node) {
			fmt.Fprintf(&sb, "(%s)", node.Kind())
		} else {
			fmt.Fprintf(&sb, "%q", node.Kind())
		}
		return sb.String()
	}

	cursor := node.Walk()
	defer cursor.Close()
	prettyPrintTree(&sb, cursor, 0)
	return sb.String()
}

func prettyPrintTree(sb *strings.Builder, cursor *tree_sitter.TreeCursor, depth int) {
	node := cursor.Node()
	visible := nodeIsVisible(node)
	if visible {
		sb.WriteString(strings.Repeat("  ", depth))
		if name := cursor.FieldName(); name != "" {
			sb.WriteString(name)
			sb.WriteString(": ")
		}
		sb.WriteByte('(')
		sb.WriteString(node.Kind())
	}

	if cursor.GotoFirstChild() {
		for {
			if nodeIsVisible(cursor.Node()) {
				sb.WriteByte('\n')
			}
			prettyPrintTree(sb, cursor, depth+1)
			if !cursor.GotoNextSibling() {
				break
			}
		}
		cursor.GotoParent()
	}

	if visible {
		sb.WriteByte(')')
	}
}

// nodeIsVisible reports whether a node shows up in the rendered tree:
// named nodes and missing nodes inserted by error recovery.
func nodeIsVisible(node *tree_sitter.Node) bool {
	return node.IsMissing() || node.IsNamed()
}
