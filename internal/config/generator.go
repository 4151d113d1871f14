package config

import (
	"bytes"
	"strconv"
	"strings"
)

// Generator serializes a Tree back into the restricted document format.
type Generator struct {
	indent string // indentation unit (default: two spaces)
}

// NewGenerator creates a new document generator.
func NewGenerator() *Generator {
	return &Generator{indent: "  "}
}

// Generate serializes a Tree. Keys are written in sorted order so the
// output is deterministic, and every emitted line is inside the
// parser's grammar: Parse(Generate(t)) reconstructs a tree equal to t.
func (g *Generator) Generate(tree *Tree) string {
	var buf bytes.Buffer

	buf.WriteString("# aios-core configuration\n")
	buf.WriteString("# Values in this file are preserved across updates.\n")

	g.writeTree(&buf, tree, 0)

	return buf.String()
}

// writeTree writes one mapping node at the given depth.
func (g *Generator) writeTree(buf *bytes.Buffer, tree *Tree, depth int) {
	if tree == nil {
		return
	}

	prefix := strings.Repeat(g.indent, depth)

	for _, key := range tree.Keys() {
		v, _ := tree.Get(key)

		if v.IsMapping() {
			buf.WriteString(prefix)
			buf.WriteString(key)
			buf.WriteString(":\n")
			g.writeTree(buf, v.Map, depth+1)
			continue
		}

		buf.WriteString(prefix)
		buf.WriteString(key)
		buf.WriteString(": ")
		if v.Kind == KindString {
			buf.WriteString(g.formatString(v.Str))
		} else {
			buf.WriteString(formatScalar(v))
		}
		buf.WriteString("\n")
	}
}

// formatScalar renders a non-string scalar. Package-level because the
// rendering has no generator state and Tree.Version shares it.
func formatScalar(v Value) string {
	switch v.Kind {
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		s := strconv.FormatFloat(v.Float, 'f', -1, 64)
		// The parser only reads digits.digits as float; keep the kind
		// stable across a round trip.
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	default:
		return ""
	}
}

// formatString renders a string scalar, quoting it whenever the bare
// form would coerce to another kind or fall outside the grammar on
// re-parse.
func (g *Generator) formatString(s string) string {
	if needsQuoting(s) {
		return strconv.Quote(s)
	}
	return s
}

// needsQuoting reports whether a bare string would be misread.
func needsQuoting(s string) bool {
	if s == "" {
		return true
	}
	// Would coerce to bool, int, or float.
	if s == "true" || s == "false" || isAllDigits(s) {
		return true
	}
	if intPart, fracPart, found := strings.Cut(s, "."); found &&
		isAllDigits(intPart) && isAllDigits(fracPart) {
		return true
	}
	// Would be unwrapped as a quoted value.
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return true
		}
	}
	// Would be trimmed, mistaken for a comment or a block scalar
	// marker, or invisibly corrupted.
	if strings.TrimSpace(s) != s || strings.HasPrefix(s, "#") || isBlockScalarMarker(s) {
		return true
	}
	if strings.ContainsAny(s, "\n\r") {
		return true
	}
	return false
}
