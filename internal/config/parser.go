package config

import (
	"strconv"
	"strings"
)

// Parser parses the restricted configuration document format into a Tree.
//
// The supported grammar is a subset of indentation-scoped key/value
// documents: blank lines, full-line comments ("#"), and
// "<indent><key>: <value>" lines where an empty value (or a block
// scalar marker) opens a nested mapping. Lists, multi-line block
// scalar bodies, and anchors are not modeled; lines outside the
// grammar are skipped, never rejected. This is deliberate best-effort
// behavior so that richer documents still yield their mapping subset.
type Parser struct {
	logger Logger
}

// NewParser creates a new document parser.
func NewParser() *Parser {
	return &Parser{logger: defaultLogger()}
}

// WithLogger sets the logger used to surface skipped lines and returns
// the parser for chaining.
func (p *Parser) WithLogger(logger Logger) *Parser {
	if logger != nil {
		p.logger = logger
	}
	return p
}

// SkippedLine records a line the parser could not model.
type SkippedLine struct {
	Number  int    // 1-based line number in the input
	Content string // the raw line, whitespace preserved
}

// ParseResult holds the parsed Tree plus the lines that were dropped.
// Skipping is not an error: callers that care about lossiness inspect
// Skipped, everyone else reads Tree and moves on.
type ParseResult struct {
	Tree    *Tree
	Skipped []SkippedLine
}

// frame is one level of the indentation stack.
type frame struct {
	indent int
	node   *Tree
}

// Parse parses raw document text. It never fails: malformed input
// degrades to a smaller tree, with every dropped line recorded in the
// result and reported through the parser's logger.
func (p *Parser) Parse(text string) *ParseResult {
	result := &ParseResult{Tree: NewTree()}

	// Root frame sits below any real indentation.
	stack := []frame{{indent: -1, node: result.Tree}}

	lines := strings.Split(text, "\n")
	for i, raw := range lines {
		line := strings.TrimRight(raw, "\r")
		trimmed := strings.TrimSpace(line)

		// Blank lines and full-line comments are structural noise.
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		key, value, ok := splitKeyValue(trimmed)
		if !ok {
			result.Skipped = append(result.Skipped, SkippedLine{Number: i + 1, Content: line})
			p.logger.Warn("skipped unparseable line", "line", i+1, "content", trimmed)
			continue
		}

		indent := leadingIndent(line)

		// Close scopes whose indent is at or beyond this line.
		for len(stack) > 1 && stack[len(stack)-1].indent >= indent {
			stack = stack[:len(stack)-1]
		}
		top := stack[len(stack)-1].node

		if value == "" || isBlockScalarMarker(value) {
			// Empty value opens a nested mapping. Block scalar bodies
			// are not modeled; their deeper lines fail splitKeyValue
			// and get skipped individually.
			child := NewTree()
			top.Set(key, MapValue(child))
			stack = append(stack, frame{indent: indent, node: child})
			continue
		}

		top.Set(key, coerceScalar(value))
	}

	return result
}

// splitKeyValue splits a trimmed content line into key and value parts.
// Returns ok=false for lines that do not look like "key: value".
func splitKeyValue(trimmed string) (key, value string, ok bool) {
	idx := strings.Index(trimmed, ":")
	if idx <= 0 {
		return "", "", false
	}

	rest := trimmed[idx+1:]
	// "key:value" without a separating space is not part of the
	// grammar (it is how URLs like "https://..." show up in values).
	if rest != "" && !strings.HasPrefix(rest, " ") && !strings.HasPrefix(rest, "\t") {
		return "", "", false
	}

	key = strings.TrimSpace(trimmed[:idx])
	if key == "" {
		return "", "", false
	}
	// List items are out of scope entirely.
	if strings.HasPrefix(key, "- ") || key == "-" {
		return "", "", false
	}

	return key, strings.TrimSpace(rest), true
}

// leadingIndent counts leading whitespace characters. Tabs count as a
// single column; mixed-indent documents are already outside the
// grammar's guarantees.
func leadingIndent(line string) int {
	count := 0
	for _, r := range line {
		if r != ' ' && r != '\t' {
			break
		}
		count++
	}
	return count
}

// isBlockScalarMarker reports whether value is a YAML-style block
// scalar header ("|", ">", with optional chomping indicator). The
// block body itself is dropped; only the key survives, as an empty
// nested mapping.
func isBlockScalarMarker(value string) bool {
	switch value {
	case "|", "|-", "|+", ">", ">-", ">+":
		return true
	}
	return false
}

// coerceScalar converts a raw value string to a typed Value.
//
// Coercion order: literal booleans, pure digits to int, digits.digits
// to float, quoted text unwrapped to string, everything else raw.
func coerceScalar(raw string) Value {
	switch raw {
	case "true":
		return BoolValue(true)
	case "false":
		return BoolValue(false)
	}

	if isAllDigits(raw) {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return IntValue(n)
		}
		// Overflows stay as raw strings.
		return StringValue(raw)
	}

	if intPart, fracPart, found := strings.Cut(raw, "."); found &&
		isAllDigits(intPart) && isAllDigits(fracPart) {
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return FloatValue(f)
		}
		return StringValue(raw)
	}

	if unquoted, ok := unquote(raw); ok {
		return StringValue(unquoted)
	}

	return StringValue(raw)
}

// isAllDigits reports whether s is non-empty and contains only ASCII digits.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// unquote strips matching single or double quotes from a value.
// Double-quoted values go through strconv.Unquote so escapes written
// by the generator round-trip; if unquoting fails the outer quotes are
// stripped verbatim.
func unquote(raw string) (string, bool) {
	if len(raw) < 2 {
		return "", false
	}

	first, last := raw[0], raw[len(raw)-1]
	if first == '"' && last == '"' {
		if s, err := strconv.Unquote(raw); err == nil {
			return s, true
		}
		return raw[1 : len(raw)-1], true
	}
	if first == '\'' && last == '\'' {
		return raw[1 : len(raw)-1], true
	}

	return "", false
}
