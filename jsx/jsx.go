// Package jsx parses JavaScript/TypeScript UI sources with tree-sitter and
// exposes the small set of tree queries the scanner and the codemod share.
//
// tree-sitter grammars recover from syntax errors: a broken region becomes an
// ERROR node while the rest of the file still yields a usable tree.
package jsx

import (
	"context"
	"html"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Languages maps supported extensions to a grammar name.
var Languages = map[string]string{
	".js":  "javascript",
	".jsx": "javascript",
	".mjs": "javascript",
	".cjs": "javascript",
	".ts":  "typescript",
	".tsx": "tsx",
}

// Supported reports whether path has an extension with a known grammar.
func Supported(path string) bool {
	if strings.HasSuffix(path, ".d.ts") {
		return false
	}
	_, ok := Languages[strings.ToLower(filepath.Ext(path))]
	return ok
}

func grammarFor(path string) *sitter.Language {
	switch Languages[strings.ToLower(filepath.Ext(path))] {
	case "typescript":
		return typescript.GetLanguage()
	case "tsx":
		return tsx.GetLanguage()
	default:
		// Plain JavaScript grammar includes JSX.
		return javascript.GetLanguage()
	}
}

// Tree is a parsed source file. Node spans index into Source.
type Tree struct {
	Path   string
	Source []byte
	tree   *sitter.Tree
}

// Parse parses source using the grammar chosen by path's extension.
func Parse(ctx context.Context, path string, source []byte) (*Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammarFor(path))

	t, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, errors.Wrap(err, "tree-sitter")
	}
	if t == nil {
		return nil, errors.New("no syntax tree produced")
	}
	return &Tree{Path: path, Source: source, tree: t}, nil
}

// Close releases the underlying tree-sitter tree.
func (t *Tree) Close() {
	if t != nil && t.tree != nil {
		t.tree.Close()
		t.tree = nil
	}
}

// Root returns the program node.
func (t *Tree) Root() *sitter.Node {
	return t.tree.RootNode()
}

// Text returns the source text covered by n.
func (t *Tree) Text(n *sitter.Node) string {
	return string(t.Source[n.StartByte():n.EndByte()])
}

// Position is a 1-based line/column location (column counted in bytes).
type Position struct {
	Line   int
	Column int
}

// PositionAt converts a byte offset to a 1-based position.
func (t *Tree) PositionAt(offset int) Position {
	line, col := 1, 1
	for i := 0; i < offset && i < len(t.Source); i++ {
		if t.Source[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return Position{Line: line, Column: col}
}

// NodePosition returns the 1-based start position of n.
func NodePosition(n *sitter.Node) Position {
	p := n.StartPoint()
	return Position{Line: int(p.Row) + 1, Column: int(p.Column) + 1}
}

// SyntaxErrors lists the positions of ERROR and missing nodes.
func (t *Tree) SyntaxErrors() []Position {
	root := t.Root()
	if !root.HasError() {
		return nil
	}
	var out []Position
	Walk(root, func(n *sitter.Node) bool {
		if n.Type() == "ERROR" || n.IsMissing() {
			out = append(out, NodePosition(n))
			return false
		}
		return n.HasError()
	})
	return out
}

// Walk visits n and its descendants depth-first in source order. Returning
// false from fn skips the children of the current node.
func Walk(n *sitter.Node, fn func(*sitter.Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		Walk(n.Child(i), fn)
	}
}

// ---------------------------------------------------------------------------
// Elements
// ---------------------------------------------------------------------------

// Element describes a JSX element: its tag name and the opening node holding
// its attributes.
type Element struct {
	Node    *sitter.Node // jsx_element or jsx_self_closing_element
	Opening *sitter.Node // jsx_opening_element, or Node when self-closing
	Name    string       // "" for fragments
}

// AsElement returns the element view of n when n is a JSX element.
func (t *Tree) AsElement(n *sitter.Node) (Element, bool) {
	switch n.Type() {
	case "jsx_element":
		open := firstChildOfType(n, "jsx_opening_element")
		if open == nil {
			return Element{}, false
		}
		return Element{Node: n, Opening: open, Name: t.tagName(open)}, true
	case "jsx_self_closing_element":
		return Element{Node: n, Opening: n, Name: t.tagName(n)}, true
	case "jsx_fragment":
		return Element{Node: n}, true
	}
	return Element{}, false
}

func (t *Tree) tagName(open *sitter.Node) string {
	if name := open.ChildByFieldName("name"); name != nil {
		return t.Text(name)
	}
	count := int(open.NamedChildCount())
	for i := 0; i < count; i++ {
		c := open.NamedChild(i)
		switch c.Type() {
		case "identifier", "member_expression", "nested_identifier", "jsx_namespace_name":
			return t.Text(c)
		}
	}
	return ""
}

// Attribute is a JSX attribute whose value is a plain string literal.
type Attribute struct {
	Node  *sitter.Node // jsx_attribute
	Name  string
	Value *sitter.Node // string node, quotes included
	Text  string       // decoded value
}

// StringAttributes lists the string-valued attributes of an element.
func (t *Tree) StringAttributes(el Element) []Attribute {
	if el.Opening == nil {
		return nil
	}
	var out []Attribute
	count := int(el.Opening.NamedChildCount())
	for i := 0; i < count; i++ {
		attr := el.Opening.NamedChild(i)
		if attr.Type() != "jsx_attribute" {
			continue
		}
		var name string
		var value *sitter.Node
		ac := int(attr.NamedChildCount())
		for j := 0; j < ac; j++ {
			c := attr.NamedChild(j)
			switch c.Type() {
			case "property_identifier", "jsx_namespace_name", "identifier":
				if name == "" {
					name = t.Text(c)
				}
			case "string":
				value = c
			}
		}
		if name == "" || value == nil {
			continue
		}
		out = append(out, Attribute{
			Node:  attr,
			Name:  name,
			Value: value,
			Text:  html.UnescapeString(t.quotedInner(value)),
		})
	}
	return out
}

// ---------------------------------------------------------------------------
// Text runs
// ---------------------------------------------------------------------------

// TextRun is a maximal sequence of literal text children of one element
// (JSX text plus HTML character references), trimmed of surrounding space.
type TextRun struct {
	Start, End int    // byte span of the trimmed text
	Raw        string // source text of the span
	Text       string // entity-decoded, whitespace-collapsed value
}

func isTextNode(n *sitter.Node) bool {
	switch n.Type() {
	case "jsx_text", "html_character_reference":
		return true
	}
	return false
}

// TextRuns splits the children of el into literal text runs. The second
// return value is true when every content child is literal text, i.e. the
// element holds plain text only.
func (t *Tree) TextRuns(el Element) ([]TextRun, bool) {
	var runs []TextRun
	plain := true
	start, end := -1, -1

	flush := func() {
		if start < 0 {
			return
		}
		if run, ok := t.makeRun(start, end); ok {
			runs = append(runs, run)
		}
		start, end = -1, -1
	}

	count := int(el.Node.ChildCount())
	for i := 0; i < count; i++ {
		c := el.Node.Child(i)
		switch {
		case isTextNode(c):
			if start < 0 {
				start = int(c.StartByte())
			}
			end = int(c.EndByte())
		case c.Type() == "jsx_opening_element" || c.Type() == "jsx_closing_element":
			flush()
		case c.Type() == "<" || c.Type() == ">" || c.Type() == "</" || c.Type() == "/":
			// fragment delimiters
			flush()
		case c.Type() == "comment":
		default:
			flush()
			if c.IsNamed() {
				plain = false
			}
		}
	}
	flush()
	return runs, plain
}

func (t *Tree) makeRun(start, end int) (TextRun, bool) {
	raw := string(t.Source[start:end])
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return TextRun{}, false
	}
	lead := strings.Index(raw, trimmed)
	s := start + lead
	e := s + len(trimmed)
	return TextRun{
		Start: s,
		End:   e,
		Raw:   trimmed,
		Text:  CollapseSpace(html.UnescapeString(trimmed)),
	}, true
}

// CollapseSpace folds whitespace runs into single spaces the way JSX renders
// multi-line text.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ---------------------------------------------------------------------------
// String literals and calls
// ---------------------------------------------------------------------------

// StaticString returns the value of a string literal or a template literal
// without substitutions.
func (t *Tree) StaticString(n *sitter.Node) (string, bool) {
	if n == nil {
		return "", false
	}
	switch n.Type() {
	case "string":
		return UnescapeJS(t.quotedInner(n)), true
	case "template_string":
		count := int(n.NamedChildCount())
		for i := 0; i < count; i++ {
			if n.NamedChild(i).Type() == "template_substitution" {
				return "", false
			}
		}
		return UnescapeJS(t.quotedInner(n)), true
	}
	return "", false
}

func (t *Tree) quotedInner(n *sitter.Node) string {
	s := t.Text(n)
	if len(s) >= 2 {
		return s[1 : len(s)-1]
	}
	return ""
}

// CalleeName returns the called identifier of a call_expression: the
// identifier itself, or the property of a member expression (i18n.t -> t).
func (t *Tree) CalleeName(call *sitter.Node) string {
	fn := call.ChildByFieldName("function")
	if fn == nil {
		return ""
	}
	switch fn.Type() {
	case "identifier":
		return t.Text(fn)
	case "member_expression":
		if prop := fn.ChildByFieldName("property"); prop != nil {
			return t.Text(prop)
		}
	}
	return ""
}

// FirstArgument returns the first argument node of a call_expression.
func FirstArgument(call *sitter.Node) *sitter.Node {
	args := call.ChildByFieldName("arguments")
	if args == nil || args.NamedChildCount() == 0 {
		return nil
	}
	first := args.NamedChild(0)
	if first.Type() == "comment" {
		return nil
	}
	return first
}

// UnescapeJS decodes the escape sequences of a JavaScript string body.
func UnescapeJS(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case '0':
			b.WriteByte(0)
		case '\n':
			// line continuation
		case '\r':
			if i+1 < len(s) && s[i+1] == '\n' {
				i++
			}
		case 'x':
			if r, ok := hexRune(s, i+1, 2); ok {
				b.WriteRune(r)
				i += 2
			} else {
				b.WriteByte('x')
			}
		case 'u':
			if i+1 < len(s) && s[i+1] == '{' {
				if end := strings.IndexByte(s[i+1:], '}'); end > 1 {
					if r, ok := hexRune(s, i+2, end-1); ok {
						b.WriteRune(r)
						i += end + 1
						continue
					}
				}
			}
			if r, ok := hexRune(s, i+1, 4); ok {
				b.WriteRune(r)
				i += 4
			} else {
				b.WriteByte('u')
			}
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func hexRune(s string, from, n int) (rune, bool) {
	if from+n > len(s) || n <= 0 {
		return 0, false
	}
	var r rune
	for _, c := range s[from : from+n] {
		var v rune
		switch {
		case c >= '0' && c <= '9':
			v = c - '0'
		case c >= 'a' && c <= 'f':
			v = c - 'a' + 10
		case c >= 'A' && c <= 'F':
			v = c - 'A' + 10
		default:
			return 0, false
		}
		r = r<<4 | v
	}
	return r, true
}

func firstChildOfType(n *sitter.Node, typ string) *sitter.Node {
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		if c := n.Child(i); c.Type() == typ {
			return c
		}
	}
	return nil
}
