package codemod

import (
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/minios-linux/wrapkit/jsx"
)

// importPlan describes where and what to insert so the translation function
// is in scope.
type importPlan struct {
	needed bool
	edit   Replacement
}

// planImport decides whether fn must be imported into the file and where.
// sites are the byte offsets of the wrapped literals.
func planImport(tree *jsx.Tree, fn, source string, sites []int) importPlan {
	root := tree.Root()
	if inScope(tree, fn, sites) {
		return importPlan{}
	}

	stmt := importStatement(fn, source)
	if isCommonJS(tree) {
		stmt = requireStatement(fn, source)
	}

	anchor := leadingAnchor(tree, root)
	if anchor == nil {
		text := stmt + "\n"
		if len(tree.Source) > 0 && tree.Source[0] != '\n' {
			text += "\n"
		}
		return importPlan{needed: true, edit: Replacement{Start: 0, End: 0, Text: text}}
	}

	src := tree.Source
	offset := int(anchor.EndByte())
	switch {
	case offset < len(src) && src[offset] == '\n':
		return importPlan{needed: true, edit: Replacement{Start: offset + 1, End: offset + 1, Text: stmt + "\n"}}
	case offset+1 < len(src) && src[offset] == '\r' && src[offset+1] == '\n':
		return importPlan{needed: true, edit: Replacement{Start: offset + 2, End: offset + 2, Text: stmt + "\r\n"}}
	default:
		return importPlan{needed: true, edit: Replacement{Start: offset, End: offset, Text: "\n" + stmt + "\n"}}
	}
}

func importStatement(fn, source string) string {
	return "import { " + fn + " } from " + jsQuote(source) + ";"
}

func requireStatement(fn, source string) string {
	return "const { " + fn + " } = require(" + jsQuote(source) + ");"
}

// jsQuote renders s as a single-quoted JavaScript string literal.
func jsQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	return "'" + s + "'"
}

// leadingAnchor returns the last node of the file's leading block: hashbang,
// directives, imports and top-level require declarations. Nil means the file
// starts with ordinary code.
func leadingAnchor(tree *jsx.Tree, root *sitter.Node) *sitter.Node {
	var anchor *sitter.Node
	sawImport := false
	count := int(root.NamedChildCount())
	for i := 0; i < count; i++ {
		c := root.NamedChild(i)
		switch {
		case c.Type() == "comment":
			continue
		case c.Type() == "hash_bang_line":
			anchor = c
		case c.Type() == "import_statement":
			anchor = c
			sawImport = true
		case !sawImport && isDirective(c):
			anchor = c
		case isRequireDeclaration(tree, c):
			anchor = c
		default:
			return anchor
		}
	}
	return anchor
}

func isDirective(n *sitter.Node) bool {
	return n.Type() == "expression_statement" &&
		n.NamedChildCount() == 1 &&
		n.NamedChild(0).Type() == "string"
}

func isRequireDeclaration(tree *jsx.Tree, n *sitter.Node) bool {
	if n.Type() != "lexical_declaration" && n.Type() != "variable_declaration" {
		return false
	}
	count := int(n.NamedChildCount())
	found := false
	for i := 0; i < count; i++ {
		d := n.NamedChild(i)
		if d.Type() != "variable_declarator" {
			continue
		}
		v := d.ChildByFieldName("value")
		if v == nil || v.Type() != "call_expression" || !isRequireCall(tree, v) {
			return false
		}
		found = true
	}
	return found
}

func isRequireCall(tree *jsx.Tree, call *sitter.Node) bool {
	fn := call.ChildByFieldName("function")
	return fn != nil && fn.Type() == "identifier" && tree.Text(fn) == "require"
}

// isCommonJS reports whether the file uses require instead of ES modules.
func isCommonJS(tree *jsx.Tree) bool {
	root := tree.Root()
	count := int(root.NamedChildCount())
	for i := 0; i < count; i++ {
		switch root.NamedChild(i).Type() {
		case "import_statement", "export_statement":
			return false
		}
	}
	if strings.EqualFold(filepath.Ext(tree.Path), ".cjs") {
		return true
	}

	usesRequire := false
	jsx.Walk(root, func(n *sitter.Node) bool {
		if usesRequire {
			return false
		}
		if n.Type() == "call_expression" && isRequireCall(tree, n) {
			usesRequire = true
			return false
		}
		return true
	})
	return usesRequire
}

// inScope reports whether name is bound at every site (a byte offset). A
// binding counts when it is a program-level import, a top-level require
// declaration, or a destructuring declaration from a call, such as
// `const { t } = useTranslation()`, inside a function enclosing the site.
func inScope(tree *jsx.Tree, name string, sites []int) bool {
	root := tree.Root()
	if importsName(tree, root, name) {
		return true
	}

	type span struct{ start, end int }
	file := span{0, len(tree.Source)}
	var scopes []span
	jsx.Walk(root, func(n *sitter.Node) bool {
		if n.Type() != "variable_declarator" {
			return true
		}
		pattern := n.ChildByFieldName("name")
		value := n.ChildByFieldName("value")
		if pattern == nil || value == nil || value.Type() != "call_expression" || !patternBinds(tree, pattern, name) {
			return true
		}
		switch {
		case isRequireCall(tree, value):
			if isTopLevelDeclarator(n) {
				scopes = append(scopes, file)
			}
		case pattern.Type() == "object_pattern" || pattern.Type() == "array_pattern":
			if fn := enclosingFunction(n); fn != nil {
				scopes = append(scopes, span{int(fn.StartByte()), int(fn.EndByte())})
			} else if isTopLevelDeclarator(n) {
				scopes = append(scopes, file)
			}
		}
		return true
	})

	for _, site := range sites {
		covered := false
		for _, sc := range scopes {
			if sc.start <= site && site < sc.end {
				covered = true
				break
			}
		}
		if !covered {
			return false
		}
	}
	return true
}

// importsName reports whether a program-level import statement binds name.
func importsName(tree *jsx.Tree, root *sitter.Node, name string) bool {
	found := false
	count := int(root.NamedChildCount())
	for i := 0; i < count && !found; i++ {
		stmt := root.NamedChild(i)
		if stmt.Type() != "import_statement" {
			continue
		}
		jsx.Walk(stmt, func(n *sitter.Node) bool {
			if found {
				return false
			}
			switch n.Type() {
			case "import_specifier":
				local := n.ChildByFieldName("alias")
				if local == nil {
					local = n.ChildByFieldName("name")
				}
				if local != nil && tree.Text(local) == name {
					found = true
				}
				return false
			case "import_clause", "namespace_import":
				c := int(n.NamedChildCount())
				for j := 0; j < c; j++ {
					if id := n.NamedChild(j); id.Type() == "identifier" && tree.Text(id) == name {
						found = true
					}
				}
			}
			return true
		})
	}
	return found
}

func isTopLevelDeclarator(n *sitter.Node) bool {
	decl := n.Parent()
	if decl == nil {
		return false
	}
	parent := decl.Parent()
	return parent != nil && parent.Type() == "program"
}

var functionTypes = map[string]bool{
	"function_declaration":           true,
	"function":                       true,
	"function_expression":            true,
	"arrow_function":                 true,
	"method_definition":              true,
	"generator_function":             true,
	"generator_function_declaration": true,
}

func enclosingFunction(n *sitter.Node) *sitter.Node {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if functionTypes[p.Type()] {
			return p
		}
	}
	return nil
}

func patternBinds(tree *jsx.Tree, n *sitter.Node, name string) bool {
	if n == nil {
		return false
	}
	switch n.Type() {
	case "identifier", "shorthand_property_identifier_pattern":
		return tree.Text(n) == name
	case "pair_pattern":
		return patternBinds(tree, n.ChildByFieldName("value"), name)
	case "object_assignment_pattern", "assignment_pattern":
		return patternBinds(tree, n.ChildByFieldName("left"), name)
	case "object_pattern", "array_pattern", "rest_pattern":
		count := int(n.NamedChildCount())
		for i := 0; i < count; i++ {
			if patternBinds(tree, n.NamedChild(i), name) {
				return true
			}
		}
	}
	return false
}
