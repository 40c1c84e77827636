package jsx

import (
	"context"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, path, src string) *Tree {
	t.Helper()
	tree, err := Parse(context.Background(), path, []byte(src))
	require.NoError(t, err)
	t.Cleanup(tree.Close)
	return tree
}

func firstElement(t *testing.T, tree *Tree) Element {
	t.Helper()
	var found *Element
	Walk(tree.Root(), func(n *sitter.Node) bool {
		if found != nil {
			return false
		}
		if n.Type() == "jsx_element" {
			if el, ok := tree.AsElement(n); ok {
				found = &el
				return false
			}
		}
		return true
	})
	require.NotNil(t, found, "no element in source")
	return *found
}

func TestUnescapeJS(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "Hello", want: "Hello"},
		{name: "simple escapes", in: `a\tb\nc`, want: "a\tb\nc"},
		{name: "quotes", in: `it\'s \"ok\"`, want: `it's "ok"`},
		{name: "hex", in: `\x41BC`, want: "ABC"},
		{name: "bad hex", in: `\xZZ`, want: "xZZ"},
		{name: "unicode", in: `café`, want: "café"},
		{name: "code point", in: `smile \u{1F600}!`, want: "smile 😀!"},
		{name: "line continuation", in: "one \\\ntwo", want: "one two"},
		{name: "crlf continuation", in: "one \\\r\ntwo", want: "one two"},
		{name: "trailing backslash", in: `end\`, want: `end\`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, UnescapeJS(tc.in))
		})
	}
}

func TestPositionAt(t *testing.T) {
	t.Parallel()

	tree := parse(t, "a.js", "let a;\r\nlet b;\nlet c;\n")

	assert.Equal(t, Position{Line: 1, Column: 1}, tree.PositionAt(0))
	assert.Equal(t, Position{Line: 1, Column: 5}, tree.PositionAt(4))
	// The byte after CRLF starts line two.
	assert.Equal(t, Position{Line: 2, Column: 1}, tree.PositionAt(8))
	assert.Equal(t, Position{Line: 2, Column: 5}, tree.PositionAt(12))
	assert.Equal(t, Position{Line: 3, Column: 1}, tree.PositionAt(15))
	// Offsets past the end clamp to the last position.
	assert.Equal(t, tree.PositionAt(len(tree.Source)), tree.PositionAt(len(tree.Source)+10))
}

func TestTextRuns(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		src       string
		wantTexts []string
		wantPlain bool
	}{
		{
			name:      "multiline text collapses",
			src:       "const A = () => <p>\n  Hello\n  world\n</p>;\n",
			wantTexts: []string{"Hello world"},
			wantPlain: true,
		},
		{
			name:      "entities decode",
			src:       "const A = () => <p>Fish &amp; chips</p>;\n",
			wantTexts: []string{"Fish & chips"},
			wantPlain: true,
		},
		{
			name:      "comment container splits runs",
			src:       "const A = () => <p>Fish &amp; chips {/* note */} today</p>;\n",
			wantTexts: []string{"Fish & chips", "today"},
			wantPlain: false,
		},
		{
			name:      "nested element splits runs",
			src:       "const A = () => <p>Read <b>this</b> first</p>;\n",
			wantTexts: []string{"Read", "first"},
			wantPlain: false,
		},
		{
			name:      "whitespace only",
			src:       "const A = () => <p>\n   \n</p>;\n",
			wantTexts: nil,
			wantPlain: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tree := parse(t, "A.jsx", tc.src)
			runs, plain := tree.TextRuns(firstElement(t, tree))

			var texts []string
			for _, r := range runs {
				texts = append(texts, r.Text)
				assert.Equal(t, r.Raw, string(tree.Source[r.Start:r.End]))
			}
			assert.Equal(t, tc.wantTexts, texts)
			assert.Equal(t, tc.wantPlain, plain)
		})
	}
}

func TestStaticString(t *testing.T) {
	t.Parallel()

	tree := parse(t, "a.ts", "f('it\\'s');\nf(`plain`);\nf(`x ${y}`);\n")

	var got []string
	var ok []bool
	Walk(tree.Root(), func(n *sitter.Node) bool {
		if n.Type() == "call_expression" {
			s, yes := tree.StaticString(FirstArgument(n))
			got = append(got, s)
			ok = append(ok, yes)
		}
		return true
	})

	assert.Equal(t, []string{"it's", "plain", ""}, got)
	assert.Equal(t, []bool{true, true, false}, ok)
}

func TestSupported(t *testing.T) {
	t.Parallel()

	assert.True(t, Supported("src/App.TSX"))
	assert.True(t, Supported("lib/util.mjs"))
	assert.False(t, Supported("types/index.d.ts"))
	assert.False(t, Supported("README.md"))
}
