package filter

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldExclude(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want bool
	}{
		{"plain sentence", "Hello World", false},
		{"single word", "Save", false},
		{"contraction", "Don't save", false},
		{"slash pair is text", "Yes/No", false},
		{"two letters", "OK", false},
		{"non latin", "Привет мир", false},
		{"empty", "", true},
		{"whitespace only", " \n\t ", true},
		{"too short", "a", true},
		{"camel identifier", "saveButton", true},
		{"pascal identifier", "UserProfile", true},
		{"screaming snake", "SAVE_LABEL", true},
		{"kebab token", "my-component", true},
		{"dotted member", "user.name", true},
		{"url", "https://example.com/docs", true},
		{"protocol relative", "//cdn.example.com/app.js", true},
		{"mailto", "mailto:team@example.com", true},
		{"relative path", "./assets/logo.png", true},
		{"absolute path", "/api/v1/users", true},
		{"bare file", "logo.svg", true},
		{"nested path", "src/components/Button", true},
		{"css class selector", ".container", true},
		{"css id selector", "#main", true},
		{"code punctuation", "{value}", true},
		{"template punctuation", "${name}", true},
		{"digits only", "12345", true},
		{"punctuation only", "--", true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, ShouldExclude(tc.text, Config{}), "ShouldExclude(%q)", tc.text)
		})
	}
}

func TestShouldExcludeMinLengthAndPatterns(t *testing.T) {
	t.Parallel()

	cfg := Config{MinLength: 5}
	assert.True(t, ShouldExclude("Save", cfg))
	assert.False(t, ShouldExclude("Saved", cfg))

	patterns, err := CompilePatterns([]string{`^TODO\b`, `(?i)lorem ipsum`})
	require.NoError(t, err)
	cfg = Config{Patterns: patterns}
	assert.True(t, ShouldExclude("TODO fix this", cfg))
	assert.True(t, ShouldExclude("Lorem Ipsum dolor", cfg))
	assert.False(t, ShouldExclude("Fix this", cfg))
}

func TestShouldExcludeIsConsistent(t *testing.T) {
	t.Parallel()

	cfg := Config{Patterns: []*regexp.Regexp{regexp.MustCompile(`draft`)}}
	inputs := []string{"Hello World", "saveButton", "draft copy", "", "Welcome back"}
	first := make([]bool, len(inputs))
	for i, in := range inputs {
		first[i] = ShouldExclude(in, cfg)
	}
	for round := 0; round < 50; round++ {
		for i, in := range inputs {
			require.Equal(t, first[i], ShouldExclude(in, cfg), "round %d input %q", round, in)
		}
	}
}

func TestCompilePatternsRejectsInvalid(t *testing.T) {
	t.Parallel()

	_, err := CompilePatterns([]string{"ok", "(unclosed"})
	assert.Error(t, err)
}

func TestTechnicalAttributes(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"id", "className", "class", "src", "href", "target", "rel", "role", "aria-label", "aria-hidden", "data-testid", "viewBox", "d", "strokeWidth", "onClick"} {
		assert.True(t, IsTechnicalAttribute(name), name)
	}
	for _, name := range []string{"title", "placeholder", "alt", "label", "on", "one"} {
		assert.False(t, IsTechnicalAttribute(name), name)
	}
}

func TestShouldExcludeAttribute(t *testing.T) {
	t.Parallel()

	assert.True(t, ShouldExcludeAttribute("className", "Big friendly title", Config{}))
	assert.True(t, ShouldExcludeAttribute("title", "_blank", Config{}))
	assert.True(t, IsBoilerplateValue(" noopener noreferrer "))
	assert.True(t, ShouldExcludeAttribute("title", "x", Config{}))
	assert.False(t, ShouldExcludeAttribute("title", "Save", Config{}))
	assert.False(t, ShouldExcludeAttribute("placeholder", "Search products", Config{}))
}
