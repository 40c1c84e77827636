package provider

import (
	"context"
	"strings"
)

var accents = map[rune]rune{
	'a': 'á', 'c': 'ç', 'e': 'é', 'i': 'í', 'n': 'ñ', 'o': 'ó', 'u': 'ú', 'y': 'ý',
	'A': 'Á', 'C': 'Ç', 'E': 'É', 'I': 'Í', 'N': 'Ñ', 'O': 'Ó', 'U': 'Ú', 'Y': 'Ý',
}

// Pseudo returns a provider that pseudo-localizes text: letters get accents
// and the result is bracketed, so untranslated or truncated UI stands out.
// Placeholders in braces ({name}, {{count}}) are kept intact.
func Pseudo() Provider {
	return Func(func(_ context.Context, req Request) (string, error) {
		return "[" + Pseudolocalize(req.SourceText) + "]", nil
	})
}

// Pseudolocalize accents the letters of s outside brace placeholders.
func Pseudolocalize(s string) string {
	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch {
		case r == '{':
			depth++
		case r == '}' && depth > 0:
			depth--
		case depth == 0:
			if a, ok := accents[r]; ok {
				r = a
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}
