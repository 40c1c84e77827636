// Package langmeta resolves locale codes to display metadata (English name,
// native name, emoji flag) for console output and translation prompts.
package langmeta

import (
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Meta describes how a locale is shown to people.
type Meta struct {
	Code   string // canonical BCP 47 form, or the input when unparseable
	Name   string // English name, e.g. "German"
	Native string // self name, e.g. "Deutsch"
	Flag   string // regional-indicator flag, "" when no region is known
}

// Parse parses a locale code, accepting underscores (pt_BR) as separators.
func Parse(code string) (language.Tag, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(code), "_", "-")
	if normalized == "" {
		return language.Und, errors.New("empty locale code")
	}
	tag, err := language.Parse(normalized)
	if err != nil {
		return language.Und, errors.Wrapf(err, "invalid locale %q", code)
	}
	return tag, nil
}

// Canonical returns the canonical form of code ("pt_br" -> "pt-BR").
func Canonical(code string) (string, error) {
	tag, err := Parse(code)
	if err != nil {
		return "", err
	}
	return tag.String(), nil
}

// Resolve returns best-effort metadata for code. Unknown codes pass through
// as their own name.
func Resolve(code string) Meta {
	tag, err := Parse(code)
	if err != nil {
		return Meta{Code: code, Name: code}
	}

	m := Meta{Code: tag.String(), Name: display.English.Tags().Name(tag), Native: display.Self.Name(tag)}
	if m.Name == "" {
		m.Name = m.Code
	}
	if m.Native == "" {
		m.Native = m.Name
	}
	if region, conf := tag.Region(); conf != language.No {
		m.Flag = Flag(region.String())
	}
	return m
}

// Label renders "Deutsch (de)" style labels, prefixed with the flag when known.
func (m Meta) Label() string {
	label := m.Native + " (" + m.Code + ")"
	if m.Native == m.Code {
		label = m.Code
	}
	if m.Flag != "" {
		return m.Flag + " " + label
	}
	return label
}

// Flag converts a two-letter region code to its emoji flag.
func Flag(region string) string {
	if len(region) != 2 {
		return ""
	}
	var b strings.Builder
	for _, c := range strings.ToUpper(region) {
		if c < 'A' || c > 'Z' {
			return ""
		}
		b.WriteRune(0x1F1E6 + (c - 'A'))
	}
	return b.String()
}
