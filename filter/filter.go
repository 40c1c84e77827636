// Package filter decides whether a literal found in UI source should ever be
// treated as translatable text.
//
// Every function here is pure: the same input always yields the same answer,
// which lets a dry run and the following real run agree on what changes.
package filter

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMinLength is the minimum rune count for translatable text.
const DefaultMinLength = 2

// Config holds caller-tunable exclusion settings.
type Config struct {
	// MinLength is the minimum trimmed length in runes (0 means DefaultMinLength).
	MinLength int
	// Patterns are extra exclusion patterns; a match on the trimmed text excludes it.
	Patterns []*regexp.Regexp
}

var (
	camelIdent  = regexp.MustCompile(`^[a-z][a-z0-9]*(?:[A-Z][a-z0-9]*)+$`)
	pascalIdent = regexp.MustCompile(`^[A-Z][a-z0-9]+(?:[A-Z][a-z0-9]*)+$`)
	snakeIdent  = regexp.MustCompile(`^[A-Za-z0-9$]+(?:_[A-Za-z0-9$]*)+$|^_[A-Za-z0-9_$]*$`)
	kebabIdent  = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)+$`)
	dottedIdent = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*(?:\.[A-Za-z_$][A-Za-z0-9_$]*)+$`)

	urlLike   = regexp.MustCompile(`(?i)^(?:[a-z][a-z0-9+.-]*://|//|www\.|mailto:|tel:|data:)`)
	pathLike  = regexp.MustCompile(`^(?:\.{1,2}/|~/|/)[^\s]*$|^[\w.@-]+(?:/[\w.@-]+){2,}/?$|^[\w.@-]+(?:/[\w.@-]+)+\.[A-Za-z0-9]{1,5}$`)
	fileLike  = regexp.MustCompile(`(?i)^[\w.-]+\.(?:png|jpe?g|gif|svg|webp|ico|css|scss|less|js|jsx|ts|tsx|mjs|cjs|json|html?|md|woff2?|ttf|otf|mp[34]|webm|pdf)$`)
	cssLike   = regexp.MustCompile(`^[.#][A-Za-z_-][\w-]*(?:[\s>+~]*[.#:]?[A-Za-z_-][\w-]*)*$`)
	codeStart = regexp.MustCompile("^[{}\\[\\]()<>;=$@#%^&*|\\\\`~]")
)

// ShouldExclude reports whether text must never be wrapped or extracted.
func ShouldExclude(text string, cfg Config) bool {
	s := strings.TrimSpace(text)
	if s == "" {
		return true
	}

	minLen := cfg.MinLength
	if minLen <= 0 {
		minLen = DefaultMinLength
	}
	if utf8.RuneCountInString(s) < minLen {
		return true
	}

	if !hasLetter(s) {
		return true
	}

	if isIdentifier(s) {
		return true
	}

	if urlLike.MatchString(s) || pathLike.MatchString(s) || fileLike.MatchString(s) {
		return true
	}

	if cssLike.MatchString(s) {
		return true
	}

	if codeStart.MatchString(s) {
		return true
	}

	for _, re := range cfg.Patterns {
		if re != nil && re.MatchString(s) {
			return true
		}
	}

	return false
}

// isIdentifier matches program identifiers but not plain words, so
// "Save" passes while "saveButton" or "SAVE_LABEL" do not.
func isIdentifier(s string) bool {
	if strings.ContainsAny(s, " \t\n") {
		return false
	}
	return camelIdent.MatchString(s) ||
		pascalIdent.MatchString(s) ||
		snakeIdent.MatchString(s) ||
		kebabIdent.MatchString(s) ||
		dottedIdent.MatchString(s)
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// technicalAttributes never carry user-visible text.
var technicalAttributes = setOf(
	"id", "class", "className", "src", "srcSet", "srcset", "href", "target",
	"rel", "role", "key", "ref", "style", "type", "name", "htmlFor", "for",
	"method", "action", "encType", "lang", "dir", "tabIndex", "autoComplete",
	"inputMode", "accept", "as", "slot", "xmlns", "xmlnsXlink", "xlinkHref",
	"d", "viewBox", "x", "y", "cx", "cy", "r", "rx", "ry", "x1", "y1", "x2",
	"y2", "dx", "dy", "width", "height", "points", "transform", "fill",
	"fillRule", "clipRule", "clipPath", "stroke", "strokeWidth",
	"strokeLinecap", "strokeLinejoin", "offset", "stopColor",
	"preserveAspectRatio", "gradientUnits", "gradientTransform", "pathLength",
	"testId",
)

// IsTechnicalAttribute reports whether an attribute name belongs to the fixed
// deny-list (ids, classes, links, ARIA, data-*, SVG geometry and paint).
func IsTechnicalAttribute(name string) bool {
	if technicalAttributes[name] {
		return true
	}
	lower := strings.ToLower(name)
	if strings.HasPrefix(lower, "aria-") || strings.HasPrefix(lower, "data-") {
		return true
	}
	// event handlers: onClick, onChange ...
	return len(name) > 2 && strings.HasPrefix(name, "on") && unicode.IsUpper(rune(name[2]))
}

var boilerplateValues = map[string]bool{
	"_blank":              true,
	"_self":               true,
	"_parent":             true,
	"_top":                true,
	"noopener":            true,
	"noreferrer":          true,
	"noopener noreferrer": true,
	"noreferrer noopener": true,
	"nofollow":            true,
	"nofollow noopener":   true,
}

// IsBoilerplateValue reports whether an attribute value is a fixed technical
// token such as a link target or rel keyword.
func IsBoilerplateValue(value string) bool {
	return boilerplateValues[strings.TrimSpace(value)]
}

// ShouldExcludeAttribute combines the attribute deny-list, the boilerplate
// value set, and the general text filter.
func ShouldExcludeAttribute(name, value string, cfg Config) bool {
	return IsTechnicalAttribute(name) || IsBoilerplateValue(value) || ShouldExclude(value, cfg)
}

func setOf(items ...string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}

// CompilePatterns compiles caller-supplied exclusion patterns.
func CompilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, nil
}
