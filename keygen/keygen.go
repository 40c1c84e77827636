// Package keygen derives stable lookup keys from literal UI text.
//
// A key has the shape <prefix>_<file>_<slug>. The file component is the
// source file's base name in snake case; the slug is the lowercased text with
// everything outside [a-z0-9] and whitespace removed and whitespace runs
// replaced by underscores.
package keygen

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/iancoleman/strcase"
)

// MaxSlugLength bounds the slug component; longer slugs are cut on an
// underscore boundary.
const MaxSlugLength = 48

var (
	disallowed = regexp.MustCompile(`[^a-z0-9\s]+`)
	whitespace = regexp.MustCompile(`\s+`)
	keyShape   = regexp.MustCompile(`^[a-z0-9]+(?:_[a-z0-9]+)+$`)
)

// GenerateKey returns the key for text found in file. It consults no state
// beyond its arguments.
func GenerateKey(text, file, prefix string) string {
	return strings.Join(append(scopeParts(file, prefix), Slug(text)), "_")
}

func scopeParts(file, prefix string) []string {
	parts := make([]string, 0, 3)
	if p := strings.Trim(prefix, "_ "); p != "" {
		parts = append(parts, p)
	}
	if base := FileComponent(file); base != "" {
		parts = append(parts, base)
	}
	return parts
}

// Slug normalizes text into the slug component of a key.
func Slug(text string) string {
	s := strings.ToLower(text)
	s = disallowed.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = whitespace.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")

	if s == "" {
		// Nothing survived normalization (non-Latin text, emoji ...).
		return "h" + shortHash(text, 8)
	}

	if len(s) > MaxSlugLength {
		cut := s[:MaxSlugLength]
		if i := strings.LastIndexByte(cut, '_'); i > 0 {
			cut = cut[:i]
		}
		s = cut
	}
	return s
}

// FileComponent returns the snake-cased base name of file without extension.
func FileComponent(file string) string {
	if file == "" {
		return ""
	}
	base := filepath.Base(filepath.ToSlash(file))
	if i := strings.IndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	base = strcase.ToSnake(base)
	base = disallowed.ReplaceAllString(strings.ReplaceAll(base, "_", " "), "")
	return whitespace.ReplaceAllString(strings.TrimSpace(base), "_")
}

// LooksLikeKey reports whether s already has the shape of a generated key.
func LooksLikeKey(s string) bool {
	return keyShape.MatchString(s)
}

func shortHash(s string, n int) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:n]
}

// Namespace hands out keys for one source file. Two different texts that
// normalize to the same key are told apart by a short hash of the full text;
// the same text always receives the same key.
type Namespace struct {
	file   string
	prefix string
	byKey  map[string]string // key -> text
	byText map[string]string // text -> key
}

// NewNamespace creates an empty key namespace for file.
func NewNamespace(file, prefix string) *Namespace {
	return &Namespace{
		file:   file,
		prefix: prefix,
		byKey:  make(map[string]string),
		byText: make(map[string]string),
	}
}

// Assign returns the key for text, resolving collisions deterministically.
func (ns *Namespace) Assign(text string) string {
	if key, ok := ns.byText[text]; ok {
		return key
	}

	key := GenerateKey(text, ns.file, ns.prefix)
	if owner, taken := ns.byKey[key]; taken && owner != text {
		key = key + "_" + shortHash(text, 6)
	}

	ns.byKey[key] = text
	ns.byText[text] = key
	return key
}

// Reserve records an existing key (for example one already present in
// source) so that later assignments do not reuse it for other text.
func (ns *Namespace) Reserve(key, text string) {
	if _, ok := ns.byKey[key]; ok {
		return
	}
	ns.byKey[key] = text
	if text != "" {
		if _, ok := ns.byText[text]; !ok {
			ns.byText[text] = key
		}
	}
}

// Seed reserves every key in known (key -> text) that lies in this
// namespace's <prefix>_<file>_ scope, in sorted key order. Keys already in a
// catalog then keep their text, and new text that slugs onto one of them is
// suffixed instead of overwriting it.
func (ns *Namespace) Seed(known map[string]string) {
	scope := strings.Join(scopeParts(ns.file, ns.prefix), "_")
	if scope != "" {
		scope += "_"
	}
	keys := make([]string, 0, len(known))
	for k := range known {
		if strings.HasPrefix(k, scope) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		ns.Reserve(k, known[k])
	}
}

// Len returns the number of keys handed out or reserved.
func (ns *Namespace) Len() int {
	return len(ns.byKey)
}
