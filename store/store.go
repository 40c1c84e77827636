// Package store persists locale catalogs as one JSON document per locale:
//
//	<root>/<locale>.json
//	{
//	  "locale": "de",
//	  "data": { ... },
//	  "hash": "<sha256 of canonical data>",
//	  "lastUpdated": "2024-05-01T10:00:00Z",
//	  "sourceHashes": { "key": "<sha256 of source text>" }
//	}
//
// Locale identifiers are checked before any filesystem access; one that
// could address a path outside the root is a security violation. Documents
// are replaced atomically.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/minios-linux/wrapkit/catalog"
	"github.com/minios-linux/wrapkit/safefile"
)

var (
	// ErrSecurityViolation marks a locale identifier that escapes the root.
	ErrSecurityViolation = errors.New("security violation")
	// ErrCatalogCorruption marks an unreadable or malformed locale document.
	// Load reports it as a warning, never as an error.
	ErrCatalogCorruption = errors.New("catalog corruption")
)

// Ext is the locale document extension.
const Ext = ".json"

// LocaleFile is the persisted unit.
type LocaleFile struct {
	Locale       string            `json:"locale"`
	Data         catalog.Tree      `json:"data"`
	Hash         string            `json:"hash"`
	LastUpdated  time.Time         `json:"lastUpdated"`
	SourceHashes map[string]string `json:"sourceHashes,omitempty"`
}

// Store reads and writes locale documents under one root directory.
type Store struct {
	root string
	log  *zap.Logger
	now  func() time.Time

	mu       sync.Mutex
	warnings []string
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for corruption warnings.
func WithLogger(log *zap.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// WithClock replaces time.Now for LastUpdated stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New returns a Store rooted at root. The directory is created lazily on the
// first Save.
func New(root string, opts ...Option) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving catalog root %s", root)
	}
	s := &Store{root: filepath.Clean(abs), log: zap.NewNop(), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Root returns the absolute storage root.
func (s *Store) Root() string { return s.root }

// Path resolves locale to its document path, rejecting identifiers that are
// empty, absolute, contain separators or parent segments, or resolve outside
// the root.
func (s *Store) Path(locale string) (string, error) {
	if err := checkLocale(locale); err != nil {
		return "", err
	}
	path := filepath.Join(s.root, locale+Ext)
	rel, err := filepath.Rel(s.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", violation(locale, "resolves outside the catalog root")
	}
	return path, nil
}

func checkLocale(locale string) error {
	switch {
	case locale == "":
		return violation(locale, "is empty")
	case strings.ContainsRune(locale, 0):
		return violation(locale, "contains a NUL byte")
	case filepath.IsAbs(locale) || strings.HasPrefix(locale, "/") || strings.HasPrefix(locale, `\`) || filepath.VolumeName(locale) != "":
		return violation(locale, "is an absolute path")
	case strings.Contains(locale, ".."):
		return violation(locale, "contains a parent-directory segment")
	case strings.ContainsAny(locale, `/\`):
		return violation(locale, "contains a path separator")
	case strings.HasPrefix(locale, "."):
		return violation(locale, "starts with a dot")
	}
	return nil
}

func violation(locale, reason string) error {
	return errors.Mark(errors.Newf("locale %q %s", locale, reason), ErrSecurityViolation)
}

// Load reads locale's document. A missing document yields (nil, nil). A
// malformed one also yields (nil, nil) after a warning is logged and recorded
// (see Warnings). Only security violations and unexpected read failures are
// returned as errors.
func (s *Store) Load(locale string) (*LocaleFile, error) {
	path, err := s.Path(locale)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "reading %s", path)
	}

	lf, err := decode(raw)
	if err != nil {
		s.warn(locale, path, errors.Mark(err, ErrCatalogCorruption))
		return nil, nil
	}
	if lf.Locale == "" {
		lf.Locale = locale
	}

	if sum, err := catalog.Hash(lf.Data); err == nil && lf.Hash != "" && sum != lf.Hash {
		s.log.Debug("catalog hash differs from content, likely edited by hand",
			zap.String("locale", locale), zap.String("stored", lf.Hash), zap.String("actual", sum))
		lf.Hash = sum
	}
	return lf, nil
}

func decode(raw []byte) (*LocaleFile, error) {
	var doc struct {
		Locale       string            `json:"locale"`
		Data         json.RawMessage   `json:"data"`
		Hash         string            `json:"hash"`
		LastUpdated  time.Time         `json:"lastUpdated"`
		SourceHashes map[string]string `json:"sourceHashes"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrap(err, "parsing locale document")
	}

	data := catalog.Tree{}
	if len(doc.Data) > 0 && string(doc.Data) != "null" {
		var v any
		if err := json.Unmarshal(doc.Data, &v); err != nil {
			return nil, errors.Wrap(err, "parsing data")
		}
		if err := catalog.Validate(v); err != nil {
			return nil, err
		}
		data = catalog.Tree(v.(map[string]any))
	}

	return &LocaleFile{
		Locale:       doc.Locale,
		Data:         data,
		Hash:         doc.Hash,
		LastUpdated:  doc.LastUpdated,
		SourceHashes: doc.SourceHashes,
	}, nil
}

func (s *Store) warn(locale, path string, err error) {
	s.log.Warn("ignoring malformed catalog", zap.String("locale", locale), zap.String("file", path), zap.Error(err))
	s.mu.Lock()
	s.warnings = append(s.warnings, fmt.Sprintf("%s: %v", path, err))
	s.mu.Unlock()
}

// Warnings returns the corruption warnings recorded so far.
func (s *Store) Warnings() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.warnings...)
}

type saveOptions struct {
	sourceHashes map[string]string
}

// SaveOption configures Save.
type SaveOption func(*saveOptions)

// WithSourceHashes stores the key -> source hash map alongside the data.
func WithSourceHashes(h map[string]string) SaveOption {
	return func(o *saveOptions) { o.sourceHashes = h }
}

// Save writes data as locale's document, computing the canonical hash and
// stamping the current time. The previous document is replaced atomically.
func (s *Store) Save(locale string, data catalog.Tree, opts ...SaveOption) (*LocaleFile, error) {
	path, err := s.Path(locale)
	if err != nil {
		return nil, err
	}

	var o saveOptions
	for _, opt := range opts {
		opt(&o)
	}

	if data == nil {
		data = catalog.Tree{}
	}
	if err := catalog.Validate(data); err != nil {
		return nil, errors.Wrapf(err, "saving %s", locale)
	}
	sum, err := catalog.Hash(data)
	if err != nil {
		return nil, err
	}

	lf := &LocaleFile{
		Locale:       locale,
		Data:         catalog.Clone(data),
		Hash:         sum,
		LastUpdated:  s.now().UTC(),
		SourceHashes: o.sourceHashes,
	}
	if len(lf.SourceHashes) == 0 {
		lf.SourceHashes = nil
	}

	out, err := json.MarshalIndent(lf, "", "  ")
	if err != nil {
		return nil, errors.Wrapf(err, "encoding %s", locale)
	}
	out = append(out, '\n')

	if err := safefile.MkdirAll(s.root); err != nil {
		return nil, err
	}
	if err := safefile.WriteFile(path, out, 0o644); err != nil {
		return nil, err
	}
	return lf, nil
}

// Merge merges newData into locale's persisted catalog and saves the result.
// With preserveExisting, leaves already present keep their value. Persisted
// source hashes are carried over for keys that still exist.
func (s *Store) Merge(locale string, newData catalog.Tree, preserveExisting bool) (*LocaleFile, error) {
	if _, err := s.Path(locale); err != nil {
		return nil, err
	}

	current, err := s.Load(locale)
	if err != nil {
		return nil, err
	}
	base := catalog.Tree{}
	var hashes map[string]string
	if current != nil {
		base = current.Data
		hashes = current.SourceHashes
	}

	merged := catalog.Merge(base, newData, preserveExisting)
	return s.Save(locale, merged, WithSourceHashes(KeepHashes(hashes, merged)))
}

// KeepHashes returns the entries of hashes whose keys are leaves of data.
func KeepHashes(hashes map[string]string, data catalog.Tree) map[string]string {
	if len(hashes) == 0 {
		return nil
	}
	flat := catalog.Flatten(data)
	out := make(map[string]string, len(hashes))
	for k, h := range hashes {
		if _, ok := flat[k]; ok {
			out[k] = h
		}
	}
	return out
}

// Locales lists the locales with a document under the root, sorted. A
// missing root yields an empty list.
func (s *Store) Locales() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "listing %s", s.root)
	}

	var locales []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, Ext) {
			continue
		}
		locale := strings.TrimSuffix(name, Ext)
		if checkLocale(locale) != nil {
			continue
		}
		locales = append(locales, locale)
	}
	sort.Strings(locales)
	return locales, nil
}
