// Package config loads wrapkit project settings from .wrapkit.yaml (or
// .wrapkit.toml), applies defaults and resolves paths against the project
// root. A .env file next to the config is loaded first so provider keys can
// stay out of version control.
package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"

	"github.com/minios-linux/wrapkit/langmeta"
)

// Defaults.
const (
	DefaultSourceDir     = "src"
	DefaultOutputDir     = "locales"
	DefaultLocale        = "en"
	DefaultFunctionName  = "t"
	DefaultComponentName = "Trans"
	DefaultImportSource  = "@/i18n"
	DefaultMinLength     = 2
	DefaultProviderType  = ProviderOpenAI
	DefaultBaseURL       = "https://api.openai.com/v1"
	DefaultModel         = "gpt-4o-mini"
	DefaultAPIKeyEnv     = "OPENAI_API_KEY"
	DefaultTimeout       = 120 * time.Second
	DefaultMaxConcurrent = 1
	DefaultMaxRetries    = 3
)

// Provider types.
const (
	ProviderOpenAI = "openai"
	ProviderPseudo = "pseudo"
)

// DefaultExtensions are the source file extensions scanned when none are
// configured.
var DefaultExtensions = []string{".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs"}

// Config is the resolved project configuration. Paths are absolute.
type Config struct {
	// Root is the project root.
	Root string
	// Path is the config file used; empty when running on defaults.
	Path string

	SourceDir     string
	OutputDir     string
	DefaultLocale string
	// Locales are the target locales, canonical and without DefaultLocale.
	Locales         []string
	FunctionName    string
	ComponentName   string
	ImportSource    string
	KeyPrefix       string
	MinLength       int
	ExcludePatterns []string
	Extensions      []string
	SkipTags        []string

	Provider Provider
	Sync     Sync
}

// Provider is the resolved provider section.
type Provider struct {
	Type      string
	BaseURL   string
	Model     string
	APIKeyEnv string
	Proxy     string
	Timeout   time.Duration
	Prompt    string
}

// Sync is the resolved sync section.
type Sync struct {
	ChunkSize     int
	MaxConcurrent int
	RequestDelay  time.Duration
	MaxRetries    int
}

// Load reads the configuration for the project at rootDir. A missing config
// file yields defaults; target locales are then detected from the catalogs
// already present in the output directory.
func Load(rootDir string) (*Config, error) {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving %s", rootDir)
	}

	if err := loadDotEnv(absRoot); err != nil {
		return nil, err
	}

	f, path, err := LoadFile(absRoot)
	if err != nil {
		return nil, err
	}
	if f == nil {
		f = &File{}
	}

	cfg, err := f.Resolve(absRoot)
	if err != nil {
		if path != "" {
			return nil, errors.Wrapf(err, "%s", path)
		}
		return nil, err
	}
	cfg.Path = path
	return cfg, nil
}

// loadDotEnv loads rootDir/.env without overriding variables already set.
func loadDotEnv(rootDir string) error {
	path := filepath.Join(rootDir, ".env")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return errors.Wrapf(err, "loading %s", path)
	}
	return nil
}

// Resolve applies defaults, validates f and resolves paths against rootDir.
func (f *File) Resolve(rootDir string) (*Config, error) {
	cfg := &Config{
		Root:            rootDir,
		SourceDir:       resolvePath(rootDir, orDefault(f.SourceDir, DefaultSourceDir)),
		OutputDir:       resolvePath(rootDir, orDefault(f.OutputDir, DefaultOutputDir)),
		FunctionName:    orDefault(f.FunctionName, DefaultFunctionName),
		ComponentName:   orDefault(f.ComponentName, DefaultComponentName),
		ImportSource:    orDefault(f.ImportSource, DefaultImportSource),
		KeyPrefix:       f.KeyPrefix,
		MinLength:       f.MinLength,
		ExcludePatterns: f.ExcludePatterns,
		Extensions:      normalizeExtensions(f.Extensions),
		SkipTags:        f.SkipTags,
	}
	if cfg.MinLength <= 0 {
		cfg.MinLength = DefaultMinLength
	}

	if !isIdentifier(cfg.FunctionName) {
		return nil, errors.WithHint(errors.Newf("function_name %q is not a valid identifier", cfg.FunctionName),
			"use a plain JavaScript identifier such as t or translate")
	}
	if !isIdentifier(cfg.ComponentName) {
		return nil, errors.WithHint(errors.Newf("component_name %q is not a valid identifier", cfg.ComponentName),
			"use a JSX component name such as Trans")
	}

	def, err := langmeta.Canonical(orDefault(f.DefaultLocale, DefaultLocale))
	if err != nil {
		return nil, errors.WithHint(errors.Wrap(err, "default_locale"), "use a BCP 47 code such as en or pt-BR")
	}
	cfg.DefaultLocale = def

	locales := f.Locales
	if len(locales) == 0 {
		locales = DetectLocales(cfg.OutputDir)
	}
	cfg.Locales, err = normalizeLocales(locales, def)
	if err != nil {
		return nil, err
	}

	cfg.Provider, err = f.Provider.resolve()
	if err != nil {
		return nil, err
	}
	cfg.Sync, err = f.Sync.resolve()
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func (p ProviderFile) resolve() (Provider, error) {
	out := Provider{
		Type:      strings.ToLower(orDefault(p.Type, DefaultProviderType)),
		BaseURL:   orDefault(p.BaseURL, DefaultBaseURL),
		Model:     orDefault(p.Model, DefaultModel),
		APIKeyEnv: orDefault(p.APIKeyEnv, DefaultAPIKeyEnv),
		Proxy:     p.Proxy,
		Timeout:   DefaultTimeout,
		Prompt:    p.Prompt,
	}
	switch out.Type {
	case ProviderOpenAI, ProviderPseudo:
	default:
		return Provider{}, errors.WithHint(errors.Newf("unknown provider type %q", p.Type),
			"valid types: openai, pseudo")
	}
	if p.Timeout != "" {
		d, err := parseDuration("provider.timeout", p.Timeout)
		if err != nil {
			return Provider{}, err
		}
		out.Timeout = d
	}
	return out, nil
}

func (s SyncFile) resolve() (Sync, error) {
	out := Sync{
		ChunkSize:     s.ChunkSize,
		MaxConcurrent: s.MaxConcurrent,
		MaxRetries:    s.MaxRetries,
	}
	if out.ChunkSize < 0 {
		return Sync{}, errors.Newf("sync.chunk_size must not be negative, got %d", s.ChunkSize)
	}
	if out.MaxConcurrent <= 0 {
		out.MaxConcurrent = DefaultMaxConcurrent
	}
	if out.MaxRetries <= 0 {
		out.MaxRetries = DefaultMaxRetries
	}
	if s.RequestDelay != "" {
		d, err := parseDuration("sync.request_delay", s.RequestDelay)
		if err != nil {
			return Sync{}, err
		}
		out.RequestDelay = d
	}
	return out, nil
}

func parseDuration(field, v string) (time.Duration, error) {
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return 0, errors.WithHint(errors.Newf("%s: invalid duration %q", field, v),
			`use a Go duration such as "500ms" or "2m"`)
	}
	return d, nil
}

// AllLocales returns the default locale followed by the target locales.
func (c *Config) AllLocales() []string {
	return append([]string{c.DefaultLocale}, c.Locales...)
}

// APIKey returns the provider key from the configured environment variable.
func (c *Config) APIKey() string {
	return os.Getenv(c.Provider.APIKeyEnv)
}

// Rel renders path relative to the project root for display.
func (c *Config) Rel(path string) string {
	if rel, err := filepath.Rel(c.Root, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}

// Default returns the File written by `wrapkit init`.
func Default() *File {
	return &File{
		SourceDir:     DefaultSourceDir,
		OutputDir:     DefaultOutputDir,
		DefaultLocale: DefaultLocale,
		FunctionName:  DefaultFunctionName,
		ComponentName: DefaultComponentName,
		ImportSource:  DefaultImportSource,
		Provider: ProviderFile{
			Type:      DefaultProviderType,
			BaseURL:   DefaultBaseURL,
			Model:     DefaultModel,
			APIKeyEnv: DefaultAPIKeyEnv,
		},
	}
}

// DetectLocales lists the locale catalogs (<code>.json) present in dir.
func DetectLocales(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var locales []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
			continue
		}
		code := strings.TrimSuffix(name, ".json")
		if _, err := langmeta.Parse(code); err == nil {
			locales = append(locales, code)
		}
	}
	sort.Strings(locales)
	return locales
}

// normalizeLocales canonicalizes, dedupes and drops the default locale.
func normalizeLocales(codes []string, def string) ([]string, error) {
	seen := map[string]bool{def: true}
	var out []string
	for _, code := range codes {
		c, err := langmeta.Canonical(code)
		if err != nil {
			return nil, errors.WithHint(errors.Wrap(err, "locales"), "use BCP 47 codes such as de, fr or pt-BR")
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out, nil
}

func normalizeExtensions(exts []string) []string {
	if len(exts) == 0 {
		return append([]string(nil), DefaultExtensions...)
	}
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out = append(out, e)
	}
	return out
}

func resolvePath(root, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(root, p)
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
