package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// File names looked up in the project root, in order.
const (
	FileName     = ".wrapkit.yaml"
	TOMLFileName = ".wrapkit.toml"
)

// File is the on-disk configuration schema. Empty fields take defaults.
type File struct {
	SourceDir       string       `yaml:"source_dir,omitempty" toml:"source_dir,omitempty"`
	OutputDir       string       `yaml:"output_dir,omitempty" toml:"output_dir,omitempty"`
	DefaultLocale   string       `yaml:"default_locale,omitempty" toml:"default_locale,omitempty"`
	Locales         []string     `yaml:"locales,omitempty" toml:"locales,omitempty"`
	FunctionName    string       `yaml:"function_name,omitempty" toml:"function_name,omitempty"`
	ComponentName   string       `yaml:"component_name,omitempty" toml:"component_name,omitempty"`
	ImportSource    string       `yaml:"import_source,omitempty" toml:"import_source,omitempty"`
	KeyPrefix       string       `yaml:"key_prefix,omitempty" toml:"key_prefix,omitempty"`
	MinLength       int          `yaml:"min_length,omitempty" toml:"min_length,omitempty"`
	ExcludePatterns []string     `yaml:"exclude_patterns,omitempty" toml:"exclude_patterns,omitempty"`
	Extensions      []string     `yaml:"extensions,omitempty" toml:"extensions,omitempty"`
	SkipTags        []string     `yaml:"skip_tags,omitempty" toml:"skip_tags,omitempty"`
	Provider        ProviderFile `yaml:"provider,omitempty" toml:"provider,omitempty"`
	Sync            SyncFile     `yaml:"sync,omitempty" toml:"sync,omitempty"`
}

// ProviderFile configures the translation provider.
type ProviderFile struct {
	// Type: "openai" (any OpenAI-compatible endpoint) or "pseudo".
	Type      string `yaml:"type,omitempty" toml:"type,omitempty"`
	BaseURL   string `yaml:"base_url,omitempty" toml:"base_url,omitempty"`
	Model     string `yaml:"model,omitempty" toml:"model,omitempty"`
	APIKeyEnv string `yaml:"api_key_env,omitempty" toml:"api_key_env,omitempty"`
	Proxy     string `yaml:"proxy,omitempty" toml:"proxy,omitempty"`
	// Timeout is a Go duration string such as "90s".
	Timeout string `yaml:"timeout,omitempty" toml:"timeout,omitempty"`
	Prompt  string `yaml:"prompt,omitempty" toml:"prompt,omitempty"`
}

// SyncFile tunes batching.
type SyncFile struct {
	ChunkSize     int `yaml:"chunk_size,omitempty" toml:"chunk_size,omitempty"`
	MaxConcurrent int `yaml:"max_concurrent,omitempty" toml:"max_concurrent,omitempty"`
	// RequestDelay is a Go duration string such as "500ms".
	RequestDelay string `yaml:"request_delay,omitempty" toml:"request_delay,omitempty"`
	MaxRetries   int    `yaml:"max_retries,omitempty" toml:"max_retries,omitempty"`
}

// LoadFile reads .wrapkit.yaml, or .wrapkit.toml when the former is absent,
// from rootDir. It returns nil, "" when neither exists.
func LoadFile(rootDir string) (*File, string, error) {
	for _, name := range []string{FileName, TOMLFileName} {
		path := filepath.Join(rootDir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, "", errors.Wrapf(err, "reading %s", path)
		}

		var f File
		if name == TOMLFileName {
			dec := toml.NewDecoder(bytes.NewReader(data))
			dec.DisallowUnknownFields()
			err = dec.Decode(&f)
		} else {
			dec := yaml.NewDecoder(bytes.NewReader(data))
			dec.KnownFields(true)
			err = dec.Decode(&f)
			if errors.Is(err, io.EOF) {
				err = nil
			}
		}
		if err != nil {
			return nil, "", errors.WithHint(errors.Wrapf(err, "parsing %s", path),
				"check the file against the documented keys (source_dir, output_dir, locales, provider, sync ...)")
		}
		return &f, path, nil
	}
	return nil, "", nil
}

// Marshal renders f as YAML, the format `wrapkit init` writes.
func (f *File) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return nil, errors.Wrap(err, "encoding config")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, "encoding config")
	}
	return buf.Bytes(), nil
}
