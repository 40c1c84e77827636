// Package settings stores wrapkit's per-user provider credentials.
//
// The store lives in the XDG data directory:
//
//	$XDG_DATA_HOME/wrapkit/auth.json  (default: ~/.local/share/wrapkit/auth.json)
//
// It is a JSON object keyed by provider ID ("openai", "groq", "ollama" ...),
// each value holding an API key and optionally the endpoint it belongs to.
// The file is written atomically with 0600 permissions.
//
// Lookup order for API keys:
//  1. --api-key flag (highest priority)
//  2. the environment variable named by provider.api_key_env
//  3. this credential store
package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/minios-linux/wrapkit/safefile"
)

const (
	dataDirName = "wrapkit"
	fileName    = "auth.json"
)

// Info is one provider's stored credentials.
type Info struct {
	Key     string `json:"key"`
	BaseURL string `json:"baseUrl,omitempty"`
}

// Store holds all provider credentials, keyed by provider ID.
type Store map[string]*Info

// dataDir respects $XDG_DATA_HOME and falls back to ~/.local/share.
func dataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, dataDirName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "cannot determine home directory")
	}
	return filepath.Join(home, ".local", "share", dataDirName), nil
}

func filePath() (string, error) {
	dir, err := dataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

// FilePath returns the auth.json path for display purposes.
func FilePath() string {
	p, err := filePath()
	if err != nil {
		return ""
	}
	return p
}

// DataDir returns the wrapkit data directory.
func DataDir() (string, error) {
	return dataDir()
}

// Load reads the credential store. A missing or unreadable file yields an
// empty store.
func Load() Store {
	path, err := filePath()
	if err != nil {
		return make(Store)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return make(Store)
	}

	var store Store
	if err := json.Unmarshal(data, &store); err != nil || store == nil {
		return make(Store)
	}
	for id, info := range store {
		if info == nil {
			delete(store, id)
		}
	}
	return store
}

// Save writes the credential store with 0600 permissions.
func Save(store Store) error {
	path, err := filePath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshaling credentials")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errors.Wrap(err, "creating data directory")
	}
	if err := safefile.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return errors.Wrap(err, "writing auth file")
	}
	return nil
}

// Get returns the entry for a provider, or nil.
func Get(providerID string) *Info {
	return Load()[providerID]
}

// SetAPIKey stores an API key (and the endpoint it is for, when known).
func SetAPIKey(providerID, key, baseURL string) error {
	if providerID == "" {
		return errors.New("provider ID is empty")
	}
	if key == "" {
		return errors.New("API key is empty")
	}
	store := Load()
	store[providerID] = &Info{Key: key, BaseURL: baseURL}
	return Save(store)
}

// GetAPIKey returns the stored key for a provider, or "".
func GetAPIKey(providerID string) string {
	if info := Get(providerID); info != nil {
		return info.Key
	}
	return ""
}

// Remove deletes a provider's credentials. Removing an unknown provider is
// not an error.
func Remove(providerID string) error {
	store := Load()
	if _, ok := store[providerID]; !ok {
		return nil
	}
	delete(store, providerID)
	return Save(store)
}

// RemoveAll deletes the credential file.
func RemoveAll() error {
	path, err := filePath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing auth file")
	}
	return nil
}

// Providers returns the stored provider IDs, sorted.
func (s Store) Providers() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ResolveAPIKey applies the lookup order: flag, then the environment
// variable envName, then the store entry for providerID. source names where
// the key came from ("flag", "env", "store"); both are empty when none is set.
func ResolveAPIKey(flagValue, envName, providerID string) (key, source string) {
	if flagValue != "" {
		return flagValue, "flag"
	}
	if envName != "" {
		if v := os.Getenv(envName); v != "" {
			return v, "env"
		}
	}
	if v := GetAPIKey(providerID); v != "" {
		return v, "store"
	}
	return "", ""
}

// MaskKey returns a masked version of a key for display.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
