package settings

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestDataDirAndFilePathUseXDGDataHome(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmp)

	dir, err := DataDir()
	if err != nil {
		t.Fatalf("DataDir() error: %v", err)
	}
	wantDir := filepath.Join(tmp, "wrapkit")
	if dir != wantDir {
		t.Fatalf("DataDir() = %q, want %q", dir, wantDir)
	}

	wantPath := filepath.Join(tmp, "wrapkit", "auth.json")
	if got := FilePath(); got != wantPath {
		t.Fatalf("FilePath() = %q, want %q", got, wantPath)
	}
}

func TestSaveLoadRemoveLifecycle(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmp)

	store := Store{
		"openai": {Key: "sk-openai-123456"},
		"groq":   {Key: "gsk-123456789", BaseURL: "https://api.groq.com/openai/v1"},
	}
	if err := Save(store); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	path := filepath.Join(tmp, "wrapkit", "auth.json")
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat auth.json: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Fatalf("auth.json mode = %o, want 600", info.Mode().Perm())
	}

	loaded := Load()
	if got := loaded.Providers(); !reflect.DeepEqual(got, []string{"groq", "openai"}) {
		t.Fatalf("Providers() = %v", got)
	}
	if loaded["groq"].BaseURL != "https://api.groq.com/openai/v1" {
		t.Fatalf("groq base URL lost: %#v", loaded["groq"])
	}

	if err := Remove("openai"); err != nil {
		t.Fatalf("Remove(openai) error: %v", err)
	}
	if got := GetAPIKey("openai"); got != "" {
		t.Fatalf("GetAPIKey after remove = %q, want empty", got)
	}
	if Get("groq") == nil {
		t.Fatalf("groq should remain after removing openai")
	}

	if err := Remove("missing-provider"); err != nil {
		t.Fatalf("Remove(missing) should be no-op, got: %v", err)
	}

	if err := RemoveAll(); err != nil {
		t.Fatalf("RemoveAll() error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("auth.json should be removed, stat err=%v", err)
	}
	if got := Load(); len(got) != 0 {
		t.Fatalf("Load() after RemoveAll should be empty, got=%#v", got)
	}
}

func TestLoadIgnoresCorruptFile(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmp)

	dir := filepath.Join(tmp, "wrapkit")
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "auth.json"), []byte("{not json"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if got := Load(); len(got) != 0 {
		t.Fatalf("Load() on corrupt file = %#v, want empty", got)
	}
}

func TestSetAPIKeyValidation(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	if err := SetAPIKey("", "k", ""); err == nil {
		t.Fatal("SetAPIKey with empty provider should fail")
	}
	if err := SetAPIKey("openai", "", ""); err == nil {
		t.Fatal("SetAPIKey with empty key should fail")
	}
}

func TestResolveAPIKeyPriority(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmp)

	if err := SetAPIKey("openai", "stored-key", ""); err != nil {
		t.Fatalf("SetAPIKey() error: %v", err)
	}
	t.Setenv("WRAPKIT_TEST_OPENAI_KEY", "env-key")

	if key, src := ResolveAPIKey("flag-key", "WRAPKIT_TEST_OPENAI_KEY", "openai"); key != "flag-key" || src != "flag" {
		t.Fatalf("flag should win, got %q from %q", key, src)
	}
	if key, src := ResolveAPIKey("", "WRAPKIT_TEST_OPENAI_KEY", "openai"); key != "env-key" || src != "env" {
		t.Fatalf("env should win over store, got %q from %q", key, src)
	}

	t.Setenv("WRAPKIT_TEST_OPENAI_KEY", "")
	if key, src := ResolveAPIKey("", "WRAPKIT_TEST_OPENAI_KEY", "openai"); key != "stored-key" || src != "store" {
		t.Fatalf("stored key expected, got %q from %q", key, src)
	}
	if key, src := ResolveAPIKey("", "", "nobody"); key != "" || src != "" {
		t.Fatalf("expected no key, got %q from %q", key, src)
	}
}

func TestMaskKey(t *testing.T) {
	if got := MaskKey("short"); got != "****" {
		t.Fatalf("MaskKey(short) = %q, want ****", got)
	}
	if got := MaskKey("12345678"); got != "****" {
		t.Fatalf("MaskKey(8 chars) = %q, want ****", got)
	}
	if got := MaskKey("123456789"); got != "1234...6789" {
		t.Fatalf("MaskKey(9 chars) = %q, want 1234...6789", got)
	}
}
