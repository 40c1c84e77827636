package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minios-linux/wrapkit/catalog"
	"github.com/minios-linux/wrapkit/config"
	"github.com/minios-linux/wrapkit/provider"
	"github.com/minios-linux/wrapkit/store"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func newRunner(t *testing.T, dir string, f *config.File) *Runner {
	t.Helper()
	if f == nil {
		f = &config.File{}
	}
	cfg, err := f.Resolve(dir)
	require.NoError(t, err)
	r, err := New(cfg, nil)
	require.NoError(t, err)
	return r
}

func TestExtract(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"src/Toolbar.tsx": "export const Toolbar = () => (\n" +
			"  <div title={t('Save changes')}>\n" +
			"    <Trans>Welcome back</Trans>\n" +
			"    {t('app_missing_key')}\n" +
			"  </div>\n" +
			");\n",
		"src/node_modules/lib/index.js": "t('Should not be seen')\n",
	})

	r := newRunner(t, dir, nil)

	rep, err := r.Extract(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Found)
	assert.Equal(t, 2, rep.Added)
	assert.Equal(t, []string{"app_missing_key"}, rep.Unresolved)
	_, err = os.Stat(filepath.Join(dir, "locales", "en.json"))
	assert.True(t, os.IsNotExist(err), "dry run must not write the catalog")

	rep, err = r.Extract(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Added)
	assert.Equal(t, 2, rep.Total)

	lf, err := r.Store().Load("en")
	require.NoError(t, err)
	require.NotNil(t, lf)
	assert.Equal(t, map[string]string{
		"toolbar_save_changes": "Save changes",
		"toolbar_welcome_back": "Welcome back",
	}, catalog.Flatten(lf.Data))

	again, err := r.Extract(context.Background(), false)
	require.NoError(t, err)
	assert.Zero(t, again.Added)
}

func TestExtractKeepsEditedValues(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"src/App.jsx": "const x = t('Sign in');\n"})
	r := newRunner(t, dir, nil)

	_, err := r.Store().Save("en", catalog.Tree{"app_sign_in": "Log in"})
	require.NoError(t, err)

	rep, err := r.Extract(context.Background(), false)
	require.NoError(t, err)
	assert.Zero(t, rep.Added)

	lf, err := r.Store().Load("en")
	require.NoError(t, err)
	got, _ := catalog.Get(lf.Data, "app_sign_in")
	assert.Equal(t, "Log in", got)
}

func TestWrap(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	const src = "export const App = () => <div>Hello World</div>;\n"
	writeTree(t, dir, map[string]string{"src/App.tsx": src})
	r := newRunner(t, dir, nil)

	preview, err := r.Wrap(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 1, preview.Result.Modified)
	assert.Equal(t, 1, preview.Added)
	raw, err := os.ReadFile(filepath.Join(dir, "src", "App.tsx"))
	require.NoError(t, err)
	assert.Equal(t, src, string(raw))

	rep, err := r.Wrap(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, preview.Result.TotalWrapped(), rep.Result.TotalWrapped())
	assert.Equal(t, 1, rep.Added)

	raw, err = os.ReadFile(filepath.Join(dir, "src", "App.tsx"))
	require.NoError(t, err)
	assert.Equal(t, "import { t } from '@/i18n';\n\nexport const App = () => <div>{t('app_hello_world')}</div>;\n", string(raw))

	lf, err := r.Store().Load("en")
	require.NoError(t, err)
	got, _ := catalog.Get(lf.Data, "app_hello_world")
	assert.Equal(t, "Hello World", got)

	second, err := r.Wrap(context.Background(), false)
	require.NoError(t, err)
	assert.Zero(t, second.Result.TotalWrapped())
	assert.Zero(t, second.Result.Modified)
}

func TestWrapKeepsExistingCatalogKeys(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "src", "Form.tsx")
	writeTree(t, dir, map[string]string{"src/Form.tsx": "export const Form = () => <p>Delete item</p>;\n"})
	r := newRunner(t, dir, nil)

	_, err := r.Wrap(context.Background(), false)
	require.NoError(t, err)
	wrapped, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(wrapped), "{t('form_delete_item')}")

	// A later edit adds text that slugs onto the same key.
	edited := string(wrapped) + "export const Confirm = () => <p>Delete item?</p>;\n"
	require.NoError(t, os.WriteFile(path, []byte(edited), 0o644))

	rep, err := r.Wrap(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, 1, rep.Result.TotalWrapped())
	key := rep.Result.Files[0].Wrapped[0].Key
	assert.NotEqual(t, "form_delete_item", key)
	assert.True(t, strings.HasPrefix(key, "form_delete_item_"), key)
	assert.Equal(t, 1, rep.Added)

	lf, err := r.Store().Load("en")
	require.NoError(t, err)
	first, _ := catalog.Get(lf.Data, "form_delete_item")
	assert.Equal(t, "Delete item", first)
	second, _ := catalog.Get(lf.Data, key)
	assert.Equal(t, "Delete item?", second)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "<p>{t('form_delete_item')}</p>")
	assert.Contains(t, string(raw), "<p>{t('"+key+"')}</p>")
}

// echo counts requests and returns the source text unchanged, like a
// provider keeping a brand name as is.
func echo(calls *atomic.Int32) provider.Provider {
	return provider.Func(func(_ context.Context, req provider.Request) (string, error) {
		calls.Add(1)
		return req.SourceText, nil
	})
}

func TestSyncPersistsSourceHashes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	f := &config.File{Locales: []string{"de", "fr"}}
	r := newRunner(t, dir, f)
	_, err := r.Store().Save("en", catalog.Tree{"brand": "Wrapkit", "nav": map[string]any{"home": "Home"}})
	require.NoError(t, err)

	var calls atomic.Int32
	var seen []string
	rep, err := r.Sync(context.Background(), echo(&calls), SyncOptions{OnLocale: func(l string) { seen = append(seen, l) }})
	require.NoError(t, err)
	assert.NotEmpty(t, rep.RunID)
	assert.Equal(t, []string{"de", "fr"}, seen)
	assert.Equal(t, int32(4), calls.Load())
	assert.Equal(t, 4, rep.Translated())
	for _, ls := range rep.Locales {
		assert.True(t, ls.Saved)
	}

	de, err := r.Store().Load("de")
	require.NoError(t, err)
	assert.Len(t, de.SourceHashes, 2)
	assert.Equal(t, "Home", mustGet(t, de.Data, "nav.home"))

	// A fresh runner has a fresh engine; the persisted hashes still stop
	// the unchanged keys from being requested again.
	r2 := newRunner(t, dir, f)
	rep, err = r2.Sync(context.Background(), echo(&calls), SyncOptions{})
	require.NoError(t, err)
	assert.Equal(t, int32(4), calls.Load())
	for _, ls := range rep.Locales {
		assert.Equal(t, 2, ls.Report.Unchanged)
		assert.False(t, ls.Saved)
	}

	// Forcing requests everything again.
	_, err = r2.Sync(context.Background(), echo(&calls), SyncOptions{Locales: []string{"de"}, Force: true})
	require.NoError(t, err)
	assert.Equal(t, int32(6), calls.Load())
}

func TestSyncKeepsFailedKeys(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	r := newRunner(t, dir, &config.File{Locales: []string{"es"}})
	_, err := r.Store().Save("en", catalog.Tree{"ok": "Fine", "bad": "Broken"})
	require.NoError(t, err)
	_, err = r.Store().Save("es", catalog.Tree{"bad": ""})
	require.NoError(t, err)

	p := provider.Func(func(_ context.Context, req provider.Request) (string, error) {
		if req.Context == "bad" {
			return "", errors.New("refused")
		}
		return "Bien", nil
	})
	rep, err := r.Sync(context.Background(), p, SyncOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Translated())
	assert.Equal(t, 1, rep.Failed())

	es, err := r.Store().Load("es")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"ok": "Bien", "bad": ""}, catalog.Flatten(es.Data))
	assert.Equal(t, []string{"ok"}, catalog.SortedKeys(es.SourceHashes))
}

func TestSyncErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	r := newRunner(t, dir, nil)
	var calls atomic.Int32

	_, err := r.Sync(context.Background(), echo(&calls), SyncOptions{Locales: []string{"de"}})
	require.Error(t, err, "no default catalog yet")
	assert.NotEmpty(t, errors.GetAllHints(err))

	_, err = r.Store().Save("en", catalog.Tree{"a": "A"})
	require.NoError(t, err)

	_, err = r.Sync(context.Background(), echo(&calls), SyncOptions{})
	require.Error(t, err, "no target locales")

	_, err = r.Sync(context.Background(), echo(&calls), SyncOptions{Locales: []string{"../evil"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrSecurityViolation))
	assert.Zero(t, calls.Load())
	_, statErr := os.Stat(filepath.Join(dir, "evil.json"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestStatus(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	r := newRunner(t, dir, &config.File{Locales: []string{"de", "ja"}})
	_, err := r.Store().Save("en", catalog.Tree{"a": "Alpha", "b": "Beta"})
	require.NoError(t, err)

	var calls atomic.Int32
	_, err = r.Sync(context.Background(), echo(&calls), SyncOptions{Locales: []string{"de"}})
	require.NoError(t, err)

	// Source text of "a" changes and a new key appears.
	_, err = r.Store().Save("en", catalog.Tree{"a": "Alpha 2", "b": "Beta", "c": "Gamma"})
	require.NoError(t, err)
	// An unconfigured catalog on disk is reported too.
	_, err = r.Store().Save("it", catalog.Tree{"a": "Alfa", "old": "Vecchio"})
	require.NoError(t, err)

	st, err := r.Status()
	require.NoError(t, err)
	require.Len(t, st, 4)

	assert.Equal(t, "en", st[0].Locale)
	assert.True(t, st[0].Default)
	assert.Equal(t, 3, st[0].Total)
	assert.Equal(t, 100, st[0].Percent())

	de := st[1]
	assert.Equal(t, "de", de.Locale)
	assert.Equal(t, "German", de.Meta.Name)
	assert.True(t, de.Exists)
	assert.Equal(t, 2, de.Translated)
	assert.Equal(t, 1, de.Missing)
	assert.Equal(t, 1, de.Stale)
	assert.Equal(t, 66, de.Percent())

	ja := st[2]
	assert.Equal(t, "ja", ja.Locale)
	assert.False(t, ja.Exists)
	assert.Equal(t, 3, ja.Missing)

	it := st[3]
	assert.Equal(t, "it", it.Locale)
	assert.Equal(t, 1, it.Translated)
	assert.Equal(t, 1, it.Obsolete)
	assert.Zero(t, it.Stale)
}

func TestNewProvider(t *testing.T) {
	t.Parallel()

	cfg, err := (&config.File{Provider: config.ProviderFile{Type: "pseudo"}}).Resolve(t.TempDir())
	require.NoError(t, err)
	p, err := NewProvider(cfg, "", nil)
	require.NoError(t, err)
	res := p.Translate(context.Background(), provider.Request{SourceText: "Save"})
	assert.Equal(t, "[Sávé]", res.TranslatedText)

	cfg, err = (&config.File{}).Resolve(t.TempDir())
	require.NoError(t, err)
	p, err = NewProvider(cfg, "sk-test", nil)
	require.NoError(t, err)
	assert.IsType(t, &provider.OpenAI{}, p)
}

func TestWatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"src/App.tsx": "const a = t('First text');\n"})
	r := newRunner(t, dir, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runs := make(chan WatchRun, 8)
	done := make(chan error, 1)
	go func() {
		done <- r.Watch(ctx, WatchOptions{Debounce: 20 * time.Millisecond, OnRun: func(wr WatchRun) { runs <- wr }})
	}()

	first := waitRun(t, runs)
	require.NoError(t, first.Err)
	assert.Empty(t, first.Trigger)
	assert.Equal(t, 1, first.Extract.Added)

	writeTree(t, dir, map[string]string{"src/pages/Extra.tsx": "const b = t('Second text');\n"})

	deadline := time.After(5 * time.Second)
	for {
		select {
		case wr := <-runs:
			require.NoError(t, wr.Err)
			if wr.Extract.Total == 2 {
				assert.True(t, strings.HasPrefix(wr.Trigger, filepath.Join(dir, "src")))
				cancel()
				require.NoError(t, <-done)
				return
			}
		case <-deadline:
			t.Fatal("no watch run picked up the new file")
		}
	}
}

func waitRun(t *testing.T, runs <-chan WatchRun) WatchRun {
	t.Helper()
	select {
	case wr := <-runs:
		return wr
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a watch run")
	}
	return WatchRun{}
}

func mustGet(t *testing.T, tree catalog.Tree, key string) string {
	t.Helper()
	v, ok := catalog.Get(tree, key)
	require.True(t, ok, "missing %s", key)
	return v
}
