package extract

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", name, err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func TestFindSources(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	writeTree(t, tmp, map[string]string{
		"src/App.tsx":                       "export const App = () => null;\n",
		"src/util.js":                       "export const x = 1;\n",
		"src/types.d.ts":                    "export type A = string;\n",
		"src/styles.css":                    "body {}\n",
		"src/.hidden.tsx":                   "\n",
		"node_modules/lib/index.js":         "module.exports = {};\n",
		".cache/tmp.js":                     "\n",
		"locales/en.js":                     "\n",
		"src/components/Button.jsx":         "export default () => null;\n",
		"src/components/__snapshots__/a.js": "\n",
	})

	files, err := FindSources(tmp, WalkOptions{ExcludeDirs: []string{"locales"}})
	require.NoError(t, err)

	var rel []string
	for _, f := range files {
		r, err := filepath.Rel(tmp, f)
		require.NoError(t, err)
		rel = append(rel, filepath.ToSlash(r))
	}
	assert.Equal(t, []string{"src/App.tsx", "src/components/Button.jsx", "src/util.js"}, rel)

	only, err := FindSources(tmp, WalkOptions{Extensions: []string{".TSX"}, ExcludeDirs: []string{"locales"}})
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.True(t, strings.HasSuffix(only[0], "App.tsx"))
}

func TestFindSourcesMissingRoot(t *testing.T) {
	t.Parallel()

	_, err := FindSources(filepath.Join(t.TempDir(), "nope"), WalkOptions{})
	assert.Error(t, err)
}

func TestDescribeFiles(t *testing.T) {
	t.Parallel()

	got := DescribeFiles([]string{"a/App.tsx", "b/Nav.tsx", "c/x.js"})
	if got != "1 .js, 2 .tsx" {
		t.Fatalf("DescribeFiles = %q", got)
	}
	if got := DescribeFiles(nil); got != "" {
		t.Fatalf("DescribeFiles(nil) = %q", got)
	}
}

func TestParseCallForm(t *testing.T) {
	t.Parallel()

	src := `import { t } from '@/i18n';

export function App() {
  const title = t('Hello World');
  const known = t('app_page_title');
  const dynamic = t(` + "`Hi ${name}`" + `);
  const other = format('Not extracted');
  return i18n.t("Log out");
}
`
	s := NewScanner(Config{}, nil)
	res := s.Parse(context.Background(), []byte(src), "src/App.tsx")

	require.Empty(t, res.Errors)
	require.Len(t, res.Strings, 3)

	assert.Equal(t, "app_hello_world", res.Strings[0].Key)
	assert.Equal(t, "Hello World", res.Strings[0].Value)
	assert.Equal(t, FormCall, res.Strings[0].Form)
	assert.Equal(t, 4, res.Strings[0].Line)
	assert.Equal(t, 19, res.Strings[0].Column)
	assert.Equal(t, "src/App.tsx", res.Strings[0].File)

	assert.Equal(t, "app_page_title", res.Strings[1].Key)
	assert.Empty(t, res.Strings[1].Value)

	assert.Equal(t, "app_log_out", res.Strings[2].Key)
	assert.Equal(t, "Log out", res.Strings[2].Value)
}

func TestParseElementForm(t *testing.T) {
	t.Parallel()

	src := `export const Toolbar = () => (
  <div>
    <Trans>Save   changes</Trans>
    <Trans>Hello <b>World</b></Trans>
    <Trans>Fish &amp; chips</Trans>
    <Trans>{label}</Trans>
  </div>
);
`
	s := NewScanner(Config{}, nil)
	res := s.Parse(context.Background(), []byte(src), "Toolbar.jsx")

	require.Empty(t, res.Errors)
	require.Len(t, res.Strings, 2)
	assert.Equal(t, "toolbar_save_changes", res.Strings[0].Key)
	assert.Equal(t, "Save changes", res.Strings[0].Value)
	assert.Equal(t, FormElement, res.Strings[0].Form)
	assert.Equal(t, 3, res.Strings[0].Line)
	assert.Equal(t, "Fish & chips", res.Strings[1].Value)
}

func TestParseCustomMarkers(t *testing.T) {
	t.Parallel()

	src := `const a = translate('Ready');
const b = t('Ignored');
const c = <Msg>Done</Msg>;
`
	s := NewScanner(Config{FunctionName: "translate", ComponentName: "Msg", KeyPrefix: "ui"}, nil)
	res := s.Parse(context.Background(), []byte(src), "status.jsx")

	require.Len(t, res.Strings, 2)
	assert.Equal(t, "ui_status_ready", res.Strings[0].Key)
	assert.Equal(t, "ui_status_done", res.Strings[1].Key)
}

func TestParseDuplicateTextSharesKey(t *testing.T) {
	t.Parallel()

	src := `t('Cancel');
t('Cancel');
`
	res := NewScanner(Config{}, nil).Parse(context.Background(), []byte(src), "Dialog.js")
	require.Len(t, res.Strings, 2)
	assert.Equal(t, res.Strings[0].Key, res.Strings[1].Key)
	assert.NotEqual(t, res.Strings[0].Line, res.Strings[1].Line)
}

func TestParseRecoversFromSyntaxErrors(t *testing.T) {
	t.Parallel()

	src := `const ok = t('Still found');
function broken( {
`
	res := NewScanner(Config{}, nil).Parse(context.Background(), []byte(src), "Broken.js")

	require.NotEmpty(t, res.Errors)
	assert.Contains(t, res.Errors[0], "recovered")
}

func TestScanDirectoryIsolatesFailures(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	writeTree(t, tmp, map[string]string{
		"App.tsx":        "export const A = () => <Trans>Welcome</Trans>;\n",
		"Nav.jsx":        "export const N = () => t('Home');\n",
		"locales/gen.js": "t('Should not be scanned');\n",
	})
	require.NoError(t, os.Symlink(filepath.Join(tmp, "missing.tsx"), filepath.Join(tmp, "Dangling.tsx")))

	s := NewScanner(Config{Walk: WalkOptions{ExcludeDirs: []string{"locales"}}}, nil)
	res, err := s.ScanDirectory(context.Background(), tmp)
	require.NoError(t, err)

	assert.Len(t, res.Files, 3)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "io", res.Errors[0].Kind())
	assert.True(t, errors.Is(res.Errors[0], ErrIO))

	var values []string
	for _, s := range res.Strings {
		values = append(values, s.Value)
	}
	assert.ElementsMatch(t, []string{"Welcome", "Home"}, values)
}

func TestScanDirectoryCancelled(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	writeTree(t, tmp, map[string]string{"App.js": "t('x y');\n"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewScanner(Config{}, nil).ScanDirectory(ctx, tmp)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileErrorKind(t *testing.T) {
	t.Parallel()

	base := errors.New("boom")
	if k := (&FileError{Path: "a.js", Err: MarkParse(base)}).Kind(); k != "parse" {
		t.Fatalf("parse kind = %q", k)
	}
	if k := IOError("a.js", base, "reading").Kind(); k != "io" {
		t.Fatalf("io kind = %q", k)
	}
	if k := (&FileError{Path: "a.js", Err: base}).Kind(); k != "internal" {
		t.Fatalf("internal kind = %q", k)
	}
	assert.Contains(t, IOError("a.js", base, "reading").Error(), "a.js")
}
