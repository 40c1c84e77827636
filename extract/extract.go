// Package extract finds UI source files and pulls already-marked translatable
// text out of them.
//
// Two shapes are recognized, both statically only:
//
//	t('Hello world')          call-form: the configured function with a literal first argument
//	<Trans>Hello world</Trans> element-form: the configured component holding plain text
//
// A file that fails to read or parse is recorded and skipped; one bad file
// never stops a directory scan.
package extract

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/minios-linux/wrapkit/jsx"
)

// skipDirs contains directory names never descended into.
var skipDirs = map[string]bool{
	"node_modules":     true,
	"bower_components": true,
	"jspm_packages":    true,
	"vendor":           true,
	"dist":             true,
	"build":            true,
	"out":              true,
	"coverage":         true,
	"__pycache__":      true,
	"__snapshots__":    true,
}

// IsSkippedDir reports whether a directory name is never descended into:
// hidden directories and dependency or build output folders.
func IsSkippedDir(name string) bool {
	return strings.HasPrefix(name, ".") || skipDirs[name]
}

// WalkOptions control which files FindSources returns.
type WalkOptions struct {
	// Extensions restricts the walk; empty means every extension jsx supports.
	Extensions []string
	// ExcludeDirs are absolute or root-relative directories to skip, such as
	// the catalog output directory.
	ExcludeDirs []string
}

// FindSources recursively collects source files under root, skipping hidden
// entries, dependency directories and opts.ExcludeDirs. Unreadable entries
// are skipped. The result is sorted.
func FindSources(root string, opts WalkOptions) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving %s", root)
	}
	if _, err := os.Stat(absRoot); err != nil {
		return nil, errors.Wrapf(err, "scanning %s", root)
	}

	excluded := make(map[string]bool, len(opts.ExcludeDirs))
	for _, d := range opts.ExcludeDirs {
		if d == "" {
			continue
		}
		if !filepath.IsAbs(d) {
			d = filepath.Join(absRoot, d)
		}
		excluded[filepath.Clean(d)] = true
	}

	exts := make(map[string]bool, len(opts.Extensions))
	for _, e := range opts.Extensions {
		exts[strings.ToLower(e)] = true
	}

	var files []string
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() && path != absRoot {
				return filepath.SkipDir
			}
			return nil // skip unreadable entries
		}
		name := d.Name()
		if d.IsDir() {
			if path == absRoot {
				return nil
			}
			if IsSkippedDir(name) || excluded[filepath.Clean(path)] {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || !jsx.Supported(path) {
			return nil
		}
		if len(exts) > 0 && !exts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "scanning %s", root)
	}

	sort.Strings(files)
	return files, nil
}

// FilesByExtension groups files by lowercase extension.
func FilesByExtension(files []string) map[string][]string {
	result := make(map[string][]string)
	for _, f := range files {
		ext := strings.ToLower(filepath.Ext(f))
		result[ext] = append(result[ext], f)
	}
	return result
}

// DescribeFiles returns a human-readable summary such as "3 .tsx, 1 .js".
func DescribeFiles(files []string) string {
	byExt := FilesByExtension(files)
	exts := make([]string, 0, len(byExt))
	for ext := range byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)

	parts := make([]string, 0, len(exts))
	for _, ext := range exts {
		parts = append(parts, fmt.Sprintf("%d %s", len(byExt[ext]), ext))
	}
	return strings.Join(parts, ", ")
}
