package codemod

import (
	"context"
	"os"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/minios-linux/wrapkit/extract"
	"github.com/minios-linux/wrapkit/safefile"
)

// DirectoryOptions control WrapDirectory.
type DirectoryOptions struct {
	// DryRun computes every rewrite without writing any file.
	DryRun bool
	// Known maps keys already present in the default catalog to their text.
	// A new literal never takes one of these keys unless its text matches.
	Known map[string]string
}

// FileResult is one file's share of a directory wrap.
type FileResult struct {
	Path    string
	Wrapped []WrappedString
	Errors  []string
	// Modified is true when the file was (or, in a dry run, would be) rewritten.
	Modified bool
}

// DirectoryResult aggregates a directory wrap.
type DirectoryResult struct {
	Files    []FileResult
	Modified int
	DryRun   bool
	Errors   []*extract.FileError
}

// TotalWrapped counts wrapped literals across all files.
func (r *DirectoryResult) TotalWrapped() int {
	n := 0
	for _, f := range r.Files {
		n += len(f.Wrapped)
	}
	return n
}

// Keys collects key→text pairs from every wrapped literal.
func (r *DirectoryResult) Keys() map[string]string {
	out := make(map[string]string)
	for _, f := range r.Files {
		for k, v := range Keys(f.Wrapped) {
			out[k] = v
		}
	}
	return out
}

// WrapFile rewrites one file. In a dry run the file is left untouched but the
// result is identical to a real run.
func (w *Wrapper) WrapFile(ctx context.Context, path string, opts DirectoryOptions) (Result, *extract.FileError) {
	src, err := os.ReadFile(path)
	if err != nil {
		return Result{}, extract.IOError(path, err, "reading")
	}

	res, err := w.wrap(ctx, src, path, opts.Known)
	if err != nil {
		return res, &extract.FileError{Path: path, Err: err}
	}
	if opts.DryRun || !res.Changed() {
		return res, nil
	}

	if err := safefile.WriteFile(path, res.NewSource, 0o644); err != nil {
		return res, extract.IOError(path, err, "writing")
	}
	return res, nil
}

// WrapDirectory rewrites every supported file under dir, one at a time.
// A failing file is recorded and skipped. Callers must not run two wraps over
// the same tree concurrently: each file is read, rewritten and replaced
// without a lock.
func (w *Wrapper) WrapDirectory(ctx context.Context, dir string, opts DirectoryOptions) (*DirectoryResult, error) {
	files, err := extract.FindSources(dir, w.cfg.Walk)
	if err != nil {
		return nil, err
	}

	// Keys handed out to earlier files are reserved for later ones, so two
	// files sharing a base name cannot claim one key for different text.
	known := make(map[string]string, len(opts.Known))
	for k, v := range opts.Known {
		known[k] = v
	}
	fileOpts := DirectoryOptions{DryRun: opts.DryRun, Known: known}

	result := &DirectoryResult{DryRun: opts.DryRun}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return result, errors.Wrap(err, "wrap cancelled")
		}

		res, ferr := w.WrapFile(ctx, path, fileOpts)
		fr := FileResult{Path: path, Wrapped: res.Wrapped, Errors: res.Errors}
		if ferr != nil {
			w.log.Warn("wrap failed", zap.String("file", path), zap.String("kind", ferr.Kind()), zap.Error(ferr.Err))
			result.Errors = append(result.Errors, ferr)
			fr.Errors = append(fr.Errors, ferr.Error())
			fr.Wrapped = nil
		} else if res.Changed() {
			for k, v := range Keys(res.Wrapped) {
				known[k] = v
			}
			fr.Modified = true
			result.Modified++
			w.log.Debug("wrapped file",
				zap.String("file", path),
				zap.Int("strings", len(res.Wrapped)),
				zap.Bool("import_added", res.ImportAdded),
				zap.Bool("dry_run", opts.DryRun))
		}
		result.Files = append(result.Files, fr)
	}
	return result, nil
}
