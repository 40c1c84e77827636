package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/minios-linux/wrapkit/extract"
	"github.com/minios-linux/wrapkit/jsx"
)

// DefaultDebounce is the quiet period before a watch run.
const DefaultDebounce = 300 * time.Millisecond

// WatchOptions control Watch.
type WatchOptions struct {
	// Debounce groups bursts of events into one run. Default: DefaultDebounce.
	Debounce time.Duration
	// Wrap rewrites sources on change instead of only extracting.
	Wrap bool
	// OnRun receives every run's outcome, including the initial one.
	OnRun func(WatchRun)
}

// WatchRun is the outcome of one watch-triggered run.
type WatchRun struct {
	// Trigger is the file that caused the run, or "" for the initial run.
	Trigger string
	Extract *ExtractReport
	Wrap    *WrapReport
	Err     error
}

// Watch runs Extract (or Wrap) once, then again whenever a source file
// under the source directory changes, until ctx is done.
func (r *Runner) Watch(ctx context.Context, opts WatchOptions) error {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "creating file watcher")
	}
	defer w.Close()

	if err := r.watchTree(w, r.cfg.SourceDir); err != nil {
		return err
	}

	var runMu sync.Mutex
	run := func(trigger string) {
		runMu.Lock()
		defer runMu.Unlock()

		res := WatchRun{Trigger: trigger}
		if opts.Wrap {
			res.Wrap, res.Err = r.Wrap(ctx, false)
		} else {
			res.Extract, res.Err = r.Extract(ctx, false)
		}
		if res.Err != nil && ctx.Err() == nil {
			r.log.Warn("watch run failed", zap.String("trigger", trigger), zap.Error(res.Err))
		}
		if opts.OnRun != nil {
			opts.OnRun(res)
		}
	}

	run("")

	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	schedule := func(trigger string) {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(opts.Debounce, func() {
			if ctx.Err() == nil {
				run(trigger)
			}
		})
	}
	defer func() {
		timerMu.Lock()
		if timer != nil {
			timer.Stop()
		}
		timerMu.Unlock()
		runMu.Lock() // wait for a run in progress
		runMu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if !r.skipDir(event.Name) {
						if err := r.watchTree(w, event.Name); err != nil {
							r.log.Warn("cannot watch directory", zap.String("dir", event.Name), zap.Error(err))
						}
						schedule(event.Name)
					}
					continue
				}
			}
			if !r.relevant(event) {
				continue
			}
			r.log.Debug("source changed", zap.String("file", event.Name), zap.String("op", event.Op.String()))
			schedule(event.Name)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			r.log.Warn("watcher error", zap.Error(err))
		}
	}
}

// watchTree adds dir and its non-skipped subdirectories to w.
func (r *Runner) watchTree(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return errors.Wrapf(err, "watching %s", dir)
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && r.skipDir(path) {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			return errors.Wrapf(err, "watching %s", path)
		}
		return nil
	})
}

func (r *Runner) skipDir(path string) bool {
	if filepath.Clean(path) == filepath.Clean(r.cfg.OutputDir) {
		return true
	}
	return extract.IsSkippedDir(filepath.Base(path))
}

// relevant filters events down to writes of supported, non-hidden sources.
// Temp files from atomic rewrites are hidden and ignored.
func (r *Runner) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
		return false
	}
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") || !jsx.Supported(event.Name) {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range r.cfg.Extensions {
		if e == ext {
			return true
		}
	}
	return len(r.cfg.Extensions) == 0
}
