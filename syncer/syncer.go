// Package syncer brings a target locale catalog up to date with a source
// catalog by asking a provider for the missing translations.
//
// A key is requested when the target has no translation for it and the
// engine has not already translated the same source text for that target.
// The input catalogs are never modified; TranslateMissingKeys returns a new
// tree.
package syncer

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/minios-linux/wrapkit/catalog"
	"github.com/minios-linux/wrapkit/checksum"
	"github.com/minios-linux/wrapkit/provider"
)

// Options tune batching and pacing.
type Options struct {
	// ChunkSize caps the number of requests per provider batch. 0 sends
	// everything in one batch.
	ChunkSize int
	// MaxConcurrent is the number of batches in flight. Default: 1.
	MaxConcurrent int
	// RequestDelay is the minimum spacing between batch starts.
	RequestDelay time.Duration
	// MaxRetries is how many times a batch that failed as a whole is
	// resubmitted.
	MaxRetries int
	// Force requests every source key, ignoring existing translations and
	// recorded hashes.
	Force bool
	// OnProgress is called after each batch with the number of requests
	// settled so far.
	OnProgress func(locale string, done, total int)
	// Logger receives diagnostics. Nil discards them.
	Logger *zap.Logger
}

// KeyFailure records a key whose translation failed. Its previous target
// value, if any, is kept.
type KeyFailure struct {
	Key string
	Err error
}

// Report summarizes one TranslateMissingKeys call.
type Report struct {
	SourceLocale string
	TargetLocale string
	// Total is the number of source keys.
	Total int
	// Translated counts keys written into the returned catalog.
	Translated int
	// AlreadyTranslated counts keys skipped because the target holds a
	// different value.
	AlreadyTranslated int
	// Unchanged counts keys skipped because their source hash matches the
	// last successful translation.
	Unchanged int
	// Requested is the number of requests sent to the provider.
	Requested int
	// Batches is the number of provider batches submitted.
	Batches  int
	Failures []KeyFailure
}

// Failed returns the number of failed keys.
func (r *Report) Failed() int { return len(r.Failures) }

// Engine translates missing keys. Its hash cache lives as long as the engine;
// an Engine may be reused across locales and calls.
type Engine struct {
	provider provider.Provider
	opts     Options
	cache    *checksum.Cache
	log      *zap.Logger
}

// New creates an engine around p.
func New(p provider.Provider, opts Options) *Engine {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 1
	}
	if opts.ChunkSize < 0 {
		opts.ChunkSize = 0
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{provider: p, opts: opts, cache: checksum.New(), log: log}
}

// Cache exposes the engine's hash cache so callers can seed it from and
// persist it to locale files.
func (e *Engine) Cache() *checksum.Cache { return e.cache }

type pending struct {
	key    string
	source string
}

// TranslateMissingKeys returns a copy of target with translations for the
// keys of source that need them. Per-key provider failures are reported, not
// returned. The error is non-nil only when ctx is cancelled, in which case
// the returned tree holds the translations completed so far.
func (e *Engine) TranslateMissingKeys(ctx context.Context, source, target catalog.Tree, sourceLocale, targetLocale string) (catalog.Tree, *Report, error) {
	report := &Report{SourceLocale: sourceLocale, TargetLocale: targetLocale}
	result := catalog.Clone(target)

	srcFlat := catalog.Flatten(source)
	keys := catalog.SortedKeys(srcFlat)
	report.Total = len(keys)
	e.cache.Clean(targetLocale, keys)

	var queue []pending
	for _, key := range keys {
		text := srcFlat[key]
		if !e.opts.Force {
			if existing, ok := catalog.Get(target, key); ok && existing != "" && existing != text {
				report.AlreadyTranslated++
				continue
			}
			if !e.cache.IsChanged(targetLocale, key, text) {
				report.Unchanged++
				continue
			}
		}
		queue = append(queue, pending{key: key, source: text})
	}

	report.Requested = len(queue)
	if len(queue) == 0 {
		e.log.Debug("nothing to translate",
			zap.String("locale", targetLocale),
			zap.Int("keys", report.Total))
		return result, report, nil
	}

	chunks := chunk(queue, e.opts.ChunkSize)
	report.Batches = len(chunks)

	var (
		mu   sync.Mutex
		done int
	)
	apply := func(batch []pending, results []provider.Result, batchErr error) {
		mu.Lock()
		defer mu.Unlock()

		for i, p := range batch {
			var res provider.Result
			if batchErr != nil {
				res = provider.Failed(batchErr)
			} else {
				res = results[i]
			}
			if res.Success && strings.TrimSpace(res.TranslatedText) == "" {
				res = provider.Failed(errors.Newf("empty translation"))
			}
			if !res.Success {
				err := provider.Failed(res.Err).Err
				e.log.Warn("translation failed",
					zap.String("locale", targetLocale),
					zap.String("key", p.key),
					zap.Error(err))
				report.Failures = append(report.Failures, KeyFailure{Key: p.key, Err: err})
				continue
			}
			catalog.Set(result, p.key, res.TranslatedText)
			e.cache.Update(targetLocale, p.key, p.source)
			report.Translated++
		}

		done += len(batch)
		if e.opts.OnProgress != nil {
			e.opts.OnProgress(targetLocale, done, len(queue))
		}
	}

	var limiter *rate.Limiter
	if e.opts.RequestDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(e.opts.RequestDelay), 1)
	}

	err := runParallel(ctx, chunks, e.opts.MaxConcurrent, limiter, func(ctx context.Context, batch []pending) error {
		reqs := make([]provider.Request, len(batch))
		for i, p := range batch {
			reqs[i] = provider.Request{
				SourceText:   p.source,
				SourceLocale: sourceLocale,
				TargetLocale: targetLocale,
				Context:      p.key,
			}
		}
		results, err := e.submit(ctx, reqs)
		if err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		apply(batch, results, err)
		return nil
	})

	sort.Slice(report.Failures, func(i, j int) bool {
		return report.Failures[i].Key < report.Failures[j].Key
	})
	e.log.Info("sync finished",
		zap.String("locale", targetLocale),
		zap.Int("requested", report.Requested),
		zap.Int("translated", report.Translated),
		zap.Int("failed", report.Failed()),
		zap.Int("batches", report.Batches))

	if err != nil {
		return result, report, errors.Wrap(err, "sync cancelled")
	}
	return result, report, nil
}

// submit sends one batch, resubmitting it when the provider fails the batch
// as a whole or breaks the one-result-per-request contract.
func (e *Engine) submit(ctx context.Context, reqs []provider.Request) ([]provider.Result, error) {
	var lastErr error
	for attempt := 0; attempt <= e.opts.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results, err := e.provider.TranslateBatch(ctx, reqs)
		if err == nil && len(results) != len(reqs) {
			err = errors.Newf("provider returned %d results for %d requests", len(results), len(reqs))
		}
		if err == nil {
			return results, nil
		}
		lastErr = errors.Mark(err, provider.ErrProvider)
		e.log.Warn("batch failed",
			zap.Int("entries", len(reqs)),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}
	return nil, lastErr
}

func chunk(queue []pending, size int) [][]pending {
	if size <= 0 || size >= len(queue) {
		return [][]pending{queue}
	}
	var out [][]pending
	for start := 0; start < len(queue); start += size {
		end := min(start+size, len(queue))
		out = append(out, queue[start:end])
	}
	return out
}

// runParallel runs fn over tasks with at most maxConcurrent in flight. When
// limiter is set every task start waits for it. Launching stops once ctx is
// done; tasks already started run to completion.
func runParallel[T any](ctx context.Context, tasks []T, maxConcurrent int, limiter *rate.Limiter, fn func(context.Context, T) error) error {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	sem := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup
	var firstErr error
	var errOnce sync.Once
	setErr := func(err error) { errOnce.Do(func() { firstErr = err }) }

	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			setErr(err)
			break
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				setErr(err)
				break
			}
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(t T) {
			defer func() {
				<-sem
				wg.Done()
			}()
			if err := fn(ctx, t); err != nil {
				setErr(err)
			}
		}(task)
	}

	wg.Wait()
	return firstErr
}
