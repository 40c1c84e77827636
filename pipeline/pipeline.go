// Package pipeline runs wrapkit's project-level operations: extract marked
// strings into the default catalog, wrap literal text in sources, sync target
// catalogs through a provider, report status and watch for changes.
package pipeline

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/minios-linux/wrapkit/catalog"
	"github.com/minios-linux/wrapkit/codemod"
	"github.com/minios-linux/wrapkit/config"
	"github.com/minios-linux/wrapkit/extract"
	"github.com/minios-linux/wrapkit/filter"
	"github.com/minios-linux/wrapkit/provider"
	"github.com/minios-linux/wrapkit/store"
	"github.com/minios-linux/wrapkit/syncer"
)

// Runner holds the components configured for one project.
type Runner struct {
	cfg     *config.Config
	store   *store.Store
	scanner *extract.Scanner
	wrapper *codemod.Wrapper
	log     *zap.Logger
}

// New wires the components for cfg. A nil logger discards output.
func New(cfg *config.Config, log *zap.Logger) (*Runner, error) {
	if log == nil {
		log = zap.NewNop()
	}

	patterns, err := filter.CompilePatterns(cfg.ExcludePatterns)
	if err != nil {
		return nil, errors.WithHint(errors.Wrap(err, "exclude_patterns"),
			"patterns use Go regexp syntax, e.g. ^TODO")
	}

	st, err := store.New(cfg.OutputDir, store.WithLogger(log))
	if err != nil {
		return nil, err
	}

	walk := extract.WalkOptions{
		Extensions:  cfg.Extensions,
		ExcludeDirs: []string{cfg.OutputDir},
	}

	return &Runner{
		cfg:   cfg,
		store: st,
		scanner: extract.NewScanner(extract.Config{
			FunctionName:  cfg.FunctionName,
			ComponentName: cfg.ComponentName,
			KeyPrefix:     cfg.KeyPrefix,
			Walk:          walk,
		}, log),
		wrapper: codemod.New(codemod.Config{
			FunctionName:  cfg.FunctionName,
			ComponentName: cfg.ComponentName,
			ImportSource:  cfg.ImportSource,
			KeyPrefix:     cfg.KeyPrefix,
			Filter:        filter.Config{MinLength: cfg.MinLength, Patterns: patterns},
			SkipTags:      cfg.SkipTags,
			Walk:          walk,
		}, log),
		log: log,
	}, nil
}

// Config returns the runner's configuration.
func (r *Runner) Config() *config.Config { return r.cfg }

// Store returns the locale store.
func (r *Runner) Store() *store.Store { return r.store }

// ExtractReport describes an Extract run.
type ExtractReport struct {
	Scan *extract.ScanResult
	// Found is the number of distinct keys with source text.
	Found int
	// Added counts keys new to the default catalog.
	Added int
	// Total is the size of the default catalog afterwards.
	Total int
	// Unresolved lists keys referenced directly in code (t('some_key'))
	// that the default catalog does not define.
	Unresolved []string
	DryRun     bool
}

// Extract scans the source directory for marked strings and merges them into
// the default locale's catalog. Existing values are never overwritten.
func (r *Runner) Extract(ctx context.Context, dryRun bool) (*ExtractReport, error) {
	scan, err := r.scanner.ScanDirectory(ctx, r.cfg.SourceDir)
	if err != nil {
		return nil, err
	}

	found := make(map[string]string)
	var refs []string
	for _, s := range scan.Strings {
		if s.Value == "" {
			refs = append(refs, s.Key)
			continue
		}
		if _, ok := found[s.Key]; !ok {
			found[s.Key] = s.Value
		}
	}

	merged, added, err := r.mergeDefault(found, dryRun)
	if err != nil {
		return nil, err
	}

	rep := &ExtractReport{
		Scan:   scan,
		Found:  len(found),
		Added:  added,
		Total:  catalog.Len(merged),
		DryRun: dryRun,
	}
	seen := make(map[string]bool)
	for _, key := range refs {
		if _, ok := catalog.Get(merged, key); !ok && !seen[key] {
			seen[key] = true
			rep.Unresolved = append(rep.Unresolved, key)
		}
	}
	return rep, nil
}

// WrapReport describes a Wrap run.
type WrapReport struct {
	Result *codemod.DirectoryResult
	// Added counts keys new to the default catalog.
	Added int
	// Total is the size of the default catalog afterwards.
	Total int
}

// Wrap rewrites literal text under the source directory and records the
// generated keys in the default catalog. A dry run computes the same result
// without touching sources or catalogs.
func (r *Runner) Wrap(ctx context.Context, dryRun bool) (*WrapReport, error) {
	current, err := r.store.Load(r.cfg.DefaultLocale)
	if err != nil {
		return nil, err
	}
	opts := codemod.DirectoryOptions{DryRun: dryRun}
	if current != nil {
		opts.Known = catalog.Flatten(current.Data)
	}

	res, err := r.wrapper.WrapDirectory(ctx, r.cfg.SourceDir, opts)
	if err != nil {
		return nil, err
	}

	merged, added, err := r.mergeDefault(res.Keys(), dryRun)
	if err != nil {
		return nil, err
	}
	return &WrapReport{Result: res, Added: added, Total: catalog.Len(merged)}, nil
}

// mergeDefault merges key -> text pairs into the default catalog, keeping
// existing values. It returns the merged catalog and the number of new keys.
func (r *Runner) mergeDefault(keys map[string]string, dryRun bool) (catalog.Tree, int, error) {
	def := r.cfg.DefaultLocale
	current, err := r.store.Load(def)
	if err != nil {
		return nil, 0, err
	}
	base := catalog.Tree{}
	if current != nil {
		base = current.Data
	}

	added := 0
	for k := range keys {
		if _, ok := catalog.Get(base, k); !ok {
			added++
		}
	}

	incoming := catalog.FromFlat(keys)
	if dryRun || (added == 0 && current != nil) {
		return catalog.Merge(base, incoming, true), added, nil
	}

	lf, err := r.store.Merge(def, incoming, true)
	if err != nil {
		return nil, 0, err
	}
	r.log.Debug("default catalog updated",
		zap.String("locale", def),
		zap.Int("added", added),
		zap.Int("total", catalog.Len(lf.Data)))
	return lf.Data, added, nil
}

// SyncOptions tune a Sync run.
type SyncOptions struct {
	// Locales restricts the run; empty means every configured target.
	Locales []string
	// Force retranslates every key.
	Force bool
	// OnProgress is forwarded to the engine.
	OnProgress func(locale string, done, total int)
	// OnLocale is called before each locale is processed.
	OnLocale func(locale string)
}

// LocaleSync is one locale's share of a Sync run.
type LocaleSync struct {
	Locale string
	Report *syncer.Report
	Saved  bool
}

// SyncReport describes a Sync run.
type SyncReport struct {
	RunID   string
	Locales []LocaleSync
}

// Translated sums translated keys over all locales.
func (r *SyncReport) Translated() int {
	n := 0
	for _, l := range r.Locales {
		n += l.Report.Translated
	}
	return n
}

// Failed sums failed keys over all locales.
func (r *SyncReport) Failed() int {
	n := 0
	for _, l := range r.Locales {
		n += l.Report.Failed()
	}
	return n
}

// Sync translates the default catalog's missing keys into every target
// locale through p and saves each updated catalog. Source hashes persisted in
// a target's document seed the engine, so keys translated in earlier runs
// are not requested again while their source text is unchanged.
func (r *Runner) Sync(ctx context.Context, p provider.Provider, opts SyncOptions) (*SyncReport, error) {
	rep := &SyncReport{RunID: uuid.NewString()}
	log := r.log.With(zap.String("run_id", rep.RunID))

	def := r.cfg.DefaultLocale
	src, err := r.store.Load(def)
	if err != nil {
		return nil, err
	}
	if src == nil || catalog.Len(src.Data) == 0 {
		return nil, errors.WithHint(errors.Newf("default locale %q has no catalog", def),
			"run `wrapkit extract` or `wrapkit wrap` first")
	}

	locales := opts.Locales
	if len(locales) == 0 {
		locales = r.cfg.Locales
	}
	if len(locales) == 0 {
		return nil, errors.WithHint(errors.New("no target locales"),
			"add locales to .wrapkit.yaml or pass --locale")
	}

	engine := syncer.New(p, syncer.Options{
		ChunkSize:     r.cfg.Sync.ChunkSize,
		MaxConcurrent: r.cfg.Sync.MaxConcurrent,
		RequestDelay:  r.cfg.Sync.RequestDelay,
		MaxRetries:    1,
		Force:         opts.Force,
		OnProgress:    opts.OnProgress,
		Logger:        log,
	})

	for _, loc := range locales {
		if loc == def {
			continue
		}
		if err := ctx.Err(); err != nil {
			return rep, errors.Wrap(err, "sync cancelled")
		}
		if opts.OnLocale != nil {
			opts.OnLocale(loc)
		}

		ls, err := r.syncLocale(ctx, engine, src, loc)
		if ls != nil {
			rep.Locales = append(rep.Locales, *ls)
		}
		if err != nil {
			return rep, err
		}
	}
	log.Debug("sync finished",
		zap.Int("translated", rep.Translated()),
		zap.Int("failed", rep.Failed()),
		zap.String("cache", engine.Cache().Summary()))
	return rep, nil
}

func (r *Runner) syncLocale(ctx context.Context, engine *syncer.Engine, src *store.LocaleFile, loc string) (*LocaleSync, error) {
	current, err := r.store.Load(loc)
	if err != nil {
		return nil, err
	}

	target := catalog.Tree{}
	var persisted map[string]string
	if current != nil {
		target = current.Data
		persisted = current.SourceHashes
		engine.Cache().Seed(loc, seedable(persisted, target))
	}

	out, report, syncErr := engine.TranslateMissingKeys(ctx, src.Data, target, src.Locale, loc)
	ls := &LocaleSync{Locale: loc, Report: report}

	hashes := store.KeepHashes(engine.Cache().Hashes(loc), out)
	if current == nil || report.Translated > 0 || !sameHashes(hashes, persisted) {
		if _, err := r.store.Save(loc, out, store.WithSourceHashes(hashes)); err != nil {
			return ls, err
		}
		ls.Saved = true
	}
	return ls, syncErr
}

// seedable keeps the persisted hashes of keys that still hold a translation.
func seedable(hashes map[string]string, target catalog.Tree) map[string]string {
	out := make(map[string]string, len(hashes))
	for k, h := range hashes {
		if v, ok := catalog.Get(target, k); ok && v != "" {
			out[k] = h
		}
	}
	return out
}

func sameHashes(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

// NewProvider builds the provider selected by cfg. apiKey is used by HTTP
// providers.
func NewProvider(cfg *config.Config, apiKey string, log *zap.Logger) (provider.Provider, error) {
	switch cfg.Provider.Type {
	case config.ProviderPseudo:
		return provider.Pseudo(), nil
	case config.ProviderOpenAI:
		return provider.NewOpenAI(provider.OpenAIConfig{
			Name:         cfg.Provider.Type,
			BaseURL:      cfg.Provider.BaseURL,
			APIKey:       apiKey,
			Model:        cfg.Provider.Model,
			Proxy:        cfg.Provider.Proxy,
			Timeout:      cfg.Provider.Timeout,
			MaxRetries:   cfg.Sync.MaxRetries,
			SystemPrompt: cfg.Provider.Prompt,
		}, log)
	}
	return nil, errors.Newf("unknown provider type %q", cfg.Provider.Type)
}
