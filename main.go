// wrapkit wraps literal UI text in JSX/TSX sources with translation calls
// and keeps per-locale JSON catalogs in sync through an AI provider.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/minios-linux/wrapkit/config"
	"github.com/minios-linux/wrapkit/extract"
	"github.com/minios-linux/wrapkit/i18n"
	"github.com/minios-linux/wrapkit/langmeta"
	"github.com/minios-linux/wrapkit/logging"
	"github.com/minios-linux/wrapkit/pipeline"
	"github.com/minios-linux/wrapkit/safefile"
	"github.com/minios-linux/wrapkit/settings"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var (
	rootDir string
	verbose bool
	jsonLog bool

	logger = zap.NewNop()
)

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "wrapkit",
		Short: "Wrap UI text in translation calls and sync locale catalogs",
		Long: `wrapkit finds literal text in JSX/TSX sources, replaces it with t('key')
calls and keeps per-locale JSON catalogs in sync using an AI provider.

Commands:
  init        Write a .wrapkit.yaml with defaults
  extract     Collect marked strings into the default catalog
  wrap        Rewrite literal text as t('key') calls
  sync        Translate missing keys into every target locale
  status      Show per-locale translation progress
  watch       Re-run extract (or wrap) when sources change
  auth        Manage provider API keys`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			i18n.Init("")
			logger = logging.New(logging.Options{Verbose: verbose, JSON: jsonLog})
			logger.Debug("messages", zap.String("lang", i18n.Lang()))
		},
	}

	// Global persistent flags, inherited by all subcommands
	root.PersistentFlags().StringVar(&rootDir, "root", ".", "Project root directory")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable detailed logging")
	root.PersistentFlags().BoolVar(&jsonLog, "json-log", false, "Write diagnostics as JSON lines")

	root.AddCommand(
		newInitCmd(),
		newExtractCmd(),
		newWrapCmd(),
		newSyncCmd(),
		newStatusCmd(),
		newWatchCmd(),
		newAuthCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	err := newRootCmd().Execute()
	_ = logger.Sync()
	if err != nil {
		reportError(err)
		os.Exit(1)
	}
}

// reportError prints err followed by any hints attached to it.
func reportError(err error) {
	logError("%v", err)
	for _, hint := range errors.GetAllHints(err) {
		fmt.Fprintf(os.Stderr, "  %s%s%s %s\n", colorYellow, i18n.T("hint:"), colorReset, hint)
	}
}

// loadRunner loads the project configuration and wires a pipeline for it.
func loadRunner() (*pipeline.Runner, error) {
	cfg, err := config.Load(rootDir)
	if err != nil {
		return nil, err
	}
	if cfg.Path == "" {
		logger.Debug("no config file, using defaults", zap.String("root", cfg.Root))
	}
	return pipeline.New(cfg, logger)
}

// signalContext is cancelled on Ctrl+C or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// ---------------------------------------------------------------------------
// version (display version information)
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("wrapkit version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// init (write .wrapkit.yaml)
// ---------------------------------------------------------------------------

func newInitCmd() *cobra.Command {
	var (
		locales string
		force   bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a .wrapkit.yaml with defaults",
		Long: `Create .wrapkit.yaml in the project root with the default settings.

Examples:
  wrapkit init
  wrapkit init --locale de,fr,pt-BR`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(splitList(locales), force)
		},
	}

	cmd.Flags().StringVar(&locales, "locale", "", "Target locales (comma-separated)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")

	return cmd
}

func runInit(locales []string, force bool) error {
	root, err := filepath.Abs(rootDir)
	if err != nil {
		return errors.Wrap(err, "resolving project root")
	}
	path := filepath.Join(root, config.FileName)
	if fileExists(path) && !force {
		return errors.WithHint(errors.Newf("%s already exists", path),
			"pass --force to overwrite it")
	}

	f := config.Default()
	for _, code := range locales {
		canon, err := langmeta.Canonical(code)
		if err != nil {
			return errors.WithHint(err, "use BCP 47 codes such as de, fr or pt-BR")
		}
		f.Locales = append(f.Locales, canon)
	}
	f.Locales = filterOutLang(f.Locales, f.DefaultLocale)

	// Validate before writing so init never leaves a broken file behind.
	if _, err := f.Resolve(root); err != nil {
		return err
	}

	data, err := f.Marshal()
	if err != nil {
		return err
	}
	if err := safefile.WriteFile(path, data, 0o644); err != nil {
		return err
	}

	logSuccess(i18n.T("Created %s"), path)
	fmt.Fprintln(os.Stderr)
	printSuggestedCommands()
	return nil
}

// ---------------------------------------------------------------------------
// extract (scan marked strings into the default catalog)
// ---------------------------------------------------------------------------

func newExtractCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Collect marked strings into the default catalog",
		Long: `Scan the source directory for t('...') calls and <Trans> elements and
merge their text into the default locale's catalog. Existing values are kept.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := loadRunner()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			rep, err := r.Extract(ctx, dryRun)
			if err != nil {
				return err
			}
			printExtractReport(r.Config(), rep)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be added without writing the catalog")

	return cmd
}

func printExtractReport(cfg *config.Config, rep *pipeline.ExtractReport) {
	for _, fe := range rep.Scan.Errors {
		logWarning("%s: %v", cfg.Rel(fe.Path), fe.Err)
	}
	for _, key := range rep.Unresolved {
		logWarning(i18n.T("Key %q is used in code but missing from the %s catalog"), key, cfg.DefaultLocale)
	}

	logInfo(i18n.T("Scanned %d files, found %d strings"), len(rep.Scan.Files), rep.Found)
	if verbose && len(rep.Scan.Files) > 0 {
		logInfo(i18n.T("Sources: %s"), extract.DescribeFiles(rep.Scan.Files))
	}
	switch {
	case rep.Added == 0:
		logSuccess(i18n.T("Catalog is up to date (%d keys)"), rep.Total)
	case rep.DryRun:
		logInfo(i18n.T("Would add %d new keys (%d total)"), rep.Added, rep.Total)
	default:
		logSuccess(i18n.T("Added %d new keys (%d total)"), rep.Added, rep.Total)
	}
}

// ---------------------------------------------------------------------------
// wrap (codemod)
// ---------------------------------------------------------------------------

func newWrapCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "wrap",
		Short: "Rewrite literal text as t('key') calls",
		Long: `Replace literal JSX text and translatable attributes with calls to the
translation function, insert its import, and record the generated keys in
the default catalog. Running wrap twice changes nothing the second time.

Examples:
  wrapkit wrap --dry-run -v   Show every replacement without writing
  wrapkit wrap`,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := loadRunner()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			rep, err := r.Wrap(ctx, dryRun)
			if err != nil {
				return err
			}
			printWrapReport(r.Config(), rep, dryRun)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would change without writing files")

	return cmd
}

func printWrapReport(cfg *config.Config, rep *pipeline.WrapReport, dryRun bool) {
	res := rep.Result
	for _, fe := range res.Errors {
		logWarning("%s: %v", cfg.Rel(fe.Path), fe.Err)
	}

	for _, f := range res.Files {
		for _, msg := range f.Errors {
			logWarning("%s: %s", cfg.Rel(f.Path), msg)
		}
		if !f.Modified {
			continue
		}
		logInfo(i18n.N("%s: %d string", "%s: %d strings", len(f.Wrapped)), cfg.Rel(f.Path), len(f.Wrapped))
		if verbose {
			for _, w := range f.Wrapped {
				where := ""
				if w.Attribute != "" {
					where = " [" + w.Attribute + "]"
				}
				fmt.Fprintf(os.Stderr, "    %d:%d%s %q -> %s\n", w.Line, w.Column, where, w.Original, w.Wrapped)
			}
		}
	}

	total := res.TotalWrapped()
	if total == 0 {
		logSuccess("%s", i18n.T("Nothing to wrap"))
		return
	}
	if dryRun {
		logInfo(i18n.T("Would wrap %d strings in %d files (%d new keys)"), total, res.Modified, rep.Added)
		return
	}
	logSuccess(i18n.T("Wrapped %d strings in %d files (%d new keys, %d total)"), total, res.Modified, rep.Added, rep.Total)
}

// ---------------------------------------------------------------------------
// sync (translate missing keys)
// ---------------------------------------------------------------------------

type syncArgs struct {
	locales       string
	force         bool
	provider      string
	model         string
	baseURL       string
	apiKey        string
	proxy         string
	prompt        string
	timeout       time.Duration
	chunkSize     int
	maxConcurrent int
	requestDelay  time.Duration
	maxRetries    int
}

func newSyncCmd() *cobra.Command {
	var a syncArgs

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Translate missing keys into every target locale",
		Long: `Translate keys of the default catalog that are missing from the target
catalogs. Keys whose source text is unchanged since their last translation
are not sent again; --force retranslates everything.

The API key is taken from --api-key, then the environment variable named by
provider.api_key_env, then the key stored with 'wrapkit auth login'.

Examples:
  wrapkit sync
  wrapkit sync --locale de,fr
  wrapkit sync --provider pseudo               Offline pseudo-translation
  wrapkit sync --model gpt-4o --chunk-size 50 --max-concurrent 3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, a)
		},
	}

	bindSyncFlags(cmd, &a)

	_ = cmd.RegisterFlagCompletionFunc("provider", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{
			config.ProviderOpenAI + "\tOpenAI-compatible chat completions endpoint",
			config.ProviderPseudo + "\tOffline pseudo-translation",
		}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

// bindSyncFlags registers the sync flags on cmd, storing values in a.
func bindSyncFlags(cmd *cobra.Command, a *syncArgs) {
	f := cmd.Flags()

	// Target selection
	f.StringVar(&a.locales, "locale", "", "Locales to sync (comma-separated, default: all configured)")
	f.BoolVar(&a.force, "force", false, "Retranslate every key")

	// Provider selection
	f.StringVar(&a.provider, "provider", "", "Provider type: openai, pseudo")
	f.StringVar(&a.model, "model", "", "Model name")
	f.StringVar(&a.baseURL, "base-url", "", "OpenAI-compatible API base URL")
	f.StringVar(&a.apiKey, "api-key", "", "API key")
	f.StringVar(&a.prompt, "prompt", "", "Custom system prompt")

	// Batching
	f.IntVar(&a.chunkSize, "chunk-size", 0, "Keys per provider request (0 = all at once)")
	f.IntVar(&a.maxConcurrent, "max-concurrent", 0, "Maximum requests in flight")
	f.DurationVar(&a.requestDelay, "request-delay", 0, "Minimum delay between requests")

	// Network
	f.DurationVar(&a.timeout, "timeout", 0, "Request timeout")
	f.StringVar(&a.proxy, "proxy", "", "HTTP/HTTPS proxy URL")
	f.IntVar(&a.maxRetries, "max-retries", 0, "Maximum retries on 429/5xx")
}

// applySyncFlags overrides cfg with the flags the user set explicitly.
func applySyncFlags(cmd *cobra.Command, cfg *config.Config, a syncArgs) {
	set := cmd.Flags().Changed
	if set("provider") {
		cfg.Provider.Type = a.provider
	}
	if set("model") {
		cfg.Provider.Model = a.model
	}
	if set("base-url") {
		cfg.Provider.BaseURL = a.baseURL
	}
	if set("proxy") {
		cfg.Provider.Proxy = a.proxy
	}
	if set("prompt") {
		cfg.Provider.Prompt = a.prompt
	}
	if set("timeout") {
		cfg.Provider.Timeout = a.timeout
	}
	if set("chunk-size") {
		cfg.Sync.ChunkSize = a.chunkSize
	}
	if set("max-concurrent") {
		cfg.Sync.MaxConcurrent = a.maxConcurrent
	}
	if set("request-delay") {
		cfg.Sync.RequestDelay = a.requestDelay
	}
	if set("max-retries") {
		cfg.Sync.MaxRetries = a.maxRetries
	}
}

func runSync(cmd *cobra.Command, a syncArgs) error {
	cfg, err := config.Load(rootDir)
	if err != nil {
		return err
	}
	applySyncFlags(cmd, cfg, a)

	locales, err := selectLocales(cfg, splitList(a.locales))
	if err != nil {
		return err
	}
	if a.locales != "" && len(locales) == 0 {
		logWarning("%s", i18n.T("Nothing to translate"))
		return nil
	}

	apiKey := ""
	if cfg.Provider.Type != config.ProviderPseudo {
		var source string
		apiKey, source = settings.ResolveAPIKey(a.apiKey, cfg.Provider.APIKeyEnv, cfg.Provider.Type)
		if stored := settings.Get(cfg.Provider.Type); stored != nil && stored.BaseURL != "" &&
			!cmd.Flags().Changed("base-url") && cfg.Provider.BaseURL == config.DefaultBaseURL {
			cfg.Provider.BaseURL = stored.BaseURL
		}
		if apiKey == "" {
			logWarning("%s", i18n.T("No API key found; requests are sent without authorization"))
			logInfo(i18n.T("Run 'wrapkit auth login' or set %s"), cfg.Provider.APIKeyEnv)
		} else {
			logger.Debug("api key resolved", zap.String("source", source))
		}
	}

	r, err := pipeline.New(cfg, logger)
	if err != nil {
		return err
	}
	prov, err := pipeline.NewProvider(cfg, apiKey, logger)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	if cfg.Provider.Type == config.ProviderPseudo {
		logInfo(i18n.T("Provider: %s"), cfg.Provider.Type)
	} else {
		logInfo(i18n.T("Provider: %s, model: %s"), cfg.Provider.Type, cfg.Provider.Model)
	}

	progressShown := false
	rep, err := r.Sync(ctx, prov, pipeline.SyncOptions{
		Locales: locales,
		Force:   a.force,
		OnLocale: func(locale string) {
			logInfo(i18n.T("Syncing %s"), langmeta.Resolve(locale).Label())
		},
		OnProgress: func(locale string, done, total int) {
			percent := 0
			if total > 0 {
				percent = done * 100 / total
			}
			fmt.Fprintf(os.Stderr, "\r  %s %d/%d", progressBar(percent, 30), done, total)
			progressShown = true
			if done == total {
				fmt.Fprintln(os.Stderr)
				progressShown = false
			}
		},
	})
	if progressShown {
		fmt.Fprintln(os.Stderr)
	}
	if rep != nil {
		printSyncReport(rep)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logWarning("%s", i18n.T("Interrupted, progress saved"))
		}
		return err
	}
	return nil
}

// selectLocales narrows the configured targets to the requested ones. Codes
// are canonicalized; unknown targets are reported and skipped.
func selectLocales(cfg *config.Config, requested []string) ([]string, error) {
	if len(requested) == 0 {
		return nil, nil
	}
	canon := make([]string, 0, len(requested))
	for _, code := range requested {
		c, err := langmeta.Canonical(code)
		if err != nil {
			return nil, errors.WithHint(err, "use BCP 47 codes such as de, fr or pt-BR")
		}
		canon = append(canon, c)
	}
	canon = filterOutLang(canon, cfg.DefaultLocale)

	selected := intersectLanguages(cfg.Locales, canon)
	for _, c := range canon {
		if !contains(selected, c) {
			logWarning(i18n.T("Skipping %s: not listed in locales"), c)
		}
	}
	return selected, nil
}

func printSyncReport(rep *pipeline.SyncReport) {
	fmt.Fprintln(os.Stderr)
	for _, ls := range rep.Locales {
		r := ls.Report
		label := langmeta.Resolve(ls.Locale).Label()
		switch {
		case r.Failed() > 0:
			logWarning(i18n.T("%s: %d translated, %d failed"), label, r.Translated, r.Failed())
			if verbose {
				for _, f := range r.Failures {
					fmt.Fprintf(os.Stderr, "    %s: %v\n", f.Key, f.Err)
				}
			}
		case r.Requested == 0:
			logSuccess(i18n.T("%s: up to date"), label)
		default:
			logSuccess(i18n.T("%s: %d translated"), label, r.Translated)
		}
		logger.Debug("locale synced",
			zap.String("locale", ls.Locale),
			zap.Int("total", r.Total),
			zap.Int("already_translated", r.AlreadyTranslated),
			zap.Int("unchanged", r.Unchanged),
			zap.Int("batches", r.Batches),
			zap.Bool("saved", ls.Saved))
	}

	if rep.Translated() == 0 && rep.Failed() == 0 {
		logSuccess("%s", i18n.T("Nothing to translate"))
		return
	}
	logInfo(i18n.T("Translated %d keys, %d failed"), rep.Translated(), rep.Failed())
}

// ---------------------------------------------------------------------------
// status (read-only: per-locale progress)
// ---------------------------------------------------------------------------

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show per-locale translation progress",
		Long: `Show the project configuration and, for every locale, how many keys of
the default catalog are translated, missing, or stale (translated from an
older source text). Does not modify any files.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := loadRunner()
			if err != nil {
				return err
			}
			return runStatus(r)
		},
	}
}

func runStatus(r *pipeline.Runner) error {
	cfg := r.Config()

	fmt.Fprintf(os.Stderr, "\n%s%s%s\n", colorBlue, i18n.T("Project"), colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	configPath := i18n.T("(defaults)")
	if cfg.Path != "" {
		configPath = cfg.Rel(cfg.Path)
	}
	fmt.Fprintf(os.Stderr, "  %-16s %s\n", i18n.T("Config:"), configPath)
	fmt.Fprintf(os.Stderr, "  %-16s %s\n", i18n.T("Sources:"), cfg.Rel(cfg.SourceDir))
	fmt.Fprintf(os.Stderr, "  %-16s %s\n", i18n.T("Catalogs:"), cfg.Rel(cfg.OutputDir))
	fmt.Fprintf(os.Stderr, "  %-16s %s('key') / <%s>\n", i18n.T("Markers:"), cfg.FunctionName, cfg.ComponentName)
	fmt.Fprintf(os.Stderr, "  %-16s %s\n", i18n.T("Provider:"), cfg.Provider.Type)
	fmt.Fprintln(os.Stderr)

	statuses, err := r.Status()
	if err != nil {
		return err
	}
	for _, w := range r.Store().Warnings() {
		logWarning("%s", w)
	}
	showStatsTable(statuses)
	printSuggestedCommands()
	return nil
}

func showStatsTable(statuses []pipeline.LocaleStatus) {
	if len(statuses) == 0 || statuses[0].Total == 0 {
		logInfo("%s", i18n.T("The default catalog is empty"))
		fmt.Fprintln(os.Stderr)
		return
	}

	codes := make([]string, len(statuses))
	for i, st := range statuses {
		codes[i] = st.Locale
	}
	width := langColumnWidth(codes)

	fmt.Fprintf(os.Stderr, "%s%s%s\n", colorBlue, i18n.T("Translation Statistics"), colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	fmt.Fprintf(os.Stderr, "\n   %-*s %-10s %-8s %-8s %-8s %s\n", width, i18n.T("Lang"),
		i18n.T("Done"), i18n.T("Missing"), i18n.T("Stale"), i18n.T("Unused"), i18n.T("Progress"))
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))

	var gaps []pipeline.LocaleStatus
	for _, st := range statuses {
		cell := langCell(st.Locale, width)
		if !st.Exists && !st.Default {
			fmt.Fprintf(os.Stderr, "%s %-10s %-8d %-8s %-8s %s\n", cell, i18n.T("missing"), st.Missing, "-", "-", progressBar(0, 20))
			gaps = append(gaps, st)
			continue
		}
		fmt.Fprintf(os.Stderr, "%s %-10d %-8d %-8d %-8d %s\n", cell, st.Translated, st.Missing, st.Stale, st.Obsolete, progressBar(st.Percent(), 20))
		if !st.Default && (st.Missing > 0 || st.Stale > 0) {
			gaps = append(gaps, st)
		}
	}

	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	fmt.Fprintf(os.Stderr, i18n.T("Total keys: %d")+"\n", statuses[0].Total)

	if len(gaps) > 0 {
		fmt.Fprintln(os.Stderr)
		logInfo("%s", i18n.T("Translation gaps:"))
		for _, st := range gaps {
			var parts []string
			if st.Missing > 0 {
				parts = append(parts, fmt.Sprintf(i18n.T("%d missing"), st.Missing))
			}
			if st.Stale > 0 {
				parts = append(parts, fmt.Sprintf(i18n.T("%d stale"), st.Stale))
			}
			fmt.Fprintf(os.Stderr, "  %s: %s\n", st.Locale, strings.Join(parts, ", "))
		}
	}
	fmt.Fprintln(os.Stderr)
}

func printSuggestedCommands() {
	fmt.Fprintf(os.Stderr, "%s%s%s\n", colorBlue, i18n.T("Suggested Commands"), colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	fmt.Fprintln(os.Stderr)
	fmt.Fprintf(os.Stderr, "  # %s\n", i18n.T("Preview which strings would be wrapped"))
	fmt.Fprintf(os.Stderr, "  wrapkit wrap --dry-run -v\n\n")
	fmt.Fprintf(os.Stderr, "  # %s\n", i18n.T("Wrap literal text and update the default catalog"))
	fmt.Fprintf(os.Stderr, "  wrapkit wrap\n\n")
	fmt.Fprintf(os.Stderr, "  # %s\n", i18n.T("Translate missing keys"))
	fmt.Fprintf(os.Stderr, "  wrapkit sync\n\n")
	fmt.Fprintf(os.Stderr, "  # %s\n", i18n.T("Refresh stale translations for one locale"))
	fmt.Fprintf(os.Stderr, "  wrapkit sync --locale de --force\n\n")
}

// ---------------------------------------------------------------------------
// watch (re-run on change)
// ---------------------------------------------------------------------------

func newWatchCmd() *cobra.Command {
	var (
		wrap     bool
		debounce time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run extract (or wrap) when sources change",
		Long: `Watch the source directory and re-run extract after every burst of
changes. With --wrap, literal text is wrapped as it is written.
Stop with Ctrl+C.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := loadRunner()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			cfg := r.Config()
			logInfo(i18n.T("Watching %s (Ctrl+C to stop)"), cfg.Rel(cfg.SourceDir))
			return r.Watch(ctx, pipeline.WatchOptions{
				Debounce: debounce,
				Wrap:     wrap,
				OnRun: func(run pipeline.WatchRun) {
					if run.Trigger != "" {
						logInfo(i18n.T("Changed: %s"), cfg.Rel(run.Trigger))
					}
					switch {
					case run.Err != nil:
						if ctx.Err() == nil {
							reportError(run.Err)
						}
					case run.Wrap != nil:
						printWrapReport(cfg, run.Wrap, false)
					case run.Extract != nil:
						printExtractReport(cfg, run.Extract)
					}
				},
			})
		},
	}

	cmd.Flags().BoolVar(&wrap, "wrap", false, "Wrap literal text instead of only extracting")
	cmd.Flags().DurationVar(&debounce, "debounce", pipeline.DefaultDebounce, "Quiet period before a run")

	return cmd
}

// ---------------------------------------------------------------------------
// auth (API keys)
// ---------------------------------------------------------------------------

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage provider API keys",
		Long: `Store API keys for OpenAI-compatible endpoints in
$XDG_DATA_HOME/wrapkit/auth.json (mode 0600).

Examples:
  wrapkit auth login                         Store an OpenAI key
  wrapkit auth login --base-url http://localhost:11434/v1
  wrapkit auth logout                        Remove all credentials
  wrapkit auth list                          Show stored credentials`,
	}

	cmd.AddCommand(
		newAuthLoginCmd(),
		newAuthLogoutCmd(),
		newAuthListCmd(),
	)

	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var (
		providerID string
		baseURL    string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			return authLogin(providerID, baseURL)
		},
	}

	cmd.Flags().StringVar(&providerID, "provider", config.ProviderOpenAI, "Provider to store the key for")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Endpoint to use with this key")

	return cmd
}

func authLogin(providerID, baseURL string) error {
	fmt.Fprintf(os.Stderr, "\n%s%s%s\n", colorBlue, i18n.T("API Key Setup"), colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	fmt.Fprintln(os.Stderr)

	existing := settings.GetAPIKey(providerID)
	if existing != "" {
		fmt.Fprintf(os.Stderr, "  %s %s%s%s\n", i18n.T("Current key:"), colorYellow, settings.MaskKey(existing), colorReset)
		fmt.Fprintf(os.Stderr, "  %s ", i18n.T("Enter new key to replace, or press Enter to keep:"))
	} else {
		fmt.Fprintf(os.Stderr, "  %s ", i18n.T("Enter API key:"))
	}

	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return errors.New("no input received")
	}
	key := strings.TrimSpace(scanner.Text())

	if key == "" {
		if existing == "" {
			return errors.New("no API key provided")
		}
		key = existing
		if baseURL == "" {
			logInfo("%s", i18n.T("Keeping existing key"))
			return nil
		}
	}

	if err := settings.SetAPIKey(providerID, key, baseURL); err != nil {
		return errors.Wrap(err, "saving API key")
	}
	logSuccess(i18n.T("API key for %s saved"), providerID)
	return nil
}

func newAuthLogoutCmd() *cobra.Command {
	var providerID string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove stored credentials",
		Long: `Remove stored credentials for one or all providers.

If --provider is not specified, credentials for ALL providers are removed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if providerID != "" {
				if settings.Get(providerID) == nil {
					logWarning(i18n.T("No credentials stored for %s"), providerID)
					return nil
				}
				if err := settings.Remove(providerID); err != nil {
					return errors.Wrapf(err, "removing %s credentials", providerID)
				}
				logSuccess(i18n.T("%s credentials removed"), providerID)
				return nil
			}
			if err := settings.RemoveAll(); err != nil {
				return errors.Wrap(err, "removing credentials")
			}
			logSuccess("%s", i18n.T("All stored credentials removed"))
			return nil
		},
	}

	cmd.Flags().StringVar(&providerID, "provider", "", "Provider to logout (default: all)")
	_ = cmd.RegisterFlagCompletionFunc("provider", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return settings.Load().Providers(), cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func newAuthListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show stored credentials",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(os.Stderr, "\n%s%s%s\n", colorBlue, i18n.T("Stored Credentials"), colorReset)
			fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
			fmt.Fprintln(os.Stderr)

			store := settings.Load()
			ids := store.Providers()
			if len(ids) == 0 {
				fmt.Fprintf(os.Stderr, "  %s%s%s\n", colorRed, i18n.T("none"), colorReset)
			}
			for _, id := range ids {
				entry := store[id]
				status := fmt.Sprintf("%s%s%s (key: %s)", colorGreen, i18n.T("configured"), colorReset, settings.MaskKey(entry.Key))
				if entry.BaseURL != "" {
					status += fmt.Sprintf("\n  %14s endpoint: %s", "", entry.BaseURL)
				}
				fmt.Fprintf(os.Stderr, "  %-14s %s\n", id, status)
			}

			fmt.Fprintf(os.Stderr, "\n  %s%s%s\n", colorYellow, i18n.T("Environment Variables"), colorReset)
			env := config.DefaultAPIKeyEnv
			if cfg, err := config.Load(rootDir); err == nil {
				env = cfg.Provider.APIKeyEnv
			}
			if v := os.Getenv(env); v != "" {
				fmt.Fprintf(os.Stderr, "  %s: %s%s%s\n", env, colorGreen, settings.MaskKey(v), colorReset)
			} else {
				fmt.Fprintf(os.Stderr, "  %s: %s%s%s\n", env, colorRed, i18n.T("not set"), colorReset)
			}
			fmt.Fprintln(os.Stderr)
		},
	}
}

// ---------------------------------------------------------------------------
// Shared helpers
// ---------------------------------------------------------------------------

// progressBar renders percent as a coloured bar of width cells followed by
// the number.
func progressBar(percent, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent * width / 100

	color := colorRed
	switch {
	case percent >= 100:
		color = colorGreen
	case percent >= 50:
		color = colorYellow
	}
	return color + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + colorReset + fmt.Sprintf(" %3d%%", percent)
}

// langColumnWidth returns the widest locale code.
func langColumnWidth(langs []string) int {
	width := 4
	for _, l := range langs {
		if len(l) > width {
			width = len(l)
		}
	}
	return width
}

// langCell renders a locale code padded to width, prefixed with its flag.
func langCell(lang string, width int) string {
	flag := langmeta.Resolve(lang).Flag
	if flag == "" {
		flag = "  "
	}
	return fmt.Sprintf("%s %-*s", flag, width, lang)
}

// intersectLanguages keeps the entries of filter present in available, in
// filter order.
func intersectLanguages(available, filter []string) []string {
	var out []string
	for _, f := range filter {
		f = strings.TrimSpace(f)
		if contains(available, f) && !contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}

func filterOutLang(langs []string, lang string) []string {
	var out []string
	for _, l := range langs {
		if l != lang {
			out = append(out, l)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// splitList splits a comma-separated flag value, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
