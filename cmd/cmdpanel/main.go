package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/atotto/clipboard"
	"golang.org/x/term"

	"github.com/vanderheijden86/cmdpanel/internal/journal"
	"github.com/vanderheijden86/cmdpanel/pkg/catalog"
	"github.com/vanderheijden86/cmdpanel/pkg/config"
	"github.com/vanderheijden86/cmdpanel/pkg/debug"
	"github.com/vanderheijden86/cmdpanel/pkg/export"
	"github.com/vanderheijden86/cmdpanel/pkg/launcher"
	"github.com/vanderheijden86/cmdpanel/pkg/metrics"
	"github.com/vanderheijden86/cmdpanel/pkg/model"
	"github.com/vanderheijden86/cmdpanel/pkg/registry"
	"github.com/vanderheijden86/cmdpanel/pkg/store"
	"github.com/vanderheijden86/cmdpanel/pkg/ui"
	"github.com/vanderheijden86/cmdpanel/pkg/version"
	"github.com/vanderheijden86/cmdpanel/pkg/watcher"

	tea "github.com/charmbracelet/bubbletea"
)

// options are the parsed command line flags.
type options struct {
	configPath  string
	dataPath    string
	catalogPath string
	viewType    string
	editing     bool
	list        bool
	jsonOut     bool
	runID       string
	exportTo    string
	importFrom  string
	stats       bool
	chartPath   string
	history     int
	noWatch     bool
	debug       bool
	help        bool
	version     bool
}

func parseFlags(args []string, stderr io.Writer) (options, *flag.FlagSet, error) {
	var o options
	fs := flag.NewFlagSet("cmdpanel", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.configPath, "config", "", "Config file (default: ~/.config/cmdpanel/config.yaml)")
	fs.StringVar(&o.dataPath, "data", "", "Settings file with groups, favorites and usage")
	fs.StringVar(&o.catalogPath, "catalog", "", "Command catalog file (commands.yaml)")
	fs.StringVar(&o.viewType, "context", "", "Host view type groups are filtered for (markdown, canvas, ...)")
	fs.BoolVar(&o.editing, "editing", false, "The host view is in editing mode")
	fs.BoolVar(&o.list, "list", false, "List groups and their commands")
	fs.BoolVar(&o.jsonOut, "json", false, "Print --list and --stats as JSON")
	fs.StringVar(&o.runID, "run", "", "Run a command by id and record it")
	fs.StringVar(&o.exportTo, "export", "", "Export settings to a file, or - for stdout")
	fs.StringVar(&o.importFrom, "import", "", "Replace settings with an exported file")
	fs.BoolVar(&o.stats, "stats", false, "Show usage statistics")
	fs.StringVar(&o.chartPath, "chart", "", "Write a usage chart (.svg or .png)")
	fs.IntVar(&o.history, "history", 0, "Show the last N launches from the journal")
	fs.BoolVar(&o.noWatch, "no-watch", false, "Do not reload when files change on disk")
	fs.BoolVar(&o.debug, "debug", false, "Enable debug logging")
	fs.BoolVar(&o.help, "help", false, "Show help")
	fs.BoolVar(&o.version, "version", false, "Show version")
	err := fs.Parse(args)
	return o, fs, err
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// app holds everything the actions share.
type app struct {
	cfg     config.Config
	store   *store.Store
	cat     *catalog.Catalog
	reg     *registry.Registry
	launch  *launcher.Launcher
	journal *journal.Journal
	sink    *ui.SaveErrorSink
	hc      registry.HostContext
}

func run(args []string, stdout, stderr io.Writer) int {
	o, fs, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if o.help {
		fmt.Fprintln(stdout, "Usage: cmdpanel [options]")
		fmt.Fprintln(stdout, "\nA keyboard-driven panel of grouped shell commands.")
		fs.SetOutput(stdout)
		fs.PrintDefaults()
		return 0
	}
	if o.version {
		fmt.Fprintf(stdout, "cmdpanel %s\n", version.Version)
		return 0
	}
	if o.debug {
		debug.SetEnabled(true)
		metrics.SetEnabled(true)
	}

	a, err := setup(o)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer a.close()

	switch {
	case o.list:
		return a.report(stdout, stderr, func(w io.Writer) error {
			return writeList(w, a.reg.Snapshot(), a.cat, o.jsonOut, isTerminal(stdout))
		})
	case o.runID != "":
		return a.runCommand(stdout, stderr, o.runID)
	case o.exportTo != "":
		return a.report(stdout, stderr, func(w io.Writer) error {
			return exportSettings(w, a.reg.Snapshot(), o.exportTo)
		})
	case o.importFrom != "":
		return a.importSettings(stdout, stderr, o.importFrom)
	case o.stats:
		return a.report(stdout, stderr, func(w io.Writer) error {
			return writeStats(w, a.reg.Snapshot(), a.cat, o.jsonOut)
		})
	case o.chartPath != "":
		return a.report(stdout, stderr, func(w io.Writer) error {
			return a.writeChart(w, o.chartPath)
		})
	case o.history > 0:
		return a.report(stdout, stderr, func(w io.Writer) error {
			if a.journal == nil {
				return errors.New("the launch journal is disabled or could not be opened")
			}
			entries, err := a.journal.Recent(o.history)
			if err != nil {
				return err
			}
			return writeHistory(w, entries, a.cat)
		})
	}

	if err := a.runTUI(o); err != nil {
		fmt.Fprintf(stderr, "Error running cmdpanel: %v\n", err)
		return 1
	}
	return 0
}

// setup loads config, catalog, settings and journal. Only config and
// settings failures are fatal.
func setup(o options) (*app, error) {
	var (
		cfg config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFrom(o.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if o.dataPath != "" {
		cfg.Paths.Data = o.dataPath
	}
	if o.catalogPath != "" {
		cfg.Paths.Catalog = o.catalogPath
	}

	a := &app{cfg: cfg, sink: &ui.SaveErrorSink{}}
	a.hc = registry.HostContext{ViewType: cfg.Context.ViewType, Editing: cfg.Context.Editing}
	if o.viewType != "" {
		a.hc = registry.HostContext{ViewType: o.viewType, Editing: o.editing}
	} else if o.editing {
		a.hc.Editing = true
	}

	if err := seedCatalog(cfg.CatalogPath()); err != nil {
		debug.Warn("seeding catalog: %v", err)
	}
	a.cat = catalog.New(
		catalog.WithPath(cfg.CatalogPath()),
		catalog.WithFragmentDir(cfg.FragmentDir()),
		catalog.WithShell(cfg.Shell),
	)
	if err := a.cat.Reload(); err != nil {
		debug.Warn("loading catalog: %v", err)
	}

	a.store = store.New(cfg.DataPath())
	settings, err := a.store.Load()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	a.reg = registry.New(&settings,
		registry.WithSaver(a.store),
		registry.WithSaveErrorHandler(a.sink.Handle),
	)
	a.registerBuiltins()

	var lopts []launcher.Option
	if cfg.JournalEnabled() {
		if j, err := journal.Open(cfg.JournalPath()); err != nil {
			debug.Warn("journal disabled: %v", err)
		} else {
			a.journal = j
			lopts = append(lopts, launcher.WithJournal(j))
		}
	}
	a.launch = launcher.New(a.cat, a.reg, lopts...)
	return a, nil
}

func (a *app) close() {
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			debug.Warn("closing journal: %v", err)
		}
	}
	if summary := metrics.Summary(); summary != "" {
		debug.Log("metrics:\n%s", summary)
	}
}

// seedCatalog writes the sample catalog when none exists yet.
func seedCatalog(path string) error {
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(catalog.SampleYAML), 0o644)
}

// registerBuiltins adds the panel's own commands to the catalog.
func (a *app) registerBuiltins() {
	a.cat.Register(catalog.Descriptor{
		ID:          "cmdpanel:clear-recent",
		Name:        "Clear Recently Used",
		Icon:        "trash",
		Description: "Forget the recently used commands.",
	}, func(context.Context) error {
		a.reg.ClearRecent()
		return nil
	})
	a.cat.Register(catalog.Descriptor{
		ID:          "cmdpanel:copy-settings",
		Name:        "Copy Settings to Clipboard",
		Icon:        "copy",
		Description: "Copy the exported settings JSON to the clipboard.",
	}, func(context.Context) error {
		data, err := store.Export(a.reg.Snapshot())
		if err != nil {
			return err
		}
		return clipboard.WriteAll(string(data))
	})
}

// report runs fn against stdout and turns its error into an exit code.
func (a *app) report(stdout, stderr io.Writer, fn func(io.Writer) error) int {
	if err := fn(stdout); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func (a *app) runCommand(stdout, stderr io.Writer, id string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := a.launch.Launch(ctx, id)
	if res.Output != "" {
		fmt.Fprint(stdout, res.Output)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Failed to execute command %s: %v\n", res.Name, err)
		return 1
	}
	if err := a.saveError(); err != nil {
		fmt.Fprintf(stderr, "Warning: %v\n", err)
	}
	fmt.Fprintf(stderr, "Executed: %s (%s)\n", res.Name, ui.FormatDuration(res.Duration))
	return 0
}

func (a *app) importSettings(stdout, stderr io.Writer, path string) int {
	imported, err := store.ImportFile(path)
	if err != nil {
		fmt.Fprintf(stderr, "Import failed: %v\n", err)
		return 1
	}
	a.reg.Replace(imported)
	if err := a.saveError(); err != nil {
		fmt.Fprintf(stderr, "Import failed: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Imported %d groups into %s\n", len(imported.Groups), a.store.Path())
	return 0
}

func (a *app) saveError() error {
	return a.sink.Take()
}

func (a *app) writeChart(w io.Writer, path string) error {
	s := a.reg.Snapshot()
	entries := export.TopUsage(s.CommandUsageCount, 15, a.displayName)
	if len(entries) == 0 {
		return errors.New("no usage recorded yet")
	}
	if err := export.SaveUsageChart(export.ChartOptions{
		Path:    path,
		Title:   "Most used commands",
		Entries: entries,
	}); err != nil {
		return err
	}
	fmt.Fprintf(w, "Wrote %s\n", path)
	return nil
}

func (a *app) displayName(id string) string {
	return registry.DisplayName(model.CommandRef{CommandID: id}, a.cat)
}

// startWatchers watches the catalog, its fragment directory and the
// settings file. Watchers that fail to start are skipped.
func (a *app) startWatchers() (catalogWatchers []*watcher.Watcher, data *watcher.Watcher, stop func()) {
	var all []*watcher.Watcher
	start := func(path string, opts ...watcher.WatcherOption) *watcher.Watcher {
		opts = append(opts, watcher.WithOnError(func(err error) {
			debug.Warn("watcher %s: %v", path, err)
		}))
		w, err := watcher.NewWatcher(path, opts...)
		if err == nil {
			err = w.Start()
		}
		if err != nil {
			debug.Warn("not watching %s: %v", path, err)
			return nil
		}
		all = append(all, w)
		return w
	}

	if w := start(a.cfg.CatalogPath()); w != nil {
		catalogWatchers = append(catalogWatchers, w)
	}
	if info, err := os.Stat(a.cfg.FragmentDir()); err == nil && info.IsDir() {
		if w := start(a.cfg.FragmentDir(), watcher.WithDirectory("*.yaml")); w != nil {
			catalogWatchers = append(catalogWatchers, w)
		}
	}
	data = start(a.cfg.DataPath())

	return catalogWatchers, data, func() {
		for _, w := range all {
			w.Stop()
		}
	}
}

func (a *app) runTUI(o options) error {
	if a.cfg.UI.LogFile != "" && debug.Enabled() {
		closeLog, err := debug.OpenLogFile(a.cfg.UI.LogFile)
		if err != nil {
			return err
		}
		defer closeLog()
	}

	// The data file must exist for its directory to be watched.
	if _, err := os.Stat(a.store.Path()); os.IsNotExist(err) {
		if err := a.store.Save(a.reg.Snapshot()); err != nil {
			debug.Warn("creating settings file: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mopts := []ui.ModelOption{
		ui.WithStore(a.store),
		ui.WithHostContext(a.hc),
		ui.WithSaveErrors(a.sink),
		ui.WithContext(ctx),
	}
	if !o.noWatch && a.cfg.WatchEnabled() {
		catalogWatchers, data, stop := a.startWatchers()
		defer stop()
		mopts = append(mopts, ui.WithCatalogWatchers(catalogWatchers...), ui.WithDataWatcher(data))
	}

	m := ui.NewModel(a.reg, a.cat, a.launch, mopts...)
	return runTUIProgram(m, a.cfg.AltScreenEnabled())
}

func runTUIProgram(m ui.Model, altScreen bool) error {
	popts := []tea.ProgramOption{tea.WithoutSignalHandler()}
	if altScreen {
		popts = append(popts, tea.WithAltScreen())
	}
	p := tea.NewProgram(m, popts...)

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	// Optional auto-quit for automated tests: set CMDPANEL_TUI_AUTOCLOSE_MS.
	if v := os.Getenv("CMDPANEL_TUI_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()

				select {
				case <-runDone:
					return
				case <-timer.C:
				}

				p.Quit()
			}()
		}
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted) {
		return nil
	}
	return err
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
