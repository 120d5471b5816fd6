package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"faulttree/internal/config"
	"faulttree/internal/fragment"
	"faulttree/internal/model"
	"faulttree/internal/navigator"
	"faulttree/internal/render"
	"faulttree/internal/tui"
	"faulttree/internal/web"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/tcnksm/go-latest"
)

func checkUpdate(currentVer string) {
	githubTag := &latest.GithubTag{
		Owner:      "faulttree",
		Repository: "faulttree",
	}

	res, err := latest.Check(githubTag, currentVer)
	if err != nil {
		return // Silently fail
	}

	if res.Outdated {
		fmt.Printf("\n✨ A new version is available: %s (you have %s)\n", res.Current, currentVer)
		fmt.Println("👉 Download it from https://github.com/faulttree/faulttree/releases")
	} else if pflag.Lookup("update").Changed {
		fmt.Printf("✅ You are using the latest version: %s\n", currentVer)
	}
}

// app bundles what every mode needs.
type app struct {
	cfg      *config.Config
	log      *logrus.Logger
	cache    *fragment.Cache
	resolver fragment.Resolver
	policy   navigator.MatchPolicy
}

func main() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: faulttree [options]\n\n")
		fmt.Fprintf(os.Stderr, "faulttree browses a fault-diagnosis knowledge base.\n")
		fmt.Fprintf(os.Stderr, "The catalog is a tree of folders and pages stored as JSON fragments;\n")
		fmt.Fprintf(os.Stderr, "folders load their children on demand and pages show remediation steps.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  faulttree -d ./kb                   # Browse fragments from a local directory\n")
		fmt.Fprintf(os.Stderr, "  faulttree -b https://kb.example/    # Browse fragments over HTTP\n")
		fmt.Fprintf(os.Stderr, "  faulttree -d ./kb --report -a       # Print the whole tree\n")
		fmt.Fprintf(os.Stderr, "  faulttree -d ./kb -r -s battery     # Print only titles matching battery\n")
		fmt.Fprintf(os.Stderr, "  faulttree -d ./kb -j -q '$..title'  # Query the tree as JSON\n")
		fmt.Fprintf(os.Stderr, "  faulttree -d ./kb --web             # Serve the browser UI\n")
	}

	pflag.StringP("base-url", "b", "", "Base URL the fragments are fetched from")
	pflag.StringP("dir", "d", "", "Read fragments from a local directory instead of HTTP")
	pflag.String("root", "", "Root fragment path (default data/main.json)")
	pflag.String("addr", "", "Listen address for --web (default localhost:8080)")
	pflag.Bool("case-sensitive", false, "Match search keywords case-sensitively")
	pflag.String("log-level", "", "Log level: debug, info, warn, error")
	configFlag := pflag.StringP("config", "c", "", "Config file (default ~/.config/faulttree/config.yaml)")

	jsonFlag := pflag.BoolP("json", "j", false, "Output the loaded tree as JSON")
	queryFlag := pflag.StringP("query", "q", "", "JSONPath expression applied to the --json output")
	reportFlag := pflag.BoolP("report", "r", false, "Print the tree as a text report (CLI mode)")
	outputFlag := pflag.StringP("output", "o", "", "Save report to the specified file (combined with --report)")
	searchFlag := pflag.StringP("search", "s", "", "Filter --report/--json output by title keyword")
	expandFlag := pflag.BoolP("expand-all", "a", false, "Load and open every folder before --report/--json")
	verboseFlag := pflag.BoolP("verbose", "v", false, "Include page content in the report")
	webFlag := pflag.BoolP("web", "w", false, "Start Web Mode")
	versionFlag := pflag.BoolP("version", "V", false, "Print version information")
	updateFlag := pflag.BoolP("update", "u", false, "Check for latest version")
	helpFlag := pflag.BoolP("help", "h", false, "Show this help message")
	pflag.Parse()

	if *helpFlag {
		pflag.Usage()
		return
	}

	if *versionFlag {
		fmt.Printf("faulttree version %s\n", model.Version)
		return
	}

	if *updateFlag {
		checkUpdate(model.Version)
		return
	}

	cfg, err := config.Load(viper.New(), *configFlag, pflag.CommandLine)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	tuiMode := !*webFlag && !*reportFlag && !*jsonFlag
	log, closeLog, err := newLogger(cfg, tuiMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog.Close()

	a, err := newApp(cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *webFlag {
		a.runWebMode()
		return
	}

	if *reportFlag {
		a.runReportMode(*outputFlag, *searchFlag, *expandFlag, *verboseFlag)
		return
	}

	if *jsonFlag {
		a.runJsonMode(*searchFlag, *queryFlag, *expandFlag)
		return
	}

	// Default: TUI
	a.runTuiMode()
}

// newLogger logs to stderr, or to the log file in TUI mode so the alt screen stays clean.
func newLogger(cfg *config.Config, tuiMode bool) (*logrus.Logger, io.Closer, error) {
	log := logrus.New()
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	log.SetLevel(level)

	if !tuiMode {
		log.SetOutput(os.Stderr)
		return log, io.NopCloser(nil), nil
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	log.SetOutput(f)
	log.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	return log, f, nil
}

func newApp(cfg *config.Config, log *logrus.Logger) (*app, error) {
	fetcher, err := fragment.NewFetcher(cfg.BaseURL, cfg.DataDir, cfg.Timeout, logrus.NewEntry(log))
	if err != nil {
		return nil, err
	}
	log.WithField("source", fetcher.Name()).Debug("fragment source")

	policy := navigator.CaseInsensitive
	if cfg.CaseSensitive {
		policy = navigator.CaseSensitive
	}
	return &app{
		cfg:      cfg,
		log:      log,
		cache:    fragment.NewCache(fetcher, logrus.NewEntry(log)),
		resolver: fragment.Resolver{Prefix: cfg.DataPrefix},
		policy:   policy,
	}, nil
}

func (a *app) root() model.FragmentPath {
	return model.FragmentPath(a.cfg.Root)
}

func (a *app) controller() *navigator.Controller {
	return navigator.New(a.cache,
		navigator.WithLogger(logrus.NewEntry(a.log)),
		navigator.WithResolver(a.resolver),
		navigator.WithMatchPolicy(a.policy),
	)
}

// loadTree loads the root and, when asked, every reachable folder, then applies the search.
func (a *app) loadTree(ctx context.Context, search string, expandAll bool) (*navigator.Controller, error) {
	c := a.controller()
	if err := c.LoadRoot(ctx, a.root()); err != nil {
		return c, err
	}
	// Search has to see the whole catalog.
	if expandAll || search != "" {
		if _, err := fragment.Prefetch(ctx, a.cache, a.resolver, a.root()); err != nil {
			a.log.WithError(err).Warn("some fragments could not be loaded")
		}
		if err := c.ExpandAll(ctx); err != nil {
			a.log.WithError(err).Warn("some folders could not be expanded")
		}
	}
	if search != "" {
		c.ApplyFilter(search)
	}
	return c, nil
}

func (a *app) runReportMode(outputFile, search string, expandAll, verbose bool) {
	c, err := a.loadTree(context.Background(), search, expandAll)
	report := navigator.GenerateReport(c, navigator.ReportOptions{Verbose: verbose, Width: 100})

	if outputFile != "" {
		if werr := os.WriteFile(outputFile, []byte(report), 0644); werr != nil {
			fmt.Fprintf(os.Stderr, "Error writing report to %s: %v\n", outputFile, werr)
			os.Exit(1)
		}
		fmt.Printf("Report saved to %s\n", outputFile)
	} else {
		fmt.Println(report)
	}
	if err != nil {
		os.Exit(1)
	}
}

func (a *app) runJsonMode(search, query string, expandAll bool) {
	c, err := a.loadTree(context.Background(), search, expandAll)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var out any = navigator.Export(c)
	if query != "" {
		res, err := navigator.Query(navigator.Export(c), query)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		out = res
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(out)
}

func (a *app) runWebMode() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := web.NewServer(web.Options{
		Cache:    a.cache,
		Resolver: a.resolver,
		Root:     a.root(),
		DataDir:  a.cfg.DataDir,
		Policy:   a.policy,
		Log:      logrus.NewEntry(a.log),
	})
	if err := web.StartServer(ctx, a.cfg.Addr, srv); err != nil {
		a.log.WithError(err).Error("web server stopped")
		os.Exit(1)
	}
}

func (a *app) runTuiMode() {
	var preloader *navigator.Preloader
	if w, ok := a.cache.Fetcher().(fragment.Warmer); ok {
		preloader = navigator.NewPreloader(w.Warm, logrus.NewEntry(a.log))
	}

	m := tui.InitialModel(tui.Deps{
		Cache:     a.cache,
		Resolver:  a.resolver,
		Root:      a.root(),
		Renderer:  render.NewTerminal(a.cfg.GlamourStyle, 80),
		Preloader: preloader,
		Policy:    a.policy,
		Log:       logrus.NewEntry(a.log),
	})
	p := tea.NewProgram(&m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Alas, there's been an error: %v", err)
		os.Exit(1)
	}
}
