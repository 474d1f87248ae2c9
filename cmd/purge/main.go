package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/bamsammich/purge/internal/config"
	"github.com/bamsammich/purge/internal/engine"
	"github.com/bamsammich/purge/internal/event"
	"github.com/bamsammich/purge/internal/metrics"
	"github.com/bamsammich/purge/internal/safety"
	"github.com/bamsammich/purge/internal/stats"
	"github.com/bamsammich/purge/internal/ui"
)

var version = "dev"

// Exit codes.
const (
	exitOK          = 0
	exitErrors      = 1 // per-entry errors or interrupted
	exitFatal       = 2 // usage or startup error
	exitAllDenied   = 3 // a path was refused and nothing was removed
	maxFailureLines = 10
)

func main() {
	os.Exit(run(os.Args[1:], stdStreams()))
}

// streams is the process I/O the command runs against.
type streams struct {
	in    io.Reader
	out   io.Writer
	err   io.Writer
	tty   bool // err is a terminal
	width int
}

func stdStreams() streams {
	return streams{
		in:    os.Stdin,
		out:   os.Stdout,
		err:   os.Stderr,
		tty:   ui.IsTTY(os.Stderr),
		width: ui.TermWidth(os.Stderr),
	}
}

// positiveInt is a pflag.Value rejecting values below 1 at parse time.
type positiveInt int

var _ pflag.Value = (*positiveInt)(nil)

func (p *positiveInt) String() string { return strconv.Itoa(int(*p)) }
func (*positiveInt) Type() string     { return "int" }

func (p *positiveInt) Set(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("not a number: %q", s)
	}
	if n < 1 {
		return fmt.Errorf("must be at least 1 (got %d)", n)
	}
	*p = positiveInt(n)
	return nil
}

type options struct {
	jobs        positiveInt
	queueDepth  positiveInt
	force       bool
	quiet       bool
	verbose     bool
	dryRun      bool
	noProgress  bool
	showVersion bool
	logFile     string
	metricsFile string
}

func run(args []string, s streams) int {
	rootCmd := newRootCmd(s)
	rootCmd.SetArgs(args)
	rootCmd.SetIn(s.in)
	rootCmd.SetOut(s.out)
	rootCmd.SetErr(s.err)

	if err := rootCmd.Execute(); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			return exitErr.code
		}
		fmt.Fprintf(s.err, "Error: %v\n", err)
		return exitFatal
	}
	return exitOK
}

func newRootCmd(s streams) *cobra.Command {
	var opts options

	rootCmd := &cobra.Command{
		Use:   "purge [flags] <path>...",
		Short: "Fast, parallel recursive delete with safety rails",
		Long: `purge removes files and directory trees using a pool of workers.

Paths inside your home or current directory are removed directly. Other
absolute paths ask for confirmation unless --force is given. System
locations such as / and /usr, and any ancestor of one, are always refused.
Symbolic links are removed, never followed.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if opts.showVersion {
				return nil
			}
			return cobra.MinimumNArgs(1)(cmd, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.showVersion {
				fmt.Fprintf(s.out, "purge %s\n", version)
				return nil
			}
			return runPurge(cmd, args, s, &opts)
		},
	}

	f := rootCmd.Flags()
	f.SortFlags = false
	f.VarP(&opts.jobs, "jobs", "j", "number of removal workers (default: number of CPUs)")
	f.Var(&opts.queueDepth, "queue-depth", "work queue capacity (default: 8 per worker)")
	f.BoolVarP(&opts.force, "force", "f", false, "remove paths outside home and cwd without asking")
	f.BoolVarP(&opts.quiet, "quiet", "q", false, "suppress progress and summary")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "print every removed entry and debug logs")
	f.BoolVarP(&opts.dryRun, "dry-run", "n", false, "walk and count without removing anything")
	f.BoolVar(&opts.noProgress, "no-progress", false, "plain periodic progress even on a terminal")
	f.StringVar(&opts.logFile, "log", "", "write structured JSON log to FILE")
	f.StringVar(&opts.metricsFile, "metrics-file", "", "write final counters as a Prometheus textfile to FILE")
	f.BoolVar(&opts.showVersion, "version", false, "print version and exit")

	rootCmd.AddCommand(newDocsCmd())
	return rootCmd
}

//nolint:gocyclo,revive // cyclomatic,cognitive-complexity: CLI entry point wires every component
func runPurge(cmd *cobra.Command, paths []string, s streams, opts *options) error {
	// Load optional config file.
	cfg, cfgErr := config.Load()

	// Apply config defaults for flags not explicitly set on CLI.
	applyConfigDefaults(cmd, cfg.Defaults, opts)

	runID := uuid.NewString()

	// Configure logging.
	logLevel := slog.LevelWarn
	if opts.verbose {
		logLevel = slog.LevelDebug
	} else if !opts.quiet {
		logLevel = slog.LevelInfo
	}
	textHandler := slog.NewTextHandler(s.err, &slog.HandlerOptions{Level: logLevel})
	var logHandler slog.Handler = textHandler
	var eventLog *slog.Logger
	if opts.logFile != "" {
		lf, err := os.Create(opts.logFile)
		if err != nil {
			fmt.Fprintf(s.err, "purge: open log file: %v\n", err)
			return &exitError{code: exitFatal}
		}
		defer lf.Close()
		jsonHandler := slog.NewJSONHandler(lf, &slog.HandlerOptions{Level: slog.LevelDebug})
		logHandler = ui.NewMultiHandler(textHandler, jsonHandler)
		eventLog = slog.New(jsonHandler).With("run", runID)
	}
	slog.SetDefault(slog.New(logHandler).With("run", runID))

	if cfgErr != nil {
		slog.Warn("failed to load config", "error", cfgErr)
	}
	if opts.dryRun {
		slog.Info("dry run mode")
	}

	home, _ := os.UserHomeDir() //nolint:errcheck // no home just disables ~ expansion
	var extra []string
	for _, p := range cfg.Safety.Protected {
		extra = append(extra, safety.ExpandHome(p, home))
	}
	classifier, err := safety.FromEnv(extra...)
	if err != nil {
		fmt.Fprintf(s.err, "purge: %v\n", err)
		return &exitError{code: exitFatal}
	}

	// Set up context with signal handling.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collector := stats.NewCollector()
	events := make(chan event.Event, 1024)

	// When --log is set, tee events through a logging goroutine
	// that writes structured records before forwarding to the presenter.
	presenterEvents := (<-chan event.Event)(events)
	if eventLog != nil {
		presenterEvents = teeEvents(eventLog, events)
	}

	presenter := ui.NewPresenter(ui.Config{
		Writer:     s.out,
		ErrWriter:  s.err,
		Stats:      collector,
		Width:      s.width,
		IsTTY:      s.tty,
		Quiet:      opts.quiet,
		Verbose:    opts.verbose,
		NoProgress: opts.noProgress,
		DryRun:     opts.dryRun,
	})

	engineCfg := engine.Config{
		Events:     events,
		Classifier: classifier,
		Stats:      collector,
		RunID:      runID,
		Paths:      paths,
		Workers:    int(opts.jobs),
		QueueDepth: int(opts.queueDepth),
		Force:      opts.force,
		DryRun:     opts.dryRun,

		// The event log and per-entry lines must not lose entries.
		BlockOnEvents: eventLog != nil || opts.verbose,
	}
	if !opts.force {
		engineCfg.Confirm = ui.NewPrompter(s.in, s.err).Confirm
	}

	// Run presenter in background, engine in foreground.
	var presenterErr error
	var presenterWg sync.WaitGroup
	presenterWg.Add(1)
	go func() {
		defer presenterWg.Done()
		presenterErr = presenter.Run(presenterEvents)
	}()

	result := engine.Run(ctx, engineCfg)
	stop()
	close(events)
	presenterWg.Wait()
	if presenterErr != nil {
		fmt.Fprintf(s.err, "presenter: %v\n", presenterErr)
	}

	if result.Err != nil {
		slog.Error("purge failed", "error", result.Err)
		return &exitError{code: exitFatal}
	}

	if !opts.quiet {
		if result.NothingToDo {
			fmt.Fprintln(s.err, "purge: nothing to remove")
		} else {
			printSummary(s.err, presenter.Summary(), result, opts.dryRun)
		}
	}

	if opts.metricsFile != "" {
		if err := metrics.WriteTextfile(opts.metricsFile, result); err != nil {
			slog.Error("failed to write metrics", "error", err)
		}
	}

	if code := exitCode(result); code != exitOK {
		return &exitError{code: code}
	}
	return nil
}

func teeEvents(logger *slog.Logger, in <-chan event.Event) <-chan event.Event {
	out := make(chan event.Event, cap(in))
	go func() {
		defer close(out)
		for ev := range in {
			attrs := []slog.Attr{
				slog.String("type", ev.Type.String()),
				slog.String("path", ev.Path),
				slog.Int64("size", ev.Size),
				slog.Int("worker", ev.WorkerID),
			}
			if ev.Error != nil {
				attrs = append(attrs, slog.String("error", ev.Error.Error()))
			}
			logger.LogAttrs(context.Background(), slog.LevelInfo, "purge.event", attrs...)
			out <- ev
		}
	}()
	return out
}

func printSummary(w io.Writer, summary string, res engine.Result, dryRun bool) {
	if summary != "" {
		if dryRun {
			summary = "dry run: " + summary
		}
		fmt.Fprintln(w, summary)
	}
	shown := min(len(res.Failures), maxFailureLines)
	for _, f := range res.Failures[:shown] {
		fmt.Fprintf(w, "  %v\n", f)
	}
	if more := len(res.Failures) - shown + res.FailuresDropped; more > 0 {
		fmt.Fprintf(w, "  ... and %s more\n", ui.FormatCount(int64(more)))
	}
	if res.Interrupted {
		fmt.Fprintln(w, "interrupted: some entries were left in place")
	}
}

// exitCode maps a finished run to the process exit status.
func exitCode(res engine.Result) int {
	switch {
	case res.Err != nil:
		return exitFatal
	case res.Interrupted, res.Stats.Errors > 0:
		return exitErrors
	case res.NothingToDo && len(res.Denied) > 0:
		return exitAllDenied
	default:
		return exitOK
	}
}

// applyConfigDefaults applies config file defaults for flags not explicitly set on the CLI.
func applyConfigDefaults(cmd *cobra.Command, defaults config.DefaultsConfig, opts *options) {
	if !cmd.Flags().Changed("jobs") && defaults.Jobs != nil {
		opts.jobs = positiveInt(*defaults.Jobs)
	}
	if !cmd.Flags().Changed("queue-depth") && defaults.QueueDepth != nil {
		opts.queueDepth = positiveInt(*defaults.QueueDepth)
	}
	if !cmd.Flags().Changed("quiet") && defaults.Quiet != nil {
		opts.quiet = *defaults.Quiet
	}
	if !cmd.Flags().Changed("no-progress") && defaults.NoProgress != nil {
		opts.noProgress = *defaults.NoProgress
	}
}

type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}
