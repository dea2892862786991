package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sanderbog/testwave/packages/core/options"
	"github.com/sanderbog/testwave/packages/core/runner"
	"github.com/sanderbog/testwave/packages/executor"
	"github.com/sanderbog/testwave/packages/history"
)

// driver holds the parsed option state for one invocation. A fresh
// driver is built per Execute call so runs are independent.
type driver struct {
	app    *executor.App
	stdout io.Writer
	stderr io.Writer

	exitCode int

	versionFlag     bool
	copyrightFlag   bool
	configFiles     []string
	debugFlag       int
	watchFlag       bool
	historyDBFlag   string
	showHistoryFlag int
	rateFlag        float64
	configInputs    []string

	// options recognized inside config files: the visible schema plus
	// the hidden input option. Executor options are command line only.
	configSchema map[string]bool
}

// Execute runs the testwave driver against the given argument vector
// and returns the process exit code. All failures are translated here:
// returned errors map to ExitRecognizedFailure, panics to
// ExitUnknownFailure; nothing escapes to the process boundary.
func Execute(version, buildTime string, args []string, stdout, stderr io.Writer) (code int) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintln(stderr, "testwave: unexpected internal error.")
			code = ExitUnknownFailure
		}
	}()

	app := executor.NewApp(
		executor.WithVersion(version, buildTime),
		executor.WithStdout(stdout),
		executor.WithStderr(stderr),
	)
	d := &driver{app: app, stdout: stdout, stderr: stderr}

	root := d.newRootCmd()
	root.SetArgs(options.ExpandArgFiles(args))
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(stderr, "testwave: %v\n", err)
		return ExitRecognizedFailure
	}
	return d.exitCode
}

func (d *driver) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "testwave [options] [@config-file ...] file...",
		Short: "Run test files and count failures",
		Long: `testwave feeds each input file to the test executor and returns the
number of failed tests as its exit code.

The debug level controls how much the executor prints:

  level 0  prints nothing except serious failures; the exit code
           equals the number of failed tests
  level 1  prints a short summary only
  level 2  prints the names of the failed tests
  level 3  prints the outcome of every test
  level 4  prints the expected and actual values for failed tests
  level 5  prints the actual output also for succeeded tests

The default debug level is 1.

Inputs and options may also come from config files: pass
--config-file mycfg (or the @mycfg shorthand). A config file holds
key=value lines for the options above plus bare lines naming input
files.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          d.run,
	}

	fs := cmd.Flags()
	fs.BoolVarP(&d.versionFlag, "version", "v", false, "Print the version number")
	fs.BoolVarP(&d.copyrightFlag, "copyright", "c", false, "Print out the copyright statement")
	fs.StringArrayVar(&d.configFiles, "config-file", nil, "Specify a config file (alternatively: @arg)")
	fs.IntVarP(&d.debugFlag, "debug", "d", 0, "Set the debug level (0...2)")
	fs.BoolVarP(&d.watchFlag, "watch", "w", false, "Watch input files and re-run on changes")
	fs.StringVar(&d.historyDBFlag, "history-db", "", "Record run results into this SQLite database")
	fs.IntVar(&d.showHistoryFlag, "show-history", 0, "Show the N most recent recorded runs and exit")
	fs.Float64Var(&d.rateFlag, "rate", 0, "Throttle dispatch to at most this many tests per second")

	// Hidden composing option; only ever set while merging config
	// files, where bare lines are input files.
	fs.StringArrayVar(&d.configInputs, "input", nil, "inputfile")
	_ = fs.MarkHidden("input")

	d.app.RegisterFlags(fs)

	d.configSchema = map[string]bool{
		"help":         true,
		"version":      true,
		"copyright":    true,
		"config-file":  true,
		"debug":        true,
		"watch":        true,
		"history-db":   true,
		"show-history": true,
		"rate":         true,
		"input":        true,
	}

	return cmd
}

func (d *driver) run(cmd *cobra.Command, args []string) error {
	fs := cmd.Flags()

	// Config files are a queue: entries inside a config file may append
	// further config files, which are read in discovery order. Each file
	// is read at most once so reference cycles terminate.
	seen := make(map[string]bool)
	for i := 0; i < len(d.configFiles); i++ {
		path := d.configFiles[i]
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		if seen[abs] {
			continue
		}
		seen[abs] = true

		entries, err := options.ReadConfigFile(path)
		if err != nil {
			return err
		}
		if err := options.Apply(fs, entries, d.configSchema); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}

	// A help entry in a config file behaves like --help on the command
	// line: print usage, dispatch nothing.
	if help, _ := fs.GetBool("help"); help {
		return cmd.Help()
	}

	if fs.Changed("debug") {
		if d.debugFlag < 0 || d.debugFlag > 9 {
			fmt.Fprintln(d.stderr,
				"testwave: please use an integer in the range [0..9] as the parameter to the debug option!")
		} else {
			d.app.SetDebugLevel(d.debugFlag)
		}
	}

	if d.versionFlag {
		d.exitCode = d.app.PrintVersion()
		return nil
	}
	if d.copyrightFlag {
		d.exitCode = d.app.PrintCopyright()
		return nil
	}
	if d.showHistoryFlag > 0 {
		if d.historyDBFlag == "" {
			return fmt.Errorf("--show-history requires --history-db")
		}
		store, err := history.Open(d.historyDBFlag)
		if err != nil {
			return err
		}
		defer store.Close()
		return d.showHistory(store)
	}

	// Config file input entries come first, then the bare positionals,
	// both in source order.
	inputs := make([]string, 0, len(d.configInputs)+len(args))
	inputs = append(inputs, d.configInputs...)
	inputs = append(inputs, args...)

	inputs, err := runner.ExpandInputs(inputs)
	if err != nil {
		return err
	}

	var store *history.Store
	if d.historyDBFlag != "" {
		store, err = history.Open(d.historyDBFlag)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := runner.NewRunner(d.app, runner.WithRate(d.rateFlag))

	runPass := func() (*runner.Result, error) {
		started := time.Now()
		res := r.Run(ctx, inputs)
		d.printSummary(res)
		if store != nil {
			if _, err := store.RecordRun(started, res); err != nil {
				return nil, err
			}
		}
		return res, nil
	}

	res, err := runPass()
	if err != nil {
		return err
	}
	d.exitCode = res.ErrorCount

	if d.watchFlag && len(inputs) > 0 {
		return d.watch(ctx, inputs, runPass)
	}
	return nil
}

func (d *driver) printSummary(res *runner.Result) {
	if res.InputCount == 0 {
		fmt.Fprintln(d.stderr, "testwave: no input file specified, try --help to get a hint.")
		return
	}
	if d.app.DebugLevel() > 0 {
		fmt.Fprintf(d.stdout, "testwave: %d of %d test(s) succeeded", res.Succeeded(), res.InputCount)
		if res.ErrorCount != 0 {
			fmt.Fprintf(d.stdout, " (%d test(s) failed)", res.ErrorCount)
		}
		fmt.Fprintln(d.stdout, ".")
	}
	if d.app.DebugLevel() >= 4 && res.Stats.Count() > 0 {
		fmt.Fprintf(d.stdout, "testwave: %s\n", res.Stats.Summary())
	}
}

// showHistory prints the most recent recorded runs, newest first. At
// debug level 2 and above the per-file results are listed too.
func (d *driver) showHistory(store *history.Store) error {
	runs, err := store.LastRuns(d.showHistoryFlag)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(d.stdout, "testwave: no recorded runs.")
		return nil
	}

	for _, r := range runs {
		fmt.Fprintf(d.stdout, "%s  %s  %d of %d test(s) succeeded\n",
			r.StartedAt.Format(time.RFC3339), r.ID, r.InputCount-r.ErrorCount, r.InputCount)
		if d.app.DebugLevel() < 2 {
			continue
		}
		outcomes, err := store.RunResults(r.ID)
		if err != nil {
			return err
		}
		for _, o := range outcomes {
			mark := "✓"
			if !o.Passed {
				mark = "✗"
			}
			fmt.Fprintf(d.stdout, "  %s %s (%dms)\n", mark, o.Path, o.Duration.Milliseconds())
		}
	}
	return nil
}
