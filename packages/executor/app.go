package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/sanderbog/testwave/packages/output"
)

const (
	// DefaultDebugLevel prints the run summary only.
	DefaultDebugLevel = 1
	// DefaultTimeout bounds a single test command.
	DefaultTimeout = 30 * time.Second
	// DefaultShell interprets the manifest's run line.
	DefaultShell = "/bin/sh"
)

// App executes test files. It owns the debug level, the shell and
// timeout defaults, and the per-test reporting.
type App struct {
	debugLevel int
	timeout    time.Duration
	shell      string
	noColor    bool

	version   string
	buildTime string

	out      io.Writer
	errOut   io.Writer
	reporter *output.Reporter
}

type Option func(*App)

func NewApp(opts ...Option) *App {
	a := &App{
		debugLevel: DefaultDebugLevel,
		timeout:    DefaultTimeout,
		shell:      DefaultShell,
		version:    "dev",
		buildTime:  "unknown",
		out:        os.Stdout,
		errOut:     os.Stderr,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.reporter = output.NewReporter(
		output.WithStdout(a.out),
		output.WithStderr(a.errOut),
		output.WithNoColor(a.noColor),
	)
	return a
}

func WithVersion(version, buildTime string) Option {
	return func(a *App) {
		a.version = version
		a.buildTime = buildTime
	}
}

func WithStdout(w io.Writer) Option {
	return func(a *App) {
		a.out = w
	}
}

func WithStderr(w io.Writer) Option {
	return func(a *App) {
		a.errOut = w
	}
}

// RegisterFlags contributes the executor's own options to the global
// flag set. These are recognized on the command line only, not in
// config files.
func (a *App) RegisterFlags(fs *pflag.FlagSet) {
	fs.DurationVar(&a.timeout, "timeout", DefaultTimeout, "Default timeout for a single test command")
	fs.StringVar(&a.shell, "shell", DefaultShell, "Shell used to run test commands")
	fs.BoolVar(&a.noColor, "no-color", false, "Disable colored output")
}

// SetDebugLevel sets the verbosity. Range validation is the caller's
// responsibility; see the driver.
func (a *App) SetDebugLevel(level int) {
	a.debugLevel = level
}

// DebugLevel returns the current verbosity.
func (a *App) DebugLevel() int {
	return a.debugLevel
}

// PrintVersion prints version information and returns the process exit
// code to use.
func (a *App) PrintVersion() int {
	fmt.Fprintf(a.out, "testwave version %s\n", a.version)
	fmt.Fprintf(a.out, "Built: %s\n", a.buildTime)
	return 0
}

// PrintCopyright prints the copyright statement and returns the process
// exit code to use.
func (a *App) PrintCopyright() int {
	fmt.Fprintln(a.out, "testwave - a file-based test runner")
	fmt.Fprintln(a.out, "Copyright (c) the testwave authors.")
	fmt.Fprintln(a.out, "Distributed under the MIT license.")
	return 0
}

// TestAFile runs a single test file and reports true on success. An
// unreadable or malformed test file counts as a failure, not a fatal
// error.
func (a *App) TestAFile(ctx context.Context, path string) bool {
	a.reporter.SetNoColor(a.noColor)

	start := time.Now()
	m, err := LoadManifest(path)
	if err != nil {
		a.reporter.Test(a.debugLevel, &output.TestReport{
			Name:   path,
			Passed: false,
			Err:    err,
		})
		return false
	}

	res, err := a.runCommand(ctx, m)
	if err != nil {
		a.reporter.Test(a.debugLevel, &output.TestReport{
			Name:     m.Name,
			Passed:   false,
			Duration: time.Since(start),
			Err:      err,
		})
		return false
	}

	checks := evaluate(m, res)
	passed := true
	for _, c := range checks {
		if !c.Passed {
			passed = false
			break
		}
	}

	a.reporter.Test(a.debugLevel, &output.TestReport{
		Name:     m.Name,
		Passed:   passed,
		Duration: time.Since(start),
		Checks:   checks,
		Stdout:   res.stdout,
	})
	return passed
}

// runCommand executes the manifest's run line under the configured
// shell, bounded by the effective timeout.
func (a *App) runCommand(ctx context.Context, m *Manifest) (*commandResult, error) {
	shell := m.Shell
	if shell == "" {
		shell = a.shell
	}

	timeout := m.TimeoutOr(a.timeout)
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, shell, "-c", m.Run)
	cmd.Env = append(os.Environ(), sortedEnv(m.Env)...)
	if m.Stdin != "" {
		cmd.Stdin = strings.NewReader(m.Stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := &commandResult{
		stdout:  stdout.String(),
		stderr:  stderr.String(),
		timeout: timeout,
	}

	if cctx.Err() == context.DeadlineExceeded {
		res.timedOut = true
		return res, nil
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("running %q: %w", m.Run, err)
		}
		res.exitCode = exitErr.ExitCode()
	}

	return res, nil
}

// sortedEnv flattens the manifest environment deterministically.
func sortedEnv(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+env[k])
	}
	return pairs
}
