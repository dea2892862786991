package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
)

// formatValue formats an expected/actual value for display, truncating
// long values and flattening newlines.
func formatValue(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", "\\n")
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}

// Check is the outcome of a single expectation evaluated against a test
// run.
type Check struct {
	Desc     string
	Passed   bool
	Expected string
	Actual   string
}

// TestReport describes the outcome of one test file.
type TestReport struct {
	Name     string
	Passed   bool
	Duration time.Duration
	Checks   []Check
	Stdout   string
	Err      error // infrastructure error: unreadable or malformed test file
}

// Reporter prints per-test outcomes honouring the executor's debug
// level:
//
//	level 0  nothing
//	level 1  nothing here (the driver prints the run summary)
//	level 2  names of failed tests
//	level 3  outcome of every test
//	level 4  expected and actual values for failed expectations
//	level 5  actual output also for succeeded tests
type Reporter struct {
	out     io.Writer
	errOut  io.Writer
	noColor bool
}

type ReporterOption func(*Reporter)

func NewReporter(opts ...ReporterOption) *Reporter {
	r := &Reporter{
		out:    os.Stdout,
		errOut: os.Stderr,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func WithStdout(w io.Writer) ReporterOption {
	return func(r *Reporter) {
		r.out = w
	}
}

func WithStderr(w io.Writer) ReporterOption {
	return func(r *Reporter) {
		r.errOut = w
	}
}

func WithNoColor(nc bool) ReporterOption {
	return func(r *Reporter) {
		r.noColor = nc
	}
}

// SetNoColor toggles colored output after construction. Flag values are
// only known once the command line has been parsed.
func (r *Reporter) SetNoColor(nc bool) {
	r.noColor = nc
}

func (r *Reporter) sprint(attrs ...color.Attribute) func(a ...interface{}) string {
	if r.noColor {
		return fmt.Sprint
	}
	return color.New(attrs...).SprintFunc()
}

// Test reports the outcome of a single test file at the given debug
// level.
func (r *Reporter) Test(level int, rep *TestReport) {
	if level <= 1 {
		return
	}

	green := r.sprint(color.FgGreen)
	red := r.sprint(color.FgRed)
	cyan := r.sprint(color.FgCyan)

	if rep.Err != nil {
		fmt.Fprintf(r.errOut, "%s %s: %v\n", red("✗"), rep.Name, rep.Err)
		return
	}

	if rep.Passed {
		if level >= 3 {
			fmt.Fprintf(r.out, "%s %s %s\n", green("✓"), rep.Name,
				cyan(fmt.Sprintf("(%dms)", rep.Duration.Milliseconds())))
		}
		if level >= 5 && rep.Stdout != "" {
			fmt.Fprintf(r.out, "  output:\n%s", indent(rep.Stdout))
		}
		return
	}

	fmt.Fprintf(r.out, "%s %s %s\n", red("✗"), rep.Name,
		cyan(fmt.Sprintf("(%dms)", rep.Duration.Milliseconds())))

	if level >= 4 {
		for _, c := range rep.Checks {
			if c.Passed {
				continue
			}
			fmt.Fprintf(r.out, "  %s %s\n", red("→"), c.Desc)
			fmt.Fprintf(r.out, "    Expected: %s\n", formatValue(c.Expected, 100))
			fmt.Fprintf(r.out, "    Actual:   %s\n", formatValue(c.Actual, 100))
		}
	}
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	var b strings.Builder
	for _, l := range lines {
		b.WriteString("    ")
		b.WriteString(l)
		b.WriteString("\n")
	}
	return b.String()
}
