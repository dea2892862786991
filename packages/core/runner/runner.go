package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/time/rate"
)

// TestFileExt is the extension used when expanding directory inputs.
const TestFileExt = ".wave"

// Executor runs a single test file. The concrete implementation lives
// in packages/executor; the runner only needs the dispatch surface.
type Executor interface {
	TestAFile(ctx context.Context, path string) bool
	DebugLevel() int
}

// Outcome records the result of one dispatched input.
type Outcome struct {
	Path     string
	Passed   bool
	Duration time.Duration
}

// Result aggregates a full pass over the input list.
type Result struct {
	InputCount int
	ErrorCount int
	Outcomes   []Outcome
	Stats      *Stats
}

// Succeeded returns the number of inputs that passed.
func (r *Result) Succeeded() int {
	return r.InputCount - r.ErrorCount
}

// Runner dispatches inputs to an executor strictly sequentially,
// counting failures.
type Runner struct {
	exec    Executor
	limiter *rate.Limiter
}

type Option func(*Runner)

func NewRunner(exec Executor, opts ...Option) *Runner {
	r := &Runner{exec: exec}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithRate throttles dispatch to at most n tests per second. Zero or
// negative disables throttling.
func WithRate(n float64) Option {
	return func(r *Runner) {
		if n > 0 {
			r.limiter = rate.NewLimiter(rate.Limit(n), 1)
		}
	}
}

// Run processes every input in order. A false result from the executor
// increments the error count; the input count always advances. An
// expired context stops the loop between tests, keeping the counts
// accumulated so far.
func (r *Runner) Run(ctx context.Context, inputs []string) *Result {
	res := &Result{Stats: NewStats()}

	for _, input := range inputs {
		if ctx.Err() != nil {
			break
		}
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				break
			}
		}

		start := time.Now()
		ok := r.exec.TestAFile(ctx, input)
		elapsed := time.Since(start)

		res.InputCount++
		if !ok {
			res.ErrorCount++
		}
		res.Outcomes = append(res.Outcomes, Outcome{
			Path:     input,
			Passed:   ok,
			Duration: elapsed,
		})
		res.Stats.Record(elapsed)
	}

	return res
}

// ExpandInputs resolves the input list for dispatch: directory entries
// are walked for test files (sorted, so runs are reproducible), plain
// entries pass through untouched whether or not they exist. Missing
// files surface as per-test failures, not as fatal errors.
func ExpandInputs(inputs []string) ([]string, error) {
	var expanded []string
	for _, input := range inputs {
		info, err := os.Stat(input)
		if err != nil || !info.IsDir() {
			expanded = append(expanded, input)
			continue
		}

		var found []string
		err = filepath.Walk(input, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() && filepath.Ext(path) == TestFileExt {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", input, err)
		}
		sort.Strings(found)
		expanded = append(expanded, found...)
	}
	return expanded, nil
}
